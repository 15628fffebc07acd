package engine

import (
	"fmt"
	"testing"
	"time"
)

func slotsOf(minutes ...int) []Slot {
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	out := make([]Slot, 0, len(minutes))
	for i, m := range minutes {
		start := base.Add(time.Duration(i*5) * time.Hour)
		out = append(out, Slot{Start: start, End: start.Add(time.Duration(m) * time.Minute), Minutes: m})
	}
	return out
}

func chunkMinutes(items []Item) []int {
	out := make([]int, 0, len(items))
	for _, it := range items {
		out = append(out, it.Minutes)
	}
	return out
}

func TestSplitItemFitsSlots(t *testing.T) {
	t.Parallel()

	it := Item{Kind: KindObjective, ID: "task1", Title: "deep work", Minutes: 90}
	got := SplitItem(it, slotsOf(30, 45, 30))

	want := []int{45, 30, 15}
	if len(got) != len(want) {
		t.Fatalf("chunks = %v, want %v", chunkMinutes(got), want)
	}
	sum := 0
	for i, ch := range got {
		if ch.Minutes != want[i] {
			t.Fatalf("chunks = %v, want %v", chunkMinutes(got), want)
		}
		sum += ch.Minutes
		wantID := fmt.Sprintf("task1_part_%d", i+1)
		if ch.ID != wantID {
			t.Fatalf("chunk[%d].ID = %q, want %q", i, ch.ID, wantID)
		}
		if ch.Part != i+1 || ch.TotalParts != len(want) || !ch.Split {
			t.Fatalf("chunk[%d] part stamp = %d/%d split=%v", i, ch.Part, ch.TotalParts, ch.Split)
		}
		if ch.OriginalMinutes != 90 {
			t.Fatalf("chunk[%d].OriginalMinutes = %d, want 90", i, ch.OriginalMinutes)
		}
		if ch.Kind != it.Kind || ch.Title != it.Title {
			t.Fatalf("chunk[%d] lost item identity: %+v", i, ch)
		}
	}
	if sum != 90 {
		t.Fatalf("chunk sum = %d, want 90", sum)
	}
}

func TestSplitItemNoSlotInfo(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		minutes int
		want    []int // nil means unchanged
	}{
		{name: "long item tiered", minutes: 150, want: []int{60, 60, 30}},
		{name: "tail below twenty", minutes: 145, want: []int{60, 60, 20, 5}},
		{name: "odd tail", minutes: 25, want: []int{20, 5}},
		{name: "short item unchanged", minutes: 15},
		{name: "single chunk stays whole", minutes: 60, want: []int{60}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			it := Item{Kind: KindRecurring, ID: "r1", Minutes: tt.minutes}
			got := SplitItem(it, nil)
			if tt.want == nil || len(tt.want) < 2 {
				if len(got) != 1 || got[0].ID != "r1" || got[0].Split {
					t.Fatalf("want unchanged item, got %v", chunkMinutes(got))
				}
				return
			}
			if len(got) != len(tt.want) {
				t.Fatalf("chunks = %v, want %v", chunkMinutes(got), tt.want)
			}
			for i, ch := range got {
				if ch.Minutes != tt.want[i] {
					t.Fatalf("chunks = %v, want %v", chunkMinutes(got), tt.want)
				}
			}
		})
	}
}

func TestSplitItemFitsWholeSlot(t *testing.T) {
	t.Parallel()

	it := Item{ID: "task1", Minutes: 40}
	got := SplitItem(it, slotsOf(30, 45))
	if len(got) != 1 || got[0].ID != "task1" || got[0].Split {
		t.Fatalf("item fitting a slot must come back unchanged, got %v", chunkMinutes(got))
	}
}

func TestSplitItemUnusableCapacity(t *testing.T) {
	t.Parallel()

	// All capacity below the minimum: behave as if no capacity was known.
	got := SplitItem(Item{ID: "task1", Minutes: 70}, slotsOf(3, 4))
	want := []int{60, 10}
	if len(got) != len(want) {
		t.Fatalf("chunks = %v, want %v", chunkMinutes(got), want)
	}
	for i, ch := range got {
		if ch.Minutes != want[i] {
			t.Fatalf("chunks = %v, want %v", chunkMinutes(got), want)
		}
	}

	got = SplitItem(Item{ID: "task2", Minutes: 15}, slotsOf(3))
	if len(got) != 1 || got[0].Split {
		t.Fatalf("short item with unusable capacity must stay whole, got %v", chunkMinutes(got))
	}
}

func TestSplitItemReusesLargestSlot(t *testing.T) {
	t.Parallel()

	// One 60-minute slot cannot hold 130 minutes in a single walk; the
	// largest slot is treated as refilling and the excess becomes extra
	// chunks for the packer to sort out.
	got := SplitItem(Item{ID: "big", Minutes: 130}, slotsOf(60))
	want := []int{60, 60, 10}
	if len(got) != len(want) {
		t.Fatalf("chunks = %v, want %v", chunkMinutes(got), want)
	}
	for i, ch := range got {
		if ch.Minutes != want[i] {
			t.Fatalf("chunks = %v, want %v", chunkMinutes(got), want)
		}
	}
}

func TestSplitItemFoldsTinyRemainder(t *testing.T) {
	t.Parallel()

	// 63 minutes against a 30-minute slot: 30 + 30 leaves 3, which is too
	// small to stand alone and folds into the previous chunk.
	got := SplitItem(Item{ID: "task1", Minutes: 63}, slotsOf(30))
	want := []int{30, 33}
	if len(got) != len(want) {
		t.Fatalf("chunks = %v, want %v", chunkMinutes(got), want)
	}
	sum := 0
	for i, ch := range got {
		if ch.Minutes != want[i] {
			t.Fatalf("chunks = %v, want %v", chunkMinutes(got), want)
		}
		sum += ch.Minutes
	}
	if sum != 63 {
		t.Fatalf("chunk sum = %d, want 63", sum)
	}
}

func TestOriginalID(t *testing.T) {
	t.Parallel()

	tests := []struct{ in, want string }{
		{"task1_part_3", "task1"},
		{"task1", "task1"},
		{"a_part_b", "a_part_b"},
		{"x_part_1_part_2", "x_part_1"},
	}
	for _, tt := range tests {
		if got := OriginalID(tt.in); got != tt.want {
			t.Fatalf("OriginalID(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
