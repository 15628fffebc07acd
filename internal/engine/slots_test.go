package engine

import (
	"testing"
	"time"
)

func day(t *testing.T) time.Time {
	t.Helper()
	return time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
}

func at(d time.Time, hh, mm int) time.Time {
	return time.Date(d.Year(), d.Month(), d.Day(), hh, mm, 0, 0, d.Location())
}

func TestFindSlotsEmptyBusy(t *testing.T) {
	t.Parallel()
	d := day(t)

	slots, err := FindSlots(d, nil, DefaultWindow())
	if err != nil {
		t.Fatalf("FindSlots error: %v", err)
	}
	if len(slots) != 1 {
		t.Fatalf("slots = %d, want 1", len(slots))
	}
	if slots[0].Minutes != 480 {
		t.Fatalf("Minutes = %d, want 480", slots[0].Minutes)
	}
	if !slots[0].Start.Equal(at(d, 9, 0)) || !slots[0].End.Equal(at(d, 17, 0)) {
		t.Fatalf("slot = %v..%v, want 09:00..17:00", slots[0].Start, slots[0].End)
	}
}

func TestFindSlotsBetweenMeetings(t *testing.T) {
	t.Parallel()
	d := day(t)

	busy := []Busy{
		{Start: at(d, 9, 30), End: at(d, 10, 0)},
		{Start: at(d, 14, 0), End: at(d, 15, 0)},
	}
	slots, err := FindSlots(d, busy, Window{Start: "09:00", End: "18:00"})
	if err != nil {
		t.Fatalf("FindSlots error: %v", err)
	}

	want := []struct {
		start, end time.Time
		minutes    int
	}{
		{at(d, 9, 0), at(d, 9, 30), 30},
		{at(d, 10, 0), at(d, 14, 0), 240},
		{at(d, 15, 0), at(d, 18, 0), 180},
	}
	if len(slots) != len(want) {
		t.Fatalf("slots = %d, want %d", len(slots), len(want))
	}
	for i, w := range want {
		if !slots[i].Start.Equal(w.start) || !slots[i].End.Equal(w.end) || slots[i].Minutes != w.minutes {
			t.Fatalf("slot[%d] = %v..%v (%dm), want %v..%v (%dm)",
				i, slots[i].Start, slots[i].End, slots[i].Minutes, w.start, w.end, w.minutes)
		}
	}
}

func TestFindSlotsOverlappingBusy(t *testing.T) {
	t.Parallel()
	d := day(t)

	// Unsorted, overlapping, and one interval contained in another.
	busy := []Busy{
		{Start: at(d, 12, 0), End: at(d, 13, 0)},
		{Start: at(d, 10, 0), End: at(d, 12, 30)},
		{Start: at(d, 10, 30), End: at(d, 11, 0)},
	}
	slots, err := FindSlots(d, busy, DefaultWindow())
	if err != nil {
		t.Fatalf("FindSlots error: %v", err)
	}
	if len(slots) != 2 {
		t.Fatalf("slots = %d, want 2", len(slots))
	}
	if !slots[0].End.Equal(at(d, 10, 0)) {
		t.Fatalf("first slot ends %v, want 10:00", slots[0].End)
	}
	if !slots[1].Start.Equal(at(d, 13, 0)) {
		t.Fatalf("second slot starts %v, want 13:00", slots[1].Start)
	}
}

func TestFindSlotsFullyBooked(t *testing.T) {
	t.Parallel()
	d := day(t)

	busy := []Busy{{Start: at(d, 8, 0), End: at(d, 18, 0)}}
	slots, err := FindSlots(d, busy, DefaultWindow())
	if err != nil {
		t.Fatalf("FindSlots error: %v", err)
	}
	if len(slots) != 0 {
		t.Fatalf("slots = %d, want 0", len(slots))
	}
}

func TestFindSlotsDropsShortGaps(t *testing.T) {
	t.Parallel()
	d := day(t)

	// 4-minute gap at 09:00, then the rest of the day busy except the tail.
	busy := []Busy{
		{Start: at(d, 9, 4), End: at(d, 16, 0)},
	}
	slots, err := FindSlots(d, busy, DefaultWindow())
	if err != nil {
		t.Fatalf("FindSlots error: %v", err)
	}
	if len(slots) != 1 {
		t.Fatalf("slots = %d, want 1", len(slots))
	}
	if !slots[0].Start.Equal(at(d, 16, 0)) {
		t.Fatalf("slot starts %v, want 16:00", slots[0].Start)
	}
}

func TestFindSlotsIgnoresMalformedBusy(t *testing.T) {
	t.Parallel()
	d := day(t)

	busy := []Busy{
		{Start: at(d, 11, 0), End: at(d, 10, 0)}, // end before start
		{Start: at(d, 12, 0), End: at(d, 12, 0)}, // zero length
	}
	slots, err := FindSlots(d, busy, DefaultWindow())
	if err != nil {
		t.Fatalf("FindSlots error: %v", err)
	}
	if len(slots) != 1 || slots[0].Minutes != 480 {
		t.Fatalf("malformed busy intervals should not carve the window: %+v", slots)
	}
}

func TestFindSlotsInvalidWindow(t *testing.T) {
	t.Parallel()
	d := day(t)

	tests := []struct {
		name string
		win  Window
	}{
		{name: "bad start", win: Window{Start: "9am", End: "17:00"}},
		{name: "bad end", win: Window{Start: "09:00", End: "25:00"}},
		{name: "inverted", win: Window{Start: "17:00", End: "09:00"}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if _, err := FindSlots(d, nil, tt.win); err == nil {
				t.Fatalf("expected error for window %+v", tt.win)
			}
		})
	}
}
