package engine

import (
	"context"
	"errors"
	"testing"
)

type fakeSource struct {
	recs   []Commitment
	objs   []Objective
	recErr error
	objErr error
}

func (f *fakeSource) UnmetRecurring(ctx context.Context, userID string) ([]Commitment, error) {
	return f.recs, f.recErr
}

func (f *fakeSource) OpenObjectives(ctx context.Context, userID string) ([]Objective, error) {
	return f.objs, f.objErr
}

func TestOutstandingMergesAndRanks(t *testing.T) {
	t.Parallel()

	src := &fakeSource{
		recs: []Commitment{
			{ID: "r1", Title: "standup", Priority: PriorityMedium, Minutes: 15},
			{ID: "r2", Title: "review", Priority: PriorityHigh, Minutes: 30},
		},
		objs: []Objective{
			{ID: "o1", Title: "report", Priority: PriorityHigh, Minutes: 60},
			{ID: "o2", Title: "cleanup", Priority: PriorityLow, Minutes: 20},
		},
	}

	items, err := Outstanding(context.Background(), src, "u1")
	if err != nil {
		t.Fatalf("Outstanding error: %v", err)
	}

	wantIDs := []string{"r2", "o1", "r1", "o2"}
	if len(items) != len(wantIDs) {
		t.Fatalf("items = %d, want %d", len(items), len(wantIDs))
	}
	for i, id := range wantIDs {
		if items[i].ID != id {
			t.Fatalf("items[%d].ID = %q, want %q (priority ties must keep recurring-first order)", i, items[i].ID, id)
		}
	}
	if items[0].Kind != KindRecurring || items[1].Kind != KindObjective {
		t.Fatalf("kinds lost in merge: %v / %v", items[0].Kind, items[1].Kind)
	}
}

func TestOutstandingSkipsZeroDuration(t *testing.T) {
	t.Parallel()

	src := &fakeSource{
		recs: []Commitment{{ID: "r1", Minutes: 0}},
		objs: []Objective{{ID: "o1", Minutes: -5}, {ID: "o2", Minutes: 10}},
	}
	items, err := Outstanding(context.Background(), src, "u1")
	if err != nil {
		t.Fatalf("Outstanding error: %v", err)
	}
	if len(items) != 1 || items[0].ID != "o2" {
		t.Fatalf("items = %+v, want only o2", items)
	}
}

func TestOutstandingSourceErrors(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")

	if _, err := Outstanding(context.Background(), &fakeSource{recErr: boom}, "u1"); !errors.Is(err, boom) {
		t.Fatalf("want wrapped recurring error, got %v", err)
	}
	if _, err := Outstanding(context.Background(), &fakeSource{objErr: boom}, "u1"); !errors.Is(err, boom) {
		t.Fatalf("want wrapped objective error, got %v", err)
	}
}
