package app

import (
	"context"
	"time"

	"daypack/internal/engine"
	"daypack/internal/store"
)

// storeSource feeds the engine from the commitment store. "Unmet" and
// "open" are evaluated against the current day in local time.
type storeSource struct {
	st  store.Store
	now func() time.Time
}

func (s *storeSource) UnmetRecurring(ctx context.Context, userID string) ([]engine.Commitment, error) {
	rs, err := s.st.UnmetRecurring(ctx, userID, s.now())
	if err != nil {
		return nil, err
	}
	out := make([]engine.Commitment, 0, len(rs))
	for _, r := range rs {
		out = append(out, engine.Commitment{
			ID:       r.ID,
			Title:    r.Title,
			Priority: r.Priority,
			Minutes:  r.Minutes,
		})
	}
	return out, nil
}

func (s *storeSource) OpenObjectives(ctx context.Context, userID string) ([]engine.Objective, error) {
	os, err := s.st.OpenObjectives(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]engine.Objective, 0, len(os))
	for _, o := range os {
		out = append(out, engine.Objective{
			ID:       o.ID,
			Title:    o.Title,
			Priority: o.Priority,
			Minutes:  o.Minutes,
			Status:   o.Status,
		})
	}
	return out, nil
}

// storeRecorder writes completion marks back to the store.
type storeRecorder struct {
	st store.Store
}

func (r *storeRecorder) MarkRecurringDone(ctx context.Context, id, userID string, day time.Time) error {
	return r.st.MarkRecurringDone(ctx, id, userID, day)
}

func (r *storeRecorder) SetObjectiveStatus(ctx context.Context, id, userID string, status engine.Status) error {
	return r.st.SetObjectiveStatus(ctx, id, userID, status)
}
