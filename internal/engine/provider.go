package engine

import (
	"context"
	"fmt"
	"sort"
)

// Outstanding fetches today's unmet recurring commitments and open objectives
// from the source and returns them as one list, ranked by priority descending.
//
// Recurring items are merged first, objectives appended after, and the whole
// list is sorted stably, so priority ties keep that merge order. Entries
// without a positive duration estimate are excluded: there is nothing to
// schedule for them.
func Outstanding(ctx context.Context, src Source, userID string) ([]Item, error) {
	recs, err := src.UnmetRecurring(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("recurring source: %w", err)
	}
	objs, err := src.OpenObjectives(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("objective source: %w", err)
	}

	items := make([]Item, 0, len(recs)+len(objs))
	for _, r := range recs {
		if r.Minutes <= 0 {
			continue
		}
		items = append(items, Item{
			Kind:     KindRecurring,
			ID:       r.ID,
			Title:    r.Title,
			Priority: r.Priority,
			Minutes:  r.Minutes,
		})
	}
	for _, o := range objs {
		if o.Minutes <= 0 {
			continue
		}
		items = append(items, Item{
			Kind:     KindObjective,
			ID:       o.ID,
			Title:    o.Title,
			Priority: o.Priority,
			Minutes:  o.Minutes,
		})
	}

	sort.SliceStable(items, func(i, j int) bool { return items[i].Priority > items[j].Priority })
	return items, nil
}
