package engine

import (
	"sort"
	"time"
)

// capacity is the packer's private view of what is left of a free slot.
// Placements consume from the front: the start advances and the minutes
// shrink. Capacities are value copies of the input slots; the caller's
// slot list is never mutated.
type capacity struct {
	start   time.Time
	minutes int
}

func capacitiesFromSlots(slots []Slot) []capacity {
	caps := make([]capacity, 0, len(slots))
	for _, s := range slots {
		caps = append(caps, capacity{start: s.Start, minutes: s.Minutes})
	}
	sort.Slice(caps, func(i, j int) bool { return caps[i].start.Before(caps[j].start) })
	return caps
}

func slotsFromCapacities(caps []capacity) []Slot {
	slots := make([]Slot, 0, len(caps))
	for _, c := range caps {
		slots = append(slots, Slot{
			Start:   c.start,
			End:     c.start.Add(time.Duration(c.minutes) * time.Minute),
			Minutes: c.minutes,
		})
	}
	return slots
}

// place finds the first capacity (in start order) that can hold the item
// and returns the placement plus a fresh capacity list with that much
// consumed. Capacities that drop below MinSlotMinutes are removed.
func place(caps []capacity, it Item) (Placement, []capacity, bool) {
	for i, c := range caps {
		if c.minutes < it.Minutes {
			continue
		}
		start := c.start
		end := start.Add(time.Duration(it.Minutes) * time.Minute)

		next := make([]capacity, 0, len(caps))
		next = append(next, caps[:i]...)
		rest := capacity{start: end, minutes: c.minutes - it.Minutes}
		if rest.minutes >= MinSlotMinutes {
			next = append(next, rest)
		}
		next = append(next, caps[i+1:]...)

		return Placement{Start: start, End: end, Item: it}, next, true
	}
	return Placement{}, caps, false
}

// Pack assigns items to free slots. Items are taken in the order given
// (callers pass them priority-sorted); slots are consumed first-fit in
// start order.
//
// Two passes: items that fit a slot whole are placed directly; everything
// left over is split against the remaining capacity and the chunks placed
// the same way. Chunks that still find no room simply stay off the
// schedule. First-fit is deliberately not optimal; it is predictable.
func Pack(items []Item, slots []Slot) []Placement {
	caps := capacitiesFromSlots(slots)

	var placed []Placement
	var deferred []Item

	for _, it := range items {
		p, next, ok := place(caps, it)
		if !ok {
			deferred = append(deferred, it)
			continue
		}
		caps = next
		placed = append(placed, p)
	}

	for _, it := range deferred {
		chunks := SplitItem(it, slotsFromCapacities(caps))
		for _, ch := range chunks {
			p, next, ok := place(caps, ch)
			if !ok {
				continue
			}
			caps = next
			placed = append(placed, p)
		}
	}

	sort.Slice(placed, func(i, j int) bool { return placed[i].Start.Before(placed[j].Start) })
	return placed
}
