package engine

import (
	"fmt"
	"sort"
)

// splitIterationCap bounds both chunking loops so a bad duration can never
// spin forever.
const splitIterationCap = 100

// SplitItem breaks an oversized item into chunks that stand a chance of
// being placed in the given slots. It returns either the item unchanged
// (nothing to gain from splitting) or two or more chunks, each at least
// MinSlotMinutes long, stamped with 1-based part numbers and ids of the
// form "{id}_part_{n}".
//
// Two policies cooperate:
//   - when usable slot capacity is known, chunks are cut to fit the slots,
//     largest first;
//   - when no capacity is known (or none of it is usable), a duration-only
//     tiered policy peels off 60/30/20-minute pieces.
//
// The splitter is consulted both inside the packer (real capacity) and
// speculatively with no slot information, which is why the tiered fallback
// exists at all.
func SplitItem(it Item, slots []Slot) []Item {
	total := it.Minutes

	// No capacity information at all: fragment only if the item is big
	// enough to be worth it.
	if len(slots) == 0 {
		if total >= 20 {
			return stampParts(it, tieredChunks(total))
		}
		return []Item{it}
	}

	maxSlot := 0
	for _, s := range slots {
		if s.Minutes > maxSlot {
			maxSlot = s.Minutes
		}
	}

	// Fits somewhere whole; splitting is never an optimization here.
	if total <= maxSlot {
		return []Item{it}
	}

	// Capacity exists but none of it is usable.
	if maxSlot < MinSlotMinutes {
		if total >= 20 {
			return stampParts(it, tieredChunks(total))
		}
		return []Item{it}
	}

	// Fit chunks to the actual slots, largest slot first. Each slot absorbs
	// as much of the remainder as it can hold.
	usable := make([]Slot, 0, len(slots))
	for _, s := range slots {
		if s.Minutes >= MinSlotMinutes {
			usable = append(usable, s)
		}
	}
	sort.Slice(usable, func(i, j int) bool { return usable[i].Minutes > usable[j].Minutes })

	var chunks []int
	remaining := total
	for _, s := range usable {
		if remaining <= 0 {
			break
		}
		take := remaining
		if take > s.Minutes {
			take = s.Minutes
		}
		if take < MinSlotMinutes {
			continue
		}
		chunks = append(chunks, take)
		remaining -= take
	}

	// One walk over the slots was not enough. Keep cutting pieces the size
	// of the largest slot. This treats the largest slot as if it refills,
	// which can over-commit capacity when several oversized items compete
	// for the same slot in one call; the packer tolerates the overflow by
	// leaving unplaceable chunks unscheduled.
	if remaining > 0 && maxSlot >= 10 {
		for i := 0; remaining > 0 && i < splitIterationCap; i++ {
			take := remaining
			if take > maxSlot {
				take = maxSlot
			}
			if take < MinSlotMinutes {
				if len(chunks) > 0 {
					chunks[len(chunks)-1] += take
				} else {
					chunks = append(chunks, MinSlotMinutes)
				}
				break
			}
			chunks = append(chunks, take)
			remaining -= take
		}
	}

	// Everything above came up empty; fall back to duration-only chunking.
	if len(chunks) == 0 && total >= MinSlotMinutes {
		chunks = tieredChunks(total)
	}

	if len(chunks) < 2 {
		return []Item{it}
	}
	return stampParts(it, chunks)
}

// tieredChunks cuts a duration into 60-, 30- and 20-minute pieces, largest
// tier first, without looking at slot capacity.
func tieredChunks(total int) []int {
	var chunks []int
	remaining := total
	for i := 0; remaining > 0 && i < splitIterationCap; i++ {
		var size int
		switch {
		case remaining >= 60:
			size = 60
		case remaining >= 30:
			size = 30
		case remaining >= 20:
			size = 20
		default:
			size = remaining
			if size < 10 {
				size = 10
			}
			if size > remaining {
				size = remaining
			}
		}
		chunks = append(chunks, size)
		remaining -= size
	}
	return chunks
}

func stampParts(it Item, chunks []int) []Item {
	if len(chunks) < 2 {
		return []Item{it}
	}
	out := make([]Item, 0, len(chunks))
	for i, minutes := range chunks {
		out = append(out, Item{
			Kind:            it.Kind,
			ID:              fmt.Sprintf("%s_part_%d", it.ID, i+1),
			Title:           it.Title,
			Priority:        it.Priority,
			Minutes:         minutes,
			Ref:             it.Ref,
			OriginalMinutes: it.Minutes,
			Part:            i + 1,
			TotalParts:      len(chunks),
			Split:           true,
		})
	}
	return out
}
