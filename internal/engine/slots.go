package engine

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"time"
)

var reHHMM = regexp.MustCompile(`^\s*(\d{1,2}):(\d{2})\s*$`)

func parseHHMM(s string) (hour, minute int, err error) {
	m := reHHMM.FindStringSubmatch(s)
	if m == nil {
		return 0, 0, fmt.Errorf("invalid HH:MM value %q", s)
	}
	hour, _ = strconv.Atoi(m[1])
	minute, _ = strconv.Atoi(m[2])
	if hour > 23 {
		return 0, 0, fmt.Errorf("invalid hour in %q", s)
	}
	if minute > 59 {
		return 0, 0, fmt.Errorf("invalid minute in %q", s)
	}
	return hour, minute, nil
}

// FindSlots computes the free intervals of the given day: the working-hours
// window minus the busy intervals, as a sorted, non-overlapping slot list.
// Gaps shorter than MinSlotMinutes are dropped.
//
// Busy intervals may arrive unsorted and may overlap each other; the sweep
// absorbs overlap by advancing the cursor to max(cursor, busy.End) instead
// of pre-merging.
func FindSlots(day time.Time, busy []Busy, win Window) ([]Slot, error) {
	workStart, workEnd, err := win.Resolve(day)
	if err != nil {
		return nil, err
	}

	// Keep only well-formed intervals that touch the working window.
	relevant := make([]Busy, 0, len(busy))
	for _, b := range busy {
		if !b.End.After(b.Start) {
			continue
		}
		if b.End.After(workStart) && b.Start.Before(workEnd) {
			relevant = append(relevant, b)
		}
	}
	sort.Slice(relevant, func(i, j int) bool { return relevant[i].Start.Before(relevant[j].Start) })

	var slots []Slot
	cursor := workStart
	for _, b := range relevant {
		if cursor.Before(b.Start) {
			slots = appendSlot(slots, cursor, minTime(b.Start, workEnd))
		}
		if b.End.After(cursor) {
			cursor = b.End
		}
	}
	if cursor.Before(workEnd) {
		slots = appendSlot(slots, cursor, workEnd)
	}
	return slots, nil
}

func appendSlot(slots []Slot, start, end time.Time) []Slot {
	minutes := int(end.Sub(start) / time.Minute)
	if minutes < MinSlotMinutes {
		return slots
	}
	return append(slots, Slot{Start: start, End: end, Minutes: minutes})
}

func minTime(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
