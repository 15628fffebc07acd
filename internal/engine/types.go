package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// MinSlotMinutes is the smallest free slot (and smallest split chunk) the
// engine will work with. Gaps shorter than this are dropped, not surfaced.
const MinSlotMinutes = 5

// Kind says which collaborator an item came from.
type Kind string

const (
	KindRecurring Kind = "recurring"
	KindObjective Kind = "objective"
)

// Status is the lifecycle of an objective.
type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// Priority orders items for packing: critical > high > medium > low.
// The numeric values exist only so descending sorts work; the wire form
// is always the string name.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityMedium
	PriorityHigh
	PriorityCritical
)

func (p Priority) String() string {
	switch p {
	case PriorityCritical:
		return "critical"
	case PriorityHigh:
		return "high"
	case PriorityMedium:
		return "medium"
	default:
		return "low"
	}
}

// ParsePriority maps a priority name to its rank. Unknown or empty strings
// fall back to medium rather than failing: a commitment with a bad priority
// label should still get scheduled.
func ParsePriority(s string) Priority {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "critical":
		return PriorityCritical
	case "high":
		return PriorityHigh
	case "low":
		return PriorityLow
	default:
		return PriorityMedium
	}
}

func (p Priority) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

func (p *Priority) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	*p = ParsePriority(s)
	return nil
}

// Item is one unit of schedulable work. Split chunks carry lineage fields so
// the recorder can collapse them back onto the original commitment.
type Item struct {
	Kind     Kind     `json:"kind"`
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Priority Priority `json:"priority"`

	// Minutes is the estimated duration. Always > 0 for schedulable items.
	Minutes int `json:"estimated_minutes"`

	// Ref is an opaque reference to the underlying commitment. The engine
	// never reads or mutates it; it is carried through splitting untouched.
	Ref any `json:"-"`

	// Split lineage. Zero on unsplit items.
	OriginalMinutes int  `json:"original_minutes,omitempty"`
	Part            int  `json:"part,omitempty"`
	TotalParts      int  `json:"total_parts,omitempty"`
	Split           bool `json:"split,omitempty"`
}

// Busy is an occupied interval on the scheduling day. Inputs may be unsorted
// and may overlap each other; overlap just extends occupied time.
type Busy struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Slot is a free interval on the scheduling day.
type Slot struct {
	Start   time.Time `json:"start"`
	End     time.Time `json:"end"`
	Minutes int       `json:"minutes"`
}

// Placement is one scheduled block: an item (possibly a split chunk) pinned
// to a concrete time window. End-Start always equals Item.Minutes.
type Placement struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Item  Item      `json:"item"`
}

// Plan is the full result of a scheduling call.
type Plan struct {
	Scheduled   []Placement `json:"scheduled"`
	Unscheduled []Item      `json:"unscheduled"`
	Slots       []Slot      `json:"available_slots"`
}

// Window is a working-hours window in "HH:MM" wall-clock form.
// The zero value is not valid; use DefaultWindow or a configured window.
type Window struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// DefaultWindow is the fallback working-hours window when a caller passes
// none and no window is configured.
func DefaultWindow() Window { return Window{Start: "09:00", End: "17:00"} }

// Resolve anchors the window on the calendar day of the given time,
// in that time's location.
func (w Window) Resolve(day time.Time) (start, end time.Time, err error) {
	sh, sm, err := parseHHMM(w.Start)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("window start: %w", err)
	}
	eh, em, err := parseHHMM(w.End)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("window end: %w", err)
	}
	y, m, d := day.Date()
	loc := day.Location()
	start = time.Date(y, m, d, sh, sm, 0, 0, loc)
	end = time.Date(y, m, d, eh, em, 0, 0, loc)
	if !end.After(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("window end %q is not after start %q", w.End, w.Start)
	}
	return start, end, nil
}

// Commitment is an unmet recurring commitment as reported by the Source.
type Commitment struct {
	ID       string
	Title    string
	Priority Priority
	Minutes  int
}

// Objective is an open time-bound objective as reported by the Source.
type Objective struct {
	ID       string
	Title    string
	Priority Priority
	Minutes  int
	Status   Status
}

// Source supplies today's outstanding work. Both calls may hit a database
// or network service; errors are fatal to the scheduling call.
type Source interface {
	UnmetRecurring(ctx context.Context, userID string) ([]Commitment, error)
	OpenObjectives(ctx context.Context, userID string) ([]Objective, error)
}

// Recorder applies the scheduling decision to the underlying records.
// Both operations must be idempotent per id.
type Recorder interface {
	MarkRecurringDone(ctx context.Context, id, userID string, day time.Time) error
	SetObjectiveStatus(ctx context.Context, id, userID string, status Status) error
}
