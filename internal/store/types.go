package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"daypack/internal/engine"
)

var (
	ErrDisabled = errors.New("storage disabled")
	ErrNotFound = errors.New("record not found")
)

// DayKey is the canonical per-day key for completion marks.
const DayKey = "2006-01-02"

// Config configures storage.
//
// Driver values:
//   - "file": dependency-free file backend (snapshot + journal)
//   - "sqlite": SQLite database file (optional build tag)
//
// If Driver is empty or "none", storage is disabled.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// Recurring is a commitment with a recurrence rule, tracked met/unmet per day.
//
// Days is a comma-separated list of weekday abbreviations ("mon,wed,fri");
// empty means every day. Anything richer than weekday selection belongs to
// the upstream calendar, not here.
type Recurring struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	Title     string          `json:"title"`
	Priority  engine.Priority `json:"priority"`
	Minutes   int             `json:"minutes"`
	Days      string          `json:"days,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

var weekdayAbbrev = map[time.Weekday]string{
	time.Monday:    "mon",
	time.Tuesday:   "tue",
	time.Wednesday: "wed",
	time.Thursday:  "thu",
	time.Friday:    "fri",
	time.Saturday:  "sat",
	time.Sunday:    "sun",
}

// FiresOn reports whether the recurrence rule selects the given day.
func (r Recurring) FiresOn(day time.Time) bool {
	days := strings.TrimSpace(r.Days)
	if days == "" {
		return true
	}
	want := weekdayAbbrev[day.Weekday()]
	for _, d := range strings.Split(days, ",") {
		if strings.ToLower(strings.TrimSpace(d)) == want {
			return true
		}
	}
	return false
}

// Objective is a non-recurring unit of work tracked by status.
type Objective struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	Title     string          `json:"title"`
	Priority  engine.Priority `json:"priority"`
	Minutes   int             `json:"minutes"`
	Status    engine.Status   `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
}

// Store is the persistence API behind the engine's collaborators.
//
// MarkRecurringDone and SetObjectiveStatus are idempotent: repeating a call
// leaves the same final state. SetObjectiveStatus never regresses a
// completed objective.
type Store interface {
	PutRecurring(ctx context.Context, r Recurring) error
	PutObjective(ctx context.Context, o Objective) error

	UnmetRecurring(ctx context.Context, userID string, day time.Time) ([]Recurring, error)
	OpenObjectives(ctx context.Context, userID string) ([]Objective, error)

	MarkRecurringDone(ctx context.Context, id, userID string, day time.Time) error
	SetObjectiveStatus(ctx context.Context, id, userID string, status engine.Status) error

	Close() error
}
