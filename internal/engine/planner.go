package engine

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"daypack/internal/eventbus"
	"daypack/internal/metrics"
	logx "daypack/pkg/logx"
)

// PlanEvent is the payload of eventbus.EventPlanComputed.
type PlanEvent struct {
	UserID string
	Mode   string
	Plan   Plan
}

// PlannerDeps are the planner's collaborators. Source is required; the rest
// may be zero/nil, which disables the corresponding side-effect.
type PlannerDeps struct {
	Source   Source
	Recorder *CompletionRecorder
	Bus      eventbus.Bus
	Metrics  *metrics.Metrics
	Log      logx.Logger
}

// Planner is the scheduling coordinator. One Planner serves many users;
// a scheduling call holds no state beyond its own stack, so concurrent
// calls for different users are safe.
type Planner struct {
	src Source
	rec *CompletionRecorder
	bus eventbus.Bus
	mx  *metrics.Metrics
	log logx.Logger

	win Window

	// now is a seam for tests; production uses time.Now.
	now func() time.Time
}

// NewPlanner builds a planner whose default working hours are win.
// The window always arrives here explicitly (from config or caller);
// the engine never reads ambient configuration.
func NewPlanner(win Window, deps PlannerDeps) *Planner {
	if win.Start == "" || win.End == "" {
		win = DefaultWindow()
	}
	log := deps.Log
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Planner{
		src: deps.Source,
		rec: deps.Recorder,
		bus: deps.Bus,
		mx:  deps.Metrics,
		log: log,
		win: win,
		now: time.Now,
	}
}

// ScheduleToday fetches the user's outstanding work, packs it into today's
// free slots, and records completions on the underlying commitments.
func (p *Planner) ScheduleToday(ctx context.Context, userID string, busy []Busy, win *Window) ([]Placement, error) {
	items, err := Outstanding(ctx, p.src, userID)
	if err != nil {
		return nil, err
	}
	plan, err := p.run(ctx, "today", userID, items, busy, win, true)
	if err != nil {
		return nil, err
	}
	return plan.Scheduled, nil
}

// Preview computes the same schedule as ScheduleToday but only records
// completions when commit is set.
func (p *Planner) Preview(ctx context.Context, userID string, busy []Busy, win *Window, commit bool) (Plan, error) {
	items, err := Outstanding(ctx, p.src, userID)
	if err != nil {
		return Plan{}, err
	}
	return p.run(ctx, "preview", userID, items, busy, win, commit)
}

// PlanItems schedules an externally supplied item list, e.g. work that has
// not been persisted yet. Completions are recorded only when both commit
// and a userID are given; non-persisted ids are skipped by the recorder
// either way.
func (p *Planner) PlanItems(ctx context.Context, items []Item, busy []Busy, win *Window, commit bool, userID string) (Plan, error) {
	prepared := make([]Item, 0, len(items))
	for i, it := range items {
		if it.Minutes <= 0 {
			return Plan{}, fmt.Errorf("item %d (%q): estimated minutes must be positive", i, it.Title)
		}
		if it.ID == "" {
			// Client-temporary id; intentionally not a UUID so the
			// recorder's persisted-id guard skips it.
			it.ID = "tmp_" + uuid.NewString()
		}
		if it.Kind == "" {
			it.Kind = KindObjective
		}
		prepared = append(prepared, it)
	}
	sort.SliceStable(prepared, func(i, j int) bool { return prepared[i].Priority > prepared[j].Priority })

	return p.run(ctx, "items", userID, prepared, busy, win, commit && userID != "")
}

func (p *Planner) run(ctx context.Context, mode, userID string, items []Item, busy []Busy, win *Window, commit bool) (Plan, error) {
	started := p.now()
	day := started
	w := p.win
	if win != nil {
		w = *win
	}

	slots, err := FindSlots(day, busy, w)
	if err != nil {
		return Plan{}, err
	}

	placed := Pack(items, slots)
	plan := Plan{
		Scheduled:   placed,
		Unscheduled: uncovered(items, placed),
		Slots:       slots,
	}

	chunks := 0
	for _, pl := range placed {
		if pl.Item.Split {
			chunks++
		}
	}

	runID := uuid.NewString()
	log := p.log.With(
		logx.String("run_id", runID),
		logx.String("mode", mode),
		logx.String("user_id", userID),
	)

	if commit && p.rec != nil {
		recorded, failed := p.rec.Record(ctx, userID, day, placed)
		p.mx.ObserveRecorder(recorded, failed)
		if failed > 0 {
			log.Warn("some completions were not recorded",
				logx.Int("recorded", recorded), logx.Int("failed", failed))
		}
	}

	elapsed := time.Since(started)
	p.mx.ObserveRun(mode, len(plan.Scheduled), len(plan.Unscheduled), chunks, elapsed.Seconds())
	if p.bus != nil {
		p.bus.Publish(eventbus.Event{
			Type: eventbus.EventPlanComputed,
			Data: PlanEvent{UserID: userID, Mode: mode, Plan: plan},
		})
	}

	log.Info("plan computed",
		logx.Int("items", len(items)),
		logx.Int("scheduled", len(plan.Scheduled)),
		logx.Int("unscheduled", len(plan.Unscheduled)),
		logx.Int("free_slots", len(slots)),
		logx.Duration("took", elapsed),
	)
	return plan, nil
}

// uncovered returns the input items that do not appear in the placements,
// neither as themselves nor as any split chunk. Every input id lands in
// exactly one of scheduled or unscheduled.
func uncovered(items []Item, placed []Placement) []Item {
	covered := map[string]bool{}
	for _, p := range placed {
		covered[OriginalID(p.Item.ID)] = true
	}
	out := make([]Item, 0)
	for _, it := range items {
		if !covered[it.ID] {
			out = append(out, it)
		}
	}
	return out
}
