package notify

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"daypack/internal/engine"
	"daypack/internal/eventbus"
	logx "daypack/pkg/logx"
)

func samplePlanEvent() engine.PlanEvent {
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	return engine.PlanEvent{
		UserID: "u1",
		Mode:   "today",
		Plan: engine.Plan{
			Scheduled: []engine.Placement{
				{
					Start: start,
					End:   start.Add(30 * time.Minute),
					Item:  engine.Item{ID: "a", Title: "standup", Minutes: 30},
				},
				{
					Start: start.Add(time.Hour),
					End:   start.Add(90 * time.Minute),
					Item:  engine.Item{ID: "b_part_1", Title: "report", Minutes: 30, Split: true, Part: 1, TotalParts: 3},
				},
			},
			Unscheduled: []engine.Item{{ID: "c", Title: "cleanup", Minutes: 45}},
		},
	}
}

func TestFormatPlanSummary(t *testing.T) {
	t.Parallel()

	got := FormatPlanSummary(samplePlanEvent())

	for _, want := range []string{
		"plan (today) for u1: 2 scheduled, 1 unscheduled",
		"09:00-09:30  standup (30m)",
		"10:00-10:30  report [1/3] (30m)",
		"did not fit:",
		"- cleanup (45m)",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("summary missing %q:\n%s", want, got)
		}
	}
}

func TestFormatPlanSummaryFallsBackToID(t *testing.T) {
	t.Parallel()

	ev := engine.PlanEvent{Plan: engine.Plan{Unscheduled: []engine.Item{{ID: "x1", Minutes: 10}}}}
	got := FormatPlanSummary(ev)
	if !strings.Contains(got, "x1 (10m)") {
		t.Fatalf("untitled item should show its id:\n%s", got)
	}
}

type captureSink struct {
	mu   sync.Mutex
	msgs []string
}

func (c *captureSink) Send(ctx context.Context, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, text)
	return nil
}

func (c *captureSink) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.msgs)
}

func TestServiceForwardsPlanEvents(t *testing.T) {
	t.Parallel()

	bus := eventbus.New()
	sink := &captureSink{}
	svc := New(bus, logx.Nop(), sink)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.Start(ctx)
	defer svc.Stop()

	bus.Publish(eventbus.Event{Type: eventbus.EventPlanComputed, Data: samplePlanEvent()})
	bus.Publish(eventbus.Event{Type: eventbus.EventConfigApplied}) // ignored

	deadline := time.After(2 * time.Second)
	for sink.count() == 0 {
		select {
		case <-deadline:
			t.Fatal("no message delivered")
		case <-time.After(10 * time.Millisecond):
		}
	}
	if got := sink.count(); got != 1 {
		t.Fatalf("messages = %d, want 1", got)
	}
}
