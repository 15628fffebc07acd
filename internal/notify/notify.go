package notify

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"daypack/internal/engine"
	"daypack/internal/eventbus"
	logx "daypack/pkg/logx"
)

// Sink delivers one rendered message. Implementations must be safe for
// concurrent use.
type Sink interface {
	Send(ctx context.Context, text string) error
}

const sendTimeout = 10 * time.Second

// Service forwards computed plans from the bus to the configured sinks.
type Service struct {
	bus   eventbus.Bus
	sinks []Sink
	log   logx.Logger

	mu    sync.Mutex
	unsub func()
	done  chan struct{}
}

func New(bus eventbus.Bus, log logx.Logger, sinks ...Sink) *Service {
	return &Service{bus: bus, sinks: sinks, log: log}
}

func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unsub != nil || len(s.sinks) == 0 || s.bus == nil {
		return
	}
	ch, unsub := s.bus.Subscribe(16)
	s.unsub = unsub
	s.done = make(chan struct{})
	go s.loop(ctx, ch, s.done)
}

func (s *Service) Stop() {
	s.mu.Lock()
	unsub, done := s.unsub, s.done
	s.unsub, s.done = nil, nil
	s.mu.Unlock()
	if unsub == nil {
		return
	}
	unsub()
	<-done
}

func (s *Service) loop(ctx context.Context, ch <-chan eventbus.Event, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			if ev.Type != eventbus.EventPlanComputed {
				continue
			}
			pe, ok := ev.Data.(engine.PlanEvent)
			if !ok {
				continue
			}
			s.deliver(ctx, FormatPlanSummary(pe))
		}
	}
}

func (s *Service) deliver(ctx context.Context, text string) {
	for _, sink := range s.sinks {
		sctx, cancel := context.WithTimeout(ctx, sendTimeout)
		err := sink.Send(sctx, text)
		cancel()
		if err != nil {
			s.log.Warn("notification send failed", logx.Err(err))
		}
	}
}

// FormatPlanSummary renders a plan as a short plain-text message.
func FormatPlanSummary(ev engine.PlanEvent) string {
	var b strings.Builder

	head := "plan"
	if ev.Mode != "" {
		head = "plan (" + ev.Mode + ")"
	}
	if ev.UserID != "" {
		fmt.Fprintf(&b, "%s for %s: ", head, ev.UserID)
	} else {
		fmt.Fprintf(&b, "%s: ", head)
	}
	fmt.Fprintf(&b, "%d scheduled, %d unscheduled\n",
		len(ev.Plan.Scheduled), len(ev.Plan.Unscheduled))

	for _, p := range ev.Plan.Scheduled {
		fmt.Fprintf(&b, "%s-%s  %s (%dm)\n",
			p.Start.Format("15:04"), p.End.Format("15:04"), itemLabel(p.Item), p.Item.Minutes)
	}
	if len(ev.Plan.Unscheduled) > 0 {
		b.WriteString("did not fit:\n")
		for _, it := range ev.Plan.Unscheduled {
			fmt.Fprintf(&b, "- %s (%dm)\n", itemLabel(it), it.Minutes)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func itemLabel(it engine.Item) string {
	title := strings.TrimSpace(it.Title)
	if title == "" {
		title = it.ID
	}
	if it.Split && it.TotalParts > 1 {
		return fmt.Sprintf("%s [%d/%d]", title, it.Part, it.TotalParts)
	}
	return title
}
