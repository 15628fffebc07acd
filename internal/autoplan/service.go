package autoplan

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	logx "daypack/pkg/logx"
)

type Config struct {
	Enabled  bool
	Timezone string // IANA TZ, e.g. "Asia/Jakarta"
	Schedule string // see ParseSchedule
	Users    []string
}

// RunFunc plans the current day for one user.
type RunFunc func(ctx context.Context, userID string) error

const runTimeout = 2 * time.Minute

type Service struct {
	log logx.Logger
	run RunFunc

	parser cron.Parser

	mu  sync.Mutex
	cfg Config
	c   *cron.Cron
	loc *time.Location
}

func New(cfg Config, run RunFunc, log logx.Logger) *Service {
	return &Service{
		cfg:    cfg,
		run:    run,
		log:    log,
		parser: cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
	}
}

func (s *Service) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.Enabled
}

func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.c != nil {
		return nil
	}
	if !s.cfg.Enabled {
		s.log.Debug("autoplan disabled")
		return nil
	}
	return s.startLocked(ctx)
}

func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

// Apply swaps the config and restarts the cron entry when the schedule,
// timezone or enablement changed. User list changes take effect on the
// next firing without a restart.
func (s *Service) Apply(ctx context.Context, cfg Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	old := s.cfg
	s.cfg = cfg

	sameTrigger := old.Enabled == cfg.Enabled &&
		strings.TrimSpace(old.Timezone) == strings.TrimSpace(cfg.Timezone) &&
		strings.TrimSpace(old.Schedule) == strings.TrimSpace(cfg.Schedule)
	if sameTrigger {
		return nil
	}

	s.stopLocked()
	if !cfg.Enabled {
		return nil
	}
	return s.startLocked(ctx)
}

func (s *Service) startLocked(ctx context.Context) error {
	spec, err := ParseSchedule(s.cfg.Schedule)
	if err != nil {
		return fmt.Errorf("autoplan schedule: %w", err)
	}

	loc := s.loadLocationLocked()
	s.loc = loc
	c := cron.New(cron.WithParser(s.parser), cron.WithLocation(loc))

	expr := spec.Cron
	if spec.Kind == SpecInterval {
		expr = fmt.Sprintf("@every %s", spec.Every.String())
	}
	if _, err := c.AddFunc(expr, func() { s.fire(ctx) }); err != nil {
		return fmt.Errorf("autoplan schedule %q: %w", expr, err)
	}

	c.Start()
	s.c = c
	s.log.Info("autoplan started",
		logx.String("schedule", expr),
		logx.String("tz", loc.String()),
		logx.Int("users", len(s.cfg.Users)))
	return nil
}

func (s *Service) stopLocked() {
	if s.c == nil {
		return
	}
	<-s.c.Stop().Done()
	s.c = nil
	s.log.Info("autoplan stopped")
}

func (s *Service) fire(ctx context.Context) {
	s.mu.Lock()
	users := append([]string(nil), s.cfg.Users...)
	s.mu.Unlock()

	if len(users) == 0 {
		users = []string{""}
	}
	for _, u := range users {
		runCtx, cancel := context.WithTimeout(ctx, runTimeout)
		err := s.run(runCtx, u)
		cancel()
		if err != nil {
			s.log.Warn("autoplan run failed", logx.String("user", u), logx.Err(err))
			continue
		}
		s.log.Info("autoplan run ok", logx.String("user", u))
	}
}

func (s *Service) loadLocationLocked() *time.Location {
	tz := strings.TrimSpace(s.cfg.Timezone)
	if tz == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		s.log.Warn("invalid timezone, falling back to Local", logx.String("tz", tz), logx.Err(err))
		return time.Local
	}
	return loc
}
