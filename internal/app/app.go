package app

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"daypack/internal/autoplan"
	"daypack/internal/config"
	"daypack/internal/engine"
	"daypack/internal/eventbus"
	"daypack/internal/httpapi"
	"daypack/internal/metrics"
	"daypack/internal/notify"
	"daypack/internal/store"
	logx "daypack/pkg/logx"
)

// App owns every long-lived component of the daemon. Construction wires;
// Start launches; Stop unwinds in reverse order.
type App struct {
	cfgMgr *config.Manager
	logSvc *logx.Service
	log    logx.Logger

	bus eventbus.Bus
	mx  *metrics.Metrics

	st       store.Store
	planner  *engine.Planner
	auto     *autoplan.Service
	notifier *notify.Service
	http     *httpapi.Server

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(cfgPath string) (*App, error) {
	mgr := config.NewManager(cfgPath)
	cfg, err := mgr.Load()
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", cfgPath, err)
	}

	logSvc, log := logx.New(loggingConfig(cfg.Logging))
	mgr.SetLogger(log.With(logx.String("comp", "config")))

	a := &App{
		cfgMgr: mgr,
		logSvc: logSvc,
		log:    log,
		bus:    eventbus.New(),
		mx:     metrics.New(),
	}

	st, err := store.Open(storageConfig(cfg.Storage), log.With(logx.String("comp", "store")))
	if err != nil {
		_ = logSvc.Close()
		return nil, fmt.Errorf("open store: %w", err)
	}
	a.st = st

	deps := engine.PlannerDeps{
		Bus:     a.bus,
		Metrics: a.mx,
		Log:     log.With(logx.String("comp", "planner")),
	}
	if st != nil {
		deps.Source = &storeSource{st: st, now: time.Now}
		deps.Recorder = engine.NewCompletionRecorder(
			&storeRecorder{st: st},
			cfg.Recorder.RatePerSec,
			log.With(logx.String("comp", "recorder")),
		)
	}
	win := cfg.Window.Normalized()
	a.planner = engine.NewPlanner(engine.Window{Start: win.Start, End: win.End}, deps)

	a.auto = autoplan.New(
		autoplanConfig(cfg.AutoPlan),
		func(ctx context.Context, userID string) error {
			_, err := a.planner.ScheduleToday(ctx, userID, nil, nil)
			return err
		},
		log.With(logx.String("comp", "autoplan")),
	)

	var sinks []notify.Sink
	if cfg.Notify.Telegram.Enabled {
		sink, err := notify.NewTelegramSink(cfg.Notify.Telegram.Token, cfg.Notify.Telegram.ChatID)
		if err != nil {
			a.closeStore()
			_ = logSvc.Close()
			return nil, fmt.Errorf("telegram sink: %w", err)
		}
		sinks = append(sinks, sink)
	}
	a.notifier = notify.New(a.bus, log.With(logx.String("comp", "notify")), sinks...)

	if cfg.HTTP.Enabled {
		hcfg, err := httpConfig(cfg.HTTP)
		if err != nil {
			a.closeStore()
			_ = logSvc.Close()
			return nil, err
		}
		a.http = httpapi.New(hcfg, a.planner, a.mx, log.With(logx.String("comp", "http")))
	}

	return a, nil
}

// Planner exposes the scheduling coordinator for embedding callers.
func (a *App) Planner() *engine.Planner { return a.planner }

func (a *App) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	a.notifier.Start(runCtx)
	if err := a.auto.Start(runCtx); err != nil {
		cancel()
		return err
	}
	if a.http != nil {
		a.http.Start()
	}

	// config hot-reload
	updates := a.cfgMgr.Subscribe(4)
	a.wg.Add(2)
	go func() {
		defer a.wg.Done()
		_ = a.cfgMgr.Watch(runCtx)
	}()
	go func() {
		defer a.wg.Done()
		a.applyLoop(runCtx, updates)
	}()

	a.log.Info("daypack started")
	return nil
}

func (a *App) Stop(ctx context.Context) {
	if a.cancel != nil {
		a.cancel()
	}
	if a.http != nil {
		if err := a.http.Stop(ctx); err != nil {
			a.log.Warn("http shutdown", logx.Err(err))
		}
	}
	a.auto.Stop()
	a.notifier.Stop()
	a.wg.Wait()
	a.closeStore()
	a.log.Info("daypack stopped")
	_ = a.logSvc.Close()
}

func (a *App) closeStore() {
	if a.st == nil {
		return
	}
	if err := a.st.Close(); err != nil {
		a.log.Warn("store close", logx.Err(err))
	}
	a.st = nil
}

// applyLoop reacts to config reloads. Only logging and the autoplan
// trigger are hot-swappable; storage, HTTP and notify changes need a
// restart and are logged as such.
func (a *App) applyLoop(ctx context.Context, updates chan *config.Config) {
	defer a.cfgMgr.Unsubscribe(updates)
	for {
		select {
		case <-ctx.Done():
			return
		case cfg, ok := <-updates:
			if !ok || cfg == nil {
				return
			}
			a.logSvc.Apply(loggingConfig(cfg.Logging))
			if err := a.auto.Apply(ctx, autoplanConfig(cfg.AutoPlan)); err != nil {
				a.log.Warn("autoplan config rejected", logx.Err(err))
			}
			a.bus.Publish(eventbus.Event{Type: eventbus.EventConfigApplied})
			a.log.Info("config applied",
				logx.String("log_level", cfg.Logging.Level),
				logx.Bool("autoplan", cfg.AutoPlan.Enabled))
		}
	}
}

func loggingConfig(c config.LoggingConfig) logx.Config {
	return logx.Config{
		Level:   c.Level,
		Console: c.Console,
		File: logx.FileConfig{
			Enabled: c.File.Enabled,
			Path:    c.File.Path,
		},
	}
}

func storageConfig(c config.StorageConfig) store.Config {
	busy, _ := config.ParseDurationOrDefault("storage.busy_timeout", c.BusyTimeout, 0)
	return store.Config{
		Driver:      c.Driver,
		Path:        c.Path,
		BusyTimeout: busy,
	}
}

func autoplanConfig(c config.AutoPlanConfig) autoplan.Config {
	schedule := strings.TrimSpace(c.Schedule)
	if schedule == "" {
		schedule = "0 7 * * *"
	}
	return autoplan.Config{
		Enabled:  c.Enabled,
		Timezone: c.Timezone,
		Schedule: schedule,
		Users:    c.Users,
	}
}

func httpConfig(c config.HTTPConfig) (httpapi.Config, error) {
	read, err := config.ParseDurationOrDefault("http.read_timeout", c.ReadTimeout, 10*time.Second)
	if err != nil {
		return httpapi.Config{}, err
	}
	write, err := config.ParseDurationOrDefault("http.write_timeout", c.WriteTimeout, 30*time.Second)
	if err != nil {
		return httpapi.Config{}, err
	}
	idle, err := config.ParseDurationOrDefault("http.idle_timeout", c.IdleTimeout, 60*time.Second)
	if err != nil {
		return httpapi.Config{}, err
	}
	return httpapi.Config{
		Addr:         c.Addr,
		ReadTimeout:  read,
		WriteTimeout: write,
		IdleTimeout:  idle,
	}, nil
}
