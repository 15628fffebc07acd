package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"daypack/internal/engine"
	"daypack/internal/metrics"
	logx "daypack/pkg/logx"
)

type Config struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

type Server struct {
	cfg     Config
	planner *engine.Planner
	mx      *metrics.Metrics
	log     logx.Logger

	router chi.Router
	srv    *http.Server
}

func New(cfg Config, planner *engine.Planner, mx *metrics.Metrics, log logx.Logger) *Server {
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:8080"
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 10 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 30 * time.Second
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = 60 * time.Second
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 5 * time.Second
	}

	s := &Server{cfg: cfg, planner: planner, mx: mx, log: log}
	s.router = s.routes()
	s.srv = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return s
}

// Router exposes the handler tree, mainly for tests.
func (s *Server) Router() http.Handler { return s.router }

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if s.mx != nil {
		r.Method(http.MethodGet, "/metrics", s.mx.Handler())
	}

	r.Route("/v1/plan", func(r chi.Router) {
		r.Post("/today", s.handlePlanToday)
		r.Post("/preview", s.handlePlanPreview)
		r.Post("/items", s.handlePlanItems)
	})
	return r
}

func (s *Server) Start() {
	go func() {
		s.log.Info("http listening", logx.String("addr", s.cfg.Addr))
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("http server failed", logx.Err(err))
		}
	}()
}

func (s *Server) Stop(ctx context.Context) error {
	sctx, cancel := context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
	defer cancel()
	return s.srv.Shutdown(sctx)
}

type busyEntry struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

type planRequest struct {
	UserID string         `json:"user_id"`
	Busy   []busyEntry    `json:"busy"`
	Window *engine.Window `json:"window,omitempty"`
	Commit bool           `json:"commit"`
	Items  []engine.Item  `json:"items,omitempty"`
}

func (s *Server) handlePlanToday(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decode(w, r)
	if !ok {
		return
	}
	placed, err := s.planner.ScheduleToday(r.Context(), req.UserID, toBusy(req.Busy), req.Window)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"scheduled": placed})
}

func (s *Server) handlePlanPreview(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decode(w, r)
	if !ok {
		return
	}
	plan, err := s.planner.Preview(r.Context(), req.UserID, toBusy(req.Busy), req.Window, req.Commit)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

func (s *Server) handlePlanItems(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decode(w, r)
	if !ok {
		return
	}
	if len(req.Items) == 0 {
		writeError(w, http.StatusBadRequest, "items required")
		return
	}
	plan, err := s.planner.PlanItems(r.Context(), req.Items, toBusy(req.Busy), req.Window, req.Commit, req.UserID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request) (planRequest, bool) {
	var req planRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return planRequest{}, false
	}
	for _, b := range req.Busy {
		if !b.End.After(b.Start) {
			writeError(w, http.StatusBadRequest, "busy interval end must be after start")
			return planRequest{}, false
		}
	}
	return req, true
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	s.log.Warn("plan request failed",
		logx.String("path", r.URL.Path),
		logx.String("request_id", middleware.GetReqID(r.Context())),
		logx.Err(err))
	writeError(w, http.StatusUnprocessableEntity, err.Error())
}

func toBusy(in []busyEntry) []engine.Busy {
	if len(in) == 0 {
		return nil
	}
	out := make([]engine.Busy, 0, len(in))
	for _, b := range in {
		out = append(out, engine.Busy{Start: b.Start, End: b.End})
	}
	return out
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
