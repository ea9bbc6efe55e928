package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"NewsRelay/internal/domain"
)

// Admin is the subset of the admin use case exposed over HTTP.
type Admin interface {
	Kinds() []domain.Kind
	Trigger(ctx context.Context, kind domain.Kind) error
	InProgress(kind domain.Kind) bool
	ClearProcessed(ctx context.Context, kinds ...domain.Kind) (map[domain.Kind]int64, error)
	StatsFor(ctx context.Context, day time.Time) ([]domain.StatisticsCounter, error)
	Location() *time.Location
	StopAuto(ctx context.Context) error
	StartAuto(ctx context.Context) error
	AutoRunning() bool
}

// Pinger reports store health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server exposes the admin API.
type Server struct {
	admin Admin
	store Pinger
	log   zerolog.Logger
	now   func() time.Time

	mu      sync.Mutex
	baseCtx context.Context
}

type errorResponse struct {
	Error string `json:"error"`
}

// NewServer wires the admin use case; store may be nil.
func NewServer(admin Admin, store Pinger, log zerolog.Logger) *Server {
	return &Server{admin: admin, store: store, log: log, now: time.Now, baseCtx: context.Background()}
}

// Router builds the chi handler tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLog)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Get("/stats", s.handleStats)
	r.Post("/runs/{kind}", s.handleTrigger)
	r.Delete("/processed/{kind}", s.handleClear)
	r.Post("/schedule/stop", s.handleScheduleStop)
	r.Post("/schedule/start", s.handleScheduleStart)
	return r
}

// Run serves on addr until ctx is cancelled. Background runs started over HTTP inherit ctx.
func (s *Server) Run(ctx context.Context, addr string) error {
	s.mu.Lock()
	s.baseCtx = ctx
	s.mu.Unlock()

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Msg("admin api starting")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		s.log.Error().Err(err).Msg("admin api shutdown")
	}
	return nil
}

func (s *Server) runContext() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.baseCtx
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if s.store != nil {
		if err := s.store.Ping(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
			return
		}
	}

	running := map[domain.Kind]bool{}
	for _, k := range s.admin.Kinds() {
		running[k] = s.admin.InProgress(k)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"auto":    s.admin.AutoRunning(),
		"running": running,
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	day := s.now().In(s.admin.Location())
	if raw := strings.TrimSpace(r.URL.Query().Get("date")); raw != "" {
		parsed, err := time.ParseInLocation(time.DateOnly, raw, s.admin.Location())
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "date must be YYYY-MM-DD"})
			return
		}
		day = parsed
	}

	stats, err := s.admin.StatsFor(r.Context(), day)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	if stats == nil {
		stats = []domain.StatisticsCounter{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"date": domain.DayKey(day), "channels": stats})
}

func (s *Server) handleTrigger(w http.ResponseWriter, r *http.Request) {
	kind, ok := s.kindParam(w, r)
	if !ok {
		return
	}

	err := s.admin.Trigger(s.runContext(), kind)
	switch {
	case errors.Is(err, domain.ErrRunInProgress):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	case err != nil:
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
	default:
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "started", "kind": string(kind)})
	}
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	kind, ok := s.kindParam(w, r)
	if !ok {
		return
	}
	if r.URL.Query().Get("confirm") != "true" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "pass confirm=true to delete processed history"})
		return
	}

	deleted, err := s.admin.ClearProcessed(r.Context(), kind)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	s.log.Warn().Str("kind", string(kind)).Int64("deleted", deleted[kind]).Msg("processed history cleared over http")
	writeJSON(w, http.StatusOK, map[string]any{"kind": kind, "deleted": deleted[kind]})
}

func (s *Server) handleScheduleStop(w http.ResponseWriter, r *http.Request) {
	if err := s.admin.StopAuto(r.Context()); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"auto": s.admin.AutoRunning()})
}

func (s *Server) handleScheduleStart(w http.ResponseWriter, _ *http.Request) {
	if err := s.admin.StartAuto(s.runContext()); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"auto": s.admin.AutoRunning()})
}

func (s *Server) kindParam(w http.ResponseWriter, r *http.Request) (domain.Kind, bool) {
	kind, err := domain.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
		return "", false
	}
	for _, k := range s.admin.Kinds() {
		if k == kind {
			return kind, true
		}
	}
	writeJSON(w, http.StatusNotFound, errorResponse{Error: "kind " + string(kind) + " is not enabled"})
	return "", false
}

func (s *Server) requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Debug().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("dur", time.Since(start)).
			Msg("http request")
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
