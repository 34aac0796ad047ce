package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/fwojciec/wikidigest"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"
)

// DefaultSchedule runs at the top of every hour.
const DefaultSchedule = "0 * * * *"

// Run executes the serve command. It blocks until interrupted.
func (c *ServeCmd) Run(deps *Dependencies) error {
	if len(deps.Config.PageIDs) == 0 {
		fmt.Fprintln(deps.Stderr, "error: no pages configured. Set PAGE_IDS or use --pages.")
		return wikidigest.Errorf(wikidigest.EINVALID, "no pages configured")
	}
	schedule := firstNonEmpty(c.Schedule, deps.Config.Schedule, DefaultSchedule)

	ctx, stop := signal.NotifyContext(deps.Ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := &Server{
		Ctx:     ctx,
		Runner:  deps.Runner,
		Runs:    deps.Runs,
		Metrics: deps.Metrics,
		PageIDs: deps.Config.PageIDs,
		Logger:  deps.Logger,
	}

	scheduler := cron.New(
		cron.WithParser(cron.NewParser(cron.Minute|cron.Hour|cron.Dom|cron.Month|cron.Dow)),
		cron.WithChain(cron.Recover(cronLogger{deps.Logger})),
		cron.WithLogger(cronLogger{deps.Logger}),
	)
	if _, err := scheduler.AddFunc(schedule, func() {
		_, err := srv.RunOnce(ctx, false)
		switch {
		case wikidigest.ErrorCode(err) == wikidigest.ECONFLICT:
			deps.Logger.Info("scheduled run skipped", "reason", wikidigest.ErrorMessage(err))
		case err != nil:
			deps.Logger.Error("scheduled run", "err", err)
		}
	}); err != nil {
		fmt.Fprintf(deps.Stderr, "error: invalid schedule %q: %v\n", schedule, err)
		return wikidigest.Errorf(wikidigest.EINVALID, "invalid schedule %q", schedule)
	}

	httpServer := &http.Server{
		Addr:              c.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		deps.Logger.Info("listening", "addr", c.Addr, "schedule", schedule, "pages", len(srv.PageIDs))
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		scheduler.Start()
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		err := httpServer.Shutdown(shutdownCtx)
		select {
		case <-scheduler.Stop().Done():
		case <-shutdownCtx.Done():
		}
		srv.Wait()
		return err
	})
	return g.Wait()
}

// Server exposes run history and metrics over HTTP and serializes runs so
// that a scheduled run and a manual trigger never overlap.
type Server struct {
	// Ctx bounds runs started from HTTP requests.
	Ctx     context.Context
	Runner  Runner
	Runs    wikidigest.RunService
	Metrics http.Handler
	PageIDs []string
	Logger  *slog.Logger

	mu      sync.Mutex
	running bool
	wg      sync.WaitGroup
}

// RunOnce processes the configured pages unless a run is already in
// progress, in which case it returns ECONFLICT.
func (s *Server) RunOnce(ctx context.Context, force bool) (*wikidigest.RunSummary, error) {
	if !s.acquire() {
		return nil, wikidigest.Errorf(wikidigest.ECONFLICT, "a run is already in progress")
	}
	defer s.release()
	return s.run(ctx, force)
}

func (s *Server) run(ctx context.Context, force bool) (*wikidigest.RunSummary, error) {
	summary, err := s.Runner.Run(ctx, s.PageIDs, force)
	if summary != nil {
		s.Logger.Info("run finished",
			"pages", summary.PagesProcessed,
			"changed", summary.PagesWithChanges,
			"successful", summary.PagesSuccessful,
			"duration", summary.FinishedAt.Sub(summary.StartedAt),
		)
	}
	return summary, err
}

func (s *Server) acquire() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return false
	}
	s.running = true
	return true
}

func (s *Server) release() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

// Wait blocks until runs started from HTTP requests have finished.
func (s *Server) Wait() {
	s.wg.Wait()
}

// Handler returns the HTTP routes of the server.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	if s.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.Metrics)
	}
	r.Route("/runs", func(r chi.Router) {
		r.Get("/", s.handleListRuns)
		r.Post("/", s.handleTriggerRun)
		r.Get("/{id}", s.handleGetRun)
	})
	return r
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, wikidigest.Errorf(wikidigest.EINVALID, "invalid limit %q", v))
			return
		}
		limit = n
	}
	runs, err := s.Runs.FindRuns(r.Context(), wikidigest.RunFilter{Limit: limit})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.Runs.FindRunByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// handleTriggerRun starts a run in the background and answers at once.
func (s *Server) handleTriggerRun(w http.ResponseWriter, r *http.Request) {
	force := r.URL.Query().Get("force") == "true"
	if !s.acquire() {
		writeError(w, wikidigest.Errorf(wikidigest.ECONFLICT, "a run is already in progress"))
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.release()
		if _, err := s.run(s.Ctx, force); err != nil {
			s.Logger.Error("triggered run", "err", err)
		}
	}()

	writeJSON(w, http.StatusAccepted, map[string]any{"status": "started", "pages": len(s.PageIDs), "force": force})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch wikidigest.ErrorCode(err) {
	case wikidigest.EINVALID:
		status = http.StatusBadRequest
	case wikidigest.ENOTFOUND:
		status = http.StatusNotFound
	case wikidigest.ECONFLICT:
		status = http.StatusConflict
	case wikidigest.EUNAVAILABLE:
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]string{"error": wikidigest.ErrorMessage(err)})
}

// cronLogger routes scheduler logs to slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "err", err)...)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
