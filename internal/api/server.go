// Package api serves a read-only JSON dashboard over the practice history.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/satprep/satprep/internal/leaderboard"
	"github.com/satprep/satprep/internal/session"
	"github.com/satprep/satprep/internal/store"
	"github.com/satprep/satprep/internal/weakness"
)

// Ranker reports a user's weakest topics.
type Ranker interface {
	Weaknesses(ctx context.Context, userID string) ([]weakness.TopicStat, error)
}

// SlotReader reads the resumable session slot.
type SlotReader interface {
	Load() (*session.Session, error)
}

// DateLister returns recent activity dates.
type DateLister interface {
	Dates() ([]string, error)
}

// Deps are the data sources behind the API. Board, Slot and Activity
// may be nil; their endpoints then answer 503 or omit the data.
type Deps struct {
	UserID   string // default user when a request has no ?user=
	History  store.HistoryRepo
	Streaks  store.StreakRepo
	Ranker   Ranker
	Board    *leaderboard.Leaderboard
	Slot     SlotReader
	Activity DateLister
	Logger   *zap.Logger
	Now      func() time.Time
}

// Server is the dashboard HTTP API.
type Server struct {
	deps   Deps
	log    *zap.Logger
	router *mux.Router
}

// New builds the router.
func New(deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	s := &Server{deps: deps, log: deps.Logger, router: mux.NewRouter()}

	s.router.HandleFunc("/healthz", s.health).Methods(http.MethodGet)

	v1 := s.router.PathPrefix("/v1").Subrouter()
	v1.Use(s.logRequests)
	v1.HandleFunc("/history", s.history).Methods(http.MethodGet)
	v1.HandleFunc("/weaknesses", s.weaknesses).Methods(http.MethodGet)
	v1.HandleFunc("/streak", s.streak).Methods(http.MethodGet)
	v1.HandleFunc("/stats", s.stats).Methods(http.MethodGet)
	v1.HandleFunc("/leaderboard/{board}", s.leaderboard).Methods(http.MethodGet)
	v1.HandleFunc("/session/current", s.currentSession).Methods(http.MethodGet)

	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("dashboard listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve %s: %w", addr, err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("took", time.Since(start)),
		)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
