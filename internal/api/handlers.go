package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/satprep/satprep/internal/leaderboard"
	"github.com/satprep/satprep/internal/session"
	"github.com/satprep/satprep/internal/store"
	"github.com/satprep/satprep/internal/streak"
)

const (
	defaultLimit = 20
	maxLimit     = 200
)

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// history handles GET /v1/history?limit=N&before=SEQ
func (s *Server) history(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryLimit(w, r)
	if !ok {
		return
	}
	opts := store.QueryOpts{Limit: limit}
	if b := r.URL.Query().Get("before"); b != "" {
		before, err := strconv.ParseInt(b, 10, 64)
		if err != nil || before <= 0 {
			respondWithError(w, http.StatusBadRequest, "before must be a positive sequence number")
			return
		}
		opts.Before = before
	}

	recs, err := s.deps.History.RecentSessions(r.Context(), s.user(r), opts)
	if err != nil {
		s.internalError(w, "load history", err)
		return
	}
	if recs == nil {
		recs = []store.SessionRecord{}
	}
	respondWithJSON(w, http.StatusOK, map[string]any{"sessions": recs})
}

type topicJSON struct {
	Topic    string  `json:"topic"`
	Correct  int     `json:"correct"`
	Total    int     `json:"total"`
	Accuracy float64 `json:"accuracy"`
}

// weaknesses handles GET /v1/weaknesses
func (s *Server) weaknesses(w http.ResponseWriter, r *http.Request) {
	if s.deps.Ranker == nil {
		respondWithError(w, http.StatusServiceUnavailable, "weakness analysis is not configured")
		return
	}
	stats, err := s.deps.Ranker.Weaknesses(r.Context(), s.user(r))
	if err != nil {
		s.internalError(w, "rank weaknesses", err)
		return
	}
	out := make([]topicJSON, len(stats))
	for i, st := range stats {
		out[i] = topicJSON{Topic: st.Topic, Correct: st.Correct, Total: st.Total, Accuracy: st.Acc}
	}
	respondWithJSON(w, http.StatusOK, map[string]any{"topics": out})
}

// streak handles GET /v1/streak
func (s *Server) streak(w http.ResponseWriter, r *http.Request) {
	rec, err := s.deps.Streaks.Streak(r.Context(), s.user(r))
	if err != nil {
		s.internalError(w, "load streak", err)
		return
	}
	resp := struct {
		streak.Record
		Live        int      `json:"live"`
		RecentDates []string `json:"recent_dates,omitempty"`
	}{Record: rec, Live: rec.Live(s.deps.Now())}

	if s.deps.Activity != nil {
		dates, err := s.deps.Activity.Dates()
		if err != nil {
			s.log.Warn("failed to read activity dates", zap.Error(err))
		}
		resp.RecentDates = dates
	}
	respondWithJSON(w, http.StatusOK, resp)
}

// stats handles GET /v1/stats
func (s *Server) stats(w http.ResponseWriter, r *http.Request) {
	st, err := s.deps.History.Stats(r.Context(), s.user(r))
	if err != nil {
		s.internalError(w, "load stats", err)
		return
	}
	respondWithJSON(w, http.StatusOK, st)
}

// leaderboard handles GET /v1/leaderboard/{board}?limit=N
func (s *Server) leaderboard(w http.ResponseWriter, r *http.Request) {
	if s.deps.Board == nil {
		respondWithError(w, http.StatusServiceUnavailable, "leaderboard is not enabled")
		return
	}
	board, err := leaderboard.ParseBoard(mux.Vars(r)["board"])
	if err != nil {
		respondWithError(w, http.StatusNotFound, err.Error())
		return
	}
	limit, ok := queryLimit(w, r)
	if !ok {
		return
	}

	top, err := s.deps.Board.Top(r.Context(), board, int64(limit))
	if err != nil {
		s.internalError(w, "load leaderboard", err)
		return
	}
	if top == nil {
		top = []leaderboard.Entry{}
	}
	resp := map[string]any{"board": board, "entries": top}

	me, found, err := s.deps.Board.Rank(r.Context(), board, s.user(r))
	if err != nil {
		s.log.Warn("failed to rank user", zap.Error(err))
	} else if found {
		resp["you"] = me
	}
	respondWithJSON(w, http.StatusOK, resp)
}

// currentSession handles GET /v1/session/current
func (s *Server) currentSession(w http.ResponseWriter, r *http.Request) {
	if s.deps.Slot == nil {
		respondWithError(w, http.StatusServiceUnavailable, "session slot is not configured")
		return
	}
	sess, err := s.deps.Slot.Load()
	if err != nil {
		s.internalError(w, "load session slot", err)
		return
	}
	if sess == nil {
		respondWithError(w, http.StatusNotFound, "no session in progress")
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]any{
		"session": sess,
		"summary": session.Summarize(sess, s.deps.Now()),
	})
}

func (s *Server) user(r *http.Request) string {
	if u := r.URL.Query().Get("user"); u != "" {
		return u
	}
	return s.deps.UserID
}

func (s *Server) internalError(w http.ResponseWriter, what string, err error) {
	s.log.Error(what, zap.Error(err))
	respondWithError(w, http.StatusInternalServerError, what+" failed")
}

func queryLimit(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return defaultLimit, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		respondWithError(w, http.StatusBadRequest, "limit must be a positive integer")
		return 0, false
	}
	return min(n, maxLimit), true
}

func respondWithJSON(w http.ResponseWriter, code int, payload any) {
	response, err := json.Marshal(payload)
	if err != nil {
		code = http.StatusInternalServerError
		response, _ = json.Marshal(map[string]string{"error": "encode response failed"})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}
