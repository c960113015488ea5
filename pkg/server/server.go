// Package server exposes the solve engine over HTTP: a JSON API for solving
// puzzles, health and stats endpoints, and a websocket feed of solve events.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/gridlock-solve/gridlock/pkg/cache"
	"github.com/gridlock-solve/gridlock/pkg/common/logging"
	"github.com/gridlock-solve/gridlock/pkg/core/board"
	"github.com/gridlock-solve/gridlock/pkg/gridlock"
)

// History records completed solves somewhere durable. Implementations must be
// safe for concurrent use. A nil History disables recording.
type History interface {
	RecordSolve(ctx context.Context, puzzle, solution string, solved bool, workers int, duration time.Duration) error
}

// Server is the HTTP solve service.
type Server struct {
	engine  *gridlock.Engine
	cache   *cache.SolutionCache
	history History
	log     *logging.Logger
	hub     *eventHub
	httpSrv *http.Server
	started time.Time
}

// New creates a Server around engine. cache and history may be nil.
func New(listen string, engine *gridlock.Engine, solutionCache *cache.SolutionCache, history History, log *logging.Logger) *Server {
	if log == nil {
		log = logging.Default()
	}
	s := &Server{
		engine:  engine,
		cache:   solutionCache,
		history: history,
		log:     log.WithComponent("server"),
		hub:     newEventHub(),
		started: time.Now(),
	}

	router := mux.NewRouter()
	router.HandleFunc("/api/solve", s.handleSolve).Methods(http.MethodPost)
	router.HandleFunc("/api/health", s.handleHealth).Methods(http.MethodGet)
	router.HandleFunc("/api/stats", s.handleStats).Methods(http.MethodGet)
	router.HandleFunc("/api/events", s.handleEvents).Methods(http.MethodGet)

	s.httpSrv = &http.Server{
		Addr:              listen,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler returns the service's HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.httpSrv.Handler
}

// ListenAndServe blocks serving the API until Shutdown is called or the
// listener fails.
func (s *Server) ListenAndServe() error {
	s.log.Info("listening", logging.Fields{"addr": s.httpSrv.Addr})
	err := s.httpSrv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown gracefully stops the server and disconnects event subscribers.
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.closeAll()
	return s.httpSrv.Shutdown(ctx)
}

// solveRequest is the body of POST /api/solve.
type solveRequest struct {
	Puzzle string `json:"puzzle"`
}

// solveResponse is the body returned by POST /api/solve.
type solveResponse struct {
	Puzzle     string `json:"puzzle"`
	Solution   string `json:"solution,omitempty"`
	Solved     bool   `json:"solved"`
	Workers    int    `json:"workers"`
	DurationMS int64  `json:"duration_ms"`
	FromCache  bool   `json:"from_cache"`
}

func (s *Server) handleSolve(w http.ResponseWriter, r *http.Request) {
	var req solveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Puzzle == "" {
		writeError(w, http.StatusBadRequest, "puzzle is required")
		return
	}

	b, err := board.Parse(req.Puzzle)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !b.Valid() {
		writeError(w, http.StatusBadRequest, "puzzle has conflicting clues")
		return
	}

	// The puzzle is valid; announce it to subscribers before the search runs.
	s.hub.publish(Event{Type: EventAccepted, Time: time.Now(), Puzzle: b.String()})

	res := s.engine.Solve(b)

	resp := solveResponse{
		Puzzle:     res.Puzzle.String(),
		Solved:     res.Solved,
		Workers:    res.Workers,
		DurationMS: res.Duration.Milliseconds(),
		FromCache:  res.FromCache,
	}
	if res.Solved {
		resp.Solution = res.Solution.String()
	}

	s.publishResult(res)
	s.record(r.Context(), res)

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(s.started).String(),
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats := map[string]interface{}{
		"engine": s.engine.Stats(),
	}
	if s.cache != nil {
		stats["cache"] = s.cache.Stats()
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) publishResult(res gridlock.Result) {
	ev := Event{
		Time:       time.Now(),
		Puzzle:     res.Puzzle.String(),
		Workers:    res.Workers,
		DurationMS: res.Duration.Milliseconds(),
		FromCache:  res.FromCache,
	}
	if res.Solved {
		ev.Type = EventSolved
		ev.Solution = res.Solution.String()
	} else {
		ev.Type = EventUnsolvable
	}
	s.hub.publish(ev)
}

func (s *Server) record(ctx context.Context, res gridlock.Result) {
	if s.history == nil {
		return
	}
	solution := ""
	if res.Solved {
		solution = res.Solution.String()
	}
	// Recording is best-effort; a history failure must not fail the solve.
	if err := s.history.RecordSolve(ctx, res.Puzzle.String(), solution, res.Solved, res.Workers, res.Duration); err != nil {
		s.log.Warn("history record failed", logging.Fields{"error": err.Error()})
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
