// Package observer serves a read-only spectator surface over live matches
// and stored history: JSON endpoints plus a WebSocket feed per match.
package observer

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"github.com/vovakirdan/roguedex/internal/multiplayer"
	"github.com/vovakirdan/roguedex/internal/storage"
)

// History is the stored match history the observer can show.
// *storage.Store is a History.
type History interface {
	RecentMatches(limit int) ([]storage.MatchRecord, error)
	PlayerHistory(player string, limit int) ([]storage.MatchRecord, error)
}

// Server handles observer HTTP and WebSocket requests.
type Server struct {
	coord     *multiplayer.Coordinator
	history   History
	log       *log.Logger
	upgrader  websocket.Upgrader
	startTime time.Time
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// NewServer creates an observer over coord. history may be nil, in which
// case the history endpoint reports 503.
func NewServer(coord *multiplayer.Coordinator, history History, opts ...Option) *Server {
	s := &Server{
		coord:   coord,
		history: history,
		log:     log.New(io.Discard),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		startTime: time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Routes sets up the HTTP routes.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/matches", s.handleListMatches)
		r.Get("/matches/{id}", s.handleGetMatch)
		r.Get("/history", s.handleHistory)
	})

	r.Get("/ws/matches/{id}", s.handleWatch)

	return r
}

// ListenAndServe serves Routes on addr until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("observer listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Debug("cannot encode response", "err", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, errorResponse{Error: msg})
}

type healthResponse struct {
	Status  string `json:"status"`
	Matches int    `json:"matches"`
	Uptime  string `json:"uptime"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, healthResponse{
		Status:  "ok",
		Matches: s.coord.MatchCount(),
		Uptime:  time.Since(s.startTime).Round(time.Second).String(),
	})
}

func (s *Server) handleListMatches(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.coord.Matches())
}

func (s *Server) handleGetMatch(w http.ResponseWriter, r *http.Request) {
	id := multiplayer.MatchID(chi.URLParam(r, "id"))
	m, ok := s.coord.Get(id)
	if !ok {
		s.writeError(w, http.StatusNotFound, "match not found")
		return
	}
	s.writeJSON(w, http.StatusOK, m.Summary())
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		s.writeError(w, http.StatusServiceUnavailable, "history is not configured")
		return
	}

	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 500 {
			s.writeError(w, http.StatusBadRequest, "limit must be between 1 and 500")
			return
		}
		limit = n
	}

	var (
		records []storage.MatchRecord
		err     error
	)
	if player := r.URL.Query().Get("player"); player != "" {
		records, err = s.history.PlayerHistory(player, limit)
	} else {
		records, err = s.history.RecentMatches(limit)
	}
	if err != nil {
		s.log.Error("cannot load history", "err", err)
		s.writeError(w, http.StatusInternalServerError, "cannot load history")
		return
	}
	if records == nil {
		records = []storage.MatchRecord{}
	}
	s.writeJSON(w, http.StatusOK, records)
}
