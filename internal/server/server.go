// Package server hosts Dice Dominion matches over WebSocket.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/coder/websocket"
	"github.com/rs/zerolog"

	"github.com/topogame/dice-dominion-sub000/internal/cache"
	"github.com/topogame/dice-dominion-sub000/internal/config"
	"github.com/topogame/dice-dominion-sub000/internal/database"
	"github.com/topogame/dice-dominion-sub000/internal/logger"
)

// Version is reported to clients in the welcome message.
const Version = "0.3.0"

// Server is the main game server.
type Server struct {
	cfg    config.Config
	db     *database.DB
	cache  *cache.Client
	hub    *Hub
	server *http.Server
	logger zerolog.Logger
}

// New opens the database and, when configured, the Redis snapshot cache.
func New(cfg config.Config) (*Server, error) {
	db, err := database.Open(database.Options{
		Path:         cfg.DBPath,
		BusyTimeout:  cfg.DBBusyTimeout,
		MaxOpenConns: cfg.DBMaxConns,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Server{
		cfg:    cfg,
		db:     db,
		logger: logger.Component("Server"),
	}

	if cfg.RedisURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		c, err := cache.NewClient(ctx, cfg.RedisURL, cfg.SnapshotTTL)
		if err != nil {
			db.Close()
			return nil, err
		}
		s.cache = c
	}

	s.hub = NewHub(s)
	return s, nil
}

// Hub returns the server's hub. Callers serving Handler themselves must run
// it.
func (s *Server) Hub() *Hub { return s.hub }

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/ws", s.handleWebSocket)

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("/api/matches", s.handleListMatches)
	mux.HandleFunc("/api/matches/{id}/history", s.handleMatchHistory)

	return mux
}

// Start runs the hub and serves HTTP until Stop is called.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:    s.cfg.Addr(),
		Handler: s.Handler(),
	}

	schema, err := s.db.SchemaVersion()
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	s.logger.Info().
		Str("addr", s.cfg.Addr()).
		Str("db", s.cfg.DBPath).
		Int("schema", schema).
		Bool("redis", s.cache != nil).
		Dur("turn_timer", s.cfg.TurnTimer()).
		Msg("Dice Dominion server starting")

	go s.hub.Run()

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		if err := s.server.Shutdown(ctx); err != nil {
			return err
		}
	}
	s.hub.Stop()
	if s.cache != nil {
		s.cache.Close()
	}
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// handleWebSocket accepts a connection and serves it until it closes.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		s.logger.Warn().Err(err).Msg("WebSocket accept failed")
		return
	}

	client := NewClient(s.hub, conn)
	s.hub.Register(client)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go client.writePump(ctx)
	client.readPump(ctx)
}

// handleListMatches returns matches that have not finished.
func (s *Server) handleListMatches(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	matches, err := s.db.ListActiveMatches()
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to list matches")
		http.Error(w, "Failed to list matches", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(matches)
}

// matchHistory is the body served by handleMatchHistory.
type matchHistory struct {
	MatchID string                   `json:"matchId"`
	Turn    int                      `json:"turn"`
	Events  []*database.HistoryEvent `json:"events"`
}

// handleMatchHistory returns a match's event log. The optional since query
// parameter is the id of the last event the caller already has.
func (s *Server) handleMatchHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	matchID := r.PathValue("id")
	if _, err := s.db.GetMatch(matchID); err != nil {
		if errors.Is(err, database.ErrMatchNotFound) {
			http.Error(w, "Match not found", http.StatusNotFound)
			return
		}
		s.logger.Error().Err(err).Str("match", matchID).Msg("Failed to load match")
		http.Error(w, "Failed to load match", http.StatusInternalServerError)
		return
	}

	var (
		events []*database.HistoryEvent
		err    error
	)
	if raw := r.URL.Query().Get("since"); raw != "" {
		since, perr := strconv.ParseInt(raw, 10, 64)
		if perr != nil || since < 0 {
			http.Error(w, "Invalid since", http.StatusBadRequest)
			return
		}
		events, err = s.db.GetMatchHistorySince(matchID, since)
	} else {
		events, err = s.db.GetMatchHistory(matchID)
	}
	if err != nil {
		s.logger.Error().Err(err).Str("match", matchID).Msg("Failed to load history")
		http.Error(w, "Failed to load history", http.StatusInternalServerError)
		return
	}

	resp := matchHistory{MatchID: matchID, Events: events}
	if resp.Events == nil {
		resp.Events = []*database.HistoryEvent{}
	}
	if s.cache != nil {
		turn, err := s.cache.GetTurn(r.Context(), matchID)
		if err != nil {
			s.logger.Warn().Err(err).Str("match", matchID).Msg("Cached turn unavailable")
		}
		resp.Turn = turn
	}
	if resp.Turn == 0 && len(events) > 0 {
		resp.Turn = events[len(events)-1].Turn
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
