package server

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/topogame/dice-dominion-sub000/internal/database"
	"github.com/topogame/dice-dominion-sub000/internal/dice"
	"github.com/topogame/dice-dominion-sub000/internal/game"
	"github.com/topogame/dice-dominion-sub000/internal/logger"
	"github.com/topogame/dice-dominion-sub000/internal/match"
	"github.com/topogame/dice-dominion-sub000/internal/protocol"
)

// Hub tracks connected clients and the rooms they play in.
type Hub struct {
	server *Server

	// Registered clients
	clients map[*Client]struct{}

	// Live rooms by match ID
	rooms map[string]*Room

	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	stopOnce   sync.Once

	// newRNG supplies dice for new and restored matches.
	newRNG func() (game.RNG, uint64, error)

	logger zerolog.Logger
	mu     sync.RWMutex
}

// NewHub creates a new Hub.
func NewHub(server *Server) *Hub {
	return &Hub{
		server:     server,
		clients:    make(map[*Client]struct{}),
		rooms:      make(map[string]*Room),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		newRNG:     randomRNG,
		logger:     logger.Component("Hub"),
	}
}

func randomRNG() (game.RNG, uint64, error) {
	rng, seed, err := dice.NewRandom()
	return rng, seed, err
}

// Run processes client registration until Stop is called.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = struct{}{}
			h.mu.Unlock()
			h.sendWelcome(client)

		case client := <-h.unregister:
			h.handleDisconnect(client)

		case <-h.done:
			return
		}
	}
}

// Stop ends Run and cancels every room timer.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		close(h.done)
		h.mu.RLock()
		defer h.mu.RUnlock()
		for _, r := range h.rooms {
			r.stopTimer()
		}
	})
}

// Register adds a client to the hub.
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
	}
}

// Unregister removes a client from the hub.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

func (h *Hub) sendWelcome(client *Client) {
	client.SendPayload(protocol.TypeWelcome, protocol.WelcomePayload{
		ClientID: client.ID,
		Version:  Version,
	})
}

func (h *Hub) handleDisconnect(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, client)
	h.mu.Unlock()

	if room, _ := client.Seat(); room != nil {
		room.leave(client)
	}
	client.close()
	h.logger.Debug().Str("client_id", client.ID).Msg("Client disconnected")
}

// createRoom builds a new match, records it and opens its room.
func (h *Hub) createRoom(p protocol.CreateMatchPayload) (*Room, error) {
	seconds := p.TurnTimerSeconds
	if seconds <= 0 {
		seconds = int(h.server.cfg.TurnTimer() / time.Second)
	}
	mapType := p.MapType
	if mapType == "" {
		mapType = game.MapFlat
	}

	state, err := game.CreateInitialGameState(p.PlayerCount, mapType, game.WithTurnTimer(seconds))
	if err != nil {
		return nil, err
	}
	if _, err := h.server.db.CreateMatch(state.GameID, string(state.MapType), p.PlayerCount); err != nil {
		return nil, fmt.Errorf("create match: %w", err)
	}

	rng, seed, err := h.newRNG()
	if err != nil {
		return nil, err
	}
	room := newRoom(h, match.New(state, rng, logger.Get()))
	h.mu.Lock()
	h.rooms[room.id] = room
	h.mu.Unlock()

	room.mu.Lock()
	room.commit()
	room.mu.Unlock()

	h.logger.Info().
		Str("match_id", room.id).
		Int("players", p.PlayerCount).
		Str("map", string(mapType)).
		Int("turn_timer", seconds).
		Uint64("seed", seed).
		Msg("Match created")
	return room, nil
}

// room returns a live room, restoring it from the cache or database when
// the server has restarted since the match was created.
func (h *Hub) room(matchID string) (*Room, error) {
	h.mu.RLock()
	room, ok := h.rooms[matchID]
	h.mu.RUnlock()
	if ok {
		return room, nil
	}

	data, err := h.loadSnapshot(matchID)
	if err != nil {
		return nil, err
	}
	rng, _, err := h.newRNG()
	if err != nil {
		return nil, err
	}
	m, err := match.Restore(data, rng, logger.Get())
	if err != nil {
		return nil, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if room, ok := h.rooms[matchID]; ok {
		return room, nil
	}
	room = newRoom(h, m)
	h.rooms[matchID] = room

	room.mu.Lock()
	room.resetTimer()
	room.mu.Unlock()

	h.logger.Info().Str("match_id", matchID).Int("turn", m.State().CurrentTurn).Msg("Match restored")
	return room, nil
}

func (h *Hub) loadSnapshot(matchID string) ([]byte, error) {
	if c := h.server.cache; c != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		data, err := c.GetSnapshot(ctx, matchID)
		cancel()
		if err != nil {
			h.logger.Warn().Err(err).Str("match_id", matchID).Msg("Snapshot cache read failed")
		} else if data != nil {
			return data, nil
		}
	}

	data, err := h.server.db.LoadSnapshot(matchID)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, database.ErrMatchNotFound
	}
	return data, nil
}
