package server

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/topogame/dice-dominion-sub000/internal/database"
	"github.com/topogame/dice-dominion-sub000/internal/game"
	"github.com/topogame/dice-dominion-sub000/internal/logger"
	"github.com/topogame/dice-dominion-sub000/internal/match"
	"github.com/topogame/dice-dominion-sub000/internal/protocol"
)

var (
	errMatchFull  = errors.New("match is full")
	errNotInMatch = errors.New("not seated in a match")
	errBadRequest = errors.New("bad request")
)

// Room owns one Match. All access to the match goes through the room mutex.
type Room struct {
	id    string
	hub   *Hub
	match *match.Match

	// Seated clients and the player id each one holds
	clients map[*Client]string

	turnTimer time.Duration
	timer     *time.Timer
	timerGen  int
	timerKey  string
	finished  bool

	logger zerolog.Logger
	mu     sync.Mutex
}

func newRoom(h *Hub, m *match.Match) *Room {
	return &Room{
		id:        m.ID(),
		hub:       h,
		match:     m,
		clients:   make(map[*Client]string),
		turnTimer: time.Duration(m.State().TurnTimerSeconds) * time.Second,
		finished:  m.IsOver(),
		logger:    logger.Component("Room").With().Str("match_id", m.ID()).Logger(),
	}
}

// join seats c. Without a token the next free seat is claimed; with one the
// client takes back the seat the token was issued for. The turn-order roll
// starts once every seat is claimed.
func (r *Room) join(c *Client, token, replyTo string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	db := r.hub.server.db
	var seat *database.Seat
	if token != "" {
		s, err := db.GetSeatByToken(token)
		if err != nil {
			return err
		}
		if s.MatchID != r.id {
			return database.ErrSeatNotFound
		}
		seat = s
	} else {
		if r.match.Phase().Kind != game.PhaseSetup {
			return errMatchFull
		}
		s, err := r.claimSeat()
		if err != nil {
			return err
		}
		seat = s
	}

	r.clients[c] = seat.PlayerID
	c.setSeat(r, seat.PlayerID)
	r.match.SetConnected(seat.PlayerID, true)

	reply, err := protocol.NewMessage(protocol.TypeJoinedMatch, protocol.JoinedMatchPayload{
		MatchID:  r.id,
		PlayerID: seat.PlayerID,
		Token:    seat.Token,
	})
	if err != nil {
		return err
	}
	reply.ID = replyTo
	c.Send(reply)

	r.logger.Info().
		Str("player_id", seat.PlayerID).
		Bool("reconnect", token != "").
		Msg("Player joined")

	if token == "" {
		if err := r.startIfFull(); err != nil {
			r.logger.Error().Err(err).Msg("Failed to start turn order")
		}
	}
	r.commit()
	return nil
}

func (r *Room) claimSeat() (*database.Seat, error) {
	for _, id := range slices.Sorted(maps.Keys(r.match.State().Players)) {
		seat, err := r.hub.server.db.ClaimSeat(r.id, id)
		if errors.Is(err, database.ErrSeatTaken) {
			continue
		}
		return seat, err
	}
	return nil, errMatchFull
}

func (r *Room) startIfFull() error {
	db := r.hub.server.db
	n, err := db.CountSeats(r.id)
	if err != nil {
		return err
	}
	if n < len(r.match.State().Players) || r.match.Phase().Kind != game.PhaseSetup {
		return nil
	}
	if err := r.match.BeginTurnOrder(); err != nil {
		return err
	}
	return db.UpdateMatchStatus(r.id, database.MatchStatusPlaying)
}

// leave unseats c. The player is marked disconnected once no client holds
// the seat.
func (r *Room) leave(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	playerID, ok := r.clients[c]
	if !ok {
		return
	}
	delete(r.clients, c)
	for _, id := range r.clients {
		if id == playerID {
			return
		}
	}
	r.match.SetConnected(playerID, false)
	r.logger.Info().Str("player_id", playerID).Msg("Player disconnected")
	r.broadcastState()
}

// handle applies an intent on behalf of the seat c holds.
func (r *Room) handle(c *Client, in match.Intent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	playerID, ok := r.clients[c]
	if !ok {
		return errNotInMatch
	}
	in.PlayerID = playerID

	out, err := r.match.Apply(in)
	if err != nil {
		return err
	}
	r.announce(in, out)
	r.commit()
	return nil
}

// announce broadcasts the event messages for an applied intent.
func (r *Room) announce(in match.Intent, out match.Outcome) {
	switch {
	case in.Kind == match.IntentRollTurnOrder:
		r.broadcast(protocol.TypeDiceRolled, protocol.DiceRolledPayload{
			PlayerID: in.PlayerID,
			Purpose:  "turn_order",
			Roll:     out.Roll,
		})

	case in.Kind == match.IntentRollDice:
		r.broadcast(protocol.TypeDiceRolled, protocol.DiceRolledPayload{
			PlayerID: in.PlayerID,
			Purpose:  "placement",
			Roll:     out.Roll,
		})

	case out.Placement != nil && out.Placement.Chest != nil:
		r.broadcast(protocol.TypeChestCollected, protocol.ChestCollectedPayload{
			PlayerID:  in.PlayerID,
			BonusType: out.Placement.Chest.BonusType,
			BonusName: out.Placement.Chest.BonusName,
		})

	case out.Combat != nil:
		r.broadcast(protocol.TypeCombatResult, protocol.CombatResultPayload{
			PlayerID: in.PlayerID,
			Attacker: out.Combat.Attacker,
			Target:   out.Combat.Target,
			Rolls:    out.Combat.Rolls,
			Outcome:  out.Combat.Outcome,
		})
		if id := out.Combat.Outcome.EliminatedPlayer; id != "" {
			r.broadcast(protocol.TypePlayerEliminated, protocol.PlayerEliminatedPayload{
				PlayerID:     id,
				EliminatedBy: in.PlayerID,
			})
		}
	}
}

// commit persists the match, appends its new history and broadcasts the
// state. The caller holds r.mu.
func (r *Room) commit() {
	srv := r.hub.server
	state := r.match.State()

	snap, err := r.match.Snapshot()
	if err != nil {
		r.logger.Error().Err(err).Msg("Failed to encode snapshot")
	} else {
		if err := srv.db.SaveSnapshot(r.id, snap, state.CurrentTurn, string(r.match.Phase().Kind)); err != nil {
			r.logger.Error().Err(err).Msg("Failed to save snapshot")
		}
		if srv.cache != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			if err := srv.cache.SetSnapshot(ctx, r.id, snap, state.CurrentTurn); err != nil {
				r.logger.Warn().Err(err).Msg("Failed to cache snapshot")
			}
			cancel()
		}
	}

	for _, ev := range r.match.TakeEvents() {
		if err := srv.db.AddHistoryEvent(r.id, ev.Turn, ev.PlayerID, string(ev.Type), ev.Message); err != nil {
			r.logger.Error().Err(err).Str("event", string(ev.Type)).Msg("Failed to record history")
		}
	}

	r.broadcastState()

	if !r.match.IsOver() {
		r.resetTimer()
		return
	}
	r.stopTimerLocked()
	if r.finished {
		return
	}
	r.finished = true
	if err := srv.db.FinishMatch(r.id, state.Winner); err != nil {
		r.logger.Error().Err(err).Msg("Failed to record winner")
	}
	if srv.cache != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := srv.cache.Delete(ctx, r.id); err != nil {
			r.logger.Warn().Err(err).Msg("Failed to drop cached snapshot")
		}
		cancel()
	}
	r.broadcast(protocol.TypeGameOver, protocol.GameOverPayload{Winner: state.Winner})
}

// broadcastState sends each seated client the full state. The acting player
// also gets the cells it may place on.
func (r *Room) broadcastState() {
	data, err := r.match.State().Marshal()
	if err != nil {
		r.logger.Error().Err(err).Msg("Failed to encode state")
		return
	}
	phase := r.match.Phase()
	current := r.match.CurrentPlayerID()

	var placements []game.Position
	if phase.Kind == game.PhasePlacing {
		placements = r.match.ValidPlacements(current)
	}

	for c, playerID := range r.clients {
		payload := protocol.GameStatePayload{
			State:           data,
			Phase:           phase,
			CurrentPlayerID: current,
		}
		if playerID == current {
			payload.ValidPlacements = placements
		}
		c.SendPayload(protocol.TypeGameState, payload)
	}
}

func (r *Room) broadcast(msgType protocol.MessageType, payload any) {
	msg, err := protocol.NewMessage(msgType, payload)
	if err != nil {
		r.logger.Error().Err(err).Str("type", string(msgType)).Msg("Failed to build broadcast")
		return
	}
	for c := range r.clients {
		c.Send(msg)
	}
}

// resetTimer arms the turn timer when the acting player changes. The caller
// holds r.mu.
func (r *Room) resetTimer() {
	if r.turnTimer <= 0 || r.match.IsOver() {
		return
	}
	current := r.match.CurrentPlayerID()
	if current == "" {
		return
	}
	key := fmt.Sprintf("%d/%s/%t", r.match.State().CurrentTurn, current,
		r.match.Phase().Kind == game.PhaseTurnOrderRoll)
	if r.timer != nil && key == r.timerKey {
		return
	}

	r.stopTimerLocked()
	r.timerGen++
	gen := r.timerGen
	r.timerKey = key
	r.timer = time.AfterFunc(r.turnTimer, func() { r.onTimeout(gen) })
}

func (r *Room) stopTimer() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopTimerLocked()
}

func (r *Room) stopTimerLocked() {
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
	r.timerGen++
}

func (r *Room) onTimeout(gen int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if gen != r.timerGen {
		return
	}
	r.timer = nil

	playerID := r.match.CurrentPlayerID()
	if err := r.match.Timeout(); err != nil {
		r.logger.Warn().Err(err).Str("player_id", playerID).Msg("Turn timeout rejected")
		return
	}
	r.logger.Info().Str("player_id", playerID).Msg("Turn timer expired")
	r.commit()
}
