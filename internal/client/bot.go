package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/topogame/dice-dominion-sub000/internal/game"
	"github.com/topogame/dice-dominion-sub000/internal/logger"
	"github.com/topogame/dice-dominion-sub000/internal/match"
	"github.com/topogame/dice-dominion-sub000/internal/protocol"
)

// Bot plays one seat over a NetworkClient. It mirrors each game_state into a
// local Match and answers with the move match.Decide picks.
type Bot struct {
	net    *NetworkClient
	rng    game.RNG
	cfg    *Config
	logger zerolog.Logger

	mu       sync.Mutex
	matchID  string
	playerID string
	turn     int
	lastKey  string

	done   chan string
	failed chan error
}

// NewBot wires a bot to net. cfg may be nil; when set, seat tokens are saved
// to it and reused on the next join.
func NewBot(net *NetworkClient, rng game.RNG, cfg *Config) *Bot {
	b := &Bot{
		net:    net,
		rng:    rng,
		cfg:    cfg,
		logger: logger.Component("Bot"),
		done:   make(chan string, 1),
		failed: make(chan error, 1),
	}
	net.OnMessage = b.handle
	net.OnDisconnect = func(err error) {
		if err == nil {
			err = errors.New("disconnected")
		}
		b.fail(err)
	}
	return b
}

// Create asks the server for a new match. The bot joins it when it is
// created.
func (b *Bot) Create(playerCount int, mapType game.MapType, turnTimerSeconds int) error {
	return b.net.SendPayload(protocol.TypeCreateMatch, protocol.CreateMatchPayload{
		PlayerCount:      playerCount,
		MapType:          mapType,
		TurnTimerSeconds: turnTimerSeconds,
	})
}

// Join claims a seat in matchID, reusing a saved token when there is one.
func (b *Bot) Join(matchID string) error {
	payload := protocol.JoinMatchPayload{MatchID: matchID}
	if b.cfg != nil {
		if seat, ok := b.cfg.Seats[matchID]; ok {
			payload.Token = seat.Token
		}
	}
	return b.net.SendPayload(protocol.TypeJoinMatch, payload)
}

// Done delivers the winner when the match ends.
func (b *Bot) Done() <-chan string { return b.done }

// Failed delivers a fatal lobby or connection error.
func (b *Bot) Failed() <-chan error { return b.failed }

// Seat returns the match and player id the bot holds.
func (b *Bot) Seat() (matchID, playerID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.matchID, b.playerID
}

// Turn returns the last round number the bot has seen.
func (b *Bot) Turn() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.turn
}

func (b *Bot) handle(msg *protocol.Message) {
	switch msg.Type {
	case protocol.TypeMatchCreated:
		var p protocol.MatchCreatedPayload
		if err := msg.ParsePayload(&p); err != nil {
			b.fail(err)
			return
		}
		b.logger.Info().Str("match_id", p.MatchID).Msg("Match created")
		if err := b.Join(p.MatchID); err != nil {
			b.fail(err)
		}

	case protocol.TypeJoinedMatch:
		var p protocol.JoinedMatchPayload
		if err := msg.ParsePayload(&p); err != nil {
			b.fail(err)
			return
		}
		b.mu.Lock()
		b.matchID, b.playerID = p.MatchID, p.PlayerID
		b.mu.Unlock()
		b.logger.Info().Str("match_id", p.MatchID).Str("player_id", p.PlayerID).Msg("Seated")
		b.saveSeat(p)

	case protocol.TypeGameState:
		var p protocol.GameStatePayload
		if err := msg.ParsePayload(&p); err != nil {
			b.logger.Warn().Err(err).Msg("Bad game_state")
			return
		}
		b.act(p)

	case protocol.TypeGameOver:
		var p protocol.GameOverPayload
		if err := msg.ParsePayload(&p); err != nil {
			b.fail(err)
			return
		}
		select {
		case b.done <- p.Winner:
		default:
		}

	case protocol.TypeError:
		var p protocol.ErrorPayload
		if err := msg.ParsePayload(&p); err != nil {
			return
		}
		switch p.Code {
		case protocol.ErrCodeMatchNotFound, protocol.ErrCodeMatchFull, protocol.ErrCodeNotInMatch,
			protocol.ErrCodeBadRequest, protocol.ErrCodeInternalError:
			b.fail(fmt.Errorf("%s: %s", p.Code, p.Message))
		default:
			b.logger.Debug().Str("code", string(p.Code)).Str("message", p.Message).Msg("Move rejected")
		}
	}
}

// act sends the bot's next move when the state says it must act.
func (b *Bot) act(p protocol.GameStatePayload) {
	state, err := game.UnmarshalGameState(p.State)
	if err != nil {
		b.logger.Warn().Err(err).Msg("Bad state")
		return
	}

	phase, err := json.Marshal(p.Phase)
	if err != nil {
		return
	}

	b.mu.Lock()
	b.turn = state.CurrentTurn
	playerID := b.playerID
	key := fmt.Sprintf("%d/%s/%s", state.CurrentTurn, p.CurrentPlayerID, phase)
	if playerID == "" || p.CurrentPlayerID != playerID || key == b.lastKey {
		b.mu.Unlock()
		return
	}
	b.lastKey = key
	b.mu.Unlock()

	m := match.Resume(state, p.Phase, b.rng, zerolog.Nop())
	in, err := match.Decide(m, b.rng)
	if err != nil || in.PlayerID != playerID {
		return
	}

	msgType, payload := intentMessage(in)
	if err := b.net.SendPayload(msgType, payload); err != nil {
		b.logger.Warn().Err(err).Msg("Failed to send move")
	}
}

func (b *Bot) saveSeat(p protocol.JoinedMatchPayload) {
	if b.cfg == nil {
		return
	}
	b.cfg.Seats[p.MatchID] = SavedSeat{PlayerID: p.PlayerID, Token: p.Token}
	if err := b.cfg.Save(); err != nil {
		b.logger.Warn().Err(err).Msg("Failed to save seat token")
	}
}

func (b *Bot) fail(err error) {
	select {
	case b.failed <- err:
	default:
	}
}

// intentMessage converts a match intent to its wire message.
func intentMessage(in match.Intent) (protocol.MessageType, any) {
	cell := protocol.CellPayload{X: in.X, Y: in.Y}
	switch in.Kind {
	case match.IntentRollTurnOrder:
		return protocol.TypeRollTurnOrder, nil
	case match.IntentSelectOption:
		return protocol.TypeSelectOption, protocol.SelectOptionPayload{Option: in.Option}
	case match.IntentRollDice:
		return protocol.TypeRollDice, nil
	case match.IntentPlaceAt:
		return protocol.TypePlaceAt, cell
	case match.IntentSelectAttacker:
		return protocol.TypeSelectAttacker, cell
	case match.IntentSelectTarget:
		return protocol.TypeSelectTarget, cell
	case match.IntentCancel:
		return protocol.TypeCancel, nil
	}
	return protocol.TypeEndTurn, nil
}
