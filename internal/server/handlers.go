package server

import (
	"errors"
	"fmt"

	"github.com/topogame/dice-dominion-sub000/internal/database"
	"github.com/topogame/dice-dominion-sub000/internal/game"
	"github.com/topogame/dice-dominion-sub000/internal/match"
	"github.com/topogame/dice-dominion-sub000/internal/protocol"
)

// Handle routes a message to the appropriate handler. Failures are answered
// with an error message carrying the request id.
func (h *Hub) Handle(client *Client, msg *protocol.Message) {
	var err error

	switch msg.Type {
	case protocol.TypeCreateMatch:
		err = h.handleCreateMatch(client, msg)
	case protocol.TypeJoinMatch:
		err = h.handleJoinMatch(client, msg)
	case protocol.TypePing:
		reply, _ := protocol.NewMessage(protocol.TypePong, nil)
		reply.ID = msg.ID
		client.Send(reply)
	case protocol.TypeRollTurnOrder:
		err = h.handleIntent(client, match.Intent{Kind: match.IntentRollTurnOrder})
	case protocol.TypeRollDice:
		err = h.handleIntent(client, match.Intent{Kind: match.IntentRollDice})
	case protocol.TypeEndTurn:
		err = h.handleIntent(client, match.Intent{Kind: match.IntentEndTurn})
	case protocol.TypeCancel:
		err = h.handleIntent(client, match.Intent{Kind: match.IntentCancel})
	case protocol.TypeSelectOption:
		err = h.handleSelectOption(client, msg)
	case protocol.TypePlaceAt:
		err = h.handleCellIntent(client, msg, match.IntentPlaceAt)
	case protocol.TypeSelectAttacker:
		err = h.handleCellIntent(client, msg, match.IntentSelectAttacker)
	case protocol.TypeSelectTarget:
		err = h.handleCellIntent(client, msg, match.IntentSelectTarget)
	default:
		err = fmt.Errorf("%w: unknown message type %q", errBadRequest, msg.Type)
	}

	if err != nil {
		h.sendError(client, msg.ID, err)
	}
}

func (h *Hub) handleCreateMatch(client *Client, msg *protocol.Message) error {
	var payload protocol.CreateMatchPayload
	if err := msg.ParsePayload(&payload); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}

	room, err := h.createRoom(payload)
	if err != nil {
		return err
	}

	reply, err := protocol.NewMessage(protocol.TypeMatchCreated, protocol.MatchCreatedPayload{MatchID: room.id})
	if err != nil {
		return err
	}
	reply.ID = msg.ID
	client.Send(reply)
	return nil
}

func (h *Hub) handleJoinMatch(client *Client, msg *protocol.Message) error {
	var payload protocol.JoinMatchPayload
	if err := msg.ParsePayload(&payload); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	if current, _ := client.Seat(); current != nil {
		return fmt.Errorf("%w: already seated in %s", errBadRequest, current.id)
	}

	room, err := h.room(payload.MatchID)
	if err != nil {
		return err
	}
	return room.join(client, payload.Token, msg.ID)
}

func (h *Hub) handleSelectOption(client *Client, msg *protocol.Message) error {
	var payload protocol.SelectOptionPayload
	if err := msg.ParsePayload(&payload); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return h.handleIntent(client, match.Intent{Kind: match.IntentSelectOption, Option: payload.Option})
}

func (h *Hub) handleCellIntent(client *Client, msg *protocol.Message, kind match.IntentKind) error {
	var payload protocol.CellPayload
	if err := msg.ParsePayload(&payload); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return h.handleIntent(client, match.Intent{Kind: kind, X: payload.X, Y: payload.Y})
}

func (h *Hub) handleIntent(client *Client, in match.Intent) error {
	room, _ := client.Seat()
	if room == nil {
		return errNotInMatch
	}
	return room.handle(client, in)
}

func (h *Hub) sendError(client *Client, replyTo string, err error) {
	code := errorCode(err)
	text := err.Error()
	if code == protocol.ErrCodeInternalError {
		h.logger.Error().Err(err).Str("client_id", client.ID).Msg("Request failed")
		text = "internal error"
	}

	msg, merr := protocol.NewMessage(protocol.TypeError, protocol.ErrorPayload{Code: code, Message: text})
	if merr != nil {
		return
	}
	msg.ID = replyTo
	client.Send(msg)
}

// errorCode maps rule and lobby errors to protocol error codes.
func errorCode(err error) protocol.ErrorCode {
	switch {
	case errors.Is(err, game.ErrNotYourTurn), errors.Is(err, game.ErrPlayerEliminated):
		return protocol.ErrCodeNotYourTurn
	case errors.Is(err, game.ErrInvalidTarget), errors.Is(err, game.ErrInvalidAttacker):
		return protocol.ErrCodeInvalidTarget
	case errors.Is(err, game.ErrInvalidPlacement):
		return protocol.ErrCodeInvalidPlacement
	case errors.Is(err, game.ErrNoAttackOptions):
		return protocol.ErrCodeNoAttackOptions
	case errors.Is(err, game.ErrGameOver):
		return protocol.ErrCodeGameOver
	case errors.Is(err, database.ErrMatchNotFound):
		return protocol.ErrCodeMatchNotFound
	case errors.Is(err, errMatchFull):
		return protocol.ErrCodeMatchFull
	case errors.Is(err, errNotInMatch), errors.Is(err, database.ErrSeatNotFound):
		return protocol.ErrCodeNotInMatch
	case errors.Is(err, errBadRequest),
		errors.Is(err, game.ErrInvalidOption),
		errors.Is(err, game.ErrInvalidPlayerCount),
		errors.Is(err, game.ErrGridTooSmall),
		errors.Is(err, game.ErrUnknownMapType):
		return protocol.ErrCodeBadRequest
	case errors.Is(err, game.ErrInvalidAction), errors.Is(err, game.ErrInvalidTransition):
		return protocol.ErrCodeInvalidAction
	}
	return protocol.ErrCodeInternalError
}
