// Package protocol defines the network message types for client-server communication.
package protocol

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// MessageType identifies the type of message.
type MessageType string

// Lobby message types
const (
	TypeCreateMatch  MessageType = "create_match"
	TypeMatchCreated MessageType = "match_created"
	TypeJoinMatch    MessageType = "join_match"
	TypeJoinedMatch  MessageType = "joined_match"
)

// Intent message types
const (
	TypeRollTurnOrder  MessageType = "roll_turn_order"
	TypeSelectOption   MessageType = "select_option"
	TypeRollDice       MessageType = "roll_dice"
	TypePlaceAt        MessageType = "place_at"
	TypeSelectAttacker MessageType = "select_attacker"
	TypeSelectTarget   MessageType = "select_target"
	TypeEndTurn        MessageType = "end_turn"
	TypeCancel         MessageType = "cancel"
)

// Broadcast message types
const (
	TypeGameState        MessageType = "game_state"
	TypeDiceRolled       MessageType = "dice_rolled"
	TypeCombatResult     MessageType = "combat_result"
	TypeChestCollected   MessageType = "chest_collected"
	TypePlayerEliminated MessageType = "player_eliminated"
	TypeGameOver         MessageType = "game_over"
)

// System message types
const (
	TypeWelcome MessageType = "welcome"
	TypeError   MessageType = "error"
	TypePing    MessageType = "ping"
	TypePong    MessageType = "pong"
)

// Message is the envelope for all messages.
type Message struct {
	Type      MessageType     `json:"type"`
	ID        string          `json:"id"`
	Timestamp int64           `json:"timestamp"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// NewMessage creates a new message with the given type and payload.
func NewMessage(msgType MessageType, payload any) (*Message, error) {
	msg := &Message{
		Type:      msgType,
		ID:        uuid.New().String(),
		Timestamp: time.Now().UnixMilli(),
	}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
		}
		msg.Payload = data
	}
	return msg, nil
}

// ParsePayload unmarshals the payload into the given type.
func (m *Message) ParsePayload(v any) error {
	if len(m.Payload) == 0 {
		return fmt.Errorf("%s: empty payload", m.Type)
	}
	if err := json.Unmarshal(m.Payload, v); err != nil {
		return fmt.Errorf("parse %s payload: %w", m.Type, err)
	}
	return nil
}

// Encode marshals the envelope.
func (m *Message) Encode() ([]byte, error) {
	return json.Marshal(m)
}

// Decode parses an envelope from raw bytes.
func Decode(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("decode message: %w", err)
	}
	if msg.Type == "" {
		return nil, fmt.Errorf("decode message: missing type")
	}
	return &msg, nil
}

// ErrorCode represents an error type.
type ErrorCode string

const (
	ErrCodeInvalidAction    ErrorCode = "invalid_action"
	ErrCodeNotYourTurn      ErrorCode = "not_your_turn"
	ErrCodeInvalidTarget    ErrorCode = "invalid_target"
	ErrCodeInvalidPlacement ErrorCode = "invalid_placement"
	ErrCodeNoAttackOptions  ErrorCode = "no_attack_options"
	ErrCodeGameOver         ErrorCode = "game_over"
	ErrCodeMatchNotFound    ErrorCode = "match_not_found"
	ErrCodeMatchFull        ErrorCode = "match_full"
	ErrCodeNotInMatch       ErrorCode = "not_in_match"
	ErrCodeBadRequest       ErrorCode = "bad_request"
	ErrCodeInternalError    ErrorCode = "internal_error"
)

// ErrorPayload is the payload for error messages.
type ErrorPayload struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}
