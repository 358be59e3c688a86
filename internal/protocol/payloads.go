package protocol

import (
	"encoding/json"

	"github.com/topogame/dice-dominion-sub000/internal/game"
)

// ==================== Lobby Payloads ====================

// CreateMatchPayload is sent to open a new match.
type CreateMatchPayload struct {
	PlayerCount      int          `json:"playerCount"`
	MapType          game.MapType `json:"mapType"`
	TurnTimerSeconds int          `json:"turnTimerSeconds,omitempty"`
}

// MatchCreatedPayload is the response when a match is created.
type MatchCreatedPayload struct {
	MatchID string `json:"matchId"`
}

// JoinMatchPayload claims the next free seat in a match. A token from an
// earlier joined_match reclaims that seat instead.
type JoinMatchPayload struct {
	MatchID string `json:"matchId"`
	Token   string `json:"token,omitempty"`
}

// JoinedMatchPayload tells a client which seat it holds.
type JoinedMatchPayload struct {
	MatchID  string `json:"matchId"`
	PlayerID string `json:"playerId"`
	Token    string `json:"token"`
}

// ==================== Intent Payloads ====================

// SelectOptionPayload picks option A, B or C.
type SelectOptionPayload struct {
	Option game.TurnOption `json:"option"`
}

// CellPayload addresses a grid cell for place_at, select_attacker and
// select_target.
type CellPayload struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// ==================== Broadcast Payloads ====================

// GameStatePayload is the full snapshot sent after every accepted intent.
type GameStatePayload struct {
	State           json.RawMessage `json:"state"`
	Phase           game.Phase      `json:"phase"`
	CurrentPlayerID string          `json:"currentPlayerId"`
	ValidPlacements []game.Position `json:"validPlacements,omitempty"`
}

// DiceRolledPayload announces a die roll.
type DiceRolledPayload struct {
	PlayerID string `json:"playerId"`
	Purpose  string `json:"purpose"` // turn_order or placement
	Roll     int    `json:"roll"`
}

// CombatResultPayload announces a resolved attack.
type CombatResultPayload struct {
	PlayerID string             `json:"playerId"`
	Attacker game.Position      `json:"attacker"`
	Target   game.Position      `json:"target"`
	Rolls    game.CombatRolls   `json:"rolls"`
	Outcome  game.CombatOutcome `json:"outcome"`
}

// ChestCollectedPayload announces a collected chest.
type ChestCollectedPayload struct {
	PlayerID  string         `json:"playerId"`
	BonusType game.BonusType `json:"bonusType"`
	BonusName string         `json:"bonusName"`
}

// PlayerEliminatedPayload announces an elimination.
type PlayerEliminatedPayload struct {
	PlayerID     string `json:"playerId"`
	EliminatedBy string `json:"eliminatedBy"`
}

// GameOverPayload announces the winner.
type GameOverPayload struct {
	Winner string `json:"winner"`
}

// ==================== System Payloads ====================

// WelcomePayload is sent when a client connects.
type WelcomePayload struct {
	ClientID string `json:"clientId"`
	Version  string `json:"version"`
}
