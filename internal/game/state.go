// Package game contains the rules engine for Dice Dominion: the grid and
// terrain model, combat resolution, bonus chests, player elimination and the
// turn state machine. It performs no I/O and owns no randomness; callers
// inject an RNG wherever dice or spawn sampling is needed.
package game

import (
	"encoding/json"
	"fmt"
)

// RNG returns a uniformly distributed number in [0, 1).
type RNG func() float64

// Status is the lifecycle stage of a match.
type Status string

const (
	StatusSetup    Status = "setup"
	StatusPlaying  Status = "playing"
	StatusFinished Status = "finished"
)

// GameState is the complete, serializable state of a match. It doubles as
// the wire and save format.
type GameState struct {
	GameID              string                  `json:"gameId"`
	Status              Status                  `json:"status"`
	MapType             MapType                 `json:"mapType"`
	GridWidth           int                     `json:"gridWidth"`
	GridHeight          int                     `json:"gridHeight"`
	TurnTimerSeconds    int                     `json:"turnTimerSeconds"`
	CurrentTurn         int                     `json:"currentTurn"`
	CurrentPlayerIndex  int                     `json:"currentPlayerIndex"`
	TurnOrder           []string                `json:"turnOrder"`
	Grid                Grid                    `json:"grid"`
	Players             map[string]*PlayerState `json:"players"`
	Rebels              *RebelState             `json:"rebels,omitempty"`
	Chests              []ChestState            `json:"chests"`
	RebelSpawnCountdown int                     `json:"rebelSpawnCountdown"`
	Winner              string                  `json:"winner,omitempty"`
}

// RebelState tracks the neutral rebel faction.
type RebelState struct {
	Units         []Position    `json:"units"`
	ActiveBonuses []ActiveBonus `json:"activeBonuses"`
}

// CurrentPlayerID returns the id of the player whose turn it is, or "" when
// the turn order is empty.
func (g *GameState) CurrentPlayerID() string {
	if g.CurrentPlayerIndex < 0 || g.CurrentPlayerIndex >= len(g.TurnOrder) {
		return ""
	}
	return g.TurnOrder[g.CurrentPlayerIndex]
}

// AlivePlayers returns the number of players still in the match.
func (g *GameState) AlivePlayers() int {
	n := 0
	for _, p := range g.Players {
		if p.IsAlive {
			n++
		}
	}
	return n
}

// Marshal encodes the state as JSON.
func (g *GameState) Marshal() ([]byte, error) {
	data, err := json.Marshal(g)
	if err != nil {
		return nil, fmt.Errorf("marshal game state: %w", err)
	}
	return data, nil
}

// UnmarshalGameState decodes a state produced by Marshal.
func UnmarshalGameState(data []byte) (*GameState, error) {
	var g GameState
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("unmarshal game state: %w", err)
	}
	if g.Players == nil {
		g.Players = make(map[string]*PlayerState)
	}
	return &g, nil
}
