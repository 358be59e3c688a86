package game

import "fmt"

// PlayerColor represents a player's color.
type PlayerColor string

const (
	ColorRed    PlayerColor = "red"
	ColorBlue   PlayerColor = "blue"
	ColorGreen  PlayerColor = "green"
	ColorYellow PlayerColor = "yellow"
)

// AllColors returns the seat colors in creation order.
func AllColors() []PlayerColor {
	return []PlayerColor{ColorRed, ColorBlue, ColorGreen, ColorYellow}
}

const (
	CastleMaxHP      = 4
	UnitsPerLevel    = 10
	CastleRegenTurns = 3
)

// PlayerState is a seat in the match. Entries are never removed from
// GameState.Players; elimination flips IsAlive.
type PlayerState struct {
	ID                    string        `json:"id"`
	DisplayName           string        `json:"displayName"`
	Color                 PlayerColor   `json:"color"`
	CastleHP              int           `json:"castleHP"`
	CastleMaxHP           int           `json:"castleMaxHP"`
	CastleFirstDamageTurn *int          `json:"castleFirstDamageTurn"`
	CastlePosition        Position      `json:"castlePosition"`
	ActiveBonuses         []ActiveBonus `json:"activeBonuses"`
	IsAlive               bool          `json:"isAlive"`
	IsConnected           bool          `json:"isConnected"`
	UnitCount             int           `json:"unitCount"`
	Level                 int           `json:"level"`
}

// NewPlayerState creates a living player with a full-health castle at pos.
func NewPlayerState(id, name string, color PlayerColor, pos Position) *PlayerState {
	return &PlayerState{
		ID:             id,
		DisplayName:    name,
		Color:          color,
		CastleHP:       CastleMaxHP,
		CastleMaxHP:    CastleMaxHP,
		CastlePosition: pos,
		ActiveBonuses:  []ActiveBonus{},
		IsAlive:        true,
		Level:          1,
	}
}

// RefreshLevel recomputes the player's level from its unit count.
func (p *PlayerState) RefreshLevel() {
	p.Level = 1 + p.UnitCount/UnitsPerLevel
}

// EliminatePlayer removes playerID from the match: its castle block and every
// other cell it owns are cleared, it leaves the turn order and is marked dead.
// The player record stays in state.Players.
//
// Eliminating a player absent from the turn order is a caller bug and panics.
func EliminatePlayer(state *GameState, playerID string) {
	idx := -1
	for i, id := range state.TurnOrder {
		if id == playerID {
			idx = i
			break
		}
	}
	if idx < 0 {
		panic(fmt.Sprintf("game: eliminate %q: not in turn order", playerID))
	}

	p := state.Players[playerID]
	grid := state.Grid
	for dy := 0; dy < CastleSize; dy++ {
		for dx := 0; dx < CastleSize; dx++ {
			if c := grid.At(p.CastlePosition.X+dx, p.CastlePosition.Y+dy); c != nil {
				c.clear()
			}
		}
	}
	for y := range grid {
		for x := range grid[y] {
			if grid[y][x].Owner.IsPlayer(playerID) {
				grid[y][x].clear()
			}
		}
	}

	state.TurnOrder = append(state.TurnOrder[:idx:idx], state.TurnOrder[idx+1:]...)
	if idx < state.CurrentPlayerIndex {
		state.CurrentPlayerIndex--
	} else if state.CurrentPlayerIndex >= len(state.TurnOrder) {
		state.CurrentPlayerIndex = 0
	}

	p.CastleHP = 0
	p.CastleFirstDamageTurn = nil
	p.UnitCount = 0
	p.ActiveBonuses = []ActiveBonus{}
	p.IsAlive = false
	p.RefreshLevel()
}

// CheckVictory returns the sole remaining player id, if any.
func CheckVictory(turnOrder []string) (string, bool) {
	if len(turnOrder) == 1 {
		return turnOrder[0], true
	}
	return "", false
}

// RegenerateCastles heals every damaged castle by one HP once
// CastleRegenTurns have passed since the timer started, restarting the timer.
// The timer clears when a castle is back at full health. It returns the ids
// of the healed players.
func RegenerateCastles(state *GameState) []string {
	var healed []string
	for _, id := range sortedPlayerIDs(state.Players) {
		p := state.Players[id]
		if !p.IsAlive || p.CastleFirstDamageTurn == nil {
			continue
		}
		if p.CastleHP >= p.CastleMaxHP {
			p.CastleFirstDamageTurn = nil
			continue
		}
		if state.CurrentTurn-*p.CastleFirstDamageTurn < CastleRegenTurns {
			continue
		}
		p.CastleHP++
		healed = append(healed, id)
		if p.CastleHP >= p.CastleMaxHP {
			p.CastleFirstDamageTurn = nil
		} else {
			turn := state.CurrentTurn
			p.CastleFirstDamageTurn = &turn
		}
	}
	return healed
}
