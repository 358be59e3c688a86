package game

import "slices"

// BonusType is the modifier granted by a chest.
type BonusType string

const (
	BonusAttack  BonusType = "attack"
	BonusDefense BonusType = "defense"
	BonusSpeed   BonusType = "speed"
	BonusBridge  BonusType = "bridge"
)

// AllBonusTypes lists bonus types in spawn-table order.
func AllBonusTypes() []BonusType {
	return []BonusType{BonusAttack, BonusDefense, BonusSpeed, BonusBridge}
}

// Name returns the display name of the bonus.
func (b BonusType) Name() string {
	switch b {
	case BonusAttack:
		return "Attack Bonus"
	case BonusDefense:
		return "Defense Bonus"
	case BonusSpeed:
		return "Speed Bonus"
	case BonusBridge:
		return "Bridge Builder"
	default:
		return "Unknown Bonus"
	}
}

const (
	TimedBonusTurns    = 3
	BridgeBonusTurns   = 99
	BridgeBonusUses    = 2
	ChestSpawnAttempts = 100
	ChestCastleMargin  = 2
	ChestSpawnInterval = 2
)

// ActiveBonus is a bonus held by a player or the rebels. UsesRemaining is
// only set for bridge bonuses.
type ActiveBonus struct {
	Type           BonusType `json:"type"`
	TurnsRemaining int       `json:"turnsRemaining"`
	UsesRemaining  *int      `json:"usesRemaining,omitempty"`
}

// ChestState is a chest on the board. Its position never changes and
// IsCollected only goes from false to true.
type ChestState struct {
	X           int       `json:"x"`
	Y           int       `json:"y"`
	BonusType   BonusType `json:"bonusType"`
	IsCollected bool      `json:"isCollected"`
}

// ChestReward is returned when a chest is collected.
type ChestReward struct {
	BonusType BonusType `json:"bonusType"`
	BonusName string    `json:"bonusName"`
}

// FindChestSpawnPosition samples up to ChestSpawnAttempts random cells and
// returns the first empty one farther than minCastleDistance from every
// castle.
func FindChestSpawnPosition(grid Grid, players map[string]*PlayerState, minCastleDistance int, rng RNG) (Position, bool) {
	w, h := grid.Width(), grid.Height()
	for i := 0; i < ChestSpawnAttempts; i++ {
		x := int(rng() * float64(w))
		y := int(rng() * float64(h))
		if !grid.InBounds(x, y) {
			continue
		}
		if grid[y][x].Type != CellEmpty {
			continue
		}
		if IsNearCastle(players, x, y, minCastleDistance) {
			continue
		}
		return Position{X: x, Y: y}, true
	}
	return Position{}, false
}

// SpawnChest places a chest with a random bonus at a free position. Bridge
// chests only appear while the board has river left to cross.
func SpawnChest(state *GameState, rng RNG) (ChestState, bool) {
	pos, ok := FindChestSpawnPosition(state.Grid, state.Players, ChestCastleMargin, rng)
	if !ok {
		return ChestState{}, false
	}
	types := AllBonusTypes()
	if !state.Grid.HasType(CellRiver) {
		types = slices.DeleteFunc(types, func(t BonusType) bool { return t == BonusBridge })
	}
	t := types[int(rng()*float64(len(types)))%len(types)]
	chest := ChestState{X: pos.X, Y: pos.Y, BonusType: t}
	state.Chests = append(state.Chests, chest)
	state.Grid[pos.Y][pos.X].Type = CellChest
	return chest, true
}

// CollectChest marks the uncollected chest at (x, y) as collected and grants
// its bonus to playerID.
func CollectChest(state *GameState, x, y int, playerID string) (ChestReward, bool) {
	p, ok := state.Players[playerID]
	if !ok {
		return ChestReward{}, false
	}
	for i := range state.Chests {
		c := &state.Chests[i]
		if c.X != x || c.Y != y || c.IsCollected {
			continue
		}
		c.IsCollected = true
		p.ActiveBonuses = append(p.ActiveBonuses, newActiveBonus(c.BonusType))
		return ChestReward{BonusType: c.BonusType, BonusName: c.BonusType.Name()}, true
	}
	return ChestReward{}, false
}

func newActiveBonus(t BonusType) ActiveBonus {
	if t == BonusBridge {
		uses := BridgeBonusUses
		return ActiveBonus{Type: t, TurnsRemaining: BridgeBonusTurns, UsesRemaining: &uses}
	}
	return ActiveBonus{Type: t, TurnsRemaining: TimedBonusTurns}
}

// HasActiveBonus reports whether bonuses contain t with turns left.
func HasActiveBonus(bonuses []ActiveBonus, t BonusType) bool {
	for _, b := range bonuses {
		if b.Type == t && b.TurnsRemaining > 0 {
			return true
		}
	}
	return false
}

// HasBonus reports whether the player holds an active bonus of type t.
func (p *PlayerState) HasBonus(t BonusType) bool {
	return HasActiveBonus(p.ActiveBonuses, t)
}

// DecrementBonuses ages the player's bonuses by one turn. Bridge bonuses
// expire by use only and are left alone; the rest lose a turn and are
// dropped at zero.
func DecrementBonuses(p *PlayerState) {
	p.ActiveBonuses = decrementBonusList(p.ActiveBonuses)
}

func decrementBonusList(bonuses []ActiveBonus) []ActiveBonus {
	kept := make([]ActiveBonus, 0, len(bonuses))
	for _, b := range bonuses {
		if b.Type == BonusBridge {
			kept = append(kept, b)
			continue
		}
		b.TurnsRemaining--
		if b.TurnsRemaining > 0 {
			kept = append(kept, b)
		}
	}
	return kept
}

// ConsumeBridgeUse spends one use of the player's bridge bonus, dropping it
// when exhausted. It reports false if the player has none.
func ConsumeBridgeUse(p *PlayerState) bool {
	for i := range p.ActiveBonuses {
		b := &p.ActiveBonuses[i]
		if b.Type != BonusBridge || b.UsesRemaining == nil || *b.UsesRemaining <= 0 {
			continue
		}
		uses := *b.UsesRemaining - 1
		b.UsesRemaining = &uses
		if uses <= 0 {
			p.ActiveBonuses = append(p.ActiveBonuses[:i], p.ActiveBonuses[i+1:]...)
		}
		return true
	}
	return false
}

// CanBuildBridge reports whether the player holds a bridge bonus with uses left.
func (p *PlayerState) CanBuildBridge() bool {
	for _, b := range p.ActiveBonuses {
		if b.Type == BonusBridge && b.TurnsRemaining > 0 && b.UsesRemaining != nil && *b.UsesRemaining > 0 {
			return true
		}
	}
	return false
}
