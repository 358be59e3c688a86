package game

import (
	"cmp"
	"fmt"
	"slices"
)

// TurnOption is the action a player commits to at the start of a turn.
type TurnOption string

const (
	OptionNone TurnOption = ""
	OptionA    TurnOption = "A" // roll and expand
	OptionB    TurnOption = "B" // one attack, expand on a win
	OptionC    TurnOption = "C" // two attacks
)

// TurnMode is the kind of work an option leads to.
type TurnMode string

const (
	ModePlacing   TurnMode = "placing"
	ModeAttacking TurnMode = "attacking"
)

// OptionPlan is the budget granted by a turn option.
type OptionPlan struct {
	Mode    TurnMode `json:"mode"`
	Attacks int      `json:"attacks"`
}

// SelectTurnOption maps an option to its mode and attack budget.
func SelectTurnOption(option TurnOption) (OptionPlan, error) {
	switch option {
	case OptionA:
		return OptionPlan{Mode: ModePlacing, Attacks: 0}, nil
	case OptionB:
		return OptionPlan{Mode: ModeAttacking, Attacks: 1}, nil
	case OptionC:
		return OptionPlan{Mode: ModeAttacking, Attacks: 2}, nil
	default:
		return OptionPlan{}, fmt.Errorf("%w: %q", ErrInvalidOption, option)
	}
}

// TurnOrderRoll is one player's die for deciding play order.
type TurnOrderRoll struct {
	PlayerID string `json:"playerId"`
	Roll     int    `json:"roll"`
}

// FinalizeTurnOrder sorts players by roll, highest first. Equal rolls keep
// their submission order and are not re-rolled.
func FinalizeTurnOrder(rolls []TurnOrderRoll) []string {
	sorted := slices.Clone(rolls)
	slices.SortStableFunc(sorted, func(a, b TurnOrderRoll) int {
		return cmp.Compare(b.Roll, a.Roll)
	})
	order := make([]string, len(sorted))
	for i, r := range sorted {
		order[i] = r.PlayerID
	}
	return order
}

// AdvanceToNextPlayer returns the next seat index and turn number. The turn
// number increases when play wraps back to the first seat.
func AdvanceToNextPlayer(currentIndex, turnOrderLength, currentTurn int) (nextIndex, newTurn int) {
	if turnOrderLength <= 0 {
		return 0, currentTurn
	}
	nextIndex = (currentIndex + 1) % turnOrderLength
	newTurn = currentTurn
	if nextIndex == 0 {
		newTurn++
	}
	return nextIndex, newTurn
}

// isCombatant reports whether the cell can attack or be attacked.
func isCombatant(c GridCell) bool {
	return c.Type == CellUnit || c.Type == CellCastle
}

// PlayerHasAttackOptions reports whether any unit or castle cell of playerID
// borders an enemy unit or castle.
func PlayerHasAttackOptions(grid Grid, playerID string) bool {
	for y := range grid {
		for x := range grid[y] {
			c := grid[y][x]
			if !c.Owner.IsPlayer(playerID) || !isCombatant(c) {
				continue
			}
			if len(CalculateAttackableEnemies(grid, Position{X: x, Y: y}, playerID)) > 0 {
				return true
			}
		}
	}
	return false
}

// CalculateAttackableEnemies returns the enemy unit and castle cells next to
// unitPos.
func CalculateAttackableEnemies(grid Grid, unitPos Position, playerID string) []Position {
	var out []Position
	for _, n := range grid.Neighbors(unitPos) {
		c := grid[n.Y][n.X]
		if c.Owner.IsEnemyOf(playerID) && isCombatant(c) {
			out = append(out, n)
		}
	}
	return out
}

// CanAttackFrom reports whether pos holds a unit or castle of playerID with
// an enemy next to it.
func CanAttackFrom(grid Grid, pos Position, playerID string) bool {
	c := grid.At(pos.X, pos.Y)
	if c == nil || !c.Owner.IsPlayer(playerID) || !isCombatant(*c) {
		return false
	}
	return len(CalculateAttackableEnemies(grid, pos, playerID)) > 0
}
