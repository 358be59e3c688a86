package match

import (
	"errors"
	"fmt"

	"github.com/topogame/dice-dominion-sub000/internal/game"
)

// ErrStepLimit is returned by AutoPlay when the match is still running after
// the allotted number of steps.
var ErrStepLimit = errors.New("step limit reached")

// aimBias is the share of placements that head for the target castle
// instead of a random frontier cell.
const aimBias = 0.8

// Decide picks one legal intent for whoever must act, choosing among legal
// moves with rng. The bot marches on one enemy castle: placements and
// attacks favour cells nearest to it, and a unit next to any enemy castle
// always attacks it. It does not change the match.
func Decide(m *Match, rng game.RNG) (Intent, error) {
	s := m.state
	switch m.phase.Kind {
	case game.PhaseSetup:
		return Intent{Kind: IntentBeginTurnOrder}, nil
	case game.PhaseTurnOrderRoll:
		return Intent{Kind: IntentRollTurnOrder, PlayerID: m.nextRoller()}, nil
	case game.PhaseGameOver:
		return Intent{}, game.ErrGameOver
	}

	playerID := s.CurrentPlayerID()
	switch m.phase.Kind {
	case game.PhaseSelectOption:
		attackers, castleAttackers := m.attackers(playerID)
		if len(castleAttackers) > 0 {
			return Intent{Kind: IntentSelectOption, PlayerID: playerID, Option: game.OptionC}, nil
		}
		options := []game.TurnOption{game.OptionA}
		if len(attackers) > 0 {
			options = append(options, game.OptionB, game.OptionC, game.OptionC)
		}
		return Intent{Kind: IntentSelectOption, PlayerID: playerID, Option: pick(rng, options)}, nil

	case game.PhaseWaiting:
		return Intent{Kind: IntentRollDice, PlayerID: playerID}, nil

	case game.PhasePlacing:
		targets := m.ValidPlacements(playerID)
		if len(targets) == 0 {
			return Intent{Kind: IntentEndTurn, PlayerID: playerID}, nil
		}
		if rng() < aimBias {
			targets = closest(targets, m.castleDistance(playerID))
		}
		p := pick(rng, targets)
		return Intent{Kind: IntentPlaceAt, PlayerID: playerID, X: p.X, Y: p.Y}, nil

	case game.PhaseSelectAttacker:
		attackers, castleAttackers := m.attackers(playerID)
		if len(attackers) == 0 {
			return Intent{Kind: IntentEndTurn, PlayerID: playerID}, nil
		}
		if len(castleAttackers) > 0 {
			attackers = castleAttackers
		} else {
			dist := m.castleDistance(playerID)
			attackers = closest(attackers, func(p game.Position) int {
				best := -1
				for _, t := range game.CalculateAttackableEnemies(s.Grid, p, playerID) {
					if d := dist(t); best < 0 || d < best {
						best = d
					}
				}
				return best
			})
		}
		p := pick(rng, attackers)
		return Intent{Kind: IntentSelectAttacker, PlayerID: playerID, X: p.X, Y: p.Y}, nil

	case game.PhaseSelectTarget:
		targets := game.CalculateAttackableEnemies(s.Grid, *m.phase.Attacker, playerID)
		if len(targets) == 0 {
			return Intent{Kind: IntentCancel, PlayerID: playerID}, nil
		}
		var castles []game.Position
		for _, t := range targets {
			if s.Grid[t.Y][t.X].Type == game.CellCastle {
				castles = append(castles, t)
			}
		}
		if len(castles) > 0 {
			targets = castles
		} else {
			targets = closest(targets, m.castleDistance(playerID))
		}
		p := pick(rng, targets)
		return Intent{Kind: IntentSelectTarget, PlayerID: playerID, X: p.X, Y: p.Y}, nil
	}
	return Intent{}, fmt.Errorf("%w: %s", game.ErrInvalidAction, m.phase.Kind)
}

// Step decides and applies one intent.
func Step(m *Match, rng game.RNG) error {
	in, err := Decide(m, rng)
	if err != nil {
		return err
	}
	_, err = m.Apply(in)
	return err
}

// AutoPlay steps the match until it ends or maxSteps intents have run. It
// returns the number of steps taken.
func AutoPlay(m *Match, rng game.RNG, maxSteps int) (int, error) {
	for i := 0; i < maxSteps; i++ {
		if m.IsOver() {
			return i, nil
		}
		if err := Step(m, rng); err != nil {
			return i, err
		}
	}
	if m.IsOver() {
		return maxSteps, nil
	}
	return maxSteps, ErrStepLimit
}

// attackers lists the cells playerID can attack from, and the subset that
// borders an enemy castle.
func (m *Match) attackers(playerID string) (all, castle []game.Position) {
	g := m.state.Grid
	for y := range g {
		for x := range g[y] {
			pos := game.Position{X: x, Y: y}
			if !game.CanAttackFrom(g, pos, playerID) {
				continue
			}
			all = append(all, pos)
			for _, t := range game.CalculateAttackableEnemies(g, pos, playerID) {
				if g[t.Y][t.X].Type == game.CellCastle {
					castle = append(castle, pos)
					break
				}
			}
		}
	}
	return all, castle
}

func pick[T any](rng game.RNG, items []T) T {
	i := int(rng() * float64(len(items)))
	if i >= len(items) {
		i = len(items) - 1
	}
	return items[i]
}

// targetCastle returns the enemy the bot marches on: the weakest castle,
// then the nearest one, then the lowest id. It is nil when no enemy is left.
func (m *Match) targetCastle(playerID string) *game.PlayerState {
	me := m.state.Players[playerID]
	var best *game.PlayerState
	bestDist := 0
	for _, id := range m.state.TurnOrder {
		if id == playerID {
			continue
		}
		p := m.state.Players[id]
		d := manhattan(p.CastlePosition, me.CastlePosition)
		switch {
		case best == nil,
			p.CastleHP < best.CastleHP,
			p.CastleHP == best.CastleHP && d < bestDist,
			p.CastleHP == best.CastleHP && d == bestDist && p.ID < best.ID:
			best, bestDist = p, d
		}
	}
	return best
}

// castleDistance measures how far a cell is from the target castle.
func (m *Match) castleDistance(playerID string) func(game.Position) int {
	target := m.targetCastle(playerID)
	if target == nil {
		return func(game.Position) int { return 0 }
	}
	return func(p game.Position) int {
		best := -1
		for dy := 0; dy < game.CastleSize; dy++ {
			for dx := 0; dx < game.CastleSize; dx++ {
				c := game.Position{X: target.CastlePosition.X + dx, Y: target.CastlePosition.Y + dy}
				if d := manhattan(p, c); best < 0 || d < best {
					best = d
				}
			}
		}
		return best
	}
}

// closest keeps the items at the smallest distance, in their original order.
func closest(items []game.Position, dist func(game.Position) int) []game.Position {
	best := -1
	var out []game.Position
	for _, p := range items {
		switch d := dist(p); {
		case best < 0 || d < best:
			best = d
			out = append(out[:0], p)
		case d == best:
			out = append(out, p)
		}
	}
	return out
}

func manhattan(a, b game.Position) int {
	dx, dy := a.X-b.X, a.Y-b.Y
	if dx < 0 {
		dx = -dx
	}
	if dy < 0 {
		dy = -dy
	}
	return dx + dy
}
