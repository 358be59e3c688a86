package match

import (
	"fmt"

	"github.com/topogame/dice-dominion-sub000/internal/game"
)

// IntentKind names a player request.
type IntentKind string

const (
	IntentBeginTurnOrder IntentKind = "begin_turn_order"
	IntentRollTurnOrder  IntentKind = "roll_turn_order"
	IntentSelectOption   IntentKind = "select_option"
	IntentRollDice       IntentKind = "roll_dice"
	IntentPlaceAt        IntentKind = "place_at"
	IntentSelectAttacker IntentKind = "select_attacker"
	IntentSelectTarget   IntentKind = "select_target"
	IntentEndTurn        IntentKind = "end_turn"
	IntentCancel         IntentKind = "cancel"
)

// Intent is one request addressed to a Match. Option is used by
// select_option, X and Y by the cell intents.
type Intent struct {
	Kind     IntentKind
	PlayerID string
	Option   game.TurnOption
	X, Y     int
}

// Outcome carries whatever an applied intent produced. At most one field is
// set.
type Outcome struct {
	Roll      int
	Placement *game.PlacementResult
	Combat    *CombatReport
}

// Apply dispatches in to the matching intent method.
func (m *Match) Apply(in Intent) (Outcome, error) {
	var out Outcome
	switch in.Kind {
	case IntentBeginTurnOrder:
		return out, m.BeginTurnOrder()
	case IntentRollTurnOrder:
		roll, err := m.RollTurnOrder(in.PlayerID)
		out.Roll = roll
		return out, err
	case IntentSelectOption:
		return out, m.SelectOption(in.PlayerID, in.Option)
	case IntentRollDice:
		roll, err := m.RollDice(in.PlayerID)
		out.Roll = roll
		return out, err
	case IntentPlaceAt:
		res, err := m.PlaceAt(in.PlayerID, in.X, in.Y)
		if err != nil {
			return out, err
		}
		out.Placement = &res
		return out, nil
	case IntentSelectAttacker:
		return out, m.SelectAttacker(in.PlayerID, in.X, in.Y)
	case IntentSelectTarget:
		report, err := m.SelectTarget(in.PlayerID, in.X, in.Y)
		if err != nil {
			return out, err
		}
		out.Combat = &report
		return out, nil
	case IntentEndTurn:
		return out, m.EndTurn(in.PlayerID)
	case IntentCancel:
		return out, m.Cancel(in.PlayerID)
	}
	return out, fmt.Errorf("%w: unknown intent %q", game.ErrInvalidAction, in.Kind)
}
