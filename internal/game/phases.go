package game

import "fmt"

// PhaseKind names a state of the turn machine.
type PhaseKind string

const (
	PhaseSetup          PhaseKind = "setup"
	PhaseTurnOrderRoll  PhaseKind = "turnOrderRoll"
	PhaseSelectOption   PhaseKind = "selectOption"
	PhaseWaiting        PhaseKind = "waiting"
	PhaseRolling        PhaseKind = "rolling"
	PhasePlacing        PhaseKind = "placing"
	PhaseSelectAttacker PhaseKind = "selectAttacker"
	PhaseSelectTarget   PhaseKind = "selectTarget"
	PhaseCombat         PhaseKind = "combat"
	PhaseTurnComplete   PhaseKind = "turnComplete"
	PhaseGameOver       PhaseKind = "gameOver"
)

// Phase is the turn machine state. Kind selects which fields are meaningful:
// Rolls during turnOrderRoll, Option and the budgets during a turn,
// Attacker and Target while an attack is being set up, Winner at game over.
type Phase struct {
	Kind                PhaseKind       `json:"kind"`
	Rolls               []TurnOrderRoll `json:"rolls,omitempty"`
	Option              TurnOption      `json:"option,omitempty"`
	PlacementsRemaining int             `json:"placementsRemaining,omitempty"`
	AttacksRemaining    int             `json:"attacksRemaining,omitempty"`
	Attacker            *Position       `json:"attacker,omitempty"`
	Target              *Position       `json:"target,omitempty"`
	Winner              string          `json:"winner,omitempty"`
}

// String returns the phase name.
func (p Phase) String() string { return string(p.Kind) }

// IsTurnActive reports whether the phase belongs to a player's turn.
func (p Phase) IsTurnActive() bool {
	switch p.Kind {
	case PhaseSelectOption, PhaseWaiting, PhaseRolling, PhasePlacing,
		PhaseSelectAttacker, PhaseSelectTarget, PhaseCombat:
		return true
	default:
		return false
	}
}

// EventKind names an input to the turn machine.
type EventKind string

const (
	EventBeginTurnOrder EventKind = "beginTurnOrder"
	EventTurnOrderRoll  EventKind = "turnOrderRolled"
	EventSelectOption   EventKind = "selectOption"
	EventRollDice       EventKind = "rollDice"
	EventDiceRolled     EventKind = "diceRolled"
	EventPlaced         EventKind = "placed"
	EventSelectAttacker EventKind = "selectAttacker"
	EventSelectTarget   EventKind = "selectTarget"
	EventCombatResolved EventKind = "combatResolved"
	EventEndTurn        EventKind = "endTurn"
	EventTimeout        EventKind = "timeout"
	EventCancel         EventKind = "cancel"
	EventNextPlayer     EventKind = "nextPlayer"
	EventVictory        EventKind = "victory"
)

// Event is an input to Transition. Fields beyond Kind are read only by the
// events that need them.
type Event struct {
	Kind EventKind

	// EventTurnOrderRoll: the roll, and how many rolls are expected in total.
	Roll      TurnOrderRoll
	RollTotal int

	// EventSelectOption.
	Option TurnOption

	// EventDiceRolled and EventCombatResolved: placements granted.
	Placements int

	// EventSelectAttacker and EventSelectTarget.
	Position Position

	// EventCombatResolved.
	AttackerWon    bool
	HasMoreTargets bool

	// EventVictory.
	Winner string
}

// InitialPhase is the state of a freshly created match.
func InitialPhase() Phase { return Phase{Kind: PhaseSetup} }

// Transition computes the phase that follows p on event e. It never touches
// game state; the caller applies side effects. Illegal events return
// ErrInvalidTransition, and every event after game over returns ErrGameOver.
func Transition(p Phase, e Event) (Phase, error) {
	if p.Kind == PhaseGameOver {
		return p, ErrGameOver
	}

	switch e.Kind {
	case EventVictory:
		return Phase{Kind: PhaseGameOver, Winner: e.Winner}, nil
	case EventEndTurn, EventTimeout:
		if p.IsTurnActive() {
			return Phase{Kind: PhaseTurnComplete, Option: p.Option}, nil
		}
		return p, invalid(p, e)
	}

	switch p.Kind {
	case PhaseSetup:
		if e.Kind == EventBeginTurnOrder {
			return Phase{Kind: PhaseTurnOrderRoll, Rolls: []TurnOrderRoll{}}, nil
		}

	case PhaseTurnOrderRoll:
		if e.Kind == EventTurnOrderRoll {
			rolls := append(append([]TurnOrderRoll{}, p.Rolls...), e.Roll)
			if len(rolls) >= e.RollTotal {
				return Phase{Kind: PhaseSelectOption}, nil
			}
			return Phase{Kind: PhaseTurnOrderRoll, Rolls: rolls}, nil
		}

	case PhaseSelectOption:
		if e.Kind == EventSelectOption {
			plan, err := SelectTurnOption(e.Option)
			if err != nil {
				return p, err
			}
			if plan.Mode == ModePlacing {
				return Phase{Kind: PhaseWaiting, Option: e.Option}, nil
			}
			return Phase{Kind: PhaseSelectAttacker, Option: e.Option, AttacksRemaining: plan.Attacks}, nil
		}

	case PhaseWaiting:
		if e.Kind == EventRollDice {
			return Phase{Kind: PhaseRolling, Option: p.Option}, nil
		}

	case PhaseRolling:
		if e.Kind == EventDiceRolled {
			return placingOrDone(p.Option, e.Placements), nil
		}

	case PhasePlacing:
		if e.Kind == EventPlaced {
			return placingOrDone(p.Option, p.PlacementsRemaining-1), nil
		}

	case PhaseSelectAttacker:
		switch e.Kind {
		case EventSelectAttacker:
			pos := e.Position
			return Phase{Kind: PhaseSelectTarget, Option: p.Option, AttacksRemaining: p.AttacksRemaining, Attacker: &pos}, nil
		case EventCancel:
			return p, nil
		}

	case PhaseSelectTarget:
		switch e.Kind {
		case EventSelectTarget:
			target := e.Position
			return Phase{Kind: PhaseCombat, Option: p.Option, AttacksRemaining: p.AttacksRemaining, Attacker: p.Attacker, Target: &target}, nil
		case EventCancel:
			return Phase{Kind: PhaseSelectAttacker, Option: p.Option, AttacksRemaining: p.AttacksRemaining}, nil
		}

	case PhaseCombat:
		if e.Kind == EventCombatResolved {
			remaining := p.AttacksRemaining - 1
			switch DetermineNextPhaseAfterCombat(e.AttackerWon, p.Option, remaining, e.HasMoreTargets) {
			case StepPlacing:
				return placingOrDone(p.Option, e.Placements), nil
			case StepAttacking:
				return Phase{Kind: PhaseSelectAttacker, Option: p.Option, AttacksRemaining: remaining}, nil
			default:
				return Phase{Kind: PhaseTurnComplete, Option: p.Option}, nil
			}
		}

	case PhaseTurnComplete:
		if e.Kind == EventNextPlayer {
			return Phase{Kind: PhaseSelectOption}, nil
		}
	}
	return p, invalid(p, e)
}

func placingOrDone(option TurnOption, placements int) Phase {
	if placements <= 0 {
		return Phase{Kind: PhaseTurnComplete, Option: option}
	}
	return Phase{Kind: PhasePlacing, Option: option, PlacementsRemaining: placements}
}

func invalid(p Phase, e Event) error {
	return fmt.Errorf("%w: %s in %s", ErrInvalidTransition, e.Kind, p.Kind)
}
