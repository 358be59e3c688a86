package game

import "errors"

// Game errors
var (
	ErrNotYourTurn        = errors.New("not your turn")
	ErrInvalidAction      = errors.New("invalid action for current phase")
	ErrInvalidTarget      = errors.New("invalid target")
	ErrInvalidAttacker    = errors.New("invalid attacker")
	ErrInvalidPlacement   = errors.New("invalid placement")
	ErrInvalidOption      = errors.New("invalid turn option")
	ErrNoAttackOptions    = errors.New("no attack options available")
	ErrInvalidTransition  = errors.New("invalid phase transition")
	ErrGameOver           = errors.New("game is over")
	ErrPlayerEliminated   = errors.New("player has been eliminated")
	ErrInvalidPlayerCount = errors.New("player count must be between 2 and 4")
	ErrGridTooSmall       = errors.New("grid too small")
	ErrUnknownMapType     = errors.New("unknown map type")
)
