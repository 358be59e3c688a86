package game

import (
	"fmt"
	"slices"

	"github.com/google/uuid"
)

const (
	DefaultGridWidth        = 18
	DefaultGridHeight       = 18
	DefaultTurnTimerSeconds = 60
	MinGridSize             = 10
	MinPlayers              = 2
	MaxPlayers              = 4
)

type setupOptions struct {
	width, height    int
	turnTimerSeconds int
	gameID           string
}

// Option customises CreateInitialGameState.
type Option func(*setupOptions)

// WithGridSize overrides the 18×18 default board.
func WithGridSize(w, h int) Option {
	return func(o *setupOptions) { o.width, o.height = w, h }
}

// WithTurnTimer sets the per-turn time limit in seconds.
func WithTurnTimer(seconds int) Option {
	return func(o *setupOptions) { o.turnTimerSeconds = seconds }
}

// WithGameID uses a fixed id instead of a random UUID.
func WithGameID(id string) Option {
	return func(o *setupOptions) { o.gameID = id }
}

// CreateInitialGameState builds a new match: terrain, castles in fixed
// corners and one PlayerState per seat. The turn order starts in creation
// order; the play order is set later by FinalizeTurnOrder.
func CreateInitialGameState(playerCount int, mapType MapType, opts ...Option) (*GameState, error) {
	o := setupOptions{
		width:            DefaultGridWidth,
		height:           DefaultGridHeight,
		turnTimerSeconds: DefaultTurnTimerSeconds,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if playerCount < MinPlayers || playerCount > MaxPlayers {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidPlayerCount, playerCount)
	}
	if o.width < MinGridSize || o.height < MinGridSize {
		return nil, fmt.Errorf("%w: %dx%d", ErrGridTooSmall, o.width, o.height)
	}
	if o.gameID == "" {
		o.gameID = uuid.New().String()
	}

	grid := NewGrid(o.width, o.height)
	if err := GenerateTerrain(grid, mapType); err != nil {
		return nil, err
	}

	state := &GameState{
		GameID:              o.gameID,
		Status:              StatusSetup,
		MapType:             mapType,
		GridWidth:           o.width,
		GridHeight:          o.height,
		TurnTimerSeconds:    o.turnTimerSeconds,
		CurrentTurn:         1,
		CurrentPlayerIndex:  0,
		TurnOrder:           make([]string, 0, playerCount),
		Grid:                grid,
		Players:             make(map[string]*PlayerState, playerCount),
		Chests:              []ChestState{},
		RebelSpawnCountdown: RebelSpawnRounds,
	}

	colors := AllColors()
	for i, pos := range CastlePositions(playerCount, o.width, o.height) {
		id := fmt.Sprintf("player%d", i+1)
		PlaceCastle(grid, pos.X, pos.Y, id)
		state.Players[id] = NewPlayerState(id, fmt.Sprintf("Player %d", i+1), colors[i], pos)
		state.TurnOrder = append(state.TurnOrder, id)
	}
	return state, nil
}

// CastlePositions returns the castle anchors for playerCount seats. Two
// players take opposite corners; three or four fill the corners in turn.
func CastlePositions(playerCount, w, h int) []Position {
	corners := []Position{
		{X: 1, Y: h - 3},
		{X: w - 3, Y: 1},
		{X: 1, Y: 1},
		{X: w - 3, Y: h - 3},
	}
	if playerCount > len(corners) {
		playerCount = len(corners)
	}
	return corners[:playerCount]
}

// sortedPlayerIDs returns the player ids in a stable order.
func sortedPlayerIDs(players map[string]*PlayerState) []string {
	ids := make([]string, 0, len(players))
	for id := range players {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
