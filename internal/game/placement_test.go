package game

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPlaceUnit_Frontier(t *testing.T) {
	g := createTestGameState(t, 2)

	res, err := PlaceUnit(g, 3, 15, "player1")
	require.NoError(t, err)
	require.Equal(t, Position{X: 3, Y: 15}, res.Position)
	require.False(t, res.UsedBridge)
	require.Nil(t, res.Chest)
	require.Equal(t, CellUnit, g.Grid[15][3].Type)
	require.Equal(t, 1, g.Players["player1"].UnitCount)

	// The new unit extends the frontier.
	_, err = PlaceUnit(g, 4, 15, "player1")
	require.NoError(t, err)
	requireUnitCountsConsistent(t, g)
}

func TestPlaceUnit_Rejected(t *testing.T) {
	g := createTestGameState(t, 2)
	g.Grid[14][1].Type = CellMountain

	tests := []struct {
		name string
		x, y int
		id   string
		err  error
	}{
		{"not adjacent", 9, 9, "player1", ErrInvalidPlacement},
		{"impassable", 1, 14, "player1", ErrInvalidPlacement},
		{"occupied castle", 1, 15, "player1", ErrInvalidPlacement},
		{"out of bounds", -1, 15, "player1", ErrInvalidPlacement},
		{"unknown player", 3, 15, "ghost", ErrPlayerEliminated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := PlaceUnit(g, tt.x, tt.y, tt.id)
			require.ErrorIs(t, err, tt.err)
		})
	}
	require.Zero(t, g.Players["player1"].UnitCount)
}

func TestPlaceUnit_CollectsChest(t *testing.T) {
	g := createTestGameState(t, 2)
	g.Chests = []ChestState{{X: 3, Y: 16, BonusType: BonusSpeed}}
	g.Grid[16][3].Type = CellChest

	res, err := PlaceUnit(g, 3, 16, "player1")
	require.NoError(t, err)
	require.NotNil(t, res.Chest)
	require.Equal(t, BonusSpeed, res.Chest.BonusType)
	require.True(t, g.Chests[0].IsCollected)
	require.True(t, g.Players["player1"].HasBonus(BonusSpeed))
	require.Equal(t, CellUnit, g.Grid[16][3].Type)
	requireUnitCountsConsistent(t, g)
}

func TestPlaceUnit_BridgeBonusCrossesRiver(t *testing.T) {
	g := createTestGameState(t, 2)
	g.Grid[14][1].Type = CellRiver

	_, err := PlaceUnit(g, 1, 14, "player1")
	require.ErrorIs(t, err, ErrInvalidPlacement)

	g.Players["player1"].ActiveBonuses = []ActiveBonus{newActiveBonus(BonusBridge)}
	res, err := PlaceUnit(g, 1, 14, "player1")
	require.NoError(t, err)
	require.True(t, res.UsedBridge)
	require.Equal(t, 1, *g.Players["player1"].ActiveBonuses[0].UsesRemaining)
	require.True(t, g.Grid[14][1].Owner.IsPlayer("player1"))
	requireUnitCountsConsistent(t, g)
}

func TestHasPlacementOptions(t *testing.T) {
	g := createTestGameState(t, 2)
	require.True(t, HasPlacementOptions(g, "player1"))

	for _, p := range CalculateValidPlacements(g.Grid, "player1").Sorted() {
		g.Grid[p.Y][p.X].Type = CellRiver
	}
	require.False(t, HasPlacementOptions(g, "player1"))

	g.Players["player1"].ActiveBonuses = []ActiveBonus{newActiveBonus(BonusBridge)}
	require.True(t, HasPlacementOptions(g, "player1"))
}
