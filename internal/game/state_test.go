package game

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// Helper to create a fresh flat-map state with a fixed id.
func createTestGameState(t *testing.T, players int) *GameState {
	t.Helper()
	g, err := CreateInitialGameState(players, MapFlat, WithGameID("test-game"))
	require.NoError(t, err)
	return g
}

// Helper to drop a unit for playerID onto (x, y), keeping unitCount in step.
func placeTestUnit(g *GameState, x, y int, playerID string) {
	c := &g.Grid[y][x]
	c.Type = CellUnit
	c.Owner = PlayerOwner(playerID)
	g.Players[playerID].UnitCount++
}

// requireUnitCountsConsistent checks every player's unitCount against the grid.
func requireUnitCountsConsistent(t *testing.T, g *GameState) {
	t.Helper()
	total := 0
	for id, p := range g.Players {
		require.Equalf(t, g.Grid.CountUnits(PlayerOwner(id)), p.UnitCount, "unitCount drift for %s", id)
		total += p.UnitCount
	}
	rebels := 0
	if g.Rebels != nil {
		rebels = len(g.Rebels.Units)
	}
	unitCells := 0
	for y := range g.Grid {
		for x := range g.Grid[y] {
			if g.Grid[y][x].Type == CellUnit {
				unitCells++
			}
		}
	}
	require.Equal(t, unitCells, total+rebels)
}

func TestGameState_SnapshotRoundTrip(t *testing.T) {
	g := createTestGameState(t, 3)
	placeTestUnit(g, 3, 14, "player1")
	turn := 2
	g.Players["player2"].CastleFirstDamageTurn = &turn
	g.Players["player2"].CastleHP = 3
	g.Chests = append(g.Chests, ChestState{X: 8, Y: 8, BonusType: BonusBridge})
	g.Grid[8][8].Type = CellChest
	_, ok := SpawnRebel(g, func() float64 { return 0.5 })
	require.True(t, ok)

	data, err := g.Marshal()
	require.NoError(t, err)

	restored, err := UnmarshalGameState(data)
	require.NoError(t, err)
	require.Equal(t, g, restored)
}

func TestGameState_OwnerEncoding(t *testing.T) {
	g := createTestGameState(t, 2)
	g.Grid[5][5].Owner = RebelOwner()

	data, err := g.Marshal()
	require.NoError(t, err)
	require.Contains(t, string(data), `"ownerId":"rebel"`)
	require.Contains(t, string(data), `"ownerId":"player1"`)
	require.Contains(t, string(data), `"ownerId":null`)
}

func TestGameState_CurrentPlayerID(t *testing.T) {
	g := createTestGameState(t, 2)
	require.Equal(t, "player1", g.CurrentPlayerID())

	g.CurrentPlayerIndex = 1
	require.Equal(t, "player2", g.CurrentPlayerID())

	g.TurnOrder = nil
	require.Equal(t, "", g.CurrentPlayerID())
}

func TestUnmarshalGameState_Invalid(t *testing.T) {
	_, err := UnmarshalGameState([]byte(`{"grid":`))
	require.Error(t, err)
}
