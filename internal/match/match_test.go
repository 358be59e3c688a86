package match

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/topogame/dice-dominion-sub000/internal/dice"
	"github.com/topogame/dice-dominion-sub000/internal/game"
)

func newTestMatch(t *testing.T, players int, rng game.RNG) *Match {
	t.Helper()
	state, err := game.CreateInitialGameState(players, game.MapFlat, game.WithGameID("match-test"))
	require.NoError(t, err)
	return New(state, rng, zerolog.Nop())
}

// newPlayingMatch skips the turn-order roll: player1 acts first.
func newPlayingMatch(t *testing.T, rng game.RNG) *Match {
	t.Helper()
	m := newTestMatch(t, 2, rng)
	m.state.Status = game.StatusPlaying
	m.phase = game.Phase{Kind: game.PhaseSelectOption}
	return m
}

func placeUnit(m *Match, x, y int, playerID string) {
	c := &m.state.Grid[y][x]
	c.Type = game.CellUnit
	c.Owner = game.PlayerOwner(playerID)
	m.state.Players[playerID].UnitCount++
}

func requireConsistent(t *testing.T, m *Match) {
	t.Helper()
	s := m.state
	units := 0
	for y := range s.Grid {
		for x := range s.Grid[y] {
			if s.Grid[y][x].Type == game.CellUnit {
				units++
			}
		}
	}
	total := 0
	for id, p := range s.Players {
		require.Equalf(t, s.Grid.CountUnits(game.PlayerOwner(id)), p.UnitCount, "unitCount drift for %s", id)
		require.GreaterOrEqual(t, p.CastleHP, 0)
		require.LessOrEqual(t, p.CastleHP, p.CastleMaxHP)
		total += p.UnitCount
	}
	if s.Rebels != nil {
		total += len(s.Rebels.Units)
	}
	require.Equal(t, units, total)
	for _, id := range s.TurnOrder {
		require.True(t, s.Players[id].IsAlive, "dead player %s in turn order", id)
	}
	if len(s.TurnOrder) > 0 {
		require.Less(t, s.CurrentPlayerIndex, len(s.TurnOrder))
	}
}

func TestMatch_TurnOrderRoll(t *testing.T) {
	m := newTestMatch(t, 2, dice.Faces(2, 6))
	require.Equal(t, "", m.CurrentPlayerID())

	require.NoError(t, m.BeginTurnOrder())
	require.Equal(t, "player1", m.CurrentPlayerID())

	_, err := m.RollTurnOrder("player2")
	require.ErrorIs(t, err, game.ErrNotYourTurn)

	roll, err := m.RollTurnOrder("player1")
	require.NoError(t, err)
	require.Equal(t, 2, roll)
	require.Equal(t, game.StatusSetup, m.State().Status)

	roll, err = m.RollTurnOrder("player2")
	require.NoError(t, err)
	require.Equal(t, 6, roll)

	require.Equal(t, []string{"player2", "player1"}, m.State().TurnOrder)
	require.Equal(t, game.StatusPlaying, m.State().Status)
	require.Equal(t, game.PhaseSelectOption, m.Phase().Kind)
	require.Equal(t, "player2", m.CurrentPlayerID())

	events := m.TakeEvents()
	require.Len(t, events, 3)
	require.Empty(t, m.TakeEvents())
}

func TestMatch_OptionAPlacementAndRoundUpkeep(t *testing.T) {
	rng := dice.Sequence(dice.Face(2, 6), dice.Face(6, 6), dice.Face(3, 6), 0.5, 0.5, 0.1)
	m := newTestMatch(t, 2, rng)
	require.NoError(t, m.BeginTurnOrder())
	_, err := m.RollTurnOrder("player1")
	require.NoError(t, err)
	_, err = m.RollTurnOrder("player2")
	require.NoError(t, err)

	require.NoError(t, m.SelectOption("player2", game.OptionA))
	require.Equal(t, game.PhaseWaiting, m.Phase().Kind)

	roll, err := m.RollDice("player2")
	require.NoError(t, err)
	require.Equal(t, 3, roll)
	require.Equal(t, game.PhasePlacing, m.Phase().Kind)
	require.Equal(t, 3, m.Phase().PlacementsRemaining)

	_, err = m.PlaceAt("player2", 9, 9)
	require.ErrorIs(t, err, game.ErrInvalidPlacement)

	for _, p := range []game.Position{{X: 14, Y: 1}, {X: 14, Y: 2}, {X: 15, Y: 3}} {
		_, err := m.PlaceAt("player2", p.X, p.Y)
		require.NoError(t, err)
	}
	require.Equal(t, 3, m.State().Players["player2"].UnitCount)
	require.Equal(t, "player1", m.CurrentPlayerID())
	require.Equal(t, game.PhaseSelectOption, m.Phase().Kind)
	require.Equal(t, 1, m.State().CurrentTurn)

	require.NoError(t, m.EndTurn("player1"))
	require.Equal(t, 2, m.State().CurrentTurn)
	require.Equal(t, "player2", m.CurrentPlayerID())
	require.Equal(t, game.RebelSpawnRounds-1, m.State().RebelSpawnCountdown)
	require.Len(t, m.State().Chests, 1)
	require.Equal(t, game.ChestState{X: 9, Y: 9, BonusType: game.BonusAttack}, m.State().Chests[0])
	requireConsistent(t, m)
}

func TestMatch_SpeedBonusAddsPlacement(t *testing.T) {
	m := newPlayingMatch(t, dice.Faces(3))
	m.state.Players["player1"].ActiveBonuses = []game.ActiveBonus{{Type: game.BonusSpeed, TurnsRemaining: 2}}

	require.NoError(t, m.SelectOption("player1", game.OptionA))
	_, err := m.RollDice("player1")
	require.NoError(t, err)
	require.Equal(t, 4, m.Phase().PlacementsRemaining)
}

func TestMatch_OptionBWinGrantsPlacement(t *testing.T) {
	m := newPlayingMatch(t, dice.Faces(5, 2))
	placeUnit(m, 5, 5, "player1")
	placeUnit(m, 6, 5, "player2")

	require.NoError(t, m.SelectOption("player1", game.OptionB))
	require.NoError(t, m.SelectAttacker("player1", 5, 5))

	report, err := m.SelectTarget("player1", 6, 5)
	require.NoError(t, err)
	require.True(t, report.Rolls.AttackerWins)
	require.True(t, report.Outcome.UnitCaptured)
	require.Equal(t, game.PhasePlacing, m.Phase().Kind)
	require.Equal(t, 1, m.Phase().PlacementsRemaining)

	_, err = m.PlaceAt("player1", 7, 5)
	require.NoError(t, err)
	require.Equal(t, "player2", m.CurrentPlayerID())
	require.Equal(t, 3, m.State().Players["player1"].UnitCount)
	requireConsistent(t, m)
}

func TestMatch_LostAttackEndsTurn(t *testing.T) {
	m := newPlayingMatch(t, dice.Faces(4, 4))
	placeUnit(m, 5, 5, "player1")
	placeUnit(m, 6, 5, "player2")

	require.NoError(t, m.SelectOption("player1", game.OptionC))
	require.NoError(t, m.SelectAttacker("player1", 5, 5))
	report, err := m.SelectTarget("player1", 6, 5)
	require.NoError(t, err)
	require.True(t, report.Rolls.IsTie)
	require.True(t, report.Outcome.AttackerDestroyed)
	require.Equal(t, "player2", m.CurrentPlayerID())
	require.Equal(t, game.PhaseSelectOption, m.Phase().Kind)
	requireConsistent(t, m)
}

func TestMatch_OptionCSecondAttack(t *testing.T) {
	m := newPlayingMatch(t, dice.Faces(6, 1, 6, 1))
	placeUnit(m, 5, 5, "player1")
	placeUnit(m, 6, 5, "player2")
	placeUnit(m, 7, 5, "player2")

	require.NoError(t, m.SelectOption("player1", game.OptionC))
	require.NoError(t, m.SelectAttacker("player1", 5, 5))
	_, err := m.SelectTarget("player1", 6, 5)
	require.NoError(t, err)
	require.Equal(t, game.PhaseSelectAttacker, m.Phase().Kind)
	require.Equal(t, 1, m.Phase().AttacksRemaining)

	require.NoError(t, m.SelectAttacker("player1", 6, 5))
	_, err = m.SelectTarget("player1", 7, 5)
	require.NoError(t, err)
	require.Equal(t, "player2", m.CurrentPlayerID())
	require.Equal(t, 3, m.State().Players["player1"].UnitCount)
	requireConsistent(t, m)
}

func TestMatch_CastleCaptureWinsMatch(t *testing.T) {
	m := newPlayingMatch(t, dice.Faces(6, 1))
	placeUnit(m, 14, 1, "player1")
	m.state.Players["player2"].CastleHP = 1

	require.NoError(t, m.SelectOption("player1", game.OptionC))
	require.NoError(t, m.SelectAttacker("player1", 14, 1))
	report, err := m.SelectTarget("player1", 15, 1)
	require.NoError(t, err)

	require.Equal(t, "player1", report.Winner)
	require.Equal(t, "player2", report.Outcome.EliminatedPlayer)
	require.True(t, m.IsOver())
	require.Equal(t, game.Phase{Kind: game.PhaseGameOver, Winner: "player1"}, m.Phase())
	require.Equal(t, game.StatusFinished, m.State().Status)
	require.Equal(t, "player1", m.State().Winner)
	requireConsistent(t, m)

	require.ErrorIs(t, m.EndTurn("player1"), game.ErrGameOver)
	require.ErrorIs(t, m.Timeout(), game.ErrGameOver)
}

func TestMatch_OptionRequiresAttackTargets(t *testing.T) {
	m := newPlayingMatch(t, dice.Faces(1))
	require.ErrorIs(t, m.SelectOption("player1", game.OptionB), game.ErrNoAttackOptions)
	require.ErrorIs(t, m.SelectOption("player1", "X"), game.ErrInvalidOption)
	require.Equal(t, game.PhaseSelectOption, m.Phase().Kind)
}

func TestMatch_InvalidAttackerAndTarget(t *testing.T) {
	m := newPlayingMatch(t, dice.Faces(1))
	placeUnit(m, 5, 5, "player1")
	placeUnit(m, 6, 5, "player2")
	placeUnit(m, 9, 9, "player2")

	require.NoError(t, m.SelectOption("player1", game.OptionB))
	require.ErrorIs(t, m.SelectAttacker("player1", 9, 9), game.ErrInvalidAttacker)
	require.ErrorIs(t, m.SelectAttacker("player1", 0, 0), game.ErrInvalidAttacker)
	require.NoError(t, m.SelectAttacker("player1", 5, 5))

	_, err := m.SelectTarget("player1", 9, 9)
	require.ErrorIs(t, err, game.ErrInvalidTarget)
	require.Equal(t, game.PhaseSelectTarget, m.Phase().Kind)
}

func TestMatch_CancelIsNoOp(t *testing.T) {
	m := newPlayingMatch(t, dice.Faces(1))
	placeUnit(m, 5, 5, "player1")
	placeUnit(m, 6, 5, "player2")
	require.NoError(t, m.SelectOption("player1", game.OptionC))

	before, err := m.State().Marshal()
	require.NoError(t, err)

	require.NoError(t, m.SelectAttacker("player1", 5, 5))
	require.NoError(t, m.Cancel("player1"))
	require.Equal(t, game.PhaseSelectAttacker, m.Phase().Kind)
	require.Nil(t, m.Phase().Attacker)
	require.NoError(t, m.Cancel("player1"))

	after, err := m.State().Marshal()
	require.NoError(t, err)
	require.JSONEq(t, string(before), string(after))
}

func TestMatch_TimeoutDiscardsBudget(t *testing.T) {
	m := newPlayingMatch(t, dice.Faces(5))
	require.NoError(t, m.SelectOption("player1", game.OptionA))
	_, err := m.RollDice("player1")
	require.NoError(t, err)
	require.Equal(t, game.PhasePlacing, m.Phase().Kind)

	require.NoError(t, m.Timeout())
	require.Equal(t, "player2", m.CurrentPlayerID())
	require.Equal(t, game.Phase{Kind: game.PhaseSelectOption}, m.Phase())
	require.Zero(t, m.State().Players["player1"].UnitCount)
}

func TestMatch_TimeoutRollsTurnOrder(t *testing.T) {
	m := newTestMatch(t, 2, dice.Faces(4, 4))
	require.NoError(t, m.BeginTurnOrder())
	require.NoError(t, m.Timeout())
	require.NoError(t, m.Timeout())
	require.Equal(t, []string{"player1", "player2"}, m.State().TurnOrder)
	require.Equal(t, game.PhaseSelectOption, m.Phase().Kind)
}

func TestMatch_RejectsWrongPlayer(t *testing.T) {
	m := newPlayingMatch(t, dice.Faces(1))
	require.ErrorIs(t, m.SelectOption("player2", game.OptionA), game.ErrNotYourTurn)
	require.ErrorIs(t, m.EndTurn("nobody"), game.ErrPlayerEliminated)

	m.state.Players["player2"].IsAlive = false
	require.ErrorIs(t, m.SelectOption("player2", game.OptionA), game.ErrPlayerEliminated)
}

func TestMatch_BonusesAgeAtEndOfOwnTurn(t *testing.T) {
	m := newPlayingMatch(t, dice.Faces(1))
	m.state.Players["player1"].ActiveBonuses = []game.ActiveBonus{{Type: game.BonusAttack, TurnsRemaining: 1}}
	m.state.Players["player2"].ActiveBonuses = []game.ActiveBonus{{Type: game.BonusAttack, TurnsRemaining: 1}}

	require.NoError(t, m.EndTurn("player1"))
	require.Empty(t, m.State().Players["player1"].ActiveBonuses)
	require.Len(t, m.State().Players["player2"].ActiveBonuses, 1)
}

func TestMatch_SnapshotRestore(t *testing.T) {
	m := newPlayingMatch(t, dice.Faces(1))
	placeUnit(m, 5, 5, "player1")
	placeUnit(m, 6, 5, "player2")
	require.NoError(t, m.SelectOption("player1", game.OptionC))
	require.NoError(t, m.SelectAttacker("player1", 5, 5))

	data, err := m.Snapshot()
	require.NoError(t, err)

	restored, err := Restore(data, dice.Faces(6, 1), zerolog.Nop())
	require.NoError(t, err)
	require.Equal(t, m.State(), restored.State())
	require.Equal(t, m.Phase(), restored.Phase())

	_, err = restored.SelectTarget("player1", 6, 5)
	require.NoError(t, err)

	_, err = Restore([]byte(`{}`), dice.Faces(1), zerolog.Nop())
	require.Error(t, err)
}

func TestMatch_SetConnected(t *testing.T) {
	m := newTestMatch(t, 2, dice.Faces(1))
	m.SetConnected("player1", true)
	require.True(t, m.State().Players["player1"].IsConnected)
	m.SetConnected("ghost", true)
}
