// Package match runs one Dice Dominion match. A Match is the single owner of
// its GameState, turn phase and RNG; presentation layers drive it with
// intents and read snapshots back. A Match is not safe for concurrent use.
package match

import (
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/topogame/dice-dominion-sub000/internal/dice"
	"github.com/topogame/dice-dominion-sub000/internal/game"
)

// Match drives a GameState through the turn machine.
type Match struct {
	state  *game.GameState
	phase  game.Phase
	rng    game.RNG
	logger zerolog.Logger
	events []Event
}

// New wraps a freshly created state. The match starts in the setup phase.
func New(state *game.GameState, rng game.RNG, logger zerolog.Logger) *Match {
	return &Match{
		state:  state,
		phase:  game.InitialPhase(),
		rng:    rng,
		logger: logger.With().Str("component", "Match").Str("game_id", state.GameID).Logger(),
	}
}

// Snapshot is the persisted form of a match.
type Snapshot struct {
	State *game.GameState `json:"state"`
	Phase game.Phase      `json:"phase"`
}

// Restore rebuilds a match from Snapshot bytes.
func Restore(data []byte, rng game.RNG, logger zerolog.Logger) (*Match, error) {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if snap.State == nil {
		return nil, fmt.Errorf("decode snapshot: missing state")
	}
	return Resume(snap.State, snap.Phase, rng, logger), nil
}

// Resume wraps a state that is already mid-match.
func Resume(state *game.GameState, phase game.Phase, rng game.RNG, logger zerolog.Logger) *Match {
	m := New(state, rng, logger)
	m.phase = phase
	return m
}

// Snapshot encodes the state and phase as JSON.
func (m *Match) Snapshot() ([]byte, error) {
	data, err := json.Marshal(Snapshot{State: m.state, Phase: m.phase})
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return data, nil
}

// State returns the live state. Callers must not mutate it.
func (m *Match) State() *game.GameState { return m.state }

// Phase returns the current turn phase.
func (m *Match) Phase() game.Phase { return m.phase }

// ID returns the game id.
func (m *Match) ID() string { return m.state.GameID }

// CurrentPlayerID returns the player who must act next. During the
// turn-order roll this is the next player to roll.
func (m *Match) CurrentPlayerID() string {
	if m.phase.Kind == game.PhaseTurnOrderRoll {
		return m.nextRoller()
	}
	if m.phase.Kind == game.PhaseSetup || m.phase.Kind == game.PhaseGameOver {
		return ""
	}
	return m.state.CurrentPlayerID()
}

// IsOver reports whether the match has a winner.
func (m *Match) IsOver() bool { return m.phase.Kind == game.PhaseGameOver }

// SetConnected records a player's connection status.
func (m *Match) SetConnected(playerID string, connected bool) {
	if p, ok := m.state.Players[playerID]; ok {
		p.IsConnected = connected
	}
}

// BeginTurnOrder moves the match from setup to the turn-order roll.
func (m *Match) BeginTurnOrder() error {
	if err := m.apply(game.Event{Kind: game.EventBeginTurnOrder}); err != nil {
		return err
	}
	m.record(EventTurnOrder, "", "turn order roll started")
	return nil
}

// RollTurnOrder rolls playerID's die for play order. After the last roll the
// turn order is fixed and the first turn begins.
func (m *Match) RollTurnOrder(playerID string) (int, error) {
	if err := m.requirePhase(game.PhaseTurnOrderRoll); err != nil {
		return 0, err
	}
	if playerID != m.nextRoller() {
		return 0, game.ErrNotYourTurn
	}
	roll := game.TurnOrderRoll{PlayerID: playerID, Roll: dice.D6(m.rng)}
	rolls := append(append([]game.TurnOrderRoll{}, m.phase.Rolls...), roll)
	if err := m.apply(game.Event{Kind: game.EventTurnOrderRoll, Roll: roll, RollTotal: len(m.state.TurnOrder)}); err != nil {
		return 0, err
	}
	m.record(EventTurnOrder, playerID, fmt.Sprintf("rolled %d for turn order", roll.Roll))

	if m.phase.Kind == game.PhaseSelectOption {
		m.state.TurnOrder = game.FinalizeTurnOrder(rolls)
		m.state.CurrentPlayerIndex = 0
		m.state.Status = game.StatusPlaying
		m.logger.Info().Strs("turn_order", m.state.TurnOrder).Msg("Turn order finalized")
	}
	return roll.Roll, nil
}

// SelectOption commits the current player to option A, B or C. Attacking
// options require an enemy next to the player's territory.
func (m *Match) SelectOption(playerID string, option game.TurnOption) error {
	if err := m.requireTurn(playerID); err != nil {
		return err
	}
	if err := m.requirePhase(game.PhaseSelectOption); err != nil {
		return err
	}
	plan, err := game.SelectTurnOption(option)
	if err != nil {
		return err
	}
	if plan.Mode == game.ModeAttacking && !game.PlayerHasAttackOptions(m.state.Grid, playerID) {
		return game.ErrNoAttackOptions
	}
	if err := m.apply(game.Event{Kind: game.EventSelectOption, Option: option}); err != nil {
		return err
	}
	m.record(EventOption, playerID, fmt.Sprintf("chose option %s", option))
	return nil
}

// RollDice rolls the option A die. The roll, plus one with a speed bonus,
// becomes the placement budget.
func (m *Match) RollDice(playerID string) (int, error) {
	if err := m.requireTurn(playerID); err != nil {
		return 0, err
	}
	if err := m.apply(game.Event{Kind: game.EventRollDice}); err != nil {
		return 0, err
	}
	roll := dice.D6(m.rng)
	budget := roll + m.speedBonus(playerID)
	if err := m.apply(game.Event{Kind: game.EventDiceRolled, Placements: budget}); err != nil {
		return 0, err
	}
	m.record(EventDice, playerID, fmt.Sprintf("rolled %d, %d placements", roll, budget))
	m.afterPlacementStep(playerID)
	return roll, nil
}

// PlaceAt places one unit from the current placement budget.
func (m *Match) PlaceAt(playerID string, x, y int) (game.PlacementResult, error) {
	if err := m.requireTurn(playerID); err != nil {
		return game.PlacementResult{}, err
	}
	if err := m.requirePhase(game.PhasePlacing); err != nil {
		return game.PlacementResult{}, err
	}
	res, err := game.PlaceUnit(m.state, x, y, playerID)
	if err != nil {
		return game.PlacementResult{}, err
	}
	if err := m.apply(game.Event{Kind: game.EventPlaced}); err != nil {
		return game.PlacementResult{}, err
	}
	m.logger.Debug().Str("player_id", playerID).Int("x", x).Int("y", y).Bool("bridge", res.UsedBridge).Msg("Unit placed")
	if res.Chest != nil {
		m.record(EventChest, playerID, fmt.Sprintf("collected %s", res.Chest.BonusName))
	}
	m.afterPlacementStep(playerID)
	return res, nil
}

// SelectAttacker picks the unit or castle that will attack.
func (m *Match) SelectAttacker(playerID string, x, y int) error {
	if err := m.requireTurn(playerID); err != nil {
		return err
	}
	if err := m.requirePhase(game.PhaseSelectAttacker); err != nil {
		return err
	}
	pos := game.Position{X: x, Y: y}
	if !game.CanAttackFrom(m.state.Grid, pos, playerID) {
		return game.ErrInvalidAttacker
	}
	return m.apply(game.Event{Kind: game.EventSelectAttacker, Position: pos})
}

// CombatReport is the result of SelectTarget.
type CombatReport struct {
	Attacker game.Position      `json:"attacker"`
	Target   game.Position      `json:"target"`
	Rolls    game.CombatRolls   `json:"rolls"`
	Outcome  game.CombatOutcome `json:"outcome"`
	Winner   string             `json:"winner,omitempty"`
}

// SelectTarget attacks an enemy next to the selected attacker and resolves
// the combat.
func (m *Match) SelectTarget(playerID string, x, y int) (CombatReport, error) {
	if err := m.requireTurn(playerID); err != nil {
		return CombatReport{}, err
	}
	if err := m.requirePhase(game.PhaseSelectTarget); err != nil {
		return CombatReport{}, err
	}
	attacker := *m.phase.Attacker
	target := game.Position{X: x, Y: y}
	valid := false
	for _, p := range game.CalculateAttackableEnemies(m.state.Grid, attacker, playerID) {
		if p == target {
			valid = true
			break
		}
	}
	if !valid {
		return CombatReport{}, game.ErrInvalidTarget
	}
	if err := m.apply(game.Event{Kind: game.EventSelectTarget, Position: target}); err != nil {
		return CombatReport{}, err
	}

	player := m.state.Players[playerID]
	rolls := game.ResolveCombatRolls(dice.D6(m.rng), dice.D6(m.rng),
		player.HasBonus(game.BonusAttack), game.DefenderHasBonus(m.state, target))
	defender := m.state.Grid[target.Y][target.X].Owner
	outcome := game.ApplyCombatResult(m.state, attacker, target, rolls.AttackerWins, playerID)
	report := CombatReport{Attacker: attacker, Target: target, Rolls: rolls, Outcome: outcome}

	m.logger.Info().
		Str("player_id", playerID).
		Str("defender", defender.String()).
		Int("attack", rolls.FinalAttacker).
		Int("defense", rolls.FinalDefender).
		Bool("attacker_wins", rolls.AttackerWins).
		Msg("Combat resolved")
	m.record(EventCombat, playerID, combatMessage(defender, rolls, outcome))

	if outcome.EliminatedPlayer != "" {
		m.record(EventElimination, outcome.EliminatedPlayer, fmt.Sprintf("eliminated by %s", playerID))
		if winner, ok := game.CheckVictory(m.state.TurnOrder); ok {
			m.finish(winner)
			report.Winner = winner
			return report, nil
		}
	}

	err := m.apply(game.Event{
		Kind:           game.EventCombatResolved,
		AttackerWon:    rolls.AttackerWins,
		HasMoreTargets: game.PlayerHasAttackOptions(m.state.Grid, playerID),
		Placements:     1 + m.speedBonus(playerID),
	})
	if err != nil {
		return report, err
	}
	m.afterPlacementStep(playerID)
	return report, nil
}

// EndTurn ends the current player's turn, discarding any unused budget.
func (m *Match) EndTurn(playerID string) error {
	if err := m.requireTurn(playerID); err != nil {
		return err
	}
	if err := m.apply(game.Event{Kind: game.EventEndTurn}); err != nil {
		return err
	}
	m.record(EventEndTurn, playerID, "ended turn")
	m.advance()
	return nil
}

// Timeout forces the acting player's turn to end. During the turn-order roll
// it rolls on the player's behalf.
func (m *Match) Timeout() error {
	switch m.phase.Kind {
	case game.PhaseGameOver:
		return game.ErrGameOver
	case game.PhaseTurnOrderRoll:
		_, err := m.RollTurnOrder(m.nextRoller())
		return err
	}
	playerID := m.state.CurrentPlayerID()
	if err := m.apply(game.Event{Kind: game.EventTimeout}); err != nil {
		return err
	}
	m.record(EventTimeout, playerID, "turn timed out")
	m.logger.Info().Str("player_id", playerID).Int("turn", m.state.CurrentTurn).Msg("Turn timed out")
	m.advance()
	return nil
}

// Cancel backs out of attacker or target selection without touching the
// game state.
func (m *Match) Cancel(playerID string) error {
	if err := m.requireTurn(playerID); err != nil {
		return err
	}
	return m.apply(game.Event{Kind: game.EventCancel})
}

// ValidPlacements returns the cells the acting player may place on now.
func (m *Match) ValidPlacements(playerID string) []game.Position {
	set := game.CalculateValidPlacements(m.state.Grid, playerID)
	if p, ok := m.state.Players[playerID]; ok && p.CanBuildBridge() {
		for pos := range game.CalculateBridgePlacements(m.state.Grid, playerID) {
			set[pos] = struct{}{}
		}
	}
	return set.Sorted()
}

func (m *Match) apply(e game.Event) error {
	next, err := game.Transition(m.phase, e)
	if err != nil {
		return err
	}
	m.phase = next
	return nil
}

func (m *Match) requirePhase(kind game.PhaseKind) error {
	if m.phase.Kind == game.PhaseGameOver {
		return game.ErrGameOver
	}
	if m.phase.Kind != kind {
		return fmt.Errorf("%w: %s", game.ErrInvalidAction, m.phase.Kind)
	}
	return nil
}

// requireTurn checks that playerID is alive and holds the current turn.
func (m *Match) requireTurn(playerID string) error {
	if m.phase.Kind == game.PhaseGameOver {
		return game.ErrGameOver
	}
	p, ok := m.state.Players[playerID]
	if !ok || !p.IsAlive {
		return game.ErrPlayerEliminated
	}
	if !m.phase.IsTurnActive() || m.state.CurrentPlayerID() != playerID {
		return game.ErrNotYourTurn
	}
	return nil
}

func (m *Match) nextRoller() string {
	i := len(m.phase.Rolls)
	if i >= len(m.state.TurnOrder) {
		return ""
	}
	return m.state.TurnOrder[i]
}

func (m *Match) speedBonus(playerID string) int {
	if p, ok := m.state.Players[playerID]; ok && p.HasBonus(game.BonusSpeed) {
		return 1
	}
	return 0
}

// afterPlacementStep ends the turn when the budget is spent or nothing is
// left to place on.
func (m *Match) afterPlacementStep(playerID string) {
	if m.phase.Kind == game.PhasePlacing && !game.HasPlacementOptions(m.state, playerID) {
		_ = m.apply(game.Event{Kind: game.EventEndTurn})
	}
	if m.phase.Kind == game.PhaseTurnComplete {
		m.advance()
	}
}

// advance hands the turn to the next player, running round upkeep when play
// wraps to the first seat.
func (m *Match) advance() {
	s := m.state
	if p, ok := s.Players[s.CurrentPlayerID()]; ok {
		game.DecrementBonuses(p)
	}
	prevTurn := s.CurrentTurn
	s.CurrentPlayerIndex, s.CurrentTurn = game.AdvanceToNextPlayer(s.CurrentPlayerIndex, len(s.TurnOrder), s.CurrentTurn)
	if s.CurrentTurn != prevTurn {
		m.roundUpkeep()
	}
	// Cannot fail from turnComplete.
	_ = m.apply(game.Event{Kind: game.EventNextPlayer})
	m.logger.Debug().Str("player_id", s.CurrentPlayerID()).Int("turn", s.CurrentTurn).Msg("Next player")
}

func (m *Match) roundUpkeep() {
	s := m.state
	for _, id := range game.RegenerateCastles(s) {
		m.record(EventCastleRegen, id, fmt.Sprintf("castle repaired to %d HP", s.Players[id].CastleHP))
	}
	if pos, ok := game.TickRebels(s, m.rng); ok {
		m.record(EventRebelSpawn, "", fmt.Sprintf("rebels appeared at (%d,%d)", pos.X, pos.Y))
	}
	if s.CurrentTurn%game.ChestSpawnInterval == 0 {
		if chest, ok := game.SpawnChest(s, m.rng); ok {
			m.record(EventChestSpawn, "", fmt.Sprintf("%s chest at (%d,%d)", chest.BonusType.Name(), chest.X, chest.Y))
		}
	}
}

func (m *Match) finish(winner string) {
	_ = m.apply(game.Event{Kind: game.EventVictory, Winner: winner})
	m.state.Status = game.StatusFinished
	m.state.Winner = winner
	m.record(EventVictory, winner, "won the match")
	m.logger.Info().Str("winner", winner).Int("turn", m.state.CurrentTurn).Msg("Match finished")
}

func combatMessage(defender game.Owner, rolls game.CombatRolls, out game.CombatOutcome) string {
	result := "lost"
	if rolls.AttackerWins {
		result = "won"
	}
	msg := fmt.Sprintf("attacked %s (%d vs %d) and %s", defender, rolls.FinalAttacker, rolls.FinalDefender, result)
	if out.CastleDamaged && out.NewCastleHP != nil {
		msg += fmt.Sprintf(", castle at %d HP", *out.NewCastleHP)
	}
	return msg
}
