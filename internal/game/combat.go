package game

// CombatRolls is the arithmetic of a single attack.
type CombatRolls struct {
	AttackerRoll  int  `json:"attackerRoll"`
	DefenderRoll  int  `json:"defenderRoll"`
	FinalAttacker int  `json:"finalAttacker"`
	FinalDefender int  `json:"finalDefender"`
	IsTie         bool `json:"isTie"`
	AttackerWins  bool `json:"attackerWins"`
}

// ResolveCombatRolls applies +1 bonuses and compares totals. Ties go to the
// defender.
func ResolveCombatRolls(attackerRoll, defenderRoll int, hasAttackBonus, hasDefenseBonus bool) CombatRolls {
	r := CombatRolls{
		AttackerRoll:  attackerRoll,
		DefenderRoll:  defenderRoll,
		FinalAttacker: attackerRoll,
		FinalDefender: defenderRoll,
	}
	if hasAttackBonus {
		r.FinalAttacker++
	}
	if hasDefenseBonus {
		r.FinalDefender++
	}
	r.IsTie = r.FinalAttacker == r.FinalDefender
	r.AttackerWins = r.FinalAttacker > r.FinalDefender
	return r
}

// CombatOutcome describes what ApplyCombatResult changed.
type CombatOutcome struct {
	AttackerWins      bool   `json:"attackerWins"`
	CastleDamaged     bool   `json:"castleDamaged,omitempty"`
	NewCastleHP       *int   `json:"newCastleHP,omitempty"`
	EliminatedPlayer  string `json:"eliminatedPlayer,omitempty"`
	UnitCaptured      bool   `json:"unitCaptured,omitempty"`
	RebelDefeated     bool   `json:"rebelDefeated,omitempty"`
	AttackerDestroyed bool   `json:"attackerDestroyed,omitempty"`
}

// ApplyCombatResult mutates the grid and players for a resolved attack from
// attackerPos onto defenderPos by attackerID.
//
// A losing attacker unit is removed; a losing attack launched from a castle
// leaves the castle untouched. A winning attack captures a unit cell, or
// damages a castle by one HP. A castle reduced to zero HP eliminates its
// owner and its four cells become units of the attacker.
func ApplyCombatResult(state *GameState, attackerPos, defenderPos Position, attackerWins bool, attackerID string) CombatOutcome {
	out := CombatOutcome{AttackerWins: attackerWins}
	grid := state.Grid
	attacker := state.Players[attackerID]
	atkCell := &grid[attackerPos.Y][attackerPos.X]
	defCell := &grid[defenderPos.Y][defenderPos.X]

	if !attackerWins {
		if atkCell.Type == CellUnit {
			atkCell.clear()
			attacker.UnitCount--
			attacker.RefreshLevel()
			out.AttackerDestroyed = true
		}
		return out
	}

	if defCell.Type == CellCastle {
		defender := state.Players[defCell.Owner.PlayerID]
		defender.CastleHP--
		if defender.CastleFirstDamageTurn == nil {
			turn := state.CurrentTurn
			defender.CastleFirstDamageTurn = &turn
		}
		hp := defender.CastleHP
		out.CastleDamaged = true
		out.NewCastleHP = &hp
		if defender.CastleHP <= 0 {
			castle := defender.CastlePosition
			EliminatePlayer(state, defender.ID)
			out.EliminatedPlayer = defender.ID
			for dy := 0; dy < CastleSize; dy++ {
				for dx := 0; dx < CastleSize; dx++ {
					c := &grid[castle.Y+dy][castle.X+dx]
					c.Type = CellUnit
					c.Owner = PlayerOwner(attackerID)
					c.IsCastle = false
					attacker.UnitCount++
				}
			}
			attacker.RefreshLevel()
		}
		return out
	}

	switch defCell.Owner.Kind {
	case OwnerRebel:
		removeRebelUnit(state, defenderPos)
		out.RebelDefeated = true
	case OwnerPlayer:
		defender := state.Players[defCell.Owner.PlayerID]
		defender.UnitCount--
		defender.RefreshLevel()
	}
	defCell.Owner = PlayerOwner(attackerID)
	attacker.UnitCount++
	attacker.RefreshLevel()
	out.UnitCaptured = true
	return out
}

// PostCombatStep is where a turn goes after a combat.
type PostCombatStep string

const (
	StepDone      PostCombatStep = "done"
	StepPlacing   PostCombatStep = "placing"
	StepAttacking PostCombatStep = "attacking"
)

// DetermineNextPhaseAfterCombat routes the turn after an attack. Option A
// never reaches combat.
func DetermineNextPhaseAfterCombat(attackerWon bool, option TurnOption, attacksRemaining int, hasMoreTargets bool) PostCombatStep {
	switch {
	case !attackerWon:
		return StepDone
	case option == OptionB:
		return StepPlacing
	case option == OptionC && attacksRemaining > 0 && hasMoreTargets:
		return StepAttacking
	default:
		return StepDone
	}
}

// DefenderHasBonus reports whether the holder of the cell at p has an active
// defense bonus.
func DefenderHasBonus(state *GameState, p Position) bool {
	cell := state.Grid[p.Y][p.X]
	switch cell.Owner.Kind {
	case OwnerPlayer:
		if d, ok := state.Players[cell.Owner.PlayerID]; ok {
			return HasActiveBonus(d.ActiveBonuses, BonusDefense)
		}
	case OwnerRebel:
		if state.Rebels != nil {
			return HasActiveBonus(state.Rebels.ActiveBonuses, BonusDefense)
		}
	}
	return false
}
