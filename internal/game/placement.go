package game

// PlacementResult reports the side effects of a placed unit.
type PlacementResult struct {
	Position   Position     `json:"position"`
	UsedBridge bool         `json:"usedBridge,omitempty"`
	Chest      *ChestReward `json:"chest,omitempty"`
}

// PlaceUnit puts a unit for playerID on (x, y). The target must be on the
// player's expansion frontier, or a river next to its territory while it
// holds a bridge bonus, which spends one use. A chest on the target is
// collected.
func PlaceUnit(state *GameState, x, y int, playerID string) (PlacementResult, error) {
	p, ok := state.Players[playerID]
	if !ok || !p.IsAlive {
		return PlacementResult{}, ErrPlayerEliminated
	}
	cell := state.Grid.At(x, y)
	if cell == nil {
		return PlacementResult{}, ErrInvalidPlacement
	}
	pos := Position{X: x, Y: y}
	res := PlacementResult{Position: pos}

	switch {
	case CalculateValidPlacements(state.Grid, playerID).Contains(pos):
	case cell.Type == CellRiver && p.CanBuildBridge() &&
		CalculateBridgePlacements(state.Grid, playerID).Contains(pos):
		ConsumeBridgeUse(p)
		res.UsedBridge = true
	default:
		return PlacementResult{}, ErrInvalidPlacement
	}

	wasChest := cell.Type == CellChest
	cell.Type = CellUnit
	cell.Owner = PlayerOwner(playerID)
	cell.IsCastle = false
	p.UnitCount++
	p.RefreshLevel()

	if wasChest {
		if reward, ok := CollectChest(state, x, y, playerID); ok {
			res.Chest = &reward
		}
	}
	return res, nil
}

// HasPlacementOptions reports whether playerID can place at least one unit.
func HasPlacementOptions(state *GameState, playerID string) bool {
	if len(CalculateValidPlacements(state.Grid, playerID)) > 0 {
		return true
	}
	p, ok := state.Players[playerID]
	return ok && p.CanBuildBridge() && len(CalculateBridgePlacements(state.Grid, playerID)) > 0
}
