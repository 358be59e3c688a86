package game

// RebelSpawnRounds is the number of rounds between rebel spawns.
const RebelSpawnRounds = 5

// TickRebels counts down to the next rebel spawn and, when it reaches zero,
// places a rebel unit on a free cell away from every castle. Rebel bonuses
// age by one turn on every tick.
func TickRebels(state *GameState, rng RNG) (Position, bool) {
	if state.Rebels != nil {
		state.Rebels.ActiveBonuses = decrementBonusList(state.Rebels.ActiveBonuses)
	}
	state.RebelSpawnCountdown--
	if state.RebelSpawnCountdown > 0 {
		return Position{}, false
	}
	state.RebelSpawnCountdown = RebelSpawnRounds
	return SpawnRebel(state, rng)
}

// SpawnRebel places one rebel unit at a random free position.
func SpawnRebel(state *GameState, rng RNG) (Position, bool) {
	pos, ok := FindChestSpawnPosition(state.Grid, state.Players, ChestCastleMargin, rng)
	if !ok {
		return Position{}, false
	}
	if state.Rebels == nil {
		state.Rebels = &RebelState{Units: []Position{}, ActiveBonuses: []ActiveBonus{}}
	}
	c := &state.Grid[pos.Y][pos.X]
	c.Type = CellUnit
	c.Owner = RebelOwner()
	state.Rebels.Units = append(state.Rebels.Units, pos)
	return pos, true
}

func removeRebelUnit(state *GameState, pos Position) {
	if state.Rebels == nil {
		return
	}
	for i, u := range state.Rebels.Units {
		if u == pos {
			state.Rebels.Units = append(state.Rebels.Units[:i], state.Rebels.Units[i+1:]...)
			return
		}
	}
}
