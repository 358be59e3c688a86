// Package maps renders match boards as plain text for logs and tools.
package maps

import (
	"fmt"
	"slices"
	"strings"

	"github.com/topogame/dice-dominion-sub000/internal/game"
)

var terrainGlyphs = map[game.CellType]byte{
	game.CellEmpty:    '.',
	game.CellRiver:    '~',
	game.CellMountain: '^',
	game.CellBridge:   '=',
	game.CellChest:    '$',
}

// Glyph returns the character for one cell. Castles use the owner's colour
// initial in upper case, units in lower case; rebels are 'x'.
func Glyph(cell game.GridCell, players map[string]*game.PlayerState) byte {
	switch cell.Type {
	case game.CellCastle, game.CellUnit:
		if cell.Owner.IsRebel() {
			return 'x'
		}
		initial := byte('?')
		if p, ok := players[cell.Owner.PlayerID]; ok && p.Color != "" {
			initial = p.Color[0]
		}
		if cell.Type == game.CellCastle {
			return initial - 'a' + 'A'
		}
		return initial
	}
	if g, ok := terrainGlyphs[cell.Type]; ok {
		return g
	}
	return '?'
}

// Grid returns the board, one text row per grid row.
func Grid(state *game.GameState) string {
	var sb strings.Builder
	for y := range state.Grid {
		for x := range state.Grid[y] {
			sb.WriteByte(Glyph(state.Grid[y][x], state.Players))
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Debug returns a string visualization of the match.
func Debug(state *game.GameState) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Match: %s (%s)\n", state.GameID, state.MapType))
	sb.WriteString(fmt.Sprintf("Size: %dx%d\n", state.GridWidth, state.GridHeight))
	sb.WriteString(fmt.Sprintf("Turn: %d  Status: %s\n", state.CurrentTurn, state.Status))
	if state.Winner != "" {
		sb.WriteString(fmt.Sprintf("Winner: %s\n", state.Winner))
	}

	sb.WriteString("\n")
	sb.WriteString(Grid(state))

	sb.WriteString("\nPlayers:\n")
	ids := make([]string, 0, len(state.Players))
	for id := range state.Players {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		p := state.Players[id]
		status := "alive"
		if !p.IsAlive {
			status = "eliminated"
		}
		sb.WriteString(fmt.Sprintf("  %s (%s) %s: castle %d/%d, units %d, level %d\n",
			p.ID, p.Color, status, p.CastleHP, p.CastleMaxHP, p.UnitCount, p.Level))
		for _, b := range p.ActiveBonuses {
			sb.WriteString(fmt.Sprintf("     %s: %d turns", b.Type.Name(), b.TurnsRemaining))
			if b.UsesRemaining != nil {
				sb.WriteString(fmt.Sprintf(", %d uses", *b.UsesRemaining))
			}
			sb.WriteString("\n")
		}
	}

	open := 0
	for _, c := range state.Chests {
		if !c.IsCollected {
			open++
		}
	}
	rebels := 0
	if state.Rebels != nil {
		rebels = len(state.Rebels.Units)
	}
	sb.WriteString(fmt.Sprintf("\nRebels: %d  Open chests: %d  Next rebels in: %d\n",
		rebels, open, state.RebelSpawnCountdown))

	return sb.String()
}
