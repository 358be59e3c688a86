package game

import "slices"

// CellType is the terrain or occupant of a grid cell.
type CellType string

const (
	CellEmpty    CellType = "empty"
	CellUnit     CellType = "unit"
	CellCastle   CellType = "castle"
	CellRiver    CellType = "river"
	CellMountain CellType = "mountain"
	CellBridge   CellType = "bridge"
	CellChest    CellType = "chest"
)

// CastleSize is the edge length of a castle footprint.
const CastleSize = 2

// GridCell is a single square of the board.
type GridCell struct {
	X        int      `json:"x"`
	Y        int      `json:"y"`
	Type     CellType `json:"type"`
	Owner    Owner    `json:"ownerId"`
	IsCastle bool     `json:"isCastle"`
}

// clear resets the cell to unowned open ground.
func (c *GridCell) clear() {
	c.Type = CellEmpty
	c.Owner = NoOwner()
	c.IsCastle = false
}

// Position is a grid coordinate.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Grid is the board, indexed [y][x].
type Grid [][]GridCell

// NewGrid creates a w×h grid of empty, unowned cells.
func NewGrid(w, h int) Grid {
	g := make(Grid, h)
	for y := range g {
		g[y] = make([]GridCell, w)
		for x := range g[y] {
			g[y][x] = GridCell{X: x, Y: y, Type: CellEmpty}
		}
	}
	return g
}

// Width returns the number of columns.
func (g Grid) Width() int {
	if len(g) == 0 {
		return 0
	}
	return len(g[0])
}

// Height returns the number of rows.
func (g Grid) Height() int { return len(g) }

// InBounds reports whether (x, y) lies on the grid.
func (g Grid) InBounds(x, y int) bool {
	return y >= 0 && y < len(g) && x >= 0 && x < len(g[y])
}

// At returns the cell at (x, y), or nil when out of bounds.
func (g Grid) At(x, y int) *GridCell {
	if !g.InBounds(x, y) {
		return nil
	}
	return &g[y][x]
}

// Orthogonal neighbour offsets: up, right, down, left.
var neighborOffsets = [4]Position{{0, -1}, {1, 0}, {0, 1}, {-1, 0}}

// Neighbors returns the in-bounds 4-neighbours of p.
func (g Grid) Neighbors(p Position) []Position {
	out := make([]Position, 0, len(neighborOffsets))
	for _, d := range neighborOffsets {
		nx, ny := p.X+d.X, p.Y+d.Y
		if g.InBounds(nx, ny) {
			out = append(out, Position{X: nx, Y: ny})
		}
	}
	return out
}

// CountUnits returns how many unit cells the given owner holds.
func (g Grid) CountUnits(owner Owner) int {
	n := 0
	for y := range g {
		for x := range g[y] {
			if g[y][x].Type == CellUnit && g[y][x].Owner == owner {
				n++
			}
		}
	}
	return n
}

// HasType reports whether any cell is of type t.
func (g Grid) HasType(t CellType) bool {
	for y := range g {
		for x := range g[y] {
			if g[y][x].Type == t {
				return true
			}
		}
	}
	return false
}

// PositionSet is a deduplicated set of coordinates.
type PositionSet map[Position]struct{}

// Contains reports whether p is in the set.
func (s PositionSet) Contains(p Position) bool {
	_, ok := s[p]
	return ok
}

// Sorted returns the positions in row-major order.
func (s PositionSet) Sorted() []Position {
	out := make([]Position, 0, len(s))
	for p := range s {
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b Position) int {
		if a.Y != b.Y {
			return a.Y - b.Y
		}
		return a.X - b.X
	})
	return out
}

// PlaceCastle claims the 2×2 block whose top-left is (x, y) for playerID.
// The caller guarantees the block is in bounds and unclaimed.
func PlaceCastle(grid Grid, x, y int, playerID string) {
	for dy := 0; dy < CastleSize; dy++ {
		for dx := 0; dx < CastleSize; dx++ {
			c := &grid[y+dy][x+dx]
			c.Type = CellCastle
			c.Owner = PlayerOwner(playerID)
			c.IsCastle = true
		}
	}
}

// IsValidPlacement reports whether a unit may be placed on the cell.
// River and mountain are impassable; unit and castle are occupied.
func IsValidPlacement(cell GridCell) bool {
	switch cell.Type {
	case CellEmpty, CellBridge, CellChest:
		return true
	default:
		return false
	}
}

// CalculateValidPlacements returns the expansion frontier of playerID: every
// placeable 4-neighbour of a cell the player owns. It is recomputed from the
// grid on each call.
func CalculateValidPlacements(grid Grid, playerID string) PositionSet {
	frontier := make(PositionSet)
	for y := range grid {
		for x := range grid[y] {
			if !grid[y][x].Owner.IsPlayer(playerID) {
				continue
			}
			for _, n := range grid.Neighbors(Position{X: x, Y: y}) {
				if IsValidPlacement(grid[n.Y][n.X]) {
					frontier[n] = struct{}{}
				}
			}
		}
	}
	return frontier
}

// CalculateBridgePlacements returns the river cells adjacent to playerID's
// territory. They become placeable while the player holds a bridge bonus.
func CalculateBridgePlacements(grid Grid, playerID string) PositionSet {
	out := make(PositionSet)
	for y := range grid {
		for x := range grid[y] {
			if !grid[y][x].Owner.IsPlayer(playerID) {
				continue
			}
			for _, n := range grid.Neighbors(Position{X: x, Y: y}) {
				if grid[n.Y][n.X].Type == CellRiver {
					out[n] = struct{}{}
				}
			}
		}
	}
	return out
}

// IsNearCastle reports whether (x, y) lies within distance (Chebyshev) of
// any cell of any player's castle footprint, fallen castles included.
func IsNearCastle(players map[string]*PlayerState, x, y, distance int) bool {
	for _, p := range players {
		for dy := 0; dy < CastleSize; dy++ {
			for dx := 0; dx < CastleSize; dx++ {
				cx, cy := p.CastlePosition.X+dx, p.CastlePosition.Y+dy
				if abs(x-cx) <= distance && abs(y-cy) <= distance {
					return true
				}
			}
		}
	}
	return false
}

// IsCastleAnchor reports whether (x, y) is the top-left cell of its castle.
func IsCastleAnchor(grid Grid, x, y int) bool {
	c := grid.At(x, y)
	if c == nil || !c.IsCastle {
		return false
	}
	sameCastle := func(nx, ny int) bool {
		n := grid.At(nx, ny)
		return n != nil && n.IsCastle && n.Owner == c.Owner
	}
	return !sameCastle(x-1, y) && !sameCastle(x, y-1)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
