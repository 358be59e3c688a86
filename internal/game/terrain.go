package game

import "fmt"

// MapType selects the terrain layout carved into a new grid.
type MapType string

const (
	MapFlat     MapType = "flat"
	MapRiver    MapType = "river"
	MapMountain MapType = "mountain"
	MapBridge   MapType = "bridge"
)

// ParseMapType validates a map type name.
func ParseMapType(s string) (MapType, error) {
	switch m := MapType(s); m {
	case MapFlat, MapRiver, MapMountain, MapBridge:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMapType, s)
	}
}

// GenerateTerrain carves the layout for mapType into grid. It is
// deterministic and runs once, before castles are placed.
func GenerateTerrain(grid Grid, mapType MapType) error {
	w, h := grid.Width(), grid.Height()
	switch mapType {
	case MapFlat:
	case MapRiver:
		carveColumn(grid, w/2, CellRiver)
		setCell(grid, w/2, h/3, CellBridge)
		setCell(grid, w/2, 2*h/3, CellBridge)
	case MapBridge:
		carveColumn(grid, w/2, CellRiver)
		carveRow(grid, h/2, CellRiver)
		setCell(grid, w/2, h/4, CellBridge)
		setCell(grid, w/2, 3*h/4, CellBridge)
		setCell(grid, w/4, h/2, CellBridge)
		setCell(grid, 3*w/4, h/2, CellBridge)
	case MapMountain:
		cx, cy := w/2, h/2
		for dy := -1; dy <= 0; dy++ {
			for dx := -1; dx <= 0; dx++ {
				setCell(grid, cx+dx, cy+dy, CellMountain)
			}
		}
		for d := -1; d <= 1; d++ {
			setCell(grid, cx+d, h/4, CellMountain)
			setCell(grid, cx+d, 3*h/4, CellMountain)
			setCell(grid, w/4, cy+d, CellMountain)
			setCell(grid, 3*w/4, cy+d, CellMountain)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownMapType, mapType)
	}
	return nil
}

func carveColumn(grid Grid, x int, t CellType) {
	for y := 0; y < grid.Height(); y++ {
		setCell(grid, x, y, t)
	}
}

func carveRow(grid Grid, y int, t CellType) {
	for x := 0; x < grid.Width(); x++ {
		setCell(grid, x, y, t)
	}
}

func setCell(grid Grid, x, y int, t CellType) {
	if c := grid.At(x, y); c != nil {
		c.Type = t
	}
}
