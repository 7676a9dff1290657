// Package track turns a painted track image into a drivable surface: a grid of
// cells with grip and walls, a centerline mesh, and checkpoint gates made of
// trigger polygons.
//
// Two frames are used. Pixel coordinates index the image (x right, y down).
// Plan coordinates are metres on the ground plane as mgl64.Vec2{X, Z}, with Z
// pointing up the image, so world position is (plan.X, 0, plan.Y).
package track

import (
	"image/color"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// CellType represents the type of surface in a grid cell.
type CellType int

const (
	CellWall CellType = iota
	CellTarmac
	CellGravel
	CellStart
	CellFinish
	CellDirection // For manual heading hint
)

func (t CellType) String() string {
	switch t {
	case CellWall:
		return "wall"
	case CellTarmac:
		return "tarmac"
	case CellGravel:
		return "gravel"
	case CellStart:
		return "start"
	case CellFinish:
		return "finish"
	case CellDirection:
		return "direction"
	default:
		return "unknown"
	}
}

// Surface grip multipliers.
const (
	TarmacGrip = 1.0
	GravelGrip = 0.4
	WallGrip   = 0.0
)

// DefaultScale is the size of one cell in metres.
const DefaultScale = 0.2

// Cell represents a single unit of the track.
type Cell struct {
	Type     CellType
	Friction float64 // 1.0 for Tarmac, 0.4 for Gravel, 0 for walls
}

// Drivable reports whether a car may occupy the cell.
func (c Cell) Drivable() bool {
	return c.Type != CellWall
}

// CellFor returns the cell of the given type with its surface grip.
func CellFor(t CellType) Cell {
	switch t {
	case CellWall:
		return Cell{Type: t, Friction: WallGrip}
	case CellGravel:
		return Cell{Type: t, Friction: GravelGrip}
	default:
		return Cell{Type: t, Friction: TarmacGrip}
	}
}

// Grid represents the discretized track.
type Grid struct {
	Width, Height int
	Cells         [][]Cell
	Scale         float64 // Meters per pixel/cell
}

// NewGrid creates a new grid of the specified size, all wall.
func NewGrid(width, height int, scale float64) *Grid {
	cells := make([][]Cell, width)
	for i := range cells {
		cells[i] = make([]Cell, height)
	}
	if scale <= 0 {
		scale = DefaultScale
	}
	return &Grid{
		Width:  width,
		Height: height,
		Cells:  cells,
		Scale:  scale,
	}
}

// Get returns the cell at (x, y). Returns Wall if out of bounds.
func (g *Grid) Get(x, y int) Cell {
	if x < 0 || x >= g.Width || y < 0 || y >= g.Height {
		return CellFor(CellWall)
	}
	return g.Cells[x][y]
}

// Set stores a cell of type t at (x, y). Out of bounds writes are ignored.
func (g *Grid) Set(x, y int, t CellType) {
	if x < 0 || x >= g.Width || y < 0 || y >= g.Height {
		return
	}
	g.Cells[x][y] = CellFor(t)
}

// At returns the cell under a plan position.
func (g *Grid) At(plan mgl64.Vec2) Cell {
	px := g.PlanToPixel(plan)
	return g.Get(int(math.Floor(px.X())), int(math.Floor(px.Y())))
}

// PixelToPlan converts image coordinates to plan metres.
func (g *Grid) PixelToPlan(px mgl64.Vec2) mgl64.Vec2 {
	return mgl64.Vec2{px.X() * g.Scale, -px.Y() * g.Scale}
}

// PlanToPixel converts plan metres to image coordinates.
func (g *Grid) PlanToPixel(plan mgl64.Vec2) mgl64.Vec2 {
	return mgl64.Vec2{plan.X() / g.Scale, -plan.Y() / g.Scale}
}

// ToWorld lifts a plan position onto the ground plane.
func ToWorld(plan mgl64.Vec2) mgl64.Vec3 {
	return mgl64.Vec3{plan.X(), 0, plan.Y()}
}

// ToPlan drops the height of a world position.
func ToPlan(world mgl64.Vec3) mgl64.Vec2 {
	return mgl64.Vec2{world.X(), world.Z()}
}

// ColorToCellType maps a pixel color to a cell type.
// This is a simple threshold-based mapper.
func ColorToCellType(c color.Color) CellType {
	r, g, b, _ := c.RGBA()
	// Normalize to 8-bit
	r8, g8, b8 := r>>8, g>>8, b>>8

	// White/Light Gray = Tarmac
	if r8 > 200 && g8 > 200 && b8 > 200 {
		return CellTarmac
	}
	// Red = Start/Finish
	if r8 > 200 && g8 < 100 && b8 < 100 {
		return CellStart
	}
	// Yellow = Direction Hint
	if r8 > 200 && g8 > 200 && b8 < 100 {
		return CellDirection
	}
	// Green = Gravel
	if g8 > r8+50 && g8 > b8+50 {
		return CellGravel
	}

	// Dark is wall. Anything brighter is an anti-aliased edge of a marker or track.
	if r8 < 50 && g8 < 50 && b8 < 50 {
		return CellWall
	}

	return CellTarmac
}
