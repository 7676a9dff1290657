package track

import (
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"os"

	"github.com/go-gl/mathgl/mgl64"
)

// ErrNoTarmac is returned for an image without any drivable pixel.
var ErrNoTarmac = errors.New("track has no drivable surface")

// Mesh walker tuning, in pixels.
const (
	walkStep       = 20.0
	walkMaxSteps   = 2000
	walkBeamLength = 150.0
	walkBeamStep   = 5.0
	wallSearch     = 80.0
	relaxPasses    = 10
	smoothPasses   = 2
	smoothWindow   = 5
)

// LoadTrackFromImage loads an image and converts it to a Grid and centerline mesh.
func LoadTrackFromImage(path string, scale float64) (*Grid, *TrackMesh, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening track image: %w", err)
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, nil, fmt.Errorf("decoding track image %s: %w", path, err)
	}
	return FromImage(img, scale)
}

// FromImage classifies every pixel of img and walks the centerline from the start marker.
func FromImage(img image.Image, scale float64) (*Grid, *TrackMesh, error) {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	grid := NewGrid(width, height, scale)

	// Keep track of tarmac pixels for finding start point
	var startX, startY int
	foundStart := false

	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			cellType := ColorToCellType(img.At(bounds.Min.X+x, bounds.Min.Y+y))
			grid.Set(x, y, cellType)

			if cellType == CellStart && !foundStart {
				startX, startY = x, y
				foundStart = true
			}
		}
	}

	// If no explicit start, find first tarmac
	if !foundStart {
		for x := 0; x < width && !foundStart; x++ {
			for y := 0; y < height; y++ {
				if grid.Cells[x][y].Type == CellTarmac {
					startX, startY = x, y
					foundStart = true
					break
				}
			}
		}
	}
	if !foundStart {
		return nil, nil, ErrNoTarmac
	}

	mesh := GenerateMesh(grid, startX, startY)
	if len(mesh.Waypoints) < 3 {
		return nil, nil, fmt.Errorf("centerline from (%d, %d) has %d waypoints: %w", startX, startY, len(mesh.Waypoints), ErrNoTarmac)
	}
	return grid, mesh, nil
}

// GenerateMesh creates a centerline mesh from the grid, starting east from
// the given pixel. Waypoints are returned in plan coordinates.
func GenerateMesh(grid *Grid, startX, startY int) *TrackMesh {
	raw := []mgl64.Vec2{}

	// 1. Find Center of Track at Start
	leftX := startX
	for leftX > 0 && grid.Get(leftX, startY).Drivable() {
		leftX--
	}
	rightX := startX
	for rightX < grid.Width-1 && grid.Get(rightX, startY).Drivable() {
		rightX++
	}

	center := mgl64.Vec2{float64(startX), float64(startY)}
	trackWidth := float64(rightX - leftX)

	// Center across the track: the start marker is a vertical line, so search up and down.
	top, bottom := startY, startY
	for top > 0 && grid.Get(startX, top).Drivable() {
		top--
	}
	for bottom < grid.Height-1 && grid.Get(startX, bottom).Drivable() {
		bottom++
	}
	if bottom-top < rightX-leftX {
		center[1] = float64(top+bottom) / 2
		trackWidth = float64(bottom - top)
	} else {
		center[0] = float64(leftX+rightX) / 2
	}

	curr := center
	dir := mgl64.Vec2{1, 0} // Initial Direction (Assume East for start)

	for i := 0; i < walkMaxSteps; i++ {
		// Raycast in an arc to find the "deepest" path
		bestAngle := 0.0
		maxDepth := 0.0
		baseAngle := math.Atan2(dir.Y(), dir.X())

		for angle := -math.Pi / 2; angle <= math.Pi/2; angle += math.Pi / 32 {
			checkAngle := baseAngle + angle
			dx, dy := math.Cos(checkAngle), math.Sin(checkAngle)

			depth := 0.0
			for d := walkBeamStep; d < walkBeamLength; d += walkBeamStep {
				if !grid.Get(int(curr.X()+dx*d), int(curr.Y()+dy*d)).Drivable() {
					break
				}
				depth = d
			}

			if depth > maxDepth {
				maxDepth = depth
				bestAngle = checkAngle
			}
		}

		newDir := mgl64.Vec2{math.Cos(bestAngle), math.Sin(bestAngle)}
		curr = curr.Add(newDir.Mul(walkStep))

		// Exponential Moving Average for smoothness
		dir = dir.Mul(0.2).Add(newDir.Mul(0.8))
		raw = append(raw, curr)

		// Loop Closure Check
		if i > 50 && curr.Sub(center).Len() < walkStep*2 {
			break
		}
	}

	n := len(raw)
	if n == 0 {
		return &TrackMesh{}
	}
	widths := make([]float64, n)
	for i := range widths {
		widths[i] = trackWidth
	}

	// 2. Refinement Pass ("Elastic Band" / Iterative Centering)
	refined := make([]mgl64.Vec2, n)
	copy(refined, raw)

	for iter := 0; iter < relaxPasses; iter++ {
		for i := range refined {
			nrm, ok := pixelNormal(refined, i)
			if !ok {
				continue
			}

			dLeft, foundLeft := wallDistance(grid, refined[i], nrm)
			dRight, foundRight := wallDistance(grid, refined[i], nrm.Mul(-1))

			if foundLeft && foundRight {
				// Alpha blend the half error for stability
				correction := (dLeft - dRight) / 2
				refined[i] = refined[i].Add(nrm.Mul(correction * 0.5))
				widths[i] = dLeft + dRight
			}
		}
	}

	// 3. Final Smoothing Pass (Moving Average)
	smoothed := make([]mgl64.Vec2, n)
	copy(smoothed, refined)

	for pass := 0; pass < smoothPasses; pass++ {
		temp := make([]mgl64.Vec2, n)
		copy(temp, smoothed)

		for i := range smoothed {
			var sum mgl64.Vec2
			for j := -smoothWindow / 2; j <= smoothWindow/2; j++ {
				sum = sum.Add(temp[(i+j+n)%n])
			}
			smoothed[i] = sum.Mul(1 / float64(smoothWindow))
		}
	}

	// Convert to plan metres and recompute normals and distances there.
	waypoints := make([]Waypoint, n)
	for i := range smoothed {
		waypoints[i] = Waypoint{
			ID:       i,
			Position: grid.PixelToPlan(smoothed[i]),
			Width:    widths[i] * grid.Scale,
		}
	}
	return NewMesh(waypoints)
}

// pixelNormal is the unit normal at waypoint i in pixel space.
func pixelNormal(points []mgl64.Vec2, i int) (mgl64.Vec2, bool) {
	n := len(points)
	t := points[(i+1)%n].Sub(points[(i-1+n)%n])
	nrm := mgl64.Vec2{-t.Y(), t.X()}
	l := nrm.Len()
	if l == 0 {
		return mgl64.Vec2{}, false
	}
	return nrm.Mul(1 / l), true
}

func wallDistance(grid *Grid, from, dir mgl64.Vec2) (float64, bool) {
	for d := 1.0; d < wallSearch; d++ {
		p := from.Add(dir.Mul(d))
		if !grid.Get(int(p.X()), int(p.Y())).Drivable() {
			return d, true
		}
	}
	return 0, false
}
