package track

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/peterstace/simplefeatures/geom"
)

// Gate layout defaults, metres.
const (
	TriggerDepth   = 0.6 // thickness of one trigger along the track
	TriggerSpacing = 0.9 // distance between consecutive trigger centres
	TriggerMargin  = 1.0 // extra reach past the measured track edge
)

// ErrNoGates is returned when gates cannot be placed on a mesh.
var ErrNoGates = errors.New("cannot place checkpoint gates")

// Trigger is one trigger volume: a polygon on the ground plane.
type Trigger struct {
	ID      int
	Gate    int
	Polygon geom.Geometry
}

// Contains reports whether a plan position lies inside the trigger.
func (t Trigger) Contains(plan mgl64.Vec2) bool {
	pt, err := geom.XY{X: plan.X(), Y: plan.Y()}.AsPoint()
	if err != nil {
		return false
	}
	return geom.Intersects(t.Polygon, pt.AsGeometry())
}

// Gate is a logical checkpoint: a run of triggers the car crosses one after another.
type Gate struct {
	Index    int
	Waypoint int
	Triggers []Trigger
}

// BuildGates spreads count gates evenly around the mesh. The last gate sits on
// the start line, behind the spawn point. Each gate is perGate thin rectangles
// across the track, laid out in the direction of travel.
func BuildGates(mesh *TrackMesh, count, perGate int) ([]Gate, error) {
	n := len(mesh.Waypoints)
	if count < 1 || perGate < 1 {
		return nil, fmt.Errorf("%w: %d gates of %d triggers", ErrNoGates, count, perGate)
	}
	if n < count {
		return nil, fmt.Errorf("%w: %d gates on %d waypoints", ErrNoGates, count, n)
	}

	gates := make([]Gate, 0, count)
	id := 0
	for g := 0; g < count; g++ {
		wi := ((g + 1) * n / count) % n
		wp := mesh.Waypoints[wi]
		tangent := mesh.Tangent(wi)
		halfWidth := wp.Width/2 + TriggerMargin

		gate := Gate{Index: g, Waypoint: wi}
		for k := 0; k < perGate; k++ {
			back := float64(perGate-k) * TriggerSpacing
			center := wp.Position.Sub(tangent.Mul(back))
			poly, err := rectangle(center, tangent, wp.Normal, halfWidth, TriggerDepth/2)
			if err != nil {
				return nil, fmt.Errorf("gate %d trigger %d: %w", g, k, err)
			}
			gate.Triggers = append(gate.Triggers, Trigger{ID: id, Gate: g, Polygon: poly})
			id++
		}
		gates = append(gates, gate)
	}
	return gates, nil
}

// Triggers flattens the gates in placement order.
func Triggers(gates []Gate) []Trigger {
	var out []Trigger
	for _, g := range gates {
		out = append(out, g.Triggers...)
	}
	return out
}

func rectangle(center, tangent, normal mgl64.Vec2, halfWidth, halfDepth float64) (geom.Geometry, error) {
	a := normal.Mul(halfWidth)
	b := tangent.Mul(halfDepth)
	corners := []mgl64.Vec2{
		center.Add(a).Add(b),
		center.Sub(a).Add(b),
		center.Sub(a).Sub(b),
		center.Add(a).Sub(b),
	}
	corners = append(corners, corners[0])

	flat := make([]float64, 0, 2*len(corners))
	for _, c := range corners {
		flat = append(flat, c.X(), c.Y())
	}
	ring, err := geom.NewLineString(geom.NewSequence(flat, geom.DimXY))
	if err != nil {
		return geom.Geometry{}, err
	}
	poly, err := geom.NewPolygon([]geom.LineString{ring})
	if err != nil {
		return geom.Geometry{}, err
	}
	return poly.AsGeometry(), nil
}
