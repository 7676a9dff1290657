package track

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Waypoint represents a point on the track centerline.
type Waypoint struct {
	ID       int
	Position mgl64.Vec2 // Plan coordinates (x, z)
	Normal   mgl64.Vec2 // Unit vector perpendicular to the track direction (pointing Right)
	Width    float64    // Width of the track at this point, metres
	Distance float64    // Distance from start (s-coordinate)
}

// TrackMesh represents the curvilinear coordinate system of the track.
type TrackMesh struct {
	Waypoints []Waypoint
	TotalLen  float64
}

// NewMesh builds a closed loop from waypoints, filling in normals and arc length.
func NewMesh(waypoints []Waypoint) *TrackMesh {
	m := &TrackMesh{Waypoints: waypoints}
	n := len(waypoints)
	for i := range waypoints {
		t := m.Tangent(i)
		// Right of travel on the ground plane, seen from above.
		waypoints[i].Normal = mgl64.Vec2{t.Y(), -t.X()}
		if i > 0 {
			m.TotalLen += waypoints[i].Position.Sub(waypoints[i-1].Position).Len()
		}
		waypoints[i].Distance = m.TotalLen
	}
	if n > 1 {
		m.TotalLen += waypoints[0].Position.Sub(waypoints[n-1].Position).Len()
	}
	return m
}

// Tangent is the unit direction of travel at waypoint i.
func (m *TrackMesh) Tangent(i int) mgl64.Vec2 {
	n := len(m.Waypoints)
	if n < 2 {
		return mgl64.Vec2{0, 1}
	}
	i = ((i % n) + n) % n
	t := m.Waypoints[(i+1)%n].Position.Sub(m.Waypoints[(i-1+n)%n].Position)
	if t.Len() == 0 {
		return mgl64.Vec2{0, 1}
	}
	return t.Normalize()
}

// Heading is the yaw of the track direction at waypoint i, radians from +Z toward +X.
func (m *TrackMesh) Heading(i int) float64 {
	t := m.Tangent(i)
	return math.Atan2(t.X(), t.Y())
}

// Start returns the spawn position and heading.
func (m *TrackMesh) Start() (mgl64.Vec2, float64) {
	if len(m.Waypoints) == 0 {
		return mgl64.Vec2{}, 0
	}
	return m.Waypoints[0].Position, m.Heading(0)
}

// GetClosestWaypoint finds the waypoint closest to the given plan position.
// Returns the waypoint and its index, or -1 for an empty mesh.
// TODO: use a spatial hash once tracks exceed a few thousand waypoints.
func (m *TrackMesh) GetClosestWaypoint(pos mgl64.Vec2) (Waypoint, int) {
	minDistSq := math.MaxFloat64
	closestIdx := -1

	for i, wp := range m.Waypoints {
		d := pos.Sub(wp.Position)
		distSq := d.Dot(d)
		if distSq < minDistSq {
			minDistSq = distSq
			closestIdx = i
		}
	}

	if closestIdx == -1 {
		return Waypoint{}, -1
	}
	return m.Waypoints[closestIdx], closestIdx
}

// WorldToFrenet converts a plan position to Frenet (s,d).
// s: Progress along track
// d: Lateral offset (positive = right of center, negative = left)
func (m *TrackMesh) WorldToFrenet(pos mgl64.Vec2) (float64, float64) {
	wp, i := m.GetClosestWaypoint(pos)
	if i < 0 {
		return 0, 0
	}

	rel := pos.Sub(wp.Position)
	d := rel.Dot(wp.Normal)
	s := wp.Distance + rel.Dot(m.Tangent(i))
	if m.TotalLen > 0 {
		s = math.Mod(s+m.TotalLen, m.TotalLen)
	}
	return s, d
}
