package driver

import (
	"math"

	"drift-sim/internal/common"
	"drift-sim/internal/input"
	"drift-sim/internal/telemetry"
	"drift-sim/internal/track"
)

// Follower drives along the track centerline. It reads only the published
// telemetry of its car, so it can run beside any other consumer.
type Follower struct {
	Mesh      *track.TrackMesh
	Telemetry *telemetry.Publisher

	LookAhead   float64 // metres along the centerline to aim at
	TargetKmh   float64 // cruise speed on straights
	CornerKmh   float64 // speed for a quarter turn within two look-ahead distances
	SteerGain   float64 // steer per radian of heading error
	LateralGain float64 // steer per metre off the centerline
	BrakeMargin float64 // km/h over target before braking
}

// NewFollower returns a follower with a conservative tune.
func NewFollower(mesh *track.TrackMesh, pub *telemetry.Publisher) *Follower {
	return &Follower{
		Mesh:        mesh,
		Telemetry:   pub,
		LookAhead:   8,
		TargetKmh:   70,
		CornerKmh:   35,
		SteerGain:   1.5,
		LateralGain: 0.05,
		BrakeMargin: 15,
	}
}

// Poll steers from the latest snapshot. Before the first tick it pulls away
// in a straight line.
func (f *Follower) Poll() input.Snapshot {
	snap, ok := f.Telemetry.Latest()
	if !ok {
		return input.Snapshot{Throttle: 1}
	}
	return f.Command(snap)
}

// Command computes the input for a car in the state of snap.
func (f *Follower) Command(snap telemetry.Snapshot) input.Snapshot {
	if snap.ControlsDisabled || f.Mesh == nil {
		return input.Neutral()
	}
	pos := track.ToPlan(snap.Position)
	wp, i := f.Mesh.GetClosestWaypoint(pos)
	if i < 0 {
		return input.Neutral()
	}

	aim := f.Mesh.Waypoints[f.ahead(i, f.LookAhead)].Position
	toAim := aim.Sub(pos)
	desired := f.Mesh.Heading(i)
	if toAim.Len() > 1e-6 {
		desired = math.Atan2(toAim.X(), toAim.Y())
	}
	rel := normalizeAngle(desired - snap.Heading())

	d := pos.Sub(wp.Position).Dot(wp.Normal)
	out := input.Snapshot{
		Steer: common.Clamp(rel*f.SteerGain-d*f.LateralGain, -1, 1),
	}

	target := f.TargetSpeed(i)
	speed := snap.SpeedKmh
	switch {
	case speed > target+f.BrakeMargin:
		out.Brake = true
	case speed < target:
		out.Throttle = common.Clamp((target-speed)/10, 0.3, 1)
	}
	return out
}

// TargetSpeed is the cruise speed near waypoint i, lowered by how much the
// track turns over the next two look-ahead distances.
func (f *Follower) TargetSpeed(i int) float64 {
	j := f.ahead(i, 2*f.LookAhead)
	bend := math.Abs(normalizeAngle(f.Mesh.Heading(j) - f.Mesh.Heading(i)))
	return common.Lerp(f.TargetKmh, f.CornerKmh, bend/(math.Pi/2))
}

// ahead walks dist metres forward from waypoint i.
func (f *Follower) ahead(i int, dist float64) int {
	wps := f.Mesh.Waypoints
	n := len(wps)
	travelled := 0.0
	j := i
	for step := 0; step < n && travelled < dist; step++ {
		next := (j + 1) % n
		travelled += wps[next].Position.Sub(wps[j].Position).Len()
		j = next
	}
	return j
}

// normalizeAngle wraps a to [-pi, pi].
func normalizeAngle(a float64) float64 {
	for a > math.Pi {
		a -= 2 * math.Pi
	}
	for a < -math.Pi {
		a += 2 * math.Pi
	}
	return a
}

var _ input.Source = (*Follower)(nil)
