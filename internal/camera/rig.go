// Package camera follows a car using only its published telemetry.
package camera

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"drift-sim/internal/common"
	"drift-sim/internal/telemetry"
)

// Follow-camera tuning.
const (
	FastSpeedKmh     = 25.0 // above this the camera tightens up
	SlowSmoothPerKmh = 1.0 / 75
	FastSmoothTime   = 0.01
	FastSmoothRamp   = 1.5 // s to settle onto FastSmoothTime
	GForcePitch      = 3.5 // degrees of pitch per g
	PitchFollowRate  = 2.0
	PitchSettleRate  = 5.0
)

// View is a camera position relative to the car: Back metres behind and
// Up metres above.
type View struct {
	Back, Up float64
}

// Views are the selectable chase positions, closest first.
var Views = []View{{2, 0}, {7.5, 0.5}, {8.9, 1.2}}

// Rig is a chase camera. The zero value is not usable; call New.
type Rig struct {
	Position mgl64.Vec3
	Yaw      float64 // radians, from +Z toward +X, looking at the car
	Pitch    float64 // degrees, nose down is negative

	view       int
	velocity   [3]float64
	smoothTime float64
	smoothVel  float64
	effect     float64
}

// New places the camera at view 1 behind the car described by snap.
func New(snap telemetry.Snapshot) *Rig {
	r := &Rig{view: 1}
	r.Position = r.target(snap)
	r.Yaw = snap.Heading()
	return r
}

// Cycle switches to the next view, wrapping around.
func (r *Rig) Cycle() {
	r.view = (r.view + 1) % len(Views)
}

// View returns the active view.
func (r *Rig) View() View { return Views[r.view] }

// SmoothTime is the current position smoothing time in seconds.
func (r *Rig) SmoothTime() float64 { return r.smoothTime }

// Update moves the camera one tick toward the car.
func (r *Rig) Update(snap telemetry.Snapshot, dt float64) {
	if dt <= 0 {
		return
	}

	target := r.target(snap)
	for i := range 3 {
		r.Position[i], r.velocity[i] = common.SmoothDamp(r.Position[i], target[i], r.velocity[i], r.smoothTime, dt)
	}

	if snap.SpeedKmh >= FastSpeedKmh {
		r.smoothTime, r.smoothVel = common.SmoothDamp(r.smoothTime, FastSmoothTime, r.smoothVel, FastSmoothRamp, dt)
	} else {
		r.smoothTime = math.Max(0, snap.SpeedKmh) * SlowSmoothPerKmh
		r.smoothVel = 0
	}

	r.effect = common.Lerp(r.effect, common.OrDefault(snap.GForce, 0)*GForcePitch, PitchFollowRate*dt)
	r.Pitch = common.Lerp(r.Pitch, -r.effect, PitchSettleRate*dt)

	look := snap.Position.Sub(r.Position)
	if math.Hypot(look.X(), look.Z()) > 1e-6 {
		r.Yaw = math.Atan2(look.X(), look.Z())
	}
}

func (r *Rig) target(snap telemetry.Snapshot) mgl64.Vec3 {
	v := Views[r.view]
	return snap.Position.Add(snap.Rotation.Rotate(mgl64.Vec3{0, v.Up, -v.Back}))
}
