// Package telemetry publishes the settled state of a car once per tick and feeds
// the read-only consumers: HUD, camera, metrics and the InfluxDB sink.
package telemetry

import (
	"math"
	"strconv"

	"github.com/go-gl/mathgl/mgl64"

	"drift-sim/internal/vehicle"
)

// Snapshot is the state of one car after a complete tick.
type Snapshot struct {
	Tick int64
	Time float64 // simulated seconds since spawn

	SpeedKmh    float64
	EngineRPM   float64
	Gear        int // 1-based forward gear; see Reverse
	Reverse     bool
	GForce      float64
	Checkpoints int

	Position mgl64.Vec3
	Rotation mgl64.Quat
	Velocity mgl64.Vec3

	SteerAngle  [vehicle.WheelCount]float64
	MotorTorque [vehicle.WheelCount]float64
	BrakeTorque [vehicle.WheelCount]float64
	WheelPose   [vehicle.WheelCount]Pose

	LosingTraction [vehicle.WheelCount]bool
	Slip           [vehicle.WheelCount]float64
	Squeal         bool

	ControlsDisabled bool
}

// Pose is a world transform mirrored onto a wheel visual.
type Pose struct {
	Position mgl64.Vec3
	Rotation mgl64.Quat
}

// SpeedMS is the speed in metres per second.
func (s Snapshot) SpeedMS() float64 {
	return s.SpeedKmh / 3.6
}

// DisplayGear is "R" when reversing, else the gear number.
func (s Snapshot) DisplayGear() string {
	if s.Reverse {
		return "R"
	}
	return strconv.Itoa(s.Gear)
}

// Corners returns the four corners of a length x width body box on the ground
// plane as (X, Z), front-left first, clockwise seen from above.
func (s Snapshot) Corners(length, width float64) [4]mgl64.Vec2 {
	hl, hw := length/2, width/2
	local := [4]mgl64.Vec3{{-hw, 0, hl}, {hw, 0, hl}, {hw, 0, -hl}, {-hw, 0, -hl}}
	var out [4]mgl64.Vec2
	for i, p := range local {
		w := s.Position.Add(s.Rotation.Rotate(p))
		out[i] = mgl64.Vec2{w.X(), w.Z()}
	}
	return out
}

// Heading is the yaw in radians, measured from +Z toward +X.
func (s Snapshot) Heading() float64 {
	fwd := s.Rotation.Rotate(mgl64.Vec3{0, 0, 1})
	return math.Atan2(fwd.X(), fwd.Z())
}
