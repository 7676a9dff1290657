// Package steering computes front wheel angles with an Ackermann approximation:
// in a turn the inner wheel pivots further than the outer one.
package steering

import (
	"math"

	"drift-sim/internal/common"
	"drift-sim/internal/vehicle"
)

// State holds the smoothed front wheel angles in degrees. Positive turns right.
type State struct {
	Left  common.Damped
	Right common.Damped
}

// Angles spreads the front angles over all four wheels; the rear never steers.
func (s State) Angles() [vehicle.WheelCount]float64 {
	return [vehicle.WheelCount]float64{
		vehicle.FrontLeft:  s.Left.Value,
		vehicle.FrontRight: s.Right.Value,
	}
}

// Model is the steering geometry of one car.
type Model struct {
	Wheelbase  float64
	Track      float64
	MaxAngle   float64 // degrees
	SmoothTime float64

	// Radius is the turn radius at full lock, measured to the car centre line.
	Radius float64
}

// New derives the steering model from a validated config.
func New(cfg *vehicle.Config) Model {
	return Model{
		Wheelbase:  cfg.Wheelbase,
		Track:      cfg.Track,
		MaxAngle:   cfg.MaxSteerAngle,
		SmoothTime: cfg.SteerSmoothTime,
		Radius:     AckermanRadius(cfg.Wheelbase, cfg.Track, cfg.MaxSteerAngle),
	}
}

// AckermanRadius is wheelbase/tan(maxAngle) + track/2.
func AckermanRadius(wheelbase, track, maxAngleDeg float64) float64 {
	rad := maxAngleDeg * math.Pi / 180
	tan := math.Tan(rad)
	if math.Abs(tan) < 1e-9 {
		return math.Inf(1)
	}
	return wheelbase/tan + track/2
}

// Targets returns the clamped target angles (left, right) for a steer input in [-1, 1].
func (m Model) Targets(input float64) (float64, float64) {
	input = common.Clamp(common.OrDefault(input, 0), -1, 1)
	if input == 0 {
		return 0, 0
	}

	inner := m.angle(m.Radius-m.Track/2) * input
	outer := m.angle(m.Radius+m.Track/2) * input

	var left, right float64
	if input > 0 {
		left, right = outer, inner
	} else {
		left, right = inner, outer
	}
	return m.clamp(left), m.clamp(right)
}

// Step moves both front wheels toward their targets. Zero input steers back to
// straight through the same filter.
func (m Model) Step(prev State, input, dt float64) State {
	left, right := m.Targets(input)

	l, lv := common.SmoothDampAngle(prev.Left.Value, left, prev.Left.Velocity, m.SmoothTime, dt)
	r, rv := common.SmoothDampAngle(prev.Right.Value, right, prev.Right.Velocity, m.SmoothTime, dt)

	return State{
		Left:  common.Damped{Value: m.clamp(l), Velocity: lv},
		Right: common.Damped{Value: m.clamp(r), Velocity: rv},
	}
}

func (m Model) angle(radius float64) float64 {
	switch {
	case radius <= 0:
		return m.MaxAngle
	case math.IsInf(radius, 1):
		return 0
	}
	return math.Atan(m.Wheelbase/radius) * 180 / math.Pi
}

func (m Model) clamp(a float64) float64 {
	return common.Clamp(common.OrDefault(a, 0), -m.MaxAngle, m.MaxAngle)
}
