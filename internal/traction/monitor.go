// Package traction classifies each wheel as gripping or sliding and latches the
// result so effects (skid marks, smoke, tire squeal) switch on edges only.
package traction

import (
	"math"

	"drift-sim/internal/common"
	"drift-sim/internal/vehicle"
)

// Contact is the slip data of one wheel for one tick.
type Contact struct {
	Grounded     bool
	ForwardSlip  float64
	SidewaysSlip float64
}

// Edge is a change of the latched state of one wheel.
type Edge int

const (
	NoEdge Edge = iota
	Started
	Stopped
)

func (e Edge) String() string {
	switch e {
	case Started:
		return "started"
	case Stopped:
		return "stopped"
	default:
		return "none"
	}
}

// State is the latched "losing traction" flag per wheel.
type State [vehicle.WheelCount]bool

// Any reports whether at least one wheel is sliding.
func (s State) Any() bool {
	for _, v := range s {
		if v {
			return true
		}
	}
	return false
}

// Report is the result of one monitoring tick.
type Report struct {
	State State
	Edges [vehicle.WheelCount]Edge
	Slip  [vehicle.WheelCount]float64 // combined slip magnitude

	// Squeal is true while any wheel slides; SquealChanged marks the mute toggles.
	Squeal        bool
	SquealChanged bool
}

// Monitor holds the slip threshold.
type Monitor struct {
	Threshold float64
}

// Step classifies every wheel. A wheel off the ground never counts as sliding.
func (m Monitor) Step(prev State, contacts [vehicle.WheelCount]Contact) Report {
	var r Report
	for _, w := range vehicle.Wheels {
		c := contacts[w]
		fwd := common.OrDefault(c.ForwardSlip, 0)
		side := common.OrDefault(c.SidewaysSlip, 0)

		losing := c.Grounded && (math.Abs(fwd) > m.Threshold || math.Abs(side) > m.Threshold)
		if c.Grounded {
			r.Slip[w] = math.Hypot(fwd, side)
		}

		r.State[w] = losing
		switch {
		case losing && !prev[w]:
			r.Edges[w] = Started
		case !losing && prev[w]:
			r.Edges[w] = Stopped
		}
	}

	r.Squeal = r.State.Any()
	r.SquealChanged = r.Squeal != prev.Any()
	return r
}
