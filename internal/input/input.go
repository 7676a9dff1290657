// Package input defines the per-tick driver input snapshot. Sources (keyboard,
// autopilot, scripts) produce one Snapshot per tick and pass it to the car.
package input

import "drift-sim/internal/common"

// Snapshot is the driver input for one tick.
type Snapshot struct {
	Steer    float64 // -1 full left .. 1 full right
	Throttle float64 // -1 full reverse .. 1 full forward

	Brake     bool
	Handbrake bool
	UpShift   bool // edge, true for one tick per press
	DownShift bool // edge
}

// Neutral is the snapshot used while controls are disabled.
func Neutral() Snapshot {
	return Snapshot{}
}

// Sanitize clamps both axes to [-1, 1] and zeroes non-finite values.
func (s Snapshot) Sanitize() Snapshot {
	s.Steer = common.Clamp(common.OrDefault(s.Steer, 0), -1, 1)
	s.Throttle = common.Clamp(common.OrDefault(s.Throttle, 0), -1, 1)
	return s
}

// Source produces one snapshot per tick.
type Source interface {
	Poll() Snapshot
}

// SourceFunc adapts a function to Source.
type SourceFunc func() Snapshot

func (f SourceFunc) Poll() Snapshot { return f() }
