// Package drivetrain turns throttle and wheel speed into engine RPM, gear selection
// and per-wheel motor torque. Step is pure: everything carried between ticks lives
// in State.
package drivetrain

import (
	"math"
	"strconv"

	"drift-sim/internal/common"
	"drift-sim/internal/vehicle"
)

// State is the drivetrain memory between ticks.
type State struct {
	Gear      int  // 0 is first gear, never negative
	Reverse   bool // set while the car rolls backwards
	EngineRPM common.Damped

	// ShiftCooldown is the time left before the automatic gearbox may shift again.
	ShiftCooldown float64
}

// NewState returns an engine at idle in first gear.
func NewState(cfg *vehicle.Config) State {
	return State{EngineRPM: common.Damped{Value: cfg.IdleRPM}}
}

// Input is the driver's request for one tick.
type Input struct {
	Throttle  float64 // -1..1, negative drives backwards
	UpShift   bool    // edge, manual gearbox only
	DownShift bool    // edge, manual gearbox only
}

// Shift describes a gear change made during a tick.
type Shift int

const (
	NoShift Shift = iota
	ShiftUp
	ShiftDown
)

func (s Shift) String() string {
	switch s {
	case ShiftUp:
		return "up"
	case ShiftDown:
		return "down"
	default:
		return "none"
	}
}

// Output is the result of one drivetrain tick.
type Output struct {
	State          State
	WheelRPM       float64 // average of the four wheels
	MotorTorque    float64 // before distribution
	WheelTorque    [vehicle.WheelCount]float64
	Shift          Shift
	ReverseChanged bool
}

// Step advances the drivetrain by dt seconds.
// allGrounded gates the automatic gearbox; wheelRPM is the signed spin of each wheel.
func Step(cfg *vehicle.Config, prev State, in Input, wheelRPM [vehicle.WheelCount]float64, allGrounded bool, dt float64) Output {
	st := prev
	st.Gear = max(0, common.ClampInt(st.Gear, 0, cfg.TopGear()))
	throttle := common.Clamp(common.OrDefault(in.Throttle, 0), -1, 1)

	out := Output{}

	// 1. Gearbox, using last tick's engine RPM
	out.Shift = shiftGears(cfg, &st, in, allGrounded, dt)

	// 2. Wheel feedback and reverse detection
	var sum float64
	for _, rpm := range wheelRPM {
		sum += common.OrDefault(rpm, 0)
	}
	avg := sum / float64(vehicle.WheelCount)
	out.WheelRPM = avg

	switch {
	case avg < -cfg.ReverseDeadband && !st.Reverse:
		st.Reverse = true
		st.Gear = 0
		out.ReverseChanged = true
	case avg > cfg.ReverseDeadband && st.Reverse:
		st.Reverse = false
		out.ReverseChanged = true
	}

	// 3. Torque from the curve at the current engine speed
	ratio := cfg.Ratio(st.Gear, st.Reverse)
	out.MotorTorque = cfg.TorqueCurve.Evaluate(st.EngineRPM.Value) * ratio * throttle
	out.WheelTorque = cfg.Drive.Split(out.MotorTorque)

	// 4. Engine speed follows the wheels through the gearbox
	target := cfg.IdleRPM + math.Abs(avg)*cfg.FinalDriveRatio*ratio
	st.EngineRPM = st.EngineRPM.Step(target, vehicle.EngineSmoothTime, dt)

	out.State = st
	return out
}

func shiftGears(cfg *vehicle.Config, st *State, in Input, allGrounded bool, dt float64) Shift {
	top := cfg.TopGear()

	switch cfg.Gearbox {
	case vehicle.Automatic:
		if dt > 0 {
			st.ShiftCooldown = math.Max(0, st.ShiftCooldown-dt)
		}
		if !allGrounded || st.ShiftCooldown > 0 {
			return NoShift
		}
		rpm := st.EngineRPM.Value
		if rpm > cfg.MaxRPM && st.Gear < top && !st.Reverse {
			st.Gear++
			st.ShiftCooldown = cfg.ShiftDwell
			return ShiftUp
		} else if rpm < cfg.MinRPM && st.Gear > 0 {
			st.Gear--
			st.ShiftCooldown = cfg.ShiftDwell
			return ShiftDown
		}

	case vehicle.Manual:
		if in.UpShift && !in.DownShift {
			if st.Reverse {
				st.Reverse = false
				st.Gear = 0
				return ShiftUp
			}
			if st.Gear < top {
				st.Gear++
				return ShiftUp
			}
		}
		if in.DownShift && !in.UpShift {
			if st.Gear > 0 {
				st.Gear--
				return ShiftDown
			}
			if !st.Reverse {
				st.Reverse = true
				return ShiftDown
			}
		}
	}
	return NoShift
}

// DisplayGear is the 1-based gear shown to the driver, or "R".
func (s State) DisplayGear() string {
	if s.Reverse {
		return "R"
	}
	return strconv.Itoa(s.Gear + 1)
}
