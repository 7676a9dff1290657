package vehicle

import (
	"fmt"
	"strings"
)

// DriveLayout selects which wheels receive engine torque.
type DriveLayout int

const (
	FWD DriveLayout = iota
	RWD
	AWD
)

func (d DriveLayout) String() string {
	switch d {
	case FWD:
		return "fwd"
	case RWD:
		return "rwd"
	case AWD:
		return "awd"
	default:
		return fmt.Sprintf("DriveLayout(%d)", int(d))
	}
}

// ParseDriveLayout accepts fwd, rwd or awd in any case.
func ParseDriveLayout(s string) (DriveLayout, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "fwd":
		return FWD, nil
	case "rwd":
		return RWD, nil
	case "awd":
		return AWD, nil
	}
	return 0, fmt.Errorf("%w: unknown drive layout %q", ErrInvalidParameter, s)
}

// Drives reports whether wheel w receives engine torque under this layout.
func (d DriveLayout) Drives(w WheelIndex) bool {
	switch d {
	case FWD:
		return w.IsFront()
	case RWD:
		return !w.IsFront()
	case AWD:
		return true
	}
	return false
}

// Split divides the total motor torque between the driven wheels.
// Undriven wheels get exactly zero.
func (d DriveLayout) Split(total float64) [WheelCount]float64 {
	var out [WheelCount]float64
	var share float64
	switch d {
	case FWD, RWD:
		share = total / 2
	case AWD:
		share = total / 4
	default:
		return out
	}
	for _, w := range Wheels {
		if d.Drives(w) {
			out[w] = share
		}
	}
	return out
}

func (d DriveLayout) valid() bool {
	return d == FWD || d == RWD || d == AWD
}

// GearboxMode selects how gears change.
type GearboxMode int

const (
	Automatic GearboxMode = iota
	Manual
)

func (g GearboxMode) String() string {
	switch g {
	case Automatic:
		return "automatic"
	case Manual:
		return "manual"
	default:
		return fmt.Sprintf("GearboxMode(%d)", int(g))
	}
}

// ParseGearboxMode accepts automatic or manual (auto and man are also fine).
func ParseGearboxMode(s string) (GearboxMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "automatic", "auto":
		return Automatic, nil
	case "manual", "man":
		return Manual, nil
	}
	return 0, fmt.Errorf("%w: unknown gearbox mode %q", ErrInvalidParameter, s)
}

func (g GearboxMode) valid() bool {
	return g == Automatic || g == Manual
}
