// Package vehicle holds the author-tunable description of a car: drive layout,
// engine and gearbox, steering geometry, brakes, suspension and aero. A Config is
// loaded once at spawn and read-only afterwards.
package vehicle

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl64"

	"drift-sim/internal/common"
)

// EngineSmoothTime is the fixed time constant of the engine RPM filter (seconds).
const EngineSmoothTime = 0.1

// NeutralStiffness is the friction stiffness of a tire nobody has tuned.
const NeutralStiffness = 1.0

// Config is the immutable per-session description of a vehicle.
type Config struct {
	Drive   DriveLayout
	Gearbox GearboxMode

	// Engine and gearbox
	TorqueCurve     TorqueCurve
	GearRatios      []float64 // index 0 is first gear
	FinalDriveRatio float64
	ReverseRatio    float64
	IdleRPM         float64
	MinRPM          float64 // automatic downshift point
	MaxRPM          float64 // automatic upshift point
	ShiftDwell      float64 // seconds between automatic shifts, 0 disables
	ReverseDeadband float64 // average wheel RPM band where the reverse flag is held

	// Steering
	MaxSteerAngle   float64 // degrees
	SteerSmoothTime float64 // seconds

	// Brakes and friction
	BrakeForce                 float64 // N*m per wheel
	HandbrakeMultiplier        float64
	HandbrakeSidewaysStiffness float64
	HandbrakeForwardStiffness  float64
	FrictionSmoothTime         float64
	SidewaysFrictionStiffness  float64 // applied to driven wheels at spawn

	// Suspension and aero
	FrontAntiRoll        float64 // N per unit travel difference
	RearAntiRoll         float64
	CenterOfMassOffset   mgl64.Vec3
	DownforceCoefficient float64 // N per m/s

	// Geometry, metres. Zero means derive from wheel positions.
	Wheelbase float64
	Track     float64

	SlipThreshold      float64
	CheckpointTriggers int // raw trigger entries per logical checkpoint
	Gravity            float64
}

// DefaultConfig is a rear-driven six speed drift car.
func DefaultConfig() Config {
	return Config{
		Drive:   RWD,
		Gearbox: Automatic,
		TorqueCurve: TorqueCurve{
			{RPM: 0, Torque: 180},
			{RPM: 1000, Torque: 220},
			{RPM: 2500, Torque: 320},
			{RPM: 4000, Torque: 380},
			{RPM: 5500, Torque: 340},
			{RPM: 6500, Torque: 260},
			{RPM: 7000, Torque: 150},
		},
		GearRatios:      []float64{3.6, 2.19, 1.41, 1.0, 0.83, 0.72},
		FinalDriveRatio: 3.73,
		ReverseRatio:    2.76,
		IdleRPM:         800,
		MinRPM:          2500,
		MaxRPM:          5500,
		ShiftDwell:      0.5,
		ReverseDeadband: 5,

		MaxSteerAngle:   35,
		SteerSmoothTime: 0.1,

		BrakeForce:                 1500,
		HandbrakeMultiplier:        3,
		HandbrakeSidewaysStiffness: 0.45,
		HandbrakeForwardStiffness:  0.6,
		FrictionSmoothTime:         0.25,
		SidewaysFrictionStiffness:  0.775,

		FrontAntiRoll:        5000,
		RearAntiRoll:         5000,
		CenterOfMassOffset:   mgl64.Vec3{0, -0.2, 0},
		DownforceCoefficient: 50,

		Wheelbase: 2.55,
		Track:     1.5,

		SlipThreshold:      0.35,
		CheckpointTriggers: 5,
		Gravity:            9.81,
	}
}

// TopGear is the index of the last forward gear.
func (c *Config) TopGear() int {
	return len(c.GearRatios) - 1
}

// Ratio returns the ratio for gear, clamped to the table. Reverse uses ReverseRatio.
func (c *Config) Ratio(gear int, reverse bool) float64 {
	if reverse {
		return c.ReverseRatio
	}
	if len(c.GearRatios) == 0 {
		return 0
	}
	return c.GearRatios[common.ClampInt(gear, 0, c.TopGear())]
}

// BaseStiffness returns the spawn-time (forward, sideways) friction stiffness of wheel w.
func (c *Config) BaseStiffness(w WheelIndex) (float64, float64) {
	if c.Drive.Drives(w) {
		return NeutralStiffness, c.SidewaysFrictionStiffness
	}
	return NeutralStiffness, NeutralStiffness
}

// AntiRoll returns the stiffness of the given axle.
func (c *Config) AntiRoll(a Axle) float64 {
	if a == FrontAxle {
		return c.FrontAntiRoll
	}
	return c.RearAntiRoll
}

// Validate reports every configuration problem at once.
func (c *Config) Validate() error {
	var errs []error
	bad := func(name string, v float64, cond bool, want string) {
		if !common.Finite(v) || !cond {
			errs = append(errs, fmt.Errorf("%w: %s = %v, want %s", ErrInvalidParameter, name, v, want))
		}
	}

	if !c.Drive.valid() {
		errs = append(errs, fmt.Errorf("%w: drive layout %d", ErrInvalidParameter, int(c.Drive)))
	}
	if !c.Gearbox.valid() {
		errs = append(errs, fmt.Errorf("%w: gearbox mode %d", ErrInvalidParameter, int(c.Gearbox)))
	}

	if err := c.TorqueCurve.Validate(); err != nil {
		errs = append(errs, err)
	}
	if len(c.GearRatios) == 0 {
		errs = append(errs, ErrNoGears)
	}
	for i, r := range c.GearRatios {
		bad(fmt.Sprintf("gear ratio %d", i), r, r > 0, "> 0")
	}

	bad("final drive ratio", c.FinalDriveRatio, c.FinalDriveRatio > 0, "> 0")
	bad("reverse ratio", c.ReverseRatio, c.ReverseRatio > 0, "> 0")
	bad("idle rpm", c.IdleRPM, c.IdleRPM >= 0, ">= 0")
	bad("min rpm", c.MinRPM, c.MinRPM >= 0, ">= 0")
	bad("max rpm", c.MaxRPM, c.MaxRPM > c.MinRPM, "> min rpm")
	bad("shift dwell", c.ShiftDwell, c.ShiftDwell >= 0, ">= 0")
	bad("reverse deadband", c.ReverseDeadband, c.ReverseDeadband >= 0, ">= 0")

	bad("max steer angle", c.MaxSteerAngle, c.MaxSteerAngle > 0 && c.MaxSteerAngle < 90, "in (0, 90)")
	bad("steer smooth time", c.SteerSmoothTime, c.SteerSmoothTime >= 0, ">= 0")

	bad("brake force", c.BrakeForce, c.BrakeForce >= 0, ">= 0")
	bad("handbrake multiplier", c.HandbrakeMultiplier, c.HandbrakeMultiplier >= 0, ">= 0")
	bad("handbrake sideways stiffness", c.HandbrakeSidewaysStiffness, c.HandbrakeSidewaysStiffness >= 0, ">= 0")
	bad("handbrake forward stiffness", c.HandbrakeForwardStiffness, c.HandbrakeForwardStiffness >= 0, ">= 0")
	bad("friction smooth time", c.FrictionSmoothTime, c.FrictionSmoothTime >= 0, ">= 0")
	bad("sideways friction stiffness", c.SidewaysFrictionStiffness, c.SidewaysFrictionStiffness > 0, "> 0")

	bad("front anti-roll", c.FrontAntiRoll, c.FrontAntiRoll >= 0, ">= 0")
	bad("rear anti-roll", c.RearAntiRoll, c.RearAntiRoll >= 0, ">= 0")
	bad("downforce coefficient", c.DownforceCoefficient, c.DownforceCoefficient >= 0, ">= 0")
	for i, v := range c.CenterOfMassOffset {
		bad(fmt.Sprintf("center of mass offset[%d]", i), v, true, "finite")
	}

	if !common.Finite(c.Wheelbase) || c.Wheelbase <= MinAxleSpacing {
		errs = append(errs, fmt.Errorf("%w: wheelbase %v", ErrDegenerateGeometry, c.Wheelbase))
	}
	if !common.Finite(c.Track) || c.Track <= MinAxleSpacing {
		errs = append(errs, fmt.Errorf("%w: track %v", ErrDegenerateGeometry, c.Track))
	}

	bad("slip threshold", c.SlipThreshold, c.SlipThreshold > 0, "> 0")
	if c.CheckpointTriggers < 1 {
		errs = append(errs, fmt.Errorf("%w: checkpoint triggers = %d, want >= 1", ErrInvalidParameter, c.CheckpointTriggers))
	}
	bad("gravity", c.Gravity, c.Gravity > 0, "> 0")

	return errors.Join(errs...)
}
