// Package physics runs the per-tick vehicle pipeline: input, gearbox and engine,
// speed and G-force, downforce, motor and brakes, steering, wheel poses, anti-roll
// and traction. Step is the pure core; Car binds it to a physics engine.
package physics

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"drift-sim/internal/drivetrain"
	"drift-sim/internal/input"
	"drift-sim/internal/steering"
	"drift-sim/internal/telemetry"
	"drift-sim/internal/traction"
	"drift-sim/internal/vehicle"
)

// Options are the optional collaborators of a Car.
type Options struct {
	Logger    *slog.Logger
	Metrics   *telemetry.Metrics
	Publisher *telemetry.Publisher
	Poses     PoseSink
}

// Car owns the runtime state of one vehicle and its four wheels.
type Car struct {
	cfg      vehicle.Config
	steering steering.Model
	state    State
	last     Result

	body     Body
	contacts ContactProvider
	wheels   WheelActuator

	poses     PoseSink
	publisher *telemetry.Publisher
	metrics   *telemetry.Metrics
	log       *slog.Logger

	dirty [vehicle.WheelCount]bool // wheel reported non-finite data and was already warned about
}

// NewCar validates cfg and spawns a car on the given physics collaborators.
// A zero wheelbase or track is measured from the wheel contact positions.
func NewCar(cfg vehicle.Config, body Body, contacts ContactProvider, wheels WheelActuator, opts Options) (*Car, error) {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	if cfg.Wheelbase == 0 || cfg.Track == 0 {
		var positions [vehicle.WheelCount]mgl64.Vec3
		for _, w := range vehicle.Wheels {
			positions[w] = contacts.GroundContact(w).Position
		}
		geo, err := vehicle.DeriveGeometry(positions)
		if err != nil {
			return nil, fmt.Errorf("measuring wheel geometry: %w", err)
		}
		cfg = cfg.WithGeometry(geo)
		log.Info("Wheel geometry derived", "wheelbase", geo.Wheelbase, "track", geo.Track)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid vehicle config: %w", err)
	}

	c := &Car{
		cfg:       cfg,
		steering:  steering.New(&cfg),
		state:     NewState(&cfg),
		body:      body,
		contacts:  contacts,
		wheels:    wheels,
		poses:     opts.Poses,
		publisher: opts.Publisher,
		metrics:   opts.Metrics,
		log:       log,
	}

	body.SetCenterOfMassOffset(cfg.CenterOfMassOffset)
	for _, w := range vehicle.Wheels {
		fwd, side := cfg.BaseStiffness(w)
		wheels.SetFriction(w, fwd, side)
	}

	log.Info("Car spawned",
		"drive", cfg.Drive.String(),
		"gearbox", cfg.Gearbox.String(),
		"gears", len(cfg.GearRatios),
		"ackermanRadius", c.steering.Radius,
	)
	return c, nil
}

// Tick runs one fixed step with the given driver input and pushes the results
// into the physics engine. The physics engine integrates afterwards.
func (c *Car) Tick(ctx context.Context, in input.Snapshot, dt float64) telemetry.Snapshot {
	started := time.Now()

	obs := Observation{
		Velocity: c.body.Velocity(),
		Up:       c.body.Rotation().Rotate(worldUp),
	}
	for _, w := range vehicle.Wheels {
		obs.Contacts[w] = c.contacts.GroundContact(w)
	}

	res := Step(&c.cfg, c.steering, c.state, in, obs, dt)
	c.apply(res.Commands)
	c.report(ctx, res)

	c.state = res.State
	c.last = res

	snap := c.Publish()
	c.metrics.TickDuration(ctx, time.Since(started).Seconds())
	return snap
}

// Publish rebuilds the snapshot of the last tick from the current body pose,
// checkpoints and control flag, and hands it to the publisher. Call it after
// the physics engine has integrated and trigger events have been counted.
func (c *Car) Publish() telemetry.Snapshot {
	snap := c.Snapshot()
	if c.publisher != nil {
		c.publisher.Publish(snap)
	}
	return snap
}

func (c *Car) apply(cmd Commands) {
	for _, w := range vehicle.Wheels {
		c.wheels.SetMotorTorque(w, cmd.MotorTorque[w])
		c.wheels.SetBrakeTorque(w, cmd.BrakeTorque[w])
		c.wheels.SetSteerAngle(w, cmd.SteerAngle[w])
		c.wheels.SetFriction(w, cmd.ForwardStiffness[w], cmd.SidewaysStiffness[w])
		if c.poses != nil {
			c.poses.SetWheelPose(w, cmd.Poses[w].Position, cmd.Poses[w].Rotation)
		}
	}
	c.body.ApplyForce(cmd.Downforce)
	for _, f := range cmd.AntiRoll {
		c.body.ApplyForceAtPoint(f.Vector, f.Point)
	}
}

// report logs and counts the events of a tick.
func (c *Car) report(ctx context.Context, res Result) {
	if res.Drivetrain.Shift != drivetrain.NoShift {
		c.log.Debug("Gear change",
			"direction", res.Drivetrain.Shift.String(),
			"gear", res.State.Drivetrain.DisplayGear(),
			"rpm", res.State.Drivetrain.EngineRPM.Value,
		)
		c.metrics.Shift(ctx, res.Drivetrain.Shift.String())
	}
	if res.Drivetrain.ReverseChanged {
		c.log.Debug("Direction change", "reverse", res.State.Drivetrain.Reverse)
	}

	for _, w := range vehicle.Wheels {
		switch res.Traction.Edges[w] {
		case traction.Started:
			c.log.Debug("Wheel lost traction", "wheel", w.String(), "slip", res.Traction.Slip[w])
			c.metrics.TractionLost(ctx, w.String())
		case traction.Stopped:
			c.log.Debug("Wheel regained traction", "wheel", w.String())
		}

		if res.Sanitized[w] && !c.dirty[w] {
			c.log.Warn("Non-finite contact data replaced with safe defaults", "wheel", w.String())
		}
		c.dirty[w] = res.Sanitized[w]
	}
}

// OnTriggerEnter counts one trigger volume entry.
func (c *Car) OnTriggerEnter(ctx context.Context) {
	var passed bool
	c.state, passed = RegisterTrigger(c.state, c.cfg.CheckpointTriggers)
	if passed {
		c.log.Info("Checkpoint passed", "checkpoints", c.state.Checkpoints)
		c.metrics.Checkpoint(ctx)
	}
}

// SetControlsDisabled gates driver input. While set every tick sees the neutral input.
func (c *Car) SetControlsDisabled(disabled bool) {
	if disabled && !c.state.ControlsDisabled {
		c.log.Info("Controls disabled", "tick", c.state.Tick)
	}
	c.state.ControlsDisabled = disabled
}

// ControlsDisabled reports whether driver input is ignored.
func (c *Car) ControlsDisabled() bool {
	return c.state.ControlsDisabled
}

// Checkpoints is the number of logical checkpoints passed.
func (c *Car) Checkpoints() int {
	return c.state.Checkpoints
}

// State returns the current simulation state.
func (c *Car) State() State {
	return c.state
}

// Config returns the validated config, including derived geometry.
func (c *Car) Config() vehicle.Config {
	return c.cfg
}

// Snapshot builds telemetry for the last completed tick.
func (c *Car) Snapshot() telemetry.Snapshot {
	return c.state.Snapshot(c.last.Commands, c.last.Traction, c.body.Position(), c.body.Rotation(), c.body.Velocity())
}
