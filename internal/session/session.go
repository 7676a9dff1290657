// Package session wires one car onto one track: the chassis, the vehicle
// core, checkpoint gates and the referee, stepped at a fixed tick.
package session

import (
	"context"
	"fmt"
	"log/slog"

	"drift-sim/internal/chassis"
	"drift-sim/internal/input"
	"drift-sim/internal/physics"
	"drift-sim/internal/race"
	"drift-sim/internal/store"
	"drift-sim/internal/telemetry"
	"drift-sim/internal/track"
	"drift-sim/internal/vehicle"
)

// Options configure a Session.
type Options struct {
	Logger  *slog.Logger
	Metrics *telemetry.Metrics

	Params   chassis.Params
	Gates    int // logical checkpoints around the lap
	Required int // checkpoints needed to finish, 0 never finishes
	TickDT   float64
}

// Session is a running car on a track.
type Session struct {
	Grid  *track.Grid
	Mesh  *track.TrackMesh
	Gates []track.Gate

	Chassis   *chassis.Chassis
	Car       *physics.Car
	Publisher *telemetry.Publisher
	Referee   *race.Referee
	Result    store.RunResult

	dt   float64
	ctx  context.Context // of the tick in progress, for trigger callbacks
	prev telemetry.Snapshot
	log  *slog.Logger
}

// New spawns a car on the start line of mesh. A nil grid is open tarmac.
func New(cfg vehicle.Config, grid *track.Grid, mesh *track.TrackMesh, opts Options) (*Session, error) {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	if opts.TickDT <= 0 {
		return nil, fmt.Errorf("tick length must be positive, got %v", opts.TickDT)
	}

	gates, err := track.BuildGates(mesh, opts.Gates, cfg.CheckpointTriggers)
	if err != nil {
		return nil, fmt.Errorf("building checkpoint gates: %w", err)
	}

	geo := cfg.Geometry()
	if geo.Wheelbase == 0 || geo.Track == 0 {
		d := vehicle.DefaultConfig()
		geo = d.Geometry()
	}
	spawn, heading := mesh.Start()
	params := opts.Params
	if params.Gravity == 0 {
		params.Gravity = cfg.Gravity
	}
	var surface chassis.Surface
	if grid != nil {
		surface = grid
	}
	body := chassis.New(params, geo, surface, spawn, heading)
	body.SetTriggers(track.Triggers(gates))

	pub := &telemetry.Publisher{}
	car, err := physics.NewCar(cfg, body, body, body, physics.Options{
		Logger:    log,
		Metrics:   opts.Metrics,
		Publisher: pub,
	})
	if err != nil {
		return nil, err
	}
	car.Publish()

	s := &Session{
		Grid:      grid,
		Mesh:      mesh,
		Gates:     gates,
		Chassis:   body,
		Car:       car,
		Publisher: pub,
		Referee:   race.NewReferee(opts.Required, log),
		Result: store.RunResult{
			Drive:   cfg.Drive.String(),
			Gearbox: cfg.Gearbox.String(),
		},
		dt:  opts.TickDT,
		ctx: context.Background(),
		log: log,
	}
	body.OnTriggerEnter = func(int) { s.Car.OnTriggerEnter(s.ctx) }

	log.Info("Session ready",
		"waypoints", len(mesh.Waypoints),
		"lapLength", mesh.TotalLen,
		"gates", len(gates),
		"required", opts.Required,
	)
	return s, nil
}

// TickDT is the fixed tick length in seconds.
func (s *Session) TickDT() float64 { return s.dt }

// Step runs one tick: the vehicle core reads contacts and commands the
// chassis, the chassis integrates, then the referee looks at the result.
// The returned and published snapshot is taken after all three.
func (s *Session) Step(ctx context.Context, in input.Snapshot) telemetry.Snapshot {
	s.ctx = ctx
	snap := s.Car.Tick(ctx, in, s.dt)
	s.Chassis.Step(s.dt)

	finished := s.Referee.Update(s.Car, snap)
	snap = s.Car.Publish()
	if finished {
		r := s.Referee.Result()
		s.Result.Finished = true
		s.Result.FinishTick = r.Tick
		s.Result.FinishTime = r.Time
	}
	s.Result.Observe(s.prev, snap)
	s.Result.Checkpoints = s.Car.Checkpoints()
	s.prev = snap
	return snap
}

// Finished reports whether the referee ended the run.
func (s *Session) Finished() bool { return s.Referee.Finished() }
