// Package race decides when a car has finished.
package race

import (
	"log/slog"

	"drift-sim/internal/telemetry"
)

// Racer is the part of a car the referee needs.
type Racer interface {
	Checkpoints() int
	SetControlsDisabled(bool)
}

// Result describes a finished run.
type Result struct {
	Finished    bool
	Tick        int64
	Time        float64
	Checkpoints int
}

// Referee ends the run once the car has passed the required number of
// logical checkpoints. The last gate sits on the start line, so one lap is
// exactly Required checkpoints.
type Referee struct {
	Required int

	result Result
	log    *slog.Logger
}

// NewReferee returns a referee for a run of required checkpoints. A
// non-positive requirement never finishes.
func NewReferee(required int, log *slog.Logger) *Referee {
	if log == nil {
		log = slog.Default()
	}
	return &Referee{Required: required, log: log}
}

// Update checks the car after a tick and reports whether the run finished on
// this call. Controls are disabled exactly once.
func (r *Referee) Update(car Racer, snap telemetry.Snapshot) bool {
	if r.result.Finished || r.Required <= 0 {
		return false
	}
	passed := car.Checkpoints()
	if passed < r.Required {
		return false
	}

	car.SetControlsDisabled(true)
	r.result = Result{
		Finished:    true,
		Tick:        snap.Tick,
		Time:        snap.Time,
		Checkpoints: passed,
	}
	r.log.Info("Run finished", "checkpoints", passed, "tick", snap.Tick, "time", snap.Time)
	return true
}

// Finished reports whether the run is over.
func (r *Referee) Finished() bool { return r.result.Finished }

// Result returns the finish record; zero until Finished.
func (r *Referee) Result() Result { return r.result }
