// Command sim drives a car around a track without a window: autopilot or a
// scripted schedule for a fixed number of ticks or until the run finishes.
// Telemetry goes to InfluxDB and the run summary to the results database.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"drift-sim/internal/chassis"
	"drift-sim/internal/config"
	"drift-sim/internal/driver"
	"drift-sim/internal/input"
	"drift-sim/internal/logging"
	"drift-sim/internal/session"
	"drift-sim/internal/store"
	"drift-sim/internal/telemetry"
	"drift-sim/internal/track"
)

// Runs that never finish stop after this much simulated time.
const maxSimSeconds = 600

func main() {
	cfgPath := flag.String("config", "", "Settings file (JSON, YAML or TOML); empty uses defaults")
	ticks := flag.Int("ticks", -1, "Ticks to run; overrides sim.ticks when >= 0")
	runName := flag.String("run", "", "Run name; defaults to a timestamp")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, *cfgPath, *ticks, *runName); err != nil {
		fmt.Fprintf(os.Stderr, "sim: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfgPath string, ticks int, runName string) error {
	f, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	if ticks >= 0 {
		f.Sim.Ticks = ticks
	}
	if runName == "" {
		runName = time.Now().UTC().Format("20060102-150405")
	}

	if err := os.MkdirAll(f.LogsDir, 0755); err != nil {
		return fmt.Errorf("creating logs dir: %w", err)
	}
	logFile, err := os.OpenFile(filepath.Join(f.LogsDir, "sim.log"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	defer logFile.Close()

	logs := logging.NewSlogManager()
	opts := logging.Options{Console: true}
	if f.Graylog.Enabled {
		opts.GraylogAddress = f.Graylog.Address
	}
	// A missing Graylog is logged by Setup and not fatal.
	_ = logs.Setup(logFile, f.LogLevel, opts)
	defer logs.Close()
	log := logs.Logger().With("run", runName)

	cfg, err := f.VehicleConfig()
	if err != nil {
		return err
	}
	mode, err := f.Autopilot()
	if err != nil {
		return err
	}

	grid, mesh, err := track.LoadTrackFromImage(f.Sim.TrackPath, f.Sim.TrackScale)
	if err != nil {
		return err
	}
	log.Info("Track loaded", "path", f.Sim.TrackPath, "width", grid.Width, "height", grid.Height)

	var metrics *telemetry.Metrics
	if f.Otel.Enabled {
		if metrics, err = telemetry.NewMetrics(nil); err != nil {
			return err
		}
	}

	params := chassis.DefaultParams()
	params.Gravity = f.Sim.Gravity
	sess, err := session.New(cfg, grid, mesh, session.Options{
		Logger:   log,
		Metrics:  metrics,
		Params:   params,
		Gates:    f.Sim.Gates,
		Required: f.Sim.RequiredCheckpoints,
		TickDT:   f.Sim.TickSeconds(),
	})
	if err != nil {
		return err
	}
	sess.Result.Run = runName
	sess.Result.Track = f.Sim.TrackPath
	sess.Result.Autopilot = mode

	var sink *telemetry.InfluxSink
	if f.Influx.Enabled {
		sink = telemetry.NewInfluxSink(logging.NewZerolog(logFile, f.LogLevel, "influx"), f.Influx.Sink(), runName)
		if err := sink.Connect(ctx); err != nil {
			log.Warn("Telemetry export disabled", "error", err)
			sink = nil
		} else {
			defer func() {
				if err := sink.Close(); err != nil {
					log.Error("Closing telemetry sink", "error", err)
				}
			}()
		}
	}

	src := source(mode, sess)
	limit := f.Sim.Ticks
	if limit <= 0 {
		limit = int(maxSimSeconds / sess.TickDT())
	}

	log.Info("Run started", "autopilot", mode, "ticks", limit)
	started := time.Now()
	for i := 0; i < limit; i++ {
		if ctx.Err() != nil {
			log.Warn("Run interrupted", "tick", i)
			break
		}
		snap := sess.Step(ctx, src.Poll())
		if sink != nil {
			if err := sink.Record(ctx, snap); err != nil {
				log.Warn("Telemetry point dropped", "tick", snap.Tick, "error", err)
			}
		}
		// Without a tick limit the run ends one second after the finish.
		if f.Sim.Ticks <= 0 && sess.Finished() && snap.Time >= sess.Result.FinishTime+1 {
			break
		}
	}

	res := sess.Result
	log.Info("Run complete",
		"ticks", res.Ticks,
		"simSeconds", res.SimSeconds,
		"wallSeconds", time.Since(started).Seconds(),
		"finished", res.Finished,
		"checkpoints", res.Checkpoints,
		"topSpeedKmh", res.TopSpeedKmh,
	)

	if f.Store.Enabled {
		if err := save(f.Store.Path, &res); err != nil {
			return err
		}
		log.Info("Run saved", "path", f.Store.Path, "id", res.ID)
	}
	return nil
}

func source(mode string, sess *session.Session) input.Source {
	switch mode {
	case config.AutopilotFollow:
		return driver.NewFollower(sess.Mesh, sess.Publisher)
	case config.AutopilotScript:
		return launchAndSlide(sess.TickDT())
	default:
		return input.SourceFunc(input.Neutral)
	}
}

// launchAndSlide accelerates, throws the car sideways on the handbrake and
// brakes to a stop.
func launchAndSlide(dt float64) *driver.Scripted {
	return driver.NewScripted(dt,
		driver.Segment{Until: 6, Input: input.Snapshot{Throttle: 1}},
		driver.Segment{Until: 7.5, Input: input.Snapshot{Throttle: 0.6, Steer: 0.6, Handbrake: true}},
		driver.Segment{Until: 9, Input: input.Snapshot{Throttle: 0.8, Steer: -0.4}},
		driver.Segment{Until: 12, Input: input.Snapshot{Brake: true}},
	)
}

func save(path string, res *store.RunResult) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating results dir: %w", err)
		}
	}
	db, err := store.Open(path)
	if err != nil {
		return err
	}
	return errors.Join(db.Save(res), db.Close())
}
