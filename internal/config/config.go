// Package config loads the simulator settings file. Every key has a default,
// so the apps also run without a file.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/spf13/viper"

	"drift-sim/internal/telemetry"
	"drift-sim/internal/vehicle"
)

// Autopilot modes for headless runs.
const (
	AutopilotFollow = "follow"
	AutopilotScript = "script"
	AutopilotNone   = "none"
)

// File is the decoded settings file.
type File struct {
	LogLevel string        `mapstructure:"logLevel"`
	LogsDir  string        `mapstructure:"logsDir"`
	Graylog  GraylogConfig `mapstructure:"graylog"`
	Sim      SimConfig     `mapstructure:"sim"`
	Vehicle  VehicleConfig `mapstructure:"vehicle"`
	Influx   InfluxConfig  `mapstructure:"influx"`
	Store    StoreConfig   `mapstructure:"store"`
	Otel     OtelConfig    `mapstructure:"otel"`
}

type GraylogConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Address string `mapstructure:"address"`
}

// SimConfig drives the world around the car.
type SimConfig struct {
	TrackPath           string  `mapstructure:"trackPath"`
	TrackScale          float64 `mapstructure:"trackScale"` // metres per pixel
	TickRate            int     `mapstructure:"tickRate"`   // ticks per simulated second
	Gravity             float64 `mapstructure:"gravity"`
	Ticks               int     `mapstructure:"ticks"` // headless run length, 0 runs until finished
	Gates               int     `mapstructure:"gates"`
	RequiredCheckpoints int     `mapstructure:"requiredCheckpoints"`
	Autopilot           string  `mapstructure:"autopilot"`
}

// TickSeconds is the fixed tick length.
func (s SimConfig) TickSeconds() float64 {
	if s.TickRate <= 0 {
		return 1.0 / 50
	}
	return 1 / float64(s.TickRate)
}

// VehicleConfig mirrors vehicle.Config with file-friendly types.
type VehicleConfig struct {
	Drive   string `mapstructure:"drive"`
	Gearbox string `mapstructure:"gearbox"`

	TorqueCurve     []vehicle.TorquePoint `mapstructure:"torqueCurve"`
	GearRatios      []float64             `mapstructure:"gearRatios"`
	FinalDriveRatio float64               `mapstructure:"finalDriveRatio"`
	ReverseRatio    float64               `mapstructure:"reverseRatio"`
	IdleRPM         float64               `mapstructure:"idleRPM"`
	MinRPM          float64               `mapstructure:"minRPM"`
	MaxRPM          float64               `mapstructure:"maxRPM"`
	ShiftDwell      float64               `mapstructure:"shiftDwell"`
	ReverseDeadband float64               `mapstructure:"reverseDeadband"`

	MaxSteerAngle   float64 `mapstructure:"maxSteerAngle"`
	SteerSmoothTime float64 `mapstructure:"steerSmoothTime"`

	BrakeForce                 float64 `mapstructure:"brakeForce"`
	HandbrakeMultiplier        float64 `mapstructure:"handbrakeMultiplier"`
	HandbrakeSidewaysStiffness float64 `mapstructure:"handbrakeSidewaysStiffness"`
	HandbrakeForwardStiffness  float64 `mapstructure:"handbrakeForwardStiffness"`
	FrictionSmoothTime         float64 `mapstructure:"frictionSmoothTime"`
	SidewaysFrictionStiffness  float64 `mapstructure:"sidewaysFrictionStiffness"`

	FrontAntiRoll        float64   `mapstructure:"frontAntiRoll"`
	RearAntiRoll         float64   `mapstructure:"rearAntiRoll"`
	CenterOfMassOffset   []float64 `mapstructure:"centerOfMassOffset"`
	DownforceCoefficient float64   `mapstructure:"downforceCoefficient"`

	Wheelbase float64 `mapstructure:"wheelbase"`
	Track     float64 `mapstructure:"track"`

	SlipThreshold      float64 `mapstructure:"slipThreshold"`
	CheckpointTriggers int     `mapstructure:"checkpointTriggers"`
}

type InfluxConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	URL         string `mapstructure:"url"`
	Token       string `mapstructure:"token"`
	Org         string `mapstructure:"org"`
	Bucket      string `mapstructure:"bucket"`
	BackupPath  string `mapstructure:"backupPath"`
	SampleEvery int    `mapstructure:"sampleEvery"`
}

// Sink converts the section into the telemetry sink settings.
func (c InfluxConfig) Sink() telemetry.InfluxConfig {
	return telemetry.InfluxConfig{
		URL:         c.URL,
		Token:       c.Token,
		Org:         c.Org,
		Bucket:      c.Bucket,
		BackupPath:  c.BackupPath,
		SampleEvery: c.SampleEvery,
	}
}

type StoreConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type OtelConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

func setDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./logs")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetDefault("sim.trackPath", "assets/track.png")
	viper.SetDefault("sim.trackScale", 0.2)
	viper.SetDefault("sim.tickRate", 50)
	viper.SetDefault("sim.gravity", 9.81)
	viper.SetDefault("sim.ticks", 0)
	viper.SetDefault("sim.gates", 8)
	viper.SetDefault("sim.requiredCheckpoints", 8)
	viper.SetDefault("sim.autopilot", AutopilotFollow)

	d := vehicle.DefaultConfig()
	curve := make([]map[string]any, len(d.TorqueCurve))
	for i, p := range d.TorqueCurve {
		curve[i] = map[string]any{"rpm": p.RPM, "torque": p.Torque}
	}
	viper.SetDefault("vehicle.drive", d.Drive.String())
	viper.SetDefault("vehicle.gearbox", d.Gearbox.String())
	viper.SetDefault("vehicle.torqueCurve", curve)
	viper.SetDefault("vehicle.gearRatios", d.GearRatios)
	viper.SetDefault("vehicle.finalDriveRatio", d.FinalDriveRatio)
	viper.SetDefault("vehicle.reverseRatio", d.ReverseRatio)
	viper.SetDefault("vehicle.idleRPM", d.IdleRPM)
	viper.SetDefault("vehicle.minRPM", d.MinRPM)
	viper.SetDefault("vehicle.maxRPM", d.MaxRPM)
	viper.SetDefault("vehicle.shiftDwell", d.ShiftDwell)
	viper.SetDefault("vehicle.reverseDeadband", d.ReverseDeadband)
	viper.SetDefault("vehicle.maxSteerAngle", d.MaxSteerAngle)
	viper.SetDefault("vehicle.steerSmoothTime", d.SteerSmoothTime)
	viper.SetDefault("vehicle.brakeForce", d.BrakeForce)
	viper.SetDefault("vehicle.handbrakeMultiplier", d.HandbrakeMultiplier)
	viper.SetDefault("vehicle.handbrakeSidewaysStiffness", d.HandbrakeSidewaysStiffness)
	viper.SetDefault("vehicle.handbrakeForwardStiffness", d.HandbrakeForwardStiffness)
	viper.SetDefault("vehicle.frictionSmoothTime", d.FrictionSmoothTime)
	viper.SetDefault("vehicle.sidewaysFrictionStiffness", d.SidewaysFrictionStiffness)
	viper.SetDefault("vehicle.frontAntiRoll", d.FrontAntiRoll)
	viper.SetDefault("vehicle.rearAntiRoll", d.RearAntiRoll)
	viper.SetDefault("vehicle.centerOfMassOffset", []float64{d.CenterOfMassOffset[0], d.CenterOfMassOffset[1], d.CenterOfMassOffset[2]})
	viper.SetDefault("vehicle.downforceCoefficient", d.DownforceCoefficient)
	viper.SetDefault("vehicle.wheelbase", d.Wheelbase)
	viper.SetDefault("vehicle.track", d.Track)
	viper.SetDefault("vehicle.slipThreshold", d.SlipThreshold)
	viper.SetDefault("vehicle.checkpointTriggers", d.CheckpointTriggers)

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.url", "http://localhost:8086")
	viper.SetDefault("influx.token", "")
	viper.SetDefault("influx.org", "drift-sim")
	viper.SetDefault("influx.bucket", "telemetry")
	viper.SetDefault("influx.backupPath", "./logs/telemetry.lp.gz")
	viper.SetDefault("influx.sampleEvery", 5)

	viper.SetDefault("store.enabled", true)
	viper.SetDefault("store.path", "./logs/runs.db")

	viper.SetDefault("otel.enabled", false)
}

// Load reads path (JSON, YAML or TOML by extension) over the defaults. An
// empty path loads the defaults alone. Each call starts from a clean viper,
// so nothing carries over from an earlier Load.
func Load(path string) (File, error) {
	viper.Reset()
	setDefaults()

	if path != "" {
		viper.SetConfigFile(path)
		if err := viper.ReadInConfig(); err != nil {
			return File{}, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var f File
	if err := viper.Unmarshal(&f); err != nil {
		return File{}, fmt.Errorf("error decoding config file: %w", err)
	}
	return f, nil
}

// Default is the configuration with no file at all.
func Default() File {
	f, err := Load("")
	if err != nil {
		// Defaults always decode.
		panic(err)
	}
	return f
}

// VehicleConfig builds and validates the vehicle description.
func (f File) VehicleConfig() (vehicle.Config, error) {
	v := f.Vehicle
	var errs []error

	drive, err := vehicle.ParseDriveLayout(v.Drive)
	errs = append(errs, err)
	gearbox, err := vehicle.ParseGearboxMode(v.Gearbox)
	errs = append(errs, err)

	var com mgl64.Vec3
	switch len(v.CenterOfMassOffset) {
	case 0:
	case 3:
		com = mgl64.Vec3{v.CenterOfMassOffset[0], v.CenterOfMassOffset[1], v.CenterOfMassOffset[2]}
	default:
		errs = append(errs, fmt.Errorf("%w: centerOfMassOffset needs 3 values, got %d",
			vehicle.ErrInvalidParameter, len(v.CenterOfMassOffset)))
	}

	if err := errors.Join(errs...); err != nil {
		return vehicle.Config{}, fmt.Errorf("invalid vehicle section: %w", err)
	}

	cfg := vehicle.Config{
		Drive:                      drive,
		Gearbox:                    gearbox,
		TorqueCurve:                vehicle.TorqueCurve(v.TorqueCurve),
		GearRatios:                 v.GearRatios,
		FinalDriveRatio:            v.FinalDriveRatio,
		ReverseRatio:               v.ReverseRatio,
		IdleRPM:                    v.IdleRPM,
		MinRPM:                     v.MinRPM,
		MaxRPM:                     v.MaxRPM,
		ShiftDwell:                 v.ShiftDwell,
		ReverseDeadband:            v.ReverseDeadband,
		MaxSteerAngle:              v.MaxSteerAngle,
		SteerSmoothTime:            v.SteerSmoothTime,
		BrakeForce:                 v.BrakeForce,
		HandbrakeMultiplier:        v.HandbrakeMultiplier,
		HandbrakeSidewaysStiffness: v.HandbrakeSidewaysStiffness,
		HandbrakeForwardStiffness:  v.HandbrakeForwardStiffness,
		FrictionSmoothTime:         v.FrictionSmoothTime,
		SidewaysFrictionStiffness:  v.SidewaysFrictionStiffness,
		FrontAntiRoll:              v.FrontAntiRoll,
		RearAntiRoll:               v.RearAntiRoll,
		CenterOfMassOffset:         com,
		DownforceCoefficient:       v.DownforceCoefficient,
		Wheelbase:                  v.Wheelbase,
		Track:                      v.Track,
		SlipThreshold:              v.SlipThreshold,
		CheckpointTriggers:         v.CheckpointTriggers,
		Gravity:                    f.Sim.Gravity,
	}
	// Zero geometry is measured from the wheels at spawn.
	check := cfg
	if check.Wheelbase == 0 || check.Track == 0 {
		d := vehicle.DefaultConfig()
		check = check.WithGeometry(d.Geometry())
	}
	if err := check.Validate(); err != nil {
		return vehicle.Config{}, fmt.Errorf("invalid vehicle section: %w", err)
	}
	return cfg, nil
}

// Autopilot returns the normalized autopilot mode.
func (f File) Autopilot() (string, error) {
	mode := strings.ToLower(strings.TrimSpace(f.Sim.Autopilot))
	switch mode {
	case AutopilotFollow, AutopilotScript, AutopilotNone:
		return mode, nil
	case "":
		return AutopilotNone, nil
	}
	return "", fmt.Errorf("unknown autopilot %q", f.Sim.Autopilot)
}
