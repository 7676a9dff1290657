package vehicle

import (
	"errors"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		want   error
	}{
		{name: "no gears", mutate: func(c *Config) { c.GearRatios = nil }, want: ErrNoGears},
		{name: "single point curve", mutate: func(c *Config) { c.TorqueCurve = c.TorqueCurve[:1] }, want: ErrBadTorqueCurve},
		{name: "unsorted curve", mutate: func(c *Config) {
			c.TorqueCurve = TorqueCurve{{RPM: 3000, Torque: 100}, {RPM: 1000, Torque: 200}}
		}, want: ErrBadTorqueCurve},
		{name: "zero wheelbase", mutate: func(c *Config) { c.Wheelbase = 0 }, want: ErrDegenerateGeometry},
		{name: "nan track", mutate: func(c *Config) { c.Track = math.NaN() }, want: ErrDegenerateGeometry},
		{name: "negative gear ratio", mutate: func(c *Config) { c.GearRatios = []float64{3, -1} }, want: ErrInvalidParameter},
		{name: "max below min", mutate: func(c *Config) { c.MaxRPM = c.MinRPM }, want: ErrInvalidParameter},
		{name: "steer angle too wide", mutate: func(c *Config) { c.MaxSteerAngle = 90 }, want: ErrInvalidParameter},
		{name: "unknown layout", mutate: func(c *Config) { c.Drive = DriveLayout(7) }, want: ErrInvalidParameter},
		{name: "no triggers", mutate: func(c *Config) { c.CheckpointTriggers = 0 }, want: ErrInvalidParameter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	cfg := DefaultConfig()
	cfg.GearRatios = nil
	cfg.Wheelbase = 0
	err := cfg.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoGears))
	assert.True(t, errors.Is(err, ErrDegenerateGeometry))
}

func TestRatio_ClampsIndex(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, cfg.GearRatios[0], cfg.Ratio(-3, false))
	assert.Equal(t, cfg.GearRatios[cfg.TopGear()], cfg.Ratio(99, false))
	assert.Equal(t, cfg.ReverseRatio, cfg.Ratio(2, true))
}

func TestBaseStiffness_DrivenAxleOnly(t *testing.T) {
	tests := []struct {
		drive  DriveLayout
		soft   []WheelIndex
		normal []WheelIndex
	}{
		{drive: FWD, soft: []WheelIndex{FrontLeft, FrontRight}, normal: []WheelIndex{RearLeft, RearRight}},
		{drive: RWD, soft: []WheelIndex{RearLeft, RearRight}, normal: []WheelIndex{FrontLeft, FrontRight}},
		{drive: AWD, soft: []WheelIndex{FrontLeft, FrontRight, RearLeft, RearRight}},
	}

	for _, tt := range tests {
		t.Run(tt.drive.String(), func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Drive = tt.drive
			for _, w := range tt.soft {
				fwd, side := cfg.BaseStiffness(w)
				assert.Equal(t, NeutralStiffness, fwd)
				assert.Equal(t, cfg.SidewaysFrictionStiffness, side, w.String())
			}
			for _, w := range tt.normal {
				_, side := cfg.BaseStiffness(w)
				assert.Equal(t, NeutralStiffness, side, w.String())
			}
		})
	}
}

func TestSplit(t *testing.T) {
	tests := []struct {
		drive DriveLayout
		want  [WheelCount]float64
	}{
		{drive: FWD, want: [WheelCount]float64{50, 50, 0, 0}},
		{drive: RWD, want: [WheelCount]float64{0, 0, 50, 50}},
		{drive: AWD, want: [WheelCount]float64{25, 25, 25, 25}},
	}
	for _, tt := range tests {
		t.Run(tt.drive.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.drive.Split(100))
		})
	}
}

func TestParseEnums(t *testing.T) {
	d, err := ParseDriveLayout(" AWD ")
	require.NoError(t, err)
	assert.Equal(t, AWD, d)

	_, err = ParseDriveLayout("4x4")
	assert.ErrorIs(t, err, ErrInvalidParameter)

	g, err := ParseGearboxMode("Manual")
	require.NoError(t, err)
	assert.Equal(t, Manual, g)

	_, err = ParseGearboxMode("cvt")
	assert.ErrorIs(t, err, ErrInvalidParameter)
}

func TestTorqueCurve_Evaluate(t *testing.T) {
	curve := TorqueCurve{{RPM: 1000, Torque: 100}, {RPM: 3000, Torque: 300}, {RPM: 5000, Torque: 200}}

	tests := []struct {
		rpm  float64
		want float64
	}{
		{rpm: 0, want: 100},
		{rpm: 1000, want: 100},
		{rpm: 2000, want: 200},
		{rpm: 3000, want: 300},
		{rpm: 4500, want: 225},
		{rpm: 9000, want: 200},
		{rpm: math.NaN(), want: 0},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, curve.Evaluate(tt.rpm), 1e-9, "rpm %v", tt.rpm)
	}

	assert.Equal(t, 3000.0, curve.Peak().RPM)
	assert.Equal(t, 5000.0, curve.Redline())
}

func TestDeriveGeometry(t *testing.T) {
	want := Geometry{Wheelbase: 2.55, Track: 1.5}
	offsets := want.LocalWheelOffsets()

	var world [WheelCount]mgl64.Vec3
	rot := mgl64.QuatRotate(0.7, mgl64.Vec3{0, 1, 0})
	for i, o := range offsets {
		world[i] = rot.Rotate(o).Add(mgl64.Vec3{10, 0.3, -4})
	}

	got, err := DeriveGeometry(world)
	require.NoError(t, err)
	assert.InDelta(t, want.Wheelbase, got.Wheelbase, 1e-9)
	assert.InDelta(t, want.Track, got.Track, 1e-9)

	_, err = DeriveGeometry([WheelCount]mgl64.Vec3{})
	assert.ErrorIs(t, err, ErrDegenerateGeometry)
}
