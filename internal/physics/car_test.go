package physics

import (
	"context"
	"io"
	"log/slog"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"drift-sim/internal/input"
	"drift-sim/internal/telemetry"
	"drift-sim/internal/vehicle"
)

type fakeBody struct {
	velocity mgl64.Vec3
	forces   []mgl64.Vec3
	atPoint  int
	com      mgl64.Vec3
}

func (b *fakeBody) Position() mgl64.Vec3 { return mgl64.Vec3{} }
func (b *fakeBody) Rotation() mgl64.Quat { return mgl64.QuatIdent() }
func (b *fakeBody) Velocity() mgl64.Vec3 { return b.velocity }
func (b *fakeBody) ApplyForce(f mgl64.Vec3) { b.forces = append(b.forces, f) }
func (b *fakeBody) ApplyForceAtPoint(_, _ mgl64.Vec3) { b.atPoint++ }
func (b *fakeBody) SetCenterOfMassOffset(o mgl64.Vec3) { b.com = o }

type fakeWheels struct {
	contacts [vehicle.WheelCount]Contact
	motor    [vehicle.WheelCount]float64
	brake    [vehicle.WheelCount]float64
	steer    [vehicle.WheelCount]float64
	fwd      [vehicle.WheelCount]float64
	side     [vehicle.WheelCount]float64
	poses    int
}

func (f *fakeWheels) GroundContact(w vehicle.WheelIndex) Contact { return f.contacts[w] }
func (f *fakeWheels) SetMotorTorque(w vehicle.WheelIndex, t float64) { f.motor[w] = t }
func (f *fakeWheels) SetBrakeTorque(w vehicle.WheelIndex, t float64) { f.brake[w] = t }
func (f *fakeWheels) SetSteerAngle(w vehicle.WheelIndex, deg float64) { f.steer[w] = deg }
func (f *fakeWheels) SetFriction(w vehicle.WheelIndex, fwd, side float64) {
	f.fwd[w], f.side[w] = fwd, side
}
func (f *fakeWheels) SetWheelPose(vehicle.WheelIndex, mgl64.Vec3, mgl64.Quat) { f.poses++ }

func newFakeWheels(geo vehicle.Geometry) *fakeWheels {
	f := &fakeWheels{}
	for w, p := range geo.LocalWheelOffsets() {
		f.contacts[w] = Contact{Grounded: true, Position: p, Rotation: mgl64.QuatIdent(), SuspensionTravel: 0.5}
	}
	return f
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewCar_DerivesGeometry(t *testing.T) {
	cfg := vehicle.DefaultConfig()
	cfg.Wheelbase, cfg.Track = 0, 0
	wheels := newFakeWheels(vehicle.Geometry{Wheelbase: 2.8, Track: 1.6})
	body := &fakeBody{}

	car, err := NewCar(cfg, body, wheels, wheels, Options{Logger: quietLogger()})
	require.NoError(t, err)
	assert.InDelta(t, 2.8, car.Config().Wheelbase, 1e-9)
	assert.InDelta(t, 1.6, car.Config().Track, 1e-9)
	assert.Equal(t, cfg.CenterOfMassOffset, body.com)
	assert.Equal(t, cfg.SidewaysFrictionStiffness, wheels.side[vehicle.RearLeft])
	assert.Equal(t, vehicle.NeutralStiffness, wheels.side[vehicle.FrontLeft])
}

func TestNewCar_Errors(t *testing.T) {
	t.Run("stacked wheels", func(t *testing.T) {
		cfg := vehicle.DefaultConfig()
		cfg.Wheelbase = 0
		wheels := &fakeWheels{}
		_, err := NewCar(cfg, &fakeBody{}, wheels, wheels, Options{Logger: quietLogger()})
		assert.ErrorIs(t, err, vehicle.ErrDegenerateGeometry)
	})

	t.Run("no gears", func(t *testing.T) {
		cfg := vehicle.DefaultConfig()
		cfg.GearRatios = nil
		wheels := newFakeWheels(cfg.Geometry())
		_, err := NewCar(cfg, &fakeBody{}, wheels, wheels, Options{Logger: quietLogger()})
		assert.ErrorIs(t, err, vehicle.ErrNoGears)
	})
}

func TestCar_TickAppliesCommands(t *testing.T) {
	cfg := vehicle.DefaultConfig()
	wheels := newFakeWheels(cfg.Geometry())
	wheels.contacts[vehicle.FrontLeft].SuspensionTravel = 0.1
	body := &fakeBody{velocity: mgl64.Vec3{0, 0, 10}}
	pub := &telemetry.Publisher{}

	car, err := NewCar(cfg, body, wheels, wheels, Options{Logger: quietLogger(), Publisher: pub, Poses: wheels})
	require.NoError(t, err)

	snap := car.Tick(context.Background(), input.Snapshot{Throttle: 1, Steer: 1}, 0.02)

	assert.Greater(t, wheels.motor[vehicle.RearLeft], 0.0)
	assert.Zero(t, wheels.motor[vehicle.FrontLeft])
	assert.Greater(t, wheels.steer[vehicle.FrontRight], 0.0)
	require.Len(t, body.forces, 1)
	assert.InDelta(t, -cfg.DownforceCoefficient*10, body.forces[0].Y(), 1e-9)
	assert.Equal(t, 2, body.atPoint)
	assert.Equal(t, int(vehicle.WheelCount), wheels.poses)

	latest, ok := pub.Latest()
	require.True(t, ok)
	assert.Equal(t, snap, latest)
	assert.Equal(t, int64(1), latest.Tick)
	assert.InDelta(t, 36.0, latest.SpeedKmh, 1e-9)
}

func TestCar_CheckpointsAndControls(t *testing.T) {
	cfg := vehicle.DefaultConfig()
	wheels := newFakeWheels(cfg.Geometry())
	car, err := NewCar(cfg, &fakeBody{}, wheels, wheels, Options{Logger: quietLogger()})
	require.NoError(t, err)

	ctx := context.Background()
	for i := 0; i < 2*cfg.CheckpointTriggers+1; i++ {
		car.OnTriggerEnter(ctx)
	}
	assert.Equal(t, 2, car.Checkpoints())
	assert.Equal(t, 2*cfg.CheckpointTriggers+1, car.State().RawTriggers)

	car.SetControlsDisabled(true)
	assert.True(t, car.ControlsDisabled())
	car.Tick(ctx, input.Snapshot{Throttle: 1}, 0.02)
	assert.Zero(t, wheels.motor[vehicle.RearLeft])
	assert.True(t, car.Snapshot().ControlsDisabled)
}

func TestCar_NonFiniteContactKeepsTicking(t *testing.T) {
	cfg := vehicle.DefaultConfig()
	wheels := newFakeWheels(cfg.Geometry())
	wheels.contacts[vehicle.RearRight].SidewaysSlip = math.NaN()
	car, err := NewCar(cfg, &fakeBody{}, wheels, wheels, Options{Logger: quietLogger()})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		snap := car.Tick(context.Background(), input.Snapshot{Throttle: 1}, 0.02)
		assert.False(t, snap.LosingTraction[vehicle.RearRight])
		assert.False(t, math.IsNaN(snap.EngineRPM))
	}
	assert.True(t, car.dirty[vehicle.RearRight])
}
