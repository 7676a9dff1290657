package physics

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"drift-sim/internal/input"
	"drift-sim/internal/steering"
	"drift-sim/internal/vehicle"
)

const tickDT = 0.02

func groundedObservation(speed float64) Observation {
	obs := Observation{Velocity: mgl64.Vec3{0, 0, speed}, Up: worldUp}
	for _, w := range vehicle.Wheels {
		obs.Contacts[w] = Contact{
			Grounded:         true,
			Rotation:         mgl64.QuatIdent(),
			SuspensionTravel: 0.5,
		}
	}
	return obs
}

func setup(t *testing.T) (vehicle.Config, steering.Model, State) {
	t.Helper()
	cfg := vehicle.DefaultConfig()
	require.NoError(t, cfg.Validate())
	return cfg, steering.New(&cfg), NewState(&cfg)
}

func TestStep_SteeringStaysWithinLock(t *testing.T) {
	cfg, model, st := setup(t)
	obs := groundedObservation(10)

	for _, steer := range []float64{1, -1, 5, -5, math.NaN()} {
		for i := 0; i < 200; i++ {
			res := Step(&cfg, model, st, input.Snapshot{Steer: steer}, obs, tickDT)
			st = res.State
			for _, w := range vehicle.Wheels {
				require.LessOrEqual(t, math.Abs(res.Commands.SteerAngle[w]), cfg.MaxSteerAngle+1e-9)
			}
		}
	}
}

func TestStep_InnerWheelSteersMore(t *testing.T) {
	cfg, model, st := setup(t)
	obs := groundedObservation(5)

	for i := 0; i < 200; i++ {
		st = Step(&cfg, model, st, input.Snapshot{Steer: 0.7}, obs, tickDT).State
	}
	angles := st.Steering.Angles()
	assert.Greater(t, angles[vehicle.FrontRight], angles[vehicle.FrontLeft], "right turn, right wheel is inner")
	assert.Greater(t, angles[vehicle.FrontLeft], 0.0)
	assert.Zero(t, angles[vehicle.RearLeft])
	assert.Zero(t, angles[vehicle.RearRight])
}

func TestStep_GForce(t *testing.T) {
	cfg, model, st := setup(t)
	step := 1.0

	want := []float64{0, 10 / cfg.Gravity, 0, -5 / cfg.Gravity}
	for i, speed := range []float64{0, 10, 10, 5} {
		st = Step(&cfg, model, st, input.Snapshot{}, groundedObservation(speed), step).State
		assert.InDelta(t, want[i], st.GForce, 1e-9, "sample %d", i)
		assert.Equal(t, speed, st.Speed)
	}
}

func TestStep_NonPositiveDelta(t *testing.T) {
	cfg, model, st := setup(t)
	st.GForce = 3
	st.Speed = 12

	for _, d := range []float64{0, -0.01} {
		res := Step(&cfg, model, st, input.Snapshot{Throttle: 1}, groundedObservation(30), d)
		assert.Zero(t, res.State.GForce)
		assert.Equal(t, st.Tick, res.State.Tick)
		assert.Equal(t, 12.0, res.State.Speed)
		assert.Equal(t, [vehicle.WheelCount]float64{}, res.Commands.MotorTorque)
	}
}

func TestStep_Downforce(t *testing.T) {
	cfg, model, st := setup(t)
	res := Step(&cfg, model, st, input.Snapshot{}, groundedObservation(20), tickDT)
	assert.InDelta(t, -cfg.DownforceCoefficient*20, res.Commands.Downforce.Y(), 1e-9)
	assert.Zero(t, res.Commands.Downforce.X())
}

func TestStep_AntiRoll(t *testing.T) {
	cfg, model, st := setup(t)

	t.Run("level car", func(t *testing.T) {
		res := Step(&cfg, model, st, input.Snapshot{}, groundedObservation(0), tickDT)
		assert.Empty(t, res.Commands.AntiRoll)
	})

	t.Run("sign follows compression", func(t *testing.T) {
		obs := groundedObservation(0)
		obs.Contacts[vehicle.FrontLeft].SuspensionTravel = 0.2
		obs.Contacts[vehicle.FrontRight].SuspensionTravel = 0.6
		res := Step(&cfg, model, st, input.Snapshot{}, obs, tickDT)
		require.Len(t, res.Commands.AntiRoll, 2)

		left, right := res.Commands.AntiRoll[0], res.Commands.AntiRoll[1]
		assert.Equal(t, vehicle.FrontLeft, left.Wheel)
		assert.InDelta(t, 0.4*cfg.FrontAntiRoll, left.Vector.Y(), 1e-9)
		assert.InDelta(t, -0.4*cfg.FrontAntiRoll, right.Vector.Y(), 1e-9)

		obs.Contacts[vehicle.FrontLeft].SuspensionTravel = 0.6
		obs.Contacts[vehicle.FrontRight].SuspensionTravel = 0.2
		flipped := Step(&cfg, model, st, input.Snapshot{}, obs, tickDT)
		require.Len(t, flipped.Commands.AntiRoll, 2)
		assert.InDelta(t, -left.Vector.Y(), flipped.Commands.AntiRoll[0].Vector.Y(), 1e-9)
	})
}

func TestStep_Idempotent(t *testing.T) {
	cfg, model, st := setup(t)
	obs := groundedObservation(8)
	obs.Contacts[vehicle.RearLeft].SidewaysSlip = 0.6
	in := input.Snapshot{Steer: 0.3, Throttle: 0.8, Handbrake: true}

	a := Step(&cfg, model, st, in, obs, tickDT)
	b := Step(&cfg, model, st, in, obs, tickDT)
	assert.Equal(t, a, b)
}

func TestStep_ControlsDisabledUsesNeutralInput(t *testing.T) {
	cfg, model, st := setup(t)
	st.ControlsDisabled = true

	res := Step(&cfg, model, st, input.Snapshot{Steer: 1, Throttle: 1, Brake: true, Handbrake: true}, groundedObservation(10), tickDT)
	assert.Equal(t, [vehicle.WheelCount]float64{}, res.Commands.MotorTorque)
	assert.Equal(t, [vehicle.WheelCount]float64{}, res.Commands.BrakeTorque)
	assert.Equal(t, [vehicle.WheelCount]float64{}, res.Commands.SteerAngle)
	assert.True(t, res.State.ControlsDisabled)
}

func TestStep_SanitizesContacts(t *testing.T) {
	cfg, model, st := setup(t)
	obs := groundedObservation(10)
	obs.Contacts[vehicle.RearRight] = Contact{
		Grounded:         true,
		SuspensionTravel: math.NaN(),
		ForwardSlip:      math.Inf(1),
		AngularSpeed:     math.NaN(),
		Position:         mgl64.Vec3{math.NaN(), 0, 0},
	}

	res := Step(&cfg, model, st, input.Snapshot{Throttle: 1}, obs, tickDT)
	assert.True(t, res.Sanitized[vehicle.RearRight])
	assert.False(t, res.Sanitized[vehicle.FrontLeft])
	assert.False(t, res.State.Traction[vehicle.RearRight])
	assert.False(t, math.IsNaN(res.State.Drivetrain.EngineRPM.Value))
	assert.Equal(t, mgl64.Vec3{}, res.Commands.Poses[vehicle.RearRight].Position)
}

func TestRegisterTrigger(t *testing.T) {
	st := State{}
	var passed int
	for i := 1; i <= 12; i++ {
		var ok bool
		st, ok = RegisterTrigger(st, 5)
		if ok {
			passed++
			assert.Zero(t, i%5, "checkpoint on entry %d", i)
		}
	}
	assert.Equal(t, 12, st.RawTriggers)
	assert.Equal(t, 2, st.Checkpoints)
	assert.Equal(t, 2, passed)

	st, ok := RegisterTrigger(State{}, 0)
	assert.True(t, ok)
	assert.Equal(t, 1, st.Checkpoints)
}

func TestStep_Handbrake(t *testing.T) {
	cfg, model, st := setup(t)
	obs := groundedObservation(15)

	res := Step(&cfg, model, st, input.Snapshot{Handbrake: true}, obs, tickDT)
	b := res.Commands.BrakeTorque
	assert.Equal(t, cfg.BrakeForce*cfg.HandbrakeMultiplier, b[vehicle.RearLeft])
	assert.Equal(t, cfg.BrakeForce*cfg.HandbrakeMultiplier, b[vehicle.RearRight])
	assert.Zero(t, b[vehicle.FrontLeft])
	assert.Greater(t, b[vehicle.RearLeft], b[vehicle.FrontLeft])

	both := Step(&cfg, model, st, input.Snapshot{Handbrake: true, Brake: true}, obs, tickDT)
	assert.Equal(t, cfg.BrakeForce, both.Commands.BrakeTorque[vehicle.FrontRight])

	prev := st.Friction[vehicle.RearLeft].Sideways.Value
	for i := 0; i < 100; i++ {
		st = Step(&cfg, model, st, input.Snapshot{Handbrake: true}, obs, tickDT).State
		cur := st.Friction[vehicle.RearLeft].Sideways.Value
		require.LessOrEqual(t, cur, prev, "tick %d", i)
		require.GreaterOrEqual(t, cur, cfg.HandbrakeSidewaysStiffness)
		prev = cur
	}
	assert.InDelta(t, cfg.HandbrakeSidewaysStiffness, prev, 1e-3)
	assert.InDelta(t, cfg.HandbrakeForwardStiffness, st.Friction[vehicle.RearRight].Forward.Value, 1e-3)

	fwd, side := cfg.BaseStiffness(vehicle.FrontLeft)
	assert.Equal(t, fwd, st.Friction[vehicle.FrontLeft].Forward.Value)
	assert.Equal(t, side, st.Friction[vehicle.FrontLeft].Sideways.Value)
}

func TestStep_FootBrake(t *testing.T) {
	cfg, model, st := setup(t)
	res := Step(&cfg, model, st, input.Snapshot{Brake: true}, groundedObservation(15), tickDT)
	for _, w := range vehicle.Wheels {
		assert.Equal(t, cfg.BrakeForce, res.Commands.BrakeTorque[w])
	}
}

func TestState_Snapshot(t *testing.T) {
	cfg, model, st := setup(t)
	obs := groundedObservation(10)
	obs.Contacts[vehicle.RearLeft].SidewaysSlip = 0.9
	res := Step(&cfg, model, st, input.Snapshot{Throttle: 1}, obs, tickDT)

	snap := res.State.Snapshot(res.Commands, res.Traction, mgl64.Vec3{1, 0, 2}, mgl64.QuatIdent(), obs.Velocity)
	assert.InDelta(t, 36.0, snap.SpeedKmh, 1e-9)
	assert.Equal(t, int64(1), snap.Tick)
	assert.Equal(t, res.State.Drivetrain.Gear+1, snap.Gear)
	assert.Equal(t, 1, snap.Gear)
	assert.False(t, snap.Reverse)
	assert.Equal(t, "1", snap.DisplayGear())
	assert.True(t, snap.Squeal)
	assert.True(t, snap.LosingTraction[vehicle.RearLeft])
	assert.Equal(t, res.Commands.MotorTorque, snap.MotorTorque)
}
