package physics

import (
	"github.com/go-gl/mathgl/mgl64"

	"drift-sim/internal/common"
	"drift-sim/internal/drivetrain"
	"drift-sim/internal/input"
	"drift-sim/internal/steering"
	"drift-sim/internal/suspension"
	"drift-sim/internal/telemetry"
	"drift-sim/internal/traction"
	"drift-sim/internal/vehicle"
)

// MetersPerSecondToKmh converts a speed to km/h.
const MetersPerSecondToKmh = 3.6

// Friction is the smoothed tire stiffness of one wheel.
type Friction struct {
	Forward  common.Damped
	Sideways common.Damped
}

// State is everything the car carries from one tick to the next.
type State struct {
	Tick int64
	Time float64

	Drivetrain drivetrain.State
	Steering   steering.State
	Friction   [vehicle.WheelCount]Friction
	Traction   traction.State

	Speed     float64 // m/s
	PrevSpeed float64
	GForce    float64

	RawTriggers      int
	Checkpoints      int
	ControlsDisabled bool
}

// NewState is the state of a car at spawn: idle, first gear, straight wheels
// and spawn-time tire stiffness.
func NewState(cfg *vehicle.Config) State {
	st := State{Drivetrain: drivetrain.NewState(cfg)}
	for _, w := range vehicle.Wheels {
		fwd, side := cfg.BaseStiffness(w)
		st.Friction[w] = Friction{
			Forward:  common.Damped{Value: fwd},
			Sideways: common.Damped{Value: side},
		}
	}
	return st
}

// Observation is the physics world as seen at the start of a tick.
type Observation struct {
	Velocity mgl64.Vec3
	Up       mgl64.Vec3 // body up axis
	Contacts [vehicle.WheelCount]Contact
}

// Commands are the forces and wheel settings produced by one tick.
type Commands struct {
	MotorTorque       [vehicle.WheelCount]float64
	BrakeTorque       [vehicle.WheelCount]float64
	SteerAngle        [vehicle.WheelCount]float64
	ForwardStiffness  [vehicle.WheelCount]float64
	SidewaysStiffness [vehicle.WheelCount]float64
	Downforce         mgl64.Vec3
	AntiRoll          []suspension.Force
	Poses             [vehicle.WheelCount]telemetry.Pose
}

// Result is the outcome of Step.
type Result struct {
	State      State
	Commands   Commands
	Drivetrain drivetrain.Output
	Traction   traction.Report
	Sanitized  [vehicle.WheelCount]bool
}

// Step runs one fixed tick of the vehicle pipeline. It is a pure function of
// its arguments.
func Step(cfg *vehicle.Config, model steering.Model, prev State, in input.Snapshot, obs Observation, dt float64) Result {
	var res Result
	st := prev

	if dt <= 0 {
		st.GForce = 0
		res.State = st
		res.Commands = idleCommands(prev)
		return res
	}

	// 1. Input, unless the race is over
	if st.ControlsDisabled {
		in = input.Neutral()
	}
	in = in.Sanitize()

	var contacts [vehicle.WheelCount]Contact
	allGrounded := true
	var wheelRPM [vehicle.WheelCount]float64
	for _, w := range vehicle.Wheels {
		contacts[w], res.Sanitized[w] = sanitize(obs.Contacts[w])
		allGrounded = allGrounded && contacts[w].Grounded
		wheelRPM[w] = contacts[w].AngularSpeed
	}

	// 2. Gearbox and engine
	dtr := drivetrain.Step(cfg, prev.Drivetrain, drivetrain.Input{
		Throttle:  in.Throttle,
		UpShift:   in.UpShift,
		DownShift: in.DownShift,
	}, wheelRPM, allGrounded, dt)
	st.Drivetrain = dtr.State
	res.Drivetrain = dtr

	// 3. Speed and G-force
	speed := common.OrDefault(obs.Velocity.Len(), prev.Speed)
	st.PrevSpeed = prev.Speed
	st.Speed = speed
	st.GForce = (speed - prev.Speed) / (dt * cfg.Gravity)

	// 4. Downforce
	up := obs.Up
	if !finiteVec(up) || up.Len() < 1e-9 {
		up = worldUp
	}
	cmd := Commands{Downforce: up.Mul(-cfg.DownforceCoefficient * speed)}

	// 5. Motor, brakes and handbrake friction
	cmd.MotorTorque = dtr.WheelTorque
	cmd.BrakeTorque = brakeTorques(cfg, in)
	for _, w := range vehicle.Wheels {
		fwdTarget, sideTarget := cfg.BaseStiffness(w)
		if in.Handbrake && !w.IsFront() {
			fwdTarget, sideTarget = cfg.HandbrakeForwardStiffness, cfg.HandbrakeSidewaysStiffness
		}
		f := prev.Friction[w]
		f.Forward = f.Forward.Step(fwdTarget, cfg.FrictionSmoothTime, dt)
		f.Sideways = f.Sideways.Step(sideTarget, cfg.FrictionSmoothTime, dt)
		st.Friction[w] = f
		cmd.ForwardStiffness[w] = f.Forward.Value
		cmd.SidewaysStiffness[w] = f.Sideways.Value
	}

	// 6. Steering
	st.Steering = model.Step(prev.Steering, in.Steer, dt)
	cmd.SteerAngle = st.Steering.Angles()

	// 7. Wheel poses for the visuals
	for _, w := range vehicle.Wheels {
		cmd.Poses[w] = telemetry.Pose{Position: contacts[w].Position, Rotation: contacts[w].Rotation}
	}

	// 8. Anti-roll bars
	for _, axle := range []vehicle.Axle{vehicle.FrontAxle, vehicle.RearAxle} {
		left, right := contacts[axle.Left], contacts[axle.Right]
		cmd.AntiRoll = append(cmd.AntiRoll, suspension.Balance(axle,
			suspension.Wheel{Grounded: left.Grounded, Travel: left.SuspensionTravel, Up: left.up(up), Point: left.Position},
			suspension.Wheel{Grounded: right.Grounded, Travel: right.SuspensionTravel, Up: right.up(up), Point: right.Position},
			cfg.AntiRoll(axle),
		)...)
	}

	// 9. Traction
	var tc [vehicle.WheelCount]traction.Contact
	for _, w := range vehicle.Wheels {
		tc[w] = traction.Contact{
			Grounded:     contacts[w].Grounded,
			ForwardSlip:  contacts[w].ForwardSlip,
			SidewaysSlip: contacts[w].SidewaysSlip,
		}
	}
	res.Traction = traction.Monitor{Threshold: cfg.SlipThreshold}.Step(prev.Traction, tc)
	st.Traction = res.Traction.State

	st.Tick = prev.Tick + 1
	st.Time = prev.Time + dt

	res.State = st
	res.Commands = cmd
	return res
}

// brakeTorques applies the brake force to every wheel, or with the handbrake
// boosted to the rear axle only. The front keeps the foot brake if it is also held.
func brakeTorques(cfg *vehicle.Config, in input.Snapshot) [vehicle.WheelCount]float64 {
	var out [vehicle.WheelCount]float64
	if !in.Brake && !in.Handbrake {
		return out
	}
	force := cfg.BrakeForce
	for _, w := range vehicle.Wheels {
		switch {
		case in.Handbrake && !w.IsFront():
			out[w] = force * cfg.HandbrakeMultiplier
		case in.Handbrake && !in.Brake:
			out[w] = 0
		default:
			out[w] = force
		}
	}
	return out
}

// idleCommands holds the wheels where they are for a tick that did not advance.
func idleCommands(st State) Commands {
	cmd := Commands{SteerAngle: st.Steering.Angles()}
	for _, w := range vehicle.Wheels {
		cmd.ForwardStiffness[w] = st.Friction[w].Forward.Value
		cmd.SidewaysStiffness[w] = st.Friction[w].Sideways.Value
	}
	return cmd
}

// RegisterTrigger counts one raw trigger entry. Every perGate-th entry completes a
// logical checkpoint, which is reported by the second return value.
func RegisterTrigger(st State, perGate int) (State, bool) {
	if perGate < 1 {
		perGate = 1
	}
	st.RawTriggers++
	if st.RawTriggers%perGate == 0 {
		st.Checkpoints++
		return st, true
	}
	return st, false
}

// Snapshot converts the state to published telemetry.
func (st State) Snapshot(cmd Commands, rep traction.Report, position mgl64.Vec3, rotation mgl64.Quat, velocity mgl64.Vec3) telemetry.Snapshot {
	return telemetry.Snapshot{
		Tick:             st.Tick,
		Time:             st.Time,
		SpeedKmh:         st.Speed * MetersPerSecondToKmh,
		EngineRPM:        st.Drivetrain.EngineRPM.Value,
		Gear:             st.Drivetrain.Gear + 1,
		Reverse:          st.Drivetrain.Reverse,
		GForce:           st.GForce,
		Checkpoints:      st.Checkpoints,
		Position:         position,
		Rotation:         rotation,
		Velocity:         velocity,
		SteerAngle:       cmd.SteerAngle,
		MotorTorque:      cmd.MotorTorque,
		BrakeTorque:      cmd.BrakeTorque,
		WheelPose:        cmd.Poses,
		LosingTraction:   st.Traction,
		Slip:             rep.Slip,
		Squeal:           st.Traction.Any(),
		ControlsDisabled: st.ControlsDisabled,
	}
}
