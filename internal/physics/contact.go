package physics

import (
	"github.com/go-gl/mathgl/mgl64"

	"drift-sim/internal/common"
	"drift-sim/internal/suspension"
	"drift-sim/internal/vehicle"
)

// Contact is what the physics engine reports about one wheel touching the ground.
type Contact struct {
	Grounded         bool
	Position         mgl64.Vec3
	Rotation         mgl64.Quat
	SuspensionTravel float64 // 0 fully compressed, 1 fully extended
	ForwardSlip      float64
	SidewaysSlip     float64
	AngularSpeed     float64 // rpm, signed
}

// ContactProvider samples wheel ground contact.
type ContactProvider interface {
	GroundContact(w vehicle.WheelIndex) Contact
}

// Body is the rigid body the car drives.
type Body interface {
	Position() mgl64.Vec3
	Rotation() mgl64.Quat
	Velocity() mgl64.Vec3
	ApplyForce(force mgl64.Vec3)
	ApplyForceAtPoint(force, point mgl64.Vec3)
	SetCenterOfMassOffset(offset mgl64.Vec3)
}

// WheelActuator drives the physics wheels.
type WheelActuator interface {
	SetMotorTorque(w vehicle.WheelIndex, torque float64)
	SetBrakeTorque(w vehicle.WheelIndex, torque float64)
	SetSteerAngle(w vehicle.WheelIndex, degrees float64)
	SetFriction(w vehicle.WheelIndex, forwardStiffness, sidewaysStiffness float64)
}

// PoseSink receives the world pose of each wheel for its visual.
type PoseSink interface {
	SetWheelPose(w vehicle.WheelIndex, position mgl64.Vec3, rotation mgl64.Quat)
}

var worldUp = mgl64.Vec3{0, 1, 0}

// sanitize replaces unusable contact data with the safe default: off the
// ground, fully extended, no slip and no spin. It reports whether anything was replaced.
func sanitize(c Contact) (Contact, bool) {
	dirty := false
	if !common.Finite(c.SuspensionTravel) {
		c.Grounded = false
		c.SuspensionTravel = suspension.Extended
		dirty = true
	}
	if !common.Finite(c.ForwardSlip) {
		c.ForwardSlip = 0
		dirty = true
	}
	if !common.Finite(c.SidewaysSlip) {
		c.SidewaysSlip = 0
		dirty = true
	}
	if !common.Finite(c.AngularSpeed) {
		c.AngularSpeed = 0
		dirty = true
	}
	if !finiteVec(c.Position) || !finiteQuat(c.Rotation) {
		c.Position = mgl64.Vec3{}
		c.Rotation = mgl64.QuatIdent()
		dirty = true
	}
	return c, dirty
}

// up is the wheel's local up axis in world space.
func (c Contact) up(fallback mgl64.Vec3) mgl64.Vec3 {
	if c.Rotation.Len() < 1e-9 {
		return fallback
	}
	return c.Rotation.Rotate(worldUp)
}

func finiteVec(v mgl64.Vec3) bool {
	return common.Finite(v[0]) && common.Finite(v[1]) && common.Finite(v[2])
}

func finiteQuat(q mgl64.Quat) bool {
	return common.Finite(q.W) && finiteVec(q.V)
}
