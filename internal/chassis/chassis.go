// Package chassis is a small rigid-body car model on a flat track. It plays the
// physics engine for the vehicle core: it reports wheel ground contact, takes
// motor, brake and steer commands and external forces, and integrates the body
// in fixed substeps.
//
// The body only moves on the ground plane (position X/Z and yaw). Vertical
// forces are not integrated; they shift wheel load instead, which the
// suspension travel follows.
package chassis

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"drift-sim/internal/common"
	"drift-sim/internal/physics"
	"drift-sim/internal/track"
	"drift-sim/internal/vehicle"
)

// Params are the physical constants of the body and tires.
type Params struct {
	Mass               float64 // kg
	YawInertia         float64 // kg*m^2
	WheelRadius        float64 // m
	WheelInertia       float64 // kg*m^2 per wheel
	SpringRate         float64 // N/m
	SuspensionDistance float64 // m
	CGHeight           float64 // m above the ground
	Grip               float64 // tire friction coefficient on tarmac
	DragCoefficient    float64 // 0.5 * Cd * frontal area * air density
	RollingResistance  float64 // multiple of the drag coefficient
	WallRestitution    float64
	Substep            float64 // s
	Gravity            float64
}

// DefaultParams is a 1.2 t coupe.
func DefaultParams() Params {
	return Params{
		Mass:               1200,
		YawInertia:         1500,
		WheelRadius:        0.33,
		WheelInertia:       1.2,
		SpringRate:         35000,
		SuspensionDistance: 0.3,
		CGHeight:           0.5,
		Grip:               1.0,
		DragCoefficient:    0.5 * 0.3 * 2.0 * 1.29,
		RollingResistance:  30,
		WallRestitution:    0.3,
		Substep:            0.005,
		Gravity:            9.81,
	}
}

// Tire model constants.
const (
	forwardSlipGain  = 10.0
	sidewaysSlipGain = 6.0
	travelSmoothTime = 0.05
	minFrontShare    = 0.1
	maxFrontShare    = 0.9
)

// Surface is the ground under the car.
type Surface interface {
	At(plan mgl64.Vec2) track.Cell
}

type wheel struct {
	offset mgl64.Vec3 // body frame, from the body origin

	omega float64 // rad/s
	spin  float64 // accumulated rotation, radians

	motor, brake, steer float64
	fwdStiff, sideStiff float64

	load     float64
	travel   float64
	grounded bool
	fwdSlip  float64
	sideSlip float64
}

// Chassis implements physics.Body, physics.ContactProvider and physics.WheelActuator.
type Chassis struct {
	params  Params
	surface Surface

	pos     mgl64.Vec3
	yaw     float64
	vel     mgl64.Vec3
	yawRate float64
	com     mgl64.Vec3

	// Acceleration in the body frame from the last substep, for load transfer.
	accelLong, accelLat float64

	wheels    [vehicle.WheelCount]wheel
	wheelbase float64
	track     float64

	extForce mgl64.Vec3
	extLoad  [vehicle.WheelCount]float64

	triggers []track.Trigger
	inside   []bool

	// OnTriggerEnter is called with the trigger ID each time the body enters a trigger.
	OnTriggerEnter func(id int)
}

var (
	_ physics.Body            = (*Chassis)(nil)
	_ physics.ContactProvider = (*Chassis)(nil)
	_ physics.WheelActuator   = (*Chassis)(nil)
)

// New places a car at rest on a plan position facing heading (radians from +Z toward +X).
// A nil surface is endless tarmac.
func New(params Params, geo vehicle.Geometry, surface Surface, spawn mgl64.Vec2, heading float64) *Chassis {
	c := &Chassis{
		params:    params,
		surface:   surface,
		pos:       track.ToWorld(spawn),
		yaw:       heading,
		wheelbase: geo.Wheelbase,
		track:     geo.Track,
	}
	for w, off := range geo.LocalWheelOffsets() {
		c.wheels[w] = wheel{
			offset:    off,
			fwdStiff:  vehicle.NeutralStiffness,
			sideStiff: vehicle.NeutralStiffness,
			travel:    1,
		}
	}
	c.updateLoads()
	for w := range c.wheels {
		c.wheels[w].travel = c.travelTarget(c.wheels[w].load)
	}
	return c
}

// Position is the body origin in world space.
func (c *Chassis) Position() mgl64.Vec3 { return c.pos }

// Rotation is the body yaw as a quaternion.
func (c *Chassis) Rotation() mgl64.Quat { return mgl64.QuatRotate(c.yaw, worldUp) }

// Velocity is the linear velocity of the body.
func (c *Chassis) Velocity() mgl64.Vec3 { return c.vel }

// Heading is the yaw in radians.
func (c *Chassis) Heading() float64 { return c.yaw }

// YawRate is the angular speed about the up axis, rad/s.
func (c *Chassis) YawRate() float64 { return c.yawRate }

// ApplyForce adds a force through the centre of mass for the next Step.
// The vertical part loads all wheels evenly.
func (c *Chassis) ApplyForce(force mgl64.Vec3) {
	c.extForce = c.extForce.Add(mgl64.Vec3{force.X(), 0, force.Z()})
	for w := range c.extLoad {
		c.extLoad[w] -= force.Y() / float64(vehicle.WheelCount)
	}
}

// ApplyForceAtPoint adds a force at a world point. The vertical part goes to
// the wheel nearest to the point.
func (c *Chassis) ApplyForceAtPoint(force, point mgl64.Vec3) {
	c.extForce = c.extForce.Add(mgl64.Vec3{force.X(), 0, force.Z()})

	nearest, best := 0, math.MaxFloat64
	for w := range c.wheels {
		d := c.wheelWorld(vehicle.WheelIndex(w)).Sub(point).Len()
		if d < best {
			nearest, best = w, d
		}
	}
	c.extLoad[nearest] -= force.Y()
}

// SetCenterOfMassOffset moves the centre of mass in the body frame.
func (c *Chassis) SetCenterOfMassOffset(offset mgl64.Vec3) {
	c.com = offset
	c.updateLoads()
}

func (c *Chassis) SetMotorTorque(w vehicle.WheelIndex, torque float64) {
	c.wheels[w].motor = common.OrDefault(torque, 0)
}

func (c *Chassis) SetBrakeTorque(w vehicle.WheelIndex, torque float64) {
	c.wheels[w].brake = math.Max(0, common.OrDefault(torque, 0))
}

func (c *Chassis) SetSteerAngle(w vehicle.WheelIndex, degrees float64) {
	c.wheels[w].steer = common.OrDefault(degrees, 0)
}

func (c *Chassis) SetFriction(w vehicle.WheelIndex, forwardStiffness, sidewaysStiffness float64) {
	c.wheels[w].fwdStiff = math.Max(0, common.OrDefault(forwardStiffness, vehicle.NeutralStiffness))
	c.wheels[w].sideStiff = math.Max(0, common.OrDefault(sidewaysStiffness, vehicle.NeutralStiffness))
}

// GroundContact reports the contact of wheel w as of the last Step.
func (c *Chassis) GroundContact(w vehicle.WheelIndex) physics.Contact {
	wh := c.wheels[w]
	steer := mgl64.QuatRotate(mgl64.DegToRad(wh.steer), worldUp)
	return physics.Contact{
		Grounded:         wh.grounded,
		Position:         c.wheelWorld(w),
		Rotation:         c.Rotation().Mul(steer),
		SuspensionTravel: wh.travel,
		ForwardSlip:      wh.fwdSlip,
		SidewaysSlip:     wh.sideSlip,
		AngularSpeed:     wh.omega * 60 / (2 * math.Pi),
	}
}

// WheelSpin is the accumulated rotation of wheel w in radians, for drawing.
func (c *Chassis) WheelSpin(w vehicle.WheelIndex) float64 {
	return c.wheels[w].spin
}

// Surface returns the cell under the body origin.
func (c *Chassis) Surface() track.Cell {
	return c.cellAt(c.pos)
}

var worldUp = mgl64.Vec3{0, 1, 0}

func (c *Chassis) wheelWorld(w vehicle.WheelIndex) mgl64.Vec3 {
	p := c.pos.Add(c.Rotation().Rotate(c.wheels[w].offset))
	p[1] = c.params.WheelRadius
	return p
}

func (c *Chassis) cellAt(world mgl64.Vec3) track.Cell {
	if c.surface == nil {
		return track.CellFor(track.CellTarmac)
	}
	return c.surface.At(track.ToPlan(world))
}

func (c *Chassis) travelTarget(load float64) float64 {
	if c.params.SpringRate <= 0 || c.params.SuspensionDistance <= 0 {
		return 1
	}
	return common.Clamp(1-load/(c.params.SpringRate*c.params.SuspensionDistance), 0, 1)
}
