package chassis

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"drift-sim/internal/track"
	"drift-sim/internal/vehicle"
)

func testGeometry() vehicle.Geometry {
	return vehicle.Geometry{Wheelbase: 2.55, Track: 1.5}
}

func totalLoad(c *Chassis) float64 {
	sum := 0.0
	for _, w := range c.wheels {
		sum += w.load
	}
	return sum
}

func run(c *Chassis, seconds, dt float64) {
	for t := 0.0; t < seconds; t += dt {
		c.Step(dt)
	}
}

func TestNew_AtRest(t *testing.T) {
	p := DefaultParams()
	c := New(p, testGeometry(), nil, mgl64.Vec2{3, 4}, 0)
	run(c, 1, 0.02)

	assert.InDelta(t, 3, c.Position().X(), 1e-9)
	assert.InDelta(t, 4, c.Position().Z(), 1e-9)
	assert.Zero(t, c.Velocity().Len())
	assert.InDelta(t, p.Mass*p.Gravity, totalLoad(c), 1e-6)

	for _, w := range vehicle.Wheels {
		ct := c.GroundContact(w)
		assert.True(t, ct.Grounded)
		assert.InDelta(t, 1-p.Mass*p.Gravity/4/(p.SpringRate*p.SuspensionDistance), ct.SuspensionTravel, 1e-6)
		assert.Zero(t, ct.AngularSpeed)
	}
}

func TestGroundContact_Geometry(t *testing.T) {
	geo := testGeometry()
	c := New(DefaultParams(), geo, nil, mgl64.Vec2{10, -5}, 1.1)

	var positions [vehicle.WheelCount]mgl64.Vec3
	for _, w := range vehicle.Wheels {
		positions[w] = c.GroundContact(w).Position
	}
	got, err := vehicle.DeriveGeometry(positions)
	require.NoError(t, err)
	assert.InDelta(t, geo.Wheelbase, got.Wheelbase, 1e-9)
	assert.InDelta(t, geo.Track, got.Track, 1e-9)

	// Heading 0: front is +Z, left is -X.
	c = New(DefaultParams(), geo, nil, mgl64.Vec2{}, 0)
	fl := c.GroundContact(vehicle.FrontLeft).Position
	assert.Less(t, fl.X(), 0.0)
	assert.Greater(t, fl.Z(), 0.0)
}

func TestCenterOfMassOffset(t *testing.T) {
	c := New(DefaultParams(), testGeometry(), nil, mgl64.Vec2{}, 0)
	c.SetCenterOfMassOffset(mgl64.Vec3{0, -0.2, 0.3})
	c.Step(0.02)
	assert.Greater(t, c.wheels[vehicle.FrontLeft].load, c.wheels[vehicle.RearLeft].load)
	assert.InDelta(t, c.params.Mass*c.params.Gravity, totalLoad(c), 1e-6)
}

func TestApplyForce_VerticalLoadsWheels(t *testing.T) {
	c := New(DefaultParams(), testGeometry(), nil, mgl64.Vec2{}, 0)
	c.updateLoads()
	base := c.wheels[vehicle.RearRight].load

	c.ApplyForce(mgl64.Vec3{0, -400, 0})
	c.ApplyForceAtPoint(mgl64.Vec3{0, 300, 0}, c.GroundContact(vehicle.RearRight).Position)
	c.updateLoads()
	assert.InDelta(t, base+100-300, c.wheels[vehicle.RearRight].load, 1e-6)
	assert.InDelta(t, base+100, c.wheels[vehicle.RearLeft].load, 1e-6)

	c.Step(0.02)
	c.updateLoads()
	assert.InDelta(t, base, c.wheels[vehicle.RearRight].load, 1e-6, "external forces last one step")
}

func TestMotorTorque_Accelerates(t *testing.T) {
	c := New(DefaultParams(), testGeometry(), nil, mgl64.Vec2{}, 0)
	for i := 0; i < 100; i++ {
		c.SetMotorTorque(vehicle.RearLeft, 600)
		c.SetMotorTorque(vehicle.RearRight, 600)
		c.Step(0.02)
	}

	assert.Greater(t, c.Velocity().Z(), 4.0)
	assert.InDelta(t, 0, c.Velocity().X(), 1e-6)
	assert.InDelta(t, 0, c.Heading(), 1e-9)

	front := c.GroundContact(vehicle.FrontLeft)
	rear := c.GroundContact(vehicle.RearLeft)
	assert.Greater(t, front.AngularSpeed, 0.0, "front wheels roll")
	assert.GreaterOrEqual(t, rear.AngularSpeed, front.AngularSpeed)
	assert.Greater(t, rear.ForwardSlip, 0.0)
}

func TestSteering_TurnsRight(t *testing.T) {
	c := New(DefaultParams(), testGeometry(), nil, mgl64.Vec2{}, 0)
	c.vel = mgl64.Vec3{0, 0, 10}
	for _, w := range vehicle.Wheels {
		c.wheels[w].omega = 10 / c.params.WheelRadius
	}
	c.SetSteerAngle(vehicle.FrontLeft, 15)
	c.SetSteerAngle(vehicle.FrontRight, 15)
	run(c, 1, 0.02)

	assert.Greater(t, c.Heading(), 0.1)
	assert.Greater(t, c.Position().X(), 0.0)
}

func TestBrakes_Stop(t *testing.T) {
	c := New(DefaultParams(), testGeometry(), nil, mgl64.Vec2{}, 0)
	c.vel = mgl64.Vec3{0, 0, 15}
	for _, w := range vehicle.Wheels {
		c.wheels[w].omega = 15 / c.params.WheelRadius
		c.SetBrakeTorque(w, 1500)
	}
	run(c, 5, 0.02)

	assert.InDelta(t, 0, c.Velocity().Len(), 0.05)
	for _, w := range vehicle.Wheels {
		assert.Zero(t, c.GroundContact(w).AngularSpeed)
	}
}

func TestBrakeSpin(t *testing.T) {
	assert.Equal(t, 7.0, brakeSpin(10, 3))
	assert.Equal(t, -7.0, brakeSpin(-10, 3))
	assert.Zero(t, brakeSpin(2, 3))
	assert.Zero(t, brakeSpin(-2, 3))
}

func TestSetFriction_NonFinite(t *testing.T) {
	c := New(DefaultParams(), testGeometry(), nil, mgl64.Vec2{}, 0)
	c.SetFriction(vehicle.RearLeft, math.NaN(), -1)
	assert.Equal(t, vehicle.NeutralStiffness, c.wheels[vehicle.RearLeft].fwdStiff)
	assert.Zero(t, c.wheels[vehicle.RearLeft].sideStiff)
}

func openGrid(w, h int, scale float64) *track.Grid {
	g := track.NewGrid(w, h, scale)
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			g.Set(x, y, track.CellTarmac)
		}
	}
	return g
}

func TestWall_StopsTheCar(t *testing.T) {
	// 40 x 40 m of tarmac, wall along the top rows of the image (plan Z near 0).
	g := openGrid(40, 40, 1)
	for x := 0; x < 40; x++ {
		g.Set(x, 0, track.CellWall)
		g.Set(x, 1, track.CellWall)
	}
	c := New(DefaultParams(), testGeometry(), g, mgl64.Vec2{20, -20}, 0)
	c.vel = mgl64.Vec3{0, 0, 15}
	run(c, 3, 0.02)

	assert.Less(t, c.Position().Z(), -2.0)
	for _, w := range vehicle.Wheels {
		assert.True(t, g.At(track.ToPlan(c.GroundContact(w).Position)).Drivable())
	}
}

func TestGravel_LessGrip(t *testing.T) {
	g := openGrid(60, 60, 1)
	for x := 0; x < 60; x++ {
		for y := 0; y < 60; y++ {
			g.Set(x, y, track.CellGravel)
		}
	}
	tarmac := New(DefaultParams(), testGeometry(), nil, mgl64.Vec2{30, -50}, 0)
	gravel := New(DefaultParams(), testGeometry(), g, mgl64.Vec2{30, -50}, 0)
	for _, c := range []*Chassis{tarmac, gravel} {
		for i := 0; i < 50; i++ {
			c.SetMotorTorque(vehicle.RearLeft, 1500)
			c.SetMotorTorque(vehicle.RearRight, 1500)
			c.Step(0.02)
		}
	}
	assert.Greater(t, tarmac.Velocity().Len(), gravel.Velocity().Len())
	assert.Greater(t, gravel.GroundContact(vehicle.RearLeft).ForwardSlip, tarmac.GroundContact(vehicle.RearLeft).ForwardSlip)
	assert.Equal(t, track.CellGravel, gravel.Surface().Type)
}

func TestTriggers_FireOnEntry(t *testing.T) {
	wps := make([]track.Waypoint, 0, 40)
	for i := 0; i < 40; i++ {
		wps = append(wps, track.Waypoint{ID: i, Position: mgl64.Vec2{0, float64(i) * 5}, Width: 10})
	}
	mesh := &track.TrackMesh{Waypoints: wps}
	for i := range mesh.Waypoints {
		mesh.Waypoints[i].Normal = mgl64.Vec2{1, 0}
	}
	gates, err := track.BuildGates(mesh, 2, 5)
	require.NoError(t, err)

	// The start gate sits just behind waypoint 0; spawn clear of it.
	c := New(DefaultParams(), testGeometry(), nil, mgl64.Vec2{0, 20}, 0)
	c.SetTriggers(track.Triggers(gates))

	var entered []int
	c.OnTriggerEnter = func(id int) { entered = append(entered, id) }
	c.vel = mgl64.Vec3{0, 0, 20}
	for _, w := range vehicle.Wheels {
		c.wheels[w].omega = 20 / c.params.WheelRadius
	}
	run(c, 5, 0.02)

	require.Greater(t, c.Position().Z(), 100.0, "passed the first gate at z=100")
	assert.Equal(t, []int{0, 1, 2, 3, 4}, entered)
}
