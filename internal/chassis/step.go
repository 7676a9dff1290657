package chassis

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"drift-sim/internal/common"
	"drift-sim/internal/track"
	"drift-sim/internal/vehicle"
)

// Step integrates dt seconds in fixed substeps, firing trigger events as the
// body moves, then clears the forces applied since the last Step.
func (c *Chassis) Step(dt float64) {
	if dt <= 0 || !common.Finite(dt) {
		return
	}
	sub := c.params.Substep
	if sub <= 0 {
		sub = dt
	}
	n := int(math.Ceil(dt/sub - 1e-9))
	h := dt / float64(n)

	for i := 0; i < n; i++ {
		c.substep(h)
		c.checkTriggers()
	}

	c.extForce = mgl64.Vec3{}
	c.extLoad = [vehicle.WheelCount]float64{}
}

// updateLoads spreads the weight over the wheels: static split from the
// centre of mass, longitudinal and lateral transfer from the last
// acceleration, then external vertical forces.
func (c *Chassis) updateLoads() {
	p := c.params
	weight := p.Mass * p.Gravity

	frontShare := 0.5
	if c.wheelbase > 0 {
		frontShare = common.Clamp(0.5+c.com.Z()/c.wheelbase, minFrontShare, maxFrontShare)
	}
	h := math.Max(0.05, p.CGHeight+c.com.Y())

	transfer := 0.0
	if c.wheelbase > 0 {
		transfer = h / c.wheelbase * p.Mass * c.accelLong
	}
	front := weight*frontShare - transfer
	rear := weight*(1-frontShare) + transfer

	// Cornering to the right loads the left wheels.
	lateral := 0.0
	if c.track > 0 {
		lateral = h / c.track * c.accelLat / p.Gravity
	}

	for w := range c.wheels {
		idx := vehicle.WheelIndex(w)
		axle := rear
		if idx.IsFront() {
			axle = front
		}
		side := 0.5 - lateral
		if idx.IsLeft() {
			side = 0.5 + lateral
		}
		c.wheels[w].load = math.Max(0, axle*side+c.extLoad[w])
	}
}

func (c *Chassis) substep(h float64) {
	p := c.params
	c.updateLoads()

	rot := c.Rotation()
	prevPos := c.pos

	var force mgl64.Vec3
	torque := 0.0

	for w := range c.wheels {
		wh := &c.wheels[w]
		idx := vehicle.WheelIndex(w)

		wh.grounded = wh.load > 0
		wh.travel += (c.travelTarget(wh.load) - wh.travel) * math.Min(1, h/travelSmoothTime)

		r := rot.Rotate(wh.offset.Sub(mgl64.Vec3{c.com.X(), 0, c.com.Z()}))
		vWheel := c.vel.Add(mgl64.Vec3{c.yawRate * r.Z(), 0, -c.yawRate * r.X()})

		heading := c.yaw + mgl64.DegToRad(wh.steer)
		fwd := mgl64.Vec3{math.Sin(heading), 0, math.Cos(heading)}
		right := mgl64.Vec3{math.Cos(heading), 0, -math.Sin(heading)}
		vLong, vLat := vWheel.Dot(fwd), vWheel.Dot(right)
		speed := math.Hypot(vLong, vLat)

		cell := c.cellAt(c.wheelWorld(idx))
		mu := p.Grip * cell.Friction
		if !cell.Drivable() {
			mu = p.Grip * track.TarmacGrip
		}

		fx, fy := 0.0, 0.0
		if wh.grounded {
			fx, fy = c.tireForces(wh, mu, vLong, vLat, speed, h)
		} else {
			wh.fwdSlip, wh.sideSlip = 0, 0
			wh.omega += wh.motor / p.WheelInertia * h
			wh.omega = brakeSpin(wh.omega, wh.brake/p.WheelInertia*h)
		}
		wh.spin = math.Mod(wh.spin+wh.omega*h, 2*math.Pi)

		f := fwd.Mul(fx).Add(right.Mul(fy))
		force = force.Add(f)
		torque += r.Z()*f.X() - r.X()*f.Z()
	}

	// Drag and rolling resistance
	v := c.vel.Len()
	force = force.Sub(c.vel.Mul(p.DragCoefficient * v))
	force = force.Sub(c.vel.Mul(p.RollingResistance * p.DragCoefficient))
	force = force.Add(c.extForce)

	accel := force.Mul(1 / p.Mass)
	c.vel = c.vel.Add(accel.Mul(h))
	c.yawRate += torque / p.YawInertia * h
	c.pos = c.pos.Add(c.vel.Mul(h))
	c.yaw = math.Remainder(c.yaw+c.yawRate*h, 2*math.Pi)

	body := mgl64.Vec3{math.Sin(c.yaw), 0, math.Cos(c.yaw)}
	side := mgl64.Vec3{math.Cos(c.yaw), 0, -math.Sin(c.yaw)}
	c.accelLong, c.accelLat = accel.Dot(body), accel.Dot(side)

	if c.hitsWall() {
		c.pos = prevPos
		c.vel = c.vel.Mul(-p.WallRestitution)
		c.yawRate *= 0.5
		c.accelLong, c.accelLat = 0, 0
	}
}

// tireForces solves the wheel spin for this substep and returns the
// longitudinal and lateral tire force. The spin update is implicit in the slip
// so a locked or spinning wheel settles instead of oscillating.
func (c *Chassis) tireForces(wh *wheel, mu, vLong, vLat, speed, h float64) (float64, float64) {
	p := c.params
	r := p.WheelRadius
	fxMax := mu * wh.load * wh.fwdStiff
	fyMax := mu * wh.load * wh.sideStiff
	denom := math.Max(math.Abs(vLong), 1)

	slip := (wh.omega*r - vLong) / denom
	fx0 := common.Clamp(forwardSlipGain*slip, -1, 1) * fxMax
	k := 0.0
	if math.Abs(forwardSlipGain*slip) < 1 {
		k = forwardSlipGain * fxMax * r / denom
	}
	wh.omega += (wh.motor - r*fx0) / (p.WheelInertia/h + r*k)
	wh.omega = brakeSpin(wh.omega, wh.brake/p.WheelInertia*h)

	wh.fwdSlip = (wh.omega*r - vLong) / denom
	wh.sideSlip = vLat / math.Max(speed, 1)

	fx := common.Clamp(forwardSlipGain*wh.fwdSlip, -1, 1) * fxMax
	fy := -common.Clamp(sidewaysSlipGain*wh.sideSlip, -1, 1) * fyMax

	// Friction circle
	limit := mu * wh.load
	if total := math.Hypot(fx, fy); total > limit && total > 0 {
		fx *= limit / total
		fy *= limit / total
	}
	return fx, fy
}

// brakeSpin slows a wheel by at most delta rad/s without reversing it.
func brakeSpin(omega, delta float64) float64 {
	if math.Abs(omega) <= delta {
		return 0
	}
	return omega - math.Copysign(delta, omega)
}

func (c *Chassis) hitsWall() bool {
	for w := range c.wheels {
		if !c.cellAt(c.wheelWorld(vehicle.WheelIndex(w))).Drivable() {
			return true
		}
	}
	return false
}
