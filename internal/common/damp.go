package common

import "math"

// MinSmoothTime keeps the damping filters away from a division by zero.
const MinSmoothTime = 1e-4

// Damped is the state of a critically damped filter between ticks.
type Damped struct {
	Value    float64
	Velocity float64 // Rate of change carried into the next tick
}

// SmoothDamp moves current toward target like a critically damped spring.
// It is a pure function: the returned velocity must be fed back on the next call.
// The output never overshoots target.
func SmoothDamp(current, target, velocity, smoothTime, dt float64) (float64, float64) {
	if dt <= 0 {
		return current, velocity
	}
	smoothTime = math.Max(MinSmoothTime, smoothTime)

	omega := 2 / smoothTime
	x := omega * dt
	exp := 1 / (1 + x + 0.48*x*x + 0.235*x*x*x)

	change := current - target
	temp := (velocity + omega*change) * dt
	newVelocity := (velocity - omega*temp) * exp
	output := target + (change+temp)*exp

	// Snap onto the target instead of passing it.
	if (target-current > 0) == (output > target) {
		output = target
		newVelocity = (output - target) / dt
	}
	return output, newVelocity
}

// SmoothDampAngle is SmoothDamp for angles in degrees, taking the shortest way around.
func SmoothDampAngle(current, target, velocity, smoothTime, dt float64) (float64, float64) {
	target = current + DeltaAngle(current, target)
	return SmoothDamp(current, target, velocity, smoothTime, dt)
}

// Step advances d toward target and returns the new filter state.
func (d Damped) Step(target, smoothTime, dt float64) Damped {
	v, vel := SmoothDamp(d.Value, target, d.Velocity, smoothTime, dt)
	return Damped{Value: v, Velocity: vel}
}

// DeltaAngle returns the shortest signed difference between two angles in degrees.
func DeltaAngle(current, target float64) float64 {
	delta := math.Mod(target-current, 360)
	if delta > 180 {
		delta -= 360
	} else if delta < -180 {
		delta += 360
	}
	return delta
}
