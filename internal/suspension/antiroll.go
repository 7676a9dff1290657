// Package suspension couples the left and right wheels of an axle with an
// anti-roll bar: the more compressed side is pushed up and the other pulled down.
package suspension

import (
	"github.com/go-gl/mathgl/mgl64"

	"drift-sim/internal/common"
	"drift-sim/internal/vehicle"
)

// Extended is the travel of a wheel off the ground or with unusable data.
const Extended = 1.0

// minSuspensionDistance guards TravelFromHit against a collapsed spring.
const minSuspensionDistance = 1e-4

// Wheel is what the balancer needs to know about one wheel.
type Wheel struct {
	Grounded bool
	Travel   float64    // 0 fully compressed, 1 fully extended
	Up       mgl64.Vec3 // wheel local up axis in world space
	Point    mgl64.Vec3 // where the force is applied
}

// Force is an anti-roll push on one wheel.
type Force struct {
	Wheel  vehicle.WheelIndex
	Vector mgl64.Vec3
	Point  mgl64.Vec3
}

// EffectiveTravel is the travel used for the asymmetry term.
func EffectiveTravel(w Wheel) float64 {
	if !w.Grounded || !common.Finite(w.Travel) {
		return Extended
	}
	return w.Travel
}

// AntiRollForce is (travelLeft - travelRight) * stiffness.
// The left wheel receives the negated value, the right wheel the value itself.
func AntiRollForce(travelLeft, travelRight, stiffness float64) float64 {
	return (travelLeft - travelRight) * stiffness
}

// Balance computes the anti-roll forces for one axle. Only grounded wheels are
// pushed; an airborne wheel still counts as fully extended.
func Balance(axle vehicle.Axle, left, right Wheel, stiffness float64) []Force {
	f := AntiRollForce(EffectiveTravel(left), EffectiveTravel(right), stiffness)
	if f == 0 {
		return nil
	}

	forces := make([]Force, 0, 2)
	if left.Grounded {
		forces = append(forces, Force{Wheel: axle.Left, Vector: left.Up.Mul(-f), Point: left.Point})
	}
	if right.Grounded {
		forces = append(forces, Force{Wheel: axle.Right, Vector: right.Up.Mul(f), Point: right.Point})
	}
	return forces
}

// TravelFromHit converts the height of a ground hit below the wheel centre (in
// the wheel's local frame, negative down) to a normalized travel.
func TravelFromHit(hitLocalY, radius, suspensionDistance float64) float64 {
	if !common.Finite(suspensionDistance) || suspensionDistance < minSuspensionDistance {
		return Extended
	}
	travel := (-hitLocalY - radius) / suspensionDistance
	return common.Clamp(common.OrDefault(travel, Extended), 0, 1)
}
