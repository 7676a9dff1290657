package vehicle

import (
	"fmt"
	"sort"

	"drift-sim/internal/common"
)

// TorquePoint is one sample of the engine torque curve.
type TorquePoint struct {
	RPM    float64 `json:"rpm" mapstructure:"rpm"`
	Torque float64 `json:"torque" mapstructure:"torque"` // N*m
}

// TorqueCurve maps engine RPM to torque by piecewise-linear interpolation.
// Outside the sampled range the nearest end value is held.
type TorqueCurve []TorquePoint

// Validate checks that the curve can be evaluated.
func (c TorqueCurve) Validate() error {
	if len(c) < 2 {
		return fmt.Errorf("%w: need at least 2 points, got %d", ErrBadTorqueCurve, len(c))
	}
	for i, p := range c {
		if !common.Finite(p.RPM) || !common.Finite(p.Torque) {
			return fmt.Errorf("%w: point %d is not finite", ErrBadTorqueCurve, i)
		}
		if p.Torque < 0 {
			return fmt.Errorf("%w: point %d has negative torque %.1f", ErrBadTorqueCurve, i, p.Torque)
		}
		if i > 0 && p.RPM <= c[i-1].RPM {
			return fmt.Errorf("%w: rpm must increase strictly (point %d: %.0f after %.0f)",
				ErrBadTorqueCurve, i, p.RPM, c[i-1].RPM)
		}
	}
	return nil
}

// Evaluate returns the torque at rpm.
func (c TorqueCurve) Evaluate(rpm float64) float64 {
	n := len(c)
	if n == 0 || !common.Finite(rpm) {
		return 0
	}
	if rpm <= c[0].RPM {
		return c[0].Torque
	}
	if rpm >= c[n-1].RPM {
		return c[n-1].Torque
	}

	// First point strictly above rpm.
	i := sort.Search(n, func(i int) bool { return c[i].RPM > rpm })
	lo, hi := c[i-1], c[i]
	t := (rpm - lo.RPM) / (hi.RPM - lo.RPM)
	return lo.Torque + (hi.Torque-lo.Torque)*t
}

// Peak returns the sample with the highest torque.
func (c TorqueCurve) Peak() TorquePoint {
	var best TorquePoint
	for _, p := range c {
		if p.Torque > best.Torque {
			best = p
		}
	}
	return best
}

// Redline is the highest sampled RPM.
func (c TorqueCurve) Redline() float64 {
	if len(c) == 0 {
		return 0
	}
	return c[len(c)-1].RPM
}
