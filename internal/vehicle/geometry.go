package vehicle

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
)

// MinAxleSpacing is the smallest wheelbase or track accepted, in metres.
const MinAxleSpacing = 1e-3

// Geometry is the wheelbase and track measured from the wheel positions.
type Geometry struct {
	Wheelbase float64
	Track     float64
}

// DeriveGeometry measures wheelbase (front-left to rear-left) and track
// (front-left to front-right) from world wheel positions in canonical order.
func DeriveGeometry(positions [WheelCount]mgl64.Vec3) (Geometry, error) {
	g := Geometry{
		Wheelbase: positions[FrontLeft].Sub(positions[RearLeft]).Len(),
		Track:     positions[FrontLeft].Sub(positions[FrontRight]).Len(),
	}
	if g.Wheelbase <= MinAxleSpacing || g.Track <= MinAxleSpacing {
		return Geometry{}, fmt.Errorf("%w: wheelbase %.4f m, track %.4f m", ErrDegenerateGeometry, g.Wheelbase, g.Track)
	}
	return g, nil
}

// Geometry returns the configured wheelbase and track.
func (c *Config) Geometry() Geometry {
	return Geometry{Wheelbase: c.Wheelbase, Track: c.Track}
}

// WithGeometry returns a copy of c using g.
func (c Config) WithGeometry(g Geometry) Config {
	c.Wheelbase = g.Wheelbase
	c.Track = g.Track
	return c
}

// LocalWheelOffsets places the four wheels around the body origin.
// X is right, Y is up, Z is forward.
func (g Geometry) LocalWheelOffsets() [WheelCount]mgl64.Vec3 {
	hw, hl := g.Track/2, g.Wheelbase/2
	return [WheelCount]mgl64.Vec3{
		FrontLeft:  {-hw, 0, hl},
		FrontRight: {hw, 0, hl},
		RearLeft:   {-hw, 0, -hl},
		RearRight:  {hw, 0, -hl},
	}
}
