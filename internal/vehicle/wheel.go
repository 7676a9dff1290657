package vehicle

// WheelIndex identifies a wheel. The order is fixed across every subsystem.
type WheelIndex int

const (
	FrontLeft WheelIndex = iota
	FrontRight
	RearLeft
	RearRight
	WheelCount
)

// Wheels lists every wheel in canonical order.
var Wheels = [WheelCount]WheelIndex{FrontLeft, FrontRight, RearLeft, RearRight}

func (w WheelIndex) String() string {
	switch w {
	case FrontLeft:
		return "FL"
	case FrontRight:
		return "FR"
	case RearLeft:
		return "RL"
	case RearRight:
		return "RR"
	default:
		return "??"
	}
}

// IsFront reports whether the wheel sits on the front axle.
func (w WheelIndex) IsFront() bool {
	return w == FrontLeft || w == FrontRight
}

// IsLeft reports whether the wheel sits on the left side.
func (w WheelIndex) IsLeft() bool {
	return w == FrontLeft || w == RearLeft
}

// Axle pairs the left and right wheel of one axle.
type Axle struct {
	Left, Right WheelIndex
}

var (
	FrontAxle = Axle{Left: FrontLeft, Right: FrontRight}
	RearAxle  = Axle{Left: RearLeft, Right: RearRight}
)
