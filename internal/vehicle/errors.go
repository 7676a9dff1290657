package vehicle

import "errors"

// Configuration errors. Validate wraps these so callers can test with errors.Is.
var (
	ErrNoGears            = errors.New("gear ratio sequence is empty")
	ErrBadTorqueCurve     = errors.New("malformed torque curve")
	ErrDegenerateGeometry = errors.New("degenerate wheel geometry")
	ErrInvalidParameter   = errors.New("invalid vehicle parameter")
)
