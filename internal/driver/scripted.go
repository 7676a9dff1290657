// Package driver produces input for runs without a human at the keyboard.
package driver

import "drift-sim/internal/input"

// Segment holds one input until the clock reaches Until seconds.
type Segment struct {
	Until float64
	Input input.Snapshot
}

// Scripted replays a fixed schedule, advancing DT seconds per Poll. Shift
// requests fire only on the first tick of their segment. After the last
// segment it returns the neutral snapshot.
type Scripted struct {
	Segments []Segment
	DT       float64

	clock   float64
	current int
}

// NewScripted returns a schedule polled once every dt seconds. Segments must
// be ordered by Until.
func NewScripted(dt float64, segments ...Segment) *Scripted {
	return &Scripted{Segments: segments, DT: dt, current: -1}
}

func (s *Scripted) Poll() input.Snapshot {
	now := s.clock
	s.clock += s.DT

	idx := -1
	for i, seg := range s.Segments {
		if now < seg.Until {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.current = -1
		return input.Neutral()
	}

	snap := s.Segments[idx].Input
	if idx == s.current {
		snap.UpShift, snap.DownShift = false, false
	}
	s.current = idx
	return snap
}

// Done reports whether the schedule has run out.
func (s *Scripted) Done() bool {
	if len(s.Segments) == 0 {
		return true
	}
	return s.clock >= s.Segments[len(s.Segments)-1].Until
}
