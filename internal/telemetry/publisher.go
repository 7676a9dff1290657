package telemetry

import "sync/atomic"

// Publisher hands settled snapshots from the simulation goroutine to readers.
// Each Publish swaps in a fresh copy, so a reader never sees a half-written tick.
type Publisher struct {
	current atomic.Pointer[Snapshot]
}

// Publish makes s the latest snapshot.
func (p *Publisher) Publish(s Snapshot) {
	p.current.Store(&s)
}

// Latest returns the most recent snapshot and false if nothing was published yet.
func (p *Publisher) Latest() (Snapshot, bool) {
	s := p.current.Load()
	if s == nil {
		return Snapshot{}, false
	}
	return *s, true
}
