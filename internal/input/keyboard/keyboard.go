// Package keyboard reads driver input from the ebiten keyboard state.
// Poll must be called from the ebiten Update goroutine.
package keyboard

import (
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"drift-sim/internal/input"
)

// Bindings maps driver actions to keys. Each action accepts any of its keys.
type Bindings struct {
	Left, Right        []ebiten.Key
	Forward, Backward  []ebiten.Key
	Brake, Handbrake   []ebiten.Key
	UpShift, DownShift []ebiten.Key
}

// DefaultBindings uses arrows or WASD, Space for the handbrake and E/Q for shifting.
func DefaultBindings() Bindings {
	return Bindings{
		Left:      []ebiten.Key{ebiten.KeyArrowLeft, ebiten.KeyA},
		Right:     []ebiten.Key{ebiten.KeyArrowRight, ebiten.KeyD},
		Forward:   []ebiten.Key{ebiten.KeyArrowUp, ebiten.KeyW},
		Backward:  []ebiten.Key{ebiten.KeyArrowDown, ebiten.KeyS},
		Brake:     []ebiten.Key{ebiten.KeyB, ebiten.KeyShiftLeft},
		Handbrake: []ebiten.Key{ebiten.KeySpace},
		UpShift:   []ebiten.Key{ebiten.KeyE},
		DownShift: []ebiten.Key{ebiten.KeyQ},
	}
}

// Keyboard is an input.Source backed by ebiten.
type Keyboard struct {
	Bindings Bindings
}

// New returns a keyboard source with the default bindings.
func New() *Keyboard {
	return &Keyboard{Bindings: DefaultBindings()}
}

// Poll samples the keyboard. Shift keys report only the tick they went down.
func (k *Keyboard) Poll() input.Snapshot {
	b := k.Bindings
	var s input.Snapshot

	if held(b.Right) {
		s.Steer++
	}
	if held(b.Left) {
		s.Steer--
	}
	if held(b.Forward) {
		s.Throttle++
	}
	if held(b.Backward) {
		s.Throttle--
	}

	s.Brake = held(b.Brake)
	s.Handbrake = held(b.Handbrake)
	s.UpShift = pressed(b.UpShift)
	s.DownShift = pressed(b.DownShift)
	return s
}

func held(keys []ebiten.Key) bool {
	for _, k := range keys {
		if ebiten.IsKeyPressed(k) {
			return true
		}
	}
	return false
}

func pressed(keys []ebiten.Key) bool {
	for _, k := range keys {
		if inpututil.IsKeyJustPressed(k) {
			return true
		}
	}
	return false
}
