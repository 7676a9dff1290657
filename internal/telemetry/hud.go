package telemetry

import (
	"fmt"
	"strings"
)

// Gauge full-scale values.
const (
	TachometerFullScale  = 6000 // rpm
	SpeedometerFullScale = 260  // km/h
)

// TachNeedle is the tachometer needle position, 0 at rest and 1 at full scale.
func TachNeedle(rpm float64) float64 {
	return rpm / TachometerFullScale
}

// SpeedNeedle is the speedometer needle position.
func SpeedNeedle(kmh float64) float64 {
	return kmh / SpeedometerFullScale
}

// NeedleAngle maps a needle fraction onto a dial that sweeps from start to end degrees.
func NeedleAngle(start, end, fraction float64) float64 {
	return start - fraction*(start-end)
}

// HUD renders the text panel shown over the track.
func HUD(s Snapshot) string {
	var b strings.Builder
	b.WriteString("TELEMETRY\n")
	b.WriteString("----------------\n")
	fmt.Fprintf(&b, "Speed:  %.0f km/h\n", s.SpeedKmh)
	fmt.Fprintf(&b, "RPM:    %.0f\n", s.EngineRPM)
	fmt.Fprintf(&b, "Gear:   %s\n", s.DisplayGear())
	fmt.Fprintf(&b, "G:      %+.2f\n", s.GForce)
	fmt.Fprintf(&b, "Gates:  %d\n", s.Checkpoints)

	b.WriteString("Slip:  ")
	for i, losing := range s.LosingTraction {
		mark := "-"
		if losing {
			mark = "*"
		}
		if i == 2 {
			b.WriteString(" |")
		}
		fmt.Fprintf(&b, " %s", mark)
	}
	b.WriteString("\n")

	if s.Squeal {
		b.WriteString("[SQUEAL]\n")
	}
	if s.ControlsDisabled {
		b.WriteString("[FINISHED]\n")
	}
	return b.String()
}
