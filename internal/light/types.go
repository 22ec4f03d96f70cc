// Package light holds the physical light model shared by the controller and the backends.
package light

import (
	"context"
	"errors"
	"math"
)

// Command failures a backend may report. Both are per-light and non-fatal.
var (
	ErrNotFound     = errors.New("light not found")
	ErrInvalidValue = errors.New("invalid light value")
)

// State is the observed state of a physical light.
// Brightness uses the 0-255 scale and is only meaningful when HasBrightness is set.
type State struct {
	On            bool
	Brightness    uint8
	HasBrightness bool
}

// WithBrightness returns an on-state carrying brightness b.
func WithBrightness(b uint8) State {
	return State{On: true, Brightness: b, HasBrightness: true}
}

// Change is a normalized state transition for one light.
type Change struct {
	ID    string
	State State
}

// Reader gives read access to current light states.
type Reader interface {
	// State returns the last known state; ok is false for unknown lights.
	State(id string) (st State, ok bool)
}

// Commander sends commands to physical lights.
// Implementations return ErrNotFound or ErrInvalidValue (possibly wrapped) on per-light failures.
type Commander interface {
	TurnOn(ctx context.Context, id string, brightness uint8) error
	TurnOff(ctx context.Context, id string) error
}

// PercentToLevel converts 0-100% to the 0-255 scale, rounding to nearest.
func PercentToLevel(pct float64) uint8 {
	if pct <= 0 {
		return 0
	}
	if pct >= 100 {
		return 255
	}
	return uint8(math.Round(pct / 100 * 255))
}

// LevelToPercent converts the 0-255 scale to 0-100%.
func LevelToPercent(level uint8) float64 {
	return float64(level) / 255 * 100
}

// AverageLevel returns the mean brightness of the lights that are on and report one.
// ok is false when none qualify. The mean is truncated to an integer level.
func AverageLevel(r Reader, ids []string) (level uint8, ok bool) {
	sum, n := 0, 0
	for _, id := range ids {
		st, known := r.State(id)
		if !known || !st.On || !st.HasBrightness {
			continue
		}
		sum += int(st.Brightness)
		n++
	}
	if n == 0 {
		return 0, false
	}
	return uint8(sum / n), true
}

// AnyOn reports whether any of the given lights is on.
func AnyOn(r Reader, ids []string) bool {
	for _, id := range ids {
		if st, ok := r.State(id); ok && st.On {
			return true
		}
	}
	return false
}
