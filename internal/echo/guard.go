// Package echo tells the controller's own light writes apart from manual changes.
//
// Before a command is sent the expected outcome is recorded; when the light later
// reports a new state the Guard classifies it and drops the expectation.
package echo

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/combinedd/internal/light"
)

// Tolerance is the maximum brightness difference (0-255 scale) still counted as our own write.
const Tolerance = 5

// Origin says who caused a state change.
type Origin int

const (
	// External changes come from a user, an app or another automation.
	External Origin = iota
	// Self changes are the echo of a command we sent.
	Self
)

func (o Origin) String() string {
	if o == Self {
		return "self"
	}
	return "external"
}

// Guard is the echo suppression table.
// Safe for concurrent use, although the controller drives it from one goroutine.
type Guard struct {
	mu       sync.Mutex
	sessions int
	expected map[string]uint8
}

// NewGuard creates an empty guard.
func NewGuard() *Guard {
	return &Guard{expected: make(map[string]uint8)}
}

// Begin opens a write session; every change classified while it is open counts as Self.
// The returned func closes the session and must be called exactly once (defer it).
// A caller that classifies on the same goroutine that holds the session, as the combined
// light controller does, never sees this step fire: inbound events queue until release and
// are then matched against the expectation table only.
func (g *Guard) Begin() (release func()) {
	g.mu.Lock()
	g.sessions++
	g.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			g.sessions--
			g.mu.Unlock()
		})
	}
}

// Active reports whether a write session is open.
func (g *Guard) Active() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.sessions > 0
}

// Expect records the brightness a light should reach. Zero means expected off.
func (g *Guard) Expect(id string, brightness uint8) {
	g.mu.Lock()
	g.expected[id] = brightness
	g.mu.Unlock()
}

// Forget drops a pending expectation, e.g. after the command failed to send.
func (g *Guard) Forget(id string) {
	g.mu.Lock()
	delete(g.expected, id)
	g.mu.Unlock()
}

// Expected returns the pending expectation for a light.
func (g *Guard) Expected(id string) (uint8, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	b, ok := g.expected[id]
	return b, ok
}

// Pending returns the number of unresolved expectations.
func (g *Guard) Pending() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.expected)
}

// Classify decides whether a reported state is the echo of our own command.
// A pending expectation is always consumed, whether it matched or not.
func (g *Guard) Classify(id string, st light.State) Origin {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.sessions > 0 {
		return Self
	}

	want, ok := g.expected[id]
	if !ok {
		return External
	}
	delete(g.expected, id)

	if !st.On && want == 0 {
		return Self
	}
	if st.On && st.HasBrightness && abs(int(st.Brightness)-int(want)) <= Tolerance {
		return Self
	}

	log.Debug().
		Str("light", id).
		Int("expected", int(want)).
		Bool("on", st.On).
		Int("brightness", int(st.Brightness)).
		Msg("State differs from expectation, treating as manual change")
	return External
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
