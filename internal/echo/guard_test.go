package echo

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dokzlo13/combinedd/internal/light"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		expected *uint8
		state    light.State
		want     Origin
	}{
		{"no_expectation", nil, light.WithBrightness(100), External},
		{"expected_off_got_off", u8(0), light.State{}, Self},
		{"exact_match", u8(128), light.WithBrightness(128), Self},
		{"within_tolerance_above", u8(128), light.WithBrightness(133), Self},
		{"within_tolerance_below", u8(128), light.WithBrightness(123), Self},
		{"outside_tolerance", u8(128), light.WithBrightness(134), External},
		{"expected_on_got_off", u8(128), light.State{}, External},
		{"expected_off_got_on", u8(0), light.WithBrightness(200), External},
		{"expected_off_got_dim_on", u8(0), light.WithBrightness(3), Self},
		{"on_without_brightness", u8(128), light.State{On: true}, External},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewGuard()
			if tt.expected != nil {
				g.Expect("a", *tt.expected)
			}

			assert.Equal(t, tt.want, g.Classify("a", tt.state))

			_, pending := g.Expected("a")
			assert.False(t, pending, "expectation must be consumed")
			assert.Zero(t, g.Pending())
		})
	}
}

func TestClassify_MismatchDropsExpectation(t *testing.T) {
	g := NewGuard()
	g.Expect("a", 200)

	assert.Equal(t, External, g.Classify("a", light.WithBrightness(20)))
	// the late echo of our own command is now seen as manual too
	assert.Equal(t, External, g.Classify("a", light.WithBrightness(200)))
}

func TestClassify_SessionSuppressesEverything(t *testing.T) {
	g := NewGuard()
	g.Expect("a", 200)

	release := g.Begin()
	assert.True(t, g.Active())
	assert.Equal(t, Self, g.Classify("a", light.WithBrightness(10)))
	assert.Equal(t, Self, g.Classify("unknown", light.State{}))

	// session classification does not touch the table
	b, ok := g.Expected("a")
	assert.True(t, ok)
	assert.Equal(t, uint8(200), b)

	release()
	release()
	assert.False(t, g.Active())
	assert.Equal(t, Self, g.Classify("a", light.WithBrightness(198)))
}

func TestGuard_ReleaseOnPanic(t *testing.T) {
	g := NewGuard()
	func() {
		defer func() { _ = recover() }()
		release := g.Begin()
		defer release()
		panic("boom")
	}()
	assert.False(t, g.Active())
}

func TestForget(t *testing.T) {
	g := NewGuard()
	g.Expect("a", 10)
	g.Expect("b", 0)
	g.Forget("a")
	g.Forget("missing")
	assert.Equal(t, 1, g.Pending())
	assert.Equal(t, External, g.Classify("a", light.WithBrightness(10)))
}

func TestOrigin_String(t *testing.T) {
	assert.Equal(t, "self", Self.String())
	assert.Equal(t, "external", External.String())
}

func u8(v uint8) *uint8 { return &v }
