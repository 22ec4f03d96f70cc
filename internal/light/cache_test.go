package light

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boolPtr(b bool) *bool { return &b }

func uint8Ptr(v uint8) *uint8 { return &v }

func TestCache_ApplyMergesPartialUpdates(t *testing.T) {
	c := NewCache()
	c.Prime(map[string]State{"a": WithBrightness(100)})
	require.True(t, c.Ready())

	st, changed := c.Apply(Update{ID: "a", Brightness: uint8Ptr(120)})
	assert.True(t, changed)
	assert.Equal(t, WithBrightness(120), st)

	st, changed = c.Apply(Update{ID: "a", On: boolPtr(false)})
	assert.True(t, changed)
	assert.Equal(t, State{}, st, "off lights hide brightness")

	// brightness is remembered while off
	st, _ = c.Apply(Update{ID: "a", On: boolPtr(true)})
	assert.Equal(t, WithBrightness(120), st)

	_, changed = c.Apply(Update{ID: "a", On: boolPtr(true)})
	assert.False(t, changed)
}

func TestCache_UnknownLight(t *testing.T) {
	c := NewCache()
	_, ok := c.State("ghost")
	assert.False(t, ok)

	st, changed := c.Apply(Update{ID: "ghost", On: boolPtr(true)})
	assert.True(t, changed)
	assert.Equal(t, State{On: true}, st)
	assert.Equal(t, 1, c.Len())
}

func TestAverageLevel(t *testing.T) {
	c := NewCache()
	c.Prime(map[string]State{
		"a": WithBrightness(100),
		"b": WithBrightness(51),
		"c": {On: false, Brightness: 250, HasBrightness: true},
		"d": {On: true},
	})

	level, ok := AverageLevel(c, []string{"a", "b", "c", "d", "missing"})
	require.True(t, ok)
	assert.Equal(t, uint8(75), level)

	_, ok = AverageLevel(c, []string{"c", "d"})
	assert.False(t, ok)

	_, ok = AverageLevel(c, nil)
	assert.False(t, ok)
}

func TestAnyOn(t *testing.T) {
	c := NewCache()
	c.Prime(map[string]State{"a": {}, "b": {On: true}})
	assert.True(t, AnyOn(c, []string{"a", "b"}))
	assert.False(t, AnyOn(c, []string{"a", "x"}))
}

func TestLevelConversions(t *testing.T) {
	assert.Equal(t, uint8(0), PercentToLevel(0))
	assert.Equal(t, uint8(0), PercentToLevel(-3))
	assert.Equal(t, uint8(255), PercentToLevel(100))
	assert.Equal(t, uint8(255), PercentToLevel(120))
	assert.Equal(t, uint8(128), PercentToLevel(50))   // 127.5 rounds up
	assert.Equal(t, uint8(154), PercentToLevel(60.4)) // 154.02
	assert.Equal(t, uint8(52), PercentToLevel(20.5))  // 52.275
	assert.InDelta(t, 100.0, LevelToPercent(255), 1e-9)
	assert.InDelta(t, 50.19607843, LevelToPercent(128), 1e-6)
}
