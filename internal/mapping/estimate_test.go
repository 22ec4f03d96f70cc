package mapping

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func defaultZones() Zones {
	z := Zones{Breakpoints: DefaultBreakpoints, Curve: CurveLinear}
	for i := range z.Slots {
		z.Slots[i].Ranges = DefaultRanges[i]
	}
	return z
}

func TestLikelyStage(t *testing.T) {
	z := defaultZones()
	tests := []struct {
		name      string
		obs       Observed
		wantStage int
		wantOK    bool
	}{
		{"nothing_on", Observed{}, 0, false},
		{"only_first_zone", Observed{30, 0, 0, 0}, 3, true},
		{"top_zone_on", Observed{0, 0, 0, 10}, 3, true},
		{"third_zone_on", Observed{0, 0, 10, 0}, 3, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stage, ok := z.LikelyStage(tt.obs)
			assert.Equal(t, tt.wantOK, ok)
			if ok {
				assert.Equal(t, tt.wantStage, stage)
			}
		})
	}
}

func TestLikelyStage_RespectsSentinels(t *testing.T) {
	z := Zones{Breakpoints: DefaultBreakpoints, Curve: CurveLinear}
	z.Slots[0].Ranges = Ranges{{1, 40}, Off, Off, Off}
	z.Slots[1].Ranges = Ranges{Off, {1, 40}, Off, Off}

	stage, ok := z.LikelyStage(Observed{20, 0, 0, 0})
	require.True(t, ok)
	assert.Equal(t, 0, stage)

	stage, ok = z.LikelyStage(Observed{20, 30, 0, 0})
	require.True(t, ok)
	assert.Equal(t, 1, stage)

	// lit zone whose ranges are all off never fixes a stage
	z.Slots[3].Ranges = Ranges{Off, Off, Off, Off}
	_, ok = z.LikelyStage(Observed{0, 0, 0, 80})
	assert.False(t, ok)
}

func TestEstimate_ClampsToStageEnd(t *testing.T) {
	z := Zones{Breakpoints: Breakpoints{25, 50, 75}, Curve: CurveLinear}
	z.Slots[1].Ranges = Ranges{Off, {1, 40}, Off, Off}

	stage, ok := z.LikelyStage(Observed{0, 45, 0, 0})
	require.True(t, ok)
	assert.Equal(t, 1, stage)

	pct, ok := z.ReverseProgress(Observed{0, 45, 0, 0}, stage)
	require.True(t, ok)
	assert.InDelta(t, 50.0, pct, 1e-9)
}

func TestEstimate_KeepsLargest(t *testing.T) {
	z := defaultZones()
	// stage 3 window is (75,100); zone 0 at 90.5% -> progress 0.5 -> 87.5,
	// zone 3 at 25.75% -> progress 0.25 -> 81.25
	pct, ok := z.Estimate(Observed{90.5, 0, 0, 25.75})
	require.True(t, ok)
	assert.InDelta(t, 87.5, pct, 1e-9)
}

func TestEstimate_RoundTripsLinear(t *testing.T) {
	z := defaultZones()
	for _, pct := range []float64{80, 88, 95, 100} {
		plan := z.Forward(pct)
		got, ok := z.Estimate(Observed(plan.Zones))
		require.True(t, ok, "pct %v", pct)
		assert.InDelta(t, pct, got, 1e-9, "pct %v", pct)
	}
}

func TestEstimate_Indeterminate(t *testing.T) {
	z := defaultZones()
	_, ok := z.Estimate(Observed{})
	assert.False(t, ok)

	// degenerate range gives no estimate even though the stage is found
	z.Slots[3].Ranges = Ranges{Off, Off, Off, {50, 50}}
	z.Slots[0].Ranges = Ranges{Off, Off, Off, Off}
	_, ok = z.Estimate(Observed{0, 0, 0, 50})
	assert.False(t, ok)
}

func TestRange_UnmarshalYAML(t *testing.T) {
	var got struct {
		Ranges []Range `yaml:"ranges"`
	}
	err := yaml.Unmarshal([]byte(`ranges: ["1, 40", [41, 60], "0,0", " 81 , 100 "]`), &got)
	require.NoError(t, err)
	assert.Equal(t, []Range{{1, 40}, {41, 60}, Off, {81, 100}}, got.Ranges)

	for _, bad := range []string{`ranges: ["1-40"]`, `ranges: [[1, 2, 3]]`, `ranges: ["a, b"]`, `ranges: [{min: 1}]`} {
		err := yaml.Unmarshal([]byte(bad), &got)
		assert.Error(t, err, bad)
	}
}

func TestZones_Validate(t *testing.T) {
	z := defaultZones()
	z.Slots[0].Lights = []string{"a", "b"}
	z.Slots[3].Lights = []string{"c"}
	require.NoError(t, z.Validate())
	assert.Equal(t, []string{"a", "b", "c"}, z.AllLights())

	bad := z
	bad.Breakpoints = Breakpoints{50, 25, 75}
	assert.Error(t, bad.Validate())

	bad = z
	bad.Breakpoints = Breakpoints{0, 25, 75}
	assert.Error(t, bad.Validate())

	bad = z
	bad.Curve = "sine"
	assert.Error(t, bad.Validate())

	bad = z
	bad.Slots[1].Ranges = Ranges{Off, {60, 40}, Off, Off}
	assert.Error(t, bad.Validate())

	bad = z
	bad.Slots[1].Ranges = Ranges{Off, {1, 140}, Off, Off}
	assert.Error(t, bad.Validate())

	bad = z
	bad.Slots = z.Slots
	bad.Slots[2].Lights = []string{"a"}
	assert.Error(t, bad.Validate())
}
