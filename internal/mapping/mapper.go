package mapping

// DetermineStage returns the stage holding pct. Upper bounds are inclusive,
// so a value equal to a breakpoint belongs to the lower stage.
func DetermineStage(pct float64, b Breakpoints) int {
	for i, bp := range b {
		if pct <= float64(bp) {
			return i
		}
	}
	return NumStages - 1
}

// Progress returns how far pct is through a stage window, clamped to [0,1].
// A degenerate window yields 0.
func Progress(pct float64, stage int, b Breakpoints) float64 {
	start, end := b.Window(stage)
	if end == start {
		return 0
	}
	return clamp01((pct - start) / (end - start))
}

// ZoneBrightness returns the brightness (in %) a zone should have at pct.
func ZoneBrightness(pct float64, stage int, ranges Ranges, b Breakpoints, curve Curve) float64 {
	r := ranges[stage]
	if r.IsOff() {
		return 0
	}
	curved := curve.Apply(Progress(pct, stage, b))
	return float64(r.Min) + curved*float64(r.Max-r.Min)
}

// Plan is the forward mapping result for one dial position.
type Plan struct {
	Percent float64
	Stage   int
	Zones   [NumZones]float64
}

// Forward maps a dial percentage to per-zone brightness targets.
func (z Zones) Forward(pct float64) Plan {
	stage := DetermineStage(pct, z.Breakpoints)
	p := Plan{Percent: pct, Stage: stage}
	for i, slot := range z.Slots {
		p.Zones[i] = ZoneBrightness(pct, stage, slot.Ranges, z.Breakpoints, z.Curve)
	}
	return p
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
