package mapping

// Observed holds, per zone, the average brightness (in %) of its lights that are on.
// Zero means no light in the zone is on.
type Observed [NumZones]float64

// LikelyStage finds the highest stage in which some lit zone is configured active.
// Zones are scanned from the highest slot down. ok is false when nothing matches.
func (z Zones) LikelyStage(obs Observed) (stage int, ok bool) {
	for stage := NumStages - 1; stage >= 0; stage-- {
		for i := NumZones - 1; i >= 0; i-- {
			if obs[i] > 0 && !z.Slots[i].Ranges[stage].IsOff() {
				return stage, true
			}
		}
	}
	return 0, false
}

// ReverseProgress estimates the dial percentage from zones active in stage.
// It inverts the linear mapping only; configured curves are not inverted.
// The largest per-zone estimate wins. ok is false when no zone yields one.
func (z Zones) ReverseProgress(obs Observed, stage int) (pct float64, ok bool) {
	start, end := z.Breakpoints.Window(stage)
	for i := NumZones - 1; i >= 0; i-- {
		if obs[i] <= 0 {
			continue
		}
		r := z.Slots[i].Ranges[stage]
		if r.IsOff() || r.Max <= r.Min {
			continue
		}
		progress := clamp01((obs[i] - float64(r.Min)) / float64(r.Max-r.Min))
		estimate := start + progress*(end-start)
		if !ok || estimate > pct {
			pct = estimate
			ok = true
		}
	}
	return pct, ok
}

// Estimate runs stage detection and reverse progress in one step.
func (z Zones) Estimate(obs Observed) (pct float64, ok bool) {
	stage, ok := z.LikelyStage(obs)
	if !ok {
		return 0, false
	}
	return z.ReverseProgress(obs, stage)
}
