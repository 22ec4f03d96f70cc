// Package mapping converts between the virtual brightness dial and per-zone brightness.
//
// The dial (0-100%) is split into four stages by three breakpoints. Each zone carries one
// brightness range per stage; a curve reshapes progress within the active stage.
// Everything here is pure and total over its input domain.
package mapping

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// NumStages is the number of stages the dial is split into.
const NumStages = 4

// NumZones is the number of zone slots.
const NumZones = 4

// Breakpoints partition [0,100] into four stages: [0,b0], (b0,b1], (b1,b2], (b2,100].
type Breakpoints [3]int

// DefaultBreakpoints are used when the configuration does not set any.
var DefaultBreakpoints = Breakpoints{25, 50, 75}

// Validate checks that breakpoints are strictly increasing and interior to (0,100).
func (b Breakpoints) Validate() error {
	if b[0] <= 0 || b[2] >= 100 {
		return fmt.Errorf("breakpoints %v must lie strictly between 0 and 100", b)
	}
	if b[0] >= b[1] || b[1] >= b[2] {
		return fmt.Errorf("breakpoints %v must be strictly increasing", b)
	}
	return nil
}

// Window returns the [start,end] percentage bounds of a stage.
func (b Breakpoints) Window(stage int) (start, end float64) {
	switch stage {
	case 0:
		return 0, float64(b[0])
	case 1:
		return float64(b[0]), float64(b[1])
	case 2:
		return float64(b[1]), float64(b[2])
	default:
		return float64(b[2]), 100
	}
}

// Range is a zone's brightness window (in %) for one stage.
// The zero value {0,0} means the zone is off in that stage.
type Range struct {
	Min int
	Max int
}

// Off is the sentinel range for "zone inactive in this stage".
var Off = Range{}

// IsOff reports whether r is the inactive sentinel.
func (r Range) IsOff() bool {
	return r.Min == 0 && r.Max == 0
}

// Validate checks bounds and ordering.
func (r Range) Validate() error {
	if r.Min < 0 || r.Max > 100 {
		return fmt.Errorf("range %s out of bounds [0,100]", r)
	}
	if r.Min > r.Max {
		return fmt.Errorf("range %s has min greater than max", r)
	}
	return nil
}

func (r Range) String() string {
	return fmt.Sprintf("%d, %d", r.Min, r.Max)
}

// UnmarshalYAML accepts either "min, max" or [min, max].
func (r *Range) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		parts := strings.Split(value.Value, ",")
		if len(parts) != 2 {
			return fmt.Errorf("invalid range format: %q", value.Value)
		}
		lo, err := strconv.Atoi(strings.TrimSpace(parts[0]))
		if err != nil {
			return fmt.Errorf("invalid range format: %q", value.Value)
		}
		hi, err := strconv.Atoi(strings.TrimSpace(parts[1]))
		if err != nil {
			return fmt.Errorf("invalid range format: %q", value.Value)
		}
		*r = Range{Min: lo, Max: hi}
		return nil
	case yaml.SequenceNode:
		var pair []int
		if err := value.Decode(&pair); err != nil {
			return err
		}
		if len(pair) != 2 {
			return fmt.Errorf("invalid range format: expected 2 values, got %d", len(pair))
		}
		*r = Range{Min: pair[0], Max: pair[1]}
		return nil
	default:
		return fmt.Errorf("invalid range format at line %d", value.Line)
	}
}

// MarshalYAML writes the "min, max" form.
func (r Range) MarshalYAML() (interface{}, error) {
	return r.String(), nil
}

// Ranges holds one range per stage.
type Ranges [NumStages]Range

// DefaultRanges are the per-slot defaults: slot 0 lights first and is always on,
// each following slot joins one stage later.
var DefaultRanges = [NumZones]Ranges{
	{{1, 40}, {41, 60}, {61, 80}, {81, 100}},
	{Off, {1, 40}, {41, 60}, {61, 100}},
	{Off, Off, {1, 50}, {51, 100}},
	{Off, Off, Off, {1, 100}},
}

// Zone is one slot of physical lights sharing a range table.
type Zone struct {
	Lights []string
	Ranges Ranges
}

// Zones is the full, validated layout driven by the dial.
type Zones struct {
	Breakpoints Breakpoints
	Curve       Curve
	Slots       [NumZones]Zone
}

// AllLights returns every controlled light id, in slot order.
func (z Zones) AllLights() []string {
	var ids []string
	for _, slot := range z.Slots {
		ids = append(ids, slot.Lights...)
	}
	return ids
}

// Validate checks breakpoints, curve and every zone's ranges.
func (z Zones) Validate() error {
	if err := z.Breakpoints.Validate(); err != nil {
		return err
	}
	if _, err := ParseCurve(string(z.Curve)); err != nil {
		return err
	}
	seen := make(map[string]int)
	for i, slot := range z.Slots {
		for stage, r := range slot.Ranges {
			if err := r.Validate(); err != nil {
				return fmt.Errorf("zone %d stage %d: %w", i+1, stage+1, err)
			}
		}
		for _, id := range slot.Lights {
			if id == "" {
				return fmt.Errorf("zone %d: empty light id", i+1)
			}
			if prev, ok := seen[id]; ok {
				return fmt.Errorf("light %q assigned to zones %d and %d", id, prev+1, i+1)
			}
			seen[id] = i
		}
	}
	return nil
}
