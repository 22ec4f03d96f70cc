package config

import (
	"fmt"
	"strings"

	"github.com/dokzlo13/combinedd/internal/mapping"
)

// LightConfig describes the combined light and its zones
type LightConfig struct {
	Name        string       `yaml:"name"`
	Breakpoints []int        `yaml:"breakpoints"` // three percentages, default 25/50/75
	Curve       string       `yaml:"curve"`       // linear | quadratic | cubic
	ZoneList    []ZoneConfig `yaml:"zones"`       // up to four, lowest slot first
}

// ZoneConfig is one zone slot
type ZoneConfig struct {
	Lights []string        `yaml:"lights"`
	Ranges []mapping.Range `yaml:"ranges"` // one per stage; omitted means the slot default
}

// ObjectID returns a topic- and key-safe identifier derived from Name.
func (c LightConfig) ObjectID() string {
	var b strings.Builder
	underscore := false
	for _, r := range strings.ToLower(c.Name) {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			b.WriteRune(r)
			underscore = false
			continue
		}
		if !underscore && b.Len() > 0 {
			b.WriteByte('_')
			underscore = true
		}
	}
	return strings.TrimSuffix(b.String(), "_")
}

// Zones builds the validated zone layout, filling omitted parts with defaults.
func (c LightConfig) Zones() (mapping.Zones, error) {
	z := mapping.Zones{
		Breakpoints: mapping.DefaultBreakpoints,
		Curve:       mapping.DefaultCurve,
	}

	switch len(c.Breakpoints) {
	case 0:
	case 3:
		copy(z.Breakpoints[:], c.Breakpoints)
	default:
		return z, fmt.Errorf("%w: light.breakpoints needs exactly 3 values, got %d", ErrInvalid, len(c.Breakpoints))
	}

	curve, err := mapping.ParseCurve(c.Curve)
	if err != nil {
		return z, fmt.Errorf("%w: light.curve: %v", ErrInvalid, err)
	}
	z.Curve = curve

	if len(c.ZoneList) == 0 {
		return z, fmt.Errorf("%w: light.zones must list at least one zone", ErrInvalid)
	}
	if len(c.ZoneList) > mapping.NumZones {
		return z, fmt.Errorf("%w: light.zones allows at most %d zones, got %d", ErrInvalid, mapping.NumZones, len(c.ZoneList))
	}

	for i := range z.Slots {
		z.Slots[i].Ranges = mapping.DefaultRanges[i]
	}
	for i, zc := range c.ZoneList {
		z.Slots[i].Lights = zc.Lights
		switch len(zc.Ranges) {
		case 0:
		case mapping.NumStages:
			copy(z.Slots[i].Ranges[:], zc.Ranges)
		default:
			return z, fmt.Errorf("%w: light.zones[%d].ranges needs exactly %d entries, got %d",
				ErrInvalid, i, mapping.NumStages, len(zc.Ranges))
		}
	}

	if err := z.Validate(); err != nil {
		return z, fmt.Errorf("%w: light: %v", ErrInvalid, err)
	}
	if len(z.AllLights()) == 0 {
		return z, fmt.Errorf("%w: light.zones has no lights", ErrInvalid)
	}
	return z, nil
}
