package mapping

import (
	"fmt"
	"math"
)

// Curve reshapes progress within a stage. All curves map 0 to 0 and 1 to 1.
type Curve string

const (
	CurveLinear    Curve = "linear"
	CurveQuadratic Curve = "quadratic"
	CurveCubic     Curve = "cubic"
)

// DefaultCurve is used when none is configured.
const DefaultCurve = CurveLinear

// lowEnd is where the curves switch from the near-linear blend to the full blend.
// The switch is not slope-continuous.
const lowEnd = 0.1

// ParseCurve validates a curve name. An empty name yields the default.
func ParseCurve(s string) (Curve, error) {
	switch Curve(s) {
	case "":
		return DefaultCurve, nil
	case CurveLinear, CurveQuadratic, CurveCubic:
		return Curve(s), nil
	default:
		return "", fmt.Errorf("unknown brightness curve %q", s)
	}
}

// Apply maps progress p in [0,1] through the curve.
func (c Curve) Apply(p float64) float64 {
	switch c {
	case CurveQuadratic:
		if p < lowEnd {
			return 0.9*p + 0.1*math.Sqrt(p)
		}
		return 0.4*p + 0.6*math.Sqrt(p)
	case CurveCubic:
		if p < lowEnd {
			return 0.8*p + 0.2*math.Cbrt(p)
		}
		return 0.2*p + 0.8*math.Cbrt(p)
	default:
		return p
	}
}
