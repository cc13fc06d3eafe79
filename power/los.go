package power

import (
	"fmt"
	"math"
	"strings"

	"github.com/cwbudde/algo-lss/mesh"
)

type losKind int

const (
	losFixed losKind = iota
	losAxis
	losFirstPoint
	losEndPoint
)

// LineOfSight selects the reference direction defining the angle mu:
// a fixed vector, a coordinate axis, or the firstpoint/endpoint
// conventions. In a periodic box the per-pair conventions reduce to a
// fixed direction through the box center; endpoint is the firstpoint
// direction reversed. The zero value means the z axis.
type LineOfSight struct {
	kind losKind
	vec  [3]float64
	axis int
}

// FixedLOS builds a line of sight along the given vector, normalized
// internally. A zero vector is a configuration error.
func FixedLOS(v [3]float64) (LineOfSight, error) {
	n := math.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
	if n == 0 || math.IsNaN(n) || math.IsInf(n, 0) {
		return LineOfSight{}, fmt.Errorf("%w: line of sight vector %v", ErrConfiguration, v)
	}
	return LineOfSight{kind: losFixed, vec: [3]float64{v[0] / n, v[1] / n, v[2] / n}}, nil
}

// AxisLOS builds a line of sight along a named coordinate axis.
func AxisLOS(name string) (LineOfSight, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "x":
		return LineOfSight{kind: losAxis, axis: 0}, nil
	case "y":
		return LineOfSight{kind: losAxis, axis: 1}, nil
	case "z":
		return LineOfSight{kind: losAxis, axis: 2}, nil
	default:
		return LineOfSight{}, fmt.Errorf("%w: unknown axis %q", ErrConfiguration, name)
	}
}

// FirstPointLOS is the direction from the observer at the origin through
// the box center.
func FirstPointLOS() LineOfSight { return LineOfSight{kind: losFirstPoint} }

// EndPointLOS is FirstPointLOS reversed.
func EndPointLOS() LineOfSight { return LineOfSight{kind: losEndPoint} }

// ParseLOS maps a configuration tag to a LineOfSight: an axis name or
// "firstpoint"/"endpoint".
func ParseLOS(s string) (LineOfSight, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "firstpoint":
		return FirstPointLOS(), nil
	case "endpoint":
		return EndPointLOS(), nil
	case "x", "y", "z":
		return AxisLOS(s)
	default:
		return LineOfSight{}, fmt.Errorf("%w: unknown line of sight %q", ErrConfiguration, s)
	}
}

// resolve turns the variant into the unit vector used by the binning
// pass. The per-pair conventions need a box to point through; a box
// centred on the observer leaves no preferred direction and degrades to
// the z axis.
func (l LineOfSight) resolve(box mesh.Box) ([3]float64, error) {
	switch l.kind {
	case losFixed:
		if l.vec == ([3]float64{}) {
			// Zero value of the struct: default axis.
			return [3]float64{0, 0, 1}, nil
		}
		return l.vec, nil
	case losAxis:
		var v [3]float64
		v[l.axis] = 1
		return v, nil
	case losFirstPoint, losEndPoint:
		c := box.Center
		n := math.Sqrt(c[0]*c[0] + c[1]*c[1] + c[2]*c[2])
		if n == 0 {
			return [3]float64{0, 0, 1}, nil
		}
		v := [3]float64{c[0] / n, c[1] / n, c[2] / n}
		if l.kind == losEndPoint {
			v = [3]float64{-v[0], -v[1], -v[2]}
		}
		return v, nil
	default:
		return [3]float64{}, fmt.Errorf("%w: line of sight kind %d", ErrConfiguration, int(l.kind))
	}
}
