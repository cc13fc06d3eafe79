package power

import (
	"fmt"
	"math"
	"sort"

	"github.com/cwbudde/algo-lss/mesh"
)

// EdgeSpec describes bin boundaries either as an explicit strictly
// increasing sequence or as a {min, max, step} range. The zero value asks
// for the driver's defaults.
type EdgeSpec struct {
	// Edges, when non-nil, is used verbatim after validation.
	Edges []float64

	// Range parameters, consulted when Edges is nil. Max and Step fall
	// back to the defaults of the quantity being binned when zero; Min
	// only does so when all three are zero, since zero is a meaningful
	// minimum once any range field is set.
	Min, Max, Step float64
}

// Explicit wraps an explicit edge sequence.
func Explicit(edges ...float64) EdgeSpec {
	return EdgeSpec{Edges: edges}
}

// Range builds a {min, max, step} specification.
func Range(min, max, step float64) EdgeSpec {
	return EdgeSpec{Min: min, Max: max, Step: step, Edges: nil}
}

func validateEdges(edges []float64) error {
	if len(edges) < 2 {
		return fmt.Errorf("%w: need at least two edges, got %d", ErrConfiguration, len(edges))
	}
	for i := 1; i < len(edges); i++ {
		if !(edges[i] > edges[i-1]) {
			return fmt.Errorf("%w: edges not strictly increasing at index %d (%v, %v)",
				ErrConfiguration, i, edges[i-1], edges[i])
		}
	}
	return nil
}

// resolve materializes the specification. Zero-valued range fields take
// the provided defaults; the generated sequence covers [min, max] with the
// final edge clipped so max is attainable.
func (s EdgeSpec) resolve(defMin, defMax, defStep float64) ([]float64, error) {
	if s.Edges != nil {
		if err := validateEdges(s.Edges); err != nil {
			return nil, err
		}
		return append([]float64(nil), s.Edges...), nil
	}
	min, max, step := s.Min, s.Max, s.Step
	if min == 0 && s.Max == 0 && s.Step == 0 {
		min = defMin
	}
	if max == 0 {
		max = defMax
	}
	if step == 0 {
		step = defStep
	}
	if !(step > 0) || !(max > min) {
		return nil, fmt.Errorf("%w: edge range min=%v max=%v step=%v", ErrConfiguration, min, max, step)
	}
	var edges []float64
	for x := min; x < max-1e-9*step; x += step {
		edges = append(edges, x)
	}
	edges = append(edges, max)
	return edges, nil
}

// isZero reports whether the spec was left entirely unset.
func (s EdgeSpec) isZero() bool {
	return s.Edges == nil && s.Min == 0 && s.Max == 0 && s.Step == 0
}

// FindUniqueEdges builds the minimal edge sequence separating the
// distinct values of x, one bin per unique value, with boundaries at the
// midpoints between neighbours. Values closer than tol collapse into one
// bin. The sequence is clipped to [xmin, xmax]; use an infinite xmax for
// no upper clip.
func FindUniqueEdges(x []float64, tol, xmin, xmax float64) ([]float64, error) {
	var vals []float64
	for _, v := range x {
		if v < xmin || v > xmax {
			continue
		}
		vals = append(vals, v)
	}
	if len(vals) == 0 {
		return nil, fmt.Errorf("%w: no values inside [%v, %v]", ErrConfiguration, xmin, xmax)
	}
	sort.Float64s(vals)

	uniq := vals[:1]
	for _, v := range vals[1:] {
		if v-uniq[len(uniq)-1] > tol {
			uniq = append(uniq, v)
		}
	}

	edges := make([]float64, 0, len(uniq)+1)
	lo := uniq[0] - tol
	if lo < xmin {
		lo = xmin
	}
	edges = append(edges, lo)
	for i := 1; i < len(uniq); i++ {
		edges = append(edges, 0.5*(uniq[i-1]+uniq[i]))
	}
	hi := uniq[len(uniq)-1] + tol
	if hi > xmax {
		hi = xmax
	}
	edges = append(edges, hi)
	return edges, nil
}

// FindLatticeEdges discovers the edge sequence separating the distinct
// wavenumber magnitudes attainable on a mesh's spectral lattice, one bin
// per exact |k| value. Magnitudes closer than tol collapse into one bin;
// a non-positive tol selects 1e-6 of the smallest fundamental frequency.
// A collective call over the mesh's process group.
func FindLatticeEdges(m *mesh.Mesh, tol float64) ([]float64, error) {
	if tol <= 0 {
		fund := m.KFundamental()
		f := fund[0]
		for ax := 1; ax < 3; ax++ {
			if fund[ax] < f {
				f = fund[ax]
			}
		}
		tol = 1e-6 * f
	}
	n1, nz := m.Shape()[1], m.SpectralLen(2)
	local := make([]float64, 0, m.SlabLen()*n1*nz)
	for ix := 0; ix < m.SlabLen(); ix++ {
		for iy := 0; iy < n1; iy++ {
			for iz := 0; iz < nz; iz++ {
				k := m.KAt(ix, iy, iz)
				local = append(local, math.Sqrt(k[0]*k[0]+k[1]*k[1]+k[2]*k[2]))
			}
		}
	}
	return FindUniqueEdges(m.Comm().AllGatherFloat64s(local), tol, 0, math.Inf(1))
}

// binIndex locates x in a semi-open edge partition [e_i, e_i+1), with the
// final bin closed so the upper boundary itself is kept. Returns -1 when
// x falls outside all bins.
func binIndex(edges []float64, x float64) int {
	if x < edges[0] || x > edges[len(edges)-1] {
		return -1
	}
	if x == edges[len(edges)-1] {
		return len(edges) - 2
	}
	// First edge strictly greater than x; x lives in the bin before it.
	return sort.SearchFloat64s(edges, math.Nextafter(x, math.Inf(1))) - 1
}
