package mesh

import (
	"fmt"
	"math"
	"strings"
)

// Resampler selects the B-spline assignment kernel. The numeric value is
// the kernel order: the number of cells a particle touches per axis.
type Resampler int

const (
	// ResamplerNGP is nearest grid point (order 1).
	ResamplerNGP Resampler = 1
	// ResamplerCIC is cloud in cell (order 2).
	ResamplerCIC Resampler = 2
	// ResamplerTSC is triangular shaped cloud (order 3).
	ResamplerTSC Resampler = 3
	// ResamplerPCS is piecewise cubic spline (order 4).
	ResamplerPCS Resampler = 4
)

// ParseResampler maps a tag ("ngp", "cic", "tsc", "pcs") to a Resampler.
func ParseResampler(name string) (Resampler, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "ngp":
		return ResamplerNGP, nil
	case "cic":
		return ResamplerCIC, nil
	case "tsc":
		return ResamplerTSC, nil
	case "pcs":
		return ResamplerPCS, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidResampler, name)
	}
}

// Order returns the kernel order.
func (r Resampler) Order() int { return int(r) }

// Valid reports whether r is one of the supported kernels.
func (r Resampler) Valid() bool { return r >= ResamplerNGP && r <= ResamplerPCS }

func (r Resampler) String() string {
	switch r {
	case ResamplerNGP:
		return "ngp"
	case ResamplerCIC:
		return "cic"
	case ResamplerTSC:
		return "tsc"
	case ResamplerPCS:
		return "pcs"
	default:
		return fmt.Sprintf("Resampler(%d)", int(r))
	}
}

// weights evaluates the separable kernel at fractional grid coordinate x
// (cell units, grid points at integers). It returns the first cell index
// touched and the Order() per-cell weights, which sum to 1 exactly for
// every kernel so painting conserves total mass.
func (r Resampler) weights(x float64, w *[4]float64) (i0 int) {
	switch r {
	case ResamplerNGP:
		i0 = int(math.Floor(x + 0.5))
		w[0] = 1
	case ResamplerCIC:
		fl := math.Floor(x)
		d := x - fl
		i0 = int(fl)
		w[0] = 1 - d
		w[1] = d
	case ResamplerTSC:
		// Centred on the nearest grid point; support of three cells.
		c := math.Floor(x + 0.5)
		d := x - c
		i0 = int(c) - 1
		w[0] = 0.5 * (0.5 - d) * (0.5 - d)
		w[1] = 0.75 - d*d
		w[2] = 0.5 * (0.5 + d) * (0.5 + d)
	case ResamplerPCS:
		// Cubic B-spline; support of four cells.
		fl := math.Floor(x)
		d := x - fl
		i0 = int(fl) - 1
		w[0] = (1 - d) * (1 - d) * (1 - d) / 6
		w[1] = (4 - 6*d*d + 3*d*d*d) / 6
		w[2] = (4 - 6*(1-d)*(1-d) + 3*(1-d)*(1-d)*(1-d)) / 6
		w[3] = d * d * d / 6
	}
	return i0
}

// window returns the Fourier-space smoothing factor of the kernel at
// integer frequency f on an axis of n cells: sinc(pi f / n)^order. The
// compensation filter divides the transformed field by this factor.
func (r Resampler) window(f, n int) float64 {
	if f == 0 {
		return 1
	}
	y := math.Pi * float64(f) / float64(n)
	s := math.Sin(y) / y
	w := s
	for i := 1; i < int(r); i++ {
		w *= s
	}
	return w
}
