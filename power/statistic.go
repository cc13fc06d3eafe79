package power

import (
	"fmt"
)

// StatKind tags the angular decomposition of a Spectrum.
type StatKind string

const (
	// Multipole stores Legendre multipoles P_ell(k).
	Multipole StatKind = "multipole"
	// Wedge stores P(k, mu) on a two-dimensional bin grid.
	Wedge StatKind = "wedge"
)

// Spectrum is a binned power spectrum estimate.
//
// For a Multipole statistic the bins run over k alone: K, Nmodes have one
// entry per k bin and Value holds len(Ells) blocks of NumK() entries,
// ell-major, in the order of Ells. For a Wedge statistic the bins run over
// the (k, mu) grid: K, Mu, Nmodes and Value all have NumK()*NumMu()
// entries, k-major.
//
// K and Mu are the accumulated mean mode coordinates per bin; empty bins
// carry the arithmetic midpoint of their edges. Value is normalized by
// Wnorm but not shot-noise subtracted; ShotNoise records the estimated
// noise floor for the caller to remove where appropriate.
type Spectrum struct {
	Kind    StatKind
	KEdges  []float64
	MuEdges []float64
	Ells    []int

	K      []float64
	Mu     []float64
	Nmodes []int64
	Value  []complex128

	ShotNoise float64
	Wnorm     float64
	Attrs     map[string]string
}

// NumK returns the number of k bins.
func (s *Spectrum) NumK() int { return len(s.KEdges) - 1 }

// NumMu returns the number of mu bins of a wedge statistic, 0 otherwise.
func (s *Spectrum) NumMu() int {
	if s.Kind != Wedge {
		return 0
	}
	return len(s.MuEdges) - 1
}

// At returns the stored values of the given multipole order, one entry
// per k bin. The returned slice aliases the container.
func (s *Spectrum) At(ell int) ([]complex128, error) {
	if s.Kind != Multipole {
		return nil, fmt.Errorf("%w: %s statistic has no multipoles", ErrInvalidIndex, s.Kind)
	}
	for i, l := range s.Ells {
		if l == ell {
			nk := s.NumK()
			return s.Value[i*nk : (i+1)*nk], nil
		}
	}
	return nil, fmt.Errorf("%w: multipole %d not measured (have %v)", ErrInvalidIndex, ell, s.Ells)
}

// AtMu returns the stored values of mu wedge imu, one entry per k bin.
func (s *Spectrum) AtMu(imu int) ([]complex128, error) {
	if s.Kind != Wedge {
		return nil, fmt.Errorf("%w: %s statistic has no wedges", ErrInvalidIndex, s.Kind)
	}
	nmu := s.NumMu()
	if imu < 0 || imu >= nmu {
		return nil, fmt.Errorf("%w: wedge %d of %d", ErrInvalidIndex, imu, nmu)
	}
	out := make([]complex128, s.NumK())
	for ik := range out {
		out[ik] = s.Value[ik*nmu+imu]
	}
	return out, nil
}

// Pole returns the multipole with the shot-noise floor removed from the
// monopole. The returned slice is freshly allocated.
func (s *Spectrum) Pole(ell int) ([]complex128, error) {
	v, err := s.At(ell)
	if err != nil {
		return nil, err
	}
	out := append([]complex128(nil), v...)
	if ell == 0 {
		for i := range out {
			out[i] -= complex(s.ShotNoise, 0)
		}
	}
	return out, nil
}

// MuAvg returns the mean mu per k bin of a wedge statistic, averaging the
// (k, mu) bins with Nmodes weights.
func (s *Spectrum) MuAvg() ([]float64, error) {
	if s.Kind != Wedge {
		return nil, fmt.Errorf("%w: %s statistic has no mu average", ErrInvalidIndex, s.Kind)
	}
	nk, nmu := s.NumK(), s.NumMu()
	out := make([]float64, nk)
	for ik := 0; ik < nk; ik++ {
		var sum float64
		var n int64
		for im := 0; im < nmu; im++ {
			idx := ik*nmu + im
			sum += s.Mu[idx] * float64(s.Nmodes[idx])
			n += s.Nmodes[idx]
		}
		if n > 0 {
			out[ik] = sum / float64(n)
		}
	}
	return out, nil
}

// KAvg returns the mean k per k bin, collapsing the mu axis of a wedge
// statistic with Nmodes weights.
func (s *Spectrum) KAvg() []float64 {
	if s.Kind != Wedge {
		return append([]float64(nil), s.K...)
	}
	nk, nmu := s.NumK(), s.NumMu()
	out := make([]float64, nk)
	for ik := 0; ik < nk; ik++ {
		var sum float64
		var n int64
		for im := 0; im < nmu; im++ {
			idx := ik*nmu + im
			sum += s.K[idx] * float64(s.Nmodes[idx])
			n += s.Nmodes[idx]
		}
		if n > 0 {
			out[ik] = sum / float64(n)
		} else {
			out[ik] = 0.5 * (s.KEdges[ik] + s.KEdges[ik+1])
		}
	}
	return out
}

// NonNormalized returns Value scaled back by Wnorm.
func (s *Spectrum) NonNormalized() []complex128 {
	out := append([]complex128(nil), s.Value...)
	for i := range out {
		out[i] *= complex(s.Wnorm, 0)
	}
	return out
}

// TotalModes returns the number of Fourier modes binned, with Hermitian
// conjugate pairs counted twice.
func (s *Spectrum) TotalModes() int64 {
	var n int64
	for _, v := range s.Nmodes {
		n += v
	}
	return n
}

// Copy deep-copies the container; the copy shares no mutable state with
// the original.
func (s *Spectrum) Copy() *Spectrum {
	out := &Spectrum{
		Kind:      s.Kind,
		KEdges:    append([]float64(nil), s.KEdges...),
		ShotNoise: s.ShotNoise,
		Wnorm:     s.Wnorm,
	}
	if s.MuEdges != nil {
		out.MuEdges = append([]float64(nil), s.MuEdges...)
	}
	if s.Ells != nil {
		out.Ells = append([]int(nil), s.Ells...)
	}
	if s.K != nil {
		out.K = append([]float64(nil), s.K...)
	}
	if s.Mu != nil {
		out.Mu = append([]float64(nil), s.Mu...)
	}
	if s.Nmodes != nil {
		out.Nmodes = append([]int64(nil), s.Nmodes...)
	}
	if s.Value != nil {
		out.Value = append([]complex128(nil), s.Value...)
	}
	if s.Attrs != nil {
		out.Attrs = make(map[string]string, len(s.Attrs))
		for k, v := range s.Attrs {
			out.Attrs[k] = v
		}
	}
	return out
}

// Rebin coarsens the container by grouping consecutive bins: one factor
// coarsens k, a second coarsens mu for wedge statistics. Grouped modes
// are combined with Nmodes weights; edges keep every factor-th boundary.
// Factors that do not divide the bin counts fail with ErrShapeMismatch.
// Rebin(1) returns a plain copy.
func (s *Spectrum) Rebin(factors ...int) (*Spectrum, error) {
	fk, fmu := 1, 1
	switch len(factors) {
	case 0:
	case 1:
		fk = factors[0]
	case 2:
		if s.Kind != Wedge {
			return nil, fmt.Errorf("%w: mu factor on a %s statistic", ErrShapeMismatch, s.Kind)
		}
		fk, fmu = factors[0], factors[1]
	default:
		return nil, fmt.Errorf("%w: %d rebin factors", ErrShapeMismatch, len(factors))
	}
	if fk < 1 || fmu < 1 {
		return nil, fmt.Errorf("%w: rebin factors must be positive", ErrShapeMismatch)
	}
	nk, nmu := s.NumK(), s.NumMu()
	if nk%fk != 0 {
		return nil, fmt.Errorf("%w: %d k bins not divisible by %d", ErrShapeMismatch, nk, fk)
	}
	if s.Kind == Wedge && nmu%fmu != 0 {
		return nil, fmt.Errorf("%w: %d mu bins not divisible by %d", ErrShapeMismatch, nmu, fmu)
	}

	out := s.Copy()
	out.KEdges = subsample(s.KEdges, fk)
	if s.Kind == Wedge {
		out.MuEdges = subsample(s.MuEdges, fmu)
		s.rebinWedge(out, fk, fmu)
	} else {
		s.rebinPoles(out, fk)
	}
	return out, nil
}

// subsample keeps every f-th edge; the final edge survives because the
// bin count divides f.
func subsample(edges []float64, f int) []float64 {
	out := make([]float64, 0, (len(edges)-1)/f+1)
	for i := 0; i < len(edges); i += f {
		out = append(out, edges[i])
	}
	return out
}

func (s *Spectrum) rebinPoles(out *Spectrum, fk int) {
	nk := s.NumK()
	nk2 := nk / fk
	out.K = make([]float64, nk2)
	out.Nmodes = make([]int64, nk2)
	out.Value = make([]complex128, len(s.Ells)*nk2)

	for i := 0; i < nk2; i++ {
		var ksum float64
		var n int64
		for j := i * fk; j < (i+1)*fk; j++ {
			ksum += s.K[j] * float64(s.Nmodes[j])
			n += s.Nmodes[j]
		}
		out.Nmodes[i] = n
		if n > 0 {
			out.K[i] = ksum / float64(n)
		} else {
			out.K[i] = 0.5 * (out.KEdges[i] + out.KEdges[i+1])
		}
		for je := range s.Ells {
			var vsum complex128
			for j := i * fk; j < (i+1)*fk; j++ {
				vsum += s.Value[je*nk+j] * complex(float64(s.Nmodes[j]), 0)
			}
			if n > 0 {
				out.Value[je*nk2+i] = vsum / complex(float64(n), 0)
			}
		}
	}
}

func (s *Spectrum) rebinWedge(out *Spectrum, fk, fmu int) {
	nk, nmu := s.NumK(), s.NumMu()
	nk2, nmu2 := nk/fk, nmu/fmu
	out.K = make([]float64, nk2*nmu2)
	out.Mu = make([]float64, nk2*nmu2)
	out.Nmodes = make([]int64, nk2*nmu2)
	out.Value = make([]complex128, nk2*nmu2)

	for i := 0; i < nk2; i++ {
		for m := 0; m < nmu2; m++ {
			var ksum, musum float64
			var vsum complex128
			var n int64
			for j := i * fk; j < (i+1)*fk; j++ {
				for l := m * fmu; l < (m+1)*fmu; l++ {
					idx := j*nmu + l
					w := float64(s.Nmodes[idx])
					ksum += s.K[idx] * w
					musum += s.Mu[idx] * w
					vsum += s.Value[idx] * complex(w, 0)
					n += s.Nmodes[idx]
				}
			}
			idx2 := i*nmu2 + m
			out.Nmodes[idx2] = n
			if n > 0 {
				out.K[idx2] = ksum / float64(n)
				out.Mu[idx2] = musum / float64(n)
				out.Value[idx2] = vsum / complex(float64(n), 0)
			} else {
				out.K[idx2] = 0.5 * (out.KEdges[i] + out.KEdges[i+1])
				out.Mu[idx2] = 0.5 * (out.MuEdges[m] + out.MuEdges[m+1])
			}
		}
	}
}
