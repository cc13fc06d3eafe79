package power

import (
	"math"
	"math/cmplx"

	"github.com/cwbudde/algo-lss/internal/legendre"
	"github.com/cwbudde/algo-lss/mesh"
)

// accum holds the per-bin sums of one binning pass, before and after the
// global reduction.
type accum struct {
	k      []float64
	mu     []float64
	nmodes []int64
	value  []complex128
}

// binModes walks this rank's spectral slab of a (and the matching slab of
// b for a cross spectrum), deposits every independent mode into the
// requested bins, and reduces the sums across the group. The zero mode is
// excluded. Modes stored once for a Hermitian conjugate pair deposit both
// members: at (k, mu) and, conjugated, at (k, -mu).
func binModes(a, b *mesh.Mesh, kedges, muedges []float64, ells []int, los [3]float64) *accum {
	nk := len(kedges) - 1
	acc := &accum{}
	wedge := ells == nil
	var nmu int
	if wedge {
		nmu = len(muedges) - 1
		acc.k = make([]float64, nk*nmu)
		acc.mu = make([]float64, nk*nmu)
		acc.nmodes = make([]int64, nk*nmu)
		acc.value = make([]complex128, nk*nmu)
	} else {
		acc.k = make([]float64, nk)
		acc.nmodes = make([]int64, nk)
		acc.value = make([]complex128, len(ells)*nk)
	}

	specA := a.SpectralSlab()
	specB := b.SpectralSlab()
	auto := a == b
	var autoPower []float64
	if auto {
		autoPower = mesh.PowerValues(specA)
	}

	n1 := a.Shape()[1]
	nzc := a.SpectralLen(2)
	idx := 0
	for ix := 0; ix < a.SlabLen(); ix++ {
		for iy := 0; iy < n1; iy++ {
			for iz := 0; iz < nzc; iz++ {
				kvec := a.KAt(ix, iy, iz)
				kmag := math.Sqrt(kvec[0]*kvec[0] + kvec[1]*kvec[1] + kvec[2]*kvec[2])
				if kmag == 0 {
					idx++
					continue
				}
				ib := binIndex(kedges, kmag)
				if ib < 0 {
					idx++
					continue
				}
				var v complex128
				if auto {
					v = complex(autoPower[idx], 0)
				} else {
					v = cmplx.Conj(specA[idx]) * specB[idx]
				}
				w := a.HermitianWeight(iz)
				mu := (kvec[0]*los[0] + kvec[1]*los[1] + kvec[2]*los[2]) / kmag

				if wedge {
					if im := binIndex(muedges, mu); im >= 0 {
						j := ib*nmu + im
						acc.value[j] += v
						acc.k[j] += kmag
						acc.mu[j] += mu
						acc.nmodes[j]++
					}
					if w == 2 {
						if im := binIndex(muedges, -mu); im >= 0 {
							j := ib*nmu + im
							acc.value[j] += cmplx.Conj(v)
							acc.k[j] += kmag
							acc.mu[j] -= mu
							acc.nmodes[j]++
						}
					}
				} else {
					acc.k[ib] += w * kmag
					acc.nmodes[ib] += int64(w)
					for je, ell := range ells {
						leg := complex(float64(2*ell+1)*legendre.P(ell, mu), 0)
						acc.value[je*nk+ib] += v * leg
						if w == 2 {
							lneg := complex(float64(2*ell+1)*legendre.P(ell, -mu), 0)
							acc.value[je*nk+ib] += cmplx.Conj(v) * lneg
						}
					}
				}
				idx++
			}
		}
	}

	c := a.Comm()
	c.AllReduceFloat64s(acc.k)
	if acc.mu != nil {
		c.AllReduceFloat64s(acc.mu)
	}
	c.AllReduceInt64s(acc.nmodes)
	c.AllReduceComplex128s(acc.value)
	return acc
}

// finalize converts the reduced sums into a Spectrum: per-bin means,
// normalized values, midpoints for empty bins.
func (acc *accum) finalize(kind StatKind, kedges, muedges []float64, ells []int, wnorm, shotnoise float64) *Spectrum {
	s := &Spectrum{
		Kind:      kind,
		KEdges:    append([]float64(nil), kedges...),
		Nmodes:    acc.nmodes,
		ShotNoise: shotnoise,
		Wnorm:     wnorm,
	}
	nk := len(kedges) - 1

	if kind == Wedge {
		nmu := len(muedges) - 1
		s.MuEdges = append([]float64(nil), muedges...)
		s.K = make([]float64, nk*nmu)
		s.Mu = make([]float64, nk*nmu)
		s.Value = make([]complex128, nk*nmu)
		for ik := 0; ik < nk; ik++ {
			for im := 0; im < nmu; im++ {
				j := ik*nmu + im
				if n := acc.nmodes[j]; n > 0 {
					s.K[j] = acc.k[j] / float64(n)
					s.Mu[j] = acc.mu[j] / float64(n)
					s.Value[j] = acc.value[j] / complex(float64(n)*wnorm, 0)
				} else {
					s.K[j] = 0.5 * (kedges[ik] + kedges[ik+1])
					s.Mu[j] = 0.5 * (muedges[im] + muedges[im+1])
				}
			}
		}
		return s
	}

	s.Ells = append([]int(nil), ells...)
	s.K = make([]float64, nk)
	s.Value = make([]complex128, len(ells)*nk)
	for ik := 0; ik < nk; ik++ {
		n := acc.nmodes[ik]
		if n > 0 {
			s.K[ik] = acc.k[ik] / float64(n)
		} else {
			s.K[ik] = 0.5 * (kedges[ik] + kedges[ik+1])
		}
		for je := range ells {
			if n > 0 {
				s.Value[je*nk+ik] = acc.value[je*nk+ik] / complex(float64(n)*wnorm, 0)
			}
		}
	}
	return s
}
