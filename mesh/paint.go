package mesh

import (
	"fmt"
	"math"
	"math/cmplx"
)

func wrapIndex(i, n int) int {
	i %= n
	if i < 0 {
		i += n
	}
	return i
}

// depositLocal paints this rank's particles into a private full-size
// buffer. shift is a fractional lattice offset in cell units, identical
// on all axes, used by interlacing. Zero-weight particles are skipped and
// positions wrap periodically into the box.
func (m *Mesh) depositLocal(buf []float64, positions [][3]float64, weights []float64, r Resampler, shift float64) {
	origin := m.box.Origin()
	cell := m.CellSize()
	n0, n1, n2 := m.nmesh[0], m.nmesh[1], m.nmesh[2]
	order := r.Order()

	var wx, wy, wz [4]float64
	for ip, p := range positions {
		w := 1.0
		if weights != nil {
			w = weights[ip]
		}
		if w == 0 {
			continue
		}
		p = m.box.Wrap(p)
		ix0 := r.weights((p[0]-origin[0])/cell[0]+shift, &wx)
		iy0 := r.weights((p[1]-origin[1])/cell[1]+shift, &wy)
		iz0 := r.weights((p[2]-origin[2])/cell[2]+shift, &wz)

		for a := 0; a < order; a++ {
			ix := wrapIndex(ix0+a, n0)
			vx := wx[a] * w
			for b := 0; b < order; b++ {
				iy := wrapIndex(iy0+b, n1)
				vxy := vx * wy[b]
				row := (ix*n1 + iy) * n2
				for c := 0; c < order; c++ {
					iz := wrapIndex(iz0+c, n2)
					buf[row+iz] += vxy * wz[c]
				}
			}
		}
	}
}

// fullForward transforms a full real-valued painted grid according to the
// mesh kind.
func (m *Mesh) fullForward(buf []float64) ([]complex128, error) {
	if m.kind == KindReal {
		return forwardReal3D(buf, m.nmesh)
	}
	cbuf := make([]complex128, len(buf))
	for i, v := range buf {
		cbuf[i] = complex(v, 0)
	}
	return forwardComplex3D(cbuf, m.nmesh)
}

// Paint deposits particles onto the mesh with the given assignment kernel.
//
// Every rank contributes the particles it owns; the deposits are summed
// across the group, so the painted field is independent of how particles
// are partitioned. The raw (unshifted) field fills the real-space slab.
//
// With interlacing > 1 the field is painted interlacing times on lattices
// shifted by j/interlacing cells, each copy is transformed and
// phase-corrected by its shift, and the average fills the spectral slab,
// cancelling the leading aliasing contribution of the kernel. compensate
// additionally divides the spectral field by the kernel's Fourier window.
// When either is requested the spectral slab is populated; otherwise it
// is cleared and a later ForwardTransform supplies it.
//
// A collective call: all ranks must pass the same resampler, interlacing
// and compensate values.
func (m *Mesh) Paint(positions [][3]float64, weights []float64, r Resampler, interlacing int, compensate bool) error {
	if !r.Valid() {
		return fmt.Errorf("%w: order %d", ErrInvalidResampler, int(r))
	}
	if interlacing < 1 || interlacing > 4 {
		return fmt.Errorf("%w: got %d", ErrInvalidInterlacing, interlacing)
	}
	var lenErr error
	if weights != nil && len(weights) != len(positions) {
		lenErr = fmt.Errorf("%w: %d positions, %d weights", ErrLengthMismatch, len(positions), len(weights))
	}
	if err := m.comm.Agree(lenErr); err != nil {
		return err
	}

	n0, n1, n2 := m.nmesh[0], m.nmesh[1], m.nmesh[2]
	total := n0 * n1 * n2
	stride := n1 * n2

	paintShift := func(shift float64) []float64 {
		buf := make([]float64, total)
		m.depositLocal(buf, positions, weights, r, shift)
		m.comm.AllReduceFloat64s(buf)
		return buf
	}

	base := paintShift(0)
	if m.kind == KindReal {
		copy(m.data, base[m.x0*stride:(m.x0+m.nx)*stride])
	} else {
		for i, v := range base[m.x0*stride : (m.x0+m.nx)*stride] {
			m.cdata[i] = complex(v, 0)
		}
	}

	if interlacing == 1 && !compensate {
		m.spec = nil
		return nil
	}

	spec, err := m.fullForward(base)
	if err = m.comm.Agree(err); err != nil {
		return err
	}

	if interlacing > 1 {
		for j := 1; j < interlacing; j++ {
			frac := float64(j) / float64(interlacing)
			shifted, err := m.fullForward(paintShift(frac))
			if err = m.comm.Agree(err); err != nil {
				return err
			}
			m.addPhaseCorrected(spec, shifted, frac)
		}
		scale := complex(1/float64(interlacing), 0)
		for i := range spec {
			spec[i] *= scale
		}
	}

	if compensate {
		m.compensate(spec, r)
	}

	specStride := n1 * m.nzc
	m.spec = append([]complex128(nil), spec[m.x0*specStride:(m.x0+m.nx)*specStride]...)
	return nil
}

// addPhaseCorrected accumulates a shifted paint into dst, undoing the
// lattice shift: a deposit at x+s transforms to F(k) exp(-i k.s), so each
// mode is multiplied by exp(+i k.s) before averaging. In cell units the
// per-axis phase is 2*pi*f*frac/n.
func (m *Mesh) addPhaseCorrected(dst, src []complex128, frac float64) {
	n0, n1 := m.nmesh[0], m.nmesh[1]
	idx := 0
	for i0 := 0; i0 < n0; i0++ {
		p0 := 2 * math.Pi * frac * float64(FreqIndex(i0, n0)) / float64(n0)
		for i1 := 0; i1 < n1; i1++ {
			p1 := p0 + 2*math.Pi*frac*float64(FreqIndex(i1, n1))/float64(n1)
			for iz := 0; iz < m.nzc; iz++ {
				p := p1 + 2*math.Pi*frac*float64(m.Freq(2, iz))/float64(m.nmesh[2])
				dst[idx] += src[idx] * cmplx.Exp(complex(0, p))
				idx++
			}
		}
	}
}

// compensate divides the spectral field by the kernel window, correcting
// the smoothing the assignment introduced.
func (m *Mesh) compensate(spec []complex128, r Resampler) {
	n0, n1 := m.nmesh[0], m.nmesh[1]
	idx := 0
	for i0 := 0; i0 < n0; i0++ {
		w0 := r.window(FreqIndex(i0, n0), n0)
		for i1 := 0; i1 < n1; i1++ {
			w01 := w0 * r.window(FreqIndex(i1, n1), n1)
			for iz := 0; iz < m.nzc; iz++ {
				w := w01 * r.window(m.Freq(2, iz), m.nmesh[2])
				spec[idx] /= complex(w, 0)
				idx++
			}
		}
	}
}
