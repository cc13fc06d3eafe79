package mesh

import (
	"fmt"

	algofft "github.com/MeKo-Christian/algo-fft"
	"gonum.org/v1/gonum/dsp/fourier"
)

// cfft is a complex transform of fixed length along one mesh axis.
// algo-fft plans cover the power-of-two lengths; other lengths go through
// gonum's mixed-radix path.
type cfft struct {
	n    int
	plan *algofft.Plan[complex128]
	gon  *fourier.CmplxFFT
}

func newCfft(n int) *cfft {
	if plan, err := algofft.NewPlan64(n); err == nil {
		return &cfft{n: n, plan: plan}
	}
	return &cfft{n: n, gon: fourier.NewCmplxFFT(n)}
}

func (f *cfft) forward(dst, src []complex128) error {
	if f.plan != nil {
		return f.plan.Forward(dst, src)
	}
	f.gon.Coefficients(dst, src)
	return nil
}

// inverse is normalized: inverse(forward(x)) == x.
func (f *cfft) inverse(dst, src []complex128) error {
	if f.plan != nil {
		return f.plan.Inverse(dst, src)
	}
	f.gon.Sequence(dst, src)
	scale := 1 / float64(f.n)
	for i := range dst {
		dst[i] *= complex(scale, 0)
	}
	return nil
}

// transformAxis1 applies f along axis 1 of a (n0, n1, nzc) row-major
// array, in place.
func transformAxis1(a []complex128, n0, n1, nzc int, f *cfft, forward bool) error {
	col := make([]complex128, n1)
	for i0 := 0; i0 < n0; i0++ {
		for iz := 0; iz < nzc; iz++ {
			base := i0*n1*nzc + iz
			for i1 := 0; i1 < n1; i1++ {
				col[i1] = a[base+i1*nzc]
			}
			var err error
			if forward {
				err = f.forward(col, col)
			} else {
				err = f.inverse(col, col)
			}
			if err != nil {
				return err
			}
			for i1 := 0; i1 < n1; i1++ {
				a[base+i1*nzc] = col[i1]
			}
		}
	}
	return nil
}

// transformAxis0 applies f along axis 0 of a (n0, n1, nzc) row-major
// array, in place.
func transformAxis0(a []complex128, n0, n1, nzc int, f *cfft, forward bool) error {
	col := make([]complex128, n0)
	stride := n1 * nzc
	for i1 := 0; i1 < n1; i1++ {
		for iz := 0; iz < nzc; iz++ {
			base := i1*nzc + iz
			for i0 := 0; i0 < n0; i0++ {
				col[i0] = a[base+i0*stride]
			}
			var err error
			if forward {
				err = f.forward(col, col)
			} else {
				err = f.inverse(col, col)
			}
			if err != nil {
				return err
			}
			for i0 := 0; i0 < n0; i0++ {
				a[base+i0*stride] = col[i0]
			}
		}
	}
	return nil
}

// forwardReal3D computes the unnormalized forward transform of a full
// real array of shape n, keeping the n[2]/2+1 Hermitian half spectrum
// along the last axis: real FFT along axis 2, then complex FFTs along
// axes 1 and 0.
func forwardReal3D(data []float64, n [3]int) ([]complex128, error) {
	n0, n1, n2 := n[0], n[1], n[2]
	nzc := n2/2 + 1
	out := make([]complex128, n0*n1*nzc)

	rfft := fourier.NewFFT(n2)
	row := make([]complex128, nzc)
	for i := 0; i < n0*n1; i++ {
		rfft.Coefficients(row, data[i*n2:(i+1)*n2])
		copy(out[i*nzc:(i+1)*nzc], row)
	}

	if err := transformAxis1(out, n0, n1, nzc, newCfft(n1), true); err != nil {
		return nil, fmt.Errorf("mesh: forward transform axis 1: %w", err)
	}
	if err := transformAxis0(out, n0, n1, nzc, newCfft(n0), true); err != nil {
		return nil, fmt.Errorf("mesh: forward transform axis 0: %w", err)
	}
	return out, nil
}

// inverseReal3D inverts forwardReal3D, including the 1/(n0*n1*n2)
// normalization.
func inverseReal3D(spec []complex128, n [3]int) ([]float64, error) {
	n0, n1, n2 := n[0], n[1], n[2]
	nzc := n2/2 + 1

	work := append([]complex128(nil), spec...)
	if err := transformAxis0(work, n0, n1, nzc, newCfft(n0), false); err != nil {
		return nil, fmt.Errorf("mesh: inverse transform axis 0: %w", err)
	}
	if err := transformAxis1(work, n0, n1, nzc, newCfft(n1), false); err != nil {
		return nil, fmt.Errorf("mesh: inverse transform axis 1: %w", err)
	}

	out := make([]float64, n0*n1*n2)
	rfft := fourier.NewFFT(n2)
	row := make([]float64, n2)
	scale := 1 / float64(n2)
	for i := 0; i < n0*n1; i++ {
		rfft.Sequence(row, work[i*nzc:(i+1)*nzc])
		for j, v := range row {
			out[i*n2+j] = v * scale
		}
	}
	return out, nil
}

// forwardComplex3D computes the unnormalized forward transform of a full
// complex array of shape n, full spectrum on all axes.
func forwardComplex3D(data []complex128, n [3]int) ([]complex128, error) {
	n0, n1, n2 := n[0], n[1], n[2]
	out := append([]complex128(nil), data...)

	fz := newCfft(n2)
	for i := 0; i < n0*n1; i++ {
		if err := fz.forward(out[i*n2:(i+1)*n2], out[i*n2:(i+1)*n2]); err != nil {
			return nil, fmt.Errorf("mesh: forward transform axis 2: %w", err)
		}
	}
	if err := transformAxis1(out, n0, n1, n2, newCfft(n1), true); err != nil {
		return nil, fmt.Errorf("mesh: forward transform axis 1: %w", err)
	}
	if err := transformAxis0(out, n0, n1, n2, newCfft(n0), true); err != nil {
		return nil, fmt.Errorf("mesh: forward transform axis 0: %w", err)
	}
	return out, nil
}

// inverseComplex3D inverts forwardComplex3D, including normalization.
func inverseComplex3D(spec []complex128, n [3]int) ([]complex128, error) {
	n0, n1, n2 := n[0], n[1], n[2]
	out := append([]complex128(nil), spec...)

	if err := transformAxis0(out, n0, n1, n2, newCfft(n0), false); err != nil {
		return nil, fmt.Errorf("mesh: inverse transform axis 0: %w", err)
	}
	if err := transformAxis1(out, n0, n1, n2, newCfft(n1), false); err != nil {
		return nil, fmt.Errorf("mesh: inverse transform axis 1: %w", err)
	}
	fz := newCfft(n2)
	for i := 0; i < n0*n1; i++ {
		if err := fz.inverse(out[i*n2:(i+1)*n2], out[i*n2:(i+1)*n2]); err != nil {
			return nil, fmt.Errorf("mesh: inverse transform axis 2: %w", err)
		}
	}
	return out, nil
}

// ForwardTransform fills the spectral slab from the real-space field.
//
// The transform backend gathers the full grid, transforms it identically
// on every rank, and re-slices the local slab. Mode ordering is therefore
// deterministic and bit-identical across ranks; each rank ends up owning
// spectral planes [SlabStart, SlabStart+SlabLen) along the first axis.
// A collective call.
func (m *Mesh) ForwardTransform() error {
	var spec []complex128
	var err error
	if m.kind == KindReal {
		full := m.comm.AllGatherFloat64s(m.data)
		spec, err = forwardReal3D(full, m.nmesh)
	} else {
		full := m.comm.AllGatherComplex128s(m.cdata)
		spec, err = forwardComplex3D(full, m.nmesh)
	}
	if err = m.comm.Agree(err); err != nil {
		return err
	}
	stride := m.nmesh[1] * m.nzc
	m.spec = append([]complex128(nil), spec[m.x0*stride:(m.x0+m.nx)*stride]...)
	return nil
}

// InverseTransform fills the real-space field from the spectral slab.
// A collective call.
func (m *Mesh) InverseTransform() error {
	if m.spec == nil {
		return ErrNotTransformed
	}
	full := m.comm.AllGatherComplex128s(m.spec)
	if m.kind == KindReal {
		data, err := inverseReal3D(full, m.nmesh)
		if err = m.comm.Agree(err); err != nil {
			return err
		}
		stride := m.nmesh[1] * m.nmesh[2]
		copy(m.data, data[m.x0*stride:(m.x0+m.nx)*stride])
		return nil
	}
	data, err := inverseComplex3D(full, m.nmesh)
	if err = m.comm.Agree(err); err != nil {
		return err
	}
	stride := m.nmesh[1] * m.nmesh[2]
	copy(m.cdata, data[m.x0*stride:(m.x0+m.nx)*stride])
	return nil
}
