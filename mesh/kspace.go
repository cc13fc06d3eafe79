package mesh

import "math"

// FreqIndex returns the signed integer frequency of index i on a
// transformed axis of n cells: 0, 1, ..., (n-1)/2, then -(n/2), ..., -1,
// so the Nyquist frequency of an even axis is reported as -n/2. This is
// the ordering the transform backend produces on the full axes; the half
// axis of a real mesh only carries the non-negative part.
func FreqIndex(i, n int) int {
	if i < (n+1)/2 {
		return i
	}
	return i - n
}

// Freq returns the signed integer frequency at spectral index i along the
// given axis. For the half axis of a real mesh the index is already the
// frequency.
func (m *Mesh) Freq(axis, i int) int {
	if axis == 2 && m.kind == KindReal {
		return i
	}
	return FreqIndex(i, m.nmesh[axis])
}

// KAt returns the physical wavenumber vector of the spectral element at
// local slab index ix and indices (iy, iz), in 2*pi/boxsize units times
// the integer frequency per axis.
func (m *Mesh) KAt(ix, iy, iz int) [3]float64 {
	fund := m.box.Fundamental()
	return [3]float64{
		fund[0] * float64(m.Freq(0, m.x0+ix)),
		fund[1] * float64(m.Freq(1, iy)),
		fund[2] * float64(m.Freq(2, iz)),
	}
}

// HermitianWeight returns the mode-counting weight of last-axis index iz.
// A real mesh keeps only the non-negative half of the last axis, so modes
// off the iz = 0 and Nyquist planes stand for a conjugate pair and count
// twice; on those planes every pair member is enumerated explicitly and
// counts once. A complex mesh carries a full spectrum, all weight 1.
func (m *Mesh) HermitianWeight(iz int) float64 {
	if m.kind != KindReal {
		return 1
	}
	if iz == 0 || 2*iz == m.nmesh[2] {
		return 1
	}
	return 2
}

// KNyquist returns the Nyquist wavenumber pi*n/L per axis.
func (m *Mesh) KNyquist() [3]float64 {
	return [3]float64{
		math.Pi * float64(m.nmesh[0]) / m.box.Size[0],
		math.Pi * float64(m.nmesh[1]) / m.box.Size[1],
		math.Pi * float64(m.nmesh[2]) / m.box.Size[2],
	}
}

// KMax returns the largest attainable wavenumber magnitude on the lattice.
func (m *Mesh) KMax() float64 {
	fund := m.box.Fundamental()
	sum := 0.0
	for ax := 0; ax < 3; ax++ {
		fmax := float64(m.nmesh[ax] / 2)
		v := fund[ax] * fmax
		sum += v * v
	}
	return math.Sqrt(sum)
}

// KFundamental returns the smallest non-zero wavenumber per axis.
func (m *Mesh) KFundamental() [3]float64 {
	return m.box.Fundamental()
}
