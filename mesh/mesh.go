// Package mesh implements the distributed 3D grids a power spectrum
// estimator works on: particle assignment (painting) with the B-spline
// resampler family and interlacing, forward/inverse Fourier transforms,
// and the mapping from local spectral indices to physical wavenumbers.
//
// A Mesh is partitioned across the ranks of a process group in contiguous
// slabs along the first axis. Each rank owns its real-space and spectral
// slabs; operations that need global information (painting reduction, the
// transforms) synchronize through the group's collectives and leave every
// rank with a bit-identical view of the shared results.
package mesh

import (
	"errors"
	"fmt"

	"github.com/cwbudde/algo-lss/comm"
)

// Errors returned by mesh construction and painting.
var (
	ErrInvalidShape       = errors.New("mesh: mesh shape must be positive")
	ErrInvalidBox         = errors.New("mesh: box must have positive extent")
	ErrInvalidInterlacing = errors.New("mesh: interlacing factor must be 1, 2, 3 or 4")
	ErrInvalidResampler   = errors.New("mesh: unknown resampler")
	ErrLengthMismatch     = errors.New("mesh: positions and weights length mismatch")
	ErrNotTransformed     = errors.New("mesh: no spectral data, call ForwardTransform first")
)

// Kind selects the element type of a mesh's real-space field.
type Kind int

const (
	// KindReal holds a float64 field; its transform keeps the Hermitian
	// half spectrum along the last axis.
	KindReal Kind = iota
	// KindComplex holds a complex128 field with a full spectrum.
	KindComplex
)

func (k Kind) String() string {
	switch k {
	case KindReal:
		return "real"
	case KindComplex:
		return "complex"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Mesh is one rank's view of a slab-decomposed periodic grid.
type Mesh struct {
	comm  *comm.Comm
	kind  Kind
	box   Box
	nmesh [3]int

	x0, nx int // slab range along axis 0: global indices [x0, x0+nx)

	// Real-space slab: nx*n1*n2 elements, row-major (x, y, z). Exactly
	// one of data/cdata is in use, matching kind.
	data  []float64
	cdata []complex128

	// Spectral slab: nx*n1*nzc elements after ForwardTransform.
	spec []complex128
	nzc  int
}

// slabRange splits n slabs over size ranks, remainder on leading ranks.
func slabRange(n, size, rank int) (x0, nx int) {
	base, rem := n/size, n%size
	nx = base
	if rank < rem {
		nx++
		x0 = rank * nx
		return x0, nx
	}
	x0 = rem*(base+1) + (rank-rem)*base
	return x0, nx
}

// New creates a mesh of the given kind and shape over box, distributed
// across the ranks of c. Every rank of the group must call New with
// identical arguments.
func New(c *comm.Comm, kind Kind, nmesh [3]int, box Box) (*Mesh, error) {
	for ax := 0; ax < 3; ax++ {
		if nmesh[ax] <= 0 {
			return nil, fmt.Errorf("%w: %v", ErrInvalidShape, nmesh)
		}
	}
	if err := box.Validate(); err != nil {
		return nil, err
	}

	m := &Mesh{comm: c, kind: kind, box: box, nmesh: nmesh}
	m.x0, m.nx = slabRange(nmesh[0], c.Size(), c.Rank())
	if kind == KindReal {
		m.nzc = nmesh[2]/2 + 1
		m.data = make([]float64, m.nx*nmesh[1]*nmesh[2])
	} else {
		m.nzc = nmesh[2]
		m.cdata = make([]complex128, m.nx*nmesh[1]*nmesh[2])
	}
	return m, nil
}

// NewCubic creates a cubic mesh of n cells per side.
func NewCubic(c *comm.Comm, kind Kind, n int, box Box) (*Mesh, error) {
	return New(c, kind, [3]int{n, n, n}, box)
}

// Comm returns the process group the mesh is distributed over.
func (m *Mesh) Comm() *comm.Comm { return m.comm }

// Kind returns the mesh element kind.
func (m *Mesh) Kind() Kind { return m.kind }

// Box returns the physical box.
func (m *Mesh) Box() Box { return m.box }

// Shape returns the global cell counts.
func (m *Mesh) Shape() [3]int { return m.nmesh }

// SlabStart returns the first global axis-0 index owned by this rank.
func (m *Mesh) SlabStart() int { return m.x0 }

// SlabLen returns the number of axis-0 planes owned by this rank.
func (m *Mesh) SlabLen() int { return m.nx }

// CellVolume returns the volume of one grid cell.
func (m *Mesh) CellVolume() float64 {
	return m.box.Volume() / float64(m.nmesh[0]*m.nmesh[1]*m.nmesh[2])
}

// CellSize returns the physical cell extent per axis.
func (m *Mesh) CellSize() [3]float64 {
	return [3]float64{
		m.box.Size[0] / float64(m.nmesh[0]),
		m.box.Size[1] / float64(m.nmesh[1]),
		m.box.Size[2] / float64(m.nmesh[2]),
	}
}

// RealSlab returns this rank's real-space slab for a KindReal mesh, laid
// out row-major as (x, y, z). The caller may read and write it; writes
// stay local to this rank.
func (m *Mesh) RealSlab() []float64 { return m.data }

// ComplexSlab returns this rank's real-space slab for a KindComplex mesh.
func (m *Mesh) ComplexSlab() []complex128 { return m.cdata }

// SpectralSlab returns this rank's spectral slab after ForwardTransform,
// laid out row-major as (kx, ky, kz) with SpectralLen(2) elements along
// the last axis.
func (m *Mesh) SpectralSlab() []complex128 { return m.spec }

// SpectralLen returns the spectral extent along the given axis: the mesh
// shape, except the last axis of a real mesh which keeps n/2+1
// coefficients.
func (m *Mesh) SpectralLen(axis int) int {
	if axis == 2 {
		return m.nzc
	}
	return m.nmesh[axis]
}

// SumGlobal returns the sum of the real-space field over the whole grid,
// identical on every rank. A collective call.
func (m *Mesh) SumGlobal() float64 {
	local := 0.0
	if m.kind == KindReal {
		for _, v := range m.data {
			local += v
		}
	} else {
		for _, v := range m.cdata {
			local += real(v)
		}
	}
	return m.comm.SumFloat64(local)
}

// SumSquaresGlobal returns the sum of squared real-space field values
// over the whole grid, identical on every rank. A collective call.
func (m *Mesh) SumSquaresGlobal() float64 {
	local := 0.0
	if m.kind == KindReal {
		for _, v := range m.data {
			local += v * v
		}
	} else {
		for _, v := range m.cdata {
			local += real(v)*real(v) + imag(v)*imag(v)
		}
	}
	return m.comm.SumFloat64(local)
}

// Clone returns a deep copy sharing the communicator but no array state.
func (m *Mesh) Clone() *Mesh {
	out := &Mesh{
		comm:  m.comm,
		kind:  m.kind,
		box:   m.box,
		nmesh: m.nmesh,
		x0:    m.x0,
		nx:    m.nx,
		nzc:   m.nzc,
	}
	if m.data != nil {
		out.data = append([]float64(nil), m.data...)
	}
	if m.cdata != nil {
		out.cdata = append([]complex128(nil), m.cdata...)
	}
	if m.spec != nil {
		out.spec = append([]complex128(nil), m.spec...)
	}
	return out
}
