package power

import (
	"fmt"

	"github.com/cwbudde/algo-lss/mesh"
)

// MeshPowerConfig configures a power spectrum measurement on painted
// meshes.
//
// Exactly one angular decomposition applies: a non-empty Ells selects
// multipoles, otherwise wedge binning over MuEdges, which defaults to a
// single wedge covering [-1, 1]. KEdges defaults to steps of the smallest
// fundamental frequency from 0 up to the largest attainable wavenumber.
type MeshPowerConfig struct {
	KEdges  EdgeSpec
	MuEdges EdgeSpec
	Ells    []int
	LOS     LineOfSight

	// UniqueKEdges discovers the k edges from the mesh lattice itself,
	// one bin per distinct attainable |k|. Incompatible with KEdges.
	UniqueKEdges bool

	// Wnorm overrides the normalization; 0 selects the volume
	// normalization Ncells^2 / V appropriate for density contrast meshes.
	Wnorm float64

	// ShotNoise is recorded on the result; the estimator does not
	// subtract it.
	ShotNoise float64
}

func (cfg *MeshPowerConfig) validate() error {
	if len(cfg.Ells) > 0 && !cfg.MuEdges.isZero() {
		return fmt.Errorf("%w: both multipoles and mu edges requested", ErrConfiguration)
	}
	if cfg.UniqueKEdges && !cfg.KEdges.isZero() {
		return fmt.Errorf("%w: both unique and explicit k edges requested", ErrConfiguration)
	}
	seen := map[int]bool{}
	for _, ell := range cfg.Ells {
		if ell < 0 {
			return fmt.Errorf("%w: negative multipole order %d", ErrConfiguration, ell)
		}
		if seen[ell] {
			return fmt.Errorf("%w: duplicate multipole order %d", ErrConfiguration, ell)
		}
		seen[ell] = true
	}
	if cfg.Wnorm < 0 {
		return fmt.Errorf("%w: negative wnorm %v", ErrConfiguration, cfg.Wnorm)
	}
	return nil
}

// MeshFFTPower measures the power spectrum of one mesh (b nil, an auto
// spectrum) or the cross spectrum of two meshes painted on the same box
// and shape. Meshes without spectral data are forward-transformed in
// place first.
//
// A collective call over the meshes' process group; every rank receives
// the identical Spectrum.
func MeshFFTPower(a, b *mesh.Mesh, cfg MeshPowerConfig) (*Spectrum, error) {
	if a == nil {
		return nil, fmt.Errorf("%w: nil mesh", ErrConfiguration)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if b != nil && b != a {
		if a.Shape() != b.Shape() {
			return nil, fmt.Errorf("%w: mesh shapes %v and %v", ErrShapeMismatch, a.Shape(), b.Shape())
		}
		if a.Box() != b.Box() {
			return nil, fmt.Errorf("%w: mesh boxes differ", ErrShapeMismatch)
		}
		if a.Comm() != b.Comm() {
			return nil, fmt.Errorf("%w: meshes on different process groups", ErrConfiguration)
		}
	} else {
		b = a
	}
	volume := a.Box().Volume()
	if !(volume > 0) {
		return nil, fmt.Errorf("%w: box volume %v", ErrDegenerateBox, volume)
	}

	fund := a.KFundamental()
	step := fund[0]
	for ax := 1; ax < 3; ax++ {
		if fund[ax] < step {
			step = fund[ax]
		}
	}
	// Pad the default upper edge by an ulp-scale margin so corner modes
	// computed along a different floating-point path still bin.
	kmax := a.KMax() * (1 + 1e-12)
	var kedges []float64
	var err error
	if cfg.UniqueKEdges {
		kedges, err = FindLatticeEdges(a, 0)
	} else {
		kedges, err = cfg.KEdges.resolve(0, kmax, step)
	}
	if err != nil {
		return nil, err
	}

	var muedges []float64
	kind := Multipole
	if len(cfg.Ells) == 0 {
		kind = Wedge
		muedges, err = cfg.MuEdges.resolve(-1, 1, 2)
		if err != nil {
			return nil, err
		}
	}

	los, err := cfg.LOS.resolve(a.Box())
	if err != nil {
		return nil, err
	}

	wnorm := cfg.Wnorm
	if wnorm == 0 {
		shape := a.Shape()
		ncells := float64(shape[0]) * float64(shape[1]) * float64(shape[2])
		wnorm = ncells * ncells / volume
	}

	if a.SpectralSlab() == nil {
		if err := a.ForwardTransform(); err != nil {
			return nil, err
		}
	}
	if b != a && b.SpectralSlab() == nil {
		if err := b.ForwardTransform(); err != nil {
			return nil, err
		}
	}

	ells := cfg.Ells
	if kind == Wedge {
		ells = nil
	}
	acc := binModes(a, b, kedges, muedges, ells, los)
	return acc.finalize(kind, kedges, muedges, ells, wnorm, cfg.ShotNoise), nil
}
