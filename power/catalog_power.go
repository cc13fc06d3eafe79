package power

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-lss/catalog"
	"github.com/cwbudde/algo-lss/comm"
	"github.com/cwbudde/algo-lss/mesh"
)

// CatalogData carries one catalog's particle arrays in the layout named
// by the mesh configuration's PositionType: Positions for "pos", the
// three coordinate arrays for "xyz", or right ascension / declination /
// distance in X, Y, Z for "rdd". Weights are optional (default 1).
type CatalogData struct {
	Positions [][3]float64
	X, Y, Z   []float64
	Weights   []float64
}

func (d *CatalogData) positions(ptype catalog.PositionType) ([][3]float64, error) {
	return catalog.Convert(ptype, d.Positions, d.X, d.Y, d.Z)
}

// CatalogMeshConfig configures the painting of catalogs onto a mesh.
type CatalogMeshConfig struct {
	BoxSize   [3]float64
	BoxCenter [3]float64
	Nmesh     [3]int

	Resampler   mesh.Resampler // 0 selects CIC
	Interlacing int            // 0 selects 2
	Kind        mesh.Kind      // real by default

	// PositionType names the layout of CatalogData; empty means "pos".
	PositionType catalog.PositionType

	// ScatterFromRoot marks the input arrays as held on rank Root only;
	// they are distributed across the group before painting.
	ScatterFromRoot bool
	Root            int
}

func (cfg *CatalogMeshConfig) normalized() CatalogMeshConfig {
	out := *cfg
	if out.Resampler == 0 {
		out.Resampler = mesh.ResamplerCIC
	}
	if out.Interlacing == 0 {
		out.Interlacing = 2
	}
	if out.PositionType == "" {
		out.PositionType = catalog.PositionTypePos
	}
	return out
}

// CatalogMesh is the painted density field of a data catalog, minus
// alpha times its randoms when given, together with the weight sums the
// normalization and shot-noise estimates need.
type CatalogMesh struct {
	field   *mesh.Mesh
	data    *mesh.Mesh
	randoms *mesh.Mesh

	alpha        float64
	sumwData     float64
	sumw2Data    float64
	sumwRandoms  float64
	sumw2Randoms float64
}

// Field returns the painted field mesh: data alone, or the FKP-style
// difference data - alpha*randoms.
func (cm *CatalogMesh) Field() *mesh.Mesh { return cm.field }

// Alpha returns the data-to-randoms weight ratio, 0 without randoms.
func (cm *CatalogMesh) Alpha() float64 { return cm.alpha }

// SumWeights returns the global data weight sum.
func (cm *CatalogMesh) SumWeights() float64 { return cm.sumwData }

func weightSums(c *comm.Comm, n int, weights []float64) (sumw, sumw2 float64) {
	if weights == nil {
		sumw = float64(n)
		sumw2 = float64(n)
	} else {
		for _, w := range weights {
			sumw += w
			sumw2 += w * w
		}
	}
	return c.SumFloat64(sumw), c.SumFloat64(sumw2)
}

func paintCatalog(c *comm.Comm, d *CatalogData, cfg CatalogMeshConfig) (*mesh.Mesh, float64, float64, error) {
	pos, err := d.positions(cfg.PositionType)
	if err = c.Agree(err); err != nil {
		return nil, 0, 0, err
	}
	weights := d.Weights
	if cfg.ScatterFromRoot {
		pos, err = catalog.ScatterPositions(c, pos, cfg.Root)
		if err != nil {
			return nil, 0, 0, err
		}
		hasWeights := int64(0)
		if c.Rank() == cfg.Root && weights != nil {
			hasWeights = 1
		}
		if c.MaxInt64(hasWeights) == 1 {
			weights, err = catalog.ScatterWeights(c, weights, cfg.Root)
			if err != nil {
				return nil, 0, 0, err
			}
		} else {
			weights = nil
		}
	}
	if weights != nil && len(weights) != len(pos) {
		err = fmt.Errorf("%w: %d positions, %d weights", ErrConfiguration, len(pos), len(weights))
	}
	if err = c.Agree(err); err != nil {
		return nil, 0, 0, err
	}

	sumw, sumw2 := weightSums(c, len(pos), weights)

	box := mesh.Box{Size: cfg.BoxSize, Center: cfg.BoxCenter}
	m, err := mesh.New(c, cfg.Kind, cfg.Nmesh, box)
	if err != nil {
		return nil, 0, 0, err
	}
	if err := m.Paint(pos, weights, cfg.Resampler, cfg.Interlacing, true); err != nil {
		return nil, 0, 0, err
	}
	return m, sumw, sumw2, nil
}

// NewCatalogMesh paints a data catalog, and optionally its randoms, onto
// a mesh over the process group c. With randoms the field becomes
// data - alpha*randoms with alpha = sumw_data / sumw_randoms; a randoms
// catalog with zero total weight is degenerate.
//
// A collective call: every rank passes its local particles (or, with
// ScatterFromRoot, the full arrays on Root and nil elsewhere) and an
// identical configuration.
func NewCatalogMesh(c *comm.Comm, data, randoms *CatalogData, cfg CatalogMeshConfig) (*CatalogMesh, error) {
	if data == nil {
		return nil, fmt.Errorf("%w: nil data catalog", ErrConfiguration)
	}
	cfg = cfg.normalized()

	cm := &CatalogMesh{}
	var err error
	cm.data, cm.sumwData, cm.sumw2Data, err = paintCatalog(c, data, cfg)
	if err != nil {
		return nil, err
	}
	cm.field = cm.data

	if randoms != nil {
		cm.randoms, cm.sumwRandoms, cm.sumw2Randoms, err = paintCatalog(c, randoms, cfg)
		if err != nil {
			return nil, err
		}
		if !(cm.sumwRandoms > 0) {
			return nil, fmt.Errorf("%w: randoms weight sum %v", ErrDegenerateNormalization, cm.sumwRandoms)
		}
		cm.alpha = cm.sumwData / cm.sumwRandoms
		cm.field = combineFKP(cm.data, cm.randoms, cm.alpha)
	}
	return cm, nil
}

// combineFKP subtracts alpha*randoms from data, in real and spectral
// space. Both paints went through the same linear pipeline, so the
// interlaced, compensated spectra combine linearly too.
func combineFKP(data, randoms *mesh.Mesh, alpha float64) *mesh.Mesh {
	out := data.Clone()
	if or, rr := out.RealSlab(), randoms.RealSlab(); or != nil {
		for i, v := range rr {
			or[i] -= alpha * v
		}
	}
	if oc, rc := out.ComplexSlab(), randoms.ComplexSlab(); oc != nil {
		a := complex(alpha, 0)
		for i, v := range rc {
			oc[i] -= a * v
		}
	}
	if os, rs := out.SpectralSlab(), randoms.SpectralSlab(); os != nil {
		a := complex(alpha, 0)
		for i, v := range rs {
			os[i] -= a * v
		}
	}
	return out
}

// normalization picks the data-driven estimate when randoms exist, the
// analytic uniform-density estimate otherwise.
func (cm *CatalogMesh) normalization() (float64, error) {
	if cm.randoms != nil {
		wnorm, err := FieldNormalization(cm.data, cm.randoms)
		if err != nil {
			return 0, err
		}
		return wnorm * cm.alpha, nil
	}
	volume := cm.data.Box().Volume()
	if !(volume > 0) {
		return 0, fmt.Errorf("%w: box volume %v", ErrDegenerateBox, volume)
	}
	return NormalizationFromNbar(cm.sumwData/volume, cm.sumwData)
}

// CatalogPowerConfig configures CatalogFFTPower: the painting setup plus
// the binning choices of MeshPowerConfig.
type CatalogPowerConfig struct {
	Mesh CatalogMeshConfig

	KEdges  EdgeSpec
	MuEdges EdgeSpec
	Ells    []int
	LOS     LineOfSight

	// UniqueKEdges discovers the k edges from the mesh lattice itself.
	UniqueKEdges bool

	// Wnorm overrides the computed normalization when positive.
	Wnorm float64

	// ShotNoise overrides the computed noise floor, including to 0.
	ShotNoise *float64
}

// CatalogFFTPower paints one or two catalogs and measures the auto or
// cross power spectrum. data2 nil selects the auto spectrum of the first
// catalog; its shot noise is (sum w^2 + alpha^2 sum w_randoms^2) / wnorm.
// Cross spectra of independently sampled catalogs have zero shot noise.
// The normalization is randoms-based when randoms are given, analytic
// otherwise, and the geometric mean of the two catalogs' for a cross
// spectrum.
//
// A collective call over c; every rank receives the identical Spectrum.
func CatalogFFTPower(c *comm.Comm, data1, randoms1, data2, randoms2 *CatalogData, cfg CatalogPowerConfig) (*Spectrum, error) {
	if data2 == nil && randoms2 != nil {
		return nil, fmt.Errorf("%w: randoms2 without data2", ErrConfiguration)
	}

	cm1, err := NewCatalogMesh(c, data1, randoms1, cfg.Mesh)
	if err != nil {
		return nil, err
	}
	cm2 := cm1
	if data2 != nil {
		if cm2, err = NewCatalogMesh(c, data2, randoms2, cfg.Mesh); err != nil {
			return nil, err
		}
	}

	wnorm := cfg.Wnorm
	if wnorm == 0 {
		w1, err := cm1.normalization()
		if err != nil {
			return nil, err
		}
		wnorm = w1
		if cm2 != cm1 {
			w2, err := cm2.normalization()
			if err != nil {
				return nil, err
			}
			wnorm = math.Sqrt(w1 * w2)
		}
	}

	shotnoise := 0.0
	if cm2 == cm1 {
		shotnoise = catalogShotNoise(cm1.sumw2Data, cm1.alpha, cm1.sumw2Randoms, wnorm)
	}
	if cfg.ShotNoise != nil {
		shotnoise = *cfg.ShotNoise
	}

	a, b := cm1.Field(), cm2.Field()
	spec, err := MeshFFTPower(a, b, MeshPowerConfig{
		KEdges:       cfg.KEdges,
		MuEdges:      cfg.MuEdges,
		Ells:         cfg.Ells,
		LOS:          cfg.LOS,
		UniqueKEdges: cfg.UniqueKEdges,
		Wnorm:        wnorm,
		ShotNoise:    shotnoise,
	})
	if err != nil {
		return nil, err
	}
	spec.Attrs = map[string]string{
		"resampler":   cfg.Mesh.normalized().Resampler.String(),
		"interlacing": fmt.Sprintf("%d", cfg.Mesh.normalized().Interlacing),
		"nmesh":       fmt.Sprintf("%dx%dx%d", cfg.Mesh.Nmesh[0], cfg.Mesh.Nmesh[1], cfg.Mesh.Nmesh[2]),
		"boxsize":     fmt.Sprintf("%gx%gx%g", cfg.Mesh.BoxSize[0], cfg.Mesh.BoxSize[1], cfg.Mesh.BoxSize[2]),
		"alpha":       fmt.Sprintf("%g", cm1.alpha),
	}
	return spec, nil
}
