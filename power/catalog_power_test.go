package power

import (
	"errors"
	"math"
	"math/cmplx"
	"testing"

	"github.com/cwbudde/algo-lss/catalog"
	"github.com/cwbudde/algo-lss/comm"
	"github.com/cwbudde/algo-lss/internal/testutil"
	"github.com/cwbudde/algo-lss/mesh"
)

func TestCatalogPowerShotNoiseScenario(t *testing.T) {
	// Two independent samples of 10000 points in a 600-unit box: the
	// auto spectrum has shot noise V/N for unit weights, the cross
	// spectrum exactly zero.
	const nPart = 10000
	const boxsize = 600.0
	data1 := &CatalogData{Positions: testutil.UniformPositions(1, boxsize, 0, nPart)}
	data2 := &CatalogData{Positions: testutil.UniformPositions(2, boxsize, 0, nPart)}
	cfg := CatalogPowerConfig{
		Mesh: CatalogMeshConfig{
			BoxSize:     [3]float64{boxsize, boxsize, boxsize},
			Nmesh:       [3]int{64, 64, 64},
			Resampler:   mesh.ResamplerCIC,
			Interlacing: 2,
		},
		Ells: []int{0},
	}

	auto, err := CatalogFFTPower(comm.Self(), data1, nil, nil, nil, cfg)
	if err != nil {
		t.Fatal(err)
	}
	wantSN := boxsize * boxsize * boxsize / nPart
	testutil.RequireNearlyEqual(t, auto.ShotNoise, wantSN, 1e-12)

	cross, err := CatalogFFTPower(comm.Self(), data1, nil, data2, nil, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if cross.ShotNoise != 0 {
		t.Fatalf("cross shot noise %v, want 0", cross.ShotNoise)
	}
}

func TestCatalogPowerMonopolePlateau(t *testing.T) {
	// A pure Poisson sample has no clustering: the raw monopole should
	// sit near the shot-noise floor across k.
	const nPart = 20000
	const boxsize = 200.0
	data := &CatalogData{Positions: testutil.UniformPositions(5, boxsize, 0, nPart)}
	s, err := CatalogFFTPower(comm.Self(), data, nil, nil, nil, CatalogPowerConfig{
		Mesh: CatalogMeshConfig{
			BoxSize: [3]float64{boxsize, boxsize, boxsize},
			Nmesh:   [3]int{16, 16, 16},
		},
		Ells: []int{0},
	})
	if err != nil {
		t.Fatal(err)
	}
	p0, err := s.At(0)
	if err != nil {
		t.Fatal(err)
	}
	// Bins past the one-axis Nyquist frequency pick up residual alias
	// images even with interlacing; check the clean range.
	kny := math.Pi * 16 / boxsize
	for i, v := range p0 {
		if s.Nmodes[i] < 50 || s.KEdges[i+1] > kny {
			continue
		}
		if math.Abs(real(v)-s.ShotNoise) > 0.5*s.ShotNoise {
			t.Fatalf("bin %d: monopole %v far from shot noise %v", i, real(v), s.ShotNoise)
		}
	}
}

func TestCatalogPowerWeights(t *testing.T) {
	const boxsize = 100.0
	pos := testutil.UniformPositions(7, boxsize, 0, 1000)
	weights := make([]float64, len(pos))
	for i := range weights {
		weights[i] = 2
	}
	s, err := CatalogFFTPower(comm.Self(), &CatalogData{Positions: pos, Weights: weights}, nil, nil, nil,
		CatalogPowerConfig{
			Mesh: CatalogMeshConfig{BoxSize: [3]float64{boxsize, boxsize, boxsize}, Nmesh: [3]int{8, 8, 8}},
			Ells: []int{0},
		})
	if err != nil {
		t.Fatal(err)
	}
	// Constant weights cancel: shot noise stays sum(w^2)/wnorm with
	// wnorm = (sum w)^2 / V.
	wantSN := boxsize * boxsize * boxsize * 4 * 1000 / (2000.0 * 2000.0)
	testutil.RequireNearlyEqual(t, s.ShotNoise, wantSN, 1e-12)
}

func TestCatalogPowerXYZAndRDD(t *testing.T) {
	const boxsize = 100.0
	pos := testutil.UniformPositions(9, boxsize, 500, 200)
	var x, y, z []float64
	for _, p := range pos {
		x = append(x, p[0])
		y = append(y, p[1])
		z = append(z, p[2])
	}
	ra, dec, dist := catalog.CartesianToSky(pos)

	mcfg := CatalogMeshConfig{
		BoxSize:   [3]float64{boxsize, boxsize, boxsize},
		BoxCenter: [3]float64{500, 500, 500},
		Nmesh:     [3]int{8, 8, 8},
	}
	base, err := CatalogFFTPower(comm.Self(), &CatalogData{Positions: pos}, nil, nil, nil,
		CatalogPowerConfig{Mesh: mcfg, Ells: []int{0}})
	if err != nil {
		t.Fatal(err)
	}

	mcfg.PositionType = catalog.PositionTypeXYZ
	fromXYZ, err := CatalogFFTPower(comm.Self(), &CatalogData{X: x, Y: y, Z: z}, nil, nil, nil,
		CatalogPowerConfig{Mesh: mcfg, Ells: []int{0}})
	if err != nil {
		t.Fatal(err)
	}
	for i := range base.Value {
		if base.Value[i] != fromXYZ.Value[i] {
			t.Fatalf("xyz value %d differs: %v vs %v", i, fromXYZ.Value[i], base.Value[i])
		}
	}

	mcfg.PositionType = catalog.PositionTypeRDD
	fromRDD, err := CatalogFFTPower(comm.Self(), &CatalogData{X: ra, Y: dec, Z: dist}, nil, nil, nil,
		CatalogPowerConfig{Mesh: mcfg, Ells: []int{0}})
	if err != nil {
		t.Fatal(err)
	}
	for i := range base.Value {
		if cmplx.Abs(base.Value[i]-fromRDD.Value[i]) > 1e-6*(1+cmplx.Abs(base.Value[i])) {
			t.Fatalf("rdd value %d differs: %v vs %v", i, fromRDD.Value[i], base.Value[i])
		}
	}
}

func TestCatalogPowerEmptyCatalog(t *testing.T) {
	cfg := CatalogPowerConfig{
		Mesh: CatalogMeshConfig{BoxSize: [3]float64{100, 100, 100}, Nmesh: [3]int{8, 8, 8}},
		Ells: []int{0},
	}
	_, err := CatalogFFTPower(comm.Self(), &CatalogData{}, nil, nil, nil, cfg)
	if !errors.Is(err, ErrDegenerateNormalization) {
		t.Fatalf("expected ErrDegenerateNormalization, got %v", err)
	}
}

func TestCatalogPowerShotNoiseOverride(t *testing.T) {
	data := &CatalogData{Positions: testutil.UniformPositions(11, 100, 0, 500)}
	zero := 0.0
	s, err := CatalogFFTPower(comm.Self(), data, nil, nil, nil, CatalogPowerConfig{
		Mesh:      CatalogMeshConfig{BoxSize: [3]float64{100, 100, 100}, Nmesh: [3]int{8, 8, 8}},
		Ells:      []int{0},
		ShotNoise: &zero,
	})
	if err != nil {
		t.Fatal(err)
	}
	if s.ShotNoise != 0 {
		t.Fatalf("override ignored: %v", s.ShotNoise)
	}
}

func TestCatalogPowerScatterFromRoot(t *testing.T) {
	const boxsize = 100.0
	pos := testutil.UniformPositions(13, boxsize, 0, 600)
	cfg := CatalogPowerConfig{
		Mesh: CatalogMeshConfig{BoxSize: [3]float64{boxsize, boxsize, boxsize}, Nmesh: [3]int{8, 8, 8}},
		Ells: []int{0, 2},
	}
	want, err := CatalogFFTPower(comm.Self(), &CatalogData{Positions: pos}, nil, nil, nil, cfg)
	if err != nil {
		t.Fatal(err)
	}

	rootCfg := cfg
	rootCfg.Mesh.ScatterFromRoot = true
	rootCfg.Mesh.Root = 1
	err = comm.Run(3, func(c *comm.Comm) error {
		var d CatalogData
		if c.Rank() == 1 {
			d.Positions = pos
		}
		got, err := CatalogFFTPower(c, &d, nil, nil, nil, rootCfg)
		if err != nil {
			return err
		}
		for i := range want.Value {
			if cmplx.Abs(got.Value[i]-want.Value[i]) > 1e-9*(1+cmplx.Abs(want.Value[i])) {
				t.Errorf("rank %d value %d: %v vs %v", c.Rank(), i, got.Value[i], want.Value[i])
				break
			}
		}
		if got.TotalModes() != want.TotalModes() {
			t.Errorf("rank %d: mode count %d vs %d", c.Rank(), got.TotalModes(), want.TotalModes())
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestCatalogPowerWithRandoms(t *testing.T) {
	const boxsize = 200.0
	data := &CatalogData{Positions: testutil.UniformPositions(17, boxsize, 0, 5000)}
	randoms := &CatalogData{Positions: testutil.UniformPositions(18, boxsize, 0, 20000)}
	s, err := CatalogFFTPower(comm.Self(), data, randoms, nil, nil, CatalogPowerConfig{
		Mesh: CatalogMeshConfig{BoxSize: [3]float64{boxsize, boxsize, boxsize}, Nmesh: [3]int{16, 16, 16}},
		Ells: []int{0},
	})
	if err != nil {
		t.Fatal(err)
	}
	if s.Attrs["alpha"] == "" {
		t.Fatal("alpha attribute missing")
	}
	// alpha = 5000/20000.
	testutil.RequireNearlyEqual(t, s.ShotNoise,
		(5000+0.25*0.25*20000)/s.Wnorm, 1e-12)
	// The FKP field has zero mean, so the DC cell sum vanishes and the
	// monopole stays near the shot-noise level.
	p0, err := s.At(0)
	if err != nil {
		t.Fatal(err)
	}
	kny := math.Pi * 16 / boxsize
	for i, v := range p0 {
		if s.Nmodes[i] < 50 || s.KEdges[i+1] > kny {
			continue
		}
		if math.Abs(real(v)-s.ShotNoise) > s.ShotNoise {
			t.Fatalf("bin %d: monopole %v vs shot noise %v", i, real(v), s.ShotNoise)
		}
	}
}
