package power

import (
	"errors"
	"testing"

	"github.com/cwbudde/algo-lss/comm"
	"github.com/cwbudde/algo-lss/internal/testutil"
	"github.com/cwbudde/algo-lss/mesh"
)

func TestNormalizationFromNbar(t *testing.T) {
	wnorm, err := NormalizationFromNbar(0.01, 1000)
	if err != nil {
		t.Fatal(err)
	}
	testutil.RequireNearlyEqual(t, wnorm, 10, 1e-15)

	for _, c := range [][2]float64{{0, 1000}, {0.01, 0}, {-1, 1000}} {
		if _, err := NormalizationFromNbar(c[0], c[1]); !errors.Is(err, ErrDegenerateNormalization) {
			t.Fatalf("nbar=%v sumw=%v: expected ErrDegenerateNormalization, got %v", c[0], c[1], err)
		}
	}
}

func TestFieldNormalizationUniform(t *testing.T) {
	// A perfectly uniform field reproduces the analytic value exactly.
	const boxsize = 200.0
	const nPart = 8000.0
	m, err := mesh.NewCubic(comm.Self(), mesh.KindReal, 8, mesh.CubicBox(boxsize, [3]float64{}))
	if err != nil {
		t.Fatal(err)
	}
	perCell := nPart / 512
	for i := range m.RealSlab() {
		m.RealSlab()[i] = perCell
	}
	wnorm, err := FieldNormalization(m, nil)
	if err != nil {
		t.Fatal(err)
	}
	want := nPart * nPart / (boxsize * boxsize * boxsize)
	testutil.RequireNearlyEqual(t, wnorm, want, 1e-12)
}

func TestFieldNormalizationZeroField(t *testing.T) {
	m, err := mesh.NewCubic(comm.Self(), mesh.KindReal, 4, mesh.CubicBox(10, [3]float64{}))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := FieldNormalization(m, nil); !errors.Is(err, ErrDegenerateNormalization) {
		t.Fatalf("expected ErrDegenerateNormalization, got %v", err)
	}
}

func TestFieldNormalizationShapeMismatch(t *testing.T) {
	a, err := mesh.NewCubic(comm.Self(), mesh.KindReal, 4, mesh.CubicBox(10, [3]float64{}))
	if err != nil {
		t.Fatal(err)
	}
	b, err := mesh.NewCubic(comm.Self(), mesh.KindReal, 8, mesh.CubicBox(10, [3]float64{}))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := FieldNormalization(a, b); !errors.Is(err, ErrShapeMismatch) {
		t.Fatalf("expected ErrShapeMismatch, got %v", err)
	}
}

func TestFieldNormalizationComplexField(t *testing.T) {
	const boxsize = 10.0
	a, err := mesh.NewCubic(comm.Self(), mesh.KindComplex, 4, mesh.CubicBox(boxsize, [3]float64{}))
	if err != nil {
		t.Fatal(err)
	}
	b := a.Clone()
	sum := 0.0
	for i := range a.ComplexSlab() {
		va := complex(float64(i%5)+1, float64(i%3))
		vb := complex(float64(i%7)+1, -float64(i%2))
		a.ComplexSlab()[i] = va
		b.ComplexSlab()[i] = vb
		sum += real(va)*real(vb) + imag(va)*imag(vb)
	}
	wnorm, err := FieldNormalization(a, b)
	if err != nil {
		t.Fatal(err)
	}
	testutil.RequireNearlyEqual(t, wnorm, sum/a.CellVolume(), 1e-12)
}

func TestFieldNormalizationKindMismatch(t *testing.T) {
	a, err := mesh.NewCubic(comm.Self(), mesh.KindReal, 4, mesh.CubicBox(10, [3]float64{}))
	if err != nil {
		t.Fatal(err)
	}
	b, err := mesh.NewCubic(a.Comm(), mesh.KindComplex, 4, mesh.CubicBox(10, [3]float64{}))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := FieldNormalization(a, b); !errors.Is(err, ErrShapeMismatch) {
		t.Fatalf("expected ErrShapeMismatch, got %v", err)
	}
}

// TestNormalizationConsistency compares the randoms-based field estimate
// against the analytic uniform-density value: they must agree within 10%.
func TestNormalizationConsistency(t *testing.T) {
	const boxsize = 600.0
	const nData = 10000
	const nRandoms = 50000
	data := &CatalogData{Positions: testutil.UniformPositions(21, boxsize, 0, nData)}
	randoms := &CatalogData{Positions: testutil.UniformPositions(22, boxsize, 0, nRandoms)}
	cm, err := NewCatalogMesh(comm.Self(), data, randoms, CatalogMeshConfig{
		BoxSize: [3]float64{boxsize, boxsize, boxsize},
		Nmesh:   [3]int{8, 8, 8},
	})
	if err != nil {
		t.Fatal(err)
	}
	got, err := cm.normalization()
	if err != nil {
		t.Fatal(err)
	}
	analytic := float64(nData) * float64(nData) / (boxsize * boxsize * boxsize)
	testutil.RequireNearlyEqual(t, got, analytic, 0.1)

	// Catalogs painted into complex storage reach the same estimate.
	cmc, err := NewCatalogMesh(comm.Self(), data, randoms, CatalogMeshConfig{
		BoxSize: [3]float64{boxsize, boxsize, boxsize},
		Nmesh:   [3]int{8, 8, 8},
		Kind:    mesh.KindComplex,
	})
	if err != nil {
		t.Fatal(err)
	}
	gotc, err := cmc.normalization()
	if err != nil {
		t.Fatal(err)
	}
	testutil.RequireNearlyEqual(t, gotc, got, 1e-10)
}

func TestCatalogShotNoise(t *testing.T) {
	// Unit weights, no randoms: sum(w^2)/wnorm.
	if got := catalogShotNoise(1000, 0, 0, 500); got != 2 {
		t.Fatalf("shot noise %v, want 2", got)
	}
	// alpha-weighted randoms contribution.
	if got := catalogShotNoise(1000, 0.5, 4000, 500); got != 4 {
		t.Fatalf("shot noise %v, want 4", got)
	}
}
