package catalog

import (
	"errors"
	"math"
	"testing"

	"github.com/cwbudde/algo-lss/comm"
	"github.com/cwbudde/algo-lss/internal/testutil"
)

func TestFromXYZ(t *testing.T) {
	pos, err := FromXYZ([]float64{1, 4}, []float64{2, 5}, []float64{3, 6})
	if err != nil {
		t.Fatal(err)
	}
	if pos[0] != [3]float64{1, 2, 3} || pos[1] != [3]float64{4, 5, 6} {
		t.Fatalf("got %v", pos)
	}
}

func TestFromXYZLengthMismatch(t *testing.T) {
	_, err := FromXYZ([]float64{1}, []float64{2, 3}, []float64{4})
	if !errors.Is(err, ErrLengthMismatch) {
		t.Fatalf("expected ErrLengthMismatch, got %v", err)
	}
}

func TestSkyRoundTrip(t *testing.T) {
	pos := testutil.UniformPositions(7, 100, 500, 200)
	ra, dec, dist := CartesianToSky(pos)
	back, err := SkyToCartesian(ra, dec, dist)
	if err != nil {
		t.Fatal(err)
	}
	for i := range pos {
		for ax := 0; ax < 3; ax++ {
			if math.Abs(back[i][ax]-pos[i][ax]) > 1e-9 {
				t.Fatalf("point %d axis %d: got %v, want %v", i, ax, back[i][ax], pos[i][ax])
			}
		}
	}
}

func TestSkyConventions(t *testing.T) {
	pos := [][3]float64{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}, {-2, 0, 0}}
	ra, dec, dist := CartesianToSky(pos)
	wantRA := []float64{0, 90, 0, 180}
	wantDec := []float64{0, 0, 90, 0}
	wantDist := []float64{1, 1, 1, 2}
	testutil.RequireSliceNearlyEqual(t, ra, wantRA, 1e-12)
	testutil.RequireSliceNearlyEqual(t, dec, wantDec, 1e-12)
	testutil.RequireSliceNearlyEqual(t, dist, wantDist, 1e-12)
}

func TestConvertUnknownType(t *testing.T) {
	_, err := Convert("polar", nil, nil, nil, nil)
	if !errors.Is(err, ErrUnknownPositionType) {
		t.Fatalf("expected ErrUnknownPositionType, got %v", err)
	}
}

func TestScatterPositions(t *testing.T) {
	full := testutil.UniformPositions(3, 50, 0, 10)
	err := comm.Run(3, func(c *comm.Comm) error {
		var in [][3]float64
		if c.Rank() == 0 {
			in = full
		}
		local, err := ScatterPositions(c, in, 0)
		if err != nil {
			return err
		}
		// 10 = 4 + 3 + 3
		wantLen := []int{4, 3, 3}[c.Rank()]
		if len(local) != wantLen {
			t.Errorf("rank %d: got %d positions, want %d", c.Rank(), len(local), wantLen)
			return nil
		}
		offset := []int{0, 4, 7}[c.Rank()]
		for i, p := range local {
			if p != full[offset+i] {
				t.Errorf("rank %d item %d: got %v, want %v", c.Rank(), i, p, full[offset+i])
			}
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestScatterWeightsMatchesPositionChunks(t *testing.T) {
	weights := []float64{1, 2, 3, 4, 5}
	err := comm.Run(2, func(c *comm.Comm) error {
		var in []float64
		if c.Rank() == 0 {
			in = weights
		}
		local, err := ScatterWeights(c, in, 0)
		if err != nil {
			return err
		}
		want := [][]float64{{1, 2, 3}, {4, 5}}[c.Rank()]
		testutil.RequireSliceNearlyEqual(t, local, want, 0)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestRandomBoxBounds(t *testing.T) {
	boxsize := [3]float64{600, 600, 600}
	center := [3]float64{0, 100, -50}
	pos := RandomBox(42, 1000, boxsize, center)
	if len(pos) != 1000 {
		t.Fatalf("got %d positions", len(pos))
	}
	for i, p := range pos {
		for ax := 0; ax < 3; ax++ {
			lo := center[ax] - boxsize[ax]/2
			hi := center[ax] + boxsize[ax]/2
			if p[ax] < lo || p[ax] >= hi {
				t.Fatalf("point %d axis %d: %v outside [%v, %v)", i, ax, p[ax], lo, hi)
			}
		}
	}
	// Reproducible.
	again := RandomBox(42, 1000, boxsize, center)
	if again[17] != pos[17] {
		t.Fatal("RandomBox not reproducible for equal seeds")
	}
}
