package mesh

import (
	"math"
	"testing"

	"github.com/cwbudde/algo-lss/internal/testutil"
)

func TestPowerValues(t *testing.T) {
	in := []complex128{0, 1, 1i, 3 + 4i, -2 - 2i}
	want := []float64{0, 1, 1, 25, 8}
	testutil.RequireSliceNearlyEqual(t, PowerValues(in), want, 1e-12)
}

func TestPowerValuesTo(t *testing.T) {
	in := []complex128{2, -1i, 1 + 1i}
	dst := make([]float64, len(in))
	PowerValuesTo(dst, in)
	testutil.RequireSliceNearlyEqual(t, dst, []float64{4, 1, 2}, 1e-12)
}

func TestMagnitudeValues(t *testing.T) {
	in := []complex128{0, 3 + 4i, -5, 1 + 1i}
	want := []float64{0, 5, 5, math.Sqrt2}
	testutil.RequireSliceNearlyEqual(t, MagnitudeValues(in), want, 1e-12)
}

func TestPowerValuesPooledScratchReuse(t *testing.T) {
	// Repeated calls with varying lengths must stay correct while the
	// scratch pool recycles buffers.
	for i := 1; i < 40; i++ {
		in := make([]complex128, i)
		for j := range in {
			in[j] = complex(float64(j), -float64(j))
		}
		out := PowerValues(in)
		for j := range in {
			if want := 2 * float64(j) * float64(j); math.Abs(out[j]-want) > 1e-12 {
				t.Fatalf("len %d element %d: got %v, want %v", i, j, out[j], want)
			}
		}
	}
}
