package mesh

import (
	"sync"

	"github.com/cwbudde/algo-vecmath"
)

// scratchBuf holds pooled scratch memory for complex-to-real unpacking.
type scratchBuf struct {
	data []float64
}

var scratchPool = sync.Pool{
	New: func() any { return &scratchBuf{} },
}

func getScratch(n int) (re, im []float64, buf *scratchBuf) {
	buf = scratchPool.Get().(*scratchBuf)
	need := 2 * n
	if cap(buf.data) < need {
		buf.data = make([]float64, need)
	} else {
		buf.data = buf.data[:need]
	}
	return buf.data[:n], buf.data[n:need], buf
}

func putScratch(buf *scratchBuf) {
	scratchPool.Put(buf)
}

// PowerValues returns |X[i]|^2 for each spectral element. Uses
// SIMD-accelerated split re/im operations; scratch buffers are pooled, so
// in steady state this allocates only the output slice.
func PowerValues(in []complex128) []float64 {
	out := make([]float64, len(in))
	PowerValuesTo(out, in)
	return out
}

// PowerValuesTo writes |X[i]|^2 into a pre-allocated destination, which
// must have the same length as in.
func PowerValuesTo(dst []float64, in []complex128) {
	re, im, buf := getScratch(len(in))
	defer putScratch(buf)
	for i, c := range in {
		re[i] = real(c)
		im[i] = imag(c)
	}
	vecmath.Power(dst, re, im)
}

// MagnitudeValues returns |X[i]| for each spectral element.
func MagnitudeValues(in []complex128) []float64 {
	out := make([]float64, len(in))
	re, im, buf := getScratch(len(in))
	defer putScratch(buf)
	for i, c := range in {
		re[i] = real(c)
		im[i] = imag(c)
	}
	vecmath.Magnitude(out, re, im)
	return out
}
