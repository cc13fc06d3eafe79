// Package catalog handles particle catalog inputs: position format
// conversion, sky-to-Cartesian transforms, distribution of root-held
// arrays across a process group, and uniform random box catalogs.
//
// Positions are [][3]float64 throughout; the package converts the other
// accepted wire formats (three parallel arrays, or right ascension /
// declination / distance) into that form.
package catalog

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"github.com/cwbudde/algo-lss/comm"
)

// Errors returned by catalog conversions.
var (
	ErrLengthMismatch      = errors.New("catalog: array length mismatch")
	ErrUnknownPositionType = errors.New("catalog: unknown position type")
)

// PositionType selects the layout of position inputs.
type PositionType string

const (
	// PositionTypePos is an array of 3-vectors.
	PositionTypePos PositionType = "pos"
	// PositionTypeXYZ is three parallel coordinate arrays.
	PositionTypeXYZ PositionType = "xyz"
	// PositionTypeRDD is right ascension and declination in degrees plus
	// comoving distance.
	PositionTypeRDD PositionType = "rdd"
)

// FromXYZ assembles positions from three parallel coordinate arrays.
func FromXYZ(x, y, z []float64) ([][3]float64, error) {
	if len(x) != len(y) || len(x) != len(z) {
		return nil, fmt.Errorf("%w: xyz lengths %d/%d/%d", ErrLengthMismatch, len(x), len(y), len(z))
	}
	out := make([][3]float64, len(x))
	for i := range out {
		out[i] = [3]float64{x[i], y[i], z[i]}
	}
	return out, nil
}

// SkyToCartesian converts right ascension and declination (degrees) plus
// distance into Cartesian positions.
func SkyToCartesian(ra, dec, dist []float64) ([][3]float64, error) {
	if len(ra) != len(dec) || len(ra) != len(dist) {
		return nil, fmt.Errorf("%w: rdd lengths %d/%d/%d", ErrLengthMismatch, len(ra), len(dec), len(dist))
	}
	out := make([][3]float64, len(ra))
	for i := range out {
		a := ra[i] * math.Pi / 180
		d := dec[i] * math.Pi / 180
		cosd := math.Cos(d)
		out[i] = [3]float64{
			dist[i] * cosd * math.Cos(a),
			dist[i] * cosd * math.Sin(a),
			dist[i] * math.Sin(d),
		}
	}
	return out, nil
}

// CartesianToSky converts Cartesian positions into right ascension and
// declination (degrees) plus distance. Points at the origin get ra = dec = 0.
func CartesianToSky(pos [][3]float64) (ra, dec, dist []float64) {
	ra = make([]float64, len(pos))
	dec = make([]float64, len(pos))
	dist = make([]float64, len(pos))
	for i, p := range pos {
		d := math.Sqrt(p[0]*p[0] + p[1]*p[1] + p[2]*p[2])
		dist[i] = d
		if d == 0 {
			continue
		}
		dec[i] = math.Asin(p[2]/d) * 180 / math.Pi
		a := math.Atan2(p[1], p[0]) * 180 / math.Pi
		if a < 0 {
			a += 360
		}
		ra[i] = a
	}
	return ra, dec, dist
}

// Convert builds positions from the arrays of the given type. For
// PositionTypePos pass a single [][3]float64 via pos; for the other types
// pass the three coordinate arrays.
func Convert(ptype PositionType, pos [][3]float64, a, b, c []float64) ([][3]float64, error) {
	switch ptype {
	case PositionTypePos:
		return pos, nil
	case PositionTypeXYZ:
		return FromXYZ(a, b, c)
	case PositionTypeRDD:
		return SkyToCartesian(a, b, c)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownPositionType, ptype)
	}
}

// flatten packs positions into a single slice for collective transport.
func flatten(pos [][3]float64) []float64 {
	out := make([]float64, 3*len(pos))
	for i, p := range pos {
		out[3*i] = p[0]
		out[3*i+1] = p[1]
		out[3*i+2] = p[2]
	}
	return out
}

func unflatten(flat []float64) [][3]float64 {
	out := make([][3]float64, len(flat)/3)
	for i := range out {
		out[i] = [3]float64{flat[3*i], flat[3*i+1], flat[3*i+2]}
	}
	return out
}

// ScatterPositions distributes positions held only on root into
// near-equal contiguous chunks, one per rank. Non-root ranks pass nil.
func ScatterPositions(c *comm.Comm, pos [][3]float64, root int) ([][3]float64, error) {
	var flat []float64
	var counts []int
	if c.Rank() == root {
		flat = flatten(pos)
		counts = chunkCounts(len(pos), c.Size())
		for i := range counts {
			counts[i] *= 3
		}
	}
	local, err := c.ScatterFloat64s(flat, counts, root)
	if err != nil {
		return nil, err
	}
	return unflatten(local), nil
}

// ScatterWeights distributes a weight array held only on root, using the
// same chunking as ScatterPositions.
func ScatterWeights(c *comm.Comm, weights []float64, root int) ([]float64, error) {
	var counts []int
	if c.Rank() == root {
		counts = chunkCounts(len(weights), c.Size())
	}
	return c.ScatterFloat64s(weights, counts, root)
}

// chunkCounts splits n items into size near-equal chunks, remainder
// spread over the leading ranks.
func chunkCounts(n, size int) []int {
	counts := make([]int, size)
	base, rem := n/size, n%size
	for i := range counts {
		counts[i] = base
		if i < rem {
			counts[i]++
		}
	}
	return counts
}

// RandomBox generates n positions uniformly distributed in a periodic box,
// reproducibly from seed. The caller splits n across ranks beforehand when
// generating a distributed catalog.
func RandomBox(seed int64, n int, boxsize, boxcenter [3]float64) [][3]float64 {
	rng := rand.New(rand.NewSource(seed))
	out := make([][3]float64, n)
	for i := range out {
		for ax := 0; ax < 3; ax++ {
			out[i][ax] = boxcenter[ax] + (rng.Float64()-0.5)*boxsize[ax]
		}
	}
	return out
}
