package mesh

import (
	"fmt"
	"math"
)

// Box is the periodic physical cube a mesh covers.
type Box struct {
	Size   [3]float64
	Center [3]float64
}

// CubicBox returns a cube of the given side length centred on center.
func CubicBox(size float64, center [3]float64) Box {
	return Box{Size: [3]float64{size, size, size}, Center: center}
}

// Validate reports whether the box has strictly positive extent on every
// axis.
func (b Box) Validate() error {
	for ax := 0; ax < 3; ax++ {
		if !(b.Size[ax] > 0) || math.IsInf(b.Size[ax], 0) || math.IsNaN(b.Size[ax]) {
			return fmt.Errorf("%w: box size %v", ErrInvalidBox, b.Size)
		}
	}
	return nil
}

// Volume returns the box volume.
func (b Box) Volume() float64 {
	return b.Size[0] * b.Size[1] * b.Size[2]
}

// Origin returns the lower corner, center - size/2.
func (b Box) Origin() [3]float64 {
	return [3]float64{
		b.Center[0] - b.Size[0]/2,
		b.Center[1] - b.Size[1]/2,
		b.Center[2] - b.Size[2]/2,
	}
}

// Wrap maps a position into [origin, origin+size) with periodic wrapping.
func (b Box) Wrap(p [3]float64) [3]float64 {
	o := b.Origin()
	for ax := 0; ax < 3; ax++ {
		p[ax] = math.Mod(p[ax]-o[ax], b.Size[ax])
		if p[ax] < 0 {
			p[ax] += b.Size[ax]
		}
		p[ax] += o[ax]
	}
	return p
}

// Fundamental returns the fundamental wavenumber 2*pi/L per axis.
func (b Box) Fundamental() [3]float64 {
	return [3]float64{
		2 * math.Pi / b.Size[0],
		2 * math.Pi / b.Size[1],
		2 * math.Pi / b.Size[2],
	}
}
