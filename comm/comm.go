// Package comm provides the process-group primitives used by the mesh and
// power packages: a fixed set of ranks executing the same program over
// disjoint data, synchronized through blocking collective operations.
//
// A group lives inside one OS process; each rank is a goroutine holding a
// *Comm handle. Collectives are rendezvous points: no rank returns from a
// collective until every rank of the group has entered it. Reductions are
// combined in rank order, so every rank observes bit-identical results.
//
// # Usage
//
//	err := comm.Run(4, func(c *comm.Comm) error {
//		local := workFor(c.Rank())
//		total := c.SumFloat64(local)
//		...
//	})
package comm

import (
	"errors"
	"fmt"
	"sync"
)

// Errors returned by group operations.
var (
	ErrInvalidSize   = errors.New("comm: group size must be positive")
	ErrInvalidRoot   = errors.New("comm: root rank out of range")
	ErrRemoteFailure = errors.New("comm: failure on remote rank")
)

// Comm is a single rank's handle on a process group.
//
// A Comm must only be used by the goroutine it was handed to; the shared
// group state behind it is what the collectives synchronize on.
type Comm struct {
	rank int
	g    *group
}

type group struct {
	size    int
	mu      sync.Mutex
	cond    *sync.Cond
	arrived int
	gen     uint64
	slots   []interface{}
	result  interface{}
}

// NewGroup creates a process group of the given size and returns one handle
// per rank. The handles must be distributed to exactly one goroutine each.
func NewGroup(size int) ([]*Comm, error) {
	if size <= 0 {
		return nil, ErrInvalidSize
	}
	g := &group{
		size:  size,
		slots: make([]interface{}, size),
	}
	g.cond = sync.NewCond(&g.mu)

	comms := make([]*Comm, size)
	for r := range comms {
		comms[r] = &Comm{rank: r, g: g}
	}
	return comms, nil
}

// Self returns a single-rank group, the degenerate communicator for serial
// execution.
func Self() *Comm {
	comms, _ := NewGroup(1)
	return comms[0]
}

// Rank returns this handle's rank within the group, in [0, Size).
func (c *Comm) Rank() int { return c.rank }

// Size returns the number of ranks in the group.
func (c *Comm) Size() int { return c.g.size }

// exchange is the single rendezvous primitive all collectives build on.
// Every rank deposits contrib; the last rank to arrive runs combine over
// the contributions (ordered by rank) and the combined value is returned
// to every rank.
func (c *Comm) exchange(contrib interface{}, combine func(slots []interface{}) interface{}) interface{} {
	g := c.g
	g.mu.Lock()
	defer g.mu.Unlock()

	gen := g.gen
	g.slots[c.rank] = contrib
	g.arrived++
	if g.arrived == g.size {
		g.result = combine(g.slots)
		for i := range g.slots {
			g.slots[i] = nil
		}
		g.arrived = 0
		g.gen++
		g.cond.Broadcast()
	} else {
		for gen == g.gen {
			g.cond.Wait()
		}
	}
	return g.result
}

// Barrier blocks until every rank of the group has called Barrier.
func (c *Comm) Barrier() {
	c.exchange(nil, func([]interface{}) interface{} { return nil })
}

// AllReduceFloat64s sums x element-wise across all ranks and stores the
// result back into every rank's x. All ranks must pass slices of equal
// length. Summation runs in rank order, so the result is identical on
// every rank.
func (c *Comm) AllReduceFloat64s(x []float64) {
	res := c.exchange(x, func(slots []interface{}) interface{} {
		sum := make([]float64, len(slots[0].([]float64)))
		for _, s := range slots {
			v := s.([]float64)
			for i := range sum {
				sum[i] += v[i]
			}
		}
		return sum
	})
	copy(x, res.([]float64))
}

// AllReduceComplex128s sums x element-wise across all ranks, in place.
func (c *Comm) AllReduceComplex128s(x []complex128) {
	res := c.exchange(x, func(slots []interface{}) interface{} {
		sum := make([]complex128, len(slots[0].([]complex128)))
		for _, s := range slots {
			v := s.([]complex128)
			for i := range sum {
				sum[i] += v[i]
			}
		}
		return sum
	})
	copy(x, res.([]complex128))
}

// AllReduceInt64s sums x element-wise across all ranks, in place.
func (c *Comm) AllReduceInt64s(x []int64) {
	res := c.exchange(x, func(slots []interface{}) interface{} {
		sum := make([]int64, len(slots[0].([]int64)))
		for _, s := range slots {
			v := s.([]int64)
			for i := range sum {
				sum[i] += v[i]
			}
		}
		return sum
	})
	copy(x, res.([]int64))
}

// SumFloat64 returns the sum of v over all ranks.
func (c *Comm) SumFloat64(v float64) float64 {
	buf := []float64{v}
	c.AllReduceFloat64s(buf)
	return buf[0]
}

// SumInt64 returns the sum of v over all ranks.
func (c *Comm) SumInt64(v int64) int64 {
	buf := []int64{v}
	c.AllReduceInt64s(buf)
	return buf[0]
}

// MaxInt64 returns the maximum of v over all ranks.
func (c *Comm) MaxInt64(v int64) int64 {
	res := c.exchange(v, func(slots []interface{}) interface{} {
		m := slots[0].(int64)
		for _, s := range slots[1:] {
			if w := s.(int64); w > m {
				m = w
			}
		}
		return m
	})
	return res.(int64)
}

// BcastFloat64s returns root's slice on every rank. Non-root contributions
// are ignored; the returned slice is a copy owned by the caller.
func (c *Comm) BcastFloat64s(x []float64, root int) ([]float64, error) {
	if root < 0 || root >= c.g.size {
		return nil, ErrInvalidRoot
	}
	res := c.exchange(x, func(slots []interface{}) interface{} {
		src, _ := slots[root].([]float64)
		out := make([]float64, len(src))
		copy(out, src)
		return out
	})
	v := res.([]float64)
	out := make([]float64, len(v))
	copy(out, v)
	return out, nil
}

// BcastBytes returns root's byte slice on every rank.
func (c *Comm) BcastBytes(x []byte, root int) ([]byte, error) {
	if root < 0 || root >= c.g.size {
		return nil, ErrInvalidRoot
	}
	res := c.exchange(x, func(slots []interface{}) interface{} {
		src, _ := slots[root].([]byte)
		return src
	})
	v, _ := res.([]byte)
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

// AllGatherFloat64s concatenates every rank's slice in rank order and
// returns the concatenation on every rank. Slice lengths may differ
// between ranks.
func (c *Comm) AllGatherFloat64s(x []float64) []float64 {
	res := c.exchange(x, func(slots []interface{}) interface{} {
		total := 0
		for _, s := range slots {
			total += len(s.([]float64))
		}
		out := make([]float64, 0, total)
		for _, s := range slots {
			out = append(out, s.([]float64)...)
		}
		return out
	})
	v := res.([]float64)
	out := make([]float64, len(v))
	copy(out, v)
	return out
}

// AllGatherComplex128s concatenates every rank's slice in rank order and
// returns the concatenation on every rank.
func (c *Comm) AllGatherComplex128s(x []complex128) []complex128 {
	res := c.exchange(x, func(slots []interface{}) interface{} {
		total := 0
		for _, s := range slots {
			total += len(s.([]complex128))
		}
		out := make([]complex128, 0, total)
		for _, s := range slots {
			out = append(out, s.([]complex128)...)
		}
		return out
	})
	v := res.([]complex128)
	out := make([]complex128, len(v))
	copy(out, v)
	return out
}

// GatherFloat64s concatenates every rank's slice in rank order. The
// concatenation is returned on root; all other ranks receive nil.
func (c *Comm) GatherFloat64s(x []float64, root int) ([]float64, error) {
	if root < 0 || root >= c.g.size {
		return nil, ErrInvalidRoot
	}
	all := c.AllGatherFloat64s(x)
	if c.rank != root {
		return nil, nil
	}
	return all, nil
}

// ScatterFloat64s splits root's slice into per-rank chunks of the given
// element counts and returns each rank its chunk. counts must be known on
// root; other ranks may pass nil for both arguments.
func (c *Comm) ScatterFloat64s(x []float64, counts []int, root int) ([]float64, error) {
	if root < 0 || root >= c.g.size {
		return nil, ErrInvalidRoot
	}
	type payload struct {
		data   []float64
		counts []int
	}
	res := c.exchange(payload{x, counts}, func(slots []interface{}) interface{} {
		return slots[root]
	})
	p := res.(payload)
	if len(p.counts) != c.g.size {
		return nil, fmt.Errorf("comm: scatter counts length %d for group size %d: %w",
			len(p.counts), c.g.size, ErrInvalidSize)
	}
	total := 0
	for _, n := range p.counts {
		total += n
	}
	if total != len(p.data) {
		return nil, fmt.Errorf("comm: scatter counts sum %d does not match data length %d: %w",
			total, len(p.data), ErrInvalidSize)
	}
	offset := 0
	for r := 0; r < c.rank; r++ {
		offset += p.counts[r]
	}
	out := make([]float64, p.counts[c.rank])
	copy(out, p.data[offset:offset+p.counts[c.rank]])
	return out, nil
}

// Agree exchanges each rank's error status in a single collective round.
// If no rank failed, every rank receives nil. A failed rank gets its own
// error back; healthy ranks receive an ErrRemoteFailure describing the
// first failed rank. This is how errors inside a collective phase surface
// on all ranks instead of deadlocking the group.
func (c *Comm) Agree(err error) error {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	res := c.exchange(msg, func(slots []interface{}) interface{} {
		for r, s := range slots {
			if s.(string) != "" {
				return fmt.Sprintf("rank %d: %s", r, s.(string))
			}
		}
		return ""
	})
	desc := res.(string)
	if desc == "" {
		return nil
	}
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: %s", ErrRemoteFailure, desc)
}
