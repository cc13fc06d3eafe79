package power_test

import (
	"fmt"

	"github.com/cwbudde/algo-lss/catalog"
	"github.com/cwbudde/algo-lss/comm"
	"github.com/cwbudde/algo-lss/power"
)

func ExampleCatalogFFTPower() {
	data := &power.CatalogData{
		Positions: catalog.RandomBox(42, 1000, [3]float64{100, 100, 100}, [3]float64{}),
	}
	cfg := power.CatalogPowerConfig{
		Mesh: power.CatalogMeshConfig{
			BoxSize: [3]float64{100, 100, 100},
			Nmesh:   [3]int{8, 8, 8},
		},
		Ells: []int{0, 2},
	}
	s, err := power.CatalogFFTPower(comm.Self(), data, nil, nil, nil, cfg)
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Printf("modes %d, shot noise %.0f\n", s.TotalModes(), s.ShotNoise)
	// Output:
	// modes 511, shot noise 1000
}

func ExampleSpectrum_Rebin() {
	s := &power.Spectrum{
		Kind:   power.Multipole,
		KEdges: []float64{0, 1, 2, 3, 4},
		Ells:   []int{0},
		K:      []float64{0.5, 1.5, 2.5, 3.5},
		Nmodes: []int64{1, 1, 1, 1},
		Value:  []complex128{1, 2, 3, 4},
	}
	r, err := s.Rebin(2)
	if err != nil {
		fmt.Println(err)
		return
	}
	p0, _ := r.At(0)
	fmt.Printf("edges %v\n", r.KEdges)
	fmt.Printf("P0 %.1f %.1f\n", real(p0[0]), real(p0[1]))
	// Output:
	// edges [0 2 4]
	// P0 1.5 3.5
}

func ExampleFindUniqueEdges() {
	k := []float64{0.1, 0.1000000001, 0.2, 0.3}
	edges, err := power.FindUniqueEdges(k, 1e-6, 0, 1)
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Printf("%.2f\n", edges)
	// Output:
	// [0.10 0.15 0.25 0.30]
}
