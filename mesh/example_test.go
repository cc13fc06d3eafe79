package mesh_test

import (
	"fmt"

	"github.com/cwbudde/algo-lss/comm"
	"github.com/cwbudde/algo-lss/mesh"
)

func ExampleMesh_Paint() {
	m, err := mesh.NewCubic(comm.Self(), mesh.KindReal, 8, mesh.CubicBox(100, [3]float64{}))
	if err != nil {
		fmt.Println(err)
		return
	}
	pos := [][3]float64{{10, 20, 30}, {40, 50, 60}}
	weights := []float64{1, 2}
	if err := m.Paint(pos, weights, mesh.ResamplerCIC, 1, false); err != nil {
		fmt.Println(err)
		return
	}
	fmt.Printf("total mass %.0f\n", m.SumGlobal())
	// Output:
	// total mass 3
}
