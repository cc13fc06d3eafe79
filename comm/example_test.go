package comm_test

import (
	"fmt"

	"github.com/cwbudde/algo-lss/comm"
)

func ExampleRun() {
	err := comm.Run(3, func(c *comm.Comm) error {
		sum := c.SumFloat64(float64(c.Rank()))
		if c.Rank() == 0 {
			fmt.Printf("ranks %d, sum %.0f\n", c.Size(), sum)
		}
		return nil
	})
	if err != nil {
		fmt.Println(err)
	}
	// Output:
	// ranks 3, sum 3
}
