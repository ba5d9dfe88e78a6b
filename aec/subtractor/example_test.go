package subtractor_test

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-aec/aec/render"
	"github.com/cwbudde/algo-aec/aec/spectral"
	"github.com/cwbudde/algo-aec/aec/subtractor"
)

// ExampleSubtractor cancels a simple synthetic echo: the capture signal is
// an attenuated copy of the rendered signal.
func ExampleSubtractor() {
	cfg := subtractor.DefaultConfig()

	sub, err := subtractor.NewSubtractor(cfg, 1)
	if err != nil {
		panic(err)
	}

	buf, err := render.NewHistory(cfg.Main.LengthBlocks)
	if err != nil {
		panic(err)
	}

	out := subtractor.NewOutput()

	x := make([]float64, spectral.BlockSize)
	y := make([]float64, spectral.BlockSize)
	phase := 0.0
	for block := 0; block < 100; block++ {
		for i := range x {
			x[i] = 8000 * math.Sin(phase)
			y[i] = 0.25 * x[i]
			phase += 0.11
		}

		buf.Insert(x)
		sub.Process(buf, [][]float64{y}, nil, nil, []*subtractor.Output{out})
	}

	fmt.Println("residual samples per block:", len(out.EMain))
	fmt.Println("capture channels:", sub.NumCaptureChannels())
	// Output:
	// residual samples per block: 64
	// capture channels: 1
}
