package subtractor

import (
	"github.com/cwbudde/algo-vecmath"
)

// ComputeERL accumulates a per-bin echo-return-loss estimate from a filter's
// frequency response: the per-bin power summed over all partitions. erl must
// have length spectral.NumBins; freqResponse holds one power slice per
// partition.
func ComputeERL(erl []float64, freqResponse [][]float64) {
	clear(erl)
	for _, h2 := range freqResponse {
		vecmath.AddBlockInPlace(erl, h2)
	}
}
