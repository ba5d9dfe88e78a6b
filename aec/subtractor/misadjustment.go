package subtractor

import (
	"math"

	"github.com/cwbudde/algo-aec/aec/spectral"
)

const (
	// misadjustmentWindowBlocks is the accumulation window length.
	misadjustmentWindowBlocks = 4

	// Accumulated capture energy below this floor yields no update, so
	// near-silence never produces a ratio.
	misadjustmentCaptureFloor = misadjustmentWindowBlocks * 200 * 200 * spectral.BlockSize

	// Accumulated residual energy above this floor marks a divergence
	// spike and arms the overhang.
	misadjustmentDivergenceFloor = misadjustmentWindowBlocks * 7500 * 7500 * spectral.BlockSize

	// misadjustmentOverhang keeps corrections active for this many extra
	// windows after a spike.
	misadjustmentOverhang = 4

	// misadjustmentSmoothing is the one-pole factor toward a new update.
	misadjustmentSmoothing = 0.1

	// Adjustment is applied once the inverse misadjustment exceeds this.
	misadjustmentThreshold = 10
)

// misadjustmentEstimator detects main-filter divergence by accumulating
// residual and capture energies over a fixed window of blocks and tracking
// their smoothed ratio. The overhang counter keeps corrections active for a
// few extra windows after a spike, and the asymmetric smoothing reacts fast
// to improvement but corrects toward worse values only while in recovery,
// preventing oscillation.
type misadjustmentEstimator struct {
	e2Acum       float64
	y2Acum       float64
	blockCounter int

	invMisadjustment float64
	overhang         int

	dumpScratch [1]float64
}

// update accumulates one block and, at each window boundary, refreshes the
// smoothed inverse misadjustment.
func (e *misadjustmentEstimator) update(out *Output) {
	e.e2Acum += out.E2Main
	e.y2Acum += out.Y2

	e.blockCounter++
	if e.blockCounter != misadjustmentWindowBlocks {
		return
	}

	if e.y2Acum > misadjustmentCaptureFloor {
		update := e.e2Acum / e.y2Acum

		if e.e2Acum > misadjustmentDivergenceFloor {
			e.overhang = misadjustmentOverhang
		} else if e.overhang > 0 {
			e.overhang--
		}

		if update < e.invMisadjustment || e.overhang > 0 {
			e.invMisadjustment += misadjustmentSmoothing * (update - e.invMisadjustment)
		}
	}

	e.e2Acum = 0
	e.y2Acum = 0
	e.blockCounter = 0
}

// adjustmentNeeded reports whether the main filter should be scaled down
// this block.
func (e *misadjustmentEstimator) adjustmentNeeded() bool {
	return e.invMisadjustment > misadjustmentThreshold
}

// misadjustment returns the correction scale for the main filter. Only
// half of the estimated mismatch is corrected per application.
func (e *misadjustmentEstimator) misadjustment() float64 {
	return 2 / math.Sqrt(e.invMisadjustment)
}

// reset zeroes all state, including the smoothed value, so the next window
// starts clean after a correction has been applied.
func (e *misadjustmentEstimator) reset() {
	e.e2Acum = 0
	e.y2Acum = 0
	e.blockCounter = 0
	e.invMisadjustment = 0
	e.overhang = 0
}

// dump reports the smoothed inverse misadjustment to the diagnostic sink.
func (e *misadjustmentEstimator) dump(d DataDumper) {
	e.dumpScratch[0] = e.invMisadjustment
	d.DumpRaw("aec_inv_misadjustment_factor", e.dumpScratch[:])
}
