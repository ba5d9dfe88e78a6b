package subtractor

import (
	"github.com/cwbudde/algo-vecmath"

	"github.com/cwbudde/algo-aec/aec/spectral"
)

// Output holds the per-channel, per-block results of the subtraction stage.
// EMain is the residual consumed downstream; the remaining fields feed the
// gain computation, the divergence guard, and later suppression stages.
type Output struct {
	// EMain and EShadow are the time-domain residuals of the two filters.
	EMain   []float64
	EShadow []float64

	// SMain and SShadow are the corresponding time-domain echo estimates.
	SMain   []float64
	SShadow []float64

	// Y2, E2Main and E2Shadow are the block energies of the capture
	// signal and the two residuals.
	Y2       float64
	E2Main   float64
	E2Shadow float64

	// EMainSpectrum is the windowed, zero-padded transform of EMain.
	EMainSpectrum spectral.FFTData

	// E2MainSpectrum and E2ShadowSpectrum are the per-bin residual powers.
	E2MainSpectrum   []float64
	E2ShadowSpectrum []float64
}

// NewOutput returns an Output with all buffers sized for one block.
func NewOutput() *Output {
	return &Output{
		EMain:            make([]float64, spectral.BlockSize),
		EShadow:          make([]float64, spectral.BlockSize),
		SMain:            make([]float64, spectral.BlockSize),
		SShadow:          make([]float64, spectral.BlockSize),
		EMainSpectrum:    *spectral.NewFFTData(),
		E2MainSpectrum:   make([]float64, spectral.NumBins),
		E2ShadowSpectrum: make([]float64, spectral.NumBins),
	}
}

// computeMetrics fills the block energies from the current residuals and the
// capture block y.
func (o *Output) computeMetrics(y []float64) {
	o.Y2 = vecmath.DotProduct(y, y)
	o.E2Main = vecmath.DotProduct(o.EMain, o.EMain)
	o.E2Shadow = vecmath.DotProduct(o.EShadow, o.EShadow)
}
