package spectral

import (
	"github.com/cwbudde/algo-vecmath"
)

// Processing geometry. Every buffer in the engine is sized from these.
const (
	// BlockSize is the number of samples per channel per processing step.
	BlockSize = 64

	// FFTLength is the double-length transform size used for overlap-save.
	FFTLength = 2 * BlockSize

	// NumBins is the number of non-redundant frequency bins (FFTLength/2 + 1).
	NumBins = FFTLength/2 + 1
)

// FFTData holds the spectrum of one zero-padded block as split real and
// imaginary parts over the NumBins non-redundant bins.
type FFTData struct {
	Re []float64
	Im []float64
}

// NewFFTData returns a zeroed FFTData with both parts sized to NumBins.
func NewFFTData() *FFTData {
	return &FFTData{
		Re: make([]float64, NumBins),
		Im: make([]float64, NumBins),
	}
}

// Clear zeroes both parts.
func (d *FFTData) Clear() {
	clear(d.Re)
	clear(d.Im)
}

// Assign copies src into d.
func (d *FFTData) Assign(src *FFTData) {
	copy(d.Re, src.Re)
	copy(d.Im, src.Im)
}

// Spectrum writes the per-bin power |X[k]|^2 into dst.
// dst must have length NumBins.
func (d *FFTData) Spectrum(dst []float64) {
	vecmath.Power(dst, d.Re, d.Im)
}
