package render

import (
	"github.com/cwbudde/algo-vecmath"

	"github.com/cwbudde/algo-aec/aec/spectral"
)

// Analyzer supplies render-signal statistics that modulate filter adaptation.
// A nil Analyzer is treated as a well-excited broadband render signal.
type Analyzer interface {
	// PoorSignalExcitation reports whether the render signal currently
	// carries too little energy to adapt on.
	PoorSignalExcitation() bool

	// MaskRegionsAroundNarrowBands zeroes the per-bin step sizes in mu
	// around any detected narrow-band render content, so the filters do
	// not adapt on tonal excitation that cannot identify the echo path.
	MaskRegionsAroundNarrowBands(mu []float64)
}

const (
	// Mean per-bin render power below which excitation is considered poor.
	excitationFloor = 1000

	// Factor by which a bin must dominate the rest of the spectrum to be
	// considered narrow-band.
	narrowBandDominance = 30

	// Consecutive blocks a dominant bin must persist before masking.
	narrowBandStreak = 10
)

// SignalAnalyzer is a concrete [Analyzer] that tracks a persistent dominant
// spectral peak in the render signal. It must be fed once per block via
// Update, after the block has been inserted into the render history.
type SignalAnalyzer struct {
	spectrum   []float64
	meanPower  float64
	candidate  int
	streak     int
	narrowBand int // dominant bin, or -1
}

// NewSignalAnalyzer creates an analyzer with no detected narrow band.
func NewSignalAnalyzer() *SignalAnalyzer {
	return &SignalAnalyzer{
		spectrum:   make([]float64, spectral.NumBins),
		candidate:  -1,
		narrowBand: -1,
	}
}

// Update analyzes the newest render partition in b.
func (a *SignalAnalyzer) Update(b Buffer) {
	b.Partition(0).Spectrum(a.spectrum)

	total := vecmath.Sum(a.spectrum)
	a.meanPower = total / spectral.NumBins

	// Find the peak bin, excluding the DC and Nyquist edges where a
	// one-sided neighborhood would make dominance ill-defined.
	peak := 1
	for k := 2; k < spectral.NumBins-1; k++ {
		if a.spectrum[k] > a.spectrum[peak] {
			peak = k
		}
	}

	// Compare the peak and its immediate neighbors against the mean of
	// the remaining bins.
	neighborhood := a.spectrum[peak-1] + a.spectrum[peak] + a.spectrum[peak+1]
	rest := (total - neighborhood) / (spectral.NumBins - 3)

	dominant := a.spectrum[peak] > narrowBandDominance*rest && rest >= 0

	switch {
	case !dominant:
		a.candidate = -1
		a.streak = 0
	case peak == a.candidate:
		a.streak++
	default:
		a.candidate = peak
		a.streak = 1
	}

	if a.candidate >= 0 && a.streak >= narrowBandStreak {
		a.narrowBand = a.candidate
	} else {
		a.narrowBand = -1
	}
}

// PoorSignalExcitation implements [Analyzer].
func (a *SignalAnalyzer) PoorSignalExcitation() bool {
	return a.meanPower < excitationFloor
}

// MaskRegionsAroundNarrowBands implements [Analyzer].
func (a *SignalAnalyzer) MaskRegionsAroundNarrowBands(mu []float64) {
	k := a.narrowBand
	if k < 0 {
		return
	}

	for i := max(k-1, 0); i <= min(k+1, len(mu)-1); i++ {
		mu[i] = 0
	}
}

// NarrowBand returns the detected narrow-band bin, or -1 when none is active.
func (a *SignalAnalyzer) NarrowBand() int {
	return a.narrowBand
}

// Reset clears all detection state.
func (a *SignalAnalyzer) Reset() {
	a.meanPower = 0
	a.candidate = -1
	a.streak = 0
	a.narrowBand = -1
}
