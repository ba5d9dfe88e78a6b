package render

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/cwbudde/algo-aec/aec/spectral"
)

func makeSineBlock(phase *float64, freq, amp float64) []float64 {
	b := make([]float64, spectral.BlockSize)
	for i := range b {
		b[i] = amp * math.Sin(*phase)
		*phase += 2 * math.Pi * freq
	}
	return b
}

func TestAnalyzerDetectsPersistentTone(t *testing.T) {
	h, err := NewHistory(8)
	if err != nil {
		t.Fatalf("NewHistory: %v", err)
	}

	a := NewSignalAnalyzer()

	// A tone at bin 16 of the 128-point transform: freq = 16/128 cycles
	// per sample.
	phase := 0.0
	for i := 0; i < 2*narrowBandStreak; i++ {
		h.Insert(makeSineBlock(&phase, 16.0/128.0, 1000))
		a.Update(h)
	}

	nb := a.NarrowBand()
	if nb < 0 {
		t.Fatal("no narrow band detected for persistent tone")
	}
	if nb < 15 || nb > 17 {
		t.Fatalf("narrow band at bin %d, want ~16", nb)
	}

	mu := make([]float64, spectral.NumBins)
	for i := range mu {
		mu[i] = 1
	}
	a.MaskRegionsAroundNarrowBands(mu)

	for k := nb - 1; k <= nb+1; k++ {
		if mu[k] != 0 {
			t.Errorf("mu[%d] = %g, want 0 (masked)", k, mu[k])
		}
	}
	if mu[nb-2] != 1 || mu[nb+2] != 1 {
		t.Error("mask extends beyond the narrow-band neighborhood")
	}
}

func TestAnalyzerIgnoresBroadbandNoise(t *testing.T) {
	h, err := NewHistory(8)
	if err != nil {
		t.Fatalf("NewHistory: %v", err)
	}

	a := NewSignalAnalyzer()
	rng := rand.New(rand.NewPCG(21, 0))

	for i := 0; i < 3*narrowBandStreak; i++ {
		h.Insert(makeBlock(rng, 2000))
		a.Update(h)
	}

	if a.NarrowBand() >= 0 {
		t.Fatalf("narrow band %d detected in broadband noise", a.NarrowBand())
	}

	if a.PoorSignalExcitation() {
		t.Error("loud broadband noise flagged as poor excitation")
	}

	mu := make([]float64, spectral.NumBins)
	for i := range mu {
		mu[i] = 1
	}
	a.MaskRegionsAroundNarrowBands(mu)
	for k, v := range mu {
		if v != 1 {
			t.Fatalf("mu[%d] modified with no narrow band active", k)
		}
	}
}

func TestAnalyzerFlagsSilenceAsPoorExcitation(t *testing.T) {
	h, err := NewHistory(8)
	if err != nil {
		t.Fatalf("NewHistory: %v", err)
	}

	a := NewSignalAnalyzer()
	silence := make([]float64, spectral.BlockSize)

	for i := 0; i < 5; i++ {
		h.Insert(silence)
		a.Update(h)
	}

	if !a.PoorSignalExcitation() {
		t.Error("silence not flagged as poor excitation")
	}
}

func TestAnalyzerReset(t *testing.T) {
	h, err := NewHistory(8)
	if err != nil {
		t.Fatalf("NewHistory: %v", err)
	}

	a := NewSignalAnalyzer()
	phase := 0.0
	for i := 0; i < 2*narrowBandStreak; i++ {
		h.Insert(makeSineBlock(&phase, 16.0/128.0, 1000))
		a.Update(h)
	}

	if a.NarrowBand() < 0 {
		t.Fatal("precondition failed: no narrow band detected")
	}

	a.Reset()

	if a.NarrowBand() >= 0 {
		t.Error("narrow band survives Reset")
	}
	if !a.PoorSignalExcitation() {
		t.Error("mean power survives Reset")
	}
}
