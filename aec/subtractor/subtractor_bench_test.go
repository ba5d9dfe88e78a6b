package subtractor

import (
	"math/rand/v2"
	"testing"

	"github.com/cwbudde/algo-aec/aec/render"
	"github.com/cwbudde/algo-aec/aec/spectral"
	"github.com/cwbudde/algo-aec/internal/testutil"
)

func benchHistory(b *testing.B, maxPartitions int) *render.History {
	b.Helper()

	h, err := render.NewHistory(maxPartitions)
	if err != nil {
		b.Fatalf("NewHistory: %v", err)
	}

	rng := rand.New(rand.NewPCG(41, 0))
	for i := 0; i < maxPartitions; i++ {
		h.Insert(testutil.Noise(rng, 5000, spectral.BlockSize))
	}
	return h
}

func BenchmarkSubtractorProcess(b *testing.B) {
	cfg := DefaultConfig()
	sub, err := NewSubtractor(cfg, 1)
	if err != nil {
		b.Fatalf("NewSubtractor: %v", err)
	}

	buf := benchHistory(b, cfg.Main.LengthBlocks)
	rng := rand.New(rand.NewPCG(42, 0))
	capture := [][]float64{testutil.Noise(rng, 3000, spectral.BlockSize)}
	outputs := []*Output{NewOutput()}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		sub.Process(buf, capture, nil, nil, outputs)
	}
}

func BenchmarkAdaptiveFIRFilterFilter(b *testing.B) {
	f, err := NewAdaptiveFIRFilter(13, 13, 250)
	if err != nil {
		b.Fatalf("NewAdaptiveFIRFilter: %v", err)
	}
	buf := benchHistory(b, 13)
	dst := spectral.NewFFTData()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		f.Filter(buf, dst)
	}
}

func BenchmarkAdaptiveFIRFilterAdapt(b *testing.B) {
	f, err := NewAdaptiveFIRFilter(13, 13, 250)
	if err != nil {
		b.Fatalf("NewAdaptiveFIRFilter: %v", err)
	}
	buf := benchHistory(b, 13)

	g := spectral.NewFFTData()
	for k := 0; k < spectral.NumBins; k++ {
		g.Re[k] = 1e-9
		g.Im[k] = -1e-9
	}
	impulse := make([]float64, 13*spectral.BlockSize)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		f.Adapt(buf, g, impulse)
	}
}
