package render

import (
	"errors"
	"fmt"

	"github.com/cwbudde/algo-vecmath"

	"github.com/cwbudde/algo-aec/aec/spectral"
)

// Errors specific to render history construction.
var (
	ErrTooFewPartitions = errors.New("render: history needs at least one partition")
)

// Buffer is the render history provider consumed by the subtractor. Partitions
// are addressed by age: age 0 is the most recently inserted block, age 1 the
// one before it, and so on. Implementations guarantee at least MaxPartitions
// addressable partitions; partitions older than anything inserted read as
// silence.
type Buffer interface {
	// Partition returns the frequency-domain data of the block inserted
	// age blocks ago. The returned data is read-only and valid until the
	// next insertion.
	Partition(age int) *spectral.FFTData

	// SpectralSum writes the per-bin power summed over the n newest
	// partitions into dst. dst must have length spectral.NumBins.
	SpectralSum(n int, dst []float64)

	// SpectralSums fills both sums in a single pass over the history:
	// dstSmall receives the power over the nSmall newest partitions,
	// dstLarge over the nLarge newest. Requires nSmall <= nLarge.
	SpectralSums(nSmall, nLarge int, dstSmall, dstLarge []float64)

	// MaxPartitions returns the number of addressable partitions.
	MaxPartitions() int
}

// History is a concrete render [Buffer]: a ring of frequency-domain
// partitions fed with time-domain render blocks. Each insertion transforms
// the two most recent blocks in overlap-save framing and caches the
// partition's power spectrum.
type History struct {
	fft     *spectral.FFT
	parts   []spectral.FFTData
	spectra [][]float64
	prev    []float64
	pos     int // ring index of the newest partition
	max     int
}

// NewHistory creates a render history holding maxPartitions partitions,
// initially silent.
func NewHistory(maxPartitions int) (*History, error) {
	if maxPartitions < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrTooFewPartitions, maxPartitions)
	}

	fft, err := spectral.NewFFT()
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}

	parts := make([]spectral.FFTData, maxPartitions)
	spectra := make([][]float64, maxPartitions)
	for i := range parts {
		parts[i] = *spectral.NewFFTData()
		spectra[i] = make([]float64, spectral.NumBins)
	}

	return &History{
		fft:     fft,
		parts:   parts,
		spectra: spectra,
		prev:    make([]float64, spectral.BlockSize),
		pos:     0,
		max:     maxPartitions,
	}, nil
}

// Insert adds one render block to the history, evicting the oldest
// partition. block must have length spectral.BlockSize.
func (h *History) Insert(block []float64) {
	if len(block) != spectral.BlockSize {
		panic(fmt.Sprintf("render: Insert block length %d, want %d",
			len(block), spectral.BlockSize))
	}

	h.pos--
	if h.pos < 0 {
		h.pos = h.max - 1
	}

	part := &h.parts[h.pos]
	h.fft.PaddedForward(h.prev, block, part)
	part.Spectrum(h.spectra[h.pos])
	copy(h.prev, block)
}

// Partition implements [Buffer].
func (h *History) Partition(age int) *spectral.FFTData {
	return &h.parts[h.index(age)]
}

// SpectralSum implements [Buffer].
func (h *History) SpectralSum(n int, dst []float64) {
	h.checkRange(n)
	clear(dst)

	for age := 0; age < n; age++ {
		vecmath.AddBlockInPlace(dst, h.spectra[h.index(age)])
	}
}

// SpectralSums implements [Buffer]. The large sum extends the small one, so
// the history is walked exactly once.
func (h *History) SpectralSums(nSmall, nLarge int, dstSmall, dstLarge []float64) {
	if nSmall > nLarge {
		panic(fmt.Sprintf("render: SpectralSums nSmall %d > nLarge %d", nSmall, nLarge))
	}
	h.checkRange(nLarge)

	clear(dstLarge)

	for age := 0; age < nLarge; age++ {
		if age == nSmall {
			copy(dstSmall, dstLarge)
		}
		vecmath.AddBlockInPlace(dstLarge, h.spectra[h.index(age)])
	}

	if nSmall == nLarge {
		copy(dstSmall, dstLarge)
	}
}

// MaxPartitions implements [Buffer].
func (h *History) MaxPartitions() int {
	return h.max
}

// Reset clears the history back to silence.
func (h *History) Reset() {
	for i := range h.parts {
		h.parts[i].Clear()
		clear(h.spectra[i])
	}
	clear(h.prev)
	h.pos = 0
}

func (h *History) index(age int) int {
	if age < 0 || age >= h.max {
		panic(fmt.Sprintf("render: partition age %d out of range [0, %d)", age, h.max))
	}
	return (h.pos + age) % h.max
}

func (h *History) checkRange(n int) {
	if n < 0 || n > h.max {
		panic(fmt.Sprintf("render: spectral sum over %d partitions, have %d", n, h.max))
	}
}
