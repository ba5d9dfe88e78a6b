package subtractor

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-vecmath"

	"github.com/cwbudde/algo-aec/aec/render"
	"github.com/cwbudde/algo-aec/aec/spectral"
)

// AdaptiveFIRFilter is a partitioned frequency-domain FIR filter. Each
// partition covers one 64-sample segment of the impulse response; filtering
// and adaptation run as complex multiply-accumulates against the render
// history's partitions of matching age.
//
// The active partition count can differ from the allocated maximum: a
// shorter filter converges faster, a longer one models more echo tail.
// Non-forced size changes ramp over a configured number of blocks.
type AdaptiveFIRFilter struct {
	fft *spectral.FFT

	h             []spectral.FFTData // allocated partitions, h[0] newest
	partitions    int                // active partition count
	maxPartitions int

	oldPartitions      int
	targetPartitions   int
	sizeChangeCounter  int
	sizeChangeDuration int

	// Round-robin index of the partition constrained on the next Adapt.
	constrainIndex int

	scratchTime []float64
	scratchFFT  *spectral.FFTData
}

// NewAdaptiveFIRFilter creates a filter with maxPartitions allocated and
// initialPartitions active. Non-forced size changes ramp linearly over
// sizeChangeDurationBlocks.
func NewAdaptiveFIRFilter(maxPartitions, initialPartitions, sizeChangeDurationBlocks int) (*AdaptiveFIRFilter, error) {
	if maxPartitions < 1 || initialPartitions < 1 {
		return nil, fmt.Errorf("%w: max %d, initial %d",
			ErrInvalidFilterLength, maxPartitions, initialPartitions)
	}

	if initialPartitions > maxPartitions {
		return nil, fmt.Errorf("%w: initial %d exceeds max %d",
			ErrInvalidFilterLength, initialPartitions, maxPartitions)
	}

	if sizeChangeDurationBlocks < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidChangeDuration, sizeChangeDurationBlocks)
	}

	fft, err := spectral.NewFFT()
	if err != nil {
		return nil, fmt.Errorf("subtractor: %w", err)
	}

	h := make([]spectral.FFTData, maxPartitions)
	for i := range h {
		h[i] = *spectral.NewFFTData()
	}

	return &AdaptiveFIRFilter{
		fft:                fft,
		h:                  h,
		partitions:         initialPartitions,
		maxPartitions:      maxPartitions,
		oldPartitions:      initialPartitions,
		targetPartitions:   initialPartitions,
		sizeChangeDuration: sizeChangeDurationBlocks,
		scratchTime:        make([]float64, spectral.FFTLength),
		scratchFFT:         spectral.NewFFTData(),
	}, nil
}

// Filter computes the frequency-domain echo estimate for the current render
// history: s[k] = sum over active partitions of X_j[k] * H_j[k].
func (f *AdaptiveFIRFilter) Filter(buf render.Buffer, s *spectral.FFTData) {
	s.Clear()

	for j := 0; j < f.partitions; j++ {
		x := buf.Partition(j)
		hj := &f.h[j]
		for k := 0; k < spectral.NumBins; k++ {
			s.Re[k] += x.Re[k]*hj.Re[k] - x.Im[k]*hj.Im[k]
			s.Im[k] += x.Re[k]*hj.Im[k] + x.Im[k]*hj.Re[k]
		}
	}
}

// Adapt applies the per-bin complex gain g to every active partition and
// constrains one partition per call back to a causal 64-sample segment,
// refreshing the matching segment of impulse when non-nil. The adaptation
// uses the conjugate of the render partitions, so a gain proportional to the
// error spectrum performs a normalized-step update.
func (f *AdaptiveFIRFilter) Adapt(buf render.Buffer, g *spectral.FFTData, impulse []float64) {
	f.updateSize()

	for j := 0; j < f.partitions; j++ {
		x := buf.Partition(j)
		hj := &f.h[j]
		for k := 0; k < spectral.NumBins; k++ {
			hj.Re[k] += x.Re[k]*g.Re[k] + x.Im[k]*g.Im[k]
			hj.Im[k] += x.Re[k]*g.Im[k] - x.Im[k]*g.Re[k]
		}
	}

	f.constrain(impulse)
}

// constrain forces the partition at constrainIndex back to a time-limited
// kernel: its impulse-response segment lives in the lower half of the
// double-length buffer and the upper half is zeroed. Without this the
// partitions drift into circular-convolution aliasing as they adapt.
func (f *AdaptiveFIRFilter) constrain(impulse []float64) {
	p := f.constrainIndex
	f.fft.Inverse(&f.h[p], f.scratchTime)

	clear(f.scratchTime[spectral.BlockSize:])

	if impulse != nil {
		copy(impulse[p*spectral.BlockSize:(p+1)*spectral.BlockSize],
			f.scratchTime[:spectral.BlockSize])
	}

	f.fft.TimeForward(f.scratchTime, &f.h[p])

	f.constrainIndex++
	if f.constrainIndex >= f.partitions {
		f.constrainIndex = 0
	}
}

// SetSizePartitions changes the active partition count. A forced change
// takes effect immediately; otherwise the count ramps to size over the
// configured duration as Adapt is called. size must not exceed the allocated
// maximum.
func (f *AdaptiveFIRFilter) SetSizePartitions(size int, force bool) {
	if size < 1 || size > f.maxPartitions {
		panic(fmt.Sprintf("subtractor: partition count %d out of range [1, %d]",
			size, f.maxPartitions))
	}

	if force {
		f.shrinkTo(size)
		f.partitions = size
		f.oldPartitions = size
		f.targetPartitions = size
		f.sizeChangeCounter = 0
		if f.constrainIndex >= size {
			f.constrainIndex = 0
		}
		return
	}

	f.oldPartitions = f.partitions
	f.targetPartitions = size
	f.sizeChangeCounter = f.sizeChangeDuration
}

// updateSize advances a pending ramped size change by one block.
func (f *AdaptiveFIRFilter) updateSize() {
	if f.sizeChangeCounter == 0 {
		return
	}

	f.sizeChangeCounter--

	var size int
	if f.sizeChangeCounter > 0 {
		progress := 1 - float64(f.sizeChangeCounter)/float64(f.sizeChangeDuration)
		size = f.oldPartitions +
			int(math.Round(progress*float64(f.targetPartitions-f.oldPartitions)))
	} else {
		size = f.targetPartitions
	}

	f.shrinkTo(size)
	f.partitions = size
	if f.constrainIndex >= size {
		f.constrainIndex = 0
	}
}

// shrinkTo zeroes the partitions dropped by a shrink so that a later regrow
// never exposes stale energy.
func (f *AdaptiveFIRFilter) shrinkTo(size int) {
	for j := size; j < f.partitions; j++ {
		f.h[j].Clear()
	}
}

// HandleEchoPathChange hard-resets all coefficients to zero.
func (f *AdaptiveFIRFilter) HandleEchoPathChange() {
	for j := range f.h {
		f.h[j].Clear()
	}
	f.constrainIndex = 0
}

// ScaleFilter scales every active partition by factor.
func (f *AdaptiveFIRFilter) ScaleFilter(factor float64) {
	for j := 0; j < f.partitions; j++ {
		vecmath.ScaleBlockInPlace(f.h[j].Re, factor)
		vecmath.ScaleBlockInPlace(f.h[j].Im, factor)
	}
}

// SetFilter copies coefficients from src into the active partitions. Excess
// active partitions are zeroed; excess source partitions are ignored.
func (f *AdaptiveFIRFilter) SetFilter(src []spectral.FFTData) {
	n := min(f.partitions, len(src))
	for j := 0; j < n; j++ {
		f.h[j].Assign(&src[j])
	}
	for j := n; j < f.partitions; j++ {
		f.h[j].Clear()
	}
}

// GetFilter returns the active partitions. The slice aliases the filter's
// state and must be treated as read-only.
func (f *AdaptiveFIRFilter) GetFilter() []spectral.FFTData {
	return f.h[:f.partitions]
}

// ComputeFrequencyResponse writes the squared magnitude of every allocated
// partition into h2; entries past the active count are zeroed. h2 must hold
// MaxPartitions slices of spectral.NumBins values.
func (f *AdaptiveFIRFilter) ComputeFrequencyResponse(h2 [][]float64) {
	for j := 0; j < f.partitions; j++ {
		vecmath.Power(h2[j], f.h[j].Re, f.h[j].Im)
	}
	for j := f.partitions; j < len(h2); j++ {
		clear(h2[j])
	}
}

// SizePartitions returns the active partition count.
func (f *AdaptiveFIRFilter) SizePartitions() int {
	return f.partitions
}

// MaxPartitions returns the allocated partition count.
func (f *AdaptiveFIRFilter) MaxPartitions() int {
	return f.maxPartitions
}
