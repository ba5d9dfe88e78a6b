package spectral

import (
	"fmt"
	"math"

	algofft "github.com/MeKo-Christian/algo-fft"
)

// Window selects the analysis window applied by [FFT.Forward].
type Window int

const (
	// WindowRectangular applies no tapering.
	WindowRectangular Window = iota

	// WindowHann applies a periodic Hann window over the block.
	WindowHann
)

// FFT performs the fixed-length transforms used by the engine. All scratch
// memory is allocated at construction; the per-block methods do not allocate.
//
// The inverse transform is normalized, so Inverse(Forward(x)) reproduces x.
type FFT struct {
	plan *algofft.Plan[complex128]
	buf  []complex128
	freq []complex128
	hann []float64
}

// NewFFT creates an FFT helper for the engine's fixed geometry.
func NewFFT() (*FFT, error) {
	plan, err := algofft.NewPlan64(FFTLength)
	if err != nil {
		return nil, fmt.Errorf("spectral: failed to create FFT plan: %w", err)
	}

	// Periodic Hann form, matching FFT framing.
	hann := make([]float64, BlockSize)
	for i := range hann {
		hann[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/BlockSize))
	}

	return &FFT{
		plan: plan,
		buf:  make([]complex128, FFTLength),
		freq: make([]complex128, FFTLength),
		hann: hann,
	}, nil
}

// Forward transforms one zero-padded block into dst. The block is placed in
// the upper half of the double-length time buffer (overlap-save framing),
// optionally windowed. block must have length BlockSize.
func (f *FFT) Forward(block []float64, w Window, dst *FFTData) {
	if len(block) != BlockSize {
		panic(fmt.Sprintf("spectral: Forward block length %d, want %d", len(block), BlockSize))
	}

	clear(f.buf[:BlockSize])

	switch w {
	case WindowHann:
		for i, v := range block {
			f.buf[BlockSize+i] = complex(v*f.hann[i], 0)
		}
	default:
		for i, v := range block {
			f.buf[BlockSize+i] = complex(v, 0)
		}
	}

	f.forwardInto(dst)
}

// PaddedForward transforms two consecutive blocks [prev|cur] into dst. This
// is the framing used for render history partitions, where prev supplies the
// overlap-save history half. Both blocks must have length BlockSize.
func (f *FFT) PaddedForward(prev, cur []float64, dst *FFTData) {
	if len(prev) != BlockSize || len(cur) != BlockSize {
		panic(fmt.Sprintf("spectral: PaddedForward block lengths %d/%d, want %d",
			len(prev), len(cur), BlockSize))
	}

	for i, v := range prev {
		f.buf[i] = complex(v, 0)
	}

	for i, v := range cur {
		f.buf[BlockSize+i] = complex(v, 0)
	}

	f.forwardInto(dst)
}

// TimeForward transforms a full FFTLength time buffer into dst without
// repositioning or windowing. Used to re-transform a constrained filter
// partition. buf must have length FFTLength.
func (f *FFT) TimeForward(buf []float64, dst *FFTData) {
	if len(buf) != FFTLength {
		panic(fmt.Sprintf("spectral: TimeForward buffer length %d, want %d", len(buf), FFTLength))
	}

	for i, v := range buf {
		f.buf[i] = complex(v, 0)
	}

	f.forwardInto(dst)
}

// Inverse transforms src back to the time domain, writing the full
// FFTLength-sample result into dst. The transform is normalized.
func (f *FFT) Inverse(src *FFTData, dst []float64) {
	if len(dst) != FFTLength {
		panic(fmt.Sprintf("spectral: Inverse output length %d, want %d", len(dst), FFTLength))
	}

	// Rebuild the conjugate-symmetric full spectrum from the stored bins.
	for k := 0; k < NumBins; k++ {
		f.freq[k] = complex(src.Re[k], src.Im[k])
	}

	for k := NumBins; k < FFTLength; k++ {
		f.freq[k] = complex(src.Re[FFTLength-k], -src.Im[FFTLength-k])
	}

	if err := f.plan.Inverse(f.buf, f.freq); err != nil {
		panic(fmt.Sprintf("spectral: inverse FFT failed: %v", err))
	}

	for i := range dst {
		dst[i] = real(f.buf[i])
	}
}

// HannWindow returns the window coefficients used by [WindowHann].
// The returned slice is shared; callers must not modify it.
func (f *FFT) HannWindow() []float64 {
	return f.hann
}

func (f *FFT) forwardInto(dst *FFTData) {
	if err := f.plan.Forward(f.freq, f.buf); err != nil {
		panic(fmt.Sprintf("spectral: forward FFT failed: %v", err))
	}

	for k := 0; k < NumBins; k++ {
		dst.Re[k] = real(f.freq[k])
		dst.Im[k] = imag(f.freq[k])
	}

	// The Nyquist and DC bins of a real signal are purely real; clear any
	// numerical residue so spectra and adaptation see exact zeros there.
	dst.Im[0] = 0
	dst.Im[NumBins-1] = 0
}
