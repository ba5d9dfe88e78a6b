package spectral

import (
	"math"
	"math/rand/v2"
	"testing"
)

// makeBlock creates a deterministic pseudo-random block scaled to amp.
func makeBlock(seed uint64, amp float64) []float64 {
	rng := rand.New(rand.NewPCG(seed, 0))
	b := make([]float64, BlockSize)
	for i := range b {
		b[i] = (rng.Float64()*2 - 1) * amp
	}
	return b
}

func TestForwardInverseRoundTrip(t *testing.T) {
	fft, err := NewFFT()
	if err != nil {
		t.Fatalf("NewFFT: %v", err)
	}

	block := makeBlock(1, 1000)
	spec := NewFFTData()
	fft.Forward(block, WindowRectangular, spec)

	out := make([]float64, FFTLength)
	fft.Inverse(spec, out)

	// The block was placed in the upper half; the lower half was zero.
	for i := 0; i < BlockSize; i++ {
		if math.Abs(out[i]) > 1e-6 {
			t.Fatalf("lower half sample %d = %g, want ~0", i, out[i])
		}
		if math.Abs(out[BlockSize+i]-block[i]) > 1e-6 {
			t.Fatalf("upper half sample %d = %g, want %g", i, out[BlockSize+i], block[i])
		}
	}
}

func TestPaddedForwardRoundTrip(t *testing.T) {
	fft, err := NewFFT()
	if err != nil {
		t.Fatalf("NewFFT: %v", err)
	}

	prev := makeBlock(2, 500)
	cur := makeBlock(3, 500)
	spec := NewFFTData()
	fft.PaddedForward(prev, cur, spec)

	out := make([]float64, FFTLength)
	fft.Inverse(spec, out)

	for i := 0; i < BlockSize; i++ {
		if math.Abs(out[i]-prev[i]) > 1e-6 {
			t.Fatalf("prev sample %d = %g, want %g", i, out[i], prev[i])
		}
		if math.Abs(out[BlockSize+i]-cur[i]) > 1e-6 {
			t.Fatalf("cur sample %d = %g, want %g", i, out[BlockSize+i], cur[i])
		}
	}
}

func TestForwardHannWindow(t *testing.T) {
	fft, err := NewFFT()
	if err != nil {
		t.Fatalf("NewFFT: %v", err)
	}

	block := makeBlock(4, 200)
	windowed := make([]float64, BlockSize)
	hann := fft.HannWindow()
	for i := range block {
		windowed[i] = block[i] * hann[i]
	}

	specWin := NewFFTData()
	fft.Forward(block, WindowHann, specWin)

	specRef := NewFFTData()
	fft.Forward(windowed, WindowRectangular, specRef)

	for k := 0; k < NumBins; k++ {
		if math.Abs(specWin.Re[k]-specRef.Re[k]) > 1e-9 ||
			math.Abs(specWin.Im[k]-specRef.Im[k]) > 1e-9 {
			t.Fatalf("bin %d: windowed transform differs from pre-windowed reference", k)
		}
	}
}

func TestHannWindowShape(t *testing.T) {
	fft, err := NewFFT()
	if err != nil {
		t.Fatalf("NewFFT: %v", err)
	}

	hann := fft.HannWindow()
	if len(hann) != BlockSize {
		t.Fatalf("window length = %d, want %d", len(hann), BlockSize)
	}

	if hann[0] != 0 {
		t.Errorf("hann[0] = %g, want 0", hann[0])
	}

	// Periodic form peaks at the midpoint with value 1.
	if math.Abs(hann[BlockSize/2]-1) > 1e-12 {
		t.Errorf("hann[%d] = %g, want 1", BlockSize/2, hann[BlockSize/2])
	}

	for i, v := range hann {
		if v < 0 || v > 1 {
			t.Fatalf("hann[%d] = %g outside [0, 1]", i, v)
		}
	}
}

func TestSpectrumMatchesDirectPower(t *testing.T) {
	fft, err := NewFFT()
	if err != nil {
		t.Fatalf("NewFFT: %v", err)
	}

	spec := NewFFTData()
	fft.Forward(makeBlock(5, 300), WindowRectangular, spec)

	power := make([]float64, NumBins)
	spec.Spectrum(power)

	for k := 0; k < NumBins; k++ {
		want := spec.Re[k]*spec.Re[k] + spec.Im[k]*spec.Im[k]
		if math.Abs(power[k]-want) > 1e-6*math.Max(1, want) {
			t.Fatalf("bin %d power = %g, want %g", k, power[k], want)
		}
	}
}

func TestRealBinsHaveZeroImaginaryPart(t *testing.T) {
	fft, err := NewFFT()
	if err != nil {
		t.Fatalf("NewFFT: %v", err)
	}

	spec := NewFFTData()
	fft.Forward(makeBlock(6, 700), WindowRectangular, spec)

	if spec.Im[0] != 0 {
		t.Errorf("DC bin imaginary part = %g, want 0", spec.Im[0])
	}
	if spec.Im[NumBins-1] != 0 {
		t.Errorf("Nyquist bin imaginary part = %g, want 0", spec.Im[NumBins-1])
	}
}

func TestAssignAndClear(t *testing.T) {
	fft, err := NewFFT()
	if err != nil {
		t.Fatalf("NewFFT: %v", err)
	}

	src := NewFFTData()
	fft.Forward(makeBlock(7, 100), WindowRectangular, src)

	dst := NewFFTData()
	dst.Assign(src)

	for k := 0; k < NumBins; k++ {
		if dst.Re[k] != src.Re[k] || dst.Im[k] != src.Im[k] {
			t.Fatalf("bin %d differs after Assign", k)
		}
	}

	dst.Clear()
	for k := 0; k < NumBins; k++ {
		if dst.Re[k] != 0 || dst.Im[k] != 0 {
			t.Fatalf("bin %d nonzero after Clear", k)
		}
	}
}
