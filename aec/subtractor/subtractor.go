package subtractor

import (
	"fmt"

	"github.com/cwbudde/algo-vecmath"

	"github.com/cwbudde/algo-aec/aec/render"
	"github.com/cwbudde/algo-aec/aec/spectral"
)

// Sample range of the downstream 16-bit pipeline.
const (
	sampleMin = -32768.0
	sampleMax = 32767.0
)

// poorShadowFilterLimit is the number of consecutive blocks the shadow
// filter may underperform the main filter before being reseeded from it.
const poorShadowFilterLimit = 5

// Subtractor orchestrates the main and shadow adaptive filters, their update
// gains and the divergence guard for a set of capture channels, producing
// the per-block linear-echo residuals.
type Subtractor struct {
	cfg    Config
	fft    *spectral.FFT
	dumper DataDumper

	numCaptureChannels int

	mainFilter   []*AdaptiveFIRFilter
	shadowFilter []*AdaptiveFIRFilter
	gMain        []*MainFilterUpdateGain
	gShadow      []*ShadowFilterUpdateGain

	misadjustment     []misadjustmentEstimator
	poorShadowCounter []int

	// Per-channel main-filter response history, used only for the ERL.
	frequencyResponse [][][]float64
	impulseResponse   [][]float64

	// Per-block scratch, shared across channels.
	x2Main     []float64
	x2Shadow   []float64
	erl        []float64
	est        *spectral.FFTData
	g          *spectral.FFTData
	eShadowFFT *spectral.FFTData
	ifftBuf    []float64
}

// Option configures a [Subtractor].
type Option func(*Subtractor)

// WithDataDumper attaches a diagnostic sink. Channel 0's intermediate
// signals are forwarded to it each block.
func WithDataDumper(d DataDumper) Option {
	return func(s *Subtractor) {
		if d != nil {
			s.dumper = d
		}
	}
}

// NewSubtractor creates a subtractor for numCaptureChannels capture channels.
func NewSubtractor(cfg Config, numCaptureChannels int, opts ...Option) (*Subtractor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if numCaptureChannels < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidChannelCount, numCaptureChannels)
	}

	fft, err := spectral.NewFFT()
	if err != nil {
		return nil, fmt.Errorf("subtractor: %w", err)
	}

	s := &Subtractor{
		cfg:                cfg,
		fft:                fft,
		dumper:             NopDumper,
		numCaptureChannels: numCaptureChannels,
		mainFilter:         make([]*AdaptiveFIRFilter, numCaptureChannels),
		shadowFilter:       make([]*AdaptiveFIRFilter, numCaptureChannels),
		gMain:              make([]*MainFilterUpdateGain, numCaptureChannels),
		gShadow:            make([]*ShadowFilterUpdateGain, numCaptureChannels),
		misadjustment:      make([]misadjustmentEstimator, numCaptureChannels),
		poorShadowCounter:  make([]int, numCaptureChannels),
		frequencyResponse:  make([][][]float64, numCaptureChannels),
		impulseResponse:    make([][]float64, numCaptureChannels),
		x2Main:             make([]float64, spectral.NumBins),
		x2Shadow:           make([]float64, spectral.NumBins),
		erl:                make([]float64, spectral.NumBins),
		est:                spectral.NewFFTData(),
		g:                  spectral.NewFFTData(),
		eShadowFFT:         spectral.NewFFTData(),
		ifftBuf:            make([]float64, spectral.FFTLength),
	}

	mainMax := max(cfg.Main.LengthBlocks, cfg.MainInitial.LengthBlocks)
	shadowMax := max(cfg.Shadow.LengthBlocks, cfg.ShadowInitial.LengthBlocks)

	for ch := 0; ch < numCaptureChannels; ch++ {
		s.mainFilter[ch], err = NewAdaptiveFIRFilter(
			mainMax, cfg.MainInitial.LengthBlocks, cfg.ConfigChangeDurationBlocks)
		if err != nil {
			return nil, err
		}

		s.shadowFilter[ch], err = NewAdaptiveFIRFilter(
			shadowMax, cfg.ShadowInitial.LengthBlocks, cfg.ConfigChangeDurationBlocks)
		if err != nil {
			return nil, err
		}

		s.gMain[ch], err = NewMainFilterUpdateGain(cfg.MainInitial, cfg.ConfigChangeDurationBlocks)
		if err != nil {
			return nil, err
		}

		s.gShadow[ch], err = NewShadowFilterUpdateGain(cfg.ShadowInitial, cfg.ConfigChangeDurationBlocks)
		if err != nil {
			return nil, err
		}

		s.frequencyResponse[ch] = make([][]float64, mainMax)
		for j := range s.frequencyResponse[ch] {
			s.frequencyResponse[ch][j] = make([]float64, spectral.NumBins)
		}

		s.impulseResponse[ch] = make([]float64, mainMax*spectral.BlockSize)
	}

	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	return s, nil
}

// HandleEchoPathChange reacts to a believed change of the physical echo
// path. A delay change invalidates all accumulated coefficients: both
// filters and gains are fully reset and forced back to their initial
// configuration. A gain-only change reseeds just the main gain's error
// state, since the path shape is unchanged but its level is not.
func (s *Subtractor) HandleEchoPathChange(v EchoPathVariability) {
	if v.DelayChange != DelayAdjustmentNone {
		for ch := 0; ch < s.numCaptureChannels; ch++ {
			s.mainFilter[ch].HandleEchoPathChange()
			s.shadowFilter[ch].HandleEchoPathChange()
			s.gMain[ch].HandleEchoPathChange(v)
			s.gShadow[ch].HandleEchoPathChange()
			s.gMain[ch].SetConfig(s.cfg.MainInitial, true)
			s.gShadow[ch].SetConfig(s.cfg.ShadowInitial, true)
			s.mainFilter[ch].SetSizePartitions(s.cfg.MainInitial.LengthBlocks, true)
			s.shadowFilter[ch].SetSizePartitions(s.cfg.ShadowInitial.LengthBlocks, true)
			s.misadjustment[ch].reset()
			clear(s.impulseResponse[ch])
			for j := range s.frequencyResponse[ch] {
				clear(s.frequencyResponse[ch][j])
			}
		}
		return
	}

	if v.GainChange {
		for ch := 0; ch < s.numCaptureChannels; ch++ {
			s.gMain[ch].HandleEchoPathChange(v)
		}
	}
}

// ExitInitialState switches filters and gains from the initial
// fast-convergence parameter sets to the steady-state ones, ramping over the
// configured duration.
func (s *Subtractor) ExitInitialState() {
	for ch := 0; ch < s.numCaptureChannels; ch++ {
		s.gMain[ch].SetConfig(s.cfg.Main, false)
		s.gShadow[ch].SetConfig(s.cfg.Shadow, false)
		s.mainFilter[ch].SetSizePartitions(s.cfg.Main.LengthBlocks, false)
		s.shadowFilter[ch].SetSizePartitions(s.cfg.Shadow.LengthBlocks, false)
	}
}

// Process runs one block for every capture channel. capture holds one
// 64-sample block per channel; outputs receives the per-channel results and
// must hold one Output per channel. analyzer and state may be nil.
func (s *Subtractor) Process(buf render.Buffer, capture [][]float64,
	analyzer render.Analyzer, state CaptureState, outputs []*Output) {
	if len(capture) != s.numCaptureChannels || len(outputs) != s.numCaptureChannels {
		panic(fmt.Sprintf("subtractor: Process with %d capture / %d output channels, want %d",
			len(capture), len(outputs), s.numCaptureChannels))
	}

	saturated := state != nil && state.SaturatedCapture()

	// Shared render power sums. When both filters run the same partition
	// count one sum serves both; otherwise the smaller sum is derived as
	// a sub-sum of the larger in a single pass.
	mainSize := s.mainFilter[0].SizePartitions()
	shadowSize := s.shadowFilter[0].SizePartitions()

	x2Main, x2Shadow := s.x2Main, s.x2Shadow
	switch {
	case mainSize == shadowSize:
		buf.SpectralSum(mainSize, x2Main)
		x2Shadow = x2Main
	case mainSize > shadowSize:
		buf.SpectralSums(shadowSize, mainSize, x2Shadow, x2Main)
	default:
		buf.SpectralSums(mainSize, shadowSize, x2Main, x2Shadow)
	}

	for ch := 0; ch < s.numCaptureChannels; ch++ {
		y := capture[ch]
		if len(y) != spectral.BlockSize {
			panic(fmt.Sprintf("subtractor: capture channel %d block length %d, want %d",
				ch, len(y), spectral.BlockSize))
		}

		out := outputs[ch]

		// Filter and subtract.
		s.mainFilter[ch].Filter(buf, s.est)
		s.predictionError(y, out.EMain, out.SMain)

		s.shadowFilter[ch].Filter(buf, s.est)
		s.predictionError(y, out.EShadow, out.SShadow)

		out.computeMetrics(y)

		// Divergence guard. A correction replaces this block's gain-based
		// adaptation; doing both would double-correct.
		mainAdjusted := false
		s.misadjustment[ch].update(out)
		if s.misadjustment[ch].adjustmentNeeded() {
			scale := s.misadjustment[ch].misadjustment()
			s.mainFilter[ch].ScaleFilter(scale)
			vecmath.ScaleBlockInPlace(s.impulseResponse[ch], scale)
			scaleFilterOutput(y, scale, out.EMain, out.SMain)
			s.misadjustment[ch].reset()
			mainAdjusted = true
		}

		// Residual spectra.
		s.fft.Forward(out.EMain, spectral.WindowHann, &out.EMainSpectrum)
		s.fft.Forward(out.EShadow, spectral.WindowHann, s.eShadowFFT)
		out.EMainSpectrum.Spectrum(out.E2MainSpectrum)
		s.eShadowFFT.Spectrum(out.E2ShadowSpectrum)

		// Main filter adaptation.
		if !mainAdjusted {
			ComputeERL(s.erl, s.frequencyResponse[ch])
			s.gMain[ch].Compute(x2Main, analyzer, out, s.erl,
				s.mainFilter[ch].SizePartitions(), saturated, s.g)
		} else {
			s.g.Clear()
		}

		s.mainFilter[ch].Adapt(buf, s.g, s.impulseResponse[ch])
		s.mainFilter[ch].ComputeFrequencyResponse(s.frequencyResponse[ch])

		if ch == 0 {
			s.dumper.DumpRaw("aec_subtractor_G_main_re", s.g.Re)
			s.dumper.DumpRaw("aec_subtractor_G_main_im", s.g.Im)
		}

		// Shadow competition: reseed a persistently worse shadow filter
		// from the main filter and bootstrap its gain from the main
		// error spectrum.
		if out.E2Main < out.E2Shadow {
			s.poorShadowCounter[ch]++
		} else {
			s.poorShadowCounter[ch] = 0
		}

		if s.poorShadowCounter[ch] < poorShadowFilterLimit {
			s.gShadow[ch].Compute(x2Shadow, analyzer, s.eShadowFFT,
				s.shadowFilter[ch].SizePartitions(), saturated, s.g)
		} else {
			s.poorShadowCounter[ch] = 0
			s.shadowFilter[ch].SetFilter(s.mainFilter[ch].GetFilter())
			s.gShadow[ch].Compute(x2Shadow, analyzer, &out.EMainSpectrum,
				s.shadowFilter[ch].SizePartitions(), saturated, s.g)
		}

		s.shadowFilter[ch].Adapt(buf, s.g, nil)

		if ch == 0 {
			s.dumper.DumpRaw("aec_subtractor_G_shadow_re", s.g.Re)
			s.dumper.DumpRaw("aec_subtractor_G_shadow_im", s.g.Im)
			s.misadjustment[ch].dump(s.dumper)
		}

		clampBlock(out.EMain)

		if ch == 0 {
			s.dumper.DumpRaw("aec_main_filter_output", out.EMain)
			s.dumper.DumpRaw("aec_shadow_filter_output", out.EShadow)
		}
	}
}

// ImpulseResponse returns the main filter's time-domain impulse-response
// estimate for the channel. The slice aliases internal state and must be
// treated as read-only.
func (s *Subtractor) ImpulseResponse(ch int) []float64 {
	return s.impulseResponse[ch]
}

// FrequencyResponse returns the main filter's per-partition squared-magnitude
// response for the channel. The slices alias internal state and must be
// treated as read-only.
func (s *Subtractor) FrequencyResponse(ch int) [][]float64 {
	return s.frequencyResponse[ch]
}

// NumCaptureChannels returns the configured channel count.
func (s *Subtractor) NumCaptureChannels() int {
	return s.numCaptureChannels
}

// predictionError inverts the echo estimate in s.est and subtracts its valid
// (upper) half from the capture block y, filling e and the retained echo
// estimate echoEstimate.
func (s *Subtractor) predictionError(y, e, echoEstimate []float64) {
	s.fft.Inverse(s.est, s.ifftBuf)

	valid := s.ifftBuf[spectral.BlockSize:]
	copy(echoEstimate, valid)

	for i := range e {
		e[i] = y[i] - valid[i]
	}
}

// scaleFilterOutput rescales an already-computed echo estimate and rederives
// the residual so that e = y - s holds after a divergence correction.
func scaleFilterOutput(y []float64, factor float64, e, echoEstimate []float64) {
	vecmath.ScaleBlockInPlace(echoEstimate, factor)
	for i := range e {
		e[i] = y[i] - echoEstimate[i]
	}
}

// clampBlock limits every sample to the valid 16-bit range expected
// downstream.
func clampBlock(e []float64) {
	for i, v := range e {
		if v < sampleMin {
			e[i] = sampleMin
		} else if v > sampleMax {
			e[i] = sampleMax
		}
	}
}
