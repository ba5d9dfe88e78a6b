package subtractor

import (
	"fmt"

	"github.com/cwbudde/algo-aec/aec/render"
	"github.com/cwbudde/algo-aec/aec/spectral"
)

const (
	// hErrorInitial seeds the per-bin filter-error power estimate after
	// construction and after an echo-path change.
	hErrorInitial = 10000.0

	// poorExcitationCounterInitial places the last poor-excitation event
	// far enough in the past that a fresh gain adapts immediately once
	// its call counter allows it.
	poorExcitationCounterInitial = 1000
)

// gainState carries the gating and config-ramp counters shared by both gain
// variants.
type gainState struct {
	callCounter           int
	poorExcitationCounter int
	configChangeCounter   int
	configChangeDuration  int
}

func newGainState(configChangeDurationBlocks int) gainState {
	return gainState{
		poorExcitationCounter: poorExcitationCounterInitial,
		configChangeDuration:  configChangeDurationBlocks,
	}
}

// resetCounters restarts the post-reset warm-up gating.
func (s *gainState) resetCounters() {
	s.callCounter = 0
	s.poorExcitationCounter = poorExcitationCounterInitial
}

// holdGain reports whether this block's gain must be zero: too few blocks
// since the last reset or poor-excitation event for the filter length in
// use, or a saturated capture signal.
func (s *gainState) holdGain(analyzer render.Analyzer, sizePartitions int, saturated bool) bool {
	s.callCounter++

	if analyzer != nil && analyzer.PoorSignalExcitation() {
		s.poorExcitationCounter = 0
	}
	s.poorExcitationCounter++

	return s.poorExcitationCounter < sizePartitions ||
		saturated ||
		s.callCounter <= sizePartitions
}

// beginConfigChange arms the linear ramp for a non-forced config switch.
func (s *gainState) beginConfigChange() {
	s.configChangeCounter = s.configChangeDuration
}

// rampStep advances the ramp and returns the blend weight of the old config
// (1 = all old, 0 = all new) plus whether a ramp is still active.
func (s *gainState) rampStep() (oldWeight float64, active bool) {
	if s.configChangeCounter == 0 {
		return 0, false
	}

	s.configChangeCounter--
	if s.configChangeCounter == 0 {
		return 0, false
	}

	return float64(s.configChangeCounter) / float64(s.configChangeDuration), true
}

func blend(oldValue, newValue, oldWeight float64) float64 {
	return oldValue*oldWeight + newValue*(1-oldWeight)
}

// MainFilterUpdateGain computes the adaptation gain of the main filter. The
// step size is normalized by render power and the per-bin filter-error
// estimate, which decays with every applied update and regrows from the ERL
// at a leakage rate that depends on whether the shadow filter currently
// outperforms the main filter.
type MainFilterUpdateGain struct {
	state gainState

	current   MainFilterConfig
	target    MainFilterConfig
	oldTarget MainFilterConfig

	hError []float64
	mu     []float64
}

// NewMainFilterUpdateGain creates a main-filter gain with the given initial
// configuration.
func NewMainFilterUpdateGain(cfg MainFilterConfig, configChangeDurationBlocks int) (*MainFilterUpdateGain, error) {
	if configChangeDurationBlocks < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidChangeDuration, configChangeDurationBlocks)
	}

	g := &MainFilterUpdateGain{
		state:     newGainState(configChangeDurationBlocks),
		current:   cfg,
		target:    cfg,
		oldTarget: cfg,
		hError:    make([]float64, spectral.NumBins),
		mu:        make([]float64, spectral.NumBins),
	}

	for k := range g.hError {
		g.hError[k] = hErrorInitial
	}

	return g, nil
}

// SetConfig switches the gain's parameter set. When immediate is false the
// switch ramps linearly over the configured duration.
func (g *MainFilterUpdateGain) SetConfig(cfg MainFilterConfig, immediate bool) {
	if immediate {
		g.current = cfg
		g.target = cfg
		g.oldTarget = cfg
		g.state.configChangeCounter = 0
		return
	}

	g.oldTarget = g.current
	g.target = cfg
	g.state.beginConfigChange()
}

// HandleEchoPathChange resets the gain's internal state. A delay change
// performs a full reset; a gain-only change reseeds just the filter-error
// estimate, since the echo path shape is unchanged but its level is not.
func (g *MainFilterUpdateGain) HandleEchoPathChange(v EchoPathVariability) {
	for k := range g.hError {
		g.hError[k] = hErrorInitial
	}

	if v.DelayChange != DelayAdjustmentNone {
		g.state.resetCounters()
	}
}

// Compute fills dst with the per-bin complex adaptation gain for the main
// filter from the render power x2, the current block's output, the ERL
// estimate, and the saturation flag.
func (g *MainFilterUpdateGain) Compute(x2 []float64, analyzer render.Analyzer,
	out *Output, erl []float64, sizePartitions int, saturated bool,
	dst *spectral.FFTData) {
	g.updateCurrentConfig()

	eMain := &out.EMainSpectrum
	e2Main := out.E2MainSpectrum
	e2Shadow := out.E2ShadowSpectrum

	if g.state.holdGain(analyzer, sizePartitions, saturated) {
		dst.Clear()
	} else {
		n := float64(sizePartitions)

		// mu = hError / (0.5 * hError * X2 + n * E2).
		for k := 0; k < spectral.NumBins; k++ {
			if x2[k] >= g.current.NoiseGate {
				g.mu[k] = g.hError[k] / (0.5*g.hError[k]*x2[k] + n*e2Main[k])
			} else {
				g.mu[k] = 0
			}
		}

		if analyzer != nil {
			analyzer.MaskRegionsAroundNarrowBands(g.mu)
		}

		// Each applied update consumes part of the filter-error estimate:
		// hError -= 0.5 * mu * X2 * hError.
		for k := 0; k < spectral.NumBins; k++ {
			g.hError[k] -= 0.5 * g.mu[k] * x2[k] * g.hError[k]
			dst.Re[k] = g.mu[k] * eMain.Re[k]
			dst.Im[k] = g.mu[k] * eMain.Im[k]
		}
	}

	// Leakage regrows the filter-error estimate from the ERL.
	for k := 0; k < spectral.NumBins; k++ {
		if e2Shadow[k] >= e2Main[k] {
			g.hError[k] += g.current.LeakageConverged * erl[k]
		} else {
			g.hError[k] += g.current.LeakageDiverged * erl[k]
		}

		if g.hError[k] < g.current.ErrorFloor {
			g.hError[k] = g.current.ErrorFloor
		}
	}
}

// CurrentConfig returns the configuration in effect this block.
func (g *MainFilterUpdateGain) CurrentConfig() MainFilterConfig {
	return g.current
}

func (g *MainFilterUpdateGain) updateCurrentConfig() {
	w, active := g.state.rampStep()
	if !active {
		if g.current != g.target {
			g.current = g.target
			g.oldTarget = g.target
		}
		return
	}

	g.current.LeakageConverged = blend(g.oldTarget.LeakageConverged, g.target.LeakageConverged, w)
	g.current.LeakageDiverged = blend(g.oldTarget.LeakageDiverged, g.target.LeakageDiverged, w)
	g.current.ErrorFloor = blend(g.oldTarget.ErrorFloor, g.target.ErrorFloor, w)
	g.current.NoiseGate = blend(g.oldTarget.NoiseGate, g.target.NoiseGate, w)
	g.current.LengthBlocks = g.target.LengthBlocks
}

// ShadowFilterUpdateGain computes the adaptation gain of the shadow filter:
// a plain normalized step with a fixed rate and no ERL coupling, trading
// steady-state accuracy for fast re-convergence.
type ShadowFilterUpdateGain struct {
	state gainState

	current   ShadowFilterConfig
	target    ShadowFilterConfig
	oldTarget ShadowFilterConfig
}

// NewShadowFilterUpdateGain creates a shadow-filter gain with the given
// initial configuration.
func NewShadowFilterUpdateGain(cfg ShadowFilterConfig, configChangeDurationBlocks int) (*ShadowFilterUpdateGain, error) {
	if configChangeDurationBlocks < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidChangeDuration, configChangeDurationBlocks)
	}

	return &ShadowFilterUpdateGain{
		state:     newGainState(configChangeDurationBlocks),
		current:   cfg,
		target:    cfg,
		oldTarget: cfg,
	}, nil
}

// SetConfig switches the gain's parameter set. When immediate is false the
// switch ramps linearly over the configured duration.
func (g *ShadowFilterUpdateGain) SetConfig(cfg ShadowFilterConfig, immediate bool) {
	if immediate {
		g.current = cfg
		g.target = cfg
		g.oldTarget = cfg
		g.state.configChangeCounter = 0
		return
	}

	g.oldTarget = g.current
	g.target = cfg
	g.state.beginConfigChange()
}

// HandleEchoPathChange restarts the warm-up gating. The shadow filter keeps
// no response history, so there is nothing else to reset.
func (g *ShadowFilterUpdateGain) HandleEchoPathChange() {
	g.state.resetCounters()
}

// Compute fills dst with the per-bin complex adaptation gain for the shadow
// filter from the render power x2 and the error spectrum e.
func (g *ShadowFilterUpdateGain) Compute(x2 []float64, analyzer render.Analyzer,
	e *spectral.FFTData, sizePartitions int, saturated bool,
	dst *spectral.FFTData) {
	g.updateCurrentConfig()

	if g.state.holdGain(analyzer, sizePartitions, saturated) {
		dst.Clear()
		return
	}

	for k := 0; k < spectral.NumBins; k++ {
		if x2[k] > g.current.NoiseGate {
			mu := g.current.Rate / x2[k]
			dst.Re[k] = mu * e.Re[k]
			dst.Im[k] = mu * e.Im[k]
		} else {
			dst.Re[k] = 0
			dst.Im[k] = 0
		}
	}
}

// CurrentConfig returns the configuration in effect this block.
func (g *ShadowFilterUpdateGain) CurrentConfig() ShadowFilterConfig {
	return g.current
}

func (g *ShadowFilterUpdateGain) updateCurrentConfig() {
	w, active := g.state.rampStep()
	if !active {
		if g.current != g.target {
			g.current = g.target
			g.oldTarget = g.target
		}
		return
	}

	g.current.Rate = blend(g.oldTarget.Rate, g.target.Rate, w)
	g.current.NoiseGate = blend(g.oldTarget.NoiseGate, g.target.NoiseGate, w)
	g.current.LengthBlocks = g.target.LengthBlocks
}
