package subtractor

import (
	"errors"
	"fmt"
)

// Errors returned by configuration validation.
var (
	ErrInvalidFilterLength   = errors.New("subtractor: filter length must be at least one block")
	ErrInvalidChangeDuration = errors.New("subtractor: config change duration must be positive")
	ErrInvalidChannelCount   = errors.New("subtractor: need at least one capture channel")
)

// MainFilterConfig parameterizes the main filter and its update gain.
type MainFilterConfig struct {
	// LengthBlocks is the filter length in 64-sample partitions.
	LengthBlocks int

	// LeakageConverged and LeakageDiverged control how fast the per-bin
	// filter-error estimate regrows from the ERL while the shadow filter
	// is respectively not better or better than the main filter.
	LeakageConverged float64
	LeakageDiverged  float64

	// ErrorFloor bounds the per-bin filter-error estimate from below.
	ErrorFloor float64

	// NoiseGate is the render power below which a bin is not adapted.
	NoiseGate float64
}

// ShadowFilterConfig parameterizes the shadow filter and its update gain.
type ShadowFilterConfig struct {
	// LengthBlocks is the filter length in 64-sample partitions.
	LengthBlocks int

	// Rate is the fixed normalized step size.
	Rate float64

	// NoiseGate is the render power below which a bin is not adapted.
	NoiseGate float64
}

// Config collects the tuned parameters of the subtraction stage. The
// *Initial variants apply during the initial fast-convergence period and
// after an echo-path delay change; ExitInitialState switches to the
// steady-state variants.
type Config struct {
	Main          MainFilterConfig
	MainInitial   MainFilterConfig
	Shadow        ShadowFilterConfig
	ShadowInitial ShadowFilterConfig

	// ConfigChangeDurationBlocks is the length of the linear ramp applied
	// to non-forced configuration and filter-size changes, to avoid an
	// audible step.
	ConfigChangeDurationBlocks int
}

// DefaultConfig returns the tuned defaults of the subtraction stage.
func DefaultConfig() Config {
	return Config{
		Main: MainFilterConfig{
			LengthBlocks:     13,
			LeakageConverged: 0.00005,
			LeakageDiverged:  0.05,
			ErrorFloor:       0.001,
			NoiseGate:        20075344,
		},
		MainInitial: MainFilterConfig{
			LengthBlocks:     12,
			LeakageConverged: 0.005,
			LeakageDiverged:  0.5,
			ErrorFloor:       0.001,
			NoiseGate:        20075344,
		},
		Shadow: ShadowFilterConfig{
			LengthBlocks: 13,
			Rate:         0.7,
			NoiseGate:    20075344,
		},
		ShadowInitial: ShadowFilterConfig{
			LengthBlocks: 12,
			Rate:         0.9,
			NoiseGate:    20075344,
		},
		ConfigChangeDurationBlocks: 250,
	}
}

// Validate checks the configuration for structural errors.
func (c Config) Validate() error {
	for _, n := range []int{
		c.Main.LengthBlocks, c.MainInitial.LengthBlocks,
		c.Shadow.LengthBlocks, c.ShadowInitial.LengthBlocks,
	} {
		if n < 1 {
			return fmt.Errorf("%w: got %d", ErrInvalidFilterLength, n)
		}
	}

	if c.ConfigChangeDurationBlocks < 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidChangeDuration, c.ConfigChangeDurationBlocks)
	}

	return nil
}
