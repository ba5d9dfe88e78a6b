// Package testutil provides deterministic signal generators and comparison
// helpers shared by the package tests.
package testutil

import (
	"math"
	"math/rand/v2"
)

// Noise returns length uniform white-noise samples in [-amp, amp] drawn
// from rng.
func Noise(rng *rand.Rand, amp float64, length int) []float64 {
	out := make([]float64, length)
	for i := range out {
		out[i] = (rng.Float64()*2 - 1) * amp
	}
	return out
}

// Sine returns length samples of a sine wave at freqHz for the given sample
// rate, starting at phase zero.
func Sine(freqHz, sampleRate, amp float64, length int) []float64 {
	out := make([]float64, length)
	step := 2 * math.Pi * freqHz / sampleRate
	for i := range out {
		out[i] = amp * math.Sin(step*float64(i))
	}
	return out
}

// Impulse returns a unit impulse at pos.
func Impulse(length, pos int) []float64 {
	out := make([]float64, length)
	if pos >= 0 && pos < length {
		out[pos] = 1
	}
	return out
}
