// Command aecsim runs the echo subtraction stage over a synthetic echo
// scenario and prints its convergence behavior.
//
// The render signal is white noise; the capture signal is the render signal
// convolved with a single-reflection echo path. Every reporting interval the
// echo return loss enhancement (ERLE) of the main and shadow filters is
// printed, so the effect of tuning changes is directly visible.
//
// Usage:
//
//	aecsim [flags]
//
// Examples:
//
//	aecsim
//	aecsim -blocks 4000 -delay 192 -gain 0.3
//	aecsim -amp 2000 -interval 100
package main

import (
	"flag"
	"fmt"
	"math"
	"math/rand/v2"
	"os"
	"text/tabwriter"

	"github.com/cwbudde/algo-aec/aec/render"
	"github.com/cwbudde/algo-aec/aec/spectral"
	"github.com/cwbudde/algo-aec/aec/subtractor"
)

func main() {
	blocks := flag.Int("blocks", 2000, "number of 64-sample blocks to simulate")
	delay := flag.Int("delay", 10, "echo delay in samples")
	gain := flag.Float64("gain", 0.5, "echo gain of the simulated reflection")
	amp := flag.Float64("amp", 5000, "render noise amplitude")
	interval := flag.Int("interval", 250, "reporting interval in blocks")
	steady := flag.Int("steady", 250, "block at which the steady-state configuration is entered")
	seed := flag.Uint64("seed", 1, "noise generator seed")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: aecsim [flags]\n\n")
		fmt.Fprintf(os.Stderr, "Simulates echo subtraction against a single synthetic reflection\n")
		fmt.Fprintf(os.Stderr, "and prints the achieved ERLE per reporting interval.\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	cfg := subtractor.DefaultConfig()

	maxDelay := cfg.MainInitial.LengthBlocks * spectral.BlockSize
	if *delay < 0 || *delay >= maxDelay {
		fmt.Fprintf(os.Stderr, "error: delay must be in [0, %d)\n", maxDelay)
		os.Exit(1)
	}
	if *blocks < 1 || *interval < 1 {
		fmt.Fprintf(os.Stderr, "error: blocks and interval must be positive\n")
		os.Exit(1)
	}

	sub, err := subtractor.NewSubtractor(cfg, 1)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	buf, err := render.NewHistory(cfg.Main.LengthBlocks)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	rng := rand.New(rand.NewPCG(*seed, 0))
	out := subtractor.NewOutput()

	// Echo path state: the delayed render samples still in flight.
	pending := make([]float64, *delay)

	x := make([]float64, spectral.BlockSize)
	y := make([]float64, spectral.BlockSize)

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tw, "Blocks\tCapture [dB]\tERLE main [dB]\tERLE shadow [dB]\t\n")

	var y2Sum, e2MainSum, e2ShadowSum float64
	for block := 1; block <= *blocks; block++ {
		for i := range x {
			x[i] = (rng.Float64()*2 - 1) * *amp
		}

		// y is the render signal delayed and attenuated.
		delayed := append(pending, x...)
		for i := range y {
			y[i] = *gain * delayed[i]
		}
		copy(pending, delayed[spectral.BlockSize:])

		buf.Insert(x)
		sub.Process(buf, [][]float64{y}, nil, nil, []*subtractor.Output{out})

		if block == *steady {
			sub.ExitInitialState()
		}

		y2Sum += out.Y2
		e2MainSum += out.E2Main
		e2ShadowSum += out.E2Shadow

		if block%*interval == 0 || block == *blocks {
			fmt.Fprintf(tw, "%d\t%.1f\t%.1f\t%.1f\t\n",
				block, db(y2Sum), erle(y2Sum, e2MainSum), erle(y2Sum, e2ShadowSum))
			y2Sum, e2MainSum, e2ShadowSum = 0, 0, 0
		}
	}

	if err := tw.Flush(); err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to flush output: %v\n", err)
		os.Exit(1)
	}
}

func db(power float64) float64 {
	if power <= 0 {
		return math.Inf(-1)
	}
	return 10 * math.Log10(power)
}

func erle(y2, e2 float64) float64 {
	if e2 <= 0 || y2 <= 0 {
		return math.Inf(1)
	}
	return 10 * math.Log10(y2 / e2)
}
