package subtractor

import (
	"math"
	"testing"
)

// feedWindow pushes one full accumulation window with fixed per-block
// residual and capture energies.
func feedWindow(t *testing.T, e *misadjustmentEstimator, e2, y2 float64) {
	t.Helper()

	out := &Output{E2Main: e2, Y2: y2}
	for i := 0; i < misadjustmentWindowBlocks; i++ {
		e.update(out)
	}
}

func TestMisadjustmentIgnoresNearSilence(t *testing.T) {
	var e misadjustmentEstimator

	// Huge residual-to-capture ratio, but the capture energy stays below
	// the floor, so no estimate may form.
	feedWindow(t, &e, 1e12, 1e6)
	feedWindow(t, &e, 1e12, 1e6)

	if e.invMisadjustment != 0 {
		t.Fatalf("inverse misadjustment %v after near-silent windows, want 0", e.invMisadjustment)
	}
	if e.adjustmentNeeded() {
		t.Fatal("adjustment requested on near-silent input")
	}
}

func TestMisadjustmentSpikeArmsOverhangAndTriggers(t *testing.T) {
	var e misadjustmentEstimator

	// Per-block energies chosen so the window exceeds the divergence
	// floor with a ratio of 60.
	feedWindow(t, &e, 6e9, 1e8)

	if e.overhang != misadjustmentOverhang {
		t.Fatalf("overhang %d after spike, want %d", e.overhang, misadjustmentOverhang)
	}
	if math.Abs(e.invMisadjustment-6) > 1e-12 {
		t.Fatalf("inverse misadjustment %v after first spike window, want 6", e.invMisadjustment)
	}
	if e.adjustmentNeeded() {
		t.Fatal("adjustment requested below the threshold")
	}

	// A second spike window pushes the smoothed value over the threshold.
	feedWindow(t, &e, 6e9, 1e8)

	if !e.adjustmentNeeded() {
		t.Fatalf("no adjustment at inverse misadjustment %v", e.invMisadjustment)
	}

	scale := e.misadjustment()
	want := 2 / math.Sqrt(e.invMisadjustment)
	if scale != want {
		t.Fatalf("misadjustment scale %v, want %v", scale, want)
	}
	if scale <= 0 || scale >= 1 {
		t.Fatalf("misadjustment scale %v outside (0, 1)", scale)
	}

	e.reset()
	if e.invMisadjustment != 0 || e.overhang != 0 || e.blockCounter != 0 {
		t.Fatal("reset left state behind")
	}
	if e.adjustmentNeeded() {
		t.Fatal("adjustment requested after reset")
	}
}

func TestMisadjustmentOverhangDecayAndAsymmetry(t *testing.T) {
	var e misadjustmentEstimator

	feedWindow(t, &e, 6e9, 1e8)
	if e.overhang != misadjustmentOverhang {
		t.Fatalf("overhang %d after spike, want %d", e.overhang, misadjustmentOverhang)
	}

	// Windows below the divergence floor whose ratio still exceeds the
	// smoothed value: the overhang drains one unit per window, and the
	// estimate keeps rising only while the drained overhang is nonzero.
	prev := e.invMisadjustment
	for i := misadjustmentOverhang - 1; i >= 0; i-- {
		feedWindow(t, &e, 8e8, 1e8)
		if e.overhang != i {
			t.Fatalf("overhang %d, want %d", e.overhang, i)
		}
		if i > 0 && e.invMisadjustment <= prev {
			t.Fatalf("inverse misadjustment %v did not rise during overhang", e.invMisadjustment)
		}
		if i == 0 && e.invMisadjustment != prev {
			t.Fatalf("inverse misadjustment moved from %v to %v without overhang",
				prev, e.invMisadjustment)
		}
		prev = e.invMisadjustment
	}

	// Overhang exhausted: a worse ratio no longer moves the estimate.
	feedWindow(t, &e, 8e8, 1e8)
	if e.invMisadjustment != prev {
		t.Fatalf("inverse misadjustment moved from %v to %v without overhang",
			prev, e.invMisadjustment)
	}

	// A better ratio always moves it, overhang or not.
	feedWindow(t, &e, 1e8, 1e8)
	if e.invMisadjustment >= prev {
		t.Fatalf("inverse misadjustment %v did not fall on improvement", e.invMisadjustment)
	}
}
