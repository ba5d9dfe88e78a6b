package testutil

import (
	"testing"
)

func TestRequireSliceNearlyEqual(t *testing.T) {
	RequireSliceNearlyEqual(t, []float64{1, 2, 3}, []float64{1, 2, 3 + 1e-13}, 1e-12)
	RequireSliceNearlyEqual(t, nil, nil, 0)
}

func TestRequireFinite(t *testing.T) {
	RequireFinite(t, []float64{0, -1e300, 1e300})
	RequireFinite(t, nil)
}
