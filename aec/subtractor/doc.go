// Package subtractor implements the adaptive linear echo subtraction stage
// of an acoustic echo canceller.
//
// For every 64-sample capture block the [Subtractor] runs two competing
// partitioned frequency-domain adaptive filters against the render history:
// a main filter tuned for steady-state accuracy and a shadow filter tuned
// for fast re-convergence. Each filter's echo estimate is subtracted from
// the capture block, the main filter adapts with a normalized, ERL-informed
// step size and the shadow filter with a plain normalized step, and a
// misadjustment estimator with hysteresis scales the main filter back down
// when it diverges. When the shadow filter's residual is worse than the
// main filter's for several consecutive blocks it is reseeded from the
// main filter's coefficients.
//
// The per-block path performs no allocation and no I/O; construction
// validates the configuration eagerly and allocates every buffer up front.
// Channels share nothing but the render power sums, so a caller may process
// disjoint channel state concurrently.
package subtractor
