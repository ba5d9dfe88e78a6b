// Package spectral provides the fixed-geometry frequency-domain primitives
// shared by the echo-cancellation engine.
//
// All processing operates on 64-sample blocks transformed with a 128-point
// FFT using the overlap-save convention: the current block occupies the upper
// half of the double-length time buffer, so circular convolution against a
// kernel padded into the lower half yields linear convolution in the upper
// half of the inverse transform.
//
// [FFTData] holds one block's spectrum as split real/imaginary slices over
// the 65 non-redundant bins. [FFT] wraps a reusable FFT plan with the
// forward, padded-forward, and normalized inverse transforms the engine
// needs; all buffers are allocated at construction, so per-block calls do
// not allocate.
package spectral
