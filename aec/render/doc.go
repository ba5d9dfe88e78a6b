// Package render provides the render-side collaborators of the
// echo-cancellation engine: the partitioned render history the adaptive
// filters operate on, and the render-signal analyzer that gates and masks
// filter adaptation.
//
// [History] keeps a bounded ring of frequency-domain render partitions,
// ordered newest to oldest, together with their power spectra so that the
// per-block spectral sums the subtractor needs are cheap to form.
package render
