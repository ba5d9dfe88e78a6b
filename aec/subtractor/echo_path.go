package subtractor

// DelayAdjustment describes a detected change of the echo path delay.
type DelayAdjustment int

const (
	// DelayAdjustmentNone indicates the delay is unchanged.
	DelayAdjustmentNone DelayAdjustment = iota

	// DelayAdjustmentNewDetectedDelay indicates the delay has shifted and
	// all accumulated filter state is invalid.
	DelayAdjustmentNewDetectedDelay
)

// EchoPathVariability describes a believed change of the physical echo path,
// delivered by the caller on events such as a device switch or a clock-drift
// correction.
type EchoPathVariability struct {
	DelayChange DelayAdjustment
	GainChange  bool
}

// AudioPathChanged reports whether any aspect of the echo path changed.
func (v EchoPathVariability) AudioPathChanged() bool {
	return v.DelayChange != DelayAdjustmentNone || v.GainChange
}

// CaptureState supplies the capture-side state the subtractor consumes.
// A nil CaptureState is treated as an unsaturated capture signal.
type CaptureState interface {
	// SaturatedCapture reports whether the current capture block is
	// clipped; adaptation is suspended on clipped data.
	SaturatedCapture() bool
}
