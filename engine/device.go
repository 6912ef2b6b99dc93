package engine

// CaptureOptions selects the platform processing applied to a capture
// stream. The engine always requests all three off: the effect chain
// expects the raw microphone signal, and platform DSP ahead of the
// graph would fight the gate and compressor.
type CaptureOptions struct {
	EchoCancellation bool
	NoiseSuppression bool
	AutoGainControl  bool
}

// Source is an open capture stream. ReadBlock fills block with up to
// len(block) samples and returns the count; it blocks until samples are
// available or the stream fails. Close unblocks a pending read.
type Source interface {
	ReadBlock(block []float64) (int, error)
	SampleRate() float64
	Close() error
}

// Sink is an open stereo playback stream.
type Sink interface {
	WriteBlock(left, right []float64) error
	Close() error
}

// Device abstracts the platform audio backend. Open calls may block
// while the backend negotiates with the hardware; the engine guards
// them with a generation counter so slow results cannot attach to an
// engine that has since been stopped.
type Device interface {
	OpenSource(deviceID string, opts CaptureOptions) (Source, error)
	OpenSink(outputID string) (Sink, error)
}
