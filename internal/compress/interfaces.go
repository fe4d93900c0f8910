package compress

import (
	"context"
)

// Transcoder defines the interface for the external transcoder.
type Transcoder interface {
	// Available reports whether the transcoder binary can be run.
	Available() bool

	// Transcode re-encodes input into output scaled to height, preserving
	// aspect ratio. Success means the process exited cleanly and output exists.
	Transcode(ctx context.Context, input, output string, height int, progress ProgressFunc) error
}

// ProgressFunc receives transcode progress as a 0..100 percentage.
type ProgressFunc func(percent int)

// RungFunc is notified when the ladder starts a rung and as it progresses.
type RungFunc func(height, percent int)
