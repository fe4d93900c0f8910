package pipeline

import (
	"context"
	"errors"

	"github.com/ytget/yt-bot/internal/compress"
	"github.com/ytget/yt-bot/internal/download"
	"github.com/ytget/yt-bot/internal/model"
)

var (
	// ErrDeliveryRejected is wrapped by sinks that refuse a media-typed send.
	ErrDeliveryRejected = errors.New("delivery rejected")

	// ErrDeliveryFailed is returned when the document fallback also failed.
	ErrDeliveryFailed = errors.New("delivery failed")

	// ErrLowDisk is returned when the work directory lacks free space for a fetch.
	ErrLowDisk = errors.New("not enough free disk space")
)

// ErrorKind names a failure class for messages and metrics
type ErrorKind string

const (
	KindNone                 ErrorKind = ""
	KindAuthRequired         ErrorKind = "auth_required"
	KindExtraction           ErrorKind = "extraction"
	KindTranscodeUnavailable ErrorKind = "transcode_unavailable"
	KindSizeExceeded         ErrorKind = "size_exceeded"
	KindDeliveryRejected     ErrorKind = "delivery_rejected"
	KindMissingArtifact      ErrorKind = "missing_artifact"
	KindLowDisk              ErrorKind = "low_disk"
	KindCanceled             ErrorKind = "canceled"
	KindInternal             ErrorKind = "internal"
)

// Kind classifies err
func Kind(err error) ErrorKind {
	switch {
	case err == nil:
		return KindNone
	case download.IsAuthRequired(err):
		return KindAuthRequired
	case errors.Is(err, download.ErrExtraction):
		return KindExtraction
	case errors.Is(err, compress.ErrTranscoderUnavailable):
		return KindTranscodeUnavailable
	case errors.Is(err, compress.ErrSizeExceeded):
		return KindSizeExceeded
	case errors.Is(err, ErrDeliveryRejected), errors.Is(err, ErrDeliveryFailed):
		return KindDeliveryRejected
	case errors.Is(err, model.ErrMissingArtifact):
		return KindMissingArtifact
	case errors.Is(err, ErrLowDisk):
		return KindLowDisk
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCanceled
	default:
		return KindInternal
	}
}

// isRejection reports whether err ends the item as Skipped rather than Failed
func isRejection(err error) bool {
	k := Kind(err)
	return k == KindSizeExceeded || k == KindTranscodeUnavailable
}
