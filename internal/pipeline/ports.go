package pipeline

import (
	"context"
)

// Sink delivers a finished artifact to the requester.
type Sink interface {
	// SendMedia sends path as a playable video. A sink that refuses the
	// content type returns an error wrapping ErrDeliveryRejected.
	SendMedia(ctx context.Context, path, caption string) error

	// SendDocument sends path as a generic file.
	SendDocument(ctx context.Context, path, caption string) error
}

// StatusHandle identifies a posted status message.
type StatusHandle int64

// Reporter shows progress to the requester.
type Reporter interface {
	PostStatus(ctx context.Context, text string) (StatusHandle, error)
	UpdateStatus(ctx context.Context, h StatusHandle, text string) error
	ClearStatus(ctx context.Context, h StatusHandle) error
}

// Notifier reaches the operator. Delivery is best-effort.
type Notifier interface {
	NotifyOperator(ctx context.Context, text string) error
}

// Session bundles the per-request delivery ports.
type Session struct {
	Sink     Sink
	Reporter Reporter
}
