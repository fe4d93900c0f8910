package pipeline

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	xlog "github.com/ytget/yt-bot/internal/log"
)

// progressStep is the minimum percentage change that is shown
const progressStep = 10

// StatusLine is the single, overwritten status message of one request.
// Setting the same text twice sends nothing. Reporter errors are logged and
// never fail the request.
type StatusLine struct {
	reporter Reporter
	logger   zerolog.Logger

	mu      sync.Mutex
	handle  StatusHandle
	posted  bool
	cleared bool
	last    string
}

// NewStatusLine creates a status line; a nil reporter discards updates
func NewStatusLine(r Reporter) *StatusLine {
	return &StatusLine{
		reporter: r,
		logger:   xlog.WithComponent("status"),
	}
}

// Set shows text, posting the message on first use
func (s *StatusLine) Set(ctx context.Context, text string) {
	if s == nil || s.reporter == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cleared || text == s.last {
		return
	}

	if !s.posted {
		h, err := s.reporter.PostStatus(ctx, text)
		if err != nil {
			s.logger.Warn().Err(err).Msg("failed to post status")
			return
		}
		s.handle, s.posted, s.last = h, true, text
		return
	}

	if err := s.reporter.UpdateStatus(ctx, s.handle, text); err != nil {
		s.logger.Debug().Err(err).Msg("failed to update status")
		return
	}
	s.last = text
}

// Clear removes the status message. Later Set calls are ignored.
func (s *StatusLine) Clear(ctx context.Context) {
	if s == nil || s.reporter == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.posted || s.cleared {
		s.cleared = true
		return
	}
	if err := s.reporter.ClearStatus(ctx, s.handle); err != nil {
		s.logger.Debug().Err(err).Msg("failed to clear status")
	}
	s.cleared = true
}

// Text returns the last text shown
func (s *StatusLine) Text() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// reply posts a standalone message that is never edited
func reply(ctx context.Context, r Reporter, text string, logger zerolog.Logger) {
	if r == nil {
		return
	}
	if _, err := r.PostStatus(ctx, text); err != nil {
		logger.Warn().Err(err).Msg("failed to post reply")
	}
}

// throttle drops progress values that moved less than progressStep since the
// last shown value. 100 is always shown.
func throttle(fn func(int)) func(int) {
	var mu sync.Mutex
	last := -progressStep
	return func(pct int) {
		mu.Lock()
		if pct < 100 && pct-last < progressStep {
			mu.Unlock()
			return
		}
		last = pct
		mu.Unlock()
		fn(pct)
	}
}
