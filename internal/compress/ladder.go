package compress

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	xlog "github.com/ytget/yt-bot/internal/log"
	"github.com/ytget/yt-bot/internal/metrics"
	"github.com/ytget/yt-bot/internal/model"
	"github.com/ytget/yt-bot/internal/platform"
)

// DefaultHeights is the descending resolution ladder
var DefaultHeights = []int{1080, 720, 480, 360, 240}

// Rung results reported to metrics
const (
	rungFits     = "fits"
	rungTooLarge = "too_large"
	rungFailed   = "failed"
)

var (
	// ErrTranscoderUnavailable is returned when no transcoder can be run.
	ErrTranscoderUnavailable = errors.New("transcoder is not available")

	// ErrLadderExhausted is returned when no rung produced a file within budget.
	ErrLadderExhausted = errors.New("no resolution fits the size budget")
)

// Ladder walks a fixed descending height sequence until an output fits.
type Ladder struct {
	transcoder Transcoder
	heights    []int
	logger     zerolog.Logger
}

// NewLadder creates a ladder over heights, or DefaultHeights when none are given
func NewLadder(t Transcoder, heights ...int) *Ladder {
	if len(heights) == 0 {
		heights = DefaultHeights
	}
	return &Ladder{
		transcoder: t,
		heights:    append([]int(nil), heights...),
		logger:     xlog.WithComponent("ladder"),
	}
}

// Heights returns a copy of the ladder order
func (l *Ladder) Heights() []int {
	return append([]int(nil), l.heights...)
}

// DownscaleUntilFits returns artifact unchanged when it fits budget. Otherwise
// it transcodes rung by rung from the top and returns the first candidate that
// fits, deleting the original. Rejected candidates are deleted as the ladder
// moves on. The original is left in place on error; callers own its removal.
func (l *Ladder) DownscaleUntilFits(ctx context.Context, artifact model.LocalArtifact, budget int64, onRung RungFunc) (model.LocalArtifact, error) {
	if artifact.Fits(budget) {
		return artifact, nil
	}
	if l.transcoder == nil || !l.transcoder.Available() {
		return model.LocalArtifact{}, ErrTranscoderUnavailable
	}

	for _, h := range l.heights {
		if err := ctx.Err(); err != nil {
			return model.LocalArtifact{}, err
		}

		out := platform.TranscodePath(artifact.Path, h)
		label := strconv.Itoa(h)
		var progress ProgressFunc
		if onRung != nil {
			onRung(h, 0)
			progress = func(pct int) { onRung(h, pct) }
		}

		start := time.Now()
		err := l.transcoder.Transcode(ctx, artifact.Path, out, h, progress)
		metrics.TranscodeDuration.WithLabelValues(label).Observe(time.Since(start).Seconds())

		if err != nil {
			_ = platform.RemoveQuietly(out)
			if errors.Is(err, model.ErrMissingArtifact) {
				return model.LocalArtifact{}, err
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return model.LocalArtifact{}, ctxErr
			}
			metrics.LadderRungs.WithLabelValues(label, rungFailed).Inc()
			l.logger.Warn().Err(err).Int(xlog.FieldHeight, h).Msg("transcode rung failed")
			continue
		}

		size, err := platform.FileSize(out)
		if err != nil {
			return model.LocalArtifact{}, fmt.Errorf("%w: %v", model.ErrMissingArtifact, err)
		}
		candidate := model.NewLocalArtifact(out, size)

		if candidate.Fits(budget) {
			metrics.LadderRungs.WithLabelValues(label, rungFits).Inc()
			if err := platform.RemoveQuietly(artifact.Path); err != nil {
				l.logger.Warn().Err(err).Str(xlog.FieldPath, artifact.Path).Msg("failed to remove original")
			}
			l.logger.Info().
				Int(xlog.FieldHeight, h).
				Int64(xlog.FieldBytes, size).
				Int64(xlog.FieldBudget, budget).
				Msg("downscaled within budget")
			return candidate, nil
		}

		metrics.LadderRungs.WithLabelValues(label, rungTooLarge).Inc()
		l.logger.Debug().
			Int(xlog.FieldHeight, h).
			Int64(xlog.FieldBytes, size).
			Int64(xlog.FieldBudget, budget).
			Msg("rung still too large")
		_ = platform.RemoveQuietly(out)
	}

	return model.LocalArtifact{}, ErrLadderExhausted
}
