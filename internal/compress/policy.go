package compress

import (
	"context"
	"errors"
	"fmt"

	"github.com/ytget/yt-bot/internal/model"
	"github.com/ytget/yt-bot/internal/platform"
)

// DefaultBudget is the delivery sink's upload ceiling (2 GiB)
const DefaultBudget int64 = 2 << 30

// ErrSizeExceeded is returned when an artifact cannot be brought within budget.
var ErrSizeExceeded = errors.New("file exceeds the delivery size limit")

// Enforcer applies the byte budget to fetched artifacts
type Enforcer struct {
	ladder *Ladder
	budget int64
}

// NewEnforcer creates an enforcer; a non-positive budget means DefaultBudget
func NewEnforcer(ladder *Ladder, budget int64) *Enforcer {
	if budget <= 0 {
		budget = DefaultBudget
	}
	return &Enforcer{ladder: ladder, budget: budget}
}

// Budget returns the enforced byte ceiling
func (e *Enforcer) Budget() int64 {
	return e.budget
}

// Enforce returns an artifact within budget or an error. On error the input
// artifact has been removed; on success it is either returned as is or has
// been replaced by the returned candidate.
func (e *Enforcer) Enforce(ctx context.Context, artifact model.LocalArtifact, onRung RungFunc) (model.LocalArtifact, error) {
	out, err := e.ladder.DownscaleUntilFits(ctx, artifact, e.budget, onRung)
	if err == nil {
		return out, nil
	}

	_ = platform.RemoveQuietly(artifact.Path)

	switch {
	case errors.Is(err, ErrTranscoderUnavailable), errors.Is(err, ErrLadderExhausted):
		return model.LocalArtifact{}, fmt.Errorf("%w (%s): %w", ErrSizeExceeded, platform.HumanSize(artifact.Size), err)
	default:
		return model.LocalArtifact{}, err
	}
}
