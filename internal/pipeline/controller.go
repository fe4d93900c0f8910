package pipeline

import (
	"context"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/ytget/yt-bot/internal/download"
	xlog "github.com/ytget/yt-bot/internal/log"
	"github.com/ytget/yt-bot/internal/metrics"
	"github.com/ytget/yt-bot/internal/model"
)

// Controller fans a collection out into sequential item runs
type Controller struct {
	items    *ItemPipeline
	interval time.Duration
	logger   zerolog.Logger
}

// NewController creates a fan-out controller. A positive interval spaces
// consecutive item starts at least that far apart.
func NewController(items *ItemPipeline, interval time.Duration) *Controller {
	return &Controller{
		items:    items,
		interval: interval,
		logger:   xlog.WithComponent("collection"),
	}
}

// Run processes every entry of meta in listed order, one at a time. Item
// failures are reported inline and never stop the run.
func (c *Controller) Run(ctx context.Context, meta model.MediaMetadata, opts download.Options, sess Session, status *StatusLine) *model.CollectionSummary {
	total := meta.ItemCount()
	summary := model.NewCollectionSummary(meta.Title, total)
	logger := c.logger.With().Str("title", meta.Title).Int(xlog.FieldTotal, total).Logger()

	status.Set(ctx, PlaylistDetected(total))
	logger.Info().Msg("collection started")

	var limiter *rate.Limiter
	if c.interval > 0 {
		limiter = rate.NewLimiter(rate.Every(c.interval), 1)
	}

	for idx, entry := range meta.Entries {
		index := idx + 1
		url, ok := entry.CanonicalURL()
		if !ok {
			summary.RecordUnresolved()
			metrics.CollectionItems.WithLabelValues("unresolved").Inc()
			logger.Debug().Int(xlog.FieldIndex, index).Msg("entry has no resolvable URL")
			continue
		}

		req := ItemRequest{
			URL:     url,
			Title:   entry.Title,
			Options: opts,
			Index:   index,
			Total:   total,
		}

		var out model.ItemOutcome
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				out = model.Failed(err).WithItem(entry.Title, url)
			}
		}
		if out.Kind == "" {
			out = c.items.Run(ctx, req, sess.Sink, status)
		}
		summary.Record(out)
		metrics.CollectionItems.WithLabelValues(string(out.Kind)).Inc()

		switch out.Kind {
		case model.OutcomeFailed:
			reply(ctx, sess.Reporter, EntryFailed(out.Err), logger)
		case model.OutcomeSkipped:
			reply(ctx, sess.Reporter, EntrySkipped(entryName(entry, index), out.Reason), logger)
		}
	}

	status.Set(ctx, summary.Line())
	logger.Info().
		Int("processed", summary.Processed).
		Int("failed", summary.Count(model.OutcomeFailed)).
		Int("unresolved", summary.Unresolved).
		Msg("collection finished")
	return summary
}

func entryName(entry model.ItemDescriptor, index int) string {
	if entry.Title != "" {
		return entry.Title
	}
	return "entry " + strconv.Itoa(index)
}
