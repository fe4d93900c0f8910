package pipeline

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ytget/yt-bot/internal/download"
	xlog "github.com/ytget/yt-bot/internal/log"
	"github.com/ytget/yt-bot/internal/model"
	"github.com/ytget/yt-bot/internal/worker"
)

// RunnerConfig wires a Runner
type RunnerConfig struct {
	Extractor  download.Extractor
	Items      *ItemPipeline
	Controller *Controller
	Pool       *worker.Pool
	Notifier   Notifier // optional
	WorkDir    string
	CookieFile string
}

// Result is what one request produced
type Result struct {
	Kind    model.MediaKind
	Outcome model.ItemOutcome        // single item
	Summary *model.CollectionSummary // collection
	Err     error                    // probe failure; nothing was fetched
}

// Failed reports whether the request produced nothing useful
func (r Result) Failed() bool {
	switch {
	case r.Err != nil:
		return true
	case r.Summary != nil:
		return r.Summary.Total > 0 && r.Summary.Processed == 0
	default:
		return r.Outcome.IsFailed()
	}
}

// Runner turns a media request into a single item run or a collection run
type Runner struct {
	extractor  download.Extractor
	items      *ItemPipeline
	controller *Controller
	pool       *worker.Pool
	notifier   Notifier
	workDir    string
	cookieFile string
	logger     zerolog.Logger
}

// NewRunner creates a request runner
func NewRunner(cfg RunnerConfig) *Runner {
	return &Runner{
		extractor:  cfg.Extractor,
		items:      cfg.Items,
		controller: cfg.Controller,
		pool:       cfg.Pool,
		notifier:   cfg.Notifier,
		workDir:    cfg.WorkDir,
		cookieFile: cfg.CookieFile,
		logger:     xlog.WithComponent("runner"),
	}
}

// Handle probes req and runs it to completion. It is safe for concurrent use;
// each call owns its status line and artifacts.
func (r *Runner) Handle(ctx context.Context, req model.MediaRequest, sess Session) Result {
	logger := r.logger.With().
		Str(xlog.FieldURL, req.SourceURL).
		Str(xlog.FieldQuality, string(req.Quality)).
		Logger()
	status := NewStatusLine(sess.Reporter)
	status.Set(ctx, MsgPreparing)

	opts := download.NewOptions(req.Quality, r.workDir, r.cookieFile)

	meta, err := worker.Run(ctx, r.pool, func(ctx context.Context) (model.MediaMetadata, error) {
		return r.extractor.Probe(ctx, req.SourceURL, opts)
	})
	if err != nil {
		if download.IsAuthRequired(err) {
			logger.Warn().Err(err).Msg("probe requires sign-in")
			status.Set(ctx, MsgAuthProbe)
			r.notify(ctx, fmt.Sprintf(notifyProbeAuth, req.SourceURL))
		} else {
			logger.Warn().Err(err).Msg("probe failed")
			status.Set(ctx, ProbeFailed(err))
		}
		return Result{Err: err}
	}

	if meta.IsCollection() {
		summary := r.controller.Run(ctx, meta, opts, sess, status)
		return Result{Kind: model.MediaKindCollection, Summary: summary}
	}

	out := r.items.Run(ctx, ItemRequest{
		URL:     req.SourceURL,
		Title:   meta.Title,
		Options: opts,
	}, sess.Sink, status)

	switch out.Kind {
	case model.OutcomeDelivered:
		status.Clear(ctx)
	case model.OutcomeSkipped:
		status.Set(ctx, out.Reason)
	case model.OutcomeFailed:
		switch Kind(out.Err) {
		case KindAuthRequired:
			status.Set(ctx, MsgAuthFetch)
			r.notify(ctx, fmt.Sprintf(notifyFetchAuth, req.SourceURL))
		case KindMissingArtifact:
			status.Set(ctx, MsgMissingArtifact)
		default:
			status.Set(ctx, DownloadFailed(out.Err))
		}
	}
	return Result{Kind: model.MediaKindSingle, Outcome: out}
}

// notify reaches the operator, ignoring failures
func (r *Runner) notify(ctx context.Context, text string) {
	if r.notifier == nil {
		return
	}
	if err := r.notifier.NotifyOperator(ctx, text); err != nil {
		r.logger.Debug().Err(err).Msg("operator notification failed")
	}
}
