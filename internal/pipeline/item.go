package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ytget/yt-bot/internal/compress"
	"github.com/ytget/yt-bot/internal/download"
	xlog "github.com/ytget/yt-bot/internal/log"
	"github.com/ytget/yt-bot/internal/metrics"
	"github.com/ytget/yt-bot/internal/model"
	"github.com/ytget/yt-bot/internal/platform"
	"github.com/ytget/yt-bot/internal/worker"
)

// ItemRequest describes one item to run through the pipeline
type ItemRequest struct {
	URL     string
	Title   string
	Options download.Options
	Index   int // 1-based position in a collection, 0 for a single item
	Total   int // collection size, 0 for a single item
}

// ItemConfig wires the item pipeline
type ItemConfig struct {
	Extractor   download.Extractor
	Enforcer    *compress.Enforcer
	Pool        *worker.Pool
	MinFreeDisk uint64 // 0 disables the preflight
}

// ItemPipeline runs probe → fetch → size check → deliver for one item
type ItemPipeline struct {
	extractor   download.Extractor
	enforcer    *compress.Enforcer
	pool        *worker.Pool
	minFreeDisk uint64
	freeBytes   func(ctx context.Context, dir string) (uint64, error)
	newKey      func(title string) string
	logger      zerolog.Logger
}

// NewItemPipeline creates an item pipeline
func NewItemPipeline(cfg ItemConfig) *ItemPipeline {
	pool := cfg.Pool
	if pool == nil {
		pool = worker.NewPool(worker.DefaultSize)
	}
	return &ItemPipeline{
		extractor:   cfg.Extractor,
		enforcer:    cfg.Enforcer,
		pool:        pool,
		minFreeDisk: cfg.MinFreeDisk,
		freeBytes:   platform.FreeBytes,
		newKey:      platform.NewArtifactKey,
		logger:      xlog.WithComponent("item"),
	}
}

// itemRun tracks the state of one invocation
type itemRun struct {
	req    ItemRequest
	key    string
	state  model.ItemState
	status *StatusLine
	logger zerolog.Logger
}

func (r *itemRun) advance(ctx context.Context, next model.ItemState, text string) {
	if !r.state.CanAdvanceTo(next) {
		r.logger.Error().Str(xlog.FieldState, string(r.state)).Str("next", string(next)).Msg("invalid state transition")
		return
	}
	r.state = next
	r.logger.Debug().Str(xlog.FieldState, string(next)).Msg("state changed")
	if text != "" {
		r.status.Set(ctx, text)
	}
}

// Run processes req and returns its terminal outcome. Every file created for
// the item is removed before Run returns, whatever the outcome.
func (p *ItemPipeline) Run(ctx context.Context, req ItemRequest, sink Sink, status *StatusLine) (out model.ItemOutcome) {
	run := &itemRun{
		req:    req,
		key:    p.newKey(req.Title),
		state:  model.ItemStateProbed,
		status: status,
	}
	run.logger = p.logger.With().
		Str(xlog.FieldItemKey, run.key).
		Str(xlog.FieldURL, req.URL).
		Logger()
	if req.Total > 0 {
		run.logger = run.logger.With().Int(xlog.FieldIndex, req.Index).Int(xlog.FieldTotal, req.Total).Logger()
	}

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			run.logger.Error().Interface("panic", r).Msg("item pipeline panicked")
			out = model.Failed(fmt.Errorf("internal error: %v", r))
		}
		p.cleanup(run)
		run.state = model.ItemStateDone
		out = out.WithItem(req.Title, req.URL)
		p.record(run, out, time.Since(start))
	}()

	// Fetching
	run.advance(ctx, model.ItemStateFetching, fetchText(req, 0))
	if err := p.preflight(ctx, req.Options.WorkDir); err != nil {
		return model.Failed(err)
	}
	progress := throttle(func(pct int) { status.Set(ctx, fetchText(req, pct)) })
	artifact, err := worker.Run(ctx, p.pool, func(ctx context.Context) (model.LocalArtifact, error) {
		return p.extractor.Fetch(ctx, req.URL, req.Options, run.key, download.ProgressFunc(progress))
	})
	if err != nil {
		return model.Failed(err)
	}

	// SizeChecking
	run.advance(ctx, model.ItemStateSizeChecking, progressText(req, MsgCheckingSize))
	var rungProgress func(int)
	onRung := func(height, pct int) {
		if pct == 0 {
			rungProgress = throttle(func(pct int) { status.Set(ctx, transcodeText(req, height, pct)) })
			status.Set(ctx, transcodeText(req, height, 0))
			return
		}
		if rungProgress != nil {
			rungProgress(pct)
		}
	}
	accepted, err := worker.Run(ctx, p.pool, func(ctx context.Context) (model.LocalArtifact, error) {
		return p.enforcer.Enforce(ctx, artifact, onRung)
	})
	if err != nil {
		if isRejection(err) {
			return model.Skipped(SizeRejected(err))
		}
		return model.Failed(err)
	}

	// Delivering
	run.advance(ctx, model.ItemStateDelivering, progressText(req, MsgUploading))
	title := req.Title
	if title == "" {
		title = accepted.Name()
	}
	caption := Caption(title, accepted.Size)
	if err := p.deliver(ctx, sink, accepted.Path, caption, run.logger); err != nil {
		return model.Failed(err)
	}
	return model.Delivered(caption)
}

// preflight refuses a fetch when the work directory is short on space
func (p *ItemPipeline) preflight(ctx context.Context, dir string) error {
	if p.minFreeDisk == 0 {
		return nil
	}
	if err := platform.CreateDirectoryIfNotExists(dir); err != nil {
		return fmt.Errorf("failed to create work dir: %w", err)
	}
	free, err := p.freeBytes(ctx, dir)
	if err != nil {
		p.logger.Debug().Err(err).Str(xlog.FieldPath, dir).Msg("free space check failed")
		return nil
	}
	if free < p.minFreeDisk {
		return fmt.Errorf("%w: %s free, %s required", ErrLowDisk,
			platform.HumanSize(int64(free)), platform.HumanSize(int64(p.minFreeDisk)))
	}
	return nil
}

// deliver sends as media, falling back once to a document send
func (p *ItemPipeline) deliver(ctx context.Context, sink Sink, path, caption string, logger zerolog.Logger) error {
	err := sink.SendMedia(ctx, path, caption)
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}

	metrics.DeliveryFallbacks.Inc()
	logger.Info().Err(err).Msg("media send refused, sending as document")

	if derr := sink.SendDocument(ctx, path, caption); derr != nil {
		return fmt.Errorf("%w: %w", ErrDeliveryFailed, derr)
	}
	return nil
}

// cleanup removes every file belonging to the item key
func (p *ItemPipeline) cleanup(run *itemRun) {
	removed, err := platform.RemoveByKey(run.req.Options.WorkDir, run.key)
	if err != nil {
		run.logger.Warn().Err(err).Msg("failed to clean up item files")
		return
	}
	if len(removed) > 0 {
		run.logger.Debug().Strs("paths", removed).Msg("item files removed")
	}
}

func (p *ItemPipeline) record(run *itemRun, out model.ItemOutcome, elapsed time.Duration) {
	metrics.ItemOutcomes.WithLabelValues(string(out.Kind)).Inc()

	ev := run.logger.Info()
	switch out.Kind {
	case model.OutcomeFailed:
		kind := Kind(out.Err)
		metrics.ItemErrors.WithLabelValues(string(kind)).Inc()
		if kind == KindAuthRequired || kind == KindExtraction {
			ev = run.logger.Warn()
		} else {
			ev = run.logger.Error()
		}
		ev = ev.Err(out.Err).Str("error_type", string(kind))
	case model.OutcomeSkipped:
		ev = ev.Str("reason", out.Reason)
	}
	ev.Str(xlog.FieldOutcome, string(out.Kind)).
		Dur(xlog.FieldDuration, elapsed).
		Msg("item finished")
}
