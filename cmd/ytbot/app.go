package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ytget/yt-bot/internal/compress"
	"github.com/ytget/yt-bot/internal/config"
	"github.com/ytget/yt-bot/internal/download"
	xlog "github.com/ytget/yt-bot/internal/log"
	"github.com/ytget/yt-bot/internal/pipeline"
	"github.com/ytget/yt-bot/internal/platform"
	"github.com/ytget/yt-bot/internal/worker"
)

// app holds the pipeline shared by serve and fetch
type app struct {
	runner *pipeline.Runner
	pool   *worker.Pool
}

func newApp(s config.Settings, notifier pipeline.Notifier, logger zerolog.Logger) (*app, error) {
	if err := platform.CreateDirectoryIfNotExists(s.WorkDir); err != nil {
		return nil, fmt.Errorf("create work dir: %w", err)
	}

	extractor := download.NewService(download.ServiceConfig{
		Executable:   s.YTDLPPath,
		ProbeTimeout: s.ProbeTimeout,
		FetchTimeout: s.FetchTimeout,
		Lister:       download.NewLister(),
	})

	transcoder := compress.NewFFmpeg(compress.Config{
		FFmpegPath:  s.FFmpegPath,
		FFprobePath: s.FFprobePath,
		Timeout:     s.TranscodeTimeout,
	})
	if !transcoder.Available() {
		logger.Warn().Msg("ffmpeg not found, oversized media will be skipped")
	}
	enforcer := compress.NewEnforcer(compress.NewLadder(transcoder), compress.DefaultBudget)

	pool := worker.NewPool(s.Workers)
	items := pipeline.NewItemPipeline(pipeline.ItemConfig{
		Extractor:   extractor,
		Enforcer:    enforcer,
		Pool:        pool,
		MinFreeDisk: s.MinFreeDisk,
	})
	runner := pipeline.NewRunner(pipeline.RunnerConfig{
		Extractor:  extractor,
		Items:      items,
		Controller: pipeline.NewController(items, s.ItemInterval),
		Pool:       pool,
		Notifier:   notifier,
		WorkDir:    s.WorkDir,
		CookieFile: s.CookiesPath,
	})

	logger.Info().
		Str("work_dir", s.WorkDir).
		Int("workers", pool.Size()).
		Str(xlog.FieldQuality, s.Quality.String()).
		Str(xlog.FieldBudget, platform.HumanSize(enforcer.Budget())).
		Msg("pipeline ready")
	return &app{runner: runner, pool: pool}, nil
}

func (a *app) close(ctx context.Context) error {
	return a.pool.Close(ctx)
}

// materializeCookies writes the cookie secret, if any, and logs what the
// extractor will find at the cookie path
func materializeCookies(s config.Settings, logger zerolog.Logger) {
	info, err := config.WriteCookieSecret(s.CookiesPath, s.CookiesSecret)
	switch {
	case err != nil:
		logger.Error().Err(err).Str(xlog.FieldPath, s.CookiesPath).Msg("failed to write cookie secret")
	case s.CookiesSecret != "" && info.Present:
		logger.Info().
			Str(xlog.FieldPath, info.Path).
			Int64(xlog.FieldBytes, info.Bytes).
			Int("lines", info.Lines).
			Msg("wrote cookie secret")
	case info.Present:
		logger.Info().Str(xlog.FieldPath, info.Path).Int64(xlog.FieldBytes, info.Bytes).Msg("cookies file present at startup")
	default:
		logger.Info().Str(xlog.FieldPath, info.Path).Msg("no cookies file found at configured path")
	}
}
