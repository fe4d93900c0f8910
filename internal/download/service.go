package download

import (
	"context"
	"fmt"
	"time"

	"github.com/lrstanley/go-ytdlp"
	"github.com/rs/zerolog"

	xlog "github.com/ytget/yt-bot/internal/log"
	"github.com/ytget/yt-bot/internal/metrics"
	"github.com/ytget/yt-bot/internal/model"
	"github.com/ytget/yt-bot/internal/platform"
)

// Timeout defaults
const (
	DefaultProbeTimeout = 2 * time.Minute
	DefaultFetchTimeout = 30 * time.Minute
)

// ProgressInterval is how often yt-dlp progress is sampled during a fetch
const ProgressInterval = 500 * time.Millisecond

// invocation describes one extractor call independently of the yt-dlp binding.
type invocation struct {
	URL            string
	Probe          bool
	Format         string
	MergeFormat    string
	OutputTemplate string
	CookieFile     string
	Progress       ProgressFunc
}

type runResult struct {
	Stdout string
	Stderr string
}

type runFunc func(ctx context.Context, inv invocation) (runResult, error)

// ServiceConfig configures the extractor adapter
type ServiceConfig struct {
	Executable   string // optional explicit yt-dlp path
	ProbeTimeout time.Duration
	FetchTimeout time.Duration
	Lister       PlaylistLister // optional playlist fallback
}

// Service is the yt-dlp backed Extractor
type Service struct {
	probeTimeout time.Duration
	fetchTimeout time.Duration
	lister       PlaylistLister
	run          runFunc
	logger       zerolog.Logger
}

var _ Extractor = (*Service)(nil)

// NewService creates a new extractor service
func NewService(cfg ServiceConfig) *Service {
	return newService(cfg, runYTDLP(cfg.Executable))
}

func newService(cfg ServiceConfig, run runFunc) *Service {
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = DefaultProbeTimeout
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = DefaultFetchTimeout
	}
	return &Service{
		probeTimeout: cfg.ProbeTimeout,
		fetchTimeout: cfg.FetchTimeout,
		lister:       cfg.Lister,
		run:          run,
		logger:       xlog.WithComponent("extractor"),
	}
}

// Probe resolves metadata for url without downloading
func (s *Service) Probe(ctx context.Context, url string, opts Options) (model.MediaMetadata, error) {
	ctx, cancel := context.WithTimeout(ctx, s.probeTimeout)
	defer cancel()

	start := time.Now()
	res, err := s.run(ctx, invocation{
		URL:        url,
		Probe:      true,
		CookieFile: cookieIfPresent(opts.CookieFile),
	})
	metrics.ExtractorDuration.WithLabelValues("probe").Observe(time.Since(start).Seconds())

	if err != nil {
		perr := &ExtractionError{Op: "probe", URL: url, Message: errorMessage(res.Stderr, err), Err: err}
		if !IsAuthRequired(perr) {
			if meta, ok := s.listFallback(ctx, url); ok {
				return meta, nil
			}
		}
		return model.MediaMetadata{}, perr
	}

	meta, err := parseProbeOutput(res.Stdout)
	if err != nil {
		return model.MediaMetadata{}, &ExtractionError{
			Op:      "probe",
			URL:     url,
			Message: fmt.Sprintf("failed to parse extractor output: %v", err),
			Err:     err,
		}
	}

	if meta.IsCollection() && meta.ItemCount() == 0 {
		if listed, ok := s.listFallback(ctx, url); ok {
			if meta.Title != "" && meta.Title != DefaultTitle {
				listed.Title = meta.Title
			}
			return listed, nil
		}
	}

	s.logger.Debug().
		Str(xlog.FieldURL, url).
		Str("kind", string(meta.Kind)).
		Int(xlog.FieldTotal, meta.ItemCount()).
		Msg("probe finished")
	return meta, nil
}

// listFallback asks the playlist lister for playlist URLs the probe could not enumerate
func (s *Service) listFallback(ctx context.Context, url string) (model.MediaMetadata, bool) {
	if s.lister == nil || !isPlaylistURL(url) {
		return model.MediaMetadata{}, false
	}
	meta, err := s.lister.ListPlaylist(ctx, url)
	if err != nil {
		s.logger.Debug().Err(err).Str(xlog.FieldURL, url).Msg("playlist fallback failed")
		return model.MediaMetadata{}, false
	}
	if meta.ItemCount() == 0 {
		return model.MediaMetadata{}, false
	}
	return meta, true
}

// Fetch downloads url into opts.WorkDir as <key>.<ext>
func (s *Service) Fetch(ctx context.Context, url string, opts Options, key string, progress ProgressFunc) (model.LocalArtifact, error) {
	if err := platform.CreateDirectoryIfNotExists(opts.WorkDir); err != nil {
		return model.LocalArtifact{}, fmt.Errorf("failed to create work dir: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()

	start := time.Now()
	res, err := s.run(ctx, invocation{
		URL:            url,
		Format:         opts.Format,
		MergeFormat:    opts.MergeFormat,
		OutputTemplate: opts.OutputTemplate(key),
		CookieFile:     cookieIfPresent(opts.CookieFile),
		Progress:       progress,
	})
	metrics.ExtractorDuration.WithLabelValues("fetch").Observe(time.Since(start).Seconds())

	if err != nil {
		s.discard(opts.WorkDir, key)
		return model.LocalArtifact{}, &ExtractionError{Op: "fetch", URL: url, Message: errorMessage(res.Stderr, err), Err: err}
	}

	path, err := platform.FindArtifact(opts.WorkDir, key)
	if err != nil {
		s.discard(opts.WorkDir, key)
		return model.LocalArtifact{}, fmt.Errorf("%w: fetch of %s: %v", model.ErrMissingArtifact, url, err)
	}
	size, err := platform.FileSize(path)
	if err != nil {
		s.discard(opts.WorkDir, key)
		return model.LocalArtifact{}, fmt.Errorf("%w: %v", model.ErrMissingArtifact, err)
	}

	s.logger.Debug().
		Str(xlog.FieldItemKey, key).
		Str(xlog.FieldPath, path).
		Int64(xlog.FieldBytes, size).
		Dur(xlog.FieldDuration, time.Since(start)).
		Msg("fetch finished")
	return model.NewLocalArtifact(path, size), nil
}

// discard removes whatever a failed fetch left for key
func (s *Service) discard(dir, key string) {
	removed, err := platform.RemoveByKey(dir, key)
	if err != nil {
		s.logger.Warn().Err(err).Str(xlog.FieldItemKey, key).Msg("failed to remove partial download")
		return
	}
	if len(removed) > 0 {
		s.logger.Debug().Strs("paths", removed).Msg("removed partial download")
	}
}

// cookieIfPresent returns path when the cookie file exists at call time
func cookieIfPresent(path string) string {
	if platform.Exists(path) {
		return path
	}
	return ""
}

// runYTDLP binds invocations to the yt-dlp command builder
func runYTDLP(executable string) runFunc {
	return func(ctx context.Context, inv invocation) (runResult, error) {
		dl := ytdlp.New().NoWarnings()
		if executable != "" {
			dl.SetExecutable(executable)
		}
		if inv.CookieFile != "" {
			dl.Cookies(inv.CookieFile)
		}

		if inv.Probe {
			dl.Quiet().DumpSingleJSON().FlatPlaylist()
		} else {
			dl.NoPlaylist().
				ForceOverwrites().
				Format(inv.Format).
				MergeOutputFormat(inv.MergeFormat).
				Output(inv.OutputTemplate)

			if inv.Progress != nil {
				dl.ProgressFunc(ProgressInterval, func(update ytdlp.ProgressUpdate) {
					if update.TotalBytes > 0 {
						inv.Progress(int(float64(update.DownloadedBytes) / float64(update.TotalBytes) * 100))
					}
				})
			}
		}

		res, err := dl.Run(ctx, inv.URL)
		var out runResult
		if res != nil {
			out.Stdout = res.Stdout
			out.Stderr = res.Stderr
		}
		return out, err
	}
}
