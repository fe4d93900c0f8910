package download

import (
	"context"
	"path/filepath"

	"github.com/ytget/yt-bot/internal/model"
)

// Extractor defines the interface for the media extractor adapter.
type Extractor interface {
	// Probe resolves metadata without downloading or touching the filesystem.
	Probe(ctx context.Context, url string, opts Options) (model.MediaMetadata, error)

	// Fetch downloads url into opts.WorkDir under the stem key. It blocks
	// until the download finishes or fails; partial files are removed on error.
	Fetch(ctx context.Context, url string, opts Options, key string, progress ProgressFunc) (model.LocalArtifact, error)
}

// PlaylistLister enumerates a playlist by id without the extractor binary.
type PlaylistLister interface {
	ListPlaylist(ctx context.Context, url string) (model.MediaMetadata, error)
}

// ProgressFunc receives download progress as a 0..100 percentage.
type ProgressFunc func(percent int)

// Options is the immutable per-request extractor option set.
type Options struct {
	Format      string // format selection expression, see SelectFormat
	MergeFormat string // container used when video and audio are merged
	WorkDir     string // directory receiving artifacts
	CookieFile  string // optional; used only when the file exists at call time
}

// DefaultMergeFormat is the merge container requested from the extractor
const DefaultMergeFormat = "mp4"

// NewOptions builds the option set for one request
func NewOptions(tier model.QualityTier, workDir, cookieFile string) Options {
	return Options{
		Format:      SelectFormat(tier),
		MergeFormat: DefaultMergeFormat,
		WorkDir:     workDir,
		CookieFile:  cookieFile,
	}
}

// OutputTemplate returns the extractor output template for an artifact key
func (o Options) OutputTemplate(key string) string {
	return filepath.Join(o.WorkDir, key+".%(ext)s")
}
