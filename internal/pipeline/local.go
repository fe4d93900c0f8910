package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/google/renameio/v2"
	"github.com/rs/zerolog"

	xlog "github.com/ytget/yt-bot/internal/log"
	"github.com/ytget/yt-bot/internal/platform"
)

// DirSink delivers artifacts by copying them into a directory
type DirSink struct {
	dir    string
	logger zerolog.Logger
}

var _ Sink = (*DirSink)(nil)

// NewDirSink creates a sink writing into dir
func NewDirSink(dir string) *DirSink {
	return &DirSink{dir: dir, logger: xlog.WithComponent("dir_sink")}
}

// SendMedia copies path into the output directory
func (s *DirSink) SendMedia(ctx context.Context, path, caption string) error {
	return s.copy(ctx, path, caption)
}

// SendDocument copies path into the output directory
func (s *DirSink) SendDocument(ctx context.Context, path, caption string) error {
	return s.copy(ctx, path, caption)
}

func (s *DirSink) copy(ctx context.Context, path, caption string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := platform.CreateDirectoryIfNotExists(s.dir); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}

	src, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open artifact: %w", err)
	}
	defer src.Close()

	dest := filepath.Join(s.dir, filepath.Base(path))
	pf, err := renameio.NewPendingFile(dest)
	if err != nil {
		return fmt.Errorf("failed to create pending file: %w", err)
	}
	defer func() { _ = pf.Cleanup() }()

	n, err := io.Copy(pf, src)
	if err != nil {
		return fmt.Errorf("failed to copy artifact: %w", err)
	}
	if err := pf.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("failed to commit artifact: %w", err)
	}

	s.logger.Info().
		Str(xlog.FieldPath, dest).
		Int64(xlog.FieldBytes, n).
		Str("caption", caption).
		Msg("artifact delivered")
	return nil
}

// LogReporter writes status lines to a logger instead of a chat
type LogReporter struct {
	logger zerolog.Logger
	next   atomic.Int64
}

var _ Reporter = (*LogReporter)(nil)

// NewLogReporter creates a reporter logging at info level
func NewLogReporter() *LogReporter {
	return &LogReporter{logger: xlog.WithComponent("status")}
}

func (r *LogReporter) PostStatus(_ context.Context, text string) (StatusHandle, error) {
	h := StatusHandle(r.next.Add(1))
	r.logger.Info().Int64("status_id", int64(h)).Msg(text)
	return h, nil
}

func (r *LogReporter) UpdateStatus(_ context.Context, h StatusHandle, text string) error {
	r.logger.Info().Int64("status_id", int64(h)).Msg(text)
	return nil
}

func (r *LogReporter) ClearStatus(_ context.Context, h StatusHandle) error {
	r.logger.Debug().Int64("status_id", int64(h)).Msg("status cleared")
	return nil
}
