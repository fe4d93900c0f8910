package compress

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	xlog "github.com/ytget/yt-bot/internal/log"
	"github.com/ytget/yt-bot/internal/model"
	"github.com/ytget/yt-bot/internal/platform"
)

// FFmpeg constants for transcode settings
const (
	// Video codec settings
	VideoCodec  = "libx264"
	VideoPreset = "medium"
	VideoCRF    = "23"

	// Audio codec settings
	AudioCodec   = "aac"
	AudioBitrate = "128k"

	// Container flags
	FastStartFlag = "+faststart"

	// Scale filter keeping an even width for the target height
	ScaleFilterFmt = "scale=-2:%d"

	// Executable and I/O constants
	FFmpegCommand       = "ffmpeg"
	FFprobeCommand      = "ffprobe"
	FFprobeLogLevel     = "error"
	FFprobeShowEntries  = "format=duration"
	FFprobeOutputFormat = "csv=p=0"
	ProgressPipeTarget  = "pipe:2"
	ProgressTimePrefix  = "out_time_us="
)

// DefaultTranscodeTimeout bounds one rung
const DefaultTranscodeTimeout = 90 * time.Minute

// stderrTailLines is how many diagnostic lines are kept for error messages
const stderrTailLines = 5

// Config configures the ffmpeg transcoder
type Config struct {
	FFmpegPath  string
	FFprobePath string
	Timeout     time.Duration
}

// FFmpeg runs the ffmpeg and ffprobe binaries
type FFmpeg struct {
	ffmpeg   string
	ffprobe  string
	timeout  time.Duration
	lookPath func(string) (string, error)
	logger   zerolog.Logger
}

var _ Transcoder = (*FFmpeg)(nil)

// NewFFmpeg creates a transcoder from cfg, filling in defaults
func NewFFmpeg(cfg Config) *FFmpeg {
	if cfg.FFmpegPath == "" {
		cfg.FFmpegPath = FFmpegCommand
	}
	if cfg.FFprobePath == "" {
		cfg.FFprobePath = FFprobeCommand
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTranscodeTimeout
	}
	return &FFmpeg{
		ffmpeg:   cfg.FFmpegPath,
		ffprobe:  cfg.FFprobePath,
		timeout:  cfg.Timeout,
		lookPath: exec.LookPath,
		logger:   xlog.WithComponent("transcoder"),
	}
}

// Available reports whether ffmpeg resolves on PATH
func (f *FFmpeg) Available() bool {
	_, err := f.lookPath(f.ffmpeg)
	return err == nil
}

// Transcode re-encodes input at the given height into output
func (f *FFmpeg) Transcode(ctx context.Context, input, output string, height int, progress ProgressFunc) error {
	if !platform.Exists(input) {
		return fmt.Errorf("input file does not exist: %s", input)
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	// Duration is only needed for progress, so a failed probe is not fatal
	duration, err := f.videoDuration(ctx, input)
	if err != nil {
		f.logger.Debug().Err(err).Str(xlog.FieldPath, input).Msg("duration probe failed")
	}

	cmd := exec.CommandContext(ctx, f.ffmpeg, BuildFFmpegArgs(input, output, height)...)
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("failed to create stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	// stderr must be drained before Wait closes it
	lines := monitorProgress(stderr, duration, progress)

	if err := cmd.Wait(); err != nil {
		_ = platform.RemoveQuietly(output)
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("ffmpeg at %dp timed out after %s", height, f.timeout)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("ffmpeg at %dp: %w: %s", height, err, strings.Join(lines, "; "))
	}

	if !platform.Exists(output) {
		return fmt.Errorf("%w: ffmpeg output %s", model.ErrMissingArtifact, output)
	}
	return nil
}

// BuildFFmpegArgs builds the ffmpeg command arguments
func BuildFFmpegArgs(inputPath, outputPath string, height int) []string {
	return []string{
		"-y",            // Overwrite output file
		"-i", inputPath, // Input file
		"-vf", fmt.Sprintf(ScaleFilterFmt, height), // Target height, aspect preserved
		"-c:v", VideoCodec, // Video codec
		"-preset", VideoPreset, // Encoding preset
		"-crf", VideoCRF, // Constant rate factor
		"-c:a", AudioCodec, // Audio codec
		"-b:a", AudioBitrate, // Audio bitrate
		"-movflags", FastStartFlag, // MP4 optimization
		"-progress", ProgressPipeTarget, // Progress to stderr
		"-nostats", // No stats output
		outputPath, // Output file
	}
}

// videoDuration gets the duration of a video file using ffprobe
func (f *FFmpeg) videoDuration(ctx context.Context, filePath string) (float64, error) {
	cmd := exec.CommandContext(ctx, f.ffprobe, "-v", FFprobeLogLevel, "-show_entries", FFprobeShowEntries, "-of", FFprobeOutputFormat, filePath)
	output, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("failed to run ffprobe: %w", err)
	}
	return parseDuration(string(output))
}

func parseDuration(s string) (float64, error) {
	duration, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse duration: %w", err)
	}
	return duration, nil
}

// monitorProgress reads ffmpeg -progress output until EOF, reporting
// percentages and returning the last diagnostic lines.
func monitorProgress(r io.Reader, totalDuration float64, progress ProgressFunc) []string {
	scanner := bufio.NewScanner(r)
	var tail []string
	last := -1

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		// Parse progress line: out_time_us=123456
		if strings.HasPrefix(line, ProgressTimePrefix) {
			if progress == nil || totalDuration <= 0 {
				continue
			}
			us, err := strconv.ParseInt(strings.TrimPrefix(line, ProgressTimePrefix), 10, 64)
			if err != nil {
				continue
			}
			pct := int(float64(us) / 1e6 / totalDuration * 100)
			pct = min(max(pct, 0), 100)
			if pct != last {
				last = pct
				progress(pct)
			}
			continue
		}

		// Other key=value lines belong to the progress block
		if strings.Contains(line, "=") && !strings.Contains(line, " ") {
			continue
		}
		tail = append(tail, line)
		if len(tail) > stderrTailLines {
			tail = tail[1:]
		}
	}
	return tail
}
