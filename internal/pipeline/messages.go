package pipeline

import (
	"fmt"
	"strings"

	"github.com/ytget/yt-bot/internal/platform"
)

// Status texts shown to the requester
const (
	MsgPreparing       = "📥 Preparing to download..."
	MsgDownloading     = "📥 Downloading video..."
	MsgCheckingSize    = "📦 Checking file size..."
	MsgUploading       = "📤 Uploading..."
	MsgMissingArtifact = "❌ Download finished but file not found."
	MsgAuthProbe       = "⚠️ This video requires YouTube sign-in. Admin must provide cookies (set COOKIES_FILE secret and YTDLP_COOKIES=/app/cookies.txt)."
	MsgAuthFetch       = "⚠️ Download blocked: YouTube requests sign-in. Admin: provide cookies and set YTDLP_COOKIES."
)

// Operator notices
const (
	notifyProbeAuth = "yt-dlp probe needs cookies for URL: %s"
	notifyFetchAuth = "yt-dlp error (cookies required) for URL: %s"
)

// Caption formats the delivery caption
func Caption(title string, size int64) string {
	return fmt.Sprintf("🎬 %s — %s", title, platform.HumanSize(size))
}

// ProbeFailed is the status after a non-auth probe failure
func ProbeFailed(err error) string {
	return "❌ Failed to read link: " + errText(err)
}

// DownloadFailed is the status after a single item failed
func DownloadFailed(err error) string {
	return "❌ Error while downloading: " + errText(err)
}

// EntryFailed is the inline reply for a failed collection entry
func EntryFailed(err error) string {
	return "⚠️ Failed to download entry: " + errText(err)
}

// EntrySkipped is the inline reply for a rejected collection entry
func EntrySkipped(title, reason string) string {
	return fmt.Sprintf("⚠️ Skipped %q: %s", title, reason)
}

// PlaylistDetected announces a collection run
func PlaylistDetected(n int) string {
	return fmt.Sprintf("📋 Playlist detected: %d items. Starting...", n)
}

// SizeRejected explains a size rejection
func SizeRejected(err error) string {
	reason := "⚠️ File is too large to send"
	if Kind(err) == KindTranscodeUnavailable {
		reason += " and no transcoder is available to shrink it"
	}
	return reason + ". Choose a lower quality or host the file externally."
}

// progressText prefixes a phase text with the entry position for collections
func progressText(req ItemRequest, text string) string {
	if req.Total <= 0 {
		return text
	}
	return fmt.Sprintf("(%d/%d) %s", req.Index, req.Total, text)
}

func fetchText(req ItemRequest, pct int) string {
	var text string
	if req.Total > 0 {
		text = fmt.Sprintf("📥 (%d/%d) downloading...", req.Index, req.Total)
	} else {
		text = MsgDownloading
	}
	if pct > 0 {
		text += fmt.Sprintf(" %d%%", pct)
	}
	return text
}

func transcodeText(req ItemRequest, height, pct int) string {
	text := fmt.Sprintf("🗜 Re-encoding to %dp...", height)
	if pct > 0 {
		text += fmt.Sprintf(" %d%%", pct)
	}
	return progressText(req, text)
}

func errText(err error) string {
	if err == nil {
		return "unknown error"
	}
	return strings.TrimSpace(err.Error())
}
