package download

import (
	"fmt"

	"github.com/ytget/yt-bot/internal/model"
)

// Format selection expressions understood by yt-dlp
const (
	FormatBestMerged    = "bestvideo+bestaudio/best"
	formatCappedPattern = "bestvideo[height<=%d]+bestaudio/best[height<=%d]"
)

// SelectFormat maps a quality tier to a yt-dlp format expression. A numeric
// tier caps the height of the video stream and of the combined fallback.
// auto, best and unrecognised tiers select the best available streams.
func SelectFormat(tier model.QualityTier) string {
	h := tier.Height()
	if h <= 0 {
		return FormatBestMerged
	}
	return fmt.Sprintf(formatCappedPattern, h, h)
}
