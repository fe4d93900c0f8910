package platform

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
)

// Naming constants
const (
	MaxSlugLength      = 40
	DefaultSlug        = "media"
	TranscodeSuffixFmt = "-%dp"
	TranscodeExtension = ".mp4"
)

// NewArtifactKey returns a file name stem unique to one item run. The stem
// combines a readable slug of the title with a UUID v7, so two items running
// at the same time never share a path even when their titles match.
func NewArtifactKey(title string) string {
	id, err := uuid.NewV7()
	if err != nil {
		// Fallback to timestamp if UUID generation fails
		return fmt.Sprintf("%s-%d", Slugify(title), time.Now().UnixNano())
	}
	return Slugify(title) + "-" + id.String()
}

// Slugify reduces a title to a short filesystem-safe token
func Slugify(title string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(title) {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
			lastDash = false
		case !lastDash:
			b.WriteByte('-')
			lastDash = true
		}
		if b.Len() >= MaxSlugLength {
			break
		}
	}
	slug := strings.Trim(b.String(), "-")
	if slug == "" {
		return DefaultSlug
	}
	return slug
}

// TranscodePath derives the output path for a downscale of source to height.
// The path keeps the source stem, so distinct sources and distinct heights
// never collide.
func TranscodePath(source string, height int) string {
	ext := filepath.Ext(source)
	stem := strings.TrimSuffix(source, ext)
	return stem + fmt.Sprintf(TranscodeSuffixFmt, height) + TranscodeExtension
}
