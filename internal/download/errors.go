package download

import (
	"errors"
	"strings"
)

var (
	// ErrExtraction marks every error raised by a probe or fetch call.
	ErrExtraction = errors.New("extraction failed")

	// ErrAuthRequired matches extraction errors whose text asks for a signed-in session.
	ErrAuthRequired = errors.New("extractor requires authentication")
)

// authPhrases are matched case-insensitively against raw extractor messages.
// This is a wording heuristic: yt-dlp exposes no structured error code for
// sign-in walls, so a change in upstream wording silently disables detection.
var authPhrases = []string{
	"sign in",
	"use --cookies",
	"confirm you're not a bot",
}

// ExtractionError carries the raw extractor message of a failed probe or fetch.
type ExtractionError struct {
	Op      string // "probe" or "fetch"
	URL     string
	Message string
	Err     error
}

func (e *ExtractionError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "extraction failed"
}

func (e *ExtractionError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrExtraction}
	}
	return []error{ErrExtraction, e.Err}
}

// Is lets errors.Is(err, ErrAuthRequired) run the phrase heuristic.
func (e *ExtractionError) Is(target error) bool {
	return target == ErrAuthRequired && IsAuthMessage(e.Message)
}

// IsAuthMessage reports whether msg contains a known sign-in-required phrase.
func IsAuthMessage(msg string) bool {
	msg = strings.ToLower(msg)
	for _, phrase := range authPhrases {
		if strings.Contains(msg, phrase) {
			return true
		}
	}
	return false
}

// IsAuthRequired reports whether err is an extraction error asking for sign-in.
func IsAuthRequired(err error) bool {
	return errors.Is(err, ErrAuthRequired)
}

// errorMessage picks the most useful line of extractor stderr: the last
// "ERROR:" line when present, else the last non-empty line.
func errorMessage(stderr string, fallback error) string {
	var last, lastError string
	for _, line := range strings.Split(stderr, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		last = line
		if strings.HasPrefix(line, "ERROR:") {
			lastError = line
		}
	}
	switch {
	case lastError != "":
		return lastError
	case last != "":
		return last
	case fallback != nil:
		return fallback.Error()
	default:
		return ""
	}
}
