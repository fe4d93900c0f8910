package model

import (
	"strconv"
	"strings"
)

// QualityTier is the requested output quality for a media request
type QualityTier string

const (
	QualityAuto QualityTier = "auto"
	Quality360  QualityTier = "360"
	Quality480  QualityTier = "480"
	Quality720  QualityTier = "720"
	Quality1080 QualityTier = "1080"
	QualityBest QualityTier = "best"
)

// DefaultQualityTier is used when a request does not name a tier
const DefaultQualityTier = QualityAuto

// QualityTiers returns the recognised tiers in menu order
func QualityTiers() []QualityTier {
	return []QualityTier{QualityAuto, Quality360, Quality480, Quality720, Quality1080, QualityBest}
}

// ParseQualityTier normalises a user token ("720", "720p", "BEST") into a tier.
// The second result is false when the token is not a recognised tier.
func ParseQualityTier(s string) (QualityTier, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimSuffix(s, "p")
	for _, tier := range QualityTiers() {
		if string(tier) == s {
			return tier, true
		}
	}
	return QualityTier(s), false
}

// Height returns the numeric height cap of the tier, or 0 for auto/best and
// unrecognised values
func (q QualityTier) Height() int {
	switch q {
	case Quality360, Quality480, Quality720, Quality1080:
		h, err := strconv.Atoi(string(q))
		if err != nil {
			return 0
		}
		return h
	default:
		return 0
	}
}

// String returns the string representation of QualityTier
func (q QualityTier) String() string {
	return string(q)
}

// MediaRequest is one inbound request to retrieve and deliver media
type MediaRequest struct {
	SourceURL string
	Quality   QualityTier
}

// NewMediaRequest builds a request, defaulting an empty tier to auto
func NewMediaRequest(sourceURL string, quality QualityTier) MediaRequest {
	if quality == "" {
		quality = DefaultQualityTier
	}
	return MediaRequest{
		SourceURL: strings.TrimSpace(sourceURL),
		Quality:   quality,
	}
}
