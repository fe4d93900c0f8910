package download

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/ytget/yt-bot/internal/model"
)

// DefaultTitle is used when the extractor reports no title
const DefaultTitle = "Untitled"

// yt-dlp _type values that fan out into entries
const (
	typePlaylist   = "playlist"
	typeMultiVideo = "multi_video"
)

type probeEntry struct {
	Type       string `json:"_type"`
	ID         string `json:"id"`
	Title      string `json:"title"`
	WebpageURL string `json:"webpage_url"`
	URL        string `json:"url"`
}

type probeInfo struct {
	probeEntry
	Entries []*probeEntry `json:"entries"`
}

// parseProbeOutput decodes the single JSON document printed by a flat probe
func parseProbeOutput(stdout string) (model.MediaMetadata, error) {
	doc := lastJSONLine(stdout)
	if doc == "" {
		return model.MediaMetadata{}, errors.New("no JSON document in output")
	}

	var info probeInfo
	if err := json.Unmarshal([]byte(doc), &info); err != nil {
		return model.MediaMetadata{}, err
	}

	meta := model.MediaMetadata{
		Title: strings.TrimSpace(info.Title),
	}
	if meta.Title == "" {
		meta.Title = DefaultTitle
	}

	if info.Type == typePlaylist || info.Type == typeMultiVideo || len(info.Entries) > 0 {
		meta.Kind = model.MediaKindCollection
		meta.Entries = make([]model.ItemDescriptor, 0, len(info.Entries))
		for _, e := range info.Entries {
			if e == nil {
				// unavailable entries are kept so declared order and count hold
				meta.Entries = append(meta.Entries, model.ItemDescriptor{})
				continue
			}
			meta.Entries = append(meta.Entries, e.descriptor())
		}
		return meta, nil
	}

	meta.Kind = model.MediaKindSingle
	self := info.descriptor()
	if self.Title == "" {
		self.Title = meta.Title
	}
	meta.Entries = []model.ItemDescriptor{self}
	return meta, nil
}

func (e *probeEntry) descriptor() model.ItemDescriptor {
	return model.ItemDescriptor{
		ID:         e.ID,
		Title:      strings.TrimSpace(e.Title),
		WebpageURL: e.WebpageURL,
		URL:        e.URL,
	}
}

func lastJSONLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if strings.HasPrefix(line, "{") {
			return line
		}
	}
	return ""
}
