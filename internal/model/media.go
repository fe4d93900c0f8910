package model

import (
	"fmt"
	"path/filepath"
	"strings"
)

// MediaKind tells whether a probed source is a single item or a collection
type MediaKind string

const (
	MediaKindSingle     MediaKind = "single"
	MediaKindCollection MediaKind = "collection"
)

// WatchURLTemplate synthesises a canonical item URL from a bare video id
const WatchURLTemplate = "https://www.youtube.com/watch?v=%s"

// ItemDescriptor is one declared entry of a probed source
type ItemDescriptor struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	WebpageURL string `json:"webpage_url,omitempty"`
	URL        string `json:"url,omitempty"`
}

// CanonicalURL resolves the URL to fetch the item from: the explicit webpage
// URL first, then the entry URL, then one synthesised from the id. The second
// result is false when nothing can be resolved.
func (d ItemDescriptor) CanonicalURL() (string, bool) {
	if u := strings.TrimSpace(d.WebpageURL); u != "" {
		return u, true
	}
	if u := strings.TrimSpace(d.URL); u != "" {
		return u, true
	}
	if id := strings.TrimSpace(d.ID); id != "" {
		return fmt.Sprintf(WatchURLTemplate, id), true
	}
	return "", false
}

// MediaMetadata is the result of a non-downloading probe
type MediaMetadata struct {
	Title   string
	Kind    MediaKind
	Entries []ItemDescriptor
}

// ItemCount returns the number of declared entries
func (m MediaMetadata) ItemCount() int {
	return len(m.Entries)
}

// IsCollection reports whether the source fans out into several items
func (m MediaMetadata) IsCollection() bool {
	return m.Kind == MediaKindCollection
}

// LocalArtifact is a file produced by fetch or transcode. It is owned by the
// pipeline invocation that created it and removed before that invocation ends.
type LocalArtifact struct {
	Path string
	Size int64
	Ext  string
}

// NewLocalArtifact builds an artifact, deriving the container extension from the path
func NewLocalArtifact(path string, size int64) LocalArtifact {
	return LocalArtifact{
		Path: path,
		Size: size,
		Ext:  strings.TrimPrefix(filepath.Ext(path), "."),
	}
}

// Fits reports whether the artifact is within budget bytes
func (a LocalArtifact) Fits(budget int64) bool {
	return a.Size <= budget
}

// Name returns the file name without directory
func (a LocalArtifact) Name() string {
	return filepath.Base(a.Path)
}
