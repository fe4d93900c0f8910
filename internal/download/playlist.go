package download

import (
	"context"
	"fmt"
	"strings"
	"time"

	ytlist "github.com/ytget/ytdlp/v2"

	"github.com/ytget/yt-bot/internal/model"
)

// DefaultPlaylistTimeout bounds one playlist enumeration
const DefaultPlaylistTimeout = 60 * time.Second

// URL parameters
const (
	PlaylistParam  = "list="
	ParamSeparator = "&"
)

// Playlist title constants
const (
	DefaultPlaylistName = "Untitled Playlist"
	MinPrefixLength     = 10
	PlaylistSuffix      = " Playlist"
)

// playlistItem is the subset of a listed playlist entry used here
type playlistItem struct {
	VideoID string
	Title   string
}

type listFunc func(ctx context.Context, playlistID string) ([]playlistItem, error)

// Lister enumerates YouTube playlists through the innertube client
type Lister struct {
	timeout time.Duration
	list    listFunc
}

var _ PlaylistLister = (*Lister)(nil)

// NewLister creates a playlist lister with the default timeout
func NewLister() *Lister {
	return &Lister{
		timeout: DefaultPlaylistTimeout,
		list:    listYTGet,
	}
}

// SetTimeout sets the timeout for listing operations
func (l *Lister) SetTimeout(timeout time.Duration) {
	l.timeout = timeout
}

// ListPlaylist returns the playlist behind url as collection metadata
func (l *Lister) ListPlaylist(ctx context.Context, url string) (model.MediaMetadata, error) {
	playlistID := extractPlaylistID(url)
	if playlistID == "" {
		return model.MediaMetadata{}, fmt.Errorf("could not extract playlist ID from URL: %s", url)
	}

	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	items, err := l.list(ctx, playlistID)
	if err != nil {
		return model.MediaMetadata{}, fmt.Errorf("failed to get playlist items: %w", err)
	}

	entries := make([]model.ItemDescriptor, 0, len(items))
	for _, it := range items {
		d := model.ItemDescriptor{ID: it.VideoID, Title: strings.TrimSpace(it.Title)}
		if it.VideoID != "" {
			d.URL = fmt.Sprintf(model.WatchURLTemplate, it.VideoID)
		}
		entries = append(entries, d)
	}

	return model.MediaMetadata{
		Title:   playlistTitle(entries),
		Kind:    model.MediaKindCollection,
		Entries: entries,
	}, nil
}

func listYTGet(ctx context.Context, playlistID string) ([]playlistItem, error) {
	items, err := ytlist.New().GetPlaylistItemsAll(ctx, playlistID, 0)
	if err != nil {
		return nil, err
	}
	out := make([]playlistItem, 0, len(items))
	for _, it := range items {
		out = append(out, playlistItem{VideoID: it.VideoID, Title: it.Title})
	}
	return out, nil
}

// isPlaylistURL reports whether url carries a playlist id
func isPlaylistURL(url string) bool {
	return extractPlaylistID(url) != ""
}

// extractPlaylistID extracts the list parameter from watch and playlist URLs
func extractPlaylistID(url string) string {
	_, after, ok := strings.Cut(url, PlaylistParam)
	if !ok {
		return ""
	}
	id, _, _ := strings.Cut(after, ParamSeparator)
	return id
}

// playlistTitle derives a title from the common prefix of the first two entries
func playlistTitle(entries []model.ItemDescriptor) string {
	if len(entries) == 0 || entries[0].Title == "" {
		return DefaultPlaylistName
	}
	first := entries[0].Title
	if len(entries) > 1 {
		prefix := commonPrefix(first, entries[1].Title)
		if len(prefix) > MinPrefixLength {
			return strings.TrimSpace(prefix) + PlaylistSuffix
		}
	}
	return first + PlaylistSuffix
}

func commonPrefix(s1, s2 string) string {
	n := min(len(s1), len(s2))
	for i := 0; i < n; i++ {
		if s1[i] != s2[i] {
			return s1[:i]
		}
	}
	return s1[:n]
}
