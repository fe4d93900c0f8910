package download

// Package download adapts the yt-dlp extractor (via github.com/lrstanley/go-ytdlp)
// to the pipeline: a cheap non-downloading probe that yields MediaMetadata, a
// blocking fetch that yields a LocalArtifact under a per-item unique name, the
// quality tier to format expression mapping, and the classification of raw
// extractor errors. YouTube playlists that the probe cannot enumerate fall
// back to github.com/ytget/ytdlp/v2.
