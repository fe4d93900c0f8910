package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/renameio/v2"

	"github.com/ytget/yt-bot/internal/platform"
)

// CookieFilePermissions keeps the credential file private to the process user
const CookieFilePermissions = 0600

// CookieInfo describes the cookie file on disk
type CookieInfo struct {
	Path    string
	Present bool
	Bytes   int64
	Lines   int
}

// WriteCookieSecret atomically writes secret to path. A blank secret writes
// nothing. The returned info describes the file at path afterwards.
func WriteCookieSecret(path, secret string) (CookieInfo, error) {
	if strings.TrimSpace(secret) == "" {
		return InspectCookies(path)
	}
	if path == "" {
		return CookieInfo{}, fmt.Errorf("cookie secret given but cookie path is empty")
	}
	if err := platform.CreateDirectoryIfNotExists(filepath.Dir(path)); err != nil {
		return CookieInfo{}, fmt.Errorf("create cookie dir: %w", err)
	}

	pendingFile, err := renameio.NewPendingFile(path, renameio.WithPermissions(CookieFilePermissions))
	if err != nil {
		return CookieInfo{}, fmt.Errorf("create pending cookie file: %w", err)
	}
	defer func() { _ = pendingFile.Cleanup() }()

	if _, err := pendingFile.WriteString(secret); err != nil {
		return CookieInfo{}, fmt.Errorf("write cookie data: %w", err)
	}
	if err := pendingFile.CloseAtomicallyReplace(); err != nil {
		return CookieInfo{}, fmt.Errorf("atomically replace cookie file: %w", err)
	}
	return InspectCookies(path)
}

// InspectCookies reports whether path exists and its size and line count
func InspectCookies(path string) (CookieInfo, error) {
	info := CookieInfo{Path: path}
	if !platform.Exists(path) {
		return info, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return info, fmt.Errorf("read cookie file: %w", err)
	}
	info.Present = true
	info.Bytes = int64(len(data))
	info.Lines = countLines(data)
	return info, nil
}

func countLines(data []byte) int {
	if len(data) == 0 {
		return 0
	}
	n := bytes.Count(data, []byte{'\n'})
	if data[len(data)-1] != '\n' {
		n++
	}
	return n
}
