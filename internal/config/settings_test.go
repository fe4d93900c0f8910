package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ytget/yt-bot/internal/model"
)

func newViper(t *testing.T) *viper.Viper {
	t.Helper()
	v := viper.New()
	SetDefaults(v)
	BindEnv(v)
	return v
}

func TestLoadDefaults(t *testing.T) {
	s, err := Load(newViper(t))
	require.NoError(t, err)

	assert.Equal(t, DefaultPort, s.Port)
	assert.Equal(t, DefaultCookiesPath, s.CookiesPath)
	assert.Equal(t, model.QualityAuto, s.Quality)
	assert.Equal(t, 2, s.Workers)
	assert.Equal(t, 2*time.Minute, s.ProbeTimeout)
	assert.Equal(t, 30*time.Minute, s.FetchTimeout)
	assert.Equal(t, 90*time.Minute, s.TranscodeTimeout)
	assert.Equal(t, time.Duration(0), s.ItemInterval)
	assert.Equal(t, uint64(4<<30), s.MinFreeDisk)
	assert.Equal(t, DefaultTelegramAPI, s.TelegramAPI)
	assert.Equal(t, filepath.Join(os.TempDir(), WorkDirName), s.WorkDir)
	assert.False(t, s.UseWebhook())
	assert.ErrorIs(t, s.RequireBot(), ErrMissingToken)
}

func TestLoadLegacyEnv(t *testing.T) {
	t.Setenv("BOT_TOKEN", "123:abc")
	t.Setenv("APP_URL", "https://bot.example.com/")
	t.Setenv("PORT", "9000")
	t.Setenv("YTDLP_COOKIES", "/data/cookies.txt")
	t.Setenv("COOKIES_FILE", "# Netscape HTTP Cookie File")
	t.Setenv("OWNER_ID", "42")

	s, err := Load(newViper(t))
	require.NoError(t, err)

	assert.Equal(t, "123:abc", s.BotToken)
	assert.NoError(t, s.RequireBot())
	assert.Equal(t, 9000, s.Port)
	assert.Equal(t, ":9000", s.ListenAddr())
	assert.Equal(t, "/data/cookies.txt", s.CookiesPath)
	assert.Equal(t, "# Netscape HTTP Cookie File", s.CookiesSecret)
	assert.Equal(t, int64(42), s.OwnerID)
	assert.True(t, s.UseWebhook())
	assert.Equal(t, "/webhook/123:abc", s.WebhookPath())
	assert.Equal(t, "https://bot.example.com/webhook/123:abc", s.WebhookURL())
}

func TestLoadPrefixedEnv(t *testing.T) {
	t.Setenv("YTBOT_WORKERS", "50")
	t.Setenv("YTBOT_QUALITY", "720p")
	t.Setenv("YTBOT_ITEM_INTERVAL", "3s")
	t.Setenv("YTBOT_LOGGING_LEVEL", "debug")
	t.Setenv("YTBOT_MIN_FREE_DISK", "512MB")

	s, err := Load(newViper(t))
	require.NoError(t, err)

	assert.Equal(t, 10, s.Workers)
	assert.Equal(t, model.Quality720, s.Quality)
	assert.Equal(t, 3*time.Second, s.ItemInterval)
	assert.Equal(t, "debug", s.LogLevel)
	assert.Equal(t, uint64(512<<20), s.MinFreeDisk)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  any
	}{
		{"quality", KeyQuality, "4k"},
		{"port", KeyPort, 70000},
		{"work dir", KeyWorkDir, " "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := newViper(t)
			v.Set(tt.key, tt.val)
			_, err := Load(v)
			assert.Error(t, err)
		})
	}
}

func TestWriteCookieSecret(t *testing.T) {
	t.Run("writes secret atomically", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "cookies.txt")

		info, err := WriteCookieSecret(path, "line1\nline2\nline3")
		require.NoError(t, err)
		assert.True(t, info.Present)
		assert.Equal(t, int64(17), info.Bytes)
		assert.Equal(t, 3, info.Lines)

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "line1\nline2\nline3", string(data))

		st, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(CookieFilePermissions), st.Mode().Perm())
	})

	t.Run("blank secret leaves existing file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "cookies.txt")
		require.NoError(t, os.WriteFile(path, []byte("a\nb\n"), 0o600))

		info, err := WriteCookieSecret(path, "  ")
		require.NoError(t, err)
		assert.True(t, info.Present)
		assert.Equal(t, 2, info.Lines)
	})

	t.Run("missing file is reported absent", func(t *testing.T) {
		info, err := InspectCookies(filepath.Join(t.TempDir(), "none.txt"))
		require.NoError(t, err)
		assert.False(t, info.Present)
	})
}
