package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/ytget/yt-bot/internal/model"
	"github.com/ytget/yt-bot/internal/worker"
)

// EnvPrefix prefixes environment variables for keys without a legacy name
const EnvPrefix = "YTBOT"

// Settings keys
const (
	KeyBotToken         = "bot_token"
	KeyAppURL           = "app_url"
	KeyPort             = "port"
	KeyCookiesPath      = "cookies_path"
	KeyCookiesSecret    = "cookies_secret"
	KeyOwnerID          = "owner_id"
	KeyWorkDir          = "work_dir"
	KeyQuality          = "quality"
	KeyWorkers          = "workers"
	KeyProbeTimeout     = "probe_timeout"
	KeyFetchTimeout     = "fetch_timeout"
	KeyTranscodeTimeout = "transcode_timeout"
	KeyItemInterval     = "item_interval"
	KeyMinFreeDisk      = "min_free_disk"
	KeyYTDLPPath        = "ytdlp_path"
	KeyFFmpegPath       = "ffmpeg_path"
	KeyFFprobePath      = "ffprobe_path"
	KeyTelegramAPI      = "telegram_api"
	KeyLogLevel         = "logging.level"
	KeyLogFormat        = "logging.format"
)

// legacyEnv maps keys to the environment names used by existing deployments
var legacyEnv = map[string]string{
	KeyBotToken:      "BOT_TOKEN",
	KeyAppURL:        "APP_URL",
	KeyPort:          "PORT",
	KeyCookiesPath:   "YTDLP_COOKIES",
	KeyCookiesSecret: "COOKIES_FILE",
	KeyOwnerID:       "OWNER_ID",
}

// Default values
const (
	DefaultPort             = 8000
	DefaultCookiesPath      = "/app/cookies.txt"
	DefaultProbeTimeout     = 2 * time.Minute
	DefaultFetchTimeout     = 30 * time.Minute
	DefaultTranscodeTimeout = 90 * time.Minute
	DefaultMinFreeDisk      = "4GB"
	DefaultTelegramAPI      = "https://api.telegram.org"
	DefaultLogLevel         = "info"
	DefaultLogFormat        = "json"
	WorkDirName             = "ytbot"
)

// ErrMissingToken is returned when serving without a bot token.
var ErrMissingToken = errors.New("BOT_TOKEN is required")

// Settings is the process configuration, loaded once at startup
type Settings struct {
	BotToken      string
	AppURL        string
	Port          int
	CookiesPath   string
	CookiesSecret string
	OwnerID       int64

	WorkDir          string
	Quality          model.QualityTier
	Workers          int
	ProbeTimeout     time.Duration
	FetchTimeout     time.Duration
	TranscodeTimeout time.Duration
	ItemInterval     time.Duration
	MinFreeDisk      uint64

	YTDLPPath   string
	FFmpegPath  string
	FFprobePath string
	TelegramAPI string

	LogLevel  string
	LogFormat string
}

// SetDefaults registers defaults on v
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyPort, DefaultPort)
	v.SetDefault(KeyCookiesPath, DefaultCookiesPath)
	v.SetDefault(KeyWorkDir, filepath.Join(os.TempDir(), WorkDirName))
	v.SetDefault(KeyQuality, string(model.DefaultQualityTier))
	v.SetDefault(KeyWorkers, worker.DefaultSize)
	v.SetDefault(KeyProbeTimeout, DefaultProbeTimeout)
	v.SetDefault(KeyFetchTimeout, DefaultFetchTimeout)
	v.SetDefault(KeyTranscodeTimeout, DefaultTranscodeTimeout)
	v.SetDefault(KeyItemInterval, time.Duration(0))
	v.SetDefault(KeyMinFreeDisk, DefaultMinFreeDisk)
	v.SetDefault(KeyTelegramAPI, DefaultTelegramAPI)
	v.SetDefault(KeyLogLevel, DefaultLogLevel)
	v.SetDefault(KeyLogFormat, DefaultLogFormat)
}

// BindEnv wires environment variables: legacy names for the original keys,
// YTBOT_* for everything else.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	for key, env := range legacyEnv {
		_ = v.BindEnv(key, env, EnvPrefix+"_"+strings.ToUpper(key))
	}
}

// Load reads Settings from v
func Load(v *viper.Viper) (Settings, error) {
	quality, ok := model.ParseQualityTier(v.GetString(KeyQuality))
	if !ok {
		return Settings{}, fmt.Errorf("invalid quality %q", v.GetString(KeyQuality))
	}

	s := Settings{
		BotToken:         strings.TrimSpace(v.GetString(KeyBotToken)),
		AppURL:           strings.TrimRight(strings.TrimSpace(v.GetString(KeyAppURL)), "/"),
		Port:             v.GetInt(KeyPort),
		CookiesPath:      strings.TrimSpace(v.GetString(KeyCookiesPath)),
		CookiesSecret:    v.GetString(KeyCookiesSecret),
		OwnerID:          v.GetInt64(KeyOwnerID),
		WorkDir:          strings.TrimSpace(v.GetString(KeyWorkDir)),
		Quality:          quality,
		Workers:          worker.ClampSize(v.GetInt(KeyWorkers)),
		ProbeTimeout:     v.GetDuration(KeyProbeTimeout),
		FetchTimeout:     v.GetDuration(KeyFetchTimeout),
		TranscodeTimeout: v.GetDuration(KeyTranscodeTimeout),
		ItemInterval:     v.GetDuration(KeyItemInterval),
		MinFreeDisk:      uint64(v.GetSizeInBytes(KeyMinFreeDisk)),
		YTDLPPath:        strings.TrimSpace(v.GetString(KeyYTDLPPath)),
		FFmpegPath:       strings.TrimSpace(v.GetString(KeyFFmpegPath)),
		FFprobePath:      strings.TrimSpace(v.GetString(KeyFFprobePath)),
		TelegramAPI:      strings.TrimRight(strings.TrimSpace(v.GetString(KeyTelegramAPI)), "/"),
		LogLevel:         v.GetString(KeyLogLevel),
		LogFormat:        v.GetString(KeyLogFormat),
	}

	if s.Port <= 0 || s.Port > 65535 {
		return Settings{}, fmt.Errorf("invalid port %d", s.Port)
	}
	if s.WorkDir == "" {
		return Settings{}, errors.New("work_dir must not be empty")
	}
	return s, nil
}

// RequireBot checks the settings needed by the chat front end
func (s Settings) RequireBot() error {
	if s.BotToken == "" {
		return ErrMissingToken
	}
	return nil
}

// UseWebhook reports whether updates arrive by webhook rather than polling
func (s Settings) UseWebhook() bool {
	return s.AppURL != ""
}

// WebhookPath is the route Telegram posts updates to
func (s Settings) WebhookPath() string {
	return "/webhook/" + s.BotToken
}

// WebhookURL is the public URL registered with Telegram
func (s Settings) WebhookURL() string {
	return s.AppURL + s.WebhookPath()
}

// ListenAddr is the HTTP listen address
func (s Settings) ListenAddr() string {
	return fmt.Sprintf(":%d", s.Port)
}
