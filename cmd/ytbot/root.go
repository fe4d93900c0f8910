package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ytget/yt-bot/internal/config"
	xlog "github.com/ytget/yt-bot/internal/log"
)

// Execute runs the root command
func Execute() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "ytbot",
		Short:        "Fetch YouTube media and deliver it within a size budget",
		SilenceUsage: true,
	}

	cobra.OnInitialize(initConfig)

	flags := cmd.PersistentFlags()
	flags.String("config", "", "Config file path (optional).")
	flags.String("log-level", "", "Logging level: debug|info|warn|error.")
	flags.String("log-format", "", "Logging format: json|console.")
	flags.String("work-dir", "", "Directory for downloads and transcodes.")
	flags.String("quality", "", "Default quality tier: auto|360|480|720|1080|best.")
	flags.Int("workers", 0, "Concurrent extraction and transcode jobs (1..10).")
	flags.String("ytdlp-path", "", "Path to the yt-dlp binary (default: from PATH).")
	flags.String("ffmpeg-path", "", "Path to the ffmpeg binary (default: from PATH).")
	flags.String("ffprobe-path", "", "Path to the ffprobe binary (default: from PATH).")
	flags.String("cookies", "", "Cookie file passed to yt-dlp when present.")

	bind := map[string]string{
		"config":       "config",
		"log-level":    config.KeyLogLevel,
		"log-format":   config.KeyLogFormat,
		"work-dir":     config.KeyWorkDir,
		"quality":      config.KeyQuality,
		"workers":      config.KeyWorkers,
		"ytdlp-path":   config.KeyYTDLPPath,
		"ffmpeg-path":  config.KeyFFmpegPath,
		"ffprobe-path": config.KeyFFprobePath,
		"cookies":      config.KeyCookiesPath,
	}
	for flag, key := range bind {
		_ = viper.BindPFlag(key, flags.Lookup(flag))
	}

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newFetchCmd())
	cmd.AddCommand(newVersionCmd())
	return cmd
}

func initConfig() {
	config.SetDefaults(viper.GetViper())
	config.BindEnv(viper.GetViper())

	cfgFile := strings.TrimSpace(viper.GetString("config"))
	if cfgFile == "" {
		return
	}
	viper.SetConfigFile(cfgFile)
	if err := viper.ReadInConfig(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Failed to read config: %v\n", err)
	}
}

// loadSettings reads the settings and installs the logger they describe
func loadSettings() (config.Settings, error) {
	s, err := config.Load(viper.GetViper())
	if err != nil {
		return config.Settings{}, fmt.Errorf("load config: %w", err)
	}
	xlog.Configure(xlog.Config{
		Level:   s.LogLevel,
		Format:  s.LogFormat,
		Output:  os.Stderr,
		Version: version,
	})
	return s, nil
}
