package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/ytget/yt-bot/internal/config"
	xlog "github.com/ytget/yt-bot/internal/log"
	"github.com/ytget/yt-bot/internal/telegram"
)

const (
	shutdownTimeout = 10 * time.Second
	// drainTimeout bounds how long in-flight requests may finish after a
	// shutdown signal before they are canceled
	drainTimeout = 2 * time.Minute
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the Telegram bot (webhook when APP_URL is set, long polling otherwise)",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSettings()
			if err != nil {
				return err
			}
			if err := s.RequireBot(); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, s)
		},
	}

	cmd.Flags().Int("port", config.DefaultPort, "HTTP listen port (health, metrics, webhook).")
	cmd.Flags().Duration("item-interval", 0, "Minimum pause between playlist entries.")
	_ = viper.BindPFlag(config.KeyPort, cmd.Flags().Lookup("port"))
	_ = viper.BindPFlag(config.KeyItemInterval, cmd.Flags().Lookup("item-interval"))
	return cmd
}

func serve(ctx context.Context, s config.Settings) error {
	logger := xlog.WithComponent("serve")
	materializeCookies(s, logger)

	client := telegram.NewClient(nil, s.TelegramAPI, s.BotToken)
	notifier := telegram.NewOperatorNotifier(client, s.OwnerID)

	a, err := newApp(s, notifier, logger)
	if err != nil {
		return err
	}
	handler := telegram.NewHandler(telegram.HandlerConfig{
		Client:  client,
		Runner:  a.runner,
		Quality: s.Quality,
	})

	srvCfg := telegram.ServerConfig{Addr: s.ListenAddr()}
	if s.UseWebhook() {
		srvCfg.WebhookPath = s.WebhookPath()
		srvCfg.Updates = handler
	}
	server := telegram.NewServer(srvCfg)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(server.ListenAndServe)
	g.Go(func() error {
		if !s.UseWebhook() {
			logger.Info().Msg("APP_URL not set, using long polling")
			notify(gctx, notifier, telegram.PollingNotice, logger)
			return telegram.NewPoller(client, handler).Run(gctx)
		}
		if err := telegram.RegisterWebhook(gctx, client, s.WebhookURL(), telegram.DefaultWebhookAttempts, telegram.DefaultWebhookDelay); err != nil {
			if gctx.Err() != nil {
				return nil
			}
			return err
		}
		notify(gctx, notifier, fmt.Sprintf(telegram.StartupNoticeFormat, s.WebhookURL()), logger)
		<-gctx.Done()
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if s.UseWebhook() {
			if err := client.DeleteWebhook(shutdownCtx); err != nil {
				logger.Warn().Err(err).Msg("delete webhook failed")
			}
		}
		srvErr := server.Shutdown(shutdownCtx)

		drainCtx, cancelDrain := context.WithTimeout(context.Background(), drainTimeout)
		defer cancelDrain()
		if err := handler.Shutdown(drainCtx); err != nil {
			logger.Warn().Err(err).Msg("in-flight requests canceled")
		}
		if err := a.close(drainCtx); err != nil {
			logger.Warn().Err(err).Msg("worker pool did not drain")
		}
		return srvErr
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info().Msg("stopped")
	return nil
}

func notify(ctx context.Context, n *telegram.OperatorNotifier, text string, logger zerolog.Logger) {
	if err := n.NotifyOperator(ctx, text); err != nil {
		logger.Warn().Err(err).Msg("operator notice failed")
	}
}
