package telegram

import (
	"context"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	xlog "github.com/ytget/yt-bot/internal/log"
	"github.com/ytget/yt-bot/internal/model"
	"github.com/ytget/yt-bot/internal/pipeline"
)

// Bot replies
const (
	StartText = "👋 *YouTube Downloader*\n" +
		"Send a YouTube video/short/playlist link.\n" +
		"Admin: set `COOKIES_FILE` secret and `YTDLP_COOKIES=/app/cookies.txt` if sign-in required."
	HelpText = "Send a YouTube link (video/short/playlist). Other links are ignored."
)

const (
	commandStart = "/start"
	commandHelp  = "/help"
	markdownMode = "Markdown"
)

// youTubeHosts are the substrings that mark a message as a YouTube link
var youTubeHosts = []string{"youtube.com", "youtu.be"}

// RequestRunner runs one media request to completion
type RequestRunner interface {
	Handle(ctx context.Context, req model.MediaRequest, sess pipeline.Session) pipeline.Result
}

// HandlerConfig wires a Handler
type HandlerConfig struct {
	Client  *Client
	Runner  RequestRunner
	Quality model.QualityTier // used when a message names no tier
}

// Handler routes inbound updates. Media requests run on their own goroutine
// so the update source is never blocked by a download.
type Handler struct {
	client  *Client
	runner  RequestRunner
	quality model.QualityTier

	ctx    context.Context
	cancel context.CancelFunc
	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
	logger zerolog.Logger
}

// NewHandler creates a handler. Requests run under a context owned by the
// handler, detached from the transport that delivered the update.
func NewHandler(cfg HandlerConfig) *Handler {
	ctx, cancel := context.WithCancel(context.Background())
	quality := cfg.Quality
	if quality == "" {
		quality = model.DefaultQualityTier
	}
	return &Handler{
		client:  cfg.Client,
		runner:  cfg.Runner,
		quality: quality,
		ctx:     ctx,
		cancel:  cancel,
		logger:  xlog.WithComponent("telegram.handler"),
	}
}

// HandleUpdate routes one update
func (h *Handler) HandleUpdate(u Update) {
	msg := u.Message
	if msg == nil || msg.Chat == nil {
		return
	}
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return
	}
	logger := h.logger.With().Int64(xlog.FieldChatID, msg.Chat.ID).Logger()

	switch command(text) {
	case commandStart:
		h.reply(msg, StartText, markdownMode)
		return
	case commandHelp:
		h.reply(msg, HelpText, "")
		return
	}

	req, ok := parseRequest(text, h.quality)
	if !ok {
		logger.Debug().Msg("ignoring message without a youtube link")
		return
	}

	logger.Info().
		Str(xlog.FieldURL, req.SourceURL).
		Str(xlog.FieldQuality, req.Quality.String()).
		Msg("media request")

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		logger.Warn().Str(xlog.FieldURL, req.SourceURL).Msg("shutting down, request dropped")
		return
	}
	h.wg.Add(1)
	h.mu.Unlock()

	sess := NewChatSession(h.client, msg.Chat.ID, msg.MessageID).Session()
	go func() {
		defer h.wg.Done()
		res := h.runner.Handle(h.ctx, req, sess)
		ev := logger.Info()
		if res.Failed() {
			ev = logger.Warn()
		}
		ev.Str(xlog.FieldURL, req.SourceURL).
			Str("kind", string(res.Kind)).
			Bool("failed", res.Failed()).
			Msg("media request finished")
	}()
}

func (h *Handler) reply(msg *Message, text, parseMode string) {
	if _, err := h.client.SendMessage(h.ctx, msg.Chat.ID, text, 0, parseMode); err != nil {
		h.logger.Warn().Err(err).Int64(xlog.FieldChatID, msg.Chat.ID).Msg("reply failed")
	}
}

// Shutdown waits for in-flight requests. When ctx ends first the remaining
// requests are canceled and awaited.
func (h *Handler) Shutdown(ctx context.Context) error {
	h.mu.Lock()
	h.closed = true
	h.mu.Unlock()

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		h.cancel()
		return nil
	case <-ctx.Done():
		h.cancel()
		<-done
		return ctx.Err()
	}
}

// command returns the bot command a message starts with, without any
// @botname suffix, or "" for plain text
func command(text string) string {
	if !strings.HasPrefix(text, "/") {
		return ""
	}
	word, _, _ := strings.Cut(text, " ")
	word, _, _ = strings.Cut(word, "@")
	return strings.ToLower(word)
}

// isYouTubeLink reports whether s points at YouTube
func isYouTubeLink(s string) bool {
	s = strings.ToLower(s)
	for _, host := range youTubeHosts {
		if strings.Contains(s, host) {
			return true
		}
	}
	return false
}

// parseRequest extracts the first YouTube link in text and an optional
// quality token right after it ("<url> 720").
func parseRequest(text string, fallback model.QualityTier) (model.MediaRequest, bool) {
	fields := strings.Fields(text)
	for i, f := range fields {
		if !isYouTubeLink(f) {
			continue
		}
		quality := fallback
		if i+1 < len(fields) {
			if q, ok := model.ParseQualityTier(fields[i+1]); ok {
				quality = q
			}
		}
		return model.NewMediaRequest(f, quality), true
	}
	return model.MediaRequest{}, false
}
