package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// DefaultCallTimeout bounds every non-upload Bot API call
const DefaultCallTimeout = 30 * time.Second

// Update is an inbound Bot API update. Only message updates are used.
type Update struct {
	UpdateID int64    `json:"update_id"`
	Message  *Message `json:"message,omitempty"`
}

// Message is the subset of a Bot API message the bot reads
type Message struct {
	MessageID int64  `json:"message_id"`
	Chat      *Chat  `json:"chat,omitempty"`
	From      *User  `json:"from,omitempty"`
	Text      string `json:"text,omitempty"`
}

// Chat identifies the conversation a message belongs to
type Chat struct {
	ID   int64  `json:"id"`
	Type string `json:"type,omitempty"`
}

// User is the sender of a message
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username,omitempty"`
}

type okResponse struct {
	OK          bool            `json:"ok"`
	ErrorCode   int             `json:"error_code,omitempty"`
	Description string          `json:"description,omitempty"`
	Result      json.RawMessage `json:"result,omitempty"`
}

// RequestError is a Bot API call that returned a non-2xx status or ok=false
type RequestError struct {
	Method      string
	StatusCode  int
	ErrorCode   int
	Description string
	Body        string
}

func (e *RequestError) Error() string {
	if e == nil {
		return ""
	}
	if e.Description != "" {
		return fmt.Sprintf("telegram %s: http %d: %s", e.Method, e.StatusCode, e.Description)
	}
	if e.Body != "" {
		return fmt.Sprintf("telegram %s: http %d: %s", e.Method, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("telegram %s: http %d", e.Method, e.StatusCode)
}

// code prefers the Bot API error_code and falls back to the HTTP status
func (e *RequestError) code() int {
	if e.ErrorCode != 0 {
		return e.ErrorCode
	}
	return e.StatusCode
}

// IsRejected reports whether Telegram refused the request itself (4xx other
// than rate limiting), as opposed to a transport or server failure.
func IsRejected(err error) bool {
	var re *RequestError
	if !errors.As(err, &re) {
		return false
	}
	c := re.code()
	return c >= 400 && c < 500 && c != http.StatusTooManyRequests
}

// isNotModified matches the edit error for unchanged text
func isNotModified(err error) bool {
	var re *RequestError
	return errors.As(err, &re) && strings.Contains(strings.ToLower(re.Description), "message is not modified")
}

// Client is a minimal Bot API client
type Client struct {
	http        *http.Client
	baseURL     string
	token       string
	callTimeout time.Duration
}

// NewClient creates a client for token against baseURL (the public API or a
// local Bot API server). httpClient may be nil. Uploads rely on the caller's
// context for their deadline, so the default client has no global timeout.
func NewClient(httpClient *http.Client, baseURL, token string) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}
	return &Client{
		http:        httpClient,
		baseURL:     baseURL,
		token:       token,
		callTimeout: DefaultCallTimeout,
	}
}

func (c *Client) endpoint(method string) string {
	return fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)
}

// call posts a JSON body to method and decodes result into out when non-nil
func (c *Client) call(ctx context.Context, method string, body any, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	b, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(method), bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, method, out)
}

func (c *Client) do(req *http.Request, method string, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	var ok okResponse
	decodeErr := json.Unmarshal(raw, &ok)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 || decodeErr != nil || !ok.OK {
		return &RequestError{
			Method:      method,
			StatusCode:  resp.StatusCode,
			ErrorCode:   ok.ErrorCode,
			Description: strings.TrimSpace(ok.Description),
			Body:        strings.TrimSpace(string(raw)),
		}
	}
	if out != nil && len(ok.Result) > 0 {
		if err := json.Unmarshal(ok.Result, out); err != nil {
			return fmt.Errorf("telegram %s: decode result: %w", method, err)
		}
	}
	return nil
}

type sendMessageRequest struct {
	ChatID                   int64  `json:"chat_id"`
	Text                     string `json:"text"`
	ParseMode                string `json:"parse_mode,omitempty"`
	ReplyToMessageID         int64  `json:"reply_to_message_id,omitempty"`
	AllowSendingWithoutReply bool   `json:"allow_sending_without_reply,omitempty"`
	DisableWebPagePreview    bool   `json:"disable_web_page_preview,omitempty"`
}

// SendMessage sends text and returns the new message id. replyTo and
// parseMode are optional.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string, replyTo int64, parseMode string) (int64, error) {
	var msg Message
	err := c.call(ctx, "sendMessage", sendMessageRequest{
		ChatID:                   chatID,
		Text:                     text,
		ParseMode:                parseMode,
		ReplyToMessageID:         replyTo,
		AllowSendingWithoutReply: replyTo != 0,
		DisableWebPagePreview:    true,
	}, &msg)
	if err != nil {
		return 0, err
	}
	return msg.MessageID, nil
}

type editMessageTextRequest struct {
	ChatID                int64  `json:"chat_id"`
	MessageID             int64  `json:"message_id"`
	Text                  string `json:"text"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview,omitempty"`
}

// EditMessageText replaces the text of a sent message. Editing to the same
// text is not an error.
func (c *Client) EditMessageText(ctx context.Context, chatID, messageID int64, text string) error {
	err := c.call(ctx, "editMessageText", editMessageTextRequest{
		ChatID:                chatID,
		MessageID:             messageID,
		Text:                  text,
		DisableWebPagePreview: true,
	}, nil)
	if isNotModified(err) {
		return nil
	}
	return err
}

type deleteMessageRequest struct {
	ChatID    int64 `json:"chat_id"`
	MessageID int64 `json:"message_id"`
}

// DeleteMessage removes a message
func (c *Client) DeleteMessage(ctx context.Context, chatID, messageID int64) error {
	return c.call(ctx, "deleteMessage", deleteMessageRequest{ChatID: chatID, MessageID: messageID}, nil)
}

type setWebhookRequest struct {
	URL                string   `json:"url"`
	DropPendingUpdates bool     `json:"drop_pending_updates,omitempty"`
	AllowedUpdates     []string `json:"allowed_updates,omitempty"`
}

// SetWebhook registers url for update delivery
func (c *Client) SetWebhook(ctx context.Context, webhookURL string, dropPending bool) error {
	return c.call(ctx, "setWebhook", setWebhookRequest{
		URL:                webhookURL,
		DropPendingUpdates: dropPending,
		AllowedUpdates:     []string{"message"},
	}, nil)
}

// DeleteWebhook removes the registered webhook
func (c *Client) DeleteWebhook(ctx context.Context) error {
	return c.call(ctx, "deleteWebhook", struct{}{}, nil)
}

// GetUpdates long-polls for updates starting at offset. It returns the
// updates and the offset to use for the next call.
func (c *Client) GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]Update, int64, error) {
	secs := int(timeout / time.Second)
	if secs < 0 {
		secs = 0
	}
	ctx, cancel := context.WithTimeout(ctx, timeout+5*time.Second)
	defer cancel()

	q := url.Values{}
	q.Set("timeout", strconv.Itoa(secs))
	q.Set("offset", strconv.FormatInt(offset, 10))
	q.Set("allowed_updates", `["message"]`)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint("getUpdates")+"?"+q.Encode(), nil)
	if err != nil {
		return nil, offset, err
	}

	var updates []Update
	if err := c.do(req, "getUpdates", &updates); err != nil {
		return nil, offset, err
	}
	next := offset
	for _, u := range updates {
		if u.UpdateID >= next {
			next = u.UpdateID + 1
		}
	}
	return updates, next, nil
}

// SendVideo uploads path as a streamable video
func (c *Client) SendVideo(ctx context.Context, chatID int64, path, caption string, replyTo int64) error {
	return c.upload(ctx, "sendVideo", "video", chatID, path, caption, replyTo, map[string]string{
		"supports_streaming": "true",
	})
}

// SendDocument uploads path as a generic file
func (c *Client) SendDocument(ctx context.Context, chatID int64, path, caption string, replyTo int64) error {
	return c.upload(ctx, "sendDocument", "document", chatID, path, caption, replyTo, nil)
}

// upload streams path as a multipart form without buffering it in memory
func (c *Client) upload(ctx context.Context, method, field string, chatID int64, path, caption string, replyTo int64, extra map[string]string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	done := make(chan struct{})

	go func() {
		defer close(done)
		err := func() error {
			if err := mw.WriteField("chat_id", strconv.FormatInt(chatID, 10)); err != nil {
				return err
			}
			if caption != "" {
				if err := mw.WriteField("caption", caption); err != nil {
					return err
				}
			}
			if replyTo != 0 {
				if err := mw.WriteField("reply_to_message_id", strconv.FormatInt(replyTo, 10)); err != nil {
					return err
				}
				if err := mw.WriteField("allow_sending_without_reply", "true"); err != nil {
					return err
				}
			}
			for k, v := range extra {
				if err := mw.WriteField(k, v); err != nil {
					return err
				}
			}
			part, err := mw.CreateFormFile(field, filepath.Base(path))
			if err != nil {
				return err
			}
			if _, err := io.Copy(part, f); err != nil {
				return err
			}
			return mw.Close()
		}()
		_ = pw.CloseWithError(err)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(method), pr)
	if err != nil {
		_ = pr.CloseWithError(err)
		<-done
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	err = c.do(req, method, nil)
	// unblock the writer if the request ended before the body was consumed
	_ = pr.CloseWithError(io.ErrClosedPipe)
	<-done
	return err
}
