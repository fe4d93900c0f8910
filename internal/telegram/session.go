package telegram

import (
	"context"
	"fmt"

	"github.com/ytget/yt-bot/internal/pipeline"
)

// ChatSession delivers files and status messages into one chat, threaded
// as replies to the message that carried the request.
type ChatSession struct {
	client  *Client
	chatID  int64
	replyTo int64
}

var (
	_ pipeline.Sink     = (*ChatSession)(nil)
	_ pipeline.Reporter = (*ChatSession)(nil)
)

// NewChatSession binds a chat and the request message id
func NewChatSession(client *Client, chatID, replyTo int64) *ChatSession {
	return &ChatSession{
		client:  client,
		chatID:  chatID,
		replyTo: replyTo,
	}
}

// Session returns the pipeline ports backed by this chat
func (s *ChatSession) Session() pipeline.Session {
	return pipeline.Session{Sink: s, Reporter: s}
}

// SendMedia uploads path as a streamable video. A request Telegram refuses is
// reported as ErrDeliveryRejected.
func (s *ChatSession) SendMedia(ctx context.Context, path, caption string) error {
	err := s.client.SendVideo(ctx, s.chatID, path, caption, s.replyTo)
	if err != nil && IsRejected(err) {
		return fmt.Errorf("%w: %w", pipeline.ErrDeliveryRejected, err)
	}
	return err
}

// SendDocument uploads path as a plain file
func (s *ChatSession) SendDocument(ctx context.Context, path, caption string) error {
	err := s.client.SendDocument(ctx, s.chatID, path, caption, s.replyTo)
	if err != nil && IsRejected(err) {
		return fmt.Errorf("%w: %w", pipeline.ErrDeliveryRejected, err)
	}
	return err
}

// PostStatus sends a new status message
func (s *ChatSession) PostStatus(ctx context.Context, text string) (pipeline.StatusHandle, error) {
	id, err := s.client.SendMessage(ctx, s.chatID, text, s.replyTo, "")
	if err != nil {
		return 0, err
	}
	return pipeline.StatusHandle(id), nil
}

// UpdateStatus edits a status message in place
func (s *ChatSession) UpdateStatus(ctx context.Context, h pipeline.StatusHandle, text string) error {
	return s.client.EditMessageText(ctx, s.chatID, int64(h), text)
}

// ClearStatus deletes a status message
func (s *ChatSession) ClearStatus(ctx context.Context, h pipeline.StatusHandle) error {
	return s.client.DeleteMessage(ctx, s.chatID, int64(h))
}

// OperatorNotifier messages the bot owner. With no owner configured it does
// nothing.
type OperatorNotifier struct {
	client  *Client
	ownerID int64
}

var _ pipeline.Notifier = (*OperatorNotifier)(nil)

// NewOperatorNotifier creates a notifier for ownerID (0 disables it)
func NewOperatorNotifier(client *Client, ownerID int64) *OperatorNotifier {
	return &OperatorNotifier{client: client, ownerID: ownerID}
}

// NotifyOperator sends text to the owner
func (n *OperatorNotifier) NotifyOperator(ctx context.Context, text string) error {
	if n == nil || n.ownerID == 0 {
		return nil
	}
	_, err := n.client.SendMessage(ctx, n.ownerID, text, 0, "")
	return err
}
