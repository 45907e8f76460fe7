// Package mailbox reads and answers the monitored support inbox. The live
// client speaks the Microsoft Graph mail API with app-only credentials; the
// demo client serves a fixed in-memory inbox.
package mailbox

import (
	"context"
	"errors"
	"strings"

	"github.com/simplebalance89-ai/c365-cs-agent/internal/models"
)

var (
	ErrNotFound     = errors.New("message not found")
	ErrUnauthorized = errors.New("mailbox credentials rejected")
	ErrUnavailable  = errors.New("mailbox service unavailable")
)

type Client interface {
	// ListUnread returns unread inbox messages, newest first.
	ListUnread(ctx context.Context, limit int) ([]models.Email, error)
	GetMessage(ctx context.Context, id string) (*models.Email, error)
	// ThreadMessages returns every message of a mail thread oldest first.
	ThreadMessages(ctx context.Context, threadID string) ([]models.Email, error)
	// SendReply answers the given message on its thread.
	SendReply(ctx context.Context, messageID, subject, body string) error
	MarkRead(ctx context.Context, messageID string) error
	CheckConnection(ctx context.Context) error
}

// ThreadConversation converts thread emails into conversation messages.
// Mail sent from the monitored address reads as the agent side.
func ThreadConversation(emails []models.Email, serviceAddr string) []models.Message {
	messages := make([]models.Message, 0, len(emails))
	for _, e := range emails {
		msg := models.Message{
			Author:    e.Sender.Name,
			Role:      models.RoleCustomer,
			Body:      e.Body,
			Timestamp: e.ReceivedAt,
		}
		if strings.EqualFold(e.Sender.Email, serviceAddr) {
			msg.Role = models.RoleAgent
		}
		if msg.Author == "" {
			msg.Author = e.Sender.Email
		}
		messages = append(messages, msg)
	}
	return messages
}
