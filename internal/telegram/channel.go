package telegram

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-telegram/bot/models"

	"github.com/set-night/tokobot/internal/domain"
)

// ConversationID is the conversation key of a Telegram chat.
func ConversationID(chatID int64) string {
	return strconv.FormatInt(chatID, 10)
}

// InboundFromUpdate maps a text message update. It returns false for
// updates that carry no text message.
func InboundFromUpdate(update *models.Update) (domain.InboundMessage, bool) {
	m := update.Message
	if m == nil || m.Text == "" {
		return domain.InboundMessage{}, false
	}

	return domain.InboundMessage{
		SenderID:   ConversationID(m.Chat.ID),
		Body:       m.Text,
		IsGroup:    m.Chat.Type != models.ChatTypePrivate,
		MessageID:  m.ID,
		ReceivedAt: time.Unix(int64(m.Date), 0),
	}, true
}

// Channel replies to conversations through the bot.
type Channel struct {
	sender MessageSender
}

func NewChannel(sender MessageSender) *Channel {
	return &Channel{sender: sender}
}

// Reply sends text to the chat identified by senderID.
func (c *Channel) Reply(ctx context.Context, senderID, text string) error {
	chatID, err := strconv.ParseInt(senderID, 10, 64)
	if err != nil {
		return fmt.Errorf("parse chat id %q: %w", senderID, err)
	}
	return SendLongMessage(ctx, c.sender, chatID, text, nil)
}
