package middleware

import (
	"context"
	"log/slog"
	"runtime/debug"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// Recover keeps a panicking handler from taking the poller down. The panic is
// logged with the update and chat it came from.
func Recover() bot.Middleware {
	return func(next bot.HandlerFunc) bot.HandlerFunc {
		return func(ctx context.Context, b *bot.Bot, update *models.Update) {
			defer func() {
				if r := recover(); r != nil {
					chatID, _ := updateChat(update)
					slog.Error("panic recovered in handler",
						"update_id", update.ID,
						"chat_id", chatID,
						"panic", r,
						"stack", string(debug.Stack()),
					)
				}
			}()
			next(ctx, b, update)
		}
	}
}

// updateChat returns the chat of the message an update carries, if any.
func updateChat(update *models.Update) (int64, models.ChatType) {
	switch {
	case update.Message != nil:
		return update.Message.Chat.ID, update.Message.Chat.Type
	case update.EditedMessage != nil:
		return update.EditedMessage.Chat.ID, update.EditedMessage.Chat.Type
	case update.ChannelPost != nil:
		return update.ChannelPost.Chat.ID, update.ChannelPost.Chat.Type
	}
	return 0, ""
}
