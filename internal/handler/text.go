package handler

import (
	"context"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/set-night/tokobot/internal/domain"
	tg "github.com/set-night/tokobot/internal/telegram"
)

// HandleText forwards a non-command text message to the dispatcher. Group
// and system messages are dropped there.
func (h *Handler) HandleText(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || strings.HasPrefix(update.Message.Text, "/") {
		return
	}

	msg, ok := tg.InboundFromUpdate(update)
	if !ok {
		return
	}
	h.dispatch(ctx, b, update.Message.Chat.ID, msg)
}

func (h *Handler) dispatch(ctx context.Context, b *bot.Bot, chatID int64, msg domain.InboundMessage) {
	if !msg.IsGroup {
		stop := tg.StartTyping(ctx, b, chatID)
		defer stop()
	}
	h.dispatcher.Dispatch(ctx, msg)
}
