package handler

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/set-night/tokobot/internal/config"
	tg "github.com/set-night/tokobot/internal/telegram"
)

// handleStart answers /start the way the assistant answers a greeting.
func (h *Handler) handleStart(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}

	msg, ok := tg.InboundFromUpdate(update)
	if !ok || msg.IsGroup {
		return
	}
	msg.Body = config.StartGreetingPrompt
	h.dispatch(ctx, b, update.Message.Chat.ID, msg)
}

// handleReset drops the chat's session so the next message starts fresh.
func (h *Handler) handleReset(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.Chat.Type != models.ChatTypePrivate {
		return
	}

	chatID := update.Message.Chat.ID
	h.coordinator.Forget(tg.ConversationID(chatID))
	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   config.ResetText,
	})
}
