package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return &buf
}

func TestRecoverLogsUpdateAndChat(t *testing.T) {
	logs := captureLogs(t)

	handler := Recover()(func(context.Context, *bot.Bot, *models.Update) {
		panic("boom")
	})
	update := &models.Update{
		ID:      77,
		Message: &models.Message{Chat: models.Chat{ID: 6281, Type: models.ChatTypePrivate}},
	}
	require.NotPanics(t, func() { handler(context.Background(), nil, update) })

	var entry map[string]any
	require.NoError(t, json.Unmarshal(logs.Bytes(), &entry), logs.String())
	assert.Equal(t, "panic recovered in handler", entry["msg"])
	assert.Equal(t, float64(77), entry["update_id"])
	assert.Equal(t, float64(6281), entry["chat_id"])
	assert.Equal(t, "boom", entry["panic"])
}

func TestUpdateChat(t *testing.T) {
	id, typ := updateChat(&models.Update{
		ChannelPost: &models.Message{Chat: models.Chat{ID: -100, Type: models.ChatTypeChannel}},
	})
	assert.Equal(t, int64(-100), id)
	assert.Equal(t, models.ChatTypeChannel, typ)

	id, _ = updateChat(&models.Update{})
	assert.Zero(t, id)
}
