package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-telegram/bot"

	"github.com/set-night/tokobot/internal/config"
	"github.com/set-night/tokobot/internal/domain"
	"github.com/set-night/tokobot/internal/service"
)

// OpsLogger mirrors operational events into an admin chat, one forum topic
// per event type. It is a no-op when LOG_TELEGRAM_CHAT_ID is unset.
type OpsLogger struct {
	sender MessageSender
	cfg    *config.Config
	now    func() time.Time
}

func NewOpsLogger(s MessageSender, cfg *config.Config) *OpsLogger {
	return &OpsLogger{sender: s, cfg: cfg, now: time.Now}
}

type LogType string

const (
	LogTypeError   LogType = "error"
	LogTypeRebuild LogType = "rebuild"
)

func (l *OpsLogger) Log(logType LogType, message string) {
	if l.cfg.LogTelegramChatID == 0 {
		return
	}

	topicID := l.topicID(logType)
	if topicID == 0 {
		return
	}

	if len([]rune(message)) > MaxMessageLen {
		message = string([]rune(message)[:MaxMessageLen-20]) + "\n\n... (truncated)"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := l.sender.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:          l.cfg.LogTelegramChatID,
		Text:            message,
		MessageThreadID: topicID,
	})
	if err != nil {
		slog.Error("failed to send telegram log", "type", logType, "error", err)
	}
}

func (l *OpsLogger) LogError(err error, context string) {
	msg := fmt.Sprintf("❌ Error\n\nContext: %s\nError: %s\nTime: %s",
		context, err.Error(), l.now().Format("2006-01-02 15:04:05"))
	l.Log(LogTypeError, msg)
}

// LogRebuild reports a context rebuild. Failures also go to the error topic.
func (l *OpsLogger) LogRebuild(ev service.RebuildEvent) {
	if ev.Err != nil {
		l.LogError(ev.Err, "rebuild: "+ev.Reason)
		return
	}
	msg := fmt.Sprintf("🔄 Context rebuilt\n\nReason: %s\nVersion: %d\nItems: %d\nDuration: %s",
		ev.Reason, ev.Version, ev.Items, ev.Duration.Round(time.Millisecond))
	l.Log(LogTypeRebuild, msg)
}

// LogDispatchFailure reports a message that got no reply.
func (l *OpsLogger) LogDispatchFailure(msg domain.InboundMessage, res domain.DispatchResult) {
	l.LogError(res.Err, fmt.Sprintf("chat %s, state %s", msg.SenderID, res.FailedAt))
}

func (l *OpsLogger) topicID(logType LogType) int {
	switch logType {
	case LogTypeError:
		return l.cfg.LogTopicError
	case LogTypeRebuild:
		return l.cfg.LogTopicRebuild
	default:
		return 0
	}
}
