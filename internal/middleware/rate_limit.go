package middleware

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"golang.org/x/time/rate"

	"github.com/set-night/tokobot/internal/config"
)

// ChatLimiter hands out one token bucket per chat. Buckets idle for longer
// than the refill window are dropped on the next sweep.
type ChatLimiter struct {
	perMinute int
	now       func() time.Time

	mu        sync.Mutex
	limiters  map[int64]*chatBucket
	lastSweep time.Time
}

type chatBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewChatLimiter(perMinute int) *ChatLimiter {
	return &ChatLimiter{
		perMinute: perMinute,
		now:       time.Now,
		limiters:  make(map[int64]*chatBucket),
	}
}

// Allow reports whether chatID may send another message now. A
// non-positive limit allows everything.
func (l *ChatLimiter) Allow(chatID int64) bool {
	if l.perMinute <= 0 {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) > time.Minute {
		for id, b := range l.limiters {
			if now.Sub(b.lastSeen) > time.Minute {
				delete(l.limiters, id)
			}
		}
		l.lastSweep = now
	}

	b, ok := l.limiters[chatID]
	if !ok {
		b = &chatBucket{limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(l.perMinute)), l.perMinute)}
		l.limiters[chatID] = b
	}
	b.lastSeen = now
	return b.limiter.AllowN(now, 1)
}

// RateLimit returns middleware that enforces per-chat per-minute limits on
// messages.
func RateLimit(limiter *ChatLimiter) bot.Middleware {
	return func(next bot.HandlerFunc) bot.HandlerFunc {
		return func(ctx context.Context, b *bot.Bot, update *models.Update) {
			// Only rate limit messages (not callbacks or other updates)
			if update.Message == nil {
				next(ctx, b, update)
				return
			}

			chatID := update.Message.Chat.ID
			if !limiter.Allow(chatID) {
				slog.Debug("rate limited", "chat_id", chatID, "limit", limiter.perMinute)
				if update.Message.Chat.Type == models.ChatTypePrivate {
					b.SendMessage(ctx, &bot.SendMessageParams{
						ChatID: chatID,
						Text:   config.RateLimitedText,
					})
				}
				return
			}

			next(ctx, b, update)
		}
	}
}
