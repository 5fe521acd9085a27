package config

import "time"

const (
	// LLM providers
	ProviderGemini     = "gemini"
	ProviderOpenRouter = "openrouter"

	// Stale generation policies
	StalePolicyAllow = "allow"
	StalePolicyRetry = "retry"

	// Telegram limits
	MaxTelegramMessageLen = 4096

	// OpenRouter HTTP timeout
	RequestTimeout = 90 * time.Second

	// Admin web session lifetime
	AdminSessionDuration = 24 * time.Hour
	AdminSessionCookie   = "toko_session"

	// Trace writer shutdown budget
	TraceDrainTimeout = 10 * time.Second

	// HTTP server
	ReadHeaderTimeout = 10 * time.Second
	ShutdownTimeout   = 15 * time.Second

	// Default interactions page size for the admin API
	InteractionsPageSize = 50
)

const (
	// SafetyApology replaces an answer the model refused to produce.
	SafetyApology = "🤖 Mohon maaf, saya tidak bisa memproses pertanyaan tersebut karena alasan keamanan sistem."

	// RateLimitedText is sent when a chat exceeds its per-minute budget.
	RateLimitedText = "⏳ Terlalu banyak pesan. Mohon tunggu sebentar ya Kak."

	// StartGreetingPrompt is forwarded to the model when a user opens the bot.
	StartGreetingPrompt = "Halo"

	// ResetText confirms a /reset.
	ResetText = "🔄 Percakapan direset. Silakan bertanya kembali."
)
