package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/set-night/tokobot/internal/domain"
)

type Config struct {
	// Core
	BotToken    string `env:"BOT_TOKEN"`
	DatabaseURL string `env:"DATABASE_URL" envDefault:"sqlite://toko.db"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// Language model
	LLMProvider       string        `env:"LLM_PROVIDER" envDefault:"gemini"`
	GeminiAPIKey      string        `env:"API_KEY"`
	GeminiModel       string        `env:"GEMINI_MODEL" envDefault:"gemini-2.0-flash"`
	OpenRouterKey     string        `env:"OPENROUTER_API_KEY"`
	OpenRouterModel   string        `env:"OPENROUTER_MODEL" envDefault:"google/gemini-2.0-flash-001"`
	Temperature       float64       `env:"LLM_TEMPERATURE" envDefault:"0.3"`
	DisableSafety     bool          `env:"LLM_DISABLE_SAFETY" envDefault:"false"`
	GenerationTimeout time.Duration `env:"GENERATION_TIMEOUT" envDefault:"0s"`

	// Session cache
	SessionCacheSize int           `env:"SESSION_CACHE_SIZE" envDefault:"1000"`
	SessionTTL       time.Duration `env:"SESSION_TTL" envDefault:"6h"`
	StalePolicy      string        `env:"STALE_GENERATION_POLICY" envDefault:"allow"`

	// Messaging channel
	SystemSenderIDs    []string `env:"SYSTEM_SENDER_IDS" envSeparator:"," envDefault:"777000,1087968824,136817688"`
	DropPendingUpdates bool     `env:"BOT_DROP_PENDING_UPDATES" envDefault:"false"`
	RateLimitPerMinute int      `env:"RATE_LIMIT_PER_MINUTE" envDefault:"20"`

	// Admin
	AdminIDs      []int64 `env:"ADMIN_IDS" envSeparator:","`
	SessionSecret string  `env:"SESSION_SECRET"`
	PublicDir     string  `env:"PUBLIC_DIR" envDefault:"public"`
	SecureCookie  bool    `env:"COOKIE_SECURE" envDefault:"false"`

	// Server
	Port int `env:"PORT" envDefault:"3000"`

	// Interaction trace
	TraceFile      string `env:"TRACE_FILE" envDefault:"data-penelitian.csv"`
	TraceToDB      bool   `env:"TRACE_TO_DB" envDefault:"true"`
	TraceQueueSize int    `env:"TRACE_QUEUE_SIZE" envDefault:"256"`

	// Shop profile
	Shop ShopConfig `envPrefix:"SHOP_"`

	// Telegram logging
	LogTelegramChatID int64 `env:"LOG_TELEGRAM_CHAT_ID"`
	LogTopicError     int   `env:"LOG_TOPIC_ERROR"`
	LogTopicRebuild   int   `env:"LOG_TOPIC_REBUILD"`
}

// ShopConfig is the static shop metadata injected into the model context.
type ShopConfig struct {
	Name         string `env:"NAME" envDefault:"Toko Aba Ratima"`
	Owner        string `env:"OWNER" envDefault:"Aba Ratima"`
	BotName      string `env:"BOT_NAME" envDefault:"ABot"`
	Location     string `env:"LOCATION" envDefault:"Jl. Sunan Gunungjati, Desa Suranenggala Kidul. Patokan: jembatan sasak gantung ngalor."`
	Hours        string `env:"HOURS" envDefault:"07.00 - 21.00 WIB (istirahat 07.00-09.00 saat belanja ke pasar)"`
	Payment      string `env:"PAYMENT" envDefault:"Hanya menerima pembayaran tunai (cash)."`
	Delivery     string `env:"DELIVERY" envDefault:"Tidak melayani pengiriman, silakan datang langsung ke toko."`
	Returns      string `env:"RETURNS" envDefault:"Retur hanya untuk barang rusak dengan struk pada hari yang sama. Kasbon tidak dilayani."`
	AdminContact string `env:"ADMIN_CONTACT" envDefault:"0811-2222-3333"`
}

// Profile converts the shop settings into the model-facing profile.
func (s ShopConfig) Profile() domain.ShopProfile {
	return domain.ShopProfile{
		Name:         s.Name,
		Owner:        s.Owner,
		BotName:      s.BotName,
		Location:     s.Location,
		Hours:        s.Hours,
		Payment:      s.Payment,
		Delivery:     s.Delivery,
		Returns:      s.Returns,
		AdminContact: s.AdminContact,
	}
}

// Load reads an optional .env file and then parses the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// ValidateServe checks the settings the serve command cannot run without.
func (c *Config) ValidateServe() error {
	if c.BotToken == "" {
		return errors.New("BOT_TOKEN is required")
	}
	switch c.LLMProvider {
	case ProviderGemini:
		if c.GeminiAPIKey == "" {
			return errors.New("API_KEY is required for the gemini provider")
		}
	case ProviderOpenRouter:
		if c.OpenRouterKey == "" {
			return errors.New("OPENROUTER_API_KEY is required for the openrouter provider")
		}
	default:
		return fmt.Errorf("unknown LLM_PROVIDER %q", c.LLMProvider)
	}
	if c.StalePolicy != StalePolicyAllow && c.StalePolicy != StalePolicyRetry {
		return fmt.Errorf("unknown STALE_GENERATION_POLICY %q", c.StalePolicy)
	}
	if c.SessionSecret == "" {
		return errors.New("SESSION_SECRET is required")
	}
	return nil
}

func (c *Config) IsAdmin(telegramID int64) bool {
	for _, id := range c.AdminIDs {
		if id == telegramID {
			return true
		}
	}
	return false
}

func (c *Config) AdminIDsString() string {
	parts := make([]string, len(c.AdminIDs))
	for i, id := range c.AdminIDs {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}
