package handler

import (
	"github.com/go-telegram/bot"

	"github.com/set-night/tokobot/internal/config"
	"github.com/set-night/tokobot/internal/service"
	"github.com/set-night/tokobot/internal/telegram"
)

// Handler holds all dependencies needed by command and message handlers.
type Handler struct {
	bot         *bot.Bot
	cfg         *config.Config
	dispatcher  *service.Dispatcher
	coordinator *service.Coordinator
	catalog     *service.CatalogService
	opsLogger   *telegram.OpsLogger
}

// Deps contains all dependencies required to construct a Handler.
type Deps struct {
	Bot         *bot.Bot
	Cfg         *config.Config
	Dispatcher  *service.Dispatcher
	Coordinator *service.Coordinator
	Catalog     *service.CatalogService
	OpsLogger   *telegram.OpsLogger
}

// New creates a new Handler from the provided dependencies.
func New(deps Deps) *Handler {
	return &Handler{
		bot:         deps.Bot,
		cfg:         deps.Cfg,
		dispatcher:  deps.Dispatcher,
		coordinator: deps.Coordinator,
		catalog:     deps.Catalog,
		opsLogger:   deps.OpsLogger,
	}
}

// Register wires commands and the catch-all text handler.
func (h *Handler) Register() {
	// User commands
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/start", bot.MatchTypePrefix, h.handleStart)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/reset", bot.MatchTypePrefix, h.handleReset)

	// Admin commands
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/barang", bot.MatchTypePrefix, h.handleAdmin)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/stok", bot.MatchTypePrefix, h.handleAdmin)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/harga", bot.MatchTypePrefix, h.handleAdmin)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/reload", bot.MatchTypePrefix, h.handleAdmin)

	// Everything else goes to the assistant
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "", bot.MatchTypePrefix, h.HandleText)
}
