package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/set-night/tokobot/internal/api"
	"github.com/set-night/tokobot/internal/config"
	"github.com/set-night/tokobot/internal/handler"
	"github.com/set-night/tokobot/internal/middleware"
	"github.com/set-night/tokobot/internal/service"
	"github.com/set-night/tokobot/internal/telegram"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the Telegram bot and the admin HTTP API",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if err := cfg.ValidateServe(); err != nil {
		return err
	}

	// Setup context with graceful shutdown
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	provider, err := newProvider(ctx)
	if err != nil {
		return err
	}

	// Context synchronization
	modelCache := service.NewModelCache(provider)
	sessions := service.NewSessionCache(modelCache, cfg.SessionCacheSize, cfg.SessionTTL)
	coordinator := service.NewCoordinator(store, service.NewContextBuilder(cfg.Shop.Profile()), modelCache, sessions)

	// Interaction trace
	var sinks []service.TraceSink
	if cfg.TraceFile != "" {
		csvSink, err := service.OpenCSVSink(cfg.TraceFile)
		if err != nil {
			return err
		}
		sinks = append(sinks, csvSink)
	}
	if cfg.TraceToDB {
		sinks = append(sinks, service.NewStoreSink(store))
	}
	recorder := service.NewRecorder(cfg.TraceQueueSize, sinks...)
	defer func() {
		drainCtx, cancel := context.WithTimeout(context.Background(), config.TraceDrainTimeout)
		defer cancel()
		if err := recorder.Close(drainCtx); err != nil {
			slog.Error("failed to drain interaction trace", "error", err)
		}
	}()

	// Create bot
	b, err := bot.New(cfg.BotToken,
		bot.WithMiddlewares(
			middleware.Recover(),
			middleware.Logging(),
			middleware.RateLimit(middleware.NewChatLimiter(cfg.RateLimitPerMinute)),
		),
		bot.WithDefaultHandler(func(context.Context, *bot.Bot, *models.Update) {}),
		bot.WithErrorsHandler(func(err error) {
			slog.Error("telegram polling error", "error", err)
		}),
	)
	if err != nil {
		return fmt.Errorf("create bot: %w", err)
	}

	me, err := b.GetMe(ctx)
	if err != nil {
		return fmt.Errorf("get bot info: %w", err)
	}
	slog.Info("bot info retrieved", "id", me.ID, "username", me.Username)

	opsLogger := telegram.NewOpsLogger(b, cfg)
	coordinator.OnRebuild(opsLogger.LogRebuild)

	dispatcher := service.NewDispatcher(coordinator, telegram.NewChannel(b), recorder, service.DispatcherOptions{
		SystemSenders:     cfg.SystemSenderIDs,
		RetryStale:        cfg.StalePolicy == config.StalePolicyRetry,
		GenerationTimeout: cfg.GenerationTimeout,
		Apology:           config.SafetyApology,
	})
	dispatcher.OnFailure(opsLogger.LogDispatchFailure)

	// The assistant cannot answer anything until the first build succeeds.
	if err := coordinator.Invalidate(ctx, "startup"); err != nil {
		return fmt.Errorf("initial context build: %w", err)
	}

	catalog := service.NewCatalogService(store, coordinator)

	h := handler.New(handler.Deps{
		Bot:         b,
		Cfg:         cfg,
		Dispatcher:  dispatcher,
		Coordinator: coordinator,
		Catalog:     catalog,
		OpsLogger:   opsLogger,
	})
	h.Register()

	if cfg.DropPendingUpdates {
		if _, err := b.DeleteWebhook(ctx, &bot.DeleteWebhookParams{DropPendingUpdates: true}); err != nil {
			slog.Warn("failed to drop pending updates", "error", err)
		}
	}

	srv := &http.Server{
		Addr: fmt.Sprintf(":%d", cfg.Port),
		Handler: api.NewAppHandler(api.AppDeps{
			Catalog:      catalog,
			Auth:         service.NewAuthService(store, cfg.SessionSecret, config.AdminSessionDuration),
			Interactions: store,
			DB:           store,
			Version:      coordinator.Version,
			TraceDropped: recorder.Dropped,
			PublicDir:    cfg.PublicDir,
			SecureCookie: cfg.SecureCookie,
		}),
		ReadHeaderTimeout: config.ReadHeaderTimeout,
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("admin api listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		slog.Info("starting bot", "username", me.Username, "provider", provider.Name(), "admins", cfg.AdminIDsString())
		b.Start(gctx)
		return nil
	})

	err = g.Wait()
	slog.Info("stopped gracefully")
	return err
}
