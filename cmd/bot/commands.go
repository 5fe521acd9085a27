package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sort"

	"github.com/spf13/cobra"

	tokobot "github.com/set-night/tokobot"
	"github.com/set-night/tokobot/internal/config"
	"github.com/set-night/tokobot/internal/llm"
	"github.com/set-night/tokobot/internal/repository"
	"github.com/set-night/tokobot/internal/service"
)

// openStore connects to DATABASE_URL and applies pending migrations.
func openStore(ctx context.Context) (*repository.Store, error) {
	store, err := repository.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(tokobot.MigrationsFS); err != nil {
		store.Close()
		return nil, err
	}
	return store, nil
}

func newProvider(ctx context.Context) (llm.Provider, error) {
	switch cfg.LLMProvider {
	case config.ProviderGemini:
		return llm.NewGeminiProvider(ctx, llm.GeminiOptions{
			APIKey:        cfg.GeminiAPIKey,
			Model:         cfg.GeminiModel,
			Temperature:   cfg.Temperature,
			DisableSafety: cfg.DisableSafety,
		})
	case config.ProviderOpenRouter:
		return llm.NewOpenRouterProvider(llm.OpenRouterOptions{
			APIKey:      cfg.OpenRouterKey,
			Model:       cfg.OpenRouterModel,
			Temperature: cfg.Temperature,
			Timeout:     config.RequestTimeout,
		}), nil
	default:
		return nil, fmt.Errorf("unknown LLM_PROVIDER %q", cfg.LLMProvider)
	}
}

// --- migrate ---

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer store.Close()
		slog.Info("migrations applied", "dialect", store.Dialect())
		return nil
	},
}

// --- seed ---

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create the first admin account and import a legacy inventory file",
	Long: `Create the first admin account and import a legacy inventory file.

The admin is only created when no admin exists yet. The inventory file is
only imported into an empty catalog.

Examples:
  tokobot seed --password rahasia
  tokobot seed --password rahasia --inventory data-toko-aba-ratima.json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		username, _ := cmd.Flags().GetString("username")
		password, _ := cmd.Flags().GetString("password")
		inventory, _ := cmd.Flags().GetString("inventory")
		ctx := cmd.Context()

		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		auth := service.NewAuthService(store, cfg.SessionSecret, config.AdminSessionDuration)
		created, err := auth.EnsureAdmin(ctx, username, password)
		if err != nil {
			return err
		}
		if created {
			slog.Info("admin account created", "username", username)
		} else {
			slog.Info("admin account already exists, skipping")
		}

		f, err := os.Open(inventory)
		if errors.Is(err, fs.ErrNotExist) {
			slog.Info("inventory file not found, skipping import", "file", inventory)
			return nil
		}
		if err != nil {
			return fmt.Errorf("open inventory: %w", err)
		}
		defer f.Close()

		items, err := service.ParseLegacyInventory(f)
		if err != nil {
			return err
		}
		imported, err := service.NewCatalogService(store, nil).Import(ctx, items)
		if err != nil {
			return err
		}
		slog.Info("inventory imported", "file", inventory, "items", imported)
		return nil
	},
}

func init() {
	seedCmd.Flags().String("username", "bajiadmin", "admin username")
	seedCmd.Flags().String("password", "", "admin password")
	seedCmd.Flags().String("inventory", "data-toko-aba-ratima.json", "legacy inventory JSON file")
}

// --- admin ---

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Manage admin accounts",
}

var adminCreateCmd = &cobra.Command{
	Use:   "create <username> <password>",
	Short: "Create an admin account",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		auth := service.NewAuthService(store, cfg.SessionSecret, config.AdminSessionDuration)
		u, err := auth.CreateAdmin(ctx, args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "created admin %q (id %d)\n", u.Username, u.ID)
		return nil
	},
}

// --- models ---

type modelLister interface {
	ListChatModels(ctx context.Context) ([]string, error)
}

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List models of the configured provider that can chat",
	RunE: func(cmd *cobra.Command, args []string) error {
		provider, err := newProvider(cmd.Context())
		if err != nil {
			return err
		}
		lister, ok := provider.(modelLister)
		if !ok {
			return fmt.Errorf("provider %s cannot list models", provider.Name())
		}

		names, err := lister.ListChatModels(cmd.Context())
		if err != nil {
			return err
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
		return nil
	},
}

func init() {
	adminCmd.AddCommand(adminCreateCmd)
	rootCmd.AddCommand(migrateCmd, seedCmd, adminCmd, modelsCmd)
}
