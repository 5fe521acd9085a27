package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/set-night/tokobot/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "tokobot",
	Short: "Shop assistant bot answering from the live inventory",
	Long: `tokobot runs a Telegram shop assistant whose answers come from the
shop's inventory, plus an admin HTTP API for editing that inventory.

Every inventory change rebuilds the assistant context and resets all open
conversations so no one is answered from outdated stock or prices.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}
		setupLogging(cfg.LogLevel)
		return nil
	},
}

// setupLogging installs the JSON handler as the default logger.
func setupLogging(level string) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: lvl,
	}))
	slog.SetDefault(logger)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
