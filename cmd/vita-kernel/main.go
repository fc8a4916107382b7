package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	appconfig "github.com/manthysbr/vita/internal/config"
)

var (
	configFile string
	dbPath     string
	envFile    string
	logLevel   string
)

// rootCmd runs the API server when called without a subcommand.
var rootCmd = &cobra.Command{
	Use:   "vita-kernel",
	Short: "Vita Head Coach orchestrator",
	Long: `Vita answers health and wellness requests with a Head Coach agent that
delegates to specialists (Nutrition Expert, Science Researcher, Wellness Coach)
and consults the nutrition and research knowledge bases.

Without a subcommand the HTTP API is served.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", appconfig.DefaultFile, "TOML config file")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "DuckDB database path (default $VITA_DB_PATH or ~/.vita/vita.db)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "debug, info, warn or error")
}

func newLogger() *slog.Logger {
	var level slog.Level
	switch strings.ToLower(logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
