package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/kirillkom/vault-quizbot/internal/bootstrap"
	"github.com/kirillkom/vault-quizbot/internal/config"
	"github.com/kirillkom/vault-quizbot/internal/observability/logging"
)

var version = "dev"

var (
	flagVault      string
	flagBackend    string
	flagCollection string
	flagLogLevel   string
)

var rootCmd = &cobra.Command{
	Use:           "quizbot",
	Short:         "Ask questions about a notes vault and quiz yourself on it",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagVault, "vault", "", "vault root directory (overrides VAULT_ROOT)")
	rootCmd.PersistentFlags().StringVar(&flagBackend, "backend", "", "vector backend: chroma, qdrant or memory")
	rootCmd.PersistentFlags().StringVar(&flagCollection, "collection", "", "collection name (overrides COLLECTION)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "log level: debug, info, warn, error")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// loadApp builds the application from env, the optional config file and the
// persistent flags.
func loadApp(cmd *cobra.Command) (*bootstrap.App, error) {
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if flagVault != "" {
		cfg.VaultRoot = flagVault
	}
	if flagBackend != "" {
		cfg.VectorBackend = flagBackend
	}
	if flagCollection != "" {
		cfg.Collection = flagCollection
	}
	if flagLogLevel != "" {
		cfg.LogLevel = flagLogLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Logs go to stderr as text; stdout carries answers and the MCP transport.
	slog.SetDefault(logging.NewLogger("quizbot", cfg.LogLevel, "text"))

	return bootstrap.New(cmd.Context(), cfg, bootstrap.Options{})
}
