package main

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/kirillkom/vault-quizbot/internal/infrastructure/ingest/filesystem"
	"github.com/kirillkom/vault-quizbot/internal/infrastructure/watch"
)

var watchSkipInitial bool

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Index the vault and rebuild the index whenever notes change",
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := loadApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		collection := app.Config.Collection
		reindex := func(ctx context.Context) error {
			report, err := app.IndexUC.IndexVault(ctx, collection)
			if err != nil {
				slog.Error("reindex_failed", "collection", collection, "error", err)
				return err
			}
			slog.Info("reindexed", "collection", collection, "files", report.Files, "chunks", report.Chunks)
			return nil
		}

		if !watchSkipInitial {
			if err := reindex(cmd.Context()); err != nil {
				return err
			}
		}

		w := watch.New(app.Vault.Root(), app.Lister, filesystem.Hidden, app.Config.WatchDebounce(), reindex)
		slog.Info("watching_vault", "root", app.Vault.Root())
		return w.Run(cmd.Context())
	},
}

func init() {
	watchCmd.Flags().BoolVar(&watchSkipInitial, "skip-initial", false, "do not index before watching")
	rootCmd.AddCommand(watchCmd)
}
