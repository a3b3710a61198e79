package main

import (
	"github.com/spf13/cobra"

	mcpadapter "github.com/kirillkom/vault-quizbot/internal/adapters/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the ask, quiz and reindex tools over MCP stdio",
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := loadApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		return mcpadapter.New(version, mcpadapter.Deps{
			Indexer:    app.IndexUC,
			Assistant:  app.AskUC,
			Quizzes:    app.QuizUC,
			Vault:      app.Vault,
			Collection: app.Config.Collection,
		}).ServeStdio()
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
