package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kirillkom/vault-quizbot/internal/core/domain"
)

var askShowSources bool

var askCmd = &cobra.Command{
	Use:   "ask <prompt>",
	Short: "Answer a request from the indexed vault",
	Long: `Answer a request from the indexed vault. When the request asks for a
quiz, the quiz is run interactively instead.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := loadApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		answer, err := app.AskUC.Ask(cmd.Context(), strings.Join(args, " "))
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if answer.Route == domain.RouteQuiz && answer.Quiz != nil {
			return takeQuiz(cmd, app.QuizUC, answer.Quiz)
		}
		fmt.Fprintln(out, answer.Text)
		if askShowSources {
			fmt.Fprintln(out, "\nSources:")
			for _, src := range answer.Sources {
				fmt.Fprintf(out, "  %.4f  %s\n", src.FusedScore, firstLine(src.Text))
			}
		}
		return nil
	},
}

func init() {
	askCmd.Flags().BoolVar(&askShowSources, "sources", false, "list the fused context documents")
	rootCmd.AddCommand(askCmd)
}

func firstLine(text string) string {
	text = strings.TrimSpace(text)
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = text[:i]
	}
	if runes := []rune(text); len(runes) > 80 {
		text = string(runes[:77]) + "..."
	}
	return text
}
