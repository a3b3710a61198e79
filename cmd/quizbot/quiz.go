package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kirillkom/vault-quizbot/internal/core/domain"
	"github.com/kirillkom/vault-quizbot/internal/infrastructure/storage/localfs"
)

var (
	quizSelection string
	quizNote      string
	quizNotes     []string
	quizJSON      bool
)

var quizCmd = &cobra.Command{
	Use:   "quiz",
	Short: "Generate a multiple-choice quiz from a selection or vault notes",
	Long: `Generate a quiz from --selection text, the active --note, or a set of
--notes, answer it interactively and print the score.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := loadApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		content := localfs.Content{
			Vault:     app.Vault,
			Selection: quizSelection,
			Active:    quizNote,
			Notes:     quizNotes,
		}
		attempt, err := app.QuizUC.GenerateFromContent(cmd.Context(), content)
		if err != nil {
			return err
		}
		if quizJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(attempt)
		}
		return takeQuiz(cmd, app.QuizUC, attempt)
	},
}

func init() {
	quizCmd.Flags().StringVar(&quizSelection, "selection", "", "selected text to quiz on")
	quizCmd.Flags().StringVar(&quizNote, "note", "", "vault-relative path of the active note")
	quizCmd.Flags().StringSliceVar(&quizNotes, "notes", nil, "vault-relative paths of the selected notes")
	quizCmd.Flags().BoolVar(&quizJSON, "json", false, "print the generated quiz as JSON and exit")
	rootCmd.AddCommand(quizCmd)
}

type submitter interface {
	Submit(ctx context.Context, id string, selections []int) (*domain.QuizAttempt, error)
}

func takeQuiz(cmd *cobra.Command, quizzes submitter, attempt *domain.QuizAttempt) error {
	selections, err := askQuestions(cmd.InOrStdin(), cmd.OutOrStdout(), attempt.Quiz)
	if err != nil {
		return err
	}
	graded, err := quizzes.Submit(cmd.Context(), attempt.ID, selections)
	if err != nil {
		return err
	}
	printResult(cmd.OutOrStdout(), graded.Result)
	return nil
}

// askQuestions prints each question with lettered choices and reads one
// answer per line. A blank line leaves the question unanswered.
func askQuestions(in io.Reader, out io.Writer, quiz domain.Quiz) ([]int, error) {
	scanner := bufio.NewScanner(in)
	selections := make([]int, len(quiz.Questions))
	for i, question := range quiz.Questions {
		fmt.Fprintf(out, "\n%d. %s\n", i+1, question.Text)
		keys := question.ChoiceKeys()
		for _, key := range keys {
			fmt.Fprintf(out, "   %s. %s\n", domain.ChoiceLabel(key), question.Choices[key])
		}
		for {
			fmt.Fprint(out, "Answer: ")
			if !scanner.Scan() {
				if err := scanner.Err(); err != nil {
					return nil, fmt.Errorf("read answer: %w", err)
				}
				return selections, nil
			}
			choice, err := parseChoice(scanner.Text(), len(keys))
			if err != nil {
				fmt.Fprintln(out, err)
				continue
			}
			selections[i] = choice
			break
		}
	}
	return selections, nil
}

// parseChoice accepts a letter (A, b) or a 1-based number.
func parseChoice(raw string, count int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		if len(raw) != 1 {
			return 0, errors.New("enter a letter or a number")
		}
		letter := strings.ToUpper(raw)[0]
		if letter < 'A' || letter > 'Z' {
			return 0, errors.New("enter a letter or a number")
		}
		n = int(letter-'A') + 1
	}
	if n < 1 || n > count {
		return 0, fmt.Errorf("choose between A and %s", domain.ChoiceLabel(strconv.Itoa(count)))
	}
	return n, nil
}

func printResult(out io.Writer, result *domain.GradeResult) {
	if result == nil {
		return
	}
	fmt.Fprintln(out)
	for _, fb := range result.Feedback {
		fmt.Fprintln(out, fb.Message)
	}
	fmt.Fprintln(out, result.Summary)
}
