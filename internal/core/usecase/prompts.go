package usecase

import (
	"fmt"
	"strings"

	"github.com/kirillkom/vault-quizbot/internal/core/domain"
)

func buildQuizPrompt(content string, opts domain.QuizOptions) string {
	return fmt.Sprintf(`%s

Create a %d-question multiple choice quiz based on the preceding content.
Every question has exactly %d choices keyed "1" to "%d" and exactly one correct answer.`,
		strings.TrimSpace(content), opts.QuestionCount, opts.ChoiceCount, opts.ChoiceCount)
}

// quizShapeHint spells out the quiz JSON for models without schema support.
func quizShapeHint(opts domain.QuizOptions) string {
	var b strings.Builder
	b.WriteString("{\n\t\"questions\": [\n\t\t{\n\t\t\t\"text\": \"{question text}\",\n\t\t\t\"choices\": {\n")
	for i := 1; i <= opts.ChoiceCount; i++ {
		b.WriteString(fmt.Sprintf("\t\t\t\t\"%d\": \"{choice %d text}\"", i, i))
		if i < opts.ChoiceCount {
			b.WriteString(",")
		}
		b.WriteString("\n")
	}
	b.WriteString(fmt.Sprintf("\t\t\t},\n\t\t\t\"answer\": \"{correct choice number (1-%d)}\"\n\t\t},\n\t\t...\n\t]\n}", opts.ChoiceCount))
	return b.String()
}

func buildQuizFromContextPrompt(request, contextBlock string, opts domain.QuizOptions) string {
	content := fmt.Sprintf("Request:\n%s\n\nNotes:\n%s", strings.TrimSpace(request), contextBlock)
	return buildQuizPrompt(content, opts)
}

func buildDiversifyPrompt(prompt string, count int) string {
	return fmt.Sprintf(`You help search a personal knowledge base.
Write %d alternative search queries that would retrieve the same notes as the original prompt.
Use different wording and related terms. If the prompt is written in the first person or is about the user, keep that framing.

Original prompt:
%s`, count, strings.TrimSpace(prompt))
}

func queriesShapeHint(count int) string {
	items := make([]string, 0, count)
	for i := 1; i <= count; i++ {
		items = append(items, fmt.Sprintf(`"{query %d}"`, i))
	}
	return fmt.Sprintf(`{"queries": [%s]}`, strings.Join(items, ", "))
}

func buildRoutePrompt(prompt string, schemaMode bool) string {
	instruction := `Reply with "quiz" if the user wants to be quizzed or tested on their notes, otherwise reply with "generate".`
	if !schemaMode {
		instruction += "\nReply with that single word only."
	}
	return fmt.Sprintf(`Classify the user request.
%s

User request:
%s`, instruction, strings.TrimSpace(prompt))
}

func buildAnswerPrompt(prompt, contextBlock string) string {
	if strings.TrimSpace(contextBlock) == "" {
		return strings.TrimSpace(prompt)
	}
	return fmt.Sprintf(`Answer the user request using the notes below.
If the notes are insufficient, say it directly.

Notes:
%s

Request:
%s
`, contextBlock, strings.TrimSpace(prompt))
}
