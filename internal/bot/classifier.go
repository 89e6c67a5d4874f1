package bot

import (
	"context"
	"strings"

	"github.com/regulynx/compliance-chat/internal/domain"
)

// Classifier normalizes free-text answers into the closed vocabularies the
// upstream bot expects. Implemented by the classification service.
type Classifier interface {
	ClassifyOrganization(ctx context.Context, text string) (string, error)
	ClassifyIndustry(ctx context.Context, text string) (string, error)
	ClassifyEmployeeSize(ctx context.Context, text string) (string, error)
}

// AnswerKind is the category of answer the bot's previous prompt asked for.
type AnswerKind int

const (
	AnswerNone AnswerKind = iota
	AnswerOrganization
	AnswerIndustry
	AnswerEmployeeSize
)

var answerPrompts = []struct {
	kind    AnswerKind
	phrases []string
}{
	{AnswerOrganization, []string{"type of organization", "organization type", "type of company", "kind of organization"}},
	{AnswerIndustry, []string{"which industry", "what industry", "industry do you", "industry does your"}},
	{AnswerEmployeeSize, []string{"how many employees", "employee size", "size of your team", "number of employees"}},
}

// ExpectedAnswer inspects the most recent assistant reply and reports what
// kind of free-text answer the bot is waiting for, if any.
func ExpectedAnswer(history []domain.ChatMessage) AnswerKind {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role != domain.RoleAssistant {
			continue
		}
		lower := strings.ToLower(history[i].Content)
		for _, p := range answerPrompts {
			for _, phrase := range p.phrases {
				if strings.Contains(lower, phrase) {
					return p.kind
				}
			}
		}
		return AnswerNone
	}
	return AnswerNone
}
