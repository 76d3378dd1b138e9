package analyzer

import (
	"context"
	"fmt"
	"strings"

	"github.com/weiwangfds/love-agent/plugin/ai"
)

// ProfileSummarizer turns scattered fact tags into a coherent first-person
// self description matching the current relationship.
type ProfileSummarizer struct {
	service ai.CompletionService
}

func NewProfileSummarizer(service ai.CompletionService) *ProfileSummarizer {
	return &ProfileSummarizer{service: service}
}

func (a *ProfileSummarizer) Summarize(ctx context.Context, userFacts []string, stage string, intimacy int) (string, error) {
	prompt := render(profileSummaryPrompt, map[string]string{
		"user_facts":         strings.Join(userFacts, "\n"),
		"relationship_stage": stage,
		"intimacy_level":     fmt.Sprintf("%d", intimacy),
	})

	summary, err := a.service.Chat(ctx, []ai.Message{
		ai.SystemMessage("你是一位深情的伴侣，请用第一人称写一段温暖自然的自我描述。"),
		ai.UserMessage(prompt),
	}, ai.Options{Temperature: 0.7})
	if err != nil {
		return "", fmt.Errorf("profile summary: %w", err)
	}
	return strings.TrimSpace(summary), nil
}
