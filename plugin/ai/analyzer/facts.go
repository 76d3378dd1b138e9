package analyzer

import (
	"context"
	"errors"
	"strings"

	"github.com/weiwangfds/love-agent/internal/observability"
	"github.com/weiwangfds/love-agent/plugin/ai"
)

// FactExtractor pulls self-disclosed user facts out of the conversation.
// Only statements made by the user side qualify; nothing is inferred about
// the partner here.
type FactExtractor struct {
	service ai.CompletionService
}

func NewFactExtractor(service ai.CompletionService) *FactExtractor {
	return &FactExtractor{service: service}
}

func (a *FactExtractor) Extract(ctx context.Context, latestText, historyText string) ([]string, error) {
	text := historyText
	if latestText != "" {
		text += "最新消息: " + latestText + "\n"
	}
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	prompt := render(factExtractionPrompt, map[string]string{
		"conversation_text": text,
	})

	var result struct {
		Facts []string `json:"facts"`
	}
	err := a.service.ChatJSON(ctx, []ai.Message{
		ai.SystemMessage("你是信息提取专家，严格输出JSON对象。"),
		ai.UserMessage(prompt),
	}, ai.Options{Temperature: 0.1}, &result)
	if err != nil {
		if errors.Is(err, ai.ErrUnavailable) {
			return nil, err
		}
		observability.TaskDegraded(ctx, "fact_extraction", err)
		return nil, nil
	}

	facts := make([]string, 0, len(result.Facts))
	for _, fact := range result.Facts {
		fact = strings.TrimSpace(fact)
		if fact != "" {
			facts = append(facts, fact)
		}
	}
	return facts, nil
}
