package analyzer

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/weiwangfds/love-agent/internal/observability"
	"github.com/weiwangfds/love-agent/plugin/ai"
)

// SearchIntent is the model's verdict on whether answering well requires
// external knowledge.
type SearchIntent struct {
	NeedSearch     boolish  `json:"need_search"`
	SearchKeywords string   `json:"search_keywords"`
	SearchPurpose  string   `json:"search_purpose"`
	Entities       []string `json:"entities_detected"`
}

// boolish tolerates models returning "true"/"false" strings where a boolean
// was asked for.
type boolish bool

func (b *boolish) UnmarshalJSON(data []byte) error {
	var v bool
	if err := json.Unmarshal(data, &v); err == nil {
		*b = boolish(v)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*b = boolish(strings.EqualFold(strings.TrimSpace(s), "true"))
		return nil
	}
	*b = false
	return nil
}

// SearchIntentAnalyzer decides whether the reply needs web-grounded facts.
type SearchIntentAnalyzer struct {
	service ai.CompletionService
}

func NewSearchIntentAnalyzer(service ai.CompletionService) *SearchIntentAnalyzer {
	return &SearchIntentAnalyzer{service: service}
}

func (a *SearchIntentAnalyzer) Analyze(ctx context.Context, latestText, contextHistory string) (*SearchIntent, error) {
	prompt := render(searchIntentPrompt, map[string]string{
		"current_message": latestText,
		"context_history": contextHistory,
	})

	result := &SearchIntent{}
	// Near-zero temperature: this is a judgment call, not a creative task.
	err := a.service.ChatJSON(ctx, []ai.Message{
		ai.SystemMessage("你是对话分析专家，严格输出JSON对象。"),
		ai.UserMessage(prompt),
	}, ai.Options{Temperature: 0.01}, result)
	if err != nil {
		if errors.Is(err, ai.ErrUnavailable) {
			return nil, err
		}
		observability.TaskDegraded(ctx, "search_intent", err)
		return &SearchIntent{}, nil
	}
	return result, nil
}
