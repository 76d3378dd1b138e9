package analyzer

import (
	"context"
	"errors"

	"github.com/weiwangfds/love-agent/internal/observability"
	"github.com/weiwangfds/love-agent/plugin/ai"
	"github.com/weiwangfds/love-agent/store"
)

// PersonaProfiler builds a personality profile of the chat partner from the
// recent conversation window. The profile is stored as an opaque JSON object
// (MBTI leanings, attachment type, communication style, key traits).
type PersonaProfiler struct {
	service ai.CompletionService
}

func NewPersonaProfiler(service ai.CompletionService) *PersonaProfiler {
	return &PersonaProfiler{service: service}
}

// Profile analyzes the window and returns the profile object, or nil when the
// response degrades. Nil means "keep the stored persona as is".
func (a *PersonaProfiler) Profile(ctx context.Context, window []store.Message) (map[string]any, error) {
	if len(window) == 0 {
		return nil, nil
	}

	prompt := render(personaPrompt, map[string]string{
		"conversation_history": HistoryText(window),
	})

	profile := map[string]any{}
	err := a.service.ChatJSON(ctx, []ai.Message{
		ai.SystemMessage("你是专业的性格分析助手，严格输出JSON对象。"),
		ai.UserMessage(prompt),
	}, ai.Options{Temperature: 0.2}, &profile)
	if err != nil {
		if errors.Is(err, ai.ErrUnavailable) {
			return nil, err
		}
		observability.TaskDegraded(ctx, "persona", err)
		return nil, nil
	}
	return profile, nil
}
