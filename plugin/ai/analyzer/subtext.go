package analyzer

import (
	"context"
	"errors"

	"github.com/weiwangfds/love-agent/internal/observability"
	"github.com/weiwangfds/love-agent/plugin/ai"
)

// Subtext is the decoded hidden meaning of the partner's latest message.
type Subtext struct {
	SurfaceMeaning string `json:"surface_meaning"`
	Subtext        string `json:"subtext"`
	EmotionBase    string `json:"emotion_base"`
	Suggestion     string `json:"suggestion"`
}

// SubtextDecoder reads between the lines of the partner's message.
type SubtextDecoder struct {
	service ai.CompletionService
}

func NewSubtextDecoder(service ai.CompletionService) *SubtextDecoder {
	return &SubtextDecoder{service: service}
}

// Decode analyzes the hidden meaning. An empty target message skips the model
// call entirely.
func (a *SubtextDecoder) Decode(ctx context.Context, targetMessage, contextHistory, stage string) (*Subtext, error) {
	if targetMessage == "" {
		return &Subtext{}, nil
	}

	prompt := render(subtextPrompt, map[string]string{
		"target_message":     targetMessage,
		"context_history":    contextHistory,
		"relationship_stage": stage,
	})

	result := &Subtext{}
	err := a.service.ChatJSON(ctx, []ai.Message{
		ai.SystemMessage("你是恋爱读心神探，敏锐洞察潜台词，严格输出JSON。"),
		ai.UserMessage(prompt),
	}, ai.Options{Temperature: 0.5}, result)
	if err != nil {
		if errors.Is(err, ai.ErrUnavailable) {
			return nil, err
		}
		observability.TaskDegraded(ctx, "subtext", err)
		return &Subtext{}, nil
	}
	return result, nil
}
