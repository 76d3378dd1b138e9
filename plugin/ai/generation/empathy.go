package generation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/weiwangfds/love-agent/plugin/ai"
)

// EmpathyInput configures an emotional-first-aid generation.
type EmpathyInput struct {
	TargetMessage string
	Emotion       string
	EmotionScore  int
	Stage         string
	Persona       map[string]any
	UserFacts     []string
}

// EmpathyEngine generates three-part comfort replies (acknowledge, soothe,
// gently redirect) when the partner's mood is negative.
type EmpathyEngine struct {
	service ai.CompletionService
}

func NewEmpathyEngine(service ai.CompletionService) *EmpathyEngine {
	return &EmpathyEngine{service: service}
}

func (e *EmpathyEngine) Generate(ctx context.Context, in *EmpathyInput, attempt int) ([]Candidate, error) {
	personaJSON, _ := json.Marshal(in.Persona)

	prompt := render(emotionalFirstAidPrompt, map[string]string{
		"target_message":     in.TargetMessage,
		"current_emotion":    in.Emotion,
		"emotion_score":      fmt.Sprintf("%d", in.EmotionScore),
		"relationship_stage": in.Stage,
		"persona":            string(personaJSON),
		"user_facts":         strings.Join(in.UserFacts, "\n"),
	})

	var result struct {
		Replies []Candidate `json:"replies"`
	}
	err := e.service.ChatJSON(ctx, []ai.Message{
		ai.SystemMessage("你是中文情感急救助手，生成口语自然的三段式回复（共情+安慰+解决建议），严格输出JSON，包含replies数组，每条含text与reason。"),
		ai.UserMessage(prompt),
	}, ai.Options{Temperature: EmpathyTemperature(attempt)}, &result)
	if err != nil {
		return nil, fmt.Errorf("empathy replies: %w", err)
	}
	return nonEmpty(result.Replies), nil
}
