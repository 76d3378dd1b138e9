package analyzer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/weiwangfds/love-agent/plugin/ai"
)

// ImageAnalyzer reads a partner-sent image with a vision-capable model and
// suggests how to respond given the current relationship. Output is free
// text, not JSON.
type ImageAnalyzer struct {
	service     ai.CompletionService
	visionModel string
}

func NewImageAnalyzer(service ai.CompletionService, visionModel string) *ImageAnalyzer {
	return &ImageAnalyzer{
		service:     service,
		visionModel: visionModel,
	}
}

func (a *ImageAnalyzer) AnalyzeAndReply(ctx context.Context, imageURL, stage string, intimacy int, persona map[string]any) (string, error) {
	personaJSON, _ := json.Marshal(persona)
	prompt := render(imageAnalysisPrompt, map[string]string{
		"relationship_stage": stage,
		"intimacy_level":     fmt.Sprintf("%d", intimacy),
		"persona":            string(personaJSON),
	})

	reply, err := a.service.Chat(ctx, []ai.Message{
		ai.UserImageMessage(prompt, imageURL),
	}, ai.Options{Temperature: 0.7, Model: a.visionModel})
	if err != nil {
		return "", fmt.Errorf("image analysis: %w", err)
	}
	return strings.TrimSpace(reply), nil
}
