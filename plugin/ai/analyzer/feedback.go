package analyzer

import (
	"context"
	"fmt"

	"github.com/weiwangfds/love-agent/plugin/ai"
)

// FeedbackResult is the self-correction produced after the user rejected a
// generated reply. Lesson is a reusable one-liner persisted as a strategy
// lesson for future planning.
type FeedbackResult struct {
	Analysis           string `json:"analysis"`
	StrategyAdjustment string `json:"strategy_adjustment"`
	Lesson             string `json:"lesson"`
	NewReply           string `json:"new_reply"`
}

// FeedbackAnalyzer turns negative user feedback into a corrected reply and a
// durable lesson.
type FeedbackAnalyzer struct {
	service ai.CompletionService
}

func NewFeedbackAnalyzer(service ai.CompletionService) *FeedbackAnalyzer {
	return &FeedbackAnalyzer{service: service}
}

func (a *FeedbackAnalyzer) Analyze(ctx context.Context, originalReply, feedbackReason, stage string, intimacy int) (*FeedbackResult, error) {
	prompt := render(feedbackCorrectionPrompt, map[string]string{
		"original_reply":     originalReply,
		"feedback_reason":    feedbackReason,
		"relationship_stage": stage,
		"intimacy_level":     fmt.Sprintf("%d", intimacy),
	})

	result := &FeedbackResult{}
	err := a.service.ChatJSON(ctx, []ai.Message{
		ai.SystemMessage("你是善于反思的伴侣，严格输出JSON对象。"),
		ai.UserMessage(prompt),
	}, ai.Options{Temperature: 0.5}, result)
	if err != nil {
		return nil, fmt.Errorf("feedback analysis: %w", err)
	}
	return result, nil
}
