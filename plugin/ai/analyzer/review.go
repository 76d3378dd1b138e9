package analyzer

import (
	"context"
	"fmt"

	"github.com/weiwangfds/love-agent/plugin/ai"
)

// ReviewHighlight is a moment the user handled well.
type ReviewHighlight struct {
	Content string `json:"content"`
	Reason  string `json:"reason"`
}

// ReviewLowlight is a moment that cost points, with a suggested fix.
type ReviewLowlight struct {
	Content    string `json:"content"`
	Reason     string `json:"reason"`
	Suggestion string `json:"suggestion"`
}

// ChatReview is the full post-hoc review of a conversation.
type ChatReview struct {
	Highlights []ReviewHighlight `json:"highlights"`
	Lowlights  []ReviewLowlight  `json:"lowlights"`
	Score      int               `json:"score"`
	Summary    string            `json:"summary"`
}

// ChatReviewer grades a finished conversation and points out what to improve.
// Unlike the per-turn tasks, review is user-initiated and has no neutral
// default worth returning, so parse failures propagate.
type ChatReviewer struct {
	service ai.CompletionService
}

func NewChatReviewer(service ai.CompletionService) *ChatReviewer {
	return &ChatReviewer{service: service}
}

func (a *ChatReviewer) Review(ctx context.Context, historyText string) (*ChatReview, error) {
	prompt := render(chatReviewPrompt, map[string]string{
		"conversation_history": historyText,
	})

	result := &ChatReview{}
	err := a.service.ChatJSON(ctx, []ai.Message{
		ai.SystemMessage("你是资深情感咨询师，严格输出JSON。"),
		ai.UserMessage(prompt),
	}, ai.Options{Temperature: 0.3}, result)
	if err != nil {
		return nil, fmt.Errorf("chat review: %w", err)
	}
	return result, nil
}
