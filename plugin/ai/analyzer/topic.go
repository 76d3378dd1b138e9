package analyzer

import (
	"context"
	"errors"

	"github.com/weiwangfds/love-agent/internal/observability"
	"github.com/weiwangfds/love-agent/plugin/ai"
)

// TopicResult identifies what the conversation is currently about.
type TopicResult struct {
	Topics   []string `json:"topics"`
	Category string   `json:"category"`
	Depth    int      `json:"depth"`
}

// TopicAnalyzer extracts conversation topics for retrieval and
// topic-switching strategy.
type TopicAnalyzer struct {
	service ai.CompletionService
}

func NewTopicAnalyzer(service ai.CompletionService) *TopicAnalyzer {
	return &TopicAnalyzer{service: service}
}

func (a *TopicAnalyzer) Analyze(ctx context.Context, latestText, contextHistory string) (*TopicResult, error) {
	prompt := render(topicPrompt, map[string]string{
		"current_message": latestText,
		"context_history": contextHistory,
	})

	result := &TopicResult{}
	err := a.service.ChatJSON(ctx, []ai.Message{
		ai.SystemMessage("你是对话话题分析专家，严格输出JSON对象。"),
		ai.UserMessage(prompt),
	}, ai.Options{Temperature: 0.1}, result)
	if err != nil {
		if errors.Is(err, ai.ErrUnavailable) {
			return nil, err
		}
		observability.TaskDegraded(ctx, "topic", err)
		return &TopicResult{}, nil
	}
	if result.Topics == nil {
		result.Topics = []string{}
	}
	return result, nil
}
