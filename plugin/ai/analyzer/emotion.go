package analyzer

import (
	"context"
	"errors"
	"regexp"

	"github.com/weiwangfds/love-agent/internal/observability"
	"github.com/weiwangfds/love-agent/plugin/ai"
	"github.com/weiwangfds/love-agent/store"
)

// Emotion labels produced by the keyword pre-guess.
const (
	EmotionNegative = "negative"
	EmotionNeutral  = "neutral"
)

var negativePattern = regexp.MustCompile(`(糟|累|烦|无语|难受|不开心|生气|算了)`)

// EmotionDetail is the model's structured read of the partner's mood.
type EmotionDetail struct {
	EmotionScore    int      `json:"emotion_score"`
	DominantEmotion string   `json:"dominant_emotion"`
	PotentialNeeds  []string `json:"potential_needs"`
	EmotionTrend    string   `json:"emotion_trend"`
}

// EmotionResult combines the rule-based pre-guess with the model detail.
// The pre-guess drives the generation branch; the detail enriches prompts.
type EmotionResult struct {
	Emotion    string        `json:"emotion"`
	Confidence float64       `json:"confidence"`
	Detail     EmotionDetail `json:"detail"`
}

// EmotionAnalyzer classifies the partner's current emotional state.
type EmotionAnalyzer struct {
	service ai.CompletionService
}

func NewEmotionAnalyzer(service ai.CompletionService) *EmotionAnalyzer {
	return &EmotionAnalyzer{service: service}
}

// Analyze runs keyword matching over the latest message and a model pass over
// the window. A malformed model response degrades to a neutral-score detail.
func (a *EmotionAnalyzer) Analyze(ctx context.Context, window []store.Message) (*EmotionResult, error) {
	latest := LatestText(window)

	guess := EmotionNeutral
	confidence := 0.5
	if negativePattern.MatchString(latest) {
		guess = EmotionNegative
		confidence = 0.7
	}

	var contextWindow []store.Message
	if len(window) > 0 {
		contextWindow = window[:len(window)-1]
	}

	prompt := render(emotionPrompt, map[string]string{
		"current_message": latest,
		"context_history": HistoryText(contextWindow),
	})

	detail := EmotionDetail{EmotionScore: 5, EmotionTrend: "稳定"}
	err := a.service.ChatJSON(ctx, []ai.Message{
		ai.SystemMessage("你是中文对话的情绪识别专家，严格输出JSON对象。"),
		ai.UserMessage(prompt),
	}, ai.Options{Temperature: 0.2}, &detail)
	if err != nil {
		if errors.Is(err, ai.ErrUnavailable) {
			return nil, err
		}
		observability.TaskDegraded(ctx, "emotion", err)
		detail = EmotionDetail{EmotionScore: 5, EmotionTrend: "稳定"}
	}

	return &EmotionResult{
		Emotion:    guess,
		Confidence: confidence,
		Detail:     detail,
	}, nil
}
