package analyzer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/weiwangfds/love-agent/internal/observability"
	"github.com/weiwangfds/love-agent/plugin/ai"
	"github.com/weiwangfds/love-agent/store"
)

func TestOpportunityScore(t *testing.T) {
	tests := []struct {
		text string
		want float64
	}{
		{"周末一起去看电影吗", 0.25},
		{"哈哈好呀，周末有空", 0.75},
		{"算了，没空", 0},
		{"哈哈，不太行，改天再说", 0.05},
		{"嗯", 0},
	}
	for _, tc := range tests {
		require.Equal(t, tc.want, OpportunityScore(tc.text), "text=%s", tc.text)
	}
}

func TestEmotionKeywordGuess(t *testing.T) {
	svc := &scriptedCompletion{responses: []string{
		`{"emotion_score": 3, "dominant_emotion": "悲伤", "potential_needs": ["情感需求"], "emotion_trend": "下降"}`,
	}}
	a := NewEmotionAnalyzer(svc)

	result, err := a.Analyze(context.Background(), []store.Message{
		{Speaker: store.SpeakerOther, Content: "今天好累，真的不开心"},
	})
	require.NoError(t, err)
	require.Equal(t, EmotionNegative, result.Emotion)
	require.Equal(t, 0.7, result.Confidence)
	require.Equal(t, 3, result.Detail.EmotionScore)
	require.Equal(t, "悲伤", result.Detail.DominantEmotion)
}

func TestEmotionNeutralDefault(t *testing.T) {
	svc := &scriptedCompletion{responses: []string{"这不是JSON"}}
	a := NewEmotionAnalyzer(svc)
	degradedBefore := observability.GlobalMetrics().GetTaskMetrics("emotion").DegradedCount()

	result, err := a.Analyze(context.Background(), []store.Message{
		{Speaker: store.SpeakerOther, Content: "今天天气不错"},
	})
	require.NoError(t, err)
	require.Equal(t, EmotionNeutral, result.Emotion)
	// Malformed detail degrades to a neutral midpoint.
	require.Equal(t, 5, result.Detail.EmotionScore)
	require.Equal(t, "稳定", result.Detail.EmotionTrend)
	// The degradation is counted.
	require.Equal(t, degradedBefore+1, observability.GlobalMetrics().GetTaskMetrics("emotion").DegradedCount())
}

func TestEmotionUnavailablePropagates(t *testing.T) {
	svc := &scriptedCompletion{errs: []error{ai.ErrUnavailable}}
	a := NewEmotionAnalyzer(svc)

	_, err := a.Analyze(context.Background(), []store.Message{
		{Speaker: store.SpeakerOther, Content: "hi"},
	})
	require.ErrorIs(t, err, ai.ErrUnavailable)
}

func TestSearchIntentBoolCoercion(t *testing.T) {
	tests := []struct {
		response string
		want     bool
	}{
		{`{"need_search": true, "search_keywords": "北京 天气"}`, true},
		{`{"need_search": "true", "search_keywords": "北京 天气"}`, true},
		{`{"need_search": "false"}`, false},
		{`{"need_search": false}`, false},
	}
	for _, tc := range tests {
		svc := &scriptedCompletion{responses: []string{tc.response}}
		a := NewSearchIntentAnalyzer(svc)
		result, err := a.Analyze(context.Background(), "明天北京天气如何", "")
		require.NoError(t, err)
		require.Equal(t, tc.want, bool(result.NeedSearch), "response=%s", tc.response)
	}
}

func TestSearchIntentDegraded(t *testing.T) {
	svc := &scriptedCompletion{responses: []string{"乱七八糟"}}
	a := NewSearchIntentAnalyzer(svc)

	result, err := a.Analyze(context.Background(), "你知道周杰伦吗", "")
	require.NoError(t, err)
	require.False(t, bool(result.NeedSearch))
}

func TestTopicAnalyzer(t *testing.T) {
	svc := &scriptedCompletion{responses: []string{
		"```json\n{\"topics\": [\"工作\", \"加班\"], \"category\": \"工作\", \"depth\": 2}\n```",
	}}
	a := NewTopicAnalyzer(svc)

	result, err := a.Analyze(context.Background(), "又要加班了", "")
	require.NoError(t, err)
	require.Equal(t, []string{"工作", "加班"}, result.Topics)
	require.Equal(t, 2, result.Depth)
}

func TestSubtextEmptyMessageSkipsModel(t *testing.T) {
	svc := &scriptedCompletion{}
	a := NewSubtextDecoder(svc)

	result, err := a.Decode(context.Background(), "", "history", "暧昧升温")
	require.NoError(t, err)
	require.Empty(t, result.Subtext)
	require.Zero(t, svc.calls)
}

func TestSubtextDecode(t *testing.T) {
	svc := &scriptedCompletion{responses: []string{
		`{"surface_meaning": "随便", "subtext": "希望你做决定", "emotion_base": "试探", "suggestion": "给出具体提议"}`,
	}}
	a := NewSubtextDecoder(svc)

	result, err := a.Decode(context.Background(), "随便你吧", "", "暧昧升温")
	require.NoError(t, err)
	require.Equal(t, "希望你做决定", result.Subtext)
}

func TestRelationshipUpdateDegradedMeansNoChange(t *testing.T) {
	svc := &scriptedCompletion{responses: []string{"not json at all, no braces"}}
	a := NewRelationshipAnalyzer(svc)

	state := &store.SessionState{Stage: store.StageInitial, Intimacy: 2}
	result, err := a.UpdateState(context.Background(), "我: 你好\n", state)
	require.NoError(t, err)
	require.Nil(t, result)
}

func TestRelationshipAnalyzeClampsIntimacy(t *testing.T) {
	svc := &scriptedCompletion{responses: []string{
		`{"relationship_stage": "热恋", "intimacy_level": 99, "radar": {}, "overall_analysis": "很好"}`,
	}}
	a := NewRelationshipAnalyzer(svc)

	result, err := a.Analyze(context.Background(), "history")
	require.NoError(t, err)
	require.Equal(t, 10, result.Intimacy)
	require.Equal(t, "热恋", result.Stage)
}

func TestFactExtractor(t *testing.T) {
	svc := &scriptedCompletion{responses: []string{
		`{"facts": ["喜欢摄影", "  ", "在上海工作"]}`,
	}}
	a := NewFactExtractor(svc)

	facts, err := a.Extract(context.Background(), "我周末都在拍照", "我: 我在上海上班\n")
	require.NoError(t, err)
	require.Equal(t, []string{"喜欢摄影", "在上海工作"}, facts)
}

func TestFactExtractorEmptyInput(t *testing.T) {
	svc := &scriptedCompletion{}
	a := NewFactExtractor(svc)

	facts, err := a.Extract(context.Background(), "", "")
	require.NoError(t, err)
	require.Nil(t, facts)
	require.Zero(t, svc.calls)
}

func TestChatReviewerPropagatesParseFailure(t *testing.T) {
	svc := &scriptedCompletion{responses: []string{"no json here at all"}}
	a := NewChatReviewer(svc)

	_, err := a.Review(context.Background(), "我: 在吗\n对方: 嗯\n")
	require.ErrorIs(t, err, ai.ErrMalformedResponse)
}

func TestHistoryText(t *testing.T) {
	text := HistoryText([]store.Message{
		{Speaker: store.SpeakerSelf, Content: "在吗"},
		{Speaker: store.SpeakerOther, Content: "在的"},
	})
	require.Equal(t, "我: 在吗\n对方: 在的\n", text)
}
