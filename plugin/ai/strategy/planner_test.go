package strategy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/weiwangfds/love-agent/plugin/ai"
)

type fakeCompletion struct {
	response string
	err      error
}

func (f *fakeCompletion) Chat(ctx context.Context, messages []ai.Message, opts ai.Options) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func (f *fakeCompletion) ChatJSON(ctx context.Context, messages []ai.Message, opts ai.Options, out any) error {
	content, err := f.Chat(ctx, messages, opts)
	if err != nil {
		return err
	}
	return ai.DecodeJSON(content, out)
}

func (f *fakeCompletion) Embedding(ctx context.Context, text string) ([]float32, error) {
	return nil, nil
}

func TestPlan(t *testing.T) {
	svc := &fakeCompletion{response: `{
		"reply_strategy": "幽默风趣",
		"language_style": "轻松俏皮",
		"topic_management": {"status": "active", "should_switch": false},
		"boundary_assessment": {"should_reject": false},
		"appellation_update": {"should_update": true, "new_appellation": "小笨蛋", "reason": "亲密度提升"},
		"action_guide": {"is_critical_moment": true, "moment_type": "邀约良机", "success_rate": 75}
	}`}
	p := NewPlanner(svc)

	plan, err := p.Plan(context.Background(), &Input{
		Stage:       "暧昧升温",
		Intimacy:    5,
		Humor:       4,
		Appellation: "你",
	})
	require.NoError(t, err)
	require.Equal(t, "幽默风趣", plan.ReplyStrategy)
	require.True(t, plan.Appellation.ShouldUpdate)
	require.Equal(t, "小笨蛋", plan.Appellation.NewAppellation)
	require.Equal(t, true, plan.ActionGuide["is_critical_moment"])
}

func TestPlanDegradesToDefaults(t *testing.T) {
	svc := &fakeCompletion{response: "模型输出了一段散文"}
	p := NewPlanner(svc)

	plan, err := p.Plan(context.Background(), &Input{Appellation: "你"})
	require.NoError(t, err)
	require.Equal(t, DefaultReplyStrategy, plan.ReplyStrategy)
	require.Equal(t, DefaultLanguageStyle, plan.LanguageStyle)
	require.False(t, plan.Appellation.ShouldUpdate)
	require.NotNil(t, plan.TopicManagement)
}

func TestPlanUnavailablePropagates(t *testing.T) {
	svc := &fakeCompletion{err: ai.ErrUnavailable}
	p := NewPlanner(svc)

	_, err := p.Plan(context.Background(), &Input{})
	require.ErrorIs(t, err, ai.ErrUnavailable)
}
