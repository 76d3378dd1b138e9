package generation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/weiwangfds/love-agent/plugin/ai"
)

type fakeCompletion struct {
	response string
	err      error
	lastOpts ai.Options
}

func (f *fakeCompletion) Chat(ctx context.Context, messages []ai.Message, opts ai.Options) (string, error) {
	f.lastOpts = opts
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

func TestTemperatureEscalation(t *testing.T) {
	require.Equal(t, float32(0.8), ComposerTemperature(0))
	require.Equal(t, float32(1.0), ComposerTemperature(1))
	require.Equal(t, float32(1.0), ComposerTemperature(2))
	require.Equal(t, float32(0.7), EmpathyTemperature(0))
	require.Equal(t, float32(0.9), EmpathyTemperature(1))
}

func TestComposerGenerate(t *testing.T) {
	svc := &fakeCompletion{response: `{"replies": [
		{"text": "哈哈，那明天见", "style": "Safe", "reason": "稳健接话"},
		{"text": "", "style": "Flirty", "reason": "空的要过滤"},
		{"text": "你要是再这么可爱我可要收心了", "style": "Flirty", "reason": "推拉"}
	]}`}
	c := NewComposer(svc)

	candidates, err := c.Generate(context.Background(), &ComposeInput{
		TargetMessage: "明天有空吗",
		Stage:         "暧昧升温",
		Intimacy:      5,
		Humor:         3,
		Appellation:   "小王",
	}, 0)
	require.NoError(t, err)
	require.Len(t, candidates, 2)
	require.Equal(t, "Safe", candidates[0].Style)
	require.Equal(t, float32(0.8), svc.lastOpts.Temperature)
}

func TestComposerRetryTemperature(t *testing.T) {
	svc := &fakeCompletion{response: `{"replies": []}`}
	c := NewComposer(svc)

	_, err := c.Generate(context.Background(), &ComposeInput{TargetMessage: "hi"}, 1)
	require.NoError(t, err)
	require.Equal(t, float32(1.0), svc.lastOpts.Temperature)
}

func TestComposerEnableSearch(t *testing.T) {
	svc := &fakeCompletion{response: `{"replies": []}`}
	c := NewComposer(svc)

	_, err := c.Generate(context.Background(), &ComposeInput{
		TargetMessage: "明天天气怎么样",
		EnableSearch:  true,
	}, 0)
	require.NoError(t, err)
	require.True(t, svc.lastOpts.EnableSearch)
}

func TestComposerMalformedPropagates(t *testing.T) {
	svc := &fakeCompletion{response: "抱歉我不能输出"}
	c := NewComposer(svc)

	_, err := c.Generate(context.Background(), &ComposeInput{TargetMessage: "hi"}, 0)
	require.ErrorIs(t, err, ai.ErrMalformedResponse)
}

func TestEmpathyGenerate(t *testing.T) {
	svc := &fakeCompletion{response: `{"replies": [
		{"text": "我知道你现在很难受，抱抱。要不先喝口热水，我陪你聊聊？", "reason": "三段式"}
	]}`}
	e := NewEmpathyEngine(svc)

	candidates, err := e.Generate(context.Background(), &EmpathyInput{
		TargetMessage: "今天真的好累，烦死了",
		Emotion:       "negative",
		EmotionScore:  3,
		Stage:         "深入了解",
	}, 0)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	require.Equal(t, float32(0.7), svc.lastOpts.Temperature)
}

func TestInitiativeGenerate(t *testing.T) {
	svc := &fakeCompletion{response: `{"options": [
		{"text": "今天路过一家超好看的咖啡店，突然想到你", "type": "Sharing", "reason": "分享"},
		{"text": "周五啦，这周过得怎么样？", "type": "Care", "reason": "问候"}
	]}`}
	g := NewInitiativeGenerator(svc)

	options, err := g.Generate(context.Background(), &InitiativeInput{
		Stage:    "暧昧升温",
		Intimacy: 4,
	})
	require.NoError(t, err)
	require.Len(t, options, 2)
	require.Equal(t, "Sharing", options[0].Type)
}
