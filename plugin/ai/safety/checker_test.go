package safety

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

func TestCheckSafe(t *testing.T) {
	c := NewChecker(&fakeCompletion{response: `{"is_safe": true, "risk_category": "无", "reason": "正常聊天"}`})

	verdict, err := c.Check(context.Background(), "哈哈，明天见呀")
	require.NoError(t, err)
	require.True(t, verdict.Safe)
}

func TestCheckUnsafe(t *testing.T) {
	c := NewChecker(&fakeCompletion{response: `{"is_safe": false, "risk_category": "侮辱", "reason": "攻击性语言"}`})

	verdict, err := c.Check(context.Background(), "某句攻击性内容")
	require.NoError(t, err)
	require.False(t, verdict.Safe)
	require.Equal(t, "侮辱", verdict.RiskCategory)
}

func TestCheckFailsClosed(t *testing.T) {
	c := NewChecker(&fakeCompletion{response: "审核系统输出了散文"})

	verdict, err := c.Check(context.Background(), "一条普通回复")
	require.NoError(t, err)
	require.False(t, verdict.Safe)
}

func TestCheckEmptyText(t *testing.T) {
	c := NewChecker(&fakeCompletion{})

	verdict, err := c.Check(context.Background(), "   ")
	require.NoError(t, err)
	require.False(t, verdict.Safe)
}

func TestCheckUnavailable(t *testing.T) {
	c := NewChecker(&fakeCompletion{err: ai.ErrUnavailable})

	_, err := c.Check(context.Background(), "hi")
	require.ErrorIs(t, err, ai.ErrUnavailable)
}
