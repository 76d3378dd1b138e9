package ai

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeJSON(t *testing.T) {
	type reply struct {
		Text   string `json:"text"`
		Reason string `json:"reason"`
	}

	tests := []struct {
		name    string
		content string
		want    reply
		wantErr bool
	}{
		{
			name:    "plain_object",
			content: `{"text":"好呀","reason":"顺着话题"}`,
			want:    reply{Text: "好呀", Reason: "顺着话题"},
		},
		{
			name:    "json_fence",
			content: "```json\n{\"text\":\"好呀\",\"reason\":\"顺着话题\"}\n```",
			want:    reply{Text: "好呀", Reason: "顺着话题"},
		},
		{
			name:    "bare_fence",
			content: "```\n{\"text\":\"好呀\",\"reason\":\"顺着话题\"}\n```",
			want:    reply{Text: "好呀", Reason: "顺着话题"},
		},
		{
			name:    "prose_around_object",
			content: "好的，以下是结果：{\"text\":\"好呀\",\"reason\":\"顺着话题\"} 希望有帮助。",
			want:    reply{Text: "好呀", Reason: "顺着话题"},
		},
		{
			name:    "trailing_comma_repaired",
			content: `{"text":"好呀","reason":"顺着话题",}`,
			want:    reply{Text: "好呀", Reason: "顺着话题"},
		},
		{
			name:    "no_json_at_all",
			content: "抱歉，我无法回答这个问题。",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got reply
			err := DecodeJSON(tt.content, &got)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrMalformedResponse))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeJSONArray(t *testing.T) {
	var got []string
	err := DecodeJSON("```json\n[\"旅行\",\"美食\"]\n```", &got)
	require.NoError(t, err)
	assert.Equal(t, []string{"旅行", "美食"}, got)
}

func TestChatUnavailableWithoutAPIKey(t *testing.T) {
	provider := NewProvider(&Config{})

	_, err := provider.Chat(context.Background(), []Message{UserMessage("hi")}, Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnavailable))

	err = provider.ChatJSON(context.Background(), []Message{UserMessage("hi")}, Options{}, &struct{}{})
	assert.True(t, errors.Is(err, ErrUnavailable))

	_, err = provider.Embedding(context.Background(), "hi")
	assert.True(t, errors.Is(err, ErrUnavailable))
}

func TestConfigDefaults(t *testing.T) {
	provider := NewProvider(&Config{})
	assert.Equal(t, "qwen-plus", provider.config.ChatModel)
	assert.Equal(t, 3, provider.config.MaxRetries)
	assert.Equal(t, 8, provider.config.RequestsPer)
}
