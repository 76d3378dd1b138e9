package analyzer

import (
	"context"

	"github.com/weiwangfds/love-agent/plugin/ai"
)

// scriptedCompletion returns canned responses in call order. An empty script
// or an explicit error entry simulates failure modes.
type scriptedCompletion struct {
	responses []string
	errs      []error
	calls     int
	prompts   []string
}

func (s *scriptedCompletion) next() (string, error) {
	i := s.calls
	s.calls++
	if i < len(s.errs) && s.errs[i] != nil {
		return "", s.errs[i]
	}
	if i < len(s.responses) {
		return s.responses[i], nil
	}
	return "{}", nil
}

func (s *scriptedCompletion) Chat(ctx context.Context, messages []ai.Message, opts ai.Options) (string, error) {
	if len(messages) > 0 {
		s.prompts = append(s.prompts, messages[len(messages)-1].Content)
	}
	return s.next()
}

func (s *scriptedCompletion) ChatJSON(ctx context.Context, messages []ai.Message, opts ai.Options, out any) error {
	content, err := s.Chat(ctx, messages, opts)
	if err != nil {
		return err
	}
	return ai.DecodeJSON(content, out)
}

func (s *scriptedCompletion) Embedding(ctx context.Context, text string) ([]float32, error) {
	return []float32{0.1, 0.2}, nil
}

var _ ai.CompletionService = (*scriptedCompletion)(nil)
