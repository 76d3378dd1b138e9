package generation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/weiwangfds/love-agent/plugin/ai"
)

// InitiativeOption is one suggested conversation opener.
type InitiativeOption struct {
	Text   string `json:"text"`
	Type   string `json:"type"`
	Reason string `json:"reason"`
}

// InitiativeInput configures opener generation.
type InitiativeInput struct {
	Stage              string
	Intimacy           int
	Persona            map[string]any
	UserFacts          []string
	LastChatTime       time.Time
	EnvironmentContext string
}

// InitiativeGenerator proposes openers when the user wants to start a
// conversation rather than reply to one.
type InitiativeGenerator struct {
	service ai.CompletionService

	now func() time.Time
}

func NewInitiativeGenerator(service ai.CompletionService) *InitiativeGenerator {
	return &InitiativeGenerator{
		service: service,
		now:     time.Now,
	}
}

func (g *InitiativeGenerator) Generate(ctx context.Context, in *InitiativeInput) ([]InitiativeOption, error) {
	personaJSON, _ := json.Marshal(in.Persona)

	lastChat := "从未聊过"
	if !in.LastChatTime.IsZero() {
		lastChat = in.LastChatTime.Format("2006-01-02 15:04:05")
	}

	prompt := render(initiativePrompt, map[string]string{
		"current_time":        g.now().Format("2006-01-02 15:04:05"),
		"last_chat_time":      lastChat,
		"environment_context": in.EnvironmentContext,
		"relationship_stage":  in.Stage,
		"intimacy_level":      fmt.Sprintf("%d", in.Intimacy),
		"persona":             string(personaJSON),
		"user_facts":          strings.Join(in.UserFacts, "\n"),
	})

	var result struct {
		Options []InitiativeOption `json:"options"`
	}
	err := g.service.ChatJSON(ctx, []ai.Message{
		ai.SystemMessage("你是高情商恋爱军师，善于制造自然、有趣的话题开场。严格输出JSON，包含options数组。"),
		ai.UserMessage(prompt),
	}, ai.Options{Temperature: 0.9}, &result)
	if err != nil {
		return nil, fmt.Errorf("initiative openers: %w", err)
	}

	options := make([]InitiativeOption, 0, len(result.Options))
	for _, opt := range result.Options {
		if strings.TrimSpace(opt.Text) != "" {
			options = append(options, opt)
		}
	}
	return options, nil
}
