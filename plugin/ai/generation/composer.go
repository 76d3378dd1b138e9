// Package generation produces reply candidates: the standard composer for
// everyday turns, the empathy engine for negative-emotion turns, and the
// initiative generator for cold-start openers.
package generation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/weiwangfds/love-agent/plugin/ai"
	"github.com/weiwangfds/love-agent/plugin/ai/vector"
)

// Candidate is a single generated reply suggestion.
type Candidate struct {
	Text   string `json:"text"`
	Style  string `json:"style,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// ComposeInput carries everything the standard composer folds into a prompt.
type ComposeInput struct {
	TargetMessage string
	Stage         string
	Intimacy      int
	Humor         int
	Appellation   string
	UserGender    string
	TargetGender  string

	ReplyStrategy      string
	LanguageStyle      string
	TopicManagement    map[string]any
	BoundaryAssessment map[string]any
	ActionGuide        map[string]any

	Retrieval    []vector.Snippet
	KBContext    map[string]any
	UserFacts    []string
	EnableSearch bool
}

// Composer generates the standard three-style candidate set.
type Composer struct {
	service ai.CompletionService
}

func NewComposer(service ai.CompletionService) *Composer {
	return &Composer{service: service}
}

// Generate produces reply candidates at the temperature for the given
// attempt. A malformed response propagates so the caller can decide whether
// to retry.
func (c *Composer) Generate(ctx context.Context, in *ComposeInput, attempt int) ([]Candidate, error) {
	retrieved := make([]string, 0, len(in.Retrieval))
	for _, snip := range in.Retrieval {
		retrieved = append(retrieved, snip.Text)
	}

	prompt := render(replyCompositionPrompt, map[string]string{
		"target_message":      in.TargetMessage,
		"relationship_stage":  in.Stage,
		"intimacy_level":      fmt.Sprintf("%d", in.Intimacy),
		"humor_level":         fmt.Sprintf("%d", in.Humor),
		"current_appellation": in.Appellation,
		"user_gender":         in.UserGender,
		"target_gender":       in.TargetGender,
		"reply_strategy":      in.ReplyStrategy,
		"language_style":      in.LanguageStyle,
		"topic_management":    jsonText(in.TopicManagement),
		"boundary_assessment": jsonText(in.BoundaryAssessment),
		"action_guide":        jsonText(in.ActionGuide),
		"retrieval_materials": strings.Join(retrieved, "\n"),
		"kb_materials":        jsonText(in.KBContext),
		"user_facts":          strings.Join(in.UserFacts, "\n"),
	})

	var result struct {
		Replies []Candidate `json:"replies"`
	}
	err := c.service.ChatJSON(ctx, []ai.Message{
		ai.SystemMessage("你是中文恋爱聊天助手，生成口语自然的微信聊天候选，严格输出JSON，仅包含replies数组。"),
		ai.UserMessage(prompt),
	}, ai.Options{
		Temperature:  ComposerTemperature(attempt),
		EnableSearch: in.EnableSearch,
	}, &result)
	if err != nil {
		return nil, fmt.Errorf("compose replies: %w", err)
	}
	return nonEmpty(result.Replies), nil
}

// render substitutes {placeholder} variables into a prompt template.
func render(template string, vars map[string]string) string {
	result := template
	for key, value := range vars {
		result = strings.ReplaceAll(result, "{"+key+"}", value)
	}
	return result
}

func jsonText(v map[string]any) string {
	if len(v) == 0 {
		return "{}"
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(data)
}

func nonEmpty(candidates []Candidate) []Candidate {
	result := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if strings.TrimSpace(c.Text) != "" {
			result = append(result, c)
		}
	}
	return result
}
