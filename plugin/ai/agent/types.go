package agent

import (
	"github.com/weiwangfds/love-agent/plugin/ai/analyzer"
	"github.com/weiwangfds/love-agent/plugin/ai/generation"
	"github.com/weiwangfds/love-agent/plugin/ai/strategy"
	"github.com/weiwangfds/love-agent/store"
)

// TurnRequest is one reply-generation request. Exactly one of NewMessage or
// Messages is normally set; with neither, the stored history is used as is.
// The relationship fields are caller overrides; unset fields resolve from the
// stored session state.
type TurnRequest struct {
	SessionID  string          `json:"session_id"`
	NewMessage *store.Message  `json:"new_message,omitempty"`
	Messages   []store.Message `json:"messages,omitempty"`

	RelationshipStage  string `json:"relationship_stage,omitempty"`
	IntimacyLevel      *int   `json:"intimacy_level,omitempty"`
	HumorLevel         *int   `json:"humor_level,omitempty"`
	CurrentAppellation string `json:"current_appellation,omitempty"`
	UserGender         string `json:"user_gender,omitempty"`
	TargetGender       string `json:"target_gender,omitempty"`
}

// ReplyCandidate is a safety-cleared reply suggestion.
type ReplyCandidate = generation.Candidate

// AnalysisResult bundles every analysis produced during the turn. It is
// returned even when no candidate survived validation.
type AnalysisResult struct {
	Emotion          *analyzer.EmotionResult `json:"emotion"`
	OpportunityScore float64                 `json:"opportunity_score"`
	Topics           *analyzer.TopicResult   `json:"topics"`
	Persona          map[string]any          `json:"persona"`
	Strategy         *strategy.Plan          `json:"strategy"`
	KBContext        map[string]any          `json:"kb_context"`
	SearchIntent     *analyzer.SearchIntent  `json:"search_intent"`
	Facts            []string                `json:"facts"`
	Subtext          *analyzer.Subtext       `json:"subtext"`
	Radar            map[string]any          `json:"radar"`
	OverallAnalysis  string                  `json:"overall_analysis"`
	ActionGuide      map[string]any          `json:"action_guide"`
}

// TurnResult is the outcome of a processed turn.
type TurnResult struct {
	Replies  []ReplyCandidate `json:"replies"`
	Analysis *AnalysisResult  `json:"analysis"`
}

// UploadResult summarizes a bulk history upload.
type UploadResult struct {
	Status        string         `json:"status"`
	NewMessages   int            `json:"new_messages_count"`
	TotalMessages int            `json:"total_messages_count"`
	Updates       map[string]any `json:"updates,omitempty"`
}

// FeedbackResult is returned after processing user feedback on a reply.
type FeedbackResult = analyzer.FeedbackResult

// ProfileResult is the stored partner profile plus accumulated user facts.
type ProfileResult struct {
	Persona   map[string]any `json:"persona"`
	UserFacts []string       `json:"user_facts"`
}
