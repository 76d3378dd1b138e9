package analyzer

import (
	"context"
	"errors"
	"fmt"

	"github.com/weiwangfds/love-agent/internal/observability"
	"github.com/weiwangfds/love-agent/plugin/ai"
	"github.com/weiwangfds/love-agent/store"
)

// RelationshipAnalysis is a full from-scratch read of the relationship.
type RelationshipAnalysis struct {
	Stage           string         `json:"relationship_stage"`
	Intimacy        int            `json:"intimacy_level"`
	Radar           map[string]any `json:"radar"`
	OverallAnalysis string         `json:"overall_analysis"`
}

// RelationshipUpdate is an incremental verdict against the stored state.
type RelationshipUpdate struct {
	ShouldUpdateStage bool           `json:"should_update_stage"`
	NewStage          string         `json:"new_stage"`
	NewIntimacy       int            `json:"new_intimacy"`
	RadarUpdate       map[string]any `json:"radar_update"`
	OverallAnalysis   string         `json:"overall_analysis"`
	Reason            string         `json:"reason"`
}

// RelationshipAnalyzer scores the relationship across the five radar
// dimensions and tracks stage transitions.
type RelationshipAnalyzer struct {
	service ai.CompletionService
}

func NewRelationshipAnalyzer(service ai.CompletionService) *RelationshipAnalyzer {
	return &RelationshipAnalyzer{service: service}
}

// Analyze performs a full relationship read over the history. Used as the
// synchronous fallback when the incremental update yields nothing usable.
func (a *RelationshipAnalyzer) Analyze(ctx context.Context, historyText string) (*RelationshipAnalysis, error) {
	prompt := render(relationshipPrompt, map[string]string{
		"conversation_history": historyText,
	})

	result := &RelationshipAnalysis{}
	err := a.service.ChatJSON(ctx, []ai.Message{
		ai.SystemMessage("你是恋爱关系分析专家，严格输出JSON。"),
		ai.UserMessage(prompt),
	}, ai.Options{Temperature: 0.5}, result)
	if err != nil {
		if errors.Is(err, ai.ErrUnavailable) {
			return nil, err
		}
		observability.TaskDegraded(ctx, "relationship_analysis", err)
		return &RelationshipAnalysis{
			Stage:    store.StageInitial,
			Intimacy: store.DefaultIntimacy,
			Radar:    map[string]any{},
		}, nil
	}

	if result.Stage == "" {
		result.Stage = store.StageInitial
	}
	if result.Intimacy == 0 {
		result.Intimacy = store.DefaultIntimacy
	}
	result.Intimacy = store.ClampIntimacy(result.Intimacy)
	if result.Radar == nil {
		result.Radar = map[string]any{}
	}
	return result, nil
}

// UpdateState asks whether the latest dialogue changed the relationship in a
// qualitative way. A degraded response returns nil, meaning "no change".
func (a *RelationshipAnalyzer) UpdateState(ctx context.Context, historyText string, current *store.SessionState) (*RelationshipUpdate, error) {
	prompt := render(stateUpdatePrompt, map[string]string{
		"conversation_history": historyText,
		"current_stage":        current.Stage,
		"current_intimacy":     fmt.Sprintf("%d", current.Intimacy),
	})

	result := &RelationshipUpdate{}
	err := a.service.ChatJSON(ctx, []ai.Message{
		ai.SystemMessage("你是关系状态管理员，严格输出JSON。"),
		ai.UserMessage(prompt),
	}, ai.Options{Temperature: 0.3}, result)
	if err != nil {
		if errors.Is(err, ai.ErrUnavailable) {
			return nil, err
		}
		observability.TaskDegraded(ctx, "relationship_update", err)
		return nil, nil
	}
	if result.NewIntimacy != 0 {
		result.NewIntimacy = store.ClampIntimacy(result.NewIntimacy)
	}
	return result, nil
}
