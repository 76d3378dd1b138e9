package agent

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/weiwangfds/love-agent/internal/observability"
	"github.com/weiwangfds/love-agent/plugin/ai/analyzer"
	"github.com/weiwangfds/love-agent/plugin/ai/generation"
	"github.com/weiwangfds/love-agent/store"
)

// ProcessUploadedHistory merges an uploaded batch into the session, indexes
// the accepted messages and refreshes persona, relationship and facts from
// the widened context window.
func (o *Orchestrator) ProcessUploadedHistory(ctx context.Context, sessionID string, uploaded []store.Message) (*UploadResult, error) {
	turnCtx := observability.NewTurnContext(o.logger, sessionID)
	ctx = observability.WithTurnContext(ctx, turnCtx)

	added, err := o.store.MergeHistory(ctx, sessionID, uploaded)
	if err != nil {
		return nil, fmt.Errorf("merge history: %w", err)
	}
	state := o.store.GetSessionState(ctx, sessionID)
	if len(added) == 0 {
		return &UploadResult{
			Status:        "no_new_messages",
			TotalMessages: len(state.History),
		}, nil
	}

	if _, err := o.ingestor.IndexMessages(ctx, sessionID, added); err != nil {
		turnCtx.Warn("upload ingest degraded", slog.String("error", err.Error()))
	}

	window := tail(state.History, uploadWindow)
	historyText := analyzer.HistoryText(window)
	latestText := analyzer.LatestText(window)

	var (
		personaRes map[string]any
		relUpdate  *analyzer.RelationshipUpdate
		newFacts   []string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		personaRes, err = o.persona.Profile(gctx, window)
		return err
	})
	g.Go(func() error {
		var err error
		relUpdate, err = o.relationship.UpdateState(gctx, historyText, state)
		return err
	})
	g.Go(func() error {
		var err error
		newFacts, err = o.facts.Extract(gctx, latestText, historyText)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("upload analysis: %w", err)
	}

	updates := map[string]any{}
	update := &store.UpdateSessionState{}
	if personaRes != nil {
		update.Persona = &personaRes
		updates["persona"] = personaRes
	}
	if relUpdate != nil {
		if relUpdate.ShouldUpdateStage && relUpdate.NewStage != "" {
			update.Stage = &relUpdate.NewStage
			updates["relationship_stage"] = relUpdate.NewStage
		}
		if relUpdate.NewIntimacy != 0 {
			update.Intimacy = &relUpdate.NewIntimacy
			updates["intimacy_level"] = relUpdate.NewIntimacy
		}
		if len(relUpdate.RadarUpdate) > 0 {
			update.Radar = &relUpdate.RadarUpdate
			updates["radar"] = relUpdate.RadarUpdate
		}
		if relUpdate.OverallAnalysis != "" {
			update.OverallAnalysis = &relUpdate.OverallAnalysis
			updates["overall_analysis"] = relUpdate.OverallAnalysis
		}
	}
	if len(updates) > 0 {
		if _, err := o.store.UpdateSession(ctx, sessionID, update); err != nil {
			turnCtx.Warn("upload state persistence failed", slog.String("error", err.Error()))
		}
	}
	o.persistFacts(ctx, turnCtx, sessionID, newFacts)
	if len(newFacts) > 0 {
		updates["user_facts"] = newFacts
	}

	turnCtx.Info("history upload processed",
		slog.Int("new_messages", len(added)),
		slog.Int("total_messages", len(state.History)))

	return &UploadResult{
		Status:        "success",
		NewMessages:   len(added),
		TotalMessages: len(state.History),
		Updates:       updates,
	}, nil
}

// GenerateInitiative proposes conversation openers based on the stored
// relationship, remembered facts and the current environment.
func (o *Orchestrator) GenerateInitiative(ctx context.Context, sessionID string) ([]generation.InitiativeOption, error) {
	state := o.store.GetSessionState(ctx, sessionID)

	userFacts := []string{}
	for _, snip := range o.aggregator.RetrieveFacts(ctx, sessionID, "用户喜好 习惯", 5) {
		userFacts = append(userFacts, snip.Text)
	}
	if len(userFacts) == 0 {
		userFacts = tailStrings(state.Facts, 5)
	}

	var lastChat time.Time
	if state.LastUpdated > 0 {
		lastChat = time.Unix(state.LastUpdated, 0)
	}

	env := o.awareness.Current()
	return o.initiative.Generate(ctx, &generation.InitiativeInput{
		Stage:              state.Stage,
		Intimacy:           state.Intimacy,
		Persona:            state.Persona,
		UserFacts:          userFacts,
		LastChatTime:       lastChat,
		EnvironmentContext: env.ContextStr,
	})
}

// HandleFeedback analyzes negative feedback on a generated reply, producing
// a corrected reply and persisting the distilled lesson for future planning.
func (o *Orchestrator) HandleFeedback(ctx context.Context, sessionID, feedbackReason, lastReply string) (*FeedbackResult, error) {
	state := o.store.GetSessionState(ctx, sessionID)

	result, err := o.feedback.Analyze(ctx, lastReply, feedbackReason, state.Stage, state.Intimacy)
	if err != nil {
		return nil, err
	}

	if result.Lesson != "" {
		added, err := o.store.AddFacts(ctx, sessionID, store.FactTypeLesson, []string{result.Lesson})
		if err != nil {
			slog.Warn("lesson persistence failed", "session_id", sessionID, "error", err)
		} else if len(added) > 0 {
			if _, err := o.ingestor.IndexFacts(ctx, sessionID, added); err != nil {
				slog.Warn("lesson indexing degraded", "session_id", sessionID, "error", err)
			}
		}
	}
	return result, nil
}

// ReviewChat grades a conversation transcript without touching session state.
func (o *Orchestrator) ReviewChat(ctx context.Context, messages []store.Message) (*analyzer.ChatReview, error) {
	return o.reviewer.Review(ctx, analyzer.HistoryText(messages))
}

// SummarizeProfile writes a first-person summary from remembered user facts.
func (o *Orchestrator) SummarizeProfile(ctx context.Context, sessionID string) (string, error) {
	state := o.store.GetSessionState(ctx, sessionID)

	userFacts := []string{}
	for _, snip := range o.aggregator.RetrieveFacts(ctx, sessionID, "用户", 20) {
		userFacts = append(userFacts, snip.Text)
	}
	if len(userFacts) == 0 {
		userFacts = tailStrings(state.Facts, 20)
	}

	return o.summarizer.Summarize(ctx, userFacts, state.Stage, state.Intimacy)
}

// HandleImage analyzes a partner-sent image in relationship context and
// returns a reply suggestion.
func (o *Orchestrator) HandleImage(ctx context.Context, sessionID, imageURL string) (string, error) {
	state := o.store.GetSessionState(ctx, sessionID)
	return o.image.AnalyzeAndReply(ctx, imageURL, state.Stage, state.Intimacy, state.Persona)
}

// GetRadar returns the stored relationship radar for a session.
func (o *Orchestrator) GetRadar(ctx context.Context, sessionID string) map[string]any {
	return o.store.GetSessionState(ctx, sessionID).Radar
}

// GetProfile returns the stored partner persona and user facts.
func (o *Orchestrator) GetProfile(ctx context.Context, sessionID string) *ProfileResult {
	state := o.store.GetSessionState(ctx, sessionID)
	return &ProfileResult{
		Persona:   state.Persona,
		UserFacts: state.Facts,
	}
}

// GetHistory returns the stored message history.
func (o *Orchestrator) GetHistory(ctx context.Context, sessionID string) []store.Message {
	return o.store.GetSessionState(ctx, sessionID).History
}

func tailStrings(values []string, n int) []string {
	if len(values) <= n {
		return values
	}
	return values[len(values)-n:]
}
