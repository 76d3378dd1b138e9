// Package agent contains the turn orchestrator, the coordination core that
// drives analysis, strategy and generation for each conversational turn.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/weiwangfds/love-agent/internal/observability"
	"github.com/weiwangfds/love-agent/plugin/ai"
	"github.com/weiwangfds/love-agent/plugin/ai/analyzer"
	"github.com/weiwangfds/love-agent/plugin/ai/contextaware"
	"github.com/weiwangfds/love-agent/plugin/ai/generation"
	"github.com/weiwangfds/love-agent/plugin/ai/retrieval"
	"github.com/weiwangfds/love-agent/plugin/ai/safety"
	"github.com/weiwangfds/love-agent/plugin/ai/strategy"
	"github.com/weiwangfds/love-agent/plugin/ai/vector"
	"github.com/weiwangfds/love-agent/store"
)

const (
	// analysisWindow is how many trailing messages the per-turn analyzers see.
	analysisWindow = 12
	// uploadWindow is the wider window used after a bulk history upload.
	uploadWindow = 20
	// maxCandidates caps the reply candidates returned per turn.
	maxCandidates = 6
	// maxGenerationAttempts bounds generation to one retry.
	maxGenerationAttempts = 2
	// defaultHumorLevel applies when the caller does not specify one.
	defaultHumorLevel = 3

	genderUnknown = "未知"
)

// Orchestrator wires the session store, retrieval, analyzers, strategy and
// generation into the turn state machine.
type Orchestrator struct {
	store      *store.Store
	aggregator *retrieval.Aggregator
	ingestor   *retrieval.Ingestor

	emotion      *analyzer.EmotionAnalyzer
	topic        *analyzer.TopicAnalyzer
	persona      *analyzer.PersonaProfiler
	facts        *analyzer.FactExtractor
	intent       *analyzer.SearchIntentAnalyzer
	relationship *analyzer.RelationshipAnalyzer
	subtext      *analyzer.SubtextDecoder
	reviewer     *analyzer.ChatReviewer
	summarizer   *analyzer.ProfileSummarizer
	image        *analyzer.ImageAnalyzer
	feedback     *analyzer.FeedbackAnalyzer

	planner    *strategy.Planner
	composer   *generation.Composer
	empathy    *generation.EmpathyEngine
	initiative *generation.InitiativeGenerator
	checker    safety.Validator
	awareness  *contextaware.Awareness

	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewOrchestrator assembles an orchestrator over the given collaborators.
func NewOrchestrator(st *store.Store, service ai.CompletionService, vectorSvc vector.Service, visionModel string) *Orchestrator {
	return &Orchestrator{
		store:        st,
		aggregator:   retrieval.NewAggregator(vectorSvc),
		ingestor:     retrieval.NewIngestor(vectorSvc),
		emotion:      analyzer.NewEmotionAnalyzer(service),
		topic:        analyzer.NewTopicAnalyzer(service),
		persona:      analyzer.NewPersonaProfiler(service),
		facts:        analyzer.NewFactExtractor(service),
		intent:       analyzer.NewSearchIntentAnalyzer(service),
		relationship: analyzer.NewRelationshipAnalyzer(service),
		subtext:      analyzer.NewSubtextDecoder(service),
		reviewer:     analyzer.NewChatReviewer(service),
		summarizer:   analyzer.NewProfileSummarizer(service),
		image:        analyzer.NewImageAnalyzer(service, visionModel),
		feedback:     analyzer.NewFeedbackAnalyzer(service),
		planner:      strategy.NewPlanner(service),
		composer:     generation.NewComposer(service),
		empathy:      generation.NewEmpathyEngine(service),
		initiative:   generation.NewInitiativeGenerator(service),
		checker:      safety.NewChecker(service),
		awareness:    contextaware.New(""),
		metrics:      observability.GlobalMetrics(),
		logger:       slog.Default(),
	}
}

// ProcessTurn runs one full turn: resolve history, fan out analysis,
// reconcile the relationship, plan, generate and validate candidates.
// It fails only on fatal configuration errors; degraded tasks produce a
// result with neutral analysis defaults.
func (o *Orchestrator) ProcessTurn(ctx context.Context, req *TurnRequest) (*TurnResult, error) {
	turnCtx := observability.NewTurnContext(o.logger, req.SessionID)
	ctx = observability.WithTurnContext(ctx, turnCtx)
	o.metrics.RecordTurn()

	result, err := o.processTurn(ctx, turnCtx, req)
	if err != nil {
		o.metrics.RecordTurnFailure()
		turnCtx.Error("turn failed", err,
			slog.Int64(observability.LogFieldDuration, turnCtx.DurationMs()))
		return nil, err
	}

	turnCtx.Info("turn done",
		slog.Int("candidates", len(result.Replies)),
		slog.Int64(observability.LogFieldDuration, turnCtx.DurationMs()))
	return result, nil
}

func (o *Orchestrator) processTurn(ctx context.Context, turnCtx *observability.TurnContext, req *TurnRequest) (*TurnResult, error) {
	sessionID := req.SessionID

	// Resolving: fold the request into the stored history.
	history, err := o.resolveHistory(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("resolve history: %w", err)
	}

	window := tail(history, analysisWindow)
	latestText := analyzer.LatestText(window)
	historyText := analyzer.HistoryText(window)

	// Stage 1: independent analysis fan-out. Tasks degrade internally and
	// return nil; only an unavailable completion service aborts.
	var (
		emotionRes    *analyzer.EmotionResult
		topicRes      *analyzer.TopicResult
		newFacts      []string
		intentRes     *analyzer.SearchIntent
		personaRes    map[string]any
		retrievalCtx  []vector.Snippet
		relevantFacts []string
		lessons       []string
		relUpdate     *analyzer.RelationshipUpdate
	)

	stage1Start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if _, err := o.ingestor.IndexMessages(gctx, sessionID, history); err != nil {
			if errors.Is(err, ai.ErrUnavailable) {
				return err
			}
			turnCtx.Warn("history ingest degraded", slog.String("error", err.Error()))
		}
		return nil
	})
	g.Go(func() error {
		var err error
		emotionRes, err = o.emotion.Analyze(gctx, window)
		return err
	})
	g.Go(func() error {
		var err error
		topicRes, err = o.topic.Analyze(gctx, latestText, historyText)
		return err
	})
	g.Go(func() error {
		var err error
		newFacts, err = o.facts.Extract(gctx, latestText, historyText)
		return err
	})
	g.Go(func() error {
		var err error
		intentRes, err = o.intent.Analyze(gctx, latestText, historyText)
		return err
	})
	g.Go(func() error {
		var err error
		personaRes, err = o.persona.Profile(gctx, window)
		return err
	})
	g.Go(func() error {
		retrievalCtx = o.aggregator.Retrieve(gctx, sessionID, latestText)
		return nil
	})
	g.Go(func() error {
		lessons, relevantFacts = o.retrieveRelevantFacts(gctx, sessionID, latestText)
		return nil
	})
	g.Go(func() error {
		if req.RelationshipStage != "" {
			return nil
		}
		state := o.store.GetSessionState(gctx, sessionID)
		var err error
		relUpdate, err = o.relationship.UpdateState(gctx, historyText, state)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("analysis stage: %w", err)
	}
	o.metrics.RecordTask("stage1", time.Since(stage1Start))
	turnCtx.Debug("analysis stage done",
		slog.String(observability.LogFieldStage, "stage1"),
		slog.Int64(observability.LogFieldDuration, time.Since(stage1Start).Milliseconds()))

	// Side effects commit only after their producing task succeeded.
	o.persistFacts(ctx, turnCtx, sessionID, newFacts)
	if personaRes != nil {
		if _, err := o.store.UpdateSession(ctx, sessionID, &store.UpdateSessionState{Persona: &personaRes}); err != nil {
			turnCtx.Warn("persona persistence failed", slog.String("error", err.Error()))
		}
	}

	// RelationshipReconcile: after this point stage, intimacy and radar are
	// always populated.
	stage, intimacy, radar, overall, err := o.reconcileRelationship(ctx, turnCtx, req, historyText, relUpdate)
	if err != nil {
		return nil, fmt.Errorf("relationship reconcile: %w", err)
	}

	humor := defaultHumorLevel
	if req.HumorLevel != nil {
		humor = *req.HumorLevel
	}
	appellation := req.CurrentAppellation
	if appellation == "" {
		appellation = o.store.GetSessionState(ctx, sessionID).Appellation
	}
	userGender := orDefault(req.UserGender, genderUnknown)
	targetGender := orDefault(req.TargetGender, genderUnknown)

	// Stage 2: subtext and strategy, given the reconciled relationship.
	var (
		subtextRes *analyzer.Subtext
		plan       *strategy.Plan
	)
	stage2Start := time.Now()
	g, gctx = errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		subtextRes, err = o.subtext.Decode(gctx, latestText, historyText, stage)
		return err
	})
	g.Go(func() error {
		var err error
		plan, err = o.planner.Plan(gctx, &strategy.Input{
			Persona:      personaRes,
			Emotion:      emotionRes,
			Stage:        stage,
			Intimacy:     intimacy,
			Humor:        humor,
			Appellation:  appellation,
			UserGender:   userGender,
			TargetGender: targetGender,
			HistoryText:  historyText,
			Lessons:      lessons,
		})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("strategy stage: %w", err)
	}
	o.metrics.RecordTask("stage2", time.Since(stage2Start))
	turnCtx.Debug("strategy stage done",
		slog.String(observability.LogFieldStage, "stage2"),
		slog.Int64(observability.LogFieldDuration, time.Since(stage2Start).Milliseconds()))

	kbContext := knowledgeContext(topicRes, intentRes)

	if plan.Appellation.ShouldUpdate && plan.Appellation.NewAppellation != "" {
		appellation = plan.Appellation.NewAppellation
		if _, err := o.store.UpdateSession(ctx, sessionID, &store.UpdateSessionState{Appellation: &appellation}); err != nil {
			turnCtx.Warn("appellation persistence failed", slog.String("error", err.Error()))
		} else {
			turnCtx.Info("appellation updated", slog.String("appellation", appellation))
		}
	}

	// Stage 3: generation with per-candidate validation and at most one
	// retry at escalated temperature. Surviving a partial rejection is
	// acceptance; only an empty set retries.
	composeIn := &generation.ComposeInput{
		TargetMessage:      latestText,
		Stage:              stage,
		Intimacy:           intimacy,
		Humor:              humor,
		Appellation:        appellation,
		UserGender:         userGender,
		TargetGender:       targetGender,
		ReplyStrategy:      plan.ReplyStrategy,
		LanguageStyle:      plan.LanguageStyle,
		TopicManagement:    plan.TopicManagement,
		BoundaryAssessment: plan.BoundaryAssessment,
		ActionGuide:        plan.ActionGuide,
		Retrieval:          retrievalCtx,
		KBContext:          kbContext,
		UserFacts:          relevantFacts,
		EnableSearch:       kbContext["need_online_search"] == true,
	}
	empathyIn := &generation.EmpathyInput{
		TargetMessage: latestText,
		Emotion:       emotionRes.Emotion,
		EmotionScore:  emotionRes.Detail.EmotionScore,
		Stage:         stage,
		Persona:       personaRes,
		UserFacts:     relevantFacts,
	}

	var safeReplies []generation.Candidate
	stage3Start := time.Now()
	for attempt := 0; attempt < maxGenerationAttempts; attempt++ {
		var raw []generation.Candidate
		var err error
		if emotionRes.Emotion == analyzer.EmotionNegative {
			raw, err = o.empathy.Generate(ctx, empathyIn, attempt)
		} else {
			raw, err = o.composer.Generate(ctx, composeIn, attempt)
		}
		if err != nil {
			if errors.Is(err, ai.ErrUnavailable) {
				return nil, err
			}
			o.metrics.RecordDegraded("generation")
			turnCtx.Warn("generation degraded",
				slog.Int(observability.LogFieldAttempt, attempt),
				slog.String("error", err.Error()))
			raw = nil
		}

		safeReplies, err = o.validateCandidates(ctx, raw)
		if err != nil {
			return nil, fmt.Errorf("safety validation: %w", err)
		}
		if len(safeReplies) > 0 {
			break
		}
		if attempt+1 < maxGenerationAttempts {
			turnCtx.Warn("no candidate survived, retrying",
				slog.Int(observability.LogFieldAttempt, attempt))
		}
	}
	o.metrics.RecordTask("stage3", time.Since(stage3Start))
	turnCtx.Debug("generation stage done",
		slog.String(observability.LogFieldStage, "stage3"),
		slog.Int64(observability.LogFieldDuration, time.Since(stage3Start).Milliseconds()))

	if len(safeReplies) > maxCandidates {
		safeReplies = safeReplies[:maxCandidates]
	}
	if len(safeReplies) == 0 {
		turnCtx.Warn("validation exhausted, returning analysis only")
	}

	return &TurnResult{
		Replies: safeReplies,
		Analysis: &AnalysisResult{
			Emotion:          emotionRes,
			OpportunityScore: analyzer.OpportunityScore(latestText),
			Topics:           topicRes,
			Persona:          personaRes,
			Strategy:         plan,
			KBContext:        kbContext,
			SearchIntent:     intentRes,
			Facts:            relevantFacts,
			Subtext:          subtextRes,
			Radar:            radar,
			OverallAnalysis:  overall,
			ActionGuide:      plan.ActionGuide,
		},
	}, nil
}

// resolveHistory folds the request input into the stored session history and
// returns the resulting full history.
func (o *Orchestrator) resolveHistory(ctx context.Context, req *TurnRequest) ([]store.Message, error) {
	if req.NewMessage != nil {
		state, err := o.store.AppendMessage(ctx, req.SessionID, *req.NewMessage)
		if err != nil {
			return nil, err
		}
		return state.History, nil
	}
	if len(req.Messages) > 0 {
		messages := req.Messages
		state, err := o.store.UpdateSession(ctx, req.SessionID, &store.UpdateSessionState{History: &messages})
		if err != nil {
			return nil, err
		}
		return state.History, nil
	}
	return o.store.GetSessionState(ctx, req.SessionID).History, nil
}

// retrieveRelevantFacts gathers strategy lessons plus facts contextual to the
// latest message. Failures degrade to whatever was gathered.
func (o *Orchestrator) retrieveRelevantFacts(ctx context.Context, sessionID, latestText string) (lessons, relevant []string) {
	lessonType := store.FactTypeLesson
	stored, err := o.store.ListFacts(ctx, &store.FindFact{
		SessionID: &sessionID,
		Type:      &lessonType,
		Limit:     3,
	})
	if err != nil {
		slog.Warn("lesson retrieval degraded", "session_id", sessionID, "error", err)
	}
	for _, fact := range stored {
		lessons = append(lessons, fact.Content)
	}
	relevant = append(relevant, lessons...)

	if latestText != "" {
		seen := map[string]struct{}{}
		for _, text := range relevant {
			seen[text] = struct{}{}
		}
		for _, snip := range o.aggregator.RetrieveFacts(ctx, sessionID, latestText, 3) {
			if _, ok := seen[snip.Text]; !ok {
				relevant = append(relevant, snip.Text)
			}
		}
	}
	return lessons, relevant
}

// persistFacts stores newly extracted user facts and indexes them for
// retrieval. Persistence problems degrade the task, never the turn.
func (o *Orchestrator) persistFacts(ctx context.Context, turnCtx *observability.TurnContext, sessionID string, facts []string) {
	if len(facts) == 0 {
		return
	}
	added, err := o.store.AddFacts(ctx, sessionID, store.FactTypeUser, facts)
	if err != nil {
		turnCtx.Warn("fact persistence failed", slog.String("error", err.Error()))
		return
	}
	if len(added) == 0 {
		return
	}
	if _, err := o.ingestor.IndexFacts(ctx, sessionID, added); err != nil {
		turnCtx.Warn("fact indexing degraded", slog.String("error", err.Error()))
	}
	turnCtx.Debug("facts stored", slog.Int("count", len(added)))
}

// reconcileRelationship merges the async relationship refresh with caller
// overrides and the stored state, falling back to a synchronous full
// analysis when the radar is still empty. The returned values are always
// populated.
func (o *Orchestrator) reconcileRelationship(
	ctx context.Context,
	turnCtx *observability.TurnContext,
	req *TurnRequest,
	historyText string,
	relUpdate *analyzer.RelationshipUpdate,
) (stage string, intimacy int, radar map[string]any, overall string, err error) {
	if relUpdate != nil {
		update := &store.UpdateSessionState{}
		if relUpdate.ShouldUpdateStage && relUpdate.NewStage != "" {
			update.Stage = &relUpdate.NewStage
		}
		if relUpdate.NewIntimacy != 0 {
			update.Intimacy = &relUpdate.NewIntimacy
		}
		if len(relUpdate.RadarUpdate) > 0 {
			update.Radar = &relUpdate.RadarUpdate
		}
		if relUpdate.OverallAnalysis != "" {
			update.OverallAnalysis = &relUpdate.OverallAnalysis
		}
		if update.Stage != nil || update.Intimacy != nil || update.Radar != nil || update.OverallAnalysis != nil {
			if _, err := o.store.UpdateSession(ctx, req.SessionID, update); err != nil {
				turnCtx.Warn("relationship persistence failed", slog.String("error", err.Error()))
			}
		}
	}

	state := o.store.GetSessionState(ctx, req.SessionID)
	stage = orDefault(req.RelationshipStage, state.Stage)
	intimacy = state.Intimacy
	if req.IntimacyLevel != nil {
		intimacy = store.ClampIntimacy(*req.IntimacyLevel)
	}
	radar = state.Radar
	overall = state.OverallAnalysis

	if len(radar) > 0 {
		return stage, intimacy, radar, overall, nil
	}

	// Synchronous fallback: the incremental refresh produced nothing usable.
	analysis, err := o.relationship.Analyze(ctx, historyText)
	if err != nil {
		return "", 0, nil, "", err
	}
	if req.RelationshipStage == "" {
		stage = analysis.Stage
	}
	if req.IntimacyLevel == nil {
		intimacy = analysis.Intimacy
	}
	radar = analysis.Radar
	overall = analysis.OverallAnalysis

	if _, err := o.store.UpdateSession(ctx, req.SessionID, &store.UpdateSessionState{
		Stage:           &analysis.Stage,
		Intimacy:        &analysis.Intimacy,
		Radar:           &analysis.Radar,
		OverallAnalysis: &analysis.OverallAnalysis,
	}); err != nil {
		turnCtx.Warn("relationship persistence failed", slog.String("error", err.Error()))
	}
	return stage, intimacy, radar, overall, nil
}

// validateCandidates screens candidates concurrently, preserving order.
func (o *Orchestrator) validateCandidates(ctx context.Context, candidates []generation.Candidate) ([]generation.Candidate, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	keep := make([]bool, len(candidates))
	g, gctx := errgroup.WithContext(ctx)
	for i, candidate := range candidates {
		g.Go(func() error {
			verdict, err := o.checker.Check(gctx, candidate.Text)
			if err != nil {
				return err
			}
			keep[i] = verdict.Safe
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	safe := make([]generation.Candidate, 0, len(candidates))
	for i, candidate := range candidates {
		if keep[i] {
			safe = append(safe, candidate)
		}
	}
	return safe, nil
}

// knowledgeContext assembles the knowledge-base context passed to the
// composer. Search remains a provider-side capability; this only flags it.
func knowledgeContext(topics *analyzer.TopicResult, intent *analyzer.SearchIntent) map[string]any {
	topicList := []string{}
	if topics != nil {
		topicList = topics.Topics
	}
	kb := map[string]any{
		"persons": []string{},
		"works":   []string{},
		"topics":  topicList,
	}
	if intent != nil && bool(intent.NeedSearch) {
		kb["need_online_search"] = true
		kb["search_query"] = intent.SearchKeywords
	}
	return kb
}

func tail(messages []store.Message, n int) []store.Message {
	if len(messages) <= n {
		return messages
	}
	return messages[len(messages)-n:]
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
