package observability

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

const (
	// LogFieldTurnID is the field name for turn ID.
	LogFieldTurnID = "turn_id"
	// LogFieldSessionID is the field name for session ID.
	LogFieldSessionID = "session_id"
	// LogFieldStage is the field name for the orchestrator stage.
	LogFieldStage = "stage"
	// LogFieldTask is the field name for an analysis task name.
	LogFieldTask = "task"
	// LogFieldDuration is the field name for duration in milliseconds.
	LogFieldDuration = "duration_ms"
	// LogFieldAttempt is the field name for the generation attempt index.
	LogFieldAttempt = "attempt"
)

// TurnContext carries structured logging state for a single conversational turn.
type TurnContext struct {
	TurnID    string
	SessionID string
	StartTime time.Time
	Logger    *slog.Logger
}

// NewTurnContext creates a new turn context with a generated turn ID.
func NewTurnContext(logger *slog.Logger, sessionID string) *TurnContext {
	if logger == nil {
		logger = slog.Default()
	}
	return &TurnContext{
		TurnID:    uuid.New().String(),
		SessionID: sessionID,
		StartTime: time.Now(),
		Logger:    logger,
	}
}

// Info logs an info message.
func (t *TurnContext) Info(msg string, attrs ...slog.Attr) {
	t.Logger.LogAttrs(context.Background(), slog.LevelInfo, msg, t.baseAttrsAppended(attrs...)...)
}

// Debug logs a debug message.
func (t *TurnContext) Debug(msg string, attrs ...slog.Attr) {
	t.Logger.LogAttrs(context.Background(), slog.LevelDebug, msg, t.baseAttrsAppended(attrs...)...)
}

// Warn logs a warning message.
func (t *TurnContext) Warn(msg string, attrs ...slog.Attr) {
	t.Logger.LogAttrs(context.Background(), slog.LevelWarn, msg, t.baseAttrsAppended(attrs...)...)
}

// Error logs an error message with the error.
func (t *TurnContext) Error(msg string, err error, attrs ...slog.Attr) {
	allAttrs := append(attrs, slog.String("error", err.Error()))
	t.Logger.LogAttrs(context.Background(), slog.LevelError, msg, t.baseAttrsAppended(allAttrs...)...)
}

// Duration returns the elapsed time since the turn started.
func (t *TurnContext) Duration() time.Duration {
	return time.Since(t.StartTime)
}

// DurationMs returns the elapsed time in milliseconds.
func (t *TurnContext) DurationMs() int64 {
	return t.Duration().Milliseconds()
}

func (t *TurnContext) baseAttrsAppended(attrs ...slog.Attr) []slog.Attr {
	base := []slog.Attr{
		slog.String(LogFieldTurnID, t.TurnID),
		slog.String(LogFieldSessionID, t.SessionID),
	}
	return append(base, attrs...)
}

type ctxKey struct{}

// WithTurnContext adds the turn context to the context.
func WithTurnContext(ctx context.Context, turnCtx *TurnContext) context.Context {
	return context.WithValue(ctx, ctxKey{}, turnCtx)
}

// FromContext extracts the turn context from the context.
func FromContext(ctx context.Context) (*TurnContext, bool) {
	turnCtx, ok := ctx.Value(ctxKey{}).(*TurnContext)
	return turnCtx, ok
}

// TaskDegraded records a task falling back to its neutral default and logs
// the cause, attached to the turn when one is in flight.
func TaskDegraded(ctx context.Context, task string, err error) {
	GlobalMetrics().RecordDegraded(task)

	attrs := []slog.Attr{
		slog.String(LogFieldTask, task),
		slog.String("error", err.Error()),
	}
	if turnCtx, ok := FromContext(ctx); ok {
		turnCtx.Warn("task degraded", attrs...)
		return
	}
	slog.LogAttrs(ctx, slog.LevelWarn, "task degraded", attrs...)
}
