package observability

import (
	"sync"
	"sync/atomic"
	"time"
)

// Metrics collects and aggregates metrics for turn processing.
type Metrics struct {
	mu sync.Mutex

	// Counters
	turnTotal  atomic.Int64
	turnFailed atomic.Int64

	// Per-task metrics, keyed by task name (emotion, persona, compose, ...)
	taskMetrics map[string]*TaskMetrics
}

// TaskMetrics represents metrics for a specific analysis or generation task.
type TaskMetrics struct {
	executionCount atomic.Int64
	degradedCount  atomic.Int64
	totalDuration  atomic.Int64 // milliseconds
}

// NewMetrics creates a new metrics collector.
func NewMetrics() *Metrics {
	return &Metrics{
		taskMetrics: make(map[string]*TaskMetrics),
	}
}

var globalMetrics = NewMetrics()

// GlobalMetrics returns the global metrics instance.
func GlobalMetrics() *Metrics {
	return globalMetrics
}

// RecordTurn records a processed turn.
func (m *Metrics) RecordTurn() {
	m.turnTotal.Add(1)
}

// RecordTurnFailure records a fatally failed turn.
func (m *Metrics) RecordTurnFailure() {
	m.turnFailed.Add(1)
}

// RecordTask records a completed task and its duration.
func (m *Metrics) RecordTask(task string, duration time.Duration) {
	tm := m.getTaskMetrics(task)
	tm.executionCount.Add(1)
	tm.totalDuration.Add(duration.Milliseconds())
}

// RecordDegraded records a task that degraded to its neutral default.
func (m *Metrics) RecordDegraded(task string) {
	m.getTaskMetrics(task).degradedCount.Add(1)
}

// GetTurnTotal returns the total number of processed turns.
func (m *Metrics) GetTurnTotal() int64 {
	return m.turnTotal.Load()
}

// GetTurnFailed returns the total number of fatally failed turns.
func (m *Metrics) GetTurnFailed() int64 {
	return m.turnFailed.Load()
}

// GetTaskMetrics returns metrics for a specific task.
func (m *Metrics) GetTaskMetrics(task string) *TaskMetrics {
	return m.getTaskMetrics(task)
}

// ExecutionCount returns how many times the task ran.
func (t *TaskMetrics) ExecutionCount() int64 {
	return t.executionCount.Load()
}

// DegradedCount returns how many times the task degraded.
func (t *TaskMetrics) DegradedCount() int64 {
	return t.degradedCount.Load()
}

// AvgDurationMs returns the average task duration in milliseconds.
func (t *TaskMetrics) AvgDurationMs() int64 {
	count := t.executionCount.Load()
	if count == 0 {
		return 0
	}
	return t.totalDuration.Load() / count
}

// MetricsSnapshot is a point-in-time view of the collected metrics.
type MetricsSnapshot struct {
	TurnTotal  int64                   `json:"turn_total"`
	TurnFailed int64                   `json:"turn_failed"`
	Tasks      map[string]TaskSnapshot `json:"tasks"`
}

// TaskSnapshot summarizes one task's counters.
type TaskSnapshot struct {
	Executions    int64 `json:"executions"`
	Degraded      int64 `json:"degraded"`
	AvgDurationMs int64 `json:"avg_duration_ms"`
}

// Snapshot captures the current counters for reporting.
func (m *Metrics) Snapshot() *MetricsSnapshot {
	m.mu.Lock()
	names := make([]string, 0, len(m.taskMetrics))
	for name := range m.taskMetrics {
		names = append(names, name)
	}
	m.mu.Unlock()

	snapshot := &MetricsSnapshot{
		TurnTotal:  m.GetTurnTotal(),
		TurnFailed: m.GetTurnFailed(),
		Tasks:      make(map[string]TaskSnapshot, len(names)),
	}
	for _, name := range names {
		tm := m.GetTaskMetrics(name)
		snapshot.Tasks[name] = TaskSnapshot{
			Executions:    tm.ExecutionCount(),
			Degraded:      tm.DegradedCount(),
			AvgDurationMs: tm.AvgDurationMs(),
		}
	}
	return snapshot
}

func (m *Metrics) getTaskMetrics(task string) *TaskMetrics {
	m.mu.Lock()
	defer m.mu.Unlock()

	tm, ok := m.taskMetrics[task]
	if !ok {
		tm = &TaskMetrics{}
		m.taskMetrics[task] = tm
	}
	return tm
}
