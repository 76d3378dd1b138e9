package store

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Speaker identifies who sent a message.
type Speaker string

const (
	// SpeakerSelf is the user composing replies.
	SpeakerSelf Speaker = "self"
	// SpeakerOther is the chat partner.
	SpeakerOther Speaker = "other"
)

// MessageKind identifies the payload type of a message.
type MessageKind string

const (
	KindText  MessageKind = "text"
	KindImage MessageKind = "image"
)

// Message is a single chat message. Immutable once stored.
type Message struct {
	Speaker       Speaker     `json:"speaker"`
	Content       string      `json:"content"`
	Timestamp     int64       `json:"timestamp"`
	Kind          MessageKind `json:"kind,omitempty"`
	AttachmentRef string      `json:"attachment_ref,omitempty"`
}

// MessageIdentity is the deduplication identity of a message. Two identical
// texts at different timestamps are distinct messages.
type MessageIdentity struct {
	Timestamp int64
	Speaker   Speaker
	Content   string
}

// Identity returns the message's deduplication identity tuple.
func (m Message) Identity() MessageIdentity {
	return MessageIdentity{
		Timestamp: m.Timestamp,
		Speaker:   m.Speaker,
		Content:   strings.TrimSpace(m.Content),
	}
}

const (
	// StageInitial is the relationship stage for a brand-new session.
	StageInitial = "陌生/破冰"
	// DefaultIntimacy is the intimacy level for a brand-new session.
	DefaultIntimacy = 1
	// DefaultAppellation is the form of address before any update.
	DefaultAppellation = "你"

	// IntimacyMin and IntimacyMax bound every intimacy update.
	IntimacyMin = 0
	IntimacyMax = 10
)

// SessionState is the durable per-session state. It is owned by the Store;
// callers mutate it only through Append/Merge/Update.
type SessionState struct {
	SessionID       string         `json:"-"`
	Stage           string         `json:"relationship_stage"`
	Intimacy        int            `json:"intimacy_level"`
	History         []Message      `json:"history"`
	Persona         map[string]any `json:"persona"`
	Facts           []string       `json:"user_facts"`
	Appellation     string         `json:"current_appellation"`
	Radar           map[string]any `json:"radar"`
	OverallAnalysis string         `json:"overall_analysis,omitempty"`
	LastUpdated     int64          `json:"last_updated"`
}

// defaultSessionState returns the state created on first reference to a session.
func defaultSessionState(sessionID string) *SessionState {
	return &SessionState{
		SessionID:   sessionID,
		Stage:       StageInitial,
		Intimacy:    DefaultIntimacy,
		History:     []Message{},
		Persona:     map[string]any{},
		Facts:       []string{},
		Appellation: DefaultAppellation,
		Radar:       map[string]any{},
		LastUpdated: time.Now().Unix(),
	}
}

// ClampIntimacy bounds an intimacy value to the valid range.
func ClampIntimacy(v int) int {
	if v < IntimacyMin {
		return IntimacyMin
	}
	if v > IntimacyMax {
		return IntimacyMax
	}
	return v
}

// UpdateSessionState describes a partial, field-level state update.
// Nil fields are left untouched; History replaces the stored history wholesale.
type UpdateSessionState struct {
	Stage           *string
	Intimacy        *int
	History         *[]Message
	Persona         *map[string]any
	Facts           *[]string
	Appellation     *string
	Radar           *map[string]any
	OverallAnalysis *string
}

// Clone returns an independent copy of the state. History is copied; the
// opaque persona/radar objects are shallow-copied since they are replaced
// wholesale on update, never mutated in place.
func (st *SessionState) Clone() *SessionState {
	dup := *st
	dup.History = append([]Message(nil), st.History...)
	dup.Facts = append([]string(nil), st.Facts...)
	dup.Persona = make(map[string]any, len(st.Persona))
	for k, v := range st.Persona {
		dup.Persona[k] = v
	}
	dup.Radar = make(map[string]any, len(st.Radar))
	for k, v := range st.Radar {
		dup.Radar[k] = v
	}
	return &dup
}

// GetSessionState returns the session state, creating the default on first
// reference. A corrupt persisted record degrades to the default state with a
// logged warning; this method never fails.
func (s *Store) GetSessionState(ctx context.Context, sessionID string) *SessionState {
	s.sessionLock(sessionID).Lock()
	defer s.sessionLock(sessionID).Unlock()
	return s.loadLocked(ctx, sessionID).Clone()
}

// AppendMessage appends a single message to the session history, assigning a
// timestamp if absent, and persists the result.
func (s *Store) AppendMessage(ctx context.Context, sessionID string, msg Message) (*SessionState, error) {
	s.sessionLock(sessionID).Lock()
	defer s.sessionLock(sessionID).Unlock()

	// Mutate a copy; the cached state is replaced only on successful save.
	state := s.loadLocked(ctx, sessionID).Clone()
	if msg.Timestamp == 0 {
		msg.Timestamp = time.Now().Unix()
	}
	state.History = append(state.History, msg)
	sortHistory(state.History)

	if err := s.saveLocked(ctx, state); err != nil {
		return nil, errors.Wrap(err, "failed to append message")
	}
	return state.Clone(), nil
}

// MergeHistory merges an uploaded batch into the stored history, deduplicating
// by identity tuple, and returns only the accepted messages in the order they
// were presented. Replaying the same batch yields an empty result.
func (s *Store) MergeHistory(ctx context.Context, sessionID string, incoming []Message) ([]Message, error) {
	s.sessionLock(sessionID).Lock()
	defer s.sessionLock(sessionID).Unlock()

	state := s.loadLocked(ctx, sessionID).Clone()

	existing := make(map[MessageIdentity]struct{}, len(state.History))
	for _, msg := range state.History {
		existing[msg.Identity()] = struct{}{}
	}

	added := []Message{}
	for _, msg := range incoming {
		if msg.Timestamp == 0 {
			msg.Timestamp = time.Now().Unix()
		}
		id := msg.Identity()
		if _, ok := existing[id]; ok {
			continue
		}
		existing[id] = struct{}{}
		state.History = append(state.History, msg)
		added = append(added, msg)
	}

	if len(added) > 0 {
		sortHistory(state.History)
		if err := s.saveLocked(ctx, state); err != nil {
			return nil, errors.Wrap(err, "failed to merge history")
		}
	}
	return added, nil
}

// UpdateSession applies a partial state update under the store's internal
// serialization, refreshes last_updated, and persists the result.
func (s *Store) UpdateSession(ctx context.Context, sessionID string, update *UpdateSessionState) (*SessionState, error) {
	s.sessionLock(sessionID).Lock()
	defer s.sessionLock(sessionID).Unlock()

	state := s.loadLocked(ctx, sessionID).Clone()
	applyUpdate(state, update)

	if err := s.saveLocked(ctx, state); err != nil {
		return nil, errors.Wrap(err, "failed to update session state")
	}
	return state.Clone(), nil
}

func applyUpdate(state *SessionState, update *UpdateSessionState) {
	if update == nil {
		return
	}
	if update.Stage != nil {
		state.Stage = *update.Stage
	}
	if update.Intimacy != nil {
		state.Intimacy = ClampIntimacy(*update.Intimacy)
	}
	if update.History != nil {
		state.History = dedupeHistory(*update.History)
		sortHistory(state.History)
	}
	if update.Persona != nil {
		state.Persona = *update.Persona
	}
	if update.Facts != nil {
		state.Facts = *update.Facts
	}
	if update.Appellation != nil {
		state.Appellation = *update.Appellation
	}
	if update.Radar != nil {
		state.Radar = *update.Radar
	}
	if update.OverallAnalysis != nil {
		state.OverallAnalysis = *update.OverallAnalysis
	}
}

func sortHistory(history []Message) {
	sort.SliceStable(history, func(i, j int) bool {
		return history[i].Timestamp < history[j].Timestamp
	})
}

func dedupeHistory(history []Message) []Message {
	seen := make(map[MessageIdentity]struct{}, len(history))
	result := make([]Message, 0, len(history))
	now := time.Now().Unix()
	for _, msg := range history {
		if msg.Timestamp == 0 {
			msg.Timestamp = now
		}
		id := msg.Identity()
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		result = append(result, msg)
	}
	return result
}

// loadLocked loads and decodes the state record. Caller holds the session lock.
func (s *Store) loadLocked(ctx context.Context, sessionID string) *SessionState {
	if cached, ok := s.sessionCache.Get(sessionID); ok {
		return cached
	}

	payload, found, err := s.driver.GetSessionState(ctx, sessionID)
	if err != nil {
		slog.Warn("failed to load session state, using default",
			"session_id", sessionID, "error", err)
		return defaultSessionState(sessionID)
	}
	if !found {
		return defaultSessionState(sessionID)
	}

	state := defaultSessionState(sessionID)
	if err := json.Unmarshal(payload, state); err != nil {
		slog.Warn("corrupt session state record, using default",
			"session_id", sessionID, "error", err)
		return defaultSessionState(sessionID)
	}
	state.SessionID = sessionID
	state.Intimacy = ClampIntimacy(state.Intimacy)
	if state.History == nil {
		state.History = []Message{}
	}
	if state.Persona == nil {
		state.Persona = map[string]any{}
	}
	if state.Facts == nil {
		state.Facts = []string{}
	}
	if state.Radar == nil {
		state.Radar = map[string]any{}
	}

	s.sessionCache.Set(sessionID, state)
	return state
}

// saveLocked persists the state record. Caller holds the session lock.
func (s *Store) saveLocked(ctx context.Context, state *SessionState) error {
	state.LastUpdated = time.Now().Unix()

	payload, err := json.Marshal(state)
	if err != nil {
		return errors.Wrap(err, "failed to marshal session state")
	}
	if err := s.driver.UpsertSessionState(ctx, state.SessionID, payload, state.LastUpdated); err != nil {
		// The write outcome is unknown; drop the cached copy so the next
		// read goes back to the driver.
		s.sessionCache.Invalidate(state.SessionID)
		return err
	}
	s.sessionCache.Set(state.SessionID, state)
	return nil
}
