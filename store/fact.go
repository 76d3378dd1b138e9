package store

import (
	"context"

	"github.com/pkg/errors"
)

// Fact types stored alongside user facts.
const (
	FactTypeUser   = "user_fact"
	FactTypeLesson = "strategy_lesson"
)

// Fact is a single extracted fact about the chat partner, or a strategy
// lesson learned from user feedback.
type Fact struct {
	ID        int64
	SessionID string
	Content   string
	Type      string
	CreatedTs int64
}

// FindFact filters fact listing.
type FindFact struct {
	SessionID *string
	Type      *string
	Limit     int
}

// AddFacts inserts facts for a session, skipping any whose exact text is
// already present (insert-if-absent, safe to retry). It returns the subset
// that was actually added and merges the additions into the session state's
// fact list as a field-level update.
func (s *Store) AddFacts(ctx context.Context, sessionID string, factType string, texts []string) ([]string, error) {
	added := []string{}
	for _, text := range texts {
		if text == "" {
			continue
		}
		inserted, err := s.driver.CreateFactIfAbsent(ctx, &Fact{
			SessionID: sessionID,
			Content:   text,
			Type:      factType,
		})
		if err != nil {
			return added, errors.Wrap(err, "failed to insert fact")
		}
		if inserted {
			added = append(added, text)
		}
	}

	if len(added) == 0 || factType != FactTypeUser {
		return added, nil
	}

	// Merge new user facts into the session state fact list.
	s.sessionLock(sessionID).Lock()
	defer s.sessionLock(sessionID).Unlock()

	state := s.loadLocked(ctx, sessionID).Clone()
	known := make(map[string]struct{}, len(state.Facts))
	for _, f := range state.Facts {
		known[f] = struct{}{}
	}
	changed := false
	for _, f := range added {
		if _, ok := known[f]; !ok {
			state.Facts = append(state.Facts, f)
			changed = true
		}
	}
	if changed {
		if err := s.saveLocked(ctx, state); err != nil {
			return added, errors.Wrap(err, "failed to persist fact list")
		}
	}
	return added, nil
}

// ListFacts lists stored facts.
func (s *Store) ListFacts(ctx context.Context, find *FindFact) ([]*Fact, error) {
	return s.driver.ListFacts(ctx, find)
}
