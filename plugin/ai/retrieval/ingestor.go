package retrieval

import (
	"context"
	"crypto/md5"
	"fmt"
	"time"

	"github.com/weiwangfds/love-agent/plugin/ai/vector"
	"github.com/weiwangfds/love-agent/store"
)

// Ingestor indexes accepted chat messages and facts into the vector service.
// Document IDs are content-derived so replayed uploads are no-ops.
type Ingestor struct {
	service vector.Service
}

func NewIngestor(service vector.Service) *Ingestor {
	return &Ingestor{service: service}
}

// DocumentID derives a stable ID from the message identity.
func DocumentID(sessionID string, msg store.Message) string {
	sum := md5.Sum(fmt.Appendf(nil, "%s_%d_%s_%s",
		sessionID, msg.Timestamp, msg.Content, msg.Speaker))
	return fmt.Sprintf("%x", sum)
}

// IndexMessages indexes messages into the history collection and reports how
// many were newly indexed.
func (in *Ingestor) IndexMessages(ctx context.Context, sessionID string, messages []store.Message) (int, error) {
	if len(messages) == 0 {
		return 0, nil
	}

	hotCutoff := time.Now().Add(-hotWindow).Unix()
	docs := make([]vector.Document, 0, len(messages))
	for _, msg := range messages {
		if msg.Content == "" || msg.Kind == store.KindImage {
			continue
		}
		docs = append(docs, vector.Document{
			ID:        DocumentID(sessionID, msg),
			Text:      msg.Content,
			Speaker:   string(msg.Speaker),
			Timestamp: msg.Timestamp,
			Hot:       msg.Timestamp >= hotCutoff,
		})
	}

	added, err := in.service.AddIfAbsent(ctx, vector.CollectionHistory, sessionID, docs)
	if err != nil {
		return added, fmt.Errorf("index messages: %w", err)
	}
	return added, nil
}

// IndexFacts indexes fact texts into the fact collection.
func (in *Ingestor) IndexFacts(ctx context.Context, sessionID string, facts []string) (int, error) {
	if len(facts) == 0 {
		return 0, nil
	}

	now := time.Now().Unix()
	docs := make([]vector.Document, 0, len(facts))
	for _, text := range facts {
		if text == "" {
			continue
		}
		sum := md5.Sum(fmt.Appendf(nil, "%s_fact_%s", sessionID, text))
		docs = append(docs, vector.Document{
			ID:        fmt.Sprintf("%x", sum),
			Text:      text,
			Timestamp: now,
		})
	}

	added, err := in.service.AddIfAbsent(ctx, vector.CollectionFact, sessionID, docs)
	if err != nil {
		return added, fmt.Errorf("index facts: %w", err)
	}
	return added, nil
}
