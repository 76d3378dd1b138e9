package store

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/weiwangfds/love-agent/internal/profile"
)

// memoryDriver is an in-memory Driver for tests.
type memoryDriver struct {
	mu       sync.Mutex
	sessions map[string][]byte
	facts    map[string]map[string]*Fact
	nextID   int64
}

func newMemoryDriver() *memoryDriver {
	return &memoryDriver{
		sessions: map[string][]byte{},
		facts:    map[string]map[string]*Fact{},
	}
}

func (d *memoryDriver) GetDB() *sql.DB                    { return nil }
func (d *memoryDriver) Close() error                      { return nil }
func (d *memoryDriver) Migrate(ctx context.Context) error { return nil }

func (d *memoryDriver) GetSessionState(ctx context.Context, sessionID string) ([]byte, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	payload, ok := d.sessions[sessionID]
	return payload, ok, nil
}

func (d *memoryDriver) UpsertSessionState(ctx context.Context, sessionID string, payload []byte, updatedTs int64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sessions[sessionID] = append([]byte(nil), payload...)
	return nil
}

func (d *memoryDriver) CreateFactIfAbsent(ctx context.Context, create *Fact) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	byContent, ok := d.facts[create.SessionID]
	if !ok {
		byContent = map[string]*Fact{}
		d.facts[create.SessionID] = byContent
	}
	if _, ok := byContent[create.Content]; ok {
		return false, nil
	}
	d.nextID++
	fact := *create
	fact.ID = d.nextID
	byContent[create.Content] = &fact
	return true, nil
}

func (d *memoryDriver) ListFacts(ctx context.Context, find *FindFact) ([]*Fact, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	list := []*Fact{}
	for sessionID, byContent := range d.facts {
		if find.SessionID != nil && *find.SessionID != sessionID {
			continue
		}
		for _, fact := range byContent {
			if find.Type != nil && *find.Type != fact.Type {
				continue
			}
			list = append(list, fact)
		}
	}
	return list, nil
}

func (d *memoryDriver) CreateEmbeddingIfAbsent(ctx context.Context, create *Embedding) (bool, error) {
	return false, nil
}

func (d *memoryDriver) SearchEmbeddings(ctx context.Context, vector []float32, limit int, filter *EmbeddingFilter) ([]*EmbeddingMatch, error) {
	return nil, nil
}

func newTestStore() *Store {
	return New(newMemoryDriver(), &profile.Profile{Mode: "dev"})
}

func TestGetSessionStateDefault(t *testing.T) {
	ctx := context.Background()
	ts := newTestStore()

	state := ts.GetSessionState(ctx, "s1")
	require.Equal(t, StageInitial, state.Stage)
	require.Equal(t, DefaultIntimacy, state.Intimacy)
	require.Equal(t, DefaultAppellation, state.Appellation)
	require.Empty(t, state.History)
	require.Empty(t, state.Facts)
}

func TestGetSessionStateCorruptRecord(t *testing.T) {
	ctx := context.Background()
	driver := newMemoryDriver()
	driver.sessions["s1"] = []byte("{not json")
	ts := New(driver, &profile.Profile{Mode: "dev"})

	state := ts.GetSessionState(ctx, "s1")
	require.Equal(t, StageInitial, state.Stage)
	require.Equal(t, DefaultIntimacy, state.Intimacy)
}

func TestAppendMessageAssignsTimestamp(t *testing.T) {
	ctx := context.Background()
	ts := newTestStore()

	state, err := ts.AppendMessage(ctx, "s1", Message{Speaker: SpeakerOther, Content: "你好"})
	require.NoError(t, err)
	require.Len(t, state.History, 1)
	require.NotZero(t, state.History[0].Timestamp)
}

func TestMergeHistoryDedupAndOrder(t *testing.T) {
	ctx := context.Background()
	ts := newTestStore()

	batch := []Message{
		{Speaker: SpeakerOther, Content: "A", Timestamp: 100},
		{Speaker: SpeakerSelf, Content: "C", Timestamp: 300},
		{Speaker: SpeakerOther, Content: "B", Timestamp: 200},
	}
	added, err := ts.MergeHistory(ctx, "s1", batch)
	require.NoError(t, err)
	// Accepted messages come back in presentation order.
	require.Len(t, added, 3)
	require.Equal(t, "A", added[0].Content)
	require.Equal(t, "C", added[1].Content)
	require.Equal(t, "B", added[2].Content)

	// Stored history is timestamp-ordered.
	state := ts.GetSessionState(ctx, "s1")
	require.Len(t, state.History, 3)
	require.Equal(t, "A", state.History[0].Content)
	require.Equal(t, "B", state.History[1].Content)
	require.Equal(t, "C", state.History[2].Content)

	// Re-uploading the same batch plus one new message accepts only the new one.
	batch = append(batch, Message{Speaker: SpeakerOther, Content: "D", Timestamp: 400})
	added, err = ts.MergeHistory(ctx, "s1", batch)
	require.NoError(t, err)
	require.Len(t, added, 1)
	require.Equal(t, "D", added[0].Content)

	state = ts.GetSessionState(ctx, "s1")
	require.Len(t, state.History, 4)
}

func TestMergeHistoryIdempotent(t *testing.T) {
	ctx := context.Background()
	ts := newTestStore()

	batch := []Message{
		{Speaker: SpeakerOther, Content: "hi", Timestamp: 100},
		{Speaker: SpeakerOther, Content: "hi", Timestamp: 100},
	}
	added, err := ts.MergeHistory(ctx, "s1", batch)
	require.NoError(t, err)
	// Duplicates within a single batch collapse too.
	require.Len(t, added, 1)

	added, err = ts.MergeHistory(ctx, "s1", batch)
	require.NoError(t, err)
	require.Empty(t, added)
}

func TestMergeHistoryIdentityTuple(t *testing.T) {
	ctx := context.Background()
	ts := newTestStore()

	// Same text, different timestamps or speakers: distinct messages.
	batch := []Message{
		{Speaker: SpeakerOther, Content: "嗯", Timestamp: 100},
		{Speaker: SpeakerOther, Content: "嗯", Timestamp: 101},
		{Speaker: SpeakerSelf, Content: "嗯", Timestamp: 100},
		{Speaker: SpeakerOther, Content: " 嗯 ", Timestamp: 100}, // whitespace-trimmed duplicate
	}
	added, err := ts.MergeHistory(ctx, "s1", batch)
	require.NoError(t, err)
	require.Len(t, added, 3)
}

func TestUpdateSessionPartial(t *testing.T) {
	ctx := context.Background()
	ts := newTestStore()

	stage := "暧昧升温"
	intimacy := 5
	state, err := ts.UpdateSession(ctx, "s1", &UpdateSessionState{
		Stage:    &stage,
		Intimacy: &intimacy,
	})
	require.NoError(t, err)
	require.Equal(t, stage, state.Stage)
	require.Equal(t, 5, state.Intimacy)
	// Untouched fields keep their defaults.
	require.Equal(t, DefaultAppellation, state.Appellation)
}

func TestUpdateSessionClampsIntimacy(t *testing.T) {
	ctx := context.Background()
	ts := newTestStore()

	for _, tc := range []struct {
		in   int
		want int
	}{
		{-3, 0},
		{0, 0},
		{7, 7},
		{10, 10},
		{42, 10},
	} {
		state, err := ts.UpdateSession(ctx, "s1", &UpdateSessionState{Intimacy: &tc.in})
		require.NoError(t, err)
		require.Equal(t, tc.want, state.Intimacy)
	}
}

func TestUpdateSessionHistoryReplacement(t *testing.T) {
	ctx := context.Background()
	ts := newTestStore()

	_, err := ts.AppendMessage(ctx, "s1", Message{Speaker: SpeakerOther, Content: "old", Timestamp: 50})
	require.NoError(t, err)

	replacement := []Message{
		{Speaker: SpeakerOther, Content: "b", Timestamp: 200},
		{Speaker: SpeakerOther, Content: "a", Timestamp: 100},
		{Speaker: SpeakerOther, Content: "a", Timestamp: 100},
	}
	state, err := ts.UpdateSession(ctx, "s1", &UpdateSessionState{History: &replacement})
	require.NoError(t, err)
	require.Len(t, state.History, 2)
	require.Equal(t, "a", state.History[0].Content)
	require.Equal(t, "b", state.History[1].Content)
}

func TestStatePersistsAcrossStores(t *testing.T) {
	ctx := context.Background()
	driver := newMemoryDriver()
	ts := New(driver, &profile.Profile{Mode: "dev"})

	stage := "深入了解"
	_, err := ts.UpdateSession(ctx, "s1", &UpdateSessionState{Stage: &stage})
	require.NoError(t, err)

	// A fresh store over the same driver sees the persisted record.
	ts2 := New(driver, &profile.Profile{Mode: "dev"})
	state := ts2.GetSessionState(ctx, "s1")
	require.Equal(t, stage, state.Stage)
}

func TestCloneIsolation(t *testing.T) {
	ctx := context.Background()
	ts := newTestStore()

	_, err := ts.AppendMessage(ctx, "s1", Message{Speaker: SpeakerOther, Content: "hi", Timestamp: 100})
	require.NoError(t, err)

	state := ts.GetSessionState(ctx, "s1")
	state.History[0].Content = "mutated"
	state.Facts = append(state.Facts, "injected")

	fresh := ts.GetSessionState(ctx, "s1")
	require.Equal(t, "hi", fresh.History[0].Content)
	require.Empty(t, fresh.Facts)
}

func TestAddFactsInsertIfAbsent(t *testing.T) {
	ctx := context.Background()
	ts := newTestStore()

	added, err := ts.AddFacts(ctx, "s1", FactTypeUser, []string{"喜欢咖啡", "养了一只猫", ""})
	require.NoError(t, err)
	require.Equal(t, []string{"喜欢咖啡", "养了一只猫"}, added)

	// Same texts again: nothing inserted.
	added, err = ts.AddFacts(ctx, "s1", FactTypeUser, []string{"喜欢咖啡", "养了一只猫"})
	require.NoError(t, err)
	require.Empty(t, added)

	// User facts are mirrored into the session state.
	state := ts.GetSessionState(ctx, "s1")
	require.Equal(t, []string{"喜欢咖啡", "养了一只猫"}, state.Facts)
}

func TestAddFactsLessonNotMirrored(t *testing.T) {
	ctx := context.Background()
	ts := newTestStore()

	added, err := ts.AddFacts(ctx, "s1", FactTypeLesson, []string{"少用反问句"})
	require.NoError(t, err)
	require.Len(t, added, 1)

	state := ts.GetSessionState(ctx, "s1")
	require.Empty(t, state.Facts)
}

// failingDriver rejects session writes while leaving reads intact.
type failingDriver struct {
	*memoryDriver
	failWrites bool
}

func (d *failingDriver) UpsertSessionState(ctx context.Context, sessionID string, payload []byte, updatedTs int64) error {
	if d.failWrites {
		return errors.New("disk full")
	}
	return d.memoryDriver.UpsertSessionState(ctx, sessionID, payload, updatedTs)
}

func TestFailedSaveLeavesStateUntouched(t *testing.T) {
	ctx := context.Background()
	driver := &failingDriver{memoryDriver: newMemoryDriver()}
	ts := New(driver, &profile.Profile{Mode: "dev"})

	_, err := ts.AppendMessage(ctx, "s1", Message{Speaker: SpeakerOther, Content: "第一条", Timestamp: 100})
	require.NoError(t, err)

	driver.failWrites = true
	_, err = ts.AppendMessage(ctx, "s1", Message{Speaker: SpeakerOther, Content: "丢失的", Timestamp: 200})
	require.Error(t, err)

	_, err = ts.MergeHistory(ctx, "s1", []Message{
		{Speaker: SpeakerOther, Content: "也丢失", Timestamp: 300},
	})
	require.Error(t, err)

	stage := "热恋"
	_, err = ts.UpdateSession(ctx, "s1", &UpdateSessionState{Stage: &stage})
	require.Error(t, err)

	// The failed writes must not leak into subsequent reads, neither from the
	// cache nor from the driver.
	driver.failWrites = false
	state := ts.GetSessionState(ctx, "s1")
	require.Len(t, state.History, 1)
	require.Equal(t, "第一条", state.History[0].Content)
	require.Equal(t, StageInitial, state.Stage)
}
