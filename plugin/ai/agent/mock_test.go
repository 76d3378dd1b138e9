package agent

import (
	"context"
	"database/sql"
	"strings"
	"sync"

	"github.com/weiwangfds/love-agent/plugin/ai"
	"github.com/weiwangfds/love-agent/plugin/ai/vector"
	"github.com/weiwangfds/love-agent/store"
)

// routedCompletion dispatches canned responses by matching a substring of the
// system message, so the parallel analysis fan-out stays deterministic
// regardless of scheduling order.
type routedCompletion struct {
	mu     sync.Mutex
	routes []routeRule
	calls  map[string]int
}

type routeRule struct {
	match string
	fn    func(call int, prompt string) (string, error)
}

func newRoutedCompletion() *routedCompletion {
	r := &routedCompletion{calls: map[string]int{}}
	r.on("情绪识别", respond(`{"emotion_score": 6, "dominant_emotion": "喜悦", "potential_needs": [], "emotion_trend": "稳定"}`))
	r.on("性格分析", respond(`{"key_traits": ["开朗"], "communication_style": "直接型"}`))
	r.on("话题分析", respond(`{"topics": ["美食"], "category": "生活", "depth": 2}`))
	r.on("对话分析专家", respond(`{"need_search": false}`))
	r.on("信息提取", respond(`{"facts": []}`))
	r.on("关系状态管理员", respond(`{"should_update_stage": false, "radar_update": {"interest_match": {"score": 70}}, "overall_analysis": "稳定发展"}`))
	r.on("恋爱关系分析专家", respond(`{"relationship_stage": "深入了解", "intimacy_level": 4, "radar": {"interest_match": {"score": 70}}, "overall_analysis": "关系不错"}`))
	r.on("读心神探", respond(`{"surface_meaning": "想聊天", "subtext": "想被关注", "emotion_base": "平静", "suggestion": "积极回应"}`))
	r.on("策略规划", respond(`{"reply_strategy": "幽默风趣", "language_style": "轻松", "appellation_update": {"should_update": false}}`))
	r.on("微信聊天候选", respond(`{"replies": [
		{"text": "好呀，明天几点？", "style": "Safe", "reason": "稳健"},
		{"text": "就知道你想我了", "style": "Flirty", "reason": "推拉"}
	]}`))
	r.on("情感急救", respond(`{"replies": [{"text": "抱抱你，我在呢", "reason": "共情"}]}`))
	r.on("安全检测", func(call int, prompt string) (string, error) {
		if strings.Contains(prompt, "UNSAFE") {
			return `{"is_safe": false, "risk_category": "侮辱", "reason": "测试拒绝"}`, nil
		}
		return `{"is_safe": true, "risk_category": "无", "reason": "正常"}`, nil
	})
	r.on("恋爱军师", respond(`{"options": [{"text": "今天天气超好", "type": "Care", "reason": "问候"}]}`))
	r.on("情感咨询师", respond(`{"highlights": [], "lowlights": [], "score": 80, "summary": "整体不错"}`))
	r.on("善于反思", respond(`{"analysis": "太敷衍", "strategy_adjustment": "多提问", "lesson": "少用单字回复", "new_reply": "那你今天过得怎么样？"}`))
	return r
}

func respond(response string) func(int, string) (string, error) {
	return func(int, string) (string, error) { return response, nil }
}

// on prepends a rule so tests can override defaults.
func (r *routedCompletion) on(match string, fn func(int, string) (string, error)) {
	r.routes = append([]routeRule{{match: match, fn: fn}}, r.routes...)
}

func (r *routedCompletion) callCount(match string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[match]
}

func (r *routedCompletion) Chat(ctx context.Context, messages []ai.Message, opts ai.Options) (string, error) {
	system := ""
	prompt := ""
	for _, m := range messages {
		if m.Role == "system" {
			system = m.Content
		} else {
			prompt = m.Content
		}
	}

	r.mu.Lock()
	var rule *routeRule
	for i := range r.routes {
		if strings.Contains(system, r.routes[i].match) {
			rule = &r.routes[i]
			break
		}
	}
	if rule == nil {
		r.mu.Unlock()
		return "{}", nil
	}
	call := r.calls[rule.match]
	r.calls[rule.match] = call + 1
	r.mu.Unlock()

	return rule.fn(call, prompt)
}

func (r *routedCompletion) ChatJSON(ctx context.Context, messages []ai.Message, opts ai.Options, out any) error {
	content, err := r.Chat(ctx, messages, opts)
	if err != nil {
		return err
	}
	return ai.DecodeJSON(content, out)
}

func (r *routedCompletion) Embedding(ctx context.Context, text string) ([]float32, error) {
	return []float32{0.1, 0.2, 0.3}, nil
}

var _ ai.CompletionService = (*routedCompletion)(nil)

// memoryDriver is a minimal in-memory store.Driver for orchestrator tests.
type memoryDriver struct {
	mu       sync.Mutex
	sessions map[string][]byte
	facts    map[string]map[string]*store.Fact
	nextID   int64
}

func newMemoryDriver() *memoryDriver {
	return &memoryDriver{
		sessions: map[string][]byte{},
		facts:    map[string]map[string]*store.Fact{},
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

func (d *memoryDriver) CreateFactIfAbsent(ctx context.Context, create *store.Fact) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	byContent, ok := d.facts[create.SessionID]
	if !ok {
		byContent = map[string]*store.Fact{}
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

func (d *memoryDriver) ListFacts(ctx context.Context, find *store.FindFact) ([]*store.Fact, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	list := []*store.Fact{}
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

func (d *memoryDriver) CreateEmbeddingIfAbsent(ctx context.Context, create *store.Embedding) (bool, error) {
	return false, nil
}

func (d *memoryDriver) SearchEmbeddings(ctx context.Context, vec []float32, limit int, filter *store.EmbeddingFilter) ([]*store.EmbeddingMatch, error) {
	return nil, nil
}

var _ store.Driver = (*memoryDriver)(nil)

func newTestOrchestrator(svc ai.CompletionService) *Orchestrator {
	st := store.New(newMemoryDriver(), nil)
	return NewOrchestrator(st, svc, vector.NewMockService(), "qwen-vl-plus")
}
