// Package strategy plans how the next reply should be shaped: tone, style,
// topic management, boundaries, appellation and critical-moment actions.
package strategy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/weiwangfds/love-agent/internal/observability"
	"github.com/weiwangfds/love-agent/plugin/ai"
	"github.com/weiwangfds/love-agent/plugin/ai/analyzer"
)

const planningPrompt = `
你是一位恋爱关系策略专家，请根据以下信息制定回复策略。

双方性别：
- 用户（我方）：{user_gender}
- 对方（目标）：{target_gender}

近期对话：
{conversation_history}

对方性格画像：
{personality_profile}

当前情绪状态：
{emotion_analysis}

关系阶段：{relationship_stage}
亲密度等级：{intimacy_level}/10
幽默程度：{humor_level}/5
当前称呼：{current_appellation}

请制定策略：
1. 话题评估（关键）：
   - 判断当前话题是否已聊干、陷入僵局、过于沉重或对方显露疲态
   - 若不适宜继续，决定切换话题，但必须保持自然过渡
2. 边界与能力判断（重要）：
   - 拒绝判断：若对方提出不合理要求（如越界、违背意愿、风险过高）或当前关系阶段不适合满足的要求，必须明确但委婉地拒绝
   - 知识盲区判断：若对方提及的内容确实触及知识盲区且无法通过通用回应掩饰，应真诚承认不知道，并转化为请教或探讨
3. 关系推进窗口判断：
   - 是否有适合推进的机会
   - 是否适合进行“适度斗嘴/打趣”（Playful Banter）：仅在亲密度较高（>3）且当前情绪为正向或中性、气氛轻松时考虑，旨在通过推拉拉近心理距离
4. 风险点识别（可能引发不适的话题）
5. 回复策略选择（温柔体贴、幽默风趣、理性分析、热情积极、神秘欲擒故纵、真诚拒绝、坦诚请教、适度斗嘴/打趣）
6. 语言风格调整（基于性格类型与性别差异：如男性对女性可更具保护欲或幽默感，女性对男性可更具崇拜感或柔和度，同性则更强调共鸣）
7. 称呼管理（重要）：
   - 严格遵守称呼惯性，不要轻易改变当前的称呼"{current_appellation}"
   - 只有在"亲密度等级"显著提升或"关系阶段"发生质变时，才考虑升级称呼，请进行自动判断是否升级
   - 改变称呼时请要符合情景
8. 关键时刻行动指南 (Critical Action Guide):
   - 识别关键节点：当检测到关系到达临界点（如暧昧期巅峰、情绪极佳时的邀约窗口、或冷战后的破冰窗口）时，必须给出明确行动建议。
   - 生成行动卡片：包含行动类型、具体话术、预测成功率。

请以JSON格式返回：
{
    "reply_strategy": "主策略",
    "language_style": "语言风格",
    "boundary_assessment": {
        "should_reject": true/false,
        "rejection_reason": "拒绝理由（若不拒绝则留空）",
        "rejection_method": "拒绝方式（如：幽默推脱/温柔坚定/转移话题）",
        "is_unknown_topic": true/false,
        "unknown_handling": "未知处理方式（如：真诚提问/赞美对方专业/模糊回应）"
    },
    "topic_management": {
        "status": "active/stale/awkward",
        "should_switch": true/false,
        "new_topic_suggestion": "新话题建议（若不切换则留空）"
    },
    "opportunity_analysis": {
        "can_advance": true/false,
        "can_banter": true/false,
        "reason": "判断理由"
    },
    "risk_factors": ["风险点1", "风险点2"],
    "appellation_update": {
        "should_update": true/false,
        "new_appellation": "新称呼",
        "reason": "理由"
    },
    "action_guide": {
        "is_critical_moment": true/false,
        "moment_type": "邀约良机/表白契机/破冰窗口/挽回窗口",
        "action_suggestion": "具体行动或话术",
        "success_rate": 0-100,
        "reason": "推荐理由"
    }
}
`

// Defaults substituted when planning degrades.
const (
	DefaultReplyStrategy = "温柔体贴"
	DefaultLanguageStyle = "生活化、自然"
)

// AppellationUpdate is the planner's call on whether to change how the user
// addresses the partner.
type AppellationUpdate struct {
	ShouldUpdate   bool   `json:"should_update"`
	NewAppellation string `json:"new_appellation"`
	Reason         string `json:"reason"`
}

// Plan is the full strategic guidance for one reply.
type Plan struct {
	ReplyStrategy      string            `json:"reply_strategy"`
	LanguageStyle      string            `json:"language_style"`
	BoundaryAssessment map[string]any    `json:"boundary_assessment"`
	TopicManagement    map[string]any    `json:"topic_management"`
	Opportunity        map[string]any    `json:"opportunity_analysis"`
	RiskFactors        []string          `json:"risk_factors"`
	Appellation        AppellationUpdate `json:"appellation_update"`
	ActionGuide        map[string]any    `json:"action_guide"`
}

// Input gathers everything the planner needs.
type Input struct {
	Persona      map[string]any
	Emotion      *analyzer.EmotionResult
	Stage        string
	Intimacy     int
	Humor        int
	Appellation  string
	UserGender   string
	TargetGender string
	HistoryText  string
	Lessons      []string
}

// Planner produces the per-turn strategy.
type Planner struct {
	service ai.CompletionService
}

func NewPlanner(service ai.CompletionService) *Planner {
	return &Planner{service: service}
}

// Plan builds the strategy. A malformed response degrades to the default
// tone with no topic switch and no appellation change.
func (p *Planner) Plan(ctx context.Context, in *Input) (*Plan, error) {
	personaJSON, _ := json.Marshal(in.Persona)
	emotionJSON, _ := json.Marshal(in.Emotion)

	history := in.HistoryText
	if len(in.Lessons) > 0 {
		history += "\n以往策略教训：\n" + strings.Join(in.Lessons, "\n")
	}

	prompt := render(planningPrompt, map[string]string{
		"user_gender":          in.UserGender,
		"target_gender":        in.TargetGender,
		"conversation_history": history,
		"personality_profile":  string(personaJSON),
		"emotion_analysis":     string(emotionJSON),
		"relationship_stage":   in.Stage,
		"intimacy_level":       fmt.Sprintf("%d", in.Intimacy),
		"humor_level":          fmt.Sprintf("%d", in.Humor),
		"current_appellation":  in.Appellation,
	})

	plan := &Plan{}
	err := p.service.ChatJSON(ctx, []ai.Message{
		ai.SystemMessage("你是中文恋爱策略规划助手，严格输出JSON对象。"),
		ai.UserMessage(prompt),
	}, ai.Options{Temperature: 0.3}, plan)
	if err != nil {
		if errors.Is(err, ai.ErrUnavailable) {
			return nil, err
		}
		observability.TaskDegraded(ctx, "planning", err)
		plan = &Plan{}
	}

	if plan.ReplyStrategy == "" {
		plan.ReplyStrategy = DefaultReplyStrategy
	}
	if plan.LanguageStyle == "" {
		plan.LanguageStyle = DefaultLanguageStyle
	}
	if plan.BoundaryAssessment == nil {
		plan.BoundaryAssessment = map[string]any{}
	}
	if plan.TopicManagement == nil {
		plan.TopicManagement = map[string]any{}
	}
	if plan.ActionGuide == nil {
		plan.ActionGuide = map[string]any{}
	}
	return plan, nil
}

func render(template string, vars map[string]string) string {
	result := template
	for key, value := range vars {
		result = strings.ReplaceAll(result, "{"+key+"}", value)
	}
	return result
}
