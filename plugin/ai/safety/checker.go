// Package safety screens generated reply candidates before they reach the
// user.
package safety

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/weiwangfds/love-agent/plugin/ai"
)

const checkPrompt = `
你是一位内容安全审核员，请检查以下回复内容是否包含有害、违规或不适宜的内容。

回复内容：
{reply_content}

检查标准：
1. 政治敏感：是否涉及敏感政治话题。
2. 色情暴力：是否包含露骨色情或暴力描述。
3. 侮辱谩骂：是否包含攻击性语言。
4. 价值观：是否违背社会公序良俗。

请以JSON格式返回：
{
    "is_safe": true/false,
    "risk_category": "无/政治/色情/暴力/侮辱/价值观",
    "reason": "判断理由"
}
`

// Verdict is the screening outcome for a single candidate.
type Verdict struct {
	Safe         bool
	RiskCategory string
	Reason       string
}

// Validator is the content screening contract. Implementations must be safe
// for concurrent use; the orchestrator checks candidates in parallel.
type Validator interface {
	Check(ctx context.Context, text string) (*Verdict, error)
}

// Checker validates candidates with a zero-temperature model call. An
// unparseable verdict rejects the candidate: screening fails closed.
type Checker struct {
	service ai.CompletionService
}

func NewChecker(service ai.CompletionService) *Checker {
	return &Checker{service: service}
}

func (c *Checker) Check(ctx context.Context, text string) (*Verdict, error) {
	if strings.TrimSpace(text) == "" {
		return &Verdict{Safe: false, RiskCategory: "空内容"}, nil
	}

	prompt := strings.ReplaceAll(checkPrompt, "{reply_content}", text)

	var result struct {
		IsSafe       bool   `json:"is_safe"`
		RiskCategory string `json:"risk_category"`
		Reason       string `json:"reason"`
	}
	err := c.service.ChatJSON(ctx, []ai.Message{
		ai.SystemMessage("你是回复安全检测助手，严格输出JSON对象。"),
		ai.UserMessage(prompt),
	}, ai.Options{Temperature: 0}, &result)
	if err != nil {
		if errors.Is(err, ai.ErrUnavailable) {
			return nil, err
		}
		slog.Warn("safety check unparseable, rejecting candidate", "error", err)
		return &Verdict{Safe: false, RiskCategory: "未知", Reason: "审核结果无法解析"}, nil
	}

	return &Verdict{
		Safe:         result.IsSafe,
		RiskCategory: result.RiskCategory,
		Reason:       result.Reason,
	}, nil
}

var _ Validator = (*Checker)(nil)
