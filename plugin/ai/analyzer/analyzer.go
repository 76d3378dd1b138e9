// Package analyzer hosts the per-turn analysis tasks: emotion, topics,
// persona, facts, search intent, relationship state, subtext, chat review,
// feedback correction and image understanding. Every task degrades to a
// neutral default when the completion response cannot be parsed; only an
// unavailable completion service propagates.
package analyzer

import (
	"strings"

	"github.com/weiwangfds/love-agent/store"
)

// render substitutes {placeholder} variables into a prompt template.
func render(template string, vars map[string]string) string {
	result := template
	for key, value := range vars {
		result = strings.ReplaceAll(result, "{"+key+"}", value)
	}
	return result
}

// speakerLabel maps the stored speaker tag to the label used in prompts.
func speakerLabel(speaker store.Speaker) string {
	if speaker == store.SpeakerSelf {
		return "我"
	}
	return "对方"
}

// HistoryText renders messages as prompt-ready dialogue lines.
func HistoryText(messages []store.Message) string {
	var b strings.Builder
	for _, msg := range messages {
		b.WriteString(speakerLabel(msg.Speaker))
		b.WriteString(": ")
		b.WriteString(msg.Content)
		b.WriteString("\n")
	}
	return b.String()
}

// LatestText returns the content of the last message, or empty.
func LatestText(messages []store.Message) string {
	if len(messages) == 0 {
		return ""
	}
	return messages[len(messages)-1].Content
}
