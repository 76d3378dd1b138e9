// Package ai wraps the text completion service used by every analysis and
// generation task. All calls go through a single rate-limited client.
package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/kaptinlin/jsonrepair"
	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/weiwangfds/love-agent/internal/profile"
)

var (
	// ErrUnavailable indicates the completion service is not configured or
	// unreachable. This is a fatal configuration error that aborts the turn.
	ErrUnavailable = errors.New("completion service unavailable")

	// ErrMalformedResponse indicates the completion returned content that could
	// not be parsed as the expected structure. Callers substitute a neutral
	// default and continue.
	ErrMalformedResponse = errors.New("malformed completion response")
)

// Message represents a role-tagged chat message. A non-empty ImageURL turns
// the message into a multimodal part pair for vision-capable models.
type Message struct {
	Role     string // system, user, assistant
	Content  string
	ImageURL string
}

// SystemMessage creates a system message.
func SystemMessage(content string) Message {
	return Message{Role: openai.ChatMessageRoleSystem, Content: content}
}

// UserMessage creates a user message.
func UserMessage(content string) Message {
	return Message{Role: openai.ChatMessageRoleUser, Content: content}
}

// UserImageMessage creates a user message carrying an image reference.
func UserImageMessage(content, imageURL string) Message {
	return Message{Role: openai.ChatMessageRoleUser, Content: content, ImageURL: imageURL}
}

// Options controls a single completion call.
type Options struct {
	Temperature  float32
	EnableSearch bool // ask the provider to ground the answer with web search
	Model        string
}

// CompletionService is the contract with the text completion collaborator.
type CompletionService interface {
	// Chat performs a completion and returns the raw text.
	Chat(ctx context.Context, messages []Message, opts Options) (string, error)

	// ChatJSON performs a completion and decodes the response into out.
	// A response that cannot be parsed yields ErrMalformedResponse.
	ChatJSON(ctx context.Context, messages []Message, opts Options, out any) error

	// Embedding generates an embedding vector for the given text.
	Embedding(ctx context.Context, text string) ([]float32, error)
}

// Config holds the completion provider configuration.
type Config struct {
	BaseURL     string
	APIKey      string
	ChatModel   string
	VisionModel string
	EmbedModel  string
	MaxRetries  int
	RequestsPer int // per-second rate limit on outbound calls
}

// ConfigFromProfile derives the provider configuration from the profile.
func ConfigFromProfile(p *profile.Profile) *Config {
	return &Config{
		BaseURL:     p.AIBaseURL,
		APIKey:      p.AIAPIKey,
		ChatModel:   p.AIChatModel,
		VisionModel: p.AIVisionModel,
		EmbedModel:  p.AIEmbedModel,
		MaxRetries:  p.AIMaxRetries,
		RequestsPer: p.AIRequestsPerS,
	}
}

// Provider implements CompletionService on top of an OpenAI-compatible API.
type Provider struct {
	client  *openai.Client
	config  *Config
	limiter *rate.Limiter
}

// NewProvider creates a new completion provider. A missing API key is allowed
// here; calls will fail with ErrUnavailable.
func NewProvider(cfg *Config) *Provider {
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.ChatModel == "" {
		cfg.ChatModel = "qwen-plus"
	}
	if cfg.RequestsPer <= 0 {
		cfg.RequestsPer = 8
	}

	var client *openai.Client
	if cfg.APIKey != "" {
		clientConfig := openai.DefaultConfig(cfg.APIKey)
		if cfg.BaseURL != "" {
			clientConfig.BaseURL = cfg.BaseURL
		}
		client = openai.NewClientWithConfig(clientConfig)
	}

	return &Provider{
		client:  client,
		config:  cfg,
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPer), cfg.RequestsPer),
	}
}

// Chat performs a completion and returns the raw text.
func (p *Provider) Chat(ctx context.Context, messages []Message, opts Options) (string, error) {
	if p.client == nil {
		return "", fmt.Errorf("%w: API key is not configured", ErrUnavailable)
	}

	model := opts.Model
	if model == "" {
		model = p.config.ChatModel
	}

	req := openai.ChatCompletionRequest{
		Model:       model,
		Temperature: opts.Temperature,
		Messages:    convertMessages(messages),
	}
	if opts.EnableSearch {
		req.WebSearchOptions = &openai.WebSearchOptions{}
	}

	var result string
	err := p.doWithRetry(ctx, func() error {
		resp, err := p.client.CreateChatCompletion(ctx, req)
		if err != nil {
			return err
		}
		if len(resp.Choices) == 0 {
			return fmt.Errorf("empty chat response")
		}
		result = resp.Choices[0].Message.Content
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return result, nil
}

// ChatJSON performs a completion and decodes the JSON response into out.
func (p *Provider) ChatJSON(ctx context.Context, messages []Message, opts Options, out any) error {
	content, err := p.Chat(ctx, messages, opts)
	if err != nil {
		return err
	}
	return DecodeJSON(content, out)
}

// Embedding generates an embedding vector for the given text.
func (p *Provider) Embedding(ctx context.Context, text string) ([]float32, error) {
	if p.client == nil {
		return nil, fmt.Errorf("%w: API key is not configured", ErrUnavailable)
	}

	var result []float32
	err := p.doWithRetry(ctx, func() error {
		resp, err := p.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Input: []string{text},
			Model: openai.EmbeddingModel(p.config.EmbedModel),
		})
		if err != nil {
			return err
		}
		if len(resp.Data) == 0 {
			return fmt.Errorf("empty embedding response")
		}
		result = resp.Data[0].Embedding
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return result, nil
}

// VisionModel returns the configured vision-capable model name.
func (p *Provider) VisionModel() string {
	return p.config.VisionModel
}

// doWithRetry executes a function with exponential backoff retry, honoring
// the outbound rate limit before every attempt.
func (p *Provider) doWithRetry(ctx context.Context, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt < p.config.MaxRetries; attempt++ {
		if err := p.limiter.Wait(ctx); err != nil {
			return err
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			if attempt < p.config.MaxRetries-1 {
				waitTime := time.Duration(math.Pow(2, float64(attempt))) * time.Second
				slog.Debug("completion request failed, retrying",
					"attempt", attempt+1,
					"wait_time", waitTime,
					"error", err)
				select {
				case <-time.After(waitTime):
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		}
	}
	return lastErr
}

// DecodeJSON extracts a JSON object from completion output and decodes it
// into out. Models frequently wrap objects in markdown fences or prose, so
// the raw content is unfenced, trimmed to the outermost braces and, as a
// last resort, run through jsonrepair.
func DecodeJSON(content string, out any) error {
	candidate := stripFences(content)

	if err := json.Unmarshal([]byte(candidate), out); err == nil {
		return nil
	}

	// Trim to the outermost {...} or [...] span.
	if span := braceSpan(candidate); span != "" {
		if err := json.Unmarshal([]byte(span), out); err == nil {
			return nil
		}
		candidate = span
	}

	repaired, err := jsonrepair.JSONRepair(candidate)
	if err == nil {
		if err := json.Unmarshal([]byte(repaired), out); err == nil {
			return nil
		}
	}

	return fmt.Errorf("%w: %q", ErrMalformedResponse, truncate(content, 120))
}

func stripFences(content string) string {
	s := strings.TrimSpace(content)
	if strings.HasPrefix(s, "```json") {
		s = strings.TrimPrefix(s, "```json")
	} else if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func braceSpan(s string) string {
	for _, pair := range [][2]string{{"{", "}"}, {"[", "]"}} {
		start := strings.Index(s, pair[0])
		end := strings.LastIndex(s, pair[1])
		if start != -1 && end > start {
			return s[start : end+1]
		}
	}
	return ""
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}

func convertMessages(messages []Message) []openai.ChatCompletionMessage {
	converted := make([]openai.ChatCompletionMessage, len(messages))
	for i, m := range messages {
		if m.ImageURL != "" {
			converted[i] = openai.ChatCompletionMessage{
				Role: m.Role,
				MultiContent: []openai.ChatMessagePart{
					{
						Type:     openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{URL: m.ImageURL},
					},
					{
						Type: openai.ChatMessagePartTypeText,
						Text: m.Content,
					},
				},
			}
			continue
		}
		converted[i] = openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		}
	}
	return converted
}
