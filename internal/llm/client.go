package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/speakup-coach/backend/internal/config"
	"github.com/speakup-coach/backend/internal/logger"
)

// Client is the interface every text generator implementation satisfies.
type Client interface {
	Generate(ctx context.Context, req Request) (*Response, error)
	ModelName() string
}

// Request is one chat-style call: a system instruction, the conversation so
// far, a sampling temperature and a response-length cap.
type Request struct {
	System      string
	Messages    []Message
	Temperature float64
	MaxTokens   int
}

type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// UserPrompt builds the common single-turn request.
func UserPrompt(system, user string, temperature float64, maxTokens int) Request {
	return Request{
		System:      system,
		Messages:    []Message{{Role: RoleUser, Content: user}},
		Temperature: temperature,
		MaxTokens:   maxTokens,
	}
}

// Response holds the raw response text and token usage.
type Response struct {
	Content      string
	PromptTokens int
	OutputTokens int
}

const (
	defaultGroqModel      = "llama-3.3-70b-versatile"
	defaultOpenAIModel    = "gpt-4o-mini"
	defaultAnthropicModel = "claude-sonnet-4-5-20250929"

	groqBaseURL = "https://api.groq.com/openai/v1"
)

// NewClient picks the generator implementation named by the config.
func NewClient(cfg config.LLMConfig, log *logger.Logger) (Client, error) {
	switch cfg.Provider {
	case config.ProviderGroq:
		model := orDefault(cfg.Model, defaultGroqModel)
		log.Info("generator using Groq", "model", model)
		return NewOpenAIClient(cfg.GroqAPIKey, groqBaseURL, model), nil
	case config.ProviderOpenAI:
		model := orDefault(cfg.Model, defaultOpenAIModel)
		log.Info("generator using OpenAI-compatible API", "model", model, "base_url", cfg.OpenAIBaseURL)
		return NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, model), nil
	case config.ProviderAnthropic:
		model := orDefault(cfg.Model, defaultAnthropicModel)
		log.Info("generator using Anthropic API", "model", model)
		return NewAnthropicClient(cfg.AnthropicAPIKey, model), nil
	case config.ProviderMock:
		log.Info("generator using mock responses")
		return NewMockClient(), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", cfg.Provider)
	}
}

// StripCodeFences removes a leading ```json / ``` fence and a trailing ```.
func StripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```json") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimSpace(s)
	} else if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSpace(s)
	}
	if strings.HasSuffix(s, "```") {
		s = strings.TrimSuffix(s, "```")
		s = strings.TrimSpace(s)
	}
	return s
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
