// Package analyze turns tasks into structured AI annotations.
package analyze

import (
	"context"
	"fmt"
	"strings"

	"taskbrief/internal/task"
)

// ChatMessage 聊天历史中的一条消息 / ChatMessage is one turn of a chat
// conversation, used by the interactive task chat.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Analyzer 分析器接口：provider 在构造时选定。
// Analyzer is the provider-backed task analyzer. The concrete provider is
// selected at construction time; callers never inspect it afterwards.
type Analyzer interface {
	// Analyze produces a structured annotation for one task, optionally
	// grounded on fetched web content. Provider failures are returned as
	// errors; callers substitute Fallback and continue.
	Analyze(ctx context.Context, t task.Task, content string) (Result, error)

	// Chat answers a free-form question given a system prompt and rolling
	// history.
	Chat(ctx context.Context, system string, history []ChatMessage, user string) (string, error)
}

// Config selects and parameterizes the provider.
type Config struct {
	Provider        string // "openai" or "anthropic"
	APIKey          string
	Model           string
	BaseURL         string // OpenAI-compatible endpoint override
	TimeoutMS       int
	AnthropicAPIKey string
	AnthropicModel  string
}

// New 根据配置构造 Analyzer / New builds the configured Analyzer.
func New(cfg Config) (Analyzer, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", "openai":
		return newOpenAIAnalyzer(cfg), nil
	case "anthropic":
		return newAnthropicAnalyzer(cfg), nil
	default:
		return nil, fmt.Errorf("unsupported AI provider: %q", cfg.Provider)
	}
}
