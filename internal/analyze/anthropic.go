package analyze

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"taskbrief/internal/task"
)

const anthropicMessagesURL = "https://api.anthropic.com/v1/messages"

// anthropicAnalyzer 直接调用 Anthropic messages API 的分析器。
// anthropicAnalyzer implements Analyzer against the Anthropic messages API
// with a plain HTTP client.
type anthropicAnalyzer struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

func newAnthropicAnalyzer(cfg Config) *anthropicAnalyzer {
	apiKey := strings.TrimSpace(cfg.AnthropicAPIKey)
	if apiKey == "" {
		apiKey = strings.TrimSpace(cfg.APIKey)
	}
	model := strings.TrimSpace(cfg.AnthropicModel)
	if model == "" {
		model = strings.TrimSpace(cfg.Model)
	}
	if model == "" {
		model = "claude-3-5-sonnet-20241022"
	}
	timeout := 120 * time.Second
	if cfg.TimeoutMS > 0 {
		timeout = time.Duration(cfg.TimeoutMS) * time.Millisecond
	}
	return &anthropicAnalyzer{
		apiKey:     apiKey,
		model:      model,
		baseURL:    anthropicMessagesURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type anthropicRequest struct {
	Model     string        `json:"model"`
	MaxTokens int           `json:"max_tokens"`
	System    string        `json:"system,omitempty"`
	Messages  []ChatMessage `json:"messages"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func (a *anthropicAnalyzer) Analyze(ctx context.Context, t task.Task, content string) (Result, error) {
	reply, err := a.send(ctx, systemPrompt, []ChatMessage{
		{Role: "user", Content: buildPrompt(t, content)},
	})
	if err != nil {
		return Result{}, err
	}
	return parseResult(reply)
}

func (a *anthropicAnalyzer) Chat(ctx context.Context, system string, history []ChatMessage, user string) (string, error) {
	messages := append(append([]ChatMessage(nil), history...), ChatMessage{Role: "user", Content: user})
	return a.send(ctx, system, messages)
}

func (a *anthropicAnalyzer) send(ctx context.Context, system string, messages []ChatMessage) (string, error) {
	payload, err := json.Marshal(anthropicRequest{
		Model:     a.model,
		MaxTokens: 1024,
		System:    system,
		Messages:  messages,
	})
	if err != nil {
		return "", fmt.Errorf("marshal anthropic request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create anthropic request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", a.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("send anthropic request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read anthropic response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("anthropic request failed: status=%d body=%s",
			resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var parsed anthropicResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", fmt.Errorf("parse anthropic response: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("anthropic error: %s: %s", parsed.Error.Type, parsed.Error.Message)
	}

	var b strings.Builder
	for _, block := range parsed.Content {
		if block.Type == "" || block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("anthropic response has no text content")
	}
	return b.String(), nil
}
