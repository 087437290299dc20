// Package config 管理分层配置:默认值、配置文件、环境变量
// Package config layers settings from defaults, an optional JSON file,
// and TASKBRIEF_* environment variables, in that order.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

type GraphConfig struct {
	ClientID     string `json:"client_id"`
	TenantID     string `json:"tenant_id"`
	ClientSecret string `json:"client_secret"`
	Scopes       string `json:"scopes"`
	TokenCache   string `json:"token_cache"`
}

type AIConfig struct {
	Provider        string `json:"provider"`
	APIKey          string `json:"api_key"`
	Model           string `json:"model"`
	BaseURL         string `json:"base_url"`
	TimeoutMS       int    `json:"timeout_ms"`
	AnthropicAPIKey string `json:"anthropic_api_key"`
	AnthropicModel  string `json:"anthropic_model"`
}

type FetchConfig struct {
	TimeoutSec   int    `json:"timeout_sec"`
	MaxSizeKB    int    `json:"max_size_kb"`
	MaxTextChars int    `json:"max_text_chars"`
	MaxPagesEach int    `json:"max_pages_each"`
	UserAgent    string `json:"user_agent"`
}

type RankConfig struct {
	AIPriorityWeight      float64 `json:"ai_priority_weight"`
	DeadlineUrgencyWeight float64 `json:"deadline_urgency_weight"`
	RecencyWeight         float64 `json:"recency_weight"`
	ImportanceWeight      float64 `json:"importance_weight"`
	CategoryWeight        float64 `json:"category_weight"`
}

type CacheConfig struct {
	Enabled  bool `json:"enabled"`
	TTLHours int  `json:"ttl_hours"`
}

type OutputConfig struct {
	Dir               string `json:"dir"`
	GenerateBrief     bool   `json:"generate_brief"`
	EnableTaskUpdates bool   `json:"enable_task_updates"`
}

type EmailConfig struct {
	Enabled    bool   `json:"enabled"`
	From       string `json:"from"`
	To         string `json:"to"`
	SMTPServer string `json:"smtp_server"`
	SMTPPort   int    `json:"smtp_port"`
	Password   string `json:"password"`
}

type Config struct {
	Graph  GraphConfig  `json:"graph"`
	AI     AIConfig     `json:"ai"`
	Fetch  FetchConfig  `json:"fetch"`
	Rank   RankConfig   `json:"rank"`
	Cache  CacheConfig  `json:"cache"`
	Output OutputConfig `json:"output"`
	Email  EmailConfig  `json:"email"`
}

// Default 内置默认配置 / Default returns the built-in defaults.
func Default() Config {
	return Config{
		Graph: GraphConfig{
			Scopes:     "Tasks.ReadWrite offline_access",
			TokenCache: "token_cache.json",
		},
		AI: AIConfig{
			Provider:       "anthropic",
			Model:          "gpt-4-turbo-preview",
			AnthropicModel: "claude-3-5-sonnet-20241022",
			TimeoutMS:      120000,
		},
		Fetch: FetchConfig{
			TimeoutSec:   15,
			MaxSizeKB:    2048,
			MaxTextChars: 8000,
			MaxPagesEach: 3,
		},
		Rank: RankConfig{
			AIPriorityWeight:      0.40,
			DeadlineUrgencyWeight: 0.25,
			RecencyWeight:         0.15,
			ImportanceWeight:      0.10,
			CategoryWeight:        0.10,
		},
		Cache: CacheConfig{
			Enabled:  true,
			TTLHours: 24,
		},
		Output: OutputConfig{
			Dir:           "output",
			GenerateBrief: true,
		},
		Email: EmailConfig{
			SMTPServer: "smtp.gmail.com",
			SMTPPort:   587,
		},
	}
}

// Load 按 默认值 -> 配置文件 -> 环境变量 的顺序合并
// Load merges defaults, the config file, and environment overrides.
// An empty path falls back to TASKBRIEF_CONFIG_PATH and then to the
// project-local candidates.
func Load(path string) (Config, error) {
	cfg := Default()

	resolved := strings.TrimSpace(path)
	if envPath := strings.TrimSpace(os.Getenv("TASKBRIEF_CONFIG_PATH")); envPath != "" && resolved == "" {
		resolved = envPath
	}
	if resolved == "" {
		resolved = findConfigPath()
	}
	if err := mergeFromFile(&cfg, resolved); err != nil {
		return Config{}, err
	}

	return applyEnv(cfg)
}

func findConfigPath() string {
	candidates := []string{
		"taskbrief.config.json",
		filepath.Join(".taskbrief", "config.json"),
	}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c
		}
	}
	return ""
}

func mergeFromFile(cfg *Config, path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config %q: %w", path, err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config %q: %w", path, err)
	}
	return nil
}

func applyEnv(cfg Config) (Config, error) {
	setStr := func(dst *string, key string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	setStr(&cfg.Graph.ClientID, "TASKBRIEF_CLIENT_ID")
	setStr(&cfg.Graph.TenantID, "TASKBRIEF_TENANT_ID")
	setStr(&cfg.Graph.ClientSecret, "TASKBRIEF_CLIENT_SECRET")
	setStr(&cfg.Graph.Scopes, "TASKBRIEF_GRAPH_SCOPES")
	setStr(&cfg.Graph.TokenCache, "TASKBRIEF_TOKEN_CACHE")

	setStr(&cfg.AI.Provider, "TASKBRIEF_AI_PROVIDER")
	setStr(&cfg.AI.BaseURL, "TASKBRIEF_AI_BASE_URL")
	setStr(&cfg.AI.Model, "TASKBRIEF_OPENAI_MODEL")
	setStr(&cfg.AI.AnthropicModel, "TASKBRIEF_ANTHROPIC_MODEL")
	if v := strings.TrimSpace(os.Getenv("OPENAI_API_KEY")); v != "" && cfg.AI.APIKey == "" {
		cfg.AI.APIKey = v
	}
	if v := strings.TrimSpace(os.Getenv("ANTHROPIC_API_KEY")); v != "" && cfg.AI.AnthropicAPIKey == "" {
		cfg.AI.AnthropicAPIKey = v
	}

	setStr(&cfg.Output.Dir, "TASKBRIEF_OUTPUT_DIR")
	setStr(&cfg.Email.From, "TASKBRIEF_EMAIL_FROM")
	setStr(&cfg.Email.To, "TASKBRIEF_EMAIL_TO")
	setStr(&cfg.Email.SMTPServer, "TASKBRIEF_SMTP_SERVER")
	setStr(&cfg.Email.Password, "TASKBRIEF_EMAIL_PASSWORD")

	if v := strings.TrimSpace(os.Getenv("TASKBRIEF_SMTP_PORT")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return Config{}, fmt.Errorf("invalid TASKBRIEF_SMTP_PORT: %q", v)
		}
		cfg.Email.SMTPPort = n
	}
	if v := strings.TrimSpace(os.Getenv("TASKBRIEF_CACHE_TTL_HOURS")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return Config{}, fmt.Errorf("invalid TASKBRIEF_CACHE_TTL_HOURS: %q", v)
		}
		cfg.Cache.TTLHours = n
	}
	if v, ok := envBool("TASKBRIEF_CACHE_ENABLED"); ok {
		cfg.Cache.Enabled = v
	}
	if v, ok := envBool("TASKBRIEF_SEND_EMAIL_BRIEF"); ok {
		cfg.Email.Enabled = v
	}
	if v, ok := envBool("TASKBRIEF_ENABLE_TASK_UPDATES"); ok {
		cfg.Output.EnableTaskUpdates = v
	}
	if v, ok := envBool("TASKBRIEF_GENERATE_BRIEF"); ok {
		cfg.Output.GenerateBrief = v
	}

	return cfg, nil
}

func envBool(key string) (bool, bool) {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch v {
	case "":
		return false, false
	case "1", "true", "yes", "on":
		return true, true
	default:
		return false, true
	}
}

// Validate 汇总所有缺失项后一次性报错
// Validate collects every missing required setting and reports them
// together instead of one at a time.
func (c Config) Validate() error {
	var problems []string

	if c.Graph.ClientID == "" {
		problems = append(problems, "graph client_id is required")
	}
	if c.Graph.TenantID == "" {
		problems = append(problems, "graph tenant_id is required")
	}

	switch strings.ToLower(strings.TrimSpace(c.AI.Provider)) {
	case "", "openai":
		if c.AI.APIKey == "" {
			problems = append(problems, "ai api_key is required when using the openai provider")
		}
	case "anthropic":
		if c.AI.AnthropicAPIKey == "" && c.AI.APIKey == "" {
			problems = append(problems, "ai anthropic_api_key is required when using the anthropic provider")
		}
	default:
		problems = append(problems, fmt.Sprintf("unsupported ai provider %q", c.AI.Provider))
	}

	if c.Email.Enabled {
		if c.Email.From == "" {
			problems = append(problems, "email from is required when email is enabled")
		}
		if c.Email.To == "" {
			problems = append(problems, "email to is required when email is enabled")
		}
		if c.Email.Password == "" {
			problems = append(problems, "email password is required when email is enabled")
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration errors:\n  - %s", strings.Join(problems, "\n  - "))
	}
	return nil
}

// EnsureOutputDir 创建输出目录 / EnsureOutputDir creates the output dir.
func (c Config) EnsureOutputDir() error {
	return os.MkdirAll(c.Output.Dir, 0o755)
}

// CachePath 缓存数据库路径 / CachePath is the analysis cache db path.
func (c Config) CachePath() string {
	return filepath.Join(c.Output.Dir, "cache", "analysis.db")
}
