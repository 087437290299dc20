package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultValues(t *testing.T) {
	cfg := Default()
	if cfg.AI.Provider != "anthropic" {
		t.Fatalf("AI.Provider=%q", cfg.AI.Provider)
	}
	if !cfg.Cache.Enabled || cfg.Cache.TTLHours != 24 {
		t.Fatalf("cache defaults=%+v", cfg.Cache)
	}
	if cfg.Rank.AIPriorityWeight != 0.40 {
		t.Fatalf("rank defaults=%+v", cfg.Rank)
	}
	if cfg.Email.SMTPServer != "smtp.gmail.com" || cfg.Email.SMTPPort != 587 {
		t.Fatalf("email defaults=%+v", cfg.Email)
	}
}

func TestLoadMergesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	data := `{
		"graph": {"client_id": "cid", "tenant_id": "tid"},
		"output": {"dir": "reports", "generate_brief": true},
		"rank": {"ai_priority_weight": 0.5, "deadline_urgency_weight": 0.25, "recency_weight": 0.15, "importance_weight": 0.1, "category_weight": 0.1}
	}`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Graph.ClientID != "cid" {
		t.Fatalf("ClientID=%q", cfg.Graph.ClientID)
	}
	if cfg.Output.Dir != "reports" {
		t.Fatalf("Output.Dir=%q", cfg.Output.Dir)
	}
	if cfg.Rank.AIPriorityWeight != 0.5 {
		t.Fatalf("rank weight=%v", cfg.Rank.AIPriorityWeight)
	}
	// untouched sections keep defaults
	if cfg.Email.SMTPPort != 587 {
		t.Fatalf("SMTPPort=%d", cfg.Email.SMTPPort)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Output.Dir != "output" {
		t.Fatalf("Output.Dir=%q", cfg.Output.Dir)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	t.Setenv("TASKBRIEF_CLIENT_ID", "env-cid")
	t.Setenv("TASKBRIEF_OUTPUT_DIR", "env-out")
	t.Setenv("TASKBRIEF_CACHE_ENABLED", "false")
	t.Setenv("TASKBRIEF_SMTP_PORT", "2525")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Graph.ClientID != "env-cid" {
		t.Fatalf("ClientID=%q", cfg.Graph.ClientID)
	}
	if cfg.Output.Dir != "env-out" {
		t.Fatalf("Output.Dir=%q", cfg.Output.Dir)
	}
	if cfg.Cache.Enabled {
		t.Fatal("cache should be disabled via env")
	}
	if cfg.Email.SMTPPort != 2525 {
		t.Fatalf("SMTPPort=%d", cfg.Email.SMTPPort)
	}
}

func TestEnvBadPortRejected(t *testing.T) {
	t.Setenv("TASKBRIEF_SMTP_PORT", "not-a-port")
	if _, err := Load(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Fatal("expected error for invalid port")
	}
}

func TestValidateCollectsAllProblems(t *testing.T) {
	cfg := Default()
	cfg.Email.Enabled = true
	// provider anthropic with no key, no graph settings, no email settings

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	msg := err.Error()
	for _, want := range []string{"client_id", "tenant_id", "anthropic_api_key", "email from", "email to", "email password"} {
		if !strings.Contains(msg, want) {
			t.Errorf("validation message missing %q: %s", want, msg)
		}
	}
}

func TestValidatePassesWhenComplete(t *testing.T) {
	cfg := Default()
	cfg.Graph.ClientID = "cid"
	cfg.Graph.TenantID = "tid"
	cfg.AI.AnthropicAPIKey = "key"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestCachePathUnderOutputDir(t *testing.T) {
	cfg := Default()
	cfg.Output.Dir = "out"
	if got := cfg.CachePath(); got != filepath.Join("out", "cache", "analysis.db") {
		t.Fatalf("CachePath=%q", got)
	}
}
