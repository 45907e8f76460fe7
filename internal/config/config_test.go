package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.App.Name != "C365 CS Agent" {
		t.Errorf("App.Name = %q, want %q", cfg.App.Name, "C365 CS Agent")
	}
	if cfg.Zendesk.Subdomain != "demo" {
		t.Errorf("Zendesk.Subdomain = %q, want demo", cfg.Zendesk.Subdomain)
	}
	if cfg.Anthropic.Model != "claude-sonnet-4-6" {
		t.Errorf("Anthropic.Model = %q, want claude-sonnet-4-6", cfg.Anthropic.Model)
	}
	if cfg.Anthropic.MaxTokens != 1024 {
		t.Errorf("Anthropic.MaxTokens = %d, want 1024", cfg.Anthropic.MaxTokens)
	}
	if cfg.Graph.Scope != "https://graph.microsoft.com/.default" {
		t.Errorf("Graph.Scope = %q", cfg.Graph.Scope)
	}
	if cfg.Triage.AutoSendThreshold != 0.85 {
		t.Errorf("Triage.AutoSendThreshold = %v, want 0.85", cfg.Triage.AutoSendThreshold)
	}
	if cfg.Watcher.PollInterval != time.Minute {
		t.Errorf("Watcher.PollInterval = %v, want 1m", cfg.Watcher.PollInterval)
	}
	if cfg.Redis.TTL != 5*time.Minute {
		t.Errorf("Redis.TTL = %v, want 5m", cfg.Redis.TTL)
	}
	if cfg.Kafka.Topic != "triage-events" {
		t.Errorf("Kafka.Topic = %q, want triage-events", cfg.Kafka.Topic)
	}
	if cfg.Redis.Enabled() {
		t.Error("Redis.Enabled() = true with no address")
	}
	if cfg.Kafka.Enabled() {
		t.Error("Kafka.Enabled() = true with no brokers")
	}
}

func TestLoad_ReadsEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("ANTHROPIC_API_KEY", "sk-test")
	t.Setenv("ZENDESK_API_TOKEN", "ztok")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("AUTO_SEND_PERMITTED", "true")
	t.Setenv("AUTO_SEND_THRESHOLD", "0.9")
	t.Setenv("CLAUDE_TIMEOUT", "30s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if got := cfg.App.Addr(); got != ":9090" {
		t.Errorf("App.Addr() = %q, want :9090", got)
	}
	if cfg.App.Environment != "production" {
		t.Errorf("App.Environment = %q, want production", cfg.App.Environment)
	}
	if !cfg.Anthropic.Configured() {
		t.Error("Anthropic.Configured() = false with key set")
	}
	if !cfg.Zendesk.Configured() {
		t.Error("Zendesk.Configured() = false with token set")
	}
	if !cfg.Redis.Enabled() {
		t.Error("Redis.Enabled() = false with address set")
	}
	if len(cfg.Kafka.Brokers) != 2 {
		t.Fatalf("Kafka.Brokers = %v, want two brokers", cfg.Kafka.Brokers)
	}
	if !cfg.Kafka.Enabled() {
		t.Error("Kafka.Enabled() = false with brokers set")
	}
	if !cfg.Triage.AutoSendPermitted {
		t.Error("Triage.AutoSendPermitted = false")
	}
	if cfg.Triage.AutoSendThreshold != 0.9 {
		t.Errorf("Triage.AutoSendThreshold = %v, want 0.9", cfg.Triage.AutoSendThreshold)
	}
	if cfg.Anthropic.Timeout != 30*time.Second {
		t.Errorf("Anthropic.Timeout = %v, want 30s", cfg.Anthropic.Timeout)
	}
}

func TestLoad_RejectsMalformedValue(t *testing.T) {
	t.Setenv("CLAUDE_MAX_TOKENS", "many")

	if _, err := Load(); err == nil {
		t.Fatal("Load accepted a non-numeric CLAUDE_MAX_TOKENS")
	}
}

func TestGraphConfigured_RequiresAllCredentials(t *testing.T) {
	tests := []struct {
		name string
		cfg  GraphConfig
		want bool
	}{
		{"all set", GraphConfig{TenantID: "t", ClientID: "c", ClientSecret: "s"}, true},
		{"missing secret", GraphConfig{TenantID: "t", ClientID: "c"}, false},
		{"missing tenant", GraphConfig{ClientID: "c", ClientSecret: "s"}, false},
		{"none", GraphConfig{}, false},
	}
	for _, tt := range tests {
		if got := tt.cfg.Configured(); got != tt.want {
			t.Errorf("%s: Configured() = %v, want %v", tt.name, got, tt.want)
		}
	}
}
