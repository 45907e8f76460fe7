// Package config loads service configuration from the environment. A .env
// file in the working directory is applied first so local runs need no
// exported variables.
package config

import (
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config is the full service configuration.
type Config struct {
	App       AppConfig
	Anthropic AnthropicConfig
	Zendesk   ZendeskConfig
	Graph     GraphConfig
	Redis     RedisConfig
	Kafka     KafkaConfig
	Triage    TriageConfig
	Watcher   WatcherConfig
	RateLimit RateLimitConfig
}

// AppConfig identifies the service and controls the HTTP listener.
type AppConfig struct {
	Name        string `envconfig:"APP_NAME" default:"C365 CS Agent"`
	Version     string `envconfig:"APP_VERSION" default:"1.0.0"`
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
	Port        int    `envconfig:"PORT" default:"8000"`
	Debug       bool   `envconfig:"DEBUG" default:"false"`
}

// Addr is the listen address for the HTTP server.
func (c AppConfig) Addr() string {
	return ":" + strconv.Itoa(c.Port)
}

// AnthropicConfig holds text-generation provider credentials. An empty API
// key selects the built-in demo generator.
type AnthropicConfig struct {
	APIKey            string        `envconfig:"ANTHROPIC_API_KEY"`
	Model             string        `envconfig:"CLAUDE_MODEL" default:"claude-sonnet-4-6"`
	MaxTokens         int           `envconfig:"CLAUDE_MAX_TOKENS" default:"1024"`
	Timeout           time.Duration `envconfig:"CLAUDE_TIMEOUT" default:"60s"`
	RequestsPerMinute int           `envconfig:"CLAUDE_REQUESTS_PER_MINUTE" default:"50"`
}

func (c AnthropicConfig) Configured() bool { return c.APIKey != "" }

// ZendeskConfig holds ticketing credentials. An empty API token selects the
// built-in demo dataset.
type ZendeskConfig struct {
	Subdomain string        `envconfig:"ZENDESK_SUBDOMAIN" default:"demo"`
	Email     string        `envconfig:"ZENDESK_EMAIL" default:"demo@conveyance365.com"`
	APIToken  string        `envconfig:"ZENDESK_API_TOKEN"`
	Timeout   time.Duration `envconfig:"ZENDESK_TIMEOUT" default:"15s"`
}

func (c ZendeskConfig) Configured() bool { return c.APIToken != "" }

// GraphConfig holds Microsoft Graph app-only credentials for the monitored
// mailbox. Incomplete credentials select the built-in demo mailbox.
type GraphConfig struct {
	TenantID     string        `envconfig:"MS_TENANT_ID"`
	ClientID     string        `envconfig:"MS_CLIENT_ID"`
	ClientSecret string        `envconfig:"MS_CLIENT_SECRET"`
	Mailbox      string        `envconfig:"MS_MAILBOX" default:"demo@conveyance365.com"`
	Scope        string        `envconfig:"MS_GRAPH_SCOPE" default:"https://graph.microsoft.com/.default"`
	Timeout      time.Duration `envconfig:"MS_GRAPH_TIMEOUT" default:"15s"`
}

func (c GraphConfig) Configured() bool {
	return c.TenantID != "" && c.ClientID != "" && c.ClientSecret != ""
}

// RedisConfig backs the ticketing read cache. An empty address falls back to
// the in-process cache.
type RedisConfig struct {
	Addr     string        `envconfig:"REDIS_ADDR"`
	Password string        `envconfig:"REDIS_PASSWORD"`
	DB       int           `envconfig:"REDIS_DB" default:"0"`
	TTL      time.Duration `envconfig:"CACHE_TTL" default:"5m"`
}

func (c RedisConfig) Enabled() bool { return c.Addr != "" }

// KafkaConfig names the broker for triage state events. No brokers means
// events are dropped.
type KafkaConfig struct {
	Brokers []string `envconfig:"KAFKA_BROKERS"`
	Topic   string   `envconfig:"KAFKA_TOPIC" default:"triage-events"`
}

func (c KafkaConfig) Enabled() bool { return len(c.Brokers) > 0 }

// TriageConfig sets the deployment-level auto-send policy and the retry
// behavior for upstream calls.
type TriageConfig struct {
	// AutoSendPermitted is the master switch. When false no draft is ever
	// auto-sent, whatever a request asks for.
	AutoSendPermitted bool          `envconfig:"AUTO_SEND_PERMITTED" default:"false"`
	AutoSendThreshold float64       `envconfig:"AUTO_SEND_THRESHOLD" default:"0.85"`
	RetryMaxAttempts  int           `envconfig:"RETRY_MAX_ATTEMPTS" default:"3"`
	RetryBaseDelay    time.Duration `envconfig:"RETRY_BASE_DELAY" default:"500ms"`
	RetryMaxDelay     time.Duration `envconfig:"RETRY_MAX_DELAY" default:"8s"`
}

// WatcherConfig controls the background inbox sweeper.
type WatcherConfig struct {
	Enabled      bool          `envconfig:"WATCHER_ENABLED" default:"false"`
	PollInterval time.Duration `envconfig:"WATCHER_POLL_INTERVAL" default:"60s"`
	BatchSize    int           `envconfig:"WATCHER_BATCH_SIZE" default:"10"`
	RememberFor  time.Duration `envconfig:"WATCHER_REMEMBER_FOR" default:"24h"`
	// AutoReply asks the watcher to send eligible drafts instead of leaving
	// them for review. Still subject to the triage auto-send policy.
	AutoReply bool `envconfig:"WATCHER_AUTO_REPLY" default:"false"`
}

// RateLimitConfig bounds per-client request rates on the triage API.
type RateLimitConfig struct {
	RPS   float64 `envconfig:"RATE_LIMIT_RPS" default:"5"`
	Burst int     `envconfig:"RATE_LIMIT_BURST" default:"10"`
}

// Load reads a .env file when present, then fills Config from the
// environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
