package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/simplebalance89-ai/c365-cs-agent/internal/ai"
	"github.com/simplebalance89-ai/c365-cs-agent/internal/cache"
	"github.com/simplebalance89-ai/c365-cs-agent/internal/classifier"
	"github.com/simplebalance89-ai/c365-cs-agent/internal/config"
	"github.com/simplebalance89-ai/c365-cs-agent/internal/events"
	"github.com/simplebalance89-ai/c365-cs-agent/internal/history"
	"github.com/simplebalance89-ai/c365-cs-agent/internal/inbox"
	"github.com/simplebalance89-ai/c365-cs-agent/internal/kb"
	"github.com/simplebalance89-ai/c365-cs-agent/internal/mailbox"
	"github.com/simplebalance89-ai/c365-cs-agent/internal/orchestrator"
	"github.com/simplebalance89-ai/c365-cs-agent/internal/ratelimit"
	"github.com/simplebalance89-ai/c365-cs-agent/internal/responder"
	"github.com/simplebalance89-ai/c365-cs-agent/internal/ticketing"
	"github.com/simplebalance89-ai/c365-cs-agent/internal/web"
	"github.com/simplebalance89-ai/c365-cs-agent/internal/web/handlers"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Logger
	level := slog.LevelInfo
	if cfg.App.Debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	// Knowledge base
	knowledge, err := kb.Load()
	if err != nil {
		slog.Error("failed to load knowledge base", "error", err)
		os.Exit(1)
	}

	// Text generation: live provider when a key is present, demo otherwise.
	var aiClient ai.Client
	if cfg.Anthropic.Configured() {
		aiClient, err = ai.NewAnthropicClient(ai.AnthropicConfig{
			APIKey:            cfg.Anthropic.APIKey,
			Model:             cfg.Anthropic.Model,
			MaxTokens:         cfg.Anthropic.MaxTokens,
			Timeout:           cfg.Anthropic.Timeout,
			RequestsPerMinute: cfg.Anthropic.RequestsPerMinute,
		})
		if err != nil {
			slog.Error("failed to build text-generation client", "error", err)
			os.Exit(1)
		}
	} else {
		slog.Warn("no text-generation API key set, using demo generator")
		aiClient = ai.NewDemoClient()
	}

	// Ticketing
	var tickets ticketing.Client
	if cfg.Zendesk.Configured() {
		tickets, err = ticketing.NewZendeskClient(ticketing.ZendeskConfig{
			Subdomain: cfg.Zendesk.Subdomain,
			Email:     cfg.Zendesk.Email,
			APIToken:  cfg.Zendesk.APIToken,
			Timeout:   cfg.Zendesk.Timeout,
		})
		if err != nil {
			slog.Error("failed to build ticketing client", "error", err)
			os.Exit(1)
		}
	} else {
		slog.Warn("no ticketing API token set, using demo dataset")
		tickets = ticketing.NewDemoClient()
	}

	// Read cache in front of ticketing
	var store cache.Cache
	if cfg.Redis.Enabled() {
		redisStore, err := cache.NewRedis(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			slog.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		defer redisStore.Close()
		store = redisStore
	} else {
		store = cache.NewMemory()
	}
	tickets = ticketing.NewCachedClient(tickets, store, cfg.Redis.TTL, logger)

	// Mailbox
	var mail mailbox.Client
	if cfg.Graph.Configured() {
		mail, err = mailbox.NewGraphClient(mailbox.GraphConfig{
			TenantID:     cfg.Graph.TenantID,
			ClientID:     cfg.Graph.ClientID,
			ClientSecret: cfg.Graph.ClientSecret,
			Mailbox:      cfg.Graph.Mailbox,
			Scope:        cfg.Graph.Scope,
			Timeout:      cfg.Graph.Timeout,
		})
		if err != nil {
			slog.Error("failed to build mailbox client", "error", err)
			os.Exit(1)
		}
	} else {
		slog.Warn("incomplete Graph credentials, using demo mailbox")
		mail = mailbox.NewDemoClient()
	}

	// Event publisher
	var publisher events.Publisher = events.NoopPublisher{}
	if cfg.Kafka.Enabled() {
		kafkaPublisher := events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer kafkaPublisher.Close()
		publisher = kafkaPublisher
	}

	// Triage pipeline
	classify := classifier.New(aiClient, knowledge)
	respond := responder.New(aiClient, knowledge)
	hist := history.New(tickets, aiClient, logger)
	triage := orchestrator.New(orchestrator.Config{
		Tickets:    tickets,
		Mail:       mail,
		Classifier: classify,
		Responder:  respond,
		History:    hist,
		Events:     publisher,
		Logger:     logger,
		Retry: orchestrator.RetryPolicy{
			MaxAttempts: cfg.Triage.RetryMaxAttempts,
			BaseDelay:   cfg.Triage.RetryBaseDelay,
			MaxDelay:    cfg.Triage.RetryMaxDelay,
		},
		ServiceAddress: cfg.Graph.Mailbox,
	})

	defaults := handlers.TriageDefaults{
		AutoSendThreshold: cfg.Triage.AutoSendThreshold,
		AutoSendPermitted: cfg.Triage.AutoSendPermitted,
	}

	// The watcher is always built so the sweep endpoint works; background
	// polling only runs when enabled.
	watcher := inbox.NewWatcher(mail, triage, logger, inbox.Options{
		PollInterval: cfg.Watcher.PollInterval,
		BatchSize:    cfg.Watcher.BatchSize,
		RememberFor:  cfg.Watcher.RememberFor,
		Triage: orchestrator.Options{
			AutoSend:          cfg.Watcher.AutoReply,
			AutoSendThreshold: cfg.Triage.AutoSendThreshold,
			AutoSendPermitted: cfg.Triage.AutoSendPermitted,
		},
	})

	// Rate limiter
	limiter := ratelimit.New(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
	defer limiter.Close()

	// Handlers
	info := handlers.ServiceInfo{
		Name:         cfg.App.Name,
		Version:      cfg.App.Version,
		Environment:  cfg.App.Environment,
		DemoMode:     !cfg.Zendesk.Configured() || !cfg.Graph.Configured(),
		AIConfigured: cfg.Anthropic.Configured(),
	}

	// Router
	router := web.NewRouter(web.RouterDeps{
		System:    handlers.NewSystemHandler(tickets, mail, info),
		Demo:      handlers.NewDemoHandler(classify, respond, defaults),
		Tickets:   handlers.NewTicketHandler(tickets, triage, defaults),
		Mail:      handlers.NewMailHandler(mail, triage, defaults),
		Customers: handlers.NewCustomerHandler(triage),
		Inbox:     handlers.NewInboxHandler(watcher),
		Limiter:   limiter,
	})

	// Graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Watcher.Enabled {
		go watcher.Run(ctx)
		slog.Info("inbox watcher running",
			"poll_interval", cfg.Watcher.PollInterval, "auto_reply", cfg.Watcher.AutoReply)
	}

	// Drafting can sit behind provider retries, so the write timeout is
	// generous.
	srv := &http.Server{
		Addr:         cfg.App.Addr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 3 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("C365 CS Agent starting",
			"addr", srv.Addr, "environment", cfg.App.Environment, "demo_mode", info.DemoMode)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}
