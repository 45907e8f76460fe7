// Package inbox watches the monitored mailbox and feeds unread messages
// through the triage pipeline on a fixed cadence.
package inbox

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/simplebalance89-ai/c365-cs-agent/internal/mailbox"
	"github.com/simplebalance89-ai/c365-cs-agent/internal/orchestrator"
)

type Options struct {
	PollInterval time.Duration
	BatchSize    int
	// RememberFor bounds how long a handled message is skipped on later
	// sweeps. Auto-sent messages drop out of the unread list on their own;
	// review-mode messages stay unread until a human acts on the draft, so
	// without this window every sweep would re-triage them.
	RememberFor time.Duration
	// Triage is the processing mode applied to every watched message.
	Triage orchestrator.Options
}

type Watcher struct {
	mail     mailbox.Client
	triage   *orchestrator.Orchestrator
	logger   *slog.Logger
	poll     time.Duration
	batch    int
	remember time.Duration
	opts     orchestrator.Options

	mu      sync.Mutex
	handled map[string]time.Time
}

func NewWatcher(mail mailbox.Client, triage *orchestrator.Orchestrator, logger *slog.Logger, opts Options) *Watcher {
	poll := opts.PollInterval
	if poll <= 0 {
		poll = 30 * time.Second
	}
	batch := opts.BatchSize
	if batch <= 0 {
		batch = 10
	}
	remember := opts.RememberFor
	if remember <= 0 {
		remember = time.Hour
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		mail:     mail,
		triage:   triage,
		logger:   logger,
		poll:     poll,
		batch:    batch,
		remember: remember,
		opts:     opts.Triage,
		handled:  make(map[string]time.Time),
	}
}

// Run sweeps immediately, then once per poll interval until ctx is done.
func (w *Watcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.poll)
	defer ticker.Stop()

	for {
		w.Sweep(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Sweep triages the current unread batch, one goroutine per message, and
// returns how many messages were dispatched. Messages handled on a recent
// sweep are skipped.
func (w *Watcher) Sweep(ctx context.Context) int {
	emails, err := w.mail.ListUnread(ctx, w.batch)
	if err != nil {
		w.logger.Error("inbox sweep failed", "error", err)
		return 0
	}

	var wg sync.WaitGroup
	dispatched := 0
	for _, email := range emails {
		if !w.claim(email.ID) {
			continue
		}
		dispatched++
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			w.process(ctx, id)
		}(email.ID)
	}
	wg.Wait()
	return dispatched
}

func (w *Watcher) process(ctx context.Context, id string) {
	result, err := w.triage.ProcessEmail(ctx, id, w.opts)
	switch {
	case err == nil:
		w.logger.Info("email triaged",
			"message", id, "state", result.State, "ticket", result.Ticket.ID, "ticket_created", result.TicketCreated)
	case errors.Is(err, orchestrator.ErrAlreadyInProgress):
		// Someone else is on it; let a later sweep check the outcome.
		w.logger.Debug("message already in flight", "message", id)
		w.forget(id)
	default:
		w.logger.Error("email triage failed", "message", id, "error", err)
		w.forget(id)
	}
}

// claim marks a message as handled. It reports false when the message was
// already handled within the remember window.
func (w *Watcher) claim(id string) bool {
	now := time.Now()
	w.mu.Lock()
	defer w.mu.Unlock()
	for key, at := range w.handled {
		if now.Sub(at) > w.remember {
			delete(w.handled, key)
		}
	}
	if _, ok := w.handled[id]; ok {
		return false
	}
	w.handled[id] = now
	return true
}

func (w *Watcher) forget(id string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.handled, id)
}
