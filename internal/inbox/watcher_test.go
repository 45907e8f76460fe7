package inbox

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/simplebalance89-ai/c365-cs-agent/internal/ai"
	"github.com/simplebalance89-ai/c365-cs-agent/internal/classifier"
	"github.com/simplebalance89-ai/c365-cs-agent/internal/history"
	"github.com/simplebalance89-ai/c365-cs-agent/internal/kb"
	"github.com/simplebalance89-ai/c365-cs-agent/internal/mailbox"
	"github.com/simplebalance89-ai/c365-cs-agent/internal/models"
	"github.com/simplebalance89-ai/c365-cs-agent/internal/orchestrator"
	"github.com/simplebalance89-ai/c365-cs-agent/internal/responder"
	"github.com/simplebalance89-ai/c365-cs-agent/internal/ticketing"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testTriage(t *testing.T, client ai.Client, tickets ticketing.Client, mail mailbox.Client) *orchestrator.Orchestrator {
	t.Helper()
	knowledge, err := kb.Load()
	if err != nil {
		t.Fatalf("loading knowledge base: %v", err)
	}
	logger := quietLogger()
	return orchestrator.New(orchestrator.Config{
		Tickets:        tickets,
		Mail:           mail,
		Classifier:     classifier.New(client, knowledge),
		Responder:      responder.New(client, knowledge),
		History:        history.New(tickets, client, logger),
		Logger:         logger,
		Retry:          orchestrator.RetryPolicy{MaxAttempts: 2, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond},
		ServiceAddress: "support@conveyance365.com",
	})
}

type failingList struct {
	mailbox.Client
}

func (failingList) ListUnread(context.Context, int) ([]models.Email, error) {
	return nil, mailbox.ErrUnavailable
}

func TestSweepSurvivesListFailure(t *testing.T) {
	tickets := ticketing.NewDemoClient()
	mail := mailbox.NewDemoClient()
	triage := testTriage(t, ai.NewDemoClient(), tickets, mail)
	w := NewWatcher(failingList{Client: mail}, triage, quietLogger(), Options{})

	if n := w.Sweep(context.Background()); n != 0 {
		t.Fatalf("dispatched = %d, want 0 when the mailbox is down", n)
	}
}

func TestSweepProcessesEveryUnreadMessage(t *testing.T) {
	tickets := ticketing.NewDemoClient()
	mail := mailbox.NewDemoClient()
	triage := testTriage(t, ai.NewDemoClient(), tickets, mail)
	w := NewWatcher(mail, triage, quietLogger(), Options{
		Triage: orchestrator.Options{AutoSend: false, AutoSendThreshold: 0.85, AutoSendPermitted: true},
	})

	n := w.Sweep(context.Background())
	if n != 6 {
		t.Fatalf("dispatched = %d, want 6 unread demo messages", n)
	}

	// Review mode sends nothing and leaves everything unread.
	if sent := mail.Sent(); len(sent) != 0 {
		t.Fatalf("review sweep must not send: %+v", sent)
	}
	unread, _ := mail.ListUnread(context.Background(), 20)
	if len(unread) != 6 {
		t.Fatalf("unread after review sweep = %d, want 6", len(unread))
	}
}

func TestSweepRemembersHandledMessages(t *testing.T) {
	tickets := ticketing.NewDemoClient()
	mail := mailbox.NewDemoClient()
	triage := testTriage(t, ai.NewDemoClient(), tickets, mail)
	w := NewWatcher(mail, triage, quietLogger(), Options{
		Triage: orchestrator.Options{AutoSend: false, AutoSendThreshold: 0.85, AutoSendPermitted: true},
	})

	if n := w.Sweep(context.Background()); n != 6 {
		t.Fatalf("first sweep dispatched %d", n)
	}
	if n := w.Sweep(context.Background()); n != 0 {
		t.Fatalf("second sweep dispatched %d, want 0 while remembered", n)
	}
}

func TestSweepAutoSendsEligibleMail(t *testing.T) {
	tickets := ticketing.NewDemoClient()
	mail := mailbox.NewDemoClient()
	triage := testTriage(t, ai.NewDemoClient(), tickets, mail)
	w := NewWatcher(mail, triage, quietLogger(), Options{
		Triage: orchestrator.Options{AutoSend: true, AutoSendThreshold: 0.85, AutoSendPermitted: true},
	})

	w.Sweep(context.Background())

	sent := mail.Sent()
	if len(sent) == 0 {
		t.Fatalf("auto mode should send at least the confident non-escalated replies")
	}
	for _, record := range sent {
		if !strings.Contains(record.Body, "The Conveyance365 Team") {
			t.Fatalf("sent body missing sign-off: %q", record.Body)
		}
	}

	unread, _ := mail.ListUnread(context.Background(), 20)
	if len(unread)+len(sent) != 6 {
		t.Fatalf("unread %d + sent %d should account for all 6 messages", len(unread), len(sent))
	}
}

func TestSweepSkipsMessagesAlreadyInFlight(t *testing.T) {
	tickets := ticketing.NewDemoClient()
	mail := mailbox.NewDemoClient()

	release := make(chan struct{})
	var enterOnce sync.Once
	entered := make(chan struct{})
	client := blockingAI{release: release, entered: entered, once: &enterOnce}
	triage := testTriage(t, client, tickets, mail)
	w := NewWatcher(mail, triage, quietLogger(), Options{
		Triage: orchestrator.Options{AutoSend: false, AutoSendThreshold: 0.85, AutoSendPermitted: true},
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := triage.ProcessEmail(context.Background(), "MSG-DEMO-001", orchestrator.Options{AutoSendThreshold: 0.85})
		if err != nil {
			t.Errorf("blocked run failed: %v", err)
		}
	}()

	<-entered
	n := w.Sweep(context.Background())
	if n != 6 {
		t.Fatalf("dispatched = %d, want all 6 (the busy one is dispatched then skipped)", n)
	}
	close(release)
	<-done

	// The in-flight message was forgotten, so the next sweep picks it up.
	if n := w.Sweep(context.Background()); n != 1 {
		t.Fatalf("follow-up sweep dispatched %d, want 1", n)
	}
}

// blockingAI stalls classification of MSG-DEMO-001 until released and
// answers everything else like the demo provider.
type blockingAI struct {
	release chan struct{}
	entered chan struct{}
	once    *sync.Once
}

func (b blockingAI) Generate(ctx context.Context, req ai.Request) (string, error) {
	if strings.Contains(req.System, "should_escalate") && strings.Contains(req.Prompt, "email:MSG-DEMO-001") {
		b.once.Do(func() { close(b.entered) })
		select {
		case <-b.release:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return ai.NewDemoClient().Generate(ctx, req)
}

func TestRunStopsOnCancel(t *testing.T) {
	tickets := ticketing.NewDemoClient()
	mail := mailbox.NewDemoClient()
	triage := testTriage(t, ai.NewDemoClient(), tickets, mail)
	w := NewWatcher(mail, triage, quietLogger(), Options{
		PollInterval: 5 * time.Millisecond,
		Triage:       orchestrator.Options{AutoSend: false, AutoSendThreshold: 0.85, AutoSendPermitted: true},
	})

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(stopped)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatalf("Run did not stop on cancel")
	}
}
