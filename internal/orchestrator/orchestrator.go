// Package orchestrator runs the triage pipeline: fetch an item, classify it,
// draft a reply, then either send the reply or park it for human review.
// Every item moves through the same states and emits an event per transition.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/simplebalance89-ai/c365-cs-agent/internal/classifier"
	"github.com/simplebalance89-ai/c365-cs-agent/internal/events"
	"github.com/simplebalance89-ai/c365-cs-agent/internal/history"
	"github.com/simplebalance89-ai/c365-cs-agent/internal/identity"
	"github.com/simplebalance89-ai/c365-cs-agent/internal/mailbox"
	"github.com/simplebalance89-ai/c365-cs-agent/internal/models"
	"github.com/simplebalance89-ai/c365-cs-agent/internal/responder"
	"github.com/simplebalance89-ai/c365-cs-agent/internal/ticketing"
)

// State names a pipeline stage. Auto-sent and awaiting-review are terminal.
type State string

const (
	StateFetched        State = "fetched"
	StateClassified     State = "classified"
	StateDrafted        State = "drafted"
	StateAutoSent       State = "auto_sent"
	StateAwaitingReview State = "awaiting_review"
)

// Options applies to a single invocation. Two concurrent requests with
// different options never observe each other's mode.
type Options struct {
	// AutoSend asks for the draft to actually be sent when eligible.
	AutoSend bool
	// AutoSendThreshold is the minimum classification confidence for
	// eligibility.
	AutoSendThreshold float64
	// AutoSendPermitted reflects the deployment-level switch. When false,
	// no draft is eligible regardless of AutoSend.
	AutoSendPermitted bool
}

func (o Options) responderOptions() responder.Options {
	return responder.Options{
		AutoSendThreshold: o.AutoSendThreshold,
		AutoSendPermitted: o.AutoSendPermitted,
	}
}

type Config struct {
	Tickets    ticketing.Client
	Mail       mailbox.Client
	Classifier *classifier.Classifier
	Responder  *responder.Responder
	History    *history.Aggregator
	Events     events.Publisher
	Logger     *slog.Logger
	Retry      RetryPolicy
	// ServiceAddress is the monitored mailbox; thread messages from it read
	// as the agent side of the conversation.
	ServiceAddress string
}

type Orchestrator struct {
	tickets     ticketing.Client
	mail        mailbox.Client
	classifier  *classifier.Classifier
	responder   *responder.Responder
	history     *history.Aggregator
	events      events.Publisher
	logger      *slog.Logger
	retry       RetryPolicy
	serviceAddr string
	flight      *inFlight
}

func New(cfg Config) *Orchestrator {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	publisher := cfg.Events
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &Orchestrator{
		tickets:     cfg.Tickets,
		mail:        cfg.Mail,
		classifier:  cfg.Classifier,
		responder:   cfg.Responder,
		history:     cfg.History,
		events:      publisher,
		logger:      logger,
		retry:       cfg.Retry.normalized(),
		serviceAddr: cfg.ServiceAddress,
		flight:      newInFlight(),
	}
}

type ClassifyResult struct {
	Ticket         *models.Ticket        `json:"ticket"`
	Classification models.Classification `json:"classification"`
}

// ClassifyTicket fetches and classifies one ticket. A second call for the
// same ticket while one is running fails with ErrAlreadyInProgress.
func (o *Orchestrator) ClassifyTicket(ctx context.Context, id int64) (*ClassifyResult, error) {
	key := models.TicketKey(id)
	if err := o.flight.begin(key); err != nil {
		return nil, err
	}
	defer o.flight.end(key)

	ticket, err := o.fetchTicket(ctx, id)
	if err != nil {
		return nil, err
	}
	classification, err := o.classify(ctx, models.TicketItem(ticket))
	if err != nil {
		return nil, err
	}
	return &ClassifyResult{Ticket: ticket, Classification: classification}, nil
}

type RespondResult struct {
	Ticket         *models.Ticket        `json:"ticket"`
	Classification models.Classification `json:"classification"`
	Draft          models.ResponseDraft  `json:"draft"`
	State          State                 `json:"state"`
	// Warning reports a non-fatal defect of the run, typically an eligible
	// draft whose send failed and was parked for review instead.
	Warning string `json:"warning,omitempty"`
}

// RespondToTicket runs the full pipeline for a ticket. When the draft is
// eligible and opts ask for it, the reply is posted as a public comment;
// a send failure downgrades the run to awaiting review instead of failing.
func (o *Orchestrator) RespondToTicket(ctx context.Context, id int64, opts Options) (*RespondResult, error) {
	key := models.TicketKey(id)
	if err := o.flight.begin(key); err != nil {
		return nil, err
	}
	defer o.flight.end(key)

	ticket, err := o.fetchTicket(ctx, id)
	if err != nil {
		return nil, err
	}
	item := models.TicketItem(ticket)
	classification, err := o.classify(ctx, item)
	if err != nil {
		return nil, err
	}

	draft, err := o.draft(ctx, item, classification, o.summarizeQuietly(ctx, ticket.Requester.Email), opts)
	if err != nil {
		return nil, err
	}

	result := &RespondResult{
		Ticket:         ticket,
		Classification: classification,
		Draft:          draft,
		State:          StateAwaitingReview,
	}
	if draft.EligibleForAutoSend && opts.AutoSend {
		warning, sendErr := o.postTicketReply(ctx, ticket, draft)
		if sendErr != nil {
			result.Warning = fmt.Sprintf("auto-send failed, draft kept for review: %v", sendErr)
			o.logger.Warn("ticket auto-send failed", "ticket", ticket.ID, "error", sendErr)
		} else {
			result.State = StateAutoSent
			result.Warning = warning
		}
	}
	o.publish(ctx, item, result.State, result.Warning)
	return result, nil
}

type EmailResult struct {
	Email          *models.Email         `json:"email"`
	Ticket         *models.Ticket        `json:"ticket"`
	TicketCreated  bool                  `json:"ticket_created"`
	Classification models.Classification `json:"classification"`
	Draft          models.ResponseDraft  `json:"draft"`
	State          State                 `json:"state"`
	Warning        string                `json:"warning,omitempty"`
}

// ProcessEmail triages one inbound email: classify it, attach it to the
// sender's most recent open ticket or create a new one, draft a reply, and
// optionally send the reply on the mail thread.
func (o *Orchestrator) ProcessEmail(ctx context.Context, messageID string, opts Options) (*EmailResult, error) {
	key := models.EmailKey(messageID)
	if err := o.flight.begin(key); err != nil {
		return nil, err
	}
	defer o.flight.end(key)

	email, err := o.fetchEmail(ctx, messageID)
	if err != nil {
		return nil, err
	}
	item := models.EmailItem(email, o.threadQuietly(ctx, email))

	classification, err := o.classify(ctx, item)
	if err != nil {
		return nil, err
	}

	result := &EmailResult{
		Email:          email,
		Classification: classification,
		State:          StateAwaitingReview,
	}
	ticket, created, warning, err := o.attachToTicket(ctx, email, classification)
	if err != nil {
		return nil, err
	}
	result.Ticket = ticket
	result.TicketCreated = created
	result.Warning = warning

	draft, err := o.draft(ctx, item, classification, o.summarizeQuietly(ctx, email.Sender.Email), opts)
	if err != nil {
		return nil, err
	}
	result.Draft = draft

	if draft.EligibleForAutoSend && opts.AutoSend {
		warning, sendErr := o.sendEmailReply(ctx, email, ticket, draft)
		if sendErr != nil {
			result.Warning = joinWarnings(result.Warning, fmt.Sprintf("auto-send failed, draft kept for review: %v", sendErr))
			o.logger.Warn("email auto-send failed", "message", email.ID, "error", sendErr)
		} else {
			result.State = StateAutoSent
			result.Warning = joinWarnings(result.Warning, warning)
		}
	}
	o.publish(ctx, item, result.State, result.Warning)
	return result, nil
}

// CustomerHistory summarizes the requester's prior tickets. Reads are not
// single-flighted; concurrent lookups are harmless.
func (o *Orchestrator) CustomerHistory(ctx context.Context, email string) (*models.CustomerHistorySummary, error) {
	var summary *models.CustomerHistorySummary
	err := withRetry(ctx, o.retry, o.logger, "customer history", func() error {
		var err error
		summary, err = o.history.Summarize(ctx, email)
		return err
	})
	if err != nil {
		return nil, err
	}
	return summary, nil
}

func (o *Orchestrator) fetchTicket(ctx context.Context, id int64) (*models.Ticket, error) {
	var ticket *models.Ticket
	err := withRetry(ctx, o.retry, o.logger, "fetch ticket", func() error {
		var err error
		ticket, err = o.tickets.GetTicket(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	o.publish(ctx, models.TicketItem(ticket), StateFetched, "")
	return ticket, nil
}

func (o *Orchestrator) fetchEmail(ctx context.Context, id string) (*models.Email, error) {
	var email *models.Email
	err := withRetry(ctx, o.retry, o.logger, "fetch email", func() error {
		var err error
		email, err = o.mail.GetMessage(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	o.publish(ctx, models.EmailItem(email, nil), StateFetched, "")
	return email, nil
}

func (o *Orchestrator) classify(ctx context.Context, item models.Item) (models.Classification, error) {
	var classification models.Classification
	err := withRetry(ctx, o.retry, o.logger, "classify", func() error {
		var err error
		classification, err = o.classifier.Classify(ctx, item)
		return err
	})
	if err != nil {
		return models.Classification{}, err
	}
	detail := fmt.Sprintf("category=%s priority=%s confidence=%.2f escalate=%t",
		classification.Category, classification.Priority, classification.Confidence, classification.Escalate)
	o.publish(ctx, item, StateClassified, detail)
	return classification, nil
}

func (o *Orchestrator) draft(ctx context.Context, item models.Item, classification models.Classification, hist *models.CustomerHistorySummary, opts Options) (models.ResponseDraft, error) {
	var draft models.ResponseDraft
	err := withRetry(ctx, o.retry, o.logger, "draft response", func() error {
		var err error
		draft, err = o.responder.Draft(ctx, item, classification, hist, opts.responderOptions())
		return err
	})
	if err != nil {
		return models.ResponseDraft{}, err
	}
	o.publish(ctx, item, StateDrafted, fmt.Sprintf("eligible=%t", draft.EligibleForAutoSend))
	return draft, nil
}

// summarizeQuietly fetches customer history for prompt context. History is
// an enrichment: its failure degrades the draft, never the run.
func (o *Orchestrator) summarizeQuietly(ctx context.Context, email string) *models.CustomerHistorySummary {
	if email == "" {
		return nil
	}
	summary, err := o.history.Summarize(ctx, email)
	if err != nil {
		o.logger.Warn("customer history unavailable for draft", "requester", email, "error", err)
		return nil
	}
	return summary
}

func (o *Orchestrator) threadQuietly(ctx context.Context, email *models.Email) []models.Message {
	if email.ThreadID == "" {
		return nil
	}
	thread, err := o.mail.ThreadMessages(ctx, email.ThreadID)
	if err != nil {
		o.logger.Warn("thread history unavailable", "message", email.ID, "error", err)
		return nil
	}
	return mailbox.ThreadConversation(thread, o.serviceAddr)
}

// attachToTicket finds the ticket an email belongs to, or creates one. The
// inbound email is recorded on a matched ticket as an internal note; the
// note failing is a warning, not a failed run.
func (o *Orchestrator) attachToTicket(ctx context.Context, email *models.Email, classification models.Classification) (*models.Ticket, bool, string, error) {
	var candidates []models.Ticket
	err := withRetry(ctx, o.retry, o.logger, "requester tickets", func() error {
		var err error
		candidates, err = o.tickets.TicketsByRequester(ctx, email.Sender.Email)
		return err
	})
	if err != nil {
		return nil, false, "", fmt.Errorf("matching sender %s: %w", email.Sender.Email, err)
	}

	if matched, ok := identity.MatchTicket(email.Sender.Email, candidates); ok {
		note := fmt.Sprintf("Inbound email from %s <%s>:\n\n%s", email.Sender.Name, email.Sender.Email, email.Body)
		if err := o.tickets.AddComment(ctx, matched.ID, note, false); err != nil {
			warning := fmt.Sprintf("matched ticket %d but could not record the email on it: %v", matched.ID, err)
			o.logger.Warn("email note failed", "ticket", matched.ID, "error", err)
			return matched, false, warning, nil
		}
		matched.Status = models.StatusOpen
		return matched, false, "", nil
	}

	// New requester or nothing actionable: open a fresh ticket. The AI
	// priority is trusted here since no human has set one yet.
	var created *models.Ticket
	err = withRetry(ctx, o.retry, o.logger, "create ticket", func() error {
		var err error
		created, err = o.tickets.CreateTicket(ctx, models.TicketCreateParams{
			Subject:   email.Subject,
			Body:      email.Body,
			Requester: email.Sender,
			Priority:  classification.Priority,
		})
		return err
	})
	if err != nil {
		return nil, false, "", fmt.Errorf("creating ticket for %s: %w", email.Sender.Email, err)
	}
	return created, true, "", nil
}

// postTicketReply publishes the draft as a public comment, then applies the
// suggested status and tags. The comment is the send; follow-up update
// failures are warnings because the customer already got the reply.
func (o *Orchestrator) postTicketReply(ctx context.Context, ticket *models.Ticket, draft models.ResponseDraft) (string, error) {
	err := withRetry(ctx, o.retry, o.logger, "post reply", func() error {
		return o.tickets.AddComment(ctx, ticket.ID, draft.Body, true)
	})
	if err != nil {
		return "", err
	}
	ticket.Status = models.StatusPending

	update := models.TicketUpdate{}
	needed := false
	if draft.SuggestedStatus != "" && draft.SuggestedStatus != models.StatusPending {
		update.Status = draft.SuggestedStatus
		needed = true
	}
	if len(draft.SuggestedTags) > 0 {
		update.Tags = draft.SuggestedTags
		needed = true
	}
	if !needed {
		return "", nil
	}
	updated, err := o.tickets.UpdateTicket(ctx, ticket.ID, update)
	if err != nil {
		o.logger.Warn("post-send ticket update failed", "ticket", ticket.ID, "error", err)
		return fmt.Sprintf("reply sent but ticket update failed: %v", err), nil
	}
	*ticket = *updated
	return "", nil
}

// sendEmailReply answers on the mail thread, marks the original read, and
// records the sent text on the ticket. Only the send itself can fail the
// auto-send; the bookkeeping afterwards degrades to warnings.
func (o *Orchestrator) sendEmailReply(ctx context.Context, email *models.Email, ticket *models.Ticket, draft models.ResponseDraft) (string, error) {
	err := withRetry(ctx, o.retry, o.logger, "send reply", func() error {
		return o.mail.SendReply(ctx, email.ID, draft.Subject, draft.Body)
	})
	if err != nil {
		return "", err
	}

	var warning string
	if err := o.mail.MarkRead(ctx, email.ID); err != nil {
		warning = fmt.Sprintf("reply sent but message not marked read: %v", err)
		o.logger.Warn("mark read failed", "message", email.ID, "error", err)
	}
	if ticket != nil {
		note := "Auto-sent email reply:\n\n" + draft.Body
		if err := o.tickets.AddComment(ctx, ticket.ID, note, false); err != nil {
			warning = joinWarnings(warning, fmt.Sprintf("reply sent but not recorded on ticket %d: %v", ticket.ID, err))
			o.logger.Warn("reply note failed", "ticket", ticket.ID, "error", err)
		}
	}
	return warning, nil
}

// publish emits a pipeline event. Event delivery is best effort and never
// affects the run.
func (o *Orchestrator) publish(ctx context.Context, item models.Item, state State, detail string) {
	event := events.New(string(item.Kind()), item.ItemKey(), string(state), detail)
	if err := o.events.Publish(ctx, event); err != nil {
		o.logger.Warn("event publish failed", "entity", event.EntityKey, "state", event.State, "error", err)
	}
}

func joinWarnings(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	default:
		return a + "; " + b
	}
}
