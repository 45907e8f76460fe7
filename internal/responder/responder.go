// Package responder drafts customer-facing replies from a classified ticket
// or email. Every draft carries the standard sign-off and an auto-send
// eligibility verdict computed against the caller's per-invocation options.
package responder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/simplebalance89-ai/c365-cs-agent/internal/ai"
	"github.com/simplebalance89-ai/c365-cs-agent/internal/kb"
	"github.com/simplebalance89-ai/c365-cs-agent/internal/models"
)

var ErrDraftFailed = errors.New("draft generation failed")

// SignOff closes every outbound draft. Appended when the provider forgets it.
const SignOff = "The Conveyance365 Team"

const responseSystem = `You are a senior customer success specialist at Conveyance365, an ERP
consulting and AI automation company. You draft replies to customer tickets
and emails.

Rules:
- Warm, professional, concise. No corporate filler.
- Acknowledge the specific problem in the customer's own terms.
- Only promise what the knowledge base supports. Never invent discounts,
  refunds, or timelines beyond the stated SLA.
- Close the reply with the exact sign-off "` + SignOff + `".

Respond with ONLY a valid JSON object. No commentary, no markdown, just JSON:
{
  "subject": "reply subject line",
  "body": "full reply text",
  "suggested_status": one of [open, pending, solved],
  "suggested_tags": ["short-tag", ...],
  "internal_notes": "private note for the human agent reviewing this draft"
}`

// Options applies per invocation. Mode is never process-global state: two
// concurrent calls with different options must not observe each other.
type Options struct {
	// AutoSendThreshold is the minimum classification confidence for a
	// draft to qualify for sending without human review.
	AutoSendThreshold float64
	// AutoSendPermitted gates eligibility regardless of confidence.
	AutoSendPermitted bool
}

type Responder struct {
	client    ai.Client
	knowledge *kb.KnowledgeBase
}

func New(client ai.Client, knowledge *kb.KnowledgeBase) *Responder {
	return &Responder{client: client, knowledge: knowledge}
}

// Draft generates one reply draft. Provider and parse failures wrap
// ErrDraftFailed with the cause preserved; a parsed draft is always complete,
// signed off, and stamped with its eligibility under opts.
func (r *Responder) Draft(ctx context.Context, item models.Item, classification models.Classification, history *models.CustomerHistorySummary, opts Options) (models.ResponseDraft, error) {
	raw, err := r.client.Generate(ctx, ai.Request{
		System: responseSystem,
		Prompt: r.buildPrompt(item, classification, history),
	})
	if err != nil {
		return models.ResponseDraft{}, fmt.Errorf("%w: %w", ErrDraftFailed, err)
	}

	extracted, err := ai.ExtractJSON(raw)
	if err != nil {
		return models.ResponseDraft{}, fmt.Errorf("%w: %w", ErrDraftFailed, err)
	}
	var payload struct {
		Subject         string   `json:"subject"`
		Body            string   `json:"body"`
		SuggestedStatus string   `json:"suggested_status"`
		SuggestedTags   []string `json:"suggested_tags"`
		InternalNotes   string   `json:"internal_notes"`
	}
	if err := json.Unmarshal(extracted, &payload); err != nil {
		return models.ResponseDraft{}, fmt.Errorf("%w: decoding draft: %w", ErrDraftFailed, err)
	}

	body := strings.TrimSpace(payload.Body)
	if body == "" {
		body = fallbackBody(item)
	}
	if !strings.Contains(body, SignOff) {
		body = body + "\n\n" + SignOff
	}

	subject := strings.TrimSpace(payload.Subject)
	if subject == "" {
		subject = replySubject(item.Subject())
	}

	status := models.StatusPending
	if s := strings.TrimSpace(payload.SuggestedStatus); s != "" {
		status = models.NormalizeStatus(s)
	}

	return models.ResponseDraft{
		ID:                  uuid.New(),
		Subject:             subject,
		Body:                body,
		SuggestedStatus:     status,
		SuggestedTags:       payload.SuggestedTags,
		InternalNotes:       strings.TrimSpace(payload.InternalNotes),
		Classification:      classification,
		EligibleForAutoSend: eligible(classification, opts),
		GeneratedAt:         time.Now().UTC(),
	}, nil
}

// eligible is evaluated fresh for every draft: a draft for an escalated item
// never qualifies no matter how confident the classifier was.
func eligible(c models.Classification, opts Options) bool {
	return opts.AutoSendPermitted && !c.Escalate && c.Confidence >= opts.AutoSendThreshold
}

func (r *Responder) buildPrompt(item models.Item, c models.Classification, history *models.CustomerHistorySummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Draft a reply for this Conveyance365 support %s.\n\n", item.Kind())
	fmt.Fprintf(&b, "CUSTOMER: %s <%s>\n", item.Requester().Name, item.Requester().Email)
	fmt.Fprintf(&b, "SUBJECT: %s\n", item.Subject())
	fmt.Fprintf(&b, "CLASSIFICATION: category=%s priority=%s sentiment=%s confidence=%.2f\n", c.Category, c.Priority, c.Sentiment, c.Confidence)
	if c.Escalate {
		reason := c.EscalationReason
		if reason == "" {
			reason = "flagged for escalation"
		}
		fmt.Fprintf(&b, "ESCALATION: %s. Acknowledge the severity and tell the customer a senior specialist is on it.\n", reason)
	}
	if c.Priority == models.PriorityUrgent || c.Priority == models.PriorityHigh {
		fmt.Fprintf(&b, "TIME COMMITMENT: commit to a follow-up within the %s SLA window (%s).\n", c.Priority, r.slaWindow(c.Priority))
	}
	fmt.Fprintf(&b, "ISSUE SUMMARY: %s\n", c.Summary)

	if history != nil && history.TicketCount > 0 {
		fmt.Fprintf(&b, "\nCUSTOMER HISTORY: %s", history.Summary)
		if history.VIP {
			b.WriteString(" Treat as a VIP account.")
		}
		b.WriteString("\n")
	}

	b.WriteString("\nLATEST MESSAGE FROM CUSTOMER:\n")
	body := strings.TrimSpace(item.Body())
	if body == "" {
		body = "(no message text)"
	}
	b.WriteString(body)
	b.WriteString("\n")

	if thread := item.Thread(); len(thread) > 0 {
		b.WriteString("\nCONVERSATION SO FAR (oldest first):\n")
		for _, msg := range thread {
			fmt.Fprintf(&b, "[%s] %s: %s\n", msg.Role, msg.Author, msg.Body)
		}
	}

	b.WriteString("\nKNOWLEDGE BASE CONTEXT:\n")
	b.WriteString(r.knowledge.Context(c.Category))
	return b.String()
}

// slaWindow maps triage priority onto the knowledge base SLA table, which
// names its top tier "critical".
func (r *Responder) slaWindow(p models.Priority) string {
	key := string(p)
	if p == models.PriorityUrgent {
		key = "critical"
	}
	if window, ok := r.knowledge.SLA.ResponseTimes[key]; ok {
		return window
	}
	return "one business day"
}

func replySubject(original string) string {
	original = strings.TrimSpace(original)
	if original == "" {
		return "Following up on your request"
	}
	if strings.HasPrefix(strings.ToLower(original), "re:") {
		return original
	}
	return "Re: " + original
}

func fallbackBody(item models.Item) string {
	name := strings.TrimSpace(item.Requester().Name)
	if i := strings.IndexByte(name, ' '); i > 0 {
		name = name[:i]
	}
	if name == "" {
		name = "there"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\n", name)
	b.WriteString("Thanks for reaching out to Conveyance365 support. Your message has been received and a specialist is reviewing it now. We will follow up with concrete next steps shortly.\n\n")
	b.WriteString(SignOff)
	return b.String()
}
