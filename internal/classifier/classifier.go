// Package classifier turns a ticket or inbound email into a structured triage
// classification: category, priority, sentiment, escalation flag, confidence,
// and a short summary. The output is always complete and normalized onto the
// bounded taxonomy, or absent with an error.
package classifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/simplebalance89-ai/c365-cs-agent/internal/ai"
	"github.com/simplebalance89-ai/c365-cs-agent/internal/kb"
	"github.com/simplebalance89-ai/c365-cs-agent/internal/models"
)

var (
	ErrEmptyInput           = errors.New("item has no subject or body text")
	ErrClassificationFailed = errors.New("classification failed")
)

// defaultConfidence stands in when the provider omits the field: medium, so
// an omission never qualifies a draft for automatic sending on its own.
const defaultConfidence = 0.5

const conversationTail = 6

type Classifier struct {
	client ai.Client
	system string
}

// New composes the system prompt from the live taxonomy and the knowledge
// base's escalation triggers so both stay single-sourced.
func New(client ai.Client, knowledge *kb.KnowledgeBase) *Classifier {
	return &Classifier{
		client: client,
		system: buildSystemPrompt(knowledge.EscalationTriggers()),
	}
}

func buildSystemPrompt(triggers []string) string {
	categories := make([]string, 0, len(models.Categories()))
	for _, c := range models.Categories() {
		categories = append(categories, string(c))
	}

	var b strings.Builder
	b.WriteString(`You are an expert customer service operations analyst for Conveyance365,
an ERP consulting and AI automation company.

Your job is to classify incoming support tickets and emails. You must respond
with ONLY a valid JSON object. No commentary, no markdown, just JSON.

Classification schema:
{
  "category": one of [`)
	b.WriteString(strings.Join(categories, ", "))
	b.WriteString(`],
  "priority": one of [urgent, high, normal, low],
  "sentiment": one of [positive, neutral, negative],
  "should_escalate": boolean,
  "escalation_reason": string or null,
  "confidence": float between 0.0 and 1.0,
  "summary": "1-2 sentence plain-English summary of the issue"
}

Priority guidelines:
- urgent: System outage, data loss risk, legal threat, client threatening to cancel, production ERP down
- high: Billing dispute, integration failure, repeated issue, urgent support request
- normal: Routine requests, general questions, minor issues
- low: Suggestions, compliments, non-time-sensitive inquiries

Escalation triggers (set should_escalate=true):
`)
	for _, trigger := range triggers {
		b.WriteString("- ")
		b.WriteString(trigger)
		b.WriteString("\n")
	}
	return b.String()
}

// Classify runs one classification. Empty input (subject and body both blank
// after trimming) fails with ErrEmptyInput before any provider call. Provider
// and parse failures wrap ErrClassificationFailed with the cause preserved.
func (c *Classifier) Classify(ctx context.Context, item models.Item) (models.Classification, error) {
	subject := strings.TrimSpace(item.Subject())
	body := strings.TrimSpace(item.Body())
	if subject == "" && body == "" {
		return models.Classification{}, ErrEmptyInput
	}

	raw, err := c.client.Generate(ctx, ai.Request{
		System: c.system,
		Prompt: buildUserPrompt(item, subject, body),
	})
	if err != nil {
		return models.Classification{}, fmt.Errorf("%w: %w", ErrClassificationFailed, err)
	}
	classification, err := parseClassification(raw, subject, body)
	if err != nil {
		return models.Classification{}, fmt.Errorf("%w: %w", ErrClassificationFailed, err)
	}
	return classification, nil
}

func buildUserPrompt(item models.Item, subject, body string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Classify this Conveyance365 support %s.\n\n", item.Kind())
	fmt.Fprintf(&b, "ITEM: %s\n", item.ItemKey())
	fmt.Fprintf(&b, "FROM: %s <%s>\n", item.Requester().Name, item.Requester().Email)
	fmt.Fprintf(&b, "SUBJECT: %s\n", subject)
	b.WriteString("DESCRIPTION:\n")
	if body == "" {
		b.WriteString("(no description provided)\n")
	} else {
		b.WriteString(body)
		b.WriteString("\n")
	}

	thread := item.Thread()
	if len(thread) > conversationTail {
		thread = thread[len(thread)-conversationTail:]
	}
	if len(thread) > 0 {
		b.WriteString("\nCONVERSATION SO FAR (oldest first):\n")
		for _, msg := range thread {
			fmt.Fprintf(&b, "[%s] %s: %s\n", msg.Role, msg.Author, msg.Body)
		}
	}
	return b.String()
}

func parseClassification(raw, subject, body string) (models.Classification, error) {
	extracted, err := ai.ExtractJSON(raw)
	if err != nil {
		return models.Classification{}, err
	}

	var payload struct {
		Category         string   `json:"category"`
		Priority         string   `json:"priority"`
		Sentiment        string   `json:"sentiment"`
		ShouldEscalate   bool     `json:"should_escalate"`
		EscalationReason *string  `json:"escalation_reason"`
		Confidence       *float64 `json:"confidence"`
		Summary          string   `json:"summary"`
	}
	if err := json.Unmarshal(extracted, &payload); err != nil {
		return models.Classification{}, fmt.Errorf("decoding classification: %w", err)
	}

	confidence := defaultConfidence
	if payload.Confidence != nil {
		confidence = *payload.Confidence
	}
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	summary := strings.TrimSpace(payload.Summary)
	if summary == "" {
		summary = fallbackSummary(subject, body)
	}

	classification := models.Classification{
		Category:    models.NormalizeCategory(payload.Category),
		Priority:    models.NormalizePriority(payload.Priority),
		Sentiment:   models.NormalizeSentiment(payload.Sentiment),
		Escalate:    payload.ShouldEscalate,
		Confidence:  confidence,
		Summary:     summary,
		GeneratedAt: time.Now().UTC(),
	}
	if payload.EscalationReason != nil {
		classification.EscalationReason = strings.TrimSpace(*payload.EscalationReason)
	}
	return classification, nil
}

func fallbackSummary(subject, body string) string {
	if subject != "" {
		return subject
	}
	const limit = 140
	if len(body) > limit {
		return body[:limit]
	}
	return body
}
