package responder

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/simplebalance89-ai/c365-cs-agent/internal/ai"
	"github.com/simplebalance89-ai/c365-cs-agent/internal/kb"
	"github.com/simplebalance89-ai/c365-cs-agent/internal/models"
)

type stubGenerator struct {
	out     string
	err     error
	lastReq ai.Request
}

func (s *stubGenerator) Generate(_ context.Context, req ai.Request) (string, error) {
	s.lastReq = req
	return s.out, s.err
}

func testKnowledge(t *testing.T) *kb.KnowledgeBase {
	t.Helper()
	knowledge, err := kb.Load()
	if err != nil {
		t.Fatalf("loading knowledge base: %v", err)
	}
	return knowledge
}

func testItem() models.Item {
	return models.TicketItem(&models.Ticket{
		ID:        40071,
		Subject:   "Invoice double charge",
		Body:      "We were billed twice for the integration work in July.",
		Requester: models.Identity{Name: "Robert Chen", Email: "r.chen@pacificores.com"},
	})
}

func confidentClassification() models.Classification {
	return models.Classification{
		Category:   models.CategoryBilling,
		Priority:   models.PriorityHigh,
		Sentiment:  models.SentimentNegative,
		Confidence: 0.91,
		Summary:    "Duplicate invoice for July integration work.",
	}
}

const goodDraft = `{
	"subject": "Re: Invoice double charge",
	"body": "Hi Robert,\n\nWe see the duplicate July invoice and are correcting it now.\n\nThe Conveyance365 Team",
	"suggested_status": "pending",
	"suggested_tags": ["billing", "ai-drafted"],
	"internal_notes": "Verify the credit memo amount before sending."
}`

func TestDraftParsesProviderOutput(t *testing.T) {
	stub := &stubGenerator{out: goodDraft}
	r := New(stub, testKnowledge(t))

	opts := Options{AutoSendThreshold: 0.85, AutoSendPermitted: true}
	draft, err := r.Draft(context.Background(), testItem(), confidentClassification(), nil, opts)
	if err != nil {
		t.Fatalf("Draft: %v", err)
	}
	if draft.Subject != "Re: Invoice double charge" {
		t.Fatalf("subject = %q", draft.Subject)
	}
	if !strings.HasSuffix(draft.Body, SignOff) {
		t.Fatalf("body does not end with sign-off: %q", draft.Body)
	}
	if draft.SuggestedStatus != models.StatusPending {
		t.Fatalf("status = %q, want pending", draft.SuggestedStatus)
	}
	if len(draft.SuggestedTags) != 2 || draft.SuggestedTags[0] != "billing" {
		t.Fatalf("tags = %v", draft.SuggestedTags)
	}
	if draft.InternalNotes == "" {
		t.Fatalf("internal notes dropped")
	}
	if draft.ID == uuid.Nil {
		t.Fatalf("draft id not assigned")
	}
	if !draft.EligibleForAutoSend {
		t.Fatalf("confidence 0.91 over threshold 0.85 should be eligible")
	}
}

func TestDraftAppendsMissingSignOff(t *testing.T) {
	stub := &stubGenerator{out: `{"subject":"Re: x","body":"Hi Robert, we are on it.","suggested_status":"pending"}`}
	r := New(stub, testKnowledge(t))

	draft, err := r.Draft(context.Background(), testItem(), confidentClassification(), nil, Options{})
	if err != nil {
		t.Fatalf("Draft: %v", err)
	}
	if !strings.HasSuffix(draft.Body, SignOff) {
		t.Fatalf("sign-off not appended: %q", draft.Body)
	}
}

func TestDraftEmptyBodyFallsBack(t *testing.T) {
	stub := &stubGenerator{out: `{"subject":"","body":"  ","suggested_status":""}`}
	r := New(stub, testKnowledge(t))

	draft, err := r.Draft(context.Background(), testItem(), confidentClassification(), nil, Options{})
	if err != nil {
		t.Fatalf("Draft: %v", err)
	}
	if !strings.Contains(draft.Body, "Hi Robert,") || !strings.HasSuffix(draft.Body, SignOff) {
		t.Fatalf("fallback body wrong: %q", draft.Body)
	}
	if draft.Subject != "Re: Invoice double charge" {
		t.Fatalf("default subject = %q", draft.Subject)
	}
	if draft.SuggestedStatus != models.StatusPending {
		t.Fatalf("default status = %q, want pending", draft.SuggestedStatus)
	}
}

func TestDraftEscalatedNeverEligible(t *testing.T) {
	stub := &stubGenerator{out: goodDraft}
	r := New(stub, testKnowledge(t))

	c := confidentClassification()
	c.Escalate = true
	c.EscalationReason = "legal threat"
	c.Confidence = 0.99

	opts := Options{AutoSendThreshold: 0.85, AutoSendPermitted: true}
	draft, err := r.Draft(context.Background(), testItem(), c, nil, opts)
	if err != nil {
		t.Fatalf("Draft: %v", err)
	}
	if draft.EligibleForAutoSend {
		t.Fatalf("escalated item must never auto-send")
	}
	if !strings.Contains(stub.lastReq.Prompt, "ESCALATION: legal threat") {
		t.Fatalf("prompt missing escalation marker: %q", stub.lastReq.Prompt)
	}
}

func TestDraftBelowThresholdNotEligible(t *testing.T) {
	stub := &stubGenerator{out: goodDraft}
	r := New(stub, testKnowledge(t))

	c := confidentClassification()
	c.Confidence = 0.6
	draft, err := r.Draft(context.Background(), testItem(), c, nil, Options{AutoSendThreshold: 0.85, AutoSendPermitted: true})
	if err != nil {
		t.Fatalf("Draft: %v", err)
	}
	if draft.EligibleForAutoSend {
		t.Fatalf("confidence 0.6 under threshold 0.85 should not be eligible")
	}
}

func TestDraftNotPermittedNotEligible(t *testing.T) {
	stub := &stubGenerator{out: goodDraft}
	r := New(stub, testKnowledge(t))

	draft, err := r.Draft(context.Background(), testItem(), confidentClassification(), nil, Options{AutoSendThreshold: 0.85, AutoSendPermitted: false})
	if err != nil {
		t.Fatalf("Draft: %v", err)
	}
	if draft.EligibleForAutoSend {
		t.Fatalf("review mode must gate eligibility regardless of confidence")
	}
}

func TestDraftPromptCarriesContext(t *testing.T) {
	stub := &stubGenerator{out: goodDraft}
	r := New(stub, testKnowledge(t))

	history := &models.CustomerHistorySummary{
		RequesterEmail: "r.chen@pacificores.com",
		TicketCount:    6,
		Summary:        "Six prior tickets, mostly billing disputes.",
		VIP:            true,
	}
	if _, err := r.Draft(context.Background(), testItem(), confidentClassification(), history, Options{}); err != nil {
		t.Fatalf("Draft: %v", err)
	}
	prompt := stub.lastReq.Prompt
	if !strings.Contains(prompt, "CUSTOMER: Robert Chen <r.chen@pacificores.com>") {
		t.Fatalf("prompt missing customer line: %q", prompt)
	}
	if !strings.Contains(prompt, "KNOWLEDGE BASE CONTEXT:") || !strings.Contains(prompt, "COMPANY OVERVIEW:") {
		t.Fatalf("prompt missing knowledge context")
	}
	if !strings.Contains(prompt, "Six prior tickets") || !strings.Contains(prompt, "VIP account") {
		t.Fatalf("prompt missing history note: %q", prompt)
	}
	if !strings.Contains(prompt, "TIME COMMITMENT:") {
		t.Fatalf("high priority should demand an SLA commitment")
	}
	if !strings.Contains(stub.lastReq.System, `"suggested_status"`) {
		t.Fatalf("system prompt missing response schema")
	}
}

func TestDraftProviderErrorKeepsCause(t *testing.T) {
	stub := &stubGenerator{err: ai.ErrRateLimited}
	r := New(stub, testKnowledge(t))

	_, err := r.Draft(context.Background(), testItem(), confidentClassification(), nil, Options{})
	if !errors.Is(err, ErrDraftFailed) {
		t.Fatalf("err = %v, want ErrDraftFailed", err)
	}
	if !errors.Is(err, ai.ErrRateLimited) {
		t.Fatalf("err = %v, want ai.ErrRateLimited preserved", err)
	}
}

func TestDraftMalformedOutputFails(t *testing.T) {
	stub := &stubGenerator{out: "Sure! Here's a friendly reply you could send."}
	r := New(stub, testKnowledge(t))

	_, err := r.Draft(context.Background(), testItem(), confidentClassification(), nil, Options{})
	if !errors.Is(err, ErrDraftFailed) {
		t.Fatalf("err = %v, want ErrDraftFailed", err)
	}
}

func TestDraftWithDemoProvider(t *testing.T) {
	r := New(ai.NewDemoClient(), testKnowledge(t))

	draft, err := r.Draft(context.Background(), testItem(), confidentClassification(), nil, Options{AutoSendThreshold: 0.85, AutoSendPermitted: true})
	if err != nil {
		t.Fatalf("Draft: %v", err)
	}
	if !strings.Contains(draft.Body, "Hi Robert,") {
		t.Fatalf("demo draft should greet by first name: %q", draft.Body)
	}
	if !strings.HasSuffix(draft.Body, SignOff) {
		t.Fatalf("demo draft missing sign-off: %q", draft.Body)
	}
	if draft.Subject != "Re: Invoice double charge" {
		t.Fatalf("demo subject = %q", draft.Subject)
	}
}
