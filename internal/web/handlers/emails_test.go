package handlers

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/simplebalance89-ai/c365-cs-agent/internal/ai"
	"github.com/simplebalance89-ai/c365-cs-agent/internal/models"
	"github.com/simplebalance89-ai/c365-cs-agent/internal/orchestrator"
)

func newMailHandler(t *testing.T) (*MailHandler, *fixture) {
	t.Helper()
	f := newFixture(t, ai.NewDemoClient())
	return NewMailHandler(f.mail, f.triage, testDefaults()), f
}

func TestHandleUnread_ListsNewestFirst(t *testing.T) {
	h, _ := newMailHandler(t)

	rr := doRequest(t, mailRouter(h), http.MethodGet, "/emails/unread", "")

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	var resp emailListResponse
	decodeResponse(t, rr, &resp)
	if resp.Count != 6 {
		t.Fatalf("expected 6 unread messages, got %d", resp.Count)
	}
	if resp.Emails[0].ID != "MSG-DEMO-001" {
		t.Errorf("expected newest message first, got %s", resp.Emails[0].ID)
	}
}

func TestHandleUnread_HonorsTop(t *testing.T) {
	h, _ := newMailHandler(t)

	rr := doRequest(t, mailRouter(h), http.MethodGet, "/emails/unread?top=2", "")

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	var resp emailListResponse
	decodeResponse(t, rr, &resp)
	if resp.Count != 2 {
		t.Errorf("expected 2 messages, got %d", resp.Count)
	}
}

func TestHandleUnread_RejectsOutOfRangeTop(t *testing.T) {
	h, _ := newMailHandler(t)

	rr := doRequest(t, mailRouter(h), http.MethodGet, "/emails/unread?top=100", "")
	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected status 400 for top=100, got %d", rr.Code)
	}

	rr = doRequest(t, mailRouter(h), http.MethodGet, "/emails/unread?top=0", "")
	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected status 400 for top=0, got %d", rr.Code)
	}
}

func TestHandleGetEmail_ReturnsMessage(t *testing.T) {
	h, _ := newMailHandler(t)

	rr := doRequest(t, mailRouter(h), http.MethodGet, "/emails/MSG-DEMO-003", "")

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	var email models.Email
	decodeResponse(t, rr, &email)
	if email.Sender.Email != "priya@tektonparts.com" {
		t.Errorf("unexpected sender: %q", email.Sender.Email)
	}
}

func TestHandleGetEmail_Unknown(t *testing.T) {
	h, _ := newMailHandler(t)

	rr := doRequest(t, mailRouter(h), http.MethodGet, "/emails/MSG-NOPE", "")

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rr.Code)
	}
}

func TestHandleProcess_MatchesExistingTicket(t *testing.T) {
	h, f := newMailHandler(t)

	rr := doRequest(t, mailRouter(h), http.MethodPost, "/emails/MSG-DEMO-001/process", "")

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	var result orchestrator.EmailResult
	decodeResponse(t, rr, &result)
	if result.TicketCreated {
		t.Error("expected a match, not a new ticket")
	}
	if result.Ticket == nil || result.Ticket.ID != 40112 {
		t.Fatalf("expected ticket 40112, got %+v", result.Ticket)
	}
	if result.State != orchestrator.StateAwaitingReview {
		t.Errorf("expected awaiting_review without auto_reply, got %q", result.State)
	}

	if sent := f.mail.Sent(); len(sent) != 0 {
		t.Errorf("review mode must not send mail, sent %d", len(sent))
	}
	email, err := f.mail.GetMessage(context.Background(), "MSG-DEMO-001")
	if err != nil {
		t.Fatalf("GetMessage: %v", err)
	}
	if !email.Unread {
		t.Error("message must stay unread until a human sends the draft")
	}
}

func TestHandleProcess_AutoReplies(t *testing.T) {
	h, f := newMailHandler(t)

	rr := doRequest(t, mailRouter(h), http.MethodPost, "/emails/MSG-DEMO-001/process", `{"auto_reply": true}`)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	var result orchestrator.EmailResult
	decodeResponse(t, rr, &result)
	if result.State != orchestrator.StateAutoSent {
		t.Fatalf("expected auto_sent, got %q (warning: %s)", result.State, result.Warning)
	}

	sent := f.mail.Sent()
	if len(sent) != 1 || sent[0].MessageID != "MSG-DEMO-001" {
		t.Fatalf("expected one reply on MSG-DEMO-001, got %+v", sent)
	}
	email, err := f.mail.GetMessage(context.Background(), "MSG-DEMO-001")
	if err != nil {
		t.Fatalf("GetMessage: %v", err)
	}
	if email.Unread {
		t.Error("expected the message marked read after auto-reply")
	}
}

func TestHandleProcess_UnknownMessage(t *testing.T) {
	h, _ := newMailHandler(t)

	rr := doRequest(t, mailRouter(h), http.MethodPost, "/emails/MSG-NOPE/process", "")

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rr.Code)
	}
}

func TestHandleSendEmail_SendsAndMarksRead(t *testing.T) {
	h, f := newMailHandler(t)

	body := `{"body": "We cleared the cached gateway token on our side. Please retry the 856 feed and confirm."}`
	rr := doRequest(t, mailRouter(h), http.MethodPost, "/emails/MSG-DEMO-002/send", body)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	var resp sendResponse
	decodeResponse(t, rr, &resp)
	if !resp.OK || resp.MessageID != "MSG-DEMO-002" {
		t.Errorf("unexpected response: %+v", resp)
	}

	sent := f.mail.Sent()
	if len(sent) != 1 {
		t.Fatalf("expected one sent reply, got %d", len(sent))
	}
	if sent[0].Subject != "Re: EDI 856 ASN sync still down" {
		t.Errorf("expected reply subject derived from the original, got %q", sent[0].Subject)
	}
	if !strings.Contains(sent[0].Body, "cached gateway token") {
		t.Errorf("unexpected reply body: %q", sent[0].Body)
	}

	email, err := f.mail.GetMessage(context.Background(), "MSG-DEMO-002")
	if err != nil {
		t.Fatalf("GetMessage: %v", err)
	}
	if email.Unread {
		t.Error("expected the message marked read after send")
	}
}

func TestHandleSendEmail_KeepsExplicitSubject(t *testing.T) {
	h, f := newMailHandler(t)

	rr := doRequest(t, mailRouter(h), http.MethodPost, "/emails/MSG-DEMO-002/send", `{"subject": "Token reset complete", "body": "Done."}`)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	sent := f.mail.Sent()
	if len(sent) != 1 || sent[0].Subject != "Token reset complete" {
		t.Errorf("expected explicit subject kept, got %+v", sent)
	}
}

func TestHandleSendEmail_RequiresBody(t *testing.T) {
	h, _ := newMailHandler(t)

	rr := doRequest(t, mailRouter(h), http.MethodPost, "/emails/MSG-DEMO-002/send", `{"subject": "hi"}`)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
	resp := parseJSONResponse(t, rr)
	if resp.Error != "body is required" {
		t.Errorf("unexpected error: %s", resp.Error)
	}
}

func TestHandleSendEmail_UnknownMessage(t *testing.T) {
	h, _ := newMailHandler(t)

	rr := doRequest(t, mailRouter(h), http.MethodPost, "/emails/MSG-NOPE/send", `{"body": "hello"}`)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rr.Code)
	}
}
