package handlers

import (
	"net/http"
	"testing"

	"github.com/simplebalance89-ai/c365-cs-agent/internal/ai"
	"github.com/simplebalance89-ai/c365-cs-agent/internal/models"
)

func newCustomerHandler(t *testing.T) *CustomerHandler {
	t.Helper()
	f := newFixture(t, ai.NewDemoClient())
	return NewCustomerHandler(f.triage)
}

func TestHandleHistory_KnownCustomer(t *testing.T) {
	h := newCustomerHandler(t)

	rr := doRequest(t, customerRouter(h), http.MethodGet, "/customers/maria.gonzalez@acmedist.com/history", "")

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	var summary models.CustomerHistorySummary
	decodeResponse(t, rr, &summary)
	if summary.TicketCount != 1 || summary.OpenTickets != 1 {
		t.Errorf("expected 1 ticket, 1 open, got %d/%d", summary.TicketCount, summary.OpenTickets)
	}
	if summary.Summary == "" {
		t.Error("expected a narrative summary")
	}
	if summary.RequesterEmail != "maria.gonzalez@acmedist.com" {
		t.Errorf("unexpected requester email: %q", summary.RequesterEmail)
	}
}

func TestHandleHistory_UnknownCustomerIsZeroSummary(t *testing.T) {
	h := newCustomerHandler(t)

	rr := doRequest(t, customerRouter(h), http.MethodGet, "/customers/ghost@nowhere.example/history", "")

	if rr.Code != http.StatusOK {
		t.Fatalf("unknown customers are a valid empty history, got status %d", rr.Code)
	}
	var summary models.CustomerHistorySummary
	decodeResponse(t, rr, &summary)
	if summary.TicketCount != 0 {
		t.Errorf("expected zero tickets, got %d", summary.TicketCount)
	}
	if summary.VIP {
		t.Error("unknown customer cannot be VIP")
	}
}

func TestHandleHistory_RejectsInvalidEmail(t *testing.T) {
	h := newCustomerHandler(t)

	rr := doRequest(t, customerRouter(h), http.MethodGet, "/customers/not-an-email/history", "")

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
}
