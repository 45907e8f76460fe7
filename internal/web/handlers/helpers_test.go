package handlers

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/simplebalance89-ai/c365-cs-agent/internal/ai"
	"github.com/simplebalance89-ai/c365-cs-agent/internal/classifier"
	"github.com/simplebalance89-ai/c365-cs-agent/internal/history"
	"github.com/simplebalance89-ai/c365-cs-agent/internal/kb"
	"github.com/simplebalance89-ai/c365-cs-agent/internal/mailbox"
	"github.com/simplebalance89-ai/c365-cs-agent/internal/orchestrator"
	"github.com/simplebalance89-ai/c365-cs-agent/internal/responder"
	"github.com/simplebalance89-ai/c365-cs-agent/internal/ticketing"
)

// --- Shared pipeline fixture over the demo clients ---

type fixture struct {
	tickets  *ticketing.DemoClient
	mail     *mailbox.DemoClient
	classify *classifier.Classifier
	respond  *responder.Responder
	triage   *orchestrator.Orchestrator
}

func newFixture(t *testing.T, client ai.Client) *fixture {
	t.Helper()

	knowledge, err := kb.Load()
	if err != nil {
		t.Fatalf("load knowledge base: %v", err)
	}

	tickets := ticketing.NewDemoClient()
	mail := mailbox.NewDemoClient()
	classify := classifier.New(client, knowledge)
	respond := responder.New(client, knowledge)

	triage := orchestrator.New(orchestrator.Config{
		Tickets:        tickets,
		Mail:           mail,
		Classifier:     classify,
		Responder:      respond,
		History:        history.New(tickets, client, quietLogger()),
		Logger:         quietLogger(),
		Retry:          orchestrator.RetryPolicy{MaxAttempts: 2, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond},
		ServiceAddress: "support@conveyance365.com",
	})

	return &fixture{
		tickets:  tickets,
		mail:     mail,
		classify: classify,
		respond:  respond,
		triage:   triage,
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testDefaults() TriageDefaults {
	return TriageDefaults{AutoSendThreshold: 0.85, AutoSendPermitted: true}
}

// --- Routing helpers; routes mirror the service router ---

func ticketRouter(h *TicketHandler) *chi.Mux {
	r := chi.NewRouter()
	r.Route("/tickets", func(r chi.Router) {
		r.Get("/", h.HandleList)
		r.Get("/search", h.HandleSearch)
		r.Get("/{ticketID}", h.HandleGet)
		r.Post("/{ticketID}/classify", h.HandleClassify)
		r.Post("/{ticketID}/respond", h.HandleRespond)
		r.Put("/{ticketID}/update", h.HandleUpdate)
	})
	return r
}

func mailRouter(h *MailHandler) *chi.Mux {
	r := chi.NewRouter()
	r.Route("/emails", func(r chi.Router) {
		r.Get("/unread", h.HandleUnread)
		r.Get("/{messageID}", h.HandleGet)
		r.Post("/{messageID}/process", h.HandleProcess)
		r.Post("/{messageID}/send", h.HandleSend)
	})
	return r
}

func customerRouter(h *CustomerHandler) *chi.Mux {
	r := chi.NewRouter()
	r.Get("/customers/{email}/history", h.HandleHistory)
	return r
}

func doRequest(t *testing.T, handler http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func decodeResponse(t *testing.T, rr *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(dst); err != nil {
		t.Fatalf("failed to parse JSON response: %v", err)
	}
}

func parseJSONResponse(t *testing.T, rr *httptest.ResponseRecorder) jsonResponse {
	t.Helper()
	var resp jsonResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to parse JSON response: %v", err)
	}
	return resp
}
