package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/simplebalance89-ai/c365-cs-agent/internal/classifier"
	"github.com/simplebalance89-ai/c365-cs-agent/internal/models"
	"github.com/simplebalance89-ai/c365-cs-agent/internal/responder"
)

// DemoHandler runs classification and drafting over fixture data so the
// pipeline can be shown off without ticketing or mailbox credentials.
type DemoHandler struct {
	classify *classifier.Classifier
	respond  *responder.Responder
	defaults TriageDefaults
}

// NewDemoHandler creates a new DemoHandler.
func NewDemoHandler(classify *classifier.Classifier, respond *responder.Responder, defaults TriageDefaults) *DemoHandler {
	return &DemoHandler{
		classify: classify,
		respond:  respond,
		defaults: defaults,
	}
}

type demoResponse struct {
	Ticket            models.Ticket         `json:"demo_ticket"`
	Classification    models.Classification `json:"classification"`
	SuggestedResponse models.ResponseDraft  `json:"suggested_response"`
	Email             models.Email          `json:"demo_email"`
	EmailDraft        models.ResponseDraft  `json:"email_draft"`
	Message           string                `json:"message"`
}

type demoResults struct {
	classification models.Classification
	suggested      models.ResponseDraft
	emailDraft     models.ResponseDraft
}

// HandleDemo triages a fixture ticket and a fixture email. When generation
// fails, canned results stand in so the endpoint always has something to
// show.
func (h *DemoHandler) HandleDemo(w http.ResponseWriter, r *http.Request) {
	ticket := demoTicket()
	email := demoEmail()

	resp := demoResponse{Ticket: ticket, Email: email}

	results, err := h.liveResults(r.Context(), ticket, email)
	if err != nil {
		slog.Warn("generation unavailable for demo, serving canned results", "error", err)
		results = cannedDemoResults()
		resp.Message = "Demo running on canned results. Configure a generation API key for live output."
	} else {
		resp.Message = "Live demo. Classification and drafts generated against the Conveyance365 knowledge base."
	}

	resp.Classification = results.classification
	resp.SuggestedResponse = results.suggested
	resp.EmailDraft = results.emailDraft
	writeJSON(w, http.StatusOK, resp)
}

func (h *DemoHandler) liveResults(ctx context.Context, ticket models.Ticket, email models.Email) (demoResults, error) {
	var out demoResults
	opts := responder.Options{
		AutoSendThreshold: h.defaults.AutoSendThreshold,
		AutoSendPermitted: h.defaults.AutoSendPermitted,
	}

	ticketItem := models.TicketItem(&ticket)
	classification, err := h.classify.Classify(ctx, ticketItem)
	if err != nil {
		return out, err
	}
	out.classification = classification

	out.suggested, err = h.respond.Draft(ctx, ticketItem, classification, nil, opts)
	if err != nil {
		return out, err
	}

	emailItem := models.EmailItem(&email, nil)
	emailClass, err := h.classify.Classify(ctx, emailItem)
	if err != nil {
		return out, err
	}
	out.emailDraft, err = h.respond.Draft(ctx, emailItem, emailClass, nil, opts)
	if err != nil {
		return out, err
	}
	return out, nil
}

func demoTicket() models.Ticket {
	now := time.Now().UTC()
	return models.Ticket{
		ID:      10042,
		Subject: "Incorrect charge on my November invoice",
		Body: "Hi,\n\n" +
			"I just received my November invoice and there's a charge of $2,350 " +
			"but my agreement clearly states $1,500/month for our ERP support engagement. " +
			"This is the SECOND time this has happened. I'm extremely frustrated. " +
			"If this isn't resolved by end of week, I'll be looking at other options. " +
			"I have a signed service agreement I can forward.\n\n" +
			"- Marcus Chen\n  TechVentures Inc.",
		Requester: models.Identity{Name: "Marcus Chen", Email: "marcus.chen@techventures.io"},
		Priority:  models.PriorityNormal,
		Status:    models.StatusOpen,
		Tags:      []string{"billing", "overcharge"},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func demoEmail() models.Email {
	return models.Email{
		ID:      "demo-msg-001",
		Sender:  models.Identity{Name: "Sarah Park", Email: "s.park@designstudio.co"},
		Subject: "ERP integration inquiry for P21 to Salesforce",
		Body: "Hi,\n\n" +
			"We're evaluating ERP consulting partners for a P21 to Salesforce integration. " +
			"Do you offer a discovery session before scoping the project? Also, do you " +
			"have experience with automated data syncs between the two platforms?\n\n" +
			"Thanks,\nSarah",
		Unread:     true,
		ReceivedAt: time.Now().UTC(),
	}
}

func cannedDemoResults() demoResults {
	now := time.Now().UTC()

	classification := models.Classification{
		Priority:         models.PriorityHigh,
		Category:         models.CategoryBilling,
		Sentiment:        models.SentimentNegative,
		Escalate:         true,
		EscalationReason: "Repeat billing error with churn-risk language",
		Confidence:       0.95,
		Summary:          "Customer reports an $850 overcharge on the November invoice, the second occurrence, and is threatening to leave.",
		GeneratedAt:      now,
	}

	suggested := models.ResponseDraft{
		ID:      uuid.New(),
		Subject: "Re: Incorrect charge on my November invoice",
		Body: "Hi Marcus,\n\n" +
			"Thank you for bringing this to our attention. I sincerely apologize for the " +
			"billing discrepancy. This should not have happened, especially a second time. " +
			"I've flagged your account for immediate review and our billing team will issue " +
			"a credit for the $850 overcharge within 24 hours. I'll follow up personally to " +
			"make sure this is resolved.\n\nBest regards,\n" + responder.SignOff,
		SuggestedStatus:     models.StatusPending,
		SuggestedTags:       []string{"billing", "overcharge"},
		Classification:      classification,
		EligibleForAutoSend: false,
		GeneratedAt:         now,
	}

	emailClass := models.Classification{
		Priority:    models.PriorityNormal,
		Category:    models.CategoryOrders,
		Sentiment:   models.SentimentNeutral,
		Confidence:  0.88,
		Summary:     "Prospect asks about discovery sessions and P21 to Salesforce integration experience.",
		GeneratedAt: now,
	}

	emailDraft := models.ResponseDraft{
		ID:      uuid.New(),
		Subject: "Re: ERP integration inquiry for P21 to Salesforce",
		Body: "Hi Sarah,\n\n" +
			"Thanks for reaching out. Yes, we offer a discovery session before scoping " +
			"every engagement, and we have deep experience with P21 to Salesforce " +
			"integrations, including automated data syncs between the two platforms. " +
			"Would a 30 minute discovery call this week work for you?\n\n" +
			"Best regards,\n" + responder.SignOff,
		SuggestedStatus:     models.StatusOpen,
		Classification:      emailClass,
		EligibleForAutoSend: false,
		GeneratedAt:         now,
	}

	return demoResults{classification: classification, suggested: suggested, emailDraft: emailDraft}
}
