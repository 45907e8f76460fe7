package ticketing

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/simplebalance89-ai/c365-cs-agent/internal/models"
)

// DemoClient serves a fixed, realistic ticket set from memory so the full
// pipeline runs without Zendesk credentials. Writes mutate the in-memory set,
// which makes auto-send round trips visible across requests.
type DemoClient struct {
	mu      sync.Mutex
	tickets map[int64]*models.Ticket
	nextID  int64
}

func NewDemoClient() *DemoClient {
	now := time.Now().UTC()
	d := &DemoClient{
		tickets: make(map[int64]*models.Ticket),
		nextID:  50001,
	}
	for _, t := range demoTickets(now) {
		ticket := t
		d.tickets[ticket.ID] = &ticket
	}
	return d
}

func demoTickets(now time.Time) []models.Ticket {
	maria := models.Identity{Name: "Maria Gonzalez", Email: "maria.gonzalez@acmedist.com"}
	james := models.Identity{Name: "James Whitfield", Email: "j.whitfield@northstarlogistics.com"}
	priya := models.Identity{Name: "Priya Sharma", Email: "priya@tektonparts.com"}
	robert := models.Identity{Name: "Robert Chen", Email: "rchen@precisionmfg.com"}
	angela := models.Identity{Name: "Angela Torres", Email: "angela.torres@summitsupply.com"}
	kevin := models.Identity{Name: "Kevin Draper", Email: "kdraper@greatlakesind.com"}

	return []models.Ticket{
		{
			ID:      40112,
			Subject: "P21 report not generating",
			Body: "We're trying to run the Inventory Valuation report in P21 and it hangs " +
				"at 80% then times out. Started happening after last weekend's server patch. " +
				"Urgent. Month-end close depends on this.",
			Requester: maria,
			Status:    models.StatusOpen,
			Priority:  models.PriorityUrgent,
			Tags:      []string{"p21", "reporting", "month-end"},
			CreatedAt: now.Add(-6 * time.Hour),
			UpdatedAt: now.Add(-2 * time.Hour),
			Conversation: []models.Message{
				{
					Author:    maria.Name,
					Role:      models.RoleCustomer,
					Body:      "We're trying to run the Inventory Valuation report in P21 and it hangs at 80% then times out.",
					Timestamp: now.Add(-6 * time.Hour),
				},
				{
					Author: "Support Agent",
					Role:   models.RoleAgent,
					Body: "Hi Maria, we're looking into the report timeout now. Can you confirm which P21 " +
						"version you're on? Also, was any SQL maintenance run over the weekend?",
					Timestamp: now.Add(-4 * time.Hour),
				},
			},
		},
		{
			ID:      40098,
			Subject: "Integration sync failing. EDI 856 ASN",
			Body: "Our EDI 856 ASN documents are not syncing to P21 since Tuesday. The middleware " +
				"log shows a 401 from the API gateway. We re-entered the credentials but it keeps " +
				"failing. 14 shipments stuck.",
			Requester: james,
			Status:    models.StatusOpen,
			Priority:  models.PriorityHigh,
			Tags:      []string{"edi", "integration", "p21", "edi-856"},
			CreatedAt: now.Add(-3 * 24 * time.Hour),
			UpdatedAt: now.Add(-8 * time.Hour),
			Conversation: []models.Message{
				{
					Author:    james.Name,
					Role:      models.RoleCustomer,
					Body:      "EDI 856 sync broken since Tuesday. 401 on API gateway.",
					Timestamp: now.Add(-3 * 24 * time.Hour),
				},
			},
		},
		{
			ID:      40087,
			Subject: "Need help with AI agent configuration",
			Body: "We want to enable the auto-classification feature on our CS agent but the " +
				"'AI Settings' tab is greyed out. We are on the Professional plan. Can someone " +
				"walk us through the setup?",
			Requester: priya,
			Status:    models.StatusPending,
			Priority:  models.PriorityNormal,
			Tags:      []string{"ai-agent", "configuration", "onboarding"},
			CreatedAt: now.Add(-5 * 24 * time.Hour),
			UpdatedAt: now.Add(-24 * time.Hour),
		},
		{
			ID:      40071,
			Subject: "Invoice discrepancy Q4. PO 7892",
			Body: "Invoice #INV-2026-0412 doesn't match PO 7892. The PO shows 480 units at $12.50 " +
				"but the invoice billed 480 units at $13.75. Difference is $600. Need a revised " +
				"invoice or credit memo.",
			Requester: robert,
			Status:    models.StatusOpen,
			Priority:  models.PriorityHigh,
			Tags:      []string{"billing", "invoice", "po-mismatch"},
			CreatedAt: now.Add(-8 * 24 * time.Hour),
			UpdatedAt: now.Add(-2 * 24 * time.Hour),
		},
		{
			ID:      40063,
			Subject: "Data migration status update",
			Body: "Checking in on the status of our data migration from legacy on-prem to the " +
				"hosted environment. Last update was two weeks ago and we're targeting a " +
				"March 15 go-live. Please advise.",
			Requester: angela,
			Status:    models.StatusPending,
			Priority:  models.PriorityNormal,
			Tags:      []string{"migration", "onboarding", "follow-up"},
			CreatedAt: now.Add(-14 * 24 * time.Hour),
			UpdatedAt: now.Add(-3 * 24 * time.Hour),
		},
		{
			ID:      40045,
			Subject: "Warehouse label printer not pulling item data",
			Body: "The Zebra ZD421 on Pick Station 3 prints blank labels. It was working fine " +
				"until the P21 update last Friday. The other two stations are fine. We've " +
				"restarted the print spooler twice.",
			Requester: kevin,
			Status:    models.StatusSolved,
			Priority:  models.PriorityNormal,
			Tags:      []string{"warehouse", "printing", "p21"},
			CreatedAt: now.Add(-18 * 24 * time.Hour),
			UpdatedAt: now.Add(-10 * 24 * time.Hour),
		},
		{
			ID:      40029,
			Subject: "SSO login loop after Azure AD update",
			Body: "After our Azure AD tenant update, users hit a redirect loop when trying to " +
				"SSO into the client portal. Clearing cookies doesn't fix it. Affects all " +
				"Chrome users, Edge works fine.",
			Requester: james,
			Status:    models.StatusClosed,
			Priority:  models.PriorityHigh,
			Tags:      []string{"sso", "azure-ad", "authentication"},
			CreatedAt: now.Add(-25 * 24 * time.Hour),
			UpdatedAt: now.Add(-20 * 24 * time.Hour),
		},
	}
}

func (d *DemoClient) GetTicket(ctx context.Context, id int64) (*models.Ticket, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	ticket, ok := d.tickets[id]
	if !ok {
		return nil, fmt.Errorf("demo ticket %d: %w", id, ErrNotFound)
	}
	return copyTicket(ticket), nil
}

func (d *DemoClient) ListTickets(ctx context.Context, filter ListFilter) ([]models.Ticket, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var tickets []models.Ticket
	for _, t := range d.tickets {
		if filter.Status != "" && t.Status != filter.Status {
			continue
		}
		tickets = append(tickets, *copyTicket(t))
	}
	sortByUpdated(tickets)
	return tickets, nil
}

func (d *DemoClient) SearchTickets(ctx context.Context, query string) ([]models.Ticket, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	d.mu.Lock()
	defer d.mu.Unlock()
	var tickets []models.Ticket
	for _, t := range d.tickets {
		if q == "" || matchesQuery(t, q) {
			tickets = append(tickets, *copyTicket(t))
		}
	}
	sortByUpdated(tickets)
	return tickets, nil
}

func matchesQuery(t *models.Ticket, q string) bool {
	if strings.Contains(strings.ToLower(t.Subject), q) || strings.Contains(strings.ToLower(t.Body), q) {
		return true
	}
	for _, tag := range t.Tags {
		if strings.Contains(strings.ToLower(tag), q) {
			return true
		}
	}
	return false
}

func (d *DemoClient) TicketsByRequester(ctx context.Context, email string) ([]models.Ticket, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var tickets []models.Ticket
	for _, t := range d.tickets {
		if strings.EqualFold(t.Requester.Email, email) {
			tickets = append(tickets, *copyTicket(t))
		}
	}
	sortByUpdated(tickets)
	return tickets, nil
}

func (d *DemoClient) CreateTicket(ctx context.Context, params models.TicketCreateParams) (*models.Ticket, error) {
	now := time.Now().UTC()
	tags := params.Tags
	if len(tags) == 0 {
		tags = []string{"ai-created", "email-inbound"}
	}
	priority := params.Priority
	if priority == "" {
		priority = models.PriorityNormal
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	ticket := &models.Ticket{
		ID:        d.nextID,
		Subject:   params.Subject,
		Body:      params.Body,
		Requester: params.Requester,
		Status:    models.StatusOpen,
		Priority:  priority,
		Tags:      tags,
		CreatedAt: now,
		UpdatedAt: now,
		Conversation: []models.Message{{
			Author:    params.Requester.Name,
			Role:      models.RoleCustomer,
			Body:      params.Body,
			Timestamp: now,
		}},
	}
	d.nextID++
	d.tickets[ticket.ID] = ticket
	return copyTicket(ticket), nil
}

func (d *DemoClient) AddComment(ctx context.Context, id int64, body string, public bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	ticket, ok := d.tickets[id]
	if !ok {
		return fmt.Errorf("demo ticket %d: %w", id, ErrNotFound)
	}
	now := time.Now().UTC()
	ticket.Conversation = append(ticket.Conversation, models.Message{
		Author:    "C365 Agent",
		Role:      models.RoleAI,
		Body:      body,
		Timestamp: now,
	})
	if public {
		ticket.Status = models.StatusPending
	} else {
		ticket.Status = models.StatusOpen
	}
	ticket.UpdatedAt = now
	return nil
}

func (d *DemoClient) UpdateTicket(ctx context.Context, id int64, update models.TicketUpdate) (*models.Ticket, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	ticket, ok := d.tickets[id]
	if !ok {
		return nil, fmt.Errorf("demo ticket %d: %w", id, ErrNotFound)
	}
	now := time.Now().UTC()
	if update.Status != "" {
		ticket.Status = update.Status
	}
	if update.Priority != "" {
		ticket.Priority = update.Priority
	}
	if len(update.Tags) > 0 {
		ticket.Tags = append(ticket.Tags, update.Tags...)
	}
	if strings.TrimSpace(update.Comment) != "" {
		role := models.RoleAgent
		author := "Support Agent"
		if !update.PublicComment {
			author = "Internal Note"
		}
		ticket.Conversation = append(ticket.Conversation, models.Message{
			Author:    author,
			Role:      role,
			Body:      update.Comment,
			Timestamp: now,
		})
	}
	ticket.UpdatedAt = now
	return copyTicket(ticket), nil
}

func (d *DemoClient) CheckConnection(ctx context.Context) error { return nil }

func copyTicket(t *models.Ticket) *models.Ticket {
	clone := *t
	clone.Tags = append([]string(nil), t.Tags...)
	clone.Conversation = append([]models.Message(nil), t.Conversation...)
	return &clone
}

func sortByUpdated(tickets []models.Ticket) {
	sort.Slice(tickets, func(i, j int) bool {
		return tickets[i].UpdatedAt.After(tickets[j].UpdatedAt)
	})
}
