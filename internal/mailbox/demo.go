package mailbox

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/simplebalance89-ai/c365-cs-agent/internal/models"
)

// SentRecord captures an outbound reply in demo mode.
type SentRecord struct {
	MessageID string
	Subject   string
	Body      string
	At        time.Time
}

// DemoClient serves a fixed inbox from memory. Replies and read flags are
// recorded so a demo run behaves like a real mailbox across requests.
type DemoClient struct {
	mu     sync.Mutex
	emails map[string]*models.Email
	sent   []SentRecord
}

func NewDemoClient() *DemoClient {
	d := &DemoClient{emails: make(map[string]*models.Email)}
	for _, e := range demoEmails(time.Now().UTC()) {
		email := e
		d.emails[email.ID] = &email
	}
	return d
}

func demoEmails(now time.Time) []models.Email {
	return []models.Email{
		{
			ID:      "MSG-DEMO-001",
			Subject: "RE: P21 Inventory Valuation report timeout",
			Sender:  models.Identity{Name: "Maria Gonzalez", Email: "maria.gonzalez@acmedist.com"},
			Body: "Hi team,\n\nFollowing up on ticket #40112. The report is still timing out after " +
				"the server patch. We tried increasing the SQL timeout to 600 seconds but no change. " +
				"Month-end close is Friday.\n\nCan we get a call scheduled today?\n\nThanks,\nMaria",
			Unread:     true,
			ThreadID:   "THREAD-DEMO-001",
			ReceivedAt: now.Add(-2 * time.Hour),
		},
		{
			ID:      "MSG-DEMO-002",
			Subject: "EDI 856 ASN sync still down",
			Sender:  models.Identity{Name: "James Whitfield", Email: "j.whitfield@northstarlogistics.com"},
			Body: "Support,\n\nThis is day 4 of the EDI 856 sync failure. We now have 22 shipments " +
				"that haven't posted to P21. Our warehouse team is doing manual entry which is " +
				"error-prone and slow.\n\nThe middleware log shows:\n  ERROR 401 Unauthorized - POST " +
				"/api/v1/edi/inbound\n  Token refresh failed: invalid_client\n\nWe regenerated the " +
				"client secret yesterday but same result. Is there a cached token somewhere that " +
				"needs to be cleared?\n\nJames Whitfield\nNorthStar Logistics",
			Unread:     true,
			ThreadID:   "THREAD-DEMO-002",
			ReceivedAt: now.Add(-5 * time.Hour),
		},
		{
			ID:      "MSG-DEMO-003",
			Subject: "Question about AI agent auto-classification setup",
			Sender:  models.Identity{Name: "Priya Sharma", Email: "priya@tektonparts.com"},
			Body: "Hello,\n\nWe're on the Professional plan and want to enable the AI " +
				"auto-classification feature. The settings tab appears greyed out in our admin " +
				"panel. Is there an additional license needed or a feature flag we need to " +
				"request?\n\nAppreciate the help.\n\nBest,\nPriya Sharma\nTekton Parts Inc.",
			Unread:     true,
			ThreadID:   "THREAD-DEMO-003",
			ReceivedAt: now.Add(-12 * time.Hour),
		},
		{
			ID:      "MSG-DEMO-004",
			Subject: "Invoice mismatch PO 7892 vs INV-2026-0412",
			Sender:  models.Identity{Name: "Robert Chen", Email: "rchen@precisionmfg.com"},
			Body: "Hi Billing,\n\nPO 7892 was for 480 units at $12.50/unit ($6,000 total). Invoice " +
				"INV-2026-0412 shows 480 units at $13.75/unit ($6,600). That's a $600 " +
				"discrepancy.\n\nI've attached a screenshot of both documents. Please issue a credit " +
				"memo or revised invoice ASAP so we can process payment.\n\nRobert Chen\nPrecision Manufacturing",
			Unread:     true,
			ThreadID:   "THREAD-DEMO-004",
			ReceivedAt: now.Add(-24 * time.Hour),
		},
		{
			ID:      "MSG-DEMO-005",
			Subject: "RE: Data migration go-live timeline check",
			Sender:  models.Identity{Name: "Angela Torres", Email: "angela.torres@summitsupply.com"},
			Body: "Peter,\n\nJust checking in on the migration status. Our go-live target is March 15 " +
				"and we haven't received an update in two weeks. Can you share:\n  1. Current " +
				"migration completion percentage\n  2. Any blockers\n  3. Revised timeline if " +
				"needed\n\nWe have a board meeting March 10 and need to report status.\n\nThanks,\n" +
				"Angela Torres\nSummit Supply Co.",
			Unread:     true,
			ThreadID:   "THREAD-DEMO-005",
			ReceivedAt: now.Add(-2 * 24 * time.Hour),
		},
		{
			ID:      "MSG-DEMO-006",
			Subject: "New user provisioning request for 3 users",
			Sender:  models.Identity{Name: "Kevin Draper", Email: "kdraper@greatlakesind.com"},
			Body: "Hi Support,\n\nWe need three new users provisioned in the C365 portal:\n\n  1. " +
				"Sarah Mitchell - sarah.m@greatlakesind.com - Warehouse role\n  2. Tom Alvarez - " +
				"tom.a@greatlakesind.com - Purchasing role\n  3. Diana Reyes - " +
				"diana.r@greatlakesind.com - Admin role\n\nAll three should have SSO enabled via our " +
				"Azure AD tenant.\n\nThanks,\nKevin Draper\nGreat Lakes Industries",
			Unread:     true,
			ThreadID:   "THREAD-DEMO-006",
			ReceivedAt: now.Add(-3 * 24 * time.Hour),
		},
		{
			ID:      "MSG-DEMO-007",
			Subject: "RE: Warehouse label printer issue resolved",
			Sender:  models.Identity{Name: "Kevin Draper", Email: "kdraper@greatlakesind.com"},
			Body: "Hey team,\n\nJust wanted to confirm the label printer issue on Pick Station 3 is " +
				"resolved. The fix from your Tier 2 team (updating the ODBC driver) worked. All " +
				"three stations printing correctly now.\n\nThanks for the quick turnaround.\n\nKevin",
			Unread:     false,
			ThreadID:   "THREAD-DEMO-007",
			ReceivedAt: now.Add(-10 * 24 * time.Hour),
		},
	}
}

func (d *DemoClient) ListUnread(ctx context.Context, limit int) ([]models.Email, error) {
	if limit <= 0 {
		limit = 20
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	var unread []models.Email
	for _, e := range d.emails {
		if e.Unread {
			unread = append(unread, *e)
		}
	}
	sort.Slice(unread, func(i, j int) bool {
		return unread[i].ReceivedAt.After(unread[j].ReceivedAt)
	})
	if len(unread) > limit {
		unread = unread[:limit]
	}
	return unread, nil
}

func (d *DemoClient) GetMessage(ctx context.Context, id string) (*models.Email, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	email, ok := d.emails[id]
	if !ok {
		return nil, fmt.Errorf("demo message %s: %w", id, ErrNotFound)
	}
	clone := *email
	return &clone, nil
}

func (d *DemoClient) ThreadMessages(ctx context.Context, threadID string) ([]models.Email, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var thread []models.Email
	for _, e := range d.emails {
		if e.ThreadID == threadID {
			thread = append(thread, *e)
		}
	}
	sort.Slice(thread, func(i, j int) bool {
		return thread[i].ReceivedAt.Before(thread[j].ReceivedAt)
	})
	return thread, nil
}

func (d *DemoClient) SendReply(ctx context.Context, messageID, subject, body string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.emails[messageID]; !ok {
		return fmt.Errorf("demo message %s: %w", messageID, ErrNotFound)
	}
	d.sent = append(d.sent, SentRecord{
		MessageID: messageID,
		Subject:   subject,
		Body:      body,
		At:        time.Now().UTC(),
	})
	return nil
}

func (d *DemoClient) MarkRead(ctx context.Context, messageID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	email, ok := d.emails[messageID]
	if !ok {
		return fmt.Errorf("demo message %s: %w", messageID, ErrNotFound)
	}
	email.Unread = false
	return nil
}

func (d *DemoClient) CheckConnection(ctx context.Context) error { return nil }

// Sent returns the replies recorded so far.
func (d *DemoClient) Sent() []SentRecord {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]SentRecord(nil), d.sent...)
}
