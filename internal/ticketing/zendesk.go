package ticketing

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/simplebalance89-ai/c365-cs-agent/internal/models"
)

const defaultZendeskTimeout = 30 * time.Second

// ZendeskConfig configures the live ticketing client. BaseURL overrides the
// subdomain-derived endpoint when set.
type ZendeskConfig struct {
	Subdomain string
	Email     string
	APIToken  string
	BaseURL   string
	Timeout   time.Duration
}

// ZendeskClient implements Client against the Zendesk v2 REST API using
// email/token Basic auth.
type ZendeskClient struct {
	httpClient *http.Client
	baseURL    string
	authHeader string
}

func NewZendeskClient(cfg ZendeskConfig) (*ZendeskClient, error) {
	if strings.TrimSpace(cfg.APIToken) == "" || strings.TrimSpace(cfg.Email) == "" {
		return nil, fmt.Errorf("%w: missing email or API token", ErrUnauthorized)
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		if strings.TrimSpace(cfg.Subdomain) == "" {
			return nil, fmt.Errorf("%w: missing subdomain", ErrUnauthorized)
		}
		baseURL = fmt.Sprintf("https://%s.zendesk.com/api/v2", cfg.Subdomain)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultZendeskTimeout
	}
	credentials := fmt.Sprintf("%s/token:%s", cfg.Email, cfg.APIToken)
	return &ZendeskClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		authHeader: "Basic " + base64.StdEncoding.EncodeToString([]byte(credentials)),
	}, nil
}

type zendeskTicket struct {
	ID          int64     `json:"id"`
	Subject     string    `json:"subject"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	Priority    string    `json:"priority"`
	RequesterID int64     `json:"requester_id"`
	Tags        []string  `json:"tags"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type zendeskComment struct {
	ID        int64     `json:"id"`
	Body      string    `json:"body"`
	AuthorID  int64     `json:"author_id"`
	Public    bool      `json:"public"`
	CreatedAt time.Time `json:"created_at"`
}

type zendeskUser struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (t zendeskTicket) toModel() models.Ticket {
	subject := t.Subject
	if subject == "" {
		subject = "(no subject)"
	}
	return models.Ticket{
		ID:        t.ID,
		Subject:   subject,
		Body:      t.Description,
		Priority:  models.NormalizePriority(t.Priority),
		Status:    models.NormalizeStatus(t.Status),
		Tags:      t.Tags,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
}

func (c *ZendeskClient) GetTicket(ctx context.Context, id int64) (*models.Ticket, error) {
	var envelope struct {
		Ticket zendeskTicket `json:"ticket"`
	}
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/tickets/%d", id), nil, nil, &envelope); err != nil {
		return nil, fmt.Errorf("fetching ticket %d: %w", id, err)
	}
	ticket := envelope.Ticket.toModel()

	requester, err := c.getUser(ctx, envelope.Ticket.RequesterID)
	if err == nil {
		ticket.Requester = models.Identity{Name: requester.Name, Email: requester.Email}
	}

	conversation, err := c.ticketConversation(ctx, id, envelope.Ticket.RequesterID, ticket.Requester.Name)
	if err != nil {
		return nil, fmt.Errorf("fetching conversation for ticket %d: %w", id, err)
	}
	ticket.Conversation = conversation
	return &ticket, nil
}

func (c *ZendeskClient) ticketConversation(ctx context.Context, id, requesterID int64, requesterName string) ([]models.Message, error) {
	var envelope struct {
		Comments []zendeskComment `json:"comments"`
	}
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/tickets/%d/comments", id), nil, nil, &envelope); err != nil {
		return nil, err
	}
	messages := make([]models.Message, 0, len(envelope.Comments))
	for _, comment := range envelope.Comments {
		msg := models.Message{
			Body:      comment.Body,
			Timestamp: comment.CreatedAt,
		}
		if comment.AuthorID == requesterID {
			msg.Role = models.RoleCustomer
			msg.Author = requesterName
		} else {
			msg.Role = models.RoleAgent
			msg.Author = "Support Agent"
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

func (c *ZendeskClient) ListTickets(ctx context.Context, filter ListFilter) ([]models.Ticket, error) {
	query := url.Values{}
	if filter.Status != "" {
		query.Set("status", string(filter.Status))
	}
	if filter.Page > 0 {
		query.Set("page", strconv.Itoa(filter.Page))
	}
	if filter.PerPage > 0 {
		query.Set("per_page", strconv.Itoa(filter.PerPage))
	}
	var envelope struct {
		Tickets []zendeskTicket `json:"tickets"`
	}
	if err := c.do(ctx, http.MethodGet, "/tickets", query, nil, &envelope); err != nil {
		return nil, fmt.Errorf("listing tickets: %w", err)
	}
	tickets := make([]models.Ticket, 0, len(envelope.Tickets))
	for _, t := range envelope.Tickets {
		tickets = append(tickets, t.toModel())
	}
	return tickets, nil
}

func (c *ZendeskClient) SearchTickets(ctx context.Context, searchQuery string) ([]models.Ticket, error) {
	query := url.Values{}
	query.Set("query", "type:ticket "+searchQuery)
	var envelope struct {
		Results []json.RawMessage `json:"results"`
	}
	if err := c.do(ctx, http.MethodGet, "/search", query, nil, &envelope); err != nil {
		return nil, fmt.Errorf("searching tickets: %w", err)
	}
	var tickets []models.Ticket
	for _, raw := range envelope.Results {
		var probe struct {
			ResultType string `json:"result_type"`
		}
		if err := json.Unmarshal(raw, &probe); err != nil || probe.ResultType != "ticket" {
			continue
		}
		var t zendeskTicket
		if err := json.Unmarshal(raw, &t); err != nil {
			continue
		}
		tickets = append(tickets, t.toModel())
	}
	return tickets, nil
}

func (c *ZendeskClient) TicketsByRequester(ctx context.Context, email string) ([]models.Ticket, error) {
	query := url.Values{}
	query.Set("query", email)
	var userEnvelope struct {
		Users []zendeskUser `json:"users"`
	}
	if err := c.do(ctx, http.MethodGet, "/users/search", query, nil, &userEnvelope); err != nil {
		return nil, fmt.Errorf("looking up requester %s: %w", email, err)
	}
	if len(userEnvelope.Users) == 0 {
		return nil, nil
	}
	user := userEnvelope.Users[0]

	var envelope struct {
		Tickets []zendeskTicket `json:"tickets"`
	}
	path := fmt.Sprintf("/users/%d/tickets/requested", user.ID)
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &envelope); err != nil {
		return nil, fmt.Errorf("listing tickets for requester %s: %w", email, err)
	}
	tickets := make([]models.Ticket, 0, len(envelope.Tickets))
	for _, t := range envelope.Tickets {
		ticket := t.toModel()
		ticket.Requester = models.Identity{Name: user.Name, Email: user.Email}
		tickets = append(tickets, ticket)
	}
	sort.Slice(tickets, func(i, j int) bool {
		return tickets[i].UpdatedAt.After(tickets[j].UpdatedAt)
	})
	return tickets, nil
}

func (c *ZendeskClient) CreateTicket(ctx context.Context, params models.TicketCreateParams) (*models.Ticket, error) {
	tags := params.Tags
	if len(tags) == 0 {
		tags = []string{"ai-created", "email-inbound"}
	}
	priority := params.Priority
	if priority == "" {
		priority = models.PriorityNormal
	}
	name := params.Requester.Name
	if name == "" {
		name = params.Requester.Email
	}
	payload := map[string]any{
		"ticket": map[string]any{
			"subject": params.Subject,
			"comment": map[string]any{"body": params.Body},
			"requester": map[string]any{
				"email": params.Requester.Email,
				"name":  name,
			},
			"priority": string(priority),
			"tags":     tags,
		},
	}
	var envelope struct {
		Ticket zendeskTicket `json:"ticket"`
	}
	if err := c.do(ctx, http.MethodPost, "/tickets", nil, payload, &envelope); err != nil {
		return nil, fmt.Errorf("creating ticket: %w", err)
	}
	ticket := envelope.Ticket.toModel()
	ticket.Requester = params.Requester
	return &ticket, nil
}

func (c *ZendeskClient) AddComment(ctx context.Context, id int64, body string, public bool) error {
	status := models.StatusOpen
	if public {
		status = models.StatusPending
	}
	payload := map[string]any{
		"ticket": map[string]any{
			"status": string(status),
			"comment": map[string]any{
				"body":   body,
				"public": public,
			},
		},
	}
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/tickets/%d", id), nil, payload, nil); err != nil {
		return fmt.Errorf("adding comment to ticket %d: %w", id, err)
	}
	return nil
}

func (c *ZendeskClient) UpdateTicket(ctx context.Context, id int64, update models.TicketUpdate) (*models.Ticket, error) {
	fields := map[string]any{}
	if update.Status != "" {
		fields["status"] = string(update.Status)
	}
	if update.Priority != "" {
		fields["priority"] = string(update.Priority)
	}
	if len(update.Tags) > 0 {
		fields["additional_tags"] = update.Tags
	}
	if strings.TrimSpace(update.Comment) != "" {
		fields["comment"] = map[string]any{
			"body":   update.Comment,
			"public": update.PublicComment,
		}
	}
	var envelope struct {
		Ticket zendeskTicket `json:"ticket"`
	}
	payload := map[string]any{"ticket": fields}
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/tickets/%d", id), nil, payload, &envelope); err != nil {
		return nil, fmt.Errorf("updating ticket %d: %w", id, err)
	}
	ticket := envelope.Ticket.toModel()
	return &ticket, nil
}

func (c *ZendeskClient) CheckConnection(ctx context.Context) error {
	if err := c.do(ctx, http.MethodGet, "/tickets/count", nil, nil, nil); err != nil {
		return fmt.Errorf("ticketing connection check: %w", err)
	}
	return nil
}

func (c *ZendeskClient) getUser(ctx context.Context, id int64) (*zendeskUser, error) {
	var envelope struct {
		User zendeskUser `json:"user"`
	}
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/users/%d", id), nil, nil, &envelope); err != nil {
		return nil, err
	}
	return &envelope.User, nil
}

func (c *ZendeskClient) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Authorization", c.authHeader)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return ErrUnauthorized
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	case resp.StatusCode >= 400:
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ticketing request failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
