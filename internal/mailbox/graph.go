package mailbox

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/simplebalance89-ai/c365-cs-agent/internal/models"
)

const (
	defaultGraphBase    = "https://graph.microsoft.com/v1.0"
	defaultGraphScope   = "https://graph.microsoft.com/.default"
	defaultGraphTimeout = 30 * time.Second

	messageSelect = "id,subject,from,body,bodyPreview,receivedDateTime,conversationId,isRead"
)

// GraphConfig configures the live mailbox client. BaseURL and TokenURL
// override the Microsoft endpoints when set.
type GraphConfig struct {
	TenantID     string
	ClientID     string
	ClientSecret string
	Mailbox      string
	Scope        string
	BaseURL      string
	TokenURL     string
	Timeout      time.Duration
}

// GraphClient implements Client against the Microsoft Graph mail API using
// the client-credentials flow, so no user ever signs in.
type GraphClient struct {
	httpClient *http.Client
	baseURL    string
	mailbox    string
}

func NewGraphClient(cfg GraphConfig) (*GraphClient, error) {
	if cfg.TenantID == "" || cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("%w: missing tenant, client id, or client secret", ErrUnauthorized)
	}
	if strings.TrimSpace(cfg.Mailbox) == "" {
		return nil, fmt.Errorf("%w: missing monitored mailbox address", ErrUnauthorized)
	}
	scope := cfg.Scope
	if scope == "" {
		scope = defaultGraphScope
	}
	tokenURL := cfg.TokenURL
	if tokenURL == "" {
		tokenURL = fmt.Sprintf("https://login.microsoftonline.com/%s/oauth2/v2.0/token", cfg.TenantID)
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultGraphBase
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultGraphTimeout
	}

	creds := clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     tokenURL,
		Scopes:       []string{scope},
	}
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, &http.Client{Timeout: timeout})
	httpClient := creds.Client(ctx)
	httpClient.Timeout = timeout

	return &GraphClient{
		httpClient: httpClient,
		baseURL:    baseURL,
		mailbox:    cfg.Mailbox,
	}, nil
}

type graphAddress struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

type graphMessage struct {
	ID   string `json:"id"`
	From struct {
		EmailAddress graphAddress `json:"emailAddress"`
	} `json:"from"`
	Subject string `json:"subject"`
	Body    struct {
		ContentType string `json:"contentType"`
		Content     string `json:"content"`
	} `json:"body"`
	BodyPreview    string    `json:"bodyPreview"`
	ReceivedAt     time.Time `json:"receivedDateTime"`
	ConversationID string    `json:"conversationId"`
	IsRead         bool      `json:"isRead"`
}

func (m graphMessage) toModel() models.Email {
	subject := m.Subject
	if subject == "" {
		subject = "(no subject)"
	}
	body := m.Body.Content
	if strings.EqualFold(m.Body.ContentType, "html") {
		body = htmlToText(body)
	}
	return models.Email{
		ID:         m.ID,
		Sender:     models.Identity{Name: m.From.EmailAddress.Name, Email: m.From.EmailAddress.Address},
		Subject:    subject,
		Body:       body,
		Preview:    m.BodyPreview,
		Unread:     !m.IsRead,
		ThreadID:   m.ConversationID,
		ReceivedAt: m.ReceivedAt,
	}
}

func (c *GraphClient) ListUnread(ctx context.Context, limit int) ([]models.Email, error) {
	if limit <= 0 {
		limit = 20
	}
	query := url.Values{}
	query.Set("$filter", "isRead eq false")
	query.Set("$top", strconv.Itoa(limit))
	query.Set("$orderby", "receivedDateTime desc")
	query.Set("$select", messageSelect)

	var envelope struct {
		Value []graphMessage `json:"value"`
	}
	path := fmt.Sprintf("/users/%s/mailFolders/Inbox/messages", url.PathEscape(c.mailbox))
	if err := c.do(ctx, http.MethodGet, path, query, nil, &envelope); err != nil {
		return nil, fmt.Errorf("listing unread mail: %w", err)
	}
	emails := make([]models.Email, 0, len(envelope.Value))
	for _, m := range envelope.Value {
		emails = append(emails, m.toModel())
	}
	return emails, nil
}

func (c *GraphClient) GetMessage(ctx context.Context, id string) (*models.Email, error) {
	query := url.Values{}
	query.Set("$select", messageSelect)
	var msg graphMessage
	path := fmt.Sprintf("/users/%s/messages/%s", url.PathEscape(c.mailbox), url.PathEscape(id))
	if err := c.do(ctx, http.MethodGet, path, query, nil, &msg); err != nil {
		return nil, fmt.Errorf("fetching message %s: %w", id, err)
	}
	email := msg.toModel()
	return &email, nil
}

func (c *GraphClient) ThreadMessages(ctx context.Context, threadID string) ([]models.Email, error) {
	query := url.Values{}
	query.Set("$filter", fmt.Sprintf("conversationId eq '%s'", threadID))
	query.Set("$orderby", "receivedDateTime asc")
	query.Set("$select", messageSelect)

	var envelope struct {
		Value []graphMessage `json:"value"`
	}
	path := fmt.Sprintf("/users/%s/messages", url.PathEscape(c.mailbox))
	if err := c.do(ctx, http.MethodGet, path, query, nil, &envelope); err != nil {
		return nil, fmt.Errorf("fetching thread %s: %w", threadID, err)
	}
	emails := make([]models.Email, 0, len(envelope.Value))
	for _, m := range envelope.Value {
		emails = append(emails, m.toModel())
	}
	return emails, nil
}

func (c *GraphClient) SendReply(ctx context.Context, messageID, subject, body string) error {
	payload := map[string]any{
		"message": map[string]any{
			"subject": subject,
			"body": map[string]any{
				"contentType": "Text",
				"content":     body,
			},
		},
	}
	path := fmt.Sprintf("/users/%s/messages/%s/reply", url.PathEscape(c.mailbox), url.PathEscape(messageID))
	if err := c.do(ctx, http.MethodPost, path, nil, payload, nil); err != nil {
		return fmt.Errorf("replying to message %s: %w", messageID, err)
	}
	return nil
}

func (c *GraphClient) MarkRead(ctx context.Context, messageID string) error {
	payload := map[string]any{"isRead": true}
	path := fmt.Sprintf("/users/%s/messages/%s", url.PathEscape(c.mailbox), url.PathEscape(messageID))
	if err := c.do(ctx, http.MethodPatch, path, nil, payload, nil); err != nil {
		return fmt.Errorf("marking message %s read: %w", messageID, err)
	}
	return nil
}

func (c *GraphClient) CheckConnection(ctx context.Context) error {
	path := fmt.Sprintf("/users/%s/mailFolders/Inbox", url.PathEscape(c.mailbox))
	if err := c.do(ctx, http.MethodGet, path, nil, nil, nil); err != nil {
		return fmt.Errorf("mailbox connection check: %w", err)
	}
	return nil
}

func (c *GraphClient) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
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
		reader = strings.NewReader(string(encoded))
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
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
		return fmt.Errorf("mailbox request failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
