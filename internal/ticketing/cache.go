package ticketing

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/simplebalance89-ai/c365-cs-agent/internal/cache"
	"github.com/simplebalance89-ai/c365-cs-agent/internal/models"
)

// CachedClient layers a short-TTL response cache over a Client. Only the hot
// triage reads are cached; list and search stay live. Cache failures are
// logged and the read falls through to the inner client, so a dead cache
// never takes the pipeline down.
type CachedClient struct {
	inner  Client
	store  cache.Cache
	ttl    time.Duration
	logger *slog.Logger
}

func NewCachedClient(inner Client, store cache.Cache, ttl time.Duration, logger *slog.Logger) *CachedClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedClient{inner: inner, store: store, ttl: ttl, logger: logger}
}

func ticketCacheKey(id int64) string {
	return "ticketing:ticket:" + strconv.FormatInt(id, 10)
}

func requesterCacheKey(email string) string {
	return "ticketing:requester:" + strings.ToLower(strings.TrimSpace(email))
}

func (c *CachedClient) GetTicket(ctx context.Context, id int64) (*models.Ticket, error) {
	key := ticketCacheKey(id)
	if raw, err := c.store.Get(ctx, key); err == nil {
		var ticket models.Ticket
		if err := json.Unmarshal(raw, &ticket); err == nil {
			return &ticket, nil
		}
		c.evict(ctx, key)
	} else if !errors.Is(err, cache.ErrMiss) {
		c.logger.Warn("ticket cache read failed", "key", key, "error", err)
	}

	ticket, err := c.inner.GetTicket(ctx, id)
	if err != nil {
		return nil, err
	}
	c.put(ctx, key, ticket)
	return ticket, nil
}

func (c *CachedClient) TicketsByRequester(ctx context.Context, email string) ([]models.Ticket, error) {
	key := requesterCacheKey(email)
	if raw, err := c.store.Get(ctx, key); err == nil {
		var tickets []models.Ticket
		if err := json.Unmarshal(raw, &tickets); err == nil {
			return tickets, nil
		}
		c.evict(ctx, key)
	} else if !errors.Is(err, cache.ErrMiss) {
		c.logger.Warn("requester cache read failed", "key", key, "error", err)
	}

	tickets, err := c.inner.TicketsByRequester(ctx, email)
	if err != nil {
		return nil, err
	}
	c.put(ctx, key, tickets)
	return tickets, nil
}

func (c *CachedClient) ListTickets(ctx context.Context, filter ListFilter) ([]models.Ticket, error) {
	return c.inner.ListTickets(ctx, filter)
}

func (c *CachedClient) SearchTickets(ctx context.Context, query string) ([]models.Ticket, error) {
	return c.inner.SearchTickets(ctx, query)
}

func (c *CachedClient) CreateTicket(ctx context.Context, params models.TicketCreateParams) (*models.Ticket, error) {
	ticket, err := c.inner.CreateTicket(ctx, params)
	if err != nil {
		return nil, err
	}
	c.evict(ctx, requesterCacheKey(params.Requester.Email))
	return ticket, nil
}

func (c *CachedClient) AddComment(ctx context.Context, id int64, body string, public bool) error {
	if err := c.inner.AddComment(ctx, id, body, public); err != nil {
		return err
	}
	c.evict(ctx, ticketCacheKey(id))
	return nil
}

func (c *CachedClient) UpdateTicket(ctx context.Context, id int64, update models.TicketUpdate) (*models.Ticket, error) {
	ticket, err := c.inner.UpdateTicket(ctx, id, update)
	if err != nil {
		return nil, err
	}
	c.evict(ctx, ticketCacheKey(id))
	return ticket, nil
}

func (c *CachedClient) CheckConnection(ctx context.Context) error {
	return c.inner.CheckConnection(ctx)
}

func (c *CachedClient) put(ctx context.Context, key string, value any) {
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := c.store.Set(ctx, key, raw, c.ttl); err != nil {
		c.logger.Warn("ticket cache write failed", "key", key, "error", err)
	}
}

func (c *CachedClient) evict(ctx context.Context, key string) {
	if err := c.store.Delete(ctx, key); err != nil {
		c.logger.Warn("ticket cache evict failed", "key", key, "error", err)
	}
}
