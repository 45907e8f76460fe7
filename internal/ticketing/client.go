// Package ticketing talks to the ticket system of record. The live client
// speaks the Zendesk REST API; the demo client serves a fixed in-memory
// dataset. Both present tickets in normalized model form.
package ticketing

import (
	"context"
	"errors"

	"github.com/simplebalance89-ai/c365-cs-agent/internal/models"
)

var (
	ErrNotFound     = errors.New("ticket not found")
	ErrUnauthorized = errors.New("ticketing credentials rejected")
	ErrUnavailable  = errors.New("ticketing service unavailable")
)

// ListFilter narrows ListTickets. Zero Page and PerPage mean first page at
// the provider default size.
type ListFilter struct {
	Status  models.Status
	Page    int
	PerPage int
}

type Client interface {
	// GetTicket returns the ticket with its conversation hydrated.
	GetTicket(ctx context.Context, id int64) (*models.Ticket, error)
	// ListTickets and SearchTickets return tickets without conversations.
	ListTickets(ctx context.Context, filter ListFilter) ([]models.Ticket, error)
	SearchTickets(ctx context.Context, query string) ([]models.Ticket, error)
	// TicketsByRequester returns every ticket requested by the given email,
	// newest update first. An unknown email yields an empty slice, not an
	// error.
	TicketsByRequester(ctx context.Context, email string) ([]models.Ticket, error)
	CreateTicket(ctx context.Context, params models.TicketCreateParams) (*models.Ticket, error)
	// AddComment posts a comment; a public comment moves the ticket to
	// pending (awaiting customer), an internal note moves it to open.
	AddComment(ctx context.Context, id int64, body string, public bool) error
	UpdateTicket(ctx context.Context, id int64, update models.TicketUpdate) (*models.Ticket, error)
	CheckConnection(ctx context.Context) error
}
