package models

import "strconv"

type ItemKind string

const (
	KindTicket ItemKind = "ticket"
	KindEmail  ItemKind = "email"
)

// Item is the common view the classifier and responder take of a ticket or an
// inbound email. ItemKey doubles as the single-flight key for the item.
type Item interface {
	ItemKey() string
	Kind() ItemKind
	Subject() string
	Body() string
	Thread() []Message
	Requester() Identity
}

type ticketItem struct {
	t *Ticket
}

func TicketItem(t *Ticket) Item { return ticketItem{t: t} }

func (i ticketItem) ItemKey() string     { return TicketKey(i.t.ID) }
func (i ticketItem) Kind() ItemKind      { return KindTicket }
func (i ticketItem) Subject() string     { return i.t.Subject }
func (i ticketItem) Body() string        { return i.t.Body }
func (i ticketItem) Thread() []Message   { return i.t.Conversation }
func (i ticketItem) Requester() Identity { return i.t.Requester }

type emailItem struct {
	e      *Email
	thread []Message
}

// EmailItem adapts an inbound email; thread carries earlier messages of the
// same mail thread when the caller fetched them, nil otherwise.
func EmailItem(e *Email, thread []Message) Item { return emailItem{e: e, thread: thread} }

func (i emailItem) ItemKey() string     { return EmailKey(i.e.ID) }
func (i emailItem) Kind() ItemKind      { return KindEmail }
func (i emailItem) Subject() string     { return i.e.Subject }
func (i emailItem) Body() string        { return i.e.Body }
func (i emailItem) Thread() []Message   { return i.thread }
func (i emailItem) Requester() Identity { return i.e.Sender }

func TicketKey(id int64) string { return "ticket:" + strconv.FormatInt(id, 10) }

func EmailKey(id string) string { return "email:" + id }
