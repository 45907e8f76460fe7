package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type Priority string

const (
	PriorityUrgent Priority = "urgent"
	PriorityHigh   Priority = "high"
	PriorityNormal Priority = "normal"
	PriorityLow    Priority = "low"
)

type Status string

const (
	StatusOpen    Status = "open"
	StatusPending Status = "pending"
	StatusSolved  Status = "solved"
	StatusClosed  Status = "closed"
)

type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
)

type Category string

const (
	CategoryBilling     Category = "billing"
	CategoryAccess      Category = "access"
	CategoryMaintenance Category = "maintenance"
	CategoryBooking     Category = "booking"
	CategoryLease       Category = "lease"
	CategoryAmenities   Category = "amenities"
	CategoryOrders      Category = "orders"
	CategoryWarranty    Category = "warranty"
	CategoryGeneral     Category = "general"
	CategoryEscalation  Category = "escalation"

	// CategoryOther is the fallback bucket and is never offered to the
	// classification provider.
	CategoryOther Category = "other"
)

// Categories lists the assignable taxonomy in prompt order.
func Categories() []Category {
	return []Category{
		CategoryBilling,
		CategoryAccess,
		CategoryMaintenance,
		CategoryBooking,
		CategoryLease,
		CategoryAmenities,
		CategoryOrders,
		CategoryWarranty,
		CategoryGeneral,
		CategoryEscalation,
	}
}

func NormalizePriority(s string) Priority {
	switch Priority(strings.ToLower(strings.TrimSpace(s))) {
	case PriorityUrgent:
		return PriorityUrgent
	case PriorityHigh:
		return PriorityHigh
	case PriorityLow:
		return PriorityLow
	default:
		return PriorityNormal
	}
}

// NormalizeStatus folds provider statuses onto the four-state lifecycle.
func NormalizeStatus(s string) Status {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pending", "hold", "on-hold":
		return StatusPending
	case "solved":
		return StatusSolved
	case "closed":
		return StatusClosed
	default:
		return StatusOpen
	}
}

func NormalizeSentiment(s string) Sentiment {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "positive", "happy", "satisfied":
		return SentimentPositive
	case "negative", "frustrated", "angry", "upset":
		return SentimentNegative
	default:
		return SentimentNeutral
	}
}

func NormalizeCategory(s string) Category {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Categories() {
		if c == known {
			return known
		}
	}
	return CategoryOther
}

type Identity struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type MessageRole string

const (
	RoleCustomer MessageRole = "customer"
	RoleAgent    MessageRole = "agent"
	RoleAI       MessageRole = "ai"
)

type Message struct {
	Author    string      `json:"author"`
	Role      MessageRole `json:"role"`
	Body      string      `json:"body"`
	Timestamp time.Time   `json:"timestamp"`
}

type Ticket struct {
	ID           int64     `json:"id"`
	Subject      string    `json:"subject"`
	Body         string    `json:"body"`
	Requester    Identity  `json:"requester"`
	Priority     Priority  `json:"priority"`
	Status       Status    `json:"status"`
	Category     Category  `json:"category,omitempty"`
	Tags         []string  `json:"tags,omitempty"`
	Sentiment    Sentiment `json:"sentiment,omitempty"`
	AISummary    string    `json:"ai_summary,omitempty"`
	Conversation []Message `json:"conversation,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type TicketCreateParams struct {
	Subject   string
	Body      string
	Requester Identity
	Priority  Priority
	Tags      []string
}

type TicketUpdate struct {
	Status        Status
	Priority      Priority
	Tags          []string
	Comment       string
	PublicComment bool
}

type Email struct {
	ID         string    `json:"id"`
	Sender     Identity  `json:"sender"`
	Subject    string    `json:"subject"`
	Body       string    `json:"body"`
	Preview    string    `json:"preview,omitempty"`
	Unread     bool      `json:"unread"`
	ThreadID   string    `json:"thread_id,omitempty"`
	ReceivedAt time.Time `json:"received_at"`
}

type Classification struct {
	Priority         Priority  `json:"priority"`
	Category         Category  `json:"category"`
	Sentiment        Sentiment `json:"sentiment"`
	Escalate         bool      `json:"escalate"`
	EscalationReason string    `json:"escalation_reason,omitempty"`
	Confidence       float64   `json:"confidence"`
	Summary          string    `json:"summary"`
	GeneratedAt      time.Time `json:"generated_at"`
}

type ResponseDraft struct {
	ID                  uuid.UUID      `json:"id"`
	Subject             string         `json:"subject"`
	Body                string         `json:"body"`
	SuggestedStatus     Status         `json:"suggested_status"`
	SuggestedTags       []string       `json:"suggested_tags,omitempty"`
	InternalNotes       string         `json:"internal_notes,omitempty"`
	Classification      Classification `json:"classification"`
	EligibleForAutoSend bool           `json:"eligible_for_auto_send"`
	GeneratedAt         time.Time      `json:"generated_at"`
}

type CustomerHistorySummary struct {
	RequesterEmail string    `json:"requester_email"`
	TicketCount    int       `json:"ticket_count"`
	OpenTickets    int       `json:"open_tickets"`
	AvgSentiment   Sentiment `json:"avg_sentiment"`
	TopCategories  []string  `json:"top_categories,omitempty"`
	Summary        string    `json:"summary"`
	VIP            bool      `json:"vip"`
}
