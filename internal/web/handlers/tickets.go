package handlers

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/simplebalance89-ai/c365-cs-agent/internal/models"
	"github.com/simplebalance89-ai/c365-cs-agent/internal/orchestrator"
	"github.com/simplebalance89-ai/c365-cs-agent/internal/ticketing"
)

const (
	defaultPerPage = 25
	maxPerPage     = 100
)

// TicketHandler serves the ticket listing and triage endpoints.
type TicketHandler struct {
	tickets  ticketing.Client
	triage   *orchestrator.Orchestrator
	defaults TriageDefaults
}

// NewTicketHandler creates a new TicketHandler.
func NewTicketHandler(tickets ticketing.Client, triage *orchestrator.Orchestrator, defaults TriageDefaults) *TicketHandler {
	return &TicketHandler{
		tickets:  tickets,
		triage:   triage,
		defaults: defaults,
	}
}

type ticketListResponse struct {
	Tickets []models.Ticket `json:"tickets"`
	Count   int             `json:"count"`
	Page    int             `json:"page"`
	PerPage int             `json:"per_page"`
	Status  models.Status   `json:"status"`
}

// HandleList serves GET /tickets. Status defaults to open; page starts at 1.
func (h *TicketHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	status := q.Get("status")
	if status == "" {
		status = string(models.StatusOpen)
	}
	parsedStatus, err := parseStatus(status)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, jsonResponse{Error: err.Error()})
		return
	}

	page, err := queryInt(q, "page", 1)
	if err == nil && page < 1 {
		err = errors.New("page must be at least 1")
	}
	if err != nil {
		writeJSON(w, http.StatusBadRequest, jsonResponse{Error: err.Error()})
		return
	}

	perPage, err := queryInt(q, "per_page", defaultPerPage)
	if err == nil && (perPage < 1 || perPage > maxPerPage) {
		err = errors.New("per_page must be between 1 and 100")
	}
	if err != nil {
		writeJSON(w, http.StatusBadRequest, jsonResponse{Error: err.Error()})
		return
	}

	tickets, err := h.tickets.ListTickets(r.Context(), ticketing.ListFilter{
		Status:  parsedStatus,
		Page:    page,
		PerPage: perPage,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ticketListResponse{
		Tickets: tickets,
		Count:   len(tickets),
		Page:    page,
		PerPage: perPage,
		Status:  parsedStatus,
	})
}

type ticketSearchResponse struct {
	Tickets []models.Ticket `json:"tickets"`
	Count   int             `json:"count"`
	Query   string          `json:"query"`
}

// HandleSearch serves GET /tickets/search.
func (h *TicketHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeJSON(w, http.StatusBadRequest, jsonResponse{Error: "q is required"})
		return
	}

	tickets, err := h.tickets.SearchTickets(r.Context(), query)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ticketSearchResponse{
		Tickets: tickets,
		Count:   len(tickets),
		Query:   query,
	})
}

// HandleGet serves GET /tickets/{ticketID}.
func (h *TicketHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := ticketID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, jsonResponse{Error: err.Error()})
		return
	}

	ticket, err := h.tickets.GetTicket(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ticket)
}

// HandleClassify serves POST /tickets/{ticketID}/classify.
func (h *TicketHandler) HandleClassify(w http.ResponseWriter, r *http.Request) {
	id, err := ticketID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, jsonResponse{Error: err.Error()})
		return
	}

	result, err := h.triage.ClassifyTicket(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// HandleRespond serves POST /tickets/{ticketID}/respond. The optional body
// flag asks for auto-send; deployment policy still decides eligibility.
func (h *TicketHandler) HandleRespond(w http.ResponseWriter, r *http.Request) {
	id, err := ticketID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, jsonResponse{Error: err.Error()})
		return
	}

	var body struct {
		AutoSend bool `json:"auto_send"`
	}
	if err := decodeBody(w, r, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, jsonResponse{Error: err.Error()})
		return
	}

	result, err := h.triage.RespondToTicket(r.Context(), id, h.defaults.options(body.AutoSend))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

type ticketUpdateResponse struct {
	OK     bool           `json:"ok"`
	Ticket *models.Ticket `json:"ticket"`
}

// HandleUpdate serves PUT /tickets/{ticketID}/update. A comment posts first;
// explicit status, priority, and tag changes follow so they win over the
// status shift a comment causes.
func (h *TicketHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := ticketID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, jsonResponse{Error: err.Error()})
		return
	}

	var body struct {
		Status        string   `json:"status"`
		Priority      string   `json:"priority"`
		Tags          []string `json:"tags"`
		Comment       string   `json:"comment"`
		PublicComment bool     `json:"public_comment"`
	}
	if err := decodeBody(w, r, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, jsonResponse{Error: err.Error()})
		return
	}

	update := models.TicketUpdate{Tags: body.Tags}
	if body.Status != "" {
		update.Status, err = parseStatus(body.Status)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, jsonResponse{Error: err.Error()})
			return
		}
	}
	if body.Priority != "" {
		update.Priority, err = parsePriority(body.Priority)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, jsonResponse{Error: err.Error()})
			return
		}
	}

	hasFieldChanges := update.Status != "" || update.Priority != "" || len(update.Tags) > 0
	if !hasFieldChanges && body.Comment == "" {
		writeJSON(w, http.StatusBadRequest, jsonResponse{Error: "no update fields provided"})
		return
	}

	ctx := r.Context()
	if body.Comment != "" {
		if err := h.tickets.AddComment(ctx, id, body.Comment, body.PublicComment); err != nil {
			writeError(w, err)
			return
		}
	}

	var ticket *models.Ticket
	if hasFieldChanges {
		ticket, err = h.tickets.UpdateTicket(ctx, id, update)
	} else {
		ticket, err = h.tickets.GetTicket(ctx, id)
	}
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ticketUpdateResponse{OK: true, Ticket: ticket})
}

func ticketID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "ticketID")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("ticket id must be a positive integer")
	}
	return id, nil
}

func queryInt(q url.Values, key string, def int) (int, error) {
	raw := q.Get(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.New(key + " must be an integer")
	}
	return n, nil
}

func parseStatus(s string) (models.Status, error) {
	switch status := models.Status(strings.ToLower(strings.TrimSpace(s))); status {
	case models.StatusOpen, models.StatusPending, models.StatusSolved, models.StatusClosed:
		return status, nil
	default:
		return "", errors.New("status must be one of open, pending, solved, closed")
	}
}

func parsePriority(s string) (models.Priority, error) {
	switch priority := models.Priority(strings.ToLower(strings.TrimSpace(s))); priority {
	case models.PriorityUrgent, models.PriorityHigh, models.PriorityNormal, models.PriorityLow:
		return priority, nil
	default:
		return "", errors.New("priority must be one of urgent, high, normal, low")
	}
}
