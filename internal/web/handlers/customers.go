package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/simplebalance89-ai/c365-cs-agent/internal/orchestrator"
)

// CustomerHandler serves the customer history endpoint.
type CustomerHandler struct {
	triage *orchestrator.Orchestrator
}

// NewCustomerHandler creates a new CustomerHandler.
func NewCustomerHandler(triage *orchestrator.Orchestrator) *CustomerHandler {
	return &CustomerHandler{triage: triage}
}

// HandleHistory serves GET /customers/{email}/history. An unknown customer
// yields a valid zero-ticket summary, not an error.
func (h *CustomerHandler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(chi.URLParam(r, "email"))
	if !strings.Contains(email, "@") {
		writeJSON(w, http.StatusBadRequest, jsonResponse{Error: "email address is invalid"})
		return
	}

	summary, err := h.triage.CustomerHistory(r.Context(), email)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, summary)
}
