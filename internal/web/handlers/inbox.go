package handlers

import (
	"net/http"

	"github.com/simplebalance89-ai/c365-cs-agent/internal/inbox"
)

// InboxHandler triggers inbox sweeps on demand, outside the poll schedule.
type InboxHandler struct {
	watcher *inbox.Watcher
}

// NewInboxHandler creates a new InboxHandler.
func NewInboxHandler(watcher *inbox.Watcher) *InboxHandler {
	return &InboxHandler{watcher: watcher}
}

type sweepResponse struct {
	OK         bool `json:"ok"`
	Dispatched int  `json:"dispatched"`
}

// HandleSweep serves POST /inbox/sweep. The sweep runs to completion before
// answering; dispatched counts the messages triaged this pass.
func (h *InboxHandler) HandleSweep(w http.ResponseWriter, r *http.Request) {
	dispatched := h.watcher.Sweep(r.Context())
	writeJSON(w, http.StatusOK, sweepResponse{OK: true, Dispatched: dispatched})
}
