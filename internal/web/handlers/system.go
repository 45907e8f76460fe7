package handlers

import (
	"net/http"

	"github.com/simplebalance89-ai/c365-cs-agent/internal/mailbox"
	"github.com/simplebalance89-ai/c365-cs-agent/internal/ticketing"
)

// ServiceInfo describes the running deployment for the info and health
// endpoints.
type ServiceInfo struct {
	Name         string
	Version      string
	Environment  string
	DemoMode     bool
	AIConfigured bool
}

// SystemHandler serves the service info and health endpoints.
type SystemHandler struct {
	tickets ticketing.Client
	mail    mailbox.Client
	info    ServiceInfo
}

// NewSystemHandler creates a new SystemHandler.
func NewSystemHandler(tickets ticketing.Client, mail mailbox.Client, info ServiceInfo) *SystemHandler {
	return &SystemHandler{
		tickets: tickets,
		mail:    mail,
		info:    info,
	}
}

// HandleIndex describes the service and links its entry points.
func (h *SystemHandler) HandleIndex(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"name":        h.info.Name,
		"version":     h.info.Version,
		"environment": h.info.Environment,
		"demo_mode":   h.info.DemoMode,
		"demo":        "/api/demo",
		"health":      "/health",
	})
}

type healthResponse struct {
	Status      string            `json:"status"`
	Version     string            `json:"version"`
	Environment string            `json:"environment"`
	Services    map[string]string `json:"services"`
}

// HandleHealth reports per-dependency connectivity. It always answers 200;
// a broken dependency degrades the status field rather than failing the check.
func (h *SystemHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	services := make(map[string]string, 3)
	status := "ok"

	if err := h.tickets.CheckConnection(ctx); err != nil {
		services["ticketing"] = "unavailable"
		status = "degraded"
	} else {
		services["ticketing"] = "ok"
	}

	if err := h.mail.CheckConnection(ctx); err != nil {
		services["mailbox"] = "unavailable"
		status = "degraded"
	} else {
		services["mailbox"] = "ok"
	}

	// Generation health reflects configuration only; the provider is not probed.
	if h.info.AIConfigured {
		services["ai"] = "ok"
	} else {
		services["ai"] = "no_api_key"
		status = "degraded"
	}

	writeJSON(w, http.StatusOK, healthResponse{
		Status:      status,
		Version:     h.info.Version,
		Environment: h.info.Environment,
		Services:    services,
	})
}
