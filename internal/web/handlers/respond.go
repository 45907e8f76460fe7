// Package handlers serves the triage REST API. Every response is JSON;
// pipeline errors map onto the status taxonomy in statusForError.
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/simplebalance89-ai/c365-cs-agent/internal/ai"
	"github.com/simplebalance89-ai/c365-cs-agent/internal/classifier"
	"github.com/simplebalance89-ai/c365-cs-agent/internal/mailbox"
	"github.com/simplebalance89-ai/c365-cs-agent/internal/orchestrator"
	"github.com/simplebalance89-ai/c365-cs-agent/internal/ticketing"
)

// maxBodyBytes bounds request bodies; triage requests are tiny.
const maxBodyBytes = 1 << 20

// jsonResponse is the envelope for API error and status-only responses.
type jsonResponse struct {
	OK    bool   `json:"ok,omitempty"`
	Error string `json:"error,omitempty"`
}

// writeJSON serialises v as JSON and writes it to w with the given status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to write JSON response", "error", err)
	}
}

// writeError maps err onto the API status taxonomy. Unrecognized errors are
// logged and reported as an opaque 500 so internals never leak to callers.
func writeError(w http.ResponseWriter, err error) {
	status := statusForError(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "error", err)
		msg = "internal server error"
	}
	writeJSON(w, status, jsonResponse{Error: msg})
}

// statusForError translates pipeline errors into HTTP statuses. Upstream
// outages and rejected upstream credentials both read as a bad gateway; the
// caller did nothing wrong and may retry once the dependency recovers.
func statusForError(err error) int {
	switch {
	case errors.Is(err, orchestrator.ErrAlreadyInProgress):
		return http.StatusConflict
	case errors.Is(err, classifier.ErrEmptyInput):
		return http.StatusBadRequest
	case errors.Is(err, ticketing.ErrNotFound), errors.Is(err, mailbox.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ticketing.ErrUnavailable),
		errors.Is(err, ticketing.ErrUnauthorized),
		errors.Is(err, mailbox.ErrUnavailable),
		errors.Is(err, mailbox.ErrUnauthorized),
		errors.Is(err, ai.ErrUnavailable),
		errors.Is(err, ai.ErrTimeout),
		errors.Is(err, ai.ErrRateLimited),
		errors.Is(err, ai.ErrUnauthorized),
		errors.Is(err, ai.ErrNotConfigured):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// decodeBody decodes an optional JSON request body into dst. An empty body
// leaves dst at its zero value so boolean flags default to false.
func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	defer r.Body.Close()
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return errors.New("request body must be valid JSON")
	}
	return nil
}

// TriageDefaults carries the deployment-level auto-send policy applied to
// every triage request. A request flag can only ask for auto-send; these
// settings decide whether it is allowed.
type TriageDefaults struct {
	AutoSendThreshold float64
	AutoSendPermitted bool
}

func (d TriageDefaults) options(autoSend bool) orchestrator.Options {
	return orchestrator.Options{
		AutoSend:          autoSend,
		AutoSendThreshold: d.AutoSendThreshold,
		AutoSendPermitted: d.AutoSendPermitted,
	}
}
