package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/simplebalance89-ai/c365-cs-agent/internal/mailbox"
	"github.com/simplebalance89-ai/c365-cs-agent/internal/models"
	"github.com/simplebalance89-ai/c365-cs-agent/internal/orchestrator"
)

const (
	defaultUnreadLimit = 20
	maxUnreadLimit     = 50
)

// MailHandler serves the inbox endpoints.
type MailHandler struct {
	mail     mailbox.Client
	triage   *orchestrator.Orchestrator
	defaults TriageDefaults
}

// NewMailHandler creates a new MailHandler.
func NewMailHandler(mail mailbox.Client, triage *orchestrator.Orchestrator, defaults TriageDefaults) *MailHandler {
	return &MailHandler{
		mail:     mail,
		triage:   triage,
		defaults: defaults,
	}
}

type emailListResponse struct {
	Emails []models.Email `json:"emails"`
	Count  int            `json:"count"`
}

// HandleUnread serves GET /emails/unread.
func (h *MailHandler) HandleUnread(w http.ResponseWriter, r *http.Request) {
	top, err := queryInt(r.URL.Query(), "top", defaultUnreadLimit)
	if err == nil && (top < 1 || top > maxUnreadLimit) {
		err = errors.New("top must be between 1 and 50")
	}
	if err != nil {
		writeJSON(w, http.StatusBadRequest, jsonResponse{Error: err.Error()})
		return
	}

	emails, err := h.mail.ListUnread(r.Context(), top)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, emailListResponse{Emails: emails, Count: len(emails)})
}

// HandleGet serves GET /emails/{messageID}.
func (h *MailHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "messageID")

	email, err := h.mail.GetMessage(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, email)
}

// HandleProcess serves POST /emails/{messageID}/process. It runs the full
// triage pipeline: match or create a ticket, classify, and draft a reply.
func (h *MailHandler) HandleProcess(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "messageID")

	var body struct {
		AutoReply bool `json:"auto_reply"`
	}
	if err := decodeBody(w, r, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, jsonResponse{Error: err.Error()})
		return
	}

	result, err := h.triage.ProcessEmail(r.Context(), id, h.defaults.options(body.AutoReply))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

type sendResponse struct {
	OK        bool   `json:"ok"`
	MessageID string `json:"message_id"`
	Warning   string `json:"warning,omitempty"`
}

// HandleSend serves POST /emails/{messageID}/send. It sends a human-approved
// reply on the message thread and marks the original read.
func (h *MailHandler) HandleSend(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "messageID")

	var body struct {
		Subject string `json:"subject"`
		Body    string `json:"body"`
	}
	if err := decodeBody(w, r, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, jsonResponse{Error: err.Error()})
		return
	}
	if strings.TrimSpace(body.Body) == "" {
		writeJSON(w, http.StatusBadRequest, jsonResponse{Error: "body is required"})
		return
	}

	ctx := r.Context()
	email, err := h.mail.GetMessage(ctx, id)
	if err != nil {
		writeError(w, err)
		return
	}

	subject := strings.TrimSpace(body.Subject)
	if subject == "" {
		subject = replySubject(email.Subject)
	}

	if err := h.mail.SendReply(ctx, id, subject, body.Body); err != nil {
		writeError(w, err)
		return
	}

	resp := sendResponse{OK: true, MessageID: id}
	if err := h.mail.MarkRead(ctx, id); err != nil {
		slog.Warn("reply sent but message not marked read", "message_id", id, "error", err)
		resp.Warning = "reply sent but the message could not be marked read"
	}

	writeJSON(w, http.StatusOK, resp)
}

func replySubject(original string) string {
	if original == "" {
		return "Following up on your request"
	}
	if strings.HasPrefix(strings.ToLower(original), "re:") {
		return original
	}
	return "Re: " + original
}
