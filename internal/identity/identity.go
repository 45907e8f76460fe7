// Package identity resolves an inbound email sender to an existing support
// ticket. Matching is a pure decision over candidate tickets the caller
// already fetched; creating a ticket for an unmatched sender stays with the
// caller.
package identity

import (
	"strings"

	"github.com/simplebalance89-ai/c365-cs-agent/internal/models"
)

// MatchTicket picks the ticket an email from sender should attach to: a
// candidate whose requester email matches case-insensitively and whose
// status is still actionable (open or pending). When several qualify, the
// most recently updated one wins. The second return is false when nothing
// qualifies.
func MatchTicket(sender string, candidates []models.Ticket) (*models.Ticket, bool) {
	sender = strings.ToLower(strings.TrimSpace(sender))
	if sender == "" {
		return nil, false
	}

	var best *models.Ticket
	for i := range candidates {
		t := &candidates[i]
		if !actionable(t.Status) {
			continue
		}
		if strings.ToLower(strings.TrimSpace(t.Requester.Email)) != sender {
			continue
		}
		if best == nil || t.UpdatedAt.After(best.UpdatedAt) {
			best = t
		}
	}
	if best == nil {
		return nil, false
	}
	match := *best
	return &match, true
}

func actionable(s models.Status) bool {
	return s == models.StatusOpen || s == models.StatusPending
}
