// Package history condenses a customer's prior tickets into a short summary
// for agents and generation prompts. The numeric facts are always computed
// locally; the provider only writes the prose, so a provider outage degrades
// to a templated summary instead of an error.
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/simplebalance89-ai/c365-cs-agent/internal/ai"
	"github.com/simplebalance89-ai/c365-cs-agent/internal/models"
	"github.com/simplebalance89-ai/c365-cs-agent/internal/ticketing"
)

// vipThreshold marks accounts with heavy ticket traffic for extra care.
const vipThreshold = 5

// promptTicketCap bounds the prompt for customers with very long histories.
const promptTicketCap = 30

const historySystem = `You summarize a support customer's ticket history for the agent about to
reply to them. Be factual and skip pleasantries.

Respond with ONLY a valid JSON object. No commentary, no markdown, just JSON:
{
  "summary": "2-3 sentences on themes, recurring problems, and how past tickets ended",
  "avg_sentiment": one of [positive, neutral, negative],
  "top_categories": ["category", ...],
  "vip_flag": boolean
}`

type Aggregator struct {
	tickets ticketing.Client
	client  ai.Client
	logger  *slog.Logger
}

func New(tickets ticketing.Client, client ai.Client, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{tickets: tickets, client: client, logger: logger}
}

// Summarize builds the history summary for one requester. A customer with no
// tickets gets a valid zero summary. Ticket lookup failures are returned;
// provider failures are not, they downgrade to the templated fallback.
func (a *Aggregator) Summarize(ctx context.Context, email string) (*models.CustomerHistorySummary, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	tickets, err := a.tickets.TicketsByRequester(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("fetching tickets for %s: %w", email, err)
	}

	summary := &models.CustomerHistorySummary{
		RequesterEmail: email,
		TicketCount:    len(tickets),
		OpenTickets:    countOpen(tickets),
		AvgSentiment:   dominantSentiment(tickets),
		TopCategories:  topCategories(tickets, 3),
		VIP:            len(tickets) >= vipThreshold,
	}
	if len(tickets) == 0 {
		summary.Summary = "No prior tickets on record for this customer."
		return summary, nil
	}

	raw, err := a.client.Generate(ctx, ai.Request{
		System: historySystem,
		Prompt: buildPrompt(email, tickets),
	})
	if err != nil {
		a.logger.Warn("history summary degraded to template", "requester", email, "error", err)
		summary.Summary = templateSummary(summary)
		return summary, nil
	}
	applyProviderSummary(summary, raw, a.logger)
	return summary, nil
}

// applyProviderSummary folds the model's prose onto the locally computed
// facts. Counts stay local no matter what the model claims.
func applyProviderSummary(summary *models.CustomerHistorySummary, raw string, logger *slog.Logger) {
	extracted, err := ai.ExtractJSON(raw)
	if err != nil {
		logger.Warn("history summary unparseable, using template", "requester", summary.RequesterEmail, "error", err)
		summary.Summary = templateSummary(summary)
		return
	}
	var payload struct {
		Summary       string   `json:"summary"`
		AvgSentiment  string   `json:"avg_sentiment"`
		TopCategories []string `json:"top_categories"`
		VIPFlag       *bool    `json:"vip_flag"`
	}
	if err := json.Unmarshal(extracted, &payload); err != nil {
		logger.Warn("history summary undecodable, using template", "requester", summary.RequesterEmail, "error", err)
		summary.Summary = templateSummary(summary)
		return
	}

	if s := strings.TrimSpace(payload.Summary); s != "" {
		summary.Summary = s
	} else {
		summary.Summary = templateSummary(summary)
	}
	if payload.AvgSentiment != "" {
		summary.AvgSentiment = models.NormalizeSentiment(payload.AvgSentiment)
	}
	if len(payload.TopCategories) > 0 {
		summary.TopCategories = payload.TopCategories
	}
	if payload.VIPFlag != nil && *payload.VIPFlag {
		summary.VIP = true
	}
}

func buildPrompt(email string, tickets []models.Ticket) string {
	shown := tickets
	if len(shown) > promptTicketCap {
		shown = shown[:promptTicketCap]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Summarize the support history of %s.\n\n", email)
	fmt.Fprintf(&b, "PRIOR TICKETS (%d):\n", len(tickets))
	for _, t := range shown {
		fmt.Fprintf(&b, "- #%d [%s/%s/%s] %s", t.ID, t.Status, t.Priority, t.Category, t.Subject)
		if t.Sentiment != "" {
			fmt.Fprintf(&b, " (sentiment: %s)", t.Sentiment)
		}
		b.WriteString("\n")
	}
	if len(shown) < len(tickets) {
		fmt.Fprintf(&b, "(showing the %d most recently updated of %d)\n", len(shown), len(tickets))
	}
	return b.String()
}

// templateSummary is the deterministic fallback used when the provider is
// down or returns junk.
func templateSummary(s *models.CustomerHistorySummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d prior tickets, %d still open.", s.TicketCount, s.OpenTickets)
	if len(s.TopCategories) > 0 {
		fmt.Fprintf(&b, " Most frequent: %s.", strings.Join(s.TopCategories, ", "))
	}
	if s.VIP {
		b.WriteString(" High-volume account.")
	}
	return b.String()
}

func countOpen(tickets []models.Ticket) int {
	n := 0
	for _, t := range tickets {
		if t.Status == models.StatusOpen || t.Status == models.StatusPending {
			n++
		}
	}
	return n
}

// dominantSentiment takes a majority vote over tickets that carry one.
func dominantSentiment(tickets []models.Ticket) models.Sentiment {
	counts := map[models.Sentiment]int{}
	for _, t := range tickets {
		if t.Sentiment != "" {
			counts[t.Sentiment]++
		}
	}
	best := models.SentimentNeutral
	bestCount := 0
	for _, s := range []models.Sentiment{models.SentimentNegative, models.SentimentPositive, models.SentimentNeutral} {
		if counts[s] > bestCount {
			best, bestCount = s, counts[s]
		}
	}
	return best
}

func topCategories(tickets []models.Ticket, limit int) []string {
	counts := map[string]int{}
	for _, t := range tickets {
		if t.Category != "" {
			counts[string(t.Category)]++
		}
	}
	if len(counts) == 0 {
		return nil
	}
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if counts[names[i]] != counts[names[j]] {
			return counts[names[i]] > counts[names[j]]
		}
		return names[i] < names[j]
	})
	if len(names) > limit {
		names = names[:limit]
	}
	return names
}
