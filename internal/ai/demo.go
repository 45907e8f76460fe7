package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// DemoClient fabricates believable model output without any network. Replies
// are derived from the prompt text so repeated runs give identical results.
// The request kind is recognized by the schema field names the system prompt
// asks for.
type DemoClient struct{}

func NewDemoClient() *DemoClient { return &DemoClient{} }

func (c *DemoClient) Generate(ctx context.Context, req Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	switch {
	case strings.Contains(req.System, "should_escalate"):
		return c.classification(req.Prompt), nil
	case strings.Contains(req.System, "suggested_status"):
		return c.response(req.Prompt), nil
	case strings.Contains(req.System, "avg_sentiment"):
		return c.history(req.Prompt), nil
	default:
		return "{}", nil
	}
}

// classification applies ordered keyword rules. Single keywords match whole
// words only, so an address like acmedist.com never reads as an EDI issue;
// multi-word phrases match as substrings.
func (c *DemoClient) classification(prompt string) string {
	l := strings.ToLower(prompt)
	words := wordSet(l)
	subject := promptLine(prompt, "SUBJECT:")
	if subject == "" {
		subject = "the reported issue"
	}

	category := "general"
	priority := "normal"
	confidence := 0.55
	escalate := false
	reason := ""

	switch {
	case hasAnyWord(words, "outage") || containsAny(l, "system down", "is down", "cannot process orders", "stopped processing"):
		category, priority, confidence = "maintenance", "urgent", 0.96
		escalate, reason = true, "Production ERP outage reported"
	case hasAnyWord(words, "edi", "856", "940", "integration") || strings.Contains(l, "not syncing"):
		category, priority, confidence = "orders", "high", 0.93
		escalate, reason = true, "Integration failure affecting order flow"
	case hasAnyWord(words, "invoice", "billing", "charge", "charges", "charged", "overcharge", "overcharged") || strings.Contains(l, "credit memo"):
		category, priority, confidence = "billing", "high", 0.91
	case hasAnyWord(words, "password", "login", "access", "mfa") || strings.Contains(l, "locked out"):
		category, priority, confidence = "access", "normal", 0.94
	case hasAnyWord(words, "report", "reports", "reporting", "timeout", "crystal", "dashboard"):
		category, priority, confidence = "maintenance", "high", 0.89
	}

	sentiment := "neutral"
	if hasAnyWord(words, "frustrated", "unacceptable", "angry", "asap") || containsAny(l, "third time", "still broken") {
		sentiment = "frustrated"
	}

	out := map[string]any{
		"category":          category,
		"priority":          priority,
		"sentiment":         sentiment,
		"should_escalate":   escalate,
		"escalation_reason": nil,
		"confidence":        confidence,
		"summary":           fmt.Sprintf("Customer reports: %s.", strings.TrimSuffix(subject, ".")),
	}
	if escalate {
		out["escalation_reason"] = reason
	}
	return mustJSON(out)
}

func (c *DemoClient) response(prompt string) string {
	subject := promptLine(prompt, "SUBJECT:")
	name := firstName(promptLine(prompt, "CUSTOMER:"))

	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\n", name)
	b.WriteString("Thanks for reaching out, and sorry for the trouble. ")
	if strings.Contains(prompt, "ESCALATION:") {
		b.WriteString("We have flagged this to our senior team and are treating it as a priority. ")
	}
	b.WriteString("Our engineers are reviewing the details now and we will follow up with a concrete next step shortly.\n\n")
	b.WriteString("If anything changes on your side in the meantime, reply here and it will reach the same team.\n\n")
	b.WriteString("The Conveyance365 Team")

	replySubject := "Following up on your request"
	if subject != "" {
		replySubject = "Re: " + subject
	}

	return mustJSON(map[string]any{
		"subject":          replySubject,
		"body":             b.String(),
		"suggested_status": "pending",
		"suggested_tags":   []string{"ai-drafted"},
		"internal_notes":   "Automated draft: verify the proposed next step before closing out.",
	})
}

func (c *DemoClient) history(prompt string) string {
	count := priorTicketCount(prompt)
	summary := "No prior ticket history on record for this customer."
	if count > 0 {
		summary = fmt.Sprintf("Customer has %d prior tickets, mostly operational issues resolved within SLA.", count)
	}
	return mustJSON(map[string]any{
		"summary":        summary,
		"avg_sentiment":  "neutral",
		"top_categories": []string{"maintenance", "billing"},
		"vip_flag":       count >= 5,
	})
}

func promptLine(prompt, prefix string) string {
	for _, line := range strings.Split(prompt, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, prefix) {
			return strings.TrimSpace(strings.TrimPrefix(line, prefix))
		}
	}
	return ""
}

func firstName(customer string) string {
	customer = strings.TrimSpace(customer)
	if customer == "" {
		return "there"
	}
	if i := strings.IndexAny(customer, " <"); i > 0 {
		return customer[:i]
	}
	return customer
}

func priorTicketCount(prompt string) int {
	const marker = "PRIOR TICKETS ("
	i := strings.Index(prompt, marker)
	if i == -1 {
		return 0
	}
	rest := prompt[i+len(marker):]
	j := strings.IndexByte(rest, ')')
	if j == -1 {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimSpace(rest[:j]))
	if err != nil {
		return 0
	}
	return n
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func wordSet(s string) map[string]struct{} {
	words := make(map[string]struct{})
	for _, w := range strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		words[w] = struct{}{}
	}
	return words
}

func hasAnyWord(words map[string]struct{}, keys ...string) bool {
	for _, k := range keys {
		if _, ok := words[k]; ok {
			return true
		}
	}
	return false
}

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(b)
}
