// Package kb holds the static company knowledge injected into generation
// prompts: services, policies, SLA standards, FAQ, contacts, and brand voice.
// The document ships embedded in the binary and is parsed once at startup.
package kb

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/simplebalance89-ai/c365-cs-agent/internal/models"
)

//go:embed knowledge.yaml
var rawKnowledge []byte

type Service struct {
	Name    string `yaml:"name"`
	Summary string `yaml:"summary"`
	Pricing string `yaml:"pricing"`
}

type QA struct {
	Q string `yaml:"q"`
	A string `yaml:"a"`
}

type SLA struct {
	ResponseTimes      map[string]string `yaml:"response_times"`
	EscalationTriggers []string          `yaml:"escalation_triggers"`
	EscalationContact  string            `yaml:"escalation_contact"`
}

type KnowledgeBase struct {
	Company    string            `yaml:"company"`
	BrandVoice string            `yaml:"brand_voice"`
	SLA        SLA               `yaml:"sla"`
	Services   []Service         `yaml:"services"`
	Policies   map[string]string `yaml:"policies"`
	FAQ        []QA              `yaml:"faq"`
	Contacts   map[string]string `yaml:"contacts"`
}

// Load parses the embedded document. It fails only when the embedded YAML
// itself is broken or empty.
func Load() (*KnowledgeBase, error) {
	var k KnowledgeBase
	if err := yaml.Unmarshal(rawKnowledge, &k); err != nil {
		return nil, fmt.Errorf("parse embedded knowledge base: %w", err)
	}
	if strings.TrimSpace(k.Company) == "" {
		return nil, fmt.Errorf("embedded knowledge base has no company overview")
	}
	return &k, nil
}

// Context renders the knowledge sections for prompt injection. Categories
// scope the policy section to matching policy keys; with no categories, or
// none matching, every policy is included.
func (k *KnowledgeBase) Context(categories ...models.Category) string {
	var b strings.Builder

	b.WriteString("COMPANY OVERVIEW:\n")
	b.WriteString(strings.TrimSpace(k.Company))

	b.WriteString("\n\nBRAND VOICE:\n")
	b.WriteString(strings.TrimSpace(k.BrandVoice))

	b.WriteString("\n\nSLA RESPONSE TIMES:\n")
	for _, level := range slaLevels(k.SLA.ResponseTimes) {
		fmt.Fprintf(&b, "- %s: %s\n", level, k.SLA.ResponseTimes[level])
	}

	fmt.Fprintf(&b, "\nESCALATION CONTACT: %s\n", k.SLA.EscalationContact)

	b.WriteString("\nSERVICES:\n")
	for _, s := range k.Services {
		fmt.Fprintf(&b, "- %s (%s): %s\n", s.Name, s.Pricing, s.Summary)
	}

	if policies := k.policiesFor(categories); len(policies) > 0 {
		b.WriteString("\nRELEVANT POLICIES:\n")
		for _, key := range policies {
			fmt.Fprintf(&b, "- %s: %s\n", key, k.Policies[key])
		}
	}

	b.WriteString("\nFAQ:\n")
	for _, qa := range k.FAQ {
		fmt.Fprintf(&b, "Q: %s\nA: %s\n", qa.Q, qa.A)
	}

	b.WriteString("\nCONTACT DIRECTORY:\n")
	for _, key := range sortedKeys(k.Contacts) {
		fmt.Fprintf(&b, "- %s: %s\n", key, k.Contacts[key])
	}

	return b.String()
}

// EscalationTriggers feeds the classifier prompt.
func (k *KnowledgeBase) EscalationTriggers() []string {
	return k.SLA.EscalationTriggers
}

func (k *KnowledgeBase) policiesFor(categories []models.Category) []string {
	if len(categories) > 0 {
		var matched []string
		for _, c := range categories {
			if _, ok := k.Policies[string(c)]; ok {
				matched = append(matched, string(c))
			}
		}
		if len(matched) > 0 {
			sort.Strings(matched)
			return matched
		}
	}
	return sortedKeys(k.Policies)
}

func slaLevels(times map[string]string) []string {
	order := []string{"critical", "high", "normal", "low"}
	var levels []string
	for _, l := range order {
		if _, ok := times[l]; ok {
			levels = append(levels, l)
		}
	}
	for _, l := range sortedKeys(times) {
		known := false
		for _, o := range order {
			if l == o {
				known = true
				break
			}
		}
		if !known {
			levels = append(levels, l)
		}
	}
	return levels
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
