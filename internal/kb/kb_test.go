package kb

import (
	"strings"
	"testing"

	"github.com/simplebalance89-ai/c365-cs-agent/internal/models"
)

func TestLoad_EmbeddedDocumentParses(t *testing.T) {
	k, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(k.SLA.EscalationTriggers) == 0 {
		t.Fatalf("expected escalation triggers")
	}
	if len(k.Services) == 0 {
		t.Fatalf("expected services")
	}
	if _, ok := k.Policies["billing"]; !ok {
		t.Fatalf("expected a billing policy")
	}
}

func TestContext_ScopesPoliciesByCategory(t *testing.T) {
	k, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	scoped := k.Context(models.CategoryBilling)
	if !strings.Contains(scoped, "billing: ") {
		t.Fatalf("expected billing policy in scoped context")
	}
	if strings.Contains(scoped, "- nda: ") {
		t.Fatalf("expected nda policy to be scoped out, got:\n%s", scoped)
	}

	full := k.Context()
	if !strings.Contains(full, "- nda: ") {
		t.Fatalf("expected all policies in unscoped context")
	}
}

func TestContext_UnmatchedCategoryIncludesAllPolicies(t *testing.T) {
	k, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	got := k.Context(models.CategoryMaintenance)
	if !strings.Contains(got, "- sow_terms: ") {
		t.Fatalf("expected full policy set when no category matches")
	}
	if !strings.Contains(got, "The Conveyance365 Team") {
		t.Fatalf("expected brand voice sign-off guidance")
	}
}
