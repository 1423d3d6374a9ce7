package skills

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/ShayCichocki/crew/pkg/models"
)

func testRegistry() *Registry {
	r := NewRegistry()
	r.Add(Entry{
		Plugin:      "marketing",
		Skill:       "email-campaign",
		Label:       "Email Campaign",
		Description: "Draft and schedule marketing email campaigns for customers",
	})
	r.Add(Entry{
		Plugin:      "support",
		Skill:       "ticket-triage",
		Label:       "Ticket Triage",
		Description: "Classify and prioritize incoming support tickets",
	})
	r.Add(Entry{
		Plugin:      "finance",
		Skill:       "invoice-review",
		Label:       "Invoice Review",
		Description: "Review invoices for billing errors and discrepancies",
	})
	return r
}

func TestMatchEmptyRegistry(t *testing.T) {
	m := NewMatcher(NewRegistry())

	matches := m.Match([]models.Subtask{
		{Description: "Draft a shipping delay notice", Domain: "generic"},
	})
	if len(matches) != 1 {
		t.Fatalf("got %d matches, want 1", len(matches))
	}

	match := matches[0]
	if match.Confidence != 0 {
		t.Errorf("Confidence = %v, want 0", match.Confidence)
	}
	if match.UserLabel != "generic" {
		t.Errorf("UserLabel = %q, want subtask domain", match.UserLabel)
	}
	if !match.NeedsConfirmation {
		t.Error("NeedsConfirmation = false, want true")
	}
}

func TestMatchDomainAndOverlap(t *testing.T) {
	m := NewMatcher(testRegistry())

	matches := m.Match([]models.Subtask{
		{Description: "Draft marketing email campaigns for customers", Domain: "marketing"},
	})

	match := matches[0]
	if match.Plugin != "marketing" || match.Skill != "email-campaign" {
		t.Fatalf("matched %s/%s, want marketing/email-campaign", match.Plugin, match.Skill)
	}
	if match.Confidence <= 0.5 {
		t.Errorf("Confidence = %v, want > 0.5 with domain match plus overlap", match.Confidence)
	}
	if match.UserLabel != "Email Campaign" {
		t.Errorf("UserLabel = %q, want %q", match.UserLabel, "Email Campaign")
	}
}

func TestMatchDeterministic(t *testing.T) {
	m := NewMatcher(testRegistry())
	subtasks := []models.Subtask{
		{Description: "Review invoices for billing errors", Domain: "finance"},
		{Description: "Triage incoming support tickets", Domain: "support"},
	}

	first := m.Match(subtasks)
	for i := 0; i < 10; i++ {
		if got := m.Match(subtasks); !reflect.DeepEqual(got, first) {
			t.Fatalf("run %d differs: %+v vs %+v", i, got, first)
		}
	}
}

func TestMatchTieKeepsRegistryOrder(t *testing.T) {
	r := NewRegistry()
	r.Add(Entry{Plugin: "alpha", Skill: "first", Label: "First"})
	r.Add(Entry{Plugin: "alpha", Skill: "second", Label: "Second"})
	m := NewMatcher(r)

	matches := m.Match([]models.Subtask{
		{Description: "something unrelated entirely", Domain: "alpha"},
	})
	if matches[0].Skill != "first" {
		t.Errorf("tie broke to %q, want earliest entry %q", matches[0].Skill, "first")
	}
}

func TestConfirmationBoundary(t *testing.T) {
	tests := []struct {
		confidence float64
		want       bool
	}{
		{0.69, true},
		{0.7, false},
		{0.71, false},
	}
	for _, tt := range tests {
		got := tt.confidence < models.ConfirmationThreshold
		if got != tt.want {
			t.Errorf("confidence %v: needsConfirmation = %v, want %v", tt.confidence, got, tt.want)
		}
	}
}

func TestLoadRegistry(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "skills.yaml")
	content := `skills:
  - plugin: marketing
    skill: email-campaign
    label: Email Campaign
    description: Draft marketing emails
    content: Step one. Step two.
  - plugin: support
    skill: ticket-triage
    label: Ticket Triage
    description: Triage tickets
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	r, err := LoadRegistry(path)
	if err != nil {
		t.Fatalf("LoadRegistry() error = %v", err)
	}
	if r.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", r.Len())
	}

	body, ok := r.Content("marketing", "email-campaign")
	if !ok {
		t.Fatal("Content() not found for marketing/email-campaign")
	}
	if body != "Step one. Step two." {
		t.Errorf("Content() = %q", body)
	}

	if _, ok := r.Content("nope", "missing"); ok {
		t.Error("Content() found a missing skill")
	}
}

func TestLoadRegistryMissingFile(t *testing.T) {
	r, err := LoadRegistry(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("LoadRegistry() error = %v, want nil for missing file", err)
	}
	if r.Len() != 0 {
		t.Errorf("Len() = %d, want 0", r.Len())
	}
}
