package analyzer

import (
	"context"
	"errors"
	"testing"

	"github.com/ShayCichocki/crew/internal/backend"
	"github.com/ShayCichocki/crew/pkg/models"
)

// fakeBackend returns a canned ExecuteResult and counts invocations.
type fakeBackend struct {
	result *backend.ExecuteResult
	err    error
	calls  int
}

func (f *fakeBackend) Name() string { return "fake" }

func (f *fakeBackend) Execute(ctx context.Context, opts backend.ExecuteOptions) (*backend.ExecuteResult, error) {
	f.calls++
	return f.result, f.err
}

func TestAnalyzeParsesResponse(t *testing.T) {
	fb := &fakeBackend{
		result: &backend.ExecuteResult{
			Output: `Here is the breakdown:
` + "```json" + `
{
  "subtasks": [
    {"description": "Draft the campaign email", "domain": "marketing"},
    {"description": "Review send list for opt-outs", "domain": "support"}
  ],
  "domains": ["marketing", "support"],
  "estimated_complexity": "medium"
}
` + "```",
		},
	}

	a := New(fb)
	decomp, err := a.Analyze(context.Background(), "Launch the Q3 campaign")
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if fb.calls != 1 {
		t.Errorf("backend called %d times, want exactly 1", fb.calls)
	}
	if len(decomp.Subtasks) != 2 {
		t.Fatalf("got %d subtasks, want 2", len(decomp.Subtasks))
	}
	if decomp.Subtasks[0].Domain != "marketing" {
		t.Errorf("Subtasks[0].Domain = %q", decomp.Subtasks[0].Domain)
	}
	if decomp.EstimatedComplexity != models.ComplexityMedium {
		t.Errorf("EstimatedComplexity = %q, want medium", decomp.EstimatedComplexity)
	}
	if len(decomp.Domains) != 2 {
		t.Errorf("Domains = %v, want 2 entries", decomp.Domains)
	}
}

func TestAnalyzeFallbackOnGarbage(t *testing.T) {
	fb := &fakeBackend{
		result: &backend.ExecuteResult{Output: "I could not think of anything structured."},
	}

	a := New(fb)
	decomp, err := a.Analyze(context.Background(), "Draft a shipping delay notice")
	if err != nil {
		t.Fatalf("Analyze() error = %v, want fallback instead", err)
	}
	if len(decomp.Subtasks) != 1 {
		t.Fatalf("got %d subtasks, want 1", len(decomp.Subtasks))
	}
	st := decomp.Subtasks[0]
	if st.Description != "Draft a shipping delay notice" {
		t.Errorf("fallback description = %q, want original text", st.Description)
	}
	if st.Domain != DefaultDomain {
		t.Errorf("fallback domain = %q, want %q", st.Domain, DefaultDomain)
	}
	if decomp.EstimatedComplexity != models.ComplexityLow {
		t.Errorf("fallback complexity = %q, want low", decomp.EstimatedComplexity)
	}
}

func TestAnalyzeBackendFailure(t *testing.T) {
	fb := &fakeBackend{
		result: &backend.ExecuteResult{ExitCode: 1, Error: "process exploded"},
	}

	a := New(fb)
	if _, err := a.Analyze(context.Background(), "anything"); err == nil {
		t.Fatal("Analyze() error = nil, want error for backend failure")
	}
	if fb.calls != 1 {
		t.Errorf("backend called %d times, want exactly 1 (no retries)", fb.calls)
	}
}

func TestAnalyzeBackendError(t *testing.T) {
	fb := &fakeBackend{
		result: &backend.ExecuteResult{ExitCode: -1, Error: "timeout after 5m"},
		err:    errors.New("context deadline exceeded"),
	}

	a := New(fb)
	if _, err := a.Analyze(context.Background(), "anything"); err == nil {
		t.Fatal("Analyze() error = nil, want surfaced backend error")
	}
}

func TestParseResponseEmptySubtasks(t *testing.T) {
	_, err := ParseResponse(`{"subtasks": [], "domains": [], "estimated_complexity": "low"}`)
	if err == nil {
		t.Fatal("ParseResponse() accepted empty subtask list")
	}
}

func TestParseResponseDefaultsDomain(t *testing.T) {
	decomp, err := ParseResponse(`{"subtasks": [{"description": "Do the thing", "domain": ""}], "estimated_complexity": "weird"}`)
	if err != nil {
		t.Fatalf("ParseResponse() error = %v", err)
	}
	if decomp.Subtasks[0].Domain != DefaultDomain {
		t.Errorf("Domain = %q, want %q", decomp.Subtasks[0].Domain, DefaultDomain)
	}
	if decomp.EstimatedComplexity != models.ComplexityLow {
		t.Errorf("invalid complexity should default to low, got %q", decomp.EstimatedComplexity)
	}
}
