package checkpoint

import (
	"testing"
	"time"

	"github.com/ShayCichocki/crew/pkg/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestRequestRoundTrip(t *testing.T) {
	s := newTestStore(t)
	req := models.TaskRequest{
		ID:        "t1",
		Text:      "Draft a shipping delay notice",
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}

	if err := s.SaveRequest(req); err != nil {
		t.Fatalf("SaveRequest() error = %v", err)
	}

	got, ok, err := s.LoadRequest("t1")
	if err != nil || !ok {
		t.Fatalf("LoadRequest() = %v, %v, %v", got, ok, err)
	}
	if got.Text != req.Text {
		t.Errorf("Text = %q, want %q", got.Text, req.Text)
	}
}

func TestMissingSlotIsAbsentNotError(t *testing.T) {
	s := newTestStore(t)

	if _, ok, err := s.LoadRequest("never-written"); ok || err != nil {
		t.Errorf("LoadRequest() = ok=%v err=%v, want absent with nil error", ok, err)
	}
	if _, ok, err := s.LoadDecomposition("never-written"); ok || err != nil {
		t.Errorf("LoadDecomposition() = ok=%v err=%v, want absent with nil error", ok, err)
	}
	if _, ok, err := s.LoadFinal("never-written"); ok || err != nil {
		t.Errorf("LoadFinal() = ok=%v err=%v, want absent with nil error", ok, err)
	}
	if results, err := s.LoadSubtaskResults("never-written"); err != nil || len(results) != 0 {
		t.Errorf("LoadSubtaskResults() = %v, %v, want empty with nil error", results, err)
	}
}

func TestSlotOverwriteKeepsLatest(t *testing.T) {
	s := newTestStore(t)

	first := &models.TaskDecomposition{
		Subtasks:            []models.Subtask{{Description: "old", Domain: "generic"}},
		EstimatedComplexity: models.ComplexityLow,
	}
	second := &models.TaskDecomposition{
		Subtasks:            []models.Subtask{{Description: "new", Domain: "marketing"}},
		EstimatedComplexity: models.ComplexityMedium,
	}

	if err := s.SaveDecomposition("t1", first); err != nil {
		t.Fatal(err)
	}
	if err := s.SaveDecomposition("t1", second); err != nil {
		t.Fatal(err)
	}

	got, ok, err := s.LoadDecomposition("t1")
	if err != nil || !ok {
		t.Fatalf("LoadDecomposition() ok=%v err=%v", ok, err)
	}
	if got.Subtasks[0].Description != "new" {
		t.Errorf("Description = %q, want latest write", got.Subtasks[0].Description)
	}
}

func TestSubtaskResultTransitions(t *testing.T) {
	s := newTestStore(t)

	running := models.SubtaskResult{
		ID: "sub-1", AgentName: "coder-alpha", Status: models.SubtaskRunning,
	}
	if err := s.SaveSubtaskResult("t1", running); err != nil {
		t.Fatal(err)
	}

	done := running
	done.Status = models.SubtaskCompleted
	done.Result = "all set"
	if err := s.SaveSubtaskResult("t1", done); err != nil {
		t.Fatal(err)
	}

	results, err := s.LoadSubtaskResults("t1")
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1 (same ID overwrites)", len(results))
	}
	if results[0].Status != models.SubtaskCompleted || results[0].Result != "all set" {
		t.Errorf("result = %+v, want terminal state", results[0])
	}
}

func TestFinalResult(t *testing.T) {
	s := newTestStore(t)

	final := models.DispatchResult{
		TaskID: "t1",
		Status: models.DispatchFailed,
		Reason: "specialist sub-2 timed out",
		Subtasks: []models.SubtaskResult{
			{ID: "sub-1", Status: models.SubtaskCompleted, Result: "ok"},
			{ID: "sub-2", Status: models.SubtaskFailed, Error: "timeout after 5m"},
		},
	}
	if err := s.SaveFinal("t1", final); err != nil {
		t.Fatal(err)
	}

	got, ok, err := s.LoadFinal("t1")
	if err != nil || !ok {
		t.Fatalf("LoadFinal() ok=%v err=%v", ok, err)
	}
	if got.Status != models.DispatchFailed || got.Reason == "" {
		t.Errorf("final = %+v, want failed with reason", got)
	}
	if len(got.Subtasks) != 2 {
		t.Errorf("got %d subtasks, want 2", len(got.Subtasks))
	}
}

func TestSavePrompt(t *testing.T) {
	s := newTestStore(t)
	if err := s.SavePrompt("t1", "lead", "You are the lead coordinator."); err != nil {
		t.Fatalf("SavePrompt() error = %v", err)
	}
}
