package models

import "testing"

func TestTaskStateTransitions(t *testing.T) {
	tests := []struct {
		name    string
		from    TaskState
		to      TaskState
		allowed bool
	}{
		{"queued to analyzing", TaskStateQueued, TaskStateAnalyzing, true},
		{"queued to cancelled", TaskStateQueued, TaskStateCancelled, true},
		{"queued to dispatching", TaskStateQueued, TaskStateDispatching, false},
		{"analyzing to confirming", TaskStateAnalyzing, TaskStateConfirming, true},
		{"analyzing to failed", TaskStateAnalyzing, TaskStateFailed, true},
		{"analyzing to cancelled", TaskStateAnalyzing, TaskStateCancelled, false},
		{"confirming to dispatching", TaskStateConfirming, TaskStateDispatching, true},
		{"confirming to cancelled", TaskStateConfirming, TaskStateCancelled, true},
		{"confirming to failed", TaskStateConfirming, TaskStateFailed, false},
		{"dispatching to in_progress", TaskStateDispatching, TaskStateInProgress, true},
		{"dispatching to failed", TaskStateDispatching, TaskStateFailed, true},
		{"in_progress to review", TaskStateInProgress, TaskStateReview, true},
		{"in_progress to failed", TaskStateInProgress, TaskStateFailed, true},
		{"review to done", TaskStateReview, TaskStateDone, true},
		{"done is terminal", TaskStateDone, TaskStateQueued, false},
		{"failed is terminal", TaskStateFailed, TaskStateAnalyzing, false},
		{"cancelled is terminal", TaskStateCancelled, TaskStateQueued, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.from.CanTransition(tc.to); got != tc.allowed {
				t.Errorf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.allowed)
			}
		})
	}
}

func TestTaskStateTerminal(t *testing.T) {
	terminal := []TaskState{TaskStateDone, TaskStateFailed, TaskStateCancelled}
	for _, s := range terminal {
		if !s.Terminal() {
			t.Errorf("expected %s to be terminal", s)
		}
	}

	active := []TaskState{TaskStateQueued, TaskStateAnalyzing, TaskStateConfirming,
		TaskStateDispatching, TaskStateInProgress, TaskStateReview}
	for _, s := range active {
		if s.Terminal() {
			t.Errorf("expected %s to not be terminal", s)
		}
	}
}

func TestDispatchResultAllCompleted(t *testing.T) {
	r := &DispatchResult{Subtasks: []SubtaskResult{
		{ID: "s1", Status: SubtaskCompleted},
		{ID: "s2", Status: SubtaskCompleted},
	}}
	if !r.AllCompleted() {
		t.Error("expected AllCompleted for all-completed subtasks")
	}

	r.Subtasks[1].Status = SubtaskFailed
	if r.AllCompleted() {
		t.Error("expected !AllCompleted with a failed subtask")
	}

	empty := &DispatchResult{}
	if empty.AllCompleted() {
		t.Error("expected !AllCompleted with no subtasks")
	}
}

func TestComplexityValid(t *testing.T) {
	for _, c := range []Complexity{ComplexityLow, ComplexityMedium, ComplexityHigh} {
		if !c.Valid() {
			t.Errorf("expected %s to be valid", c)
		}
	}
	if Complexity("extreme").Valid() {
		t.Error("expected unknown complexity to be invalid")
	}
}
