package queue

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/ShayCichocki/crew/pkg/models"
)

func newTestQueue(t *testing.T, onActivate ActivationFunc) *Queue {
	t.Helper()
	q, err := New(filepath.Join(t.TempDir(), "queue.json"), onActivate)
	if err != nil {
		t.Fatal(err)
	}
	return q
}

func req(id string) models.TaskRequest {
	return models.TaskRequest{ID: id, Text: "task " + id, CreatedAt: time.Now()}
}

func TestEnqueueActivatesFirst(t *testing.T) {
	var activated []string
	q := newTestQueue(t, func(r models.TaskRequest) {
		activated = append(activated, r.ID)
	})

	pos, err := q.Enqueue(req("t1"))
	if err != nil {
		t.Fatal(err)
	}
	if pos != 0 {
		t.Errorf("first position = %d, want 0", pos)
	}

	pos, err = q.Enqueue(req("t2"))
	if err != nil {
		t.Fatal(err)
	}
	if pos != 1 {
		t.Errorf("second position = %d, want 1", pos)
	}

	if len(activated) != 1 || activated[0] != "t1" {
		t.Errorf("activated = %v, want [t1] (enqueue never preempts)", activated)
	}
	if active := q.Active(); active == nil || active.ID != "t1" {
		t.Errorf("Active() = %v, want t1", active)
	}
}

func TestFIFOOrder(t *testing.T) {
	var activated []string
	q := newTestQueue(t, func(r models.TaskRequest) {
		activated = append(activated, r.ID)
	})

	for _, id := range []string{"t1", "t2", "t3"} {
		if _, err := q.Enqueue(req(id)); err != nil {
			t.Fatal(err)
		}
	}

	if err := q.CompleteActive("t1"); err != nil {
		t.Fatal(err)
	}
	next, err := q.Dequeue()
	if err != nil {
		t.Fatal(err)
	}
	if next == nil || next.ID != "t2" {
		t.Fatalf("Dequeue() = %v, want t2", next)
	}

	// t3 moved up as the head was removed.
	if pos := q.Position("t3"); pos != 1 {
		t.Errorf("Position(t3) = %d, want 1", pos)
	}

	if err := q.CompleteActive("t2"); err != nil {
		t.Fatal(err)
	}
	next, err = q.Dequeue()
	if err != nil {
		t.Fatal(err)
	}
	if next == nil || next.ID != "t3" {
		t.Fatalf("Dequeue() = %v, want t3", next)
	}

	want := []string{"t1", "t2", "t3"}
	if len(activated) != len(want) {
		t.Fatalf("activated = %v, want %v", activated, want)
	}
	for i := range want {
		if activated[i] != want[i] {
			t.Errorf("activated[%d] = %q, want %q", i, activated[i], want[i])
		}
	}
}

func TestSingleFlight(t *testing.T) {
	q := newTestQueue(t, nil)

	if _, err := q.Enqueue(req("t1")); err != nil {
		t.Fatal(err)
	}
	if _, err := q.Enqueue(req("t2")); err != nil {
		t.Fatal(err)
	}

	// Dequeue with a task active is a no-op.
	next, err := q.Dequeue()
	if err != nil {
		t.Fatal(err)
	}
	if next != nil {
		t.Errorf("Dequeue() = %v with active task, want nil", next)
	}
	if active := q.Active(); active == nil || active.ID != "t1" {
		t.Errorf("Active() = %v, want t1", active)
	}
}

func TestCancel(t *testing.T) {
	q := newTestQueue(t, nil)

	q.Enqueue(req("t1"))
	q.Enqueue(req("t2"))
	q.Enqueue(req("t3"))

	found, err := q.Cancel("t2")
	if err != nil || !found {
		t.Fatalf("Cancel(t2) = %v, %v", found, err)
	}
	if pos := q.Position("t2"); pos != -1 {
		t.Errorf("Position(t2) = %d after cancel, want -1", pos)
	}
	if pos := q.Position("t3"); pos != 1 {
		t.Errorf("Position(t3) = %d, want 1 after t2 removed", pos)
	}

	found, err = q.Cancel("missing")
	if err != nil || found {
		t.Errorf("Cancel(missing) = %v, %v, want false, nil", found, err)
	}

	found, err = q.Cancel("t1")
	if err != nil || !found {
		t.Fatalf("Cancel(t1) = %v, %v", found, err)
	}
	if q.Active() != nil {
		t.Error("active task survived cancellation")
	}
}

func TestCancelPendingLeavesActiveAlone(t *testing.T) {
	q := newTestQueue(t, nil)

	q.Enqueue(req("t1"))
	q.Enqueue(req("t2"))

	found, err := q.CancelPending("t1")
	if err != nil || found {
		t.Errorf("CancelPending(active t1) = %v, %v, want false, nil", found, err)
	}
	if active := q.Active(); active == nil || active.ID != "t1" {
		t.Fatalf("active = %v, want t1 untouched", active)
	}

	found, err = q.CancelPending("t2")
	if err != nil || !found {
		t.Fatalf("CancelPending(t2) = %v, %v", found, err)
	}
	if pos := q.Position("t2"); pos != -1 {
		t.Errorf("Position(t2) = %d after cancel, want -1", pos)
	}
}

func TestRecoveryRequeuesActive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queue.json")

	q, err := New(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	q.Enqueue(req("t1"))
	q.Enqueue(req("t2"))

	// Simulated restart: reload the same snapshot.
	recovered, err := New(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	if recovered.Active() != nil {
		t.Error("recovered queue has an active task, want none until Dequeue")
	}
	if pos := recovered.Position("t1"); pos != 1 {
		t.Errorf("Position(t1) = %d, want 1 (head of pending)", pos)
	}
	if pos := recovered.Position("t2"); pos != 2 {
		t.Errorf("Position(t2) = %d, want 2", pos)
	}

	next, err := recovered.Dequeue()
	if err != nil {
		t.Fatal(err)
	}
	if next == nil || next.ID != "t1" {
		t.Errorf("Dequeue() after recovery = %v, want t1", next)
	}
}

func TestEnqueueAfterRecoveryKeepsPendingPriority(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queue.json")

	q, err := New(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	q.Enqueue(req("t1"))

	recovered, err := New(path, nil)
	if err != nil {
		t.Fatal(err)
	}

	// A fresh submission must not jump ahead of the recovered task.
	pos, err := recovered.Enqueue(req("t2"))
	if err != nil {
		t.Fatal(err)
	}
	if pos != 2 {
		t.Errorf("Enqueue(t2) position = %d, want 2 behind recovered t1", pos)
	}

	next, err := recovered.Dequeue()
	if err != nil {
		t.Fatal(err)
	}
	if next == nil || next.ID != "t1" {
		t.Errorf("Dequeue() = %v, want recovered t1 first", next)
	}
}

func TestSnapshotIsCopy(t *testing.T) {
	q := newTestQueue(t, nil)
	q.Enqueue(req("t1"))
	q.Enqueue(req("t2"))

	snap := q.Snapshot()
	snap.Pending[0].ID = "mutated"

	if pos := q.Position("t2"); pos != 1 {
		t.Error("mutating the snapshot changed queue state")
	}
}
