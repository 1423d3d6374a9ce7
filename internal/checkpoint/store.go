// Package checkpoint provides durable per-task persistence. It is the source
// of truth for what happened to a task across restarts.
package checkpoint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ShayCichocki/crew/pkg/models"
)

// Store persists task artifacts under a root directory, one subdirectory per
// task. Slot writes are idempotent last-write-wins; reads of unwritten slots
// report absence, never an error.
type Store struct {
	root string
}

// NewStore creates a store rooted at dir, creating it if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create checkpoint root: %w", err)
	}
	return &Store{root: dir}, nil
}

// TaskDir returns the directory holding a task's artifacts.
func (s *Store) TaskDir(taskID string) string {
	return filepath.Join(s.root, taskID)
}

// ResultsDir returns the directory holding a task's specialist results.
func (s *Store) ResultsDir(taskID string) string {
	return filepath.Join(s.TaskDir(taskID), "results")
}

// CheckpointsDir returns the directory for intermediate specialist writes.
func (s *Store) CheckpointsDir(taskID string) string {
	return filepath.Join(s.TaskDir(taskID), "checkpoints")
}

// EnsureTask creates the task's directory layout.
func (s *Store) EnsureTask(taskID string) error {
	for _, dir := range []string{
		s.TaskDir(taskID),
		filepath.Join(s.TaskDir(taskID), "prompts"),
		s.ResultsDir(taskID),
		s.CheckpointsDir(taskID),
	} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create task dir: %w", err)
		}
	}
	return nil
}

// SaveRequest persists the original task request.
func (s *Store) SaveRequest(req models.TaskRequest) error {
	if err := s.EnsureTask(req.ID); err != nil {
		return err
	}
	return writeJSON(filepath.Join(s.TaskDir(req.ID), "request.json"), req)
}

// LoadRequest reads a task's request. The second return is false if the slot
// has not been written.
func (s *Store) LoadRequest(taskID string) (models.TaskRequest, bool, error) {
	var req models.TaskRequest
	ok, err := readJSON(filepath.Join(s.TaskDir(taskID), "request.json"), &req)
	return req, ok, err
}

// SaveDecomposition persists the analyzer's output.
func (s *Store) SaveDecomposition(taskID string, decomp *models.TaskDecomposition) error {
	if err := s.EnsureTask(taskID); err != nil {
		return err
	}
	return writeJSON(filepath.Join(s.TaskDir(taskID), "decomposition.json"), decomp)
}

// LoadDecomposition reads a task's decomposition, if written.
func (s *Store) LoadDecomposition(taskID string) (*models.TaskDecomposition, bool, error) {
	var decomp models.TaskDecomposition
	ok, err := readJSON(filepath.Join(s.TaskDir(taskID), "decomposition.json"), &decomp)
	if !ok || err != nil {
		return nil, ok, err
	}
	return &decomp, true, nil
}

// SavePrompt persists a generated prompt for audit.
func (s *Store) SavePrompt(taskID, name, content string) error {
	if err := s.EnsureTask(taskID); err != nil {
		return err
	}
	path := filepath.Join(s.TaskDir(taskID), "prompts", sanitize(name)+".txt")
	return atomicWrite(path, []byte(content))
}

// SaveSubtaskResult persists one specialist's result. Called on every status
// transition, so a running record is later overwritten by the terminal one.
func (s *Store) SaveSubtaskResult(taskID string, result models.SubtaskResult) error {
	if err := s.EnsureTask(taskID); err != nil {
		return err
	}
	path := filepath.Join(s.ResultsDir(taskID), sanitize(result.ID)+".json")
	return writeJSON(path, result)
}

// LoadSubtaskResults reads every written specialist result, sorted by ID.
func (s *Store) LoadSubtaskResults(taskID string) ([]models.SubtaskResult, error) {
	entries, err := os.ReadDir(s.ResultsDir(taskID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read results dir: %w", err)
	}

	var results []models.SubtaskResult
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		var r models.SubtaskResult
		ok, err := readJSON(filepath.Join(s.ResultsDir(taskID), entry.Name()), &r)
		if err != nil {
			return nil, err
		}
		if ok {
			results = append(results, r)
		}
	}

	sort.Slice(results, func(i, j int) bool { return results[i].ID < results[j].ID })
	return results, nil
}

// SaveFinal persists the terminal dispatch result.
func (s *Store) SaveFinal(taskID string, result models.DispatchResult) error {
	if err := s.EnsureTask(taskID); err != nil {
		return err
	}
	return writeJSON(filepath.Join(s.TaskDir(taskID), "final.json"), result)
}

// LoadFinal reads a task's terminal result, if written.
func (s *Store) LoadFinal(taskID string) (models.DispatchResult, bool, error) {
	var result models.DispatchResult
	ok, err := readJSON(filepath.Join(s.TaskDir(taskID), "final.json"), &result)
	return result, ok, err
}

// writeJSON marshals v and writes it atomically.
func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}
	return atomicWrite(path, data)
}

// readJSON unmarshals path into v, reporting false if it does not exist.
func readJSON(path string, v any) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("unmarshal %s: %w", filepath.Base(path), err)
	}
	return true, nil
}

// atomicWrite writes to a temp file in the target directory and renames it
// into place, so readers never observe a partial file.
func atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}

// sanitize keeps file names within the task directory.
func sanitize(name string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '.', ' ':
			return '-'
		}
		return r
	}, name)
}
