// Package skills provides a read-only skill registry and the matcher that
// scores sub-tasks against it.
package skills

import (
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

// Entry describes a single skill a specialist can be dispatched with.
type Entry struct {
	// Plugin is the owning plugin name, e.g. "marketing".
	Plugin string `yaml:"plugin"`
	// Skill is the skill identifier within the plugin.
	Skill string `yaml:"skill"`
	// Label is the human-readable name shown to operators.
	Label string `yaml:"label"`
	// Description summarizes what the skill does.
	Description string `yaml:"description"`
	// Content holds the instructional body injected into specialist prompts.
	Content string `yaml:"content,omitempty"`
}

// Registry is a read-only collection of skill entries. Lookup order is the
// order entries were registered, which makes match tie-breaking stable.
type Registry struct {
	mu      sync.RWMutex
	entries []Entry
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// registryFile is the on-disk YAML shape.
type registryFile struct {
	Skills []Entry `yaml:"skills"`
}

// LoadRegistry reads a registry from a YAML file. A missing file yields an
// empty registry rather than an error.
func LoadRegistry(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewRegistry(), nil
		}
		return nil, fmt.Errorf("reading skills file: %w", err)
	}

	var file registryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing skills file %s: %w", path, err)
	}

	r := NewRegistry()
	for _, e := range file.Skills {
		if e.Plugin == "" || e.Skill == "" {
			return nil, fmt.Errorf("skills file %s: entry missing plugin or skill name", path)
		}
		r.Add(e)
	}
	return r, nil
}

// Add appends an entry to the registry.
func (r *Registry) Add(e Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, e)
}

// Entries returns a copy of all registered entries in registration order.
func (r *Registry) Entries() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Len returns the number of registered entries.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Content returns the instructional content for a (plugin, skill) pair.
func (r *Registry) Content(plugin, skill string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.entries {
		if e.Plugin == plugin && e.Skill == skill {
			return e.Content, true
		}
	}
	return "", false
}

// maxPromptContent caps how much skill content is embedded in a prompt.
const maxPromptContent = 4000

// TruncateContent shortens instructional content for prompt embedding.
func TruncateContent(content string) string {
	if len(content) <= maxPromptContent {
		return content
	}
	return content[:maxPromptContent] + "\n[content truncated]"
}
