package skills

import (
	"strings"
	"unicode"

	"github.com/ShayCichocki/crew/pkg/models"
)

// Matcher scores sub-tasks against a skill registry. Matching is pure:
// identical inputs always produce identical scores and selections.
type Matcher struct {
	registry *Registry
}

// NewMatcher creates a matcher backed by the given registry.
func NewMatcher(registry *Registry) *Matcher {
	return &Matcher{registry: registry}
}

// Match returns the best skill match for each sub-task, in sub-task order.
// An empty registry yields a zero-confidence match labelled with the
// sub-task's domain, which always requires confirmation.
func (m *Matcher) Match(subtasks []models.Subtask) []models.SkillMatch {
	entries := m.registry.Entries()
	matches := make([]models.SkillMatch, 0, len(subtasks))

	for _, st := range subtasks {
		matches = append(matches, m.matchOne(st, entries))
	}
	return matches
}

func (m *Matcher) matchOne(st models.Subtask, entries []Entry) models.SkillMatch {
	if len(entries) == 0 {
		return models.SkillMatch{
			UserLabel:         st.Domain,
			Confidence:        0,
			NeedsConfirmation: true,
		}
	}

	var best Entry
	bestScore := -1.0
	for _, e := range entries {
		// Ties keep the earlier entry, so registry order decides.
		if s := score(st, e); s > bestScore {
			bestScore = s
			best = e
		}
	}

	label := best.Label
	if label == "" {
		label = best.Skill
	}

	return models.SkillMatch{
		Plugin:            best.Plugin,
		Skill:             best.Skill,
		UserLabel:         label,
		Confidence:        bestScore,
		NeedsConfirmation: bestScore < models.ConfirmationThreshold,
	}
}

// score combines an exact domain-plugin match with token overlap between the
// sub-task description and the entry's text fields. Each half contributes 0.5.
func score(st models.Subtask, e Entry) float64 {
	var s float64

	if joined(tokenize(st.Domain)) == joined(tokenize(e.Plugin)) {
		s += 0.5
	}

	descTokens := tokenize(st.Description)
	entryTokens := tokenSet(tokenize(e.Label + " " + e.Description + " " + e.Plugin + " " + e.Skill))

	shared := 0
	seen := make(map[string]bool, len(descTokens))
	for _, t := range descTokens {
		if seen[t] {
			continue
		}
		seen[t] = true
		if entryTokens[t] {
			shared++
		}
	}

	overlap := float64(shared) / float64(max(1, len(seen)))
	if overlap > 1 {
		overlap = 1
	}
	s += 0.5 * overlap

	return s
}

// tokenize lowercases, splits on non-alphanumeric runs, and keeps tokens of
// length >= 3.
func tokenize(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := fields[:0]
	for _, f := range fields {
		if len(f) >= 3 {
			out = append(out, f)
		}
	}
	return out
}

func tokenSet(tokens []string) map[string]bool {
	set := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		set[t] = true
	}
	return set
}

func joined(tokens []string) string {
	return strings.Join(tokens, " ")
}
