// Package team builds dispatch teams from skill matches and guards spend
// against configured budgets.
package team

import (
	"fmt"
	"strings"

	"github.com/ShayCichocki/crew/pkg/models"
)

// ContextProvider supplies business-context keys for a specialist role.
// Implementations may return nil when no context applies.
type ContextProvider interface {
	KeysForRole(role string) []string
}

// NoContext is a ContextProvider that supplies no keys.
type NoContext struct{}

// KeysForRole returns nil.
func (NoContext) KeysForRole(string) []string { return nil }

// Assembler turns skill matches into a TeamSpec.
type Assembler struct {
	context ContextProvider
}

// NewAssembler creates an assembler. A nil provider behaves like NoContext.
func NewAssembler(provider ContextProvider) *Assembler {
	if provider == nil {
		provider = NoContext{}
	}
	return &Assembler{context: provider}
}

// Assemble dedupes matches into at most MaxSpecialists specialists, keeping
// the first occurrence of each (plugin, skill) pair, and builds the lead
// prompt and cost estimate. The team always has at least one specialist.
func (a *Assembler) Assemble(task models.TaskRequest, decomp *models.TaskDecomposition, matches []models.SkillMatch) models.TeamSpec {
	type key struct{ plugin, skill string }
	seen := make(map[key]bool)

	var specialists []models.SpecialistSpec
	for _, m := range matches {
		k := key{m.Plugin, m.Skill}
		if seen[k] {
			continue
		}
		seen[k] = true

		role := specialistRole(m)
		specialists = append(specialists, models.SpecialistSpec{
			Role:        role,
			SkillPlugin: m.Plugin,
			SkillName:   m.Skill,
			ContextKeys: a.context.KeysForRole(role),
		})
		if len(specialists) == models.MaxSpecialists {
			break
		}
	}

	spec := models.TeamSpec{
		Specialists:   specialists,
		EstimatedCost: EstimateCost(len(specialists)+1, decomp.EstimatedComplexity),
	}
	spec.LeadPrompt = leadPrompt(task, decomp, spec.Specialists)
	return spec
}

// specialistRole derives a stable role name from a match. Zero-confidence
// matches from an empty registry have no plugin or skill, so the user label
// stands in.
func specialistRole(m models.SkillMatch) string {
	if m.Plugin == "" && m.Skill == "" {
		label := strings.ToLower(strings.ReplaceAll(m.UserLabel, " ", "-"))
		if label == "" {
			label = "generalist"
		}
		return label + "-specialist"
	}
	return fmt.Sprintf("%s-%s-specialist", m.Plugin, m.Skill)
}

// leadPrompt builds the coordination prompt for the lead invocation. The
// output is a pure function of its inputs.
func leadPrompt(task models.TaskRequest, decomp *models.TaskDecomposition, specialists []models.SpecialistSpec) string {
	var sb strings.Builder

	sb.WriteString("You are the lead coordinator for a team of specialists.\n\n")
	sb.WriteString("Task:\n")
	sb.WriteString(task.Text)
	sb.WriteString("\n\nSub-tasks:\n")
	for i, st := range decomp.Subtasks {
		fmt.Fprintf(&sb, "%d. [%s] %s\n", i+1, st.Domain, st.Description)
	}
	sb.WriteString("\nTeam:\n")
	for _, s := range specialists {
		fmt.Fprintf(&sb, "- %s (%s/%s)\n", s.Role, s.SkillPlugin, s.SkillName)
	}
	sb.WriteString("\nProduce a short coordination plan: for each sub-task, state which ")
	sb.WriteString("specialist owns it and what a good result looks like. Do not do the ")
	sb.WriteString("sub-task work yourself.")

	return sb.String()
}
