package models

// ConfirmationThreshold is the confidence below which a skill match needs
// operator confirmation. A match at exactly the threshold does not.
const ConfirmationThreshold = 0.7

// MaxSpecialists is the hard cap on specialists in a single team.
const MaxSpecialists = 4

// SkillMatch pairs a subtask with the best-scoring registry skill.
// Matches are ephemeral and recomputed on every run.
type SkillMatch struct {
	// Plugin is the owning plugin of the matched skill.
	Plugin string `json:"plugin"`
	// Skill is the skill name within the plugin.
	Skill string `json:"skill"`
	// UserLabel is the operator-facing label for the match. When the
	// registry is empty this falls back to the subtask domain.
	UserLabel string `json:"user_label"`
	// Confidence estimates fit between the subtask and the skill, in [0,1].
	Confidence float64 `json:"confidence"`
	// NeedsConfirmation is true iff Confidence < ConfirmationThreshold.
	NeedsConfirmation bool `json:"needs_confirmation"`
}

// SpecialistSpec describes one specialist slot in an assembled team.
type SpecialistSpec struct {
	// Role is the specialist's role label, derived from the matched skill.
	Role string `json:"role"`
	// SkillPlugin is the plugin owning the specialist's skill.
	SkillPlugin string `json:"skill_plugin"`
	// SkillName is the skill the specialist executes.
	SkillName string `json:"skill_name"`
	// ContextKeys are business-context keys the specialist may read.
	ContextKeys []string `json:"context_keys,omitempty"`
}

// TeamSpec is the assembled team for a task: up to MaxSpecialists
// specialists plus one lead, with a pre-launch cost estimate.
// Specialists are deduplicated by (plugin, skill).
type TeamSpec struct {
	// LeadPrompt is the coordination prompt for the lead invocation.
	// It is generated deterministically from the decomposition and roster.
	LeadPrompt string `json:"lead_prompt"`
	// Specialists are the team members, 1 to MaxSpecialists of them.
	Specialists []SpecialistSpec `json:"specialists"`
	// EstimatedCost is the pre-launch cost estimate for the whole team.
	EstimatedCost CostEstimate `json:"estimated_cost"`
}

// CostEstimate is a deterministic projection of token and dollar spend
// for a team, computed from team size and complexity before launch.
type CostEstimate struct {
	// EstimatedTokens is the projected total token consumption.
	EstimatedTokens int64 `json:"estimated_tokens"`
	// EstimatedCostUSD is the projected spend in dollars, rounded to
	// four decimal places.
	EstimatedCostUSD float64 `json:"estimated_cost_usd"`
	// Breakdown itemizes the token estimate by component.
	Breakdown map[string]int64 `json:"breakdown"`
}
