// Package analyzer turns free-text task requests into structured
// decompositions via a single backend call.
package analyzer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ShayCichocki/crew/internal/backend"
	"github.com/ShayCichocki/crew/internal/logging"
	"github.com/ShayCichocki/crew/pkg/models"
)

// DefaultDomain is assigned when no domain can be determined.
const DefaultDomain = "generic"

// analysisResponse is the JSON structure returned by the backend.
type analysisResponse struct {
	Subtasks []struct {
		Description string `json:"description"`
		Domain      string `json:"domain"`
	} `json:"subtasks"`
	Domains             []string `json:"domains"`
	EstimatedComplexity string   `json:"estimated_complexity"`
}

// Analyzer decomposes task text into sub-tasks. It makes exactly one backend
// call per analysis and never retries.
type Analyzer struct {
	backend backend.Backend
	log     *logging.Logger
}

// New creates an analyzer using the given execution backend.
func New(b backend.Backend) *Analyzer {
	return &Analyzer{
		backend: b,
		log:     logging.Component("analyzer"),
	}
}

// Analyze runs one backend call and parses the result into a decomposition.
// Unparseable output falls back to a single sub-task covering the whole text;
// a hard backend failure is returned as an error, never downgraded to the
// fallback.
func (a *Analyzer) Analyze(ctx context.Context, text string) (*models.TaskDecomposition, error) {
	prompt := fmt.Sprintf(analysisPrompt, text)

	result, err := a.backend.Execute(ctx, backend.ExecuteOptions{Prompt: prompt})
	if err != nil {
		return nil, fmt.Errorf("analysis backend: %w", err)
	}
	if !result.IsSuccess() {
		return nil, fmt.Errorf("analysis backend failed (exit %d): %s", result.ExitCode, result.Error)
	}

	decomp, err := ParseResponse(result.Output)
	if err != nil {
		a.log.Warnf("unparseable analysis output, using single-subtask fallback: %v", err)
		return fallback(text), nil
	}
	return decomp, nil
}

// ParseResponse parses backend output into a TaskDecomposition. Output may be
// wrapped in prose or markdown fences; everything outside the outermost JSON
// object is stripped before parsing.
func ParseResponse(response string) (*models.TaskDecomposition, error) {
	jsonStart := strings.Index(response, "{")
	jsonEnd := strings.LastIndex(response, "}")
	if jsonStart == -1 || jsonEnd == -1 || jsonEnd <= jsonStart {
		return nil, fmt.Errorf("no JSON object found in response (%d chars)", len(response))
	}

	var parsed analysisResponse
	if err := json.Unmarshal([]byte(response[jsonStart:jsonEnd+1]), &parsed); err != nil {
		return nil, fmt.Errorf("unmarshal analysis JSON: %w", err)
	}
	if len(parsed.Subtasks) == 0 {
		return nil, fmt.Errorf("empty subtask list returned")
	}

	decomp := &models.TaskDecomposition{
		Subtasks: make([]models.Subtask, 0, len(parsed.Subtasks)),
	}

	seen := make(map[string]bool)
	for _, st := range parsed.Subtasks {
		domain := strings.ToLower(strings.TrimSpace(st.Domain))
		if domain == "" {
			domain = DefaultDomain
		}
		decomp.Subtasks = append(decomp.Subtasks, models.Subtask{
			Description: strings.TrimSpace(st.Description),
			Domain:      domain,
		})
		if !seen[domain] {
			seen[domain] = true
			decomp.Domains = append(decomp.Domains, domain)
		}
	}

	complexity := models.Complexity(strings.ToLower(parsed.EstimatedComplexity))
	if !complexity.Valid() {
		complexity = models.ComplexityLow
	}
	decomp.EstimatedComplexity = complexity

	return decomp, nil
}

// fallback returns the single-subtask decomposition used when output cannot
// be parsed.
func fallback(text string) *models.TaskDecomposition {
	return &models.TaskDecomposition{
		Subtasks: []models.Subtask{
			{Description: text, Domain: DefaultDomain},
		},
		Domains:             []string{DefaultDomain},
		EstimatedComplexity: models.ComplexityLow,
	}
}
