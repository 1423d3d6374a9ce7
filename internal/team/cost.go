package team

import (
	"math"

	"github.com/ShayCichocki/crew/pkg/models"
)

// Per-agent token estimates by task complexity.
const (
	tokensPerAgentLow    = 15000
	tokensPerAgentMedium = 40000
	tokensPerAgentHigh   = 90000

	// overheadTokens covers analysis and synthesis regardless of team size.
	overheadTokens = 20000

	// costPerMillionTokens is the blended USD rate across input and output.
	costPerMillionTokens = 9.00
)

// EstimateCost computes a deterministic cost estimate for a team. teamSize
// counts the lead plus every specialist. The estimate is non-decreasing in
// both team size and complexity.
func EstimateCost(teamSize int, complexity models.Complexity) models.CostEstimate {
	perAgent := tokensForComplexity(complexity)

	agentTokens := int64(teamSize) * perAgent
	total := agentTokens + overheadTokens

	cost := float64(total) * costPerMillionTokens / 1_000_000

	return models.CostEstimate{
		EstimatedTokens:  total,
		EstimatedCostUSD: round4(cost),
		Breakdown: map[string]int64{
			"agents":   agentTokens,
			"overhead": overheadTokens,
		},
	}
}

func tokensForComplexity(c models.Complexity) int64 {
	switch c {
	case models.ComplexityHigh:
		return tokensPerAgentHigh
	case models.ComplexityMedium:
		return tokensPerAgentMedium
	default:
		return tokensPerAgentLow
	}
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
