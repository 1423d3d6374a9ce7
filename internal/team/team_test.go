package team

import (
	"errors"
	"strings"
	"testing"

	"github.com/ShayCichocki/crew/pkg/models"
)

func TestAssembleDedupesAndCaps(t *testing.T) {
	matches := []models.SkillMatch{
		{Plugin: "marketing", Skill: "email-campaign", Confidence: 0.9},
		{Plugin: "marketing", Skill: "email-campaign", Confidence: 0.8},
		{Plugin: "support", Skill: "ticket-triage", Confidence: 0.7},
		{Plugin: "finance", Skill: "invoice-review", Confidence: 0.6},
		{Plugin: "ops", Skill: "inventory", Confidence: 0.5},
		{Plugin: "legal", Skill: "contract-review", Confidence: 0.4},
	}
	decomp := &models.TaskDecomposition{EstimatedComplexity: models.ComplexityMedium}

	spec := NewAssembler(nil).Assemble(models.TaskRequest{ID: "t1", Text: "do things"}, decomp, matches)

	if len(spec.Specialists) != models.MaxSpecialists {
		t.Fatalf("got %d specialists, want %d", len(spec.Specialists), models.MaxSpecialists)
	}

	seen := make(map[string]bool)
	for _, s := range spec.Specialists {
		key := s.SkillPlugin + "/" + s.SkillName
		if seen[key] {
			t.Errorf("duplicate specialist for %s", key)
		}
		seen[key] = true
	}
	if spec.Specialists[0].SkillName != "email-campaign" {
		t.Errorf("first occurrence not kept: %q", spec.Specialists[0].SkillName)
	}
	if seen["legal/contract-review"] {
		t.Error("fifth distinct skill should have been dropped by the cap")
	}
}

func TestAssembleLeadPromptDeterministic(t *testing.T) {
	task := models.TaskRequest{ID: "t1", Text: "Draft a shipping delay notice"}
	decomp := &models.TaskDecomposition{
		Subtasks:            []models.Subtask{{Description: "Draft the notice", Domain: "generic"}},
		EstimatedComplexity: models.ComplexityLow,
	}
	matches := []models.SkillMatch{{UserLabel: "generic", Confidence: 0, NeedsConfirmation: true}}

	a := NewAssembler(nil)
	first := a.Assemble(task, decomp, matches)
	second := a.Assemble(task, decomp, matches)

	if first.LeadPrompt != second.LeadPrompt {
		t.Error("lead prompt differs across identical inputs")
	}
	if !strings.Contains(first.LeadPrompt, "Draft a shipping delay notice") {
		t.Error("lead prompt missing task text")
	}
	if len(first.Specialists) != 1 {
		t.Fatalf("got %d specialists, want 1", len(first.Specialists))
	}
}

func TestEstimateCostMonotonicity(t *testing.T) {
	for size := 2; size <= 5; size++ {
		smaller := EstimateCost(size-1, models.ComplexityMedium)
		larger := EstimateCost(size, models.ComplexityMedium)
		if larger.EstimatedCostUSD < smaller.EstimatedCostUSD {
			t.Errorf("cost decreased from size %d to %d", size-1, size)
		}
	}

	low := EstimateCost(3, models.ComplexityLow)
	medium := EstimateCost(3, models.ComplexityMedium)
	high := EstimateCost(3, models.ComplexityHigh)
	if medium.EstimatedCostUSD < low.EstimatedCostUSD || high.EstimatedCostUSD < medium.EstimatedCostUSD {
		t.Errorf("cost not monotone in complexity: low=%v medium=%v high=%v",
			low.EstimatedCostUSD, medium.EstimatedCostUSD, high.EstimatedCostUSD)
	}
}

func TestEstimateCostValues(t *testing.T) {
	// 2 agents at low complexity: 2*15000 + 20000 = 50000 tokens at $9/Mtok.
	est := EstimateCost(2, models.ComplexityLow)
	if est.EstimatedTokens != 50000 {
		t.Errorf("EstimatedTokens = %d, want 50000", est.EstimatedTokens)
	}
	if est.EstimatedCostUSD != 0.45 {
		t.Errorf("EstimatedCostUSD = %v, want 0.45", est.EstimatedCostUSD)
	}
	if est.Breakdown["agents"] != 30000 || est.Breakdown["overhead"] != 20000 {
		t.Errorf("Breakdown = %v", est.Breakdown)
	}
}

// fakeLedger is an in-memory SpendLedger for guard tests.
type fakeLedger struct {
	mtd      float64
	recorded []float64
	err      error
}

func (f *fakeLedger) RecordSpend(taskID string, amountUSD float64) error {
	f.recorded = append(f.recorded, amountUSD)
	f.mtd += amountUSD
	return nil
}

func (f *fakeLedger) MonthToDate() (float64, error) {
	return f.mtd, f.err
}

func TestGuardPerTaskCeiling(t *testing.T) {
	ledger := &fakeLedger{}
	g := NewGuard(5.00, 100.00, ledger)

	if err := g.Approve("t1", models.CostEstimate{EstimatedCostUSD: 5.0001}); err == nil {
		t.Error("estimate above per-task ceiling was approved")
	}
	if err := g.Approve("t2", models.CostEstimate{EstimatedCostUSD: 4.9999}); err != nil {
		t.Errorf("estimate below per-task ceiling rejected: %v", err)
	}
	if err := g.Approve("t3", models.CostEstimate{EstimatedCostUSD: 5.00}); err != nil {
		t.Errorf("estimate exactly at ceiling rejected: %v", err)
	}
	if len(ledger.recorded) != 2 {
		t.Errorf("recorded %d spends, want 2 (rejections must not record)", len(ledger.recorded))
	}
}

func TestGuardMonthlyCeiling(t *testing.T) {
	ledger := &fakeLedger{mtd: 98.00}
	g := NewGuard(5.00, 100.00, ledger)

	err := g.Approve("t1", models.CostEstimate{EstimatedCostUSD: 2.5})
	if err == nil {
		t.Fatal("estimate over monthly ceiling was approved")
	}

	var berr *BudgetError
	if !errors.As(err, &berr) {
		t.Fatalf("error type = %T, want *BudgetError", err)
	}
	if berr.Reason == "" {
		t.Error("BudgetError.Reason is empty")
	}
	if berr.LimitUSD != 100.00 {
		t.Errorf("LimitUSD = %v, want 100", berr.LimitUSD)
	}

	if err := g.Approve("t2", models.CostEstimate{EstimatedCostUSD: 2.0}); err != nil {
		t.Errorf("estimate exactly filling the month rejected: %v", err)
	}
}

func TestGuardRecordsBeforeExecution(t *testing.T) {
	ledger := &fakeLedger{}
	g := NewGuard(5.00, 100.00, ledger)

	if err := g.Approve("t1", models.CostEstimate{EstimatedCostUSD: 1.25}); err != nil {
		t.Fatalf("Approve() error = %v", err)
	}
	if len(ledger.recorded) != 1 || ledger.recorded[0] != 1.25 {
		t.Errorf("recorded = %v, want [1.25]", ledger.recorded)
	}
}
