package team

import (
	"fmt"

	"github.com/ShayCichocki/crew/pkg/models"
)

// BudgetError reports a rejected estimate with a human-readable reason.
type BudgetError struct {
	Reason       string
	EstimatedUSD float64
	LimitUSD     float64
}

func (e *BudgetError) Error() string {
	return e.Reason
}

// SpendLedger tracks recorded spend. The month-to-date figure covers the
// current calendar month.
type SpendLedger interface {
	RecordSpend(taskID string, amountUSD float64) error
	MonthToDate() (float64, error)
}

// Guard enforces per-task and monthly spending ceilings. Estimates are
// recorded as spend at approval time, before any tokens are consumed, so a
// crash mid-dispatch can never leave spend uncounted.
type Guard struct {
	perTaskUSD float64
	monthlyUSD float64
	ledger     SpendLedger
}

// NewGuard creates a budget guard with the given ceilings.
func NewGuard(perTaskUSD, monthlyUSD float64, ledger SpendLedger) *Guard {
	return &Guard{
		perTaskUSD: perTaskUSD,
		monthlyUSD: monthlyUSD,
		ledger:     ledger,
	}
}

// Approve checks an estimate against both ceilings and, if allowed, records
// it as spend. An estimate exactly at a ceiling is allowed.
func (g *Guard) Approve(taskID string, estimate models.CostEstimate) error {
	cost := estimate.EstimatedCostUSD

	if cost > g.perTaskUSD {
		return &BudgetError{
			Reason: fmt.Sprintf("estimated cost $%.4f exceeds the per-task limit of $%.2f",
				cost, g.perTaskUSD),
			EstimatedUSD: cost,
			LimitUSD:     g.perTaskUSD,
		}
	}

	mtd, err := g.ledger.MonthToDate()
	if err != nil {
		return fmt.Errorf("reading month-to-date spend: %w", err)
	}
	if mtd+cost > g.monthlyUSD {
		return &BudgetError{
			Reason: fmt.Sprintf("estimated cost $%.4f would push monthly spend to $%.4f, over the $%.2f ceiling",
				cost, mtd+cost, g.monthlyUSD),
			EstimatedUSD: cost,
			LimitUSD:     g.monthlyUSD,
		}
	}

	if err := g.ledger.RecordSpend(taskID, cost); err != nil {
		return fmt.Errorf("recording spend: %w", err)
	}
	return nil
}
