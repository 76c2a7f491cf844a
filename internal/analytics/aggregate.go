package analytics

import (
	"fmt"
	"math"

	"github.com/dvloznov/finsight/internal/domain"
)

// CategorySumTolerance is one unit of minor currency; the category breakdown
// must reconcile with the expense total within it.
const CategorySumTolerance = 0.01

// Aggregate filters transactions to the given period and computes expense and
// income totals plus a per-category expense breakdown. Income is tracked as a
// single total and is not categorized.
//
// Empty input is not an error: the zero-valued result (with a non-nil, empty
// ByCategory map) is returned so callers never special-case it.
func Aggregate(txs []domain.Transaction, p domain.Period) domain.AggregateResult {
	result := domain.AggregateResult{
		ByCategory: make(map[string]domain.CategoryBreakdown),
	}

	for _, tx := range txs {
		if !p.Contains(tx.OccurredAt) {
			continue
		}
		result.TransactionCount++

		switch tx.Kind {
		case domain.KindIncome:
			result.TotalIncome += tx.Amount
		default:
			result.TotalExpense += tx.Amount
			entry := result.ByCategory[tx.Category]
			entry.Total += tx.Amount
			entry.Count++
			result.ByCategory[tx.Category] = entry
		}
	}

	for category, entry := range result.ByCategory {
		entry.PercentOfTotal = percentOf(entry.Total, result.TotalExpense)
		result.ByCategory[category] = entry
	}

	return result
}

// percentOf is defined as 0 when the total is 0, so a period with no expenses
// never produces a division error.
func percentOf(part, total float64) float64 {
	if total == 0 {
		return 0
	}
	return part / total * 100
}

// CheckInvariant verifies that the category totals reconcile with the expense
// total. A violation is a programming-error class: callers log it loudly and
// still return their best-effort result rather than failing the caller.
func CheckInvariant(r domain.AggregateResult) error {
	var sum float64
	for _, entry := range r.ByCategory {
		sum += entry.Total
	}
	if math.Abs(sum-r.TotalExpense) > CategorySumTolerance {
		return fmt.Errorf("analytics.CheckInvariant: category totals %.4f do not reconcile with total expense %.4f", sum, r.TotalExpense)
	}
	return nil
}
