package analytics

import (
	"math"
	"testing"
	"time"

	"github.com/dvloznov/finsight/internal/domain"
)

var month = domain.Period{
	Kind:  domain.PeriodMonth,
	Start: time.Date(2026, time.September, 1, 0, 0, 0, 0, time.UTC),
	End:   time.Date(2026, time.October, 1, 0, 0, 0, 0, time.UTC),
	Label: "September 2026",
}

func expense(amount float64, category string, occurred time.Time) domain.Transaction {
	return domain.Transaction{
		ID: "t", Kind: domain.KindExpense, Amount: amount,
		Category: category, OccurredAt: occurred,
	}
}

func income(amount float64, occurred time.Time) domain.Transaction {
	return domain.Transaction{
		ID: "t", Kind: domain.KindIncome, Amount: amount,
		Category: "Other", OccurredAt: occurred,
	}
}

func TestAggregate_EmptyInput(t *testing.T) {
	result := Aggregate(nil, month)

	if result.TotalExpense != 0 || result.TotalIncome != 0 || result.TransactionCount != 0 {
		t.Errorf("expected zeroed result, got %+v", result)
	}
	if result.ByCategory == nil {
		t.Error("ByCategory must be non-nil on empty input")
	}
	if err := CheckInvariant(result); err != nil {
		t.Errorf("zero result must satisfy the invariant: %v", err)
	}
}

func TestAggregate_SingleRecordRoundTrip(t *testing.T) {
	txs := []domain.Transaction{
		expense(150.5, "Food", month.Start.Add(48*time.Hour)),
	}

	result := Aggregate(txs, month)

	if result.TotalExpense != 150.5 {
		t.Errorf("TotalExpense = %v, want 150.5", result.TotalExpense)
	}
	food, ok := result.ByCategory["Food"]
	if !ok {
		t.Fatal("missing Food category")
	}
	if food.PercentOfTotal != 100 {
		t.Errorf("Food percent = %v, want 100", food.PercentOfTotal)
	}
	if food.Count != 1 {
		t.Errorf("Food count = %v, want 1", food.Count)
	}
}

func TestAggregate_CategoriesAndIncome(t *testing.T) {
	txs := []domain.Transaction{
		expense(300, "Food", month.Start.Add(24*time.Hour)),
		expense(100, "Food", month.Start.Add(48*time.Hour)),
		expense(600, "Rent", month.Start.Add(72*time.Hour)),
		income(2000, month.Start.Add(24*time.Hour)),
	}

	result := Aggregate(txs, month)

	if result.TotalExpense != 1000 {
		t.Errorf("TotalExpense = %v, want 1000", result.TotalExpense)
	}
	if result.TotalIncome != 2000 {
		t.Errorf("TotalIncome = %v, want 2000", result.TotalIncome)
	}
	if result.TransactionCount != 4 {
		t.Errorf("TransactionCount = %v, want 4", result.TransactionCount)
	}
	if got := result.ByCategory["Food"].PercentOfTotal; got != 40 {
		t.Errorf("Food percent = %v, want 40", got)
	}
	if got := result.ByCategory["Rent"].PercentOfTotal; got != 60 {
		t.Errorf("Rent percent = %v, want 60", got)
	}
	// Income is a single total, never categorized.
	for name, entry := range result.ByCategory {
		if entry.Total > result.TotalExpense {
			t.Errorf("category %s exceeds expense total", name)
		}
	}

	if err := CheckInvariant(result); err != nil {
		t.Errorf("invariant violated: %v", err)
	}
	var percentSum float64
	for _, entry := range result.ByCategory {
		percentSum += entry.PercentOfTotal
	}
	if math.Abs(percentSum-100) > 0.01 {
		t.Errorf("percent sum = %v, want 100", percentSum)
	}
}

func TestAggregate_HalfOpenPeriodFilter(t *testing.T) {
	txs := []domain.Transaction{
		expense(10, "Food", month.Start),                        // inclusive start
		expense(20, "Food", month.End),                          // exclusive end
		expense(40, "Food", month.Start.Add(-time.Nanosecond)),  // before
		expense(80, "Food", month.End.Add(-time.Nanosecond)),    // last instant inside
	}

	result := Aggregate(txs, month)
	if result.TotalExpense != 90 {
		t.Errorf("TotalExpense = %v, want 90 (10 + 80)", result.TotalExpense)
	}
}

func TestAggregate_ZeroExpensePercent(t *testing.T) {
	txs := []domain.Transaction{income(500, month.Start)}

	result := Aggregate(txs, month)
	if result.TotalExpense != 0 {
		t.Fatalf("TotalExpense = %v, want 0", result.TotalExpense)
	}
	for name, entry := range result.ByCategory {
		if entry.PercentOfTotal != 0 {
			t.Errorf("category %s percent = %v, want 0", name, entry.PercentOfTotal)
		}
	}
}

func TestCheckInvariant_Violation(t *testing.T) {
	broken := domain.AggregateResult{
		TotalExpense: 100,
		ByCategory: map[string]domain.CategoryBreakdown{
			"Food": {Total: 50, Count: 1},
		},
	}
	if err := CheckInvariant(broken); err == nil {
		t.Error("Expected invariant violation")
	}
}
