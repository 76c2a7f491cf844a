package insights

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dvloznov/finsight/internal/domain"
	"github.com/dvloznov/finsight/internal/logger"
)

// mockAdvisor is a struct-of-funcs mock for the remote advisory tier.
type mockAdvisor struct {
	EnhanceFunc func(ctx context.Context, req AdvisoryRequest) (*Enhancement, error)
}

func (m *mockAdvisor) Enhance(ctx context.Context, req AdvisoryRequest) (*Enhancement, error) {
	if m.EnhanceFunc != nil {
		return m.EnhanceFunc(ctx, req)
	}
	return &Enhancement{Summary: "mock summary"}, nil
}

func testInput() Input {
	return Input{
		Period: domain.Period{
			Kind:  domain.PeriodMonth,
			Start: time.Date(2026, time.September, 1, 0, 0, 0, 0, time.UTC),
			End:   time.Date(2026, time.October, 1, 0, 0, 0, 0, time.UTC),
			Label: "September 2026",
		},
		Aggregate: domain.AggregateResult{
			TotalExpense:     1000,
			TotalIncome:      1500,
			TransactionCount: 12,
			ByCategory: map[string]domain.CategoryBreakdown{
				"Rent": {Total: 600, Count: 1, PercentOfTotal: 60},
				"Food": {Total: 400, Count: 11, PercentOfTotal: 40},
			},
		},
		Trend:    domain.TrendResult{ChangePercent: 2, Direction: domain.TrendStable},
		Health:   domain.HealthScore{Score: 70, Band: domain.BandGood, SavingsRate: 33.3},
		Complete: true,
	}
}

func newTestComposer(advisor Advisor) *Composer {
	log := logger.NewWithWriter(discard{})
	fixed := time.Date(2026, time.September, 1, 12, 0, 0, 0, time.UTC)
	return NewComposer(advisor, log).WithClock(func() time.Time { return fixed })
}

func TestCompose_LocalOnly(t *testing.T) {
	c := newTestComposer(nil)

	bundle := c.Compose(context.Background(), testInput())

	if len(bundle.Insights) == 0 {
		t.Error("expected at least one insight")
	}
	if len(bundle.Suggestions) == 0 {
		t.Error("expected at least one suggestion")
	}
	if bundle.Enhanced {
		t.Error("bundle must not be marked enhanced without an advisor")
	}
	if !bundle.Complete {
		t.Error("Complete flag lost")
	}
	if bundle.GeneratedAt.IsZero() {
		t.Error("GeneratedAt not set")
	}
}

// A remote failure must degrade transparently: the bundle still carries the
// full local analysis and no error surfaces to the caller.
func TestCompose_AdvisorFailureFallsBack(t *testing.T) {
	advisor := &mockAdvisor{
		EnhanceFunc: func(ctx context.Context, req AdvisoryRequest) (*Enhancement, error) {
			return nil, errors.New("deadline exceeded")
		},
	}
	c := newTestComposer(advisor)

	bundle := c.Compose(context.Background(), testInput())

	if bundle.Enhanced {
		t.Error("bundle must not be marked enhanced after a failed call")
	}
	if len(bundle.Insights) == 0 || len(bundle.Suggestions) == 0 {
		t.Errorf("local analysis missing: %d insights, %d suggestions",
			len(bundle.Insights), len(bundle.Suggestions))
	}
}

func TestCompose_AdvisorEmptySummaryDiscarded(t *testing.T) {
	advisor := &mockAdvisor{
		EnhanceFunc: func(ctx context.Context, req AdvisoryRequest) (*Enhancement, error) {
			return &Enhancement{Summary: ""}, nil
		},
	}
	c := newTestComposer(advisor)

	bundle := c.Compose(context.Background(), testInput())
	if bundle.Enhanced {
		t.Error("an empty summary must be discarded, not merged")
	}
}

func TestCompose_Enhanced(t *testing.T) {
	advisor := &mockAdvisor{
		EnhanceFunc: func(ctx context.Context, req AdvisoryRequest) (*Enhancement, error) {
			if req.PeriodLabel != "September 2026" {
				t.Errorf("PeriodLabel = %q", req.PeriodLabel)
			}
			return &Enhancement{
				Summary: "A steady month with solid savings.",
				Tips:    []string{"Automate a transfer to savings.", ""},
			}, nil
		},
	}
	c := newTestComposer(advisor)

	bundle := c.Compose(context.Background(), testInput())

	if !bundle.Enhanced {
		t.Fatal("bundle should be marked enhanced")
	}
	if bundle.Insights[0].Body != "A steady month with solid savings." {
		t.Errorf("remote summary must lead the insights, got %q", bundle.Insights[0].Body)
	}
	// The empty tip is dropped; the non-empty one becomes a suggestion.
	found := false
	for _, s := range bundle.Suggestions {
		if s.Body == "Automate a transfer to savings." {
			found = true
		}
	}
	if !found {
		t.Error("advisor tip missing from suggestions")
	}
}

func TestLocalAnalysis_EmptyPeriod(t *testing.T) {
	in := testInput()
	in.Aggregate = domain.AggregateResult{ByCategory: map[string]domain.CategoryBreakdown{}}

	insights, suggestions := LocalAnalysis(in)
	if len(insights) != 1 || len(suggestions) != 1 {
		t.Fatalf("empty period: got %d insights, %d suggestions, want 1 and 1",
			len(insights), len(suggestions))
	}
	if insights[0].Priority != domain.PriorityLow {
		t.Errorf("no-activity insight priority = %q, want low", insights[0].Priority)
	}
}

func TestLocalAnalysis_DominantCategoryIsHighPriority(t *testing.T) {
	in := testInput() // Rent at 60% of spend

	insights, suggestions := LocalAnalysis(in)

	var category *domain.Insight
	for i := range insights {
		if insights[i].Title == "Largest spending category" {
			category = &insights[i]
		}
	}
	if category == nil {
		t.Fatal("missing largest-category insight")
	}
	if category.Priority != domain.PriorityHigh {
		t.Errorf("priority = %q, want high for a category above 50%%", category.Priority)
	}

	var budget bool
	for _, s := range suggestions {
		if s.Priority == domain.PriorityHigh {
			budget = true
		}
	}
	if !budget {
		t.Error("a dominant category should produce a high-priority suggestion")
	}
}

func TestLocalAnalysis_OverspendingSuggestion(t *testing.T) {
	in := testInput()
	in.Health.SavingsRate = -10
	in.Aggregate.TotalIncome = 900
	in.Aggregate.TotalExpense = 1000

	_, suggestions := LocalAnalysis(in)

	found := false
	for _, s := range suggestions {
		if s.Title == "Spending exceeds income" && s.Priority == domain.PriorityHigh {
			found = true
		}
	}
	if !found {
		t.Error("expected a high-priority overspending suggestion")
	}
}

func TestLocalAnalysis_StrongSavings(t *testing.T) {
	in := testInput()
	in.Health.SavingsRate = 35

	insights, suggestions := LocalAnalysis(in)

	var surplus bool
	for _, s := range suggestions {
		if s.Title == "Put the surplus to work" {
			surplus = true
		}
	}
	if !surplus {
		t.Error("expected an investment suggestion for a strong savings rate")
	}

	var savings bool
	for _, i := range insights {
		if i.Title == "Strong savings rate" {
			savings = true
		}
	}
	if !savings {
		t.Error("expected a savings-rate insight")
	}
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }
