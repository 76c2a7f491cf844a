package insights

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/dvloznov/finsight/internal/domain"
)

// Magnitude thresholds for priority tagging.
const (
	categoryShareHigh   = 50.0 // a category above half of all spend
	categoryShareMedium = 30.0
	trendChangeHigh     = 20.0
	strongSavingsRate   = 20.0
)

// LocalAnalysis derives insight and suggestion records from the aggregate,
// trend and health score using fixed rules. It is fully deterministic apart
// from record IDs and always returns at least one insight and one suggestion,
// so a bundle is useful even with every external dependency down.
func LocalAnalysis(in Input) ([]domain.Insight, []domain.Suggestion) {
	if in.Aggregate.TransactionCount == 0 {
		return []domain.Insight{{
				ID:       newID(),
				Title:    "No activity",
				Body:     fmt.Sprintf("No transactions were recorded for %s.", in.Period.Label),
				Priority: domain.PriorityLow,
			}}, []domain.Suggestion{{
				ID:       newID(),
				Title:    "Start tracking",
				Body:     "Add an expense or scan a receipt to see a breakdown for this period.",
				Priority: domain.PriorityLow,
			}}
	}

	var insights []domain.Insight
	var suggestions []domain.Suggestion

	if name, entry, ok := largestCategory(in.Aggregate); ok {
		priority := domain.PriorityLow
		switch {
		case entry.PercentOfTotal > categoryShareHigh:
			priority = domain.PriorityHigh
		case entry.PercentOfTotal > categoryShareMedium:
			priority = domain.PriorityMedium
		}
		insights = append(insights, domain.Insight{
			ID:       newID(),
			Title:    "Largest spending category",
			Body:     fmt.Sprintf("%s accounts for %.0f%% of your spending (%.2f across %d transactions).", name, entry.PercentOfTotal, entry.Total, entry.Count),
			Priority: priority,
		})
		if priority == domain.PriorityHigh {
			suggestions = append(suggestions, domain.Suggestion{
				ID:       newID(),
				Title:    "Set a category budget",
				Body:     fmt.Sprintf("More than half of your spending goes to %s. Setting a budget there has the biggest impact.", name),
				Priority: domain.PriorityHigh,
			})
		}
	}

	switch in.Trend.Direction {
	case domain.TrendUp:
		priority := domain.PriorityMedium
		if in.Trend.ChangePercent > trendChangeHigh {
			priority = domain.PriorityHigh
		}
		insights = append(insights, domain.Insight{
			ID:       newID(),
			Title:    "Spending is up",
			Body:     fmt.Sprintf("Expenses rose %.0f%% compared to the previous %s.", in.Trend.ChangePercent, in.Period.Kind),
			Priority: priority,
		})
		suggestions = append(suggestions, domain.Suggestion{
			ID:       newID(),
			Title:    "Review recent expenses",
			Body:     "Look through this period's largest expenses for one-offs you can avoid next time.",
			Priority: priority,
		})
	case domain.TrendDown:
		insights = append(insights, domain.Insight{
			ID:       newID(),
			Title:    "Spending is down",
			Body:     fmt.Sprintf("Expenses fell %.0f%% compared to the previous %s. Keep it up.", -in.Trend.ChangePercent, in.Period.Kind),
			Priority: domain.PriorityLow,
		})
	}

	switch {
	case in.Health.SavingsRate > strongSavingsRate:
		insights = append(insights, domain.Insight{
			ID:       newID(),
			Title:    "Strong savings rate",
			Body:     fmt.Sprintf("You saved %.0f%% of your income this %s.", in.Health.SavingsRate, in.Period.Kind),
			Priority: domain.PriorityMedium,
		})
		suggestions = append(suggestions, domain.Suggestion{
			ID:       newID(),
			Title:    "Put the surplus to work",
			Body:     "Your savings rate is high. Consider moving the surplus into savings or investments.",
			Priority: domain.PriorityMedium,
		})
	case in.Health.SavingsRate <= 0 && in.Aggregate.TotalIncome > 0:
		suggestions = append(suggestions, domain.Suggestion{
			ID:       newID(),
			Title:    "Spending exceeds income",
			Body:     "You spent more than you earned this period. Review the largest categories for cuts.",
			Priority: domain.PriorityHigh,
		})
	case in.Aggregate.TotalIncome == 0:
		suggestions = append(suggestions, domain.Suggestion{
			ID:       newID(),
			Title:    "Record your income",
			Body:     "No income is recorded for this period, so savings rate cannot be computed.",
			Priority: domain.PriorityMedium,
		})
	}

	// The contract guarantees a non-empty result on both sides.
	if len(insights) == 0 {
		insights = append(insights, domain.Insight{
			ID:       newID(),
			Title:    "Steady period",
			Body:     fmt.Sprintf("Spending for %s is in line with the previous period.", in.Period.Label),
			Priority: domain.PriorityLow,
		})
	}
	if len(suggestions) == 0 {
		suggestions = append(suggestions, domain.Suggestion{
			ID:       newID(),
			Title:    "Keep tracking",
			Body:     "Keep recording transactions to sharpen trends and the health score.",
			Priority: domain.PriorityLow,
		})
	}

	return insights, suggestions
}

func largestCategory(agg domain.AggregateResult) (string, domain.CategoryBreakdown, bool) {
	var bestName string
	var best domain.CategoryBreakdown
	found := false
	for name, entry := range agg.ByCategory {
		// Name is the deterministic tie-break for equal totals.
		if !found || entry.Total > best.Total || (entry.Total == best.Total && name < bestName) {
			bestName, best, found = name, entry, true
		}
	}
	return bestName, best, found
}

func newID() string {
	return uuid.NewString()
}
