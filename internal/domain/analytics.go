package domain

// CategoryBreakdown is the per-category slice of an expense aggregate.
type CategoryBreakdown struct {
	Total          float64 `json:"total"`
	Count          int     `json:"count"`
	PercentOfTotal float64 `json:"percent_of_total"`
}

// AggregateResult holds the sums, counts and category breakdown computed over
// the transactions of a single period. It is a derived view, recomputed in
// full on every pipeline run.
//
// Invariant: the category totals sum to TotalExpense within one unit of minor
// currency. Income is tracked as a single total and is not categorized.
type AggregateResult struct {
	TotalExpense     float64                      `json:"total_expense"`
	TotalIncome      float64                      `json:"total_income"`
	TransactionCount int                          `json:"transaction_count"`
	ByCategory       map[string]CategoryBreakdown `json:"by_category"`
}

// TrendDirection classifies the period-over-period expense movement.
type TrendDirection string

const (
	TrendUp     TrendDirection = "up"
	TrendDown   TrendDirection = "down"
	TrendStable TrendDirection = "stable"
)

// TrendResult compares the current period's expenses against the immediately
// preceding equivalent period.
type TrendResult struct {
	ChangePercent float64        `json:"change_percent"`
	Direction     TrendDirection `json:"direction"`
}

// HealthBand is the qualitative tier of a health score.
type HealthBand string

const (
	BandExcellent      HealthBand = "excellent"
	BandGood           HealthBand = "good"
	BandNeedsAttention HealthBand = "needs_attention"
	BandCritical       HealthBand = "critical"
)

// HealthScore is the composite 0-100 indicator derived from savings rate and
// spending trend.
type HealthScore struct {
	Score          int            `json:"score"`
	Band           HealthBand     `json:"band"`
	SavingsRate    float64        `json:"savings_rate"`
	TrendDirection TrendDirection `json:"trend_direction"`
}
