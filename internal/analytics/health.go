package analytics

import (
	"github.com/dvloznov/finsight/internal/domain"
)

// Health scoring contract values. These are fixed, test-verified thresholds,
// kept in one place rather than scattered through call sites.
const (
	healthBaseScore = 50

	savingsRateStrong   = 20 // savings rate > 20% earns the full bonus
	savingsRateHealthy  = 10
	savingsBonusStrong  = 30
	savingsBonusHealthy = 20
	savingsBonusAny     = 10
	savingsPenalty      = 20 // applied when savings rate <= 0

	trendDropThreshold = -10 // expenses fell more than 10%
	trendRiseThreshold = 20  // expenses rose more than 20%
	trendBonus         = 15
	trendPenalty       = 15

	bandExcellentMin      = 80
	bandGoodMin           = 60
	bandNeedsAttentionMin = 40
)

// Score combines savings rate and spending trend into a single 0-100 health
// score with a qualitative band. The function is deterministic: identical
// aggregates and trends always produce identical scores.
func Score(aggregate domain.AggregateResult, trend domain.TrendResult) domain.HealthScore {
	savingsRate := savingsRateOf(aggregate)

	score := healthBaseScore
	switch {
	case savingsRate > savingsRateStrong:
		score += savingsBonusStrong
	case savingsRate > savingsRateHealthy:
		score += savingsBonusHealthy
	case savingsRate > 0:
		score += savingsBonusAny
	default:
		score -= savingsPenalty
	}

	if trend.ChangePercent < trendDropThreshold {
		score += trendBonus
	} else if trend.ChangePercent > trendRiseThreshold {
		score -= trendPenalty
	}

	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}

	return domain.HealthScore{
		Score:          score,
		Band:           bandFor(score),
		SavingsRate:    savingsRate,
		TrendDirection: trend.Direction,
	}
}

// savingsRateOf is defined as 0 when income is 0; a period with no recorded
// income must not produce a division error or a misleading negative rate.
func savingsRateOf(aggregate domain.AggregateResult) float64 {
	if aggregate.TotalIncome == 0 {
		return 0
	}
	return (aggregate.TotalIncome - aggregate.TotalExpense) / aggregate.TotalIncome * 100
}

func bandFor(score int) domain.HealthBand {
	switch {
	case score >= bandExcellentMin:
		return domain.BandExcellent
	case score >= bandGoodMin:
		return domain.BandGood
	case score >= bandNeedsAttentionMin:
		return domain.BandNeedsAttention
	default:
		return domain.BandCritical
	}
}
