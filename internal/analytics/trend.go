package analytics

import (
	"math"

	"github.com/dvloznov/finsight/internal/domain"
)

// DefaultDeadBandPercent is the +/- change below which period-over-period
// movement is reported as stable, so tiny fluctuations are not surfaced as
// trends.
const DefaultDeadBandPercent = 5.0

// Compare computes the expense change of the current period against the
// immediately preceding equivalent period, using the default dead-band.
func Compare(current, previous domain.AggregateResult) domain.TrendResult {
	return CompareWithDeadBand(current, previous, DefaultDeadBandPercent)
}

// CompareWithDeadBand is Compare with a caller-supplied dead-band percentage.
// When the previous period had no expenses the change is defined as 0 and the
// direction as stable; a first month of data must not report an infinite
// increase.
func CompareWithDeadBand(current, previous domain.AggregateResult, deadBandPercent float64) domain.TrendResult {
	if previous.TotalExpense == 0 {
		return domain.TrendResult{ChangePercent: 0, Direction: domain.TrendStable}
	}

	change := (current.TotalExpense - previous.TotalExpense) / previous.TotalExpense * 100
	direction := domain.TrendStable
	if math.Abs(change) > deadBandPercent {
		if change > 0 {
			direction = domain.TrendUp
		} else {
			direction = domain.TrendDown
		}
	}
	return domain.TrendResult{ChangePercent: change, Direction: direction}
}
