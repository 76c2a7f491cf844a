package analytics

import (
	"testing"

	"github.com/dvloznov/finsight/internal/domain"
)

func agg(totalExpense float64) domain.AggregateResult {
	return domain.AggregateResult{TotalExpense: totalExpense}
}

func TestCompare(t *testing.T) {
	tests := []struct {
		name          string
		current       float64
		previous      float64
		wantChange    float64
		wantDirection domain.TrendDirection
	}{
		{
			// The explicit zero-guard: a first period with data must not
			// report an infinite increase.
			name:          "previous is zero",
			current:       500,
			previous:      0,
			wantChange:    0,
			wantDirection: domain.TrendStable,
		},
		{
			name:          "both zero",
			current:       0,
			previous:      0,
			wantChange:    0,
			wantDirection: domain.TrendStable,
		},
		{
			name:          "small increase inside dead band",
			current:       103,
			previous:      100,
			wantChange:    3,
			wantDirection: domain.TrendStable,
		},
		{
			name:          "small decrease inside dead band",
			current:       96,
			previous:      100,
			wantChange:    -4,
			wantDirection: domain.TrendStable,
		},
		{
			name:          "clear increase",
			current:       130,
			previous:      100,
			wantChange:    30,
			wantDirection: domain.TrendUp,
		},
		{
			name:          "clear decrease",
			current:       70,
			previous:      100,
			wantChange:    -30,
			wantDirection: domain.TrendDown,
		},
		{
			name:          "exactly at the dead band stays stable",
			current:       105,
			previous:      100,
			wantChange:    5,
			wantDirection: domain.TrendStable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Compare(agg(tt.current), agg(tt.previous))
			if result.ChangePercent != tt.wantChange {
				t.Errorf("ChangePercent = %v, want %v", result.ChangePercent, tt.wantChange)
			}
			if result.Direction != tt.wantDirection {
				t.Errorf("Direction = %q, want %q", result.Direction, tt.wantDirection)
			}
		})
	}
}

func TestCompareWithDeadBand_Custom(t *testing.T) {
	result := CompareWithDeadBand(agg(103), agg(100), 2)
	if result.Direction != domain.TrendUp {
		t.Errorf("Direction = %q, want up with a 2%% dead band", result.Direction)
	}

	result = CompareWithDeadBand(agg(103), agg(100), 10)
	if result.Direction != domain.TrendStable {
		t.Errorf("Direction = %q, want stable with a 10%% dead band", result.Direction)
	}
}
