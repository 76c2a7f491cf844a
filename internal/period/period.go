// Package period computes concrete half-open time windows for the logical
// reporting periods (day, week, month, year) relative to a reference instant.
// Both functions are pure: periods are fully determined by their inputs,
// which keeps them unit-testable with fixed instants.
package period

import (
	"fmt"
	"time"

	"github.com/dvloznov/finsight/internal/domain"
)

// Resolve computes the period of the given kind containing now. Intervals are
// half-open [start, end): a transaction at exactly midnight belongs to the
// starting day, not the preceding one. Weeks start on Sunday.
func Resolve(kind domain.PeriodKind, now time.Time) (domain.Period, error) {
	switch kind {
	case domain.PeriodDay:
		start := midnight(now)
		return build(kind, start, start.AddDate(0, 0, 1)), nil
	case domain.PeriodWeek:
		start := midnight(now).AddDate(0, 0, -int(now.Weekday()))
		return build(kind, start, start.AddDate(0, 0, 7)), nil
	case domain.PeriodMonth:
		start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		return build(kind, start, start.AddDate(0, 1, 0)), nil
	case domain.PeriodYear:
		start := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location())
		return build(kind, start, start.AddDate(1, 0, 0)), nil
	default:
		return domain.Period{}, fmt.Errorf("period.Resolve: unknown period kind %q", kind)
	}
}

// Previous returns the immediately preceding equivalent period. Successive
// periods are contiguous and non-overlapping: previous.End equals p.Start.
// Month and year lengths follow the calendar.
func Previous(p domain.Period) domain.Period {
	switch p.Kind {
	case domain.PeriodMonth:
		return build(p.Kind, p.Start.AddDate(0, -1, 0), p.Start)
	case domain.PeriodYear:
		return build(p.Kind, p.Start.AddDate(-1, 0, 0), p.Start)
	default:
		length := p.End.Sub(p.Start)
		return build(p.Kind, p.Start.Add(-length), p.Start)
	}
}

func build(kind domain.PeriodKind, start, end time.Time) domain.Period {
	return domain.Period{
		Kind:  kind,
		Start: start,
		End:   end,
		Label: label(kind, start),
	}
}

func label(kind domain.PeriodKind, start time.Time) string {
	switch kind {
	case domain.PeriodDay:
		return start.Format("2006-01-02")
	case domain.PeriodWeek:
		return "week of " + start.Format("2006-01-02")
	case domain.PeriodMonth:
		return start.Format("January 2006")
	default:
		return start.Format("2006")
	}
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
