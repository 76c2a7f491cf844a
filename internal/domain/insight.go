package domain

import (
	"time"
)

// Priority ranks an insight or suggestion by the magnitude of the metric
// behind it.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Insight is a structured, user-facing observation derived from an aggregate
// and health score.
type Insight struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Body     string   `json:"body"`
	Priority Priority `json:"priority"`
}

// Suggestion is a structured, user-facing recommendation.
type Suggestion struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Body     string   `json:"body"`
	Priority Priority `json:"priority"`
}

// InsightBundle is the terminal output of one insight generation request.
//
// Enhanced reports whether the remote advisory tier contributed; when the
// remote call fails the bundle still carries the full local analysis.
// Complete reports whether every source feed was reachable when the run's
// snapshot was taken; a false value means the aggregate may undercount.
type InsightBundle struct {
	Period      Period          `json:"period"`
	Aggregate   AggregateResult `json:"aggregate"`
	Trend       TrendResult     `json:"trend"`
	Health      HealthScore     `json:"health"`
	Insights    []Insight       `json:"insights"`
	Suggestions []Suggestion    `json:"suggestions"`
	Enhanced    bool            `json:"enhanced"`
	Complete    bool            `json:"complete"`
	GeneratedAt time.Time       `json:"generated_at"`
}
