// Package insights turns aggregate, trend and health results into ordered,
// prioritized insight and suggestion records. A deterministic local analysis
// tier always runs; a remote advisory tier may enrich the phrasing but is
// never required for a useful result.
package insights

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/finsight/internal/domain"
)

// State is the phase of one insight generation request. Every request moves
// Collecting -> LocalAnalysis -> (RemoteEnhancement | SkipRemote) -> Composed.
type State string

const (
	StateCollecting        State = "collecting"
	StateLocalAnalysis     State = "local_analysis"
	StateRemoteEnhancement State = "remote_enhancement"
	StateSkipRemote        State = "skip_remote"
	StateComposed          State = "composed"
)

// AdvisoryRequest is the payload sent to the remote advisory service.
type AdvisoryRequest struct {
	PeriodLabel string                 `json:"period_label"`
	Aggregate   domain.AggregateResult `json:"aggregate"`
	Health      domain.HealthScore     `json:"health"`
}

// Enhancement is the validated output of a remote advisory call.
type Enhancement struct {
	Summary string
	Tips    []string
}

// Advisor produces natural-language enhancement for a composed bundle.
// Implementations must validate the remote response shape and return an error
// on mismatch; the composer falls back to local analysis on any error.
type Advisor interface {
	Enhance(ctx context.Context, req AdvisoryRequest) (*Enhancement, error)
}

// Input carries everything the Collecting phase gathers for one request.
type Input struct {
	Period    domain.Period
	Aggregate domain.AggregateResult
	Trend     domain.TrendResult
	Health    domain.HealthScore
	Complete  bool
}

// Composer drives the generation state machine.
type Composer struct {
	advisor Advisor // nil disables the remote tier
	log     zerolog.Logger
	clock   func() time.Time
}

// NewComposer creates a Composer. advisor may be nil, in which case every
// request skips the remote tier.
func NewComposer(advisor Advisor, log zerolog.Logger) *Composer {
	return &Composer{advisor: advisor, log: log, clock: time.Now}
}

// WithClock overrides the bundle timestamp source. Used by tests.
func (c *Composer) WithClock(clock func() time.Time) *Composer {
	c.clock = clock
	return c
}

// Compose runs one generation request to its terminal state. It always
// returns a bundle with at least one insight and one suggestion; remote
// failures degrade the bundle to local-only phrasing, never to an error.
func (c *Composer) Compose(ctx context.Context, in Input) domain.InsightBundle {
	g := &generation{state: StateCollecting, in: in}

	g.state = StateLocalAnalysis
	g.insights, g.suggestions = LocalAnalysis(in)

	if c.advisor == nil {
		g.state = StateSkipRemote
	} else {
		g.state = StateRemoteEnhancement
		c.enhance(ctx, g)
	}

	g.state = StateComposed
	return domain.InsightBundle{
		Period:      in.Period,
		Aggregate:   in.Aggregate,
		Trend:       in.Trend,
		Health:      in.Health,
		Insights:    g.insights,
		Suggestions: g.suggestions,
		Enhanced:    g.enhanced,
		Complete:    in.Complete,
		GeneratedAt: c.clock(),
	}
}

// enhance calls the remote tier and merges its phrasing in front of the local
// records. Timeouts, transport errors and malformed payloads all surface here
// as errors and leave the local analysis untouched.
func (c *Composer) enhance(ctx context.Context, g *generation) {
	req := AdvisoryRequest{
		PeriodLabel: g.in.Period.Label,
		Aggregate:   g.in.Aggregate,
		Health:      g.in.Health,
	}

	enh, err := c.advisor.Enhance(ctx, req)
	if err != nil {
		c.log.Warn().Err(err).Str("period", g.in.Period.Label).
			Msg("Advisory enhancement unavailable, using local analysis")
		return
	}
	if enh == nil || enh.Summary == "" {
		c.log.Warn().Str("period", g.in.Period.Label).
			Msg("Advisory enhancement returned empty summary, discarding")
		return
	}

	summary := domain.Insight{
		ID:       newID(),
		Title:    "Your " + string(g.in.Period.Kind) + " in review",
		Body:     enh.Summary,
		Priority: summaryPriority(g.in.Health.Band),
	}
	g.insights = append([]domain.Insight{summary}, g.insights...)

	for _, tip := range enh.Tips {
		if tip == "" {
			continue
		}
		g.suggestions = append(g.suggestions, domain.Suggestion{
			ID:       newID(),
			Title:    "Advisor tip",
			Body:     tip,
			Priority: domain.PriorityMedium,
		})
	}
	g.enhanced = true
}

type generation struct {
	state       State
	in          Input
	insights    []domain.Insight
	suggestions []domain.Suggestion
	enhanced    bool
}

func summaryPriority(band domain.HealthBand) domain.Priority {
	switch band {
	case domain.BandCritical, domain.BandNeedsAttention:
		return domain.PriorityHigh
	default:
		return domain.PriorityMedium
	}
}
