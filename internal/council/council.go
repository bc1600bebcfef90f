// Package council aggregates advisory agent votes, circuit-breaker state,
// and the sized bet into a single approve/veto/size verdict per opportunity.
package council

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/crossbot/internal/domain"
)

// Weights holds the per-agent vote weights. They need not sum to one; the
// average is normalized by the total.
type Weights struct {
	Risk      float64
	Value     float64
	Timing    float64
	Sentiment float64
}

// DefaultWeights mirrors the historical council tuning. Exposed as
// configuration; these are a starting point, not gospel.
func DefaultWeights() Weights {
	return Weights{Risk: 1.5, Value: 2.0, Timing: 1.0, Sentiment: 1.2}
}

func (w Weights) total() float64 {
	return w.Risk + w.Value + w.Timing + w.Sentiment
}

// Config holds council parameters.
type Config struct {
	ApprovalThreshold float64
	Weights           Weights
	// VetoConsecutiveLosses is the loss streak at which the risk agent hard
	// vetos regardless of other votes.
	VetoConsecutiveLosses int
	AdvisoryTimeout       time.Duration
}

// Council produces one Decision per evaluated Opportunity.
type Council struct {
	cfg     Config
	advisor domain.Advisor
	logger  *slog.Logger
}

// New creates a Council. advisor may be nil, in which case the timing and
// sentiment agents always vote neutral and decisions are flagged degraded.
func New(cfg Config, advisor domain.Advisor, logger *slog.Logger) *Council {
	if cfg.Weights.total() <= 0 {
		cfg.Weights = DefaultWeights()
	}
	if cfg.AdvisoryTimeout <= 0 {
		cfg.AdvisoryTimeout = 5 * time.Second
	}
	return &Council{
		cfg:     cfg,
		advisor: advisor,
		logger:  logger.With(slog.String("component", "council")),
	}
}

// Input bundles everything the council needs for one verdict.
type Input struct {
	Opportunity domain.Opportunity
	Risk        domain.RiskState
	SizedBet    float64 // position sizer output, zeroed on reject
}

// Decide aggregates the four agent votes into a Decision. A halted circuit
// breaker rejects immediately with no aggregation; a risk-agent hard veto
// rejects before the external agents are consulted. Otherwise the weighted
// average of all four scores is compared against the approval threshold.
// Advisory unavailability never fails the evaluation; it degrades to a
// neutral score and sets the Degraded flag.
func (c *Council) Decide(ctx context.Context, in Input) domain.Decision {
	d := domain.Decision{
		ID:            uuid.NewString(),
		OpportunityID: in.Opportunity.ID,
		DecidedAt:     time.Now().UTC(),
	}

	if in.Risk.Halted {
		d.Reasoning = fmt.Sprintf("circuit breaker halted (%s); trading gated", in.Risk.HaltReason)
		c.logger.InfoContext(ctx, "decision: halted",
			slog.String("opportunity_id", in.Opportunity.ID),
			slog.String("halt_reason", string(in.Risk.HaltReason)),
		)
		return d
	}

	rv := riskVote(in.Risk, c.cfg.VetoConsecutiveLosses)
	vv := valueVote(in.Opportunity)

	if rv.Veto {
		d.Votes = []domain.AgentVote{rv, vv}
		d.Reasoning = "risk agent veto: " + rv.Rationale
		c.logger.InfoContext(ctx, "decision: risk veto",
			slog.String("opportunity_id", in.Opportunity.ID),
		)
		return d
	}

	desc := describe(in.Opportunity)
	tv, timingDegraded := advisoryVote(ctx, c.advisor, AgentTiming, desc, c.cfg.AdvisoryTimeout)
	sv, sentimentDegraded := advisoryVote(ctx, c.advisor, AgentSentiment, desc, c.cfg.AdvisoryTimeout)

	w := c.cfg.Weights
	avg := (w.Risk*rv.Score + w.Value*vv.Score + w.Timing*tv.Score + w.Sentiment*sv.Score) / w.total()

	d.Votes = []domain.AgentVote{rv, vv, tv, sv}
	d.Degraded = timingDegraded || sentimentDegraded
	d.Confidence = avg
	d.Approve = avg >= c.cfg.ApprovalThreshold
	if d.Approve {
		d.Size = in.SizedBet
		d.Reasoning = fmt.Sprintf("weighted score %.3f >= %.3f", avg, c.cfg.ApprovalThreshold)
	} else {
		d.Reasoning = fmt.Sprintf("weighted score %.3f < %.3f", avg, c.cfg.ApprovalThreshold)
	}

	c.logger.InfoContext(ctx, "decision",
		slog.String("opportunity_id", in.Opportunity.ID),
		slog.Bool("approve", d.Approve),
		slog.Float64("confidence", d.Confidence),
		slog.Float64("size", d.Size),
		slog.Bool("degraded", d.Degraded),
	)
	return d
}

// describe renders the opportunity for the advisory capability.
func describe(opp domain.Opportunity) string {
	return fmt.Sprintf("%s | %q vs %q | net $%.3f, roi %.2f%%, size %.1f, match %.2f",
		opp.Strategy,
		opp.Pair.Kalshi.Title, opp.Pair.Polymarket.Title,
		opp.NetProfit, opp.ROI*100, opp.Size, opp.Pair.Confidence)
}
