package council

import (
	"context"
	"fmt"
	"time"

	"github.com/alanyoungcy/crossbot/internal/domain"
)

// Agent names, fixed set.
const (
	AgentRisk      = "risk"
	AgentValue     = "value"
	AgentTiming    = "timing"
	AgentSentiment = "sentiment"
)

// neutralScore is the fallback when an advisory agent cannot be consulted.
const neutralScore = 0.5

// riskVote scores execution risk from the current drawdown and loss streak.
// A loss streak at or beyond vetoLosses is a hard veto: no weighted average
// can override it.
func riskVote(state domain.RiskState, vetoLosses int) domain.AgentVote {
	score := 0.8 - 2*state.CurrentDrawdownPct - 0.1*float64(state.ConsecutiveLosses)
	score = clamp01(score)

	veto := vetoLosses > 0 && state.ConsecutiveLosses >= vetoLosses
	rationale := fmt.Sprintf("drawdown %.1f%%, %d consecutive losses",
		state.CurrentDrawdownPct*100, state.ConsecutiveLosses)
	if veto {
		rationale = "loss streak veto: " + rationale
	}
	return domain.AgentVote{
		Agent:     AgentRisk,
		Score:     score,
		Veto:      veto,
		Rationale: rationale,
	}
}

// valueVote scores profit potential from net profit, discounted by match
// confidence: a fat edge on a shaky match is worth less than it looks.
func valueVote(opp domain.Opportunity) domain.AgentVote {
	var base float64
	switch {
	case opp.NetProfit > 0.20:
		base = 0.95
	case opp.NetProfit > 0.10:
		base = 0.75
	case opp.NetProfit < 0.03:
		base = 0.10
	default:
		base = 0.50
	}
	score := clamp01(base * (0.5 + opp.Pair.Confidence/2))
	return domain.AgentVote{
		Agent: AgentValue,
		Score: score,
		Rationale: fmt.Sprintf("net $%.3f, roi %.2f%%, match confidence %.2f",
			opp.NetProfit, opp.ROI*100, opp.Pair.Confidence),
	}
}

// advisoryVote consults the external advisory capability under a bounded
// timeout. Unreachable or out-of-range responses degrade to a neutral score;
// the second return reports that degradation.
func advisoryVote(ctx context.Context, advisor domain.Advisor, agent, description string, timeout time.Duration) (domain.AgentVote, bool) {
	if advisor == nil {
		return domain.AgentVote{
			Agent:     agent,
			Score:     neutralScore,
			Rationale: "advisory capability not configured",
		}, true
	}

	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	advice, err := advisor.Advise(cctx, agent+": "+description)
	if err != nil {
		return domain.AgentVote{
			Agent:     agent,
			Score:     neutralScore,
			Rationale: fmt.Sprintf("advisory unavailable (%v), neutral fallback", err),
		}, true
	}
	if advice.Score < 0 || advice.Score > 1 {
		return domain.AgentVote{
			Agent:     agent,
			Score:     neutralScore,
			Rationale: fmt.Sprintf("advisory score %v out of range, neutral fallback", advice.Score),
		}, true
	}
	return domain.AgentVote{
		Agent:     agent,
		Score:     advice.Score,
		Rationale: advice.Rationale,
	}, false
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
