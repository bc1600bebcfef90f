// Package matcher pairs listings across the two venues using title
// similarity, close-time proximity, and manual overrides.
package matcher

import (
	"log/slog"
	"sort"
	"time"

	"github.com/alanyoungcy/crossbot/internal/domain"
)

// Similarity weights. Title edit distance dominates, keyword overlap
// protects against superficial rewordings, and close-time proximity breaks
// near-ties between recurring markets.
const (
	weightTitle    = 0.50
	weightKeywords = 0.35
	weightTime     = 0.15
)

// Matcher pairs Kalshi listings with Polymarket listings.
type Matcher struct {
	threshold float64 // minimum confidence for fuzzy pairs
	logger    *slog.Logger
}

// New creates a Matcher with the given fuzzy confidence threshold.
func New(threshold float64, logger *slog.Logger) *Matcher {
	return &Matcher{
		threshold: threshold,
		logger:    logger.With(slog.String("component", "matcher")),
	}
}

// candidate is one scored (kalshi, polymarket) pairing.
type candidate struct {
	k, p  int // indexes into the listing slices
	score float64
}

// Match produces at most one pair per listing. Manual overrides (kalshi ID ->
// polymarket ID) are applied first with confidence 1.0 and reserve both
// listings before fuzzy matching runs; they are never subject to the
// threshold. Remaining candidates are consumed greedily by descending score.
// Listings with no override and no candidate above the threshold are left
// unmatched; that is expected, not an error.
func (m *Matcher) Match(kalshi, poly []domain.MarketListing, overrides map[string]string) []domain.MatchedPair {
	usedK := make([]bool, len(kalshi))
	usedP := make([]bool, len(poly))
	polyByID := make(map[string]int, len(poly))
	for i, l := range poly {
		polyByID[l.ID] = i
	}

	var pairs []domain.MatchedPair

	// Overrides first. An override whose target listing is absent this cycle
	// simply does not produce a pair.
	for ki, kl := range kalshi {
		pid, ok := overrides[kl.ID]
		if !ok {
			continue
		}
		pi, ok := polyByID[pid]
		if !ok || usedP[pi] {
			continue
		}
		usedK[ki] = true
		usedP[pi] = true
		pairs = append(pairs, domain.MatchedPair{
			Kalshi:     kl,
			Polymarket: poly[pi],
			Confidence: 1.0,
			Method:     domain.MatchMethodManual,
		})
	}

	// Score every remaining cross pair.
	type normalized struct {
		title    string
		keywords []string
	}
	normK := make([]normalized, len(kalshi))
	for i, l := range kalshi {
		t := Normalize(l.Title)
		normK[i] = normalized{t, Keywords(t)}
	}
	normP := make([]normalized, len(poly))
	for i, l := range poly {
		t := Normalize(l.Title)
		normP[i] = normalized{t, Keywords(t)}
	}

	var cands []candidate
	for ki := range kalshi {
		if usedK[ki] {
			continue
		}
		for pi := range poly {
			if usedP[pi] {
				continue
			}
			score := weightTitle*similarityRatio(normK[ki].title, normP[pi].title) +
				weightKeywords*jaccard(normK[ki].keywords, normP[pi].keywords) +
				weightTime*timeProximity(kalshi[ki].CloseTime, poly[pi].CloseTime)
			if score < m.threshold {
				continue
			}
			cands = append(cands, candidate{k: ki, p: pi, score: score})
		}
	}

	// Greedy bipartite assignment, best score first. Ties resolve by listing
	// IDs so output is deterministic.
	sort.Slice(cands, func(i, j int) bool {
		if cands[i].score != cands[j].score {
			return cands[i].score > cands[j].score
		}
		if kalshi[cands[i].k].ID != kalshi[cands[j].k].ID {
			return kalshi[cands[i].k].ID < kalshi[cands[j].k].ID
		}
		return poly[cands[i].p].ID < poly[cands[j].p].ID
	})

	for _, c := range cands {
		if usedK[c.k] || usedP[c.p] {
			continue
		}
		usedK[c.k] = true
		usedP[c.p] = true
		pairs = append(pairs, domain.MatchedPair{
			Kalshi:     kalshi[c.k],
			Polymarket: poly[c.p],
			Confidence: c.score,
			Method:     domain.MatchMethodFuzzy,
		})
	}

	m.logger.Debug("matching complete",
		slog.Int("kalshi", len(kalshi)),
		slog.Int("polymarket", len(poly)),
		slog.Int("pairs", len(pairs)),
	)
	return pairs
}

// timeProximity scores how close two market close times are: within a day
// 1.0, a week 0.7, thirty days 0.3, beyond that 0. Missing close times score
// a neutral 0.5 so the term neither helps nor hurts.
func timeProximity(a, b time.Time) float64 {
	if a.IsZero() || b.IsZero() {
		return 0.5
	}
	diff := a.Sub(b)
	if diff < 0 {
		diff = -diff
	}
	switch {
	case diff < 24*time.Hour:
		return 1.0
	case diff < 7*24*time.Hour:
		return 0.7
	case diff < 30*24*time.Hour:
		return 0.3
	default:
		return 0
	}
}
