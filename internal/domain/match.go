package domain

// MatchMethod records how a cross-venue pair was established.
type MatchMethod string

const (
	MatchMethodManual MatchMethod = "manual-override"
	MatchMethodFuzzy  MatchMethod = "fuzzy"
)

// MatchedPair links one Kalshi listing to one Polymarket listing believed to
// describe the same real-world proposition. Each listing appears in at most
// one pair per cycle. Produced by the matcher, consumed once by the evaluator.
type MatchedPair struct {
	Kalshi     MarketListing
	Polymarket MarketListing
	Confidence float64 // [0,1]
	Method     MatchMethod
}
