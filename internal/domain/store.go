package domain

import (
	"context"
	"io"
	"time"
)

// ListOpts provides pagination and time filtering for list queries.
type ListOpts struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
}

// ListingFetcher retrieves the current market listings for one venue. A
// failed fetch degrades that venue to an empty listing set for the cycle; it
// is never fatal to the scan loop.
type ListingFetcher interface {
	Venue() Venue
	FetchListings(ctx context.Context) ([]MarketListing, error)
}

// Advice is one response from the external advisory capability.
type Advice struct {
	Score      float64 // [0,1]
	Confidence float64 // [0,1]
	Rationale  string
}

// Advisor is the external advisory capability consulted by the timing and
// sentiment agents. Implementations must respect the caller's context
// deadline; on error or timeout the caller degrades to a neutral score.
type Advisor interface {
	Advise(ctx context.Context, description string) (Advice, error)
}

// OpportunityStore persists evaluated opportunities.
type OpportunityStore interface {
	Insert(ctx context.Context, opp Opportunity) error
	ListRecent(ctx context.Context, limit int) ([]Opportunity, error)
}

// DecisionStore persists council decisions.
type DecisionStore interface {
	Insert(ctx context.Context, d Decision) error
	ListRecent(ctx context.Context, limit int) ([]Decision, error)
	ListBefore(ctx context.Context, before time.Time, limit int) ([]Decision, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

// ListingCache provides fast access to the latest listing snapshot per
// venue/market across scan cycles.
type ListingCache interface {
	Set(ctx context.Context, l MarketListing) error
	Get(ctx context.Context, venue Venue, id string) (MarketListing, error)
	SetPrice(ctx context.Context, venue Venue, id string, yes, no float64, ts time.Time) error
}

// PairCooldown suppresses repeat alerts for the same matched pair inside a
// cooldown window.
type PairCooldown interface {
	// Mark records an emission and returns false if the pair is still cooling
	// down from a previous one.
	Mark(ctx context.Context, kalshiID, polyID string, window time.Duration) (bool, error)
}

// BlobWriter uploads data to object storage.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
}

// Archiver moves aged decision records from the database to cold storage.
type Archiver interface {
	ArchiveDecisions(ctx context.Context, before time.Time) (int64, error)
}
