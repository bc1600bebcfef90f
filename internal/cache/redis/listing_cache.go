package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/crossbot/internal/domain"
)

// listingTTL bounds staleness; a listing untouched for this long is treated
// as gone rather than served at an old price.
const listingTTL = 10 * time.Minute

// ListingCache implements domain.ListingCache using Redis hashes. Each
// listing is stored at key "listing:{venue}:{id}" with one field per column
// and a TTL refreshed on every write.
type ListingCache struct {
	rdb *redis.Client
}

// NewListingCache creates a ListingCache backed by the given Client.
func NewListingCache(c *Client) *ListingCache {
	return &ListingCache{rdb: c.Underlying()}
}

func listingKey(venue domain.Venue, id string) string {
	return "listing:" + string(venue) + ":" + id
}

// Set stores the full listing snapshot.
func (lc *ListingCache) Set(ctx context.Context, l domain.MarketListing) error {
	key := listingKey(l.Venue, l.ID)
	fields := map[string]interface{}{
		"title":  l.Title,
		"yes":    strconv.FormatFloat(l.YesPrice, 'f', -1, 64),
		"no":     strconv.FormatFloat(l.NoPrice, 'f', -1, 64),
		"volume": strconv.FormatFloat(l.TrailingVolume, 'f', -1, 64),
		"close":  strconv.FormatInt(l.CloseTime.UnixNano(), 10),
		"ts":     strconv.FormatInt(l.FetchedAt.UnixNano(), 10),
	}

	pipe := lc.rdb.Pipeline()
	pipe.HSet(ctx, key, fields)
	pipe.Expire(ctx, key, listingTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: set listing %s/%s: %w", l.Venue, l.ID, err)
	}
	return nil
}

// Get retrieves the latest listing snapshot. It returns domain.ErrNotFound
// when the key does not exist or has expired.
func (lc *ListingCache) Get(ctx context.Context, venue domain.Venue, id string) (domain.MarketListing, error) {
	key := listingKey(venue, id)
	vals, err := lc.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return domain.MarketListing{}, fmt.Errorf("redis: get listing %s/%s: %w", venue, id, err)
	}
	if len(vals) == 0 {
		return domain.MarketListing{}, domain.ErrNotFound
	}

	l := domain.MarketListing{
		Venue: venue,
		ID:    id,
		Title: vals["title"],
	}
	if l.YesPrice, err = strconv.ParseFloat(vals["yes"], 64); err != nil {
		return domain.MarketListing{}, fmt.Errorf("redis: parse yes price %s/%s: %w", venue, id, err)
	}
	if l.NoPrice, err = strconv.ParseFloat(vals["no"], 64); err != nil {
		return domain.MarketListing{}, fmt.Errorf("redis: parse no price %s/%s: %w", venue, id, err)
	}
	if v, verr := strconv.ParseFloat(vals["volume"], 64); verr == nil {
		l.TrailingVolume = v
	}
	if n, nerr := strconv.ParseInt(vals["close"], 10, 64); nerr == nil {
		l.CloseTime = time.Unix(0, n)
	}
	if n, nerr := strconv.ParseInt(vals["ts"], 10, 64); nerr == nil {
		l.FetchedAt = time.Unix(0, n)
	}
	return l, nil
}

// SetPrice updates only the price fields of an existing listing, refreshing
// the TTL. Used by the live feed so REST snapshot metadata survives between
// scan cycles.
func (lc *ListingCache) SetPrice(ctx context.Context, venue domain.Venue, id string, yes, no float64, ts time.Time) error {
	key := listingKey(venue, id)
	fields := map[string]interface{}{
		"yes": strconv.FormatFloat(yes, 'f', -1, 64),
		"no":  strconv.FormatFloat(no, 'f', -1, 64),
		"ts":  strconv.FormatInt(ts.UnixNano(), 10),
	}

	pipe := lc.rdb.Pipeline()
	pipe.HSet(ctx, key, fields)
	pipe.Expire(ctx, key, listingTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: set price %s/%s: %w", venue, id, err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.ListingCache = (*ListingCache)(nil)
