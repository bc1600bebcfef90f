package kalshi

import (
	"time"

	"github.com/alanyoungcy/crossbot/internal/domain"
)

// Market represents a market as returned by the Kalshi REST API. Prices are
// in cents (1-99).
type Market struct {
	Ticker         string  `json:"ticker"`
	EventTicker    string  `json:"event_ticker"`
	Title          string  `json:"title"`
	Subtitle       string  `json:"subtitle"`
	Status         string  `json:"status"` // "open", "closed", "settled"
	YesBid         float64 `json:"yes_bid"`
	YesAsk         float64 `json:"yes_ask"`
	NoBid          float64 `json:"no_bid"`
	NoAsk          float64 `json:"no_ask"`
	LastPrice      float64 `json:"last_price"`
	Volume         int64   `json:"volume"`
	Volume24H      int64   `json:"volume_24h"`
	OpenInterest   int64   `json:"open_interest"`
	Category       string  `json:"category"`
	Result         string  `json:"result"`
	OpenTime       string  `json:"open_time"`
	CloseTime      string  `json:"close_time"`
	ExpirationTime string  `json:"expiration_time"`
}

// ErrorResponse represents a Kalshi API error payload.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ToListing converts an API market to the venue-neutral listing. Ask prices
// are used for both sides since the scanner models taker entry.
func (m *Market) ToListing(fetchedAt time.Time) domain.MarketListing {
	l := domain.MarketListing{
		Venue:          domain.VenueKalshi,
		ID:             m.Ticker,
		Title:          m.Title,
		YesPrice:       m.YesAsk / 100,
		NoPrice:        m.NoAsk / 100,
		TrailingVolume: float64(m.Volume),
		FetchedAt:      fetchedAt,
	}
	if t, err := time.Parse(time.RFC3339, m.CloseTime); err == nil {
		l.CloseTime = t
	}
	return l
}
