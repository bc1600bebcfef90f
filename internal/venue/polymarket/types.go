package polymarket

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/alanyoungcy/crossbot/internal/domain"
)

// flexBool unmarshals from JSON bool or string ("true"/"false") so Gamma API
// responses work whether "active" is sent as bool or string.
type flexBool bool

func (f *flexBool) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*f = flexBool(b)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*f = flexBool(strings.EqualFold(s, "true") || s == "1")
	return nil
}

// APIMarket represents a market as returned by the Polymarket Gamma API.
// Outcomes and prices arrive as JSON-encoded string arrays.
type APIMarket struct {
	ID            string   `json:"id"`
	Question      string   `json:"question"`
	ConditionID   string   `json:"condition_id"`
	Slug          string   `json:"slug"`
	Active        flexBool `json:"active"`
	Closed        bool     `json:"closed"`
	Outcomes      string   `json:"outcomes"`      // e.g. "[\"Yes\",\"No\"]"
	OutcomePrices string   `json:"outcomePrices"` // e.g. "[\"0.45\",\"0.55\"]"
	ClobTokenIds  string   `json:"clobTokenIds"`  // e.g. "[\"7131...\",\"9982...\"]"
	Volume        string   `json:"volume"`
	EndDateISO    string   `json:"endDateIso"`
}

// TokenBinding ties a market ID to its two CLOB outcome token IDs. The order
// follows the market's outcomes array, so YesAsset is the first token for a
// Yes/No market.
type TokenBinding struct {
	MarketID string
	YesAsset string
	NoAsset  string
}

// tokenBinding extracts the CLOB token binding from a Gamma market. Returns
// false for non-binary markets or unparseable token arrays.
func (m *APIMarket) tokenBinding() (TokenBinding, bool) {
	var tokens []string
	if err := json.Unmarshal([]byte(m.ClobTokenIds), &tokens); err != nil {
		return TokenBinding{}, false
	}
	if len(tokens) != 2 || tokens[0] == "" || tokens[1] == "" {
		return TokenBinding{}, false
	}
	return TokenBinding{MarketID: m.ID, YesAsset: tokens[0], NoAsset: tokens[1]}, true
}

// ErrorResponse represents a Gamma API error payload.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ToListing converts an API market to the venue-neutral listing. Only binary
// Yes/No markets convert cleanly; anything else yields a listing that fails
// Valid and is skipped upstream.
func (m *APIMarket) ToListing(fetchedAt time.Time) domain.MarketListing {
	l := domain.MarketListing{
		Venue:     domain.VenuePolymarket,
		ID:        m.ID,
		Title:     m.Question,
		FetchedAt: fetchedAt,
	}

	var outcomes, prices []string
	if err := json.Unmarshal([]byte(m.Outcomes), &outcomes); err != nil {
		return l
	}
	if err := json.Unmarshal([]byte(m.OutcomePrices), &prices); err != nil {
		return l
	}
	if len(outcomes) != 2 || len(prices) != 2 {
		return l
	}

	for i, o := range outcomes {
		p, err := strconv.ParseFloat(prices[i], 64)
		if err != nil {
			return l
		}
		switch strings.ToLower(o) {
		case "yes":
			l.YesPrice = p
		case "no":
			l.NoPrice = p
		}
	}

	if v, err := strconv.ParseFloat(m.Volume, 64); err == nil {
		l.TrailingVolume = v
	}
	if t, err := time.Parse(time.RFC3339, m.EndDateISO); err == nil {
		l.CloseTime = t
	}
	return l
}
