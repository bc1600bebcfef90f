// Package polymarket is the client for the Polymarket Gamma API (market
// discovery over REST) and the CLOB WebSocket feed (live price updates).
package polymarket

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/alanyoungcy/crossbot/internal/domain"
)

const pageLimit = 200

// Client fetches market data from the Polymarket Gamma API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a new Gamma API client.
//
// baseURL is the Gamma API root, e.g. "https://gamma-api.polymarket.com".
func NewClient(baseURL string, logger *slog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger.With(slog.String("component", "polymarket")),
	}
}

// Venue identifies this fetcher.
func (c *Client) Venue() domain.Venue { return domain.VenuePolymarket }

// FetchListings pages through active binary markets and converts them to
// listings. Non-binary or malformed markets are skipped.
func (c *Client) FetchListings(ctx context.Context) ([]domain.MarketListing, error) {
	now := time.Now().UTC()
	var listings []domain.MarketListing

	for offset := 0; ; offset += pageLimit {
		markets, err := c.getMarkets(ctx, pageLimit, offset)
		if err != nil {
			return nil, err
		}
		if len(markets) == 0 {
			break
		}

		for i := range markets {
			m := &markets[i]
			if m.Closed || !bool(m.Active) {
				continue
			}
			l := m.ToListing(now)
			if !l.Valid() {
				c.logger.WarnContext(ctx, "skipping malformed market",
					slog.String("market_id", m.ID),
				)
				continue
			}
			listings = append(listings, l)
		}

		if len(markets) < pageLimit {
			break
		}
	}

	c.logger.InfoContext(ctx, "fetched listings", slog.Int("count", len(listings)))
	return listings, nil
}

// FetchTokenBindings returns CLOB token bindings for up to max active binary
// markets, for subscribing the WebSocket feed. Markets without parseable
// token arrays are skipped.
func (c *Client) FetchTokenBindings(ctx context.Context, max int) ([]TokenBinding, error) {
	var bindings []TokenBinding

	for offset := 0; len(bindings) < max; offset += pageLimit {
		markets, err := c.getMarkets(ctx, pageLimit, offset)
		if err != nil {
			return nil, err
		}
		if len(markets) == 0 {
			break
		}

		for i := range markets {
			m := &markets[i]
			if m.Closed || !bool(m.Active) {
				continue
			}
			b, ok := m.tokenBinding()
			if !ok {
				continue
			}
			bindings = append(bindings, b)
			if len(bindings) >= max {
				break
			}
		}

		if len(markets) < pageLimit {
			break
		}
	}

	return bindings, nil
}

// getMarkets returns one page of markets.
func (c *Client) getMarkets(ctx context.Context, limit, offset int) ([]APIMarket, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	params.Set("offset", strconv.Itoa(offset))
	params.Set("active", "true")

	body, err := c.doGet(ctx, "/markets?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("polymarket: get markets: %w", err)
	}

	var markets []APIMarket
	if err := json.Unmarshal(body, &markets); err != nil {
		return nil, fmt.Errorf("polymarket: decode markets: %w", err)
	}

	return markets, nil
}

// doGet sends an unauthenticated GET request to the Gamma API.
func (c *Client) doGet(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if err := checkHTTPStatus(resp.StatusCode, body); err != nil {
		return nil, err
	}

	return body, nil
}

// checkHTTPStatus maps non-2xx HTTP status codes to appropriate errors.
func checkHTTPStatus(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}

	var apiErr ErrorResponse
	_ = json.Unmarshal(body, &apiErr)

	switch statusCode {
	case http.StatusNotFound:
		return fmt.Errorf("not found: %s (%s)", apiErr.Message, apiErr.Code)
	case http.StatusTooManyRequests:
		return fmt.Errorf("rate limited: %s (%s)", apiErr.Message, apiErr.Code)
	default:
		return fmt.Errorf("HTTP %d: %s (%s)", statusCode, apiErr.Message, apiErr.Code)
	}
}
