// Package advisory implements the HTTP client for the external advisory
// service consulted by the timing and sentiment agents. The service scores a
// free-text opportunity description; the council treats any failure here as a
// degradation, never a fatal error.
package advisory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/alanyoungcy/crossbot/internal/domain"
)

// Client is the REST client for the advisory scoring service.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a new advisory client.
//
// baseURL is the service root, e.g. "https://advisor.internal/v1".
// apiKey may be empty when the deployment does not require auth.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type adviseRequest struct {
	Description string `json:"description"`
}

type adviseResponse struct {
	Score      float64 `json:"score"`
	Confidence float64 `json:"confidence"`
	Rationale  string  `json:"rationale"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Advise scores the given opportunity description. The returned score and
// confidence are both in [0,1]; out-of-range responses are rejected so the
// caller can fall back to a neutral vote.
func (c *Client) Advise(ctx context.Context, description string) (domain.Advice, error) {
	body, err := c.doRequest(ctx, http.MethodPost, "/advise", adviseRequest{Description: description})
	if err != nil {
		return domain.Advice{}, fmt.Errorf("advisory: advise: %w", err)
	}

	var resp adviseResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.Advice{}, fmt.Errorf("advisory: decode response: %w", err)
	}

	if resp.Score < 0 || resp.Score > 1 || resp.Confidence < 0 || resp.Confidence > 1 {
		return domain.Advice{}, fmt.Errorf("advisory: score %.3f confidence %.3f out of range", resp.Score, resp.Confidence)
	}

	return domain.Advice{
		Score:      resp.Score,
		Confidence: resp.Confidence,
		Rationale:  resp.Rationale,
	}, nil
}

// doRequest builds, sends, and reads an HTTP request against the advisory API.
func (c *Client) doRequest(ctx context.Context, method, path string, reqBody any) ([]byte, error) {
	var bodyReader io.Reader
	if reqBody != nil {
		jsonBody, err := json.Marshal(reqBody)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if err := c.checkStatus(resp.StatusCode, respBody); err != nil {
		return nil, err
	}

	return respBody, nil
}

// checkStatus maps non-2xx HTTP status codes to appropriate errors.
func (c *Client) checkStatus(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}

	var apiErr errorResponse
	_ = json.Unmarshal(body, &apiErr)

	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("unauthorized: %s (%s)", apiErr.Message, apiErr.Code)
	case http.StatusTooManyRequests:
		return fmt.Errorf("rate limited: %s (%s)", apiErr.Message, apiErr.Code)
	default:
		return fmt.Errorf("HTTP %d: %s (%s)", statusCode, apiErr.Message, apiErr.Code)
	}
}
