package polymarket

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/alanyoungcy/arbscanner/internal/domain"
)

// DefaultGammaURL is the production Gamma API root.
const DefaultGammaURL = "https://gamma-api.polymarket.com"

// GammaConfig configures a GammaClient.
type GammaConfig struct {
	BaseURL string
	// RatePerSecond and Burst pace outgoing requests. Zero disables pacing.
	RatePerSecond float64
	Burst         int
	Timeout       time.Duration
}

// GammaClient is the REST client for the Polymarket Gamma API, which
// provides market discovery and metadata.
type GammaClient struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewGammaClient creates a new Gamma API client.
func NewGammaClient(cfg GammaConfig) *GammaClient {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultGammaURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RatePerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), burst)
	}
	return &GammaClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    limiter,
	}
}

// MarketQuery selects and orders a market listing.
type MarketQuery struct {
	Limit     int
	Order     string
	Ascending bool
	Closed    bool
}

// DefaultMarketQuery lists the 100 highest-volume open markets.
func DefaultMarketQuery() MarketQuery {
	return MarketQuery{Limit: 100, Order: "volume"}
}

// ListMarkets returns one page of markets matching q.
func (g *GammaClient) ListMarkets(ctx context.Context, q MarketQuery) ([]APIMarket, error) {
	params := url.Values{}
	params.Set("closed", strconv.FormatBool(q.Closed))
	params.Set("limit", strconv.Itoa(q.Limit))
	if q.Order != "" {
		params.Set("order", q.Order)
	}
	params.Set("ascending", strconv.FormatBool(q.Ascending))

	body, err := g.doGet(ctx, "/markets?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("polymarket/gamma: list markets: %w", err)
	}

	var markets []APIMarket
	if err := json.Unmarshal(body, &markets); err != nil {
		return nil, fmt.Errorf("polymarket/gamma: decode markets: %w", err)
	}
	return markets, nil
}

// BrowseMarkets forwards params to the markets listing and returns the raw
// JSON array. closed, order and ascending default to false, volume and false
// when params leaves them out.
func (g *GammaClient) BrowseMarkets(ctx context.Context, params url.Values) (json.RawMessage, error) {
	q := url.Values{}
	for k, v := range params {
		q[k] = append([]string(nil), v...)
	}
	for k, def := range map[string]string{"closed": "false", "order": "volume", "ascending": "false"} {
		if !q.Has(k) {
			q.Set(k, def)
		}
	}

	body, err := g.doGet(ctx, "/markets?"+q.Encode())
	if err != nil {
		return nil, fmt.Errorf("polymarket/gamma: browse markets: %w", err)
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("polymarket/gamma: browse markets: response is not JSON")
	}
	return body, nil
}

// MarketsByCondition returns the raw JSON array of markets with the given
// condition id.
func (g *GammaClient) MarketsByCondition(ctx context.Context, conditionID string) (json.RawMessage, error) {
	params := url.Values{}
	params.Set("condition_id", conditionID)

	body, err := g.doGet(ctx, "/markets?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("polymarket/gamma: markets by condition %s: %w", conditionID, err)
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("polymarket/gamma: markets by condition %s: response is not JSON", conditionID)
	}
	return body, nil
}

// Ping issues the smallest possible markets request.
func (g *GammaClient) Ping(ctx context.Context) error {
	if _, err := g.doGet(ctx, "/markets?limit=1"); err != nil {
		return fmt.Errorf("polymarket/gamma: ping: %w", err)
	}
	return nil
}

// --------------------------------------------------------------------------
// Internal helpers
// --------------------------------------------------------------------------

// doGet sends a paced, unauthenticated GET request to the Gamma API.
func (g *GammaClient) doGet(ctx context.Context, path string) ([]byte, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := g.httpClient.Do(req)
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

// checkHTTPStatus maps non-2xx responses to domain errors.
func checkHTTPStatus(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}

	bodyStr := string(body)
	switch statusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", domain.ErrNotFound, bodyStr)
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s", domain.ErrUnauthorized, bodyStr)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", domain.ErrRateLimited, bodyStr)
	default:
		return fmt.Errorf("HTTP %d: %s", statusCode, bodyStr)
	}
}
