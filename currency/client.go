package currency

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// =============================================================================
// HTTP CLIENT - Rate service gateway with retry/backoff
// =============================================================================

// ClientConfig configures the HTTP rate gateway.
type ClientConfig struct {
	BaseURL          string
	APIKey           string
	Timeout          time.Duration
	MaxRetries       int
	RetryBackoffBase time.Duration
}

// Client fetches exchange rates from an HTTP rate service.
//
// Expected response shape for GET {base}/rates?from=EUR&to=USD:
//
//	{"from": "EUR", "to": "USD", "rate": "1.0842"}
//
// Transient failures (network errors, 429, 5xx) are retried with
// exponential backoff up to MaxRetries.
type Client struct {
	baseURL    string
	apiKey     string
	maxRetries int
	backoff    time.Duration
	httpClient *http.Client
	log        zerolog.Logger
}

func NewClient(cfg ClientConfig, log zerolog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	backoff := cfg.RetryBackoffBase
	if backoff == 0 {
		backoff = 200 * time.Millisecond
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		maxRetries: cfg.MaxRetries,
		backoff:    backoff,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				IdleConnTimeout:     30 * time.Second,
				MaxIdleConnsPerHost: 10,
			},
		},
		log: log.With().Str("component", "currency_client").Logger(),
	}
}

func (c *Client) Convert(ctx context.Context, amount decimal.Decimal, from, to string) (Conversion, error) {
	if from == to {
		return Conversion{From: from, To: to, Rate: decimal.NewFromInt(1), ConvertedAmount: amount}, nil
	}

	rate, err := c.fetchRate(ctx, from, to, 0)
	if err != nil {
		return Conversion{}, err
	}
	return Conversion{
		From:            from,
		To:              to,
		Rate:            rate,
		ConvertedAmount: amount.Mul(rate),
	}, nil
}

func (c *Client) fetchRate(ctx context.Context, from, to string, attempt int) (decimal.Decimal, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid base URL: %w", err)
	}
	u.Path = "/rates"
	q := u.Query()
	q.Set("from", from)
	q.Set("to", to)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("creating request failed: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if attempt < c.maxRetries {
			return c.retry(ctx, from, to, attempt, err)
		}
		return decimal.Zero, fmt.Errorf("rate request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		if retryableStatus(resp.StatusCode) && attempt < c.maxRetries {
			return c.retry(ctx, from, to, attempt,
				fmt.Errorf("status %d", resp.StatusCode))
		}
		body, _ := io.ReadAll(resp.Body)
		return decimal.Zero, fmt.Errorf("rate service error %d: %s", resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return decimal.Zero, fmt.Errorf("reading response body failed: %w", err)
	}

	var payload struct {
		From string `json:"from"`
		To   string `json:"to"`
		Rate string `json:"rate"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return decimal.Zero, fmt.Errorf("parsing rate response failed: %w", err)
	}

	rate, err := decimal.NewFromString(payload.Rate)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid rate %q: %w", payload.Rate, err)
	}
	if !rate.IsPositive() {
		return decimal.Zero, fmt.Errorf("non-positive rate %s for %s/%s", rate, from, to)
	}
	return rate, nil
}

func (c *Client) retry(ctx context.Context, from, to string, attempt int, cause error) (decimal.Decimal, error) {
	wait := time.Duration(math.Pow(2, float64(attempt))) * c.backoff
	c.log.Warn().
		Err(cause).
		Str("pair", from+"/"+to).
		Int("attempt", attempt+1).
		Dur("backoff", wait).
		Msg("rate request failed, retrying after backoff")

	select {
	case <-time.After(wait):
	case <-ctx.Done():
		return decimal.Zero, ctx.Err()
	}
	return c.fetchRate(ctx, from, to, attempt+1)
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}
