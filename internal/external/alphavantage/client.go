package alphavantage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/time/rate"

	"github.com/wonny/divsage/pkg/config"
	"github.com/wonny/divsage/pkg/httputil"
	"github.com/wonny/divsage/pkg/logger"
)

// Client handles communication with the Alpha Vantage API
// SSOT: Alpha Vantage calls happen in this client only.
// The free tier allows 5 requests per minute; the local limiter keeps
// a single process inside that budget, the shared Redis limiter (wired
// on the HTTP client) coordinates across processes.
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	limiter    *rate.Limiter
	baseURL    string
	apiKey     string
}

// NewClient creates a new Alpha Vantage client
func NewClient(httpClient *httputil.Client, cfg config.AlphaVantageConfig, log *logger.Logger) *Client {
	rpm := cfg.RequestsPerMinute
	if rpm <= 0 {
		rpm = 5
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://www.alphavantage.co"
	}
	return &Client{
		httpClient: httpClient,
		logger:     log,
		limiter:    rate.NewLimiter(rate.Limit(float64(rpm)/60.0), 1),
		baseURL:    baseURL,
		apiKey:     cfg.APIKey,
	}
}

// fetch performs one rate-limited query against the API
func (c *Client) fetch(ctx context.Context, function, ticker string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait failed: %w", err)
	}

	params := url.Values{}
	params.Set("function", function)
	params.Set("symbol", ticker)
	params.Set("apikey", c.apiKey)

	fullURL := fmt.Sprintf("%s/query?%s", c.baseURL, params.Encode())

	resp, err := c.httpClient.Get(ctx, fullURL)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	// Throttle and error responses come back as 200 with a note
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err == nil {
		for _, key := range []string{"Note", "Information", "Error Message"} {
			if msg, ok := envelope[key]; ok {
				return nil, fmt.Errorf("alpha vantage %s: %s", strings.ToLower(key), string(msg))
			}
		}
	}

	return body, nil
}

// parseFloat converts Alpha Vantage string numerics. "None", "-" and
// empty values map to 0.
func parseFloat(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" || s == "None" || s == "-" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}
