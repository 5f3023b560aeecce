package stockanalysis

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/wonny/divsage/pkg/config"
	"github.com/wonny/divsage/pkg/httputil"
	"github.com/wonny/divsage/pkg/logger"
	"github.com/wonny/divsage/pkg/redis"
)

// dividendHistoryTTL bounds scrape staleness; payment history changes
// quarterly at most
const dividendHistoryTTL = 12 * time.Hour

// historyCache is the slice of the cache API the client needs
type historyCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// Client scrapes dividend history from stockanalysis.com
// SSOT: stockanalysis.com access happens in this client only.
// Used as the dividend-history source for the cut detector; page
// structure changes surface as parse errors, never as fabricated data.
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
	cache      historyCache
}

// NewClient creates a new stockanalysis.com client
func NewClient(httpClient *httputil.Client, cfg config.ScrapeConfig, log *logger.Logger) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://stockanalysis.com"
	}
	return &Client{
		httpClient: httpClient,
		logger:     log,
		baseURL:    baseURL,
	}
}

// WithCache attaches a cache for scraped histories, sparing the site
// a request per ticker per refresh pass
func (c *Client) WithCache(cache historyCache) *Client {
	c.cache = cache
	return c
}

// DividendPayment is one historical dividend payment
type DividendPayment struct {
	ExDate time.Time
	Amount float64
}

// GetDividendHistory fetches the dividend payment history for a
// ticker, newest first
func (c *Client) GetDividendHistory(ctx context.Context, ticker string) ([]DividendPayment, error) {
	cacheKey := redis.DividendHistoryKey(ticker)
	if c.cache != nil {
		var cached []DividendPayment
		if found, err := c.cache.Get(ctx, cacheKey, &cached); err == nil && found {
			return cached, nil
		}
	}

	fullURL := fmt.Sprintf("%s/stocks/%s/dividend/", c.baseURL, strings.ToLower(ticker))

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

	payments, err := parseDividendTable(string(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse dividend history for %s: %w", ticker, err)
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, cacheKey, payments, dividendHistoryTTL); err != nil {
			c.logger.WithError(err).WithField("ticker", ticker).Warn("Dividend history cache write failed")
		}
	}

	c.logger.WithFields(map[string]interface{}{
		"ticker":   ticker,
		"payments": len(payments),
	}).Debug("Fetched dividend history")

	return payments, nil
}

// parseDividendTable extracts payments from the dividend history
// table. Expects the first column to be the ex-dividend date and the
// second the cash amount.
func parseDividendTable(html string) ([]DividendPayment, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	payments := make([]DividendPayment, 0)

	doc.Find("table tbody tr").Each(func(i int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 2 {
			return
		}

		dateText := strings.TrimSpace(cells.Eq(0).Text())
		exDate, err := parseDate(dateText)
		if err != nil {
			return
		}

		amountText := strings.TrimSpace(cells.Eq(1).Text())
		amount := parseAmount(amountText)
		if amount <= 0 {
			return
		}

		payments = append(payments, DividendPayment{ExDate: exDate, Amount: amount})
	})

	if len(payments) == 0 {
		return nil, fmt.Errorf("no dividend rows found")
	}

	return payments, nil
}

// parseDate handles the date formats the site has used
func parseDate(s string) (time.Time, error) {
	for _, layout := range []string{"Jan 2, 2006", "2006-01-02"} {
		if d, err := time.Parse(layout, s); err == nil {
			return d, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// parseAmount strips the currency symbol and parses the cash amount
func parseAmount(s string) float64 {
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")
	var amount float64
	if _, err := fmt.Sscanf(s, "%f", &amount); err != nil {
		return 0
	}
	return amount
}
