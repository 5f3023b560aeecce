package redis

import "fmt"

// Cache key builders
// Keeping key formats in one place so repositories and workers agree.

// FundamentalKey returns the cache key for a ticker's latest fundamental record
func FundamentalKey(ticker string) string {
	return fmt.Sprintf("fundamental:latest:%s", ticker)
}

// PriceKey returns the cache key for a ticker's latest price
func PriceKey(ticker string) string {
	return fmt.Sprintf("price:latest:%s", ticker)
}

// DividendHistoryKey returns the cache key for a ticker's dividend history
func DividendHistoryKey(ticker string) string {
	return fmt.Sprintf("dividends:history:%s", ticker)
}
