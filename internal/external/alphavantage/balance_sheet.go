package alphavantage

import (
	"context"
	"encoding/json"
	"fmt"
)

// balanceSheetResponse is the BALANCE_SHEET wire shape
type balanceSheetResponse struct {
	Symbol        string `json:"symbol"`
	AnnualReports []struct {
		FiscalDateEnding       string `json:"fiscalDateEnding"`
		TotalLiabilities       string `json:"totalLiabilities"`
		TotalShareholderEquity string `json:"totalShareholderEquity"`
	} `json:"annualReports"`
}

// GetDebtToEquity fetches the balance sheet and computes the
// debt-to-equity ratio from the most recent annual report. Returns 0
// when the ratio cannot be computed (missing report, zero equity).
func (c *Client) GetDebtToEquity(ctx context.Context, ticker string) (float64, error) {
	body, err := c.fetch(ctx, "BALANCE_SHEET", ticker)
	if err != nil {
		return 0, err
	}

	var sheet balanceSheetResponse
	if err := json.Unmarshal(body, &sheet); err != nil {
		return 0, fmt.Errorf("failed to parse balance sheet: %w", err)
	}
	if len(sheet.AnnualReports) == 0 {
		return 0, nil
	}

	latest := sheet.AnnualReports[0]
	liabilities := parseFloat(latest.TotalLiabilities)
	equity := parseFloat(latest.TotalShareholderEquity)
	if equity <= 0 {
		return 0, nil
	}

	ratio := liabilities / equity

	c.logger.WithFields(map[string]interface{}{
		"ticker":         ticker,
		"fiscal_date":    latest.FiscalDateEnding,
		"debt_to_equity": ratio,
	}).Debug("Computed debt-to-equity")

	return ratio, nil
}
