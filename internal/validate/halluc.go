package validate

import (
	"regexp"
	"sort"
	"strings"

	"github.com/wonny/divsage/internal/contracts"
)

// tickerLikePattern matches standalone 2-5 letter uppercase tokens.
// Single letters are skipped: too many false positives ("A", "I").
var tickerLikePattern = regexp.MustCompile(`\b[A-Z]{2,5}\b`)

// proseAllowlist holds uppercase tokens that look like tickers but are
// ordinary finance vocabulary. Kept deliberately small; a miss here
// only produces a log line, never a rejection.
var proseAllowlist = map[string]struct{}{
	"VIG":  {},
	"ETF":  {},
	"USA":  {},
	"USD":  {},
	"GDP":  {},
	"CPI":  {},
	"CAGR": {},
	"EPS":  {},
	"FCF":  {},
	"ROIC": {},
	"LLC":  {},
	"INC":  {},
}

// ScanForUnknownTickers scans the free-text fields of an accepted
// proposal for ticker-like tokens outside the universe. Heuristic and
// advisory only: the structured portfolio has already passed the hard
// universe gate, so findings here are surfaced for audit, not acted on.
func ScanForUnknownTickers(proposal *contracts.ModelProposal, universe map[string]struct{}) []string {
	var prose strings.Builder
	prose.WriteString(proposal.Explanation.Summary)
	for _, groups := range [][]string{
		proposal.Explanation.Bullets,
		proposal.Explanation.WhatWouldChangeThis,
		proposal.Explanation.RisksToWatch,
		proposal.Explanation.Disclaimers,
	} {
		for _, line := range groups {
			prose.WriteString("\n")
			prose.WriteString(line)
		}
	}
	for _, item := range proposal.TargetPortfolio {
		prose.WriteString("\n")
		prose.WriteString(item.Rationale)
	}

	seen := make(map[string]struct{})
	for _, token := range tickerLikePattern.FindAllString(prose.String(), -1) {
		if _, ok := universe[token]; ok {
			continue
		}
		if _, ok := proseAllowlist[token]; ok {
			continue
		}
		seen[token] = struct{}{}
	}

	if len(seen) == 0 {
		return nil
	}
	flagged := make([]string, 0, len(seen))
	for token := range seen {
		flagged = append(flagged, token)
	}
	sort.Strings(flagged)
	return flagged
}
