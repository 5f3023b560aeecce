package ingest

// DetectCut reports whether the most recent dividend payment is
// strictly below the one before it. Amounts are newest first; zero
// entries (non-payment days from price feeds) are skipped.
//
// Deliberately naive: a single lower payment flags the ticker even
// when it is a special-dividend artifact. The flag feeds a warning
// marker in the analysis context, not an automatic exclusion, so a
// false positive costs a caveat while a false negative hides a real
// income risk.
func DetectCut(amounts []float64) bool {
	var latest, previous float64

	for _, amount := range amounts {
		if amount <= 0 {
			continue
		}
		if latest == 0 {
			latest = amount
			continue
		}
		previous = amount
		break
	}

	if latest == 0 || previous == 0 {
		return false
	}
	return latest < previous
}
