package tariff

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/gowebpki/jcs"
)

// aggregate sums nominal and post-exemption duty over the ordered results.
// TotalAfter counts only non-excluded entries; needs-input and invalid
// verdicts contribute zero without being excluded.
func aggregate(results []StackingResult) AggregateResult {
	var before, after float64
	for _, r := range results {
		before += r.Amount
		if !r.Excluded() {
			after += r.FinalAmount
		}
	}
	return AggregateResult{
		Results:     results,
		TotalBefore: before,
		TotalAfter:  after,
		Savings:     before - after,
	}
}

// Fingerprint returns a SHA-256 digest of the result's canonical JSON form
// (RFC 8785). Identical inputs always evaluate to the same fingerprint, so
// callers can use it to verify determinism or deduplicate analyses.
func (r AggregateResult) Fingerprint() (string, error) {
	raw, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("failed to marshal result: %w", err)
	}
	canonical, err := jcs.Transform(raw)
	if err != nil {
		return "", fmt.Errorf("failed to canonicalize result: %w", err)
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}
