// Package idhash computes deterministic identifiers for analysis runs.
// Run IDs are content hashes of the normalized input, so re-analyzing an
// unchanged cap table produces the same ID and append-only stores reject
// the duplicate instead of growing.
package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/mr-tron/base58"

	"captable-lab/internal/captable"
	"captable-lab/internal/money"
)

// refBytes is the hash prefix length encoded into the short run ref.
const refBytes = 10

// ComputeRunID computes a deterministic run_id using SHA256 over the
// normalized structure and its analysis configuration. The structure's
// canonical ordering makes the hash independent of input order.
// Returns hex-encoded hash (64 characters).
func ComputeRunID(valuationID, companyID string, s *captable.Structure) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s|%s|%d\n", valuationID, companyID, s.Config.ValuationDate)
	for _, c := range s.Classes {
		fmt.Fprintf(&b, "c|%s|%s|%s|%s|%d|%s|%s|%s|%s|%d\n",
			c.ID, string(c.Type),
			money.Canonical(c.SharesOutstanding),
			money.Canonical(c.PricePerShare),
			c.Seniority,
			string(c.PreferenceType),
			money.Canonical(c.PreferenceAmount),
			money.Canonical(c.CapAmount),
			money.Canonical(c.ConvertedShares),
			c.RoundDate,
		)
	}
	for _, g := range s.Grants {
		fmt.Fprintf(&b, "g|%s|%s|%s|%s\n",
			g.ID, string(g.Kind),
			money.Canonical(g.NumOptions),
			money.Canonical(g.ExercisePrice),
		)
	}

	hash := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(hash[:])
}

// RunRef derives the short base58 handle used in report filenames and API
// URLs from a hex run_id. Invalid input yields an empty ref.
func RunRef(runID string) string {
	raw, err := hex.DecodeString(runID)
	if err != nil || len(raw) < refBytes {
		return ""
	}
	return base58.Encode(raw[:refBytes])
}
