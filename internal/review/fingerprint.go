package review

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/linnemanlabs/sift/internal/analyzer"
)

// Fingerprint derives a stable identity for a review target, used to dedup
// submissions of the same work while a run is still in flight.
func Fingerprint(t analyzer.Target) string {
	h := sha256.New()
	h.Write([]byte(t.Repo))
	h.Write([]byte{0})
	h.Write([]byte(t.Ref))
	h.Write([]byte{0})
	h.Write([]byte(t.Diff))
	return hex.EncodeToString(h.Sum(nil)[:16])
}
