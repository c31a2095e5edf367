package contextpack

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/supernovae/synesis/internal/state"
)

// hashChunk returns a short content hash, used both for provenance and
// as a building block of the pack-level hash.
func hashChunk(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])[:24]
}

// computeContextHash produces a stable, reproducible hash over the
// pinned+retrieved chunk set so two curator runs over identical state
// produce an identical pack (spec §4.2 determinism requirement).
func computeContextHash(pinned, retrieved []state.Chunk) string {
	h := sha256.New()
	fmt.Fprintf(h, "pinned:%d|retrieved:%d", len(pinned), len(retrieved))
	for _, c := range pinned {
		text := c.Text
		if len(text) > 100 {
			text = text[:100]
		}
		fmt.Fprintf(h, "|%s:%s", c.ID, text)
	}
	for _, c := range retrieved {
		text := c.Text
		if len(text) > 100 {
			text = text[:100]
		}
		fmt.Fprintf(h, "|%s:%s", c.ID, text)
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// jaccardSimilarity measures overlap between two chunk-ID sets: 1.0 for
// identical/both-empty sets, 0.0 for disjoint non-empty sets. Used to
// detect context drift across retries (spec §4.2 "context_resync_message").
func jaccardSimilarity(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	inter := 0
	for k := range a {
		if _, ok := b[k]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 1.0
	}
	return float64(inter) / float64(union)
}

func idSet(chunks ...[]state.Chunk) map[string]struct{} {
	out := make(map[string]struct{})
	for _, group := range chunks {
		for _, c := range group {
			if c.ID != "" {
				out[c.ID] = struct{}{}
			}
		}
	}
	return out
}
