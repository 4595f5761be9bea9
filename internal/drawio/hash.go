package drawio

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
)

// ─────────────────────────────────────────────────────────────
// Content hashing — cache keys for rendered previews
// ─────────────────────────────────────────────────────────────

// FingerprintLen is the number of hex characters in a fingerprint.
// The cache service validates keys against this exact length, and the
// same truncated sha256 scheme is used by every other producer of cache
// keys, so entries written by one are readable by all.
const FingerprintLen = 16

// Hasher computes short content fingerprints of diagram XML.
// Digests are memoized per exact input for the lifetime of the process.
type Hasher struct {
	mu   sync.Mutex
	memo map[string]string
}

// NewHasher creates a Hasher with an empty memo.
func NewHasher() *Hasher {
	return &Hasher{memo: make(map[string]string)}
}

// Fingerprint returns the truncated lowercase-hex sha256 digest of xml.
func (h *Hasher) Fingerprint(xml string) string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if fp, ok := h.memo[xml]; ok {
		return fp
	}
	sum := sha256.Sum256([]byte(xml))
	fp := hex.EncodeToString(sum[:])[:FingerprintLen]
	h.memo[xml] = fp
	return fp
}
