package audit

import (
	"crypto/sha256"
	"encoding/hex"
)

// computeHash folds prevHash into the chain as described by the wire
// contract: sha256(prev_hash || "||" || canonical) when a predecessor
// exists, sha256(canonical) for the first step in a case.
func computeHash(prevHash *string, canonical []byte) string {
	h := sha256.New()
	if prevHash != nil && *prevHash != "" {
		h.Write([]byte(*prevHash))
		h.Write([]byte("||"))
	}
	h.Write(canonical)
	return hex.EncodeToString(h.Sum(nil))
}
