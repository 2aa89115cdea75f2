package service

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// normalizeToken lower-cases and trims a key component and replaces the
// separators that would otherwise split a Redis key.
func normalizeToken(v string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	if v == "" {
		return "_"
	}
	return strings.NewReplacer(":", "_", " ", "_").Replace(v)
}

func hashToken(v string) string {
	sum := sha256.Sum256([]byte(v))
	return hex.EncodeToString(sum[:16])
}
