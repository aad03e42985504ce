package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// HashQuery creates a stable identifier for a lookup query. Case and
// surrounding whitespace are ignored so that equivalent searches share an ID.
func HashQuery(query string) string {
	h := sha256.New()
	h.Write([]byte(strings.ToUpper(strings.TrimSpace(query))))
	return hex.EncodeToString(h.Sum(nil))[:16]
}
