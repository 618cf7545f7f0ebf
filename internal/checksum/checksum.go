// Package checksum fingerprints document bodies for optimistic concurrency.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Of returns the hex-encoded SHA-256 digest of a document body.
func Of(body string) string {
	h := sha256.Sum256([]byte(body))
	return hex.EncodeToString(h[:])
}

// ETag returns the quoted entity tag for body.
func ETag(body string) string {
	return `"` + Of(body) + `"`
}

// Matches reports whether an If-Match value names body. The value may be
// quoted; an empty value or "*" matches anything.
func Matches(ifMatch, body string) bool {
	ifMatch = strings.TrimSpace(ifMatch)
	if ifMatch == "" || ifMatch == "*" {
		return true
	}
	return strings.Trim(ifMatch, `"`) == Of(body)
}
