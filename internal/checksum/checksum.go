// Package checksum computes note document digests used as entity tags.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// ETag formats sum as a strong HTTP entity tag.
func ETag(sum string) string {
	return `"` + sum + `"`
}

// Matches reports whether an If-Match style value names the digest of data.
// Quotes and a weak "W/" prefix are ignored; "*" matches anything.
func Matches(tag string, data []byte) bool {
	tag = strings.TrimSpace(tag)
	if tag == "*" {
		return true
	}
	tag = strings.Trim(strings.TrimPrefix(tag, "W/"), `"`)
	return tag == Sum(data)
}
