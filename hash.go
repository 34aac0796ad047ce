package wikidigest

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode"
)

// HashBytes returns the hex SHA-256 digest of b.
func HashBytes(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// HashString returns the hex SHA-256 digest of s.
func HashString(s string) string {
	return HashBytes([]byte(s))
}

// ShortHash returns the first 8 characters of a hex digest.
func ShortHash(hash string) string {
	if len(hash) < 8 {
		return hash
	}
	return hash[:8]
}

const maxNameLength = 50

// SanitizeName turns a title or file name into a storage-safe name.
// Characters other than letters, digits, underscores, hyphens and whitespace
// are dropped; runs of hyphens and whitespace become a single underscore.
func SanitizeName(name string) string {
	var sb strings.Builder
	pendingSep := false

	for _, r := range name {
		switch {
		case r == '-' || unicode.IsSpace(r):
			pendingSep = true
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_':
			if pendingSep {
				sb.WriteRune('_')
				pendingSep = false
			}
			sb.WriteRune(r)
		}
	}

	result := strings.Trim(sb.String(), "_")
	if runes := []rune(result); len(runes) > maxNameLength {
		result = string(runes[:maxNameLength])
	}
	return result
}
