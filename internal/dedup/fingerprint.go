package dedup

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

const idLength = 32

// URLFingerprint hashes the normalized form of rawURL.
func URLFingerprint(rawURL string) string {
	return hashHex(Normalize(rawURL))
}

// ContentFingerprint hashes the lowercased title together with the day part
// of publishedAt, catching syndicated copies published under other URLs.
func ContentFingerprint(title, publishedAt string) string {
	day := []rune(publishedAt)
	if len(day) > 10 {
		day = day[:10]
	}
	return hashHex(strings.TrimSpace(strings.ToLower(title)) + "|" + string(day))
}

// ArticleID derives the stable article id from its URL fingerprint.
func ArticleID(urlHash string) string {
	if len(urlHash) > idLength {
		return urlHash[:idLength]
	}
	return urlHash
}

func hashHex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
