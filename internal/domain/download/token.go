package download

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"
)

const (
	// TokenRandomBytes of entropy render as TokenRandomLength hex characters.
	TokenRandomBytes  = 16
	TokenRandomLength = TokenRandomBytes * 2
	// maxTimestampLength bounds the base36 millisecond suffix.
	maxTimestampLength = 13
)

// TokenGenerator mints a download token for the given creation time.
type TokenGenerator func(now time.Time) (string, error)

// GenerateToken returns 32 lowercase hex characters of randomness followed by
// the creation time in milliseconds, base36 encoded.
func GenerateToken(now time.Time) (string, error) {
	b := make([]byte, TokenRandomBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return hex.EncodeToString(b) + strconv.FormatInt(now.UnixMilli(), 36), nil
}

// VerifyToken checks the structural shape of a token without touching storage.
func VerifyToken(token string) bool {
	if len(token) <= TokenRandomLength || len(token) > TokenRandomLength+maxTimestampLength {
		return false
	}
	for i := 0; i < TokenRandomLength; i++ {
		if !isLowerHex(token[i]) {
			return false
		}
	}
	for i := TokenRandomLength; i < len(token); i++ {
		if !isBase36(token[i]) {
			return false
		}
	}
	return true
}

// TokenIssuedAt decodes the timestamp suffix of a well-formed token.
func TokenIssuedAt(token string) (time.Time, bool) {
	if !VerifyToken(token) {
		return time.Time{}, false
	}
	ms, err := strconv.ParseInt(token[TokenRandomLength:], 36, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.UnixMilli(ms), true
}

func isLowerHex(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')
}

func isBase36(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'z')
}
