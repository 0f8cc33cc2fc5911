package util

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"github.com/templatestore/license-service/internal/domain/apikey"
	"golang.org/x/crypto/bcrypt"
)

// keyAlphabet excludes the '_' separator so keys split unambiguously.
const keyAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

func randomToken(n int) (string, error) {
	var b strings.Builder
	b.Grow(n)
	limit := big.NewInt(int64(len(keyAlphabet)))
	for i := 0; i < n; i++ {
		idx, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", err
		}
		b.WriteByte(keyAlphabet[idx.Int64()])
	}
	return b.String(), nil
}

// GenerateAPIKey returns the plaintext key (shown once), its lookup prefix
// and the bcrypt hash that is persisted.
func GenerateAPIKey() (fullKey, prefix, keyHash string, err error) {
	if prefix, err = randomToken(apikey.APIKeyPrefixLength); err != nil {
		return "", "", "", fmt.Errorf("generate prefix: %w", err)
	}
	secret, err := randomToken(apikey.APIKeySecretLength)
	if err != nil {
		return "", "", "", fmt.Errorf("generate secret: %w", err)
	}

	fullKey = fmt.Sprintf(apikey.APIKeyFormat, prefix, secret)
	hash, err := bcrypt.GenerateFromPassword([]byte(fullKey), bcrypt.DefaultCost)
	if err != nil {
		return "", "", "", fmt.Errorf("hash api key: %w", err)
	}
	return fullKey, prefix, string(hash), nil
}

// ParseAPIKey extracts the lookup prefix from a presented key.
func ParseAPIKey(fullKey string) (prefix string, ok bool) {
	parts := strings.SplitN(fullKey, "_", 3)
	if len(parts) != 3 || parts[0] != apikey.APIKeyScheme || parts[1] == "" || parts[2] == "" {
		return "", false
	}
	return parts[1], true
}

func CompareAPIKey(keyHash, fullKey string) bool {
	return bcrypt.CompareHashAndPassword([]byte(keyHash), []byte(fullKey)) == nil
}
