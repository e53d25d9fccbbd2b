package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/pbkdf2"

	"github.com/alanyoungcy/arbscanner/internal/domain"
)

const (
	// Digests are computed on every keyed request.
	apiKeyIterations = 10_000
	apiKeyDigestLen  = 32
	apiKeyRandomLen  = 16
	apiKeyPrefix     = "sb"
)

// ErrMalformedKey is returned for strings that are not sb_<tier>_<hex> keys.
var ErrMalformedKey = errors.New("crypto: malformed api key")

// GenerateAPIKey returns a fresh key of the form sb_<tier>_<32 hex chars>.
func GenerateAPIKey(tier domain.Tier) (string, error) {
	if !tier.Valid() {
		return "", fmt.Errorf("crypto: unknown tier %q", tier)
	}
	buf := make([]byte, apiKeyRandomLen)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("crypto: generating api key: %w", err)
	}
	return fmt.Sprintf("%s_%s_%s", apiKeyPrefix, tier, hex.EncodeToString(buf)), nil
}

// ParseAPIKey splits a key into its tier and random part.
func ParseAPIKey(key string) (domain.Tier, error) {
	parts := strings.Split(key, "_")
	if len(parts) != 3 || parts[0] != apiKeyPrefix {
		return "", ErrMalformedKey
	}
	tier := domain.Tier(parts[1])
	if !tier.Valid() {
		return "", ErrMalformedKey
	}
	if len(parts[2]) != apiKeyRandomLen*2 {
		return "", ErrMalformedKey
	}
	if _, err := hex.DecodeString(parts[2]); err != nil {
		return "", ErrMalformedKey
	}
	return tier, nil
}

// HashAPIKey derives the storage digest of key with PBKDF2-SHA256, salted
// with the server-side pepper.
func HashAPIKey(key, pepper string) string {
	dk := pbkdf2.Key([]byte(key), []byte(pepper), apiKeyIterations, apiKeyDigestLen, sha256.New)
	return hex.EncodeToString(dk)
}
