package security

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"
	"regexp"
)

var (
	// ErrExhaustedRetries is returned when token generation keeps colliding with
	// recorded tokens. With a 62^16 space this indicates a broken or adversarial
	// store, not bad luck.
	ErrExhaustedRetries = errors.New("token generation exhausted retries")
)

// TokenLength is the fixed length of session tokens.
const TokenLength = 16

// maxTokenAttempts bounds the collision-retry loop in GenerateToken.
const maxTokenAttempts = 10

// tokenAlphabet is the 62-symbol alphabet tokens are drawn from.
const tokenAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789abcdefghijklmnopqrstuvwxyz"

// tokenPattern accepts the token format family: 16 chars of [A-Za-z0-9_].
// Deliberately looser than the generator alphabet; the reserved anonymous
// token contains underscores and must pass the format check.
var tokenPattern = regexp.MustCompile(`^[a-zA-Z0-9_]{16}$`)

// TokenExistsFunc reports whether a token is already recorded (open or closed).
type TokenExistsFunc func(ctx context.Context, token string) (bool, error)

// GenerateToken draws a 16-character random token from the alphanumeric alphabet
// and verifies it against exists so the token is unique among all recorded
// sessions. Retries a bounded number of times on collision, then returns
// ErrExhaustedRetries. Store lookup failures are returned as-is.
func GenerateToken(ctx context.Context, exists TokenExistsFunc) (string, error) {
	for attempt := 0; attempt < maxTokenAttempts; attempt++ {
		token, err := randomToken()
		if err != nil {
			return "", err
		}
		found, err := exists(ctx, token)
		if err != nil {
			return "", err
		}
		if !found {
			return token, nil
		}
	}
	return "", ErrExhaustedRetries
}

// ValidTokenFormat reports whether s belongs to the accepted token format
// family: exactly 16 characters of [A-Za-z0-9_].
func ValidTokenFormat(s string) bool {
	return tokenPattern.MatchString(s)
}

func randomToken() (string, error) {
	max := big.NewInt(int64(len(tokenAlphabet)))
	b := make([]byte, TokenLength)
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = tokenAlphabet[n.Int64()]
	}
	return string(b), nil
}
