// Task 1.6: Auth primitives — bcrypt API-key hashing and JWT generation/parsing.
// This is a leaf package with no domain dependencies. Used by
// internal/api/middleware and the hash-key CLI command.
package authtoken

import (
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// ===== CONSTANTS =====

// BCryptCost is the work factor for bcrypt. 12 is a good balance between
// hashing cost and login latency for control-plane keys.
const BCryptCost = 12

// DefaultTokenExpiry is the token lifetime used when the caller passes a
// non-positive ttl.
const DefaultTokenExpiry = 24 * time.Hour

// ===== BCRYPT FUNCTIONS =====

// HashAPIKey hashes a plaintext API key using bcrypt.
// Returns error if bcrypt fails (unlikely in practice, but handle it).
func HashAPIKey(key string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(key), BCryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash api key: %w", err)
	}
	return string(hash), nil
}

// VerifyAPIKey verifies a plaintext API key against a bcrypt hash.
// Returns false (not error) for invalid hashes to avoid leaking hash
// format details in responses.
func VerifyAPIKey(hash, key string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(key))
	return err == nil
}

// ===== JWT FUNCTIONS =====

// Claims are the JWT claims carried by control-plane bearer tokens.
// Subject identifies the caller; everything else is standard.
type Claims struct {
	Subject string `json:"sub_name,omitempty"`
	jwt.RegisteredClaims
}

// SecretFromEnv reads the signing secret from the named environment
// variable. The name comes from the distribution's server.auth config, so
// a missing value is a configuration error, not a runtime condition.
func SecretFromEnv(name string) ([]byte, error) {
	v := os.Getenv(name)
	if v == "" {
		return nil, fmt.Errorf("auth secret environment variable %s is not set", name)
	}
	return []byte(v), nil
}

// GenerateToken creates a signed HS256 token for subject, valid for ttl
// (DefaultTokenExpiry when ttl <= 0).
func GenerateToken(secret []byte, subject string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = DefaultTokenExpiry
	}
	now := time.Now()

	claims := &Claims{
		Subject: subject,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return signedToken, nil
}

// ParseToken validates and parses a bearer token, extracting claims.
// Returns error if the token is invalid, expired, or malformed.
func ParseToken(secret []byte, tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, fmt.Errorf("token is empty")
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		// Verify signing method is HMAC-SHA256 (prevent algorithm substitution attacks)
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims or signature")
	}

	return claims, nil
}
