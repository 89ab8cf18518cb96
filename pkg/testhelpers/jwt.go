// Package testhelpers provides utilities for testing askdb-engine components.
package testhelpers

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TestJWTSecret signs tokens minted by GenerateTestJWT. Auth middleware
// tests configure the server with the same secret so verification succeeds.
const TestJWTSecret = "test-secret-not-for-production"

// GenerateTestJWT mints a signed HS256 token with the given subject. A zero
// or negative ttl produces an already-expired token for rejection tests.
func GenerateTestJWT(t *testing.T, sub string, ttl time.Duration) string {
	t.Helper()

	now := time.Now()
	claims := jwt.MapClaims{
		"sub": sub,
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(TestJWTSecret))
	if err != nil {
		t.Fatalf("failed to sign test token: %v", err)
	}
	return signed
}

// GenerateTestJWTWithBearer returns the token with the "Bearer " prefix for
// an Authorization header.
func GenerateTestJWTWithBearer(t *testing.T, sub string, ttl time.Duration) string {
	return "Bearer " + GenerateTestJWT(t, sub, ttl)
}
