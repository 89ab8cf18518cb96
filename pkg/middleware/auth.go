package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/askdb-ai/askdb-engine/pkg/config"
)

// Auth gates API routes behind a shared-secret bearer token. With
// verification disabled every request passes through, which is the local
// development default.
type Auth struct {
	cfg    *config.AuthConfig
	logger *zap.Logger
}

// NewAuth creates a new auth middleware with the given configuration.
func NewAuth(cfg *config.AuthConfig, logger *zap.Logger) *Auth {
	return &Auth{cfg: cfg, logger: logger}
}

// RequireBearer validates the Authorization header when verification is
// enabled. Tokens are HS256, signed with the configured shared secret.
func (a *Auth) RequireBearer(next http.HandlerFunc) http.HandlerFunc {
	if !a.cfg.EnableVerification {
		return next
	}

	return func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			a.unauthorized(w, "Authentication required")
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			a.logger.Debug("Invalid Authorization header format",
				zap.String("path", r.URL.Path))
			a.unauthorized(w, "Authorization header must use the Bearer scheme")
			return
		}

		if err := a.validateToken(parts[1]); err != nil {
			a.logger.Warn("Token rejected",
				zap.String("path", r.URL.Path),
				zap.Error(err))
			a.unauthorized(w, "Invalid or expired token")
			return
		}

		next(w, r)
	}
}

// validateToken checks the signature and standard claims of an HS256 token.
func (a *Auth) validateToken(tokenString string) error {
	_, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(a.cfg.SharedSecret), nil
	})
	if err != nil {
		return fmt.Errorf("token validation failed: %w", err)
	}
	return nil
}

// unauthorized returns a 401 response with JSON error body.
func (a *Auth) unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   "unauthorized",
		"message": message,
	})
}
