// Package middleware provides authentication, logging, rate limiting and
// tracing middleware for the HTTP API.
package middleware

import (
	"errors"
	"strings"
	"time"

	"opcdiary/internal/config"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

const (
	// TokenIssuer and TokenAudience are checked on every token.
	TokenIssuer   = "opcdiary-api"
	TokenAudience = "opcdiary-client"

	// LocalIdentity and LocalSessionID are the fiber locals set by the auth
	// middleware.
	LocalIdentity  = "identity"
	LocalSessionID = "sessionID"
)

var cfg *config.Config

// InitMiddleware initializes authentication middleware with the given config.
func InitMiddleware(c *config.Config) {
	cfg = c
}

// Claims are the JWT claims of a session token. The subject is the company
// name the session logged in as.
type Claims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// IssueToken signs a token for identity bound to session id.
func IssueToken(secret, identity, sessionID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity,
			Issuer:    TokenIssuer,
			Audience:  jwt.ClaimStrings{TokenAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// ParseToken validates a session token.
func ParseToken(secret, token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return []byte(secret), nil
	},
		jwt.WithIssuer(TokenIssuer),
		jwt.WithAudience(TokenAudience),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil || !parsed.Valid {
		return nil, errors.New("invalid or expired token")
	}
	if claims.Subject == "" || claims.SessionID == "" {
		return nil, errors.New("invalid token structure")
	}
	return claims, nil
}

// AuthRequired is a middleware that enforces authentication for protected routes.
func AuthRequired(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Authorization header required",
		})
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid authorization header format",
		})
	}

	return authenticate(c, parts[1])
}

// WebSocketAuthRequired is middleware that validates JWT tokens from query parameters for WebSocket connections.
func WebSocketAuthRequired(c *fiber.Ctx) error {
	token := c.Query("token")
	if token == "" {
		return AuthRequired(c)
	}
	return authenticate(c, token)
}

func authenticate(c *fiber.Ctx, token string) error {
	claims, err := ParseToken(cfg.JWTSecret, token)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid or expired token",
		})
	}

	c.Locals(LocalIdentity, claims.Subject)
	c.Locals(LocalSessionID, claims.SessionID)
	WithSession(c, claims.Subject, claims.SessionID)

	return c.Next()
}
