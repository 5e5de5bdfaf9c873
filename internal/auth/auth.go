// Package auth verifies Better Auth session tokens.
//
// Tokens are HS256 JWTs signed with a secret shared with the identity
// provider; hibari only verifies them, it never issues them. The user
// identifier lives in the sub claim, with user_id as a fallback, and must
// match the user addressed by the request path.
package auth

import (
	"log/slog"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hibari-ai/hibari/internal/config"
	"github.com/hibari-ai/hibari/internal/fault"
)

// Claims are the token claims hibari reads. Better Auth puts the user in
// sub; some older tokens carry user_id instead.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"user_id,omitempty"`
}

// Verifier validates bearer tokens against the shared secret.
type Verifier struct {
	secret   []byte
	optional bool
	parser   *jwt.Parser
	logger   *slog.Logger
}

// NewVerifier creates a Verifier from configuration.
func NewVerifier(cfg config.Config, logger *slog.Logger) *Verifier {
	if cfg.AuthOptional {
		logger.Warn("auth: running with optional authentication, requests without a token act as the path user")
	}
	return &Verifier{
		secret:   []byte(cfg.AuthSecret),
		optional: cfg.AuthOptional,
		parser:   jwt.NewParser(jwt.WithValidMethods([]string{"HS256"})),
		logger:   logger,
	}
}

// ExtractUserID validates a raw token and returns the user it identifies.
func (v *Verifier) ExtractUserID(token string) (string, error) {
	claims := &Claims{}
	if _, err := v.parser.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return v.secret, nil
	}); err != nil {
		return "", fault.Wrap(fault.AuthError, err, "invalid token")
	}

	userID := claims.Subject
	if userID == "" {
		userID = claims.UserID
	}
	if userID == "" {
		return "", fault.New(fault.AuthError, "token missing user identifier")
	}
	return userID, nil
}

// Authenticate checks the Authorization header against the path user and
// returns the authenticated user ID. In optional mode a missing header is
// accepted and the path user is trusted as-is.
func (v *Verifier) Authenticate(authorization, pathUserID string) (string, error) {
	if authorization == "" {
		if v.optional {
			return pathUserID, nil
		}
		return "", fault.New(fault.AuthError, "authentication required")
	}

	token, err := bearerToken(authorization)
	if err != nil {
		return "", err
	}

	userID, err := v.ExtractUserID(token)
	if err != nil {
		return "", err
	}
	if userID != pathUserID {
		v.logger.Warn("auth: path user mismatch", "token_user", userID, "path_user", pathUserID)
		return "", fault.New(fault.AuthError, "access denied: user mismatch")
	}
	return userID, nil
}

// bearerToken extracts the token from an Authorization header value.
func bearerToken(authorization string) (string, error) {
	parts := strings.Fields(authorization)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", fault.New(fault.AuthError, "invalid authorization header format")
	}
	return parts[1], nil
}
