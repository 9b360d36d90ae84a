package security

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// ErrSecretMissing indicates the verifier was built without a signing secret.
var ErrSecretMissing = errors.New("jwt: signing secret missing")

// ErrTokenInvalid wraps every verification failure so callers can map it to 401.
var ErrTokenInvalid = errors.New("jwt: token invalid")

// AuthMethodReference is one entry of the provider's amr claim.
type AuthMethodReference struct {
	Method    string `json:"method"`
	Timestamp int64  `json:"timestamp,omitempty"`
}

// AccessTokenClaims mirrors the claims the identity provider places on access tokens.
type AccessTokenClaims struct {
	Email        string                `json:"email,omitempty"`
	Role         string                `json:"role,omitempty"`
	SessionID    string                `json:"session_id,omitempty"`
	AMR          []AuthMethodReference `json:"amr,omitempty"`
	UserMetadata map[string]any        `json:"user_metadata,omitempty"`
	jwt.RegisteredClaims
}

// Methods returns the authentication methods recorded in the amr claim.
func (c *AccessTokenClaims) Methods() []string {
	if c == nil || len(c.AMR) == 0 {
		return nil
	}
	methods := make([]string, 0, len(c.AMR))
	for _, ref := range c.AMR {
		if ref.Method != "" {
			methods = append(methods, ref.Method)
		}
	}
	return methods
}

// TokenVerifier validates HS256 access tokens issued by the identity provider.
type TokenVerifier struct {
	secret []byte
	parser *jwt.Parser
}

// NewTokenVerifier builds a verifier. Audience and issuer are only enforced when non-empty.
func NewTokenVerifier(secret, audience, issuer string) (*TokenVerifier, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, ErrSecretMissing
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if audience = strings.TrimSpace(audience); audience != "" {
		opts = append(opts, jwt.WithAudience(audience))
	}
	if issuer = strings.TrimSpace(issuer); issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}

	return &TokenVerifier{secret: []byte(secret), parser: jwt.NewParser(opts...)}, nil
}

// Verify parses and validates the token, returning its claims.
func (v *TokenVerifier) Verify(token string) (*AccessTokenClaims, error) {
	claims := &AccessTokenClaims{}
	_, err := v.parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return nil, fmt.Errorf("%w: subject missing", ErrTokenInvalid)
	}
	return claims, nil
}

// ParseUnverifiedClaims decodes claims without checking the signature.
// Only use it on tokens received directly from the provider over TLS.
func ParseUnverifiedClaims(token string) (*AccessTokenClaims, error) {
	claims := &AccessTokenClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("jwt: parse claims: %w", err)
	}
	return claims, nil
}

// SignAccessToken signs claims with HS256 using secret.
func SignAccessToken(secret string, claims *AccessTokenClaims) (string, error) {
	if claims == nil {
		return "", fmt.Errorf("jwt: access token claims required")
	}
	if strings.TrimSpace(secret) == "" {
		return "", ErrSecretMissing
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("jwt: sign token: %w", err)
	}
	return signed, nil
}
