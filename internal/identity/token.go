package identity

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned for any token that fails verification.
var ErrInvalidToken = errors.New("identity: invalid session token")

// Session is the verified content of a session token.
type Session struct {
	UserID string
	OrgID  string
}

type sessionClaims struct {
	AuthorizedParty string `json:"azp,omitempty"`
	OrgID           string `json:"org_id,omitempty"`
	jwt.RegisteredClaims
}

// TokenVerifier validates bearer session tokens. It verifies RS256 tokens
// against the provider's public key when one is configured, otherwise HS256
// tokens against a shared secret.
type TokenVerifier struct {
	method  jwt.SigningMethod
	key     any
	parties []string
}

// NewTokenVerifier builds a verifier. publicKeyPEM takes precedence over secret.
func NewTokenVerifier(publicKeyPEM, secret string, authorizedParties []string) (*TokenVerifier, error) {
	if pem := strings.TrimSpace(publicKeyPEM); pem != "" {
		key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(strings.ReplaceAll(pem, `\n`, "\n")))
		if err != nil {
			return nil, fmt.Errorf("identity: parse public key: %w", err)
		}
		return &TokenVerifier{method: jwt.SigningMethodRS256, key: key, parties: authorizedParties}, nil
	}
	if secret == "" {
		return nil, errors.New("identity: a public key or a secret is required")
	}
	return &TokenVerifier{method: jwt.SigningMethodHS256, key: []byte(secret), parties: authorizedParties}, nil
}

// Verify parses and validates token.
func (v *TokenVerifier) Verify(token string) (*Session, error) {
	claims := &sessionClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return v.key, nil
	}, jwt.WithValidMethods([]string{v.method.Alg()}), jwt.WithExpirationRequired())
	if err != nil || !parsed.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	if len(v.parties) > 0 && !slices.Contains(v.parties, claims.AuthorizedParty) {
		return nil, fmt.Errorf("%w: unauthorized party %q", ErrInvalidToken, claims.AuthorizedParty)
	}
	return &Session{UserID: claims.Subject, OrgID: claims.OrgID}, nil
}

// SignHS256 issues an HS256 session token. Used by tests and local tooling.
func SignHS256(secret string, claims jwt.Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// NewSessionClaims builds claims for SignHS256.
func NewSessionClaims(userID, orgID string, registered jwt.RegisteredClaims) jwt.Claims {
	registered.Subject = userID
	return &sessionClaims{OrgID: orgID, RegisteredClaims: registered}
}
