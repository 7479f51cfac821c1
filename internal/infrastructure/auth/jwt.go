// Package auth verifies access tokens issued by the identity provider.
// This service never issues credentials itself; it only needs the IdP's
// RS256 public key to authenticate callers.
package auth

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"os"

	"github.com/golang-jwt/jwt/v5"
)

// TokenVerifier validates RS256 access tokens and extracts the subject.
type TokenVerifier struct {
	publicKey *rsa.PublicKey
	issuer    string
	audience  string
}

type accessClaims struct {
	jwt.RegisteredClaims
	UserID string `json:"user_id,omitempty"`
}

// NewTokenVerifier creates a verifier. Issuer and audience are enforced when
// non-empty.
func NewTokenVerifier(publicKey *rsa.PublicKey, issuer, audience string) *TokenVerifier {
	return &TokenVerifier{publicKey: publicKey, issuer: issuer, audience: audience}
}

// LoadRSAPublicKey reads a PEM-encoded RSA public key from path.
func LoadRSAPublicKey(path string) (*rsa.PublicKey, error) {
	pem, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read public key: %w", err)
	}
	key, err := jwt.ParseRSAPublicKeyFromPEM(pem)
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}
	return key, nil
}

// ValidateAccessToken verifies the token and returns the user ID. The
// user_id claim takes precedence; sub is the fallback.
func (t *TokenVerifier) ValidateAccessToken(tokenString string) (string, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"RS256"})}
	if t.issuer != "" {
		opts = append(opts, jwt.WithIssuer(t.issuer))
	}
	if t.audience != "" {
		opts = append(opts, jwt.WithAudience(t.audience))
	}
	token, err := jwt.ParseWithClaims(tokenString, &accessClaims{}, func(token *jwt.Token) (interface{}, error) {
		return t.publicKey, nil
	}, opts...)
	if err != nil {
		return "", err
	}
	claims, ok := token.Claims.(*accessClaims)
	if !ok || !token.Valid {
		return "", errors.New("invalid token claims")
	}
	userID := claims.UserID
	if userID == "" {
		userID = claims.Subject
	}
	if userID == "" {
		return "", errors.New("token has no subject")
	}
	return userID, nil
}
