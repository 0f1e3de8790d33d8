package auth

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type JWTConfig struct {
	// PublicKey is a PEM encoded RSA public key, or a path to a file holding one.
	PublicKey         string
	Issuer            string
	AuthorizedParties []string
	Leeway            time.Duration
}

// JWTVerifier checks RS256 session tokens issued by the identity provider.
type JWTVerifier struct {
	key     *rsa.PublicKey
	issuer  string
	parties []string
	leeway  time.Duration
}

type sessionClaims struct {
	jwt.RegisteredClaims
	AuthorizedParty string `json:"azp,omitempty"`
}

func NewJWTVerifier(cfg JWTConfig) (*JWTVerifier, error) {
	key, err := LoadPublicKey(cfg.PublicKey)
	if err != nil {
		return nil, err
	}
	leeway := cfg.Leeway
	if leeway == 0 {
		leeway = 5 * time.Second
	}
	return &JWTVerifier{key: key, issuer: cfg.Issuer, parties: cfg.AuthorizedParties, leeway: leeway}, nil
}

// LoadPublicKey accepts either inline PEM or a file path.
func LoadPublicKey(s string) (*rsa.PublicKey, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, errors.New("jwt public key is empty")
	}
	pemBytes := []byte(s)
	if !strings.Contains(s, "-----BEGIN") {
		b, err := os.ReadFile(s)
		if err != nil {
			return nil, fmt.Errorf("read jwt public key: %w", err)
		}
		pemBytes = b
	}
	key, err := jwt.ParseRSAPublicKeyFromPEM(pemBytes)
	if err != nil {
		return nil, fmt.Errorf("parse jwt public key: %w", err)
	}
	return key, nil
}

func (v *JWTVerifier) Verify(_ context.Context, credential string) (string, error) {
	if credential == "" {
		return "", fmt.Errorf("%w: missing credential", ErrUnauthorized)
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(v.leeway),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	claims := &sessionClaims{}
	tok, err := jwt.ParseWithClaims(credential, claims, func(t *jwt.Token) (any, error) {
		return v.key, nil
	}, opts...)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	if !tok.Valid {
		return "", fmt.Errorf("%w: invalid token", ErrUnauthorized)
	}
	if claims.AuthorizedParty != "" && len(v.parties) > 0 && !slices.Contains(v.parties, claims.AuthorizedParty) {
		return "", fmt.Errorf("%w: azp %q not allowed", ErrUnauthorized, claims.AuthorizedParty)
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return "", fmt.Errorf("%w: empty sub", ErrUnauthorized)
	}
	return claims.Subject, nil
}
