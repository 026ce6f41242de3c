package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingSigningSecret = errors.New("shared secret verifier: signing secret required")
	ErrMissingIssuer        = errors.New("shared secret verifier: issuer required")
)

// SharedSecretVerifierConfig describes how to validate HS256 tokens signed with a shared secret.
type SharedSecretVerifierConfig struct {
	SigningSecret []byte
	Issuer        string
	Audience      string
	RolesClaim    string
	Clock         func() time.Time
}

// SharedSecretVerifier validates HS256 bearer tokens, typically minted by TokenIssuer.
type SharedSecretVerifier struct {
	signingSecret []byte
	issuer        string
	audience      string
	rolesClaim    string
	clock         func() time.Time
}

// NewSharedSecretVerifier constructs a verifier with the provided configuration.
func NewSharedSecretVerifier(cfg SharedSecretVerifierConfig) (*SharedSecretVerifier, error) {
	if len(cfg.SigningSecret) == 0 {
		return nil, ErrMissingSigningSecret
	}
	issuer := strings.TrimSpace(cfg.Issuer)
	if issuer == "" {
		return nil, ErrMissingIssuer
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &SharedSecretVerifier{
		signingSecret: append([]byte(nil), cfg.SigningSecret...),
		issuer:        issuer,
		audience:      strings.TrimSpace(cfg.Audience),
		rolesClaim:    cfg.RolesClaim,
		clock:         clock,
	}, nil
}

// Verify validates the supplied token and returns the caller with its roles.
func (v *SharedSecretVerifier) Verify(_ context.Context, rawToken string) (Principal, error) {
	token := strings.TrimSpace(rawToken)
	if token == "" {
		return Principal{}, ErrMissingToken
	}

	options := []jwt.ParserOption{
		jwt.WithTimeFunc(v.clock),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(v.issuer),
		jwt.WithExpirationRequired(),
	}
	if v.audience != "" {
		options = append(options, jwt.WithAudience(v.audience))
	}

	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(
		token,
		claims,
		func(t *jwt.Token) (interface{}, error) {
			return v.signingSecret, nil
		},
		options...,
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Principal{}, ErrExpiredToken
		}
		return Principal{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if parsed == nil || !parsed.Valid {
		return Principal{}, ErrInvalidToken
	}

	subject, _ := claims.GetSubject()
	if strings.TrimSpace(subject) == "" {
		return Principal{}, fmt.Errorf("%w: %v", ErrInvalidToken, errMissingSubject)
	}
	return Principal{
		Subject: subject,
		Roles:   extractRoles(claims, v.rolesClaim),
	}, nil
}
