package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	errMissingSigningSecret = errors.New("signing secret must be provided")
	errMissingIssuerConfig  = errors.New("issuer must be provided")
	errNonPositiveTTL       = errors.New("token ttl must be positive")
	errMissingSubjectClaim  = errors.New("subject claim must be provided")
)

// TokenIssuerConfig configures the development token issuer.
type TokenIssuerConfig struct {
	SigningSecret []byte
	Issuer        string
	Audience      string
	RolesClaim    string
	TokenTTL      time.Duration
	Clock         func() time.Time
}

// TokenIssuer mints HS256 tokens accepted by SharedSecretVerifier.
type TokenIssuer struct {
	config TokenIssuerConfig
	clock  func() time.Time
}

// NewTokenIssuer constructs a TokenIssuer with validated configuration.
func NewTokenIssuer(cfg TokenIssuerConfig) (*TokenIssuer, error) {
	if len(cfg.SigningSecret) == 0 {
		return nil, errMissingSigningSecret
	}
	issuer := strings.TrimSpace(cfg.Issuer)
	if issuer == "" {
		return nil, errMissingIssuerConfig
	}
	if cfg.TokenTTL <= 0 {
		return nil, errNonPositiveTTL
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &TokenIssuer{
		config: TokenIssuerConfig{
			SigningSecret: append([]byte(nil), cfg.SigningSecret...),
			Issuer:        issuer,
			Audience:      strings.TrimSpace(cfg.Audience),
			RolesClaim:    cfg.RolesClaim,
			TokenTTL:      cfg.TokenTTL,
			Clock:         clock,
		},
		clock: clock,
	}, nil
}

// Issue produces a signed token for subject carrying roles, with its lifetime in seconds.
func (i *TokenIssuer) Issue(_ context.Context, subject string, roles []string) (string, int64, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return "", 0, errMissingSubjectClaim
	}

	now := i.clock().UTC()
	expiresAt := now.Add(i.config.TokenTTL)

	claims := jwt.MapClaims{
		"sub": subject,
		"iss": i.config.Issuer,
		"iat": now.Unix(),
		"exp": expiresAt.Unix(),
		"jti": uuid.NewString(),
	}
	if i.config.Audience != "" {
		claims["aud"] = i.config.Audience
	}
	nestRoles(claims, i.config.RolesClaim, roles)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.config.SigningSecret)
	if err != nil {
		return "", 0, err
	}

	return signed, int64(expiresAt.Sub(now).Seconds()), nil
}
