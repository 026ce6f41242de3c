package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

const (
	defaultKeySetTTL        = 10 * time.Minute
	defaultKeySetTimeout    = 10 * time.Second
	defaultKeySetMinRefetch = 30 * time.Second
)

var (
	// ErrInvalidVerifierConfig reports a JWKSVerifierConfig that cannot produce a verifier.
	ErrInvalidVerifierConfig = errors.New("auth: invalid jwks verifier config")

	errMissingJWKSURL   = errors.New("jwks url configuration required")
	errNoAllowedIssuers = errors.New("no allowed issuers configured")
	errMissingKeyID     = errors.New("token header carries no kid")
	errUntrustedIssuer  = errors.New("token issuer not allowed")
	errMissingSubject   = errors.New("token missing subject claim")
)

// JWKSVerifierConfig describes the identity provider whose access tokens are accepted.
type JWKSVerifierConfig struct {
	JWKSURL        string
	AllowedIssuers []string
	// Audience is checked only when set.
	Audience   string
	RolesClaim string
	HTTPClient *http.Client
	CacheTTL   time.Duration
	// MinRefetchInterval spaces out refetches caused by unknown key ids.
	MinRefetchInterval time.Duration
	Logger             *zap.Logger
	Clock              func() time.Time
}

// JWKSVerifier checks RS256 access tokens, such as Keycloak's, against the provider's published keys.
type JWKSVerifier struct {
	keys           *remoteKeySet
	trustedIssuers map[string]bool
	parser         *jwt.Parser
	rolesClaim     string
	now            func() time.Time
}

// NewJWKSVerifier validates cfg and returns a verifier with an empty key cache.
func NewJWKSVerifier(cfg JWKSVerifierConfig) (*JWKSVerifier, error) {
	endpoint := strings.TrimSpace(cfg.JWKSURL)
	if endpoint == "" {
		return nil, fmt.Errorf("%w: %v", ErrInvalidVerifierConfig, errMissingJWKSURL)
	}

	trustedIssuers := map[string]bool{}
	for _, issuer := range cfg.AllowedIssuers {
		if trimmed := strings.TrimSpace(issuer); trimmed != "" {
			trustedIssuers[trimmed] = true
		}
	}
	if len(trustedIssuers) == 0 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidVerifierConfig, errNoAllowedIssuers)
	}

	keySet := &remoteKeySet{
		endpoint:   endpoint,
		client:     cfg.HTTPClient,
		ttl:        cfg.CacheTTL,
		minRefetch: cfg.MinRefetchInterval,
		logger:     cfg.Logger,
	}
	if keySet.client == nil {
		keySet.client = &http.Client{Timeout: defaultKeySetTimeout}
	}
	if keySet.ttl <= 0 {
		keySet.ttl = defaultKeySetTTL
	}
	if keySet.minRefetch <= 0 {
		keySet.minRefetch = defaultKeySetMinRefetch
	}
	if keySet.logger == nil {
		keySet.logger = zap.NewNop()
	}

	now := cfg.Clock
	if now == nil {
		now = time.Now
	}

	parserOptions := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(now),
	}
	if audience := strings.TrimSpace(cfg.Audience); audience != "" {
		parserOptions = append(parserOptions, jwt.WithAudience(audience))
	}

	return &JWKSVerifier{
		keys:           keySet,
		trustedIssuers: trustedIssuers,
		parser:         jwt.NewParser(parserOptions...),
		rolesClaim:     cfg.RolesClaim,
		now:            now,
	}, nil
}

// Verify checks signature, expiry, issuer and audience, then returns the caller with its roles.
func (v *JWKSVerifier) Verify(ctx context.Context, rawToken string) (Principal, error) {
	rawToken = strings.TrimSpace(rawToken)
	if rawToken == "" {
		return Principal{}, ErrMissingToken
	}

	claims := jwt.MapClaims{}
	_, err := v.parser.ParseWithClaims(rawToken, claims, func(token *jwt.Token) (any, error) {
		keyID, _ := token.Header["kid"].(string)
		if keyID == "" {
			return nil, errMissingKeyID
		}
		return v.keys.key(ctx, keyID, v.now())
	})
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return Principal{}, ErrExpiredToken
	case err != nil:
		return Principal{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if issuer, _ := claims.GetIssuer(); !v.trustedIssuers[issuer] {
		return Principal{}, fmt.Errorf("%w: %v", ErrInvalidToken, errUntrustedIssuer)
	}
	subject, _ := claims.GetSubject()
	if strings.TrimSpace(subject) == "" {
		return Principal{}, fmt.Errorf("%w: %v", ErrInvalidToken, errMissingSubject)
	}
	return Principal{Subject: subject, Roles: extractRoles(claims, v.rolesClaim)}, nil
}
