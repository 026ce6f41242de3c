package auth

import (
	"context"
	"encoding/base64"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

func TestJWKSVerifierRefetchesKeysAfterTTL(t *testing.T) {
	fixture := newJWKSFixture(t)
	issuedAt := time.Now().UTC()
	current := issuedAt
	verifier, err := NewJWKSVerifier(JWKSVerifierConfig{
		JWKSURL:        fixture.server.URL + "/protocol/openid-connect/certs",
		AllowedIssuers: []string{testKeycloakIssuer},
		HTTPClient:     fixture.server.Client(),
		CacheTTL:       time.Minute,
		Clock:          func() time.Time { return current },
	})
	if err != nil {
		t.Fatalf("unexpected constructor error: %v", err)
	}
	signedToken := fixture.sign(t, keycloakClaims(issuedAt))

	if _, err := verifier.Verify(context.Background(), signedToken); err != nil {
		t.Fatalf("expected verification to succeed: %v", err)
	}
	current = issuedAt.Add(30 * time.Second)
	if _, err := verifier.Verify(context.Background(), signedToken); err != nil {
		t.Fatalf("expected cached verification to succeed: %v", err)
	}
	if fixture.requests.Load() != 1 {
		t.Fatalf("expected one key set fetch within ttl, got %d", fixture.requests.Load())
	}

	current = issuedAt.Add(2 * time.Minute)
	if _, err := verifier.Verify(context.Background(), signedToken); err != nil {
		t.Fatalf("expected verification after refresh to succeed: %v", err)
	}
	if fixture.requests.Load() != 2 {
		t.Fatalf("expected key set to be refetched after ttl, got %d fetches", fixture.requests.Load())
	}
}

func TestJWKSVerifierLimitsRefetchesForUnknownKeyIDs(t *testing.T) {
	fixture := newJWKSFixture(t)
	issuedAt := time.Now().UTC()
	current := issuedAt
	verifier, err := NewJWKSVerifier(JWKSVerifierConfig{
		JWKSURL:            fixture.server.URL + "/protocol/openid-connect/certs",
		AllowedIssuers:     []string{testKeycloakIssuer},
		HTTPClient:         fixture.server.Client(),
		CacheTTL:           time.Hour,
		MinRefetchInterval: 30 * time.Second,
		Clock:              func() time.Time { return current },
	})
	if err != nil {
		t.Fatalf("unexpected constructor error: %v", err)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, keycloakClaims(issuedAt))
	token.Header["kid"] = "rotated-away"
	unknownKeyToken, err := token.SignedString(fixture.privateKey)
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}

	for attempt := 0; attempt < 5; attempt++ {
		if _, err := verifier.Verify(context.Background(), unknownKeyToken); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("expected invalid token for unknown key, got %v", err)
		}
	}
	if fixture.requests.Load() != 1 {
		t.Fatalf("expected unknown key ids to share one fetch, got %d", fixture.requests.Load())
	}

	if _, err := verifier.Verify(context.Background(), fixture.sign(t, keycloakClaims(issuedAt))); err != nil {
		t.Fatalf("expected known key to verify from cache: %v", err)
	}

	current = issuedAt.Add(time.Minute)
	if _, err := verifier.Verify(context.Background(), unknownKeyToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected invalid token for unknown key, got %v", err)
	}
	if fixture.requests.Load() != 2 {
		t.Fatalf("expected refetch once the interval elapsed, got %d", fixture.requests.Load())
	}
}

func TestJWKSVerifierRejectsTokenWithoutKeyID(t *testing.T) {
	fixture := newJWKSFixture(t)
	verifier := fixture.verifier(t, "")

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, keycloakClaims(time.Now().UTC()))
	signedToken, err := token.SignedString(fixture.privateKey)
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	if _, err := verifier.Verify(context.Background(), signedToken); err == nil {
		t.Fatalf("expected token without kid to be rejected")
	}
	if fixture.requests.Load() != 0 {
		t.Fatalf("expected no key set fetch for a token without kid")
	}
}

func TestRemoteKeySetReportsUnavailableEndpoint(t *testing.T) {
	fixture := newJWKSFixture(t)
	keySet := &remoteKeySet{
		endpoint: fixture.server.URL + "/missing",
		client:   fixture.server.Client(),
		ttl:      time.Minute,
		logger:   zap.NewNop(),
	}
	if _, err := keySet.key(context.Background(), testKeyID, time.Now()); err == nil {
		t.Fatalf("expected fetch error for missing endpoint")
	}
}

func TestJSONWebKeyDecoding(t *testing.T) {
	modulus := base64.RawURLEncoding.EncodeToString(big.NewInt(0).Lsh(big.NewInt(1), 2047).Bytes())
	testCases := []struct {
		name    string
		key     jsonWebKey
		wantErr bool
	}{
		{name: "standard exponent", key: jsonWebKey{Modulus: modulus, Exponent: "AQAB"}},
		{name: "empty exponent", key: jsonWebKey{Modulus: modulus, Exponent: ""}, wantErr: true},
		{name: "exponent one", key: jsonWebKey{Modulus: modulus, Exponent: "AQ"}, wantErr: true},
		{name: "broken modulus", key: jsonWebKey{Modulus: "!!", Exponent: "AQAB"}, wantErr: true},
		{name: "oversized exponent", key: jsonWebKey{Modulus: modulus, Exponent: base64.RawURLEncoding.EncodeToString([]byte{1, 0, 0, 0, 0, 0, 0, 0, 1})}, wantErr: true},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			key, err := testCase.key.publicKey()
			if testCase.wantErr {
				if err == nil {
					t.Fatalf("expected decoding error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected decoding error: %v", err)
			}
			if key.E != 65537 {
				t.Fatalf("unexpected exponent %d", key.E)
			}
		})
	}

	if (jsonWebKey{KeyType: "RSA", KeyID: "k", Use: "enc"}).signsWithRSA() {
		t.Fatalf("expected encryption key to be skipped")
	}
	if !(jsonWebKey{KeyType: "RSA", KeyID: "k"}).signsWithRSA() {
		t.Fatalf("expected key without use to be accepted")
	}
}
