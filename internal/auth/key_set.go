package auth

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
)

const maxKeySetBytes = 1 << 20

var (
	errSigningKeyUnknown = errors.New("signing key not published by identity provider")
	errNoUsableKeys      = errors.New("key set holds no RSA signing keys")
)

// remoteKeySet holds the RSA signing keys published at a JWKS endpoint. Lookups after
// the TTL trigger a refetch. An unknown key id triggers one only when the last fetch is
// older than minRefetch, so unknown kids cannot force a fetch per request.
type remoteKeySet struct {
	endpoint   string
	client     *http.Client
	ttl        time.Duration
	minRefetch time.Duration
	logger     *zap.Logger

	mu        sync.Mutex
	keys      map[string]*rsa.PublicKey
	refreshed time.Time
}

func (s *remoteKeySet) key(ctx context.Context, keyID string, now time.Time) (*rsa.PublicKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fresh := s.keys != nil && now.Sub(s.refreshed) < s.ttl
	if fresh {
		if key, ok := s.keys[keyID]; ok {
			return key, nil
		}
		if now.Sub(s.refreshed) < s.minRefetch {
			return nil, fmt.Errorf("%w: %s", errSigningKeyUnknown, keyID)
		}
	}

	keys, err := s.fetch(ctx)
	if err != nil {
		return nil, err
	}
	s.keys = keys
	s.refreshed = now
	s.logger.Debug("signing keys refreshed", zap.String("endpoint", s.endpoint), zap.Int("keys", len(keys)))

	key, ok := keys[keyID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", errSigningKeyUnknown, keyID)
	}
	return key, nil
}

func (s *remoteKeySet) fetch(ctx context.Context) (map[string]*rsa.PublicKey, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint, nil)
	if err != nil {
		return nil, err
	}
	request.Header.Set("Accept", "application/json")

	response, err := s.client.Do(request)
	if err != nil {
		return nil, fmt.Errorf("fetch key set: %w", err)
	}
	defer response.Body.Close()
	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch key set: unexpected status %d", response.StatusCode)
	}

	var published struct {
		Keys []jsonWebKey `json:"keys"`
	}
	if err := json.NewDecoder(io.LimitReader(response.Body, maxKeySetBytes)).Decode(&published); err != nil {
		return nil, fmt.Errorf("decode key set: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(published.Keys))
	for _, candidate := range published.Keys {
		if !candidate.signsWithRSA() {
			continue
		}
		key, err := candidate.publicKey()
		if err != nil {
			s.logger.Debug("ignoring malformed jwk", zap.String("kid", candidate.KeyID), zap.Error(err))
			continue
		}
		keys[candidate.KeyID] = key
	}
	if len(keys) == 0 {
		return nil, errNoUsableKeys
	}
	return keys, nil
}

type jsonWebKey struct {
	KeyType  string `json:"kty"`
	KeyID    string `json:"kid"`
	Use      string `json:"use"`
	Modulus  string `json:"n"`
	Exponent string `json:"e"`
}

// signsWithRSA skips the encryption keys Keycloak publishes alongside signing keys.
func (k jsonWebKey) signsWithRSA() bool {
	return k.KeyType == "RSA" && k.KeyID != "" && (k.Use == "" || k.Use == "sig")
}

func (k jsonWebKey) publicKey() (*rsa.PublicKey, error) {
	modulus, err := decodeKeyParameter("n", k.Modulus)
	if err != nil {
		return nil, err
	}
	exponent, err := decodeKeyParameter("e", k.Exponent)
	if err != nil {
		return nil, err
	}
	if !exponent.IsInt64() || exponent.Int64() < 3 || exponent.Int64() > 1<<31-1 {
		return nil, fmt.Errorf("jwk exponent out of range: %s", exponent)
	}
	return &rsa.PublicKey{N: modulus, E: int(exponent.Int64())}, nil
}

func decodeKeyParameter(name, encoded string) (*big.Int, error) {
	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("jwk parameter %q: %w", name, err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("jwk parameter %q is empty", name)
	}
	return new(big.Int).SetBytes(raw), nil
}
