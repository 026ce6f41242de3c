package integration_test

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/MarcoPoloResearchLab/choir/backend/internal/auth"
	"github.com/MarcoPoloResearchLab/choir/backend/internal/database"
	"github.com/MarcoPoloResearchLab/choir/backend/internal/repertoire"
	"github.com/MarcoPoloResearchLab/choir/backend/internal/server"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

const (
	realmIssuer     = "https://sso.example.com/realms/choir"
	signingKeyID    = "realm-key"
	jsonContentType = "application/json"
)

type identityProvider struct {
	privateKey *rsa.PrivateKey
	server     *httptest.Server
}

func newIdentityProvider(testContext *testing.T) *identityProvider {
	testContext.Helper()
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		testContext.Fatalf("failed to generate key: %v", err)
	}
	document := map[string]any{
		"keys": []any{map[string]string{
			"kty": "RSA",
			"alg": "RS256",
			"use": "sig",
			"kid": signingKeyID,
			"n":   base64.RawURLEncoding.EncodeToString(privateKey.PublicKey.N.Bytes()),
			"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(privateKey.PublicKey.E)).Bytes()),
		}},
	}
	jwksServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", jsonContentType)
		_ = json.NewEncoder(w).Encode(document)
	}))
	testContext.Cleanup(jwksServer.Close)
	return &identityProvider{privateKey: privateKey, server: jwksServer}
}

func (p *identityProvider) token(testContext *testing.T, subject string, roles ...string) string {
	testContext.Helper()
	now := time.Now().UTC()
	realmRoles := make([]any, 0, len(roles))
	for _, role := range roles {
		realmRoles = append(realmRoles, role)
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
		"iss":          realmIssuer,
		"sub":          subject,
		"iat":          now.Unix(),
		"exp":          now.Add(5 * time.Minute).Unix(),
		"realm_access": map[string]any{"roles": realmRoles},
	})
	token.Header["kid"] = signingKeyID
	signed, err := token.SignedString(p.privateKey)
	if err != nil {
		testContext.Fatalf("failed to sign token: %v", err)
	}
	return signed
}

func TestRepertoireFlowWithRealmTokens(testContext *testing.T) {
	gin.SetMode(gin.TestMode)

	provider := newIdentityProvider(testContext)
	db, err := database.Open(database.Options{
		Driver: database.DriverSQLite,
		Path:   filepath.Join(testContext.TempDir(), "integration.db"),
	}, zap.NewNop())
	if err != nil {
		testContext.Fatalf("failed to open database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		testContext.Fatalf("failed to access sql db: %v", err)
	}
	defer sqlDB.Close()

	store := repertoire.NewGormStore(db)
	songService, err := repertoire.NewSongService(repertoire.ServiceConfig{Store: store, Logger: zap.NewNop()})
	if err != nil {
		testContext.Fatalf("failed to build song service: %v", err)
	}
	rehearsalService, err := repertoire.NewRehearsalService(repertoire.ServiceConfig{Store: store, Logger: zap.NewNop()})
	if err != nil {
		testContext.Fatalf("failed to build rehearsal service: %v", err)
	}
	verifier, err := auth.NewJWKSVerifier(auth.JWKSVerifierConfig{
		JWKSURL:        provider.server.URL,
		AllowedIssuers: []string{realmIssuer},
		HTTPClient:     provider.server.Client(),
	})
	if err != nil {
		testContext.Fatalf("failed to build verifier: %v", err)
	}

	handler, err := server.NewHTTPHandler(server.Dependencies{
		Verifier:    verifier,
		Songs:       songService,
		Rehearsals:  rehearsalService,
		HealthCheck: func(ctx context.Context) error { return sqlDB.PingContext(ctx) },
		AppInfo:     server.AppInfo{Name: "choir-api", Version: "integration"},
		Logger:      zap.NewNop(),
	})
	if err != nil {
		testContext.Fatalf("failed to build handler: %v", err)
	}
	apiServer := httptest.NewServer(handler)
	defer apiServer.Close()

	adminToken := provider.token(testContext, "director", "admin", "offline_access")
	singerToken := provider.token(testContext, "soprano", "offline_access")

	send := func(method, path, token string, payload any) *http.Response {
		testContext.Helper()
		var body bytes.Buffer
		if payload != nil {
			if err := json.NewEncoder(&body).Encode(payload); err != nil {
				testContext.Fatalf("failed to encode payload: %v", err)
			}
		}
		request, err := http.NewRequest(method, apiServer.URL+path, &body)
		if err != nil {
			testContext.Fatalf("failed to build request: %v", err)
		}
		request.Header.Set("Content-Type", jsonContentType)
		if token != "" {
			request.Header.Set("Authorization", "Bearer "+token)
		}
		response, err := apiServer.Client().Do(request)
		if err != nil {
			testContext.Fatalf("request failed: %v", err)
		}
		testContext.Cleanup(func() { _ = response.Body.Close() })
		return response
	}
	decode := func(response *http.Response, target any) {
		testContext.Helper()
		if err := json.NewDecoder(response.Body).Decode(target); err != nil {
			testContext.Fatalf("failed to decode response: %v", err)
		}
	}

	if response := send(http.MethodGet, "/actuator/health", "", nil); response.StatusCode != http.StatusOK {
		testContext.Fatalf("expected healthy service, got %d", response.StatusCode)
	}
	if response := send(http.MethodGet, "/api/songs", "", nil); response.StatusCode != http.StatusUnauthorized {
		testContext.Fatalf("expected unauthorized listing without token, got %d", response.StatusCode)
	}
	if response := send(http.MethodPost, "/api/songs", singerToken, map[string]any{"title": "Not allowed"}); response.StatusCode != http.StatusForbidden {
		testContext.Fatalf("expected forbidden create for singer, got %d", response.StatusCode)
	}

	songIDs := make([]int64, 0, 3)
	for _, title := range []string{"Kyrie", "Gloria", "Sanctus"} {
		response := send(http.MethodPost, "/api/songs", adminToken, map[string]any{"title": title, "composer": "Palestrina"})
		if response.StatusCode != http.StatusCreated {
			testContext.Fatalf("expected song creation, got %d", response.StatusCode)
		}
		var song repertoire.SongView
		decode(response, &song)
		songIDs = append(songIDs, song.ID)
	}

	createResponse := send(http.MethodPost, "/api/rehearsals", adminToken, map[string]any{
		"dateTime": "2026-06-12T19:30:00",
		"location": "St. Mary's",
		"songs": []map[string]any{
			{"songId": songIDs[0], "songOrder": 1},
			{"songId": songIDs[1], "songOrder": 2},
		},
	})
	if createResponse.StatusCode != http.StatusCreated {
		testContext.Fatalf("expected rehearsal creation, got %d", createResponse.StatusCode)
	}
	var rehearsal repertoire.RehearsalView
	decode(createResponse, &rehearsal)

	rehearsalPath := fmt.Sprintf("/api/rehearsals/%d", rehearsal.ID)
	updateResponse := send(http.MethodPut, rehearsalPath, adminToken, map[string]any{
		"dateTime": "2026-06-12T20:00:00+01:00",
		"songs": []map[string]any{
			{"songId": songIDs[2], "songOrder": 1},
			{"songId": songIDs[0], "songOrder": 3},
		},
	})
	if updateResponse.StatusCode != http.StatusOK {
		testContext.Fatalf("expected rehearsal update, got %d", updateResponse.StatusCode)
	}

	var fetched repertoire.RehearsalView
	decode(send(http.MethodGet, rehearsalPath, singerToken, nil), &fetched)
	if fetched.DateTime != "2026-06-12T19:00:00" {
		testContext.Fatalf("expected dateTime normalized to UTC, got %s", fetched.DateTime)
	}
	if len(fetched.Songs) != 2 || fetched.Songs[0].SongID != songIDs[2] || fetched.Songs[1].SongOrder != 3 {
		testContext.Fatalf("unexpected reconciled songs: %#v", fetched.Songs)
	}
	if fetched.Location != nil {
		testContext.Fatalf("expected location to be cleared, got %q", *fetched.Location)
	}

	// Gloria is no longer scheduled and can be removed; Kyrie still is.
	if response := send(http.MethodDelete, fmt.Sprintf("/api/songs/%d", songIDs[1]), adminToken, nil); response.StatusCode != http.StatusNoContent {
		testContext.Fatalf("expected unscheduled song delete, got %d", response.StatusCode)
	}
	if response := send(http.MethodDelete, fmt.Sprintf("/api/songs/%d", songIDs[0]), adminToken, nil); response.StatusCode != http.StatusConflict {
		testContext.Fatalf("expected conflict deleting scheduled song, got %d", response.StatusCode)
	}

	var page repertoire.Page[repertoire.SongView]
	decode(send(http.MethodGet, "/api/songs?size=1&sort=title,desc", singerToken, nil), &page)
	if page.TotalElements != 2 || page.TotalPages != 2 || len(page.Content) != 1 || page.Content[0].Title != "Sanctus" {
		testContext.Fatalf("unexpected song page: %#v", page)
	}
}
