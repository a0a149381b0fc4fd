package middleware

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
)

const (
	testKeyID    = "test-key-wg"
	testIssuer   = "https://cognito-idp.us-east-2.amazonaws.com/us-east-2_TestPool"
	testClientID = "wg-app-client"
)

// generateTestKey генерирует RSA ключ для тестов.
func generateTestKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}
	return key
}

// buildJWKSetJSON строит JWKS JSON из RSA публичного ключа.
func buildJWKSetJSON(pub *rsa.PublicKey, kid string) json.RawMessage {
	jwks := map[string]any{
		"keys": []map[string]any{
			{
				"kty": "RSA",
				"kid": kid,
				"use": "sig",
				"alg": "RS256",
				"n":   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
				"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
			},
		},
	}
	data, _ := json.Marshal(jwks)
	return data
}

// testLogger создаёт logger для тестов.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestJWTAuth(t *testing.T, key *rsa.PrivateKey) *JWTAuth {
	t.Helper()
	kf, err := keyfunc.NewJWKSetJSON(buildJWKSetJSON(&key.PublicKey, testKeyID))
	if err != nil {
		t.Fatalf("не удалось создать keyfunc: %v", err)
	}
	return NewJWTAuthWithKeyfunc(kf, testIssuer, testClientID, testLogger())
}

// idTokenClaims — claims ID token Cognito по умолчанию.
func idTokenClaims() jwt.MapClaims {
	return jwt.MapClaims{
		"sub":              "user-123",
		"email":            "auditor@hexidus.io",
		"cognito:username": "auditor",
		"token_use":        "id",
		"aud":              testClientID,
		"iss":              testIssuer,
		"exp":              jwt.NewNumericDate(time.Now().Add(time.Hour)),
		"iat":              jwt.NewNumericDate(time.Now()),
	}
}

// signToken подписывает claims тестовым ключом.
func signToken(t *testing.T, key *rsa.PrivateKey, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = testKeyID
	s, err := token.SignedString(key)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

// serveWithToken прогоняет запрос через middleware и возвращает ответ
// и claims, увиденные обработчиком.
func serveWithToken(t *testing.T, auth *JWTAuth, header string) (*httptest.ResponseRecorder, *CallerClaims) {
	t.Helper()
	var seen *CallerClaims
	handler := auth.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = CallerFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/systems", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec, seen
}

func TestJWTAuth_ValidIDToken(t *testing.T) {
	key := generateTestKey(t)
	auth := newTestJWTAuth(t, key)

	rec, caller := serveWithToken(t, auth, "Bearer "+signToken(t, key, idTokenClaims()))
	if rec.Code != http.StatusOK {
		t.Fatalf("ожидался статус 200, получен %d, тело: %s", rec.Code, rec.Body.String())
	}
	if caller == nil {
		t.Fatal("claims не найдены в контексте")
	}
	if caller.Subject != "user-123" || caller.Email != "auditor@hexidus.io" ||
		caller.Username != "auditor" || caller.TokenUse != TokenUseID {
		t.Errorf("caller = %+v", caller)
	}
}

func TestJWTAuth_ValidAccessToken(t *testing.T) {
	key := generateTestKey(t)
	auth := newTestJWTAuth(t, key)

	claims := idTokenClaims()
	delete(claims, "aud")
	delete(claims, "email")
	delete(claims, "cognito:username")
	claims["token_use"] = "access"
	claims["client_id"] = testClientID
	claims["username"] = "svc-ingest"

	rec, caller := serveWithToken(t, auth, "Bearer "+signToken(t, key, claims))
	if rec.Code != http.StatusOK {
		t.Fatalf("ожидался статус 200, получен %d, тело: %s", rec.Code, rec.Body.String())
	}
	if caller.Username != "svc-ingest" || caller.TokenUse != TokenUseAccess {
		t.Errorf("caller = %+v", caller)
	}
}

func TestJWTAuth_Rejected(t *testing.T) {
	key := generateTestKey(t)
	otherKey := generateTestKey(t)
	auth := newTestJWTAuth(t, key)

	withClaims := func(mutate func(jwt.MapClaims)) string {
		c := idTokenClaims()
		mutate(c)
		return "Bearer " + signToken(t, key, c)
	}

	tests := []struct {
		name   string
		header string
	}{
		{"нет заголовка", ""},
		{"не Bearer", "Basic dXNlcjpwYXNz"},
		{"пустой токен", "Bearer "},
		{"мусор", "Bearer not-a-jwt"},
		{"просрочен", withClaims(func(c jwt.MapClaims) {
			c["exp"] = jwt.NewNumericDate(time.Now().Add(-time.Hour))
		})},
		{"без exp", withClaims(func(c jwt.MapClaims) { delete(c, "exp") })},
		{"чужой issuer", withClaims(func(c jwt.MapClaims) { c["iss"] = "https://evil.test" })},
		{"чужой client", withClaims(func(c jwt.MapClaims) { c["aud"] = "other-client" })},
		{"неизвестный token_use", withClaims(func(c jwt.MapClaims) { c["token_use"] = "refresh" })},
		{"без sub", withClaims(func(c jwt.MapClaims) { delete(c, "sub") })},
		{"чужой ключ", "Bearer " + signToken(t, otherKey, idTokenClaims())},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, caller := serveWithToken(t, auth, tt.header)
			if rec.Code != http.StatusUnauthorized {
				t.Errorf("ожидался статус 401, получен %d", rec.Code)
			}
			if caller != nil {
				t.Error("обработчик не должен вызываться")
			}
			if !strings.Contains(rec.Body.String(), `"UNAUTHORIZED"`) {
				t.Errorf("тело = %s", rec.Body.String())
			}
		})
	}
}

func TestJWKSReadinessChecker(t *testing.T) {
	key := generateTestKey(t)

	tests := []struct {
		name       string
		status     int
		body       string
		wantStatus string
	}{
		{"ключи есть", http.StatusOK, string(buildJWKSetJSON(&key.PublicKey, testKeyID)), statusOK},
		{"нет ключей", http.StatusOK, `{"keys":[]}`, statusDegraded},
		{"невалидный JSON", http.StatusOK, `{`, statusDegraded},
		{"ошибка сервера", http.StatusInternalServerError, ``, statusFail},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			status, msg := NewJWKSReadinessChecker(srv.URL, time.Second).CheckReady()
			if status != tt.wantStatus {
				t.Errorf("CheckReady() = %s (%s), ожидается %s", status, msg, tt.wantStatus)
			}
		})
	}

	status, _ := NewJWKSReadinessChecker("http://127.0.0.1:1/jwks.json", 100*time.Millisecond).CheckReady()
	if status != statusFail {
		t.Errorf("недоступный JWKS: %s, ожидается fail", status)
	}
}
