package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/go-chi/chi/v5"

	"github.com/Hexidus/watchgraph/internal/api/middleware"
	"github.com/Hexidus/watchgraph/internal/blobstore"
	"github.com/Hexidus/watchgraph/internal/config"
)

// stubRoutes — минимальный набор маршрутов вместо полного APIHandler.
type stubRoutes struct{}

func (stubRoutes) Routes(r chi.Router) {
	ok := func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) }
	r.Get("/", ok)
	r.Get("/health", ok)
	r.Get("/version", ok)
	r.Get("/health/live", ok)
	r.Get("/metrics", ok)
	r.Get("/api/docs/openapi.json", ok)
	r.Get("/api/systems", ok)
}

func testConfig() *config.Config {
	return &config.Config{
		Port:               0,
		CORSAllowedOrigins: []string{"https://app.hexidus.io"},
		HTTPReadTimeout:    time.Second,
		HTTPWriteTimeout:   time.Second,
		HTTPIdleTimeout:    time.Second,
		ShutdownTimeout:    time.Second,
	}
}

func testJWTAuth(t *testing.T) *middleware.JWTAuth {
	t.Helper()
	kf, err := keyfunc.NewJWKSetJSON(json.RawMessage(`{"keys":[]}`))
	if err != nil {
		t.Fatalf("keyfunc: %v", err)
	}
	return middleware.NewJWTAuthWithKeyfunc(kf, "https://issuer.test", "client", slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestServer_PublicAndProtectedPaths(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := New(testConfig(), logger, stubRoutes{}, testJWTAuth(t), nil)

	tests := []struct {
		path string
		want int
	}{
		{"/", http.StatusOK},
		{"/health", http.StatusOK},
		{"/version", http.StatusOK},
		{"/health/live", http.StatusOK},
		{"/metrics", http.StatusOK},
		{"/api/docs/openapi.json", http.StatusOK},
		{"/api/systems", http.StatusUnauthorized},
		{"/versions", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			if rec.Code != tt.want {
				t.Errorf("%s: статус %d, ожидается %d", tt.path, rec.Code, tt.want)
			}
		})
	}
}

func TestServer_CORSPreflight(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := New(testConfig(), logger, stubRoutes{}, testJWTAuth(t), nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/systems", nil)
	req.Header.Set("Origin", "https://app.hexidus.io")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code == http.StatusUnauthorized {
		t.Fatal("preflight не должен требовать токен")
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://app.hexidus.io" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}
}

func TestServer_ServesSignedBlobLinks(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	blobs, err := blobstore.NewFSStore(t.TempDir(), "http://wg.test", []byte("secret"))
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	key := "Hexidus/sys/map/20260101000000_plan.pdf"
	if err := blobs.Put(ctx, key, []byte("%PDF"), "application/pdf"); err != nil {
		t.Fatal(err)
	}
	link, err := blobs.PresignGet(ctx, key, "plan.pdf", time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	u, _ := url.Parse(link)

	srv := New(testConfig(), logger, stubRoutes{}, testJWTAuth(t), blobs.Handler())
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, u.RequestURI(), nil))

	if rec.Code != http.StatusOK || rec.Body.String() != "%PDF" {
		t.Errorf("статус %d, тело %q", rec.Code, rec.Body.String())
	}
}

func TestServer_RunStopsOnContextCancel(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := New(testConfig(), logger, stubRoutes{}, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() не завершился после отмены контекста")
	}
}
