package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"gpadash/internal/config"
	"gpadash/internal/util"

	"github.com/rs/zerolog"
)

func testConfig() *config.Config {
	return &config.Config{
		Environment:        "test",
		SlotDriver:         "memory",
		SlotKey:            "psu-courses",
		GeminiBaseURL:      "http://127.0.0.1:0",
		GeminiTimeoutSec:   1,
		CORSAllowedOrigins: "*",
	}
}

func TestRouterAnonymous(t *testing.T) {
	h, closer, err := New(context.Background(), testConfig(), zerolog.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer closer()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/courses", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/gpa", nil))
	if rec.Code != http.StatusMovedPermanently || rec.Header().Get("Location") != "/v1/gpa" {
		t.Fatalf("expected redirect to /v1/gpa, got %d %q", rec.Code, rec.Header().Get("Location"))
	}
}

func TestRouterWithJWT(t *testing.T) {
	cfg := testConfig()
	cfg.JWTSecret = "secret"
	h, closer, err := New(context.Background(), cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer closer()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/gpa", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}

	token, _ := util.SignJWT("user-1", "secret", time.Now().Add(time.Hour).Unix())
	req := httptest.NewRequest(http.MethodGet, "/v1/gpa", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d", rec.Code)
	}

	// The grading scale is public.
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/grading-scale", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for grading scale, got %d", rec.Code)
	}
}

func TestRouterSQLiteSlots(t *testing.T) {
	cfg := testConfig()
	cfg.SlotDriver = "sqlite"
	cfg.SlotDSN = filepath.Join(t.TempDir(), "slots.db")

	h, closer, err := New(context.Background(), cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer closer()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/courses/reset?confirm=true", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestRouterRejectsUnknownDriver(t *testing.T) {
	cfg := testConfig()
	cfg.SlotDriver = "redis"
	if _, _, err := New(context.Background(), cfg, zerolog.Nop()); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestRouterS3NeedsBucket(t *testing.T) {
	cfg := testConfig()
	cfg.SlotDriver = "s3"
	if _, _, err := New(context.Background(), cfg, zerolog.Nop()); err == nil {
		t.Fatal("expected error without S3_BUCKET")
	}
}
