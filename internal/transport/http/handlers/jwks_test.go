package handlers

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/Ezra31448/soap-api/internal/infra/security"
)

func newJWKSRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("GenerateKey returned error: %v", err)
	}
	manager := security.NewJWTManager(nil)
	if err := manager.RegisterPublicKey("v1", &key.PublicKey); err != nil {
		t.Fatalf("RegisterPublicKey returned error: %v", err)
	}

	router := gin.New()
	router.GET("/.well-known/jwks.json", NewJWKSHandler(manager).Keys)
	return router
}

func TestJWKSHandlerServesKeySet(t *testing.T) {
	router := newJWKSRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/.well-known/jwks.json", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if got := rec.Header().Get("Cache-Control"); got != jwksCacheControl {
		t.Fatalf("Cache-Control = %q, want %q", got, jwksCacheControl)
	}
	if rec.Header().Get("ETag") == "" {
		t.Fatal("expected an ETag header")
	}

	var doc struct {
		Keys []map[string]string `json:"keys"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &doc); err != nil {
		t.Fatalf("response is not valid JSON: %v", err)
	}
	if len(doc.Keys) != 1 {
		t.Fatalf("key count = %d, want 1", len(doc.Keys))
	}
	jwk := doc.Keys[0]
	if jwk["kid"] != "v1" || jwk["kty"] != "RSA" || jwk["alg"] != "RS256" {
		t.Fatalf("unexpected JWK metadata: %v", jwk)
	}
	if jwk["n"] == "" || jwk["e"] == "" {
		t.Fatalf("JWK is missing modulus or exponent: %v", jwk)
	}
}

func TestJWKSHandlerHonorsIfNoneMatch(t *testing.T) {
	router := newJWKSRouter(t)

	first := httptest.NewRecorder()
	router.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/.well-known/jwks.json", nil))
	etag := first.Header().Get("ETag")
	if etag == "" {
		t.Fatal("expected an ETag header on the first response")
	}

	req := httptest.NewRequest(http.MethodGet, "/.well-known/jwks.json", nil)
	req.Header.Set("If-None-Match", etag)
	second := httptest.NewRecorder()
	router.ServeHTTP(second, req)

	if second.Code != http.StatusNotModified {
		t.Fatalf("revalidation status = %d, want %d", second.Code, http.StatusNotModified)
	}
	if second.Body.Len() != 0 {
		t.Fatalf("revalidation body length = %d, want empty", second.Body.Len())
	}
}

func TestJWKSHandlerUnavailableWithoutManager(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/.well-known/jwks.json", NewJWKSHandler(nil).Keys)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/.well-known/jwks.json", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
}
