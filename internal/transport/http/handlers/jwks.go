package handlers

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/Ezra31448/soap-api/internal/infra/security"
)

const jwksCacheControl = "public, max-age=3600"

// JWKSHandler publishes the JSON Web Key Set other services use to verify
// access tokens offline. The key set is fixed for the lifetime of the
// process, so the rendered document and its ETag are computed once.
type JWKSHandler struct {
	manager *security.JWTManager

	once      sync.Once
	payload   []byte
	etag      string
	renderErr error
}

// NewJWKSHandler constructs a JWKS handler backed by the supplied manager.
func NewJWKSHandler(manager *security.JWTManager) *JWKSHandler {
	return &JWKSHandler{manager: manager}
}

// Keys renders the public key set and honors If-None-Match revalidation.
func (h *JWKSHandler) Keys(c *gin.Context) {
	if h == nil || h.manager == nil {
		c.JSON(http.StatusServiceUnavailable, NewErrorResponse(c, "jwks not available"))
		return
	}

	h.once.Do(func() {
		h.payload, h.renderErr = h.manager.JWKS()
		if h.renderErr == nil {
			sum := sha256.Sum256(h.payload)
			h.etag = `"` + hex.EncodeToString(sum[:8]) + `"`
		}
	})
	if h.renderErr != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to render jwks"))
		return
	}

	c.Header("Cache-Control", jwksCacheControl)
	c.Header("ETag", h.etag)
	if c.GetHeader("If-None-Match") == h.etag {
		c.Status(http.StatusNotModified)
		return
	}
	c.Data(http.StatusOK, "application/json", h.payload)
}
