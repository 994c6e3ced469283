// Package auth issues and verifies admin tokens.
package auth

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/hamikdash/storefront/pkg/response"
)

// LoginRequest is the body for POST /api/admin/login.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// TokenResponse is the login response.
type TokenResponse struct {
	Success   bool      `json:"success"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
}

// Handler handles admin auth endpoints.
type Handler struct {
	username     string
	passwordHash []byte
	jwt          *JWTService
	logger       *zap.Logger
}

// NewHandler creates an auth handler for the single configured admin account. A plaintext
// password is hashed once here so requests never compare plaintext.
func NewHandler(username, password string, jwt *JWTService, logger *zap.Logger) (*Handler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	hash, err := adminPasswordHash(password)
	if err != nil {
		return nil, fmt.Errorf("admin password: %w", err)
	}
	return &Handler{username: username, passwordHash: hash, jwt: jwt, logger: logger}, nil
}

// Login handles POST /api/admin/login.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "username and password are required")
		return
	}
	userOK := subtle.ConstantTimeCompare([]byte(req.Username), []byte(h.username)) == 1
	passOK := passwordMatches(h.passwordHash, req.Password)
	if !userOK || !passOK {
		h.logger.Warn("admin login failed", zap.String("username", req.Username), zap.String("client_ip", c.ClientIP()))
		response.Unauthorized(c, "Invalid credentials")
		return
	}
	token, expires, err := h.jwt.Generate(h.username, RoleAdmin)
	if err != nil {
		h.logger.Error("sign admin token failed", zap.Error(err))
		response.Internal(c, "failed to issue token")
		return
	}
	h.logger.Info("admin logged in", zap.String("username", h.username))
	c.JSON(http.StatusOK, TokenResponse{Success: true, Token: token, ExpiresAt: expires, Username: h.username, Role: RoleAdmin})
}

// Verify handles GET /api/admin/verify.
func (h *Handler) Verify(c *gin.Context) {
	raw, ok := BearerToken(c.GetHeader("Authorization"))
	if !ok {
		response.Unauthorized(c, "missing authorization header")
		return
	}
	claims, err := h.jwt.Validate(raw)
	if err != nil || claims.Role != RoleAdmin {
		response.Unauthorized(c, "invalid or expired token")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"valid":     true,
		"username":  claims.Subject,
		"role":      claims.Role,
		"expiresAt": claims.ExpiresAt.Time,
	})
}
