package auth

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestJWTService_RoundTrip(t *testing.T) {
	s := NewJWTService("secret", 12)
	token, expires, err := s.Generate("admin", RoleAdmin)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(12*time.Hour), expires, time.Minute)

	claims, err := s.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "admin", claims.Subject)
	assert.Equal(t, RoleAdmin, claims.Role)

	_, err = NewJWTService("other", 12).Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = s.Validate("admin-token-1700000000000")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTService_Expired(t *testing.T) {
	s := NewJWTService("secret", 1)
	token, _, err := s.Generate("admin", RoleAdmin)
	require.NoError(t, err)

	s.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = s.Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestBearerToken(t *testing.T) {
	tok, ok := BearerToken("Bearer abc")
	assert.True(t, ok)
	assert.Equal(t, "abc", tok)

	for _, h := range []string{"", "Bearer", "Bearer ", "Basic abc", "abc"} {
		_, ok := BearerToken(h)
		assert.False(t, ok, h)
	}
}

func newAuthRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	h, err := NewHandler("admin", "hamikdash2024", NewJWTService("secret", 12), nil)
	require.NoError(t, err)
	r := gin.New()
	r.POST("/api/admin/login", h.Login)
	r.GET("/api/admin/verify", h.Verify)
	return r
}

func login(r http.Handler, username, password string) *httptest.ResponseRecorder {
	raw, _ := json.Marshal(map[string]string{"username": username, "password": password})
	req := httptest.NewRequest(http.MethodPost, "/api/admin/login", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHandler_LoginAndVerify(t *testing.T) {
	r := newAuthRouter(t)

	w := login(r, "admin", "hamikdash2024")
	require.Equal(t, http.StatusOK, w.Code)
	var resp TokenResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, RoleAdmin, resp.Role)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/verify", nil)
	req.Header.Set("Authorization", "Bearer "+resp.Token)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"username":"admin"`)
}

func TestHandler_LoginRejected(t *testing.T) {
	r := newAuthRouter(t)
	assert.Equal(t, http.StatusUnauthorized, login(r, "admin", "wrong").Code)
	assert.Equal(t, http.StatusUnauthorized, login(r, "root", "hamikdash2024").Code)
	assert.Equal(t, http.StatusBadRequest, login(r, "", "").Code)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/verify", nil)
	req.Header.Set("Authorization", "Bearer admin-token-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminPasswordHash(t *testing.T) {
	hash, err := adminPasswordHash("hamikdash2024")
	require.NoError(t, err)
	assert.NotEqual(t, "hamikdash2024", string(hash))
	assert.True(t, passwordMatches(hash, "hamikdash2024"))
	assert.False(t, passwordMatches(hash, "wrong"))

	pre, err := bcrypt.GenerateFromPassword([]byte("from-env"), bcrypt.MinCost)
	require.NoError(t, err)
	kept, err := adminPasswordHash(string(pre))
	require.NoError(t, err)
	assert.Equal(t, pre, kept)
	assert.True(t, passwordMatches(kept, "from-env"))
}
