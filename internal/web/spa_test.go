package web

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSite(t *testing.T) *gin.Engine {
	t.Helper()
	root := t.TempDir()
	dist := filepath.Join(root, "dist")
	images := filepath.Join(root, "images")
	require.NoError(t, os.MkdirAll(filepath.Join(dist, "assets"), 0o755))
	require.NoError(t, os.MkdirAll(images, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dist, "index.html"), []byte("<div id=root></div>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dist, "assets", "app.js"), []byte("console.log(1)"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(images, "menorah.jpg"), []byte("jpg"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "secret.txt"), []byte("secret"), 0o644))

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/api/products", func(c *gin.Context) { c.String(http.StatusOK, "products") })
	Mount(r, dist, images, nil)
	return r
}

func get(r http.Handler, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestMount(t *testing.T) {
	r := newSite(t)

	w := get(r, "/checkout/step-2")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "id=root")

	w = get(r, "/assets/app.js")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "console.log(1)", w.Body.String())

	w = get(r, "/images/menorah.jpg")
	assert.Equal(t, http.StatusOK, w.Code)

	w = get(r, "/api/unknown")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), `"success":false`)

	w = get(r, "/api/products")
	assert.Equal(t, "products", w.Body.String())

	w = get(r, "/../secret.txt")
	assert.NotContains(t, w.Body.String(), "secret")
}

func TestMount_NoBuild(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	Mount(r, filepath.Join(t.TempDir(), "missing"), filepath.Join(t.TempDir(), "missing"), nil)
	assert.Equal(t, http.StatusNotFound, get(r, "/").Code)
}
