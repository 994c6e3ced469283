// Package web serves the built single-page app and the local product image directory.
package web

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/hamikdash/storefront/pkg/response"
)

// Mount serves imagesDir under /images and the SPA in staticDir for every other unmatched
// route. Unmatched /api routes get a JSON 404. Missing directories are skipped with a warning.
func Mount(r *gin.Engine, staticDir, imagesDir string, logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if isDir(imagesDir) {
		r.Static("/images", imagesDir)
	} else {
		logger.Warn("images directory not found, /images disabled", zap.String("dir", imagesDir))
	}
	index := filepath.Join(staticDir, "index.html")
	if _, err := os.Stat(index); err != nil {
		logger.Warn("SPA build not found, only API routes are served", zap.String("dir", staticDir))
		index = ""
	}
	r.NoRoute(spaHandler(staticDir, index))
}

func spaHandler(staticDir, index string) gin.HandlerFunc {
	return func(c *gin.Context) {
		p := c.Request.URL.Path
		if p == "/api" || strings.HasPrefix(p, "/api/") {
			response.NotFound(c, "API endpoint not found")
			return
		}
		if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
			response.NotFound(c, "not found")
			return
		}
		if index == "" {
			response.NotFound(c, "not found")
			return
		}
		// path.Clean on a rooted path cannot escape staticDir.
		file := filepath.Join(staticDir, filepath.FromSlash(path.Clean("/"+p)))
		if p != "/" && isFile(file) {
			c.File(file)
			return
		}
		c.File(index)
	}
}

func isDir(p string) bool {
	fi, err := os.Stat(p)
	return err == nil && fi.IsDir()
}

func isFile(p string) bool {
	fi, err := os.Stat(p)
	return err == nil && !fi.IsDir()
}
