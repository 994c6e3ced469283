package products

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hamikdash/storefront/internal/models"
)

type fakeRepo struct {
	items map[string]*models.Product
	seq   int
}

func newFakeRepo() *fakeRepo { return &fakeRepo{items: map[string]*models.Product{}} }

func (f *fakeRepo) List(_ context.Context, category string) ([]models.Product, error) {
	var out []models.Product
	for _, p := range f.items {
		if category == "" || p.Category == category {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakeRepo) Get(_ context.Context, id string) (*models.Product, error) {
	p, ok := f.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeRepo) Create(_ context.Context, p *models.Product) error {
	f.seq++
	p.ID = fmt.Sprintf("p%d", f.seq)
	cp := *p
	f.items[p.ID] = &cp
	return nil
}

func (f *fakeRepo) Update(_ context.Context, p *models.Product) error {
	if _, ok := f.items[p.ID]; !ok {
		return ErrNotFound
	}
	cp := *p
	f.items[p.ID] = &cp
	return nil
}

func (f *fakeRepo) Delete(_ context.Context, id string) error {
	if _, ok := f.items[id]; !ok {
		return ErrNotFound
	}
	delete(f.items, id)
	return nil
}

type fakeImages struct {
	uploaded map[string][]byte
}

func (f *fakeImages) ImageKeyFor(filename string) string { return "products/" + filename }

func (f *fakeImages) PublicURL(key string) string {
	return "https://images.s3.il-central-1.amazonaws.com/" + key
}

func (f *fakeImages) UploadImage(_ context.Context, key, _ string, body io.Reader, _ int64) (string, error) {
	raw, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	f.uploaded[key] = raw
	return f.PublicURL(key), nil
}

func (f *fakeImages) DeleteImage(_ context.Context, key string) error {
	if _, ok := f.uploaded[key]; !ok {
		return fmt.Errorf("no such key %s", key)
	}
	delete(f.uploaded, key)
	return nil
}

func TestImageURL(t *testing.T) {
	s3 := &fakeImages{}
	tests := []struct {
		ref   string
		store ImageStore
		want  string
	}{
		{"https://cdn.example/a.jpg", s3, "https://cdn.example/a.jpg"},
		{"http://cdn.example/a.jpg", nil, "http://cdn.example/a.jpg"},
		{"/images/a.jpg", s3, "/images/a.jpg"},
		{"a.jpg", s3, "https://images.s3.il-central-1.amazonaws.com/products/a.jpg"},
		{"a.jpg", nil, "/images/a.jpg"},
		{"", nil, ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ImageURL(tt.ref, tt.store), tt.ref)
	}
}

func newRouter(h *Handler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/api/products", h.List)
	r.GET("/api/products/:id", h.Get)
	r.POST("/api/products", h.Create)
	r.PUT("/api/products/:id", h.Update)
	r.DELETE("/api/products/:id", h.Delete)
	r.POST("/api/products/images", h.UploadImage)
	r.DELETE("/api/images/:key", h.DeleteImage)
	return r
}

func do(r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

type productBody struct {
	Success bool           `json:"success"`
	Data    models.Product `json:"data"`
}

func TestHandler_CRUD(t *testing.T) {
	r := newRouter(NewHandler(newFakeRepo(), nil, nil))

	w := do(r, http.MethodPost, "/api/products", gin.H{
		"name": "בית המקדש", "nameEn": "Temple model", "price": 349.9, "category": "kits",
		"images": []string{"temple.jpg"}, "colors": []gin.H{{"name": "Gold", "hex": "#d4af37"}},
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var created productBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.True(t, created.Data.InStock)
	assert.Equal(t, []string{"/images/temple.jpg"}, created.Data.Images)
	id := created.Data.ID

	w = do(r, http.MethodPut, "/api/products/"+id, gin.H{"price": 299, "inStock": false})
	require.Equal(t, http.StatusOK, w.Code)
	var updated productBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &updated))
	assert.Equal(t, 299.0, updated.Data.Price)
	assert.False(t, updated.Data.InStock)
	assert.Equal(t, "Temple model", updated.Data.NameEn)

	w = do(r, http.MethodGet, "/api/products?category=kits", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"name":"בית המקדש"`)

	assert.Equal(t, http.StatusOK, do(r, http.MethodDelete, "/api/products/"+id, nil).Code)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/api/products/"+id, nil).Code)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodDelete, "/api/products/"+id, nil).Code)
}

func TestHandler_Validation(t *testing.T) {
	r := newRouter(NewHandler(newFakeRepo(), nil, nil))
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPost, "/api/products", gin.H{"price": 10}).Code)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPost, "/api/products", gin.H{"name": "x", "price": -1}).Code)
}

func TestHandler_NoDatabase(t *testing.T) {
	r := newRouter(NewHandler(nil, nil, nil))
	assert.Equal(t, http.StatusServiceUnavailable, do(r, http.MethodGet, "/api/products", nil).Code)
	assert.Equal(t, http.StatusServiceUnavailable, do(r, http.MethodPost, "/api/products", gin.H{"name": "x"}).Code)
}

func multipartImage(t *testing.T, field, filename string, content []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, "/api/products/images", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestHandler_UploadImage(t *testing.T) {
	images := &fakeImages{uploaded: map[string][]byte{}}
	r := newRouter(NewHandler(newFakeRepo(), images, nil))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, multipartImage(t, "image", "Menorah.PNG", []byte("png-bytes")))
	require.Equal(t, http.StatusCreated, w.Code)

	var body struct {
		Data struct {
			Key string `json:"key"`
			URL string `json:"url"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, strings.HasSuffix(body.Data.Key, ".png"))
	assert.Equal(t, "https://images.s3.il-central-1.amazonaws.com/products/"+body.Data.Key, body.Data.URL)
	assert.Equal(t, []byte("png-bytes"), images.uploaded["products/"+body.Data.Key])

	w = httptest.NewRecorder()
	r.ServeHTTP(w, multipartImage(t, "image", "script.sh", []byte("#!")))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, multipartImage(t, "file", "a.png", []byte("x")))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	noStore := newRouter(NewHandler(newFakeRepo(), nil, nil))
	w = httptest.NewRecorder()
	noStore.ServeHTTP(w, multipartImage(t, "image", "a.png", []byte("x")))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestHandler_DeleteImage(t *testing.T) {
	images := &fakeImages{uploaded: map[string][]byte{"products/a.png": []byte("x")}}
	r := newRouter(NewHandler(newFakeRepo(), images, nil))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/images/a.png", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, images.uploaded)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/images/a.png", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/images/notes.txt", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
