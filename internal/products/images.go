package products

import (
	"context"
	"io"
	"strings"
)

// ImageStore uploads, removes and resolves product images (storage.S3).
type ImageStore interface {
	ImageKeyFor(filename string) string
	PublicURL(key string) string
	UploadImage(ctx context.Context, key, contentType string, body io.Reader, contentLength int64) (string, error)
	DeleteImage(ctx context.Context, key string) error
}

// ImageURL shapes a stored image reference for clients. Absolute URLs and rooted paths
// are kept; bare keys resolve to object storage when configured, else to /images/<key>.
func ImageURL(ref string, store ImageStore) string {
	switch {
	case ref == "":
		return ""
	case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"), strings.HasPrefix(ref, "/"):
		return ref
	case store != nil:
		return store.PublicURL(store.ImageKeyFor(ref))
	default:
		return "/images/" + ref
	}
}

func shapeImages(refs []string, store ImageStore) []string {
	out := make([]string, 0, len(refs))
	for _, ref := range refs {
		if u := ImageURL(ref, store); u != "" {
			out = append(out, u)
		}
	}
	return out
}
