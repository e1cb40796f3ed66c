// Package storage names uploaded objects and signs URLs for them.  Photos
// never pass through this service: clients PUT to and GET from the object
// store directly using the URLs handed out here.
package storage

import (
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/iliyamo/portrait-booth/internal/model"
)

// ErrBadFileName is returned for names that are empty, contain a path or
// carry an extension that is not an image type the studio accepts.
var ErrBadFileName = errors.New("unsupported file name")

var imageExtensions = map[string]struct{}{
	"jpg": {}, "jpeg": {}, "png": {}, "heic": {}, "heif": {}, "tif": {}, "tiff": {}, "webp": {},
}

const maxFileName = 255

// Extension validates a client supplied file name and returns its
// lower-cased extension without the dot.
func Extension(fileName string) (string, error) {
	name := strings.TrimSpace(fileName)
	if name == "" || len(name) > maxFileName || strings.ContainsAny(name, `/\`) {
		return "", ErrBadFileName
	}
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(name), "."))
	if _, ok := imageExtensions[ext]; !ok || len(name) == len(ext)+1 {
		return "", ErrBadFileName
	}
	return ext, nil
}

// KeyPrefix is the directory every object of one order track lives under,
// e.g. "000042/original/".
func KeyPrefix(orderID uint64, mode model.ItemMode) string {
	return fmt.Sprintf("%06d/%s/", orderID, mode.PathSegment())
}

// ObjectKey returns a fresh, unguessable key for a new upload.
func ObjectKey(orderID uint64, mode model.ItemMode, ext string) string {
	return KeyPrefix(orderID, mode) + uuid.NewString() + "." + ext
}

// BelongsTo reports whether key was issued for the given order track.
func BelongsTo(key string, orderID uint64, mode model.ItemMode) bool {
	prefix := KeyPrefix(orderID, mode)
	return strings.HasPrefix(key, prefix) && !strings.Contains(key[len(prefix):], "/")
}

func contentDisposition(name string) string {
	return fmt.Sprintf("attachment; filename=%q", name)
}
