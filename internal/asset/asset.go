// Package asset stores user-supplied media (avatars, cover images, video files
// and thumbnails) on an external host and hands back public URLs.
package asset

import (
	"context"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

type Kind string

const (
	KindAvatar    Kind = "avatar"
	KindCover     Kind = "cover"
	KindVideo     Kind = "video"
	KindThumbnail Kind = "thumbnail"
)

// IsImage reports whether uploads of this kind must decode as images.
func (k Kind) IsImage() bool {
	return k == KindAvatar || k == KindCover || k == KindThumbnail
}

type Upload struct {
	Kind        Kind
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

type Asset struct {
	Key         string `json:"key"`
	URL         string `json:"url"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
}

// Store is the media host. Delete is idempotent and ignores URLs the store
// does not own.
type Store interface {
	Put(ctx context.Context, upload Upload) (Asset, error)
	Delete(ctx context.Context, url string) error
}

// objectKey returns "<kind>/<ulid><ext>"; ULIDs keep keys time-ordered.
func objectKey(kind Kind, filename string, now time.Time) string {
	ext := strings.ToLower(filepath.Ext(strings.TrimSpace(filename)))
	if len(ext) > 10 || strings.ContainsAny(ext, `/\ `) {
		ext = ""
	}

	id := ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy())
	return string(kind) + "/" + strings.ToLower(id.String()) + ext
}

// keyFromURL strips baseURL from url. It returns false for foreign URLs.
func keyFromURL(baseURL string, url string) (string, bool) {
	base := strings.TrimRight(baseURL, "/") + "/"
	if !strings.HasPrefix(url, base) {
		return "", false
	}
	key := strings.TrimPrefix(url, base)
	return key, key != ""
}
