package storage

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/portrait-booth/internal/model"
)

func TestExtension(t *testing.T) {
	ok := map[string]string{
		"IMG_0001.JPG":  "jpg",
		"portrait.jpeg": "jpeg",
		"scan.tiff":     "tiff",
		"phone.HEIC":    "heic",
		" spaced.png  ": "png",
		"my.photo.webp": "webp",
	}
	for in, want := range ok {
		got, err := Extension(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	for _, in := range []string{"", "noext", "doc.pdf", ".jpg", "../etc/passwd.jpg", `dir\a.png`, strings.Repeat("a", 300) + ".jpg"} {
		_, err := Extension(in)
		assert.ErrorIs(t, err, ErrBadFileName, in)
	}
}

func TestObjectKey(t *testing.T) {
	key := ObjectKey(42, model.ModeProcessed, "png")
	assert.True(t, strings.HasPrefix(key, "000042/processed/"))
	assert.True(t, strings.HasSuffix(key, ".png"))
	assert.NotEqual(t, key, ObjectKey(42, model.ModeProcessed, "png"))

	assert.True(t, BelongsTo(key, 42, model.ModeProcessed))
	assert.False(t, BelongsTo(key, 42, model.ModeOriginal))
	assert.False(t, BelongsTo(key, 43, model.ModeProcessed))
	assert.False(t, BelongsTo("000042/processed/x/../../000043/original/a.png", 42, model.ModeProcessed))
}

func TestS3PresignerSignsLocally(t *testing.T) {
	p, err := NewS3Presigner(S3Config{
		Endpoint:  "localhost:9000",
		Bucket:    "booth",
		AccessKey: "minio",
		SecretKey: "minio123",
		PutExpiry: 15 * time.Minute,
		GetExpiry: time.Hour,
	})
	require.NoError(t, err)
	ctx := context.Background()

	put, err := p.PresignPut(ctx, "000001/original/a.jpg")
	require.NoError(t, err)
	u, err := url.Parse(put)
	require.NoError(t, err)
	assert.Equal(t, "/booth/000001/original/a.jpg", u.Path)
	assert.Equal(t, "900", u.Query().Get("X-Amz-Expires"))

	get, err := p.PresignGet(ctx, "000001/processed/b.jpg", "final.jpg")
	require.NoError(t, err)
	u, err = url.Parse(get)
	require.NoError(t, err)
	assert.Equal(t, `attachment; filename="final.jpg"`, u.Query().Get("response-content-disposition"))
	assert.Equal(t, "3600", u.Query().Get("X-Amz-Expires"))
}

func TestSupabaseAbsolute(t *testing.T) {
	p := NewSupabasePresigner("https://proj.supabase.co/", "key", "booth", time.Hour)
	assert.Equal(t, "https://proj.supabase.co/storage/v1/object/sign/booth/a.jpg?token=t",
		p.absolute("/object/sign/booth/a.jpg?token=t"))
	assert.Equal(t, "https://cdn.example/x", p.absolute("https://cdn.example/x"))
}

func TestSupabaseExists(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/storage/v1/object/list/booth", r.URL.Path)
		var body struct {
			Prefix string `json:"prefix"`
			Limit  int    `json:"limit"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "000007/original", body.Prefix)
		assert.Equal(t, 100, body.Limit)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"name":"a1.jpg"},{"name":"b2.png"}]`))
	}))
	t.Cleanup(ts.Close)
	p := NewSupabasePresigner(ts.URL, "key", "booth", time.Hour)
	ctx := context.Background()

	ok, err := p.Exists(ctx, "000007/original/b2.png")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = p.Exists(ctx, "000007/original/c3.jpg")
	require.NoError(t, err)
	assert.False(t, ok)
}
