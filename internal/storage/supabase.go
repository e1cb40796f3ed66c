package storage

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	storage_go "github.com/supabase-community/storage-go"
)

// SupabasePresigner signs URLs against a Supabase Storage bucket.
type SupabasePresigner struct {
	client    *storage_go.Client
	bucket    string
	baseURL   string
	getExpiry time.Duration
}

func NewSupabasePresigner(projectURL, serviceKey, bucket string, getExpiry time.Duration) *SupabasePresigner {
	base := strings.TrimRight(projectURL, "/") + "/storage/v1"
	return &SupabasePresigner{
		client:    storage_go.NewClient(base, serviceKey, nil),
		bucket:    bucket,
		baseURL:   base,
		getExpiry: getExpiry,
	}
}

// absolute turns the bucket-relative paths some responses carry into full URLs.
func (p *SupabasePresigner) absolute(u string) string {
	if strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://") {
		return u
	}
	return p.baseURL + "/" + strings.TrimLeft(u, "/")
}

// PresignPut returns a signed upload URL.  Supabase fixes its lifetime at
// two hours.
func (p *SupabasePresigner) PresignPut(_ context.Context, key string) (string, error) {
	res, err := p.client.CreateSignedUploadUrl(p.bucket, key)
	if err != nil {
		return "", fmt.Errorf("signed upload url %s: %w", key, err)
	}
	return p.absolute(res.Url), nil
}

func (p *SupabasePresigner) PresignGet(_ context.Context, key, downloadName string) (string, error) {
	res, err := p.client.CreateSignedUrl(p.bucket, key, int(p.getExpiry.Seconds()))
	if err != nil {
		return "", fmt.Errorf("signed url %s: %w", key, err)
	}
	signed := p.absolute(res.SignedURL)
	if downloadName == "" {
		return signed, nil
	}
	sep := "?"
	if strings.Contains(signed, "?") {
		sep = "&"
	}
	return signed + sep + "download=" + url.QueryEscape(downloadName), nil
}

func (p *SupabasePresigner) Exists(_ context.Context, key string) (bool, error) {
	dir, name := path.Split(key)
	// one directory per order and mode; abandoned tickets can leave a few
	// extra objects next to the confirmed ones
	files, err := p.client.ListFiles(p.bucket, strings.TrimSuffix(dir, "/"), storage_go.FileSearchOptions{
		Limit: 100,
	})
	if err != nil {
		return false, fmt.Errorf("list %s: %w", dir, err)
	}
	for _, f := range files {
		if f.Name == name {
			return true, nil
		}
	}
	return false, nil
}

func (p *SupabasePresigner) Remove(_ context.Context, key string) error {
	if _, err := p.client.RemoveFile(p.bucket, []string{key}); err != nil {
		return fmt.Errorf("remove %s: %w", key, err)
	}
	return nil
}
