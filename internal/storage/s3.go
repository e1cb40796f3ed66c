package storage

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// S3Config points at any S3 compatible endpoint (AWS, MinIO, R2).
type S3Config struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	UseSSL    bool
	PutExpiry time.Duration
	GetExpiry time.Duration
}

// S3Presigner signs URLs with the minio client.  Signing is local; only
// Exists and Remove talk to the endpoint.
type S3Presigner struct {
	client    *minio.Client
	bucket    string
	putExpiry time.Duration
	getExpiry time.Duration
}

func NewS3Presigner(cfg S3Config) (*S3Presigner, error) {
	region := cfg.Region
	if region == "" {
		// a known region keeps presigning from looking up the bucket location
		region = "us-east-1"
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("s3 client: %w", err)
	}
	return &S3Presigner{client: client, bucket: cfg.Bucket, putExpiry: cfg.PutExpiry, getExpiry: cfg.GetExpiry}, nil
}

func (p *S3Presigner) PresignPut(ctx context.Context, key string) (string, error) {
	u, err := p.client.PresignedPutObject(ctx, p.bucket, key, p.putExpiry)
	if err != nil {
		return "", fmt.Errorf("presign put %s: %w", key, err)
	}
	return u.String(), nil
}

// PresignGet signs a download URL that saves the object as downloadName.
func (p *S3Presigner) PresignGet(ctx context.Context, key, downloadName string) (string, error) {
	params := url.Values{}
	if downloadName != "" {
		params.Set("response-content-disposition", contentDisposition(downloadName))
	}
	u, err := p.client.PresignedGetObject(ctx, p.bucket, key, p.getExpiry, params)
	if err != nil {
		return "", fmt.Errorf("presign get %s: %w", key, err)
	}
	return u.String(), nil
}

func (p *S3Presigner) Exists(ctx context.Context, key string) (bool, error) {
	_, err := p.client.StatObject(ctx, p.bucket, key, minio.StatObjectOptions{})
	if err == nil {
		return true, nil
	}
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return false, nil
	}
	return false, fmt.Errorf("stat %s: %w", key, err)
}

func (p *S3Presigner) Remove(ctx context.Context, key string) error {
	if err := p.client.RemoveObject(ctx, p.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove %s: %w", key, err)
	}
	return nil
}
