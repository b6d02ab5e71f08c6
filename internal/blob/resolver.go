// Package blob resolves stored attachment references to retrievable URLs.
package blob

import (
	"context"
	"fmt"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Resolver turns attachment keys into presigned GET URLs against an
// S3-compatible object store. A nil Resolver resolves every key to "", which
// read paths treat as "no attachment URL available" rather than an error.
type Resolver struct {
	client *minio.Client
	bucket string
	expiry time.Duration
}

func NewResolver(endpoint, accessKey, secretKey, bucket string, useSSL bool, expiry time.Duration) (*Resolver, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create blob client: %w", err)
	}
	return &Resolver{client: client, bucket: bucket, expiry: expiry}, nil
}

// ResolveURL returns a time-limited URL for the key, or "" when the resolver
// is unconfigured or the key is empty.
func (r *Resolver) ResolveURL(ctx context.Context, key string) (string, error) {
	if r == nil || key == "" {
		return "", nil
	}
	url, err := r.client.PresignedGetObject(ctx, r.bucket, key, r.expiry, nil)
	if err != nil {
		return "", fmt.Errorf("presign object %s: %w", key, err)
	}
	return url.String(), nil
}
