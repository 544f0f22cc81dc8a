/**
 * @description
 * This package provides the object storage client for member photos, backed
 * by Aliyun OSS. It exposes the small put/delete surface the service layer
 * needs and builds virtual-host style public URLs for uploaded objects.
 */

package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
)

// OSSStore wraps one bucket of an OSS endpoint.
type OSSStore struct {
	bucket     *oss.Bucket
	bucketName string
	endpoint   string
}

// NewOSSStore connects to the endpoint and opens the named bucket.
func NewOSSStore(endpoint, accessKeyID, accessKeySecret, bucketName string) (*OSSStore, error) {
	client, err := oss.New(endpoint, accessKeyID, accessKeySecret)
	if err != nil {
		return nil, fmt.Errorf("oss.New: %w", err)
	}
	bucket, err := client.Bucket(bucketName)
	if err != nil {
		return nil, fmt.Errorf("oss bucket %q: %w", bucketName, err)
	}
	return &OSSStore{
		bucket:     bucket,
		bucketName: bucketName,
		endpoint:   endpoint,
	}, nil
}

// PutObject uploads an object under the given key and returns its public URL.
// Key uniqueness is the caller's responsibility.
func (s *OSSStore) PutObject(ctx context.Context, key string, body io.Reader, contentType string) (string, error) {
	opts := []oss.Option{oss.WithContext(ctx)}
	if contentType != "" {
		opts = append(opts, oss.ContentType(contentType))
	}
	if err := s.bucket.PutObject(key, body, opts...); err != nil {
		return "", fmt.Errorf("oss put %q: %w", key, err)
	}
	return s.PublicURL(key), nil
}

// DeleteObject removes an object by key. Deleting a missing key is not an
// error on OSS, which suits the orphan-cleanup callers.
func (s *OSSStore) DeleteObject(ctx context.Context, key string) error {
	if err := s.bucket.DeleteObject(key, oss.WithContext(ctx)); err != nil {
		return fmt.Errorf("oss delete %q: %w", key, err)
	}
	return nil
}

// PublicURL builds the virtual-host style URL for a key.
func (s *OSSStore) PublicURL(key string) string {
	host := strings.TrimPrefix(s.endpoint, "https://")
	host = strings.TrimPrefix(host, "http://")
	return fmt.Sprintf("https://%s.%s/%s", s.bucketName, host, key)
}
