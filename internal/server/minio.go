package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ObjectStoreConfig locates the bucket holding report PDFs.
type ObjectStoreConfig struct {
	Endpoint  string // "s3.amazonaws.com", "minio:9000" or "http://minio:9000"
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
}

// MinioStore presigns report uploads and downloads against an
// S3-compatible bucket. It never proxies object bytes.
type MinioStore struct {
	client *minio.Client
	bucket string
}

func normaliseEndpoint(raw string) (endpoint string, secure bool, err error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false, fmt.Errorf("empty endpoint")
	}

	// Accept either "minio:9000" or "http://minio:9000" / "https://minio:9000".
	if strings.Contains(raw, "://") {
		u, err := url.Parse(raw)
		if err != nil {
			return "", false, err
		}
		if u.Host == "" {
			return "", false, fmt.Errorf("invalid endpoint")
		}
		if u.Path != "" && u.Path != "/" {
			return "", false, fmt.Errorf("endpoint must not contain a path")
		}
		return u.Host, u.Scheme == "https", nil
	}

	// Bare hosts: AWS is always TLS, anything else is assumed to be a local
	// MinIO without it.
	return raw, strings.HasSuffix(raw, "amazonaws.com"), nil
}

// newCredentials uses static keys when given and otherwise falls back to
// the usual AWS sources: environment, shared credentials file, instance role.
func newCredentials(accessKey, secretKey string) *credentials.Credentials {
	if accessKey != "" && secretKey != "" {
		return credentials.NewStaticV4(accessKey, secretKey, "")
	}
	return credentials.NewChainCredentials([]credentials.Provider{
		&credentials.EnvAWS{},
		&credentials.FileAWSCredentials{},
		&credentials.IAM{Client: &http.Client{Transport: http.DefaultTransport}},
	})
}

// NewMinioStore builds the client. It does not contact the store, so a
// missing bucket surfaces through Ping and the health endpoints instead of
// blocking startup.
func NewMinioStore(cfg ObjectStoreConfig) (*MinioStore, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is empty")
	}
	endpoint, secure, err := normaliseEndpoint(cfg.Endpoint)
	if err != nil {
		return nil, err
	}

	// An explicit region keeps presigning local: minio-go would otherwise
	// look up the bucket location first.
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  newCredentials(cfg.AccessKey, cfg.SecretKey),
		Secure: secure,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, err
	}
	return &MinioStore{client: client, bucket: cfg.Bucket}, nil
}

// PresignUpload returns a PUT URL for key. The client must send the same
// Content-Type or the signature will not match.
func (m *MinioStore) PresignUpload(ctx context.Context, key, contentType string, ttl time.Duration) (string, error) {
	headers := http.Header{}
	if contentType != "" {
		headers.Set("Content-Type", contentType)
	}
	u, err := m.client.PresignHeader(ctx, http.MethodPut, m.bucket, key, ttl, nil, headers)
	if err != nil {
		return "", fmt.Errorf("presign put %s: %w", key, err)
	}
	return u.String(), nil
}

// PresignDownload returns a GET URL for key.
func (m *MinioStore) PresignDownload(ctx context.Context, key string, ttl time.Duration) (string, error) {
	u, err := m.client.PresignedGetObject(ctx, m.bucket, key, ttl, nil)
	if err != nil {
		return "", fmt.Errorf("presign get %s: %w", key, err)
	}
	return u.String(), nil
}

// ErrBucketMissing is returned by Ping when the store answers but the
// bucket does not exist.
var ErrBucketMissing = errors.New("bucket does not exist")

// Ping checks that the bucket is reachable.
func (m *MinioStore) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	exists, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: %s", ErrBucketMissing, m.bucket)
	}
	return nil
}
