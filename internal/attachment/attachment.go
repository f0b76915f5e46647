// Package attachment archives delivery signature artifacts to object storage.
package attachment

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/georgemunganga/materialive/internal/config"
)

// Store persists a signature and returns the object path it was written to.
// An empty path with a nil error means archiving is disabled.
type Store interface {
	PutSignature(ctx context.Context, deliveryID uuid.UUID, signedAt time.Time, signature string) (string, error)
}

type minioStore struct {
	client *minio.Client
	bucket string
}

// NewMinIO connects to the configured endpoint. It returns Nop when no
// endpoint is set.
func NewMinIO(ctx context.Context, cfg config.MinIOConfig) (Store, error) {
	if cfg.Endpoint == "" {
		return Nop{}, nil
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", cfg.Bucket, err)
		}
	}
	return &minioStore{client: client, bucket: cfg.Bucket}, nil
}

func (s *minioStore) PutSignature(ctx context.Context, deliveryID uuid.UUID, signedAt time.Time, signature string) (string, error) {
	data, contentType, err := DecodeSignature(signature)
	if err != nil {
		return "", err
	}
	objectName := ObjectName(deliveryID, signedAt, contentType)

	_, err = s.client.PutObject(ctx, s.bucket, objectName, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("upload signature: %w", err)
	}
	return objectName, nil
}

// Nop discards signatures.
type Nop struct{}

func (Nop) PutSignature(context.Context, uuid.UUID, time.Time, string) (string, error) {
	return "", nil
}

// ObjectName returns the archive path of a delivery's signature.
func ObjectName(deliveryID uuid.UUID, signedAt time.Time, contentType string) string {
	ext := ".bin"
	switch contentType {
	case "image/png":
		ext = ".png"
	case "image/jpeg":
		ext = ".jpg"
	case "image/svg+xml":
		ext = ".svg"
	}
	return fmt.Sprintf("signatures/%s/%s%s", signedAt.UTC().Format("2006/01/02"), deliveryID, ext)
}

// DecodeSignature unpacks a base64 data URL such as the ones produced by a
// browser canvas. Anything else is stored verbatim.
func DecodeSignature(signature string) ([]byte, string, error) {
	if !strings.HasPrefix(signature, "data:") {
		return []byte(signature), "application/octet-stream", nil
	}
	meta, payload, ok := strings.Cut(signature[len("data:"):], ",")
	if !ok {
		return nil, "", fmt.Errorf("malformed data url")
	}
	contentType, isBase64 := strings.CutSuffix(meta, ";base64")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if !isBase64 {
		return []byte(payload), contentType, nil
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", fmt.Errorf("decode signature: %w", err)
	}
	return data, contentType, nil
}
