package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const maxPhotoBytes int64 = 10 * 1024 * 1024

// PhotoStorage keeps uploaded reference photos and generated hero images in
// MinIO/S3 so the data-deletion endpoint has something real to purge. The
// wizard itself works from in-session data URIs; object storage is an
// archive, not the hot path.
type PhotoStorage struct {
	client    *minio.Client
	bucket    string
	publicURL string
}

// NewPhotoStorageFromEnv initialises PhotoStorage using MINIO_* environment
// variables. It returns (nil, nil) when storage is not configured; callers
// treat a nil store as a no-op.
func NewPhotoStorageFromEnv() (*PhotoStorage, error) {
	endpoint := strings.TrimSpace(os.Getenv("MINIO_ENDPOINT"))
	accessKey := strings.TrimSpace(os.Getenv("MINIO_ACCESS_KEY"))
	secretKey := strings.TrimSpace(os.Getenv("MINIO_SECRET_KEY"))
	bucket := strings.TrimSpace(os.Getenv("MINIO_BUCKET"))
	if endpoint == "" || accessKey == "" || secretKey == "" || bucket == "" {
		return nil, nil
	}

	useSSL := strings.EqualFold(strings.TrimSpace(os.Getenv("MINIO_USE_SSL")), "true")
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("storage: init minio client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("storage: check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("storage: create bucket: %w", err)
		}
	}

	publicURL := strings.TrimSpace(os.Getenv("MINIO_PUBLIC_URL"))
	if publicURL == "" {
		scheme := "http"
		if useSSL {
			scheme = "https"
		}
		publicURL = fmt.Sprintf("%s://%s", scheme, endpoint)
	}

	return &PhotoStorage{
		client:    client,
		bucket:    bucket,
		publicURL: strings.TrimSuffix(publicURL, "/"),
	}, nil
}

// Upload stores raw image bytes beneath the given path segments. The final
// object key is herobook/<segments...>/<uuid>.<ext>. A nil store uploads
// nothing and returns an empty key.
func (s *PhotoStorage) Upload(ctx context.Context, data []byte, contentType string, pathSegments ...string) (string, error) {
	if s == nil || s.client == nil {
		return "", nil
	}
	if len(data) == 0 {
		return "", errors.New("storage: image data is empty")
	}
	if int64(len(data)) > maxPhotoBytes {
		return "", fmt.Errorf("storage: image exceeds %d bytes", maxPhotoBytes)
	}

	if strings.TrimSpace(contentType) == "" {
		contentType = http.DetectContentType(data)
	}

	segments := []string{"herobook"}
	for _, segment := range pathSegments {
		trimmed := strings.Trim(segment, "/")
		if trimmed != "" {
			segments = append(segments, trimmed)
		}
	}
	objectName := path.Join(append(segments, uuid.NewString()+imageExtension(contentType))...)

	uploadCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	_, err := s.client.PutObject(uploadCtx, s.bucket, objectName, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("storage: upload image: %w", err)
	}

	return objectName, nil
}

// RemovePrefix deletes every object stored under the given path segments,
// e.g. a whole job's generated images. A nil store is a no-op.
func (s *PhotoStorage) RemovePrefix(ctx context.Context, pathSegments ...string) error {
	if s == nil || s.client == nil {
		return nil
	}

	segments := []string{"herobook"}
	for _, segment := range pathSegments {
		trimmed := strings.Trim(segment, "/")
		if trimmed != "" {
			segments = append(segments, trimmed)
		}
	}
	prefix := path.Join(segments...) + "/"

	removeCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	objects := s.client.ListObjects(removeCtx, s.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	})

	var firstErr error
	for object := range objects {
		if object.Err != nil {
			if firstErr == nil {
				firstErr = object.Err
			}
			continue
		}
		if err := s.client.RemoveObject(removeCtx, s.bucket, object.Key, minio.RemoveObjectOptions{}); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if firstErr != nil {
		return fmt.Errorf("storage: remove prefix %s: %w", prefix, firstErr)
	}
	return nil
}

// ListPrefix returns the keys of every object stored under the given path
// segments. A nil store returns no keys.
func (s *PhotoStorage) ListPrefix(ctx context.Context, pathSegments ...string) ([]string, error) {
	if s == nil || s.client == nil {
		return nil, nil
	}

	segments := []string{"herobook"}
	for _, segment := range pathSegments {
		trimmed := strings.Trim(segment, "/")
		if trimmed != "" {
			segments = append(segments, trimmed)
		}
	}
	prefix := path.Join(segments...) + "/"

	listCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	objects := s.client.ListObjects(listCtx, s.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	})

	var keys []string
	for object := range objects {
		if object.Err != nil {
			return nil, fmt.Errorf("storage: list prefix %s: %w", prefix, object.Err)
		}
		keys = append(keys, object.Key)
	}
	return keys, nil
}

// PresignedURL returns a temporary download URL for a stored object.
func (s *PhotoStorage) PresignedURL(ctx context.Context, objectName string, expiry time.Duration) (string, error) {
	if s == nil || s.client == nil {
		return "", nil
	}
	if strings.TrimSpace(objectName) == "" {
		return "", nil
	}
	if expiry <= 0 {
		expiry = 15 * time.Minute
	}

	presignCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	u, err := s.client.PresignedGetObject(presignCtx, s.bucket, objectName, expiry, nil)
	if err != nil {
		return "", fmt.Errorf("storage: presign %s: %w", objectName, err)
	}
	return u.String(), nil
}

func imageExtension(contentType string) string {
	switch strings.ToLower(strings.TrimSpace(contentType)) {
	case "image/png", "image/x-png":
		return ".png"
	case "image/jpeg", "image/pjpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	default:
		return ".bin"
	}
}
