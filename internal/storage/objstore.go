package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/openscrape/facedex/internal/config"
)

// ObjectStore keeps the raw image bytes and identity cover crops in an
// S3-compatible bucket. Images live under images/<content-hash>, covers
// under covers/<identity-id>.jpg.
type ObjectStore struct {
	client *minio.Client
	bucket string
}

func NewObjectStore(cfg config.ObjectStoreConfig) (*ObjectStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	return &ObjectStore{
		client: client,
		bucket: cfg.Bucket,
	}, nil
}

// EnsureBucket creates the bucket if it doesn't exist.
func (s *ObjectStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("create bucket: %w", err)
		}
	}
	return nil
}

// PutImage stores accepted image bytes keyed by their content hash.
func (s *ObjectStore) PutImage(ctx context.Context, contentHash string, data []byte, contentType string) error {
	return s.put(ctx, "images/"+contentHash, data, contentType)
}

// GetImage retrieves image bytes by content hash.
func (s *ObjectStore) GetImage(ctx context.Context, contentHash string) ([]byte, error) {
	return s.get(ctx, "images/"+contentHash)
}

// PutCover stores an identity's cover crop, a JPEG of its best face.
func (s *ObjectStore) PutCover(ctx context.Context, identityID string, data []byte) error {
	return s.put(ctx, "covers/"+identityID+".jpg", data, "image/jpeg")
}

// GetCover retrieves an identity's cover crop.
func (s *ObjectStore) GetCover(ctx context.Context, identityID string) ([]byte, error) {
	return s.get(ctx, "covers/"+identityID+".jpg")
}

// DeleteCover removes an identity's cover crop, used after merges.
func (s *ObjectStore) DeleteCover(ctx context.Context, identityID string) error {
	return s.client.RemoveObject(ctx, s.bucket, "covers/"+identityID+".jpg", minio.RemoveObjectOptions{})
}

func (s *ObjectStore) put(ctx context.Context, key string, data []byte, contentType string) error {
	reader := bytes.NewReader(data)
	_, err := s.client.PutObject(ctx, s.bucket, key, reader, int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("put object %s: %w", key, err)
	}
	return nil
}

func (s *ObjectStore) get(ctx context.Context, key string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get object %s: %w", key, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("read object %s: %w", key, err)
	}
	return data, nil
}

// Ping checks object store connectivity.
func (s *ObjectStore) Ping(ctx context.Context) error {
	_, err := s.client.BucketExists(ctx, s.bucket)
	return err
}
