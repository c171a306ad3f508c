package storage

import (
	"context"
	"crimson-backend/internal/utils"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type MinIO struct {
	client    *minio.Client
	bucket    string
	publicURL string
}

func NewMinIO(ctx context.Context) (*MinIO, error) {
	endpoint := utils.GetConfig("MINIO_ENDPOINT")
	bucket := utils.GetConfig("MINIO_BUCKET")
	if endpoint == "" || bucket == "" {
		return nil, errors.New("MINIO_ENDPOINT and MINIO_BUCKET are required")
	}
	useSSL, _ := strconv.ParseBool(utils.GetConfig("MINIO_USE_SSL"))

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(utils.GetConfig("MINIO_ACCESS_KEY"), utils.GetConfig("MINIO_SECRET_KEY"), ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("minio bucket %s: %w", bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", bucket, err)
		}
	}

	publicURL := utils.GetConfig("MINIO_PUBLIC_URL")
	if publicURL == "" {
		scheme := "http"
		if useSSL {
			scheme = "https"
		}
		publicURL = fmt.Sprintf("%s://%s/%s", scheme, endpoint, bucket)
	}
	return &MinIO{client: client, bucket: bucket, publicURL: strings.TrimRight(publicURL, "/")}, nil
}

func (m *MinIO) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	_, err := m.client.PutObject(ctx, m.bucket, key, body, size, minio.PutObjectOptions{ContentType: contentType})
	return err
}

func (m *MinIO) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	if ok, err := m.Exists(ctx, key); err != nil {
		return nil, err
	} else if !ok {
		return nil, ErrObjectNotFound
	}
	return m.client.GetObject(ctx, m.bucket, key, minio.GetObjectOptions{})
}

func (m *MinIO) Exists(ctx context.Context, key string) (bool, error) {
	_, err := m.client.StatObject(ctx, m.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (m *MinIO) Delete(ctx context.Context, key string) error {
	return m.client.RemoveObject(ctx, m.bucket, key, minio.RemoveObjectOptions{})
}

func (m *MinIO) PublicURL(key string) string {
	return m.publicURL + "/" + key
}
