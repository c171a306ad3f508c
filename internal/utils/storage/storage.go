package storage

import (
	"bytes"
	"context"
	"crimson-backend/internal/utils"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"slices"
	"strings"
)

var (
	AllowImage    = []string{"image/jpeg", "image/png", "image/webp", "image/gif"}
	AllowDocument = []string{"application/pdf", "image/jpeg", "image/png", "image/webp"}

	ErrFileTypeNotAllowed = errors.New("file type not allowed")
	ErrFileTooLarge       = errors.New("file too large")
	ErrObjectNotFound     = errors.New("object not found")
)

const MaxUploadSize = 10 << 20

// ObjectStore is a flat key/value blob store with public links.
type ObjectStore interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Exists(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
	PublicURL(key string) string
}

// NewObjectStore picks the driver named by STORAGE_DRIVER (s3 by default).
func NewObjectStore(ctx context.Context) (ObjectStore, error) {
	switch strings.ToLower(utils.GetConfigOr("STORAGE_DRIVER", "s3")) {
	case "s3":
		return NewAwsS3(ctx)
	case "minio":
		return NewMinIO(ctx)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", utils.GetConfig("STORAGE_DRIVER"))
	}
}

// ReadUpload reads an uploaded file fully and returns it with its sniffed
// content type, rejecting types outside allowed when allowed is non-empty.
func ReadUpload(fileHeader *multipart.FileHeader, allowed ...string) ([]byte, string, error) {
	if fileHeader.Size > MaxUploadSize {
		return nil, "", ErrFileTooLarge
	}
	file, err := fileHeader.Open()
	if err != nil {
		return nil, "", err
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, MaxUploadSize+1))
	if err != nil {
		return nil, "", err
	}
	if len(data) > MaxUploadSize {
		return nil, "", ErrFileTooLarge
	}

	contentType := DetectContentType(data, fileHeader.Header.Get("Content-Type"))
	if len(allowed) > 0 && !slices.Contains(allowed, contentType) {
		return nil, "", ErrFileTypeNotAllowed
	}
	return data, contentType, nil
}

// DetectContentType trusts the bytes over the declared header.
func DetectContentType(data []byte, declared string) string {
	sniffed := http.DetectContentType(data)
	if i := strings.IndexByte(sniffed, ';'); i >= 0 {
		sniffed = sniffed[:i]
	}
	if sniffed == "application/octet-stream" || sniffed == "text/plain" {
		if declared != "" {
			if i := strings.IndexByte(declared, ';'); i >= 0 {
				declared = declared[:i]
			}
			return strings.TrimSpace(declared)
		}
	}
	return sniffed
}

// PutBytes stores data under key.
func PutBytes(ctx context.Context, store ObjectStore, key string, data []byte, contentType string) error {
	return store.Put(ctx, key, bytes.NewReader(data), int64(len(data)), contentType)
}
