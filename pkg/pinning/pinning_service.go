package pinning

import (
	"context"
	"crimson-backend/domain"
	"crimson-backend/entities"
	"crimson-backend/internal/utils/storage"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/blake2b"
)

// URIScheme prefixes content addresses, e.g. "blake2b:9f86d0...".
const URIScheme = "blake2b:"

type (
	PinService interface {
		PinFile(ctx context.Context, file *multipart.FileHeader, owner string, allowed ...string) (*domain.Pin, error)
		PinBytes(ctx context.Context, name string, data []byte, contentType, owner string) (*domain.Pin, error)
		PinJSON(ctx context.Context, name string, v any, owner string) (*domain.Pin, error)
		GetPin(ctx context.Context, digest string) (*domain.Pin, error)
		// OpenPin returns the pin and its content. The caller closes the reader.
		OpenPin(ctx context.Context, digest string) (*domain.Pin, io.ReadCloser, error)
		ListPins(ctx context.Context, owner string, page, limit int) ([]*domain.Pin, int64, error)
	}

	pinService struct {
		pinRepository PinRepository
		store         storage.ObjectStore
		log           *zap.Logger
	}
)

func NewPinService(pinRepository PinRepository, store storage.ObjectStore, log *zap.Logger) PinService {
	return &pinService{
		pinRepository: pinRepository,
		store:         store,
		log:           log,
	}
}

// Digest is the content address of data.
func Digest(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func ObjectKey(digest string) string {
	return "pins/" + digest
}

func (s *pinService) PinFile(ctx context.Context, file *multipart.FileHeader, owner string, allowed ...string) (*domain.Pin, error) {
	if file == nil {
		return nil, domain.ErrFileRequired
	}
	data, contentType, err := storage.ReadUpload(file, allowed...)
	if err != nil {
		return nil, err
	}
	return s.PinBytes(ctx, file.Filename, data, contentType, owner)
}

func (s *pinService) PinJSON(ctx context.Context, name string, v any, owner string) (*domain.Pin, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", name, err)
	}
	return s.PinBytes(ctx, name, data, "application/json", owner)
}

// PinBytes stores data under its digest. Pinning the same bytes again is a
// no-op that returns the existing pin.
func (s *pinService) PinBytes(ctx context.Context, name string, data []byte, contentType, owner string) (*domain.Pin, error) {
	digest := Digest(data)

	existing, err := s.pinRepository.GetByDigest(ctx, digest)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return toDomainPin(existing), nil
	}

	key := ObjectKey(digest)
	found, err := s.store.Exists(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", key, err)
	}
	if !found {
		if err := storage.PutBytes(ctx, s.store, key, data, contentType); err != nil {
			return nil, fmt.Errorf("store %s: %w", key, err)
		}
	}

	pin, err := s.pinRepository.CreateIfAbsent(ctx, &entities.Pin{
		Digest:      digest,
		ObjectKey:   key,
		URL:         s.store.PublicURL(key),
		Name:        name,
		ContentType: contentType,
		Size:        int64(len(data)),
		Owner:       strings.ToLower(owner),
	})
	if err != nil {
		if !found {
			if derr := s.store.Delete(ctx, key); derr != nil {
				s.log.Warn("orphaned pinned object", zap.String("key", key), zap.Error(derr))
			}
		}
		return nil, err
	}
	s.log.Info("pinned content", zap.String("digest", digest), zap.String("content_type", contentType), zap.Int("size", len(data)))
	return toDomainPin(pin), nil
}

func (s *pinService) GetPin(ctx context.Context, digest string) (*domain.Pin, error) {
	digest = strings.TrimPrefix(strings.ToLower(digest), URIScheme)
	if b, err := hex.DecodeString(digest); err != nil || len(b) != blake2b.Size256 {
		return nil, domain.ErrInvalidDigest
	}
	pin, err := s.pinRepository.GetByDigest(ctx, digest)
	if err != nil {
		return nil, err
	}
	if pin == nil {
		return nil, domain.ErrPinNotFound
	}
	return toDomainPin(pin), nil
}

func (s *pinService) OpenPin(ctx context.Context, digest string) (*domain.Pin, io.ReadCloser, error) {
	pin, err := s.GetPin(ctx, digest)
	if err != nil {
		return nil, nil, err
	}
	body, err := s.store.Get(ctx, ObjectKey(pin.Digest))
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			s.log.Error("pin without stored object", zap.String("digest", pin.Digest))
			return nil, nil, domain.ErrPinNotFound
		}
		return nil, nil, fmt.Errorf("open %s: %w", pin.Digest, err)
	}
	return pin, body, nil
}

func (s *pinService) ListPins(ctx context.Context, owner string, page, limit int) ([]*domain.Pin, int64, error) {
	pins, count, err := s.pinRepository.ListByOwner(ctx, strings.ToLower(owner), page, limit)
	if err != nil {
		return nil, 0, err
	}
	result := make([]*domain.Pin, 0, len(pins))
	for _, p := range pins {
		result = append(result, toDomainPin(p))
	}
	return result, count, nil
}

func toDomainPin(p *entities.Pin) *domain.Pin {
	return &domain.Pin{
		ID:          p.ID.String(),
		Digest:      p.Digest,
		URI:         URIScheme + p.Digest,
		URL:         p.URL,
		Name:        p.Name,
		ContentType: p.ContentType,
		Size:        p.Size,
		Owner:       p.Owner,
		CreatedAt:   p.CreatedAt,
	}
}
