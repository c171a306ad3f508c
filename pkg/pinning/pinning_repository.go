package pinning

import (
	"context"
	"crimson-backend/entities"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type (
	PinRepository interface {
		// CreateIfAbsent inserts pin unless its digest is already indexed, and
		// returns the stored row either way.
		CreateIfAbsent(ctx context.Context, pin *entities.Pin) (*entities.Pin, error)
		GetByDigest(ctx context.Context, digest string) (*entities.Pin, error)
		ListByOwner(ctx context.Context, owner string, page, limit int) ([]*entities.Pin, int64, error)
	}

	pinRepository struct {
		db *gorm.DB
	}
)

func NewPinRepository(db *gorm.DB) PinRepository {
	return &pinRepository{db: db}
}

func (r *pinRepository) CreateIfAbsent(ctx context.Context, pin *entities.Pin) (*entities.Pin, error) {
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "digest"}}, DoNothing: true}).
		Create(pin).Error; err != nil {
		return nil, err
	}
	return r.GetByDigest(ctx, pin.Digest)
}

func (r *pinRepository) GetByDigest(ctx context.Context, digest string) (*entities.Pin, error) {
	var pin entities.Pin
	if err := r.db.WithContext(ctx).Where("digest = ?", digest).First(&pin).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &pin, nil
}

func (r *pinRepository) ListByOwner(ctx context.Context, owner string, page, limit int) ([]*entities.Pin, int64, error) {
	var pins []*entities.Pin
	var count int64
	offset := (page - 1) * limit

	if err := r.db.WithContext(ctx).
		Model(&entities.Pin{}).
		Where("owner = ?", owner).
		Count(&count).Error; err != nil {
		return nil, 0, err
	}

	if err := r.db.WithContext(ctx).
		Where("owner = ?", owner).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&pins).Error; err != nil {
		return nil, 0, err
	}

	return pins, count, nil
}
