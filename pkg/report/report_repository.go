package report

import (
	"context"
	"crimson-backend/entities"
	"errors"

	"gorm.io/gorm"
)

type (
	ReportRepository interface {
		Create(ctx context.Context, analysis *entities.ReportAnalysis) error
		GetByID(ctx context.Context, id string) (*entities.ReportAnalysis, error)
		ListByOwner(ctx context.Context, owner string, page, limit int) ([]*entities.ReportAnalysis, int64, error)
	}

	reportRepository struct {
		db *gorm.DB
	}
)

func NewReportRepository(db *gorm.DB) ReportRepository {
	return &reportRepository{db: db}
}

func (r *reportRepository) Create(ctx context.Context, analysis *entities.ReportAnalysis) error {
	return r.db.WithContext(ctx).Create(analysis).Error
}

func (r *reportRepository) GetByID(ctx context.Context, id string) (*entities.ReportAnalysis, error) {
	var analysis entities.ReportAnalysis
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&analysis).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &analysis, nil
}

func (r *reportRepository) ListByOwner(ctx context.Context, owner string, page, limit int) ([]*entities.ReportAnalysis, int64, error) {
	var analyses []*entities.ReportAnalysis
	var count int64
	offset := (page - 1) * limit

	if err := r.db.WithContext(ctx).
		Model(&entities.ReportAnalysis{}).
		Where("owner = ?", owner).
		Count(&count).Error; err != nil {
		return nil, 0, err
	}

	// The transcript is only needed by GetByID.
	if err := r.db.WithContext(ctx).
		Omit("transcript").
		Where("owner = ?", owner).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&analyses).Error; err != nil {
		return nil, 0, err
	}

	return analyses, count, nil
}
