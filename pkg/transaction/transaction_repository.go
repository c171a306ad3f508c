package transaction

import (
	"context"
	"crimson-backend/entities"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type (
	TransactionRepository interface {
		// Save inserts the row or overwrites the tracked columns of an
		// existing one.
		Save(ctx context.Context, tx *entities.Transaction) error
		GetByID(ctx context.Context, id string) (*entities.Transaction, error)
		GetByHash(ctx context.Context, hash string) (*entities.Transaction, error)
		ListByFrom(ctx context.Context, from string, page, limit int) ([]*entities.Transaction, int64, error)
	}

	transactionRepository struct {
		db *gorm.DB
	}
)

func NewTransactionRepository(db *gorm.DB) TransactionRepository {
	return &transactionRepository{db: db}
}

func (r *transactionRepository) Save(ctx context.Context, tx *entities.Transaction) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"hash", "stage", "block_number", "error_cause", "error_message", "abandoned",
				"camp_id", "token_id", "nft_contract", "request_id", "hospital_id", "updated_at",
			}),
		}).
		Create(tx).Error
}

func (r *transactionRepository) GetByID(ctx context.Context, id string) (*entities.Transaction, error) {
	var tx entities.Transaction
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&tx).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &tx, nil
}

func (r *transactionRepository) GetByHash(ctx context.Context, hash string) (*entities.Transaction, error) {
	var tx entities.Transaction
	if err := r.db.WithContext(ctx).Where("hash = ?", hash).First(&tx).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &tx, nil
}

func (r *transactionRepository) ListByFrom(ctx context.Context, from string, page, limit int) ([]*entities.Transaction, int64, error) {
	var txs []*entities.Transaction
	var count int64
	offset := (page - 1) * limit

	if err := r.db.WithContext(ctx).
		Model(&entities.Transaction{}).
		Where("sender = ?", from).
		Count(&count).Error; err != nil {
		return nil, 0, err
	}

	if err := r.db.WithContext(ctx).
		Where("sender = ?", from).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&txs).Error; err != nil {
		return nil, 0, err
	}

	return txs, count, nil
}
