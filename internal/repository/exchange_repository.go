package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"insightdocs-gateway/internal/model"
)

type ExchangeRepository struct {
	db *gorm.DB
}

func NewExchangeRepository(db *gorm.DB) *ExchangeRepository {
	return &ExchangeRepository{db: db}
}

// Upsert creates the archive row for a message, or refreshes its feedback
// when the row already exists. The archive queue delivers both first-time
// exchanges and later feedback patches through the same path.
func (r *ExchangeRepository) Upsert(rec *model.ExchangeRecord) error {
	var existing model.ExchangeRecord
	err := r.db.Where("message_id = ?", rec.MessageID).First(&existing).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if createErr := r.db.Create(rec).Error; createErr != nil {
				return fmt.Errorf("create exchange record failed: %w", createErr)
			}
			return nil
		}
		return fmt.Errorf("query exchange record failed: %w", err)
	}

	if err := r.db.Model(&existing).Update("feedback", rec.Feedback).Error; err != nil {
		return fmt.Errorf("update exchange feedback failed: %w", err)
	}
	return nil
}

func (r *ExchangeRepository) ListByScope(scope string, limit int) ([]model.ExchangeRecord, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	var records []model.ExchangeRecord
	if err := r.db.Where("scope = ?", scope).Order("asked_at ASC").Limit(limit).Find(&records).Error; err != nil {
		return nil, fmt.Errorf("list exchange records failed: %w", err)
	}
	return records, nil
}

func (r *ExchangeRepository) DeleteByScope(scope string) error {
	if err := r.db.Where("scope = ?", scope).Delete(&model.ExchangeRecord{}).Error; err != nil {
		return fmt.Errorf("delete exchange records failed: %w", err)
	}
	return nil
}
