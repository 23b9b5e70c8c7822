package postgres

import (
	"context"

	"github.com/skillforge/assessment-service/internal/models"
	"github.com/skillforge/assessment-service/internal/repositories"
	"gorm.io/gorm"
)

type ResultPostgreSQL struct {
	db *gorm.DB
}

func NewResultPostgreSQL(db *gorm.DB) repositories.ResultRepository {
	return &ResultPostgreSQL{db: db}
}

func (r *ResultPostgreSQL) Create(ctx context.Context, result *models.RoundResult) error {
	return r.db.WithContext(ctx).Create(result).Error
}

func (r *ResultPostgreSQL) GetLatestBySession(ctx context.Context, sessionID uint) (*models.RoundResult, error) {
	var result models.RoundResult
	if err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("version DESC").
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *ResultPostgreSQL) GetVersions(ctx context.Context, sessionID uint) ([]*models.RoundResult, error) {
	var results []*models.RoundResult
	if err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("version ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
