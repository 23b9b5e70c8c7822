package postgres

import (
	"context"
	"time"

	"github.com/skillforge/assessment-service/internal/models"
	"github.com/skillforge/assessment-service/internal/repositories"
	"gorm.io/gorm"
)

type AttemptPostgreSQL struct {
	db *gorm.DB
}

func NewAttemptPostgreSQL(db *gorm.DB) repositories.AttemptRepository {
	return &AttemptPostgreSQL{db: db}
}

func (a *AttemptPostgreSQL) Create(ctx context.Context, attempt *models.Attempt) error {
	return a.db.WithContext(ctx).Create(attempt).Error
}

func (a *AttemptPostgreSQL) GetByID(ctx context.Context, id uint) (*models.Attempt, error) {
	var attempt models.Attempt
	if err := a.db.WithContext(ctx).
		Preload("Rounds").
		First(&attempt, id).Error; err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (a *AttemptPostgreSQL) GetByLearner(ctx context.Context, learnerID string, filters repositories.AttemptFilters) ([]*models.Attempt, int64, error) {
	var attempts []*models.Attempt
	var total int64

	query := a.db.WithContext(ctx).Model(&models.Attempt{}).Where("learner_id = ?", learnerID)
	if filters.DateFrom != nil {
		query = query.Where("finished_at >= ?", *filters.DateFrom)
	}
	if filters.DateTo != nil {
		query = query.Where("finished_at <= ?", *filters.DateTo)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
	}
	if filters.Offset > 0 {
		query = query.Offset(filters.Offset)
	}

	if err := query.Preload("Rounds").Order("finished_at DESC").Find(&attempts).Error; err != nil {
		return nil, 0, err
	}
	return attempts, total, nil
}

func (a *AttemptPostgreSQL) CountCompletedSince(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	err := a.db.WithContext(ctx).
		Model(&models.Attempt{}).
		Where("status = ? AND finished_at >= ?", models.AttemptCompleted, since).
		Count(&count).Error
	return count, err
}

func (a *AttemptPostgreSQL) CountScoringBelowSince(ctx context.Context, score float64, since time.Time) (int64, error) {
	var count int64
	err := a.db.WithContext(ctx).
		Model(&models.Attempt{}).
		Where("status = ? AND finished_at >= ? AND final_score < ?", models.AttemptCompleted, since, score).
		Count(&count).Error
	return count, err
}

func (a *AttemptPostgreSQL) CountScoringAboveSince(ctx context.Context, score float64, since time.Time) (int64, error) {
	var count int64
	err := a.db.WithContext(ctx).
		Model(&models.Attempt{}).
		Where("status = ? AND finished_at >= ? AND final_score > ?", models.AttemptCompleted, since, score).
		Count(&count).Error
	return count, err
}
