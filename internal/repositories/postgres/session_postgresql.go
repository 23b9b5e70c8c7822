package postgres

import (
	"context"
	"time"

	"github.com/skillforge/assessment-service/internal/models"
	"github.com/skillforge/assessment-service/internal/repositories"
	"gorm.io/gorm"
)

type SessionPostgreSQL struct {
	db *gorm.DB
}

func NewSessionPostgreSQL(db *gorm.DB) repositories.SessionRepository {
	return &SessionPostgreSQL{db: db}
}

func (s *SessionPostgreSQL) Create(ctx context.Context, session *models.TestSession) error {
	return s.db.WithContext(ctx).Create(session).Error
}

func (s *SessionPostgreSQL) GetByID(ctx context.Context, id uint) (*models.TestSession, error) {
	var session models.TestSession
	if err := s.db.WithContext(ctx).First(&session, id).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *SessionPostgreSQL) Update(ctx context.Context, session *models.TestSession) error {
	return s.db.WithContext(ctx).Save(session).Error
}

func (s *SessionPostgreSQL) UpdateStatus(ctx context.Context, id uint, status models.SessionStatus) error {
	return s.db.WithContext(ctx).
		Model(&models.TestSession{}).
		Where("id = ?", id).
		Update("status", status).Error
}

func (s *SessionPostgreSQL) List(ctx context.Context, filters repositories.SessionFilters) ([]*models.TestSession, int64, error) {
	var sessions []*models.TestSession
	var total int64

	query := s.db.WithContext(ctx).Model(&models.TestSession{})
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.LearnerID != nil {
		query = query.Where("learner_id = ?", *filters.LearnerID)
	}
	if filters.Round != nil {
		query = query.Where("round = ?", *filters.Round)
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

	if err := query.Order("created_at DESC").Find(&sessions).Error; err != nil {
		return nil, 0, err
	}
	return sessions, total, nil
}

func (s *SessionPostgreSQL) GetCompletedRound(ctx context.Context, learnerID string, round int) (*models.TestSession, error) {
	var session models.TestSession
	if err := s.db.WithContext(ctx).
		Where("learner_id = ? AND round = ? AND status = ?", learnerID, round, models.SessionCompleted).
		Order("completed_at DESC").
		First(&session).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *SessionPostgreSQL) GetIdleSessions(ctx context.Context, cutoff time.Time) ([]*models.TestSession, error) {
	var sessions []*models.TestSession
	if err := s.db.WithContext(ctx).
		Where("status IN ? AND updated_at < ?",
			[]models.SessionStatus{models.SessionCreated, models.SessionInProgress, models.SessionPaused},
			cutoff).
		Find(&sessions).Error; err != nil {
		return nil, err
	}
	return sessions, nil
}
