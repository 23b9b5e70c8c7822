package postgres

import (
	"context"

	"github.com/skillforge/assessment-service/internal/models"
	"github.com/skillforge/assessment-service/internal/repositories"
	"gorm.io/gorm"
)

type SurveyPostgreSQL struct {
	db *gorm.DB
}

func NewSurveyPostgreSQL(db *gorm.DB) repositories.SurveyRepository {
	return &SurveyPostgreSQL{db: db}
}

func (s *SurveyPostgreSQL) Create(ctx context.Context, survey *models.ProfileSurvey) error {
	return s.db.WithContext(ctx).Create(survey).Error
}

func (s *SurveyPostgreSQL) GetByID(ctx context.Context, id uint) (*models.ProfileSurvey, error) {
	var survey models.ProfileSurvey
	if err := s.db.WithContext(ctx).First(&survey, id).Error; err != nil {
		return nil, err
	}
	return &survey, nil
}

func (s *SurveyPostgreSQL) GetByLearner(ctx context.Context, learnerID string) ([]*models.ProfileSurvey, error) {
	var surveys []*models.ProfileSurvey
	if err := s.db.WithContext(ctx).
		Where("learner_id = ?", learnerID).
		Order("created_at DESC").
		Find(&surveys).Error; err != nil {
		return nil, err
	}
	return surveys, nil
}

func (s *SurveyPostgreSQL) GetLatestByLearner(ctx context.Context, learnerID string) (*models.ProfileSurvey, error) {
	var survey models.ProfileSurvey
	if err := s.db.WithContext(ctx).
		Where("learner_id = ?", learnerID).
		Order("created_at DESC").
		First(&survey).Error; err != nil {
		return nil, err
	}
	return &survey, nil
}
