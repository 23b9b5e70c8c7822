package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/skillforge/assessment-service/internal/models"
	"github.com/skillforge/assessment-service/internal/repositories"
	"github.com/skillforge/assessment-service/internal/utils"
	"github.com/skillforge/assessment-service/internal/validator"
)

type surveyService struct {
	repo      repositories.Repository
	validator *validator.Validator
	logger    utils.Logger
}

func NewSurveyService(repo repositories.Repository, v *validator.Validator, logger utils.Logger) SurveyService {
	return &surveyService{
		repo:      repo,
		validator: v,
		logger:    logger,
	}
}

// Create stores a new survey snapshot. Surveys are append-only; a learner
// re-submitting gets a fresh row and sessions keep pointing at the snapshot
// they were generated from.
func (s *surveyService) Create(ctx context.Context, req *CreateSurveyRequest) (*models.ProfileSurvey, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	interests, err := json.Marshal(req.Interests)
	if err != nil {
		return nil, fmt.Errorf("failed to encode interests: %w", err)
	}

	survey := &models.ProfileSurvey{
		LearnerID:  req.LearnerID,
		Level:      req.Level,
		Role:       req.Role,
		Experience: req.Experience,
		Interests:  interests,
	}

	if err := s.repo.Survey().Create(ctx, survey); err != nil {
		return nil, fmt.Errorf("failed to create survey: %w", err)
	}

	s.logger.InfoContext(ctx, "survey created",
		"survey_id", survey.ID,
		"learner_id", survey.LearnerID,
		"level", survey.Level)

	return survey, nil
}

func (s *surveyService) GetByID(ctx context.Context, id uint) (*models.ProfileSurvey, error) {
	survey, err := s.repo.Survey().GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrSurveyNotFound
		}
		return nil, fmt.Errorf("failed to get survey: %w", err)
	}
	return survey, nil
}

func (s *surveyService) GetByLearner(ctx context.Context, learnerID string) ([]*models.ProfileSurvey, error) {
	surveys, err := s.repo.Survey().GetByLearner(ctx, learnerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list surveys: %w", err)
	}
	return surveys, nil
}
