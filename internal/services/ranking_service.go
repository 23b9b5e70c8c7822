package services

import (
	"context"
	"fmt"
	"time"

	"github.com/skillforge/assessment-service/internal/config"
	"github.com/skillforge/assessment-service/internal/events"
	"github.com/skillforge/assessment-service/internal/models"
	"github.com/skillforge/assessment-service/internal/repositories"
	"github.com/skillforge/assessment-service/internal/utils"
)

const (
	StrategyWeighted       = "weighted"
	StrategyRound2Dominant = "round2_dominant"
)

type rankingService struct {
	repo      repositories.TransactionRepository
	publisher events.EventPublisher
	cfg       config.RankingConfig
	logger    utils.Logger
}

func NewRankingService(
	repo repositories.TransactionRepository,
	publisher events.EventPublisher,
	cfg config.RankingConfig,
	logger utils.Logger,
) RankingService {
	return &rankingService{
		repo:      repo,
		publisher: publisher,
		cfg:       cfg,
		logger:    logger,
	}
}

// FinalizeAttempt combines the learner's two finalized rounds into a
// durable attempt with grade, rank and percentile. Calling it again for
// the same pair of rounds returns the existing attempt.
func (s *rankingService) FinalizeAttempt(ctx context.Context, learnerID string) (*AttemptResponse, error) {
	round2, err := s.repo.Session().GetCompletedRound(ctx, learnerID, models.RoundSecond)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrRoundNotFinalized
		}
		return nil, fmt.Errorf("failed to look up round 2: %w", err)
	}

	round1, err := s.lookupRound1(ctx, learnerID, round2)
	if err != nil {
		return nil, err
	}

	if existing, err := s.findExisting(ctx, learnerID, round2.ID); err != nil {
		return nil, err
	} else if existing != nil {
		return attemptResponse(existing), nil
	}

	result1, err := s.latestResult(ctx, round1.ID)
	if err != nil {
		return nil, err
	}
	result2, err := s.latestResult(ctx, round2.ID)
	if err != nil {
		return nil, err
	}

	finalScore := s.combine(result1.Score, result2.Score)
	now := time.Now()
	since := now.AddDate(0, 0, -s.cfg.CohortWindowDays)

	priorCohort, err := s.repo.Attempt().CountCompletedSince(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("failed to size cohort: %w", err)
	}
	above, err := s.repo.Attempt().CountScoringAboveSince(ctx, finalScore, since)
	if err != nil {
		return nil, fmt.Errorf("failed to rank attempt: %w", err)
	}
	below, err := s.repo.Attempt().CountScoringBelowSince(ctx, finalScore, since)
	if err != nil {
		return nil, fmt.Errorf("failed to rank attempt: %w", err)
	}

	cohortSize := int(priorCohort) + 1
	confidence := models.ConfidenceNormal
	if cohortSize < s.cfg.MinCohortSize {
		// Rank is still reported for thin cohorts, just annotated.
		confidence = models.ConfidenceLow
	}

	startedAt := now
	if round1.StartedAt != nil {
		startedAt = *round1.StartedAt
	}

	attempt := &models.Attempt{
		LearnerID:            learnerID,
		SurveyID:             round2.SurveyID,
		StartedAt:            startedAt,
		FinishedAt:           now,
		FinalScore:           finalScore,
		Grade:                gradeFor(finalScore),
		Rank:                 int(above) + 1,
		Percentile:           float64(below) / float64(cohortSize) * 100,
		CohortSize:           cohortSize,
		PercentileConfidence: confidence,
		Status:               models.AttemptCompleted,
		Rounds: []models.AttemptRound{
			{
				SessionID:   round1.ID,
				Round:       models.RoundFirst,
				Score:       result1.Score,
				TimeSpentMS: result1.TimeSpentMS,
			},
			{
				SessionID:   round2.ID,
				Round:       models.RoundSecond,
				Score:       result2.Score,
				TimeSpentMS: result2.TimeSpentMS,
			},
		},
	}

	if err := s.repo.Attempt().Create(ctx, attempt); err != nil {
		return nil, fmt.Errorf("failed to create attempt: %w", err)
	}

	s.logger.InfoContext(ctx, "attempt finalized",
		"attempt_id", attempt.ID,
		"learner_id", learnerID,
		"final_score", attempt.FinalScore,
		"grade", attempt.Grade,
		"rank", attempt.Rank,
		"cohort_size", attempt.CohortSize)

	if err := s.publisher.PublishAssessmentEvent(ctx, events.NewAttemptFinalizedEvent(events.AttemptFinalizedEvent{
		AttemptID:  attempt.ID,
		LearnerID:  learnerID,
		FinalScore: attempt.FinalScore,
		Grade:      string(attempt.Grade),
		Rank:       attempt.Rank,
		Percentile: attempt.Percentile,
	})); err != nil {
		s.logger.WarnContext(ctx, "failed to publish attempt finalized event",
			"attempt_id", attempt.ID, "error", err)
	}

	return attemptResponse(attempt), nil
}

func (s *rankingService) GetAttempt(ctx context.Context, attemptID uint) (*AttemptResponse, error) {
	attempt, err := s.repo.Attempt().GetByID(ctx, attemptID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}
	return attemptResponse(attempt), nil
}

func (s *rankingService) ListAttempts(ctx context.Context, learnerID string, filters repositories.AttemptFilters) ([]*AttemptResponse, int64, error) {
	attempts, total, err := s.repo.Attempt().GetByLearner(ctx, learnerID, filters)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list attempts: %w", err)
	}
	responses := make([]*AttemptResponse, len(attempts))
	for i, attempt := range attempts {
		responses[i] = attemptResponse(attempt)
	}
	return responses, total, nil
}

// lookupRound1 prefers the explicit linkage recorded at round-2 creation;
// older sessions without it fall back to the learner's completed round 1.
func (s *rankingService) lookupRound1(ctx context.Context, learnerID string, round2 *models.TestSession) (*models.TestSession, error) {
	if round2.PrevSessionID != nil {
		round1, err := s.repo.Session().GetByID(ctx, *round2.PrevSessionID)
		if err == nil {
			return round1, nil
		}
		if !repositories.IsNotFoundError(err) {
			return nil, fmt.Errorf("failed to load round 1: %w", err)
		}
	}
	round1, err := s.repo.Session().GetCompletedRound(ctx, learnerID, models.RoundFirst)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrRoundNotFinalized
		}
		return nil, fmt.Errorf("failed to look up round 1: %w", err)
	}
	return round1, nil
}

func (s *rankingService) findExisting(ctx context.Context, learnerID string, round2SessionID uint) (*models.Attempt, error) {
	attempts, _, err := s.repo.Attempt().GetByLearner(ctx, learnerID, repositories.AttemptFilters{})
	if err != nil {
		return nil, fmt.Errorf("failed to check existing attempts: %w", err)
	}
	for _, attempt := range attempts {
		for _, round := range attempt.Rounds {
			if round.SessionID == round2SessionID {
				return attempt, nil
			}
		}
	}
	return nil, nil
}

func (s *rankingService) latestResult(ctx context.Context, sessionID uint) (*models.RoundResult, error) {
	result, err := s.repo.Result().GetLatestBySession(ctx, sessionID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrRoundNotFinalized
		}
		return nil, fmt.Errorf("failed to load round result: %w", err)
	}
	return result, nil
}

// combine folds the two round scores into the final score. The weighted
// strategy blends both rounds; round2_dominant treats round 1 as a
// calibration round and keeps only the adapted round's score.
func (s *rankingService) combine(round1, round2 float64) float64 {
	switch s.cfg.Strategy {
	case StrategyRound2Dominant:
		return round2
	default:
		return round1*s.cfg.Round1Weight + round2*s.cfg.Round2Weight
	}
}

func gradeFor(score float64) models.Grade {
	switch {
	case score >= 90:
		return models.GradeA
	case score >= 80:
		return models.GradeB
	case score >= 70:
		return models.GradeC
	case score >= 60:
		return models.GradeD
	default:
		return models.GradeF
	}
}

func attemptResponse(attempt *models.Attempt) *AttemptResponse {
	return &AttemptResponse{
		AttemptID:            attempt.ID,
		LearnerID:            attempt.LearnerID,
		Grade:                attempt.Grade,
		FinalScore:           attempt.FinalScore,
		Rank:                 attempt.Rank,
		Percentile:           attempt.Percentile,
		CohortSize:           attempt.CohortSize,
		PercentileConfidence: attempt.PercentileConfidence,
		Rounds:               attempt.Rounds,
	}
}
