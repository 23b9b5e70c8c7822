package repositories

import (
	"context"
	"time"

	"github.com/skillforge/assessment-service/internal/models"
)

// ===== FILTERS =====

type SessionFilters struct {
	Status    *models.SessionStatus `json:"status"`
	LearnerID *string               `json:"learner_id"`
	Round     *int                  `json:"round"`
	Limit     int                   `json:"limit"`
	Offset    int                   `json:"offset"`
}

type AttemptFilters struct {
	LearnerID *string    `json:"learner_id"`
	DateFrom  *time.Time `json:"date_from"`
	DateTo    *time.Time `json:"date_to"`
	Limit     int        `json:"limit"`
	Offset    int        `json:"offset"`
}

// ===== ENTITY REPOSITORIES =====

type SurveyRepository interface {
	Create(ctx context.Context, survey *models.ProfileSurvey) error
	GetByID(ctx context.Context, id uint) (*models.ProfileSurvey, error)
	GetByLearner(ctx context.Context, learnerID string) ([]*models.ProfileSurvey, error)
	GetLatestByLearner(ctx context.Context, learnerID string) (*models.ProfileSurvey, error)
}

type SessionRepository interface {
	Create(ctx context.Context, session *models.TestSession) error
	GetByID(ctx context.Context, id uint) (*models.TestSession, error)
	Update(ctx context.Context, session *models.TestSession) error
	UpdateStatus(ctx context.Context, id uint, status models.SessionStatus) error
	List(ctx context.Context, filters SessionFilters) ([]*models.TestSession, int64, error)

	// GetCompletedRound returns the learner's most recent completed session
	// for the given round, or a not-found error.
	GetCompletedRound(ctx context.Context, learnerID string, round int) (*models.TestSession, error)

	// GetIdleSessions lists non-terminal sessions untouched since cutoff.
	// Consumed by the external abandonment reaper, not by this service.
	GetIdleSessions(ctx context.Context, cutoff time.Time) ([]*models.TestSession, error)
}

type QuestionRepository interface {
	CreateBatch(ctx context.Context, questions []*models.Question) error
	GetByID(ctx context.Context, id uint) (*models.Question, error)
	GetBySession(ctx context.Context, sessionID uint) ([]*models.Question, error)
	CountBySession(ctx context.Context, sessionID uint) (int64, error)
}

type AnswerRepository interface {
	// Upsert atomically creates or fully replaces the answer row for
	// (session, question), resetting correctness to ungraded and bumping
	// the revision counter. Last committed write wins.
	Upsert(ctx context.Context, answer *models.AttemptAnswer) error

	GetBySessionAndQuestion(ctx context.Context, sessionID, questionID uint) (*models.AttemptAnswer, error)
	GetBySession(ctx context.Context, sessionID uint) ([]*models.AttemptAnswer, error)
	UpdateGrade(ctx context.Context, id uint, correctness models.Correctness, score float64) error
	CountGraded(ctx context.Context, sessionID uint) (int64, error)
}

type ResultRepository interface {
	// Create persists a new result version; it never overwrites.
	Create(ctx context.Context, result *models.RoundResult) error

	// GetLatestBySession returns the highest-version result for a session.
	GetLatestBySession(ctx context.Context, sessionID uint) (*models.RoundResult, error)
	GetVersions(ctx context.Context, sessionID uint) ([]*models.RoundResult, error)
}

type AttemptRepository interface {
	Create(ctx context.Context, attempt *models.Attempt) error
	GetByID(ctx context.Context, id uint) (*models.Attempt, error)
	GetByLearner(ctx context.Context, learnerID string, filters AttemptFilters) ([]*models.Attempt, int64, error)

	// Cohort queries for ranking, bounded to a rolling window.
	CountCompletedSince(ctx context.Context, since time.Time) (int64, error)
	CountScoringBelowSince(ctx context.Context, score float64, since time.Time) (int64, error)
	CountScoringAboveSince(ctx context.Context, score float64, since time.Time) (int64, error)
}
