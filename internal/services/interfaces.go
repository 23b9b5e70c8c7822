package services

import (
	"context"
	"time"

	"github.com/skillforge/assessment-service/internal/models"
	"github.com/skillforge/assessment-service/internal/repositories"
)

// ===== REQUEST / RESPONSE TYPES =====

type CreateSurveyRequest struct {
	LearnerID  string            `json:"learner_id" validate:"required"`
	Level      models.SkillLevel `json:"level" validate:"required,skill_level"`
	Role       string            `json:"role" validate:"max=100"`
	Experience int               `json:"experience" validate:"min=0,max=60"`
	Interests  []string          `json:"interests"`
}

type StartRoundRequest struct {
	LearnerID string `json:"learner_id" validate:"required"`
	SurveyID  uint   `json:"survey_id" validate:"required"`
	Round     int    `json:"round" validate:"required,round_number"`

	// Supplied for round 2; must come from PlanNextRound on round 1's result.
	AdaptiveParams *AdaptiveParams `json:"adaptive_params,omitempty"`
}

type StartRoundResponse struct {
	SessionID   uint                  `json:"session_id"`
	Round       int                   `json:"round"`
	Difficulty  int                   `json:"difficulty"`
	TimeLimitMS int64                 `json:"time_limit_ms"`
	Questions   []models.QuestionView `json:"questions"`
}

type SaveAnswerRequest struct {
	QuestionID     uint                 `json:"question_id" validate:"required"`
	Payload        models.AnswerPayload `json:"payload"`
	ResponseTimeMS int64                `json:"response_time_ms" validate:"min=0"`
}

type SaveAnswerResponse struct {
	SavedAt    time.Time         `json:"saved_at"`
	TimeStatus models.TimeStatus `json:"time_status"`
}

type ScoreAnswerResponse struct {
	QuestionID  uint               `json:"question_id"`
	Correctness models.Correctness `json:"correctness"`
	Score       float64            `json:"score"`
	Explanation string             `json:"explanation"`
}

type RoundResultResponse struct {
	SessionID       uint           `json:"session_id"`
	Round           int            `json:"round"`
	Version         int            `json:"version"`
	Score           float64        `json:"score"`
	CorrectCount    int            `json:"correct_count"`
	TotalCount      int            `json:"total_count"`
	WrongCategories map[string]int `json:"wrong_categories"`

	// Categories is the round's full distinct category set, missed or not;
	// adaptive planning uses it to keep clean categories covered.
	Categories  []string `json:"categories"`
	TimeSpentMS int64    `json:"time_spent_ms"`
}

type AnsweredQuestion struct {
	QuestionID  uint                 `json:"question_id"`
	Position    int                  `json:"position"`
	Payload     models.AnswerPayload `json:"payload"`
	Correctness models.Correctness   `json:"correctness"`
	Score       float64              `json:"score"`
	SavedAt     time.Time            `json:"saved_at"`
}

type SessionStateResponse struct {
	SessionID         uint                 `json:"session_id"`
	Status            models.SessionStatus `json:"status"`
	Round             int                  `json:"round"`
	AnsweredCount     int                  `json:"answered_count"`
	TotalCount        int                  `json:"total_count"`
	NextQuestionIndex int                  `json:"next_question_index"`
	PreviousAnswers   []AnsweredQuestion   `json:"previous_answers"`
	TimeStatus        models.TimeStatus    `json:"time_status"`
}

type AttemptResponse struct {
	AttemptID            uint                        `json:"attempt_id"`
	LearnerID            string                      `json:"learner_id"`
	Grade                models.Grade                `json:"grade"`
	FinalScore           float64                     `json:"final_score"`
	Rank                 int                         `json:"rank"`
	Percentile           float64                     `json:"percentile"`
	CohortSize           int                         `json:"cohort_size"`
	PercentileConfidence models.PercentileConfidence `json:"percentile_confidence"`
	Rounds               []models.AttemptRound       `json:"rounds"`
}

// ===== SERVICE INTERFACES =====

type SurveyService interface {
	Create(ctx context.Context, req *CreateSurveyRequest) (*models.ProfileSurvey, error)
	GetByID(ctx context.Context, id uint) (*models.ProfileSurvey, error)
	GetByLearner(ctx context.Context, learnerID string) ([]*models.ProfileSurvey, error)
}

// SessionService owns the session state machine and coordinates question
// generation, time-limit tracking and round completion.
type SessionService interface {
	StartRound(ctx context.Context, req *StartRoundRequest) (*StartRoundResponse, error)
	Pause(ctx context.Context, sessionID uint) error
	Resume(ctx context.Context, sessionID uint) (*models.TimeStatus, error)
	CheckTimeLimit(ctx context.Context, sessionID uint) (*models.TimeStatus, error)

	// Complete transitions in_progress -> completed. Terminal and
	// idempotent; invoked by the Scoring service on finalize.
	Complete(ctx context.Context, sessionID uint) error

	// MarkStarted records the first-answer transition created -> in_progress.
	MarkStarted(ctx context.Context, sessionID uint) error

	GetByID(ctx context.Context, sessionID uint) (*models.TestSession, error)
}

// AutosaveService durably records submitted answers. It never grades.
type AutosaveService interface {
	SaveAnswer(ctx context.Context, sessionID uint, req *SaveAnswerRequest) (*SaveAnswerResponse, error)
}

// ScoringService grades answers and aggregates round results. It never
// edits answer payloads.
type ScoringService interface {
	ScoreAnswer(ctx context.Context, sessionID, questionID uint) (*ScoreAnswerResponse, error)
	FinalizeRound(ctx context.Context, sessionID uint) (*RoundResultResponse, error)

	// RescoreRound re-derives a result for an already-finalized round and
	// appends it as a new version; history is never overwritten.
	RescoreRound(ctx context.Context, sessionID uint) (*RoundResultResponse, error)
}

// AdaptiveService derives round-2 generation parameters from a round
// result. Pure transform, no I/O.
type AdaptiveService interface {
	PlanNextRound(result *RoundResultResponse, currentDifficulty int) *AdaptiveParams
	AllocateSlots(params *AdaptiveParams, slots int) map[string]int
}

type ResumeService interface {
	GetSessionState(ctx context.Context, sessionID uint) (*SessionStateResponse, error)

	// InvalidateSnapshot drops the cached state after a write.
	InvalidateSnapshot(ctx context.Context, sessionID uint)
}

type RankingService interface {
	FinalizeAttempt(ctx context.Context, learnerID string) (*AttemptResponse, error)
	GetAttempt(ctx context.Context, attemptID uint) (*AttemptResponse, error)
	ListAttempts(ctx context.Context, learnerID string, filters repositories.AttemptFilters) ([]*AttemptResponse, int64, error)
}

// ServiceManager bundles all engine services behind one dependency.
type ServiceManager interface {
	Survey() SurveyService
	Session() SessionService
	Autosave() AutosaveService
	Scoring() ScoringService
	Adaptive() AdaptiveService
	Resume() ResumeService
	Ranking() RankingService
}
