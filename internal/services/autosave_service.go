package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/skillforge/assessment-service/internal/models"
	"github.com/skillforge/assessment-service/internal/repositories"
	"github.com/skillforge/assessment-service/internal/utils"
	"github.com/skillforge/assessment-service/internal/validator"
)

type autosaveService struct {
	repo      repositories.Repository
	sessions  SessionService
	resume    ResumeService
	locks     *sessionLockRegistry
	validator *validator.Validator
	logger    utils.Logger
}

func NewAutosaveService(
	repo repositories.Repository,
	sessions SessionService,
	resume ResumeService,
	locks *sessionLockRegistry,
	v *validator.Validator,
	logger utils.Logger,
) AutosaveService {
	return &autosaveService{
		repo:      repo,
		sessions:  sessions,
		resume:    resume,
		locks:     locks,
		validator: v,
		logger:    logger,
	}
}

// SaveAnswer durably records one submitted answer. Repeated saves for the
// same question overwrite: the last committed write wins and the row drops
// back to ungraded. Grading never happens here.
func (s *autosaveService) SaveAnswer(ctx context.Context, sessionID uint, req *SaveAnswerRequest) (*SaveAnswerResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	// Serialize against other saves for the same question and against an
	// in-flight finalize for this session. The status check must happen
	// under the lock: a finalize that wins the barrier completes the
	// session before any queued save re-reads it, so no save can reset a
	// graded answer after the round snapshot.
	release := s.locks.LockQuestion(sessionID, req.QuestionID)
	defer release()

	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	switch session.Status {
	case models.SessionCompleted, models.SessionAbandoned:
		return nil, ErrSessionNotActive
	case models.SessionPaused:
		return nil, ErrSessionExpired
	}

	question, err := s.repo.Question().GetByID(ctx, req.QuestionID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrUnknownQuestion
		}
		return nil, fmt.Errorf("failed to load question: %w", err)
	}
	if question.SessionID != sessionID {
		return nil, ErrUnknownQuestion
	}

	// The first answer starts the clock.
	if session.Status == models.SessionCreated {
		if err := s.sessions.MarkStarted(ctx, sessionID); err != nil {
			return nil, err
		}
		session, err = s.sessions.GetByID(ctx, sessionID)
		if err != nil {
			return nil, err
		}
	}

	now := time.Now()
	if !session.Overtime && session.ElapsedAt(now) > session.TimeLimitMS {
		// The budget ran out before this save landed; pause and reject.
		if _, err := s.sessions.CheckTimeLimit(ctx, sessionID); err != nil {
			return nil, err
		}
		return nil, ErrSessionExpired
	}

	payload, err := json.Marshal(req.Payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode answer payload: %w", err)
	}

	answer := &models.AttemptAnswer{
		SessionID:      sessionID,
		QuestionID:     req.QuestionID,
		Payload:        payload,
		Correctness:    models.AnswerUngraded,
		ResponseTimeMS: req.ResponseTimeMS,
		SavedAt:        now,
	}

	// One retry on a failed write; autosave is the durability path and a
	// transient error should not lose the answer.
	if err := s.repo.Answer().Upsert(ctx, answer); err != nil {
		s.logger.WarnContext(ctx, "answer upsert failed, retrying",
			"session_id", sessionID, "question_id", req.QuestionID, "error", err)
		if err := s.repo.Answer().Upsert(ctx, answer); err != nil {
			return nil, fmt.Errorf("failed to save answer: %w", err)
		}
	}

	s.resume.InvalidateSnapshot(ctx, sessionID)

	s.logger.DebugContext(ctx, "answer saved",
		"session_id", sessionID,
		"question_id", req.QuestionID,
		"response_time_ms", req.ResponseTimeMS)

	return &SaveAnswerResponse{
		SavedAt:    now,
		TimeStatus: *timeStatusAt(session, now),
	}, nil
}
