package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/skillforge/assessment-service/internal/cache"
	"github.com/skillforge/assessment-service/internal/models"
	"github.com/skillforge/assessment-service/internal/repositories"
	"github.com/skillforge/assessment-service/internal/utils"
)

// Snapshots are short-lived; autosave invalidates on every write, the TTL
// only bounds staleness when an invalidation is lost.
const sessionStateTTL = 60 * time.Second

func sessionStateKey(sessionID uint) string {
	return fmt.Sprintf("session_state:%d", sessionID)
}

type resumeService struct {
	repo   repositories.Repository
	cache  cache.CacheService
	logger utils.Logger
}

func NewResumeService(repo repositories.Repository, cacheSvc cache.CacheService, logger utils.Logger) ResumeService {
	return &resumeService{
		repo:   repo,
		cache:  cacheSvc,
		logger: logger,
	}
}

// GetSessionState reconstructs where the learner left off: every saved
// answer plus the position of the first unanswered question. The time
// status is always computed fresh; only the answer snapshot is cached.
func (s *resumeService) GetSessionState(ctx context.Context, sessionID uint) (*SessionStateResponse, error) {
	session, err := s.repo.Session().GetByID(ctx, sessionID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	var state SessionStateResponse
	if err := s.cache.Get(ctx, sessionStateKey(sessionID), &state); err == nil {
		state.Status = session.Status
		state.TimeStatus = *timeStatusAt(session, time.Now())
		return &state, nil
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.WarnContext(ctx, "session snapshot read failed",
			"session_id", sessionID, "error", err)
	}

	built, err := s.buildState(ctx, session)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, sessionStateKey(sessionID), built, sessionStateTTL); err != nil {
		s.logger.WarnContext(ctx, "session snapshot write failed",
			"session_id", sessionID, "error", err)
	}

	return built, nil
}

func (s *resumeService) buildState(ctx context.Context, session *models.TestSession) (*SessionStateResponse, error) {
	questions, err := s.repo.Question().GetBySession(ctx, session.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load questions: %w", err)
	}
	answers, err := s.repo.Answer().GetBySession(ctx, session.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load answers: %w", err)
	}

	byQuestion := make(map[uint]*models.AttemptAnswer, len(answers))
	for _, a := range answers {
		byQuestion[a.QuestionID] = a
	}

	sort.Slice(questions, func(i, j int) bool {
		return questions[i].Position < questions[j].Position
	})

	previous := make([]AnsweredQuestion, 0, len(answers))
	nextIndex := len(questions)
	nextFound := false

	for _, question := range questions {
		answer, ok := byQuestion[question.ID]
		if !ok {
			if !nextFound {
				nextIndex = question.Position
				nextFound = true
			}
			continue
		}

		payload, err := answer.DecodePayload()
		if err != nil {
			return nil, fmt.Errorf("failed to decode answer payload: %w", err)
		}
		previous = append(previous, AnsweredQuestion{
			QuestionID:  question.ID,
			Position:    question.Position,
			Payload:     *payload,
			Correctness: answer.Correctness,
			Score:       answer.Score,
			SavedAt:     answer.SavedAt,
		})
	}

	return &SessionStateResponse{
		SessionID:         session.ID,
		Status:            session.Status,
		Round:             session.Round,
		AnsweredCount:     len(previous),
		TotalCount:        len(questions),
		NextQuestionIndex: nextIndex,
		PreviousAnswers:   previous,
		TimeStatus:        *timeStatusAt(session, time.Now()),
	}, nil
}

// InvalidateSnapshot drops the cached state after any session write.
func (s *resumeService) InvalidateSnapshot(ctx context.Context, sessionID uint) {
	if err := s.cache.Delete(ctx, sessionStateKey(sessionID)); err != nil {
		s.logger.WarnContext(ctx, "session snapshot invalidation failed",
			"session_id", sessionID, "error", err)
	}
}
