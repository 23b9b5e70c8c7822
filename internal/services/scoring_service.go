package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/skillforge/assessment-service/internal/config"
	"github.com/skillforge/assessment-service/internal/events"
	"github.com/skillforge/assessment-service/internal/models"
	"github.com/skillforge/assessment-service/internal/repositories"
	"github.com/skillforge/assessment-service/internal/utils"
)

type scoringService struct {
	repo      repositories.TransactionRepository
	sessions  SessionService
	resume    ResumeService
	locks     *sessionLockRegistry
	publisher events.EventPublisher
	cfg       config.AssessmentConfig
	logger    utils.Logger
}

func NewScoringService(
	repo repositories.TransactionRepository,
	sessions SessionService,
	resume ResumeService,
	locks *sessionLockRegistry,
	publisher events.EventPublisher,
	cfg config.AssessmentConfig,
	logger utils.Logger,
) ScoringService {
	return &scoringService{
		repo:      repo,
		sessions:  sessions,
		resume:    resume,
		locks:     locks,
		publisher: publisher,
		cfg:       cfg,
		logger:    logger,
	}
}

// ScoreAnswer grades a single saved answer in place. Scoring only touches
// the correctness and score columns; the payload stays exactly as saved.
func (s *scoringService) ScoreAnswer(ctx context.Context, sessionID, questionID uint) (*ScoreAnswerResponse, error) {
	if _, err := s.sessions.GetByID(ctx, sessionID); err != nil {
		return nil, err
	}

	question, err := s.repo.Question().GetByID(ctx, questionID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrUnknownQuestion
		}
		return nil, fmt.Errorf("failed to load question: %w", err)
	}
	if question.SessionID != sessionID {
		return nil, ErrUnknownQuestion
	}

	answer, err := s.repo.Answer().GetBySessionAndQuestion(ctx, sessionID, questionID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAnswerNotSaved
		}
		return nil, fmt.Errorf("failed to load answer: %w", err)
	}

	schema, err := question.AnswerSchema()
	if err != nil {
		return nil, fmt.Errorf("failed to decode answer schema: %w", err)
	}

	correctness, score, err := s.grade(question, schema, answer)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Answer().UpdateGrade(ctx, answer.ID, correctness, score); err != nil {
		return nil, fmt.Errorf("failed to store grade: %w", err)
	}

	return &ScoreAnswerResponse{
		QuestionID:  questionID,
		Correctness: correctness,
		Score:       score,
		Explanation: schema.Explanation,
	}, nil
}

// FinalizeRound grades everything still ungraded, aggregates the round and
// completes the session. Finalizing an already-completed session returns
// the stored latest result unchanged.
func (s *scoringService) FinalizeRound(ctx context.Context, sessionID uint) (*RoundResultResponse, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status == models.SessionCompleted {
		return s.latestResult(ctx, session)
	}
	if session.Status == models.SessionAbandoned {
		return nil, ErrSessionNotActive
	}

	result, summary, err := s.finalizeLocked(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if result == nil {
		// A concurrent finalize won the barrier; hand back its result.
		return s.latestResult(ctx, session)
	}

	s.locks.Release(sessionID)
	s.resume.InvalidateSnapshot(ctx, sessionID)

	s.logger.InfoContext(ctx, "round finalized",
		"session_id", sessionID,
		"round", session.Round,
		"score", result.Score,
		"correct", result.CorrectCount,
		"total", result.TotalCount)

	if err := s.publisher.PublishAssessmentEvent(ctx, events.NewRoundCompletedEvent(events.RoundCompletedEvent{
		SessionID:    sessionID,
		LearnerID:    session.LearnerID,
		Round:        session.Round,
		Score:        result.Score,
		CorrectCount: result.CorrectCount,
		TotalCount:   result.TotalCount,
	})); err != nil {
		s.logger.WarnContext(ctx, "failed to publish round completed event",
			"session_id", sessionID, "error", err)
	}

	return resultResponse(session, result, summary), nil
}

// RescoreRound re-derives the result for a finalized round from the saved
// payloads, for example after a grading fix. The new result is appended as
// a fresh version; prior versions stay untouched.
func (s *scoringService) RescoreRound(ctx context.Context, sessionID uint) (*RoundResultResponse, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status != models.SessionCompleted {
		return nil, ErrRoundNotFinalized
	}

	result, summary, err := s.scoreRound(ctx, session)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "round rescored",
		"session_id", sessionID, "version", result.Version, "score", result.Score)

	return resultResponse(session, result, summary), nil
}

// finalizeLocked holds the session write barrier across scoring AND the
// completed-status flip: autosaves queued behind the barrier re-read the
// session only after it is completed, so none can slip an ungraded
// overwrite in between snapshot and commit. A nil result with nil error
// means another finalize got there first.
func (s *scoringService) finalizeLocked(ctx context.Context, sessionID uint) (*models.RoundResult, *roundSummary, error) {
	release := s.locks.LockSession(sessionID)
	defer release()

	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}
	if session.Status == models.SessionCompleted {
		return nil, nil, nil
	}

	result, summary, err := s.scoreRound(ctx, session)
	if err != nil {
		return nil, nil, err
	}
	if err := s.sessions.Complete(ctx, sessionID); err != nil {
		return nil, nil, err
	}
	return result, summary, nil
}

type roundSummary struct {
	misses     map[string]int
	categories []string
}

// scoreRound grades every answer and persists a new result version in one
// transaction. Every question must have a saved answer.
func (s *scoringService) scoreRound(ctx context.Context, session *models.TestSession) (*models.RoundResult, *roundSummary, error) {
	questions, err := s.repo.Question().GetBySession(ctx, session.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load questions: %w", err)
	}
	if len(questions) == 0 {
		return nil, nil, fmt.Errorf("%w: session has no questions", ErrIncompleteRound)
	}

	answers, err := s.repo.Answer().GetBySession(ctx, session.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load answers: %w", err)
	}
	byQuestion := make(map[uint]*models.AttemptAnswer, len(answers))
	for _, a := range answers {
		byQuestion[a.QuestionID] = a
	}

	tx, err := s.repo.Begin(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	correct := 0
	rawPoints := 0.0
	misses := make(map[string]int)

	for _, question := range questions {
		answer, ok := byQuestion[question.ID]
		if !ok {
			tx.Rollback(ctx)
			return nil, nil, fmt.Errorf("%w: question %d has no saved answer", ErrIncompleteRound, question.ID)
		}

		schema, err := question.AnswerSchema()
		if err != nil {
			tx.Rollback(ctx)
			return nil, nil, fmt.Errorf("failed to decode answer schema: %w", err)
		}
		correctness, score, err := s.grade(question, schema, answer)
		if err != nil {
			tx.Rollback(ctx)
			return nil, nil, err
		}
		if err := tx.Answer().UpdateGrade(ctx, answer.ID, correctness, score); err != nil {
			tx.Rollback(ctx)
			return nil, nil, fmt.Errorf("failed to store grade: %w", err)
		}

		rawPoints += score / 100
		if correctness == models.AnswerCorrect {
			correct++
		} else {
			misses[question.Category]++
		}
	}

	version := 1
	if latest, err := s.repo.Result().GetLatestBySession(ctx, session.ID); err == nil {
		version = latest.Version + 1
	} else if !repositories.IsNotFoundError(err) {
		tx.Rollback(ctx)
		return nil, nil, fmt.Errorf("failed to look up prior result: %w", err)
	}

	result := &models.RoundResult{
		SessionID:    session.ID,
		Round:        session.Round,
		Version:      version,
		Score:        float64(correct) / float64(len(questions)) * 100,
		RawPoints:    rawPoints,
		CorrectCount: correct,
		TotalCount:   len(questions),
		TimeSpentMS:  session.ElapsedAt(time.Now()),
	}
	if err := result.SetMissMap(misses); err != nil {
		tx.Rollback(ctx)
		return nil, nil, fmt.Errorf("failed to encode miss map: %w", err)
	}

	if err := tx.Result().Create(ctx, result); err != nil {
		tx.Rollback(ctx)
		return nil, nil, fmt.Errorf("failed to store result: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, nil, fmt.Errorf("failed to commit result: %w", err)
	}

	return result, &roundSummary{misses: misses, categories: questionCategories(questions)}, nil
}

// questionCategories returns the distinct categories in question order.
func questionCategories(questions []*models.Question) []string {
	seen := make(map[string]bool, len(questions))
	var categories []string
	for _, q := range questions {
		if !seen[q.Category] {
			seen[q.Category] = true
			categories = append(categories, q.Category)
		}
	}
	return categories
}

// grade evaluates one answer against the question's schema on a 0-100
// scale. Short answers score by keyword coverage and count as correct at
// the configured pass mark; choice questions are all-or-nothing.
func (s *scoringService) grade(question *models.Question, schema *models.AnswerSchema, answer *models.AttemptAnswer) (models.Correctness, float64, error) {
	payload, err := answer.DecodePayload()
	if err != nil {
		return models.AnswerUngraded, 0, fmt.Errorf("failed to decode answer payload: %w", err)
	}

	switch question.Kind {
	case models.MultipleChoice:
		if payload.Selected == schema.CorrectKey {
			return models.AnswerCorrect, 100, nil
		}
		return models.AnswerIncorrect, 0, nil

	case models.TrueFalse:
		if strings.EqualFold(strings.TrimSpace(payload.Selected), schema.CorrectKey) {
			return models.AnswerCorrect, 100, nil
		}
		return models.AnswerIncorrect, 0, nil

	case models.ShortAnswer:
		score := keywordCoverage(payload.Text, schema.Keywords)
		if score >= s.cfg.ShortAnswerPassScore {
			return models.AnswerCorrect, score, nil
		}
		return models.AnswerIncorrect, score, nil
	}

	return models.AnswerUngraded, 0, fmt.Errorf("unknown question kind %q", question.Kind)
}

// keywordCoverage returns the percentage of expected keywords present in
// the response, matched case-insensitively.
func keywordCoverage(text string, keywords []string) float64 {
	if len(keywords) == 0 {
		return 0
	}
	normalized := strings.ToLower(text)
	matched := 0
	for _, kw := range keywords {
		if strings.Contains(normalized, strings.ToLower(strings.TrimSpace(kw))) {
			matched++
		}
	}
	return float64(matched) / float64(len(keywords)) * 100
}

func (s *scoringService) latestResult(ctx context.Context, session *models.TestSession) (*RoundResultResponse, error) {
	result, err := s.repo.Result().GetLatestBySession(ctx, session.ID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrRoundNotFinalized
		}
		return nil, fmt.Errorf("failed to load result: %w", err)
	}
	misses, err := result.MissMap()
	if err != nil {
		return nil, fmt.Errorf("failed to decode miss map: %w", err)
	}
	questions, err := s.repo.Question().GetBySession(ctx, session.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load questions: %w", err)
	}
	return resultResponse(session, result, &roundSummary{
		misses:     misses,
		categories: questionCategories(questions),
	}), nil
}

func resultResponse(session *models.TestSession, result *models.RoundResult, summary *roundSummary) *RoundResultResponse {
	return &RoundResultResponse{
		SessionID:       session.ID,
		Round:           session.Round,
		Version:         result.Version,
		Score:           result.Score,
		CorrectCount:    result.CorrectCount,
		TotalCount:      result.TotalCount,
		WrongCategories: summary.misses,
		Categories:      summary.categories,
		TimeSpentMS:     result.TimeSpentMS,
	}
}
