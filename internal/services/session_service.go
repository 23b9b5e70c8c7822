package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/skillforge/assessment-service/internal/cache"
	"github.com/skillforge/assessment-service/internal/config"
	"github.com/skillforge/assessment-service/internal/events"
	"github.com/skillforge/assessment-service/internal/generator"
	"github.com/skillforge/assessment-service/internal/models"
	"github.com/skillforge/assessment-service/internal/repositories"
	"github.com/skillforge/assessment-service/internal/utils"
	"github.com/skillforge/assessment-service/internal/validator"
)

type sessionService struct {
	repo      repositories.TransactionRepository
	generator generator.QuestionGenerator
	adaptive  AdaptiveService
	publisher events.EventPublisher
	cache     cache.CacheService
	validator *validator.Validator
	cfg       *config.Config
	logger    utils.Logger
}

func NewSessionService(
	repo repositories.TransactionRepository,
	gen generator.QuestionGenerator,
	adaptive AdaptiveService,
	publisher events.EventPublisher,
	cacheSvc cache.CacheService,
	v *validator.Validator,
	cfg *config.Config,
	logger utils.Logger,
) SessionService {
	return &sessionService{
		repo:      repo,
		generator: gen,
		adaptive:  adaptive,
		publisher: publisher,
		cache:     cacheSvc,
		validator: v,
		cfg:       cfg,
		logger:    logger,
	}
}

// StartRound generates a full question batch and creates the session in
// one transaction. A session only becomes visible with all its questions
// in place; a failed generation leaves nothing behind.
func (s *sessionService) StartRound(ctx context.Context, req *StartRoundRequest) (*StartRoundResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	survey, err := s.repo.Survey().GetByID(ctx, req.SurveyID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrSurveyNotFound
		}
		return nil, fmt.Errorf("failed to load survey: %w", err)
	}
	if survey.LearnerID != req.LearnerID {
		return nil, ErrSurveyNotOwned
	}

	genReq := generator.Request{
		Survey:        survey,
		Round:         req.Round,
		QuestionCount: s.cfg.Assessment.QuestionsPerRound,
	}

	var prevSessionID *uint
	switch req.Round {
	case models.RoundFirst:
		genReq.Difficulty = s.initialDifficulty(survey.Level)

	case models.RoundSecond:
		prior, err := s.repo.Session().GetCompletedRound(ctx, req.LearnerID, models.RoundFirst)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return nil, ErrInvalidRound
			}
			return nil, fmt.Errorf("failed to look up round 1: %w", err)
		}
		if req.AdaptiveParams == nil {
			return nil, ErrAdaptiveParamsMiss
		}

		prevSessionID = &prior.ID
		genReq.Difficulty = clamp(req.AdaptiveParams.Difficulty,
			s.cfg.Adaptive.MinDifficulty, s.cfg.Adaptive.MaxDifficulty)
		genReq.CategoryWeights = s.adaptive.AllocateSlots(req.AdaptiveParams, genReq.QuestionCount)

		if result, err := s.repo.Result().GetLatestBySession(ctx, prior.ID); err == nil {
			misses, _ := result.MissMap()
			genReq.PriorRoundContext = &generator.PriorRoundContext{
				Score:           result.Score,
				WrongCategories: misses,
			}
		}
	}

	generated, err := s.generator.Generate(ctx, genReq)
	if err != nil {
		s.logger.ErrorContext(ctx, "question generation failed",
			"learner_id", req.LearnerID, "round", req.Round, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	for i := range generated {
		if errs := s.validator.Question().ValidateGenerated(&generated[i]); len(errs) > 0 {
			s.logger.WarnContext(ctx, "generator returned malformed question",
				"round", req.Round, "position", i, "errors", errs.Error())
			return nil, fmt.Errorf("%w: malformed question at position %d", ErrGenerationFailed, i)
		}
	}

	session := &models.TestSession{
		LearnerID:     req.LearnerID,
		SurveyID:      survey.ID,
		Round:         req.Round,
		PrevSessionID: prevSessionID,
		Status:        models.SessionCreated,
		Difficulty:    genReq.Difficulty,
		TimeLimitMS:   s.cfg.Assessment.TimeLimitMS,
	}

	tx, err := s.repo.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := tx.Session().Create(ctx, session); err != nil {
		tx.Rollback(ctx)
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	questions, err := buildQuestions(session, generated)
	if err != nil {
		tx.Rollback(ctx)
		return nil, err
	}
	if err := tx.Question().CreateBatch(ctx, questions); err != nil {
		tx.Rollback(ctx)
		return nil, fmt.Errorf("failed to store questions: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit session: %w", err)
	}

	s.logger.InfoContext(ctx, "round started",
		"session_id", session.ID,
		"learner_id", session.LearnerID,
		"round", session.Round,
		"difficulty", session.Difficulty,
		"questions", len(questions))

	s.publish(ctx, events.NewSessionCreatedEvent(events.SessionCreatedEvent{
		SessionID:  session.ID,
		LearnerID:  session.LearnerID,
		Round:      session.Round,
		Difficulty: session.Difficulty,
		Questions:  len(questions),
	}))

	views := make([]models.QuestionView, len(questions))
	for i, q := range questions {
		views[i] = q.View()
	}

	return &StartRoundResponse{
		SessionID:   session.ID,
		Round:       session.Round,
		Difficulty:  session.Difficulty,
		TimeLimitMS: session.TimeLimitMS,
		Questions:   views,
	}, nil
}

// Pause commits the active span into ElapsedMS and stops the clock.
// Pausing an already-paused session is a no-op.
func (s *sessionService) Pause(ctx context.Context, sessionID uint) error {
	session, err := s.getSession(ctx, sessionID)
	if err != nil {
		return err
	}

	switch session.Status {
	case models.SessionPaused:
		return nil
	case models.SessionInProgress:
	default:
		return ErrSessionNotActive
	}

	now := time.Now()
	session.ElapsedMS = session.ElapsedAt(now)
	session.PausedAt = &now
	session.Status = models.SessionPaused

	if err := s.repo.Session().Update(ctx, session); err != nil {
		return fmt.Errorf("failed to pause session: %w", err)
	}

	s.invalidateSnapshot(ctx, sessionID)
	s.logger.InfoContext(ctx, "session paused",
		"session_id", sessionID, "elapsed_ms", session.ElapsedMS)
	return nil
}

// Resume restarts the clock from now. The elapsed total is never reset.
// Resuming a session whose budget is already spent is allowed: the limit
// is a soft pause, and the explicit resume continues the round in
// overtime.
func (s *sessionService) Resume(ctx context.Context, sessionID uint) (*models.TimeStatus, error) {
	session, err := s.getSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status != models.SessionPaused {
		return nil, ErrSessionNotPaused
	}
	if session.ElapsedMS >= session.TimeLimitMS {
		session.Overtime = true
	}

	now := time.Now()
	session.StartedAt = &now
	session.PausedAt = nil
	session.Status = models.SessionInProgress

	if err := s.repo.Session().Update(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to resume session: %w", err)
	}

	s.invalidateSnapshot(ctx, sessionID)
	s.logger.InfoContext(ctx, "session resumed",
		"session_id", sessionID, "remaining_ms", session.RemainingAt(now))

	return timeStatusAt(session, now), nil
}

// CheckTimeLimit reports the session's time budget and auto-pauses a
// running session that has exceeded it. An overtime session keeps
// running; the exceeded flag stays advisory.
func (s *sessionService) CheckTimeLimit(ctx context.Context, sessionID uint) (*models.TimeStatus, error) {
	session, err := s.getSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	status := timeStatusAt(session, now)

	if status.Exceeded && !session.Overtime && session.Status == models.SessionInProgress {
		session.ElapsedMS = session.ElapsedAt(now)
		session.PausedAt = &now
		session.Status = models.SessionPaused
		if err := s.repo.Session().Update(ctx, session); err != nil {
			return nil, fmt.Errorf("failed to auto-pause session: %w", err)
		}
		s.invalidateSnapshot(ctx, sessionID)
		s.logger.InfoContext(ctx, "session auto-paused on time limit",
			"session_id", sessionID, "elapsed_ms", session.ElapsedMS)
	}

	return status, nil
}

// Complete is the terminal transition; calling it again is a no-op.
func (s *sessionService) Complete(ctx context.Context, sessionID uint) error {
	session, err := s.getSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if session.Status == models.SessionCompleted {
		return nil
	}

	now := time.Now()
	session.ElapsedMS = session.ElapsedAt(now)
	session.CompletedAt = &now
	session.PausedAt = nil
	session.Status = models.SessionCompleted

	if err := s.repo.Session().Update(ctx, session); err != nil {
		return fmt.Errorf("failed to complete session: %w", err)
	}

	s.invalidateSnapshot(ctx, sessionID)
	return nil
}

// MarkStarted records the created -> in_progress transition the first
// autosaved answer triggers.
func (s *sessionService) MarkStarted(ctx context.Context, sessionID uint) error {
	session, err := s.getSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if session.Status != models.SessionCreated {
		return nil
	}

	now := time.Now()
	session.StartedAt = &now
	session.Status = models.SessionInProgress

	if err := s.repo.Session().Update(ctx, session); err != nil {
		return fmt.Errorf("failed to mark session started: %w", err)
	}

	s.logger.InfoContext(ctx, "session started", "session_id", sessionID)
	return nil
}

func (s *sessionService) GetByID(ctx context.Context, sessionID uint) (*models.TestSession, error) {
	return s.getSession(ctx, sessionID)
}

func (s *sessionService) getSession(ctx context.Context, sessionID uint) (*models.TestSession, error) {
	session, err := s.repo.Session().GetByID(ctx, sessionID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return session, nil
}

// initialDifficulty maps the self-reported level onto the difficulty
// scale around the configured default.
func (s *sessionService) initialDifficulty(level models.SkillLevel) int {
	difficulty := s.cfg.Adaptive.DefaultDifficulty
	switch level {
	case models.LevelBeginner:
		difficulty -= s.cfg.Adaptive.DifficultyStep
	case models.LevelAdvanced:
		difficulty += s.cfg.Adaptive.DifficultyStep
	}
	return clamp(difficulty, s.cfg.Adaptive.MinDifficulty, s.cfg.Adaptive.MaxDifficulty)
}

func (s *sessionService) publish(ctx context.Context, event *events.AssessmentEvent) {
	if err := s.publisher.PublishAssessmentEvent(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "failed to publish event",
			"event_type", event.Type, "error", err)
	}
}

func (s *sessionService) invalidateSnapshot(ctx context.Context, sessionID uint) {
	if err := s.cache.Delete(ctx, sessionStateKey(sessionID)); err != nil {
		s.logger.WarnContext(ctx, "failed to invalidate session snapshot",
			"session_id", sessionID, "error", err)
	}
}

func buildQuestions(session *models.TestSession, generated []generator.GeneratedQuestion) ([]*models.Question, error) {
	questions := make([]*models.Question, len(generated))
	for i, g := range generated {
		schema, err := json.Marshal(models.AnswerSchema{
			CorrectKey:  g.CorrectKey,
			Keywords:    g.Keywords,
			Explanation: g.Explanation,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to encode answer schema: %w", err)
		}

		q := &models.Question{
			SessionID:  session.ID,
			Round:      session.Round,
			Kind:       g.Kind,
			Prompt:     g.Prompt,
			Schema:     schema,
			Difficulty: g.Difficulty,
			Category:   g.Category,
			Position:   i,
		}
		if len(g.Choices) > 0 {
			choices, err := json.Marshal(g.Choices)
			if err != nil {
				return nil, fmt.Errorf("failed to encode choices: %w", err)
			}
			q.Choices = choices
		}
		questions[i] = q
	}
	return questions, nil
}

func timeStatusAt(session *models.TestSession, now time.Time) *models.TimeStatus {
	elapsed := session.ElapsedAt(now)
	return &models.TimeStatus{
		Exceeded:    elapsed > session.TimeLimitMS,
		ElapsedMS:   elapsed,
		RemainingMS: session.TimeLimitMS - elapsed,
	}
}
