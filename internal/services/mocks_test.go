package services

import (
	"context"
	"log/slog"
	"os"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/skillforge/assessment-service/internal/cache"
	"github.com/skillforge/assessment-service/internal/config"
	"github.com/skillforge/assessment-service/internal/events"
	"github.com/skillforge/assessment-service/internal/generator"
	"github.com/skillforge/assessment-service/internal/models"
	"github.com/skillforge/assessment-service/internal/repositories"
	"github.com/skillforge/assessment-service/internal/utils"
	"github.com/skillforge/assessment-service/internal/validator"
	"gorm.io/gorm"
)

// fakeRepo is an in-memory TransactionRepository. Transactions are
// pass-through; the engine's transactional writes are exercised against
// the same shared maps.
type fakeRepo struct {
	mu sync.Mutex

	surveys  map[uint]*models.ProfileSurvey
	sessions map[uint]*models.TestSession
	question map[uint]*models.Question
	answers  map[uint]*models.AttemptAnswer
	results  map[uint]*models.RoundResult
	attempts map[uint]*models.Attempt

	nextID uint
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		surveys:  make(map[uint]*models.ProfileSurvey),
		sessions: make(map[uint]*models.TestSession),
		question: make(map[uint]*models.Question),
		answers:  make(map[uint]*models.AttemptAnswer),
		results:  make(map[uint]*models.RoundResult),
		attempts: make(map[uint]*models.Attempt),
	}
}

func (f *fakeRepo) id() uint {
	f.nextID++
	return f.nextID
}

func (f *fakeRepo) Survey() repositories.SurveyRepository     { return (*fakeSurveyRepo)(f) }
func (f *fakeRepo) Session() repositories.SessionRepository   { return (*fakeSessionRepo)(f) }
func (f *fakeRepo) Question() repositories.QuestionRepository { return (*fakeQuestionRepo)(f) }
func (f *fakeRepo) Answer() repositories.AnswerRepository     { return (*fakeAnswerRepo)(f) }
func (f *fakeRepo) Result() repositories.ResultRepository     { return (*fakeResultRepo)(f) }
func (f *fakeRepo) Attempt() repositories.AttemptRepository   { return (*fakeAttemptRepo)(f) }

func (f *fakeRepo) Begin(ctx context.Context) (repositories.TransactionRepository, error) {
	return f, nil
}
func (f *fakeRepo) Commit(ctx context.Context) error   { return nil }
func (f *fakeRepo) Rollback(ctx context.Context) error { return nil }

// ===== surveys =====

type fakeSurveyRepo fakeRepo

func (f *fakeSurveyRepo) Create(ctx context.Context, survey *models.ProfileSurvey) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	survey.ID = (*fakeRepo)(f).id()
	survey.CreatedAt = time.Now()
	copied := *survey
	f.surveys[survey.ID] = &copied
	return nil
}

func (f *fakeSurveyRepo) GetByID(ctx context.Context, id uint) (*models.ProfileSurvey, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	survey, ok := f.surveys[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *survey
	return &copied, nil
}

func (f *fakeSurveyRepo) GetByLearner(ctx context.Context, learnerID string) ([]*models.ProfileSurvey, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.ProfileSurvey
	for _, s := range f.surveys {
		if s.LearnerID == learnerID {
			copied := *s
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (f *fakeSurveyRepo) GetLatestByLearner(ctx context.Context, learnerID string) (*models.ProfileSurvey, error) {
	surveys, _ := f.GetByLearner(ctx, learnerID)
	if len(surveys) == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return surveys[0], nil
}

// ===== sessions =====

type fakeSessionRepo fakeRepo

func (f *fakeSessionRepo) Create(ctx context.Context, session *models.TestSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	session.ID = (*fakeRepo)(f).id()
	session.CreatedAt = time.Now()
	copied := *session
	f.sessions[session.ID] = &copied
	return nil
}

func (f *fakeSessionRepo) GetByID(ctx context.Context, id uint) (*models.TestSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	session, ok := f.sessions[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *session
	return &copied, nil
}

func (f *fakeSessionRepo) Update(ctx context.Context, session *models.TestSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.sessions[session.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	session.UpdatedAt = time.Now()
	copied := *session
	f.sessions[session.ID] = &copied
	return nil
}

func (f *fakeSessionRepo) UpdateStatus(ctx context.Context, id uint, status models.SessionStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	session, ok := f.sessions[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	session.Status = status
	return nil
}

func (f *fakeSessionRepo) List(ctx context.Context, filters repositories.SessionFilters) ([]*models.TestSession, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.TestSession
	for _, s := range f.sessions {
		if filters.Status != nil && s.Status != *filters.Status {
			continue
		}
		if filters.LearnerID != nil && s.LearnerID != *filters.LearnerID {
			continue
		}
		if filters.Round != nil && s.Round != *filters.Round {
			continue
		}
		copied := *s
		out = append(out, &copied)
	}
	return out, int64(len(out)), nil
}

func (f *fakeSessionRepo) GetCompletedRound(ctx context.Context, learnerID string, round int) (*models.TestSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var latest *models.TestSession
	for _, s := range f.sessions {
		if s.LearnerID != learnerID || s.Round != round || s.Status != models.SessionCompleted {
			continue
		}
		if latest == nil || s.ID > latest.ID {
			latest = s
		}
	}
	if latest == nil {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *latest
	return &copied, nil
}

func (f *fakeSessionRepo) GetIdleSessions(ctx context.Context, cutoff time.Time) ([]*models.TestSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.TestSession
	for _, s := range f.sessions {
		if s.Status == models.SessionCompleted || s.Status == models.SessionAbandoned {
			continue
		}
		if s.UpdatedAt.Before(cutoff) {
			copied := *s
			out = append(out, &copied)
		}
	}
	return out, nil
}

// ===== questions =====

type fakeQuestionRepo fakeRepo

func (f *fakeQuestionRepo) CreateBatch(ctx context.Context, questions []*models.Question) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, q := range questions {
		q.ID = (*fakeRepo)(f).id()
		q.CreatedAt = time.Now()
		copied := *q
		f.question[q.ID] = &copied
	}
	return nil
}

func (f *fakeQuestionRepo) GetByID(ctx context.Context, id uint) (*models.Question, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	q, ok := f.question[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *q
	return &copied, nil
}

func (f *fakeQuestionRepo) GetBySession(ctx context.Context, sessionID uint) ([]*models.Question, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Question
	for _, q := range f.question {
		if q.SessionID == sessionID {
			copied := *q
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (f *fakeQuestionRepo) CountBySession(ctx context.Context, sessionID uint) (int64, error) {
	questions, _ := f.GetBySession(ctx, sessionID)
	return int64(len(questions)), nil
}

// ===== answers =====

type fakeAnswerRepo fakeRepo

func (f *fakeAnswerRepo) Upsert(ctx context.Context, answer *models.AttemptAnswer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.answers {
		if existing.SessionID == answer.SessionID && existing.QuestionID == answer.QuestionID {
			existing.Payload = answer.Payload
			existing.Correctness = models.AnswerUngraded
			existing.Score = 0
			existing.ResponseTimeMS = answer.ResponseTimeMS
			existing.SavedAt = answer.SavedAt
			existing.Revision++
			existing.UpdatedAt = time.Now()
			*answer = *existing
			return nil
		}
	}
	answer.ID = (*fakeRepo)(f).id()
	answer.Revision = 1
	answer.CreatedAt = time.Now()
	copied := *answer
	f.answers[answer.ID] = &copied
	return nil
}

func (f *fakeAnswerRepo) GetBySessionAndQuestion(ctx context.Context, sessionID, questionID uint) (*models.AttemptAnswer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.answers {
		if a.SessionID == sessionID && a.QuestionID == questionID {
			copied := *a
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeAnswerRepo) GetBySession(ctx context.Context, sessionID uint) ([]*models.AttemptAnswer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.AttemptAnswer
	for _, a := range f.answers {
		if a.SessionID == sessionID {
			copied := *a
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (f *fakeAnswerRepo) UpdateGrade(ctx context.Context, id uint, correctness models.Correctness, score float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.answers[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	a.Correctness = correctness
	a.Score = score
	return nil
}

func (f *fakeAnswerRepo) CountGraded(ctx context.Context, sessionID uint) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var count int64
	for _, a := range f.answers {
		if a.SessionID == sessionID && a.Correctness != models.AnswerUngraded {
			count++
		}
	}
	return count, nil
}

// ===== results =====

type fakeResultRepo fakeRepo

func (f *fakeResultRepo) Create(ctx context.Context, result *models.RoundResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	result.ID = (*fakeRepo)(f).id()
	result.CreatedAt = time.Now()
	copied := *result
	f.results[result.ID] = &copied
	return nil
}

func (f *fakeResultRepo) GetLatestBySession(ctx context.Context, sessionID uint) (*models.RoundResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var latest *models.RoundResult
	for _, r := range f.results {
		if r.SessionID != sessionID {
			continue
		}
		if latest == nil || r.Version > latest.Version {
			latest = r
		}
	}
	if latest == nil {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *latest
	return &copied, nil
}

func (f *fakeResultRepo) GetVersions(ctx context.Context, sessionID uint) ([]*models.RoundResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.RoundResult
	for _, r := range f.results {
		if r.SessionID == sessionID {
			copied := *r
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

// ===== attempts =====

type fakeAttemptRepo fakeRepo

func (f *fakeAttemptRepo) Create(ctx context.Context, attempt *models.Attempt) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	attempt.ID = (*fakeRepo)(f).id()
	attempt.CreatedAt = time.Now()
	for i := range attempt.Rounds {
		attempt.Rounds[i].ID = (*fakeRepo)(f).id()
		attempt.Rounds[i].AttemptID = attempt.ID
	}
	copied := *attempt
	copied.Rounds = append([]models.AttemptRound(nil), attempt.Rounds...)
	f.attempts[attempt.ID] = &copied
	return nil
}

func (f *fakeAttemptRepo) GetByID(ctx context.Context, id uint) (*models.Attempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	attempt, ok := f.attempts[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *attempt
	copied.Rounds = append([]models.AttemptRound(nil), attempt.Rounds...)
	return &copied, nil
}

func (f *fakeAttemptRepo) GetByLearner(ctx context.Context, learnerID string, filters repositories.AttemptFilters) ([]*models.Attempt, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Attempt
	for _, a := range f.attempts {
		if a.LearnerID != learnerID {
			continue
		}
		copied := *a
		copied.Rounds = append([]models.AttemptRound(nil), a.Rounds...)
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, int64(len(out)), nil
}

func (f *fakeAttemptRepo) CountCompletedSince(ctx context.Context, since time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var count int64
	for _, a := range f.attempts {
		if a.FinishedAt.After(since) {
			count++
		}
	}
	return count, nil
}

func (f *fakeAttemptRepo) CountScoringBelowSince(ctx context.Context, score float64, since time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var count int64
	for _, a := range f.attempts {
		if a.FinishedAt.After(since) && a.FinalScore < score {
			count++
		}
	}
	return count, nil
}

func (f *fakeAttemptRepo) CountScoringAboveSince(ctx context.Context, score float64, since time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var count int64
	for _, a := range f.attempts {
		if a.FinishedAt.After(since) && a.FinalScore > score {
			count++
		}
	}
	return count, nil
}

// ===== test fixture =====

type testEnv struct {
	repo      *fakeRepo
	gen       *generator.MockGenerator
	publisher *events.MockEventPublisher
	cfg       *config.Config
	manager   ServiceManager
}

func newTestEnv() *testEnv {
	return newTestEnvWith(testConfig())
}

func newTestEnvWith(cfg *config.Config) *testEnv {
	repo := newFakeRepo()
	gen := generator.NewMockGenerator()
	publisher := events.NewMockEventPublisher(testSlogger())
	logger := utils.NewDevelopmentLogger()
	v := validator.New()

	manager := NewServiceManager(repo, gen, cache.NoopCache{}, publisher, v, cfg, logger)

	return &testEnv{
		repo:      repo,
		gen:       gen,
		publisher: publisher,
		cfg:       cfg,
		manager:   manager,
	}
}

func testSlogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}

func testConfig() *config.Config {
	return &config.Config{
		Environment: "test",
		Assessment: config.AssessmentConfig{
			QuestionsPerRound:    5,
			TimeLimitMS:          1200000,
			ShortAnswerPassScore: 50,
		},
		Adaptive: config.AdaptiveConfig{
			HighScoreThreshold: 80,
			LowScoreThreshold:  50,
			DifficultyStep:     1,
			MinDifficulty:      1,
			MaxDifficulty:      5,
			DefaultDifficulty:  2,
		},
		Ranking: config.RankingConfig{
			Strategy:         StrategyWeighted,
			Round1Weight:     0.4,
			Round2Weight:     0.6,
			CohortWindowDays: 30,
			MinCohortSize:    20,
		},
	}
}

func (e *testEnv) createSurvey(t *testing.T, learnerID string, level models.SkillLevel) *models.ProfileSurvey {
	t.Helper()
	survey, err := e.manager.Survey().Create(context.Background(), &CreateSurveyRequest{
		LearnerID: learnerID,
		Level:     level,
		Role:      "backend engineer",
		Interests: []string{"LLM", "RAG"},
	})
	if err != nil {
		t.Fatalf("failed to create survey: %v", err)
	}
	return survey
}
