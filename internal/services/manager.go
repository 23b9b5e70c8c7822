package services

import (
	"github.com/skillforge/assessment-service/internal/cache"
	"github.com/skillforge/assessment-service/internal/config"
	"github.com/skillforge/assessment-service/internal/events"
	"github.com/skillforge/assessment-service/internal/generator"
	"github.com/skillforge/assessment-service/internal/repositories"
	"github.com/skillforge/assessment-service/internal/utils"
	"github.com/skillforge/assessment-service/internal/validator"
)

type serviceManager struct {
	survey   SurveyService
	session  SessionService
	autosave AutosaveService
	scoring  ScoringService
	adaptive AdaptiveService
	resume   ResumeService
	ranking  RankingService
}

// NewServiceManager wires the engine services. Autosave and Scoring share
// one lock registry so per-question serialization and the finalize barrier
// act on the same locks.
func NewServiceManager(
	repo repositories.TransactionRepository,
	gen generator.QuestionGenerator,
	cacheSvc cache.CacheService,
	publisher events.EventPublisher,
	v *validator.Validator,
	cfg *config.Config,
	logger utils.Logger,
) ServiceManager {
	locks := newSessionLockRegistry()

	adaptive := NewAdaptiveService(cfg.Adaptive)
	resume := NewResumeService(repo, cacheSvc, logger)
	session := NewSessionService(repo, gen, adaptive, publisher, cacheSvc, v, cfg, logger)
	autosave := NewAutosaveService(repo, session, resume, locks, v, logger)
	scoring := NewScoringService(repo, session, resume, locks, publisher, cfg.Assessment, logger)
	ranking := NewRankingService(repo, publisher, cfg.Ranking, logger)
	survey := NewSurveyService(repo, v, logger)

	return &serviceManager{
		survey:   survey,
		session:  session,
		autosave: autosave,
		scoring:  scoring,
		adaptive: adaptive,
		resume:   resume,
		ranking:  ranking,
	}
}

func (m *serviceManager) Survey() SurveyService     { return m.survey }
func (m *serviceManager) Session() SessionService   { return m.session }
func (m *serviceManager) Autosave() AutosaveService { return m.autosave }
func (m *serviceManager) Scoring() ScoringService   { return m.scoring }
func (m *serviceManager) Adaptive() AdaptiveService { return m.adaptive }
func (m *serviceManager) Resume() ResumeService     { return m.resume }
func (m *serviceManager) Ranking() RankingService   { return m.ranking }
