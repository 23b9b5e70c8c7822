package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/skillforge/assessment-service/internal/services"
	"github.com/skillforge/assessment-service/internal/utils"
	"github.com/skillforge/assessment-service/internal/validator"
)

type HandlerManager struct {
	surveyHandler  *SurveyHandler
	sessionHandler *SessionHandler
	attemptHandler *AttemptHandler
}

func NewHandlerManager(
	serviceManager services.ServiceManager,
	v *validator.Validator,
	logger utils.Logger,
) *HandlerManager {
	return &HandlerManager{
		surveyHandler: NewSurveyHandler(serviceManager.Survey(), v, logger),
		sessionHandler: NewSessionHandler(
			serviceManager.Session(),
			serviceManager.Autosave(),
			serviceManager.Scoring(),
			serviceManager.Adaptive(),
			serviceManager.Resume(),
			v, logger,
		),
		attemptHandler: NewAttemptHandler(serviceManager.Ranking(), v, logger),
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"service": "assessment-service",
		})
	})

	v1 := router.Group("/api/v1")
	{
		surveys := v1.Group("/surveys")
		{
			surveys.POST("", hm.surveyHandler.CreateSurvey)
			surveys.GET("/:id", hm.surveyHandler.GetSurvey)
			surveys.GET("/learner/:learner_id", hm.surveyHandler.GetSurveysByLearner)
		}

		sessions := v1.Group("/sessions")
		{
			sessions.POST("", hm.sessionHandler.StartRound)
			sessions.GET("/:id/state", hm.sessionHandler.GetSessionState)
			sessions.GET("/:id/time", hm.sessionHandler.GetTimeStatus)
			sessions.POST("/:id/pause", hm.sessionHandler.Pause)
			sessions.POST("/:id/resume", hm.sessionHandler.Resume)
			sessions.POST("/:id/answers", hm.sessionHandler.SaveAnswer)
			sessions.POST("/:id/questions/:question_id/score", hm.sessionHandler.ScoreAnswer)
			sessions.POST("/:id/finalize", hm.sessionHandler.FinalizeRound)
			sessions.POST("/:id/rescore", hm.sessionHandler.RescoreRound)
		}

		attempts := v1.Group("/attempts")
		{
			attempts.POST("/finalize", hm.attemptHandler.FinalizeAttempt)
			attempts.GET("/:id", hm.attemptHandler.GetAttempt)
			attempts.GET("/learner/:learner_id", hm.attemptHandler.ListAttempts)
		}
	}
}
