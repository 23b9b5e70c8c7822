package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/skillforge/assessment-service/internal/models"
	"github.com/skillforge/assessment-service/internal/services"
	"github.com/skillforge/assessment-service/internal/utils"
	"github.com/skillforge/assessment-service/internal/validator"
)

type SessionHandler struct {
	BaseHandler
	sessionService  services.SessionService
	autosaveService services.AutosaveService
	scoringService  services.ScoringService
	adaptiveService services.AdaptiveService
	resumeService   services.ResumeService
	validator       *validator.Validator
}

// FinalizeRoundResponse carries the round result plus, after round 1, the
// generation parameters the client must echo back when starting round 2.
type FinalizeRoundResponse struct {
	Result          *services.RoundResultResponse `json:"result"`
	NextRoundParams *services.AdaptiveParams      `json:"next_round_params,omitempty"`
}

func NewSessionHandler(
	sessionService services.SessionService,
	autosaveService services.AutosaveService,
	scoringService services.ScoringService,
	adaptiveService services.AdaptiveService,
	resumeService services.ResumeService,
	v *validator.Validator,
	logger utils.Logger,
) *SessionHandler {
	return &SessionHandler{
		BaseHandler:     NewBaseHandler(logger),
		sessionService:  sessionService,
		autosaveService: autosaveService,
		scoringService:  scoringService,
		adaptiveService: adaptiveService,
		resumeService:   resumeService,
		validator:       v,
	}
}

// StartRound generates a question batch and opens a session
// @Summary Start a round
// @Description Generates the round's questions and creates the session; round 2 requires the adaptive params returned by finalize
// @Tags sessions
// @Accept json
// @Produce json
// @Param session body services.StartRoundRequest true "Round request"
// @Success 201 {object} services.StartRoundResponse
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Router /sessions [post]
func (h *SessionHandler) StartRound(c *gin.Context) {
	var req services.StartRoundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	h.LogRequest(c, "Starting round",
		"learner_id", req.LearnerID, "survey_id", req.SurveyID, "round", req.Round)

	resp, err := h.sessionService.StartRound(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// GetSessionState returns the resume snapshot for a session
// @Summary Get session state
// @Description Returns saved answers, the next unanswered question index and the time budget
// @Tags sessions
// @Produce json
// @Param id path uint true "Session ID"
// @Success 200 {object} services.SessionStateResponse
// @Failure 404 {object} ErrorResponse
// @Router /sessions/{id}/state [get]
func (h *SessionHandler) GetSessionState(c *gin.Context) {
	sessionID := h.parseIDParam(c, "id")
	if sessionID == 0 {
		return
	}

	state, err := h.resumeService.GetSessionState(c.Request.Context(), sessionID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, state)
}

// SaveAnswer autosaves one answer for the session
// @Summary Autosave answer
// @Description Durably records the answer; saving the same question again overwrites
// @Tags sessions
// @Accept json
// @Produce json
// @Param id path uint true "Session ID"
// @Param answer body services.SaveAnswerRequest true "Answer payload"
// @Success 200 {object} services.SaveAnswerResponse
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /sessions/{id}/answers [post]
func (h *SessionHandler) SaveAnswer(c *gin.Context) {
	sessionID := h.parseIDParam(c, "id")
	if sessionID == 0 {
		return
	}

	var req services.SaveAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	resp, err := h.autosaveService.SaveAnswer(c.Request.Context(), sessionID, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Pause stops the session clock
func (h *SessionHandler) Pause(c *gin.Context) {
	sessionID := h.parseIDParam(c, "id")
	if sessionID == 0 {
		return
	}

	h.LogRequest(c, "Pausing session", "session_id", sessionID)

	if err := h.sessionService.Pause(c.Request.Context(), sessionID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Session paused"})
}

// Resume restarts the session clock
func (h *SessionHandler) Resume(c *gin.Context) {
	sessionID := h.parseIDParam(c, "id")
	if sessionID == 0 {
		return
	}

	h.LogRequest(c, "Resuming session", "session_id", sessionID)

	status, err := h.sessionService.Resume(c.Request.Context(), sessionID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, status)
}

// GetTimeStatus reports the session's time budget; a running session past
// its limit is auto-paused as a side effect
func (h *SessionHandler) GetTimeStatus(c *gin.Context) {
	sessionID := h.parseIDParam(c, "id")
	if sessionID == 0 {
		return
	}

	status, err := h.sessionService.CheckTimeLimit(c.Request.Context(), sessionID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, status)
}

// ScoreAnswer grades one saved answer
// @Summary Score one answer
// @Tags sessions
// @Produce json
// @Param id path uint true "Session ID"
// @Param question_id path uint true "Question ID"
// @Success 200 {object} services.ScoreAnswerResponse
// @Failure 404 {object} ErrorResponse
// @Router /sessions/{id}/questions/{question_id}/score [post]
func (h *SessionHandler) ScoreAnswer(c *gin.Context) {
	sessionID := h.parseIDParam(c, "id")
	if sessionID == 0 {
		return
	}
	questionID := h.parseIDParam(c, "question_id")
	if questionID == 0 {
		return
	}

	resp, err := h.scoringService.ScoreAnswer(c.Request.Context(), sessionID, questionID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// FinalizeRound grades the full round and completes the session
// @Summary Finalize round
// @Description Grades every saved answer, stores the result and completes the session; idempotent
// @Tags sessions
// @Produce json
// @Param id path uint true "Session ID"
// @Success 200 {object} FinalizeRoundResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /sessions/{id}/finalize [post]
func (h *SessionHandler) FinalizeRound(c *gin.Context) {
	sessionID := h.parseIDParam(c, "id")
	if sessionID == 0 {
		return
	}

	h.LogRequest(c, "Finalizing round", "session_id", sessionID)

	result, err := h.scoringService.FinalizeRound(c.Request.Context(), sessionID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	resp := FinalizeRoundResponse{Result: result}
	if result.Round == models.RoundFirst {
		session, err := h.sessionService.GetByID(c.Request.Context(), sessionID)
		if err != nil {
			h.handleServiceError(c, err)
			return
		}
		resp.NextRoundParams = h.adaptiveService.PlanNextRound(result, session.Difficulty)
	}

	c.JSON(http.StatusOK, resp)
}

// RescoreRound appends a fresh result version for a finalized round
func (h *SessionHandler) RescoreRound(c *gin.Context) {
	sessionID := h.parseIDParam(c, "id")
	if sessionID == 0 {
		return
	}

	h.LogRequest(c, "Rescoring round", "session_id", sessionID)

	result, err := h.scoringService.RescoreRound(c.Request.Context(), sessionID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
