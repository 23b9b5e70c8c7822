package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/skillforge/assessment-service/internal/services"
	"github.com/skillforge/assessment-service/internal/utils"
	"github.com/skillforge/assessment-service/internal/validator"
)

type SurveyHandler struct {
	BaseHandler
	surveyService services.SurveyService
	validator     *validator.Validator
}

func NewSurveyHandler(
	surveyService services.SurveyService,
	v *validator.Validator,
	logger utils.Logger,
) *SurveyHandler {
	return &SurveyHandler{
		BaseHandler:   NewBaseHandler(logger),
		surveyService: surveyService,
		validator:     v,
	}
}

// CreateSurvey stores a new profile survey snapshot
// @Summary Submit profile survey
// @Description Records the learner's self-reported background; re-submitting appends a new snapshot
// @Tags surveys
// @Accept json
// @Produce json
// @Param survey body services.CreateSurveyRequest true "Survey data"
// @Success 201 {object} models.ProfileSurvey
// @Failure 400 {object} ErrorResponse
// @Router /surveys [post]
func (h *SurveyHandler) CreateSurvey(c *gin.Context) {
	var req services.CreateSurveyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	h.LogRequest(c, "Creating survey", "learner_id", req.LearnerID)

	survey, err := h.surveyService.Create(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, survey)
}

// GetSurvey returns one survey snapshot
// @Summary Get survey
// @Tags surveys
// @Produce json
// @Param id path uint true "Survey ID"
// @Success 200 {object} models.ProfileSurvey
// @Failure 404 {object} ErrorResponse
// @Router /surveys/{id} [get]
func (h *SurveyHandler) GetSurvey(c *gin.Context) {
	surveyID := h.parseIDParam(c, "id")
	if surveyID == 0 {
		return
	}

	survey, err := h.surveyService.GetByID(c.Request.Context(), surveyID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, survey)
}

// GetSurveysByLearner lists a learner's survey snapshots, newest first
func (h *SurveyHandler) GetSurveysByLearner(c *gin.Context) {
	learnerID := h.parseStringParam(c, "learner_id")
	if learnerID == "" {
		return
	}

	surveys, err := h.surveyService.GetByLearner(c.Request.Context(), learnerID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, ListResponse{Items: surveys, Total: int64(len(surveys))})
}
