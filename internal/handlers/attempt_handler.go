package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/skillforge/assessment-service/internal/repositories"
	"github.com/skillforge/assessment-service/internal/services"
	"github.com/skillforge/assessment-service/internal/utils"
	"github.com/skillforge/assessment-service/internal/validator"
)

type AttemptHandler struct {
	BaseHandler
	rankingService services.RankingService
	validator      *validator.Validator
}

type FinalizeAttemptRequest struct {
	LearnerID string `json:"learner_id" validate:"required"`
}

func NewAttemptHandler(
	rankingService services.RankingService,
	v *validator.Validator,
	logger utils.Logger,
) *AttemptHandler {
	return &AttemptHandler{
		BaseHandler:    NewBaseHandler(logger),
		rankingService: rankingService,
		validator:      v,
	}
}

// FinalizeAttempt combines both rounds into a graded, ranked attempt
// @Summary Finalize attempt
// @Description Combines the learner's two finalized rounds into a durable attempt with grade, rank and percentile; idempotent
// @Tags attempts
// @Accept json
// @Produce json
// @Param attempt body FinalizeAttemptRequest true "Learner"
// @Success 201 {object} services.AttemptResponse
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /attempts/finalize [post]
func (h *AttemptHandler) FinalizeAttempt(c *gin.Context) {
	var req FinalizeAttemptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}
	if err := h.validator.Validate(&req); err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.LogRequest(c, "Finalizing attempt", "learner_id", req.LearnerID)

	attempt, err := h.rankingService.FinalizeAttempt(c.Request.Context(), req.LearnerID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, attempt)
}

// GetAttempt returns one finalized attempt
func (h *AttemptHandler) GetAttempt(c *gin.Context) {
	attemptID := h.parseIDParam(c, "id")
	if attemptID == 0 {
		return
	}

	attempt, err := h.rankingService.GetAttempt(c.Request.Context(), attemptID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, attempt)
}

// ListAttempts returns a learner's attempt history, newest first
func (h *AttemptHandler) ListAttempts(c *gin.Context) {
	learnerID := h.parseStringParam(c, "learner_id")
	if learnerID == "" {
		return
	}

	filters := repositories.AttemptFilters{
		Limit:  h.parseIntQuery(c, "limit", 20),
		Offset: h.parseIntQuery(c, "offset", 0),
	}

	attempts, total, err := h.rankingService.ListAttempts(c.Request.Context(), learnerID, filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, ListResponse{Items: attempts, Total: total})
}
