package services

import (
	"errors"
	"fmt"

	apperrors "github.com/skillforge/assessment-service/internal/errors"
)

// ===== COMMON SERVICE ERRORS =====

var (
	// Generic errors
	ErrNotFound         = errors.New("resource not found")
	ErrValidationFailed = errors.New("validation failed")
	ErrInternalError    = errors.New("internal server error")

	// Session lifecycle errors
	ErrSessionNotFound    = errors.New("session not found")
	ErrSessionNotActive   = errors.New("session is not active")
	ErrSessionExpired     = errors.New("session time limit exceeded - session paused")
	ErrSessionNotPaused   = errors.New("session is not paused")
	ErrSessionNotOwned    = errors.New("session does not belong to learner")
	ErrInvalidRound       = errors.New("round 2 requested before round 1 completion")
	ErrIncompleteRound    = errors.New("round has questions without a graded answer")
	ErrRoundNotFinalized  = errors.New("round has not been finalized")
	ErrGenerationFailed   = errors.New("question generation failed")
	ErrUnknownQuestion    = errors.New("question does not belong to session")
	ErrAnswerNotSaved     = errors.New("no saved answer for question")
	ErrAdaptiveParamsMiss = errors.New("adaptive parameters required for round 2")

	// Survey errors
	ErrSurveyNotFound = errors.New("survey not found")
	ErrSurveyNotOwned = errors.New("survey does not belong to learner")

	// Attempt errors
	ErrAttemptNotFound = errors.New("attempt not found")
)

// ===== CUSTOM ERROR TYPES =====

// Use shared validation errors from errors package
type ValidationError = apperrors.ValidationError
type ValidationErrors = apperrors.ValidationErrors

type BusinessRuleError struct {
	Rule    string                 `json:"rule"`
	Message string                 `json:"message"`
	Context map[string]interface{} `json:"context,omitempty"`
}

func (bre *BusinessRuleError) Error() string {
	return fmt.Sprintf("business rule violation (%s): %s", bre.Rule, bre.Message)
}

func NewBusinessRuleError(rule, message string, context map[string]interface{}) *BusinessRuleError {
	return &BusinessRuleError{
		Rule:    rule,
		Message: message,
		Context: context,
	}
}

// ===== ERROR HELPERS =====

// IsNotFound checks if error represents a "not found" condition
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrSessionNotFound) ||
		errors.Is(err, ErrSurveyNotFound) ||
		errors.Is(err, ErrAttemptNotFound) ||
		errors.Is(err, ErrAnswerNotSaved)
}

// IsConflict checks if error represents a state-machine conflict
func IsConflict(err error) bool {
	return errors.Is(err, ErrSessionNotActive) ||
		errors.Is(err, ErrSessionExpired) ||
		errors.Is(err, ErrSessionNotPaused) ||
		errors.Is(err, ErrInvalidRound) ||
		errors.Is(err, ErrIncompleteRound) ||
		errors.Is(err, ErrRoundNotFinalized)
}

// IsValidation checks if error represents a validation failure
func IsValidation(err error) bool {
	if errors.Is(err, ErrValidationFailed) || errors.Is(err, ErrUnknownQuestion) {
		return true
	}
	var ve apperrors.ValidationErrors
	return errors.As(err, &ve)
}

// IsBusinessRule checks if error represents a business rule violation
func IsBusinessRule(err error) bool {
	var bre *BusinessRuleError
	return errors.As(err, &bre)
}
