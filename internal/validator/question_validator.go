package validator

import (
	"strings"

	"github.com/skillforge/assessment-service/internal/generator"
	"github.com/skillforge/assessment-service/internal/models"
)

// QuestionValidator checks generated questions for internal consistency
// before they are persisted. The generation collaborator is untrusted
// output; a malformed item is rejected here rather than surfacing to a
// learner mid-round.
type QuestionValidator struct{}

func NewQuestionValidator() *QuestionValidator {
	return &QuestionValidator{}
}

// ValidateGenerated returns the validation errors for one generated item.
func (qv *QuestionValidator) ValidateGenerated(q *generator.GeneratedQuestion) ValidationErrors {
	var errs ValidationErrors

	if strings.TrimSpace(q.Prompt) == "" {
		errs = append(errs, *NewValidationError("prompt", "is required", nil))
	}
	if strings.TrimSpace(q.Category) == "" {
		errs = append(errs, *NewValidationError("category", "is required", nil))
	}
	if q.Difficulty < models.DifficultyMin || q.Difficulty > models.DifficultyMax {
		errs = append(errs, *NewValidationError("difficulty", "must be between 1 and 5", q.Difficulty))
	}

	switch q.Kind {
	case models.MultipleChoice:
		errs = append(errs, qv.validateMultipleChoice(q)...)
	case models.TrueFalse:
		errs = append(errs, qv.validateTrueFalse(q)...)
	case models.ShortAnswer:
		errs = append(errs, qv.validateShortAnswer(q)...)
	default:
		errs = append(errs, *NewValidationError("kind", "must be a valid question kind (multiple_choice, true_false, short_answer)", string(q.Kind)))
	}

	return errs
}

func (qv *QuestionValidator) validateMultipleChoice(q *generator.GeneratedQuestion) ValidationErrors {
	var errs ValidationErrors

	if len(q.Choices) < 2 {
		errs = append(errs, *NewValidationError("choices", "must have at least 2 options", len(q.Choices)))
		return errs
	}

	found := false
	for _, choice := range q.Choices {
		if choice == q.CorrectKey {
			found = true
			break
		}
	}
	if !found {
		errs = append(errs, *NewValidationError("correct_key", "must match one of the choices", q.CorrectKey))
	}
	return errs
}

func (qv *QuestionValidator) validateTrueFalse(q *generator.GeneratedQuestion) ValidationErrors {
	var errs ValidationErrors

	key := strings.ToLower(strings.TrimSpace(q.CorrectKey))
	if key != "true" && key != "false" {
		errs = append(errs, *NewValidationError("correct_key", "must be true or false", q.CorrectKey))
	}
	return errs
}

func (qv *QuestionValidator) validateShortAnswer(q *generator.GeneratedQuestion) ValidationErrors {
	var errs ValidationErrors

	if len(q.Keywords) == 0 {
		errs = append(errs, *NewValidationError("keywords", "must have at least one expected keyword", nil))
	}
	for _, kw := range q.Keywords {
		if strings.TrimSpace(kw) == "" {
			errs = append(errs, *NewValidationError("keywords", "must not contain empty keywords", nil))
			break
		}
	}
	return errs
}
