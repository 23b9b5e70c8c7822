package validator

import (
	"testing"

	"github.com/skillforge/assessment-service/internal/generator"
	"github.com/skillforge/assessment-service/internal/models"
	"github.com/stretchr/testify/assert"
)

func validMultipleChoice() generator.GeneratedQuestion {
	return generator.GeneratedQuestion{
		Kind:        models.MultipleChoice,
		Prompt:      "Which data structure backs a FIFO queue?",
		Choices:     []string{"Stack", "Queue", "Heap", "Trie"},
		CorrectKey:  "Queue",
		Explanation: "A queue is first-in first-out.",
		Difficulty:  2,
		Category:    "Data Structures",
	}
}

func TestQuestionValidator_ValidateGenerated(t *testing.T) {
	qv := NewQuestionValidator()

	t.Run("valid multiple choice", func(t *testing.T) {
		q := validMultipleChoice()
		assert.Empty(t, qv.ValidateGenerated(&q))
	})

	tests := []struct {
		name   string
		mutate func(q *generator.GeneratedQuestion)
	}{
		{"empty prompt", func(q *generator.GeneratedQuestion) { q.Prompt = "  " }},
		{"empty category", func(q *generator.GeneratedQuestion) { q.Category = "" }},
		{"difficulty out of range", func(q *generator.GeneratedQuestion) { q.Difficulty = 6 }},
		{"unknown kind", func(q *generator.GeneratedQuestion) { q.Kind = "essay" }},
		{"correct key not a choice", func(q *generator.GeneratedQuestion) { q.CorrectKey = "Deque" }},
		{"too few choices", func(q *generator.GeneratedQuestion) { q.Choices = []string{"Queue"} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := validMultipleChoice()
			tt.mutate(&q)
			assert.NotEmpty(t, qv.ValidateGenerated(&q))
		})
	}

	t.Run("true/false requires boolean key", func(t *testing.T) {
		q := generator.GeneratedQuestion{
			Kind:        models.TrueFalse,
			Prompt:      "Slices share their backing array.",
			CorrectKey:  "yes",
			Explanation: "They do.",
			Difficulty:  1,
			Category:    "Go",
		}
		assert.NotEmpty(t, qv.ValidateGenerated(&q))

		q.CorrectKey = "True"
		assert.Empty(t, qv.ValidateGenerated(&q))
	})

	t.Run("short answer requires keywords", func(t *testing.T) {
		q := generator.GeneratedQuestion{
			Kind:        models.ShortAnswer,
			Prompt:      "Explain context cancellation.",
			Explanation: "Propagates deadlines.",
			Difficulty:  3,
			Category:    "Go",
		}
		assert.NotEmpty(t, qv.ValidateGenerated(&q))

		q.Keywords = []string{"context", "cancel"}
		assert.Empty(t, qv.ValidateGenerated(&q))
	})
}
