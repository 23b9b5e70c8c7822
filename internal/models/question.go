package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

type QuestionKind string

const (
	MultipleChoice QuestionKind = "multiple_choice"
	TrueFalse      QuestionKind = "true_false"
	ShortAnswer    QuestionKind = "short_answer"
)

const (
	DifficultyMin = 1
	DifficultyMax = 5
)

// Question belongs to exactly one session and round. Immutable once created.
type Question struct {
	ID        uint         `json:"id" gorm:"primaryKey"`
	SessionID uint         `json:"session_id" gorm:"not null;index"`
	Round     int          `json:"round" gorm:"not null"`
	Kind      QuestionKind `json:"kind" gorm:"not null;size:30" validate:"required,question_kind"`
	Prompt    string       `json:"prompt" gorm:"type:text;not null" validate:"required"`

	// Choice labels for multiple_choice; empty otherwise.
	Choices datatypes.JSON `json:"choices,omitempty" gorm:"type:jsonb"`

	// Schema holds the correct key / keyword set / explanation. Never
	// serialized to learners; handlers return QuestionView instead.
	Schema datatypes.JSON `json:"-" gorm:"type:jsonb;not null"`

	Difficulty int    `json:"difficulty" gorm:"not null" validate:"min=1,max=5"`
	Category   string `json:"category" gorm:"not null;size:100;index" validate:"required"`

	// Position within the round, 0-based generation order.
	Position int `json:"position" gorm:"not null"`

	CreatedAt time.Time `json:"created_at"`
}

func (Question) TableName() string {
	return "questions"
}

// AnswerSchema is the grading key for a question.
type AnswerSchema struct {
	CorrectKey  string   `json:"correct_key,omitempty"`
	Keywords    []string `json:"keywords,omitempty"`
	Explanation string   `json:"explanation"`
}

func (q *Question) AnswerSchema() (*AnswerSchema, error) {
	var schema AnswerSchema
	if err := json.Unmarshal(q.Schema, &schema); err != nil {
		return nil, err
	}
	return &schema, nil
}

func (q *Question) ChoiceList() ([]string, error) {
	if len(q.Choices) == 0 {
		return nil, nil
	}
	var choices []string
	if err := json.Unmarshal(q.Choices, &choices); err != nil {
		return nil, err
	}
	return choices, nil
}

// QuestionView is the learner-facing projection of a Question with the
// answer schema stripped.
type QuestionView struct {
	ID         uint            `json:"id"`
	Kind       QuestionKind    `json:"kind"`
	Prompt     string          `json:"prompt"`
	Choices    json.RawMessage `json:"choices,omitempty"`
	Difficulty int             `json:"difficulty"`
	Category   string          `json:"category"`
	Position   int             `json:"position"`
}

func (q *Question) View() QuestionView {
	return QuestionView{
		ID:         q.ID,
		Kind:       q.Kind,
		Prompt:     q.Prompt,
		Choices:    json.RawMessage(q.Choices),
		Difficulty: q.Difficulty,
		Category:   q.Category,
		Position:   q.Position,
	}
}
