package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

type Correctness string

const (
	AnswerUngraded  Correctness = "ungraded"
	AnswerCorrect   Correctness = "correct"
	AnswerIncorrect Correctness = "incorrect"
)

// AttemptAnswer is the single live answer row per (session, question).
// Autosave creates or fully replaces it; Scoring mutates only the
// correctness/score fields. The two write paths never overlap on columns.
type AttemptAnswer struct {
	ID         uint `json:"id" gorm:"primaryKey"`
	SessionID  uint `json:"session_id" gorm:"not null;uniqueIndex:idx_session_question"`
	QuestionID uint `json:"question_id" gorm:"not null;uniqueIndex:idx_session_question"`

	// Submitted payload; shape depends on the question kind.
	Payload datatypes.JSON `json:"payload" gorm:"type:jsonb;not null"`

	Correctness Correctness `json:"correctness" gorm:"default:ungraded;size:20"`
	Score       float64     `json:"score" gorm:"default:0"`

	ResponseTimeMS int64     `json:"response_time_ms"`
	SavedAt        time.Time `json:"saved_at" gorm:"not null"`

	// Bumped on every overwrite; audit trail of how often the learner
	// changed this answer.
	Revision int `json:"revision" gorm:"default:1"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (AttemptAnswer) TableName() string {
	return "attempt_answers"
}

func (a *AttemptAnswer) Graded() bool {
	return a.Correctness != AnswerUngraded
}

// AnswerPayload is the submitted answer for any question kind: Selected
// carries the chosen key for multiple_choice / true_false, Text the free
// response for short_answer.
type AnswerPayload struct {
	Selected string `json:"selected,omitempty"`
	Text     string `json:"text,omitempty"`
}

func (a *AttemptAnswer) DecodePayload() (*AnswerPayload, error) {
	var p AnswerPayload
	if err := json.Unmarshal(a.Payload, &p); err != nil {
		return nil, err
	}
	return &p, nil
}
