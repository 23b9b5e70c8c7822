package models

import (
	"time"
)

type AttemptStatus string

const (
	AttemptCompleted AttemptStatus = "completed"
)

type Grade string

const (
	GradeA Grade = "A"
	GradeB Grade = "B"
	GradeC Grade = "C"
	GradeD Grade = "D"
	GradeF Grade = "F"
)

type PercentileConfidence string

const (
	ConfidenceNormal PercentileConfidence = "normal"
	ConfidenceLow    PercentileConfidence = "low"
)

// Attempt is the durable cross-round record of a completed two-round
// assessment. Created once, when round 2 finalizes.
type Attempt struct {
	ID        uint   `json:"id" gorm:"primaryKey"`
	LearnerID string `json:"learner_id" gorm:"not null;index;size:255"`
	SurveyID  uint   `json:"survey_id" gorm:"not null"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at" gorm:"index"`

	FinalScore float64 `json:"final_score" gorm:"not null;index"`
	Grade      Grade   `json:"grade" gorm:"not null;size:2"`

	Rank       int     `json:"rank"`
	Percentile float64 `json:"percentile"`
	CohortSize int     `json:"cohort_size"`

	// Low when the cohort window held fewer attempts than the configured
	// minimum; the rank is still returned, only annotated.
	PercentileConfidence PercentileConfidence `json:"percentile_confidence" gorm:"size:10"`

	Status AttemptStatus `json:"status" gorm:"default:completed;size:20"`

	CreatedAt time.Time `json:"created_at"`

	Rounds []AttemptRound `json:"rounds" gorm:"foreignKey:AttemptID;constraint:OnDelete:CASCADE"`
}

func (Attempt) TableName() string {
	return "attempts"
}

// AttemptRound is the per-round historical breakdown of an Attempt.
type AttemptRound struct {
	ID        uint `json:"id" gorm:"primaryKey"`
	AttemptID uint `json:"attempt_id" gorm:"not null;index"`
	SessionID uint `json:"session_id" gorm:"not null"`
	Round     int  `json:"round" gorm:"not null"`

	Score       float64 `json:"score" gorm:"not null"`
	TimeSpentMS int64   `json:"time_spent_ms"`
}

func (AttemptRound) TableName() string {
	return "attempt_rounds"
}
