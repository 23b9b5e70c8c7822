package models

import (
	"time"
)

type SessionStatus string

const (
	SessionCreated    SessionStatus = "created"
	SessionInProgress SessionStatus = "in_progress"
	SessionPaused     SessionStatus = "paused"
	SessionCompleted  SessionStatus = "completed"
	SessionAbandoned  SessionStatus = "abandoned"
)

const (
	RoundFirst  = 1
	RoundSecond = 2
)

// TestSession is one round's working state. A session belongs to exactly
// one round; round 2 is always a new session referencing round 1 via
// PrevSessionID, never a mutation of the round-1 session.
type TestSession struct {
	ID        uint   `json:"id" gorm:"primaryKey"`
	LearnerID string `json:"learner_id" gorm:"not null;index;size:255"`
	SurveyID  uint   `json:"survey_id" gorm:"not null;index"`
	Round     int    `json:"round" gorm:"not null" validate:"min=1,max=2"`

	// Round-2 sessions reference the round-1 session they were planned from.
	PrevSessionID *uint `json:"prev_session_id" gorm:"index"`

	Status SessionStatus `json:"status" gorm:"default:created;index"`

	// Difficulty the round was generated at (1..5).
	Difficulty int `json:"difficulty" gorm:"not null"`

	TimeLimitMS int64 `json:"time_limit_ms" gorm:"not null"`

	// StartedAt is set on the first autosaved answer, not at creation:
	// learners may abandon a generated session without ever starting it.
	StartedAt *time.Time `json:"started_at"`
	PausedAt  *time.Time `json:"paused_at"`

	// Active time committed so far; updated when the session pauses.
	ElapsedMS int64 `json:"elapsed_ms"`

	// Set when the learner explicitly resumes after the time budget ran
	// out: exceeding the limit is a soft pause, not forfeiture, and an
	// overtime session accepts saves until the round is finalized.
	Overtime bool `json:"overtime"`

	CompletedAt *time.Time `json:"completed_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Survey    ProfileSurvey   `json:"-" gorm:"foreignKey:SurveyID"`
	Questions []Question      `json:"questions,omitempty" gorm:"foreignKey:SessionID;constraint:OnDelete:CASCADE"`
	Answers   []AttemptAnswer `json:"-" gorm:"foreignKey:SessionID;constraint:OnDelete:CASCADE"`
}

func (TestSession) TableName() string {
	return "test_sessions"
}

// ElapsedAt returns active wall-clock time consumed by the session as of now.
// Paused spans do not count; the clock restarts from StartedAt on resume.
func (s *TestSession) ElapsedAt(now time.Time) int64 {
	elapsed := s.ElapsedMS
	if s.Status == SessionInProgress && s.StartedAt != nil {
		elapsed += now.Sub(*s.StartedAt).Milliseconds()
	}
	return elapsed
}

// RemainingAt returns remaining time in milliseconds; negative when exceeded.
func (s *TestSession) RemainingAt(now time.Time) int64 {
	return s.TimeLimitMS - s.ElapsedAt(now)
}

type TimeStatus struct {
	Exceeded    bool  `json:"exceeded"`
	ElapsedMS   int64 `json:"elapsed_ms"`
	RemainingMS int64 `json:"remaining_ms"`
}
