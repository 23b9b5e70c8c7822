package models

import (
	"time"

	"gorm.io/datatypes"
)

type SkillLevel string

const (
	LevelBeginner     SkillLevel = "beginner"
	LevelIntermediate SkillLevel = "intermediate"
	LevelAdvanced     SkillLevel = "advanced"
)

// ProfileSurvey is an immutable snapshot of a learner's self-reported
// background at submission time. Surveys are append-only: a learner who
// re-submits gets a new row, existing rows are never updated.
type ProfileSurvey struct {
	ID        uint       `json:"id" gorm:"primaryKey"`
	LearnerID string     `json:"learner_id" gorm:"not null;index;size:255" validate:"required"`
	Level     SkillLevel `json:"level" gorm:"not null;size:20" validate:"required,skill_level"`
	Role      string     `json:"role" gorm:"size:100" validate:"max=100"`

	// Years of experience, self-reported
	Experience int `json:"experience" validate:"min=0,max=60"`

	// Free-form interest tags, e.g. ["LLM", "RAG"]
	Interests datatypes.JSON `json:"interests" gorm:"type:jsonb"`

	CreatedAt time.Time `json:"created_at"`
}

func (ProfileSurvey) TableName() string {
	return "profile_surveys"
}
