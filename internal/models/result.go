package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// RoundResult is the scored outcome of one (session, round). Results are
// append-only: re-scoring after a corrected answer creates a new row with
// a higher Version, it never overwrites the prior result.
type RoundResult struct {
	ID        uint `json:"id" gorm:"primaryKey"`
	SessionID uint `json:"session_id" gorm:"not null;uniqueIndex:idx_session_version"`
	Round     int  `json:"round" gorm:"not null"`
	Version   int  `json:"version" gorm:"default:1;uniqueIndex:idx_session_version"`

	// Score on the 0-100 scale: CorrectCount / TotalCount * 100.
	Score        float64 `json:"score" gorm:"not null"`
	RawPoints    float64 `json:"raw_points" gorm:"not null"`
	CorrectCount int     `json:"correct_count" gorm:"not null"`
	TotalCount   int     `json:"total_count" gorm:"not null"`

	// Category -> miss count for incorrect answers.
	WrongCategories datatypes.JSON `json:"wrong_categories" gorm:"type:jsonb"`

	TimeSpentMS int64     `json:"time_spent_ms"`
	CreatedAt   time.Time `json:"created_at"`
}

func (RoundResult) TableName() string {
	return "round_results"
}

func (r *RoundResult) MissMap() (map[string]int, error) {
	misses := map[string]int{}
	if len(r.WrongCategories) == 0 {
		return misses, nil
	}
	if err := json.Unmarshal(r.WrongCategories, &misses); err != nil {
		return nil, err
	}
	return misses, nil
}

func (r *RoundResult) SetMissMap(misses map[string]int) error {
	data, err := json.Marshal(misses)
	if err != nil {
		return err
	}
	r.WrongCategories = data
	return nil
}
