package events

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventSessionCreated   EventType = "assessment.session.created"
	EventRoundCompleted   EventType = "assessment.round.completed"
	EventAttemptFinalized EventType = "assessment.attempt.finalized"
)

const (
	eventSource  = "assessment-service"
	eventVersion = "1.0"
)

// AssessmentEvent is the envelope published for every lifecycle change.
// Downstream collaborators (notification service, analytics, the
// abandonment reaper) consume these from the lifecycle topic.
type AssessmentEvent struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	Source    string      `json:"source"`
	Version   string      `json:"version"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

func newEvent(eventType EventType, data interface{}) *AssessmentEvent {
	return &AssessmentEvent{
		ID:        uuid.NewString(),
		Type:      eventType,
		Source:    eventSource,
		Version:   eventVersion,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

type SessionCreatedEvent struct {
	SessionID  uint   `json:"session_id"`
	LearnerID  string `json:"learner_id"`
	Round      int    `json:"round"`
	Difficulty int    `json:"difficulty"`
	Questions  int    `json:"questions"`
}

func NewSessionCreatedEvent(data SessionCreatedEvent) *AssessmentEvent {
	return newEvent(EventSessionCreated, data)
}

type RoundCompletedEvent struct {
	SessionID    uint    `json:"session_id"`
	LearnerID    string  `json:"learner_id"`
	Round        int     `json:"round"`
	Score        float64 `json:"score"`
	CorrectCount int     `json:"correct_count"`
	TotalCount   int     `json:"total_count"`
}

func NewRoundCompletedEvent(data RoundCompletedEvent) *AssessmentEvent {
	return newEvent(EventRoundCompleted, data)
}

type AttemptFinalizedEvent struct {
	AttemptID  uint    `json:"attempt_id"`
	LearnerID  string  `json:"learner_id"`
	FinalScore float64 `json:"final_score"`
	Grade      string  `json:"grade"`
	Rank       int     `json:"rank"`
	Percentile float64 `json:"percentile"`
}

func NewAttemptFinalizedEvent(data AttemptFinalizedEvent) *AssessmentEvent {
	return newEvent(EventAttemptFinalized, data)
}
