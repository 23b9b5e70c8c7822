package postgres

import (
	"context"

	"github.com/skillforge/assessment-service/internal/models"
	"github.com/skillforge/assessment-service/internal/repositories"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AnswerPostgreSQL struct {
	db *gorm.DB
}

func NewAnswerPostgreSQL(db *gorm.DB) repositories.AnswerRepository {
	return &AnswerPostgreSQL{db: db}
}

// Upsert relies on the (session_id, question_id) unique index: the insert
// conflicts into an update that replaces the payload, resets the grade to
// ungraded and bumps the revision. Commit order decides the winner between
// two concurrent saves for the same question.
func (a *AnswerPostgreSQL) Upsert(ctx context.Context, answer *models.AttemptAnswer) error {
	return a.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "session_id"}, {Name: "question_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"payload":          answer.Payload,
			"response_time_ms": answer.ResponseTimeMS,
			"saved_at":         answer.SavedAt,
			"correctness":      models.AnswerUngraded,
			"score":            0,
			"revision":         gorm.Expr("attempt_answers.revision + 1"),
			"updated_at":       answer.SavedAt,
		}),
	}).Create(answer).Error
}

func (a *AnswerPostgreSQL) GetBySessionAndQuestion(ctx context.Context, sessionID, questionID uint) (*models.AttemptAnswer, error) {
	var answer models.AttemptAnswer
	if err := a.db.WithContext(ctx).
		Where("session_id = ? AND question_id = ?", sessionID, questionID).
		First(&answer).Error; err != nil {
		return nil, err
	}
	return &answer, nil
}

func (a *AnswerPostgreSQL) GetBySession(ctx context.Context, sessionID uint) ([]*models.AttemptAnswer, error) {
	var answers []*models.AttemptAnswer
	if err := a.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Find(&answers).Error; err != nil {
		return nil, err
	}
	return answers, nil
}

func (a *AnswerPostgreSQL) UpdateGrade(ctx context.Context, id uint, correctness models.Correctness, score float64) error {
	return a.db.WithContext(ctx).
		Model(&models.AttemptAnswer{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"correctness": correctness,
			"score":       score,
		}).Error
}

func (a *AnswerPostgreSQL) CountGraded(ctx context.Context, sessionID uint) (int64, error) {
	var count int64
	if err := a.db.WithContext(ctx).
		Model(&models.AttemptAnswer{}).
		Where("session_id = ? AND correctness <> ?", sessionID, models.AnswerUngraded).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
