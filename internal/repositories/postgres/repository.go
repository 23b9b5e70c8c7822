package postgres

import (
	"context"

	"github.com/skillforge/assessment-service/internal/repositories"
	"gorm.io/gorm"
)

// gormRepository implements repositories.TransactionRepository on a shared
// *gorm.DB. Begin returns a new instance bound to the transaction handle,
// so entity repositories obtained from it all run inside that transaction.
type gormRepository struct {
	db *gorm.DB
	tx bool

	survey   repositories.SurveyRepository
	session  repositories.SessionRepository
	question repositories.QuestionRepository
	answer   repositories.AnswerRepository
	result   repositories.ResultRepository
	attempt  repositories.AttemptRepository
}

func NewRepository(db *gorm.DB) repositories.TransactionRepository {
	return newGormRepository(db, false)
}

func newGormRepository(db *gorm.DB, tx bool) *gormRepository {
	return &gormRepository{
		db:       db,
		tx:       tx,
		survey:   NewSurveyPostgreSQL(db),
		session:  NewSessionPostgreSQL(db),
		question: NewQuestionPostgreSQL(db),
		answer:   NewAnswerPostgreSQL(db),
		result:   NewResultPostgreSQL(db),
		attempt:  NewAttemptPostgreSQL(db),
	}
}

func (r *gormRepository) Survey() repositories.SurveyRepository     { return r.survey }
func (r *gormRepository) Session() repositories.SessionRepository   { return r.session }
func (r *gormRepository) Question() repositories.QuestionRepository { return r.question }
func (r *gormRepository) Answer() repositories.AnswerRepository     { return r.answer }
func (r *gormRepository) Result() repositories.ResultRepository     { return r.result }
func (r *gormRepository) Attempt() repositories.AttemptRepository   { return r.attempt }

func (r *gormRepository) Begin(ctx context.Context) (repositories.TransactionRepository, error) {
	tx := r.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}
	return newGormRepository(tx, true), nil
}

func (r *gormRepository) Commit(ctx context.Context) error {
	if !r.tx {
		return nil
	}
	return r.db.Commit().Error
}

func (r *gormRepository) Rollback(ctx context.Context) error {
	if !r.tx {
		return nil
	}
	return r.db.Rollback().Error
}
