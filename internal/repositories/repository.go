package repositories

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// Repository aggregates the per-entity repositories behind one handle so
// services can take a single dependency.
type Repository interface {
	Survey() SurveyRepository
	Session() SessionRepository
	Question() QuestionRepository
	Answer() AnswerRepository
	Result() ResultRepository
	Attempt() AttemptRepository
}

// TransactionRepository is implemented by repositories that can scope all
// entity repositories to a single database transaction.
type TransactionRepository interface {
	Repository
	Begin(ctx context.Context) (TransactionRepository, error)
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// IsNotFoundError reports whether err is the storage layer's record-not-found.
func IsNotFoundError(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
