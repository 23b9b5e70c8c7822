package generator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/skillforge/assessment-service/internal/models"
)

// Request describes one round's generation order. CategoryWeights is the
// per-category slot allocation for adaptive rounds; empty for round 1.
type Request struct {
	Survey          *models.ProfileSurvey
	Round           int
	QuestionCount   int
	Difficulty      int
	CategoryWeights map[string]int

	// PriorRoundContext summarizes round-1 performance so the generator can
	// avoid repeats and target weak areas. Nil for round 1.
	PriorRoundContext *PriorRoundContext
}

type PriorRoundContext struct {
	Score           float64
	WrongCategories map[string]int
}

// GeneratedQuestion is the structured item returned by the collaborator.
type GeneratedQuestion struct {
	Kind        models.QuestionKind `json:"kind"`
	Prompt      string              `json:"prompt"`
	Choices     []string            `json:"choices,omitempty"`
	CorrectKey  string              `json:"correct_key,omitempty"`
	Keywords    []string            `json:"keywords,omitempty"`
	Explanation string              `json:"explanation"`
	Difficulty  int                 `json:"difficulty"`
	Category    string              `json:"category"`
}

// QuestionGenerator is the opaque item-generation collaborator. It returns
// exactly req.QuestionCount questions or an error; partial batches are
// rejected by implementations, never passed through.
type QuestionGenerator interface {
	Generate(ctx context.Context, req Request) ([]GeneratedQuestion, error)
}

// ErrShortBatch signals the collaborator returned fewer questions than
// requested. Treated the same as an outright failure by callers.
var ErrShortBatch = errors.New("generator returned fewer questions than requested")

// RetryingGenerator retries a failed generation once after a fixed backoff.
// One retry only: generation is expensive and the caller surfaces a
// structured error to the client anyway.
type RetryingGenerator struct {
	inner   QuestionGenerator
	backoff time.Duration
}

func WithRetry(inner QuestionGenerator, backoff time.Duration) *RetryingGenerator {
	return &RetryingGenerator{inner: inner, backoff: backoff}
}

func (g *RetryingGenerator) Generate(ctx context.Context, req Request) ([]GeneratedQuestion, error) {
	questions, err := g.inner.Generate(ctx, req)
	if err == nil {
		return questions, nil
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(g.backoff):
	}

	questions, retryErr := g.inner.Generate(ctx, req)
	if retryErr != nil {
		return nil, fmt.Errorf("generation failed after retry: %w", retryErr)
	}
	return questions, nil
}
