package generator

import (
	"context"
	"testing"
	"time"

	"github.com/skillforge/assessment-service/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRequest(count int) Request {
	return Request{
		Survey: &models.ProfileSurvey{
			LearnerID: "learner-1",
			Level:     models.LevelIntermediate,
		},
		Round:         models.RoundFirst,
		QuestionCount: count,
		Difficulty:    2,
	}
}

func TestMockGenerator_HonorsCategoryWeights(t *testing.T) {
	gen := NewMockGenerator()

	req := testRequest(5)
	req.CategoryWeights = map[string]int{"LLM": 3, "RAG": 2}

	questions, err := gen.Generate(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, questions, 5)

	counts := map[string]int{}
	for _, q := range questions {
		counts[q.Category]++
	}
	assert.Equal(t, 3, counts["LLM"])
	assert.Equal(t, 2, counts["RAG"])
}

func TestMockGenerator_ShortBatch(t *testing.T) {
	gen := NewMockGenerator()
	gen.Short = true

	_, err := gen.Generate(context.Background(), testRequest(5))
	assert.ErrorIs(t, err, ErrShortBatch)
}

func TestRetryingGenerator(t *testing.T) {
	t.Run("retries once after failure", func(t *testing.T) {
		inner := NewMockGenerator()
		inner.FailTimes = 1
		gen := WithRetry(inner, time.Millisecond)

		questions, err := gen.Generate(context.Background(), testRequest(5))
		require.NoError(t, err)
		assert.Len(t, questions, 5)
		assert.Len(t, inner.Requests, 2)
	})

	t.Run("gives up after the second failure", func(t *testing.T) {
		inner := NewMockGenerator()
		inner.FailTimes = 2
		gen := WithRetry(inner, time.Millisecond)

		_, err := gen.Generate(context.Background(), testRequest(5))
		require.Error(t, err)
		assert.Len(t, inner.Requests, 2)
	})

	t.Run("cancelled context stops the retry", func(t *testing.T) {
		inner := NewMockGenerator()
		inner.FailTimes = 2
		gen := WithRetry(inner, time.Minute)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := gen.Generate(ctx, testRequest(5))
		assert.ErrorIs(t, err, context.Canceled)
		assert.Len(t, inner.Requests, 1)
	})
}
