package services

import (
	"context"
	"testing"

	"github.com/skillforge/assessment-service/internal/events"
	"github.com/skillforge/assessment-service/internal/models"
	"github.com/skillforge/assessment-service/internal/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// completeBothRounds runs a full two-round assessment and returns the two
// round scores. round1Wrong / round2Wrong control how many questions are
// answered incorrectly per round.
func completeBothRounds(t *testing.T, env *testEnv, learnerID string, round1Wrong, round2Wrong int) (float64, float64) {
	t.Helper()
	ctx := context.Background()

	round1 := startRound1(t, env, learnerID)
	result1 := completeRound(t, env, round1.SessionID, round1.Questions, func(i int) string {
		if i < round1Wrong {
			return "B"
		}
		return "A"
	})

	params := env.manager.Adaptive().PlanNextRound(result1, round1.Difficulty)
	round2, err := env.manager.Session().StartRound(ctx, &StartRoundRequest{
		LearnerID:      learnerID,
		SurveyID:       round1Survey(t, env, round1.SessionID),
		Round:          models.RoundSecond,
		AdaptiveParams: params,
	})
	require.NoError(t, err)

	result2 := completeRound(t, env, round2.SessionID, round2.Questions, func(i int) string {
		if i < round2Wrong {
			return "B"
		}
		return "A"
	})

	return result1.Score, result2.Score
}

func TestRankingService_FinalizeAttempt_Weighted(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	score1, score2 := completeBothRounds(t, env, "learner-1", 2, 1)
	require.Equal(t, float64(60), score1)
	require.Equal(t, float64(80), score2)

	attempt, err := env.manager.Ranking().FinalizeAttempt(ctx, "learner-1")
	require.NoError(t, err)

	// 0.4*60 + 0.6*80
	assert.InDelta(t, 72.0, attempt.FinalScore, 0.001)
	assert.Equal(t, models.GradeC, attempt.Grade)
	assert.Equal(t, 1, attempt.Rank)
	assert.Equal(t, 1, attempt.CohortSize)
	assert.Equal(t, models.ConfidenceLow, attempt.PercentileConfidence)

	require.Len(t, attempt.Rounds, 2)
	assert.Equal(t, models.RoundFirst, attempt.Rounds[0].Round)
	assert.Equal(t, score1, attempt.Rounds[0].Score)
	assert.Equal(t, models.RoundSecond, attempt.Rounds[1].Round)
	assert.Equal(t, score2, attempt.Rounds[1].Score)

	var finalized int
	for _, e := range env.publisher.GetPublishedEvents() {
		if e.Type == events.EventAttemptFinalized {
			finalized++
		}
	}
	assert.Equal(t, 1, finalized)
}

func TestRankingService_FinalizeAttempt_Round2Dominant(t *testing.T) {
	cfg := testConfig()
	cfg.Ranking.Strategy = StrategyRound2Dominant
	env := newTestEnvWith(cfg)

	_, score2 := completeBothRounds(t, env, "learner-1", 3, 0)
	require.Equal(t, float64(100), score2)

	attempt, err := env.manager.Ranking().FinalizeAttempt(context.Background(), "learner-1")
	require.NoError(t, err)

	assert.Equal(t, float64(100), attempt.FinalScore)
	assert.Equal(t, models.GradeA, attempt.Grade)
}

func TestRankingService_FinalizeAttempt_Idempotent(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	completeBothRounds(t, env, "learner-1", 0, 0)

	first, err := env.manager.Ranking().FinalizeAttempt(ctx, "learner-1")
	require.NoError(t, err)
	second, err := env.manager.Ranking().FinalizeAttempt(ctx, "learner-1")
	require.NoError(t, err)

	assert.Equal(t, first.AttemptID, second.AttemptID)

	attempts, total, err := env.manager.Ranking().ListAttempts(ctx, "learner-1", repositories.AttemptFilters{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, attempts, 1)
}

func TestRankingService_FinalizeAttempt_RequiresBothRounds(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	t.Run("no rounds at all", func(t *testing.T) {
		_, err := env.manager.Ranking().FinalizeAttempt(ctx, "learner-1")
		assert.ErrorIs(t, err, ErrRoundNotFinalized)
	})

	t.Run("only round 1 finalized", func(t *testing.T) {
		round1 := startRound1(t, env, "learner-1")
		completeRound(t, env, round1.SessionID, round1.Questions, func(i int) string { return "A" })

		_, err := env.manager.Ranking().FinalizeAttempt(ctx, "learner-1")
		assert.ErrorIs(t, err, ErrRoundNotFinalized)
	})
}

func TestRankingService_RankAndPercentile(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	// Three learners with distinct scores: 100, 60, and 20 correct rates.
	completeBothRounds(t, env, "top", 0, 0)
	completeBothRounds(t, env, "mid", 2, 2)
	completeBothRounds(t, env, "low", 4, 4)

	top, err := env.manager.Ranking().FinalizeAttempt(ctx, "top")
	require.NoError(t, err)
	mid, err := env.manager.Ranking().FinalizeAttempt(ctx, "mid")
	require.NoError(t, err)
	low, err := env.manager.Ranking().FinalizeAttempt(ctx, "low")
	require.NoError(t, err)

	assert.Equal(t, 1, top.Rank)
	assert.Equal(t, 2, mid.Rank)
	assert.Equal(t, 3, low.Rank)

	// Percentile counts lower-scoring attempts already in the window, so
	// mid (finalized after top) can only be at or above low's.
	assert.GreaterOrEqual(t, mid.Percentile, low.Percentile)
	assert.Equal(t, 3, low.CohortSize)

	// Cohort of three is under the minimum; rank still reported.
	assert.Equal(t, models.ConfidenceLow, low.PercentileConfidence)
}

func TestRankingService_GradeBands(t *testing.T) {
	tests := []struct {
		score float64
		want  models.Grade
	}{
		{95, models.GradeA},
		{90, models.GradeA},
		{85, models.GradeB},
		{75, models.GradeC},
		{65, models.GradeD},
		{59.9, models.GradeF},
		{0, models.GradeF},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, gradeFor(tt.score), "score %.1f", tt.score)
	}
}

func TestRankingService_GetAttempt(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	completeBothRounds(t, env, "learner-1", 0, 0)
	created, err := env.manager.Ranking().FinalizeAttempt(ctx, "learner-1")
	require.NoError(t, err)

	fetched, err := env.manager.Ranking().GetAttempt(ctx, created.AttemptID)
	require.NoError(t, err)
	assert.Equal(t, created.FinalScore, fetched.FinalScore)
	assert.Len(t, fetched.Rounds, 2)

	_, err = env.manager.Ranking().GetAttempt(ctx, 99999)
	assert.ErrorIs(t, err, ErrAttemptNotFound)
}
