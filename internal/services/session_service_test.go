package services

import (
	"context"
	"testing"
	"time"

	"github.com/skillforge/assessment-service/internal/events"
	"github.com/skillforge/assessment-service/internal/models"
	"github.com/skillforge/assessment-service/internal/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startRound1(t *testing.T, env *testEnv, learnerID string) *StartRoundResponse {
	t.Helper()
	survey := env.createSurvey(t, learnerID, models.LevelIntermediate)

	resp, err := env.manager.Session().StartRound(context.Background(), &StartRoundRequest{
		LearnerID: learnerID,
		SurveyID:  survey.ID,
		Round:     models.RoundFirst,
	})
	require.NoError(t, err)
	return resp
}

// answerAll autosaves one answer per question; selected decides right or
// wrong against the mock generator's fixed "A" key.
func answerAll(t *testing.T, env *testEnv, sessionID uint, questions []models.QuestionView, selected func(i int) string) {
	t.Helper()
	for i, q := range questions {
		_, err := env.manager.Autosave().SaveAnswer(context.Background(), sessionID, &SaveAnswerRequest{
			QuestionID:     q.ID,
			Payload:        models.AnswerPayload{Selected: selected(i)},
			ResponseTimeMS: 1500,
		})
		require.NoError(t, err)
	}
}

func completeRound(t *testing.T, env *testEnv, sessionID uint, questions []models.QuestionView, selected func(i int) string) *RoundResultResponse {
	t.Helper()
	answerAll(t, env, sessionID, questions, selected)
	result, err := env.manager.Scoring().FinalizeRound(context.Background(), sessionID)
	require.NoError(t, err)
	return result
}

func TestSessionService_StartRound_FirstRound(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	survey := env.createSurvey(t, "learner-1", models.LevelBeginner)

	resp, err := env.manager.Session().StartRound(ctx, &StartRoundRequest{
		LearnerID: "learner-1",
		SurveyID:  survey.ID,
		Round:     models.RoundFirst,
	})
	require.NoError(t, err)

	assert.Equal(t, models.RoundFirst, resp.Round)
	// Beginner starts one step below the default difficulty.
	assert.Equal(t, 1, resp.Difficulty)
	assert.Equal(t, int64(1200000), resp.TimeLimitMS)
	require.Len(t, resp.Questions, 5)
	for i, q := range resp.Questions {
		assert.Equal(t, i, q.Position)
		assert.NotZero(t, q.ID)
	}

	session, err := env.manager.Session().GetByID(ctx, resp.SessionID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionCreated, session.Status)
	assert.Nil(t, session.StartedAt)

	published := env.publisher.GetPublishedEvents()
	require.Len(t, published, 1)
	assert.Equal(t, events.EventSessionCreated, published[0].Type)
}

func TestSessionService_StartRound_SecondBeforeFirst(t *testing.T) {
	env := newTestEnv()
	survey := env.createSurvey(t, "learner-1", models.LevelIntermediate)

	_, err := env.manager.Session().StartRound(context.Background(), &StartRoundRequest{
		LearnerID:      "learner-1",
		SurveyID:       survey.ID,
		Round:          models.RoundSecond,
		AdaptiveParams: &AdaptiveParams{Difficulty: 3},
	})
	assert.ErrorIs(t, err, ErrInvalidRound)
}

func TestSessionService_StartRound_SecondRound(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	round1 := startRound1(t, env, "learner-1")
	result := completeRound(t, env, round1.SessionID, round1.Questions, func(i int) string {
		return "A" // all correct
	})

	t.Run("missing adaptive params rejected", func(t *testing.T) {
		_, err := env.manager.Session().StartRound(ctx, &StartRoundRequest{
			LearnerID: "learner-1",
			SurveyID:  round1Survey(t, env, round1.SessionID),
			Round:     models.RoundSecond,
		})
		assert.ErrorIs(t, err, ErrAdaptiveParamsMiss)
	})

	params := env.manager.Adaptive().PlanNextRound(result, round1.Difficulty)

	resp, err := env.manager.Session().StartRound(ctx, &StartRoundRequest{
		LearnerID:      "learner-1",
		SurveyID:       round1Survey(t, env, round1.SessionID),
		Round:          models.RoundSecond,
		AdaptiveParams: params,
	})
	require.NoError(t, err)

	// Perfect round 1 raises difficulty by one step.
	assert.Equal(t, round1.Difficulty+1, resp.Difficulty)

	session, err := env.manager.Session().GetByID(ctx, resp.SessionID)
	require.NoError(t, err)
	require.NotNil(t, session.PrevSessionID)
	assert.Equal(t, round1.SessionID, *session.PrevSessionID)

	// The generator saw the second round's difficulty and prior context.
	last := env.gen.Requests[len(env.gen.Requests)-1]
	assert.Equal(t, models.RoundSecond, last.Round)
	assert.Equal(t, resp.Difficulty, last.Difficulty)
	require.NotNil(t, last.PriorRoundContext)
	assert.Equal(t, float64(100), last.PriorRoundContext.Score)
}

func round1Survey(t *testing.T, env *testEnv, sessionID uint) uint {
	t.Helper()
	session, err := env.manager.Session().GetByID(context.Background(), sessionID)
	require.NoError(t, err)
	return session.SurveyID
}

func TestSessionService_StartRound_GenerationFailure(t *testing.T) {
	env := newTestEnv()
	survey := env.createSurvey(t, "learner-1", models.LevelIntermediate)
	env.gen.FailTimes = 1

	_, err := env.manager.Session().StartRound(context.Background(), &StartRoundRequest{
		LearnerID: "learner-1",
		SurveyID:  survey.ID,
		Round:     models.RoundFirst,
	})
	assert.ErrorIs(t, err, ErrGenerationFailed)

	// Nothing persisted for the failed round.
	sessions, _, err := env.repo.Session().List(context.Background(), repositories.SessionFilters{})
	require.NoError(t, err)
	assert.Empty(t, sessions)
}

func TestSessionService_StartRound_SurveyOwnership(t *testing.T) {
	env := newTestEnv()
	survey := env.createSurvey(t, "learner-1", models.LevelIntermediate)

	_, err := env.manager.Session().StartRound(context.Background(), &StartRoundRequest{
		LearnerID: "someone-else",
		SurveyID:  survey.ID,
		Round:     models.RoundFirst,
	})
	assert.ErrorIs(t, err, ErrSurveyNotOwned)
}

func TestSessionService_PauseResume(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	round1 := startRound1(t, env, "learner-1")
	sessionID := round1.SessionID

	require.NoError(t, env.manager.Session().MarkStarted(ctx, sessionID))

	t.Run("pause commits elapsed time", func(t *testing.T) {
		// Backdate the start so elapsed time is observable.
		backdateStart(t, env, sessionID, 90*time.Second)

		require.NoError(t, env.manager.Session().Pause(ctx, sessionID))

		session, err := env.manager.Session().GetByID(ctx, sessionID)
		require.NoError(t, err)
		assert.Equal(t, models.SessionPaused, session.Status)
		assert.GreaterOrEqual(t, session.ElapsedMS, int64(90000))
		assert.NotNil(t, session.PausedAt)
	})

	t.Run("pause is idempotent", func(t *testing.T) {
		require.NoError(t, env.manager.Session().Pause(ctx, sessionID))
	})

	t.Run("resume restarts the clock without resetting it", func(t *testing.T) {
		before, err := env.manager.Session().GetByID(ctx, sessionID)
		require.NoError(t, err)

		status, err := env.manager.Session().Resume(ctx, sessionID)
		require.NoError(t, err)
		assert.False(t, status.Exceeded)
		assert.GreaterOrEqual(t, status.ElapsedMS, before.ElapsedMS)

		session, err := env.manager.Session().GetByID(ctx, sessionID)
		require.NoError(t, err)
		assert.Equal(t, models.SessionInProgress, session.Status)
		assert.Nil(t, session.PausedAt)
	})

	t.Run("resume of a running session fails", func(t *testing.T) {
		_, err := env.manager.Session().Resume(ctx, sessionID)
		assert.ErrorIs(t, err, ErrSessionNotPaused)
	})
}

// Running out the time budget is a soft pause, not forfeiture: an
// explicit resume continues the round in overtime, saves land again, and
// the advisory time check no longer re-pauses the session.
func TestSessionService_Resume_ExhaustedBudget(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	round1 := startRound1(t, env, "learner-1")
	sessionID := round1.SessionID

	require.NoError(t, env.manager.Session().MarkStarted(ctx, sessionID))
	backdateStart(t, env, sessionID, 21*time.Minute)

	status, err := env.manager.Session().CheckTimeLimit(ctx, sessionID)
	require.NoError(t, err)
	require.True(t, status.Exceeded)

	status, err = env.manager.Session().Resume(ctx, sessionID)
	require.NoError(t, err)
	assert.True(t, status.Exceeded)

	session, err := env.manager.Session().GetByID(ctx, sessionID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionInProgress, session.Status)
	assert.True(t, session.Overtime)

	_, err = env.manager.Autosave().SaveAnswer(ctx, sessionID, &SaveAnswerRequest{
		QuestionID:     round1.Questions[0].ID,
		Payload:        models.AnswerPayload{Selected: "A"},
		ResponseTimeMS: 900,
	})
	require.NoError(t, err)

	status, err = env.manager.Session().CheckTimeLimit(ctx, sessionID)
	require.NoError(t, err)
	assert.True(t, status.Exceeded)

	session, err = env.manager.Session().GetByID(ctx, sessionID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionInProgress, session.Status)
}

func TestSessionService_CheckTimeLimit_AutoPause(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	round1 := startRound1(t, env, "learner-1")
	sessionID := round1.SessionID

	require.NoError(t, env.manager.Session().MarkStarted(ctx, sessionID))
	backdateStart(t, env, sessionID, 21*time.Minute)

	status, err := env.manager.Session().CheckTimeLimit(ctx, sessionID)
	require.NoError(t, err)
	assert.True(t, status.Exceeded)
	assert.Negative(t, status.RemainingMS)

	session, err := env.manager.Session().GetByID(ctx, sessionID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionPaused, session.Status)
}

func backdateStart(t *testing.T, env *testEnv, sessionID uint, by time.Duration) {
	t.Helper()
	session, err := env.repo.Session().GetByID(context.Background(), sessionID)
	require.NoError(t, err)
	started := time.Now().Add(-by)
	session.StartedAt = &started
	require.NoError(t, env.repo.Session().Update(context.Background(), session))
}
