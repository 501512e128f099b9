package db

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/pathfinder/internal/content"
	"github.com/hpungsan/pathfinder/internal/errors"
)

func mustJob(t *testing.T, database Querier, realmID string) *content.Job {
	t.Helper()
	now := time.Now().Unix()
	j := &content.Job{
		ID:               newID(t),
		RealmID:          realmID,
		SynthesisType:    content.SynthesisFull,
		Status:           content.JobPending,
		ContentSourceIDs: []string{"s1", "s2"},
		Configuration:    map[string]any{"note": "test"},
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	require.NoError(t, InsertJob(context.Background(), database, j))
	return j
}

func TestJob_Lifecycle(t *testing.T) {
	ctx := context.Background()
	database := openTestDB(t)
	r := mustRealm(t, database, "R")
	j := mustJob(t, database, r.ID)

	got, err := GetJob(ctx, database, j.ID)
	require.NoError(t, err)
	require.Equal(t, content.JobPending, got.Status)
	require.Equal(t, []string{"s1", "s2"}, got.ContentSourceIDs)
	require.Equal(t, "test", got.Configuration["note"])

	ok, err := StartJob(ctx, database, j.ID, 10)
	require.NoError(t, err)
	require.True(t, ok)

	// a second start is a no-op
	ok, err = StartJob(ctx, database, j.ID, 11)
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = CompleteJob(ctx, database, JobResult{
		ID: j.ID, ResultPrompt: "final", QualityAnalysis: map[string]any{"overall_quality": 0.9},
		ProcessingTimeMs: 42, At: 20,
	})
	require.NoError(t, err)
	require.True(t, ok)

	got, err = GetJob(ctx, database, j.ID)
	require.NoError(t, err)
	require.Equal(t, content.JobCompleted, got.Status)
	require.Equal(t, "final", *got.ResultPrompt)
	require.Equal(t, int64(42), *got.ProcessingTimeMs)
	require.Equal(t, int64(20), *got.CompletedAt)
	require.Equal(t, 0.9, got.QualityAnalysis["overall_quality"])

	// terminal states are final
	ok, err = CancelJob(ctx, database, j.ID, 30)
	require.NoError(t, err)
	require.False(t, ok)
	ok, err = FailJob(ctx, database, j.ID, "late failure", 0, 30)
	require.NoError(t, err)
	require.False(t, ok)

	got, err = GetJob(ctx, database, j.ID)
	require.NoError(t, err)
	require.Equal(t, content.JobCompleted, got.Status)
}

func TestJob_CancelPendingPreventsStart(t *testing.T) {
	ctx := context.Background()
	database := openTestDB(t)
	r := mustRealm(t, database, "R")
	j := mustJob(t, database, r.ID)

	ok, err := CancelJob(ctx, database, j.ID, 5)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = StartJob(ctx, database, j.ID, 6)
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = CompleteJob(ctx, database, JobResult{ID: j.ID, ResultPrompt: "x", At: 7})
	require.NoError(t, err)
	require.False(t, ok)

	got, err := GetJob(ctx, database, j.ID)
	require.NoError(t, err)
	require.Equal(t, content.JobCancelled, got.Status)
	require.Nil(t, got.ResultPrompt)
}

func TestJob_Fail(t *testing.T) {
	ctx := context.Background()
	database := openTestDB(t)
	r := mustRealm(t, database, "R")
	j := mustJob(t, database, r.ID)

	_, err := StartJob(ctx, database, j.ID, 1)
	require.NoError(t, err)
	ok, err := FailJob(ctx, database, j.ID, "boom", 12, 2)
	require.NoError(t, err)
	require.True(t, ok)

	got, err := GetJob(ctx, database, j.ID)
	require.NoError(t, err)
	require.Equal(t, content.JobFailed, got.Status)
	require.Equal(t, "boom", *got.ErrorMessage)
}

func TestListJobs(t *testing.T) {
	ctx := context.Background()
	database := openTestDB(t)
	r1 := mustRealm(t, database, "R1")
	r2 := mustRealm(t, database, "R2")
	mustJob(t, database, r1.ID)
	mustJob(t, database, r1.ID)
	mustJob(t, database, r2.ID)

	jobs, err := ListJobs(ctx, database, &r1.ID, 0)
	require.NoError(t, err)
	require.Len(t, jobs, 2)

	all, err := ListJobs(ctx, database, nil, 2)
	require.NoError(t, err)
	require.Len(t, all, 2)

	_, err = GetJob(ctx, database, "missing")
	require.True(t, errors.Is(err, errors.ErrNotFound))
}
