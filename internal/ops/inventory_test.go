package ops

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/pathfinder/internal/content"
	"github.com/hpungsan/pathfinder/internal/errors"
)

func TestContentMap(t *testing.T) {
	env, _ := newTestEnv(t)
	ctx := context.Background()
	r := mustRealm(t, env, "Work")
	mustSource(t, env, &r.ID, "a note", 1)
	mustSource(t, env, &r.ID, "another note", 4)
	_, err := AddSource(ctx, env, AddSourceInput{
		RealmID:        &r.ID,
		SourceType:     "reflection",
		Content:        "Q: why\nA: because",
		Weight:         floatPtr(3),
		AutoSynthesize: boolPtr(false),
	})
	require.NoError(t, err)
	mustSource(t, env, nil, "not in realm", 5)

	out, err := ContentMap(ctx, env, r.ID)
	require.NoError(t, err)

	require.Equal(t, r.ID, out.RealmInfo.ID)
	require.Equal(t, "Work", out.RealmInfo.Name)
	require.Zero(t, out.RealmInfo.PendingBatchCount)

	require.Len(t, out.ContentSources, len(content.AllSourceTypes))
	require.Len(t, out.ContentSources[content.SourceText], 2)
	require.Len(t, out.ContentSources[content.SourceReflection], 1)
	require.NotNil(t, out.ContentSources[content.SourceDocument])
	require.Empty(t, out.ContentSources[content.SourceDocument])

	stats := out.Statistics
	require.Equal(t, 3, stats.TotalSources)
	require.InDelta(t, 8.0, stats.TotalWeight, 1e-9)
	require.InDelta(t, 8.0/3, stats.AverageWeight, 1e-9)
	require.Equal(t, 2, stats.HighPriorityCount)
	require.Equal(t, 2, stats.ByType[content.SourceText])
}

func TestContentMap_EmptyAndMissing(t *testing.T) {
	env, _ := newTestEnv(t)
	ctx := context.Background()
	r := mustRealm(t, env, "Empty")

	out, err := ContentMap(ctx, env, r.ID)
	require.NoError(t, err)
	require.Zero(t, out.Statistics.TotalSources)
	require.Zero(t, out.Statistics.AverageWeight)

	_, err = ContentMap(ctx, env, "missing")
	requireCode(t, err, errors.ErrNotFound)
}
