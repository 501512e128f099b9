package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/pathfinder/internal/content"
	"github.com/hpungsan/pathfinder/internal/errors"
)

func TestSource_InsertGetClampsWeight(t *testing.T) {
	ctx := context.Background()
	database := openTestDB(t)
	r := mustRealm(t, database, "R")

	s := mustSource(t, database, &r.ID, "héllo", 9)
	require.Equal(t, 5.0, s.Weight)

	got, err := GetSource(ctx, database, s.ID)
	require.NoError(t, err)
	require.Equal(t, 5.0, got.Weight)
	require.Equal(t, content.SourceText, got.SourceType)
	require.Equal(t, r.ID, *got.RealmID)
	require.NotNil(t, got.Metadata)
}

func TestSource_MetadataRoundTrip(t *testing.T) {
	ctx := context.Background()
	database := openTestDB(t)
	s := mustSource(t, database, nil, "body", 1)

	md := map[string]any{"original_text_id": "t-1", "nested": map[string]any{"n": 2.0}}
	require.NoError(t, UpdateSourceMetadata(ctx, database, s.ID, md, 5))

	got, err := GetSource(ctx, database, s.ID)
	require.NoError(t, err)
	require.Equal(t, "t-1", got.Metadata["original_text_id"])
	require.Equal(t, map[string]any{"n": 2.0}, got.Metadata["nested"])

	found, err := FindSourceByMetadata(ctx, database, "original_text_id", "t-1")
	require.NoError(t, err)
	require.NotNil(t, found)
	require.Equal(t, s.ID, found.ID)

	missing, err := FindSourceByMetadata(ctx, database, "original_text_id", "t-2")
	require.NoError(t, err)
	require.Nil(t, missing)
}

func TestGetSources_PreservesOrderAndDropsMissing(t *testing.T) {
	ctx := context.Background()
	database := openTestDB(t)
	a := mustSource(t, database, nil, "a", 1)
	b := mustSource(t, database, nil, "b", 1)

	got, err := GetSources(ctx, database, []string{b.ID, "nope", a.ID, b.ID})
	require.NoError(t, err)
	require.Equal(t, []string{b.ID, a.ID}, content.IDs(got))

	none, err := GetSources(ctx, database, nil)
	require.NoError(t, err)
	require.Empty(t, none)
}

func TestListSources_Filters(t *testing.T) {
	ctx := context.Background()
	database := openTestDB(t)
	r := mustRealm(t, database, "R")
	mustSource(t, database, &r.ID, "one", 1)
	mustSource(t, database, &r.ID, "two", 2)
	mustSource(t, database, nil, "loose", 1)

	inRealm, err := ListSources(ctx, database, SourceFilter{RealmID: &r.ID})
	require.NoError(t, err)
	require.Len(t, inRealm, 2)

	unassigned, err := ListSources(ctx, database, SourceFilter{Unassigned: true})
	require.NoError(t, err)
	require.Len(t, unassigned, 1)
	require.Equal(t, "loose", unassigned[0].Content)

	reflection := content.SourceReflection
	none, err := ListSources(ctx, database, SourceFilter{SourceType: &reflection})
	require.NoError(t, err)
	require.Empty(t, none)

	page, err := ListSources(ctx, database, SourceFilter{Limit: 2, Offset: 2})
	require.NoError(t, err)
	require.Len(t, page, 1)

	total, err := CountSources(ctx, database, SourceFilter{})
	require.NoError(t, err)
	require.Equal(t, 3, total)
}

func TestRealmContentChars(t *testing.T) {
	ctx := context.Background()
	database := openTestDB(t)
	r := mustRealm(t, database, "R")

	total, err := RealmContentChars(ctx, database, r.ID)
	require.NoError(t, err)
	require.Equal(t, 0, total)

	mustSource(t, database, &r.ID, "abc", 1)
	mustSource(t, database, &r.ID, "dé", 1)
	mustSource(t, database, nil, "elsewhere", 1)

	total, err = RealmContentChars(ctx, database, r.ID)
	require.NoError(t, err)
	require.Equal(t, 5, total)
}

func TestUpdateSource(t *testing.T) {
	ctx := context.Background()
	database := openTestDB(t)
	r := mustRealm(t, database, "R")
	s := mustSource(t, database, nil, "old", 1)

	s.Content = "new content"
	s.Title = strPtr("Title")
	s.RealmID = &r.ID
	s.SourceType = content.SourceDocument
	s.Weight = -2
	require.NoError(t, UpdateSource(ctx, database, s))

	got, err := GetSource(ctx, database, s.ID)
	require.NoError(t, err)
	require.Equal(t, "new content", got.Content)
	require.Equal(t, "Title", *got.Title)
	require.Equal(t, content.SourceDocument, got.SourceType)
	require.Equal(t, 0.0, got.Weight)

	total, err := RealmContentChars(ctx, database, r.ID)
	require.NoError(t, err)
	require.Equal(t, 11, total)
}

func TestUpdateSourceWeight(t *testing.T) {
	ctx := context.Background()
	database := openTestDB(t)
	s := mustSource(t, database, nil, "x", 1)

	require.NoError(t, UpdateSourceWeight(ctx, database, s.ID, 3.5, 10))
	got, err := GetSource(ctx, database, s.ID)
	require.NoError(t, err)
	require.Equal(t, 3.5, got.Weight)

	err = UpdateSourceWeight(ctx, database, "missing", 1, 10)
	require.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestDeleteSource_RemovesQueueEntries(t *testing.T) {
	ctx := context.Background()
	database := openTestDB(t)
	r := mustRealm(t, database, "R")
	s := mustSource(t, database, &r.ID, "x", 1)
	mustQueue(t, database, r.ID, s.ID)

	require.NoError(t, DeleteSource(ctx, database, s.ID))

	_, err := GetSource(ctx, database, s.ID)
	require.True(t, errors.Is(err, errors.ErrNotFound))
	n, err := CountPendingQueue(ctx, database, r.ID)
	require.NoError(t, err)
	require.Equal(t, 0, n)

	err = DeleteSource(ctx, database, s.ID)
	require.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestSearchSources(t *testing.T) {
	ctx := context.Background()
	database := openTestDB(t)
	r := mustRealm(t, database, "R")
	mustSource(t, database, &r.ID, "I love Hiking in the hills", 1)
	mustSource(t, database, nil, "hiking alone", 1)
	mustSource(t, database, &r.ID, "100% effort", 1)

	all, err := SearchSources(ctx, database, "hiking", nil, 0)
	require.NoError(t, err)
	require.Len(t, all, 2)

	scoped, err := SearchSources(ctx, database, "hiking", &r.ID, 0)
	require.NoError(t, err)
	require.Len(t, scoped, 1)

	literal, err := SearchSources(ctx, database, "0%", nil, 0)
	require.NoError(t, err)
	require.Len(t, literal, 1)

	limited, err := SearchSources(ctx, database, "i", nil, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
}
