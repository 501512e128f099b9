package db

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/pathfinder/internal/content"
	"github.com/hpungsan/pathfinder/internal/errors"
)

func TestRealm_InsertGet(t *testing.T) {
	ctx := context.Background()
	database := openTestDB(t)

	r := mustRealm(t, database, "Career")

	got, err := GetRealm(ctx, database, r.ID)
	require.NoError(t, err)
	require.Equal(t, "Career", got.Name)
	require.Equal(t, content.InitialVersion, got.CurrentVersion)
	require.Nil(t, got.SystemPrompt)
	require.Nil(t, got.LastSynthesisAt)
	require.False(t, got.IsDefault)
}

func TestGetRealm_NotFound(t *testing.T) {
	_, err := GetRealm(context.Background(), openTestDB(t), "missing")
	require.True(t, errors.Is(err, errors.ErrNotFound), "got %v", err)
}

func TestDefaultRealm_Unique(t *testing.T) {
	ctx := context.Background()
	database := openTestDB(t)
	now := time.Now().Unix()

	first := &content.Realm{ID: newID(t), Name: "A", IsDefault: true, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, InsertRealm(ctx, database, first))

	second := &content.Realm{ID: newID(t), Name: "B", IsDefault: true, CreatedAt: now, UpdatedAt: now}
	require.Error(t, InsertRealm(ctx, database, second))

	got, err := GetDefaultRealm(ctx, database)
	require.NoError(t, err)
	require.Equal(t, first.ID, got.ID)
}

func TestListRealms_DefaultFirst(t *testing.T) {
	ctx := context.Background()
	database := openTestDB(t)

	mustRealm(t, database, "One")
	now := time.Now().Unix()
	def := &content.Realm{ID: newID(t), Name: content.DefaultRealmName, IsDefault: true, CreatedAt: now + 10, UpdatedAt: now}
	require.NoError(t, InsertRealm(ctx, database, def))

	realms, err := ListRealms(ctx, database)
	require.NoError(t, err)
	require.Len(t, realms, 2)
	require.Equal(t, def.ID, realms[0].ID)
}

func TestApplyRealmSynthesis(t *testing.T) {
	ctx := context.Background()
	database := openTestDB(t)
	r := mustRealm(t, database, "Learning")
	q := 0.8

	v, err := ApplyRealmSynthesis(ctx, database, RealmSynthesis{
		RealmID: r.ID, ExpectedVersion: 1, Prompt: "prompt v1", QualityScore: &q, At: 1000,
	})
	require.NoError(t, err)
	require.Equal(t, 2, v)

	got, err := GetRealm(ctx, database, r.ID)
	require.NoError(t, err)
	require.Equal(t, "prompt v1", got.Prompt())
	require.Equal(t, 2, got.CurrentVersion)
	require.Equal(t, int64(1000), *got.LastSynthesisAt)
	require.InDelta(t, 0.8, *got.QualityScore, 1e-9)

	// nil quality keeps the previous score, older timestamp does not move last_synthesis_at back
	v, err = ApplyRealmSynthesis(ctx, database, RealmSynthesis{
		RealmID: r.ID, ExpectedVersion: 2, Prompt: "prompt v2", At: 500,
	})
	require.NoError(t, err)
	require.Equal(t, 3, v)

	got, err = GetRealm(ctx, database, r.ID)
	require.NoError(t, err)
	require.Equal(t, "prompt v2", got.Prompt())
	require.Equal(t, int64(1000), *got.LastSynthesisAt)
	require.InDelta(t, 0.8, *got.QualityScore, 1e-9)
}

func TestApplyRealmSynthesis_VersionConflict(t *testing.T) {
	ctx := context.Background()
	database := openTestDB(t)
	r := mustRealm(t, database, "Values")

	_, err := ApplyRealmSynthesis(ctx, database, RealmSynthesis{RealmID: r.ID, ExpectedVersion: 3, Prompt: "x", At: 1})
	require.True(t, errors.Is(err, errors.ErrConflict), "got %v", err)

	got, err := GetRealm(ctx, database, r.ID)
	require.NoError(t, err)
	require.Equal(t, content.InitialVersion, got.CurrentVersion)
	require.Nil(t, got.SystemPrompt)

	_, err = ApplyRealmSynthesis(ctx, database, RealmSynthesis{RealmID: "missing", Prompt: "x", At: 1})
	require.True(t, errors.Is(err, errors.ErrNotFound), "got %v", err)
}

func TestUpdateRealmDetails(t *testing.T) {
	ctx := context.Background()
	database := openTestDB(t)
	r := mustRealm(t, database, "Old")

	r.Name = "New"
	r.Description = strPtr("desc")
	r.SynthesisDisabled = true
	require.NoError(t, UpdateRealmDetails(ctx, database, r))

	got, err := GetRealm(ctx, database, r.ID)
	require.NoError(t, err)
	require.Equal(t, "New", got.Name)
	require.Equal(t, "desc", *got.Description)
	require.True(t, got.SynthesisDisabled)

	err = UpdateRealmDetails(ctx, database, &content.Realm{ID: "missing", Name: "x"})
	require.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestDeleteRealm_UnassignsSources(t *testing.T) {
	ctx := context.Background()
	database := openTestDB(t)
	r := mustRealm(t, database, "Temp")
	s := mustSource(t, database, &r.ID, "body", 1)
	mustQueue(t, database, r.ID, s.ID)

	require.NoError(t, DeleteRealm(ctx, database, r.ID))

	_, err := GetRealm(ctx, database, r.ID)
	require.True(t, errors.Is(err, errors.ErrNotFound))

	got, err := GetSource(ctx, database, s.ID)
	require.NoError(t, err)
	require.Nil(t, got.RealmID)

	n, err := CountPendingQueue(ctx, database, r.ID)
	require.NoError(t, err)
	require.Equal(t, 0, n)
}

func TestDeleteRealm_DefaultProtected(t *testing.T) {
	ctx := context.Background()
	database := openTestDB(t)
	now := time.Now().Unix()
	def := &content.Realm{ID: newID(t), Name: content.DefaultRealmName, IsDefault: true, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, InsertRealm(ctx, database, def))

	err := DeleteRealm(ctx, database, def.ID)
	require.True(t, errors.Is(err, errors.ErrInvalidRequest), "got %v", err)

	_, err = GetRealm(ctx, database, def.ID)
	require.NoError(t, err)
}
