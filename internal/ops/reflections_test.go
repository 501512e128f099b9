package ops

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/pathfinder/internal/content"
	"github.com/hpungsan/pathfinder/internal/db"
	"github.com/hpungsan/pathfinder/internal/errors"
)

func TestCreateReflection(t *testing.T) {
	env, _ := newTestEnv(t)
	ctx := context.Background()
	r := mustRealm(t, env, "Work")

	got, err := CreateReflection(ctx, env, CreateReflectionInput{
		RealmID:         &r.ID,
		Question:        "  What energizes you?  ",
		Category:        strPtr("values"),
		ImportanceScore: floatPtr(4),
	})
	require.NoError(t, err)
	require.Equal(t, "What energizes you?", got.Question)
	require.Equal(t, 4.0, got.ImportanceScore)
	require.False(t, got.IsAnswered())

	def, err := CreateReflection(ctx, env, CreateReflectionInput{Question: "Anything else?"})
	require.NoError(t, err)
	require.Equal(t, content.DefaultWeight, def.ImportanceScore)
	require.Nil(t, def.RealmID)

	_, err = CreateReflection(ctx, env, CreateReflectionInput{Question: " "})
	requireCode(t, err, errors.ErrInvalidRequest)
	_, err = CreateReflection(ctx, env, CreateReflectionInput{Question: "q", ImportanceScore: floatPtr(6)})
	requireCode(t, err, errors.ErrInvalidRequest)
	_, err = CreateReflection(ctx, env, CreateReflectionInput{Question: "q", RealmID: strPtr("missing")})
	requireCode(t, err, errors.ErrNotFound)
}

func TestListReflections_AnsweredFilter(t *testing.T) {
	env, _ := newTestEnv(t)
	ctx := context.Background()
	a, err := CreateReflection(ctx, env, CreateReflectionInput{Question: "first"})
	require.NoError(t, err)
	_, err = CreateReflection(ctx, env, CreateReflectionInput{Question: "second"})
	require.NoError(t, err)
	_, err = AnswerReflection(ctx, env, AnswerReflectionInput{ID: a.ID, Answer: "yes"})
	require.NoError(t, err)

	all, err := ListReflections(ctx, env, ListReflectionsInput{})
	require.NoError(t, err)
	require.Len(t, all, 2)

	answered, err := ListReflections(ctx, env, ListReflectionsInput{Answered: boolPtr(true)})
	require.NoError(t, err)
	require.Len(t, answered, 1)
	require.Equal(t, a.ID, answered[0].ID)

	open, err := ListReflections(ctx, env, ListReflectionsInput{Answered: boolPtr(false)})
	require.NoError(t, err)
	require.Len(t, open, 1)
	require.Equal(t, "second", open[0].Question)
}

func TestAnswerReflection_IngestCreatesThenRewrites(t *testing.T) {
	env, fake := newTestEnv(t)
	ctx := context.Background()
	r := mustRealm(t, env, "Work")
	refl, err := CreateReflection(ctx, env, CreateReflectionInput{RealmID: &r.ID, Question: "What do you value?", ImportanceScore: floatPtr(2)})
	require.NoError(t, err)

	first, err := AnswerReflection(ctx, env, AnswerReflectionInput{
		ID:             refl.ID,
		Answer:         "Honesty",
		Ingest:         true,
		AutoSynthesize: boolPtr(false),
	})
	require.NoError(t, err)
	require.True(t, first.Reflection.IsAnswered())
	require.NotNil(t, first.Ingested)
	require.Nil(t, first.Updated)

	src := first.Ingested.Source
	require.Equal(t, content.SourceReflection, src.SourceType)
	require.Equal(t, "What do you value?", *src.Title)
	require.Equal(t, "Q: What do you value?\nA: Honesty", src.Content)
	require.Equal(t, 2.0, src.Weight)
	require.Equal(t, refl.ID, src.Metadata[MetaReflectionID])
	require.Zero(t, fake.CallCount())

	second, err := AnswerReflection(ctx, env, AnswerReflectionInput{ID: refl.ID, Answer: "Curiosity", Ingest: true})
	require.NoError(t, err)
	require.Nil(t, second.Ingested)
	require.NotNil(t, second.Updated)
	require.Equal(t, src.ID, second.Updated.ID)

	got, err := GetSource(ctx, env, src.ID)
	require.NoError(t, err)
	require.Equal(t, "Q: What do you value?\nA: Curiosity", got.Content)
	require.Equal(t, "Curiosity", got.Metadata["answer"])

	n, err := db.CountSources(ctx, env.DB, db.SourceFilter{RealmID: &r.ID})
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestAnswerReflection_Validation(t *testing.T) {
	env, _ := newTestEnv(t)
	ctx := context.Background()

	_, err := AnswerReflection(ctx, env, AnswerReflectionInput{ID: "missing", Answer: "x"})
	requireCode(t, err, errors.ErrNotFound)

	refl, err := CreateReflection(ctx, env, CreateReflectionInput{Question: "q"})
	require.NoError(t, err)
	_, err = AnswerReflection(ctx, env, AnswerReflectionInput{ID: refl.ID, Answer: "  "})
	requireCode(t, err, errors.ErrInvalidRequest)
}

func TestMigrateReflections(t *testing.T) {
	env, fake := newTestEnv(t)
	ctx := context.Background()
	r := mustRealm(t, env, "Work")

	_, err := MigrateReflections(ctx, env, nil)
	requireCode(t, err, errors.ErrInvalidRequest)

	answered, err := CreateReflection(ctx, env, CreateReflectionInput{RealmID: &r.ID, Question: "Why?", ImportanceScore: floatPtr(3)})
	require.NoError(t, err)
	_, err = CreateReflection(ctx, env, CreateReflectionInput{RealmID: &r.ID, Question: "Unanswered"})
	require.NoError(t, err)
	_, err = AnswerReflection(ctx, env, AnswerReflectionInput{ID: answered.ID, Answer: "Because"})
	require.NoError(t, err)

	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	env.now = func() time.Time { return fixed }

	out, err := MigrateReflections(ctx, env, &r.ID)
	require.NoError(t, err)
	require.Equal(t, 1, out.MigratedCount)
	require.Zero(t, out.Skipped)
	require.Equal(t, "Migrated 1 reflections to content sources", out.Message)
	require.NotEmpty(t, out.Note)
	require.Zero(t, fake.CallCount())

	src, err := db.FindSourceByMetadata(ctx, env.DB, MetaReflectionID, answered.ID)
	require.NoError(t, err)
	require.NotNil(t, src)
	require.Equal(t, answered.CreatedAt, src.CreatedAt)
	require.Equal(t, "2026-03-01T12:00:00Z", src.Metadata[MetaMigratedAt])
	require.Equal(t, 3.0, src.Weight)

	again, err := MigrateReflections(ctx, env, &r.ID)
	require.NoError(t, err)
	require.Zero(t, again.MigratedCount)
	require.Equal(t, 1, again.Skipped)
}
