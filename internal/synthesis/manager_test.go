package synthesis

import (
	"context"
	"database/sql"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/hpungsan/pathfinder/internal/config"
	"github.com/hpungsan/pathfinder/internal/content"
	"github.com/hpungsan/pathfinder/internal/db"
	"github.com/hpungsan/pathfinder/internal/errors"
	"github.com/hpungsan/pathfinder/internal/llm"
	"github.com/hpungsan/pathfinder/internal/llm/llmtest"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fixture struct {
	t   *testing.T
	ctx context.Context
	db  *sql.DB
	gen *llmtest.Fake
	m   *Manager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	database, err := db.Init(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	fake := &llmtest.Fake{Reply: "merged prompt"}
	return &fixture{
		t:   t,
		ctx: context.Background(),
		db:  database,
		gen: fake,
		m:   NewManager(database, fake, config.DefaultConfig(), zaptest.NewLogger(t)),
	}
}

func (f *fixture) realm(name string, mutate ...func(*content.Realm)) *content.Realm {
	f.t.Helper()
	id, err := content.NewID()
	require.NoError(f.t, err)
	now := time.Now().Unix()
	r := &content.Realm{ID: id, Name: name, CreatedAt: now, UpdatedAt: now}
	for _, fn := range mutate {
		fn(r)
	}
	require.NoError(f.t, db.InsertRealm(f.ctx, f.db, r))
	return r
}

// baseline stores a large source directly so later additions stay below the
// significant-content ratio.
func (f *fixture) baseline(realmID string) *content.ContentSource {
	f.t.Helper()
	id, err := content.NewID()
	require.NoError(f.t, err)
	now := time.Now().Unix()
	s := &content.ContentSource{
		ID:         id,
		RealmID:    &realmID,
		SourceType: content.SourceDocument,
		Content:    strings.Repeat("background ", 1000),
		Weight:     1,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	require.NoError(f.t, db.InsertSource(f.ctx, f.db, s))
	return s
}

func (f *fixture) add(realmID *string, body string, weight float64) *AddOutput {
	f.t.Helper()
	out, err := f.m.AddContentSource(f.ctx, AddInput{
		RealmID:        realmID,
		SourceType:     content.SourceText,
		Content:        body,
		Weight:         &weight,
		AutoSynthesize: true,
	})
	require.NoError(f.t, err)
	return out
}

func (f *fixture) getRealm(id string) *content.Realm {
	f.t.Helper()
	r, err := db.GetRealm(f.ctx, f.db, id)
	require.NoError(f.t, err)
	return r
}

func (f *fixture) pending(realmID string) int {
	f.t.Helper()
	n, err := db.CountPendingQueue(f.ctx, f.db, realmID)
	require.NoError(f.t, err)
	return n
}

func TestAddContentSource_Validation(t *testing.T) {
	f := newFixture(t)
	bad := 5.5
	missing := "nope"

	tests := []struct {
		name  string
		input AddInput
		code  errors.ErrorCode
	}{
		{"empty content", AddInput{SourceType: content.SourceText, Content: "  "}, errors.ErrInvalidRequest},
		{"bad weight", AddInput{SourceType: content.SourceText, Content: "x", Weight: &bad}, errors.ErrInvalidRequest},
		{"bad type", AddInput{SourceType: "video", Content: "x"}, errors.ErrInvalidRequest},
		{"unknown realm", AddInput{RealmID: &missing, SourceType: content.SourceText, Content: "x"}, errors.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.m.AddContentSource(f.ctx, tt.input)
			if !errors.Is(err, tt.code) {
				t.Fatalf("error = %v, want %s", err, tt.code)
			}
		})
	}
}

func TestAddContentSource_StoresAnalysis(t *testing.T) {
	f := newFixture(t)
	out := f.add(nil, "I want to grow my career and learn design.", 1)

	require.Nil(t, out.Decision)
	require.Zero(t, f.gen.CallCount())

	stored, err := db.GetSource(f.ctx, f.db, out.Source.ID)
	require.NoError(t, err)
	a, ok := content.AnalysisFromMetadata(stored.Metadata)
	require.True(t, ok)
	require.Equal(t, []string{"professional", "learning", "goals"}, a.Themes)
	require.Equal(t, []string{"creative"}, a.Traits)
	raw, ok := stored.Metadata[content.MetadataAnalysisKey].(map[string]any)
	require.True(t, ok)
	require.Contains(t, raw, "analyzed_at")
}

func TestAddContentSource_AutoSynthesizeOff(t *testing.T) {
	f := newFixture(t)
	r := f.realm("Work")

	weight := 5.0
	out, err := f.m.AddContentSource(f.ctx, AddInput{
		RealmID:    &r.ID,
		SourceType: content.SourceText,
		Content:    "critical detail",
		Weight:     &weight,
	})
	require.NoError(t, err)
	require.Nil(t, out.Decision)
	require.Equal(t, content.InitialVersion, f.getRealm(r.ID).CurrentVersion)
}

func TestAddContentSource_HighWeightSynthesizes(t *testing.T) {
	f := newFixture(t)
	r := f.realm("Work")
	f.baseline(r.ID)

	out := f.add(&r.ID, "My manager asked me to lead the platform team.", 3)

	require.Equal(t, ActionSynthesizeNow, out.Decision.Action)
	require.Equal(t, ReasonHighWeight, out.Decision.Reason)
	require.NotNil(t, out.Synthesis)
	require.True(t, out.Synthesis.Applied)
	require.Equal(t, 2, out.Synthesis.Version)
	require.Equal(t, []string{out.Source.ID}, out.Synthesis.SourceIDs)

	realm := f.getRealm(r.ID)
	require.Equal(t, "merged prompt", realm.Prompt())
	require.Equal(t, 2, realm.CurrentVersion)
	require.NotNil(t, realm.LastSynthesisAt)

	versions, err := db.ListPromptVersions(f.ctx, f.db, r.ID, 10)
	require.NoError(t, err)
	require.Len(t, versions, 1)
	require.Equal(t, content.MethodTextIntegration, versions[0].SynthesisMethod)
	require.Equal(t, []string{out.Source.ID}, versions[0].ContentSourceIDs)

	prompt := f.gen.Calls()[0].Prompt
	require.Contains(t, prompt, MarkerIntegration)
	require.Contains(t, prompt, "TEXT (Weight: 3.0)")
}

func TestAddContentSource_DisabledRealmSkips(t *testing.T) {
	f := newFixture(t)
	r := f.realm("Quiet", func(r *content.Realm) { r.SynthesisDisabled = true })

	out := f.add(&r.ID, "anything at all", 5)

	require.Equal(t, Decision{ActionSkip, ReasonDisabled}, *out.Decision)
	require.Zero(t, f.gen.CallCount())
	require.Equal(t, 0, f.pending(r.ID))
}

func TestAddContentSource_RecentSynthesisSkips(t *testing.T) {
	f := newFixture(t)
	recent := time.Now().Add(-10 * time.Minute).Unix()
	r := f.realm("Work", func(r *content.Realm) { r.LastSynthesisAt = &recent })

	out := f.add(&r.ID, "a short note", 1)

	require.Equal(t, ReasonRecent, out.Decision.Reason)
	require.Empty(t, out.QueueEntryID)
	require.Equal(t, 0, f.pending(r.ID))
}

func TestAddContentSource_SignificantContentSynthesizes(t *testing.T) {
	f := newFixture(t)
	r := f.realm("Fresh")

	// the first source is the whole realm
	out := f.add(&r.ID, "Everything about me in one note.", 1)

	require.Equal(t, ReasonSignificant, out.Decision.Reason)
	require.True(t, out.Synthesis.Applied)
}

func TestAddContentSource_QueuesSmallAdditions(t *testing.T) {
	f := newFixture(t)
	r := f.realm("Work")
	f.baseline(r.ID)

	out := f.add(&r.ID, "small note", 1)

	require.Equal(t, ActionQueue, out.Decision.Action)
	require.NotEmpty(t, out.QueueEntryID)
	require.Nil(t, out.Synthesis)
	require.Equal(t, 1, f.pending(r.ID))
	require.Zero(t, f.gen.CallCount())
}

func TestAddContentSource_BatchThresholdDrainsQueue(t *testing.T) {
	f := newFixture(t)
	r := f.realm("Work")
	f.baseline(r.ID)

	for i := 0; i < 5; i++ {
		out := f.add(&r.ID, "queued note", 1)
		require.Equal(t, ActionQueue, out.Decision.Action)
	}
	require.Equal(t, 5, f.pending(r.ID))

	out := f.add(&r.ID, "sixth note", 1)

	require.Equal(t, ReasonBatchThreshold, out.Decision.Reason)
	require.NotEmpty(t, out.QueueEntryID)
	require.True(t, out.Synthesis.Applied)
	require.Len(t, out.Synthesis.SourceIDs, 6)
	require.Equal(t, int64(6), out.Synthesis.QueueProcessed)
	require.Equal(t, 0, f.pending(r.ID))
	require.Equal(t, 1, f.gen.CallCount())
}

func TestIncremental_GenerationFailureLeavesRealm(t *testing.T) {
	f := newFixture(t)
	r := f.realm("Work")
	f.baseline(r.ID)
	a := f.add(&r.ID, "note a", 1)
	b := f.add(&r.ID, "note b", 1)
	f.gen.Err = llm.ErrUnavailable
	f.gen.Reply = ""

	res, err := f.m.Incremental(f.ctx, r.ID,
		[]string{a.Source.ID, b.Source.ID},
		[]string{a.QueueEntryID, b.QueueEntryID})
	require.NoError(t, err)
	require.False(t, res.Applied)
	require.Equal(t, "", res.Prompt)

	require.Equal(t, content.InitialVersion, f.getRealm(r.ID).CurrentVersion)
	require.Equal(t, 2, f.pending(r.ID))
}

func TestIncremental_EmptyReplyLeavesRealm(t *testing.T) {
	f := newFixture(t)
	r := f.realm("Work")
	s := f.baseline(r.ID)
	f.gen.Reply = "   "

	res, err := f.m.Incremental(f.ctx, r.ID, []string{s.ID}, nil)
	require.NoError(t, err)
	require.False(t, res.Applied)
	require.Equal(t, content.InitialVersion, f.getRealm(r.ID).CurrentVersion)
}

func TestIncremental_UnresolvableSourcesAreNoop(t *testing.T) {
	f := newFixture(t)
	r := f.realm("Work")

	res, err := f.m.Incremental(f.ctx, r.ID, []string{"missing-1", "missing-2"}, nil)
	require.NoError(t, err)
	require.False(t, res.Applied)
	require.Empty(t, res.SourceIDs)
	require.Zero(t, f.gen.CallCount())
}

func TestIncremental_IgnoresOtherRealmSources(t *testing.T) {
	f := newFixture(t)
	r := f.realm("Work")
	other := f.realm("Home")
	foreign := f.baseline(other.ID)

	res, err := f.m.Incremental(f.ctx, r.ID, []string{foreign.ID}, nil)
	require.NoError(t, err)
	require.False(t, res.Applied)
	require.Empty(t, res.SourceIDs)
	require.Zero(t, f.gen.CallCount())
	require.Equal(t, content.InitialVersion, f.getRealm(r.ID).CurrentVersion)
}

func TestIncremental_UnknownRealm(t *testing.T) {
	f := newFixture(t)
	_, err := f.m.Incremental(f.ctx, "missing", nil, nil)
	require.True(t, errors.Is(err, errors.ErrNotFound))
}

// bumpRealm simulates a concurrent writer committing a synthesis.
func (f *fixture) bumpRealm(realmID, prompt string) {
	r := f.getRealm(realmID)
	_, err := db.ApplyRealmSynthesis(f.ctx, f.db, db.RealmSynthesis{
		RealmID:         realmID,
		ExpectedVersion: r.CurrentVersion,
		Prompt:          prompt,
		At:              time.Now().Unix(),
	})
	require.NoError(f.t, err)
}

func TestIncremental_RetriesOnVersionConflict(t *testing.T) {
	f := newFixture(t)
	r := f.realm("Work")
	s := f.baseline(r.ID)

	var calls atomic.Int32
	f.gen.Respond = func(req llm.Request) (string, error) {
		if calls.Add(1) == 1 {
			f.bumpRealm(r.ID, "concurrent prompt")
			return "stale merge", nil
		}
		return "merged on top of concurrent", nil
	}

	res, err := f.m.Incremental(f.ctx, r.ID, []string{s.ID}, nil)
	require.NoError(t, err)
	require.True(t, res.Applied)
	require.Equal(t, 3, res.Version)
	require.Equal(t, "merged on top of concurrent", f.getRealm(r.ID).Prompt())

	// the retry merged against the concurrent writer's prompt
	require.Contains(t, f.gen.Calls()[1].Prompt, "concurrent prompt")
}

func TestIncremental_GivesUpAfterRetries(t *testing.T) {
	f := newFixture(t)
	r := f.realm("Work")
	s := f.baseline(r.ID)

	f.gen.Respond = func(req llm.Request) (string, error) {
		f.bumpRealm(r.ID, "someone else")
		return "never lands", nil
	}

	res, err := f.m.Incremental(f.ctx, r.ID, []string{s.ID}, nil)
	require.NoError(t, err)
	require.False(t, res.Applied)
	require.Equal(t, "someone else", res.Prompt)
	require.Equal(t, 1+config.DefaultConfig().Synthesis.IncrementalRetries, f.gen.CallCount())
}

func TestProcessBatchQueue(t *testing.T) {
	f := newFixture(t)
	r := f.realm("Work")
	f.baseline(r.ID)

	f.add(&r.ID, "only one", 1)
	res, err := f.m.ProcessBatchQueue(f.ctx, r.ID)
	require.NoError(t, err)
	require.False(t, res.Processed)
	require.Equal(t, 1, res.Pending)
	require.Zero(t, f.gen.CallCount())

	f.add(&r.ID, "now two", 1)
	res, err = f.m.ProcessBatchQueue(f.ctx, r.ID)
	require.NoError(t, err)
	require.True(t, res.Processed)
	require.True(t, res.Synthesis.Applied)
	require.Equal(t, int64(2), res.Synthesis.QueueProcessed)
	require.Equal(t, 0, f.pending(r.ID))

	_, err = f.m.ProcessBatchQueue(f.ctx, "missing")
	require.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestProcessAllQueues(t *testing.T) {
	f := newFixture(t)
	a := f.realm("A")
	b := f.realm("B")
	c := f.realm("C")
	for _, r := range []*content.Realm{a, b, c} {
		f.baseline(r.ID)
	}
	f.add(&a.ID, "a1", 1)
	f.add(&a.ID, "a2", 1)
	f.add(&b.ID, "b1", 1)
	f.add(&b.ID, "b2", 1)
	f.add(&c.ID, "c1", 1)

	res, err := f.m.ProcessAllQueues(f.ctx)
	require.NoError(t, err)
	require.Empty(t, res.Failed)
	require.Len(t, res.Realms, 3)

	processed := map[string]bool{}
	for _, br := range res.Realms {
		processed[br.RealmID] = br.Processed
	}
	require.Equal(t, map[string]bool{a.ID: true, b.ID: true, c.ID: false}, processed)
	require.Equal(t, 0, f.pending(a.ID))
	require.Equal(t, 0, f.pending(b.ID))
	require.Equal(t, 1, f.pending(c.ID))
}

func TestForceFullSynthesis(t *testing.T) {
	f := newFixture(t)
	r := f.realm("Work")
	f.baseline(r.ID)
	f.add(&r.ID, "queued a", 1)
	f.add(&r.ID, "queued b", 1)
	f.gen.Respond = llmtest.ByMarker(stageReplies())

	res, err := f.m.ForceFullSynthesis(f.ctx, r.ID, nil)
	require.NoError(t, err)
	require.Equal(t, 2, res.Version)
	require.Equal(t, "You are assisting a direct, curious software engineer.", res.Prompt)
	require.InDelta(t, 0.8, res.QualityScore, 1e-9)
	require.Equal(t, int64(2), res.QueueProcessed)
	require.Equal(t, 3, res.Bundle.SynthesisMetadata.ContentSourcesCount)

	realm := f.getRealm(r.ID)
	require.Equal(t, res.Prompt, realm.Prompt())
	require.NotNil(t, realm.QualityScore)
	require.InDelta(t, 0.8, *realm.QualityScore, 1e-9)
	require.Equal(t, 0, f.pending(r.ID))

	v, err := db.GetPromptVersion(f.ctx, f.db, res.PromptVersionID)
	require.NoError(t, err)
	require.Equal(t, content.MethodAdvanced, v.SynthesisMethod)
	require.Equal(t, []string{"mention hobbies"}, v.ImprovementSuggestions)
	require.Equal(t, 0.9, v.EffectivenessMetrics["coherence_score"])
}

func TestForceFullSynthesis_NoContent(t *testing.T) {
	f := newFixture(t)
	r := f.realm("Empty")

	_, err := f.m.ForceFullSynthesis(f.ctx, r.ID, nil)
	require.True(t, errors.Is(err, errors.ErrNoContent))
	require.Zero(t, f.gen.CallCount())
}

func TestApply_ConflictWhenRealmMoved(t *testing.T) {
	f := newFixture(t)
	r := f.realm("Work")
	f.baseline(r.ID)
	f.gen.Respond = llmtest.ByMarker(stageReplies())

	draft, err := f.m.Synthesize(f.ctx, r.ID, nil, content.SynthesisFull)
	require.NoError(t, err)

	f.bumpRealm(r.ID, "written meanwhile")

	_, err = f.m.Apply(f.ctx, draft)
	require.True(t, errors.Is(err, errors.ErrConflict))
	require.Equal(t, "written meanwhile", f.getRealm(r.ID).Prompt())

	versions, err := db.ListPromptVersions(f.ctx, f.db, r.ID, 10)
	require.NoError(t, err)
	require.Empty(t, versions)
}

func TestSynthesize_SelectedSources(t *testing.T) {
	f := newFixture(t)
	r := f.realm("Work")
	f.baseline(r.ID)
	picked := f.add(&r.ID, "only this one", 1)
	f.gen.Respond = llmtest.ByMarker(stageReplies())

	draft, err := f.m.Synthesize(f.ctx, r.ID, []string{picked.Source.ID, "missing"}, content.SynthesisFull)
	require.NoError(t, err)
	require.Len(t, draft.Sources, 1)
	require.Equal(t, picked.Source.ID, draft.Sources[0].ID)

	res, err := f.m.Apply(f.ctx, draft)
	require.NoError(t, err)
	// only the queue entry of the used source is consumed
	require.Equal(t, int64(1), res.QueueProcessed)
}

func TestSynthesize_OtherRealmSourcesAreNoContent(t *testing.T) {
	f := newFixture(t)
	r := f.realm("Work")
	other := f.realm("Home")
	foreign := f.baseline(other.ID)
	f.gen.Respond = llmtest.ByMarker(stageReplies())

	_, err := f.m.Synthesize(f.ctx, r.ID, []string{foreign.ID}, content.SynthesisFull)
	require.True(t, errors.Is(err, errors.ErrNoContent), "got %v", err)
	require.Zero(t, f.gen.CallCount())
}

// startedJob records a job already moved to processing.
func (f *fixture) startedJob(realmID string) *content.Job {
	f.t.Helper()
	id, err := content.NewID()
	require.NoError(f.t, err)
	now := time.Now().Unix()
	j := &content.Job{ID: id, RealmID: realmID, SynthesisType: content.SynthesisFull, Status: content.JobPending, CreatedAt: now, UpdatedAt: now}
	require.NoError(f.t, db.InsertJob(f.ctx, f.db, j))
	ok, err := db.StartJob(f.ctx, f.db, id, now)
	require.NoError(f.t, err)
	require.True(f.t, ok)
	return j
}

func TestApplyJob_CompletesJobWithCommit(t *testing.T) {
	f := newFixture(t)
	r := f.realm("Work")
	f.baseline(r.ID)
	f.gen.Respond = llmtest.ByMarker(stageReplies())
	job := f.startedJob(r.ID)

	draft, err := f.m.Synthesize(f.ctx, r.ID, nil, content.SynthesisFull)
	require.NoError(t, err)
	res, err := f.m.ApplyJob(f.ctx, draft, JobRef{ID: job.ID, StartedAt: time.Now()})
	require.NoError(t, err)

	got, err := db.GetJob(f.ctx, f.db, job.ID)
	require.NoError(t, err)
	require.Equal(t, content.JobCompleted, got.Status)
	require.Equal(t, res.Prompt, *got.ResultPrompt)
	require.Contains(t, got.QualityAnalysis, "synthesis_metadata")
	require.Equal(t, res.Prompt, f.getRealm(r.ID).Prompt())
}

func TestIncrementalJob_CancelledJobWritesNothing(t *testing.T) {
	f := newFixture(t)
	r := f.realm("Work")
	s := f.baseline(r.ID)
	job := f.startedJob(r.ID)
	_, err := db.CancelJob(f.ctx, f.db, job.ID, time.Now().Unix())
	require.NoError(t, err)

	_, err = f.m.IncrementalJob(f.ctx, JobRef{ID: job.ID, StartedAt: time.Now()}, r.ID, []string{s.ID})
	require.True(t, errors.Is(err, errors.ErrJobTerminal), "got %v", err)

	realm := f.getRealm(r.ID)
	require.Equal(t, content.InitialVersion, realm.CurrentVersion)
	require.Empty(t, realm.Prompt())
}
