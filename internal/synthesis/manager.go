package synthesis

import (
	"context"
	"database/sql"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hpungsan/pathfinder/internal/config"
	"github.com/hpungsan/pathfinder/internal/content"
	"github.com/hpungsan/pathfinder/internal/db"
	"github.com/hpungsan/pathfinder/internal/errors"
	"github.com/hpungsan/pathfinder/internal/llm"
)

// Manager decides when to synthesize and applies incremental and full
// synthesis results to the store.
type Manager struct {
	db     *sql.DB
	gen    llm.Generator
	engine *Engine
	cfg    *config.Config
	log    *zap.Logger
	now    func() time.Time
}

// NewManager creates a Manager. A nil logger disables logging.
func NewManager(database *sql.DB, gen llm.Generator, cfg *config.Config, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return &Manager{
		db:     database,
		gen:    gen,
		engine: NewEngine(gen, log.Named("engine")),
		cfg:    cfg,
		log:    log,
		now:    time.Now,
	}
}

// Engine returns the pipeline used for full synthesis.
func (m *Manager) Engine() *Engine {
	return m.engine
}

// AddInput contains parameters for adding a content source.
type AddInput struct {
	RealmID        *string // nil stores an unassigned source
	SourceType     content.SourceType
	Title          *string
	Content        string   // required
	Weight         *float64 // default: 1.0
	Metadata       map[string]any
	AutoSynthesize bool
}

// AddOutput contains the result of adding a content source.
type AddOutput struct {
	Source       *content.ContentSource `json:"source"`
	Decision     *Decision              `json:"decision,omitempty"`
	Synthesis    *IncrementalResult     `json:"synthesis,omitempty"`
	QueueEntryID string                 `json:"queue_entry_id,omitempty"`
	TriggerError string                 `json:"trigger_error,omitempty"`
}

// AddContentSource stores a content source with its lightweight analysis and,
// when AutoSynthesize is set, runs the trigger policy. Trigger failures are
// reported in TriggerError; the stored source is never rolled back.
func (m *Manager) AddContentSource(ctx context.Context, input AddInput) (*AddOutput, error) {
	if !input.SourceType.Valid() {
		return nil, errors.NewInvalidRequest("source_type must be one of: reflection, text, conversation, document, structured")
	}
	weight := content.DefaultWeight
	if input.Weight != nil {
		weight = *input.Weight
	}
	if p := content.Check(input.Content, weight, m.cfg.SourceMaxChars); p != "" {
		return nil, errors.NewInvalidRequest(p.Error())
	}

	if input.RealmID != nil {
		if _, err := db.GetRealm(ctx, m.db, *input.RealmID); err != nil {
			return nil, err
		}
	}

	id, err := content.NewID()
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	now := m.now().Unix()
	src := &content.ContentSource{
		ID:         id,
		RealmID:    input.RealmID,
		SourceType: input.SourceType,
		Title:      input.Title,
		Content:    input.Content,
		Weight:     weight,
		Metadata:   content.WithAnalysis(input.Metadata, content.Analyze(input.Content), now),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := db.InsertSource(ctx, m.db, src); err != nil {
		return nil, err
	}

	out := &AddOutput{Source: src}
	if !input.AutoSynthesize || input.RealmID == nil {
		return out, nil
	}

	if err := m.trigger(ctx, src, out); err != nil {
		m.log.Warn("synthesis trigger failed",
			zap.String("realm_id", *input.RealmID),
			zap.String("source_id", src.ID),
			zap.Error(err))
		out.TriggerError = errors.As(err).Message
	}
	return out, nil
}

// trigger gathers the policy snapshot for a freshly stored source and acts on it.
func (m *Manager) trigger(ctx context.Context, src *content.ContentSource, out *AddOutput) error {
	realmID := *src.RealmID
	realm, err := db.GetRealm(ctx, m.db, realmID)
	if err != nil {
		return err
	}
	total, err := db.RealmContentChars(ctx, m.db, realmID)
	if err != nil {
		return err
	}
	pending, err := db.CountPendingQueue(ctx, m.db, realmID)
	if err != nil {
		return err
	}

	d := Decide(m.cfg.Synthesis, PolicyInput{
		SynthesisDisabled: realm.SynthesisDisabled,
		Weight:            src.Weight,
		NewChars:          content.CountChars(src.Content),
		TotalChars:        total,
		LastSynthesisAt:   realm.LastSynthesisAt,
		Now:               m.now(),
		PendingQueue:      pending,
	})
	out.Decision = &d
	m.log.Debug("synthesis decision",
		zap.String("realm_id", realmID),
		zap.String("source_id", src.ID),
		zap.String("action", string(d.Action)),
		zap.String("reason", string(d.Reason)))

	switch d.Action {
	case ActionSkip:
		return nil
	case ActionQueue:
		entryID, err := m.enqueue(ctx, src)
		if err != nil {
			return err
		}
		out.QueueEntryID = entryID
		return nil
	}

	if d.Reason != ReasonBatchThreshold {
		res, err := m.Incremental(ctx, realmID, []string{src.ID}, nil)
		if err != nil {
			return err
		}
		out.Synthesis = res
		return nil
	}

	entryID, err := m.enqueue(ctx, src)
	if err != nil {
		return err
	}
	out.QueueEntryID = entryID
	res, err := m.drain(ctx, realmID)
	if err != nil {
		return err
	}
	out.Synthesis = res
	return nil
}

func (m *Manager) enqueue(ctx context.Context, src *content.ContentSource) (string, error) {
	id, err := content.NewID()
	if err != nil {
		return "", errors.NewInternal(err)
	}
	entry := &content.QueueEntry{
		ID:              id,
		RealmID:         *src.RealmID,
		ContentSourceID: src.ID,
		Priority:        src.Weight,
		CreatedAt:       m.now().Unix(),
	}
	if err := db.InsertQueueEntry(ctx, m.db, entry); err != nil {
		return "", err
	}
	return id, nil
}

// drain runs an incremental merge over every pending entry of a realm.
func (m *Manager) drain(ctx context.Context, realmID string) (*IncrementalResult, error) {
	entries, err := db.ListPendingQueue(ctx, m.db, realmID)
	if err != nil {
		return nil, err
	}
	sourceIDs := make([]string, 0, len(entries))
	queueIDs := make([]string, 0, len(entries))
	for _, e := range entries {
		sourceIDs = append(sourceIDs, e.ContentSourceID)
		queueIDs = append(queueIDs, e.ID)
	}
	return m.Incremental(ctx, realmID, sourceIDs, queueIDs)
}

// IncrementalResult reports the outcome of an incremental merge.
type IncrementalResult struct {
	Prompt         string   `json:"prompt"`
	Applied        bool     `json:"applied"`
	Version        int      `json:"version"`
	SourceIDs      []string `json:"source_ids"`
	QueueProcessed int64    `json:"queue_processed"`
}

// Incremental merges the given sources into the realm's existing prompt with a
// single model call. Source ids that are missing or belong to another realm
// are dropped. Generation failures leave the realm untouched and return the
// prior prompt with Applied=false. queueIDs are marked processed in the same
// transaction as the prompt update.
func (m *Manager) Incremental(ctx context.Context, realmID string, sourceIDs, queueIDs []string) (*IncrementalResult, error) {
	return m.incremental(ctx, realmID, sourceIDs, queueIDs, nil)
}

// IncrementalJob is Incremental run on behalf of a job. The merge and the job
// completion commit together, and nothing is written once the job was cancelled.
func (m *Manager) IncrementalJob(ctx context.Context, job JobRef, realmID string, sourceIDs []string) (*IncrementalResult, error) {
	return m.incremental(ctx, realmID, sourceIDs, nil, &job)
}

func (m *Manager) incremental(ctx context.Context, realmID string, sourceIDs, queueIDs []string, job *JobRef) (*IncrementalResult, error) {
	realm, err := db.GetRealm(ctx, m.db, realmID)
	if err != nil {
		return nil, err
	}
	sources, err := realmSources(ctx, m.db, realmID, sourceIDs)
	if err != nil {
		return nil, err
	}
	if len(sources) == 0 {
		return &IncrementalResult{Prompt: realm.Prompt(), Version: realm.CurrentVersion, SourceIDs: []string{}}, nil
	}
	ids := content.IDs(sources)
	newContent := content.FormatForIntegration(sources)

	for attempt := 0; ; attempt++ {
		unchanged := &IncrementalResult{Prompt: realm.Prompt(), Version: realm.CurrentVersion, SourceIDs: ids}

		text, err := m.gen.Generate(ctx, llm.Request{Prompt: integrationPrompt(realm.Prompt(), newContent)})
		if err != nil {
			m.log.Warn("incremental synthesis failed", zap.String("realm_id", realmID), zap.Error(err))
			return unchanged, nil
		}
		updated := strings.TrimSpace(text)
		if updated == "" {
			m.log.Warn("incremental synthesis returned empty prompt", zap.String("realm_id", realmID))
			return unchanged, nil
		}

		versionID, err := content.NewID()
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		now := m.now().Unix()
		res, err := db.CommitSynthesis(ctx, m.db, db.CommitInput{
			Realm: db.RealmSynthesis{
				RealmID:         realmID,
				ExpectedVersion: realm.CurrentVersion,
				Prompt:          updated,
				At:              now,
			},
			Version: &content.PromptVersion{
				ID:               versionID,
				SynthesisMethod:  content.MethodTextIntegration,
				ContentSourceIDs: ids,
				CreatedAt:        now,
			},
			QueueIDs: queueIDs,
			Job: job.result(updated, map[string]any{
				"method":     string(content.MethodTextIntegration),
				"version":    realm.CurrentVersion + 1,
				"source_ids": ids,
			}, m.now()),
		})
		if err == nil {
			m.log.Info("incremental synthesis applied",
				zap.String("realm_id", realmID),
				zap.Int("version", res.Version),
				zap.Int("sources", len(sources)),
				zap.Int64("queue_processed", res.QueueProcessed))
			return &IncrementalResult{
				Prompt:         updated,
				Applied:        true,
				Version:        res.Version,
				SourceIDs:      ids,
				QueueProcessed: res.QueueProcessed,
			}, nil
		}
		if !errors.Is(err, errors.ErrConflict) {
			return nil, err
		}

		// Another writer moved the realm on; merge again against its prompt.
		realm, err = db.GetRealm(ctx, m.db, realmID)
		if err != nil {
			return nil, err
		}
		if attempt >= m.cfg.Synthesis.IncrementalRetries {
			m.log.Warn("incremental synthesis abandoned after version conflicts",
				zap.String("realm_id", realmID),
				zap.Int("attempts", attempt+1))
			return &IncrementalResult{Prompt: realm.Prompt(), Version: realm.CurrentVersion, SourceIDs: ids}, nil
		}
	}
}

// BatchResult reports the outcome of a queue drain.
type BatchResult struct {
	RealmID   string             `json:"realm_id"`
	Processed bool               `json:"processed"`
	Pending   int                `json:"pending"`
	Synthesis *IncrementalResult `json:"synthesis,omitempty"`
}

// ProcessBatchQueue drains a realm's queue when it holds at least the minimum
// batch size. Processed is false when there was too little to batch.
func (m *Manager) ProcessBatchQueue(ctx context.Context, realmID string) (*BatchResult, error) {
	if _, err := db.GetRealm(ctx, m.db, realmID); err != nil {
		return nil, err
	}
	pending, err := db.CountPendingQueue(ctx, m.db, realmID)
	if err != nil {
		return nil, err
	}
	out := &BatchResult{RealmID: realmID, Pending: pending}
	if pending < m.cfg.Synthesis.MinBatchSize {
		return out, nil
	}
	res, err := m.drain(ctx, realmID)
	if err != nil {
		return nil, err
	}
	out.Processed = true
	out.Synthesis = res
	return out, nil
}

// SweepResult reports ProcessAllQueues per realm.
type SweepResult struct {
	Realms []*BatchResult    `json:"realms"`
	Failed map[string]string `json:"failed,omitempty"`
}

// ProcessAllQueues drains every realm with pending entries, BatchWorkers at a time.
// A failing realm is recorded in Failed and does not stop the others.
func (m *Manager) ProcessAllQueues(ctx context.Context) (*SweepResult, error) {
	realmIDs, err := db.ListRealmsWithPendingQueue(ctx, m.db)
	if err != nil {
		return nil, err
	}

	var (
		mu  sync.Mutex
		out = &SweepResult{Realms: []*BatchResult{}}
	)
	g, gctx := errgroup.WithContext(ctx)
	workers := m.cfg.BatchWorkers
	if workers < 1 {
		workers = 1
	}
	g.SetLimit(workers)

	for _, id := range realmIDs {
		g.Go(func() error {
			res, err := m.ProcessBatchQueue(gctx, id)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				m.log.Warn("batch queue failed", zap.String("realm_id", id), zap.Error(err))
				if out.Failed == nil {
					out.Failed = make(map[string]string)
				}
				out.Failed[id] = errors.As(err).Message
				return nil
			}
			out.Realms = append(out.Realms, res)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// realmSources loads the given sources, dropping ids that are missing or
// belong to another realm.
func realmSources(ctx context.Context, q db.Querier, realmID string, ids []string) ([]*content.ContentSource, error) {
	all, err := db.GetSources(ctx, q, ids)
	if err != nil {
		return nil, err
	}
	sources := all[:0]
	for _, s := range all {
		if s.RealmID != nil && *s.RealmID == realmID {
			sources = append(sources, s)
		}
	}
	return sources, nil
}

// Draft is a computed full synthesis that has not been committed yet.
type Draft struct {
	Realm   *content.Realm
	Sources []*content.ContentSource
	Prompt  string
	Bundle  *Bundle
}

// Synthesize runs the full pipeline for a realm without writing anything.
// With no sourceIDs every source in the realm is used.
func (m *Manager) Synthesize(ctx context.Context, realmID string, sourceIDs []string, synthType content.SynthesisType) (*Draft, error) {
	realm, err := db.GetRealm(ctx, m.db, realmID)
	if err != nil {
		return nil, err
	}

	var sources []*content.ContentSource
	if len(sourceIDs) > 0 {
		sources, err = realmSources(ctx, m.db, realmID, sourceIDs)
	} else {
		sources, err = db.ListSources(ctx, m.db, db.SourceFilter{RealmID: &realmID})
	}
	if err != nil {
		return nil, err
	}
	if len(sources) == 0 {
		return nil, errors.NewNoContent(realmID)
	}

	prompt, bundle, err := m.engine.Run(ctx, RunInput{Realm: realm, Sources: sources, Type: synthType})
	if err != nil {
		return nil, err
	}
	return &Draft{Realm: realm, Sources: sources, Prompt: prompt, Bundle: bundle}, nil
}

// FullResult reports a committed full synthesis.
type FullResult struct {
	RealmID         string  `json:"realm_id"`
	Prompt          string  `json:"prompt"`
	Version         int     `json:"version"`
	PromptVersionID string  `json:"prompt_version_id"`
	QualityScore    float64 `json:"quality_score"`
	QueueProcessed  int64   `json:"queue_processed"`
	Bundle          *Bundle `json:"quality_analysis"`
}

// JobRef ties a commit to the synthesis job that produced it.
type JobRef struct {
	ID        string
	StartedAt time.Time
}

// result builds the job completion written alongside a commit. A nil ref
// yields nil.
func (j *JobRef) result(prompt string, analysis map[string]any, now time.Time) *db.JobResult {
	if j == nil {
		return nil
	}
	return &db.JobResult{
		ID:               j.ID,
		ResultPrompt:     prompt,
		QualityAnalysis:  analysis,
		ProcessingTimeMs: now.Sub(j.StartedAt).Milliseconds(),
		At:               now.Unix(),
	}
}

// Apply commits a draft. It fails with CONFLICT if the realm was synthesized
// since the draft was computed. Pending queue entries for the sources the
// draft used are marked processed in the same transaction.
func (m *Manager) Apply(ctx context.Context, d *Draft) (*FullResult, error) {
	return m.apply(ctx, d, nil)
}

// ApplyJob commits a draft and completes job in the same transaction. It
// fails with JOB_TERMINAL, writing nothing, if the job was cancelled.
func (m *Manager) ApplyJob(ctx context.Context, d *Draft, job JobRef) (*FullResult, error) {
	return m.apply(ctx, d, &job)
}

func (m *Manager) apply(ctx context.Context, d *Draft, job *JobRef) (*FullResult, error) {
	realmID := d.Realm.ID
	pending, err := db.ListPendingQueue(ctx, m.db, realmID)
	if err != nil {
		return nil, err
	}
	used := make(map[string]bool, len(d.Sources))
	for _, s := range d.Sources {
		used[s.ID] = true
	}
	var queueIDs []string
	for _, e := range pending {
		if used[e.ContentSourceID] {
			queueIDs = append(queueIDs, e.ID)
		}
	}

	versionID, err := content.NewID()
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	qa := d.Bundle.QualityAssessment
	quality := qa.OverallQuality
	at := m.now()
	now := at.Unix()

	res, err := db.CommitSynthesis(ctx, m.db, db.CommitInput{
		Realm: db.RealmSynthesis{
			RealmID:         realmID,
			ExpectedVersion: d.Realm.CurrentVersion,
			Prompt:          d.Prompt,
			QualityScore:    &quality,
			At:              now,
		},
		Version: &content.PromptVersion{
			ID:                     versionID,
			SynthesisMethod:        content.MethodAdvanced,
			QualityScore:           &quality,
			EffectivenessMetrics:   qa.ToMap(),
			ImprovementSuggestions: qa.ImprovementSuggestions,
			ContentSourceIDs:       content.IDs(d.Sources),
			CreatedAt:              now,
		},
		QueueIDs: queueIDs,
		Job:      job.result(d.Prompt, d.Bundle.ToMap(), at),
	})
	if err != nil {
		return nil, err
	}

	m.log.Info("full synthesis applied",
		zap.String("realm_id", realmID),
		zap.Int("version", res.Version),
		zap.Float64("quality", quality))

	return &FullResult{
		RealmID:         realmID,
		Prompt:          d.Prompt,
		Version:         res.Version,
		PromptVersionID: versionID,
		QualityScore:    quality,
		QueueProcessed:  res.QueueProcessed,
		Bundle:          d.Bundle,
	}, nil
}

// ForceFullSynthesis runs the full pipeline and commits it inline.
func (m *Manager) ForceFullSynthesis(ctx context.Context, realmID string, sourceIDs []string) (*FullResult, error) {
	d, err := m.Synthesize(ctx, realmID, sourceIDs, content.SynthesisFull)
	if err != nil {
		return nil, err
	}
	return m.Apply(ctx, d)
}
