package jobs

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hpungsan/pathfinder/internal/content"
	"github.com/hpungsan/pathfinder/internal/db"
	"github.com/hpungsan/pathfinder/internal/errors"
	"github.com/hpungsan/pathfinder/internal/synthesis"
)

// Synthesizer is the part of the synthesis manager a job runs.
type Synthesizer interface {
	Synthesize(ctx context.Context, realmID string, sourceIDs []string, synthType content.SynthesisType) (*synthesis.Draft, error)
	ApplyJob(ctx context.Context, d *synthesis.Draft, job synthesis.JobRef) (*synthesis.FullResult, error)
	IncrementalJob(ctx context.Context, job synthesis.JobRef, realmID string, sourceIDs []string) (*synthesis.IncrementalResult, error)
}

// Tracker starts synthesis jobs on background goroutines and records their
// lifecycle. Jobs run with a context owned by the Tracker, not the caller,
// so only Close interrupts them.
type Tracker struct {
	db    *sql.DB
	synth Synthesizer
	cache *StatusCache
	log   *zap.Logger
	now   func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewTracker creates a Tracker. A nil cache gets a fresh one.
func NewTracker(database *sql.DB, synth Synthesizer, cache *StatusCache, log *zap.Logger) *Tracker {
	if cache == nil {
		cache = NewStatusCache()
	}
	if log == nil {
		log = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Tracker{
		db:     database,
		synth:  synth,
		cache:  cache,
		log:    log,
		now:    time.Now,
		ctx:    ctx,
		cancel: cancel,
	}
}

// StartInput contains parameters for starting a job.
type StartInput struct {
	RealmID          string // required
	SynthesisType    string // full (default), incremental, quality_improvement
	ContentSourceIDs []string
	Configuration    map[string]any
}

// Start validates the request, records a pending job and runs it in the background.
func (t *Tracker) Start(ctx context.Context, input StartInput) (*content.Job, error) {
	if input.RealmID == "" {
		return nil, errors.NewInvalidRequest("realm_id is required")
	}
	synthType, err := content.ParseSynthesisType(input.SynthesisType)
	if err != nil {
		return nil, errors.NewInvalidRequest(err.Error())
	}
	if _, err := db.GetRealm(ctx, t.db, input.RealmID); err != nil {
		return nil, err
	}

	switch synthType {
	case content.SynthesisIncremental:
		if len(input.ContentSourceIDs) == 0 {
			return nil, errors.NewInvalidRequest("content_source_ids is required for incremental jobs")
		}
	default:
		if len(input.ContentSourceIDs) == 0 {
			n, err := db.CountSources(ctx, t.db, db.SourceFilter{RealmID: &input.RealmID})
			if err != nil {
				return nil, err
			}
			if n == 0 {
				return nil, errors.NewNoContent(input.RealmID)
			}
		}
	}

	id, err := content.NewID()
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	now := t.now().Unix()
	job := &content.Job{
		ID:               id,
		RealmID:          input.RealmID,
		SynthesisType:    synthType,
		Status:           content.JobPending,
		ContentSourceIDs: input.ContentSourceIDs,
		Configuration:    input.Configuration,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := db.InsertJob(ctx, t.db, job); err != nil {
		return nil, err
	}
	t.cache.Put(job)

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		t.run(t.ctx, job)
	}()

	t.log.Info("synthesis job started",
		zap.String("job_id", id),
		zap.String("realm_id", input.RealmID),
		zap.String("type", string(synthType)))
	out := *job
	return &out, nil
}

// run executes one job. Status writes use a background context so they land
// even when the Tracker is closing. A successful job is completed by the same
// transaction that commits its result.
func (t *Tracker) run(ctx context.Context, job *content.Job) {
	bg := context.Background()
	log := t.log.With(zap.String("job_id", job.ID), zap.String("realm_id", job.RealmID))

	started, err := db.StartJob(bg, t.db, job.ID, t.now().Unix())
	if err != nil {
		log.Error("could not start job", zap.Error(err))
		t.fail(bg, job.ID, err, 0)
		return
	}
	if !started {
		log.Info("job cancelled before it started")
		t.refresh(bg, job.ID)
		return
	}
	t.refresh(bg, job.ID)

	start := t.now()
	err = t.execute(ctx, job, synthesis.JobRef{ID: job.ID, StartedAt: start})
	elapsed := t.now().Sub(start).Milliseconds()

	if err != nil {
		if t.cancelled(bg, job.ID) {
			log.Info("job cancelled while running; result discarded")
			t.refresh(bg, job.ID)
			return
		}
		log.Warn("synthesis job failed", zap.Error(err))
		t.fail(bg, job.ID, err, elapsed)
		return
	}
	t.refresh(bg, job.ID)
	log.Info("synthesis job completed", zap.Int64("processing_time_ms", elapsed))
}

// execute runs the work for a job. Its commit refuses to write once the job
// has been cancelled.
func (t *Tracker) execute(ctx context.Context, job *content.Job, ref synthesis.JobRef) error {
	if job.SynthesisType == content.SynthesisIncremental {
		res, err := t.synth.IncrementalJob(ctx, ref, job.RealmID, job.ContentSourceIDs)
		if err != nil {
			return err
		}
		if !res.Applied {
			return fmt.Errorf("incremental synthesis made no changes")
		}
		return nil
	}

	draft, err := t.synth.Synthesize(ctx, job.RealmID, job.ContentSourceIDs, job.SynthesisType)
	if err != nil {
		return err
	}
	_, err = t.synth.ApplyJob(ctx, draft, ref)
	return err
}

func (t *Tracker) cancelled(ctx context.Context, id string) bool {
	j, err := db.GetJob(ctx, t.db, id)
	return err == nil && j.Status == content.JobCancelled
}

func (t *Tracker) fail(ctx context.Context, id string, cause error, elapsed int64) {
	if _, err := db.FailJob(ctx, t.db, id, errors.As(cause).Message, elapsed, t.now().Unix()); err != nil {
		t.log.Error("could not record job failure", zap.String("job_id", id), zap.Error(err))
	}
	t.refresh(ctx, id)
}

// refresh reloads a job from the database into the cache.
func (t *Tracker) refresh(ctx context.Context, id string) {
	j, err := db.GetJob(ctx, t.db, id)
	if err != nil {
		t.cache.Delete(id)
		return
	}
	t.cache.Put(j)
}

// Get returns a job, from the cache while it is in flight.
func (t *Tracker) Get(ctx context.Context, id string) (*content.Job, error) {
	if id == "" {
		return nil, errors.NewInvalidRequest("job_id is required")
	}
	if j, ok := t.cache.Get(id); ok {
		return j, nil
	}
	return db.GetJob(ctx, t.db, id)
}

// List returns recent jobs, newest first, optionally for one realm.
func (t *Tracker) List(ctx context.Context, realmID *string, limit int) ([]*content.Job, error) {
	return db.ListJobs(ctx, t.db, realmID, limit)
}

// Cancel marks a pending or processing job cancelled. Work already under way
// is not interrupted: a model call in flight runs to completion and the job's
// result is then discarded. Cancelling a finished job fails with JOB_TERMINAL.
func (t *Tracker) Cancel(ctx context.Context, id string) (*content.Job, error) {
	j, err := db.GetJob(ctx, t.db, id)
	if err != nil {
		return nil, err
	}
	if j.Status.IsTerminal() {
		return nil, errors.NewJobTerminal(id, string(j.Status))
	}

	ok, err := db.CancelJob(ctx, t.db, id, t.now().Unix())
	if err != nil {
		return nil, err
	}
	j, err = db.GetJob(ctx, t.db, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		// finished between the read and the update
		return nil, errors.NewJobTerminal(id, string(j.Status))
	}

	t.cache.Put(j)
	t.log.Info("synthesis job cancelled", zap.String("job_id", id))
	return j, nil
}

// Wait blocks until every started job has finished.
func (t *Tracker) Wait() {
	t.wg.Wait()
}

// Close interrupts running jobs and waits for them to exit.
func (t *Tracker) Close() {
	t.cancel()
	t.wg.Wait()
}
