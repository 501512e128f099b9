package ops

import (
	"context"

	"github.com/hpungsan/pathfinder/internal/content"
	"github.com/hpungsan/pathfinder/internal/jobs"
	"github.com/hpungsan/pathfinder/internal/synthesis"
)

// estimatedJobSeconds is the completion estimate reported when a job starts.
const estimatedJobSeconds = 30

// ProcessBatchQueue merges a realm's queued sources into its prompt when the
// queue holds at least the minimum batch size.
func ProcessBatchQueue(ctx context.Context, env *Env, realmID string) (*synthesis.BatchResult, error) {
	realmID, err := requireID(realmID, "realm_id")
	if err != nil {
		return nil, err
	}
	return env.Synth.ProcessBatchQueue(ctx, realmID)
}

// ProcessAllQueues drains the batch queue of every realm that has pending entries.
func ProcessAllQueues(ctx context.Context, env *Env) (*synthesis.SweepResult, error) {
	return env.Synth.ProcessAllQueues(ctx)
}

// ForceFullSynthesisInput contains parameters for the ForceFullSynthesis operation.
type ForceFullSynthesisInput struct {
	RealmID          string   // required
	ContentSourceIDs []string // optional; default is every source in the realm
}

// ForceFullSynthesis runs the four-stage pipeline inline and commits the result.
func ForceFullSynthesis(ctx context.Context, env *Env, input ForceFullSynthesisInput) (*synthesis.FullResult, error) {
	realmID, err := requireID(input.RealmID, "realm_id")
	if err != nil {
		return nil, err
	}
	return env.Synth.ForceFullSynthesis(ctx, realmID, input.ContentSourceIDs)
}

// StartJobOutput contains the result of the StartJob operation.
type StartJobOutput struct {
	*content.Job
	EstimatedCompletionSeconds int `json:"estimated_completion_seconds"`
}

// StartJob starts a background synthesis job and returns it while pending.
func StartJob(ctx context.Context, env *Env, input jobs.StartInput) (*StartJobOutput, error) {
	realmID, err := requireID(input.RealmID, "realm_id")
	if err != nil {
		return nil, err
	}
	input.RealmID = realmID

	job, err := env.Jobs.Start(ctx, input)
	if err != nil {
		return nil, err
	}
	return &StartJobOutput{Job: job, EstimatedCompletionSeconds: estimatedJobSeconds}, nil
}

// GetJob returns the current state of a job.
func GetJob(ctx context.Context, env *Env, id string) (*content.Job, error) {
	id, err := requireID(id, "job_id")
	if err != nil {
		return nil, err
	}
	return env.Jobs.Get(ctx, id)
}

// ListJobsInput contains parameters for the ListJobs operation.
type ListJobsInput struct {
	RealmID *string // optional filter
	Limit   int     // default: 20, max: 100
}

// ListJobsOutput contains the result of the ListJobs operation.
type ListJobsOutput struct {
	Items []*content.Job `json:"items"`
	Sort  string         `json:"sort"`
}

// ListJobs returns recent jobs, newest first.
func ListJobs(ctx context.Context, env *Env, input ListJobsInput) (*ListJobsOutput, error) {
	items, err := env.Jobs.List(ctx, cleanOptionalString(input.RealmID), clampLimit(input.Limit, DefaultListLimit, MaxListLimit))
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []*content.Job{}
	}
	return &ListJobsOutput{Items: items, Sort: "created_at_desc"}, nil
}

// CancelJob cancels a pending or processing job.
func CancelJob(ctx context.Context, env *Env, id string) (*content.Job, error) {
	id, err := requireID(id, "job_id")
	if err != nil {
		return nil, err
	}
	return env.Jobs.Cancel(ctx, id)
}
