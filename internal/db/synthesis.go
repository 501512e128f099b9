package db

import (
	"context"
	"database/sql"

	"github.com/hpungsan/pathfinder/internal/content"
	"github.com/hpungsan/pathfinder/internal/errors"
)

// CommitInput is everything written when a synthesis result is applied.
type CommitInput struct {
	Realm    RealmSynthesis
	Version  *content.PromptVersion // VersionNumber and RealmID are filled in
	QueueIDs []string               // pending entries consumed by this synthesis

	// Job, when set, is completed in the same transaction. The commit is
	// refused with JOB_TERMINAL once the job has left processing.
	Job *JobResult
}

// CommitResult reports what CommitSynthesis wrote.
type CommitResult struct {
	Version        int
	QueueProcessed int64
}

// CommitSynthesis applies a synthesis result in one transaction: the realm
// prompt and version, a new prompt version row, and the consumed queue
// entries. Nothing is written if the realm is no longer at the expected version
// or the owning job was cancelled.
func CommitSynthesis(ctx context.Context, database *sql.DB, in CommitInput) (*CommitResult, error) {
	var res CommitResult
	err := WithTx(ctx, database, func(tx *sql.Tx) error {
		if in.Job != nil {
			ok, err := CompleteJob(ctx, tx, *in.Job)
			if err != nil {
				return err
			}
			if !ok {
				j, err := GetJob(ctx, tx, in.Job.ID)
				if err != nil {
					return err
				}
				return errors.NewJobTerminal(j.ID, string(j.Status))
			}
		}

		version, err := ApplyRealmSynthesis(ctx, tx, in.Realm)
		if err != nil {
			return err
		}
		res.Version = version

		if in.Version != nil {
			in.Version.RealmID = in.Realm.RealmID
			in.Version.VersionNumber = version
			in.Version.SystemPrompt = in.Realm.Prompt
			if err := InsertPromptVersion(ctx, tx, in.Version); err != nil {
				return err
			}
		}

		n, err := MarkQueueProcessed(ctx, tx, in.Realm.RealmID, in.QueueIDs, in.Realm.At)
		if err != nil {
			return err
		}
		res.QueueProcessed = n
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}
