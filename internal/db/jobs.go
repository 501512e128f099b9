package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hpungsan/pathfinder/internal/content"
	"github.com/hpungsan/pathfinder/internal/errors"
)

const jobColumns = `id, realm_id, synthesis_type, status, content_source_ids_json, configuration_json,
	result_prompt, quality_analysis_json, error_message, processing_time_ms, created_at, updated_at, completed_at`

// InsertJob stores a new synthesis job.
func InsertJob(ctx context.Context, q Querier, j *content.Job) error {
	sourceIDs, err := toJSON(j.ContentSourceIDs)
	if err != nil {
		return err
	}
	cfg, err := toJSON(j.Configuration)
	if err != nil {
		return err
	}
	analysis, err := toJSON(j.QualityAnalysis)
	if err != nil {
		return err
	}

	_, err = q.ExecContext(ctx,
		`INSERT INTO synthesis_jobs (`+jobColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		j.ID, j.RealmID, string(j.SynthesisType), string(j.Status), sourceIDs, cfg,
		toNullString(j.ResultPrompt), analysis, toNullString(j.ErrorMessage), toNullInt64(j.ProcessingTimeMs),
		j.CreatedAt, j.UpdatedAt, toNullInt64(j.CompletedAt),
	)
	if err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// GetJob retrieves a synthesis job by id.
func GetJob(ctx context.Context, q Querier, id string) (*content.Job, error) {
	row := q.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM synthesis_jobs WHERE id = ?`, id)
	j, err := scanJob(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound("synthesis job", id)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return j, nil
}

// ListJobs returns jobs for a realm (or all realms when realmID is nil), newest first.
func ListJobs(ctx context.Context, q Querier, realmID *string, limit int) ([]*content.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM synthesis_jobs`
	var args []any
	if realmID != nil {
		query += ` WHERE realm_id = ?`
		args = append(args, *realmID)
	}
	query += ` ORDER BY created_at DESC, id DESC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	var out []*content.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		out = append(out, j)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return out, nil
}

// StartJob moves a pending job to processing. Returns false if the job was
// no longer pending (for example cancelled before it started).
func StartJob(ctx context.Context, q Querier, id string, at int64) (bool, error) {
	result, err := q.ExecContext(ctx,
		`UPDATE synthesis_jobs SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		string(content.JobProcessing), at, id, string(content.JobPending))
	if err != nil {
		return false, errors.NewInternal(err)
	}
	return affectedOne(result)
}

// JobResult is the outcome recorded when a job completes.
type JobResult struct {
	ID               string
	ResultPrompt     string
	QualityAnalysis  map[string]any
	ProcessingTimeMs int64
	At               int64
}

// CompleteJob records a successful result. Only a processing job can complete;
// returns false when the job had already reached another state.
func CompleteJob(ctx context.Context, q Querier, r JobResult) (bool, error) {
	analysis, err := toJSON(r.QualityAnalysis)
	if err != nil {
		return false, err
	}
	result, err := q.ExecContext(ctx, `
		UPDATE synthesis_jobs
		SET status = ?, result_prompt = ?, quality_analysis_json = ?, processing_time_ms = ?,
			updated_at = ?, completed_at = ?
		WHERE id = ? AND status = ?`,
		string(content.JobCompleted), r.ResultPrompt, analysis, r.ProcessingTimeMs, r.At, r.At,
		r.ID, string(content.JobProcessing))
	if err != nil {
		return false, errors.NewInternal(err)
	}
	return affectedOne(result)
}

// FailJob records a failure for a job that has not reached a terminal state.
func FailJob(ctx context.Context, q Querier, id, message string, processingTimeMs int64, at int64) (bool, error) {
	result, err := q.ExecContext(ctx, `
		UPDATE synthesis_jobs
		SET status = ?, error_message = ?, processing_time_ms = ?, updated_at = ?, completed_at = ?
		WHERE id = ? AND status IN (?, ?)`,
		string(content.JobFailed), message, processingTimeMs, at, at,
		id, string(content.JobPending), string(content.JobProcessing))
	if err != nil {
		return false, errors.NewInternal(err)
	}
	return affectedOne(result)
}

// CancelJob marks a pending or processing job as cancelled.
// Returns false when the job is already terminal.
func CancelJob(ctx context.Context, q Querier, id string, at int64) (bool, error) {
	result, err := q.ExecContext(ctx, `
		UPDATE synthesis_jobs
		SET status = ?, updated_at = ?, completed_at = ?
		WHERE id = ? AND status IN (?, ?)`,
		string(content.JobCancelled), at, at,
		id, string(content.JobPending), string(content.JobProcessing))
	if err != nil {
		return false, errors.NewInternal(err)
	}
	return affectedOne(result)
}

func affectedOne(result sql.Result) (bool, error) {
	n, err := result.RowsAffected()
	if err != nil {
		return false, errors.NewInternal(err)
	}
	return n > 0, nil
}

func scanJob(row scanner) (*content.Job, error) {
	var (
		j            content.Job
		synthType    string
		status       string
		sourceIDs    sql.NullString
		cfg          sql.NullString
		resultPrompt sql.NullString
		analysis     sql.NullString
		errMessage   sql.NullString
		processingMs sql.NullInt64
		completedAt  sql.NullInt64
	)
	err := row.Scan(&j.ID, &j.RealmID, &synthType, &status, &sourceIDs, &cfg,
		&resultPrompt, &analysis, &errMessage, &processingMs, &j.CreatedAt, &j.UpdatedAt, &completedAt)
	if err != nil {
		return nil, err
	}
	j.SynthesisType = content.SynthesisType(synthType)
	j.Status = content.JobStatus(status)
	j.ResultPrompt = fromNullString(resultPrompt)
	j.ErrorMessage = fromNullString(errMessage)
	j.ProcessingTimeMs = fromNullInt64(processingMs)
	j.CompletedAt = fromNullInt64(completedAt)
	if err := fromJSON(sourceIDs, &j.ContentSourceIDs); err != nil {
		return nil, err
	}
	if err := fromJSON(cfg, &j.Configuration); err != nil {
		return nil, err
	}
	if err := fromJSON(analysis, &j.QualityAnalysis); err != nil {
		return nil, err
	}
	return &j, nil
}
