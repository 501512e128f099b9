package db

import (
	"context"
	"database/sql"

	"github.com/hpungsan/pathfinder/internal/content"
	"github.com/hpungsan/pathfinder/internal/errors"
)

const queueColumns = `id, realm_id, content_source_id, priority, processed, created_at, processed_at`

// InsertQueueEntry adds a content source to a realm's batch queue.
func InsertQueueEntry(ctx context.Context, q Querier, e *content.QueueEntry) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO synthesis_queue (`+queueColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.RealmID, e.ContentSourceID, e.Priority, boolToInt(e.Processed), e.CreatedAt,
		toNullInt64(e.ProcessedAt))
	if err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// ListPendingQueue returns a realm's unprocessed entries, oldest first.
func ListPendingQueue(ctx context.Context, q Querier, realmID string) ([]*content.QueueEntry, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT `+queueColumns+` FROM synthesis_queue
		WHERE realm_id = ? AND processed = 0
		ORDER BY created_at ASC, id ASC`, realmID)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	var out []*content.QueueEntry
	for rows.Next() {
		var (
			e           content.QueueEntry
			processed   int
			processedAt sql.NullInt64
		)
		if err := rows.Scan(&e.ID, &e.RealmID, &e.ContentSourceID, &e.Priority, &processed, &e.CreatedAt, &processedAt); err != nil {
			return nil, errors.NewInternal(err)
		}
		e.Processed = processed != 0
		e.ProcessedAt = fromNullInt64(processedAt)
		out = append(out, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return out, nil
}

// CountPendingQueue returns how many unprocessed entries a realm has.
func CountPendingQueue(ctx context.Context, q Querier, realmID string) (int, error) {
	var n int
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM synthesis_queue WHERE realm_id = ? AND processed = 0`, realmID).Scan(&n)
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	return n, nil
}

// MarkQueueProcessed marks exactly the given pending entries of a realm as processed.
// Entries that are already processed or belong elsewhere are left alone.
func MarkQueueProcessed(ctx context.Context, q Querier, realmID string, ids []string, at int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	args := append([]any{at, realmID}, stringArgs(ids)...)
	result, err := q.ExecContext(ctx,
		`UPDATE synthesis_queue SET processed = 1, processed_at = ?
		WHERE realm_id = ? AND processed = 0 AND id IN (`+placeholders(len(ids))+`)`, args...)
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	return n, nil
}

// PurgeProcessedQueue deletes processed entries that were processed before the cutoff.
func PurgeProcessedQueue(ctx context.Context, q Querier, before int64) (int64, error) {
	result, err := q.ExecContext(ctx,
		`DELETE FROM synthesis_queue WHERE processed = 1 AND processed_at < ?`, before)
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	return n, nil
}

// ListRealmsWithPendingQueue returns the ids of realms that have unprocessed entries.
func ListRealmsWithPendingQueue(ctx context.Context, q Querier) ([]string, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT DISTINCT realm_id FROM synthesis_queue WHERE processed = 0 ORDER BY realm_id`)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, errors.NewInternal(err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return ids, nil
}
