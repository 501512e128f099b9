package db

import (
	"context"
	"database/sql"
	"strings"

	"github.com/hpungsan/pathfinder/internal/content"
	"github.com/hpungsan/pathfinder/internal/errors"
)

// BulkSourceFields are the columns BulkUpdateSources may set.
type BulkSourceFields struct {
	RealmID *string  // "" unassigns
	Weight  *float64 // clamped to [0,5]
}

// BulkUpdateSources sets fields on every source matching filter and returns
// how many rows changed. Moving sources between realms drops their pending
// queue entries, which belong to the old realm.
func BulkUpdateSources(ctx context.Context, database *sql.DB, filter SourceFilter, fields BulkSourceFields, at int64) (int, error) {
	where, whereArgs := filter.where()

	var sets []string
	var args []any
	if fields.RealmID != nil {
		sets = append(sets, "realm_id = ?")
		if *fields.RealmID == "" {
			args = append(args, nil)
		} else {
			args = append(args, *fields.RealmID)
		}
	}
	if fields.Weight != nil {
		sets = append(sets, "weight = ?")
		args = append(args, content.ClampWeight(*fields.Weight))
	}
	if len(sets) == 0 {
		return 0, errors.NewInvalidRequest("no fields to update")
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, at)
	args = append(args, whereArgs...)

	var count int64
	err := WithTx(ctx, database, func(tx *sql.Tx) error {
		if fields.RealmID != nil {
			_, err := tx.ExecContext(ctx,
				`DELETE FROM synthesis_queue WHERE processed = 0 AND content_source_id IN (SELECT id FROM content_sources`+where+`)`,
				whereArgs...)
			if err != nil {
				return errors.NewInternal(err)
			}
		}
		result, err := tx.ExecContext(ctx,
			`UPDATE content_sources SET `+strings.Join(sets, ", ")+where, args...)
		if err != nil {
			return errors.NewInternal(err)
		}
		count, err = result.RowsAffected()
		if err != nil {
			return errors.NewInternal(err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return int(count), nil
}

// BulkDeleteSources removes every source matching filter together with its
// queue entries and returns how many sources were deleted.
func BulkDeleteSources(ctx context.Context, database *sql.DB, filter SourceFilter) (int, error) {
	where, args := filter.where()
	if where == "" {
		return 0, errors.NewInvalidRequest("at least one filter is required")
	}

	var count int64
	err := WithTx(ctx, database, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`DELETE FROM synthesis_queue WHERE content_source_id IN (SELECT id FROM content_sources`+where+`)`,
			args...)
		if err != nil {
			return errors.NewInternal(err)
		}
		result, err := tx.ExecContext(ctx, `DELETE FROM content_sources`+where, args...)
		if err != nil {
			return errors.NewInternal(err)
		}
		count, err = result.RowsAffected()
		if err != nil {
			return errors.NewInternal(err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return int(count), nil
}
