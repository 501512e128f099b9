package db

import (
	"context"
	"database/sql"

	"github.com/hpungsan/pathfinder/internal/content"
	"github.com/hpungsan/pathfinder/internal/errors"
)

const textColumns = `id, title, content, source_file_name, created_at`

// InsertText stores a new text.
func InsertText(ctx context.Context, q Querier, t *content.Text) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO texts (`+textColumns+`) VALUES (?, ?, ?, ?, ?)`,
		t.ID, t.Title, t.Content, toNullString(t.SourceFileName), t.CreatedAt)
	if err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// GetText retrieves a text by id.
func GetText(ctx context.Context, q Querier, id string) (*content.Text, error) {
	row := q.QueryRowContext(ctx, `SELECT `+textColumns+` FROM texts WHERE id = ?`, id)
	t, err := scanText(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound("text", id)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return t, nil
}

// ListTexts returns all texts, newest first.
func ListTexts(ctx context.Context, q Querier) ([]*content.Text, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+textColumns+` FROM texts ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	var out []*content.Text
	for rows.Next() {
		t, err := scanText(rows)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return out, nil
}

// DeleteText removes a text. Content sources created from it are kept.
func DeleteText(ctx context.Context, q Querier, id string) error {
	result, err := q.ExecContext(ctx, `DELETE FROM texts WHERE id = ?`, id)
	if err != nil {
		return errors.NewInternal(err)
	}
	return expectAffected(result, "text", id)
}

func scanText(row scanner) (*content.Text, error) {
	var (
		t        content.Text
		fileName sql.NullString
	)
	if err := row.Scan(&t.ID, &t.Title, &t.Content, &fileName, &t.CreatedAt); err != nil {
		return nil, err
	}
	t.SourceFileName = fromNullString(fileName)
	return &t, nil
}
