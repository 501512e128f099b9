package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/hpungsan/pathfinder/internal/content"
	"github.com/hpungsan/pathfinder/internal/errors"
)

const sourceColumns = `id, realm_id, source_type, title, content, weight, metadata_json, created_at, updated_at`

// SourceFilter narrows ListSources and CountSources.
type SourceFilter struct {
	IDs        []string            // only these sources
	RealmID    *string             // only sources in this realm
	Unassigned bool                // only sources without a realm (ignored when RealmID is set)
	SourceType *content.SourceType // only sources of this type
	Limit      int                 // 0 means no limit
	Offset     int
}

func (f SourceFilter) where() (string, []any) {
	var clauses []string
	var args []any
	if len(f.IDs) > 0 {
		clauses = append(clauses, "id IN ("+placeholders(len(f.IDs))+")")
		args = append(args, stringArgs(f.IDs)...)
	}
	if f.RealmID != nil {
		clauses = append(clauses, "realm_id = ?")
		args = append(args, *f.RealmID)
	} else if f.Unassigned {
		clauses = append(clauses, "realm_id IS NULL")
	}
	if f.SourceType != nil {
		clauses = append(clauses, "source_type = ?")
		args = append(args, string(*f.SourceType))
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// InsertSource stores a new content source. Weight is clamped to [0,5].
func InsertSource(ctx context.Context, q Querier, s *content.ContentSource) error {
	s.Weight = content.ClampWeight(s.Weight)
	md, err := toJSON(s.Metadata)
	if err != nil {
		return err
	}

	query := `INSERT INTO content_sources (` + sourceColumns + `, content_chars) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = q.ExecContext(ctx, query,
		s.ID, toNullString(s.RealmID), string(s.SourceType), toNullString(s.Title), s.Content,
		s.Weight, md, s.CreatedAt, s.UpdatedAt, content.CountChars(s.Content),
	)
	if err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// GetSource retrieves a content source by id.
func GetSource(ctx context.Context, q Querier, id string) (*content.ContentSource, error) {
	row := q.QueryRowContext(ctx, `SELECT `+sourceColumns+` FROM content_sources WHERE id = ?`, id)
	s, err := scanSource(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound("content source", id)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return s, nil
}

// GetSources resolves ids in the given order, silently dropping ids that do not exist.
func GetSources(ctx context.Context, q Querier, ids []string) ([]*content.ContentSource, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := `SELECT ` + sourceColumns + ` FROM content_sources WHERE id IN (` + placeholders(len(ids)) + `)`
	rows, err := q.QueryContext(ctx, query, stringArgs(ids)...)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	byID := make(map[string]*content.ContentSource, len(ids))
	for rows.Next() {
		s, err := scanSource(rows)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		byID[s.ID] = s
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}

	out := make([]*content.ContentSource, 0, len(byID))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if s, ok := byID[id]; ok && !seen[id] {
			seen[id] = true
			out = append(out, s)
		}
	}
	return out, nil
}

// ListSources returns sources matching filter, oldest first.
func ListSources(ctx context.Context, q Querier, filter SourceFilter) ([]*content.ContentSource, error) {
	where, args := filter.where()
	query := `SELECT ` + sourceColumns + ` FROM content_sources` + where + ` ORDER BY created_at ASC, id ASC`
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", filter.Limit, filter.Offset)
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	var sources []*content.ContentSource
	for rows.Next() {
		s, err := scanSource(rows)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		sources = append(sources, s)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return sources, nil
}

// CountSources returns how many sources match filter (Limit/Offset ignored).
func CountSources(ctx context.Context, q Querier, filter SourceFilter) (int, error) {
	where, args := filter.where()
	var n int
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM content_sources`+where, args...).Scan(&n); err != nil {
		return 0, errors.NewInternal(err)
	}
	return n, nil
}

// RealmContentChars sums the character length of every source in a realm.
func RealmContentChars(ctx context.Context, q Querier, realmID string) (int, error) {
	var total int
	err := q.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(content_chars), 0) FROM content_sources WHERE realm_id = ?`, realmID,
	).Scan(&total)
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	return total, nil
}

// UpdateSource rewrites the mutable fields of a content source.
func UpdateSource(ctx context.Context, q Querier, s *content.ContentSource) error {
	s.Weight = content.ClampWeight(s.Weight)
	md, err := toJSON(s.Metadata)
	if err != nil {
		return err
	}

	query := `
		UPDATE content_sources
		SET realm_id = ?, source_type = ?, title = ?, content = ?, content_chars = ?,
			weight = ?, metadata_json = ?, updated_at = ?
		WHERE id = ?
	`
	result, err := q.ExecContext(ctx, query,
		toNullString(s.RealmID), string(s.SourceType), toNullString(s.Title), s.Content,
		content.CountChars(s.Content), s.Weight, md, s.UpdatedAt, s.ID,
	)
	if err != nil {
		return errors.NewInternal(err)
	}
	return expectAffected(result, "content source", s.ID)
}

// UpdateSourceWeight sets the weight of a content source, clamped to [0,5].
func UpdateSourceWeight(ctx context.Context, q Querier, id string, weight float64, at int64) error {
	result, err := q.ExecContext(ctx,
		`UPDATE content_sources SET weight = ?, updated_at = ? WHERE id = ?`,
		content.ClampWeight(weight), at, id)
	if err != nil {
		return errors.NewInternal(err)
	}
	return expectAffected(result, "content source", id)
}

// UpdateSourceMetadata replaces the metadata of a content source.
func UpdateSourceMetadata(ctx context.Context, q Querier, id string, md map[string]any, at int64) error {
	data, err := toJSON(md)
	if err != nil {
		return err
	}
	result, err := q.ExecContext(ctx,
		`UPDATE content_sources SET metadata_json = ?, updated_at = ? WHERE id = ?`, data, at, id)
	if err != nil {
		return errors.NewInternal(err)
	}
	return expectAffected(result, "content source", id)
}

// DeleteSource removes a content source and any queue entries pointing at it.
func DeleteSource(ctx context.Context, database *sql.DB, id string) error {
	return WithTx(ctx, database, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM synthesis_queue WHERE content_source_id = ?`, id); err != nil {
			return errors.NewInternal(err)
		}
		result, err := tx.ExecContext(ctx, `DELETE FROM content_sources WHERE id = ?`, id)
		if err != nil {
			return errors.NewInternal(err)
		}
		return expectAffected(result, "content source", id)
	})
}

// SearchSources returns sources whose title or content contains query
// (ASCII case-insensitive), newest first.
func SearchSources(ctx context.Context, q Querier, query string, realmID *string, limit int) ([]*content.ContentSource, error) {
	pattern := "%" + escapeLike(query) + "%"
	sqlQuery := `SELECT ` + sourceColumns + ` FROM content_sources
		WHERE (content LIKE ? ESCAPE '\' OR title LIKE ? ESCAPE '\')`
	args := []any{pattern, pattern}
	if realmID != nil {
		sqlQuery += ` AND realm_id = ?`
		args = append(args, *realmID)
	}
	sqlQuery += ` ORDER BY created_at DESC, id DESC`
	if limit > 0 {
		sqlQuery += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := q.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	var sources []*content.ContentSource
	for rows.Next() {
		s, err := scanSource(rows)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		sources = append(sources, s)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return sources, nil
}

// FindSourceByMetadata returns the first source whose metadata key equals value,
// or nil when there is none.
func FindSourceByMetadata(ctx context.Context, q Querier, key, value string) (*content.ContentSource, error) {
	row := q.QueryRowContext(ctx,
		`SELECT `+sourceColumns+` FROM content_sources
		WHERE json_extract(metadata_json, ?) = ?
		ORDER BY created_at ASC LIMIT 1`,
		"$."+key, value)
	s, err := scanSource(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return s, nil
}

// escapeLike escapes LIKE wildcards so user input matches literally.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// scanSource scans a single row into a ContentSource struct.
func scanSource(row scanner) (*content.ContentSource, error) {
	var (
		s          content.ContentSource
		realmID    sql.NullString
		sourceType string
		title      sql.NullString
		metadata   sql.NullString
	)

	err := row.Scan(&s.ID, &realmID, &sourceType, &title, &s.Content, &s.Weight, &metadata, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}

	st, err := content.ParseSourceType(sourceType)
	if err != nil {
		return nil, err
	}
	s.SourceType = st
	s.RealmID = fromNullString(realmID)
	s.Title = fromNullString(title)
	s.Metadata = map[string]any{}
	if err := fromJSON(metadata, &s.Metadata); err != nil {
		return nil, err
	}

	return &s, nil
}
