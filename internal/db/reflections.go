package db

import (
	"context"
	"database/sql"

	"github.com/hpungsan/pathfinder/internal/content"
	"github.com/hpungsan/pathfinder/internal/errors"
)

const reflectionColumns = `id, realm_id, question, answer, category, importance_score, created_at, answered_at`

// InsertReflection stores a new reflection question.
func InsertReflection(ctx context.Context, q Querier, r *content.Reflection) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO reflections (`+reflectionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, toNullString(r.RealmID), r.Question, toNullString(r.Answer), toNullString(r.Category),
		r.ImportanceScore, r.CreatedAt, toNullInt64(r.AnsweredAt),
	)
	if err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// GetReflection retrieves a reflection by id.
func GetReflection(ctx context.Context, q Querier, id string) (*content.Reflection, error) {
	row := q.QueryRowContext(ctx, `SELECT `+reflectionColumns+` FROM reflections WHERE id = ?`, id)
	r, err := scanReflection(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound("reflection", id)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return r, nil
}

// ReflectionFilter narrows ListReflections.
type ReflectionFilter struct {
	RealmID  *string
	Answered *bool // nil means both
}

// ListReflections returns reflections matching filter, oldest first.
func ListReflections(ctx context.Context, q Querier, filter ReflectionFilter) ([]*content.Reflection, error) {
	query := `SELECT ` + reflectionColumns + ` FROM reflections WHERE 1 = 1`
	var args []any
	if filter.RealmID != nil {
		query += ` AND realm_id = ?`
		args = append(args, *filter.RealmID)
	}
	if filter.Answered != nil {
		if *filter.Answered {
			query += ` AND answer IS NOT NULL AND TRIM(answer) != ''`
		} else {
			query += ` AND (answer IS NULL OR TRIM(answer) = '')`
		}
	}
	query += ` ORDER BY created_at ASC, id ASC`

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	var out []*content.Reflection
	for rows.Next() {
		r, err := scanReflection(rows)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return out, nil
}

// AnswerReflection records an answer for a reflection.
func AnswerReflection(ctx context.Context, q Querier, id, answer string, at int64) error {
	result, err := q.ExecContext(ctx,
		`UPDATE reflections SET answer = ?, answered_at = ? WHERE id = ?`, answer, at, id)
	if err != nil {
		return errors.NewInternal(err)
	}
	return expectAffected(result, "reflection", id)
}

func scanReflection(row scanner) (*content.Reflection, error) {
	var (
		r          content.Reflection
		realmID    sql.NullString
		answer     sql.NullString
		category   sql.NullString
		answeredAt sql.NullInt64
	)
	err := row.Scan(&r.ID, &realmID, &r.Question, &answer, &category, &r.ImportanceScore, &r.CreatedAt, &answeredAt)
	if err != nil {
		return nil, err
	}
	r.RealmID = fromNullString(realmID)
	r.Answer = fromNullString(answer)
	r.Category = fromNullString(category)
	r.AnsweredAt = fromNullInt64(answeredAt)
	return &r, nil
}
