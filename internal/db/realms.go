package db

import (
	"context"
	"database/sql"

	"github.com/hpungsan/pathfinder/internal/content"
	"github.com/hpungsan/pathfinder/internal/errors"
)

const realmColumns = `id, name, description, system_prompt, is_default, synthesis_disabled,
	quality_score, last_synthesis_at, current_version, created_at, updated_at`

// InsertRealm stores a new realm. A version below content.InitialVersion is
// raised to it.
func InsertRealm(ctx context.Context, q Querier, r *content.Realm) error {
	if r.CurrentVersion < content.InitialVersion {
		r.CurrentVersion = content.InitialVersion
	}
	query := `INSERT INTO realms (` + realmColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := q.ExecContext(ctx, query,
		r.ID, r.Name, toNullString(r.Description), toNullString(r.SystemPrompt),
		boolToInt(r.IsDefault), boolToInt(r.SynthesisDisabled),
		toNullFloat(r.QualityScore), toNullInt64(r.LastSynthesisAt), r.CurrentVersion,
		r.CreatedAt, r.UpdatedAt,
	)
	if err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// GetRealm retrieves a realm by id.
func GetRealm(ctx context.Context, q Querier, id string) (*content.Realm, error) {
	row := q.QueryRowContext(ctx, `SELECT `+realmColumns+` FROM realms WHERE id = ?`, id)
	r, err := scanRealm(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound("realm", id)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return r, nil
}

// GetDefaultRealm returns the protected default realm, or NOT_FOUND if it was never created.
func GetDefaultRealm(ctx context.Context, q Querier) (*content.Realm, error) {
	row := q.QueryRowContext(ctx, `SELECT `+realmColumns+` FROM realms WHERE is_default = 1`)
	r, err := scanRealm(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound("realm", "default")
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return r, nil
}

// ListRealms returns all realms, the default realm first, then oldest first.
func ListRealms(ctx context.Context, q Querier) ([]*content.Realm, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+realmColumns+` FROM realms ORDER BY is_default DESC, created_at ASC, id ASC`)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	var realms []*content.Realm
	for rows.Next() {
		r, err := scanRealm(rows)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		realms = append(realms, r)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return realms, nil
}

// UpdateRealmDetails updates the user-editable fields of a realm.
// Synthesis-owned fields (prompt, version, quality) are not touched.
func UpdateRealmDetails(ctx context.Context, q Querier, r *content.Realm) error {
	query := `
		UPDATE realms
		SET name = ?, description = ?, synthesis_disabled = ?, updated_at = ?
		WHERE id = ?
	`
	result, err := q.ExecContext(ctx, query,
		r.Name, toNullString(r.Description), boolToInt(r.SynthesisDisabled), r.UpdatedAt, r.ID)
	if err != nil {
		return errors.NewInternal(err)
	}
	return expectAffected(result, "realm", r.ID)
}

// RealmSynthesis is the realm-side part of an applied synthesis.
type RealmSynthesis struct {
	RealmID         string
	ExpectedVersion int
	Prompt          string
	QualityScore    *float64 // nil keeps the existing score
	At              int64
}

// ApplyRealmSynthesis writes a synthesized prompt if the realm is still at
// ExpectedVersion, bumping current_version by one. last_synthesis_at never
// moves backwards. Returns the new version, CONFLICT if the realm moved on,
// or NOT_FOUND if it no longer exists.
func ApplyRealmSynthesis(ctx context.Context, q Querier, in RealmSynthesis) (int, error) {
	query := `
		UPDATE realms
		SET system_prompt = ?,
			quality_score = COALESCE(?, quality_score),
			last_synthesis_at = MAX(COALESCE(last_synthesis_at, 0), ?),
			current_version = current_version + 1,
			updated_at = ?
		WHERE id = ? AND current_version = ?
	`
	result, err := q.ExecContext(ctx, query,
		in.Prompt, toNullFloat(in.QualityScore), in.At, in.At, in.RealmID, in.ExpectedVersion)
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	if n == 0 {
		if _, err := GetRealm(ctx, q, in.RealmID); err != nil {
			return 0, err
		}
		return 0, errors.NewVersionConflict(in.RealmID, in.ExpectedVersion)
	}
	return in.ExpectedVersion + 1, nil
}

// DeleteRealm removes a realm and everything that only makes sense inside it.
// Content sources, reflections and chats survive as unassigned records.
func DeleteRealm(ctx context.Context, database *sql.DB, id string) error {
	return WithTx(ctx, database, func(tx *sql.Tx) error {
		r, err := GetRealm(ctx, tx, id)
		if err != nil {
			return err
		}
		if r.IsDefault {
			return errors.NewInvalidRequest("the default realm cannot be deleted")
		}

		stmts := []string{
			`UPDATE content_sources SET realm_id = NULL WHERE realm_id = ?`,
			`UPDATE reflections SET realm_id = NULL WHERE realm_id = ?`,
			`UPDATE chats SET realm_id = NULL WHERE realm_id = ?`,
			`DELETE FROM synthesis_queue WHERE realm_id = ?`,
			`DELETE FROM prompt_versions WHERE realm_id = ?`,
			`DELETE FROM synthesis_jobs WHERE realm_id = ?`,
			`DELETE FROM realms WHERE id = ?`,
		}
		for _, stmt := range stmts {
			if _, err := tx.ExecContext(ctx, stmt, id); err != nil {
				return errors.NewInternal(err)
			}
		}
		return nil
	})
}

// scanRealm scans a single row into a Realm struct.
func scanRealm(row scanner) (*content.Realm, error) {
	var (
		r                 content.Realm
		description       sql.NullString
		systemPrompt      sql.NullString
		isDefault         int
		synthesisDisabled int
		qualityScore      sql.NullFloat64
		lastSynthesisAt   sql.NullInt64
	)

	err := row.Scan(
		&r.ID, &r.Name, &description, &systemPrompt, &isDefault, &synthesisDisabled,
		&qualityScore, &lastSynthesisAt, &r.CurrentVersion, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	r.Description = fromNullString(description)
	r.SystemPrompt = fromNullString(systemPrompt)
	r.IsDefault = isDefault != 0
	r.SynthesisDisabled = synthesisDisabled != 0
	r.QualityScore = fromNullFloat(qualityScore)
	r.LastSynthesisAt = fromNullInt64(lastSynthesisAt)

	return &r, nil
}
