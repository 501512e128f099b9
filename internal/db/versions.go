package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hpungsan/pathfinder/internal/content"
	"github.com/hpungsan/pathfinder/internal/errors"
)

const versionColumns = `id, realm_id, version_number, system_prompt, synthesis_method, quality_score,
	effectiveness_metrics_json, improvement_suggestions_json, content_source_ids_json, created_at`

// InsertPromptVersion appends a prompt version.
func InsertPromptVersion(ctx context.Context, q Querier, v *content.PromptVersion) error {
	metrics, err := toJSON(v.EffectivenessMetrics)
	if err != nil {
		return err
	}
	suggestions, err := toJSON(v.ImprovementSuggestions)
	if err != nil {
		return err
	}
	sourceIDs, err := toJSON(v.ContentSourceIDs)
	if err != nil {
		return err
	}

	_, err = q.ExecContext(ctx,
		`INSERT INTO prompt_versions (`+versionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		v.ID, v.RealmID, v.VersionNumber, v.SystemPrompt, string(v.SynthesisMethod),
		toNullFloat(v.QualityScore), metrics, suggestions, sourceIDs, v.CreatedAt,
	)
	if err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// GetPromptVersion retrieves a prompt version by id.
func GetPromptVersion(ctx context.Context, q Querier, id string) (*content.PromptVersion, error) {
	row := q.QueryRowContext(ctx, `SELECT `+versionColumns+` FROM prompt_versions WHERE id = ?`, id)
	v, err := scanVersion(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound("prompt version", id)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return v, nil
}

// ListPromptVersions returns a realm's prompt history, newest first.
func ListPromptVersions(ctx context.Context, q Querier, realmID string, limit int) ([]*content.PromptVersion, error) {
	query := `SELECT ` + versionColumns + ` FROM prompt_versions WHERE realm_id = ? ORDER BY version_number DESC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := q.QueryContext(ctx, query, realmID)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	var out []*content.PromptVersion
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return out, nil
}

func scanVersion(row scanner) (*content.PromptVersion, error) {
	var (
		v           content.PromptVersion
		method      string
		quality     sql.NullFloat64
		metrics     sql.NullString
		suggestions sql.NullString
		sourceIDs   sql.NullString
	)
	err := row.Scan(&v.ID, &v.RealmID, &v.VersionNumber, &v.SystemPrompt, &method, &quality,
		&metrics, &suggestions, &sourceIDs, &v.CreatedAt)
	if err != nil {
		return nil, err
	}
	v.SynthesisMethod = content.SynthesisMethod(method)
	v.QualityScore = fromNullFloat(quality)
	if err := fromJSON(metrics, &v.EffectivenessMetrics); err != nil {
		return nil, err
	}
	if err := fromJSON(suggestions, &v.ImprovementSuggestions); err != nil {
		return nil, err
	}
	if err := fromJSON(sourceIDs, &v.ContentSourceIDs); err != nil {
		return nil, err
	}
	return &v, nil
}
