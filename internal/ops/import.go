package ops

import (
	"bufio"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hpungsan/pathfinder/internal/content"
	"github.com/hpungsan/pathfinder/internal/db"
	"github.com/hpungsan/pathfinder/internal/errors"
)

// ImportMode controls collision behavior during import.
type ImportMode string

const (
	ImportModeError   ImportMode = "error"   // fail on collision (atomic)
	ImportModeReplace ImportMode = "replace" // overwrite on collision
	ImportModeRename  ImportMode = "rename"  // new id on collision
)

// maxImportLine bounds a single JSONL line; sources are at most SourceMaxChars
// runes, so this leaves room for multi-byte text and metadata.
const maxImportLine = 4 << 20

// ImportInput contains parameters for the Import operation.
type ImportInput struct {
	Path    string     // required
	Mode    ImportMode // default: error
	RealmID *string    // optional; assigns every imported source to this realm
}

// ImportOutput contains the result of the Import operation.
type ImportOutput struct {
	Imported int           `json:"imported"`
	Skipped  int           `json:"skipped"`
	Errors   []ImportError `json:"errors"`
}

// ImportError represents an error that occurred during import.
type ImportError struct {
	Line    int    `json:"line,omitempty"`
	ID      string `json:"id,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type importRecord struct {
	line   int
	source *content.ContentSource
}

// Import loads content sources from a JSONL export file. Imported sources are
// never queued or synthesized. Sources whose realm does not exist here are
// imported unassigned unless RealmID overrides the target.
func Import(ctx context.Context, env *Env, input ImportInput) (*ImportOutput, error) {
	if input.Path == "" {
		return nil, errors.NewInvalidRequest("path is required")
	}
	if input.Mode == "" {
		input.Mode = ImportModeError
	}
	if input.Mode != ImportModeError && input.Mode != ImportModeReplace && input.Mode != ImportModeRename {
		return nil, errors.NewInvalidRequest("mode must be one of: error, replace, rename")
	}

	target := cleanOptionalString(input.RealmID)
	if target != nil {
		if _, err := db.GetRealm(ctx, env.DB, *target); err != nil {
			return nil, err
		}
	}

	if err := ValidatePath(input.Path, PathCheckRead, env.Config); err != nil {
		return nil, err
	}
	file, err := openFileNoFollowRead(input.Path)
	if err != nil {
		if errors.As(err).Code != errors.ErrInternal {
			return nil, err
		}
		return nil, errors.NewInternal(fmt.Errorf("failed to open import file: %w", err))
	}
	defer file.Close()

	records, parseErrors := parseExportFile(file, env.Config.SourceMaxChars)

	// mode:error is all-or-nothing, including parse errors
	if input.Mode == ImportModeError && len(parseErrors) > 0 {
		return &ImportOutput{Errors: parseErrors}, nil
	}

	realms := realmResolver{env: env, target: target, known: map[string]bool{}}
	for _, r := range records {
		if err := realms.assign(ctx, r.source); err != nil {
			return nil, err
		}
		r.source.UpdatedAt = env.unix()
	}

	switch input.Mode {
	case ImportModeError:
		return importModeError(ctx, env.DB, records)
	case ImportModeReplace:
		return importModeReplace(ctx, env.DB, records, parseErrors)
	default:
		return importModeRename(ctx, env.DB, records, parseErrors)
	}
}

// parseExportFile parses a JSONL export into sources, skipping the header.
func parseExportFile(r io.Reader, maxChars int) ([]importRecord, []ImportError) {
	var records []importRecord
	var parseErrors []ImportError

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxImportLine)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(strings.TrimSpace(string(line))) == 0 {
			continue
		}

		var header ExportHeader
		if err := json.Unmarshal(line, &header); err == nil && header.PathfinderExport {
			continue
		}

		var src content.ContentSource
		if err := json.Unmarshal(line, &src); err != nil {
			parseErrors = append(parseErrors, ImportError{
				Line:    lineNum,
				Code:    "PARSE_ERROR",
				Message: fmt.Sprintf("invalid JSON: %v", err),
			})
			continue
		}
		if msg := checkImportedSource(&src, maxChars); msg != "" {
			parseErrors = append(parseErrors, ImportError{
				Line:    lineNum,
				ID:      src.ID,
				Code:    "INVALID_RECORD",
				Message: msg,
			})
			continue
		}

		records = append(records, importRecord{line: lineNum, source: &src})
	}

	if err := scanner.Err(); err != nil {
		parseErrors = append(parseErrors, ImportError{
			Line:    lineNum,
			Code:    "READ_ERROR",
			Message: fmt.Sprintf("failed to read file: %v", err),
		})
	}

	return records, parseErrors
}

// checkImportedSource validates a parsed record and returns a reason when it
// cannot be imported.
func checkImportedSource(s *content.ContentSource, maxChars int) string {
	if s.ID == "" {
		return "missing id field"
	}
	if !s.SourceType.Valid() {
		return fmt.Sprintf("unknown source type %q", s.SourceType)
	}
	return string(content.Check(s.Content, s.Weight, maxChars))
}

// realmResolver maps the realm recorded in an export onto this database.
type realmResolver struct {
	env    *Env
	target *string
	known  map[string]bool
}

func (r *realmResolver) assign(ctx context.Context, s *content.ContentSource) error {
	if r.target != nil {
		id := *r.target
		s.RealmID = &id
		return nil
	}
	if s.RealmID == nil {
		return nil
	}
	id := *s.RealmID
	exists, ok := r.known[id]
	if !ok {
		_, err := db.GetRealm(ctx, r.env.DB, id)
		switch {
		case err == nil:
			exists = true
		case errors.Is(err, errors.ErrNotFound):
			exists = false
		default:
			return err
		}
		r.known[id] = exists
	}
	if !exists {
		s.RealmID = nil
	}
	return nil
}

// sourceExists reports whether a source with id is already stored.
func sourceExists(ctx context.Context, q db.Querier, id string) (bool, error) {
	_, err := db.GetSource(ctx, q, id)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, errors.ErrNotFound) {
		return false, nil
	}
	return false, err
}

// importModeError imports all records atomically, rolling back on any collision.
func importModeError(ctx context.Context, database *sql.DB, records []importRecord) (*ImportOutput, error) {
	var collision *ImportError
	err := db.WithTx(ctx, database, func(tx *sql.Tx) error {
		for _, r := range records {
			exists, err := sourceExists(ctx, tx, r.source.ID)
			if err != nil {
				return err
			}
			if exists {
				collision = &ImportError{
					Line:    r.line,
					ID:      r.source.ID,
					Code:    "ID_COLLISION",
					Message: fmt.Sprintf("content source with id %q already exists", r.source.ID),
				}
				return errors.NewConflict(collision.Message)
			}
			if err := db.InsertSource(ctx, tx, r.source); err != nil {
				return err
			}
		}
		return nil
	})
	if collision != nil {
		return &ImportOutput{Errors: []ImportError{*collision}}, nil
	}
	if err != nil {
		return nil, err
	}
	return &ImportOutput{Imported: len(records), Errors: []ImportError{}}, nil
}

// importModeReplace imports records, overwriting existing sources with the same id.
func importModeReplace(ctx context.Context, database *sql.DB, records []importRecord, parseErrors []ImportError) (*ImportOutput, error) {
	out := &ImportOutput{Skipped: len(parseErrors), Errors: append([]ImportError{}, parseErrors...)}

	for _, r := range records {
		exists, err := sourceExists(ctx, database, r.source.ID)
		if err != nil {
			return nil, err
		}
		if exists {
			err = db.UpdateSource(ctx, database, r.source)
		} else {
			err = db.InsertSource(ctx, database, r.source)
		}
		if err != nil {
			return nil, err
		}
		out.Imported++
	}
	return out, nil
}

// importModeRename imports records, giving colliding sources a fresh id.
func importModeRename(ctx context.Context, database *sql.DB, records []importRecord, parseErrors []ImportError) (*ImportOutput, error) {
	out := &ImportOutput{Skipped: len(parseErrors), Errors: append([]ImportError{}, parseErrors...)}

	for _, r := range records {
		exists, err := sourceExists(ctx, database, r.source.ID)
		if err != nil {
			return nil, err
		}
		if exists {
			id, err := content.NewID()
			if err != nil {
				return nil, errors.NewInternal(err)
			}
			r.source.ID = id
		}
		if err := db.InsertSource(ctx, database, r.source); err != nil {
			out.Errors = append(out.Errors, ImportError{
				Line:    r.line,
				ID:      r.source.ID,
				Code:    "INSERT_FAILED",
				Message: fmt.Sprintf("failed to insert: %v", err),
			})
			out.Skipped++
			continue
		}
		out.Imported++
	}
	return out, nil
}
