package ops

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/google/uuid"

	"github.com/hpungsan/pathfinder/internal/content"
	"github.com/hpungsan/pathfinder/internal/db"
	"github.com/hpungsan/pathfinder/internal/errors"
)

// ExportSchemaVersion is written to the header line of every export.
const ExportSchemaVersion = "1.0"

// ExportInput contains parameters for the Export operation.
type ExportInput struct {
	Path    string  // optional, default: <exports dir>/<realm>-<timestamp>.jsonl
	RealmID *string // optional; nil exports every source
}

// ExportOutput contains the result of the Export operation.
type ExportOutput struct {
	Path       string `json:"path"`
	Count      int    `json:"count"`
	ExportedAt int64  `json:"exported_at"`
}

// ExportHeader represents the header line in a JSONL export file.
type ExportHeader struct {
	PathfinderExport bool    `json:"_pathfinder_export"`
	SchemaVersion    string  `json:"schema_version"`
	ExportedAt       int64   `json:"exported_at"`
	RealmID          *string `json:"realm_id,omitempty"`
}

// Export writes content sources to a JSONL file: a header line followed by
// one source per line.
func Export(ctx context.Context, env *Env, input ExportInput) (*ExportOutput, error) {
	now := time.Unix(env.unix(), 0)

	realmID := cleanOptionalString(input.RealmID)
	var realmName string
	if realmID != nil {
		realm, err := db.GetRealm(ctx, env.DB, *realmID)
		if err != nil {
			return nil, err
		}
		realmName = realm.Name
	}

	path := input.Path
	if path == "" {
		dir, err := ExportsDir(env.Config)
		if err != nil {
			return nil, err
		}
		path = defaultExportPath(dir, realmName, now)
	}
	// realm names feed the default file name, so it is checked as well
	if err := ValidatePath(path, PathCheckWrite, env.Config); err != nil {
		return nil, err
	}

	sources, err := db.ListSources(ctx, env.DB, db.SourceFilter{RealmID: realmID})
	if err != nil {
		return nil, err
	}

	header := ExportHeader{
		PathfinderExport: true,
		SchemaVersion:    ExportSchemaVersion,
		ExportedAt:       now.Unix(),
		RealmID:          realmID,
	}
	err = replaceFile(path, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(false)
		if err := enc.Encode(header); err != nil {
			return err
		}
		for _, s := range sources {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := enc.Encode(s); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &ExportOutput{Path: path, Count: len(sources), ExportedAt: header.ExportedAt}, nil
}

// replaceFile writes a sibling temp file and renames it over path, so a
// failed export never clobbers an earlier one.
func replaceFile(path string, write func(io.Writer) error) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return errors.NewInternal(fmt.Errorf("failed to create export directory: %w", err))
	}

	tmp := path + "." + uuid.NewString() + ".tmp"
	f, err := openFileNoFollow(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return errors.NewInternal(fmt.Errorf("failed to create export file: %w", err))
	}
	defer func() {
		if f != nil {
			f.Close()
		}
		if err != nil {
			os.Remove(tmp)
		}
	}()

	bw := bufio.NewWriter(f)
	if err := write(bw); err != nil {
		if errors.As(err).Code != errors.ErrInternal {
			return err
		}
		return errors.NewInternal(err)
	}
	if err := bw.Flush(); err != nil {
		return errors.NewInternal(err)
	}
	if err := f.Sync(); err != nil {
		return errors.NewInternal(err)
	}
	// closed before the rename for Windows
	closeErr := f.Close()
	f = nil
	if closeErr != nil {
		return errors.NewInternal(fmt.Errorf("failed to close export file: %w", closeErr))
	}

	// os.Rename follows a symlinked destination
	if isSymlink(path) {
		return errors.NewInvalidRequest("export path is a symlink")
	}
	if err := os.Rename(tmp, path); err != nil {
		if _, statErr := os.Stat(path); runtime.GOOS == "windows" && statErr == nil {
			return errors.NewInvalidRequest("export destination already exists; choose a new path or delete the existing file")
		}
		return errors.NewInternal(fmt.Errorf("failed to finalize export: %w", err))
	}
	return nil
}

// defaultExportPath builds <dir>/<realm>-<timestamp>.jsonl, with "all" in
// place of the realm when exporting everything.
func defaultExportPath(dir, realmName string, now time.Time) string {
	stem := "all"
	if realmName != "" {
		stem = SanitizeForFilename(content.Normalize(realmName))
	}
	return filepath.Join(dir, stem+"-"+now.UTC().Format("2006-01-02T150405")+backupExt)
}
