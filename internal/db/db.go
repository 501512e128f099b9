package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hpungsan/pathfinder/internal/config"
	_ "modernc.org/sqlite"
)

// CurrentSchemaVersion is the user_version after every migration ran.
const CurrentSchemaVersion = 1

// FileName is the database file created inside the base directory.
const FileName = "pathfinder.db"

// Pragmas in the DSN apply to every pooled connection.
const dsnPragmas = "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"

// Init opens baseDir/pathfinder.db, creating the directory with owner-only
// permissions, and brings the schema up to date.
func Init(baseDir string) (*sql.DB, error) {
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}
	_ = os.Chmod(baseDir, 0700)

	path := filepath.Join(baseDir, FileName)
	database, err := sql.Open("sqlite", path+dsnPragmas)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	for _, step := range []func(*sql.DB) error{requireWAL, migrate} {
		if err := step(database); err != nil {
			database.Close()
			return nil, err
		}
	}
	_ = os.Chmod(path, 0600)
	return database, nil
}

// ConfigurePool applies the pool limits set in cfg. Zero leaves the
// database/sql default in place.
func ConfigurePool(database *sql.DB, cfg *config.Config) {
	if cfg == nil {
		return
	}
	if n := cfg.DBMaxOpenConns; n > 0 {
		database.SetMaxOpenConns(n)
	}
	if n := cfg.DBMaxIdleConns; n > 0 {
		database.SetMaxIdleConns(n)
	}
}

// migrations[i] moves the schema from version i to i+1.
var migrations = []string{schemaV1}

// migrate runs each pending migration in its own transaction and records
// the new user_version with it.
func migrate(database *sql.DB) error {
	version, err := GetUserVersion(database)
	if err != nil {
		return err
	}
	for v := version; v < len(migrations); v++ {
		tx, err := database.Begin()
		if err != nil {
			return fmt.Errorf("migration %d failed: %w", v+1, err)
		}
		if _, err := tx.Exec(migrations[v]); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", v+1, err)
		}
		if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version=%d", v+1)); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", v+1, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migration %d failed: %w", v+1, err)
		}
	}
	return nil
}

const schemaV1 = `
		CREATE TABLE IF NOT EXISTS realms (
		  id                 TEXT PRIMARY KEY,
		  name               TEXT NOT NULL,
		  description        TEXT,
		  system_prompt      TEXT,
		  is_default         INTEGER NOT NULL DEFAULT 0,
		  synthesis_disabled INTEGER NOT NULL DEFAULT 0,
		  quality_score      REAL,
		  last_synthesis_at  INTEGER,
		  current_version    INTEGER NOT NULL DEFAULT 1,
		  created_at         INTEGER NOT NULL,
		  updated_at         INTEGER NOT NULL
		);

		CREATE UNIQUE INDEX IF NOT EXISTS idx_realms_default
		ON realms(is_default)
		WHERE is_default = 1;

		CREATE TABLE IF NOT EXISTS content_sources (
		  id            TEXT PRIMARY KEY,
		  realm_id      TEXT,
		  source_type   TEXT NOT NULL,
		  title         TEXT,
		  content       TEXT NOT NULL,
		  content_chars INTEGER NOT NULL,
		  weight        REAL NOT NULL DEFAULT 1.0,
		  metadata_json TEXT,
		  created_at    INTEGER NOT NULL,
		  updated_at    INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_sources_realm_created
		ON content_sources(realm_id, created_at DESC);

		CREATE TABLE IF NOT EXISTS reflections (
		  id               TEXT PRIMARY KEY,
		  realm_id         TEXT,
		  question         TEXT NOT NULL,
		  answer           TEXT,
		  category         TEXT,
		  importance_score REAL NOT NULL DEFAULT 1.0,
		  created_at       INTEGER NOT NULL,
		  answered_at      INTEGER
		);

		CREATE INDEX IF NOT EXISTS idx_reflections_realm
		ON reflections(realm_id, created_at DESC);

		CREATE TABLE IF NOT EXISTS texts (
		  id               TEXT PRIMARY KEY,
		  title            TEXT NOT NULL,
		  content          TEXT NOT NULL,
		  source_file_name TEXT,
		  created_at       INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS prompt_versions (
		  id                           TEXT PRIMARY KEY,
		  realm_id                     TEXT NOT NULL,
		  version_number               INTEGER NOT NULL,
		  system_prompt                TEXT NOT NULL,
		  synthesis_method             TEXT NOT NULL,
		  quality_score                REAL,
		  effectiveness_metrics_json   TEXT,
		  improvement_suggestions_json TEXT,
		  content_source_ids_json      TEXT,
		  created_at                   INTEGER NOT NULL
		);

		CREATE UNIQUE INDEX IF NOT EXISTS idx_versions_realm_number
		ON prompt_versions(realm_id, version_number);

		CREATE TABLE IF NOT EXISTS synthesis_jobs (
		  id                      TEXT PRIMARY KEY,
		  realm_id                TEXT NOT NULL,
		  synthesis_type          TEXT NOT NULL,
		  status                  TEXT NOT NULL,
		  content_source_ids_json TEXT,
		  configuration_json      TEXT,
		  result_prompt           TEXT,
		  quality_analysis_json   TEXT,
		  error_message           TEXT,
		  processing_time_ms      INTEGER,
		  created_at              INTEGER NOT NULL,
		  updated_at              INTEGER NOT NULL,
		  completed_at            INTEGER
		);

		CREATE INDEX IF NOT EXISTS idx_jobs_realm_created
		ON synthesis_jobs(realm_id, created_at DESC);

		CREATE TABLE IF NOT EXISTS synthesis_queue (
		  id                TEXT PRIMARY KEY,
		  realm_id          TEXT NOT NULL,
		  content_source_id TEXT NOT NULL,
		  priority          REAL NOT NULL DEFAULT 1.0,
		  processed         INTEGER NOT NULL DEFAULT 0,
		  created_at        INTEGER NOT NULL,
		  processed_at      INTEGER
		);

		CREATE INDEX IF NOT EXISTS idx_queue_pending
		ON synthesis_queue(realm_id, created_at)
		WHERE processed = 0;

		CREATE TABLE IF NOT EXISTS chats (
		  id         TEXT PRIMARY KEY,
		  realm_id   TEXT,
		  title      TEXT,
		  created_at INTEGER NOT NULL,
		  updated_at INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS messages (
		  id         TEXT PRIMARY KEY,
		  chat_id    TEXT NOT NULL,
		  role       TEXT NOT NULL,
		  content    TEXT NOT NULL,
		  created_at INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_messages_chat
		ON messages(chat_id, created_at, id);
		`

func requireWAL(database *sql.DB) error {
	var mode string
	if err := database.QueryRow("PRAGMA journal_mode").Scan(&mode); err != nil {
		return fmt.Errorf("failed to read journal mode: %w", err)
	}
	if mode != "wal" {
		return fmt.Errorf("journal mode is %q, want wal", mode)
	}
	return nil
}

// GetUserVersion reads the schema version pragma.
func GetUserVersion(database *sql.DB) (int, error) {
	var v int
	if err := database.QueryRow("PRAGMA user_version").Scan(&v); err != nil {
		return 0, fmt.Errorf("failed to read user_version: %w", err)
	}
	return v, nil
}

// SetUserVersion overwrites the schema version pragma.
func SetUserVersion(database *sql.DB, v int) error {
	if _, err := database.Exec(fmt.Sprintf("PRAGMA user_version=%d", v)); err != nil {
		return fmt.Errorf("failed to set user_version: %w", err)
	}
	return nil
}
