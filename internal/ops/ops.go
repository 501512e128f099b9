package ops

import (
	"database/sql"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hpungsan/pathfinder/internal/config"
	"github.com/hpungsan/pathfinder/internal/errors"
	"github.com/hpungsan/pathfinder/internal/jobs"
	"github.com/hpungsan/pathfinder/internal/llm"
	"github.com/hpungsan/pathfinder/internal/synthesis"
)

// Pagination limits
const (
	DefaultListLimit    = 20
	MaxListLimit        = 100
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 200
)

// Pagination contains pagination metadata for list operations.
type Pagination struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
	Total   int  `json:"total"`
}

// Env bundles everything operations need. Front ends build one at startup
// and Close it on shutdown.
type Env struct {
	DB     *sql.DB
	Config *config.Config
	LLM    llm.Generator
	Synth  *synthesis.Manager
	Jobs   *jobs.Tracker
	Log    *zap.Logger

	now func() time.Time
}

// NewEnv wires the synthesis manager and job tracker over database and gen.
func NewEnv(database *sql.DB, cfg *config.Config, gen llm.Generator, log *zap.Logger) *Env {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if log == nil {
		log = zap.NewNop()
	}
	synth := synthesis.NewManager(database, gen, cfg, log.Named("synthesis"))
	return &Env{
		DB:     database,
		Config: cfg,
		LLM:    gen,
		Synth:  synth,
		Jobs:   jobs.NewTracker(database, synth, jobs.NewStatusCache(), log.Named("jobs")),
		Log:    log,
		now:    time.Now,
	}
}

// Close stops background jobs and waits for them to exit.
func (e *Env) Close() {
	e.Jobs.Close()
}

func (e *Env) unix() int64 {
	if e.now == nil {
		return time.Now().Unix()
	}
	return e.now().Unix()
}

// clampLimit applies a default and an upper bound to a caller-supplied limit.
func clampLimit(limit, def, maxLimit int) int {
	if limit <= 0 {
		return def
	}
	if limit > maxLimit {
		return maxLimit
	}
	return limit
}

// cleanOptionalString trims whitespace and treats blank strings as nil.
func cleanOptionalString(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// requireID trims id and rejects blanks with a message naming field.
func requireID(id, field string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", errors.NewInvalidRequest(field + " is required")
	}
	return id, nil
}
