package ops

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hpungsan/pathfinder/internal/config"
	"github.com/hpungsan/pathfinder/internal/errors"
)

// PathCheckMode selects the checks a backup path must pass.
type PathCheckMode int

const (
	PathCheckRead  PathCheckMode = iota // import: file must exist
	PathCheckWrite                      // export: file may be created
)

const backupExt = ".jsonl"

// backupPolicy decides where source backups may be read from and written to.
type backupPolicy struct {
	unrestricted bool
	dirs         []string
}

func newBackupPolicy(cfg *config.Config) (backupPolicy, error) {
	if cfg != nil && cfg.AllowUnsafePaths {
		return backupPolicy{unrestricted: true}, nil
	}
	dirs, err := backupDirs(cfg)
	if err != nil {
		return backupPolicy{}, err
	}
	return backupPolicy{dirs: dirs}, nil
}

// permits reports whether dir is one of the backup directories. Files in
// subdirectories are refused so no intermediate component can be swapped
// for a symlink after the check.
func (p backupPolicy) permits(dir string) bool {
	dir = filepath.Clean(dir)
	for _, d := range p.dirs {
		if dir == d {
			return true
		}
	}
	return false
}

// ValidatePath checks a backup path before it is opened. The path needs a
// .jsonl extension and no ".." components. Unless unsafe paths are enabled
// the file must sit directly in the exports dir or an allowed path, and the
// directory itself must not be a symlink. A symlinked file is always refused.
func ValidatePath(path string, mode PathCheckMode, cfg *config.Config) error {
	switch {
	case path == "":
		return errors.NewInvalidRequest("path is required")
	case containsTraversal(path):
		return errors.NewInvalidRequest("path must not contain directory traversal (..)")
	case filepath.Ext(filepath.Clean(path)) != backupExt:
		return errors.NewInvalidRequest("path must have " + backupExt + " extension")
	}

	abs, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return errors.NewInvalidRequest(fmt.Sprintf("invalid path: %v", err))
	}

	policy, err := newBackupPolicy(cfg)
	if err != nil {
		return err
	}

	if !policy.unrestricted {
		dir := filepath.Dir(abs)
		if !policy.permits(dir) {
			return errors.NewInvalidRequest(fmt.Sprintf(
				"file must be directly in an allowed directory (no subdirectories); allowed: %v", policy.dirs))
		}
		if isSymlink(dir) {
			return errors.NewInvalidRequest("parent directory must not be a symlink")
		}
	}

	if mode == PathCheckRead {
		if _, err := os.Stat(abs); os.IsNotExist(err) {
			return errors.NewNotFound("file", path)
		}
	}
	if isSymlink(abs) {
		return errors.NewInvalidRequest("path must not be a symlink")
	}
	return nil
}

func isSymlink(path string) bool {
	info, err := os.Lstat(path)
	return err == nil && info.Mode()&os.ModeSymlink != 0
}

// backupDirs lists the exports dir plus every absolute allowed path, cleaned.
// A symlinked entry is replaced by its target.
func backupDirs(cfg *config.Config) ([]string, error) {
	exports, err := ExportsDir(cfg)
	if err != nil {
		return nil, err
	}
	candidates := []string{exports}
	if cfg != nil {
		for _, p := range cfg.AllowedPaths {
			if filepath.IsAbs(p) {
				candidates = append(candidates, p)
			}
		}
	}

	dirs := make([]string, 0, len(candidates))
	for _, c := range candidates {
		abs, err := filepath.Abs(filepath.Clean(c))
		if err != nil {
			return nil, errors.NewInvalidRequest(fmt.Sprintf("invalid allowed path: %v", err))
		}
		if isSymlink(abs) {
			if abs, err = filepath.EvalSymlinks(abs); err != nil {
				return nil, errors.NewInvalidRequest(fmt.Sprintf("cannot resolve symlink in allowed path: %v", err))
			}
		}
		dirs = append(dirs, abs)
	}
	return dirs, nil
}

// ExportsDir returns the configured exports directory, or ~/.pathfinder/exports.
func ExportsDir(cfg *config.Config) (string, error) {
	if cfg != nil && cfg.ExportsDir != "" {
		return cfg.ExportsDir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.NewInternal(fmt.Errorf("failed to get home directory: %w", err))
	}
	return filepath.Join(home, ".pathfinder", "exports"), nil
}

// containsTraversal reports a ".." component under either separator.
func containsTraversal(path string) bool {
	isSep := func(r rune) bool { return r == '/' || r == filepath.Separator }
	for _, part := range strings.FieldsFunc(path, isSep) {
		if part == ".." {
			return true
		}
	}
	return false
}

var filenameReplacer = strings.NewReplacer("/", "-", "\\", "-", "..", "-")

// SanitizeForFilename turns a realm name into a safe file name stem.
func SanitizeForFilename(s string) string {
	var b strings.Builder
	lastDash := false
	for _, r := range filenameReplacer.Replace(s) {
		if r < 32 || r == 127 {
			continue
		}
		if r == '-' {
			if lastDash {
				continue
			}
			lastDash = true
		} else {
			lastDash = false
		}
		b.WriteRune(r)
	}
	if out := strings.Trim(b.String(), "-"); out != "" {
		return out
	}
	return "unnamed"
}
