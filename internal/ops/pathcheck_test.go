package ops

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/pathfinder/internal/config"
	"github.com/hpungsan/pathfinder/internal/errors"
)

func pathConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.ExportsDir = t.TempDir()
	return cfg
}

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte("{}\n"), 0600))
}

func TestValidatePath_Rejections(t *testing.T) {
	cfg := pathConfig(t)
	nested := filepath.Join(cfg.ExportsDir, "sub")
	require.NoError(t, os.MkdirAll(nested, 0700))

	tests := []struct {
		name string
		path string
		mode PathCheckMode
		code errors.ErrorCode
	}{
		{"empty", "", PathCheckWrite, errors.ErrInvalidRequest},
		{"parent traversal", "../backup.jsonl", PathCheckWrite, errors.ErrInvalidRequest},
		{"mid-path traversal", cfg.ExportsDir + "/../x.jsonl", PathCheckWrite, errors.ErrInvalidRequest},
		{"wrong extension", filepath.Join(cfg.ExportsDir, "x.json"), PathCheckWrite, errors.ErrInvalidRequest},
		{"outside allowed dirs", filepath.Join(t.TempDir(), "x.jsonl"), PathCheckWrite, errors.ErrInvalidRequest},
		{"nested directory", filepath.Join(nested, "x.jsonl"), PathCheckWrite, errors.ErrInvalidRequest},
		{"missing file on read", filepath.Join(cfg.ExportsDir, "absent.jsonl"), PathCheckRead, errors.ErrNotFound},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			requireCode(t, ValidatePath(tc.path, tc.mode, cfg), tc.code)
		})
	}
}

func TestValidatePath_Allowed(t *testing.T) {
	cfg := pathConfig(t)
	extra := t.TempDir()
	cfg.AllowedPaths = []string{extra, "relative/ignored"}

	inExports := filepath.Join(cfg.ExportsDir, "a.jsonl")
	touch(t, inExports)
	require.NoError(t, ValidatePath(inExports, PathCheckRead, cfg))
	require.NoError(t, ValidatePath(filepath.Join(extra, "new.jsonl"), PathCheckWrite, cfg))

	unsafe := pathConfig(t)
	unsafe.AllowUnsafePaths = true
	anywhere := filepath.Join(t.TempDir(), "b.jsonl")
	require.NoError(t, ValidatePath(anywhere, PathCheckWrite, unsafe))
	requireCode(t, ValidatePath(anywhere, PathCheckRead, unsafe), errors.ErrNotFound)
}

func TestValidatePath_Symlinks(t *testing.T) {
	cfg := pathConfig(t)
	target := filepath.Join(t.TempDir(), "secret.jsonl")
	touch(t, target)

	link := filepath.Join(cfg.ExportsDir, "link.jsonl")
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("cannot create symlink: %v", err)
	}

	requireCode(t, ValidatePath(link, PathCheckRead, cfg), errors.ErrInvalidRequest)
	requireCode(t, ValidatePath(link, PathCheckWrite, cfg), errors.ErrInvalidRequest)

	// unsafe mode lifts the directory rule, never the symlink rule
	cfg.AllowUnsafePaths = true
	requireCode(t, ValidatePath(link, PathCheckRead, cfg), errors.ErrInvalidRequest)
}

func TestValidatePath_SymlinkedAllowedDir(t *testing.T) {
	target := t.TempDir()
	linkDir := filepath.Join(t.TempDir(), "exports-link")
	if err := os.Symlink(target, linkDir); err != nil {
		t.Skipf("cannot create symlink: %v", err)
	}
	cfg := pathConfig(t)
	cfg.AllowedPaths = []string{linkDir}

	// entries resolve to their target, so files addressed through the target pass
	require.NoError(t, ValidatePath(filepath.Join(target, "x.jsonl"), PathCheckWrite, cfg))
}

func TestContainsTraversal(t *testing.T) {
	tests := map[string]bool{
		"/home/user/file.jsonl":  false,
		"../file.jsonl":          true,
		"/home/../etc/passwd":    true,
		"./file.jsonl":           false,
		"file..name.jsonl":       false,
		"/tmp/a/b/../c.jsonl":    true,
		"/home/user/.hidden/a.j": false,
	}
	for path, want := range tests {
		if got := containsTraversal(path); got != want {
			t.Errorf("containsTraversal(%q) = %v, want %v", path, got, want)
		}
	}
}

func TestSanitizeForFilename(t *testing.T) {
	tests := []struct {
		input, want string
	}{
		{"career", "career"},
		{"my realm", "my realm"},
		{"path/to\\file", "path-to-file"},
		{"foo..bar", "foo-bar"},
		{"../../../etc/passwd", "etc-passwd"},
		{"foo\x00\x01bar", "foobar"},
		{"../../..", "unnamed"},
		{"realm-中文", "realm-中文"},
		{"---a---b---", "a-b"},
	}
	for _, tc := range tests {
		if got := SanitizeForFilename(tc.input); got != tc.want {
			t.Errorf("SanitizeForFilename(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}
