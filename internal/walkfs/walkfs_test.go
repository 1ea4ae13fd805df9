package walkfs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestListDirPartitionsAndSorts(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "zeta.txt", "z")
	writeFile(t, dir, "alpha.txt", "a")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub2"), 0o755))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub1"), 0o755))

	dirs, files, err := ListDir(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"sub1", "sub2"}, dirs)
	assert.Equal(t, []string{"alpha.txt", "zeta.txt"}, files)
}

func TestListDirMissing(t *testing.T) {
	_, _, err := ListDir(filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
}

func TestIsSpecial(t *testing.T) {
	dir := t.TempDir()
	reg := writeFile(t, dir, "plain.txt", "x")
	assert.False(t, IsSpecial(reg))
	assert.False(t, IsSpecial(dir))

	link := filepath.Join(dir, "link")
	require.NoError(t, os.Symlink(reg, link))
	assert.True(t, IsSpecial(link))

	// Broken symlink: still special, not an error.
	broken := filepath.Join(dir, "broken")
	require.NoError(t, os.Symlink(filepath.Join(dir, "gone"), broken))
	assert.True(t, IsSpecial(broken))

	// Nonexistent path counts as special.
	assert.True(t, IsSpecial(filepath.Join(dir, "missing")))
}

func TestIgnorerExactAndGlob(t *testing.T) {
	ig := NewIgnorer(".git", "*.swp", "build")

	assert.True(t, ig.Match(".git"))
	assert.True(t, ig.Match("build"))
	assert.True(t, ig.Match("notes.swp"))
	assert.False(t, ig.Match("main.go"))
	assert.False(t, ig.Match(".gitignore"))
}

func TestIgnorerDefaults(t *testing.T) {
	ig := NewIgnorer(DefaultIgnores...)

	assert.True(t, ig.Match(".git"))
	assert.True(t, ig.Match(".gitignore"))
	assert.True(t, ig.Match("__pycache__"))
	assert.True(t, ig.Match("backup~"))
	assert.True(t, ig.Match("patch.orig"))
	assert.False(t, ig.Match("src"))
}

func TestNilIgnorerMatchesNothing(t *testing.T) {
	var ig *Ignorer
	assert.False(t, ig.Match(".git"))
}
