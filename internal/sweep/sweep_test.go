package sweep

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, dir, name string, mod time.Time) {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(name), 0644))
	require.NoError(t, os.Chtimes(p, mod, mod))
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "a.png", fileName("/uploads/a.png"))
	assert.Equal(t, "a.png", fileName("/uploads/../a.png"))
	assert.Equal(t, "", fileName("https://cdn.example.com/a.png"))
	assert.Equal(t, "", fileName("/uploads/"))
}

func TestUnreferenced(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()
	old := now.Add(-48 * time.Hour)

	touch(t, dir, "kept.png", old)
	touch(t, dir, "orphan.png", old)
	touch(t, dir, "fresh.png", now)
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0755))

	refs := map[string]bool{"kept.png": true}
	cands, err := Unreferenced(dir, refs, now.Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, cands, 1)
	assert.Equal(t, "orphan.png", cands[0].Name)
	assert.Equal(t, int64(len("orphan.png")), cands[0].Size)

	n, err := Remove(dir, cands)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	_, err = os.Stat(filepath.Join(dir, "orphan.png"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(dir, "kept.png"))
	assert.NoError(t, err)

	// already gone
	n, err = Remove(dir, cands)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestUnreferencedMissingDir(t *testing.T) {
	_, err := Unreferenced(filepath.Join(t.TempDir(), "nope"), nil, time.Now())
	assert.Error(t, err)
}
