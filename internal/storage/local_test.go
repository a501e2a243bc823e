package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLocalStoreList(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "events/2026/08/01.csv", "a")
	writeFile(t, root, "events/2026/08/02.csv", "bb")
	writeFile(t, root, "events/2026/08/readme.txt", "x")
	writeFile(t, root, "other/03.csv", "c")

	store := NewLocalStore(root)
	objs, err := store.List(context.Background(), "events/*/*/*.csv")
	require.NoError(t, err)
	require.Len(t, objs, 2)
	assert.Equal(t, "events/2026/08/01.csv", objs[0].Rel)
	assert.Equal(t, "events/2026/08/02.csv", objs[1].Rel)
	assert.Equal(t, int64(1), objs[0].Size)
	assert.Equal(t, int64(2), objs[1].Size)
	assert.True(t, filepath.IsAbs(objs[0].Key))
}

func TestLocalStoreDoubleStar(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a/deep/nested/file.csv", "1")
	writeFile(t, root, "top.csv", "2")

	store := NewLocalStore(root)
	objs, err := store.List(context.Background(), "**.csv")
	require.NoError(t, err)
	assert.Len(t, objs, 2)

	objs, err = store.List(context.Background(), "*.csv")
	require.NoError(t, err)
	require.Len(t, objs, 1)
	assert.Equal(t, "top.csv", objs[0].Rel)
}

func TestLocalStoreMissingBase(t *testing.T) {
	store := NewLocalStore(filepath.Join(t.TempDir(), "nope"))
	objs, err := store.List(context.Background(), "*.csv")
	require.NoError(t, err)
	assert.Empty(t, objs)
}

func TestGlobToRegexp(t *testing.T) {
	tests := []struct {
		pattern string
		key     string
		match   bool
	}{
		{"data/*.csv", "data/a.csv", true},
		{"data/*.csv", "data/sub/a.csv", false},
		{"data/**.csv", "data/sub/a.csv", true},
		{"data/????.csv", "data/2026.csv", true},
		{"data/????.csv", "data/26.csv", false},
		{"data/a.csv", "data/a+csv", false},
	}
	for _, tt := range tests {
		re, err := globToRegexp(tt.pattern)
		require.NoError(t, err)
		assert.Equal(t, tt.match, re.MatchString(tt.key), "%s vs %s", tt.pattern, tt.key)
	}
}

func TestLiteralPrefix(t *testing.T) {
	assert.Equal(t, "data/2026/", literalPrefix("data/2026/*.csv"))
	assert.Equal(t, "data/a.csv", literalPrefix("data/a.csv"))
	assert.Equal(t, "", literalPrefix("*.csv"))
}
