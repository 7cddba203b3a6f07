package clean

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string, size int) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, make([]byte, size), 0o600))
}

func TestIsIntermediate(t *testing.T) {
	for _, name := range []string{"main.aux", "MAIN.LOG", "main.run.xml", "main.synctex.gz", "main.bcf"} {
		assert.True(t, IsIntermediate(name), name)
	}
	for _, name := range []string{"main.tex", "main.pdf", "refs.bib", "xml"} {
		assert.False(t, IsIntermediate(name), name)
	}
}

func TestClean_OutputDir(t *testing.T) {
	out := filepath.Join(t.TempDir(), "build")
	touch(t, filepath.Join(out, "main.aux"), 10)
	touch(t, filepath.Join(out, "main.pdf"), 100)
	touch(t, filepath.Join(out, "content", "chapters", "intro.aux"), 5)

	res, err := Clean(Options{OutputDir: out})
	require.NoError(t, err)
	assert.Len(t, res.Files, 3)
	assert.Equal(t, int64(115), res.Bytes)
	assert.DirExists(t, out)

	entries, err := os.ReadDir(out)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestClean_KeepPDF(t *testing.T) {
	out := t.TempDir()
	touch(t, filepath.Join(out, "main.aux"), 1)
	touch(t, filepath.Join(out, "main.pdf"), 1)

	_, err := Clean(Options{OutputDir: out, KeepPDF: true})
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(out, "main.pdf"))
	assert.NoFileExists(t, filepath.Join(out, "main.aux"))
}

func TestClean_DryRunRemovesNothing(t *testing.T) {
	out := t.TempDir()
	touch(t, filepath.Join(out, "main.log"), 3)

	res, err := Clean(Options{OutputDir: out, DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(out, "main.log")}, res.Files)
	assert.FileExists(t, filepath.Join(out, "main.log"))
}

func TestClean_MissingOutputDirIsIdempotent(t *testing.T) {
	res, err := Clean(Options{OutputDir: filepath.Join(t.TempDir(), "never-built")})
	require.NoError(t, err)
	assert.Empty(t, res.Files)
}

func TestClean_StrayIntermediates(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "main.tex"), 1)
	touch(t, filepath.Join(root, "main.aux"), 1)
	touch(t, filepath.Join(root, "content", "ch1.log"), 1)
	touch(t, filepath.Join(root, "node_modules", "x.log"), 1)
	touch(t, filepath.Join(root, ".git", "index.lock.log"), 1)
	touch(t, filepath.Join(root, "build", "main.pdf"), 1)

	res, err := Clean(Options{
		OutputDir: filepath.Join(root, "build"),
		Root:      root,
		SkipDirs:  []string{"node_modules"},
		KeepPDF:   true,
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		filepath.Join(root, "main.aux"),
		filepath.Join(root, "content", "ch1.log"),
	}, res.Files)
	assert.FileExists(t, filepath.Join(root, "main.tex"))
	assert.FileExists(t, filepath.Join(root, "node_modules", "x.log"))
	assert.FileExists(t, filepath.Join(root, ".git", "index.lock.log"))
	assert.FileExists(t, filepath.Join(root, "build", "main.pdf"))
}
