package watch

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterMatch(t *testing.T) {
	root := filepath.FromSlash("/work/thesis")
	f := Filter{
		Extensions: []string{".tex", ".bib", ".cls", ".sty"},
		IgnoreDirs: []string{"build", "node_modules"},
		Roots:      []string{root},
	}

	tests := []struct {
		path string
		want bool
	}{
		{"main.tex", true},
		{"content/chapter1.tex", true},
		{"refs.BIB", true},
		{"figure.png", false},
		{"build/main.tex", false},
		{"content/node_modules/x.sty", false},
		{".hidden.tex", false},
		{"content/.cache/x.tex", false},
		{"main.tex~", false},
		{"main.tex.swp", false},
		{"#main.tex#", false},
		{"4913", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, f.Match(filepath.Join(root, filepath.FromSlash(tt.path))))
		})
	}
}

func TestFilterRootAboveIgnoredNameIsNotInspected(t *testing.T) {
	// The project itself lives under a directory called "build".
	root := filepath.FromSlash("/home/ci/build/thesis")
	f := Filter{Extensions: []string{".tex"}, IgnoreDirs: []string{"build"}, Roots: []string{root}}

	assert.True(t, f.Match(filepath.Join(root, "main.tex")))
	assert.False(t, f.Match(filepath.Join(root, "build", "main.tex")))
}

func TestFilterSkipDir(t *testing.T) {
	root := filepath.FromSlash("/work/.thesis")
	f := Filter{IgnoreDirs: []string{"build"}, Roots: []string{root}}

	assert.False(t, f.SkipDir(root), "a root is never skipped")
	assert.True(t, f.SkipDir(filepath.Join(root, "build")))
	assert.True(t, f.SkipDir(filepath.Join(root, ".git")))
	assert.False(t, f.SkipDir(filepath.Join(root, "content")))
}
