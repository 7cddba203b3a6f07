package probe

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
)

// ItemKind distinguishes layout entries.
type ItemKind string

const (
	KindDir  ItemKind = "dir"
	KindFile ItemKind = "file"
	KindGlob ItemKind = "glob"
)

// LayoutItem is an expected path relative to the project root.
type LayoutItem struct {
	Path        string   `json:"path"`
	Kind        ItemKind `json:"kind"`
	Required    bool     `json:"required"`
	Description string   `json:"description"`
}

// LayoutSpec lists the expected project entries.
type LayoutSpec struct {
	Items []LayoutItem
	// IgnoreDirs are skipped when searching for bibliography files.
	IgnoreDirs []string
}

// DefaultLayout returns the layout texbuilder expects for entry.
func DefaultLayout(entry string, ignoreDirs []string) LayoutSpec {
	return LayoutSpec{
		Items: []LayoutItem{
			{Path: entry, Kind: KindFile, Required: true, Description: "Entry document"},
			{Path: "content", Kind: KindDir, Required: true, Description: "Document content"},
			{Path: "config", Kind: KindDir, Description: "Preamble and style configuration"},
			{Path: "assets", Kind: KindDir, Description: "Images and other resources"},
			{Path: "*.cls", Kind: KindGlob, Description: "Document class"},
			{Path: ".git", Kind: KindDir, Description: "Git repository (required for releases)"},
			{Path: ".gitignore", Kind: KindFile, Description: "Git ignore rules"},
			{Path: "README.md", Kind: KindFile, Description: "Project documentation"},
		},
		IgnoreDirs: ignoreDirs,
	}
}

// LayoutResult is the outcome for one LayoutItem.
type LayoutResult struct {
	LayoutItem
	Present bool   `json:"present"`
	Match   string `json:"match,omitempty"` // first glob match
}

// BibResult is the sanity check outcome for one .bib file.
type BibResult struct {
	Path    string `json:"path"`
	Entries int    `json:"entries"`
	Problem string `json:"problem,omitempty"`
}

// LayoutReport collects layout and bibliography checks.
type LayoutReport struct {
	Items        []LayoutResult `json:"items"`
	Bibliography []BibResult    `json:"bibliography,omitempty"`
}

// Satisfied is true when every required item is present and every
// bibliography file passed its sanity check.
func (r *LayoutReport) Satisfied() bool {
	for _, it := range r.Items {
		if it.Required && !it.Present {
			return false
		}
	}
	for _, b := range r.Bibliography {
		if b.Problem != "" {
			return false
		}
	}
	return true
}

// CheckLayout inspects root against the expected layout.
func CheckLayout(root string, want LayoutSpec) (*LayoutReport, error) {
	rep := &LayoutReport{}
	for _, item := range want.Items {
		res := LayoutResult{LayoutItem: item}
		switch item.Kind {
		case KindGlob:
			matches, err := filepath.Glob(filepath.Join(root, item.Path))
			if err != nil {
				return nil, fmt.Errorf("bad layout pattern %q: %w", item.Path, err)
			}
			if len(matches) > 0 {
				res.Present = true
				res.Match = filepath.Base(matches[0])
			}
		default:
			info, err := os.Stat(filepath.Join(root, item.Path))
			res.Present = err == nil && info.IsDir() == (item.Kind == KindDir)
		}
		rep.Items = append(rep.Items, res)
	}

	bibs, err := findBibFiles(root, want.IgnoreDirs)
	if err != nil {
		return nil, err
	}
	for _, b := range bibs {
		rep.Bibliography = append(rep.Bibliography, CheckBibFile(b))
	}
	return rep, nil
}

func findBibFiles(root string, ignore []string) ([]string, error) {
	var out []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && (slices.Contains(ignore, d.Name()) || strings.HasPrefix(d.Name(), ".")) {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.EqualFold(filepath.Ext(path), ".bib") {
			out = append(out, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan for bibliography files: %w", err)
	}
	return out, nil
}

// bibEntry matches the start of a BibTeX entry such as "@article{".
var bibEntry = regexp.MustCompile(`(?m)^\s*@\w+\s*[{(]`)

// CheckBibFile applies basic sanity checks to a BibTeX database: it must be
// non-empty, contain at least one @entry and have balanced braces.
func CheckBibFile(path string) BibResult {
	res := BibResult{Path: path}
	data, err := os.ReadFile(path)
	if err != nil {
		res.Problem = fmt.Sprintf("cannot read file: %v", err)
		return res
	}
	data = bytes.TrimSpace(data)
	res.Entries = len(bibEntry.FindAllIndex(data, -1))
	switch {
	case len(data) == 0:
		res.Problem = "bibliography file is empty"
	case res.Entries == 0:
		res.Problem = "no bibliography entries found"
	case bytes.Count(data, []byte("{")) != bytes.Count(data, []byte("}")):
		res.Problem = "mismatched braces"
	}
	return res
}
