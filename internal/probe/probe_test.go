package probe

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/texbuilder/internal/config"
	"git.home.luguber.info/inful/texbuilder/internal/toolexec"
)

func TestParseVersion(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"pdfTeX 3.141592653-2.6-1.40.25 (TeX Live 2023)", "3.141592653"},
		{"biber version: 2.19", "2.19"},
		{"git version 2.43.0", "2.43.0"},
		{"Latexmk, John Collins, 7 Jan. 2023. Version 4.79", "4.79"},
		{"no digits here", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseVersion(tt.in), tt.in)
	}
}

func TestCompareVersions(t *testing.T) {
	assert.Equal(t, 0, CompareVersions("2.19", "2.19.0"))
	assert.Equal(t, -1, CompareVersions("2.18", "2.19"))
	assert.Equal(t, 1, CompareVersions("2.20", "2.19"))
	assert.Equal(t, 1, CompareVersions("2.100", "2.99"))
	assert.Equal(t, 0, CompareVersions("v1.05", "1.5"))
}

func TestProbe_Statuses(t *testing.T) {
	runner := toolexec.NewFakeRunner().
		Output("pdflatex", "pdfTeX 3.141592653-2.6-1.40.25 (TeX Live 2023)\nkpathsea version 6.3.5").
		Output("biber", "biber version: 2.19").
		Output("weird", "weird tool, no version")

	p := New(runner)
	rep := p.Probe(t.Context(), []Requirement{
		{Tool: "pdflatex", Required: true},
		{Tool: "biber", MinVersion: "2.19", Required: true},
		{Tool: "latexmk"},
	})
	require.Len(t, rep.Results, 3)

	assert.Equal(t, StatusOK, rep.Results[0].Status)
	assert.Equal(t, "/usr/bin/pdflatex", rep.Results[0].Path)
	assert.Equal(t, "3.141592653", rep.Results[0].Version)
	assert.Equal(t, StatusOK, rep.Results[1].Status, "equal to minimum is ok")
	assert.Equal(t, StatusMissing, rep.Results[2].Status)

	assert.True(t, rep.Satisfied(), "optional missing tools do not affect satisfaction")

	below := p.Check(t.Context(), Requirement{Tool: "biber", MinVersion: "2.19.1", Required: true})
	assert.Equal(t, StatusVersionTooLow, below.Status)

	unparsable := p.Check(t.Context(), Requirement{Tool: "weird", MinVersion: "1.0"})
	assert.Equal(t, StatusVersionTooLow, unparsable.Status)

	missing := p.Probe(t.Context(), []Requirement{{Tool: "xelatex", Required: true, Remediation: Remediation("xelatex")}})
	assert.False(t, missing.Satisfied())
	require.Len(t, missing.Unsatisfied(), 1)
	assert.Contains(t, missing.Unsatisfied()[0].Remediation, "xelatex")
}

func TestProbe_VersionCommandFailureStillReportsPresence(t *testing.T) {
	runner := toolexec.NewFakeRunner().Fail("makeindex", 1, "")
	res := New(runner).Check(context.Background(), Requirement{Tool: "makeindex"})
	assert.Equal(t, StatusOK, res.Status)
	assert.Empty(t, res.Version)
}

func TestDefaultRequirements(t *testing.T) {
	cfg, err := config.Default()
	require.NoError(t, err)

	compile := DefaultRequirements(cfg, PurposeCompile)
	require.Len(t, compile, 2)
	assert.Equal(t, "pdflatex", compile[0].Tool)
	assert.Equal(t, "biber", compile[1].Tool)
	assert.True(t, compile[1].Required)

	check := DefaultRequirements(cfg, PurposeCheck)
	require.Len(t, check, 4)
	assert.False(t, check[2].Required)

	off := false
	cfg.Bibliography.Enabled = &off
	compile = DefaultRequirements(cfg, PurposeCompile)
	require.Len(t, compile, 1)
	check = DefaultRequirements(cfg, PurposeCheck)
	assert.False(t, check[1].Required, "disabled bibliography is reported but optional")
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestCheckLayout(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "main.tex"), `\documentclass{report}`)
	writeFile(t, filepath.Join(root, "report.cls"), "")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "content"), 0o750))
	writeFile(t, filepath.Join(root, "content", "refs.bib"), "@book{a, title={A}}\n")
	writeFile(t, filepath.Join(root, "build", "stale.bib"), "")

	rep, err := CheckLayout(root, DefaultLayout("main.tex", []string{"build"}))
	require.NoError(t, err)
	assert.True(t, rep.Satisfied())

	byPath := map[string]LayoutResult{}
	for _, it := range rep.Items {
		byPath[it.Path] = it
	}
	assert.True(t, byPath["main.tex"].Present)
	assert.Equal(t, "report.cls", byPath["*.cls"].Match)
	assert.False(t, byPath["config"].Present)

	require.Len(t, rep.Bibliography, 1, "ignored directories are not scanned")
	assert.Equal(t, 1, rep.Bibliography[0].Entries)
}

func TestCheckLayout_MissingRequired(t *testing.T) {
	rep, err := CheckLayout(t.TempDir(), DefaultLayout("main.tex", nil))
	require.NoError(t, err)
	assert.False(t, rep.Satisfied())

	full := Report{Layout: rep}
	assert.False(t, full.Satisfied())
}

func TestCheckBibFile(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]string{
		"":                              "bibliography file is empty",
		"just text":                     "no bibliography entries found",
		"mail author@example.com":       "no bibliography entries found",
		"@book{a, title={A}":            "mismatched braces",
		"@book{a, title={A}}\n@misc{b}": "",
	}
	i := 0
	for content, problem := range cases {
		i++
		path := filepath.Join(dir, filepath.FromSlash("f"+string(rune('a'+i))+".bib"))
		writeFile(t, path, content)
		assert.Equal(t, problem, CheckBibFile(path).Problem, content)
	}
	assert.NotEmpty(t, CheckBibFile(filepath.Join(dir, "absent.bib")).Problem)
}

func TestCheckBibFile_CountsEntriesNotAtSigns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "refs.bib")
	writeFile(t, path, "@article{knuth84,\n  author = {Donald Knuth},\n  note = {knuth@example.org, cc editor@example.org}\n}\n\n  @Book (lamport94, title = {LaTeX})\n")

	res := CheckBibFile(path)
	assert.Empty(t, res.Problem)
	assert.Equal(t, 2, res.Entries)
}
