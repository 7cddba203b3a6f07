package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg, err := Default()
	require.NoError(t, err)

	assert.Equal(t, CurrentVersion, cfg.Version)
	assert.Equal(t, "main.tex", cfg.Project.Entry)
	assert.Equal(t, "main", cfg.Project.Name)
	assert.Equal(t, "build", cfg.Project.OutputDir)
	assert.Equal(t, "pdflatex", cfg.Engine.Command)
	assert.Equal(t, "biber", cfg.Bibliography.Command)
	assert.Equal(t, 5*time.Minute, cfg.EngineTimeout())
	assert.Equal(t, 60*time.Second, cfg.BibliographyTimeout())
	assert.Equal(t, 2*time.Second, cfg.DebounceDelay())
	assert.Equal(t, time.Second, cfg.PollInterval())
	assert.Equal(t, []string{".tex", ".cls", ".sty", ".bib"}, cfg.Watch.Extensions)
	assert.Equal(t, BackendFSNotify, cfg.Watch.Backend)
	assert.Equal(t, ModeQuick, cfg.Watch.Mode)
	assert.Equal(t, "main", cfg.Release.Branch)
	assert.Equal(t, "origin", cfg.Release.Remote)
	assert.Equal(t, filepath.Join(".texbuilder", "history.db"), cfg.History.Path)
	assert.True(t, cfg.BibliographyEnabled())
	assert.True(t, cfg.HistoryEnabled())
	assert.Equal(t, LogLevelInfo, cfg.Logging.Level)
	assert.Equal(t, LogFormatText, cfg.Logging.Format)
}

func TestParse_OutputDirAlwaysIgnoredByWatcher(t *testing.T) {
	cfg, err := Parse([]byte(`
project:
  output_dir: out/pdf
watch:
  ignore_dirs: [".git"]
`))
	require.NoError(t, err)
	assert.Equal(t, []string{".git", "pdf"}, cfg.Watch.IgnoreDirs)
}

func TestParse_ExpandsEnvironment(t *testing.T) {
	t.Setenv("REPORT_NAME", "thesis")
	cfg, err := Parse([]byte("project:\n  name: ${REPORT_NAME}\n"))
	require.NoError(t, err)
	assert.Equal(t, "thesis", cfg.Project.Name)
}

func TestParse_NormalisesEnums(t *testing.T) {
	cfg, err := Parse([]byte(`
watch:
  backend: Polling
  mode: FULL
  extensions: [tex, ".Bib"]
logging:
  level: DEBUG
  format: json
bibliography:
  enabled: false
`))
	require.NoError(t, err)
	assert.Equal(t, BackendPoll, cfg.Watch.Backend)
	assert.Equal(t, ModeFull, cfg.Watch.Mode)
	assert.Equal(t, []string{".tex", ".bib"}, cfg.Watch.Extensions)
	assert.Equal(t, LogLevelDebug, cfg.Logging.Level)
	assert.Equal(t, LogFormatJSON, cfg.Logging.Format)
	assert.False(t, cfg.BibliographyEnabled())
}

func TestParse_ValidationErrors(t *testing.T) {
	cases := map[string]string{
		"version":         "version: \"9\"\n",
		"debounce short":  "watch:\n  debounce: 500ms\n",
		"debounce bad":    "watch:\n  debounce: soon\n",
		"backend":         "watch:\n  backend: inotify2\n",
		"watch clean":     "watch:\n  mode: clean\n",
		"entry":           "project:\n  entry: main.md\n",
		"name":            "project:\n  name: \"bad name!\"\n",
		"output root":     "project:\n  output_dir: .\n",
		"output parent":   "project:\n  output_dir: ../elsewhere\n",
		"timeout":         "engine:\n  timeout: -1s\n",
		"min version":     "engine:\n  min_version: latest\n",
		"auth type":       "release:\n  auth:\n    type: kerberos\n",
		"auth token env":  "release:\n  auth:\n    type: token\n",
		"auth basic user": "release:\n  auth:\n    type: basic\n    secret_env: GIT_PASSWORD\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			require.Error(t, err)
		})
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.ErrorContains(t, err, "configuration file not found")
}

func TestLoadOrDefault(t *testing.T) {
	dir := t.TempDir()

	cfg, found, err := LoadOrDefault(filepath.Join(dir, DefaultPath))
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, "main.tex", cfg.Project.Entry)

	path := filepath.Join(dir, DefaultPath)
	require.NoError(t, os.WriteFile(path, []byte("project:\n  entry: report.tex\n"), 0o600))
	cfg, found, err = LoadOrDefault(path)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "report", cfg.Project.Name)
}

func TestInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultPath)
	require.NoError(t, Init(path, false))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "TEXBUILDER_SIGNING_PASSPHRASE", cfg.Release.PassphraseEnv)

	err = Init(path, false)
	require.ErrorContains(t, err, "use --force to overwrite")
	require.NoError(t, Init(path, true))
}

func TestLoadEnvFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("TB_TEST_A=from-env\nTB_TEST_B=\"quoted\"\n"), 0o600))
	t.Setenv("TB_TEST_A", "preset")
	t.Setenv("TB_TEST_B", "")
	require.NoError(t, os.Unsetenv("TB_TEST_B"))

	loaded, err := LoadEnvFiles(dir)
	require.NoError(t, err)
	assert.Len(t, loaded, 1)
	assert.Equal(t, "preset", os.Getenv("TB_TEST_A"))
	assert.Equal(t, "quoted", os.Getenv("TB_TEST_B"))
}

func TestResolve(t *testing.T) {
	assert.Equal(t, filepath.Join("/proj", "build"), Resolve("/proj", "build"))
	assert.Equal(t, "/abs/out", Resolve("/proj", "/abs/out"))
	assert.Equal(t, "", Resolve("/proj", ""))
}
