package workspace

import (
	"fmt"
	"os"
	"path/filepath"
)

// ScaffoldDirs is the directory layout created by Scaffold.
var ScaffoldDirs = []string{
	"assets/fonts",
	"assets/images",
	"assets/logos",
	"config",
	"content/frontmatter",
	"content/chapters",
	"content/backmatter",
	"templates",
}

var gitkeepDirs = []string{"assets/fonts", "assets/images", "assets/logos"}

const gitignoreContent = `# LaTeX intermediates
*.aux
*.bbl
*.bcf
*.blg
*.fdb_latexmk
*.fls
*.log
*.out
*.run.xml
*.synctex.gz
*.toc
*.lof
*.lot

# texbuilder output and state
/build/
/dist/
/.texbuilder/

# Editors and OS
*.swp
*~
.DS_Store
Thumbs.db
`

// ScaffoldResult lists what Scaffold created. Existing entries are skipped.
type ScaffoldResult struct {
	Dirs  []string
	Files []string
}

// Scaffold creates the standard project layout under root. Existing
// directories and files are left untouched.
func Scaffold(root string) (ScaffoldResult, error) {
	var res ScaffoldResult
	for _, d := range ScaffoldDirs {
		p := filepath.Join(root, d)
		if _, err := os.Stat(p); err == nil {
			continue
		}
		if err := os.MkdirAll(p, 0o750); err != nil {
			return res, fmt.Errorf("create %s: %w", d, err)
		}
		res.Dirs = append(res.Dirs, d)
	}
	for _, d := range gitkeepDirs {
		if err := writeIfAbsent(filepath.Join(root, d, ".gitkeep"), "", &res); err != nil {
			return res, err
		}
	}
	if err := writeIfAbsent(filepath.Join(root, ".gitignore"), gitignoreContent, &res); err != nil {
		return res, err
	}
	return res, nil
}

func writeIfAbsent(path, content string, res *ScaffoldResult) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	// #nosec G306 -- project files are meant to be world-readable
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	res.Files = append(res.Files, path)
	return nil
}
