package probe

import "git.home.luguber.info/inful/texbuilder/internal/config"

// Purpose selects which tools are required.
type Purpose int

const (
	// PurposeCompile requires the engine and, when enabled, the bibliography processor.
	PurposeCompile Purpose = iota
	// PurposeCheck additionally reports optional tools.
	PurposeCheck
)

var remediations = map[string]string{
	"pdflatex":  "install TeX Live (https://tug.org/texlive/) or MiKTeX and ensure pdflatex is on PATH",
	"xelatex":   "install TeX Live or MiKTeX with XeTeX and ensure xelatex is on PATH",
	"lualatex":  "install TeX Live or MiKTeX with LuaTeX and ensure lualatex is on PATH",
	"biber":     "install biber (tlmgr install biber, or your distribution's biber package) or set bibliography.enabled: false",
	"makeindex": "install makeindex (bundled with TeX Live and MiKTeX)",
	"latexmk":   "install latexmk (tlmgr install latexmk)",
	"git":       "install git from https://git-scm.com/",
}

var descriptions = map[string]string{
	"makeindex": "Index generation",
	"latexmk":   "Alternative build driver",
	"git":       "Version control",
}

// Remediation returns install advice for tool.
func Remediation(tool string) string {
	if r, ok := remediations[tool]; ok {
		return r
	}
	return "install " + tool + " and ensure it is on PATH"
}

// DefaultRequirements derives the requirement list from cfg.
func DefaultRequirements(cfg *config.Config, purpose Purpose) []Requirement {
	reqs := []Requirement{{
		Tool:        cfg.Engine.Command,
		MinVersion:  cfg.Engine.MinVersion,
		Required:    true,
		Description: "Typesetting engine",
		Remediation: Remediation(cfg.Engine.Command),
	}}
	bib := Requirement{
		Tool:        cfg.Bibliography.Command,
		MinVersion:  cfg.Bibliography.MinVersion,
		Required:    cfg.BibliographyEnabled(),
		Description: "Bibliography processor",
		Remediation: Remediation(cfg.Bibliography.Command),
	}
	if bib.Required || purpose == PurposeCheck {
		reqs = append(reqs, bib)
	}
	if purpose != PurposeCheck {
		return reqs
	}
	for _, tool := range cfg.Check.OptionalTools {
		reqs = append(reqs, Requirement{
			Tool:        tool,
			Description: descriptions[tool],
			Remediation: Remediation(tool),
		})
	}
	return reqs
}
