// Package probe inspects the host for the external tools a build needs and
// the project for the files a build expects.
package probe

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"golang.org/x/mod/semver"

	"git.home.luguber.info/inful/texbuilder/internal/logfields"
	"git.home.luguber.info/inful/texbuilder/internal/toolexec"
)

// Status is the outcome of probing a single tool.
type Status string

const (
	StatusOK            Status = "ok"
	StatusMissing       Status = "missing"
	StatusVersionTooLow Status = "version-too-low"
)

// DefaultVersionTimeout bounds each `<tool> --version` call.
const DefaultVersionTimeout = 10 * time.Second

// Requirement names a tool the project depends on.
type Requirement struct {
	Tool        string
	MinVersion  string // empty means any version
	Required    bool
	Description string
	VersionArgs []string // defaults to --version
	Remediation string
}

// Result is the probe outcome for one Requirement.
type Result struct {
	Tool        string `json:"tool"`
	Path        string `json:"path,omitempty"`
	Version     string `json:"version,omitempty"`
	VersionLine string `json:"version_line,omitempty"`
	MinVersion  string `json:"min_version,omitempty"`
	Required    bool   `json:"required"`
	Status      Status `json:"status"`
	Description string `json:"description,omitempty"`
	Remediation string `json:"remediation,omitempty"`
}

// OK reports whether the tool is present at an acceptable version.
func (r Result) OK() bool { return r.Status == StatusOK }

// Report is a fresh snapshot of the host environment.
type Report struct {
	GeneratedAt time.Time     `json:"generated_at"`
	Results     []Result      `json:"tools"`
	Layout      *LayoutReport `json:"layout,omitempty"`
}

// Satisfied is true iff every required tool is ok and, when a layout check
// was run, every required layout item is present.
func (r Report) Satisfied() bool {
	for _, res := range r.Results {
		if res.Required && !res.OK() {
			return false
		}
	}
	if r.Layout != nil && !r.Layout.Satisfied() {
		return false
	}
	return true
}

// Unsatisfied returns the required tools that are missing or too old.
func (r Report) Unsatisfied() []Result {
	var out []Result
	for _, res := range r.Results {
		if res.Required && !res.OK() {
			out = append(out, res)
		}
	}
	return out
}

// Prober checks requirements using a toolexec.Runner.
type Prober struct {
	runner  toolexec.Runner
	timeout time.Duration
	now     func() time.Time
}

// Option configures a Prober.
type Option func(*Prober)

// WithVersionTimeout overrides DefaultVersionTimeout.
func WithVersionTimeout(d time.Duration) Option {
	return func(p *Prober) { p.timeout = d }
}

// New returns a Prober backed by runner.
func New(runner toolexec.Runner, opts ...Option) *Prober {
	p := &Prober{runner: runner, timeout: DefaultVersionTimeout, now: time.Now}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Probe checks every requirement. It never fails; problems are statuses.
func (p *Prober) Probe(ctx context.Context, reqs []Requirement) Report {
	rep := Report{GeneratedAt: p.now().UTC()}
	for _, req := range reqs {
		res := p.Check(ctx, req)
		slog.Debug("Probed tool",
			logfields.Tool(res.Tool),
			slog.String("status", string(res.Status)),
			slog.String("version", res.Version),
			logfields.Path(res.Path))
		rep.Results = append(rep.Results, res)
	}
	return rep
}

// Check probes a single requirement.
func (p *Prober) Check(ctx context.Context, req Requirement) Result {
	res := Result{
		Tool:        req.Tool,
		MinVersion:  req.MinVersion,
		Required:    req.Required,
		Description: req.Description,
		Remediation: req.Remediation,
	}
	path, err := p.runner.LookPath(req.Tool)
	if err != nil {
		res.Status = StatusMissing
		return res
	}
	res.Path = path

	args := req.VersionArgs
	if len(args) == 0 {
		args = []string{"--version"}
	}
	out, runErr := p.runner.Run(ctx, toolexec.Command{Name: req.Tool, Args: args, Timeout: p.timeout})
	res.VersionLine = firstLine(out.Output())
	res.Version = ParseVersion(res.VersionLine)
	if runErr != nil {
		slog.Debug("Version query failed", logfields.Tool(req.Tool), logfields.Error(runErr))
	}

	switch {
	case req.MinVersion == "":
		res.Status = StatusOK
	case res.Version == "":
		res.Status = StatusVersionTooLow
	case CompareVersions(res.Version, req.MinVersion) < 0:
		res.Status = StatusVersionTooLow
	default:
		res.Status = StatusOK
	}
	return res
}

var dottedNumber = regexp.MustCompile(`\d+(?:\.\d+)+`)

// ParseVersion extracts the first dotted number from s, e.g. "2.19" from
// "biber version: 2.19" or "3.141592653" from a pdfTeX banner.
func ParseVersion(s string) string {
	return dottedNumber.FindString(s)
}

// CompareVersions compares dotted versions numerically. Missing components
// count as zero, so "2.19" equals "2.19.0".
func CompareVersions(a, b string) int {
	return semver.Compare(canonical(a), canonical(b))
}

// canonical maps a dotted number onto vMAJOR.MINOR.PATCH. Components past
// the third are dropped and leading zeros removed.
func canonical(v string) string {
	parts := strings.Split(strings.TrimPrefix(strings.TrimSpace(v), "v"), ".")
	norm := []string{"0", "0", "0"}
	for i := 0; i < len(parts) && i < 3; i++ {
		p := strings.TrimLeft(parts[i], "0")
		if p == "" {
			p = "0"
		}
		norm[i] = p
	}
	return "v" + strings.Join(norm, ".")
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}
