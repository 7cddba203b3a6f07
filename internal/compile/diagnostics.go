package compile

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"strconv"
	"strings"
)

// LogLine is a notable line from the engine log. Line is 1-based.
type LogLine struct {
	Line int    `json:"line"`
	Text string `json:"text"`
}

// Diagnostics summarises the engine log of the last pass.
type Diagnostics struct {
	Errors              []LogLine `json:"errors,omitempty"`
	Warnings            []LogLine `json:"warnings,omitempty"`
	UndefinedCitations  int       `json:"undefined_citations"`
	UndefinedReferences int       `json:"undefined_references"`
	RerunSuggested      bool      `json:"rerun_suggested"`
	OutputLine          string    `json:"output_line,omitempty"`
	Pages               int       `json:"pages,omitempty"`
}

var (
	fileLineError  = regexp.MustCompile(`^[^:\s][^:]*\.(?:tex|sty|cls|bbl|aux):\d+: `)
	undefinedCite  = regexp.MustCompile(`(?i)citation\s+['` + "`" + `].*['].*undefined`)
	undefinedRef   = regexp.MustCompile(`(?i)reference\s+['` + "`" + `].*['].*undefined`)
	outputWritten  = regexp.MustCompile(`Output written on .*\((\d+) pages?`)
	rerunSuggested = regexp.MustCompile(`(?i)rerun to get|please rerun`)
)

// ParseLog extracts errors, warnings and the output summary from an engine log.
func ParseLog(data []byte) *Diagnostics {
	d := &Diagnostics{}
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	n := 0
	for sc.Scan() {
		n++
		line := strings.TrimRight(sc.Text(), "\r")
		switch {
		case strings.HasPrefix(line, "!") || fileLineError.MatchString(line):
			d.Errors = append(d.Errors, LogLine{Line: n, Text: line})
		case strings.Contains(line, "Warning:") || strings.Contains(line, "warning:"):
			d.Warnings = append(d.Warnings, LogLine{Line: n, Text: line})
			if undefinedCite.MatchString(line) {
				d.UndefinedCitations++
			}
			if undefinedRef.MatchString(line) {
				d.UndefinedReferences++
			}
		}
		if rerunSuggested.MatchString(line) {
			d.RerunSuggested = true
		}
		if strings.Contains(line, "Output written on") {
			d.OutputLine = strings.TrimSpace(line)
			if m := outputWritten.FindStringSubmatch(line); m != nil {
				d.Pages, _ = strconv.Atoi(m[1])
			}
		}
	}
	return d
}

// ReadLog parses the log at path. A missing log yields nil and no error.
func ReadLog(path string) (*Diagnostics, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}
	return ParseLog(data), nil
}

// Summary renders the first few errors for error remediation text.
func (d *Diagnostics) Summary(limit int) string {
	if d == nil || len(d.Errors) == 0 {
		return ""
	}
	var b strings.Builder
	for i, e := range d.Errors {
		if i == limit {
			fmt.Fprintf(&b, "... and %d more", len(d.Errors)-limit)
			break
		}
		fmt.Fprintf(&b, "log line %d: %s\n", e.Line, e.Text)
	}
	return strings.TrimRight(b.String(), "\n")
}
