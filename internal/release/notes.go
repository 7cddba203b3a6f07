package release

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	gmast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// ExtractNotes returns the changelog section for version: everything after
// the first heading that mentions it, up to the next heading of the same or
// a higher level. It returns "" when no heading matches.
func ExtractNotes(changelog []byte, version string) string {
	version = strings.TrimPrefix(version, "v")
	match := regexp.MustCompile(`(^|[^\d.])v?` + regexp.QuoteMeta(version) + `([^\d.]|$)`)

	root := goldmark.New().Parser().Parse(text.NewReader(changelog))

	start, end, level := -1, len(changelog), 0
	for n := root.FirstChild(); n != nil; n = n.NextSibling() {
		h, ok := n.(*gmast.Heading)
		if !ok || h.Lines().Len() == 0 {
			continue
		}
		if start >= 0 {
			if h.Level <= level {
				end = lineStart(changelog, h.Lines().At(0).Start)
				break
			}
			continue
		}
		if match.MatchString(headingText(h, changelog)) {
			start = afterHeading(changelog, h.Lines().At(h.Lines().Len()-1).Stop)
			level = h.Level
		}
	}
	if start < 0 || start > end {
		return ""
	}
	return strings.TrimSpace(string(changelog[start:end]))
}

func headingText(h *gmast.Heading, source []byte) string {
	var b strings.Builder
	_ = gmast.Walk(h, func(n gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if t, ok := n.(*gmast.Text); ok && entering {
			b.Write(t.Segment.Value(source))
		}
		return gmast.WalkContinue, nil
	})
	return b.String()
}

func lineStart(src []byte, pos int) int {
	return bytes.LastIndexByte(src[:pos], '\n') + 1
}

// afterHeading returns the offset following the heading line, skipping a
// setext underline.
func afterHeading(src []byte, pos int) int {
	if pos > 0 && src[pos-1] == '\n' {
		pos--
	}
	next := nextLine(src, pos)
	if next >= len(src) {
		return len(src)
	}
	line := bytes.TrimSpace(src[next:nextLine(src, next)])
	if len(line) > 0 && (isRepeated(line, '=') || isRepeated(line, '-')) {
		return nextLine(src, next)
	}
	return next
}

func nextLine(src []byte, pos int) int {
	if i := bytes.IndexByte(src[pos:], '\n'); i >= 0 {
		return pos + i + 1
	}
	return len(src)
}

func isRepeated(line []byte, c byte) bool {
	return len(bytes.Trim(line, string(c))) == 0
}
