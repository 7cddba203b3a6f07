package logfields

import (
	"log/slog"
	"time"
)

// Canonical log field name constants to avoid drift across packages.
const (
	KeyRunID      = "run_id"
	KeyMode       = "mode"
	KeyPass       = "pass"
	KeyPassIndex  = "pass_index"
	KeyTool       = "tool"
	KeyPath       = "path"
	KeyTag        = "tag"
	KeyBranch     = "branch"
	KeyDurationMS = "duration_ms"
	KeyCount      = "count"
	KeyOutcome    = "outcome"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func RunID(id string) slog.Attr       { return slog.String(KeyRunID, id) }
func Mode(m string) slog.Attr         { return slog.String(KeyMode, m) }
func Pass(name string) slog.Attr      { return slog.String(KeyPass, name) }
func PassIndex(i int) slog.Attr       { return slog.Int(KeyPassIndex, i) }
func Tool(name string) slog.Attr      { return slog.String(KeyTool, name) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func Tag(t string) slog.Attr          { return slog.String(KeyTag, t) }
func Branch(b string) slog.Attr       { return slog.String(KeyBranch, b) }
func Count(n int) slog.Attr           { return slog.Int(KeyCount, n) }
func Outcome(o string) slog.Attr      { return slog.String(KeyOutcome, o) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }

// Duration renders d as milliseconds under the duration_ms key.
func Duration(d time.Duration) slog.Attr {
	return DurationMS(float64(d.Microseconds()) / 1000)
}

func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
