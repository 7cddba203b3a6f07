package config

import (
	"fmt"
	"sort"
	"strings"
)

// normalizer maps case-insensitive strings onto a typed enum.
type normalizer[T comparable] struct {
	values    map[string]T
	fallback  T
	validKeys []string
}

func newNormalizer[T comparable](values map[string]T, fallback T) *normalizer[T] {
	n := &normalizer[T]{values: make(map[string]T, len(values)), fallback: fallback}
	for k, v := range values {
		key := clean(k)
		n.values[key] = v
		n.validKeys = append(n.validKeys, key)
	}
	sort.Strings(n.validKeys)
	return n
}

// normalize returns the fallback for unknown input.
func (n *normalizer[T]) normalize(raw string) T {
	if v, ok := n.values[clean(raw)]; ok {
		return v
	}
	return n.fallback
}

// strict rejects unknown non-empty input; empty input yields the fallback.
func (n *normalizer[T]) strict(field, raw string) (T, error) {
	if clean(raw) == "" {
		return n.fallback, nil
	}
	if v, ok := n.values[clean(raw)]; ok {
		return v, nil
	}
	var zero T
	return zero, fmt.Errorf("invalid %s %q, valid options: %v", field, raw, n.validKeys)
}

func clean(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// BuildMode selects the compilation sequence.
type BuildMode string

const (
	ModeQuick BuildMode = "quick"
	ModeFull  BuildMode = "full"
	ModeClean BuildMode = "clean"
)

var buildModeNormalizer = newNormalizer(map[string]BuildMode{
	"quick": ModeQuick,
	"full":  ModeFull,
	"clean": ModeClean,
}, ModeQuick)

// ParseBuildMode parses a mode name; empty input yields quick.
func ParseBuildMode(raw string) (BuildMode, error) {
	return buildModeNormalizer.strict("mode", raw)
}

// WatchBackend selects how file changes are detected.
type WatchBackend string

const (
	BackendFSNotify WatchBackend = "fsnotify"
	BackendPoll     WatchBackend = "poll"
)

var watchBackendNormalizer = newNormalizer(map[string]WatchBackend{
	"fsnotify": BackendFSNotify,
	"notify":   BackendFSNotify,
	"poll":     BackendPoll,
	"polling":  BackendPoll,
}, BackendFSNotify)

// LogLevel enumerates supported logging levels.
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

var logLevelNormalizer = newNormalizer(map[string]LogLevel{
	"debug":   LogLevelDebug,
	"info":    LogLevelInfo,
	"warn":    LogLevelWarn,
	"warning": LogLevelWarn,
	"error":   LogLevelError,
}, LogLevelInfo)

// NormalizeLogLevel maps raw onto a LogLevel, defaulting to info.
func NormalizeLogLevel(raw string) LogLevel {
	return logLevelNormalizer.normalize(raw)
}

// LogFormat enumerates supported log output formats.
type LogFormat string

const (
	LogFormatJSON LogFormat = "json"
	LogFormatText LogFormat = "text"
)

var logFormatNormalizer = newNormalizer(map[string]LogFormat{
	"json": LogFormatJSON,
	"text": LogFormatText,
}, LogFormatText)

// NormalizeLogFormat maps raw onto a LogFormat, defaulting to text.
func NormalizeLogFormat(raw string) LogFormat {
	return logFormatNormalizer.normalize(raw)
}

// AuthType selects how release tags are pushed.
type AuthType string

const (
	AuthTypeNone  AuthType = "none"
	AuthTypeSSH   AuthType = "ssh"
	AuthTypeToken AuthType = "token"
	AuthTypeBasic AuthType = "basic"
)

var authTypeNormalizer = newNormalizer(map[string]AuthType{
	"none":  AuthTypeNone,
	"ssh":   AuthTypeSSH,
	"token": AuthTypeToken,
	"basic": AuthTypeBasic,
}, AuthTypeNone)
