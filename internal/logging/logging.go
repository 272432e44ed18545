// Package logging provides the leveled diagnostic logger shared by dah,
// stale, and whose. It wraps the standard library "log" package with a
// level gate driven by RUST_LOG-shaped configuration.
package logging

import (
	"log"
	"os"
	"strings"
)

// Level is a logging verbosity level, ordered from least to most verbose.
type Level int

const (
	LevelError Level = iota
	LevelWarn
	LevelInfo
	LevelDebug
	LevelTrace
)

func parseLevel(s string) (Level, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "error":
		return LevelError, true
	case "warn", "warning":
		return LevelWarn, true
	case "info":
		return LevelInfo, true
	case "debug":
		return LevelDebug, true
	case "trace":
		return LevelTrace, true
	default:
		return LevelInfo, false
	}
}

// Logger is a leveled logger bound to a module name for per-module filters.
type Logger struct {
	module string
	level  Level
}

// defaultLevel and perModule hold the parsed RUST_LOG-shaped configuration.
var (
	defaultLevel Level = LevelInfo
	perModule    map[string]Level
)

func init() {
	configure(firstNonEmpty(os.Getenv("DAH_LOG"), os.Getenv("RUST_LOG")))
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// configure parses a RUST_LOG-shaped spec: either a bare level
// ("debug"), or a comma-separated list of module=level pairs
// ("dahengine=debug,codeowners=trace"), optionally mixed with a bare
// default level among the comma-separated entries.
func configure(spec string) {
	perModule = make(map[string]Level)
	if spec == "" {
		return
	}
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if idx := strings.Index(part, "="); idx >= 0 {
			mod := strings.TrimSpace(part[:idx])
			lvlStr := strings.TrimSpace(part[idx+1:])
			if lvl, ok := parseLevel(lvlStr); ok && mod != "" {
				perModule[mod] = lvl
			}
			continue
		}
		if lvl, ok := parseLevel(part); ok {
			defaultLevel = lvl
		}
	}
}

// New returns a Logger scoped to module, whose effective level is the
// per-module override if one was configured, otherwise the default level.
func New(module string) *Logger {
	return &Logger{module: module, level: effectiveLevel(module)}
}

func effectiveLevel(module string) Level {
	if lvl, ok := perModule[module]; ok {
		return lvl
	}
	return defaultLevel
}

func (l *Logger) enabled(lvl Level) bool { return lvl <= l.level }

func (l *Logger) logf(lvl Level, tag, format string, args ...any) {
	if !l.enabled(lvl) {
		return
	}
	log.Printf("["+tag+"] "+l.module+": "+format, args...)
}

func (l *Logger) Errorf(format string, args ...any) { l.logf(LevelError, "error", format, args...) }
func (l *Logger) Warnf(format string, args ...any)  { l.logf(LevelWarn, "warn", format, args...) }
func (l *Logger) Infof(format string, args ...any)  { l.logf(LevelInfo, "info", format, args...) }
func (l *Logger) Debugf(format string, args ...any) { l.logf(LevelDebug, "debug", format, args...) }
func (l *Logger) Tracef(format string, args ...any) { l.logf(LevelTrace, "trace", format, args...) }
