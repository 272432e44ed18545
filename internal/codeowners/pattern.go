// Package codeowners implements the ordered, last-rule-wins CODEOWNERS
// pattern matcher and git-style pathspec normalization described in
// spec.md §4.4.
package codeowners

import (
	"bufio"
	"bytes"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Rule is a single compiled CODEOWNERS entry: a pattern paired with the
// owners assigned to paths it matches. Owners may be empty, which
// explicitly removes ownership for any path whose last matching rule is
// this one.
type Rule struct {
	Pattern string
	Owners  []string

	effective string // translated doublestar pattern
}

// ParseRules parses a CODEOWNERS blob into an ordered list of rules.
// One rule per non-blank, non-comment line. A line is a comment only
// when its first non-space character is '#' — a trailing "#…" elsewhere
// on the line is not stripped, matching real CODEOWNERS files.
func ParseRules(blob []byte) ([]Rule, error) {
	var rules []Rule

	scanner := bufio.NewScanner(bytes.NewReader(blob))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}

		fields := strings.Fields(trimmed)
		pattern := fields[0]
		var owners []string
		if len(fields) > 1 {
			owners = append(owners, fields[1:]...)
		}

		rules = append(rules, Rule{
			Pattern:   pattern,
			Owners:    owners,
			effective: compilePattern(pattern),
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return rules, nil
}

// compilePattern translates a CODEOWNERS pattern into a doublestar glob
// that matches repo-root-relative blob paths.
//
//   - a leading "/" anchors the pattern at the repo root; otherwise the
//     pattern is allowed to match starting at any directory depth, i.e.
//     it behaves as if prefixed with "**/".
//   - a trailing "/" matches the named directory and every path beneath
//     it.
//   - "*", "**" and "?" keep their doublestar meanings, which already
//     match spec.md's "single component / any components / single
//     non-separator character" semantics.
func compilePattern(pattern string) string {
	anchored := strings.HasPrefix(pattern, "/")
	base := strings.TrimPrefix(pattern, "/")

	isDir := strings.HasSuffix(base, "/")
	base = strings.TrimSuffix(base, "/")

	if isDir {
		if base == "" {
			base = "**"
		} else {
			base = base + "/**"
		}
	}

	if !anchored {
		base = "**/" + base
	}

	return base
}

// Match returns the owners assigned to path by the last rule in rules
// that matches it, or nil if no rule matches. Matching is case-sensitive.
func Match(rules []Rule, path string) []string {
	var owners []string
	matched := false

	for _, r := range rules {
		ok, err := doublestar.Match(r.effective, path)
		if err != nil {
			continue
		}
		if ok {
			owners = r.Owners
			matched = true
		}
	}

	if !matched {
		return nil
	}
	return owners
}
