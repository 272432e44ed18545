package gitfacade

import (
	"bufio"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cobwebtools/dah/internal/errs"
)

// Reflog reads refName's reflog straight off disk. go-git has no
// native reflog support, so this parses .git/logs/<refName> directly —
// the same format `git reflog show` reads.
//
// Entries are returned newest-first, capped at limit (0 means no cap).
func (f *realFacade) Reflog(refName string, limit int) ([]ReflogEntry, error) {
	if f.isBare {
		return nil, nil
	}

	logPath := filepath.Join(f.gitDir, "logs", filepath.FromSlash(refName))
	data, err := os.ReadFile(logPath)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, &errs.IoError{Op: "read reflog " + refName, Err: err}
	}

	var entries []ReflogEntry
	scanner := bufio.NewScanner(strings.NewReader(string(data)))
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		entry, ok := parseReflogLine(scanner.Text())
		if ok {
			entries = append(entries, entry)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, &errs.IoError{Op: "read reflog " + refName, Err: err}
	}

	// File is oldest-first; reverse to newest-first.
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}

	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// parseReflogLine parses one line of the form:
//
//	<old-sha> <new-sha> <name> <email> <unix> <tz>\t<message>
func parseReflogLine(line string) (ReflogEntry, bool) {
	tabIdx := strings.IndexByte(line, '\t')
	if tabIdx < 0 {
		return ReflogEntry{}, false
	}
	header, message := line[:tabIdx], line[tabIdx+1:]

	fields := strings.Fields(header)
	if len(fields) < 5 {
		return ReflogEntry{}, false
	}
	old, new := fields[0], fields[1]

	// fields[2:] is "name email... unix tz" — the timestamp is the
	// second-to-last field, following whatever identity string precedes it.
	unixField := fields[len(fields)-2]
	unixSec, err := strconv.ParseInt(unixField, 10, 64)
	if err != nil {
		return ReflogEntry{}, false
	}

	return ReflogEntry{
		OldHash: old,
		NewHash: new,
		Message: message,
		When:    time.Unix(unixSec, 0),
	}, true
}
