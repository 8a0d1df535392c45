package discovery

import (
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/afero"
)

// Log is a trace log found on disk.
type Log struct {
	Path    string    `json:"path"`
	ModTime time.Time `json:"mod_time"`
	Suffix  int       `json:"suffix"`
}

// Selection is the pick made by Latest.
type Selection struct {
	Log
	// Ambiguous is set when more than one log matched and the pick is by recency only.
	Ambiguous  bool  `json:"ambiguous"`
	Candidates []Log `json:"candidates"`
}

// NoLogsError is returned when a directory holds no matching log.
type NoLogsError struct {
	Dir    string
	Prefix string
}

func (e *NoLogsError) Error() string {
	return fmt.Sprintf("no logs found: no %s-<n> file in %q", e.Prefix, e.Dir)
}

func namePattern(prefix string) *regexp.Regexp {
	return regexp.MustCompile(`^` + regexp.QuoteMeta(prefix) + `-(\d+)$`)
}

// Find returns every regular file in dir named <prefix>-<digits>,
// newest first, equal modification times ordered by path.
func Find(fs afero.Fs, dir, prefix string) ([]Log, error) {
	entries, err := afero.ReadDir(fs, dir)
	if err != nil {
		return nil, fmt.Errorf("unable to list log directory %q: %w", dir, err)
	}

	pattern := namePattern(prefix)
	var logs []Log
	for _, entry := range entries {
		if !entry.Mode().IsRegular() {
			continue
		}
		m := pattern.FindStringSubmatch(entry.Name())
		if m == nil {
			continue
		}
		suffix, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		logs = append(logs, Log{
			Path:    filepath.Join(dir, entry.Name()),
			ModTime: entry.ModTime(),
			Suffix:  suffix,
		})
	}

	sort.Slice(logs, func(i, j int) bool {
		if !logs[i].ModTime.Equal(logs[j].ModTime) {
			return logs[i].ModTime.After(logs[j].ModTime)
		}
		return logs[i].Path < logs[j].Path
	})
	return logs, nil
}

// Latest returns the most recently modified log of dir.
// Several candidates are a best-effort pick and are logged as a warning.
func Latest(fs afero.Fs, dir, prefix string, logger hclog.Logger) (Selection, error) {
	logs, err := Find(fs, dir, prefix)
	if err != nil {
		return Selection{}, err
	}
	if len(logs) == 0 {
		return Selection{}, &NoLogsError{Dir: dir, Prefix: prefix}
	}

	sel := Selection{Log: logs[0], Candidates: logs, Ambiguous: len(logs) > 1}
	if sel.Ambiguous {
		logger.Warn("multiple logs found, using the most recently modified", "dir", dir, "count", len(logs), "selected", sel.Path)
	}
	return sel, nil
}

// Paths returns the paths of logs in order.
func Paths(logs []Log) []string {
	paths := make([]string, 0, len(logs))
	for _, l := range logs {
		paths = append(paths, l.Path)
	}
	return paths
}
