package batch

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

const bitcodeExt = ".bc"

// Target is one program to validate: <WorkDir>/<Program>.bc.
type Target struct {
	Program string `json:"program"`
	WorkDir string `json:"workdir"`
}

func (t Target) Bitcode() string {
	return filepath.Join(t.WorkDir, t.Program+bitcodeExt)
}

// ExpandTargets resolves doublestar patterns ("bench/**/*.bc") into bitcode targets.
// A pattern naming a program without extension matches <pattern>.bc.
// Duplicates are dropped and the result is sorted by bitcode path.
func ExpandTargets(patterns []string) ([]Target, error) {
	seen := make(map[string]bool)
	var targets []Target

	for _, pattern := range patterns {
		if filepath.Ext(pattern) == "" && !strings.ContainsAny(pattern, "*?[{") {
			pattern += bitcodeExt
		}
		matches, err := doublestar.FilepathGlob(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid target pattern %q: %w", pattern, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("target pattern %q matched no bitcode file", pattern)
		}

		for _, match := range matches {
			if filepath.Ext(match) != bitcodeExt {
				continue
			}
			abs, err := filepath.Abs(match)
			if err != nil {
				return nil, err
			}
			if seen[abs] {
				continue
			}
			seen[abs] = true
			targets = append(targets, Target{
				Program: strings.TrimSuffix(filepath.Base(abs), bitcodeExt),
				WorkDir: filepath.Dir(abs),
			})
		}
	}

	sort.Slice(targets, func(i, j int) bool {
		return targets[i].Bitcode() < targets[j].Bitcode()
	})
	return targets, nil
}
