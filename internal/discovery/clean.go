package discovery

import (
	"fmt"
	"path/filepath"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"
	"github.com/spf13/afero"
)

// ArtifactPatterns returns the glob patterns of everything an earlier run leaves in a log directory.
func ArtifactPatterns(prefixes ...string) []string {
	patterns := make([]string, 0, len(prefixes))
	for _, p := range prefixes {
		if p == "" {
			continue
		}
		patterns = append(patterns, p+"-*")
	}
	return patterns
}

// Clean removes the files of dir matching patterns and returns how many were removed.
// Failures are collected and logged; the returned error is informational.
func Clean(fs afero.Fs, dir string, patterns []string, logger hclog.Logger) (int, error) {
	var (
		errs    *multierror.Error
		removed int
	)

	for _, pattern := range patterns {
		matches, err := afero.Glob(fs, filepath.Join(dir, pattern))
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("invalid cleanup pattern %q: %w", pattern, err))
			continue
		}
		for _, path := range matches {
			info, err := fs.Stat(path)
			if err != nil {
				errs = multierror.Append(errs, fmt.Errorf("unable to stat %q: %w", path, err))
				continue
			}
			if info.IsDir() {
				continue
			}
			if err := fs.Remove(path); err != nil {
				errs = multierror.Append(errs, fmt.Errorf("unable to remove %q: %w", path, err))
				continue
			}
			removed++
		}
	}

	logger.Debug("stale artifacts removed", "dir", dir, "count", removed)
	if err := errs.ErrorOrNil(); err != nil {
		logger.Warn("cleanup incomplete", "dir", dir, "error", err)
		return removed, err
	}
	return removed, nil
}
