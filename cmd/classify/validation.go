package classify

import (
	"fmt"

	"github.com/neongoby/neongoby/internal/dedup"
	"github.com/neongoby/neongoby/pkg/shared/files"
)

// validate checks the options and the log arguments, returning the parsed flag policy.
func validate(o *RunOptions, args []string) (dedup.FlagPolicy, error) {
	if len(args) == 0 {
		return dedup.FirstSeen, fmt.Errorf("at least one LOG is required")
	}
	switch o.Format {
	case FormatText, FormatJSON, FormatSarif:
	default:
		return dedup.FirstSeen, fmt.Errorf("unknown --format %q: expected text, json or sarif", o.Format)
	}

	policy, err := dedup.ParseFlagPolicy(o.FlagPolicy)
	if err != nil {
		return dedup.FirstSeen, err
	}

	for _, path := range args {
		if err := files.ValidatePath(path); err != nil {
			return dedup.FirstSeen, fmt.Errorf("log %q: %w", path, err)
		}
	}
	return policy, nil
}
