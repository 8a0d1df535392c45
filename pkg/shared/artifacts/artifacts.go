package artifacts

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/neongoby/neongoby/pkg/shared"
	"github.com/neongoby/neongoby/pkg/shared/files"
)

// GetArtifactName returns the default artifact file name of a command.
// Example: batch_ds-aa_2025-09-15T08:28:46Z.neongoby-artifact.json.
func GetArtifactName(command, analysis string, t time.Time) string {
	ts := t.UTC().Format(time.RFC3339)
	return fmt.Sprintf("%s_%s_%s.neongoby-artifact.json", command, analysis, ts)
}

// SaveArtifactJSON writes result to output, which may name a file or a folder.
// A folder receives a file named by GetArtifactName. Returns the full path.
func SaveArtifactJSON(logger hclog.Logger, output, command, analysis string, result shared.GenericLaunchesResult) (string, error) {
	path, _, err := files.DetermineFileFullPath(output, GetArtifactName(command, analysis, time.Now()))
	if err != nil {
		return "", err
	}

	resultData, err := json.MarshalIndent(result, "", "    ")
	if err != nil {
		return path, fmt.Errorf("error marshaling the result data: %w", err)
	}

	if err := files.WriteFile(path, resultData); err != nil {
		return path, fmt.Errorf("error writing result to file: %w", err)
	}
	logger.Info("artifact saved to file", "path", path)

	return path, nil
}
