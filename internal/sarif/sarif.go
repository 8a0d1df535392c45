package sarif

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/owenrumney/go-sarif/v2/sarif"

	"github.com/neongoby/neongoby/internal/classify"
	"github.com/neongoby/neongoby/pkg/shared/files"
)

const (
	ToolName           = "neongoby"
	ToolInformationURI = "https://github.com/neongoby/neongoby"

	// MissingAliasRuleID names the single rule every result is reported under.
	MissingAliasRuleID = "missing-alias"
)

// Report wraps a SARIF report built from one classification.
type Report struct {
	*sarif.Report
}

// FromClassification converts every canonical pair of res into one SARIF result
// located at the header line of its first occurrence.
func FromClassification(res classify.Result, toolVersion string) (*Report, error) {
	report, err := sarif.New(sarif.Version210)
	if err != nil {
		return nil, fmt.Errorf("failed to create SARIF report: %w", err)
	}

	run := sarif.NewRunWithInformationURI(ToolName, ToolInformationURI)
	if toolVersion != "" {
		run.Tool.Driver.SemanticVersion = &toolVersion
	}

	rule := run.AddRule(MissingAliasRuleID).
		WithDescription("Two pointers aliased at run time but the checked alias analysis reported no alias.").
		WithDefaultConfiguration(&sarif.ReportingConfiguration{Level: "warning"})

	for _, e := range res.Entries {
		result := sarif.NewRuleResult(rule.ID).
			WithMessage(sarif.NewTextMessage(resultMessage(e))).
			WithLevel(levelFor(e))

		if e.Source != "" {
			location := sarif.NewLocation().WithPhysicalLocation(
				sarif.NewPhysicalLocation().
					WithArtifactLocation(sarif.NewArtifactLocation().WithUri(e.Source)).
					WithRegion(sarif.NewRegion().WithStartLine(e.Line)),
			)
			result.WithLocations([]*sarif.Location{location})
		}

		result.PropertyBag = *sarif.NewPropertyBag()
		result.Add("first_id", e.First.ID)
		result.Add("second_id", e.Second.ID)
		result.Add("intra_procedural", e.Flags.IntraProcedural)
		result.Add("dereferenced", e.Flags.Dereferenced)
		result.Add("occurrences", e.Count)
		if e.Scope != classify.ScopeUnknown {
			result.Add("scope", string(e.Scope))
		}
		run.AddResult(result)
	}

	report.AddRun(run)
	return &Report{Report: report}, nil
}

// WriteFile pretty-prints the report to outputPath, creating parent folders.
func (r Report) WriteFile(outputPath string) error {
	if err := files.CreateFolderIfNotExists(filepath.Dir(outputPath)); err != nil {
		return err
	}
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("error writing SARIF report: %w", err)
	}
	defer func() { _ = file.Close() }()

	return r.PrettyWrite(file)
}

// CollectLevelInfo counts results per level; "total" holds the sum.
func (r Report) CollectLevelInfo() map[string]int {
	info := map[string]int{
		"error":   0,
		"warning": 0,
		"total":   0,
	}
	for _, run := range r.Runs {
		for _, result := range run.Results {
			level := "warning"
			if result.Level != nil {
				level = *result.Level
			}
			info[level]++
			info["total"]++
		}
	}
	return info
}

// SortResultsByLevel moves error results before warnings, keeping the pair order otherwise.
func (r Report) SortResultsByLevel() {
	rank := map[string]int{"error": 0, "warning": 1}
	for _, run := range r.Runs {
		sort.SliceStable(run.Results, func(i, j int) bool {
			return rank[levelOf(run.Results[i])] < rank[levelOf(run.Results[j])]
		})
	}
}

func levelOf(result *sarif.Result) string {
	if result.Level == nil {
		return "warning"
	}
	return *result.Level
}

// A violation observed at a dereference is an actual memory access through both pointers.
func levelFor(e classify.Entry) string {
	if e.Flags.Dereferenced {
		return "error"
	}
	return "warning"
}

func resultMessage(e classify.Entry) string {
	locality := "inter-procedural"
	if e.Flags.IntraProcedural {
		locality = "intra-procedural"
	}
	return fmt.Sprintf("Missing %s alias between [%d]%s and [%d]%s", locality, e.First.ID, e.First.Description, e.Second.ID, e.Second.Description)
}
