package batch

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"github.com/neongoby/neongoby/internal/pipeline"
	"github.com/neongoby/neongoby/pkg/shared"
)

// Pipeline runs one target to completion.
type Pipeline interface {
	Run(ctx context.Context, opts pipeline.Options) (*pipeline.Run, error)
}

// Options configure a batch. Template supplies the analyses and flags shared by every run;
// its Program, WorkDir and LogDir are set per target.
type Options struct {
	Template  pipeline.Options
	Jobs      int
	Workspace string
}

// Result is the record of one target.
type Result struct {
	Target  Target           `json:"target"`
	LogDir  string           `json:"log_dir"`
	Run     *pipeline.Run    `json:"run,omitempty"`
	Outcome pipeline.Outcome `json:"outcome"`
	Err     error            `json:"-"`
}

// Summary holds one Result per target, in target order.
type Summary struct {
	Results []Result
}

// Outcome is a tool failure if any run failed, else violations if any run found some.
func (s Summary) Outcome() pipeline.Outcome {
	outcome := pipeline.Sound
	for _, r := range s.Results {
		switch r.Outcome {
		case pipeline.ToolFailure:
			return pipeline.ToolFailure
		case pipeline.ViolationsFound:
			outcome = pipeline.ViolationsFound
		}
	}
	return outcome
}

// Count returns how many results ended with outcome.
func (s Summary) Count(outcome pipeline.Outcome) int {
	n := 0
	for _, r := range s.Results {
		if r.Outcome == outcome {
			n++
		}
	}
	return n
}

// Launches renders the summary in the launches artifact format.
func (s Summary) Launches() shared.GenericLaunchesResult {
	var launches shared.GenericLaunchesResult
	for _, r := range s.Results {
		launch := shared.GenericResult{Args: r.Target, Status: shared.StatusOK}
		if r.Run != nil {
			launch.Result = r.Run
		}
		if r.Outcome == pipeline.ToolFailure {
			launch.Status = shared.StatusFailed
		}
		if r.Err != nil {
			launch.Message = r.Err.Error()
		}
		launches.Launches = append(launches.Launches, launch)
	}
	return launches
}

// Run validates every target with at most opts.Jobs runs in flight.
// Each run writes to its own log directory under opts.Workspace.
// Cancelling ctx stops new runs from starting; unstarted targets are reported as failures.
func Run(ctx context.Context, p Pipeline, fs afero.Fs, targets []Target, opts Options, logger hclog.Logger) Summary {
	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = 1
	}
	logger.Info("batch starting", "total", len(targets), "goroutines", jobs)

	summary := Summary{Results: make([]Result, len(targets))}
	for i, t := range targets {
		summary.Results[i] = Result{
			Target:  t,
			Outcome: pipeline.ToolFailure,
			Err:     fmt.Errorf("not started"),
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)

	for i := range targets {
		if err := gctx.Err(); err != nil {
			break
		}
		i := i
		g.Go(func() error {
			summary.Results[i] = runTarget(gctx, p, fs, targets[i], opts, logger.With("#", i+1))
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		for i := range summary.Results {
			if summary.Results[i].Run == nil && summary.Results[i].LogDir == "" {
				summary.Results[i].Err = fmt.Errorf("not started: %w", err)
			}
		}
	}

	logger.Info("batch finished", "sound", summary.Count(pipeline.Sound), "violations", summary.Count(pipeline.ViolationsFound), "failed", summary.Count(pipeline.ToolFailure))
	return summary
}

func runTarget(ctx context.Context, p Pipeline, fs afero.Fs, t Target, opts Options, logger hclog.Logger) Result {
	runOpts := opts.Template
	runOpts.Program = t.Program
	runOpts.WorkDir = t.WorkDir
	runOpts.LogDir = filepath.Join(opts.Workspace, t.Program+"-"+uuid.New().String())

	res := Result{Target: t, LogDir: runOpts.LogDir}
	logger.Info("run started", "program", t.Program, "log_dir", runOpts.LogDir)

	run, err := p.Run(ctx, runOpts)
	res.Run = run
	res.Err = err
	switch {
	case err != nil || run == nil:
		res.Outcome = pipeline.ToolFailure
		if res.Err == nil {
			res.Err = fmt.Errorf("pipeline returned no run")
		}
	default:
		res.Outcome = run.Outcome
	}

	// The directory is only left behind when it still holds logs.
	if empty, err := afero.IsEmpty(fs, runOpts.LogDir); err == nil && empty {
		_ = fs.Remove(runOpts.LogDir)
	}
	logger.Info("run finished", "program", t.Program, "outcome", res.Outcome)
	return res
}
