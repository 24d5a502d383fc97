package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/stree-tools/git-rp/internal/git"
	"github.com/stree-tools/git-rp/internal/orchestrator"
	"github.com/stree-tools/git-rp/internal/report"
)

// Runner glues together the orchestrator and supporting services to execute
// the recursive push flow.
type Runner struct {
	cfg Config
	log *slog.Logger
	git git.Runner
	rep report.Reporter
}

// NewRunner constructs a Runner with the supplied configuration.
func NewRunner(cfg Config) (*Runner, error) {
	logger, err := NewLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	return &Runner{
		cfg: cfg,
		log: logger,
		git: git.NewShellRunner(),
		rep: report.NewConsole(os.Stdout),
	}, nil
}

// NewRunnerWithDeps constructs a Runner with injected dependencies for testing.
func NewRunnerWithDeps(cfg Config, log *slog.Logger, gitRunner git.Runner, rep report.Reporter) *Runner {
	return &Runner{cfg: cfg, log: log, git: gitRunner, rep: rep}
}

// Run executes the recursive push using the provided context. Any push or
// discovery failure anywhere in the traversal surfaces here as an error.
func (r *Runner) Run(ctx context.Context) error {
	workDir := r.cfg.WorkDir
	if workDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("resolve working directory: %w", err)
		}
		workDir = wd
	}

	if r.log != nil {
		r.log.Debug("starting push run", "dry_run", r.cfg.DryRun, "force", r.cfg.Force, "root", workDir)
	}

	orch := orchestrator.New(orchestrator.Context{
		Branch:  r.cfg.Branch,
		Force:   r.cfg.Force,
		DryRun:  r.cfg.DryRun,
		RootDir: workDir,
		Remote:  r.cfg.Remote,
	}, r.git, r.rep, r.log)

	result, err := orch.Run(ctx)
	if err != nil {
		return err
	}

	if r.log != nil {
		pushed, simulated := 0, 0
		for _, step := range result.Steps {
			switch step.Status {
			case orchestrator.StepStatusPushed:
				pushed++
			case orchestrator.StepStatusSimulated:
				simulated++
			}
		}
		r.log.Info("push run complete", "branch", result.Branch, "pushed", pushed, "simulated", simulated)
	}

	return nil
}
