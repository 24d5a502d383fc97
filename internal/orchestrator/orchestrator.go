package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"path/filepath"
	"strings"

	"github.com/stree-tools/git-rp/internal/git"
	"github.com/stree-tools/git-rp/internal/report"
	"github.com/stree-tools/git-rp/internal/subtree"
)

// Orchestrator drives the main-repository push, per-subtree pushes, and the
// depth-first descent into nested subtrees. Execution is strictly sequential:
// the outcome of each step decides whether the next one starts, and the walk
// halts on the first failure. Already-completed pushes are never rolled back,
// remote pushes are not transactional across independent repositories.
type Orchestrator struct {
	cfg Context
	git git.Runner
	rep report.Reporter
	log *slog.Logger
}

// StepKind identifies what a recorded step pushed.
type StepKind string

const (
	StepMain    StepKind = "main"
	StepSubtree StepKind = "subtree"
)

// StepStatus describes how a recorded step ended.
type StepStatus string

const (
	StepStatusPushed    StepStatus = "pushed"
	StepStatusSimulated StepStatus = "simulated"
	StepStatusFailed    StepStatus = "failed"
)

// Step captures one push attempt in execution order.
type Step struct {
	Kind   StepKind
	Path   string
	URL    string
	Branch string
	Depth  int
	Status StepStatus
	Argv   []string
	Reason string
}

// Result captures the outcome of a single run. Steps completed before a
// failure stay recorded.
type Result struct {
	Branch string
	Steps  []Step
}

// New returns a configured Orchestrator instance.
func New(cfg Context, runner git.Runner, rep report.Reporter, logger *slog.Logger) *Orchestrator {
	if rep == nil {
		rep = report.Discard
	}
	return &Orchestrator{cfg: cfg, git: runner, rep: rep, log: logger}
}

// Run pushes the main repository and every configured subtree, recursing into
// nested subtrees depth-first before moving to the next sibling. A best-effort
// Result is returned alongside any error so callers can see how far the walk
// got.
func (o *Orchestrator) Run(ctx context.Context) (Result, error) {
	if o.git == nil {
		return Result{}, fmt.Errorf("git runner is required")
	}

	branch := strings.TrimSpace(o.cfg.Branch)
	if branch == "" {
		resolved, err := subtree.CurrentBranch(ctx, o.git, o.cfg.RootDir)
		if err != nil {
			return Result{}, err
		}
		branch = resolved
	}

	gitDir, err := subtree.GitDir(ctx, o.git, o.cfg.RootDir)
	if err != nil {
		return Result{}, err
	}

	mappings, err := subtree.LoadMappings(gitDir)
	if err != nil {
		if !errors.Is(err, subtree.ErrConfigUnreadable) {
			return Result{}, err
		}
		if o.log != nil {
			o.log.Warn("treating unreadable repository config as empty", "git_dir", gitDir, "error", err)
		}
		mappings = nil
	}

	result := Result{Branch: branch}

	if err := o.pushMain(ctx, &result, branch); err != nil {
		return result, err
	}

	for _, m := range mappings {
		if err := o.pushTree(ctx, &result, o.cfg.RootDir, m, 1); err != nil {
			return result, err
		}
	}

	return result, nil
}

// pushMain pushes the resolved branch of the outermost repository to its
// default remote. The main repository is pushed whole, the force flag maps
// directly onto the push.
func (o *Orchestrator) pushMain(ctx context.Context, result *Result, branch string) error {
	argv := []string{"push"}
	if o.cfg.Force {
		argv = append(argv, "--force")
	}
	argv = append(argv, o.cfg.remoteName(), branch)

	step := Step{Kind: StepMain, URL: o.cfg.remoteName(), Branch: branch, Argv: argv}
	o.rep.Stepf(0, "pushing %s to %s", branch, o.cfg.remoteName())

	if o.cfg.DryRun {
		step.Status = StepStatusSimulated
		o.rep.Simulatedf(0, "git %s", strings.Join(argv, " "))
		result.Steps = append(result.Steps, step)
		return nil
	}

	if err := o.git.Run(ctx, o.cfg.RootDir, argv...); err != nil {
		step.Status = StepStatusFailed
		step.Reason = failureReason(err)
		result.Steps = append(result.Steps, step)
		o.rep.Failf(0, "push %s to %s failed", branch, o.cfg.remoteName())
		return fmt.Errorf("push main repository: %w", err)
	}

	step.Status = StepStatusPushed
	result.Steps = append(result.Steps, step)
	o.rep.OKf(0, "pushed %s to %s", branch, o.cfg.remoteName())
	return nil
}

// pushTree pushes one subtree and then recurses into whatever independent
// repositories its working copy embeds. parentDir is the checkout the git
// commands run in; the mapping's RelativePath is the prefix git sees from
// there.
func (o *Orchestrator) pushTree(ctx context.Context, result *Result, parentDir string, m subtree.Mapping, depth int) error {
	if err := o.pushSubtree(ctx, result, parentDir, m, depth); err != nil {
		return err
	}

	store, err := subtree.Discover(parentDir, m.RelativePath)
	if err != nil && o.log != nil {
		o.log.Warn("treating unreadable nested config as empty", "path", m.Path, "error", err)
	}
	if store.Kind != subtree.IndependentStore {
		if o.log != nil {
			o.log.Debug("no nested subtrees", "path", m.Path, "kind", store.Kind)
		}
		return nil
	}

	childDir := filepath.Join(parentDir, filepath.FromSlash(m.RelativePath))
	for _, child := range store.Mappings {
		// Discovery only sees the immediate parent, so the full ancestor
		// composition happens here where the walk knows the whole chain.
		child.Path = path.Join(m.Path, child.RelativePath)
		if err := o.pushTree(ctx, result, childDir, child, depth+1); err != nil {
			return err
		}
	}
	return nil
}

func (o *Orchestrator) pushSubtree(ctx context.Context, result *Result, parentDir string, m subtree.Mapping, depth int) error {
	o.rep.Stepf(depth, "pushing subtree %s to %s (branch %s)", m.Path, m.URL, m.Branch)

	step := Step{Kind: StepSubtree, Path: m.Path, URL: m.URL, Branch: m.Branch, Depth: depth}
	var err error
	if o.cfg.Force {
		err = o.forcePushSubtree(ctx, &step, parentDir, m, depth)
	} else {
		err = o.normalPushSubtree(ctx, &step, parentDir, m, depth)
	}
	result.Steps = append(result.Steps, step)

	if err != nil {
		o.rep.Failf(depth, "push subtree %s failed", m.Path)
		return fmt.Errorf("push subtree %s: %w", m.Path, err)
	}
	if step.Status == StepStatusPushed {
		o.rep.OKf(depth, "pushed subtree %s", m.Path)
	}
	return nil
}

// normalPushSubtree relies on git's own subtree push, whose internal split and
// merge logic determines what is transmitted.
func (o *Orchestrator) normalPushSubtree(ctx context.Context, step *Step, parentDir string, m subtree.Mapping, depth int) error {
	argv := []string{"subtree", "push", "--prefix=" + m.RelativePath, m.URL, m.Branch}
	step.Argv = argv

	if o.cfg.DryRun {
		step.Status = StepStatusSimulated
		o.rep.Simulatedf(depth, "git %s", strings.Join(argv, " "))
		return nil
	}

	if err := o.git.Run(ctx, parentDir, argv...); err != nil {
		step.Status = StepStatusFailed
		step.Reason = failureReason(err)
		return err
	}
	step.Status = StepStatusPushed
	return nil
}

// forcePushSubtree works around git having no force variant of subtree push:
// derive a detached commit holding only the prefix's history, then push that
// commit to the remote branch ref with the overwrite flag.
func (o *Orchestrator) forcePushSubtree(ctx context.Context, step *Step, parentDir string, m subtree.Mapping, depth int) error {
	splitArgv := []string{"subtree", "split", "--prefix=" + m.RelativePath}

	if o.cfg.DryRun {
		argv := []string{"push", "--force", m.URL, "<split>:refs/heads/" + m.Branch}
		step.Argv = argv
		step.Status = StepStatusSimulated
		o.rep.Simulatedf(depth, "git %s", strings.Join(splitArgv, " "))
		o.rep.Simulatedf(depth, "git %s", strings.Join(argv, " "))
		return nil
	}

	sha, err := o.git.Output(ctx, parentDir, splitArgv...)
	if err != nil {
		step.Argv = splitArgv
		step.Status = StepStatusFailed
		step.Reason = failureReason(err)
		return fmt.Errorf("split prefix %s: %w", m.RelativePath, err)
	}
	// An empty split id would turn the forced push into a remote branch
	// deletion, so it counts as a failed push.
	sha = strings.TrimSpace(sha)
	if sha == "" {
		step.Argv = splitArgv
		step.Status = StepStatusFailed
		step.Reason = "subtree split produced no commit id"
		return fmt.Errorf("split prefix %s produced no commit id", m.RelativePath)
	}

	argv := []string{"push", "--force", m.URL, sha + ":refs/heads/" + m.Branch}
	step.Argv = argv
	if err := o.git.Run(ctx, parentDir, argv...); err != nil {
		step.Status = StepStatusFailed
		step.Reason = failureReason(err)
		return err
	}
	step.Status = StepStatusPushed
	return nil
}

// failureReason extracts the captured tool output when available so the user
// sees what git itself reported.
func failureReason(err error) string {
	var gitErr *git.GitError
	if errors.As(err, &gitErr) {
		if out := strings.TrimSpace(gitErr.Output); out != "" {
			return out
		}
	}
	return err.Error()
}
