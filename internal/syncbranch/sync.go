// Package syncbranch keeps a single branch level with one remote: fast-forward
// the local branch from the remote, then push it back. There is no subtree
// handling and no recursion here.
package syncbranch

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/stree-tools/git-rp/internal/git"
	"github.com/stree-tools/git-rp/internal/report"
	"github.com/stree-tools/git-rp/internal/subtree"
)

// Options controls a single sync run.
type Options struct {
	// Remote to sync with. Defaults to "origin".
	Remote string

	// Branch to sync. When empty the currently checked-out branch is used.
	Branch string

	// DryRun reports the commands without executing them.
	DryRun bool

	// WorkDir is the repository's working directory.
	WorkDir string
}

func (o Options) remoteName() string {
	if o.Remote == "" {
		return "origin"
	}
	return o.Remote
}

// Sync pulls the branch fast-forward-only from the remote and pushes it back.
// Either step failing aborts the run; a pull that cannot fast-forward is a
// failure, not a merge opportunity.
func Sync(ctx context.Context, runner git.Runner, rep report.Reporter, logger *slog.Logger, opts Options) error {
	if rep == nil {
		rep = report.Discard
	}

	branch := strings.TrimSpace(opts.Branch)
	if branch == "" {
		resolved, err := subtree.CurrentBranch(ctx, runner, opts.WorkDir)
		if err != nil {
			return err
		}
		branch = resolved
	}

	remote := opts.remoteName()
	pull := []string{"pull", "--ff-only", remote, branch}
	push := []string{"push", remote, branch}

	rep.Stepf(0, "syncing %s with %s", branch, remote)

	if opts.DryRun {
		rep.Simulatedf(0, "git %s", strings.Join(pull, " "))
		rep.Simulatedf(0, "git %s", strings.Join(push, " "))
		return nil
	}

	if err := runner.Run(ctx, opts.WorkDir, pull...); err != nil {
		rep.Failf(0, "pull %s from %s failed", branch, remote)
		return fmt.Errorf("pull %s: %w", branch, err)
	}
	if err := runner.Run(ctx, opts.WorkDir, push...); err != nil {
		rep.Failf(0, "push %s to %s failed", branch, remote)
		return fmt.Errorf("push %s: %w", branch, err)
	}

	rep.OKf(0, "synced %s with %s", branch, remote)
	if logger != nil {
		logger.Info("sync complete", "branch", branch, "remote", remote)
	}
	return nil
}
