package git

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// ShellRunner shells out to the system git binary.
type ShellRunner struct {
	// Git is the git binary to execute. Defaults to "git" when empty.
	Git string
}

// NewShellRunner returns a Runner backed by system git commands.
func NewShellRunner() *ShellRunner {
	return &ShellRunner{}
}

func (r *ShellRunner) gitBinary() string {
	if r.Git == "" {
		return "git"
	}
	return r.Git
}

func (r *ShellRunner) Run(ctx context.Context, dir string, args ...string) error {
	cmd := exec.CommandContext(ctx, r.gitBinary(), args...)
	cmd.Dir = dir

	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	if err := cmd.Start(); err != nil {
		return &LaunchError{Binary: r.gitBinary(), Err: err}
	}
	if err := cmd.Wait(); err != nil {
		return &GitError{Args: args, Dir: dir, Output: output.String(), Err: err}
	}
	return nil
}

func (r *ShellRunner) Output(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, r.gitBinary(), args...)
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return "", &LaunchError{Binary: r.gitBinary(), Err: err}
	}
	if err := cmd.Wait(); err != nil {
		return "", &GitError{Args: args, Dir: dir, Output: stderr.String(), Err: err}
	}
	return strings.TrimSpace(stdout.String()), nil
}

// GitError wraps failures where the git binary ran but exited non-zero.
type GitError struct {
	Args   []string
	Dir    string
	Output string
	Err    error
}

func (e *GitError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("git %s: %v\n%s", strings.Join(e.Args, " "), e.Err, strings.TrimSpace(e.Output))
}

func (e *GitError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// LaunchError wraps failures where the git binary could not be started at all,
// binary missing or not executable. Distinct from GitError so callers can tell
// a broken installation apart from a rejected push.
type LaunchError struct {
	Binary string
	Err    error
}

func (e *LaunchError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("launch %s: %v", e.Binary, e.Err)
}

func (e *LaunchError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
