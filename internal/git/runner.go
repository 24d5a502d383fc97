package git

import "context"

// Runner executes git commands inside a given working directory. Implementations
// spawn exactly one child process per call: there are no retries and no imposed
// timeouts, the underlying tool's own network behavior governs duration.
type Runner interface {
	// Run executes git with the given arguments and discards its output unless
	// the command fails, in which case the combined output travels with the error.
	Run(ctx context.Context, dir string, args ...string) error

	// Output executes git and returns its trimmed standard output. Standard
	// error is kept separate so consumed values (commit ids) stay clean.
	Output(ctx context.Context, dir string, args ...string) (string, error)
}
