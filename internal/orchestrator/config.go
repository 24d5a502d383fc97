package orchestrator

// Context captures the immutable per-run controls the orchestrator needs. It
// is created once from external input and only ever read.
type Context struct {
	// Branch to push. When empty the currently checked-out branch is used.
	Branch string

	// Force overwrites remote history instead of requiring a fast-forward.
	Force bool

	// DryRun reports every command that would run without mutating any
	// remote state.
	DryRun bool

	// RootDir is the outermost repository's working directory.
	RootDir string

	// Remote receives the main repository push. Defaults to "origin".
	Remote string
}

func (c Context) remoteName() string {
	if c.Remote == "" {
		return "origin"
	}
	return c.Remote
}
