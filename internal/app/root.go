package app

import (
	"github.com/spf13/cobra"
)

// NewRootCommand builds the git-rp command-line surface.
func NewRootCommand() *cobra.Command {
	var cfg Config

	cmd := &cobra.Command{
		Use:   "git-rp",
		Short: "Push the repository and every configured subtree to their remotes",
		Long: `git-rp pushes the current repository to its default remote and then pushes
every subtree declared in the repository configuration to its own remote,
recursing into subtrees that are themselves repositories with subtrees.

Subtrees are declared in .git/config:

  [subtree "lib/shared"]
      url = git@example.com:org/shared.git
      branch = main

The walk is depth-first and fail-fast: the first failing push stops the run,
siblings and deeper subtrees are not attempted, and completed pushes are not
rolled back.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Normalize(); err != nil {
				return err
			}
			runner, err := NewRunner(cfg)
			if err != nil {
				return err
			}
			return runner.Run(cmd.Context())
		},
	}

	cmd.Flags().StringVarP(&cfg.Branch, "branch", "b", "", "branch to push (defaults to the checked-out branch)")
	cmd.Flags().BoolVarP(&cfg.Force, "force", "f", false, "overwrite remote history instead of requiring a fast-forward")
	cmd.Flags().BoolVarP(&cfg.DryRun, "dry-run", "n", false, "report the commands that would run without pushing anything")
	cmd.Flags().StringVar(&cfg.Remote, "remote", defaultRemote, "remote receiving the main repository push")
	cmd.Flags().StringVar(&cfg.LogLevel, "log-level", defaultLogLevel, "log level (debug, info, warn, error)")
	cmd.Flags().StringVar(&cfg.LogFormat, "log-format", defaultLogFormat, "log format (text, json)")

	return cmd
}
