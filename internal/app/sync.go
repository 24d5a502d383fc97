package app

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/stree-tools/git-rp/internal/git"
	"github.com/stree-tools/git-rp/internal/report"
	"github.com/stree-tools/git-rp/internal/syncbranch"
)

// NewSyncCommand builds the git-sync command-line surface.
func NewSyncCommand() *cobra.Command {
	var (
		cfg    Config
		remote string
	)

	cmd := &cobra.Command{
		Use:   "git-sync [remote]",
		Short: "Sync a single branch with one remote",
		Long: `git-sync fast-forwards the current branch from a remote and pushes it back.
It touches exactly one branch on one remote and never looks at subtrees.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Normalize(); err != nil {
				return err
			}
			if len(args) == 1 {
				remote = args[0]
			}

			logger, err := NewLogger(cfg.LogLevel, cfg.LogFormat)
			if err != nil {
				return fmt.Errorf("create logger: %w", err)
			}

			workDir := cfg.WorkDir
			if workDir == "" {
				wd, err := os.Getwd()
				if err != nil {
					return fmt.Errorf("resolve working directory: %w", err)
				}
				workDir = wd
			}

			return syncbranch.Sync(cmd.Context(), git.NewShellRunner(), report.NewConsole(os.Stdout), logger, syncbranch.Options{
				Remote:  remote,
				Branch:  cfg.Branch,
				DryRun:  cfg.DryRun,
				WorkDir: workDir,
			})
		},
	}

	cmd.Flags().StringVarP(&cfg.Branch, "branch", "b", "", "branch to sync (defaults to the checked-out branch)")
	cmd.Flags().BoolVarP(&cfg.DryRun, "dry-run", "n", false, "report the commands that would run without syncing")
	cmd.Flags().StringVar(&cfg.LogLevel, "log-level", defaultLogLevel, "log level (debug, info, warn, error)")
	cmd.Flags().StringVar(&cfg.LogFormat, "log-format", defaultLogFormat, "log format (text, json)")

	return cmd
}
