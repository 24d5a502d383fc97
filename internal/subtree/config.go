package subtree

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	format "github.com/go-git/go-git/v5/plumbing/format/config"

	"github.com/stree-tools/git-rp/internal/git"
)

// sectionName is the gitconfig section marker for subtree declarations:
// [subtree "<prefix>"] with url and optional branch keys.
const sectionName = "subtree"

var (
	// ErrNotARepository reports that no git metadata store could be resolved
	// at the expected root.
	ErrNotARepository = errors.New("not a git repository")

	// ErrConfigUnreadable reports a metadata store whose config file exists
	// but cannot be decoded. Callers downgrade this to "no mappings".
	ErrConfigUnreadable = errors.New("repository config is unreadable")
)

// LoadMappings reads the config file inside the given metadata directory and
// returns the declared subtree mappings in declaration order. Sections missing
// a url are skipped, a mapping cannot exist without a remote. A missing config
// file yields no mappings; an undecodable one returns ErrConfigUnreadable.
func LoadMappings(gitDir string) ([]Mapping, error) {
	f, err := os.Open(filepath.Join(gitDir, "config"))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigUnreadable, err)
	}
	defer f.Close()

	cfg := format.New()
	if err := format.NewDecoder(f).Decode(cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigUnreadable, err)
	}

	var mappings []Mapping
	for _, sub := range cfg.Section(sectionName).Subsections {
		url := strings.TrimSpace(sub.Option("url"))
		if url == "" {
			continue
		}
		branch := strings.TrimSpace(sub.Option("branch"))
		if branch == "" {
			branch = DefaultBranch
		}
		mappings = append(mappings, Mapping{
			Path:         sub.Name,
			URL:          url,
			Branch:       branch,
			RelativePath: sub.Name,
		})
	}
	return mappings, nil
}

// GitDir resolves the metadata directory of the working copy at workDir.
// Launch failures propagate as-is; any other failure means workDir is not
// inside a git repository.
func GitDir(ctx context.Context, runner git.Runner, workDir string) (string, error) {
	out, err := runner.Output(ctx, workDir, "rev-parse", "--git-dir")
	if err != nil {
		var launchErr *git.LaunchError
		if errors.As(err, &launchErr) {
			return "", err
		}
		return "", fmt.Errorf("%w: %s", ErrNotARepository, workDir)
	}
	if !filepath.IsAbs(out) {
		out = filepath.Join(workDir, out)
	}
	return out, nil
}

// CurrentBranch resolves the branch currently checked out at workDir.
func CurrentBranch(ctx context.Context, runner git.Runner, workDir string) (string, error) {
	out, err := runner.Output(ctx, workDir, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", fmt.Errorf("resolve current branch: %w", err)
	}
	return out, nil
}
