package orchestrator_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/stree-tools/git-rp/internal/git"
	"github.com/stree-tools/git-rp/internal/orchestrator"
	"github.com/stree-tools/git-rp/internal/subtree"
)

type call struct {
	dir  string
	args string
}

// fakeRunner answers read-only resolution queries from canned values and
// records every mutating invocation.
type fakeRunner struct {
	branch   string
	gitDir   string
	splitSHA string
	splitErr error
	runErr   func(dir string, args []string) error

	runs    []call
	outputs []call
}

func (f *fakeRunner) Run(_ context.Context, dir string, args ...string) error {
	c := call{dir: dir, args: strings.Join(args, " ")}
	f.runs = append(f.runs, c)
	if f.runErr != nil {
		return f.runErr(dir, args)
	}
	return nil
}

func (f *fakeRunner) Output(_ context.Context, dir string, args ...string) (string, error) {
	joined := strings.Join(args, " ")
	f.outputs = append(f.outputs, call{dir: dir, args: joined})

	switch {
	case joined == "rev-parse --abbrev-ref HEAD":
		if f.branch == "" {
			return "", &git.GitError{Args: args, Output: "fatal: not a git repository", Err: errors.New("exit status 128")}
		}
		return f.branch, nil
	case joined == "rev-parse --git-dir":
		if f.gitDir == "" {
			return "", &git.GitError{Args: args, Output: "fatal: not a git repository", Err: errors.New("exit status 128")}
		}
		return f.gitDir, nil
	case strings.HasPrefix(joined, "subtree split"):
		return f.splitSHA, f.splitErr
	}
	return "", fmt.Errorf("unexpected output call: git %s", joined)
}

// initStore creates a bare-bones metadata directory under dir and returns its
// path.
func initStore(dir string) string {
	gitDir := filepath.Join(dir, ".git")
	Expect(os.MkdirAll(gitDir, 0o755)).To(Succeed())
	return gitDir
}

func declareSubtree(gitDir, prefix, url, branch string) {
	section := fmt.Sprintf("\n[subtree %q]\n\turl = %s\n", prefix, url)
	if branch != "" {
		section += fmt.Sprintf("\tbranch = %s\n", branch)
	}
	f, err := os.OpenFile(filepath.Join(gitDir, "config"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	Expect(err).NotTo(HaveOccurred())
	defer f.Close()
	_, err = f.WriteString(section)
	Expect(err).NotTo(HaveOccurred())
}

var _ = Describe("Orchestrator", func() {
	var (
		ctx    context.Context
		root   string
		runner *fakeRunner
	)

	newOrchestrator := func(cfg orchestrator.Context) *orchestrator.Orchestrator {
		cfg.RootDir = root
		return orchestrator.New(cfg, runner, nil, nil)
	}

	BeforeEach(func() {
		ctx = context.Background()
		root = GinkgoT().TempDir()
		runner = &fakeRunner{branch: "main", gitDir: initStore(root)}
	})

	It("performs exactly one push when no subtrees are declared", func() {
		result, err := newOrchestrator(orchestrator.Context{}).Run(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Branch).To(Equal("main"))
		Expect(result.Steps).To(HaveLen(1))
		Expect(result.Steps[0].Kind).To(Equal(orchestrator.StepMain))
		Expect(result.Steps[0].Status).To(Equal(orchestrator.StepStatusPushed))
		Expect(runner.runs).To(HaveLen(1))
		Expect(runner.runs[0].args).To(Equal("push origin main"))
		Expect(runner.runs[0].dir).To(Equal(root))
	})

	It("fails the run when the only push fails", func() {
		runner.runErr = func(dir string, args []string) error {
			return &git.GitError{Args: args, Output: "remote rejected", Err: errors.New("exit status 1")}
		}

		result, err := newOrchestrator(orchestrator.Context{}).Run(ctx)
		Expect(err).To(HaveOccurred())
		Expect(result.Steps).To(HaveLen(1))
		Expect(result.Steps[0].Status).To(Equal(orchestrator.StepStatusFailed))
		Expect(result.Steps[0].Reason).To(Equal("remote rejected"))
	})

	It("honors the branch override without resolving HEAD", func() {
		_, err := newOrchestrator(orchestrator.Context{Branch: "feature"}).Run(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(runner.runs[0].args).To(Equal("push origin feature"))
		for _, out := range runner.outputs {
			Expect(out.args).NotTo(ContainSubstring("abbrev-ref"))
		}
	})

	It("pushes subtrees after main in declaration order", func() {
		gitDir := runner.gitDir
		declareSubtree(gitDir, "lib/a", "url-a", "")
		declareSubtree(gitDir, "lib/b", "url-b", "")
		declareSubtree(gitDir, "lib/c", "url-c", "")

		result, err := newOrchestrator(orchestrator.Context{}).Run(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Steps).To(HaveLen(4))
		Expect(runner.runs).To(HaveLen(4))
		Expect(runner.runs[0].args).To(Equal("push origin main"))
		Expect(runner.runs[1].args).To(Equal("subtree push --prefix=lib/a url-a main"))
		Expect(runner.runs[2].args).To(Equal("subtree push --prefix=lib/b url-b main"))
		Expect(runner.runs[3].args).To(Equal("subtree push --prefix=lib/c url-c main"))
	})

	It("stops at the first failing subtree and keeps earlier steps recorded", func() {
		gitDir := runner.gitDir
		declareSubtree(gitDir, "a", "url-a", "")
		declareSubtree(gitDir, "b", "url-b", "")
		declareSubtree(gitDir, "c", "url-c", "")
		runner.runErr = func(dir string, args []string) error {
			if strings.Contains(strings.Join(args, " "), "url-b") {
				return &git.GitError{Args: args, Output: "push rejected", Err: errors.New("exit status 1")}
			}
			return nil
		}

		result, err := newOrchestrator(orchestrator.Context{}).Run(ctx)
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("push subtree b"))

		Expect(result.Steps).To(HaveLen(3))
		Expect(result.Steps[1].Path).To(Equal("a"))
		Expect(result.Steps[1].Status).To(Equal(orchestrator.StepStatusPushed))
		Expect(result.Steps[2].Path).To(Equal("b"))
		Expect(result.Steps[2].Status).To(Equal(orchestrator.StepStatusFailed))
		for _, run := range runner.runs {
			Expect(run.args).NotTo(ContainSubstring("url-c"))
		}
	})

	It("never attempts a subtree when the main push fails", func() {
		declareSubtree(runner.gitDir, "vendor/y", "u2", "rel")
		runner.runErr = func(dir string, args []string) error {
			if args[0] == "push" {
				return &git.GitError{Args: args, Output: "no upstream", Err: errors.New("exit status 1")}
			}
			return nil
		}

		result, err := newOrchestrator(orchestrator.Context{}).Run(ctx)
		Expect(err).To(HaveOccurred())
		Expect(result.Steps).To(HaveLen(1))
		Expect(runner.runs).To(HaveLen(1))
	})

	It("pushes a subtree to its configured branch", func() {
		declareSubtree(runner.gitDir, "vendor/y", "u2", "rel")

		result, err := newOrchestrator(orchestrator.Context{}).Run(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Steps).To(HaveLen(2))
		Expect(runner.runs[1].args).To(Equal("subtree push --prefix=vendor/y u2 rel"))
	})

	Describe("nested subtrees", func() {
		BeforeEach(func() {
			declareSubtree(runner.gitDir, "lib", "url-lib", "")
			nestedGitDir := initStore(filepath.Join(root, "lib"))
			declareSubtree(nestedGitDir, "nested", "url-nested", "dev")
		})

		It("recurses depth-first with the parent checkout as working directory", func() {
			result, err := newOrchestrator(orchestrator.Context{}).Run(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Steps).To(HaveLen(3))

			Expect(runner.runs[1].args).To(Equal("subtree push --prefix=lib url-lib main"))
			Expect(runner.runs[1].dir).To(Equal(root))
			Expect(runner.runs[2].args).To(Equal("subtree push --prefix=nested url-nested dev"))
			Expect(runner.runs[2].dir).To(Equal(filepath.Join(root, "lib")))

			Expect(result.Steps[2].Path).To(Equal("lib/nested"))
			Expect(result.Steps[2].Depth).To(Equal(2))
		})

		It("pushes a parent before descending into its children", func() {
			_, err := newOrchestrator(orchestrator.Context{}).Run(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(runner.runs[1].args).To(ContainSubstring("--prefix=lib "))
			Expect(runner.runs[2].args).To(ContainSubstring("--prefix=nested"))
		})

		It("composes ancestor paths through three levels of nesting", func() {
			deepGitDir := initStore(filepath.Join(root, "lib", "nested"))
			declareSubtree(deepGitDir, "deep", "url-deep", "")

			result, err := newOrchestrator(orchestrator.Context{}).Run(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Steps).To(HaveLen(4))

			Expect(runner.runs[1].args).To(Equal("subtree push --prefix=lib url-lib main"))
			Expect(runner.runs[1].dir).To(Equal(root))
			Expect(runner.runs[2].args).To(Equal("subtree push --prefix=nested url-nested dev"))
			Expect(runner.runs[2].dir).To(Equal(filepath.Join(root, "lib")))
			Expect(runner.runs[3].args).To(Equal("subtree push --prefix=deep url-deep main"))
			Expect(runner.runs[3].dir).To(Equal(filepath.Join(root, "lib", "nested")))

			Expect(result.Steps[2].Path).To(Equal("lib/nested"))
			Expect(result.Steps[3].Path).To(Equal("lib/nested/deep"))
			Expect(result.Steps[3].Depth).To(Equal(3))
		})
	})

	It("treats a gitdir link as zero children rather than an error", func() {
		declareSubtree(runner.gitDir, "embedded", "url-e", "")
		embedded := filepath.Join(root, "embedded")
		Expect(os.MkdirAll(embedded, 0o755)).To(Succeed())
		Expect(os.WriteFile(filepath.Join(embedded, ".git"), []byte("gitdir: ../.git/modules/embedded\n"), 0o644)).To(Succeed())

		result, err := newOrchestrator(orchestrator.Context{}).Run(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Steps).To(HaveLen(2))
	})

	Describe("dry-run mode", func() {
		BeforeEach(func() {
			declareSubtree(runner.gitDir, "lib", "url-lib", "")
			nestedGitDir := initStore(filepath.Join(root, "lib"))
			declareSubtree(nestedGitDir, "nested", "url-nested", "")
		})

		It("simulates every push including nested discoveries and mutates nothing", func() {
			// Any real push would fail; dry-run must still succeed.
			runner.runErr = func(dir string, args []string) error {
				return &git.GitError{Args: args, Output: "should never run", Err: errors.New("exit status 1")}
			}

			result, err := newOrchestrator(orchestrator.Context{DryRun: true}).Run(ctx)
			Expect(err).NotTo(HaveOccurred())

			Expect(result.Steps).To(HaveLen(3))
			for _, step := range result.Steps {
				Expect(step.Status).To(Equal(orchestrator.StepStatusSimulated))
			}
			Expect(runner.runs).To(BeEmpty())
		})

		It("simulates the split and forced push without executing either", func() {
			result, err := newOrchestrator(orchestrator.Context{DryRun: true, Force: true}).Run(ctx)
			Expect(err).NotTo(HaveOccurred())

			Expect(runner.runs).To(BeEmpty())
			for _, out := range runner.outputs {
				Expect(out.args).NotTo(ContainSubstring("split"))
			}
			Expect(result.Steps[1].Argv).To(Equal([]string{"push", "--force", "url-lib", "<split>:refs/heads/main"}))
		})
	})

	Describe("force mode", func() {
		BeforeEach(func() {
			declareSubtree(runner.gitDir, "lib", "url-lib", "")
		})

		It("forces the main push directly", func() {
			runner.splitSHA = "abc123"
			_, err := newOrchestrator(orchestrator.Context{Force: true}).Run(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(runner.runs[0].args).To(Equal("push --force origin main"))
		})

		It("splits the subtree and force-pushes the derived commit", func() {
			runner.splitSHA = "abc123"
			result, err := newOrchestrator(orchestrator.Context{Force: true}).Run(ctx)
			Expect(err).NotTo(HaveOccurred())

			Expect(runner.outputs).To(ContainElement(call{dir: root, args: "subtree split --prefix=lib"}))
			Expect(runner.runs[1].args).To(Equal("push --force url-lib abc123:refs/heads/main"))
			Expect(result.Steps[1].Status).To(Equal(orchestrator.StepStatusPushed))
		})

		It("never pushes when the split fails", func() {
			runner.splitErr = &git.GitError{Args: []string{"subtree", "split"}, Output: "split exploded", Err: errors.New("exit status 1")}

			result, err := newOrchestrator(orchestrator.Context{Force: true}).Run(ctx)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("split prefix lib"))

			Expect(runner.runs).To(HaveLen(1)) // only the main push
			Expect(result.Steps[1].Status).To(Equal(orchestrator.StepStatusFailed))
			Expect(result.Steps[1].Reason).To(Equal("split exploded"))
		})

		It("treats an empty split commit id as a failed push", func() {
			runner.splitSHA = "   \n"

			result, err := newOrchestrator(orchestrator.Context{Force: true}).Run(ctx)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("produced no commit id"))
			Expect(runner.runs).To(HaveLen(1))
			Expect(result.Steps[1].Status).To(Equal(orchestrator.StepStatusFailed))
		})
	})

	It("treats an unreadable repository config as having no mappings", func() {
		Expect(os.WriteFile(filepath.Join(runner.gitDir, "config"), []byte("[subtree \"lib\"\nurl = broken"), 0o644)).To(Succeed())

		result, err := newOrchestrator(orchestrator.Context{}).Run(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Steps).To(HaveLen(1))
	})

	It("aborts before any push when the root is not a repository", func() {
		cfg := orchestrator.Context{RootDir: root}
		bogus := &fakeRunner{branch: "main"}
		orch := orchestrator.New(cfg, bogus, nil, nil)

		_, err := orch.Run(ctx)
		Expect(err).To(MatchError(subtree.ErrNotARepository))
		Expect(bogus.runs).To(BeEmpty())
	})
})
