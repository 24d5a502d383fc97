// Package report renders per-step progress lines for the push walk, indented
// by nesting depth.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// Reporter receives status lines from the orchestrator as the walk progresses.
type Reporter interface {
	// Stepf announces a step that is about to run.
	Stepf(depth int, format string, args ...any)

	// OKf reports a completed step.
	OKf(depth int, format string, args ...any)

	// Failf reports a failed step.
	Failf(depth int, format string, args ...any)

	// Simulatedf reports the command a dry run would have executed.
	Simulatedf(depth int, format string, args ...any)
}

var (
	okMark   = color.New(color.FgGreen).Sprint("✓")
	failMark = color.New(color.FgRed).Sprint("✗")
	dryMark  = color.New(color.FgYellow).Sprint("dry-run:")
)

// Console writes indented status lines to an io.Writer. Color output follows
// the color package's TTY detection.
type Console struct {
	Out io.Writer
}

// NewConsole returns a Reporter writing to out.
func NewConsole(out io.Writer) *Console {
	return &Console{Out: out}
}

func (c *Console) Stepf(depth int, format string, args ...any) {
	c.line(depth, fmt.Sprintf(format, args...))
}

func (c *Console) OKf(depth int, format string, args ...any) {
	c.line(depth, okMark+" "+fmt.Sprintf(format, args...))
}

func (c *Console) Failf(depth int, format string, args ...any) {
	c.line(depth, failMark+" "+fmt.Sprintf(format, args...))
}

func (c *Console) Simulatedf(depth int, format string, args ...any) {
	c.line(depth, dryMark+" "+fmt.Sprintf(format, args...))
}

func (c *Console) line(depth int, msg string) {
	fmt.Fprintf(c.Out, "%s%s\n", strings.Repeat("  ", depth), msg)
}

// Discard is a Reporter that drops every line, useful for tests.
var Discard Reporter = discard{}

type discard struct{}

func (discard) Stepf(int, string, ...any)      {}
func (discard) OKf(int, string, ...any)        {}
func (discard) Failf(int, string, ...any)      {}
func (discard) Simulatedf(int, string, ...any) {}
