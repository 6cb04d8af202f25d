// Package status prints install/uninstall progress and summarizes
// installation records for display.
package status

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

// Action is a mutating step announced before it runs.
type Action string

const (
	ActionCreate  Action = "create"
	ActionBackup  Action = "backup"
	ActionInstall Action = "install"
	ActionWrite   Action = "write"
	ActionRemove  Action = "remove"
	ActionRestore Action = "restore"
	ActionSkip    Action = "skip"
)

var actionLabels = map[Action]string{
	ActionCreate:  "Creating",
	ActionBackup:  "Backing up",
	ActionInstall: "Installing",
	ActionWrite:   "Writing",
	ActionRemove:  "Removing",
	ActionRestore: "Restoring",
	ActionSkip:    "Skipping",
}

var actionColors = map[Action]lipgloss.Color{
	ActionCreate:  lipgloss.Color("39"),
	ActionBackup:  lipgloss.Color("214"),
	ActionInstall: lipgloss.Color("42"),
	ActionWrite:   lipgloss.Color("42"),
	ActionRemove:  lipgloss.Color("196"),
	ActionRestore: lipgloss.Color("39"),
	ActionSkip:    lipgloss.Color("241"),
}

// FormatOptions controls output formatting.
type FormatOptions struct {
	NoColor bool
	DryRun  bool
}

// Reporter writes one line per step to the operator.
type Reporter struct {
	w        io.Writer
	opts     FormatOptions
	renderer *lipgloss.Renderer
}

// NewReporter creates a reporter writing to w. Color is used only when w is
// a terminal that supports it.
func NewReporter(w io.Writer, opts FormatOptions) *Reporter {
	if w == nil {
		w = io.Discard
	}
	return &Reporter{w: w, opts: opts, renderer: lipgloss.NewRenderer(w)}
}

// Step announces an action on a target-relative path.
func (r *Reporter) Step(action Action, path string) {
	label, ok := actionLabels[action]
	if !ok {
		label = string(action)
	}
	if r.opts.DryRun {
		fmt.Fprintf(r.w, "[dry-run] %s %s\n", label, path)
		return
	}
	fmt.Fprintf(r.w, "%s %s\n", r.style(actionColors[action], fmt.Sprintf("%-10s", label)), path)
}

// Done prints the closing success line.
func (r *Reporter) Done(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if r.opts.DryRun {
		fmt.Fprintf(r.w, "[dry-run] %s\n", msg)
		return
	}
	fmt.Fprintf(r.w, "%s %s\n", r.style(lipgloss.Color("42"), "✓"), msg)
}

// Note prints an informational line that is not a filesystem step.
func (r *Reporter) Note(format string, args ...any) {
	fmt.Fprintf(r.w, "%s\n", r.style(lipgloss.Color("241"), fmt.Sprintf(format, args...)))
}

func (r *Reporter) style(color lipgloss.Color, s string) string {
	if r.opts.NoColor {
		return s
	}
	return r.renderer.NewStyle().Foreground(color).Render(s)
}
