// Package cli holds the interactive prompts used by sage commands.
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/mattn/go-isatty"

	"github.com/sage-kit/sage/internal/profile"
)

// ErrCancelled is returned when the user backs out of a prompt.
var ErrCancelled = errors.New("selection cancelled")

// Confirm asks a yes/no question with the given default.
// Returns true for yes, false for no.
func Confirm(in io.Reader, out io.Writer, prompt string, defaultYes bool) (bool, error) {
	suffix := "[y/N]"
	if defaultYes {
		suffix = "[Y/n]"
	}

	fmt.Fprintf(out, "%s %s ", prompt, suffix)

	response, err := readLine(in)
	if err != nil {
		return false, fmt.Errorf("reading response: %w", err)
	}

	response = strings.TrimSpace(strings.ToLower(response))

	if response == "" {
		return defaultYes, nil
	}

	return response == "y" || response == "yes", nil
}

// SelectOption represents an option in a selection list.
type SelectOption struct {
	Value string // The value to return if selected
	Label string // The display label
}

// Select displays a numbered list and asks the user to select an option.
// Returns the selected option's Value, or ErrCancelled.
func Select(in io.Reader, out io.Writer, prompt string, options []SelectOption) (string, error) {
	if len(options) == 0 {
		return "", fmt.Errorf("no options provided")
	}

	fmt.Fprintln(out, prompt)
	fmt.Fprintln(out)

	for i, opt := range options {
		fmt.Fprintf(out, "  %d) %s\n", i+1, opt.Label)
	}

	fmt.Fprintln(out)
	fmt.Fprint(out, "Enter number (or 'q' to cancel): ")

	response, err := readLine(in)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	response = strings.TrimSpace(strings.ToLower(response))

	if response == "" || response == "q" || response == "quit" || response == "cancel" {
		return "", ErrCancelled
	}

	num, err := strconv.Atoi(response)
	if err != nil || num < 1 || num > len(options) {
		return "", fmt.Errorf("invalid selection: %s", response)
	}

	return options[num-1].Value, nil
}

// ProfileOptions lists the known profiles as select options.
func ProfileOptions() []SelectOption {
	var options []SelectOption
	for _, name := range profile.ListKnown() {
		p := profile.Known[name]
		options = append(options, SelectOption{
			Value: name,
			Label: fmt.Sprintf("%s (~/%s)", p.DisplayName, p.DirName),
		})
	}
	return options
}

// SelectProfile asks which profile to install into. On a terminal it shows a
// single-choice list; otherwise it falls back to a numbered prompt on in/out.
func SelectProfile(in io.Reader, out io.Writer) (string, error) {
	const prompt = "Which assistant should sage install into?"
	options := ProfileOptions()

	if !IsTerminal(in) {
		return Select(in, out, prompt, options)
	}

	var choice string
	huhOptions := make([]huh.Option[string], 0, len(options))
	for _, opt := range options {
		huhOptions = append(huhOptions, huh.NewOption(opt.Label, opt.Value))
	}
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title(prompt).
				Options(huhOptions...).
				Value(&choice),
		),
	).WithInput(in).WithOutput(out)

	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return "", ErrCancelled
		}
		return "", err
	}
	return choice, nil
}

// IsTerminal reports whether r is an interactive terminal.
func IsTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// readLine reads one line a byte at a time so that nothing past the newline
// is consumed; a later prompt on the same reader sees the next line.
// A final line without a newline is accepted.
func readLine(in io.Reader) (string, error) {
	var line []byte
	buf := make([]byte, 1)
	for {
		n, err := in.Read(buf)
		if n == 1 {
			line = append(line, buf[0])
			if buf[0] == '\n' {
				return string(line), nil
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) && len(line) > 0 {
				return string(line), nil
			}
			return "", err
		}
	}
}
