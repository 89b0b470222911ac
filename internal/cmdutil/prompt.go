package cmdutil

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

// ErrNotInteractive is returned when a prompt is needed but stdin is not a
// terminal.
var ErrNotInteractive = errors.New("input required but stdin is not a terminal")

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Prompter asks questions on a line based terminal.
type Prompter struct {
	in          *bufio.Reader
	out         io.Writer
	interactive bool
}

func NewPrompter(in io.Reader, out io.Writer, interactive bool) *Prompter {
	return &Prompter{in: bufio.NewReader(in), out: out, interactive: interactive}
}

// StreamPrompter prompts on the given streams. Input that is a file but not a
// terminal, such as a pipe, is never prompted on.
func StreamPrompter(in io.Reader, out io.Writer) *Prompter {
	interactive := true
	if f, ok := in.(*os.File); ok {
		interactive = IsTerminal(f)
	}
	return NewPrompter(in, out, interactive)
}

// Ask returns the answer to question, or def when the answer is empty.
func (p *Prompter) Ask(question, def string) (string, error) {
	if !p.interactive {
		if def != "" {
			return def, nil
		}
		return "", fmt.Errorf("%w: %s", ErrNotInteractive, question)
	}
	if def != "" {
		fmt.Fprintf(p.out, "%s [%s]: ", question, def)
	} else {
		fmt.Fprintf(p.out, "%s: ", question)
	}
	line, err := p.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("reading answer: %w", err)
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return def, nil
	}
	return line, nil
}

// Confirm asks a yes/no question. Anything but y or yes is a no.
func (p *Prompter) Confirm(question string) (bool, error) {
	if !p.interactive {
		return false, fmt.Errorf("%w: %s", ErrNotInteractive, question)
	}
	answer, err := p.Ask(question+" (y/N)", "")
	if err != nil {
		return false, err
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}
