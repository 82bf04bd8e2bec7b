package cmdutil

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// ErrNoInput is returned when input ends before an answer was read.
var ErrNoInput = errors.New("no input received")

// Prompter reads answers from a command's input. Prompts go to stderr so
// stdout stays clean for piping.
type Prompter struct {
	in     io.Reader
	out    io.Writer
	reader *bufio.Reader
}

// NewPrompter returns a Prompter over cmd's input and error streams.
func NewPrompter(cmd *cobra.Command) *Prompter {
	in := cmd.InOrStdin()
	return &Prompter{
		in:     in,
		out:    cmd.ErrOrStderr(),
		reader: bufio.NewReader(in),
	}
}

// Interactive reports whether input comes from a terminal.
func (p *Prompter) Interactive() bool {
	f, ok := p.in.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Line prints label and reads one trimmed line.
func (p *Prompter) Line(label string) (string, error) {
	if p.Interactive() {
		fmt.Fprint(p.out, label)
	}

	line, err := p.reader.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("reading input: %w", err)
	}
	if errors.Is(err, io.EOF) && line == "" {
		return "", ErrNoInput
	}

	return strings.TrimSpace(line), nil
}

// Password reads a secret. On a terminal the input is hidden; piped input is
// read a line at a time like Line.
func (p *Prompter) Password(label string) (string, error) {
	if !p.Interactive() {
		return p.Line(label)
	}

	fmt.Fprint(p.out, label)
	f, _ := p.in.(*os.File)
	secret, err := term.ReadPassword(int(f.Fd()))
	fmt.Fprintln(p.out) // newline after hidden input
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}

	return string(secret), nil
}
