// Package prompt asks the operator yes/no questions on the terminal.
package prompt

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Confirmer reads a y/N answer from In after writing the question to Out.
type Confirmer struct {
	In  io.Reader
	Out io.Writer
	// Interactive reports whether In is attached to a terminal. When it
	// returns false Confirm declines without reading.
	Interactive func() bool
}

// NewTerminal returns a Confirmer bound to stdin/stderr.
func NewTerminal() *Confirmer {
	return &Confirmer{
		In:          os.Stdin,
		Out:         os.Stderr,
		Interactive: StdinIsTerminal,
	}
}

// StdinIsTerminal reports whether stdin is a TTY.
func StdinIsTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// Confirm asks question and returns true only for an explicit yes.
// Empty input, EOF and a non-interactive stdin all count as no.
func (c *Confirmer) Confirm(question string) (bool, error) {
	if c.Interactive != nil && !c.Interactive() {
		_, _ = fmt.Fprintf(c.Out, "%s [y/N]: not a terminal, assuming no\n", question)
		return false, nil
	}

	_, _ = fmt.Fprintf(c.Out, "%s [y/N]: ", question)
	line, err := bufio.NewReader(c.In).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, fmt.Errorf("read confirmation: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}
