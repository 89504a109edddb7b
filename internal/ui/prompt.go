package ui

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Prompter asks the user for values on an input stream
type Prompter struct {
	in  *bufio.Reader
	out io.Writer

	// fd is the terminal used for hidden input; -1 when in is not a terminal
	fd int
}

// NewPrompter creates a prompter reading from stdin and writing to stderr
func NewPrompter() *Prompter {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		fd = -1
	}
	return &Prompter{in: bufio.NewReader(os.Stdin), out: os.Stderr, fd: fd}
}

// NewPrompterFrom creates a prompter over arbitrary streams. Secrets are read
// as plain lines.
func NewPrompterFrom(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{in: bufio.NewReader(in), out: out, fd: -1}
}

// Line prompts for a value. An empty answer returns def.
func (p *Prompter) Line(label, def string) (string, error) {
	if def != "" {
		fmt.Fprintf(p.out, "%s [%s]: ", label, def)
	} else {
		fmt.Fprintf(p.out, "%s: ", label)
	}

	line, err := p.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("failed to read %s: %w", label, err)
	}

	value := strings.TrimSpace(line)
	if value == "" {
		return def, nil
	}
	return value, nil
}

// Secret prompts for a value without echoing it. An empty answer keeps def
// (which is never displayed).
func (p *Prompter) Secret(label, def string) (string, error) {
	hint := ""
	if def != "" {
		hint = " [keep current]"
	}
	fmt.Fprintf(p.out, "%s%s: ", label, hint)

	var value string
	if p.fd >= 0 {
		raw, err := term.ReadPassword(p.fd)
		fmt.Fprintln(p.out)
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", label, err)
		}
		value = string(raw)
	} else {
		line, err := p.in.ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && line != "") {
			return "", fmt.Errorf("failed to read %s: %w", label, err)
		}
		value = line
	}

	value = strings.TrimSpace(value)
	if value == "" {
		return def, nil
	}
	return value, nil
}
