package ui

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// Prompter asks the user questions on a terminal.
type Prompter struct {
	in  *bufio.Reader
	out io.Writer
}

// NewPrompter creates a Prompter reading answers from in.
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{in: bufio.NewReader(in), out: out}
}

var std = NewPrompter(os.Stdin, os.Stdout)

// Confirm asks a yes/no question. Anything but y/yes is no.
func (p *Prompter) Confirm(prompt string) bool {
	return p.yes(StyleWarning.Render(prompt))
}

// ConfirmDanger is Confirm styled for irreversible actions.
func (p *Prompter) ConfirmDanger(prompt string) bool {
	return p.yes(StyleError.Render("⚠ " + prompt))
}

// Input asks for a line of text and returns it trimmed.
func (p *Prompter) Input(prompt string) string {
	fmt.Fprintf(p.out, "%s: ", StyleInfo.Render(prompt))
	line, _ := p.in.ReadString('\n')
	return strings.TrimSpace(line)
}

func (p *Prompter) yes(prompt string) bool {
	fmt.Fprintf(p.out, "%s [y/N]: ", prompt)
	line, _ := p.in.ReadString('\n')
	line = strings.TrimSpace(strings.ToLower(line))
	return line == "y" || line == "yes"
}

// Confirm asks a yes/no question on stdin.
func Confirm(prompt string) bool { return std.Confirm(prompt) }

// ConfirmDanger asks a yes/no question on stdin, styled as dangerous.
func ConfirmDanger(prompt string) bool { return std.ConfirmDanger(prompt) }

// PromptInput asks for a line of text on stdin.
func PromptInput(prompt string) string { return std.Input(prompt) }
