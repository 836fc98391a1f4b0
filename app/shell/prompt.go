package shell

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Prompter asks the user for text input and yes/no confirmations, blocking until answered
type Prompter struct {
	scanner *bufio.Scanner
	out     io.Writer
}

// NewPrompter makes Prompter reading answers from in and printing questions to out
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{scanner: bufio.NewScanner(in), out: out}
}

// Ask prints the question and returns trimmed answer. ok is false on end of input.
func (p *Prompter) Ask(question string) (answer string, ok bool) {
	fmt.Fprint(p.out, question)
	return p.readLine()
}

// Confirm asks yes/no question, anything but y/yes is no
func (p *Prompter) Confirm(question string) bool {
	answer, ok := p.Ask(question + " [y/N]: ")
	if !ok {
		return false
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true
	}
	return false
}

func (p *Prompter) readLine() (string, bool) {
	if !p.scanner.Scan() {
		return "", false
	}
	return strings.TrimSpace(p.scanner.Text()), true
}
