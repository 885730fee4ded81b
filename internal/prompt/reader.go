package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"golang.org/x/term"
)

// ErrInterrupted is returned when the operator presses Ctrl-C at a prompt.
var ErrInterrupted = errors.New("interrupted")

// LineReader reads operator input one line at a time.
type LineReader interface {
	// ReadLine shows prompt and returns the entered line. def is offered
	// as the initial value and completions are used for tab completion.
	ReadLine(prompt, def string, completions []string) (string, error)
	// ReadSecret reads a line without echoing it.
	ReadSecret(prompt string) (string, error)
}

// Terminal reads from an interactive terminal with line editing.
type Terminal struct {
	rl *readline.Instance
	fd int
}

// NewTerminal opens the controlling terminal for line editing
func NewTerminal() (*Terminal, error) {
	rl, err := readline.NewEx(&readline.Config{
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open terminal: %w", err)
	}
	return &Terminal{rl: rl, fd: int(os.Stdin.Fd())}, nil
}

// ReadLine implements LineReader
func (t *Terminal) ReadLine(prompt, def string, completions []string) (string, error) {
	t.rl.SetPrompt(prompt)
	if len(completions) > 0 {
		items := make([]readline.PrefixCompleterInterface, 0, len(completions))
		for _, c := range completions {
			items = append(items, readline.PcItem(c))
		}
		t.rl.Config.AutoComplete = readline.NewPrefixCompleter(items...)
	} else {
		t.rl.Config.AutoComplete = nil
	}

	line, err := t.rl.ReadlineWithDefault(def)
	if errors.Is(err, readline.ErrInterrupt) {
		return "", ErrInterrupted
	}
	return line, err
}

// ReadSecret implements LineReader
func (t *Terminal) ReadSecret(prompt string) (string, error) {
	if !term.IsTerminal(t.fd) {
		t.rl.Config.AutoComplete = nil
		t.rl.SetPrompt(prompt)
		return t.rl.Readline()
	}
	fmt.Fprint(t.rl.Stdout(), prompt)
	b, err := term.ReadPassword(t.fd)
	fmt.Fprintln(t.rl.Stdout())
	if err != nil {
		return "", fmt.Errorf("failed to read secret: %w", err)
	}
	return string(b), nil
}

// Close restores the terminal
func (t *Terminal) Close() error {
	return t.rl.Close()
}

// Stream reads lines from a plain reader, for piped input and tests.
// An empty line selects the default value.
type Stream struct {
	r *bufio.Reader
	w io.Writer
}

// NewStream returns a Stream reading from r and echoing prompts to w
func NewStream(r io.Reader, w io.Writer) *Stream {
	return &Stream{r: bufio.NewReader(r), w: w}
}

// ReadLine implements LineReader
func (s *Stream) ReadLine(prompt, def string, _ []string) (string, error) {
	if def != "" {
		fmt.Fprintf(s.w, "%s[%s] ", prompt, def)
	} else {
		fmt.Fprint(s.w, prompt)
	}
	line, err := s.readLine()
	if err != nil {
		return "", err
	}
	if line == "" {
		return def, nil
	}
	return line, nil
}

// ReadSecret implements LineReader
func (s *Stream) ReadSecret(prompt string) (string, error) {
	fmt.Fprint(s.w, prompt)
	return s.readLine()
}

func (s *Stream) readLine() (string, error) {
	line, err := s.r.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
