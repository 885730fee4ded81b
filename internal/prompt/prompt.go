// Package prompt asks the operator for validated input. Invalid answers
// are reported and the same question is asked again.
package prompt

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/foxzi/pca/internal/models"
	"github.com/foxzi/pca/internal/validate"
)

var warn = color.New(color.FgHiYellow)

// Prompter asks questions through a LineReader
type Prompter struct {
	in     LineReader
	out    io.Writer
	logger *slog.Logger
	now    func() time.Time
}

// New creates a Prompter. Messages to the operator are written to out.
func New(in LineReader, out io.Writer, logger *slog.Logger) *Prompter {
	return &Prompter{
		in:     in,
		out:    out,
		logger: logger,
		now:    time.Now,
	}
}

// SetClock replaces the clock used by FutureTime
func (p *Prompter) SetClock(now func() time.Time) {
	p.now = now
}

// Out returns the writer used for operator messages
func (p *Prompter) Out() io.Writer {
	return p.out
}

// Warn prints a highlighted message to the operator
func (p *Prompter) Warn(format string, args ...any) {
	warn.Fprintf(p.out, format+"\n", args...)
}

// Println prints a plain line to the operator
func (p *Prompter) Println(args ...any) {
	fmt.Fprintln(p.out, args...)
}

// Printf prints a formatted message to the operator
func (p *Prompter) Printf(format string, args ...any) {
	fmt.Fprintf(p.out, format, args...)
}

func label(msg string) string {
	return msg + ": "
}

// Input asks for a non-blank value
func (p *Prompter) Input(msg, def string) (string, error) {
	for {
		line, err := p.in.ReadLine(label(msg), def, nil)
		if err != nil {
			return "", err
		}
		if v := strings.TrimSpace(line); v != "" {
			return v, nil
		}
		p.Warn("A value is required.")
	}
}

// Optional asks for a value that may be left blank
func (p *Prompter) Optional(msg, def string) (string, error) {
	line, err := p.in.ReadLine(label(msg), def, nil)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// Number asks for an integer in [lo, hi]. hi <= 0 leaves it unbounded.
func (p *Prompter) Number(msg string, def, lo, hi int) (int, error) {
	d := ""
	if def > 0 {
		d = strconv.Itoa(def)
	}
	for {
		line, err := p.in.ReadLine(label(msg), d, nil)
		if err != nil {
			return 0, err
		}
		n, err := strconv.Atoi(strings.TrimSpace(line))
		switch {
		case err != nil:
			p.Warn("%q is not a number.", strings.TrimSpace(line))
		case n < lo:
			p.Warn("Enter a number of at least %d.", lo)
		case hi > 0 && n > hi:
			p.Warn("Enter a number no greater than %d.", hi)
		default:
			return n, nil
		}
	}
}

// YesNo asks a yes/no question
func (p *Prompter) YesNo(msg string, def bool) (bool, error) {
	d := "n"
	if def {
		d = "y"
	}
	for {
		line, err := p.in.ReadLine(label(msg+" (y/n)"), d, []string{"yes", "no"})
		if err != nil {
			return false, err
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		}
		p.Warn("Answer y or n.")
	}
}

// Email asks for a well-formed email address
func (p *Prompter) Email(msg, def string) (string, error) {
	for {
		v, err := p.Input(msg, def)
		if err != nil {
			return "", err
		}
		if err := validate.Email(v); err != nil {
			p.Warn("%v", err)
			continue
		}
		return v, nil
	}
}

// Time asks for a local "mm/dd/YYYY HH:MM" time in timezone and returns it
// as an ISO-8601 date with offset.
func (p *Prompter) Time(msg, timezone, def string) (string, error) {
	for {
		v, err := p.Input(msg+" (mm/dd/YYYY HH:MM, 24h, "+timezone+")", def)
		if err != nil {
			return "", err
		}
		date, err := models.LocalDate(v, timezone)
		if err != nil {
			p.Warn("%v", err)
			continue
		}
		return date, nil
	}
}

// FutureTime is Time restricted to moments after now and after the
// optional not-before date.
func (p *Prompter) FutureTime(msg, timezone, def, notBefore string) (string, error) {
	for {
		date, err := p.Time(msg, timezone, def)
		if err != nil {
			return "", err
		}
		t, _ := models.ParseDate(date)
		if !t.After(p.now()) {
			p.Warn("The date must be in the future.")
			continue
		}
		if notBefore != "" {
			if err := models.CheckDates(notBefore, date); err != nil {
				p.Warn("The date must be after %s.", notBefore)
				continue
			}
		}
		return date, nil
	}
}

// Select shows a numbered list and returns the index of the chosen option.
// The operator may answer with the number or the option text.
func (p *Prompter) Select(msg string, options []string, def int) (int, error) {
	if len(options) == 0 {
		return 0, errors.New("nothing to select from")
	}
	for i, o := range options {
		fmt.Fprintf(p.out, "  %d) %s\n", i+1, o)
	}
	d := ""
	if def >= 0 && def < len(options) {
		d = strconv.Itoa(def + 1)
	}
	for {
		line, err := p.in.ReadLine(label(msg), d, options)
		if err != nil {
			return 0, err
		}
		v := strings.TrimSpace(line)
		if n, err := strconv.Atoi(v); err == nil && n >= 1 && n <= len(options) {
			return n - 1, nil
		}
		for i, o := range options {
			if o == v {
				return i, nil
			}
		}
		p.Warn("Choose a number between 1 and %d.", len(options))
	}
}

// Secret reads a value without echo
func (p *Prompter) Secret(msg string) (string, error) {
	return p.in.ReadSecret(label(msg))
}

// File asks for a path and returns its content. ext is appended when the
// entered path has no extension. A missing file is logged and the question
// repeats.
func (p *Prompter) File(msg, ext string) (string, []byte, error) {
	for {
		path, err := p.Input(msg, "")
		if err != nil {
			return "", nil, err
		}
		if ext != "" && filepath.Ext(path) == "" {
			path += ext
		}
		data, err := os.ReadFile(path)
		if err == nil {
			return path, data, nil
		}
		if errors.Is(err, fs.ErrNotExist) {
			p.logger.Error("file not found", "path", path)
			p.Println("Please try again...")
			continue
		}
		p.logger.Error("failed to read file", "path", path, "error", err)
	}
}
