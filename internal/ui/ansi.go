package ui

import (
	"fmt"
	"io"
	"os"
)

var (
	reset = "\033[0m"
	bold  = "\033[1m"

	fgGray   = "\033[90m"
	fgGreen  = "\033[32m"
	fgYellow = "\033[33m"
	fgBlue   = "\033[34m"
	fgRed    = "\033[31m"

	symCheck = "✔"
	symCross = "✖"
)

// Printer writes themed CLI output.
type Printer struct {
	Out   io.Writer
	Err   io.Writer
	Theme Theme
	Color bool
}

// NewPrinter picks colors only when out is a terminal and the theme has any.
func NewPrinter(out, errOut io.Writer, theme string) *Printer {
	t := ThemeByName(theme)
	return &Printer{
		Out:   out,
		Err:   errOut,
		Theme: t,
		Color: !t.Mono && isTTY(out),
	}
}

func isTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}

// C wraps s in color when the printer is colored.
func (p *Printer) C(color, s string) string {
	if !p.Color || color == "" {
		return s
	}
	return color + s + reset
}

func (p *Printer) OK(msg string) { fmt.Fprintln(p.Out, p.C(p.Theme.Success, symCheck+" "+msg)) }

func (p *Printer) Fail(msg string) { fmt.Fprintln(p.Err, p.C(p.Theme.Error, symCross+" "+msg)) }

// Hint prints a muted follow-up line to the error stream.
func (p *Printer) Hint(msg string) { fmt.Fprintln(p.Err, p.C(p.Theme.Muted, msg)) }
