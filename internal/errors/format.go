package errors

import (
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"strings"
)

type style string

const (
	styleError style = "\033[1;31m"
	styleCode  style = "\033[1;37m"
	styleDim   style = "\033[90m"
	styleHint  style = "\033[36m"
	styleReset style = "\033[0m"
)

// colors follows the NO_COLOR convention unless overridden.
var colors = os.Getenv("NO_COLOR") == ""

// DisableColors turns ANSI styling off.
func DisableColors() { colors = false }

// EnableColors turns ANSI styling on.
func EnableColors() { colors = true }

func paint(s style, text string) string {
	if !colors {
		return text
	}
	return string(s) + text + string(styleReset)
}

// Format renders the error for a terminal: a header, the detail wrapped at
// 70 columns, one line per cause and the hint.
func (e *Error) Format() string {
	var b strings.Builder

	fmt.Fprintf(&b, "\n%s %s\n\n", paint(styleError, "ERROR"), e.header())

	if lines := wrapText(e.Detail, 70); len(lines) > 0 {
		for _, line := range lines {
			fmt.Fprintf(&b, "  %s\n", line)
		}
		b.WriteByte('\n')
	}

	if cs := causes(e.Wrapped); len(cs) > 0 {
		for _, c := range cs {
			fmt.Fprintf(&b, "  %s %s\n", paint(styleDim, "caused by:"), c)
		}
		b.WriteByte('\n')
	}

	if e.Suggestion != "" {
		fmt.Fprintf(&b, "  %s %s\n\n", paint(styleHint, "hint:"), e.Suggestion)
	}
	return b.String()
}

// FormatCompact returns "CODE: message".
func (e *Error) FormatCompact() string {
	if e.Code != "" {
		return e.Code + ": " + e.Message
	}
	return e.Message
}

func (e *Error) header() string {
	if e.Code == "" {
		return e.Message
	}
	return paint(styleCode, e.Code) + " " + e.Message
}

// causes flattens an error chain into one message per level. A wrapper's
// message usually ends with its child's, which is trimmed so each level
// adds only its own text.
func causes(err error) []string {
	var out []string
	for err != nil {
		next := stderrors.Unwrap(err)
		msg := err.Error()
		if next != nil {
			msg = strings.TrimSuffix(strings.TrimSuffix(msg, next.Error()), ": ")
		}
		if msg != "" {
			out = append(out, msg)
		}
		err = next
	}
	return out
}

// wrapText breaks text into lines of at most width bytes, splitting on
// whitespace. A single word longer than width gets a line of its own.
func wrapText(text string, width int) []string {
	var (
		lines []string
		line  []string
		n     int
	)
	for _, word := range strings.Fields(text) {
		if n > 0 && n+1+len(word) > width {
			lines = append(lines, strings.Join(line, " "))
			line, n = line[:0], 0
		}
		if n > 0 {
			n++
		}
		line = append(line, word)
		n += len(word)
	}
	if len(line) > 0 {
		lines = append(lines, strings.Join(line, " "))
	}
	return lines
}

// PrintError writes err to stderr.
func PrintError(err error) {
	Fprint(os.Stderr, err)
}

// Fprint writes err to w, formatted when it is (or wraps) an *Error.
func Fprint(w io.Writer, err error) {
	var he *Error
	if stderrors.As(err, &he) {
		fmt.Fprint(w, he.Format())
		return
	}
	fmt.Fprintf(w, "\n%s %s\n\n", paint(styleError, "ERROR"), err.Error())
}
