// Package ui provides colored console output for vongform.
package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"golang.org/x/term"
)

var (
	// Colors
	Red    = color.New(color.FgRed)
	Green  = color.New(color.FgGreen)
	Yellow = color.New(color.FgYellow)
	Blue   = color.New(color.FgBlue)
	Cyan   = color.New(color.FgCyan)
	Bold   = color.New(color.Bold)
)

// Out receives progress output, ErrOut receives errors and warnings.
var (
	Out    io.Writer = os.Stdout
	ErrOut io.Writer = os.Stderr
)

// Color modes accepted by SetColorMode.
const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

// SetColorMode enables or disables color. In auto mode color is used only
// when both stdout and stderr are terminals and NO_COLOR is unset.
func SetColorMode(mode string) error {
	switch strings.ToLower(mode) {
	case ColorAuto, "":
		color.NoColor = os.Getenv("NO_COLOR") != "" ||
			!term.IsTerminal(int(os.Stdout.Fd())) ||
			!term.IsTerminal(int(os.Stderr.Fd()))
	case ColorAlways:
		color.NoColor = false
	case ColorNever:
		color.NoColor = true
	default:
		return fmt.Errorf("unknown color mode %q (expected auto, always, or never)", mode)
	}
	return nil
}

// Success prints a green success message with checkmark.
func Success(format string, args ...any) {
	Green.Fprintf(Out, "✓ "+format+"\n", args...)
}

// Error prints a red error message with X to ErrOut.
func Error(format string, args ...any) {
	Red.Fprintf(ErrOut, "✗ "+format+"\n", args...)
}

// Warning prints a yellow warning message to ErrOut.
func Warning(format string, args ...any) {
	Yellow.Fprintf(ErrOut, "⚠ "+format+"\n", args...)
}

// Info prints a blue info message.
func Info(format string, args ...any) {
	Blue.Fprintf(Out, format+"\n", args...)
}

// Step prints a numbered step in cyan.
func Step(n int, format string, args ...any) {
	Cyan.Fprintf(Out, "[%d] ", n)
	fmt.Fprintf(Out, format+"\n", args...)
}

// Header prints a bold header.
func Header(format string, args ...any) {
	Bold.Fprintf(Out, format+"\n", args...)
}

// Package prints a chart-related message.
func Package(format string, args ...any) {
	Green.Fprintf(Out, "📦 "+format+"\n", args...)
}

// Diff prints a unified diff, coloring added and removed lines.
func Diff(diff string) {
	for _, line := range strings.SplitAfter(diff, "\n") {
		if line == "" {
			continue
		}
		switch {
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
			Bold.Fprint(Out, line)
		case strings.HasPrefix(line, "+"):
			Green.Fprint(Out, line)
		case strings.HasPrefix(line, "-"):
			Red.Fprint(Out, line)
		case strings.HasPrefix(line, "@@"):
			Cyan.Fprint(Out, line)
		default:
			fmt.Fprint(Out, line)
		}
	}
}
