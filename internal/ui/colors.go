// Package ui styles CLI output with ANSI escapes.
package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// ANSI color and style constants for CLI output
const (
	ColorReset = "\033[0m"
	ColorBold  = "\033[1m"
	ColorDim   = "\033[2m"

	ColorCyan   = "\033[36m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorWhite  = "\033[97m"
	ColorRed    = "\033[31m"
)

// Enabled turns styling on. It starts off when NO_COLOR is set.
var Enabled = os.Getenv("NO_COLOR") == ""

func style(codes, s string) string {
	if !Enabled {
		return s
	}
	return codes + s + ColorReset
}

func Bold(s string) string    { return style(ColorBold, s) }
func Dim(s string) string     { return style(ColorDim, s) }
func Accent(s string) string  { return style(ColorCyan, s) }
func Success(s string) string { return style(ColorGreen, s) }
func Warn(s string) string    { return style(ColorYellow, s) }
func Error(s string) string   { return style(ColorRed, s) }

// Heading prints a bold title over a dim rule.
func Heading(w io.Writer, title string) {
	fmt.Fprintf(w, "\n%s\n%s\n\n", Bold(title), Dim(strings.Repeat("━", 50)))
}

// Field prints an aligned "label: value" line.
func Field(w io.Writer, label string, value any) {
	fmt.Fprintf(w, "  %s %v\n", Bold(fmt.Sprintf("%-10s", label+":")), value)
}
