// Package internal provides Unicode symbol definitions with ASCII fallbacks.
//
// The installer often runs on a bare Linux console where emoji and braille
// glyphs do not render, so every glyph the wizard draws has a plain ASCII twin.
package internal

import (
	"os"
	"strings"
)

// SymbolSet defines a collection of symbols used throughout the UI
type SymbolSet struct {
	// Phase states
	Pending string
	Running string
	Done    string
	Failed  string
	Skipped string

	// Status indicators
	Warning string
	Info    string

	// Objects
	Drive     string
	Partition string
	Locale    string

	// Progress indicators
	Spinner  []string // Animation frames
	Cursor   string
	Bullet   string
	Selected string
}

// UnicodeSymbols provides rich Unicode symbols for modern terminals
var UnicodeSymbols = SymbolSet{
	Pending: "○",
	Running: "◉",
	Done:    "✓",
	Failed:  "✗",
	Skipped: "–",

	Warning: "⚠",
	Info:    "ℹ",

	Drive:     "💾",
	Partition: "▤",
	Locale:    "🌐",

	Spinner:  []string{"⣾", "⣽", "⣻", "⢿", "⡿", "⣟", "⣯", "⣷"},
	Cursor:   "❯",
	Bullet:   "•",
	Selected: "*",
}

// ASCIISymbols provides ASCII-only fallbacks for the Linux console
var ASCIISymbols = SymbolSet{
	Pending: "[ ]",
	Running: "[>]",
	Done:    "[OK]",
	Failed:  "[X]",
	Skipped: "[-]",

	Warning: "[!]",
	Info:    "[i]",

	Drive:     "[HD]",
	Partition: "[P]",
	Locale:    "[L]",

	Spinner:  []string{"|", "/", "-", "\\"},
	Cursor:   ">",
	Bullet:   "*",
	Selected: "*",
}

// CurrentSymbols holds the active symbol set based on terminal capabilities
var CurrentSymbols SymbolSet

func init() {
	CurrentSymbols = detectSymbolSet()
}

// detectSymbolSet determines the appropriate symbol set based on terminal capabilities
func detectSymbolSet() SymbolSet {
	if v := os.Getenv("LIMEINSTALL_ASCII"); v == "1" || v == "true" {
		return ASCIISymbols
	}

	// the kernel VT has no emoji or braille font
	term := strings.ToLower(os.Getenv("TERM"))
	if term == "linux" || term == "dumb" || term == "vt100" {
		return ASCIISymbols
	}

	locale := strings.ToLower(os.Getenv("LANG"))
	if locale != "" && !strings.Contains(locale, "utf-8") && !strings.Contains(locale, "utf8") {
		return ASCIISymbols
	}

	return UnicodeSymbols
}

// ForceASCII switches to ASCII symbols regardless of terminal detection
func ForceASCII() {
	CurrentSymbols = ASCIISymbols
}

// GetSpinnerFrame returns the spinner frame for a heartbeat count
func GetSpinnerFrame(tick int) string {
	frames := CurrentSymbols.Spinner
	if len(frames) == 0 {
		return ""
	}
	return frames[tick%len(frames)]
}

// FormatWarning formats a warning message with the appropriate symbol
func FormatWarning(message string) string {
	return CurrentSymbols.Warning + " " + message
}

// FormatInfo formats an info message with the appropriate symbol
func FormatInfo(message string) string {
	return CurrentSymbols.Info + " " + message
}

// FormatDrive formats a drive identifier with the appropriate symbol
func FormatDrive(identifier string) string {
	return CurrentSymbols.Drive + " " + identifier
}
