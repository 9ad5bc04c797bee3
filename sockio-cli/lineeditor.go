// =============================================================================
// lineeditor.go - Console Input with Line Editing and History
// =============================================================================
//
// The interactive console reads one request per line. How it reads depends
// on where stdin comes from:
//
//   - A terminal: ergochat/readline provides Emacs-style editing (Ctrl-A/E,
//     Ctrl-K, arrow keys), Ctrl-R history search, and a history file that
//     survives between sessions. Instrument sessions tend to repeat the
//     same handful of queries, so history matters here.
//   - A pipe or Emacs comint: a bufio.Scanner reads plain lines and the
//     prompt is printed by hand. This is what makes
//     "printf '*IDN?\nMEAS?\n' | sockio-cli -p 5025 -i" work.
//
// History lives at ~/.sockio_history by default (history_file in the config
// file changes it) and keeps the last 500 entries.
//
// =============================================================================

package main

// GO CONCEPT: Third-Party Modules
// -------------------------------
// Imports with a domain prefix come from other modules, listed in go.mod
// with exact versions and pinned by checksum in go.sum:
//   - github.com/ergochat/readline: pure-Go line editing (no CGo)
//   - golang.org/x/term: terminal detection and raw mode
//
// golang.org/x/... modules are maintained by the Go team but live outside
// the standard library so they can evolve on their own release cycle.
//
// Compare with Swift: Package.swift dependencies with version ranges,
// resolved into Package.resolved.
//
// Compare with Python: requirements.txt or pyproject.toml entries, with a
// lock file (poetry.lock, uv.lock) playing the role of go.sum.
import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ergochat/readline"
	"golang.org/x/term"
)

const (
	// historyFileName is the default history file in the home directory.
	historyFileName = ".sockio_history"

	// historySize is the maximum number of history entries to retain.
	historySize = 500
)

// LineEditor reads console lines, with editing and history on a terminal
// and plain line reading otherwise.
//
// GO CONCEPT: One Type, Two Strategies
// ------------------------------------
// Rather than an interface with two implementations, LineEditor holds
// both possible readers and a flag that picks one. With only two cases
// and no plans for more, a flag keeps the code in one place. An
// interface becomes worthwhile once callers need to plug in their own.
//
// Compare with Swift: an enum with associated values would model this:
//   enum Input { case editor(EditLine), plain(FileHandle) }
//
// Compare with Python: an object with an `interactive` attribute and an
// if/else in the read method, exactly as here.
type LineEditor struct {
	// interactive is true when readline drives input.
	interactive bool

	// rl is the readline instance (interactive mode only).
	rl *readline.Instance

	// scanner reads piped input (non-interactive mode only).
	scanner *bufio.Scanner
}

// NewLineEditor creates a line editor for os.Stdin. historyPath is the
// readline history file; it is ignored for piped input.
//
// Interactive mode needs stdin to be a terminal and INSIDE_EMACS to be
// unset, since Emacs comint provides its own editing and expects plain
// line-by-line I/O.
func NewLineEditor(historyPath string) *LineEditor {
	isInteractive := term.IsTerminal(int(os.Stdin.Fd())) &&
		os.Getenv("INSIDE_EMACS") == ""

	if !isInteractive {
		return newPlainEditor(os.Stdin)
	}

	// GO CONCEPT: Configuration Structs
	// ---------------------------------
	// Libraries with many knobs often take a pointer to a Config struct.
	// Fields left out keep their zero value, which the library treats as
	// "use the default". It is Go's answer to long lists of keyword
	// arguments.
	//
	// Compare with Python: readline.Config(history_file=..., limit=500)
	// would be the keyword-argument equivalent.
	rl, err := readline.NewFromConfig(&readline.Config{
		HistoryFile:  historyPath,
		HistoryLimit: historySize,

		// History is saved explicitly in GetLine so blank lines are skipped.
		DisableAutoSaveHistory: true,

		// The prompt changes with the target address, so it is set per call.
		Prompt: "",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: readline init failed (%v), using basic input\n", err)
		return newPlainEditor(os.Stdin)
	}

	return &LineEditor{
		interactive: true,
		rl:          rl,
	}
}

// newPlainEditor creates a non-interactive editor reading from r.
func newPlainEditor(r io.Reader) *LineEditor {
	return &LineEditor{
		interactive: false,
		scanner:     bufio.NewScanner(r),
	}
}

// GetLine shows prompt and returns the next line without its newline.
// It returns io.EOF when input ends (Ctrl-D, Ctrl-C or end of pipe).
func (le *LineEditor) GetLine(prompt string) (string, error) {
	if le.interactive {
		return le.getInteractiveLine(prompt)
	}
	return le.getNonInteractiveLine(prompt)
}

// getInteractiveLine reads through readline and records non-blank lines
// in the history.
func (le *LineEditor) getInteractiveLine(prompt string) (string, error) {
	le.rl.SetPrompt(prompt)

	line, err := le.rl.Readline()
	if err != nil {
		// Ctrl-C at an empty prompt leaves the console, like Ctrl-D.
		if err == readline.ErrInterrupt {
			return "", io.EOF
		}
		return "", err
	}

	if trimmed := strings.TrimSpace(line); trimmed != "" {
		le.rl.SaveToHistory(trimmed)
	}
	return line, nil
}

// getNonInteractiveLine prints the prompt to stdout and reads one line.
// The prompt is printed even for piped input so that transcripts show
// where each request starts.
func (le *LineEditor) getNonInteractiveLine(prompt string) (string, error) {
	fmt.Print(prompt)

	if !le.scanner.Scan() {
		if err := le.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return le.scanner.Text(), nil
}

// Close restores the terminal and flushes history. Safe to call more than
// once and on non-interactive editors.
func (le *LineEditor) Close() {
	if le.rl != nil {
		le.rl.Close()
		le.rl = nil
	}
}

// IsInteractive reports whether readline drives input.
func (le *LineEditor) IsInteractive() bool {
	return le.interactive
}
