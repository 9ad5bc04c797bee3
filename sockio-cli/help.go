// =============================================================================
// help.go - Console Help (Command Listing and Per-Command Help)
// =============================================================================
//
// This file implements the console help system:
//   - ".help"         Full listing of console commands
//   - ".help <topic>" Detailed help for one command, with examples
//
// Topics are the dot-command names without the dot ("lines", not ".lines"),
// plus "requests" and "escapes" which explain how plain input lines are
// sent to the instrument.
//
// =============================================================================

package main

import (
	"fmt"
	"os"
	"strings"
)

// printHelp prints the command listing when topic is empty, otherwise the
// detailed help for topic. Lookup ignores case and a leading dot, so
// ".help .LINES" and ".help lines" are the same.
//
// GO CONCEPT: Comma-Ok Map Lookup
// -------------------------------
// "text, ok := m[key]" returns the stored value and whether the key
// exists. Without ok, a missing key yields the zero value ("" here),
// which would be indistinguishable from an empty help text.
//
// Compare with Swift: if let text = consoleHelp[key] { ... }
// Compare with Python: text = console_help.get(key), then test for None.
func printHelp(topic string) {
	if topic == "" {
		printHelpOverview()
		return
	}

	key := strings.TrimPrefix(strings.ToLower(topic), ".")
	if text, ok := consoleHelp[key]; ok {
		fmt.Println(text)
		return
	}

	fmt.Fprintf(os.Stderr, "Error: No help for '%s'. Type .help to see available commands.\n", topic)
}

// printHelpOverview prints the full command listing.
func printHelpOverview() {
	fmt.Print(`Console Commands:
  .help [topic]       Show help (or help for a specific command)
  .status             Show connection state, address and counters
  .open               Open the connection now
  .close              Close the connection (reopened on next request)
  .send <request>     Send a request without reading a reply
  .read <n>           Read exactly n bytes
  .lines <n> <req>    Send a request and read n reply lines
  .drain              Read one pending reply line
  .quit               Exit the console

Requests:
  Any other line is sent as a request with the separator appended,
  and one reply line is printed. Escapes such as \n and \x06 are
  decoded first (see .help escapes).
`)
}

// consoleHelp holds detailed help keyed by command name without the dot.
//
// GO CONCEPT: Maps Cannot Be Constants
// ------------------------------------
// Go's const only covers booleans, numbers and strings. Lookup tables are
// package-level vars initialised once at program start; nothing stops
// code from writing to them, so by convention nobody does.
//
// Compare with Swift: private static let consoleHelp: [String: String]
// Compare with Python: a module-level _CONSOLE_HELP dict, or a
// types.MappingProxyType for a read-only view.
var consoleHelp = map[string]string{
	"help": `  .help [topic]
    Show all console commands, or detailed help for one topic.
    Examples:
      .help           Show the command listing
      .help lines     Show help for .lines
      .help escapes   Show the escape sequences understood in requests`,

	"status": `  .status
    Show the connection state (CONNECTED, EOF or DISCONNECTED), the
    target address, how many connections have been established so far,
    and the identifier of the current connection.
    A state of EOF means the instrument closed the connection; the next
    request reconnects unless auto-reconnect is disabled.`,

	"open": `  .open
    Open the connection now instead of on the first request.
    Fails if the console is already connected.`,

	"close": `  .close
    Close the connection. With auto-reconnect enabled (the default), the
    next request opens a new one. Closing twice is harmless.`,

	"send": `  .send <request>
    Send a request and flush it, without waiting for a reply. Use it for
    commands that do not answer, such as *RST or *CLS.
    Example:
      .send *RST`,

	"read": `  .read <n>
    Read exactly n bytes. Useful for binary blocks whose length is known
    from a header. Fails if the instrument closes the connection first.
    Example:
      .read 4`,

	"lines": `  .lines <n> <request>
    Send a request and read n reply lines. No other request can use the
    connection until all lines are read.
    Example:
      .lines 3 SYST:ERR:ALL?`,

	"drain": `  .drain
    Read one reply line that is already waiting, for example after a
    request whose reply was not read. Gives up after the request timeout.`,

	"quit": `  .quit
    Close the connection and exit the console. Ctrl-D does the same.`,

	"requests": `  <request>
    A line that does not start with a dot is a request. Escapes are
    decoded, the separator is appended unless already present, and the
    first reply line is printed with unprintable bytes escaped.
    Example:
      *IDN?           → ACME,Model1,0001,1.0`,

	"escapes": `  Escapes in requests and in the --request flag:
      \n    line feed (0x0A)
      \r    carriage return (0x0D)
      \t    tab (0x09)
      \0    NUL (0x00)
      \\    backslash
      \xNN  byte with hex value NN
    Example:
      .send \x1bR     Send ESC R followed by the separator`,
}
