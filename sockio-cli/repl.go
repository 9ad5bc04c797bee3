// =============================================================================
// repl.go - Interactive Console
// =============================================================================
//
// The console reads lines from the LineEditor and either handles them
// locally (dot-commands such as .status or .lines) or sends them to the
// instrument as requests and prints the first reply line.
//
// Every request runs under its own timeout derived from the run context, so
// an instrument that never answers cannot hang the console, and Ctrl-C
// (SIGINT) cancels whatever is in flight.
//
// Session example:
//
//	192.168.1.20:5025> *IDN?
//	ACME,Model1,0001,1.0
//	192.168.1.20:5025> .lines 2 SYST:ERR:ALL?
//	0,"No error"
//	0,"No error"
//	192.168.1.20:5025> .status
//	State:       CONNECTED
//	...
//
// =============================================================================

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/sockio/sockio-go/sockio"
)

// console holds what the REPL needs between lines.
//
// GO CONCEPT: Methods on a Private Struct
// ---------------------------------------
// Grouping the socket, editor and settings in one struct lets each
// dot-command handler be a small method instead of a function taking
// three or four parameters. The struct is unexported because nothing
// outside this package needs it.
//
// Compare with Swift: a final class with private stored properties and
// one method per command.
//
// Compare with Python: a class whose methods share state through self.
type console struct {
	sock     *sockio.Socket
	editor   *LineEditor
	settings settings
}

// prompt returns the console prompt, "host:port> ".
func (c *console) prompt() string {
	return c.sock.Addr() + "> "
}

// runREPL runs the console until .quit, end of input or cancellation of
// ctx. It does not close the socket; the caller owns it.
func runREPL(ctx context.Context, sock *sockio.Socket, editor *LineEditor, st settings) {
	c := &console{sock: sock, editor: editor, settings: st}

	for ctx.Err() == nil {
		line, err := editor.GetLine(c.prompt())
		if err != nil {
			// io.EOF is Ctrl-D or the end of piped input. Anything else
			// is a terminal error; both end the session.
			if !errors.Is(err, io.EOF) {
				printError(err.Error())
			}
			fmt.Println()
			return
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if name, args, ok := splitDotCommand(line); ok {
			if quit := c.dispatch(ctx, name, args); quit {
				return
			}
			continue
		}
		c.query(ctx, line)
	}
}

// GO CONCEPT: Switch on Strings
// -----------------------------
// A switch on a string compares against each case in order and runs the
// first match. Several values can share a case ("quit", "exit"). There
// is no fallthrough unless asked for with the fallthrough keyword.
//
// Compare with Swift: switch on String works the same way, including
// comma-separated cases, but Swift requires the switch to be exhaustive
// (hence the default).
//
// Compare with Python: match name: case "quit" | "exit": ... (3.10+).

// dispatch runs one dot-command. It returns true when the console should
// exit.
func (c *console) dispatch(ctx context.Context, name, args string) bool {
	switch name {
	case "quit", "exit":
		return true
	case "help":
		printHelp(args)
	case "status":
		c.status()
	case "open":
		c.open(ctx)
	case "close":
		c.sock.Close()
		fmt.Println("Disconnected")
	case "send":
		c.send(ctx, args)
	case "read":
		c.read(ctx, args)
	case "lines":
		c.lines(ctx, args)
	case "drain":
		c.drain(ctx)
	default:
		printError(fmt.Sprintf("Unknown command .%s (type .help for a list)", name))
	}
	return false
}

// request decodes escapes in text and appends the separator.
func (c *console) request(text string) ([]byte, error) {
	req, err := decodeEscapes(text)
	if err != nil {
		return nil, err
	}
	return withSeparator(req, c.settings.separator), nil
}

// query sends line as a request and prints the first reply line.
func (c *console) query(ctx context.Context, line string) {
	req, err := c.request(line)
	if err != nil {
		printError(err.Error())
		return
	}

	opCtx, cancel := context.WithTimeout(ctx, c.settings.timeout)
	defer cancel()

	reply, err := c.sock.WriteReadLine(opCtx, req)
	if err != nil {
		printError(err.Error())
		return
	}
	c.printReply(reply)
}

// printReply prints one reply line, or a notice when the instrument closed
// the connection instead of answering.
func (c *console) printReply(reply []byte) {
	if len(reply) == 0 {
		printError("no reply (connection closed by instrument)")
		return
	}
	fmt.Println(displayReply(reply, c.settings.separator))
}

// status prints the connection state and counters.
func (c *console) status() {
	session := "-"
	if id := c.sock.Session(); id != uuid.Nil {
		session = id.String()
	}
	reconnect := "off"
	if c.sock.AutoReconnect() {
		reconnect = "on"
	}

	fmt.Printf("State:       %s\n", c.sock.State())
	fmt.Printf("Address:     %s\n", c.sock.Addr())
	fmt.Printf("Connections: %d\n", c.sock.ConnectionCounter())
	fmt.Printf("Session:     %s\n", session)
	fmt.Printf("Reconnect:   %s\n", reconnect)
}

// open connects immediately.
func (c *console) open(ctx context.Context) {
	opCtx, cancel := context.WithTimeout(ctx, c.settings.timeout)
	defer cancel()

	if err := c.sock.Open(opCtx); err != nil {
		printError(err.Error())
		return
	}
	fmt.Printf("Connected to %s\n", c.sock.Addr())
}

// send writes a request without reading a reply.
func (c *console) send(ctx context.Context, args string) {
	if args == "" {
		printError(".send requires a request")
		return
	}
	req, err := c.request(args)
	if err != nil {
		printError(err.Error())
		return
	}

	opCtx, cancel := context.WithTimeout(ctx, c.settings.timeout)
	defer cancel()

	if err := c.sock.Write(opCtx, req); err != nil {
		printError(err.Error())
	}
}

// read reads an exact number of bytes and prints them escaped.
func (c *console) read(ctx context.Context, args string) {
	n, err := strconv.Atoi(args)
	if err != nil || n <= 0 {
		printError(fmt.Sprintf(".read requires a positive byte count, got %q", args))
		return
	}

	opCtx, cancel := context.WithTimeout(ctx, c.settings.timeout)
	defer cancel()

	data, err := c.sock.ReadExactly(opCtx, n)
	if err != nil {
		var incomplete *sockio.IncompleteReadError
		if errors.As(err, &incomplete) && len(incomplete.Partial) > 0 {
			fmt.Println(escapeBytes(incomplete.Partial))
		}
		printError(err.Error())
		return
	}
	fmt.Println(escapeBytes(data))
}

// GO CONCEPT: Range Over Function Iterators
// -----------------------------------------
// Since Go 1.23, "for k, v := range f" works when f is a function of the
// form func(yield func(K, V) bool). sockio's WriteReadLines returns such a
// function (an iter.Seq2). Each loop iteration is one call to yield; a
// break makes yield return false, and the iterator cleans up, which is how
// the socket is released early.
//
// Compare with Swift: a for-in loop over an AsyncSequence, where leaving
// the loop cancels the iterator.
//
// Compare with Python: a for loop over a generator. Breaking out closes
// the generator and runs its finally block.

// lines sends a request and prints n reply lines.
func (c *console) lines(ctx context.Context, args string) {
	countText, text, _ := strings.Cut(args, " ")
	n, err := strconv.Atoi(countText)
	if err != nil || n <= 0 || strings.TrimSpace(text) == "" {
		printError(".lines requires a line count and a request, e.g. .lines 3 LIST?")
		return
	}
	req, err := c.request(strings.TrimSpace(text))
	if err != nil {
		printError(err.Error())
		return
	}

	opCtx, cancel := context.WithTimeout(ctx, c.settings.timeout)
	defer cancel()

	for line, err := range c.sock.WriteReadLines(opCtx, req, n) {
		if err != nil {
			printError(err.Error())
			return
		}
		fmt.Println(displayReply(line, c.settings.separator))
	}
}

// drain prints one reply line if one arrives within the timeout.
func (c *console) drain(ctx context.Context) {
	opCtx, cancel := context.WithTimeout(ctx, c.settings.timeout)
	defer cancel()

	line, err := c.sock.ReadLine(opCtx)
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		fmt.Println("(nothing pending)")
	case err != nil:
		printError(err.Error())
	default:
		c.printReply(line)
	}
}
