// =============================================================================
// translate.go - Request Encoding and Reply Display
// =============================================================================
//
// This file converts between what the user types and the bytes that travel
// over the socket, in both directions:
//
//   - Requests: the user types escape sequences such as "\n" or "\x06" on
//     the command line or at the console prompt. decodeEscapes turns them
//     into raw bytes before they are sent.
//   - Replies: instruments answer with raw bytes that may include control
//     characters. displayReply trims the line terminator and escapes
//     anything unprintable so the terminal stays readable.
//
// It also splits console input into dot-commands and their arguments.
//
// Examples:
//   decodeEscapes(`*IDN?\n`)            → "*IDN?" + LF
//   decodeEscapes(`\x1bR`)              → ESC "R"
//   displayReply("ACME,1.0\r\n")        → "ACME,1.0"
//   displayReply("\x06")                → `\x06`
//   splitDotCommand(".lines 3 LIST?")   → ("lines", "3 LIST?")
//
// =============================================================================

package main

// GO CONCEPT: Bytes vs Strings
// ----------------------------
// Go strings are immutable sequences of bytes; []byte is a mutable slice
// of bytes. Converting between them copies the data:
//
//   b := []byte(s)    // string to bytes
//   s := string(b)    // bytes to string
//
// Network code in Go works with []byte because reads and writes fill or
// drain byte buffers. User-facing code works with strings. This file sits
// on the boundary, so it accepts strings and returns []byte for requests,
// and accepts []byte and returns strings for display.
//
// Compare with Swift: Swift separates String (Unicode text) from Data
// (raw bytes). Converting needs an explicit encoding:
//   let data = "hello".data(using: .utf8)!
//
// Compare with Python: Python 3 separates str and bytes the same way:
//   b = "hello".encode()   # str → bytes
//   s = b.decode()         # bytes → str
// Unlike Go, Python's decode fails on invalid UTF-8 unless told otherwise.
import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sockio/sockio-go/sockio"
)

// decodeEscapes converts C-style escape sequences in s into raw bytes.
//
// Supported sequences: \n \r \t \0 \\ and \xNN (two hex digits). Any other
// backslash sequence is an error so that typos are not sent silently.
//
// GO CONCEPT: Iterating Over Bytes
// --------------------------------
// "for i := 0; i < len(s); i++" walks a string byte by byte, and s[i] is a
// byte. "for i, r := range s" would instead walk runes (Unicode code
// points), decoding UTF-8 as it goes. Escape sequences are pure ASCII, so
// byte-wise iteration is both simpler and exact here: any non-ASCII
// input is copied through unchanged.
//
// Compare with Python: iterating over bytes yields ints (`for b in data:`),
// iterating over str yields one-character strings.
func decodeEscapes(s string) ([]byte, error) {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' {
			out = append(out, c)
			continue
		}
		if i+1 >= len(s) {
			return nil, fmt.Errorf("trailing backslash in %q", s)
		}
		i++
		switch s[i] {
		case 'n':
			out = append(out, '\n')
		case 'r':
			out = append(out, '\r')
		case 't':
			out = append(out, '\t')
		case '0':
			out = append(out, 0)
		case '\\':
			out = append(out, '\\')
		case 'x':
			if i+2 >= len(s) {
				return nil, fmt.Errorf("incomplete \\x escape in %q", s)
			}
			// ParseUint with base 16 and bitSize 8 rejects values > 0xFF.
			v, err := strconv.ParseUint(s[i+1:i+3], 16, 8)
			if err != nil {
				return nil, fmt.Errorf("invalid \\x escape %q in %q", s[i-1:i+3], s)
			}
			out = append(out, byte(v))
			i += 2
		default:
			return nil, fmt.Errorf("unknown escape \\%c in %q", s[i], s)
		}
	}
	return out, nil
}

// withSeparator returns request with sep appended, unless it already ends
// with sep. Console input never carries the line terminator, so every
// request typed at the prompt goes through here.
func withSeparator(request, sep []byte) []byte {
	if len(sep) == 0 || strings.HasSuffix(string(request), string(sep)) {
		return request
	}
	out := make([]byte, 0, len(request)+len(sep))
	out = append(out, request...)
	return append(out, sep...)
}

// GO CONCEPT: strings.Builder
// ---------------------------
// Building a string piece by piece with "+=" copies the whole string each
// time. strings.Builder appends into a growing buffer and produces the
// final string once, like Swift's String.append or Python's "".join(parts).

// displayReply renders a reply line for the terminal: the trailing
// separator (and a CR before LF) is removed and the rest is escaped.
func displayReply(reply, sep []byte) string {
	return escapeBytes(sockio.TrimLine(reply, sep))
}

// escapeBytes keeps printable ASCII and tabs, spells out \r and \n, and
// shows every other byte as \xNN.
func escapeBytes(data []byte) string {
	var b strings.Builder
	for _, c := range data {
		switch {
		case c == '\t' || (c >= 0x20 && c < 0x7f):
			b.WriteByte(c)
		case c == '\r':
			b.WriteString(`\r`)
		case c == '\n':
			b.WriteString(`\n`)
		default:
			fmt.Fprintf(&b, `\x%02x`, c)
		}
	}
	return b.String()
}

// splitDotCommand splits a console line starting with "." into a lowercase
// command name and its argument string. ok is false for anything that is
// not a dot-command, which the console sends to the instrument as is.
//
// GO CONCEPT: Named Result Parameters
// -----------------------------------
// "(name, args string, ok bool)" gives the results names. They start at
// their zero values and a bare "return" returns them as they are. Named
// results document what each value means, which helps when a function
// returns several values of the same type.
//
// Compare with Swift: a tuple return with labels, (name: String, args:
// String, ok: Bool), gives similar documentation at the call site.
//
// Compare with Python: a NamedTuple return type serves the same purpose.
func splitDotCommand(line string) (name, args string, ok bool) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, ".") || len(trimmed) == 1 {
		return
	}
	word, rest, _ := strings.Cut(trimmed[1:], " ")
	return strings.ToLower(word), strings.TrimSpace(rest), true
}
