package sockio

import (
	"bytes"
)

// TrimLine removes a trailing separator from line, and a carriage return
// before a newline separator. Useful to turn a reply line into its text.
func TrimLine(line, sep []byte) []byte {
	if len(sep) == 0 {
		sep = []byte(DefaultSeparator)
	}
	line = bytes.TrimSuffix(line, sep)
	if bytes.Equal(sep, []byte("\n")) {
		line = bytes.TrimSuffix(line, []byte("\r"))
	}
	return line
}
