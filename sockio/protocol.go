package sockio

import (
	"net"
	"strconv"
	"time"
)

// Framing and connection defaults.
const (
	// DefaultSeparator is the line separator used by line reads.
	DefaultSeparator = "\n"

	// DefaultRequest is the identification query understood by SCPI instruments.
	DefaultRequest = "*IDN?\n"

	// DefaultReadLimit is the buffer limit for line and separator reads, in bytes.
	DefaultReadLimit = 64 * 1024

	// ConnectionTimeout is the dial timeout used when the context has no deadline.
	ConnectionTimeout = 5 * time.Second

	// KeepAlivePeriod is the TCP keep-alive period of dialed connections.
	KeepAlivePeriod = 30 * time.Second

	// readChunkSize is how much the reader pump requests per socket read.
	readChunkSize = 4096
)

// Addr joins host and port into a dialable "host:port" address.
func Addr(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}
