package sockio

import (
	"fmt"

	"github.com/pkg/errors"
)

// Sentinel errors for socket operations.
var (
	// ErrAlreadyConnected indicates Open was called while a live connection exists.
	ErrAlreadyConnected = errors.New("already connected")

	// ErrNotConnected indicates I/O was attempted without a connection while
	// auto-reconnect is disabled.
	ErrNotConnected = errors.New("not connected")

	// ErrConnectFailed matches every *ConnectionError.
	ErrConnectFailed = errors.New("connect failed")

	// ErrIncompleteRead indicates the stream ended before a bounded read
	// request could be satisfied.
	ErrIncompleteRead = errors.New("incomplete read")

	// ErrSeparatorNotFound indicates the stream ended before the separator
	// was seen.
	ErrSeparatorNotFound = errors.New("separator not found")

	// ErrLineTooLong indicates a separator read exceeded the read limit.
	ErrLineTooLong = errors.New("line too long")
)

// ConnectionError represents a failure to establish the transport.
type ConnectionError struct {
	Message string
	Addr    string
	Cause   error
}

// Error implements the error interface.
func (e *ConnectionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("connection to %s failed: %s: %v", e.Addr, e.Message, e.Cause)
	}
	return fmt.Sprintf("connection to %s failed: %s", e.Addr, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *ConnectionError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is ErrConnectFailed.
func (e *ConnectionError) Is(target error) bool {
	return target == ErrConnectFailed
}

// NewConnectionError creates a new connection error.
func NewConnectionError(addr, message string, cause error) error {
	return &ConnectionError{Message: message, Addr: addr, Cause: cause}
}

// IncompleteReadError is returned when the peer closed the stream before
// the requested amount of data arrived. Partial holds what was read.
// Expected is -1 when the amount is a whole line of unknown length.
type IncompleteReadError struct {
	Partial  []byte
	Expected int
}

// Error implements the error interface.
func (e *IncompleteReadError) Error() string {
	if e.Expected < 0 {
		return fmt.Sprintf("incomplete read: %d bytes read before end of stream", len(e.Partial))
	}
	return fmt.Sprintf("incomplete read: %d bytes read on a total of %d expected bytes",
		len(e.Partial), e.Expected)
}

// Is reports whether target is ErrIncompleteRead.
func (e *IncompleteReadError) Is(target error) bool {
	return target == ErrIncompleteRead
}

// SeparatorNotFoundError is returned by ReadUntil when the stream ends
// before the separator was found.
type SeparatorNotFoundError struct {
	Partial   []byte
	Separator []byte
}

// Error implements the error interface.
func (e *SeparatorNotFoundError) Error() string {
	return fmt.Sprintf("separator %q not found: %d bytes read before end of stream",
		e.Separator, len(e.Partial))
}

// Is reports whether target is ErrSeparatorNotFound or ErrIncompleteRead.
func (e *SeparatorNotFoundError) Is(target error) bool {
	return target == ErrSeparatorNotFound || target == ErrIncompleteRead
}
