// Package sockio provides a managed TCP client for line- and
// block-oriented request/response protocols such as SCPI.
//
// A Socket wraps one remote host:port. It reconnects transparently when
// the connection has dropped and guarantees that only one operation uses
// the connection at a time, so the request and reply of one caller are
// never interleaved with those of another.
//
// # Basic Usage
//
//	sock := sockio.New("192.168.1.20", 5025)
//	defer sock.Close()
//
//	// The first operation opens the connection.
//	reply, err := sock.WriteReadLine(ctx, []byte("*IDN?\n"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("%s", reply)
//
// # Multi-line Replies
//
// ReadLines, WriteReadLines and WriteLinesReadLines return a range-over-func
// sequence. The socket stays reserved for the caller until the loop ends,
// so no other goroutine can write between two lines of the reply:
//
//	for line, err := range sock.WriteReadLines(ctx, []byte("SYST:ERR:ALL?\n"), 3) {
//	    if err != nil {
//	        return err
//	    }
//	    fmt.Printf("%s", line)
//	}
//
// Breaking out of the loop releases the socket. Do not call other methods
// of the same Socket from inside the loop body.
//
// # Reconnection
//
// With auto-reconnect enabled (the default), each operation checks the
// connection when it starts and opens a new one if there is none or the
// peer closed the previous one. Failures during an operation are returned
// as they are; the next operation decides again. With auto-reconnect
// disabled, operations on a disconnected socket fail with ErrNotConnected.
//
// # Errors
//
//   - ErrAlreadyConnected: Open on a connected socket
//   - ErrConnectFailed: matches *ConnectionError from a failed dial
//   - ErrNotConnected: I/O without connection and without auto-reconnect
//   - ErrIncompleteRead: matches *IncompleteReadError (ReadExactly, ReadLines)
//   - ErrSeparatorNotFound: matches *SeparatorNotFoundError (ReadUntil)
//   - ErrLineTooLong: a separator read exceeded the read limit
//
// Close never fails.
//
// # Thread Safety
//
// The Socket type is safe for concurrent use from multiple goroutines.
// Operations run in the order in which they acquire the socket.
package sockio
