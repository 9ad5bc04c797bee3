// =============================================================================
// mockserver_test.go - Mock TCP Instrument for Testing
// =============================================================================
//
// GO CONCEPT: Test Helpers (Shared Test Infrastructure)
// -----------------------------------------------------
// Go test files (*_test.go) are ONLY compiled during testing. They can
// define helper types and functions used across multiple test files in the
// same package. This file provides a mock instrument that listens on a
// loopback TCP port and answers line-oriented requests, so the CLI can be
// tested without real hardware.
//
// Compare with Python: pytest uses `conftest.py` files for shared test
// infrastructure. Fixtures defined there are automatically available to
// all test files in the directory.
//
// =============================================================================

package main

import (
	"bufio"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"testing"
)

// mockInstrument is a lightweight SCPI-style instrument for testing.
//
// It accepts any number of connections on 127.0.0.1 and calls handler for
// each received line. The line "BYE" makes the instrument hang up, which
// lets tests exercise reconnection.
type mockInstrument struct {
	// listener accepts client connections.
	listener net.Listener

	// handler returns the reply for one request line (without the
	// separator). An empty reply sends nothing back.
	handler func(request string) string

	// mu protects connections and accepted.
	mu sync.Mutex

	// connections tracks all active client connections for cleanup.
	connections []net.Conn

	// accepted counts connections accepted so far.
	accepted int

	// wg tracks all goroutines spawned by the instrument.
	wg sync.WaitGroup
}

// startMockInstrument starts a mock instrument on a free loopback port.
// It is stopped automatically when the test finishes. A nil handler uses
// scpiHandler.
func startMockInstrument(t *testing.T, handler func(request string) string) *mockInstrument {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}

	if handler == nil {
		handler = scpiHandler
	}

	mi := &mockInstrument{
		listener: listener,
		handler:  handler,
	}

	mi.wg.Add(1)
	go mi.acceptLoop()

	t.Cleanup(mi.stop)
	return mi
}

// host returns the listening address without the port.
func (mi *mockInstrument) host() string {
	return "127.0.0.1"
}

// port returns the listening TCP port.
func (mi *mockInstrument) port() int {
	_, portText, _ := net.SplitHostPort(mi.listener.Addr().String())
	port, _ := strconv.Atoi(portText)
	return port
}

// acceptedCount returns how many connections have been accepted.
func (mi *mockInstrument) acceptedCount() int {
	mi.mu.Lock()
	defer mi.mu.Unlock()
	return mi.accepted
}

// acceptLoop runs in a goroutine, accepting and handling connections.
func (mi *mockInstrument) acceptLoop() {
	defer mi.wg.Done()

	for {
		conn, err := mi.listener.Accept()
		if err != nil {
			// Listener was closed (normal shutdown).
			return
		}

		mi.mu.Lock()
		mi.connections = append(mi.connections, conn)
		mi.accepted++
		mi.mu.Unlock()

		mi.wg.Add(1)
		go mi.handleConnection(conn)
	}
}

// handleConnection answers requests until the client leaves or says BYE.
func (mi *mockInstrument) handleConnection(conn net.Conn) {
	defer mi.wg.Done()
	defer conn.Close()

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		request := strings.TrimSuffix(scanner.Text(), "\r")
		if request == "BYE" {
			return
		}
		if reply := mi.handler(request); reply != "" {
			fmt.Fprint(conn, reply)
		}
	}
}

// stop closes the listener and all connections, then waits for the
// handler goroutines.
func (mi *mockInstrument) stop() {
	mi.listener.Close()

	mi.mu.Lock()
	for _, conn := range mi.connections {
		conn.Close()
	}
	mi.connections = nil
	mi.mu.Unlock()

	mi.wg.Wait()
}

// scpiHandler answers a few SCPI-like requests:
//
//	*IDN?      -> ACME,Model1,0001,1.0
//	ECHO <x>   -> <x>
//	LIST?      -> three lines: one, two, three
//	*RST       -> no reply
//	BIN?       -> four raw bytes 0x01 0x02 0x03 0x04 and a newline
//
// Anything else gets ERR.
func scpiHandler(request string) string {
	switch {
	case request == "*IDN?":
		return "ACME,Model1,0001,1.0\n"
	case strings.HasPrefix(request, "ECHO "):
		return strings.TrimPrefix(request, "ECHO ") + "\n"
	case request == "LIST?":
		return "one\ntwo\nthree\n"
	case request == "*RST":
		return ""
	case request == "BIN?":
		return "\x01\x02\x03\x04\n"
	default:
		return "ERR\n"
	}
}
