package sockio

import (
	"testing"
	"time"
)

func TestProtocolConstants(t *testing.T) {
	tests := []struct {
		name     string
		got      string
		expected string
	}{
		{"DefaultSeparator", DefaultSeparator, "\n"},
		{"DefaultRequest", DefaultRequest, "*IDN?\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.expected {
				t.Errorf("got %q, want %q", tt.got, tt.expected)
			}
		})
	}

	if DefaultReadLimit != 65536 {
		t.Errorf("DefaultReadLimit = %d, want 65536", DefaultReadLimit)
	}
	if ConnectionTimeout != 5*time.Second {
		t.Errorf("ConnectionTimeout = %v, want 5s", ConnectionTimeout)
	}
}

func TestAddr(t *testing.T) {
	tests := []struct {
		host     string
		port     int
		expected string
	}{
		{"localhost", 5025, "localhost:5025"},
		{"0", 5025, "0:5025"},
		{"192.168.1.20", 5025, "192.168.1.20:5025"},
		{"::1", 5025, "[::1]:5025"},
		{"fe80::1%eth0", 23, "[fe80::1%eth0]:23"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := Addr(tt.host, tt.port); got != tt.expected {
				t.Errorf("Addr(%q, %d) = %q, want %q", tt.host, tt.port, got, tt.expected)
			}
		})
	}
}
