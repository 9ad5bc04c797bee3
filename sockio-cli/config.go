// =============================================================================
// config.go - Configuration File Discovery and Settings Resolution
// =============================================================================
//
// Handles the optional YAML configuration file and merges it with the
// command-line flags into the final settings used by the CLI.
//
// The configuration file search order:
//   1. The path given with --config (must exist)
//   2. The path in the SOCKIO_CONFIG environment variable (must exist)
//   3. ./sockio.yaml in the current directory
//   4. ~/.config/sockio/config.yaml
//
// A missing file in steps 3 and 4 is not an error: the CLI runs on flags
// and built-in defaults alone.
//
// Precedence when both are given: flags > config file > defaults.
//
// Example file:
//
//	host: 192.168.1.20
//	port: 5025
//	request: "*IDN?\n"
//	timeout: 3s
//	auto_reconnect: true
//	separator: "\n"
//	history_file: ~/.sockio_history
//
// =============================================================================

package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sockio/sockio-go/sockio"
	"gopkg.in/yaml.v3"
)

const (
	// configEnvVar names an environment variable holding a config file path.
	configEnvVar = "SOCKIO_CONFIG"

	// configFileName is looked up in the current directory.
	configFileName = "sockio.yaml"

	// defaultHost is "0", which dials the local machine.
	defaultHost = "0"

	// defaultTimeout bounds each request when neither flag nor file sets one.
	defaultTimeout = 10 * time.Second
)

// GO CONCEPT: Struct Tags
// -----------------------
// The backquoted strings after each field are "struct tags". They are
// metadata read at runtime through reflection. The yaml.v3 decoder reads
// the `yaml:"..."` tag to map file keys to fields, so the Go field
// AutoReconnect matches the file key auto_reconnect.
//
// Tags do nothing on their own; only code that looks for them (encoders,
// decoders, validators) gives them meaning.
//
// Compare with Swift: Codable uses a CodingKeys enum to rename keys:
//   enum CodingKeys: String, CodingKey { case autoReconnect = "auto_reconnect" }
//
// Compare with Python: pydantic uses Field(alias="auto_reconnect"), and
// dataclasses need a custom loader for renamed keys.

// fileConfig mirrors the YAML configuration file. Zero values mean "not
// set in the file".
type fileConfig struct {
	Host    string        `yaml:"host"`
	Port    int           `yaml:"port"`
	Request string        `yaml:"request"`
	Timeout time.Duration `yaml:"timeout"`

	// AutoReconnect is a pointer so that "false" in the file can be told
	// apart from a missing key.
	AutoReconnect *bool `yaml:"auto_reconnect"`

	Separator   string `yaml:"separator"`
	HistoryFile string `yaml:"history_file"`
}

// settings are the resolved values the CLI runs with.
type settings struct {
	host          string
	port          int
	request       []byte
	timeout       time.Duration
	autoReconnect bool
	separator     []byte
	historyFile   string
}

// findConfigFile returns the configuration file to load, or "" if there is
// none. An explicitly named file (flag or environment) must exist.
func findConfigFile(explicit string) (string, error) {
	// 1. --config flag
	if explicit != "" {
		if !isRegularFile(explicit) {
			return "", fmt.Errorf("config file %s not found", explicit)
		}
		return explicit, nil
	}

	// 2. SOCKIO_CONFIG environment variable
	if fromEnv := os.Getenv(configEnvVar); fromEnv != "" {
		if !isRegularFile(fromEnv) {
			return "", fmt.Errorf("config file %s (from %s) not found", fromEnv, configEnvVar)
		}
		return fromEnv, nil
	}

	// 3. and 4. well-known locations
	candidates := []string{configFileName}
	if home := homeDir(); home != "" {
		candidates = append(candidates, filepath.Join(home, ".config", "sockio", "config.yaml"))
	}
	for _, candidate := range candidates {
		if isRegularFile(candidate) {
			return candidate, nil
		}
	}
	return "", nil
}

// GO CONCEPT: Strict Decoding
// ---------------------------
// By default yaml.v3 ignores keys that have no matching struct field.
// Decoder.KnownFields(true) turns unknown keys into errors, so a typo
// such as "auto_reconect" is reported instead of silently ignored.
//
// Compare with Python: pydantic's `model_config = {"extra": "forbid"}`
// does the same for model validation.

// loadConfig reads and decodes a YAML configuration file. An empty file
// yields an empty configuration.
func loadConfig(path string) (fileConfig, error) {
	var cfg fileConfig

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return cfg, nil
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

// resolveSettings merges flags, file and defaults, and validates the result.
func resolveSettings(args arguments, cfg fileConfig) (settings, error) {
	st := settings{
		host:          firstNonEmpty(args.host, cfg.Host, defaultHost),
		port:          args.port,
		timeout:       args.timeout,
		autoReconnect: true,
	}

	if st.port == 0 {
		st.port = cfg.Port
	}
	if st.port == 0 {
		return st, fmt.Errorf("no port given (use --port or set port in the config file)")
	}
	if st.port < 1 || st.port > 65535 {
		return st, fmt.Errorf("port %d out of range 1-65535", st.port)
	}

	if st.timeout == 0 {
		st.timeout = cfg.Timeout
	}
	if st.timeout == 0 {
		st.timeout = defaultTimeout
	}
	if st.timeout < 0 {
		return st, fmt.Errorf("timeout must be positive, got %v", st.timeout)
	}

	if cfg.AutoReconnect != nil {
		st.autoReconnect = *cfg.AutoReconnect
	}
	if args.noReconnect {
		st.autoReconnect = false
	}

	request, err := decodeEscapes(firstNonEmpty(args.request, cfg.Request, sockio.DefaultRequest))
	if err != nil {
		return st, fmt.Errorf("request: %w", err)
	}
	st.request = request

	separator, err := decodeEscapes(firstNonEmpty(cfg.Separator, sockio.DefaultSeparator))
	if err != nil {
		return st, fmt.Errorf("separator: %w", err)
	}
	if len(separator) == 0 {
		return st, fmt.Errorf("separator must not be empty")
	}
	st.separator = separator

	st.historyFile = expandHome(firstNonEmpty(cfg.HistoryFile, filepath.Join(homeDir(), historyFileName)))
	return st, nil
}

// firstNonEmpty returns the first non-empty string, or "".
func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// expandHome replaces a leading "~/" with the user's home directory.
func expandHome(path string) string {
	if rest, ok := strings.CutPrefix(path, "~/"); ok {
		return filepath.Join(homeDir(), rest)
	}
	return path
}

// isRegularFile checks that path exists and is not a directory.
func isRegularFile(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular()
}

// homeDir returns the current user's home directory.
func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return home
}
