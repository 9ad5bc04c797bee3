// =============================================================================
// main.go - sockio CLI Entry Point
// =============================================================================
//
// sockio-cli talks to line-oriented TCP instruments (SCPI power supplies,
// multimeters, motion controllers, ...) through the sockio library. It has
// two modes:
//
//   - One-shot (default): send one request, print the first reply line,
//     exit. Handy in shell scripts and for checking that an instrument is
//     reachable.
//   - Interactive (-i): a console with line editing and history, where
//     each line is a request and dot-commands inspect or steer the
//     connection.
//
// Usage:
//
//	sockio-cli -p 5025                          Ask localhost for *IDN?
//	sockio-cli --host 10.0.0.5 -p 5025 -r 'MEAS:VOLT?\n'
//	sockio-cli --host 10.0.0.5 -p 5025 -i       Open the console
//	sockio-cli --config lab.yaml -i             Target from a config file
//
// The connection is opened on the first request and reopened after the
// instrument drops it, unless --no-reconnect is given.
//
// =============================================================================

// GO CONCEPT: Package main
// ------------------------
// A directory whose files declare "package main" builds into an executable,
// and its func main() is the entry point. The directory name (sockio-cli)
// becomes the binary name with "go build", independent of the package name.
//
// Compare to Swift: an executable target with main.swift or an @main type.
//
// Compare with Python: a module run as a script, guarded by
// `if __name__ == "__main__":`.
package main

// GO CONCEPT: Importing Your Own Library
// --------------------------------------
// The CLI imports the library by its full module path plus directory:
// "github.com/sockio/sockio-go/sockio". Both live in the same module
// (one go.mod at the repository root), so no version is involved; the
// compiler simply builds the library from the neighbouring directory.
//
// External packages used here:
//   - go.uber.org/zap: structured logging, enabled with --verbose
//
// Compare to Swift: a package with a library target and an executable
// target that depends on it.
//
// Compare with Python: a package with a console_scripts entry point
// that imports the library from the same distribution.
import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/sockio/sockio-go/sockio"
	"go.uber.org/zap"
)

// =============================================================================
// Version Information
// =============================================================================

const (
	// version is the current version of the CLI.
	version = "0.3.0"

	// appName is the application name.
	appName = "sockio"

	// exitFailure is the exit status for errors.
	exitFailure = 1

	// exitInterrupted is the conventional status after SIGINT (128 + 2).
	exitInterrupted = 130
)

// fullTitle returns the application name with version.
func fullTitle() string {
	return fmt.Sprintf("%s v%s", appName, version)
}

// welcomeBanner returns the banner displayed when the console starts.
func welcomeBanner(st settings) string {
	reconnect := "on"
	if !st.autoReconnect {
		reconnect = "off"
	}
	return fmt.Sprintf(`%s - managed TCP console
Target %s, timeout %v, auto-reconnect %s

Type '.help' for available commands.
Type '.quit' to exit.
`, fullTitle(), sockio.Addr(st.host, st.port), st.timeout, reconnect)
}

// =============================================================================
// Command-Line Arguments
// =============================================================================

// GO CONCEPT: Zero Values as "Not Given"
// --------------------------------------
// Every Go type has a zero value: "" for strings, 0 for numbers, false for
// bools. The arguments struct uses them to mean "flag not given", so the
// config file or the built-in default can fill the gap later. A port of 0
// or a timeout of 0 would be useless anyway, so no value is lost.
//
// Compare to Swift: the same struct would use optionals (Int?, String?)
// and nil to mean "not given".
//
// Compare with Python: argparse uses default=None for the same purpose.

// arguments holds the parsed command-line arguments.
type arguments struct {
	// host is the instrument host name or address. "" means not given.
	host string

	// port is the TCP port. 0 means not given.
	port int

	// request is the one-shot request with escapes still encoded.
	request string

	// interactive starts the console instead of one-shot mode.
	interactive bool

	// configPath is an explicit YAML configuration file.
	configPath string

	// noReconnect disables auto-reconnect.
	noReconnect bool

	// timeout bounds each request. 0 means not given.
	timeout time.Duration

	// verbose enables development logging on stderr.
	verbose bool

	// showHelp causes usage information to be printed and the program to exit.
	showHelp bool

	// showVersion causes version information to be printed and the program to exit.
	showVersion bool
}

// parseArguments parses argv (without the program name).
//
// This is a small hand-written parser: ten flags and no subcommands do not
// need a framework. Long flags also accept the "--name=value" form.
//
// GO CONCEPT: Returning Errors Instead of Exiting
// -----------------------------------------------
// A parser that calls os.Exit on bad input cannot be tested, because the
// test binary would exit with it. Returning an error lets main decide
// what to do and lets tests check the message.
//
// Compare with Python: argparse exits by default; ArgumentParser(
// exit_on_error=False) raises ArgumentError instead, for the same reason.
func parseArguments(argv []string) (arguments, error) {
	var args arguments
	remaining := argv

	// value returns the flag's argument, either inline (--port=5025) or
	// the next word (--port 5025).
	value := func(flag, inline string, hasInline bool) (string, error) {
		if hasInline {
			return inline, nil
		}
		if len(remaining) == 0 {
			return "", fmt.Errorf("%s requires an argument", flag)
		}
		v := remaining[0]
		remaining = remaining[1:]
		return v, nil
	}

	for len(remaining) > 0 {
		arg := remaining[0]
		remaining = remaining[1:]

		flag, inline, hasInline := arg, "", false
		if strings.HasPrefix(arg, "--") {
			flag, inline, hasInline = strings.Cut(arg, "=")
		}

		switch flag {
		case "--host":
			v, err := value(flag, inline, hasInline)
			if err != nil {
				return args, err
			}
			args.host = v

		case "-p", "--port":
			v, err := value(flag, inline, hasInline)
			if err != nil {
				return args, err
			}
			port, err := strconv.Atoi(v)
			if err != nil || port < 1 || port > 65535 {
				return args, fmt.Errorf("invalid port %q", v)
			}
			args.port = port

		case "-r", "--request":
			v, err := value(flag, inline, hasInline)
			if err != nil {
				return args, err
			}
			if v == "" {
				return args, fmt.Errorf("%s must not be empty", flag)
			}
			args.request = v

		case "-i", "--interactive":
			args.interactive = true

		case "--config":
			v, err := value(flag, inline, hasInline)
			if err != nil {
				return args, err
			}
			args.configPath = v

		case "--no-reconnect":
			args.noReconnect = true

		case "--timeout":
			v, err := value(flag, inline, hasInline)
			if err != nil {
				return args, err
			}
			d, err := time.ParseDuration(v)
			if err != nil || d <= 0 {
				return args, fmt.Errorf("invalid timeout %q (use e.g. 500ms, 3s)", v)
			}
			args.timeout = d

		case "--verbose":
			args.verbose = true

		case "--help", "-h":
			args.showHelp = true

		case "--version", "-v":
			args.showVersion = true

		default:
			return args, fmt.Errorf("Unknown argument: %s", arg)
		}
	}

	return args, nil
}

// =============================================================================
// Help and Usage
// =============================================================================

// printUsage prints usage information to stdout.
func printUsage() {
	fmt.Print(`USAGE: sockio-cli [options]

OPTIONS:
  --host <host>         Instrument host (default: 0, the local machine)
  -p, --port <port>     Instrument TCP port
  -r, --request <req>   One-shot request (default: *IDN?\n)
  -i, --interactive     Start the interactive console
  --config <path>       YAML configuration file
  --no-reconnect        Do not reopen a dropped connection
  --timeout <duration>  Per-request timeout (default: 10s)
  --verbose             Log connection events to stderr
  --help, -h            Show this help
  --version, -v         Show version

REQUESTS:
  Requests may contain the escapes \n \r \t \0 \\ and \xNN. The one-shot
  request is sent exactly as given; console requests get the separator
  appended.

CONFIGURATION:
  Without --config, the file named by $SOCKIO_CONFIG, ./sockio.yaml or
  ~/.config/sockio/config.yaml is used if present. Flags take precedence.
  Keys: host, port, request, timeout, auto_reconnect, separator,
  history_file.

EXAMPLES:
  sockio-cli -p 5025                             Identify a local instrument
  sockio-cli --host 10.0.0.5 -p 5025 -r 'MEAS?\n'  One measurement
  sockio-cli --host 10.0.0.5 -p 5025 -i          Interactive console
`)
}

// printVersion prints version information to stdout.
func printVersion() {
	fmt.Println(fullTitle())
}

// printError prints an error message to stderr.
func printError(message string) {
	fmt.Fprintf(os.Stderr, "Error: %s\n", message)
}

// =============================================================================
// Socket and Logging Setup
// =============================================================================

// GO CONCEPT: Structured Logging with zap
// ---------------------------------------
// zap logs key/value fields instead of formatted strings:
//   logger.Info("connected", zap.String("addr", addr))
// The development configuration prints human-readable lines to stderr;
// production configurations emit JSON. zap.NewNop() returns a logger that
// discards everything at almost no cost, so library code can log
// unconditionally.
//
// Compare to Swift: os.Logger with privacy-annotated interpolations.
//
// Compare with Python: structlog, or logging with `extra={...}` fields.

// newLogger returns a development logger when verbose is set, otherwise a
// no-op logger.
func newLogger(verbose bool) *zap.Logger {
	if !verbose {
		return zap.NewNop()
	}
	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: logger init failed (%v), logging disabled\n", err)
		return zap.NewNop()
	}
	return logger
}

// newSocket creates the managed socket for the resolved settings.
func newSocket(st settings, logger *zap.Logger) *sockio.Socket {
	return sockio.New(st.host, st.port,
		sockio.WithAutoReconnect(st.autoReconnect),
		sockio.WithSeparator(st.separator),
		sockio.WithLogger(logger),
	)
}

// runOneShot sends the configured request and returns the first reply line
// ready for display.
func runOneShot(ctx context.Context, sock *sockio.Socket, st settings) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, st.timeout)
	defer cancel()

	reply, err := sock.WriteReadLine(ctx, st.request)
	if err != nil {
		return "", err
	}
	if len(reply) == 0 {
		return "", fmt.Errorf("no reply (connection closed by %s)", sock.Addr())
	}
	return displayReply(reply, st.separator), nil
}

// =============================================================================
// Signal Handling
// =============================================================================

// GO CONCEPT: Cancellation with context.Context
// ---------------------------------------------
// A context carries a cancellation signal through call chains. Every
// sockio operation takes one; cancelling it makes a blocked read or write
// return context.Canceled promptly and releases the socket for others.
//
// Here SIGINT/SIGTERM cancel the run context, then the socket is closed
// and the process exits. Closing happens in the signal goroutine because
// the console may be blocked in a terminal read that no context reaches.
//
// Compare to Swift: Task cancellation, checked with Task.isCancelled and
// propagated to child tasks.
//
// Compare with Python: asyncio task.cancel(), which raises
// CancelledError inside the awaited coroutine.

// setupSignalHandler cancels the run context and runs cleanup when SIGINT
// or SIGTERM arrives, then exits.
func setupSignalHandler(cancel context.CancelFunc, cleanup func()) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		fmt.Println()
		cancel()
		cleanup()
		os.Exit(exitInterrupted)
	}()
}

// =============================================================================
// Main
// =============================================================================

func main() {
	args, err := parseArguments(os.Args[1:])
	if err != nil {
		printError(err.Error())
		printUsage()
		os.Exit(exitFailure)
	}

	if args.showHelp {
		printUsage()
		return
	}
	if args.showVersion {
		printVersion()
		return
	}

	os.Exit(run(args))
}

// run executes the CLI with parsed arguments and returns the exit status.
// Deferred cleanups run before main calls os.Exit.
func run(args arguments) int {
	configPath, err := findConfigFile(args.configPath)
	if err != nil {
		printError(err.Error())
		return exitFailure
	}
	var cfg fileConfig
	if configPath != "" {
		if cfg, err = loadConfig(configPath); err != nil {
			printError(err.Error())
			return exitFailure
		}
	}

	st, err := resolveSettings(args, cfg)
	if err != nil {
		printError(err.Error())
		return exitFailure
	}

	logger := newLogger(args.verbose)
	defer logger.Sync()
	if configPath != "" {
		logger.Debug("config loaded", zap.String("path", configPath))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sock := newSocket(st, logger)
	defer sock.Close()

	if !args.interactive {
		setupSignalHandler(cancel, func() { sock.Close() })

		out, err := runOneShot(ctx, sock, st)
		if err != nil {
			printError(err.Error())
			return exitFailure
		}
		fmt.Println(out)
		return 0
	}

	editor := NewLineEditor(st.historyFile)
	defer editor.Close()
	setupSignalHandler(cancel, func() {
		sock.Close()
		editor.Close()
	})

	fmt.Print(welcomeBanner(st))
	fmt.Println()
	runREPL(ctx, sock, editor, st)
	return 0
}
