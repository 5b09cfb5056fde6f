package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/venuemap/explorer/internal/logging"
	intOtel "github.com/venuemap/explorer/internal/otel"
)

// module defs - BuildDate can be set at build time via ldflags
var (
	CurrentVersion string = "0.0.1"
	BuildDate      string = "unknown"

	AppName string = "venuemap"
)

// global variables
var (
	// SlogManager handles all slog-based logging
	SlogManager *logging.SlogManager

	// Logger is the slog logger (convenience reference)
	Logger *slog.Logger = slog.Default()

	// OTelProvider handles OpenTelemetry
	OTelProvider *intOtel.Provider

	LogFilePath string
	LogFile     *os.File

	// graylogCloser releases the GELF socket when graylog is enabled
	graylogCloser io.Closer

	SessionStartTime time.Time = time.Now()
)

const usage = `usage: venuemap [command] [args]

commands:
  serve                          run the HTTP and websocket surfaces (default)
  panel                          run the terminal list panel
  export <query text> <file>     run one query and write the markers to an xlsx file
  version                        print version information
`

type command struct {
	name string
	args []string
}

func parseArgs(args []string) (command, error) {
	if len(args) == 0 {
		return command{name: "serve"}, nil
	}
	cmd := command{name: strings.ToLower(args[0]), args: args[1:]}
	switch cmd.name {
	case "serve", "panel", "version":
	case "help", "-h", "--help":
		cmd.name = "help"
	case "export":
		if len(cmd.args) != 2 {
			return cmd, fmt.Errorf("export needs a query text and an output file")
		}
		if strings.TrimSpace(cmd.args[0]) == "" {
			return cmd, fmt.Errorf("export: empty query text")
		}
	default:
		return cmd, fmt.Errorf("unknown command %q", args[0])
	}
	return cmd, nil
}

func configDir() string {
	if dir := os.Getenv("VENUEMAP_CONFIG_DIR"); dir != "" {
		return dir
	}
	return "."
}

func main() {
	cmd, err := parseArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	switch cmd.name {
	case "help":
		fmt.Print(usage)
		return
	case "version":
		fmt.Printf("%s %s (built %s)\n", AppName, CurrentVersion, BuildDate)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := setup(configDir(), cmd.name); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer shutdown()

	switch cmd.name {
	case "serve":
		err = serve(ctx)
	case "panel":
		err = runPanel(ctx)
	case "export":
		err = runExport(ctx, cmd.args[0], cmd.args[1])
	}
	if err != nil {
		Logger.Error("Command failed", "command", cmd.name, "error", err)
		fmt.Fprintln(os.Stderr, err)
		shutdown()
		os.Exit(1)
	}
}
