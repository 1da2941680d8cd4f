// wifitracker records probe request sightings and prints snapshots of the
// devices and networks seen.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/term"

	"github.com/xtxerr/wifitracker/internal/logging"
	"github.com/xtxerr/wifitracker/internal/storage"
	"github.com/xtxerr/wifitracker/internal/storage/config"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	// CLI flags
	cfgPath := flag.String("config", "config.yaml", "config file path")
	dataDir := flag.String("data-dir", "", "data directory (overrides config)")
	logLevel := flag.String("log-level", "", "log level (overrides config)")
	pretty := flag.Bool("pretty", false, "indented output (default when stdout is a terminal)")
	compact := flag.Bool("compact", false, "single-line output")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Usage = usage
	flag.Parse()

	if *showVersion {
		fmt.Println("wifitracker", Version)
		return
	}

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}

	// Load config
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "load config: %v\n", err)
			os.Exit(1)
		}
		cfg = config.DefaultConfig()
	}

	// CLI overrides
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	level, _ := logging.ParseLevel(cfg.Logging.Level)
	logging.Init(level, cfg.Logging.JSON)
	log := logging.Component("main")

	out := &output{
		w:      os.Stdout,
		pretty: prettyOutput(*pretty, *compact, term.IsTerminal(int(os.Stdout.Fd()))),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := storage.New(cfg)
	if err != nil {
		log.Error("unable to open storage", "error", err)
		os.Exit(1)
	}

	err = run(ctx, &env{svc: svc, out: out, stdin: os.Stdin}, args)

	if cerr := svc.Close(); cerr != nil {
		log.Error("unable to close storage", "error", cerr)
	}

	if err != nil {
		if errors.Is(err, errUsage) {
			os.Exit(2)
		}
		log.Error("command failed", "command", args[0], "error", err)
		os.Exit(1)
	}
}

// prettyOutput picks the output mode. Explicit flags win over terminal
// detection; -compact wins over -pretty.
func prettyOutput(pretty, compact, terminal bool) bool {
	switch {
	case compact:
		return false
	case pretty:
		return true
	default:
		return terminal
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: wifitracker [flags] <command> [args]\n\nCommands:\n")
	for _, c := range commands {
		fmt.Fprintf(os.Stderr, "  %-36s %s\n", c.name+" "+c.args, c.help)
	}
	fmt.Fprintf(os.Stderr, "\nFlags:\n")
	flag.PrintDefaults()
}
