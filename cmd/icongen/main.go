// Command icongen generates app icons from a text prompt and packages them
// into platform icon sets.
//
// Usage:
//
//	icongen [-config icongen.yaml] <command> [flags] [args]
//
// Commands:
//
//	generate  generate variants with a remote model and process them
//	instagram generate Instagram posts in a square, portrait, landscape or story size
//	process   process local images or an existing session directory
//	pack      pack PNG files into an .ico container, or verify one
//	info      show configuration, models, sizes and styles
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/nvr-ai/go-icongen/config"
	"github.com/nvr-ai/go-icongen/profiler"
)

// env is the state shared by every command.
type env struct {
	cfg     *config.Config
	logger  *zap.Logger
	timings *profiler.Timings
	stdout  io.Writer
}

type command struct {
	name    string
	summary string
	run     func(ctx context.Context, e *env, args []string) error
}

var commands = []command{
	{name: "generate", summary: "generate variants with a remote model and process them", run: runGenerate},
	{name: "instagram", summary: "generate Instagram posts in one of the post sizes", run: runInstagram},
	{name: "process", summary: "process local images or an existing session directory", run: runProcess},
	{name: "pack", summary: "pack PNG files into an .ico container, or verify one", run: runPack},
	{name: "info", summary: "show configuration, models, sizes and styles", run: runInfo},
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if err != flag.ErrHelp {
			fmt.Fprintf(os.Stderr, "icongen: %v\n", err)
		}
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("icongen", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", config.DefaultPath, "Path to the YAML configuration file")
	verbose := fs.Bool("v", false, "Enable debug logging")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: icongen [-config path] [-v] <command> [flags] [args]\n\nCommands:\n")
		for _, c := range commands {
			fmt.Fprintf(stderr, "  %-9s %s\n", c.name, c.summary)
		}
		fmt.Fprintf(stderr, "\nGlobal flags:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return flag.ErrHelp
	}

	var cmd *command
	for i := range commands {
		if commands[i].name == fs.Arg(0) {
			cmd = &commands[i]
		}
	}
	if cmd == nil {
		fs.Usage()
		return fmt.Errorf("unknown command %q", fs.Arg(0))
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *verbose {
		cfg.Log.Level = "debug"
	}
	logger, err := cfg.Log.NewLogger()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	e := &env{
		cfg:     cfg,
		logger:  logger,
		timings: profiler.NewTimings(),
		stdout:  stdout,
	}
	defer e.timings.Log(logger)

	return cmd.run(ctx, e, fs.Args()[1:])
}
