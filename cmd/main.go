package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"dataset-service/internal/utils"
	"dataset-service/internal/validator"
)

const usage = `usage: dataset-service <command> [flags]

commands:
  generate   generate a dataset, export it, build the store and validate it
  build      load an exported dataset (-from <dir>), build the store and validate it
  validate   validate the configured store
  serve      serve the read API over the configured store
`

// options are the flags shared by every command.
type options struct {
	configPath   string
	seed         uint64
	seedSet      bool
	out          string
	reportFormat string
	from         string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stderr)
	stop()
	os.Exit(code)
}

// run executes a command and returns the process exit status: 0 on
// success, 2 when validation fails, 1 on any other error.
func run(ctx context.Context, args []string, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return 1
	}

	command := args[0]
	opts, err := parseFlags(command, args[1:], stderr)
	if err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(stderr, err)
		}
		return 1
	}

	switch command {
	case "generate":
		err = runGenerate(ctx, opts)
	case "build":
		err = runBuild(ctx, opts)
	case "validate":
		err = runValidate(ctx, opts)
	case "serve":
		err = runServe(ctx, opts)
	}
	return exitCode(err)
}

func parseFlags(command string, args []string, stderr io.Writer) (*options, error) {
	switch command {
	case "generate", "build", "validate", "serve":
	default:
		fmt.Fprint(stderr, usage)
		return nil, fmt.Errorf("unknown command %q", command)
	}

	opts := &options{}
	fs := flag.NewFlagSet(command, flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.configPath, "config", "", "path to a config file")
	fs.StringVar(&opts.out, "out", "", "export directory (overrides export.dir)")
	fs.StringVar(&opts.reportFormat, "report-format", "", "report format: json or yaml (overrides export.report_format)")
	if command == "generate" {
		fs.Uint64Var(&opts.seed, "seed", 0, "generation seed (overrides generator.seed)")
	}
	if command == "build" {
		fs.StringVar(&opts.from, "from", "", "directory holding exported dataset files")
	}
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "seed" {
			opts.seedSet = true
		}
	})

	if command == "build" && opts.from == "" {
		return nil, errors.New("build requires -from <dir>")
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	return opts, nil
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, validator.ErrValidationFailed):
		utils.Log.WithError(err).Warn("Dataset failed validation")
		return 2
	default:
		utils.Log.WithError(err).Error("Command failed")
		return 1
	}
}
