package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/convoy-build/convoy/internal/app"
	"github.com/convoy-build/convoy/internal/cli"
	"github.com/convoy-build/convoy/internal/config"
	"github.com/convoy-build/convoy/internal/hcl"
)

// main is the entrypoint for the convoy application.
func main() {
	// Use a minimal logger until the full one is configured.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	// The real main function handles errors and exit codes.
	if err := run(os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps error kinds onto process exit codes: 2 for configuration
// faults, 1 for a run that executed but failed.
func exitCode(err error) int {
	var exitErr *cli.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	var cfgErr *config.ConfigError
	if errors.As(err, &cfgErr) {
		return 2
	}
	return 1
}

// run encapsulates the main application logic for easier testing and error handling.
func run(outW io.Writer, args []string) error {
	appConfig, shouldExit, err := cli.Parse(args, outW)
	if err != nil {
		return err
	}
	if shouldExit {
		return nil
	}

	// Instantiate the concrete HCL loader to pass to the app.
	loader := hcl.NewLoader()
	convoyApp, err := app.NewApp(outW, appConfig, loader)
	if err != nil {
		return err
	}

	return convoyApp.Run(context.Background())
}
