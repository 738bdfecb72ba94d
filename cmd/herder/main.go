package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/Digital-Validation-Laboratory/mooseherder/internal/app"
	"github.com/Digital-Validation-Laboratory/mooseherder/internal/cli"
)

// main is the entrypoint for the herder application.
func main() {
	// Use a minimal logger until the full one is configured.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// The real main function handles errors and exit codes.
	if err := run(ctx, os.Stdout, os.Args[1:]); err != nil {
		var exitErr *cli.ExitError
		if errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, exitErr.Message)
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		stop()
		os.Exit(cli.ExitCode(err))
	}
}

// run encapsulates the main application logic for easier testing and error handling.
func run(ctx context.Context, outW io.Writer, args []string) error {
	inv, shouldExit, err := cli.Parse(args, outW)
	if err != nil {
		return err
	}
	if shouldExit {
		return nil
	}

	loader, err := cli.LoaderFor(inv.Config.ConfigPath)
	if err != nil {
		return err
	}
	herder, err := app.NewApp(outW, inv.Config, loader)
	if err != nil {
		return fmt.Errorf("startup failed: %w", err)
	}

	switch inv.Command {
	case cli.CommandRead:
		_, err = herder.Read(ctx)
	default:
		_, err = herder.Run(ctx)
	}
	return err
}
