// Package cli provides shared utilities for the cix command-line tools:
// subcommand dispatch, exit codes, config loading and output helpers.
package cli

import (
	"context"
	"errors"
	"flag"
	"io"
	"log"

	"github.com/albertocavalcante/cix/internal/cixconfig"
	"github.com/albertocavalcante/cix/internal/version"
)

// Command defines one subcommand of a multi-command tool.
type Command struct {
	Name    string
	Summary string
	// Run receives the arguments after the command name and returns a
	// process exit code.
	Run func(ctx context.Context, args []string, stdout, stderr io.Writer) int
}

// Dispatch runs the command named by args[0] and returns its exit code.
func Dispatch(ctx context.Context, tool string, commands []Command, args []string, stdout, stderr io.Writer) int {
	usage := func(w io.Writer) {
		Writef(w, "Usage: %s <command> [flags] [args]\n\nCommands:\n", tool)
		for _, c := range commands {
			Writef(w, "  %-10s %s\n", c.Name, c.Summary)
		}
		Writef(w, "  %-10s %s\n", "version", "print version and exit")
		Writef(w, "\nRun '%s <command> -h' for command flags.\n", tool)
	}

	if len(args) == 0 {
		usage(stderr)
		return ExitError
	}
	switch args[0] {
	case "-h", "-help", "--help", "help":
		usage(stdout)
		return ExitOK
	case "version", "-version", "--version":
		Writef(stdout, "%s %s\n", tool, version.String())
		return ExitOK
	}

	for _, c := range commands {
		if c.Name == args[0] {
			return c.Run(ctx, args[1:], stdout, stderr)
		}
	}
	Writef(stderr, "%s: unknown command %q\n", tool, args[0])
	usage(stderr)
	return ExitError
}

// ParseFlags parses args into fs. It reports the exit code to return when
// parsing ends the command: ExitOK for -h, ExitError for bad flags.
func ParseFlags(fs *flag.FlagSet, args []string) (code int, done bool) {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return ExitOK, true
		}
		return ExitError, true
	}
	return ExitOK, false
}

// SetupLogging routes the standard logger to stderr when verbose and
// discards it otherwise.
func SetupLogging(verbose bool, stderr io.Writer) {
	if verbose {
		log.SetOutput(stderr)
		log.SetFlags(log.Ltime | log.Lshortfile)
		return
	}
	log.SetOutput(io.Discard)
}

// LoadConfig loads the config file at path, or discovers one by walking up
// from dir when path is empty. An empty dir means the working directory.
func LoadConfig(path, dir string) (*cixconfig.Config, error) {
	if path != "" {
		return cixconfig.LoadConfig(path)
	}
	cfg, found, err := cixconfig.DiscoverConfig(dir)
	if err != nil {
		return nil, err
	}
	if found != "" {
		log.Printf("config: using %s", found)
	}
	return cfg, nil
}
