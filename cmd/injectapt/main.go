// Command injectapt runs the dependency-injection annotation processors over
// Go packages and writes the generated bean files next to their sources.
//
// Usage:
//
//	injectapt [flags] <packages>...
//
// Processor options are given with -A key=value, any number of times, or
// read from .env, .yaml or .toml files with --options-file. For example, to
// write a bean index into the main package of an application:
//
//	injectapt -A annoinject.beans.index=example.com/app ./...
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/jhump/annoinject/beans"
	"github.com/jhump/annoinject/host"
	"github.com/jhump/annoinject/internal/ctxlog"
	"github.com/jhump/annoinject/processor"
)

func init() {
	beans.Register()
}

type flags struct {
	options      []string
	optionsFiles []string
	outputDir    string
	cacheDir     string
	includeTests bool
	maxRounds    int
	logLevel     string
	logFormat    string
	color        string
}

// errFailed is returned when processing reported errors. They were already
// printed, so main only sets the exit status.
var errFailed = errors.New("annotation processing failed")

func newRootCmd() *cobra.Command {
	var f flags
	cmd := &cobra.Command{
		Use:           "injectapt [flags] <packages>...",
		Short:         "Generate dependency-injection descriptors from annotated Go code",
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), &f, args)
		},
	}
	fl := cmd.Flags()
	fl.StringArrayVarP(&f.options, "option", "A", nil, "processor option, as key=value")
	fl.StringArrayVar(&f.optionsFiles, "options-file", nil, "file with processor options (.env, .yaml, .yml or .toml)")
	fl.StringVar(&f.outputDir, "output-dir", "", "root directory for generated files, organized by package path (default: next to the sources)")
	fl.StringVar(&f.cacheDir, "cache-dir", "", "directory for incremental build state")
	fl.BoolVar(&f.includeTests, "include-tests", false, "also process test files")
	fl.IntVar(&f.maxRounds, "max-rounds", host.DefaultMaxRounds, "maximum number of processing rounds")
	fl.StringVar(&f.logLevel, "log-level", "warn", "log level (debug|info|warn|error)")
	fl.StringVar(&f.logFormat, "log-format", "text", "log format (text|json)")
	fl.StringVar(&f.color, "color", "auto", "colorize diagnostics (auto|on|off)")
	return cmd
}

func run(ctx context.Context, f *flags, patterns []string) error {
	useColor, err := colorEnabled(f.color)
	if err != nil {
		return err
	}
	opts, err := host.LoadOptions(f.optionsFiles, f.options)
	if err != nil {
		return err
	}
	if f.outputDir != "" {
		if _, err := os.Stat(f.outputDir); err != nil {
			return fmt.Errorf("checking output directory: %w", err)
		}
	}

	logger := host.NewLogger(f.logLevel, f.logFormat, os.Stderr)
	msgr := host.NewConsoleMessager(os.Stderr, useColor)
	c := host.NewCompiler(host.Config{
		Patterns:     patterns,
		IncludeTests: f.includeTests,
		Options:      opts,
		Processors:   processor.AllRegisteredProcessors(),
		Messager:     msgr,
		OutputDir:    f.outputDir,
		CacheDir:     f.cacheDir,
		MaxRounds:    f.maxRounds,
	})
	res, err := c.Run(ctxlog.WithLogger(ctx, logger))
	if err != nil {
		return err
	}
	if res.Errors > 0 {
		fmt.Fprintf(os.Stderr, "%d errors, %d warnings\n", msgr.Errors(), msgr.Warnings())
		return errFailed
	}
	return nil
}

func colorEnabled(mode string) (bool, error) {
	switch strings.ToLower(mode) {
	case "on", "always":
		return true, nil
	case "off", "never":
		return false, nil
	case "auto", "":
		return os.Getenv("NO_COLOR") == "" && term.IsTerminal(int(os.Stderr.Fd())), nil
	default:
		return false, fmt.Errorf("invalid --color value %q (want auto, on or off)", mode)
	}
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		if !errors.Is(err, errFailed) {
			fmt.Fprintln(os.Stderr, "injectapt:", err)
		}
		os.Exit(1)
	}
}
