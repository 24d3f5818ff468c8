package host

import (
	"log/slog"

	"github.com/jhump/annoinject/processor"
)

// DefaultMaxRounds is the number of rounds after which a compilation that
// keeps generating new sources is stopped.
const DefaultMaxRounds = 10

// Config represents the configuration of one compilation. Callers should
// configure the exported fields and then run a Compiler with it.
type Config struct {
	// Patterns name the packages to process, as for "go list".
	Patterns []string
	// Dir is the directory in which patterns are resolved. Blank means the
	// current directory.
	Dir string
	// IncludeTests also processes the test files of each package.
	IncludeTests bool
	// Options are handed to every processor.
	Options processor.Options
	// Processors run in this order in every round.
	Processors []processor.Processor
	// Messager receives diagnostics. If nil, they are only counted.
	Messager processor.Messager
	// OutputDir, if not blank, is the root under which generated files are
	// written. Otherwise they go next to the sources of their package.
	OutputDir string
	// CacheDir holds what incremental builds remember between runs. Builds
	// are never incremental without one.
	CacheDir string
	// MaxRounds limits the number of rounds. Zero means DefaultMaxRounds.
	MaxRounds int
	// Logger is for the compiler and its processors. If nil, the logger
	// from the context passed to Run is used.
	Logger *slog.Logger
}

func (c *Config) maxRounds() int {
	if c.MaxRounds <= 0 {
		return DefaultMaxRounds
	}
	return c.MaxRounds
}
