// Package logging builds the zerolog logger shared by the CLI, the server and the clients.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

type Options struct {
	Level  string
	Format string
	Output io.Writer
}

// New returns a logger writing to opts.Output (stderr by default).
func New(opts Options) (zerolog.Logger, error) {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	lvl := zerolog.InfoLevel
	if s := strings.TrimSpace(opts.Level); s != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(s))
		if err != nil {
			return zerolog.Nop(), fmt.Errorf("invalid LOG_LEVEL %q: %w", s, err)
		}
		lvl = parsed
	}

	switch strings.ToLower(strings.TrimSpace(opts.Format)) {
	case "", FormatJSON:
	case FormatConsole:
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339, NoColor: true}
	default:
		return zerolog.Nop(), fmt.Errorf("invalid LOG_FORMAT %q (want json or console)", opts.Format)
	}

	return zerolog.New(out).Level(lvl).With().Timestamp().Logger(), nil
}

// WithRun tags every event with the run id.
func WithRun(log zerolog.Logger, runID string) zerolog.Logger {
	return log.With().Str("run", runID).Logger()
}
