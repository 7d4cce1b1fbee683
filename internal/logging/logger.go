package logging

import (
	"io"

	"github.com/rs/zerolog"
)

// MaxVerbosity is the highest -v count that changes anything.
const MaxVerbosity = 4

// Options configures New.
type Options struct {
	Verbosity int
	// RunID is attached to every line when set.
	RunID string
	// File is the path of the rotated log file. Empty disables it.
	File     string
	MaxBytes int64
	Backups  int
	// Console receives human-readable lines. Nil disables console output.
	Console io.Writer
}

// ClampVerbosity limits v to the range 0..MaxVerbosity.
func ClampVerbosity(v int) int {
	if v < 0 {
		return 0
	}
	if v > MaxVerbosity {
		return MaxVerbosity
	}
	return v
}

// Level maps a verbosity count to a level. Zero only lets critical lines through.
func Level(verbosity int) zerolog.Level {
	switch ClampVerbosity(verbosity) {
	case 0:
		return zerolog.FatalLevel
	case 1:
		return zerolog.ErrorLevel
	case 2:
		return zerolog.WarnLevel
	case 3:
		return zerolog.InfoLevel
	default:
		return zerolog.DebugLevel
	}
}

// Critical starts a line at the highest level that does not exit the process.
func Critical(l *zerolog.Logger) *zerolog.Event {
	return l.WithLevel(zerolog.FatalLevel)
}

// New builds the process logger. The returned close function flushes the log
// file and must be called before exit.
func New(opts Options) (zerolog.Logger, func() error, error) {
	var writers []io.Writer
	closeFn := func() error { return nil }

	if opts.Console != nil {
		writers = append(writers, zerolog.ConsoleWriter{
			Out:          opts.Console,
			NoColor:      true,
			PartsExclude: []string{zerolog.TimestampFieldName},
		})
	}
	if opts.File != "" {
		rf, err := OpenRotating(opts.File, opts.MaxBytes, opts.Backups)
		if err != nil {
			return zerolog.Nop(), closeFn, err
		}
		writers = append(writers, rf)
		closeFn = rf.Close
	}

	var w io.Writer = io.Discard
	switch len(writers) {
	case 0:
	case 1:
		w = writers[0]
	default:
		w = zerolog.MultiLevelWriter(writers...)
	}

	ctx := zerolog.New(w).Level(Level(opts.Verbosity)).With().Timestamp()
	if opts.RunID != "" {
		ctx = ctx.Str("run", opts.RunID)
	}
	return ctx.Logger(), closeFn, nil
}
