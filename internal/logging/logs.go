package logging

import (
	"os"
	"sync/atomic"

	"github.com/rs/zerolog"
)

var current atomic.Pointer[zerolog.Logger]

func init() {
	l := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(zerolog.InfoLevel)
	current.Store(&l)
}

// Logger returns the configured process logger.
func Logger() zerolog.Logger {
	return *current.Load()
}

func Tracef(format string, args ...any) {
	current.Load().Trace().Msgf(format, args...)
}

func Debugf(format string, args ...any) {
	current.Load().Debug().Msgf(format, args...)
}

func Infof(format string, args ...any) {
	current.Load().Info().Msgf(format, args...)
}

func Warnf(format string, args ...any) {
	current.Load().Warn().Msgf(format, args...)
}

func Errf(format string, args ...any) {
	current.Load().Error().Msgf(format, args...)
}
