package logger

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// New mengembalikan logger JSON, atau console writer untuk development.
func New(development bool) zerolog.Logger {
	return newLogger(os.Stdout, development)
}

func newLogger(out io.Writer, development bool) zerolog.Logger {
	if development {
		out = zerolog.ConsoleWriter{Out: out, NoColor: true}
	}
	return zerolog.New(out).With().Timestamp().Str("service", "telekonsul").Logger()
}
