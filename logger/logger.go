package logger

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

var L = zerolog.Nop()

// Init points L at path, or stderr when path is empty. Unknown levels fall
// back to info.
func Init(path, level string) error {
	var w io.Writer = os.Stderr
	if path != "" {
		file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return err
		}
		w = file
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	L = zerolog.New(zerolog.ConsoleWriter{Out: w, NoColor: path != ""}).Level(lvl).With().Timestamp().Logger()
	return nil
}

// Component returns L tagged with the component name.
func Component(name string) zerolog.Logger {
	return L.With().Str("component", name).Logger()
}
