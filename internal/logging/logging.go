// Package logging builds the process-wide zap logger.
package logging

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"
)

// Options configures the logger
type Options struct {
	Level  string // debug, info, warn, error
	Format string // auto, console, json
	// Output defaults to stderr so stdout stays free for command output
	Output io.Writer
}

// New creates a logger. An unknown level falls back to info.
func New(opts Options) *zap.Logger {
	level, err := parseLevel(opts.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.LowercaseLevelEncoder

	var encoder zapcore.Encoder
	if resolveFormat(opts.Format, out) == "console" {
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	} else {
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	}

	core := zapcore.NewCore(encoder, zapcore.AddSync(out), level)
	return zap.New(core, zap.AddStacktrace(zapcore.ErrorLevel))
}

// resolveFormat turns "auto" into console on a terminal and json otherwise
func resolveFormat(format string, out io.Writer) string {
	switch format {
	case "console", "text":
		return "console"
	case "json":
		return "json"
	}
	if f, ok := out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return "console"
	}
	return "json"
}

func parseLevel(level string) (zapcore.Level, error) {
	var l zapcore.Level
	err := l.UnmarshalText([]byte(level))
	return l, err
}
