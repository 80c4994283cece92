package log

import (
	"io"
	"log/slog"
	"os"

	runtime "github.com/banzaicloud/logrus-runtime-formatter"
	"github.com/sirupsen/logrus"
)

type Level string

const (
	LevelTrace Level = "trace"
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

var levelVar = &slog.LevelVar{}

// InitLogger will initialize the default logger instance.
func InitLogger() {
	levelVar.Set(slog.LevelInfo)

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: levelVar, AddSource: true}))

	slog.SetDefault(logger)
}

// SetLevel will set the logging level of the default logger at runtime.
func SetLevel(loglevel string) {
	switch Level(loglevel) {
	case LevelDebug, LevelTrace:
		levelVar.Set(slog.LevelDebug)
	case LevelInfo, "":
		levelVar.Set(slog.LevelInfo)
	case LevelWarn:
		levelVar.Set(slog.LevelWarn)
	case LevelError:
		levelVar.Set(slog.LevelError)
	default:
		levelVar.Set(slog.LevelInfo)
		slog.Warn("Unknown log level, defaulting to info", "loglevel", loglevel)
	}
}

// ParseLevel returns the logrus level for logLevel, info when unknown.
func ParseLevel(logLevel string) (logrus.Level, bool) {
	switch Level(logLevel) {
	case LevelDebug:
		return logrus.DebugLevel, true
	case LevelTrace:
		return logrus.TraceLevel, true
	case LevelInfo, "":
		return logrus.InfoLevel, true
	case LevelWarn:
		return logrus.WarnLevel, true
	case LevelError:
		return logrus.ErrorLevel, true
	default:
		return logrus.InfoLevel, false
	}
}

// NewLogrusLogger will generate a new logrus logger instance writing to stderr,
// stdout is left for command output.
func NewLogrusLogger(logLevel string) *logrus.Logger {
	return newLogrusLogger(os.Stderr, logLevel)
}

func newLogrusLogger(out io.Writer, logLevel string) *logrus.Logger {
	logger := logrus.New()

	logger.SetOutput(out)

	level, known := ParseLevel(logLevel)
	logger.SetLevel(level)

	runtimeFormatter := &runtime.Formatter{
		ChildFormatter: &logrus.JSONFormatter{},
		File:           true,
		Line:           true,
		BaseNameOnly:   true,
	}

	logger.SetFormatter(runtimeFormatter)

	if !known {
		logger.WithField("logLevel", logLevel).Warn("Unknown log level, defaulting to info")
	}

	return logger
}

// Fields turns alternating key value pairs, as returned by the AsLogFields
// helpers, into logrus fields. Non string keys and a trailing key are dropped.
func Fields(kv []any) logrus.Fields {
	fields := logrus.Fields{}

	for i := 0; i+1 < len(kv); i += 2 {
		if key, ok := kv[i].(string); ok {
			fields[key] = kv[i+1]
		}
	}

	return fields
}
