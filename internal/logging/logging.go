// Package logging provides the bot's structured logger. Every line carries
// the bot id and passes the fields through redaction before encoding, so
// credentials never reach the log stream or the log file.
package logging

import (
	"os"
	"sort"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Fields carries structured context for a single log call.
type Fields map[string]any

// Options configure the logger sinks and identity.
type Options struct {
	Level    string // debug|info|warn|error
	BotID    string
	ToFile   bool
	FilePath string
}

// Logger wraps zap with redaction applied on every call.
type Logger struct {
	z *zap.Logger
}

// New builds a logger writing to stderr (stdout belongs to the IPC channel)
// and, when configured, appending to a log file.
func New(opts Options) (*Logger, error) {
	sinks := []zapcore.WriteSyncer{zapcore.AddSync(os.Stderr)}
	if opts.ToFile && opts.FilePath != "" {
		f, err := os.OpenFile(opts.FilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, zapcore.AddSync(f))
	}
	core := zapcore.NewCore(
		newLineEncoder(opts.BotID),
		zapcore.NewMultiWriteSyncer(sinks...),
		parseLevel(opts.Level),
	)
	return &Logger{z: zap.New(core)}, nil
}

// FromZap wraps an existing zap logger; redaction still applies.
func FromZap(z *zap.Logger) *Logger {
	return &Logger{z: z}
}

// NewNop returns a logger that discards everything.
func NewNop() *Logger {
	return &Logger{z: zap.NewNop()}
}

func (l *Logger) Debug(msg string, fields ...Fields) { l.log(zapcore.DebugLevel, msg, fields) }
func (l *Logger) Info(msg string, fields ...Fields)  { l.log(zapcore.InfoLevel, msg, fields) }
func (l *Logger) Warn(msg string, fields ...Fields)  { l.log(zapcore.WarnLevel, msg, fields) }
func (l *Logger) Error(msg string, fields ...Fields) { l.log(zapcore.ErrorLevel, msg, fields) }

// Sync flushes buffered output; call before process exit.
func (l *Logger) Sync() error { return l.z.Sync() }

func (l *Logger) log(level zapcore.Level, msg string, fields []Fields) {
	var zf []zap.Field
	if len(fields) > 0 && len(fields[0]) > 0 {
		redacted := Redact(fields[0])
		keys := make([]string, 0, len(redacted))
		for k := range redacted {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		zf = make([]zap.Field, 0, len(keys))
		for _, k := range keys {
			zf = append(zf, zap.Any(k, redacted[k]))
		}
	}
	switch level {
	case zapcore.DebugLevel:
		l.z.Debug(msg, zf...)
	case zapcore.InfoLevel:
		l.z.Info(msg, zf...)
	case zapcore.WarnLevel:
		l.z.Warn(msg, zf...)
	default:
		l.z.Error(msg, zf...)
	}
}

// newLineEncoder renders:
//
//	[2026-01-15T09:30:00.000Z] [bot-1a2b] [INFO] message {"k":"v"}
func newLineEncoder(botID string) zapcore.Encoder {
	cfg := zapcore.EncoderConfig{
		MessageKey:       "msg",
		LevelKey:         "level",
		TimeKey:          "ts",
		LineEnding:       zapcore.DefaultLineEnding,
		ConsoleSeparator: " ",
		EncodeTime: func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
			enc.AppendString("[" + t.UTC().Format(timeLayout) + "] [" + botID + "]")
		},
		EncodeLevel: func(level zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
			enc.AppendString("[" + level.CapitalString() + "]")
		},
		EncodeDuration: zapcore.StringDurationEncoder,
	}
	return zapcore.NewConsoleEncoder(cfg)
}

const timeLayout = "2006-01-02T15:04:05.000Z0700"

func parseLevel(s string) zapcore.Level {
	switch s {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
