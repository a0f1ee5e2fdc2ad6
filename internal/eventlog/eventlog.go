// Package eventlog is the process-wide event sink. It writes every record to
// a rotating events.log and, optionally, to a coloured console.
//
// Lines look like:
//
//	2026-01-02T15:04:05.000Z [INFO] [BACKEND] [service] entry created	{"shortcode": "abc"}
package eventlog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config controls where and how much is logged.
type Config struct {
	Level      string `mapstructure:"level"`
	Context    string `mapstructure:"context"`
	Path       string `mapstructure:"path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
	Console    bool   `mapstructure:"console"`
}

// Sink owns the log file for the lifetime of the process.
type Sink struct {
	logger *zap.Logger
	level  zap.AtomicLevel
	file   *lumberjack.Logger
}

// Open creates the log directory and starts writing.
func Open(cfg Config) (*Sink, error) {
	level, err := zap.ParseAtomicLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}
	if cfg.Context == "" {
		cfg.Context = "backend"
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	file := &lumberjack.Logger{
		Filename:   cfg.Path,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	}

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig(false)), zapcore.AddSync(file), level),
	}
	if cfg.Console {
		cores = append(cores, zapcore.NewCore(
			zapcore.NewConsoleEncoder(encoderConfig(true)),
			zapcore.Lock(os.Stdout),
			level,
		))
	}

	logger := zap.New(zapcore.NewTee(cores...), zap.ErrorOutput(zapcore.Lock(os.Stderr))).
		Named(cfg.Context)

	return &Sink{logger: logger, level: level, file: file}, nil
}

// Logger returns the root logger, named after the configured context.
func (s *Sink) Logger() *zap.Logger {
	return s.logger
}

// For returns a logger tagged with the given component.
func (s *Sink) For(component string) *zap.Logger {
	return s.logger.Named(component)
}

// SetLevel changes the minimum level at runtime.
func (s *Sink) SetLevel(level string) error {
	return s.level.UnmarshalText([]byte(level))
}

// Close flushes buffered records and closes the file.
func (s *Sink) Close() error {
	// Sync on a terminal stdout fails with EINVAL on some platforms.
	_ = s.logger.Sync()
	return s.file.Close()
}

func encoderConfig(color bool) zapcore.EncoderConfig {
	cfg := zapcore.EncoderConfig{
		TimeKey:          "ts",
		LevelKey:         "level",
		NameKey:          "logger",
		MessageKey:       "msg",
		StacktraceKey:    "stacktrace",
		LineEnding:       zapcore.DefaultLineEnding,
		EncodeTime:       encodeTime,
		EncodeLevel:      encodeLevel,
		EncodeName:       encodeName,
		EncodeDuration:   zapcore.StringDurationEncoder,
		ConsoleSeparator: " ",
	}
	if color {
		cfg.EncodeLevel = encodeColorLevel
	}
	return cfg
}

func encodeTime(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(t.UTC().Format("2006-01-02T15:04:05.000Z"))
}

func encodeLevel(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString("[" + l.CapitalString() + "]")
}

var levelColors = map[zapcore.Level]string{
	zapcore.DebugLevel: "\x1b[36m",
	zapcore.InfoLevel:  "\x1b[32m",
	zapcore.WarnLevel:  "\x1b[33m",
	zapcore.ErrorLevel: "\x1b[31m",
	zapcore.FatalLevel: "\x1b[35m",
}

func encodeColorLevel(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	color, ok := levelColors[l]
	if !ok {
		color = levelColors[zapcore.InfoLevel]
	}
	enc.AppendString(color + "[" + l.CapitalString() + "]\x1b[0m")
}

// encodeName renders "backend.service" as "[BACKEND] [service]".
func encodeName(name string, enc zapcore.PrimitiveArrayEncoder) {
	context, component, found := strings.Cut(name, ".")
	enc.AppendString("[" + strings.ToUpper(context) + "]")
	if found {
		enc.AppendString("[" + component + "]")
	}
}
