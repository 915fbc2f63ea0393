// Package log builds the broker's structured logger.
package log

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	// Subsystem names every logger built by this package.
	Subsystem = "io.cloudeng.KeychainHelper"
	// Category is attached to every entry.
	Category = "debug"
)

// Config configures the logger.
type Config struct {
	// Level is the minimum level (debug, info, warn, error).
	Level string
	// Format is json or console.
	Format string
	// File, when set, receives the log instead of standard error.
	File string
	// MaxSize is the maximum size in megabytes before rotation.
	MaxSize int
	// MaxBackups is the maximum number of old log files to retain.
	MaxBackups int
	// MaxAge is the maximum number of days to retain old log files.
	MaxAge int
	// Compress determines if rotated files should be compressed.
	Compress bool
}

// DefaultConfig returns the default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:      "info",
		Format:     "json",
		MaxSize:    10,
		MaxBackups: 3,
		MaxAge:     28,
	}
}

// New creates a logger writing to cfg.File, or to os.Stderr when no file is
// configured. The returned function flushes and releases the output.
func New(cfg Config) (*zap.Logger, func() error, error) {
	if cfg.File == "" {
		return NewWithWriter(cfg, os.Stderr)
	}
	rotator := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   cfg.Compress,
	}
	logger, sync, err := NewWithWriter(cfg, rotator)
	if err != nil {
		return nil, nil, err
	}
	return logger, func() error {
		sync()
		return rotator.Close()
	}, nil
}

// NewWithWriter creates a logger writing to w.
func NewWithWriter(cfg Config, w io.Writer) (*zap.Logger, func() error, error) {
	level := zapcore.InfoLevel
	if cfg.Level != "" {
		var err error
		if level, err = zapcore.ParseLevel(cfg.Level); err != nil {
			return nil, nil, fmt.Errorf("invalid log level %s: %w", cfg.Level, err)
		}
	}

	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		NameKey:        "subsystem",
		CallerKey:      "caller",
		MessageKey:     "message",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	var encoder zapcore.Encoder
	switch cfg.Format {
	case "", "json":
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	case "console":
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	default:
		return nil, nil, fmt.Errorf("invalid log format %q", cfg.Format)
	}

	core := zapcore.NewCore(encoder, zapcore.AddSync(w), level)
	logger := zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	return Tag(logger), logger.Sync, nil
}

// Tag names logger after the broker subsystem and adds its category.
func Tag(logger *zap.Logger) *zap.Logger {
	return logger.Named(Subsystem).With(zap.String("category", Category))
}
