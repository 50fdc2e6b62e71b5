package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger provides a structured logging interface
type Logger struct {
	*zap.SugaredLogger
}

// Options controls where and how verbosely a Logger writes
type Options struct {
	// Dir is the directory for the JSON log file. Empty disables the file core.
	Dir   string
	Level zapcore.Level
	// Console defaults to stdout when nil.
	Console io.Writer
}

// New creates a new logger with the given name
func New(name string, opts Options) *Logger {
	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	console := opts.Console
	if console == nil {
		console = os.Stdout
	}

	cores := []zapcore.Core{
		zapcore.NewCore(
			zapcore.NewConsoleEncoder(encoderConfig),
			zapcore.AddSync(console),
			opts.Level,
		),
	}

	if opts.Dir != "" {
		if fileCore, err := newFileCore(name, opts.Dir, encoderConfig, opts.Level); err != nil {
			fmt.Fprintf(os.Stderr, "Error opening log file: %v\n", err)
		} else {
			cores = append(cores, fileCore)
		}
	}

	logger := zap.New(zapcore.NewTee(cores...), zap.AddCaller()).Named(name)

	return &Logger{
		SugaredLogger: logger.Sugar(),
	}
}

// Zap returns the underlying structured logger
func (l *Logger) Zap() *zap.Logger {
	return l.Desugar()
}

func newFileCore(name, dir string, encoderConfig zapcore.EncoderConfig, level zapcore.Level) (zapcore.Core, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	timestamp := time.Now().Format("20060102")
	logFile := filepath.Join(dir, fmt.Sprintf("%s_%s.log", name, timestamp))

	fileWriter, err := os.OpenFile(logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}

	return zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		zapcore.AddSync(fileWriter),
		level,
	), nil
}
