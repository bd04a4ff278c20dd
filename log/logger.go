/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package log

import (
	"io"
	"os"

	"github.com/ssgreg/logf"
	"github.com/ssgreg/logftext"
	"gopkg.in/natefinch/lumberjack.v2"
)

// FieldLogger is a structured logger. All caches accept it and never require a particular implementation.
type FieldLogger interface {
	With(fields ...Field) FieldLogger
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
}

// CloseFunc flushes the entries that are not written yet and releases the output.
type CloseFunc func()

// Logger is a FieldLogger on top of logf.
type Logger struct {
	l *logf.Logger
}

var _ FieldLogger = (*Logger)(nil)

// Wrap makes a Logger from the logf one.
func Wrap(l *logf.Logger) *Logger {
	return &Logger{l: l}
}

// NewDisabledLogger returns a logger that writes nothing.
func NewDisabledLogger() FieldLogger {
	return Wrap(logf.NewDisabledLogger())
}

// NewLogger creates a logger writing to the output from the configuration.
// Entries are written asynchronously, so the returned function must be called before exit.
func NewLogger(cfg *Config) (FieldLogger, CloseFunc) {
	w, closeOutput := openOutput(cfg)
	logger, closeLogger := newLogger(cfg, w)
	return logger, func() {
		closeLogger()
		closeOutput()
	}
}

func newLogger(cfg *Config, w io.Writer) (*Logger, CloseFunc) {
	channel, closeChannel := logf.NewChannelWriter(logf.ChannelWriterConfig{
		Appender:          newAppender(cfg, w),
		EnableSyncOnError: true,
	})
	l := logf.NewLogger(cfg.Level.logfLevel(), channel)
	if cfg.AddCaller {
		l = l.WithCaller().WithCallerSkip(1) // skip the Logger method frame
	}
	return Wrap(l), CloseFunc(closeChannel)
}

func openOutput(cfg *Config) (io.Writer, func()) {
	switch cfg.Output {
	case OutputStdout:
		return os.Stdout, func() {}
	case OutputFile:
		file := &lumberjack.Logger{
			Filename:   cfg.File.Path,
			MaxSize:    int(cfg.File.MaxSize / (1024 * 1024)),
			MaxBackups: cfg.File.MaxBackups,
			Compress:   cfg.File.Compress,
		}
		return file, func() { _ = file.Close() }
	}
	return os.Stderr, func() {}
}

func newAppender(cfg *Config, w io.Writer) logf.Appender {
	if cfg.Format == FormatText {
		noColor := cfg.NoColor
		return logftext.NewAppender(w, logftext.EncoderConfig{
			NoColor:    &noColor,
			EncodeTime: logf.RFC3339NanoTimeEncoder,
		})
	}
	return logf.NewWriteAppender(w, logf.NewJSONEncoder(logf.JSONEncoderConfig{
		EncodeTime:   logf.RFC3339NanoTimeEncoder,
		FieldKeyTime: "time",
	}))
}

// With returns a logger adding the fields to every entry.
func (l *Logger) With(fields ...Field) FieldLogger {
	return Wrap(l.l.With(fields...))
}

func (l *Logger) Debug(msg string, fields ...Field) {
	l.l.Debug(msg, fields...)
}

func (l *Logger) Info(msg string, fields ...Field) {
	l.l.Info(msg, fields...)
}

func (l *Logger) Warn(msg string, fields ...Field) {
	l.l.Warn(msg, fields...)
}

func (l *Logger) Error(msg string, fields ...Field) {
	l.l.Error(msg, fields...)
}
