// Package logger provides structured logging for the client and its commands.
//
// Loggers wrap logrus. Messages take optional key/value pairs, and the
// With* helpers attach the identifiers that recur across the client:
// access point MAC, device serial and API endpoint.
//
//	log, err := logger.New("info", "json")
//	if err != nil {
//		return err
//	}
//	log.WithSerial("CN12345678").Warn("Template out of sync")
//	log.Debug("Sending request", "endpoint", "ap_status")
package logger

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Logger is a logrus logger with key/value convenience methods
type Logger struct {
	*logrus.Logger
}

var formatters = map[string]func() logrus.Formatter{
	"json": func() logrus.Formatter {
		return &logrus.JSONFormatter{TimestampFormat: "2006-01-02T15:04:05.000Z07:00"}
	},
	"text": func() logrus.Formatter {
		return &logrus.TextFormatter{TimestampFormat: "2006-01-02 15:04:05", FullTimestamp: true}
	},
}

// New returns a logger writing to stderr
func New(level, format string) (*Logger, error) {
	return NewWithWriter(level, format, os.Stderr)
}

// NewWithWriter returns a logger writing to out.
// level is one of debug, info, warn, error; format is json or text.
func NewWithWriter(level, format string, out io.Writer) (*Logger, error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %s", level)
	}
	newFormatter, ok := formatters[format]
	if !ok {
		return nil, fmt.Errorf("invalid log format: %s (must be 'json' or 'text')", format)
	}

	base := logrus.New()
	base.SetOutput(out)
	base.SetLevel(lvl)
	base.SetFormatter(newFormatter())

	return &Logger{base}, nil
}

func (l *Logger) WithError(err error) *logrus.Entry {
	return l.WithField("error", err.Error())
}

func (l *Logger) WithEndpoint(endpoint string) *logrus.Entry {
	return l.WithField("endpoint", endpoint)
}

func (l *Logger) WithMAC(mac string) *logrus.Entry {
	return l.WithField("mac", mac)
}

func (l *Logger) WithSerial(serial string) *logrus.Entry {
	return l.WithField("serial", serial)
}

func (l *Logger) Debug(msg string, kv ...interface{}) { l.emit(logrus.DebugLevel, msg, kv) }
func (l *Logger) Info(msg string, kv ...interface{})  { l.emit(logrus.InfoLevel, msg, kv) }
func (l *Logger) Warn(msg string, kv ...interface{})  { l.emit(logrus.WarnLevel, msg, kv) }
func (l *Logger) Error(msg string, kv ...interface{}) { l.emit(logrus.ErrorLevel, msg, kv) }

func (l *Logger) emit(level logrus.Level, msg string, kv []interface{}) {
	if !l.IsLevelEnabled(level) {
		return
	}
	if len(kv) == 0 {
		l.Logger.Log(level, msg)
		return
	}
	l.Logger.WithFields(toFields(kv)).Log(level, msg)
}

// toFields pairs up keys and values; a trailing key without a value is dropped
func toFields(kv []interface{}) logrus.Fields {
	fields := make(logrus.Fields, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		fields[fmt.Sprint(kv[i])] = kv[i+1]
	}
	return fields
}
