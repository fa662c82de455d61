package logger

import (
	"io"
	"io/ioutil"
	"sync"

	log "github.com/sirupsen/logrus"
)

// Logger interface is used to allow tests to inject custom loggers.
type Logger interface {
	Fatalf(string, ...interface{})
	Debugf(string, ...interface{})
	Errorf(string, ...interface{})
	Infof(string, ...interface{})
	Warnf(string, ...interface{})
	Debug(...interface{})
	Warn(...interface{})
	Info(...interface{})
	Fatal(...interface{})
	Writer() io.Writer
	SetWriter(io.Writer)
	Prefix(string)
	Silent(bool)
}

type logger struct {
	*log.Logger
	mu     sync.Mutex
	prefix string
	saved  io.Writer
	silent bool
}

// NewLogger returns a new Logger instance backed by Logrus.
func NewLogger(level uint32) Logger {
	l := log.New()
	l.SetLevel(log.Level(level))
	logFormatter := &log.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	}
	l.Formatter = logFormatter
	return &logger{Logger: l}
}

// NewNoopLogger returns a Logger that discards everything.
func NewNoopLogger() Logger {
	l := NewLogger(uint32(log.PanicLevel))
	l.SetWriter(ioutil.Discard)
	return l
}

func (l *logger) Writer() io.Writer {
	return l.Out
}

func (l *logger) SetWriter(writer io.Writer) {
	l.Out = writer
}

// Prefix sets a string prepended to every message. An empty string clears
// it.
func (l *logger) Prefix(prefix string) {
	l.mu.Lock()
	l.prefix = prefix
	l.mu.Unlock()
}

// Silent suppresses all output until called again with false. Disabling
// silence that was never enabled panics.
func (l *logger) Silent(silent bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if silent {
		if !l.silent {
			l.saved = l.Out
			l.Out = ioutil.Discard
			l.silent = true
		}
		return
	}
	if !l.silent {
		panic("logger: Silent(false) called without Silent(true)")
	}
	l.Out = l.saved
	l.saved = nil
	l.silent = false
}

func (l *logger) withPrefix(format string) string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.prefix + format
}

func (l *logger) Fatalf(format string, v ...interface{}) {
	l.Logger.Fatalf(l.withPrefix(format), v...)
}

func (l *logger) Debugf(format string, v ...interface{}) {
	l.Logger.Debugf(l.withPrefix(format), v...)
}

func (l *logger) Errorf(format string, v ...interface{}) {
	l.Logger.Errorf(l.withPrefix(format), v...)
}

func (l *logger) Infof(format string, v ...interface{}) {
	l.Logger.Infof(l.withPrefix(format), v...)
}

func (l *logger) Warnf(format string, v ...interface{}) {
	l.Logger.Warnf(l.withPrefix(format), v...)
}

func (l *logger) Debug(v ...interface{}) {
	l.Logger.Debug(append([]interface{}{l.withPrefix("")}, v...)...)
}

func (l *logger) Warn(v ...interface{}) {
	l.Logger.Warn(append([]interface{}{l.withPrefix("")}, v...)...)
}

func (l *logger) Info(v ...interface{}) {
	l.Logger.Info(append([]interface{}{l.withPrefix("")}, v...)...)
}

func (l *logger) Fatal(v ...interface{}) {
	l.Logger.Fatal(append([]interface{}{l.withPrefix("")}, v...)...)
}
